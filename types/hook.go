package types

import (
	"github.com/filecoin-project/go-address"
)

// Hook describes one dispatch slot: the target to invoke, the opaque params
// handed to it verbatim, and the gas budget the dispatcher must attempt to
// forward. Hooks have no identity beyond their position in the slice passed
// to Execute; nothing about them is retained across calls.
type Hook struct {
	Target   address.Address
	Params   []byte
	GasLimit int64
}
