package types

import (
	"github.com/ipfs/go-cid"
)

// Actor is the record behind a dispatchable address. Code identifies the
// handler implementation registered for it; the indirection lets several
// addresses share one handler.
type Actor struct {
	Code cid.Cid
}
