package types

import (
	"time"
)

// ExecRet is the aggregate receipt for one Execute call. It deliberately
// carries no per-hook outcomes: individual hook results are opaque to the
// orchestrator.
type ExecRet struct {
	// GasUsed is everything the dispatch consumed: forwarded hook gas plus
	// the dispatcher's own bookkeeping overhead.
	GasUsed int64

	// HooksDispatched counts hooks that were actually invoked.
	HooksDispatched int

	Duration time.Duration
}
