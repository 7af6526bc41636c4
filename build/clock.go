package build

import (
	"github.com/raulk/clock"
)

// Clock is the global clock used for all dispatch timing. Tests that need to
// control time can swap in clock.NewMock(); watch out for races when doing so.
var Clock = clock.New()
