package vm

import (
	"github.com/ipfs/go-cid"

	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/ostiary-labs/ostiary/herrors"
	"github.com/ostiary-labs/ostiary/types"
)

// Invokee is the capability surface an untrusted hook handler implements.
// Params arrive verbatim from the Hook descriptor; neither the registry nor
// the dispatcher interprets them. Handlers signal failure either by returning
// a HookError or by aborting through the runtime (rt.Abortf, gas exhaustion);
// the two are equivalent at the dispatch boundary.
type Invokee interface {
	InvokeHook(rt *Runtime, params []byte) ([]byte, herrors.HookError)
}

// HookRegistry maps handler code identifiers to implementations. It is
// populated before the dispatcher is constructed and read-only afterwards.
type HookRegistry struct {
	handlers map[cid.Cid]Invokee
}

func NewRegistry() *HookRegistry {
	return &HookRegistry{
		handlers: make(map[cid.Cid]Invokee),
	}
}

func (r *HookRegistry) Register(code cid.Cid, h Invokee) {
	r.handlers[code] = h
}

func (r *HookRegistry) Invoke(act *types.Actor, rt *Runtime, params []byte) ([]byte, herrors.HookError) {
	h, ok := r.handlers[act.Code]
	if !ok {
		log.Errorf("no handler for code %s (target: %s)", act.Code, rt.Receiver())
		return nil, herrors.Newf(exitcode.SysErrorIllegalActor, "no handler registered for code %s", act.Code)
	}

	return rt.shimCall(func() ([]byte, herrors.HookError) {
		return h.InvokeHook(rt, params)
	})
}
