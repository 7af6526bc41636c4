package vm

import (
	"context"

	"go.opencensus.io/trace"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/ostiary-labs/ostiary/herrors"
	"github.com/ostiary-labs/ostiary/types"
)

// Runtime is the metered execution context for exactly one frame: the
// dispatcher's own frame during Execute, and one child frame per dispatched
// hook. Hook handlers receive the child frame and can only spend the gas it
// was forwarded.
type Runtime struct {
	ctx context.Context

	vm *Dispatcher

	// origin is the identity that passed the authorization guard; it is the
	// same for every frame of one Execute call.
	origin   address.Address
	receiver address.Address

	gasAvailable int64
	gasUsed      int64

	pricelist Pricelist
	depth     uint64
}

func (rt *Runtime) Caller() address.Address {
	return rt.origin
}

func (rt *Runtime) Receiver() address.Address {
	return rt.receiver
}

func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

func (rt *Runtime) GasAvailable() int64 {
	return rt.gasAvailable
}

func (rt *Runtime) GasUsed() int64 {
	return rt.gasUsed
}

func (rt *Runtime) Pricelist() Pricelist {
	return rt.pricelist
}

func (rt *Runtime) gasRemaining() int64 {
	return rt.gasAvailable - rt.gasUsed
}

// Abortf ends the current handler with a recoverable error carrying code.
// It must only be called from within a handler invocation; the registry's
// shim recovers the panic.
func (rt *Runtime) Abortf(code exitcode.ExitCode, format string, args ...interface{}) {
	log.Warnf("Abortf: "+format, args...)
	panic(herrors.Newf(code, format, args...))
}

// ChargeGas debits the current frame, aborting the handler with
// SysErrOutOfGas when the frame's budget is exhausted.
func (rt *Runtime) ChargeGas(name string, compute int64) {
	if err := rt.chargeGasSafe(newGasCharge(name, compute, 0)); err != nil {
		panic(err)
	}
}

func (rt *Runtime) chargeGasSafe(gas GasCharge) herrors.HookError {
	toUse := gas.Total()

	// overflow safe
	if rt.gasUsed > rt.gasAvailable-toUse {
		gasUsed := rt.gasUsed
		rt.gasUsed = rt.gasAvailable
		return herrors.Newf(exitcode.SysErrOutOfGas, "not enough gas: used=%d, available=%d, use=%d",
			gasUsed, rt.gasAvailable, toUse)
	}
	rt.gasUsed += toUse
	return nil
}

// shimCall runs a handler entry point, converting any panic into a HookError
// so that a misbehaving handler cannot unwind the dispatch loop.
func (rt *Runtime) shimCall(f func() ([]byte, herrors.HookError)) (ret []byte, aerr herrors.HookError) {
	defer func() {
		if r := recover(); r != nil {
			if herr, ok := r.(herrors.HookError); ok {
				log.Warnf("hook failure in call from %s to %s: %+v", rt.origin, rt.receiver, herr)
				aerr = herr
				return
			}
			log.Errorf("hook handler panic: %s", r)
			aerr = herrors.Newf(exitcode.SysErrIllegalInstruction, "hook handler panic: %s", r)
		}
	}()

	return f()
}

// Send dispatches a nested call from the current handler to another
// registered target, under the same gas reservation rule the dispatcher
// itself is subject to. The handler pays the invocation overhead out of its
// own frame.
func (rt *Runtime) Send(to address.Address, params []byte, gasLimit int64) ([]byte, herrors.HookError) {
	if rt.depth >= maxCallDepth {
		return nil, herrors.Newf(exitcode.SysErrorIllegalActor, "max call depth %d exceeded", maxCallDepth)
	}
	if herr := rt.chargeGasSafe(rt.pricelist.OnHookInvocation(len(params))); herr != nil {
		return nil, herr
	}
	return rt.internalSend(types.Hook{Target: to, Params: params, GasLimit: gasLimit})
}

func (rt *Runtime) internalSend(hk types.Hook) ([]byte, herrors.HookError) {
	ctx, span := trace.StartSpan(rt.ctx, "vm.Send")
	defer span.End()
	if span.IsRecordingEvents() {
		span.AddAttributes(
			trace.StringAttribute("to", hk.Target.String()),
			trace.Int64Attribute("gasLimit", hk.GasLimit),
		)
	}

	if hk.GasLimit < 0 {
		return nil, herrors.Newf(exitcode.SysErrorIllegalArgument, "negative gas budget: %d", hk.GasLimit)
	}

	act, herr := rt.vm.resolveTarget(hk.Target)
	if herr != nil {
		return nil, herr
	}

	fwd := maxForwardableGas(rt.gasRemaining())
	if hk.GasLimit < fwd {
		fwd = hk.GasLimit
	}

	subrt := &Runtime{
		ctx:          ctx,
		vm:           rt.vm,
		origin:       rt.origin,
		receiver:     hk.Target,
		gasAvailable: fwd,
		pricelist:    rt.pricelist,
		depth:        rt.depth + 1,
	}
	defer func() {
		// the child's consumption comes out of this frame's budget
		rt.gasUsed += subrt.gasUsed
	}()

	return rt.vm.reg.Invoke(act, subrt, hk.Params)
}
