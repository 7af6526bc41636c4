package vm

import (
	"context"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-address"
	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/ostiary-labs/ostiary/build"
	"github.com/ostiary-labs/ostiary/herrors"
	"github.com/ostiary-labs/ostiary/metrics"
	"github.com/ostiary-labs/ostiary/types"
)

var log = logging.Logger("hookvm")

// ErrGasStarved marks the fatal condition where the execution environment
// could not forward a hook its full requested budget. An Execute call that
// fails with it must abort the transaction enclosing it: continuing would let
// the orchestrator believe every hook got what it was promised.
var ErrGasStarved = xerrors.New("insufficient gas to honor hook budget")

// IsStarved reports whether err is a starvation abort.
func IsStarved(err error) bool {
	return xerrors.Is(err, ErrGasStarved)
}

// IsUnauthorized reports whether err is the authorization guard rejecting the
// invoker.
func IsUnauthorized(err error) bool {
	var herr herrors.HookError
	return xerrors.As(err, &herr) && !herr.IsFatal() && herr.RetCode() == exitcode.SysErrForbidden
}

// Dispatcher executes batches of gas-budgeted hooks on behalf of a single
// authorized orchestrator. All fields are set at construction and never
// mutated; Execute calls share nothing else.
type Dispatcher struct {
	caller  address.Address
	reg     *HookRegistry
	targets map[address.Address]*types.Actor
}

type DispatcherOpts struct {
	// AuthorizedCaller is the only identity Execute accepts. Required.
	AuthorizedCaller address.Address

	// Registry maps handler code to implementations. Required.
	Registry *HookRegistry

	// Targets maps dispatchable addresses to their actor records.
	Targets map[address.Address]*types.Actor
}

func NewDispatcher(opts *DispatcherOpts) (*Dispatcher, error) {
	if opts == nil {
		return nil, xerrors.New("nil dispatcher opts")
	}
	if opts.AuthorizedCaller == address.Undef {
		return nil, xerrors.New("authorized caller must be set")
	}
	if opts.Registry == nil {
		return nil, xerrors.New("handler registry must be set")
	}

	// copy the target table so later mutation of opts cannot leak in
	targets := make(map[address.Address]*types.Actor, len(opts.Targets))
	for a, act := range opts.Targets {
		targets[a] = act
	}

	return &Dispatcher{
		caller:  opts.AuthorizedCaller,
		reg:     opts.Registry,
		targets: targets,
	}, nil
}

// AuthorizedCaller returns the one identity Execute accepts.
func (d *Dispatcher) AuthorizedCaller() address.Address {
	return d.caller
}

func (d *Dispatcher) resolveTarget(addr address.Address) (*types.Actor, herrors.HookError) {
	act, ok := d.targets[addr]
	if !ok {
		return nil, herrors.Newf(exitcode.SysErrInvalidReceiver, "no actor registered at %s", addr)
	}
	return act, nil
}

// Execute invokes every hook in input order, each under its own gas ceiling,
// funded out of gasLimit. Individual hook outcomes are swallowed; the whole
// call fails only when the invoker is not the authorized caller or when the
// starvation check proves a hook could not have received its budget.
func (d *Dispatcher) Execute(ctx context.Context, caller address.Address, hooks []types.Hook, gasLimit int64) (*types.ExecRet, error) {
	start := build.Clock.Now()
	ctx, span := trace.StartSpan(ctx, "hookvm.Execute")
	defer span.End()
	if span.IsRecordingEvents() {
		span.AddAttributes(
			trace.StringAttribute("caller", caller.String()),
			trace.Int64Attribute("hooks", int64(len(hooks))),
			trace.Int64Attribute("gasLimit", gasLimit),
		)
	}
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.Caller, caller.String()))
	stats.Record(ctx, metrics.Executions.M(1))

	if caller != d.caller {
		stats.Record(ctx, metrics.UnauthorizedRejections.M(1))
		return nil, herrors.Newf(exitcode.SysErrForbidden, "caller %s is not the authorized orchestrator %s", caller, d.caller)
	}
	if gasLimit < 0 {
		return nil, xerrors.Errorf("negative gas limit: %d", gasLimit)
	}

	rt := &Runtime{
		ctx:          ctx,
		vm:           d,
		origin:       caller,
		receiver:     address.Undef,
		gasAvailable: gasLimit,
		pricelist:    DefaultPricelist(),
	}

	for i, hk := range hooks {
		if err := d.dispatchHook(ctx, rt, i, hk); err != nil {
			return nil, err
		}
	}

	dur := build.Clock.Since(start)
	stats.Record(ctx,
		metrics.ExecuteGasUsed.M(rt.gasUsed),
		metrics.ExecuteDuration.M(float64(dur.Milliseconds())),
	)

	return &types.ExecRet{
		GasUsed:         rt.gasUsed,
		HooksDispatched: len(hooks),
		Duration:        dur,
	}, nil
}

func (d *Dispatcher) dispatchHook(ctx context.Context, rt *Runtime, idx int, hk types.Hook) error {
	if hk.GasLimit < 0 {
		return xerrors.Errorf("hook %d (%s): negative gas budget %d", idx, hk.Target, hk.GasLimit)
	}

	ctx, _ = tag.New(ctx, tag.Upsert(metrics.Target, hk.Target.String()))

	if herr := rt.chargeGasSafe(rt.pricelist.OnHookInvocation(len(hk.Params))); herr != nil {
		// Cannot even pay the bookkeeping for this invocation: the batch is
		// underfunded. Same failure family as starvation.
		stats.Record(ctx, metrics.StarvationAborts.M(1))
		return herrors.Escalate(
			xerrors.Errorf("hook %d (%s): dispatch overhead unpayable: %w", idx, hk.Target, ErrGasStarved),
			"dispatch aborted")
	}

	_, herr := rt.internalSend(hk)
	if herr != nil {
		// Hook-internal failure, fatal or not. Swallowed: one hook's outcome
		// must not affect the remaining hooks or the orchestrator. Fatality
		// minted inside a handler carries no authority over the batch.
		log.Warnw("hook failed", "index", idx, "target", hk.Target,
			"fatal", herr.IsFatal(), "exitcode", herr.RetCode(), "error", herr)
		stats.Record(ctx, metrics.HookFailuresSwallowed.M(1))
	}

	if starved(hk.GasLimit, rt.gasRemaining()) {
		stats.Record(ctx, metrics.StarvationAborts.M(1))
		return herrors.Escalate(
			xerrors.Errorf("hook %d (%s): requested %d gas but only %d remained on return: %w",
				idx, hk.Target, hk.GasLimit, rt.gasRemaining(), ErrGasStarved),
			"dispatch aborted")
	}

	stats.Record(ctx, metrics.HooksDispatched.M(1))
	return nil
}
