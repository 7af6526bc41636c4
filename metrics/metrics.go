package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Distributions
var defaultMillisecondsDistribution = view.Distribution(
	0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8,
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
	150, 200, 250, 300, 350, 400, 450, 500,
	600, 700, 800, 900, 1000,
	2000, 5000, 10000, 30000, 60000,
)

// Gas distribution for Execute gas limits and used gas.
var gasDistribution = view.Distribution(
	1e3, 5e3, 10e3, 50e3,
	100e3, 250e3, 500e3,
	1e6, 2e6, 5e6, 10e6, 20e6, 50e6, 100e6,
	200e6, 500e6, 1e9, 2e9, 5e9, 10e9,
)

// Tags
var (
	Caller, _ = tag.NewKey("caller")
	Target, _ = tag.NewKey("target")
)

// Measures
var (
	Executions             = stats.Int64("dispatch/executions", "Counter for Execute calls", stats.UnitDimensionless)
	UnauthorizedRejections = stats.Int64("dispatch/unauthorized", "Counter for Execute calls rejected by the authorization guard", stats.UnitDimensionless)
	HooksDispatched        = stats.Int64("dispatch/hooks", "Counter for hooks invoked", stats.UnitDimensionless)
	HookFailuresSwallowed  = stats.Int64("dispatch/hook_failures", "Counter for hook-internal failures absorbed at the dispatch boundary", stats.UnitDimensionless)
	StarvationAborts       = stats.Int64("dispatch/starvation_aborts", "Counter for executions aborted by the gas starvation check", stats.UnitDimensionless)
	ExecuteGasUsed         = stats.Int64("dispatch/execute_gas", "Gas consumed by whole Execute calls (histogram)", stats.UnitDimensionless)
	ExecuteDuration        = stats.Float64("dispatch/execute_ms", "Duration of Execute calls", stats.UnitMilliseconds)
)

// Views
var (
	ExecutionsView = &view.View{
		Measure:     Executions,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Caller},
	}
	UnauthorizedRejectionsView = &view.View{
		Measure:     UnauthorizedRejections,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Caller},
	}
	HooksDispatchedView = &view.View{
		Measure:     HooksDispatched,
		Aggregation: view.Count(),
	}
	HookFailuresSwallowedView = &view.View{
		Measure:     HookFailuresSwallowed,
		Aggregation: view.Count(),
	}
	StarvationAbortsView = &view.View{
		Measure:     StarvationAborts,
		Aggregation: view.Count(),
	}
	ExecuteGasUsedView = &view.View{
		Measure:     ExecuteGasUsed,
		Aggregation: gasDistribution,
	}
	ExecuteDurationView = &view.View{
		Measure:     ExecuteDuration,
		Aggregation: defaultMillisecondsDistribution,
	}
)

// DefaultViews is an array of OpenCensus views for metric gathering purposes.
var DefaultViews = []*view.View{
	ExecutionsView,
	UnauthorizedRejectionsView,
	HooksDispatchedView,
	HookFailuresSwallowedView,
	StarvationAbortsView,
	ExecuteGasUsedView,
	ExecuteDurationView,
}

func RegisterViews(v ...*view.View) {
	if err := view.Register(v...); err != nil {
		panic(err)
	}
}

func init() {
	RegisterViews(DefaultViews...)
}

func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Milliseconds())
}

// Timer is a function stopwatch: calling it starts the timer, calling the
// returned function records the duration.
func Timer(ctx context.Context, m *stats.Float64Measure) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		stats.Record(ctx, m.M(SinceInMilliseconds(start)))
		return time.Since(start)
	}
}
