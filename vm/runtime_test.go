package vm

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/ostiary-labs/ostiary/herrors"
)

func newTestRuntime(gas int64) *Runtime {
	return &Runtime{
		ctx:          context.Background(),
		gasAvailable: gas,
		pricelist:    DefaultPricelist(),
	}
}

func TestChargeGasAccounting(t *testing.T) {
	rt := newTestRuntime(1000)

	require.NoError(t, rt.chargeGasSafe(newGasCharge("OnTest", 300, 0)))
	assert.Equal(t, int64(300), rt.GasUsed())
	assert.Equal(t, int64(700), rt.gasRemaining())

	require.NoError(t, rt.chargeGasSafe(newGasCharge("OnTest", 600, 100)))
	assert.Equal(t, int64(1000), rt.GasUsed())
	assert.Equal(t, int64(0), rt.gasRemaining())

	herr := rt.chargeGasSafe(newGasCharge("OnTest", 1, 0))
	require.Error(t, herr)
	assert.Equal(t, exitcode.SysErrOutOfGas, herr.RetCode())
	assert.False(t, herrors.IsFatal(herr))
}

func TestChargeGasExhaustionConsumesFrame(t *testing.T) {
	rt := newTestRuntime(100)

	herr := rt.chargeGasSafe(newGasCharge("OnTest", 200, 0))
	require.Error(t, herr)
	assert.Equal(t, exitcode.SysErrOutOfGas, herr.RetCode())

	// an exhausted frame holds nothing: the whole budget is charged to the
	// caller
	assert.Equal(t, int64(100), rt.GasUsed())
}

func TestChargeGasOverflowSafe(t *testing.T) {
	rt := newTestRuntime(math.MaxInt64)
	require.NoError(t, rt.chargeGasSafe(newGasCharge("OnTest", math.MaxInt64-1, 0)))

	herr := rt.chargeGasSafe(newGasCharge("OnTest", math.MaxInt64, 0))
	require.Error(t, herr)
	assert.Equal(t, exitcode.SysErrOutOfGas, herr.RetCode())
}

func TestShimCallRecoversHookError(t *testing.T) {
	rt := newTestRuntime(1000)

	_, herr := rt.shimCall(func() ([]byte, herrors.HookError) {
		rt.Abortf(exitcode.ErrIllegalState, "no thanks")
		return nil, nil
	})
	require.Error(t, herr)
	assert.Equal(t, exitcode.ErrIllegalState, herr.RetCode())
	assert.False(t, herrors.IsFatal(herr))
}

func TestShimCallRecoversRawPanic(t *testing.T) {
	rt := newTestRuntime(1000)

	_, herr := rt.shimCall(func() ([]byte, herrors.HookError) {
		panic("handler bug")
	})
	require.Error(t, herr)
	assert.Equal(t, exitcode.SysErrIllegalInstruction, herr.RetCode())
}

func TestShimCallPassesThroughReturns(t *testing.T) {
	rt := newTestRuntime(1000)

	ret, herr := rt.shimCall(func() ([]byte, herrors.HookError) {
		return []byte("ok"), nil
	})
	require.NoError(t, herr)
	assert.Equal(t, []byte("ok"), ret)
}

func TestSendDepthLimit(t *testing.T) {
	rt := newTestRuntime(100_000)
	rt.depth = maxCallDepth

	_, herr := rt.Send(mkAddr(t, 1), nil, 100)
	require.Error(t, herr)
	assert.Equal(t, exitcode.SysErrorIllegalActor, herr.RetCode())
}
