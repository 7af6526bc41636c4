package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filecoin-project/go-state-types/exitcode"

	"github.com/ostiary-labs/ostiary/herrors"
	"github.com/ostiary-labs/ostiary/types"
)

type echoHandler struct{}

func (echoHandler) InvokeHook(rt *Runtime, params []byte) ([]byte, herrors.HookError) {
	return params, nil
}

func TestRegistryBasic(t *testing.T) {
	reg := NewRegistry()
	code := mkCode(t, "echo")
	reg.Register(code, echoHandler{})

	rt := newTestRuntime(1000)
	ret, herr := reg.Invoke(&types.Actor{Code: code}, rt, []byte("hello"))
	require.NoError(t, herr)
	assert.Equal(t, []byte("hello"), ret)
}

func TestRegistryUnknownCode(t *testing.T) {
	reg := NewRegistry()

	rt := newTestRuntime(1000)
	_, herr := reg.Invoke(&types.Actor{Code: mkCode(t, "nope")}, rt, nil)
	require.Error(t, herr)
	assert.Equal(t, exitcode.SysErrorIllegalActor, herr.RetCode())
	assert.False(t, herrors.IsFatal(herr), "an unregistered target is a hook-internal failure")
}

func TestRegistryShieldsCallerFromPanics(t *testing.T) {
	reg := NewRegistry()
	code := mkCode(t, "panics")
	reg.Register(code, panicHandler{})

	rt := newTestRuntime(1000)
	_, herr := reg.Invoke(&types.Actor{Code: code}, rt, nil)
	require.Error(t, herr)
	assert.Equal(t, exitcode.SysErrIllegalInstruction, herr.RetCode())
}
