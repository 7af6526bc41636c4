package vm

import (
	"github.com/filecoin-project/go-state-types/big"
)

const (
	// gasReservationDenom is the fraction of remaining gas the runtime
	// withholds from every nested invocation: a child frame is forwarded at
	// most remaining - remaining/gasReservationDenom gas, no matter how much
	// it asked for.
	gasReservationDenom = 64

	// maxCallDepth bounds hook-initiated nested sends.
	maxCallDepth = 1024
)

type GasCharge struct {
	Name       string
	ComputeGas int64
	StorageGas int64
}

func (g GasCharge) Total() int64 {
	return g.ComputeGas + g.StorageGas
}

func newGasCharge(name string, computeGas int64, storageGas int64) GasCharge {
	return GasCharge{
		Name:       name,
		ComputeGas: computeGas,
		StorageGas: storageGas,
	}
}

// Pricelist provides the costs of the dispatcher's own bookkeeping. Forwarded
// hook gas is not priced here; it is carved directly out of the caller frame.
type Pricelist interface {
	// OnHookInvocation returns the flat overhead of dispatching one hook,
	// sensitive only to the size of its params.
	OnHookInvocation(paramsLen int) GasCharge
}

type pricelistV0 struct {
	hookInvocationBase    int64
	hookInvocationPerByte int64
}

var _ Pricelist = (*pricelistV0)(nil)

func (pl *pricelistV0) OnHookInvocation(paramsLen int) GasCharge {
	return newGasCharge("OnHookInvocation",
		pl.hookInvocationBase+int64(paramsLen)*pl.hookInvocationPerByte, 0)
}

var basePricelist Pricelist = &pricelistV0{
	hookInvocationBase:    36,
	hookInvocationPerByte: 1,
}

func DefaultPricelist() Pricelist {
	return basePricelist
}

// maxForwardableGas returns how much of a frame's remaining gas a nested
// invocation may receive once the reservation is withheld.
func maxForwardableGas(remaining int64) int64 {
	if remaining <= 0 {
		return 0
	}
	return remaining - remaining/gasReservationDenom
}

// starved reports whether a hook that was promised budget provably did not
// receive it. remaining is the caller frame's gas left after the invocation
// returned: had the full budget been forwardable, the withheld reservation
// alone guarantees remaining >= budget/(gasReservationDenom-1). The product
// is taken in big space so large remainders cannot overflow int64.
func starved(budget int64, remaining int64) bool {
	if remaining < 0 {
		remaining = 0
	}
	limit := big.Mul(big.NewInt(gasReservationDenom-1), big.NewInt(remaining))
	return big.NewInt(budget).GreaterThan(limit)
}
