package lending

import (
	"p2plend/core"
	"p2plend/pkg/number"
	"p2plend/pkg/sorted"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type matchDirection int

const (
	promote matchDirection = iota
	demote
)

// promoteOrDemote walks the largest counterparties of one side and moves up
// to amount between their pool and peer-to-peer balances. It returns the
// amount processed and the iterations spent.
func (e *Engine) promoteOrDemote(
	ms *marketState,
	amount *uint256.Int,
	maxIterations int,
	indexes core.MarketSideIndexes,
	borrowSide bool,
	direction matchDirection,
) (*uint256.Int, int) {
	if amount.IsZero() || maxIterations <= 0 {
		return number.Zero(), 0
	}

	var heads *sorted.Set
	switch {
	case borrowSide && direction == promote:
		heads = ms.borrowersPool
	case borrowSide:
		heads = ms.borrowersP2P
	case direction == promote:
		heads = ms.suppliersPool
	default:
		heads = ms.suppliersP2P
	}

	remaining := number.Copy(amount)
	iterations := 0
	for ; iterations < maxIterations && !remaining.IsZero(); iterations++ {
		user, _, ok := heads.Head()
		if !ok {
			break
		}

		p := e.position(ms.market.Underlying, user)
		onPool, inP2P := p.SupplyPool, p.SupplyP2P
		if borrowSide {
			onPool, inP2P = p.BorrowPool, p.BorrowP2P
		}

		var toProcess *uint256.Int
		if direction == promote {
			toProcess = number.Min(number.RayMul(onPool, indexes.PoolIndex), remaining)
			onPool = number.ZeroFloorSub(onPool, number.RayDiv(toProcess, indexes.PoolIndex))
			inP2P = number.Add(inP2P, number.RayDiv(toProcess, indexes.P2PIndex))
		} else {
			toProcess = number.Min(number.RayMul(inP2P, indexes.P2PIndex), remaining)
			onPool = number.Add(onPool, number.RayDiv(toProcess, indexes.PoolIndex))
			inP2P = number.ZeroFloorSub(inP2P, number.RayDiv(toProcess, indexes.P2PIndex))
		}

		remaining = number.Sub(remaining, toProcess)
		e.updateSide(ms, user, onPool, inP2P, borrowSide)
		e.emitPosition(ms.market.Underlying, user, onPool, inP2P, borrowSide)
	}

	return number.Sub(amount, remaining), iterations
}

func (e *Engine) updateSide(ms *marketState, user common.Address, onPool, inP2P *uint256.Int, borrowSide bool) {
	if borrowSide {
		e.updateBorrower(ms, user, onPool, inP2P)
		return
	}

	e.updateSupplier(ms, user, onPool, inP2P)
}

func (e *Engine) emitPosition(underlying, user common.Address, onPool, inP2P *uint256.Int, borrowSide bool) {
	e.emit(&core.Event{
		Kind:         core.EventPositionUpdated,
		Underlying:   underlying,
		OnBehalf:     user,
		ScaledOnPool: number.Copy(onPool),
		ScaledInP2P:  number.Copy(inP2P),
		Borrow:       borrowSide,
	})
}

// promoteRoutine matches amount against pool counterparties of the given
// side. It returns the amount left, the amount promoted and the iterations
// left. Nothing is promoted on markets with peer-to-peer disabled.
func (e *Engine) promoteRoutine(ms *marketState, amount *uint256.Int, maxIterations int, indexes core.Indexes, borrowSide bool) (*uint256.Int, *uint256.Int, int) {
	if amount.IsZero() || ms.market.IsP2PDisabled {
		return number.Copy(amount), number.Zero(), maxIterations
	}

	promoted, spent := e.promoteOrDemote(ms, amount, maxIterations, sideIndexes(indexes, borrowSide), borrowSide, promote)
	return number.Sub(amount, promoted), promoted, maxIterations - spent
}

// demoteRoutine moves up to amount of the given side's peer-to-peer
// counterparties back to the pool and returns the amount demoted
func (e *Engine) demoteRoutine(ms *marketState, amount *uint256.Int, maxIterations int, indexes core.Indexes, borrowSide bool) *uint256.Int {
	demoted, _ := e.promoteOrDemote(ms, amount, maxIterations, sideIndexes(indexes, borrowSide), borrowSide, demote)
	return demoted
}
