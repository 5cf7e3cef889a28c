package lending

import (
	"context"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// supplyRepayVars amounts a supply or repay moves against the pool
type supplyRepayVars struct {
	toRepay  *uint256.Int
	toSupply *uint256.Int
	// part of the user's own balance that was on the pool
	userPool *uint256.Int
	idle     *uint256.Int
}

// borrowWithdrawVars amounts a borrow or withdraw moves against the pool
type borrowWithdrawVars struct {
	toWithdraw *uint256.Int
	toBorrow   *uint256.Int
	userPool   *uint256.Int
	idle       *uint256.Int
}

// accountSupply matches amount against the borrow delta and pool borrowers,
// the rest is supplied to the pool
func (e *Engine) accountSupply(ms *marketState, amount *uint256.Int, onBehalf common.Address, maxIterations int, indexes core.Indexes) supplyRepayVars {
	underlying := ms.market.Underlying
	e.touchMarket(underlying)
	m := ms.market

	p := e.position(underlying, onBehalf)
	onPool, inP2P := number.Copy(p.SupplyPool), number.Copy(p.SupplyP2P)

	toRepay := number.Zero()
	if !m.IsP2PDisabled {
		amount, toRepay = e.decreaseDelta(m, amount, indexes.Borrow.PoolIndex, true)

		var promoted *uint256.Int
		amount, promoted, _ = e.promoteRoutine(ms, amount, maxIterations, indexes, true)
		toRepay = number.Add(toRepay, promoted)

		inP2P = number.Add(inP2P, e.increaseP2P(m, promoted, toRepay, indexes, false))
	}

	toSupply, onPool := addToPool(amount, onPool, indexes.Supply.PoolIndex)
	e.updateSupplier(ms, onBehalf, onPool, inP2P)
	e.emitPosition(underlying, onBehalf, onPool, inP2P, false)

	return supplyRepayVars{
		toRepay:  toRepay,
		toSupply: toSupply,
		userPool: number.Copy(toSupply),
		idle:     number.Zero(),
	}
}

// accountBorrow sources amount from idle supply, the supply delta and pool
// suppliers, the rest is borrowed from the pool
func (e *Engine) accountBorrow(ms *marketState, amount *uint256.Int, borrower common.Address, maxIterations int, indexes core.Indexes) borrowWithdrawVars {
	underlying := ms.market.Underlying
	e.touchMarket(underlying)
	m := ms.market

	p := e.position(underlying, borrower)
	onPool, inP2P := number.Copy(p.BorrowPool), number.Copy(p.BorrowP2P)

	toWithdraw, matchedIdle := number.Zero(), number.Zero()
	if !m.IsP2PDisabled {
		amount, matchedIdle = e.decreaseIdle(m, amount)
		amount, toWithdraw = e.decreaseDelta(m, amount, indexes.Supply.PoolIndex, false)

		var promoted *uint256.Int
		amount, promoted, _ = e.promoteRoutine(ms, amount, maxIterations, indexes, false)
		toWithdraw = number.Add(toWithdraw, promoted)

		inP2P = number.Add(inP2P, e.increaseP2P(m, promoted, number.Add(toWithdraw, matchedIdle), indexes, true))
	}

	toBorrow, onPool := addToPool(amount, onPool, indexes.Borrow.PoolIndex)
	e.updateBorrower(ms, borrower, onPool, inP2P)
	e.emitPosition(underlying, borrower, onPool, inP2P, true)

	return borrowWithdrawVars{
		toWithdraw: toWithdraw,
		toBorrow:   toBorrow,
		userPool:   number.Copy(toBorrow),
		idle:       matchedIdle,
	}
}

// accountRepay repays the pool part of the debt first. The peer-to-peer part
// is covered by the borrow delta, the fee, pool borrowers and finally by
// demoting suppliers, parking in idle supply what the pool can not take.
func (e *Engine) accountRepay(ctx context.Context, ms *marketState, amount *uint256.Int, onBehalf common.Address, maxIterations int, indexes core.Indexes) (supplyRepayVars, error) {
	underlying := ms.market.Underlying
	e.touchMarket(underlying)
	m := ms.market

	p := e.position(underlying, onBehalf)
	toRepay, amount, onPool := subFromPool(amount, p.BorrowPool, indexes.Borrow.PoolIndex)
	inP2P := number.ZeroFloorSub(p.BorrowP2P, number.RayDivUp(amount, indexes.Borrow.P2PIndex))
	e.updateBorrower(ms, onBehalf, onPool, inP2P)
	e.emitPosition(underlying, onBehalf, onPool, inP2P, true)

	vars := supplyRepayVars{
		toRepay:  toRepay,
		toSupply: number.Zero(),
		userPool: number.Copy(toRepay),
		idle:     number.Zero(),
	}
	if amount.IsZero() {
		return vars, nil
	}

	amount, matchedDelta := e.decreaseDelta(m, amount, indexes.Borrow.PoolIndex, true)
	vars.toRepay = number.Add(vars.toRepay, matchedDelta)

	amount = e.repayFee(m, amount, indexes)

	amount, promoted, iterations := e.promoteRoutine(ms, amount, maxIterations, indexes, true)
	vars.toRepay = number.Add(vars.toRepay, promoted)

	toSupply, idleIncrease, err := e.increaseIdle(ctx, m, amount)
	if err != nil {
		return vars, err
	}

	demoted := e.demoteRoutine(ms, toSupply, iterations, indexes, false)
	e.increaseDelta(m, number.Sub(toSupply, demoted), indexes.Supply.PoolIndex, false)
	e.decreaseP2P(m, demoted, number.Add(number.Add(toSupply, idleIncrease), matchedDelta), indexes, true)

	vars.toSupply = toSupply
	vars.idle = idleIncrease
	return vars, nil
}

// accountWithdraw withdraws the pool part of the supply first. The
// peer-to-peer part is covered by idle supply, the supply delta, pool
// suppliers and finally by demoting borrowers, borrowing from the pool what
// is left.
func (e *Engine) accountWithdraw(ms *marketState, amount *uint256.Int, supplier common.Address, maxIterations int, indexes core.Indexes) borrowWithdrawVars {
	underlying := ms.market.Underlying
	e.touchMarket(underlying)
	m := ms.market

	p := e.position(underlying, supplier)
	toWithdraw, amount, onPool := subFromPool(amount, p.SupplyPool, indexes.Supply.PoolIndex)
	inP2P := number.ZeroFloorSub(p.SupplyP2P, number.RayDivUp(amount, indexes.Supply.P2PIndex))
	e.updateSupplier(ms, supplier, onPool, inP2P)
	e.emitPosition(underlying, supplier, onPool, inP2P, false)

	vars := borrowWithdrawVars{
		toWithdraw: toWithdraw,
		toBorrow:   number.Zero(),
		userPool:   number.Copy(toWithdraw),
		idle:       number.Zero(),
	}
	if amount.IsZero() {
		return vars
	}

	amount, matchedIdle := e.decreaseIdle(m, amount)
	amount, matchedDelta := e.decreaseDelta(m, amount, indexes.Supply.PoolIndex, false)
	vars.toWithdraw = number.Add(vars.toWithdraw, matchedDelta)
	p2pDecrease := number.Add(matchedDelta, matchedIdle)

	toBorrow, promoted, iterations := e.promoteRoutine(ms, amount, maxIterations, indexes, false)
	vars.toWithdraw = number.Add(vars.toWithdraw, promoted)

	demoted := e.demoteRoutine(ms, toBorrow, iterations, indexes, true)
	e.increaseDelta(m, number.Sub(toBorrow, demoted), indexes.Borrow.PoolIndex, true)
	e.decreaseP2P(m, demoted, number.Add(toBorrow, p2pDecrease), indexes, false)

	vars.toBorrow = toBorrow
	vars.idle = matchedIdle
	return vars
}
