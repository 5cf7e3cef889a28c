package lending

import (
	"context"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func (e *Engine) emitDelta(m *core.Market, borrowSide bool) {
	delta := m.Deltas.Supply.ScaledDelta
	kind := core.EventP2PSupplyDeltaUpdated
	if borrowSide {
		delta = m.Deltas.Borrow.ScaledDelta
		kind = core.EventP2PBorrowDeltaUpdated
	}

	e.emit(&core.Event{
		Kind:       kind,
		Underlying: m.Underlying,
		Amount:     number.Copy(delta),
		Borrow:     borrowSide,
	})
}

func (e *Engine) emitTotals(m *core.Market) {
	deltas := m.Deltas.Clone()
	e.emit(&core.Event{
		Kind:       core.EventP2PTotalsUpdated,
		Underlying: m.Underlying,
		Deltas:     &deltas,
	})
}

func side(m *core.Market, borrowSide bool) *core.MarketSideDelta {
	if borrowSide {
		return &m.Deltas.Borrow
	}

	return &m.Deltas.Supply
}

func sideIndexes(indexes core.Indexes, borrowSide bool) core.MarketSideIndexes {
	if borrowSide {
		return indexes.Borrow
	}

	return indexes.Supply
}

// increaseDelta moves amount of the side's peer-to-peer volume onto the pool
func (e *Engine) increaseDelta(m *core.Market, amount *uint256.Int, poolIndex *uint256.Int, borrowSide bool) {
	if amount.IsZero() {
		return
	}

	d := side(m, borrowSide)
	d.ScaledDelta = number.Add(d.ScaledDelta, number.RayDiv(amount, poolIndex))
	e.emitDelta(m, borrowSide)
}

// decreaseDelta matches up to amount against the side's delta and returns
// the amount left and the amount matched
func (e *Engine) decreaseDelta(m *core.Market, amount *uint256.Int, poolIndex *uint256.Int, borrowSide bool) (*uint256.Int, *uint256.Int) {
	d := side(m, borrowSide)
	if d.ScaledDelta.IsZero() || amount.IsZero() {
		return number.Copy(amount), number.Zero()
	}

	// rounded up so that the delta can be fully consumed
	decreased := number.Min(number.RayMulUp(d.ScaledDelta, poolIndex), amount)
	d.ScaledDelta = number.ZeroFloorSub(d.ScaledDelta, number.RayDivDown(decreased, poolIndex))
	e.emitDelta(m, borrowSide)

	return number.Sub(amount, decreased), decreased
}

// increaseP2P adds amount to the user side and promoted to the counterparty
// side. It returns the amount added in peer-to-peer units of the user side.
func (e *Engine) increaseP2P(m *core.Market, promoted, amount *uint256.Int, indexes core.Indexes, borrowSide bool) *uint256.Int {
	if amount.IsZero() {
		return number.Zero()
	}

	user, counter := side(m, borrowSide), side(m, !borrowSide)
	userIndexes, counterIndexes := sideIndexes(indexes, borrowSide), sideIndexes(indexes, !borrowSide)

	amountInP2P := number.RayDiv(amount, userIndexes.P2PIndex)
	counter.ScaledP2PTotal = number.Add(counter.ScaledP2PTotal, number.RayDiv(promoted, counterIndexes.P2PIndex))
	user.ScaledP2PTotal = number.Add(user.ScaledP2PTotal, amountInP2P)
	e.emitTotals(m)

	return amountInP2P
}

// decreaseP2P removes amount from the user side and demoted from the
// counterparty side
func (e *Engine) decreaseP2P(m *core.Market, demoted, amount *uint256.Int, indexes core.Indexes, borrowSide bool) {
	if amount.IsZero() {
		return
	}

	user, counter := side(m, borrowSide), side(m, !borrowSide)
	userIndexes, counterIndexes := sideIndexes(indexes, borrowSide), sideIndexes(indexes, !borrowSide)

	counter.ScaledP2PTotal = number.ZeroFloorSub(counter.ScaledP2PTotal, number.RayDiv(demoted, counterIndexes.P2PIndex))
	user.ScaledP2PTotal = number.ZeroFloorSub(user.ScaledP2PTotal, number.RayDiv(amount, userIndexes.P2PIndex))
	e.emitTotals(m)
}

// repayFee consumes the part of the peer-to-peer borrow that has no supply
// counterpart, the protocol fee, and returns what is left of amount
func (e *Engine) repayFee(m *core.Market, amount *uint256.Int, indexes core.Indexes) *uint256.Int {
	if amount.IsZero() {
		return number.Zero()
	}

	fee := number.ZeroFloorSub(
		number.RayMul(m.Deltas.Borrow.ScaledP2PTotal, indexes.Borrow.P2PIndex),
		number.ZeroFloorSub(
			number.RayMul(m.Deltas.Supply.ScaledP2PTotal, indexes.Supply.P2PIndex),
			number.RayMul(m.Deltas.Supply.ScaledDelta, indexes.Supply.PoolIndex),
		),
	)
	if fee.IsZero() {
		return number.Copy(amount)
	}

	fee = number.Min(fee, amount)
	m.Deltas.Borrow.ScaledP2PTotal = number.ZeroFloorSub(m.Deltas.Borrow.ScaledP2PTotal, number.RayDivDown(fee, indexes.Borrow.P2PIndex))
	m.Reserves = number.Add(m.Reserves, fee)
	e.emitTotals(m)
	e.emit(&core.Event{
		Kind:       core.EventReservesIncreased,
		Underlying: m.Underlying,
		Amount:     number.Copy(fee),
	})

	return number.Sub(amount, fee)
}

// increaseIdle parks what the pool supply cap can not take and returns the
// amount to supply and the idle increase
func (e *Engine) increaseIdle(ctx context.Context, m *core.Market, amount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if amount.IsZero() {
		return number.Zero(), number.Zero(), nil
	}

	reserve, err := e.pool.GetConfiguration(ctx, m.Underlying)
	if err != nil {
		return nil, nil, err
	}

	caps, err := e.pool.GetReserveCaps(ctx, m.Underlying)
	if err != nil {
		return nil, nil, err
	}

	if caps.SupplyCap == 0 {
		return number.Copy(amount), number.Zero(), nil
	}

	totalSupply, err := e.pool.TotalSupply(ctx, m.Underlying)
	if err != nil {
		return nil, nil, err
	}

	supplyCap := number.Mul(uint256.NewInt(caps.SupplyCap), number.Pow10(reserve.Decimals))
	suppliable := number.ZeroFloorSub(supplyCap, totalSupply)
	if !amount.Gt(suppliable) {
		return number.Copy(amount), number.Zero(), nil
	}

	increase := number.Sub(amount, suppliable)
	m.IdleSupply = number.Add(m.IdleSupply, increase)
	e.emitIdle(m)

	return suppliable, increase, nil
}

// decreaseIdle draws up to amount from the idle supply and returns the
// amount left and the amount matched
func (e *Engine) decreaseIdle(m *core.Market, amount *uint256.Int) (*uint256.Int, *uint256.Int) {
	if amount.IsZero() || m.IdleSupply.IsZero() {
		return number.Copy(amount), number.Zero()
	}

	matched := number.Min(m.IdleSupply, amount)
	m.IdleSupply = number.ZeroFloorSub(m.IdleSupply, matched)
	e.emitIdle(m)

	return number.Sub(amount, matched), matched
}

func (e *Engine) emitIdle(m *core.Market) {
	e.emit(&core.Event{
		Kind:       core.EventIdleSupplyUpdated,
		Underlying: m.Underlying,
		Idle:       number.Copy(m.IdleSupply),
	})
}

// trueP2PBorrow peer-to-peer borrow actually matched, in underlying
func trueP2PBorrow(m *core.Market, indexes core.Indexes) *uint256.Int {
	return number.ZeroFloorSub(
		number.RayMul(m.Deltas.Borrow.ScaledP2PTotal, indexes.Borrow.P2PIndex),
		number.RayMul(m.Deltas.Borrow.ScaledDelta, indexes.Borrow.PoolIndex),
	)
}

// IncreaseP2PDeltas moves amount of matched volume of both sides onto the
// pool by borrowing it from the pool and supplying it back
func (e *Engine) IncreaseP2PDeltas(ctx context.Context, underlying common.Address, amount *uint256.Int) (increased *uint256.Int, err error) {
	err = e.run(ctx, "increase_p2p_deltas", func(ctx context.Context) error {
		if _, ok := e.markets[underlying]; !ok {
			return core.ErrMarketNotCreated
		}

		indexes, err := e.updateIndexes(ctx, underlying)
		if err != nil {
			return err
		}

		e.touchMarket(underlying)
		m := e.markets[underlying].market

		supplyRoom := number.ZeroFloorSub(
			number.ZeroFloorSub(
				number.RayMul(m.Deltas.Supply.ScaledP2PTotal, indexes.Supply.P2PIndex),
				number.RayMul(m.Deltas.Supply.ScaledDelta, indexes.Supply.PoolIndex),
			),
			m.IdleSupply,
		)
		borrowRoom := trueP2PBorrow(m, indexes)

		toMove := number.Min(number.Copy(amount), number.Min(supplyRoom, borrowRoom))
		if toMove.IsZero() {
			return core.ErrAmountIsZero
		}

		m.Deltas.Supply.ScaledDelta = number.Add(m.Deltas.Supply.ScaledDelta, number.RayDiv(toMove, indexes.Supply.PoolIndex))
		m.Deltas.Borrow.ScaledDelta = number.Add(m.Deltas.Borrow.ScaledDelta, number.RayDiv(toMove, indexes.Borrow.PoolIndex))
		e.emitDelta(m, false)
		e.emitDelta(m, true)

		if err := e.poolBorrow(ctx, underlying, toMove); err != nil {
			return err
		}

		if err := e.poolSupply(ctx, underlying, toMove); err != nil {
			return err
		}

		e.emit(&core.Event{
			Kind:       core.EventP2PDeltasIncreased,
			Underlying: underlying,
			Amount:     number.Copy(toMove),
		})

		increased = toMove
		return nil
	})

	return
}
