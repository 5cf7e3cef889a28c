package lending

import (
	"bytes"
	"sort"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// position returns the position of user, a detached empty one when absent
func (e *Engine) position(underlying, user common.Address) *core.Position {
	if p, ok := e.positions[underlying][user]; ok {
		return p
	}

	return core.NewPosition(underlying, user)
}

// mutablePosition returns the stored position of user, creating it if
// needed, after recording it in the journal
func (e *Engine) mutablePosition(underlying, user common.Address) *core.Position {
	e.touchPosition(underlying, user)

	byUser, ok := e.positions[underlying]
	if !ok {
		byUser = make(map[common.Address]*core.Position)
		e.positions[underlying] = byUser
	}

	p, ok := byUser[user]
	if !ok {
		p = core.NewPosition(underlying, user)
		byUser[user] = p
	}

	return p
}

func (e *Engine) updateSupplier(ms *marketState, user common.Address, onPool, inP2P *uint256.Int) {
	underlying := ms.market.Underlying
	e.touchMarket(underlying)
	ms = e.markets[underlying]

	p := e.mutablePosition(underlying, user)
	p.SupplyPool, p.SupplyP2P = number.Copy(onPool), number.Copy(inP2P)
	ms.suppliersPool.Update(user, onPool)
	ms.suppliersP2P.Update(user, inP2P)
}

func (e *Engine) updateBorrower(ms *marketState, user common.Address, onPool, inP2P *uint256.Int) {
	underlying := ms.market.Underlying
	e.touchMarket(underlying)
	ms = e.markets[underlying]

	p := e.mutablePosition(underlying, user)
	p.BorrowPool, p.BorrowP2P = number.Copy(onPool), number.Copy(inP2P)
	ms.borrowersPool.Update(user, onPool)
	ms.borrowersP2P.Update(user, inP2P)
}

func (e *Engine) updateCollateral(underlying, user common.Address, collateral *uint256.Int) {
	p := e.mutablePosition(underlying, user)
	p.Collateral = number.Copy(collateral)

	if collateral.IsZero() {
		e.removeMembership(e.collaterals, user, underlying)
	} else {
		e.addMembership(e.collaterals, user, underlying)
	}
}

func (e *Engine) updateBorrowMembership(underlying, user common.Address) {
	p := e.position(underlying, user)
	if p.BorrowPool.IsZero() && p.BorrowP2P.IsZero() {
		e.removeMembership(e.borrows, user, underlying)
		return
	}

	e.addMembership(e.borrows, user, underlying)
}

func (e *Engine) addMembership(all map[common.Address]membership, user, underlying common.Address) {
	if _, ok := all[user][underlying]; ok {
		return
	}

	e.touchMembership(user)
	m, ok := all[user]
	if !ok {
		m = make(membership)
		all[user] = m
	}

	m[underlying] = struct{}{}
}

func (e *Engine) removeMembership(all map[common.Address]membership, user, underlying common.Address) {
	if _, ok := all[user][underlying]; !ok {
		return
	}

	e.touchMembership(user)
	delete(all[user], underlying)
	if len(all[user]) == 0 {
		delete(all, user)
	}
}

// members lists the markets of user ordered by address
func members(all map[common.Address]membership, user common.Address) []common.Address {
	list := make([]common.Address, 0, len(all[user]))
	for underlying := range all[user] {
		list = append(list, underlying)
	}

	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i][:], list[j][:]) < 0
	})

	return list
}

func supplyBalance(p *core.Position, indexes core.Indexes) *uint256.Int {
	return number.Add(
		number.RayMulDown(p.SupplyPool, indexes.Supply.PoolIndex),
		number.RayMulDown(p.SupplyP2P, indexes.Supply.P2PIndex),
	)
}

func borrowBalance(p *core.Position, indexes core.Indexes) *uint256.Int {
	return number.Add(
		number.RayMulUp(p.BorrowPool, indexes.Borrow.PoolIndex),
		number.RayMulUp(p.BorrowP2P, indexes.Borrow.P2PIndex),
	)
}

func collateralBalance(p *core.Position, indexes core.Indexes) *uint256.Int {
	return number.RayMulDown(p.Collateral, indexes.Supply.PoolIndex)
}

// addToPool adds amount to a pool balance and returns the amount to move
// against the pool and the new balance
func addToPool(amount, onPool, poolIndex *uint256.Int) (*uint256.Int, *uint256.Int) {
	if amount.IsZero() {
		return number.Zero(), number.Copy(onPool)
	}

	return number.Copy(amount), number.Add(onPool, number.RayDivDown(amount, poolIndex))
}

// subFromPool takes up to amount from a pool balance and returns the amount
// taken, the amount left and the new balance
func subFromPool(amount, onPool, poolIndex *uint256.Int) (*uint256.Int, *uint256.Int, *uint256.Int) {
	if onPool.IsZero() {
		return number.Zero(), number.Copy(amount), number.Zero()
	}

	toProcess := number.Min(number.RayMul(onPool, poolIndex), amount)
	return toProcess, number.Sub(amount, toProcess), number.ZeroFloorSub(onPool, number.RayDivUp(toProcess, poolIndex))
}
