// Package interest holds the interest maths of the overlay: growth of the
// peer-to-peer indexes from the pool indexes, and the jump rate model used by
// the simulated pool.
package interest

import (
	"p2plend/pkg/number"

	"github.com/holiman/uint256"
)

// GrowthFactors index growth since the last update, in ray
type GrowthFactors struct {
	PoolSupply *uint256.Int
	P2PSupply  *uint256.Int
	PoolBorrow *uint256.Int
	P2PBorrow  *uint256.Int
}

// GrowthParams inputs of ComputeGrowthFactors
type GrowthParams struct {
	NewPoolSupplyIndex  *uint256.Int
	NewPoolBorrowIndex  *uint256.Int
	LastPoolSupplyIndex *uint256.Int
	LastPoolBorrowIndex *uint256.Int
	// P2PIndexCursor and ReserveFactor are bps
	P2PIndexCursor uint16
	ReserveFactor  uint16
}

// ComputeGrowthFactors computes the pool growth of both sides and the
// peer-to-peer growth derived from them.
//
// The peer-to-peer rate sits between the pool supply and borrow rates at the
// cursor, then the reserve factor moves each side back towards its pool rate.
// When the pool supply growth exceeds the pool borrow growth the spread is
// negative and both peer-to-peer sides grow like the pool borrow side.
func ComputeGrowthFactors(p GrowthParams) GrowthFactors {
	poolSupply := number.RayDiv(p.NewPoolSupplyIndex, p.LastPoolSupplyIndex)
	poolBorrow := number.RayDiv(p.NewPoolBorrowIndex, p.LastPoolBorrowIndex)

	g := GrowthFactors{
		PoolSupply: poolSupply,
		PoolBorrow: poolBorrow,
	}

	if poolSupply.Cmp(poolBorrow) > 0 {
		g.P2PSupply = number.Copy(poolBorrow)
		g.P2PBorrow = number.Copy(poolBorrow)
		return g
	}

	p2p := number.WeightedAvg(poolSupply, poolBorrow, uint64(p.P2PIndexCursor))
	rf := uint64(p.ReserveFactor)

	g.P2PSupply = number.Sub(p2p, number.PercentMul(number.Sub(p2p, poolSupply), rf))
	g.P2PBorrow = number.Add(p2p, number.PercentMul(number.Sub(poolBorrow, p2p), rf))
	return g
}

// P2PIndexParams inputs of ComputeP2PIndex for one side
type P2PIndexParams struct {
	P2PGrowthFactor  *uint256.Int
	PoolGrowthFactor *uint256.Int
	LastPoolIndex    *uint256.Int
	LastP2PIndex     *uint256.Int
	// P2PDelta scaled delta of the side, pool units
	P2PDelta *uint256.Int
	// P2PAmount scaled peer-to-peer total of the side, peer-to-peer units
	P2PAmount *uint256.Int
	// ProportionIdle share of the peer-to-peer volume left idle, ray.
	// Always zero on the borrow side.
	ProportionIdle *uint256.Int
}

// ComputeP2PIndex grows a peer-to-peer index.
//
// The peer-to-peer volume splits in three parts: the delta share rests on the
// pool and grows like the pool, the idle share does not grow at all, the rest
// is matched and grows like the peer-to-peer rate.
func ComputeP2PIndex(p P2PIndexParams) *uint256.Int {
	idle := number.Copy(p.ProportionIdle)

	if number.IsZero(p.P2PAmount) || (number.IsZero(p.P2PDelta) && idle.IsZero()) {
		return number.RayMul(p.LastP2PIndex, p.P2PGrowthFactor)
	}

	proportionDelta := number.Min(
		number.RayDivUp(
			number.RayMul(p.P2PDelta, p.LastPoolIndex),
			number.RayMul(p.P2PAmount, p.LastP2PIndex),
		),
		number.ZeroFloorSub(number.Ray, idle),
	)

	matched := number.Sub(number.Sub(number.Ray, proportionDelta), idle)
	growth := number.Add(
		number.Add(
			number.RayMul(matched, p.P2PGrowthFactor),
			number.RayMul(proportionDelta, p.PoolGrowthFactor),
		),
		idle,
	)

	return number.RayMul(p.LastP2PIndex, growth)
}

// ProportionIdle share of the peer-to-peer supply left idle, in ray
func ProportionIdle(idleSupply, scaledP2PSupply, p2pSupplyIndex *uint256.Int) *uint256.Int {
	if number.IsZero(idleSupply) {
		return number.Zero()
	}

	total := number.RayMul(scaledP2PSupply, p2pSupplyIndex)
	if total.IsZero() {
		return number.Copy(number.Ray)
	}

	return number.Min(number.RayDivUp(idleSupply, total), number.Ray)
}
