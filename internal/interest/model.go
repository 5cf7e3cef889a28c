package interest

import (
	"github.com/holiman/uint256"
)

// Model computes the peer-to-peer indexes of a market from the pool indexes
type Model interface {
	GrowthFactors(p GrowthParams) GrowthFactors
	P2PIndex(p P2PIndexParams) *uint256.Int
}

// DefaultModel cursor weighted spread sharing with proportional growth of
// the delta and idle shares
type DefaultModel struct{}

// GrowthFactors implements Model
func (DefaultModel) GrowthFactors(p GrowthParams) GrowthFactors {
	return ComputeGrowthFactors(p)
}

// P2PIndex implements Model
func (DefaultModel) P2PIndex(p P2PIndexParams) *uint256.Int {
	return ComputeP2PIndex(p)
}
