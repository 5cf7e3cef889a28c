package views

import (
	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Market market view with fresh indexes
type Market struct {
	*core.Market
	// matched volume of each side net of its delta
	P2PSupply *uint256.Int `json:"p2p_supply"`
	P2PBorrow *uint256.Int `json:"p2p_borrow"`
	// matched volume resting on the pool
	SupplyDelta *uint256.Int `json:"supply_delta"`
	BorrowDelta *uint256.Int `json:"borrow_delta"`
	// annual pool rates, zero when the pool does not report them
	PoolSupplyRate decimal.Decimal `json:"pool_supply_rate"`
	PoolBorrowRate decimal.Decimal `json:"pool_borrow_rate"`
}

// NewMarket market view, indexes are the market's current indexes
func NewMarket(m *core.Market, indexes core.Indexes) *Market {
	m.Indexes = indexes
	supplyDelta := number.RayMul(m.Deltas.Supply.ScaledDelta, indexes.Supply.PoolIndex)
	borrowDelta := number.RayMul(m.Deltas.Borrow.ScaledDelta, indexes.Borrow.PoolIndex)

	return &Market{
		Market:      m,
		P2PSupply:   number.ZeroFloorSub(number.RayMul(m.Deltas.Supply.ScaledP2PTotal, indexes.Supply.P2PIndex), supplyDelta),
		P2PBorrow:   number.ZeroFloorSub(number.RayMul(m.Deltas.Borrow.ScaledP2PTotal, indexes.Borrow.P2PIndex), borrowDelta),
		SupplyDelta: supplyDelta,
		BorrowDelta: borrowDelta,
	}
}
