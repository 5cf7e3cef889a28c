package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

// MarketSideIndexes pool and peer-to-peer indexes of one side, in ray
type MarketSideIndexes struct {
	PoolIndex *uint256.Int `json:"pool_index"`
	P2PIndex  *uint256.Int `json:"p2p_index"`
}

// Indexes indexes of both sides of a market
type Indexes struct {
	Supply MarketSideIndexes `json:"supply"`
	Borrow MarketSideIndexes `json:"borrow"`
}

// Clone deep copy
func (i Indexes) Clone() Indexes {
	return Indexes{
		Supply: MarketSideIndexes{PoolIndex: clone(i.Supply.PoolIndex), P2PIndex: clone(i.Supply.P2PIndex)},
		Borrow: MarketSideIndexes{PoolIndex: clone(i.Borrow.PoolIndex), P2PIndex: clone(i.Borrow.P2PIndex)},
	}
}

// MarketSideDelta delta and peer-to-peer total of one side.
//
// ScaledDelta is in pool units (times the pool index gives underlying) and is
// the part of the side's peer-to-peer volume that actually rests on the pool.
// ScaledP2PTotal is in peer-to-peer units.
type MarketSideDelta struct {
	ScaledDelta    *uint256.Int `json:"scaled_delta"`
	ScaledP2PTotal *uint256.Int `json:"scaled_p2p_total"`
}

// Deltas deltas of both sides of a market
type Deltas struct {
	Supply MarketSideDelta `json:"supply"`
	Borrow MarketSideDelta `json:"borrow"`
}

// Clone deep copy
func (d Deltas) Clone() Deltas {
	return Deltas{
		Supply: MarketSideDelta{ScaledDelta: clone(d.Supply.ScaledDelta), ScaledP2PTotal: clone(d.Supply.ScaledP2PTotal)},
		Borrow: MarketSideDelta{ScaledDelta: clone(d.Borrow.ScaledDelta), ScaledP2PTotal: clone(d.Borrow.ScaledP2PTotal)},
	}
}

// PauseStatuses independently settable action switches
type PauseStatuses struct {
	IsSupplyPaused              bool `json:"is_supply_paused"`
	IsSupplyCollateralPaused    bool `json:"is_supply_collateral_paused"`
	IsBorrowPaused              bool `json:"is_borrow_paused"`
	IsRepayPaused               bool `json:"is_repay_paused"`
	IsWithdrawPaused            bool `json:"is_withdraw_paused"`
	IsWithdrawCollateralPaused  bool `json:"is_withdraw_collateral_paused"`
	IsLiquidateCollateralPaused bool `json:"is_liquidate_collateral_paused"`
	IsLiquidateBorrowPaused     bool `json:"is_liquidate_borrow_paused"`
	IsP2PDisabled               bool `gorm:"column:is_p2p_disabled" json:"is_p2p_disabled"`
	IsDeprecated                bool `json:"is_deprecated"`
}

// Market one listed underlying asset
type Market struct {
	Underlying common.Address `json:"underlying"`
	Indexes    Indexes        `json:"indexes"`
	Deltas     Deltas         `json:"deltas"`
	// IdleSupply underlying parked off the pool because of the pool supply cap
	IdleSupply          *uint256.Int `json:"idle_supply"`
	// Reserves repay fees kept by the protocol, in underlying
	Reserves            *uint256.Int `json:"reserves"`
	LastUpdateTimestamp uint64       `json:"last_update_timestamp"`
	// ReserveFactor share of the peer-to-peer spread kept by the protocol, bps
	ReserveFactor uint16 `json:"reserve_factor"`
	// P2PIndexCursor position of the peer-to-peer rate between the pool
	// supply rate (0) and the pool borrow rate (10000), bps
	P2PIndexCursor uint16 `json:"p2p_index_cursor"`
	IsCollateral   bool   `json:"is_collateral"`
	PauseStatuses
}

// IsCreated reports whether the market has been created
func (m *Market) IsCreated() bool {
	return m != nil && m.Underlying != (common.Address{})
}

// Clone deep copy
func (m *Market) Clone() *Market {
	c := *m
	c.Indexes = m.Indexes.Clone()
	c.Deltas = m.Deltas.Clone()
	c.IdleSupply = clone(m.IdleSupply)
	c.Reserves = clone(m.Reserves)
	return &c
}

func clone(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}

	return new(uint256.Int).Set(x)
}

// MarketStore market snapshot store
type MarketStore interface {
	Save(ctx context.Context, tx *db.DB, market *Market) error
	Find(ctx context.Context, underlying common.Address) (*Market, error)
	All(ctx context.Context) ([]*Market, error)
}
