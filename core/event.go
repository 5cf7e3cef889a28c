package core

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventKind event kind
type EventKind string

const (
	EventMarketCreated         EventKind = "MarketCreated"
	EventIndexesUpdated        EventKind = "IndexesUpdated"
	EventSupplied              EventKind = "Supplied"
	EventCollateralSupplied    EventKind = "CollateralSupplied"
	EventBorrowed              EventKind = "Borrowed"
	EventRepaid                EventKind = "Repaid"
	EventWithdrawn             EventKind = "Withdrawn"
	EventCollateralWithdrawn   EventKind = "CollateralWithdrawn"
	EventLiquidated            EventKind = "Liquidated"
	EventPositionUpdated       EventKind = "PositionUpdated"
	EventP2PSupplyDeltaUpdated EventKind = "P2PSupplyDeltaUpdated"
	EventP2PBorrowDeltaUpdated EventKind = "P2PBorrowDeltaUpdated"
	EventP2PTotalsUpdated      EventKind = "P2PTotalsUpdated"
	EventIdleSupplyUpdated     EventKind = "IdleSupplyUpdated"
	EventReservesIncreased     EventKind = "ReservesIncreased"
	EventP2PDeltasIncreased    EventKind = "P2PDeltasIncreased"
	EventMarketUpdated         EventKind = "MarketUpdated"
	EventManagerApproval       EventKind = "ManagerApproval"
)

// Event engine notification, fields not relevant to the kind are left empty
type Event struct {
	ID         string         `json:"id"`
	Kind       EventKind      `json:"kind"`
	Underlying common.Address `json:"underlying"`
	Caller     common.Address `json:"caller,omitempty"`
	OnBehalf   common.Address `json:"on_behalf,omitempty"`
	Receiver   common.Address `json:"receiver,omitempty"`
	Amount     *uint256.Int   `json:"amount,omitempty"`
	// scaled balances after the action
	ScaledOnPool *uint256.Int `json:"scaled_on_pool,omitempty"`
	ScaledInP2P  *uint256.Int `json:"scaled_in_p2p,omitempty"`
	// liquidation
	CollateralUnderlying common.Address `json:"collateral_underlying,omitempty"`
	Seized               *uint256.Int   `json:"seized,omitempty"`
	// market state
	Indexes *Indexes     `json:"indexes,omitempty"`
	Deltas  *Deltas      `json:"deltas,omitempty"`
	Idle    *uint256.Int `json:"idle,omitempty"`
	// Borrow marks a borrow side position or delta
	Borrow    bool      `json:"borrow,omitempty"`
	Allowed   bool      `json:"allowed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier receives committed events in order
type Notifier interface {
	Notify(ctx context.Context, events []*Event)
}
