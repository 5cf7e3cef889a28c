package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
)

// Position scaled balances of one user in one market.
//
// Supply and borrow balances are split between the peer-to-peer domain (in
// peer-to-peer units) and the pool (in pool units). Collateral always rests
// on the pool and is in pool supply units.
type Position struct {
	Underlying common.Address `json:"underlying"`
	User       common.Address `json:"user"`
	SupplyP2P  *uint256.Int   `json:"supply_p2p"`
	SupplyPool *uint256.Int   `json:"supply_pool"`
	BorrowP2P  *uint256.Int   `json:"borrow_p2p"`
	BorrowPool *uint256.Int   `json:"borrow_pool"`
	Collateral *uint256.Int   `json:"collateral"`
}

// NewPosition empty position
func NewPosition(underlying, user common.Address) *Position {
	return &Position{
		Underlying: underlying,
		User:       user,
		SupplyP2P:  new(uint256.Int),
		SupplyPool: new(uint256.Int),
		BorrowP2P:  new(uint256.Int),
		BorrowPool: new(uint256.Int),
		Collateral: new(uint256.Int),
	}
}

// Clone deep copy
func (p *Position) Clone() *Position {
	return &Position{
		Underlying: p.Underlying,
		User:       p.User,
		SupplyP2P:  clone(p.SupplyP2P),
		SupplyPool: clone(p.SupplyPool),
		BorrowP2P:  clone(p.BorrowP2P),
		BorrowPool: clone(p.BorrowPool),
		Collateral: clone(p.Collateral),
	}
}

// IsEmpty reports whether every balance is zero
func (p *Position) IsEmpty() bool {
	return p.SupplyP2P.IsZero() && p.SupplyPool.IsZero() &&
		p.BorrowP2P.IsZero() && p.BorrowPool.IsZero() &&
		p.Collateral.IsZero()
}

// PositionStore position snapshot store
type PositionStore interface {
	Save(ctx context.Context, tx *db.DB, position *Position) error
	Find(ctx context.Context, underlying, user common.Address) (*Position, error)
	FindByUser(ctx context.Context, user common.Address) ([]*Position, error)
	All(ctx context.Context) ([]*Position, error)
}
