package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Reserve pool side configuration of an underlying
type Reserve struct {
	// LTV, LiquidationThreshold and LiquidationBonus are bps,
	// a bonus of 10500 pays 5% on top of the repaid value
	LTV                  uint16 `json:"ltv"`
	LiquidationThreshold uint16 `json:"liquidation_threshold"`
	LiquidationBonus     uint16 `json:"liquidation_bonus"`
	Decimals             uint8  `json:"decimals"`
	IsActive             bool   `json:"is_active"`
	IsBorrowingEnabled   bool   `json:"is_borrowing_enabled"`
}

// ReserveCaps caps in whole tokens, zero means uncapped
type ReserveCaps struct {
	SupplyCap uint64 `json:"supply_cap"`
	BorrowCap uint64 `json:"borrow_cap"`
}

// Pool underlying pool based lending protocol.
// All amounts are in underlying units.
type Pool interface {
	Supply(ctx context.Context, asset common.Address, amount *uint256.Int) error
	// Withdraw returns the amount actually withdrawn
	Withdraw(ctx context.Context, asset common.Address, amount *uint256.Int) (*uint256.Int, error)
	Borrow(ctx context.Context, asset common.Address, amount *uint256.Int) error
	Repay(ctx context.Context, asset common.Address, amount *uint256.Int) error
	// GetCurrentIndexes returns the pool supply and borrow indexes, in ray
	GetCurrentIndexes(ctx context.Context, asset common.Address) (supplyIndex, borrowIndex *uint256.Int, err error)
	GetReserveCaps(ctx context.Context, asset common.Address) (ReserveCaps, error)
	GetConfiguration(ctx context.Context, asset common.Address) (Reserve, error)
	// TotalSupply underlying supplied to the pool by everyone
	TotalSupply(ctx context.Context, asset common.Address) (*uint256.Int, error)
	// TotalDebt underlying borrowed from the pool by everyone
	TotalDebt(ctx context.Context, asset common.Address) (*uint256.Int, error)
}
