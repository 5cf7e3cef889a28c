package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Oracle price oracle, every price is quoted in the same base currency
// with the same precision
type Oracle interface {
	GetAssetPrice(ctx context.Context, asset common.Address) (*uint256.Int, error)
}

// OracleSentinel gate used when prices are unreliable
type OracleSentinel interface {
	IsLiquidationAllowed(ctx context.Context) bool
	IsBorrowAllowed(ctx context.Context) bool
}
