package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrPriceNotFound no price for the asset
var ErrPriceNotFound = errors.New("oracle: price not found")

// PriceDecimals precision of every price
const PriceDecimals = 8

// Static settable prices, it also acts as the oracle sentinel
type Static struct {
	mux    sync.RWMutex
	prices map[common.Address]*uint256.Int

	liquidationDisabled bool
	borrowDisabled      bool
}

var (
	_ core.Oracle         = (*Static)(nil)
	_ core.OracleSentinel = (*Static)(nil)
)

// NewStatic new static oracle
func NewStatic() *Static {
	return &Static{
		prices: make(map[common.Address]*uint256.Int),
	}
}

// NewStaticFromConfig static oracle filled with the configured prices
func NewStaticFromConfig(cfg core.OracleConfig, sentinel core.SentinelConfig) (*Static, error) {
	s := NewStatic()
	for asset, price := range cfg.Prices {
		v, err := number.FromDecimal(price, PriceDecimals)
		if err != nil {
			return nil, fmt.Errorf("price of %s: %w", asset, err)
		}

		s.SetPrice(common.HexToAddress(asset), v)
	}

	s.SetLiquidationAllowed(!sentinel.LiquidationDisabled)
	s.SetBorrowAllowed(!sentinel.BorrowDisabled)
	return s, nil
}

// SetPrice sets the price of asset
func (s *Static) SetPrice(asset common.Address, price *uint256.Int) {
	s.mux.Lock()
	s.prices[asset] = number.Copy(price)
	s.mux.Unlock()
}

// GetAssetPrice implements core.Oracle
func (s *Static) GetAssetPrice(_ context.Context, asset common.Address) (*uint256.Int, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	price, ok := s.prices[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPriceNotFound, asset.Hex())
	}

	return number.Copy(price), nil
}

// SetLiquidationAllowed toggles the sentinel liquidation gate
func (s *Static) SetLiquidationAllowed(allowed bool) {
	s.mux.Lock()
	s.liquidationDisabled = !allowed
	s.mux.Unlock()
}

// SetBorrowAllowed toggles the sentinel borrow gate
func (s *Static) SetBorrowAllowed(allowed bool) {
	s.mux.Lock()
	s.borrowDisabled = !allowed
	s.mux.Unlock()
}

// IsLiquidationAllowed implements core.OracleSentinel
func (s *Static) IsLiquidationAllowed(_ context.Context) bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return !s.liquidationDisabled
}

// IsBorrowAllowed implements core.OracleSentinel
func (s *Static) IsBorrowAllowed(_ context.Context) bool {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return !s.borrowDisabled
}
