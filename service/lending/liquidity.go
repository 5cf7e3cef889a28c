package lending

import (
	"context"
	"fmt"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// assetData price, unit and current indexes of a market
type assetData struct {
	price   *uint256.Int
	unit    *uint256.Int
	reserve core.Reserve
	indexes core.Indexes
}

func (e *Engine) assetData(ctx context.Context, underlying common.Address) (assetData, error) {
	ms, ok := e.marketState(underlying)
	if !ok {
		return assetData{}, core.ErrMarketNotCreated
	}

	price, err := e.oracle.GetAssetPrice(ctx, underlying)
	if err != nil {
		return assetData{}, fmt.Errorf("price of %s: %w", underlying.Hex(), err)
	}

	reserve, err := e.pool.GetConfiguration(ctx, underlying)
	if err != nil {
		return assetData{}, err
	}

	indexes, err := e.computeIndexes(ctx, ms.market)
	if err != nil {
		return assetData{}, err
	}

	return assetData{
		price:   price,
		unit:    number.Pow10(reserve.Decimals),
		reserve: reserve,
		indexes: indexes,
	}, nil
}

// liquidityData values the collaterals and debts of user with fresh indexes
func (e *Engine) liquidityData(ctx context.Context, user common.Address) (core.LiquidityData, error) {
	data := core.LiquidityData{
		Collateral: number.Zero(),
		Borrowable: number.Zero(),
		MaxDebt:    number.Zero(),
		Debt:       number.Zero(),
	}

	for _, underlying := range members(e.collaterals, user) {
		asset, err := e.assetData(ctx, underlying)
		if err != nil {
			return data, err
		}

		balance := collateralBalance(e.position(underlying, user), asset.indexes)
		value := number.MulDiv(balance, asset.price, asset.unit)

		ltv := uint64(asset.reserve.LTV)
		if !e.markets[underlying].market.IsCollateral {
			ltv = 0
		}

		data.Collateral = number.Add(data.Collateral, value)
		data.Borrowable = number.Add(data.Borrowable, number.PercentMulDown(value, ltv))
		data.MaxDebt = number.Add(data.MaxDebt, number.PercentMulDown(value, uint64(asset.reserve.LiquidationThreshold)))
	}

	for _, underlying := range members(e.borrows, user) {
		asset, err := e.assetData(ctx, underlying)
		if err != nil {
			return data, err
		}

		balance := borrowBalance(e.position(underlying, user), asset.indexes)
		data.Debt = number.Add(data.Debt, number.MulDivUp(balance, asset.price, asset.unit))
	}

	return data, nil
}

// healthFactor max debt over debt in wad, max uint256 without debt
func healthFactor(data core.LiquidityData) *uint256.Int {
	if data.Debt.IsZero() {
		return new(uint256.Int).SetAllOne()
	}

	return number.WadDiv(data.MaxDebt, data.Debt)
}

// LiquidityData collateral, borrowing power, max debt and debt of user
func (e *Engine) LiquidityData(ctx context.Context, user common.Address) (core.LiquidityData, error) {
	if err := e.acquire(ctx); err != nil {
		return core.LiquidityData{}, err
	}
	defer e.mux.Unlock()

	return e.liquidityData(ctx, user)
}

// HealthFactor health factor of user in wad
func (e *Engine) HealthFactor(ctx context.Context, user common.Address) (*uint256.Int, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.mux.Unlock()

	data, err := e.liquidityData(ctx, user)
	if err != nil {
		return nil, err
	}

	return healthFactor(data), nil
}
