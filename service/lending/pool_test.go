package lending

import (
	"context"
	"testing"

	"p2plend/core"
	"p2plend/internal/interest"
	"p2plend/service/pool"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var weth = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

// listWeth lists weth without any outside liquidity and creates its market
func (f *fixture) listWeth(t *testing.T) {
	t.Helper()

	f.pool.ListReserve(weth, core.Reserve{
		LTV:                  7_000,
		LiquidationThreshold: 7_500,
		LiquidationBonus:     10_500,
		Decimals:             18,
		IsActive:             true,
		IsBorrowingEnabled:   true,
	}, core.ReserveCaps{}, interest.RateModel{})
	f.oracle.SetPrice(weth, units(1, 8))

	_, err := f.engine.CreateMarket(f.ctx, weth, 0, 5_000)
	require.NoError(t, err)
}

func TestFailedPoolBorrowUndoesPoolWithdraw(t *testing.T) {
	f := newFixture(t)
	f.listWeth(t)

	f.supply(t, weth, alice, units(100, 18))
	f.supplyCollateral(t, dai, bob, units(1_000, 18))
	f.recorder.Reset()

	// alice is matched and withdrawn from the pool, then the pool can not
	// lend the remaining 50
	_, err := f.engine.Borrow(f.ctx, request(weth, bob, units(150, 18)))
	assert.ErrorIs(t, err, pool.ErrInsufficientLiquidity)
	assert.Empty(t, f.recorder.Events())

	supply, debt, err := f.pool.AccountBalances(weth)
	require.NoError(t, err)
	assert.Equal(t, units(100, 18).Dec(), supply.Dec())
	assert.True(t, debt.IsZero())

	a := f.engine.Position(weth, alice)
	assert.Equal(t, units(100, 18).Dec(), a.SupplyPool.Dec())
	assert.True(t, a.SupplyP2P.IsZero())
	assert.Empty(t, f.engine.UserBorrows(bob))

	mv, err := f.engine.Withdraw(f.ctx, request(weth, alice, units(100, 18)))
	require.NoError(t, err)
	assert.Equal(t, units(100, 18).Dec(), mv.Amount.Dec())

	supply, _, err = f.pool.AccountBalances(weth)
	require.NoError(t, err)
	assert.True(t, supply.IsZero())
}

// halfPool pays out half of every withdrawal
type halfPool struct {
	*pool.Pool
}

func (p halfPool) Withdraw(ctx context.Context, asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	return p.Pool.Withdraw(ctx, asset, new(uint256.Int).Rsh(amount, 1))
}

func TestPoolShortfallRollsBackWithdraw(t *testing.T) {
	f := newFixture(t)
	engine := New(halfPool{f.pool}, f.oracle, WithClock(f.clock.Now))
	_, err := engine.CreateMarket(f.ctx, wbtc, 0, 5_000)
	require.NoError(t, err)

	_, err = engine.Supply(f.ctx, request(wbtc, alice, units(2, 8)))
	require.NoError(t, err)

	_, err = engine.Withdraw(f.ctx, request(wbtc, alice, units(2, 8)))
	assert.ErrorIs(t, err, core.ErrPoolShortfall)

	// the half that was paid out went back to the pool
	supply, _, err := f.pool.AccountBalances(wbtc)
	require.NoError(t, err)
	assert.Equal(t, units(2, 8).Dec(), supply.Dec())

	balance, err := engine.SupplyBalance(f.ctx, wbtc, alice)
	require.NoError(t, err)
	assert.Equal(t, units(2, 8).Dec(), balance.Dec())

	_, err = engine.SupplyCollateral(f.ctx, request(wbtc, bob, units(1, 8)))
	require.NoError(t, err)

	_, err = engine.WithdrawCollateral(f.ctx, request(wbtc, bob, units(1, 8)))
	assert.ErrorIs(t, err, core.ErrPoolShortfall)

	collateral, err := engine.CollateralBalance(f.ctx, wbtc, bob)
	require.NoError(t, err)
	assert.Equal(t, units(1, 8).Dec(), collateral.Dec())
}
