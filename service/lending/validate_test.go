package lending

import (
	"context"
	"testing"

	"p2plend/core"
	"p2plend/pkg/number"
	"p2plend/service/pool"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionValidation(t *testing.T) {
	f := newFixture(t)
	f.supply(t, dai, alice, units(100, 18))

	tests := []struct {
		name   string
		action func(ctx context.Context, req core.Request) (core.Movement, error)
		req    func(r *core.Request)
		err    error
	}{
		{"supply zero amount", f.engine.Supply, func(r *core.Request) { r.Amount = number.Zero() }, core.ErrAmountIsZero},
		{"supply nil amount", f.engine.Supply, func(r *core.Request) { r.Amount = nil }, core.ErrAmountIsZero},
		{"supply on behalf of zero", f.engine.Supply, func(r *core.Request) { r.OnBehalf = common.Address{} }, core.ErrAddressIsZero},
		{"supply unknown market", f.engine.Supply, func(r *core.Request) { r.Underlying = wbtc }, core.ErrMarketNotCreated},
		{"withdraw zero amount", f.engine.Withdraw, func(r *core.Request) { r.Amount = number.Zero() }, core.ErrAmountIsZero},
		{"withdraw to zero", f.engine.Withdraw, func(r *core.Request) { r.Receiver = common.Address{} }, core.ErrAddressIsZero},
		{"withdraw on behalf of zero", f.engine.Withdraw, func(r *core.Request) { r.OnBehalf = common.Address{} }, core.ErrAddressIsZero},
		{"withdraw unknown market", f.engine.Withdraw, func(r *core.Request) { r.Underlying = wbtc }, core.ErrMarketNotCreated},
		{"withdraw unmanaged", f.engine.Withdraw, func(r *core.Request) { r.Caller = carol }, core.ErrPermissionDenied},
		{"borrow unmanaged", f.engine.Borrow, func(r *core.Request) { r.Caller = carol }, core.ErrPermissionDenied},
		{"borrow to zero", f.engine.Borrow, func(r *core.Request) { r.Receiver = common.Address{} }, core.ErrAddressIsZero},
		{"withdraw collateral unmanaged", f.engine.WithdrawCollateral, func(r *core.Request) { r.Caller = carol }, core.ErrPermissionDenied},
		{"repay zero amount", f.engine.Repay, func(r *core.Request) { r.Amount = number.Zero() }, core.ErrAmountIsZero},
		{"supply collateral unknown market", f.engine.SupplyCollateral, func(r *core.Request) { r.Underlying = wbtc }, core.ErrMarketNotCreated},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := request(dai, alice, units(10, 18))
			test.req(&req)

			_, err := test.action(f.ctx, req)
			assert.ErrorIs(t, err, test.err)
		})
	}
}

func TestPauses(t *testing.T) {
	f := newFixture(t)
	f.supply(t, dai, alice, units(100, 18))
	f.supplyCollateral(t, usdc, alice, units(100, 6))

	tests := []struct {
		flag   core.PauseFlag
		action func(ctx context.Context, req core.Request) (core.Movement, error)
		asset  common.Address
		err    error
	}{
		{core.PauseSupply, f.engine.Supply, dai, core.ErrSupplyIsPaused},
		{core.PauseSupplyCollateral, f.engine.SupplyCollateral, usdc, core.ErrSupplyCollateralIsPaused},
		{core.PauseBorrow, f.engine.Borrow, dai, core.ErrBorrowIsPaused},
		{core.PauseRepay, f.engine.Repay, dai, core.ErrRepayIsPaused},
		{core.PauseWithdraw, f.engine.Withdraw, dai, core.ErrWithdrawIsPaused},
		{core.PauseWithdrawCollateral, f.engine.WithdrawCollateral, usdc, core.ErrWithdrawCollateralIsPaused},
	}

	for _, test := range tests {
		t.Run(string(test.flag), func(t *testing.T) {
			require.NoError(t, f.engine.SetPaused(f.ctx, test.asset, test.flag, true))

			_, err := test.action(f.ctx, request(test.asset, alice, units(1, 6)))
			assert.ErrorIs(t, err, test.err)

			require.NoError(t, f.engine.SetPaused(f.ctx, test.asset, test.flag, false))
		})
	}

	require.NoError(t, f.engine.SetPausedForAll(f.ctx, dai, true))
	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.True(t, m.IsSupplyPaused)
	assert.True(t, m.IsLiquidateBorrowPaused)
	assert.False(t, m.IsP2PDisabled)

	assert.Error(t, f.engine.SetPaused(f.ctx, dai, core.PauseFlag("nope"), true))
	assert.ErrorIs(t, f.engine.SetPaused(f.ctx, wbtc, core.PauseSupply, true), core.ErrMarketNotCreated)
}

func TestDeprecation(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.engine.SetIsDeprecated(f.ctx, dai, true), core.ErrBorrowNotPaused)

	require.NoError(t, f.engine.SetPaused(f.ctx, dai, core.PauseBorrow, true))
	require.NoError(t, f.engine.SetIsDeprecated(f.ctx, dai, true))

	assert.ErrorIs(t, f.engine.SetPaused(f.ctx, dai, core.PauseBorrow, false), core.ErrMarketIsDeprecated)
	assert.ErrorIs(t, f.engine.SetPausedForAll(f.ctx, dai, false), core.ErrMarketIsDeprecated)

	require.NoError(t, f.engine.SetIsDeprecated(f.ctx, dai, false))
	require.NoError(t, f.engine.SetPaused(f.ctx, dai, core.PauseBorrow, false))
}

func TestMarketParameters(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.engine.SetReserveFactor(f.ctx, dai, 2_000))
	require.NoError(t, f.engine.SetP2PIndexCursor(f.ctx, dai, 3_000))
	assert.ErrorIs(t, f.engine.SetReserveFactor(f.ctx, dai, 10_001), core.ErrExceedsMaxBasisPoints)
	assert.ErrorIs(t, f.engine.SetP2PIndexCursor(f.ctx, dai, 10_001), core.ErrExceedsMaxBasisPoints)

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.EqualValues(t, 2_000, m.ReserveFactor)
	assert.EqualValues(t, 3_000, m.P2PIndexCursor)

	require.NoError(t, f.engine.SetAssetIsCollateral(f.ctx, dai, false))
	_, err = f.engine.SupplyCollateral(f.ctx, request(dai, alice, units(1, 18)))
	assert.ErrorIs(t, err, core.ErrAssetNotCollateral)
}

func TestManagerApproval(t *testing.T) {
	f := newFixture(t)
	f.supply(t, dai, alice, units(100, 18))

	req := request(dai, carol, units(10, 18))
	req.OnBehalf = alice

	require.NoError(t, f.engine.ApproveManager(f.ctx, alice, carol, true))
	assert.True(t, f.engine.IsManagedBy(alice, carol))

	mv, err := f.engine.Withdraw(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, units(10, 18).Dec(), mv.Amount.Dec())

	require.NoError(t, f.engine.ApproveManager(f.ctx, alice, carol, false))
	_, err = f.engine.Withdraw(f.ctx, req)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	assert.Contains(t, f.recorder.Kinds(), core.EventManagerApproval)
	assert.ErrorIs(t, f.engine.ApproveManager(f.ctx, common.Address{}, carol, true), core.ErrAddressIsZero)
}

func TestBorrowGates(t *testing.T) {
	f := newFixture(t)
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))

	f.oracle.SetBorrowAllowed(false)
	_, err := f.engine.Borrow(f.ctx, request(dai, bob, units(1, 18)))
	assert.ErrorIs(t, err, core.ErrSentinelBorrowNotEnabled)
	f.oracle.SetBorrowAllowed(true)

	cfg, err := f.pool.GetConfiguration(f.ctx, dai)
	require.NoError(t, err)
	cfg.IsBorrowingEnabled = false
	require.NoError(t, f.pool.SetConfiguration(dai, cfg))

	_, err = f.engine.Borrow(f.ctx, request(dai, bob, units(1, 18)))
	assert.ErrorIs(t, err, core.ErrBorrowNotEnabled)
}

func TestBorrowCap(t *testing.T) {
	f := newFixture(t)

	// 400 dai of third party pool debt
	require.NoError(t, f.pool.Seed(dai, number.Zero(), units(400, 18)))
	require.NoError(t, f.pool.SetCaps(dai, core.ReserveCaps{BorrowCap: 1_000}))

	f.supply(t, dai, alice, units(300, 18))
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))

	// matched with alice, the pool debt does not move
	mv := f.borrow(t, dai, bob, units(300, 18))
	assert.Equal(t, units(300, 18).Dec(), mv.P2P.Dec())

	_, err := f.engine.Borrow(f.ctx, request(dai, bob, units(301, 18)))
	assert.ErrorIs(t, err, core.ErrExceedsBorrowCap)

	mv = f.borrow(t, dai, bob, units(300, 18))
	assert.Equal(t, units(300, 18).Dec(), mv.Pool.Dec())
}

func TestBorrowWithoutCollateralRollsBack(t *testing.T) {
	f := newFixture(t)
	f.supply(t, dai, alice, units(100, 18))
	f.recorder.Reset()

	before, err := f.engine.Market(dai)
	require.NoError(t, err)

	_, err = f.engine.Borrow(f.ctx, request(dai, bob, units(50, 18)))
	assert.ErrorIs(t, err, core.ErrUnauthorizedBorrow)

	after, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// alice was promoted then put back
	assert.Equal(t, units(100, 18).Dec(), f.engine.Position(dai, alice).SupplyPool.Dec())
	assert.True(t, f.engine.Position(dai, alice).SupplyP2P.IsZero())
	assert.True(t, f.engine.markets[dai].suppliersPool.Contains(alice))
	assert.False(t, f.engine.markets[dai].suppliersP2P.Contains(alice))
	assert.True(t, f.engine.Position(dai, bob).IsEmpty())
	assert.Empty(t, f.engine.UserBorrows(bob))
	assert.Empty(t, f.recorder.Events())
}

func TestPoolFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pool.SetCaps(dai, core.ReserveCaps{SupplyCap: 1_000_000}))

	_, err := f.engine.Supply(f.ctx, request(dai, alice, units(100, 18)))
	assert.ErrorIs(t, err, pool.ErrSupplyCapExceeded)

	assert.True(t, f.engine.Position(dai, alice).IsEmpty())
	assert.False(t, f.engine.markets[dai].suppliersPool.Contains(alice))
	assert.Empty(t, f.recorder.Events())
}

func TestWithdrawCollateralKeepsBorrowerHealthy(t *testing.T) {
	f := newFixture(t)
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	f.borrow(t, dai, bob, units(7_000, 18))

	_, err := f.engine.WithdrawCollateral(f.ctx, request(usdc, bob, units(2_000, 6)))
	assert.ErrorIs(t, err, core.ErrUnauthorizedWithdraw)

	mv, err := f.engine.WithdrawCollateral(f.ctx, request(usdc, bob, units(1_000, 6)))
	require.NoError(t, err)
	assert.Equal(t, units(1_000, 6).Dec(), mv.Amount.Dec())

	balance, err := f.engine.CollateralBalance(f.ctx, usdc, bob)
	require.NoError(t, err)
	assert.Equal(t, units(9_000, 6).Dec(), balance.Dec())

	// over withdrawal of a debt free user takes everything
	f.supplyCollateral(t, usdc, alice, units(50, 6))
	mv, err = f.engine.WithdrawCollateral(f.ctx, request(usdc, alice, units(1_000, 6)))
	require.NoError(t, err)
	assert.Equal(t, units(50, 6).Dec(), mv.Amount.Dec())
	assert.NotContains(t, f.engine.UserCollaterals(alice), usdc)
}
