package lending

import (
	"context"
	"testing"
	"time"

	"p2plend/core"
	"p2plend/internal/interest"
	"p2plend/pkg/number"
	"p2plend/service/notifier"
	"p2plend/service/oracle"
	"p2plend/service/pool"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dai  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	usdc = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	wbtc = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")

	alice      = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob        = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol      = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	liquidator = common.HexToAddress("0x000000000000000000000000000000000000dead")
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func units(n uint64, decimals uint8) *uint256.Int {
	return number.Mul(uint256.NewInt(n), number.Pow10(decimals))
}

type fixture struct {
	ctx      context.Context
	clock    *testClock
	pool     *pool.Pool
	oracle   *oracle.Static
	recorder *notifier.Recorder
	engine   *Engine
}

// newFixture lists dai, usdc and wbtc on a fresh pool and creates the dai
// and usdc markets
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		ctx:      context.Background(),
		clock:    &testClock{now: time.Unix(1_700_000_000, 0)},
		oracle:   oracle.NewStatic(),
		recorder: notifier.NewRecorder(0),
	}

	model := interest.RateModel{
		BaseRate:   decimal.RequireFromString("0.02"),
		Multiplier: decimal.RequireFromString("0.2"),
	}

	f.pool = pool.New(pool.WithClock(f.clock.Now))
	f.pool.ListReserve(dai, core.Reserve{
		LTV:                  7_500,
		LiquidationThreshold: 8_000,
		LiquidationBonus:     10_500,
		Decimals:             18,
		IsActive:             true,
		IsBorrowingEnabled:   true,
	}, core.ReserveCaps{}, model)
	f.pool.ListReserve(usdc, core.Reserve{
		LTV:                  8_000,
		LiquidationThreshold: 8_500,
		LiquidationBonus:     10_500,
		Decimals:             6,
		IsActive:             true,
		IsBorrowingEnabled:   true,
	}, core.ReserveCaps{}, model)
	f.pool.ListReserve(wbtc, core.Reserve{
		LTV:                  7_000,
		LiquidationThreshold: 7_500,
		LiquidationBonus:     11_000,
		Decimals:             8,
		IsActive:             true,
		IsBorrowingEnabled:   true,
	}, core.ReserveCaps{}, model)

	require.NoError(t, f.pool.Seed(dai, units(1_000_000, 18), number.Zero()))
	require.NoError(t, f.pool.Seed(usdc, units(1_000_000, 6), number.Zero()))

	f.oracle.SetPrice(dai, units(1, 8))
	f.oracle.SetPrice(usdc, units(1, 8))
	f.oracle.SetPrice(wbtc, units(30_000, 8))

	opts = append([]Option{
		WithSentinel(f.oracle),
		WithNotifier(f.recorder),
		WithClock(f.clock.Now),
	}, opts...)
	f.engine = New(f.pool, f.oracle, opts...)

	for _, asset := range []common.Address{dai, usdc} {
		_, err := f.engine.CreateMarket(f.ctx, asset, 0, 5_000)
		require.NoError(t, err)
	}

	f.recorder.Reset()
	return f
}

func request(underlying, user common.Address, amount *uint256.Int) core.Request {
	return core.Request{
		Underlying: underlying,
		Amount:     amount,
		Caller:     user,
		OnBehalf:   user,
		Receiver:   user,
	}
}

func (f *fixture) supply(t *testing.T, underlying, user common.Address, amount *uint256.Int) core.Movement {
	t.Helper()
	mv, err := f.engine.Supply(f.ctx, request(underlying, user, amount))
	require.NoError(t, err)
	return mv
}

func (f *fixture) supplyCollateral(t *testing.T, underlying, user common.Address, amount *uint256.Int) {
	t.Helper()
	_, err := f.engine.SupplyCollateral(f.ctx, request(underlying, user, amount))
	require.NoError(t, err)
}

func (f *fixture) borrow(t *testing.T, underlying, user common.Address, amount *uint256.Int) core.Movement {
	t.Helper()
	mv, err := f.engine.Borrow(f.ctx, request(underlying, user, amount))
	require.NoError(t, err)
	return mv
}

// matchBobAndAlice leaves bob borrowing 400 dai on the pool and 600 dai
// peer-to-peer against alice
func (f *fixture) matchBobAndAlice(t *testing.T) {
	t.Helper()

	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	f.borrow(t, dai, bob, units(1_000, 18))
	f.supply(t, dai, alice, units(600, 18))
}

func assertMovement(t *testing.T, mv core.Movement, amount, p2p, pool, idle *uint256.Int) {
	t.Helper()
	assert.Equal(t, amount.Dec(), mv.Amount.Dec(), "amount")
	assert.Equal(t, p2p.Dec(), mv.P2P.Dec(), "p2p")
	assert.Equal(t, pool.Dec(), mv.Pool.Dec(), "pool")
	assert.Equal(t, idle.Dec(), mv.Idle.Dec(), "idle")
}

func TestCreateMarket(t *testing.T) {
	f := newFixture(t)

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.Equal(t, number.Ray.Dec(), m.Indexes.Supply.P2PIndex.Dec())
	assert.Equal(t, number.Ray.Dec(), m.Indexes.Borrow.PoolIndex.Dec())
	assert.True(t, m.IsCollateral)
	assert.EqualValues(t, 5_000, m.P2PIndexCursor)

	_, err = f.engine.CreateMarket(f.ctx, dai, 0, 0)
	assert.ErrorIs(t, err, core.ErrMarketAlreadyCreated)

	_, err = f.engine.CreateMarket(f.ctx, common.Address{}, 0, 0)
	assert.ErrorIs(t, err, core.ErrAddressIsZero)

	_, err = f.engine.CreateMarket(f.ctx, common.HexToAddress("0x01"), 0, 0)
	assert.ErrorIs(t, err, core.ErrMarketIsNotListed)

	_, err = f.engine.CreateMarket(f.ctx, wbtc, 10_001, 0)
	assert.ErrorIs(t, err, core.ErrExceedsMaxBasisPoints)

	// the failed attempts left nothing behind
	assert.Len(t, f.engine.Markets(), 2)

	_, err = f.engine.CreateMarket(f.ctx, wbtc, 1_000, 3_000)
	require.NoError(t, err)

	markets := f.engine.Markets()
	require.Len(t, markets, 3)
	assert.Equal(t, wbtc, markets[2].Underlying)
	assert.Equal(t, []core.EventKind{core.EventMarketCreated}, f.recorder.Kinds())
}

func TestUpdateIndexesIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	f.borrow(t, dai, bob, units(1_000, 18))

	f.clock.now = f.clock.now.Add(24 * time.Hour)
	f.recorder.Reset()

	first, err := f.engine.UpdateIndexes(f.ctx, dai)
	require.NoError(t, err)
	second, err := f.engine.UpdateIndexes(f.ctx, dai)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Borrow.PoolIndex.Gt(number.Ray))
	assert.True(t, first.Supply.PoolIndex.Gt(number.Ray))
	assert.Equal(t, []core.EventKind{core.EventIndexesUpdated}, f.recorder.Kinds())

	computed, err := f.engine.ComputeIndexes(f.ctx, dai)
	require.NoError(t, err)
	assert.Equal(t, first, computed)

	debt, err := f.engine.BorrowBalance(f.ctx, dai, bob)
	require.NoError(t, err)
	assert.True(t, debt.Gt(units(1_000, 18)))

	_, err = f.engine.UpdateIndexes(f.ctx, wbtc)
	assert.ErrorIs(t, err, core.ErrMarketNotCreated)
}

// frozenP2P keeps peer-to-peer indexes where they are
type frozenP2P struct {
	interest.DefaultModel
}

func (frozenP2P) P2PIndex(p interest.P2PIndexParams) *uint256.Int {
	return number.Copy(p.LastP2PIndex)
}

func TestCustomModel(t *testing.T) {
	f := newFixture(t, WithModel(frozenP2P{}))
	f.matchBobAndAlice(t)

	f.clock.now = f.clock.now.Add(24 * time.Hour)

	indexes, err := f.engine.UpdateIndexes(f.ctx, dai)
	require.NoError(t, err)
	assert.True(t, indexes.Borrow.PoolIndex.Gt(number.Ray))
	assert.Equal(t, number.Ray.Dec(), indexes.Borrow.P2PIndex.Dec())
	assert.Equal(t, number.Ray.Dec(), indexes.Supply.P2PIndex.Dec())

	supplied, err := f.engine.SupplyBalance(f.ctx, dai, alice)
	require.NoError(t, err)
	assert.Equal(t, units(600, 18).Dec(), supplied.Dec())
}

func TestSupplyPromotesPoolBorrowers(t *testing.T) {
	f := newFixture(t)
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))

	mv := f.borrow(t, dai, bob, units(1_000, 18))
	assertMovement(t, mv, units(1_000, 18), number.Zero(), units(1_000, 18), number.Zero())

	mv = f.supply(t, dai, alice, units(600, 18))
	assertMovement(t, mv, units(600, 18), units(600, 18), number.Zero(), number.Zero())

	b := f.engine.Position(dai, bob)
	assert.Equal(t, units(400, 18).Dec(), b.BorrowPool.Dec())
	assert.Equal(t, units(600, 18).Dec(), b.BorrowP2P.Dec())

	a := f.engine.Position(dai, alice)
	assert.True(t, a.SupplyPool.IsZero())
	assert.Equal(t, units(600, 18).Dec(), a.SupplyP2P.Dec())

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.Equal(t, units(600, 18).Dec(), m.Deltas.Supply.ScaledP2PTotal.Dec())
	assert.Equal(t, units(600, 18).Dec(), m.Deltas.Borrow.ScaledP2PTotal.Dec())
	assert.True(t, m.Deltas.Borrow.ScaledDelta.IsZero())

	_, debt, err := f.pool.AccountBalances(dai)
	require.NoError(t, err)
	assert.Equal(t, units(400, 18).Dec(), debt.Dec())

	ms := f.engine.markets[dai]
	user, _, ok := ms.borrowersP2P.Head()
	require.True(t, ok)
	assert.Equal(t, bob, user)
	assert.True(t, ms.suppliersP2P.Contains(alice))
	assert.False(t, ms.suppliersPool.Contains(alice))

	assert.Contains(t, f.recorder.Kinds(), core.EventSupplied)
	assert.Contains(t, f.recorder.Kinds(), core.EventPositionUpdated)
}

func TestBorrowPromotesPoolSuppliers(t *testing.T) {
	f := newFixture(t)

	mv := f.supply(t, dai, alice, units(300, 18))
	assertMovement(t, mv, units(300, 18), number.Zero(), units(300, 18), number.Zero())

	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	mv = f.borrow(t, dai, bob, units(500, 18))
	assertMovement(t, mv, units(500, 18), units(300, 18), units(200, 18), number.Zero())

	a := f.engine.Position(dai, alice)
	assert.True(t, a.SupplyPool.IsZero())
	assert.Equal(t, units(300, 18).Dec(), a.SupplyP2P.Dec())

	b := f.engine.Position(dai, bob)
	assert.Equal(t, units(200, 18).Dec(), b.BorrowPool.Dec())
	assert.Equal(t, units(300, 18).Dec(), b.BorrowP2P.Dec())

	supply, debt, err := f.pool.AccountBalances(dai)
	require.NoError(t, err)
	assert.True(t, supply.IsZero())
	assert.Equal(t, units(200, 18).Dec(), debt.Dec())
}

func TestWithdrawDemotesBorrowers(t *testing.T) {
	f := newFixture(t)
	f.matchBobAndAlice(t)

	mv, err := f.engine.Withdraw(f.ctx, request(dai, alice, units(600, 18)))
	require.NoError(t, err)
	assertMovement(t, mv, units(600, 18), units(600, 18), number.Zero(), number.Zero())

	b := f.engine.Position(dai, bob)
	assert.Equal(t, units(1_000, 18).Dec(), b.BorrowPool.Dec())
	assert.True(t, b.BorrowP2P.IsZero())

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.True(t, m.Deltas.Supply.ScaledP2PTotal.IsZero())
	assert.True(t, m.Deltas.Borrow.ScaledP2PTotal.IsZero())
	assert.True(t, m.Deltas.Borrow.ScaledDelta.IsZero())

	_, debt, err := f.pool.AccountBalances(dai)
	require.NoError(t, err)
	assert.Equal(t, units(1_000, 18).Dec(), debt.Dec())
}

func TestWithdrawWithoutIterationsIncreasesBorrowDelta(t *testing.T) {
	f := newFixture(t)
	f.matchBobAndAlice(t)

	f.engine.SetDefaultIterations(core.Iterations{Supply: 4, Borrow: 4, Repay: 10, Withdraw: 0})
	assert.Equal(t, 0, f.engine.DefaultIterations().Withdraw)

	_, err := f.engine.Withdraw(f.ctx, request(dai, alice, units(600, 18)))
	require.NoError(t, err)

	// bob stays matched, the overlay borrows on his behalf
	b := f.engine.Position(dai, bob)
	assert.Equal(t, units(600, 18).Dec(), b.BorrowP2P.Dec())

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.Equal(t, units(600, 18).Dec(), m.Deltas.Borrow.ScaledDelta.Dec())
	assert.Equal(t, units(600, 18).Dec(), m.Deltas.Borrow.ScaledP2PTotal.Dec())
	assert.True(t, m.Deltas.Supply.ScaledP2PTotal.IsZero())

	// a new supplier is matched against the delta first
	mv := f.supply(t, dai, carol, units(200, 18))
	assertMovement(t, mv, units(200, 18), units(200, 18), number.Zero(), number.Zero())

	m, err = f.engine.Market(dai)
	require.NoError(t, err)
	assert.Equal(t, units(400, 18).Dec(), m.Deltas.Borrow.ScaledDelta.Dec())
	assert.Equal(t, units(200, 18).Dec(), m.Deltas.Supply.ScaledP2PTotal.Dec())
	assert.Equal(t, units(200, 18).Dec(), f.engine.Position(dai, carol).SupplyP2P.Dec())

	_, debt, err := f.pool.AccountBalances(dai)
	require.NoError(t, err)
	assert.Equal(t, units(800, 18).Dec(), debt.Dec())
}

func TestRepayParksIdleSupplyAboveSupplyCap(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.pool.SetCaps(dai, core.ReserveCaps{SupplyCap: 1_000_000}))

	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	f.borrow(t, dai, bob, units(500, 18))
	f.supply(t, dai, alice, units(500, 18))

	mv, err := f.engine.Repay(f.ctx, request(dai, bob, units(500, 18)))
	require.NoError(t, err)
	assertMovement(t, mv, units(500, 18), units(500, 18), number.Zero(), units(500, 18))

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.Equal(t, units(500, 18).Dec(), m.IdleSupply.Dec())
	assert.Equal(t, units(500, 18).Dec(), m.Deltas.Supply.ScaledP2PTotal.Dec())
	assert.True(t, m.Deltas.Borrow.ScaledP2PTotal.IsZero())
	assert.Empty(t, f.engine.UserBorrows(bob))

	// withdrawals draw from idle supply first
	mv, err = f.engine.Withdraw(f.ctx, request(dai, alice, units(500, 18)))
	require.NoError(t, err)
	assertMovement(t, mv, units(500, 18), units(500, 18), number.Zero(), units(500, 18))

	m, err = f.engine.Market(dai)
	require.NoError(t, err)
	assert.True(t, m.IdleSupply.IsZero())
	assert.True(t, m.Deltas.Supply.ScaledP2PTotal.IsZero())
}

func TestRepayDemotesSuppliers(t *testing.T) {
	f := newFixture(t)
	f.matchBobAndAlice(t)

	mv, err := f.engine.Repay(f.ctx, request(dai, bob, units(1_000, 18)))
	require.NoError(t, err)
	assertMovement(t, mv, units(1_000, 18), units(600, 18), units(400, 18), number.Zero())

	a := f.engine.Position(dai, alice)
	assert.Equal(t, units(600, 18).Dec(), a.SupplyPool.Dec())
	assert.True(t, a.SupplyP2P.IsZero())

	supply, debt, err := f.pool.AccountBalances(dai)
	require.NoError(t, err)
	assert.Equal(t, units(600, 18).Dec(), supply.Dec())
	assert.True(t, debt.IsZero())
}

func TestOverWithdrawIsCapped(t *testing.T) {
	f := newFixture(t)
	f.supply(t, dai, alice, units(100, 18))

	mv, err := f.engine.Withdraw(f.ctx, request(dai, alice, units(1_000, 18)))
	require.NoError(t, err)
	assertMovement(t, mv, units(100, 18), number.Zero(), units(100, 18), number.Zero())

	balance, err := f.engine.SupplyBalance(f.ctx, dai, alice)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
	assert.True(t, f.engine.Position(dai, alice).IsEmpty())

	// nothing left, nothing moves
	mv, err = f.engine.Withdraw(f.ctx, request(dai, alice, units(1, 18)))
	require.NoError(t, err)
	assert.True(t, mv.Amount.IsZero())
}

func TestRepayIsCappedAtDebt(t *testing.T) {
	f := newFixture(t)
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	f.borrow(t, dai, bob, units(1_000, 18))
	assert.Equal(t, []common.Address{dai}, f.engine.UserBorrows(bob))
	assert.Equal(t, []common.Address{bob}, f.engine.Borrowers())

	// anyone may repay for anyone
	req := request(dai, carol, units(5_000, 18))
	req.OnBehalf = bob
	mv, err := f.engine.Repay(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, units(1_000, 18).Dec(), mv.Amount.Dec())

	debt, err := f.engine.BorrowBalance(f.ctx, dai, bob)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())
	assert.Empty(t, f.engine.UserBorrows(bob))
	assert.Empty(t, f.engine.Borrowers())
}

func TestIncreaseP2PDeltas(t *testing.T) {
	f := newFixture(t)
	f.matchBobAndAlice(t)

	increased, err := f.engine.IncreaseP2PDeltas(f.ctx, dai, units(100, 18))
	require.NoError(t, err)
	assert.Equal(t, units(100, 18).Dec(), increased.Dec())

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	assert.Equal(t, units(100, 18).Dec(), m.Deltas.Supply.ScaledDelta.Dec())
	assert.Equal(t, units(100, 18).Dec(), m.Deltas.Borrow.ScaledDelta.Dec())

	increased, err = f.engine.IncreaseP2PDeltas(f.ctx, dai, units(1_000, 18))
	require.NoError(t, err)
	assert.Equal(t, units(500, 18).Dec(), increased.Dec())

	_, err = f.engine.IncreaseP2PDeltas(f.ctx, dai, units(1, 18))
	assert.ErrorIs(t, err, core.ErrAmountIsZero)
}

func TestCommitHook(t *testing.T) {
	var (
		markets   []*core.Market
		positions []*core.Position
	)

	f := newFixture(t, WithCommitHook(func(_ context.Context, m []*core.Market, p []*core.Position) {
		markets, positions = m, p
	}))

	f.supply(t, dai, alice, units(10, 18))
	require.Len(t, markets, 1)
	assert.Equal(t, dai, markets[0].Underlying)
	require.Len(t, positions, 1)
	assert.Equal(t, alice, positions[0].User)
	assert.Equal(t, units(10, 18).Dec(), positions[0].SupplyPool.Dec())
}

func TestZeroIterationsSkipMatching(t *testing.T) {
	f := newFixture(t)
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	f.borrow(t, dai, bob, units(1_000, 18))

	zero := 0
	req := request(dai, alice, units(600, 18))
	req.MaxIterations = &zero
	mv, err := f.engine.Supply(f.ctx, req)
	require.NoError(t, err)
	assertMovement(t, mv, units(600, 18), number.Zero(), units(600, 18), number.Zero())

	assert.True(t, f.engine.Position(dai, bob).BorrowP2P.IsZero())
	assert.Equal(t, units(600, 18).Dec(), f.engine.Position(dai, alice).SupplyPool.Dec())

	// no override falls back to the default budget
	mv = f.supply(t, dai, carol, units(100, 18))
	assertMovement(t, mv, units(100, 18), units(100, 18), number.Zero(), number.Zero())
}

func TestRepayFeeGoesToReserves(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetReserveFactor(f.ctx, dai, 1_000))

	f.supply(t, dai, alice, units(1_000, 18))
	f.supplyCollateral(t, usdc, bob, units(10_000, 6))
	mv := f.borrow(t, dai, bob, units(1_000, 18))
	assertMovement(t, mv, units(1_000, 18), units(1_000, 18), number.Zero(), number.Zero())

	f.clock.now = f.clock.now.Add(365 * 24 * time.Hour)

	debt, err := f.engine.BorrowBalance(f.ctx, dai, bob)
	require.NoError(t, err)
	supplied, err := f.engine.SupplyBalance(f.ctx, dai, alice)
	require.NoError(t, err)
	assert.True(t, supplied.Gt(units(1_000, 18)))
	assert.True(t, debt.Gt(supplied))

	mv, err = f.engine.Repay(f.ctx, request(dai, bob, units(2_000, 18)))
	require.NoError(t, err)
	assert.Equal(t, debt.Dec(), mv.Amount.Dec())
	assert.Contains(t, f.recorder.Kinds(), core.EventReservesIncreased)

	mv, err = f.engine.Withdraw(f.ctx, request(dai, alice, units(2_000, 18)))
	require.NoError(t, err)
	assert.Equal(t, supplied.Dec(), mv.Amount.Dec())

	supply, poolDebt, err := f.pool.AccountBalances(dai)
	require.NoError(t, err)
	assert.True(t, supply.IsZero())
	assert.True(t, poolDebt.IsZero())

	m, err := f.engine.Market(dai)
	require.NoError(t, err)
	// rounding dust at most
	assert.True(t, m.Deltas.Supply.ScaledP2PTotal.Lt(uint256.NewInt(10)))
	assert.True(t, m.Deltas.Borrow.ScaledP2PTotal.Lt(uint256.NewInt(10)))
	assert.False(t, m.Reserves.IsZero())
	assert.True(t, f.engine.Position(dai, alice).IsEmpty())
	assert.True(t, f.engine.Position(dai, bob).IsEmpty())
}
