// Package pool is an in-memory pool based lending protocol with jump rate
// reserves. It backs the sandbox server, the simulation command and tests.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"p2plend/core"
	"p2plend/internal/interest"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// ErrReserveNotFound reserve not listed
	ErrReserveNotFound = errors.New("pool: reserve not found")
	// ErrReserveInactive reserve inactive
	ErrReserveInactive = errors.New("pool: reserve inactive")
	// ErrSupplyCapExceeded supply cap exceeded
	ErrSupplyCapExceeded = errors.New("pool: supply cap exceeded")
	// ErrBorrowCapExceeded borrow cap exceeded
	ErrBorrowCapExceeded = errors.New("pool: borrow cap exceeded")
	// ErrBorrowingDisabled borrowing disabled
	ErrBorrowingDisabled = errors.New("pool: borrowing disabled")
	// ErrInsufficientLiquidity not enough cash
	ErrInsufficientLiquidity = errors.New("pool: insufficient liquidity")
	// ErrRepayExceedsDebt repay more than owed
	ErrRepayExceedsDebt = errors.New("pool: repay exceeds debt")
)

type reserve struct {
	config core.Reserve
	caps   core.ReserveCaps
	model  interest.RateModel

	supplyIndex *uint256.Int
	borrowIndex *uint256.Int
	lastUpdate  time.Time

	// scaled totals of every supplier and borrower
	scaledSupply *uint256.Int
	scaledDebt   *uint256.Int
	// scaled balances of the overlay account
	accountSupply *uint256.Int
	accountDebt   *uint256.Int
}

// Pool simulated pool, the overlay is its only named account
type Pool struct {
	mux      sync.Mutex
	clock    func() time.Time
	reserves map[common.Address]*reserve
}

// Option pool option
type Option func(p *Pool)

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(p *Pool) {
		p.clock = clock
	}
}

// New new simulated pool
func New(opts ...Option) *Pool {
	p := &Pool{
		clock:    time.Now,
		reserves: make(map[common.Address]*reserve),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewFromConfig creates a pool and lists every configured reserve
func NewFromConfig(cfg core.PoolConfig, opts ...Option) (*Pool, error) {
	p := New(opts...)
	for _, r := range cfg.Reserves {
		asset := common.HexToAddress(r.Asset)
		p.ListReserve(asset, core.Reserve{
			LTV:                  r.LTV,
			LiquidationThreshold: r.LiquidationThreshold,
			LiquidationBonus:     r.LiquidationBonus,
			Decimals:             r.Decimals,
			IsActive:             true,
			IsBorrowingEnabled:   !r.BorrowingDisabled,
		}, core.ReserveCaps{
			SupplyCap: r.SupplyCap,
			BorrowCap: r.BorrowCap,
		}, interest.RateModel{
			BaseRate:       r.BaseRate,
			Multiplier:     r.Multiplier,
			JumpMultiplier: r.JumpMultiplier,
			Kink:           r.Kink,
			ReserveFactor:  r.ReserveFactor,
		})

		if r.Liquidity.IsPositive() {
			liquidity, err := number.FromDecimal(r.Liquidity, int32(r.Decimals))
			if err != nil {
				return nil, fmt.Errorf("reserve %s liquidity: %w", r.Asset, err)
			}

			if err := p.Seed(asset, liquidity, number.Zero()); err != nil {
				return nil, err
			}
		}
	}

	return p, nil
}

// ListReserve lists or reconfigures a reserve, indexes start at one ray
func (p *Pool) ListReserve(asset common.Address, config core.Reserve, caps core.ReserveCaps, model interest.RateModel) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if r, ok := p.reserves[asset]; ok {
		r.config, r.caps, r.model = config, caps, model
		return
	}

	p.reserves[asset] = &reserve{
		config:        config,
		caps:          caps,
		model:         model,
		supplyIndex:   number.Copy(number.Ray),
		borrowIndex:   number.Copy(number.Ray),
		lastUpdate:    p.clock(),
		scaledSupply:  number.Zero(),
		scaledDebt:    number.Zero(),
		accountSupply: number.Zero(),
		accountDebt:   number.Zero(),
	}
}

// SetConfiguration replaces the risk configuration of a reserve
func (p *Pool) SetConfiguration(asset common.Address, config core.Reserve) error {
	return p.update(asset, func(r *reserve) error {
		r.config = config
		return nil
	})
}

// SetCaps replaces the caps of a reserve
func (p *Pool) SetCaps(asset common.Address, caps core.ReserveCaps) error {
	return p.update(asset, func(r *reserve) error {
		r.caps = caps
		return nil
	})
}

// Seed adds supply and debt of third party users, caps are not enforced
func (p *Pool) Seed(asset common.Address, supply, debt *uint256.Int) error {
	return p.update(asset, func(r *reserve) error {
		if r.cash().Add(r.cash(), supply).Lt(debt) {
			return ErrInsufficientLiquidity
		}

		r.scaledSupply = number.Add(r.scaledSupply, number.RayDiv(supply, r.supplyIndex))
		r.scaledDebt = number.Add(r.scaledDebt, number.RayDiv(debt, r.borrowIndex))
		return nil
	})
}

func (p *Pool) update(asset common.Address, fn func(r *reserve) error) error {
	p.mux.Lock()
	defer p.mux.Unlock()

	r, ok := p.reserves[asset]
	if !ok {
		return ErrReserveNotFound
	}

	r.accrue(p.clock())
	return fn(r)
}

func (p *Pool) mutate(asset common.Address, fn func(r *reserve) error) error {
	return p.update(asset, func(r *reserve) error {
		if !r.config.IsActive {
			return ErrReserveInactive
		}

		return fn(r)
	})
}

// Supply implements core.Pool
func (p *Pool) Supply(_ context.Context, asset common.Address, amount *uint256.Int) error {
	return p.mutate(asset, func(r *reserve) error {
		if r.caps.SupplyCap > 0 {
			limit := number.Mul(uint256.NewInt(r.caps.SupplyCap), number.Pow10(r.config.Decimals))
			if number.Add(r.totalSupply(), amount).Gt(limit) {
				return ErrSupplyCapExceeded
			}
		}

		scaled := number.RayDiv(amount, r.supplyIndex)
		r.scaledSupply = number.Add(r.scaledSupply, scaled)
		r.accountSupply = number.Add(r.accountSupply, scaled)
		return nil
	})
}

// Withdraw implements core.Pool
func (p *Pool) Withdraw(_ context.Context, asset common.Address, amount *uint256.Int) (*uint256.Int, error) {
	withdrawn := number.Zero()
	err := p.mutate(asset, func(r *reserve) error {
		actual := number.Min(amount, number.RayMul(r.accountSupply, r.supplyIndex))
		if r.cash().Lt(actual) {
			return ErrInsufficientLiquidity
		}

		scaled := number.RayDiv(actual, r.supplyIndex)
		r.scaledSupply = number.ZeroFloorSub(r.scaledSupply, scaled)
		r.accountSupply = number.ZeroFloorSub(r.accountSupply, scaled)
		withdrawn = actual
		return nil
	})

	return withdrawn, err
}

// Borrow implements core.Pool
func (p *Pool) Borrow(_ context.Context, asset common.Address, amount *uint256.Int) error {
	return p.mutate(asset, func(r *reserve) error {
		if !r.config.IsBorrowingEnabled {
			return ErrBorrowingDisabled
		}

		if r.cash().Lt(amount) {
			return ErrInsufficientLiquidity
		}

		if r.caps.BorrowCap > 0 {
			limit := number.Mul(uint256.NewInt(r.caps.BorrowCap), number.Pow10(r.config.Decimals))
			if number.Add(r.totalDebt(), amount).Gt(limit) {
				return ErrBorrowCapExceeded
			}
		}

		scaled := number.RayDivUp(amount, r.borrowIndex)
		r.scaledDebt = number.Add(r.scaledDebt, scaled)
		r.accountDebt = number.Add(r.accountDebt, scaled)
		return nil
	})
}

// Repay implements core.Pool
func (p *Pool) Repay(_ context.Context, asset common.Address, amount *uint256.Int) error {
	return p.mutate(asset, func(r *reserve) error {
		debt := number.RayMulUp(r.accountDebt, r.borrowIndex)
		if amount.Gt(debt) {
			return ErrRepayExceedsDebt
		}

		scaled := number.RayDiv(amount, r.borrowIndex)
		r.scaledDebt = number.ZeroFloorSub(r.scaledDebt, scaled)
		r.accountDebt = number.ZeroFloorSub(r.accountDebt, scaled)
		return nil
	})
}

// GetCurrentIndexes implements core.Pool
func (p *Pool) GetCurrentIndexes(_ context.Context, asset common.Address) (supplyIndex, borrowIndex *uint256.Int, err error) {
	err = p.update(asset, func(r *reserve) error {
		supplyIndex, borrowIndex = number.Copy(r.supplyIndex), number.Copy(r.borrowIndex)
		return nil
	})

	return
}

// GetReserveCaps implements core.Pool
func (p *Pool) GetReserveCaps(_ context.Context, asset common.Address) (core.ReserveCaps, error) {
	var caps core.ReserveCaps
	err := p.update(asset, func(r *reserve) error {
		caps = r.caps
		return nil
	})

	return caps, err
}

// GetConfiguration implements core.Pool, unlisted assets have an empty
// inactive configuration
func (p *Pool) GetConfiguration(_ context.Context, asset common.Address) (core.Reserve, error) {
	var config core.Reserve
	err := p.update(asset, func(r *reserve) error {
		config = r.config
		return nil
	})
	if errors.Is(err, ErrReserveNotFound) {
		return core.Reserve{}, nil
	}

	return config, err
}

// TotalSupply implements core.Pool
func (p *Pool) TotalSupply(_ context.Context, asset common.Address) (*uint256.Int, error) {
	total := number.Zero()
	err := p.update(asset, func(r *reserve) error {
		total = r.totalSupply()
		return nil
	})

	return total, err
}

// TotalDebt implements core.Pool
func (p *Pool) TotalDebt(_ context.Context, asset common.Address) (*uint256.Int, error) {
	total := number.Zero()
	err := p.update(asset, func(r *reserve) error {
		total = r.totalDebt()
		return nil
	})

	return total, err
}

// AccountBalances supply and debt of the overlay account
func (p *Pool) AccountBalances(asset common.Address) (supply, debt *uint256.Int, err error) {
	err = p.update(asset, func(r *reserve) error {
		supply = number.RayMul(r.accountSupply, r.supplyIndex)
		debt = number.RayMulUp(r.accountDebt, r.borrowIndex)
		return nil
	})

	return
}

// Rates current annual supply and borrow rates of a reserve
func (p *Pool) Rates(asset common.Address) (supplyRate, borrowRate decimal.Decimal, err error) {
	err = p.update(asset, func(r *reserve) error {
		supplyRate, borrowRate = r.rates()
		return nil
	})

	return
}

func (r *reserve) totalSupply() *uint256.Int {
	return number.RayMul(r.scaledSupply, r.supplyIndex)
}

func (r *reserve) totalDebt() *uint256.Int {
	return number.RayMul(r.scaledDebt, r.borrowIndex)
}

func (r *reserve) cash() *uint256.Int {
	return number.ZeroFloorSub(r.totalSupply(), r.totalDebt())
}

func (r *reserve) rates() (supplyRate, borrowRate decimal.Decimal) {
	debt := number.ToDecimal(r.totalDebt(), 0)
	cash := number.ToDecimal(r.cash(), 0)
	utilization := interest.UtilizationRate(cash, debt)
	return r.model.SupplyRate(utilization), r.model.BorrowRate(utilization)
}

// accrue grows the indexes from the rates of the last update
func (r *reserve) accrue(now time.Time) {
	seconds := int64(now.Sub(r.lastUpdate) / time.Second)
	if seconds <= 0 {
		return
	}

	supplyRate, borrowRate := r.rates()
	supplyGrowth := number.MustFromDecimal(interest.LinearInterest(supplyRate, seconds), 27)
	borrowGrowth := number.MustFromDecimal(interest.CompoundedInterest(borrowRate, seconds), 27)

	r.supplyIndex = number.RayMul(r.supplyIndex, supplyGrowth)
	r.borrowIndex = number.RayMul(r.borrowIndex, borrowGrowth)
	r.lastUpdate = r.lastUpdate.Add(time.Duration(seconds) * time.Second)
}
