package lending

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"p2plend/core"
	"p2plend/pkg/number"
	"p2plend/pkg/sorted"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

func (e *Engine) newMarketState(m *core.Market) *marketState {
	return &marketState{
		market:        m,
		suppliersPool: sorted.New(e.maxSorted),
		suppliersP2P:  sorted.New(e.maxSorted),
		borrowersPool: sorted.New(e.maxSorted),
		borrowersP2P:  sorted.New(e.maxSorted),
	}
}

func validateBasisPoints(values ...uint16) error {
	for _, v := range values {
		if v > number.MaxBasisPoints {
			return core.ErrExceedsMaxBasisPoints
		}
	}

	return nil
}

// CreateMarket lists underlying, the asset must be active on the pool
func (e *Engine) CreateMarket(ctx context.Context, underlying common.Address, reserveFactor, p2pIndexCursor uint16) (market *core.Market, err error) {
	err = e.run(ctx, "create_market", func(ctx context.Context) error {
		if underlying == zeroAddress {
			return core.ErrAddressIsZero
		}

		reserve, err := e.pool.GetConfiguration(ctx, underlying)
		if err != nil {
			return err
		}

		if !reserve.IsActive {
			return core.ErrMarketIsNotListed
		}

		if _, ok := e.markets[underlying]; ok {
			return core.ErrMarketAlreadyCreated
		}

		if err := validateBasisPoints(reserveFactor, p2pIndexCursor); err != nil {
			return err
		}

		poolSupplyIndex, poolBorrowIndex, err := e.pool.GetCurrentIndexes(ctx, underlying)
		if err != nil {
			return err
		}

		m := &core.Market{
			Underlying: underlying,
			Indexes: core.Indexes{
				Supply: core.MarketSideIndexes{PoolIndex: poolSupplyIndex, P2PIndex: number.Copy(number.Ray)},
				Borrow: core.MarketSideIndexes{PoolIndex: poolBorrowIndex, P2PIndex: number.Copy(number.Ray)},
			},
			Deltas: core.Deltas{
				Supply: core.MarketSideDelta{ScaledDelta: number.Zero(), ScaledP2PTotal: number.Zero()},
				Borrow: core.MarketSideDelta{ScaledDelta: number.Zero(), ScaledP2PTotal: number.Zero()},
			},
			IdleSupply:          number.Zero(),
			Reserves:            number.Zero(),
			LastUpdateTimestamp: e.now(),
			ReserveFactor:       reserveFactor,
			P2PIndexCursor:      p2pIndexCursor,
			IsCollateral:        reserve.LiquidationThreshold != 0,
		}

		e.touchMarket(underlying)
		e.markets[underlying] = e.newMarketState(m)
		e.marketIDs = append(e.marketIDs, underlying)

		indexes := m.Indexes.Clone()
		e.emit(&core.Event{
			Kind:       core.EventMarketCreated,
			Underlying: underlying,
			Indexes:    &indexes,
		})

		logger.FromContext(ctx).WithFields(logrus.Fields{
			"underlying":       underlying.Hex(),
			"reserve_factor":   reserveFactor,
			"p2p_index_cursor": p2pIndexCursor,
		}).Infoln("market created")

		market = m.Clone()
		return nil
	})

	return
}

// updateMarket applies fn to a created market and emits MarketUpdated
func (e *Engine) updateMarket(ctx context.Context, action string, underlying common.Address, fn func(ctx context.Context, m *core.Market) error) error {
	return e.run(ctx, action, func(ctx context.Context) error {
		if _, ok := e.markets[underlying]; !ok {
			return core.ErrMarketNotCreated
		}

		e.touchMarket(underlying)
		m := e.markets[underlying].market
		if err := fn(ctx, m); err != nil {
			return err
		}

		e.emit(&core.Event{
			Kind:       core.EventMarketUpdated,
			Underlying: underlying,
		})

		return nil
	})
}

// SetReserveFactor updates indexes with the old factor before switching
func (e *Engine) SetReserveFactor(ctx context.Context, underlying common.Address, reserveFactor uint16) error {
	return e.updateMarket(ctx, "set_reserve_factor", underlying, func(ctx context.Context, m *core.Market) error {
		if err := validateBasisPoints(reserveFactor); err != nil {
			return err
		}

		if _, err := e.updateIndexes(ctx, underlying); err != nil {
			return err
		}

		m.ReserveFactor = reserveFactor
		return nil
	})
}

// SetP2PIndexCursor updates indexes with the old cursor before switching
func (e *Engine) SetP2PIndexCursor(ctx context.Context, underlying common.Address, cursor uint16) error {
	return e.updateMarket(ctx, "set_p2p_index_cursor", underlying, func(ctx context.Context, m *core.Market) error {
		if err := validateBasisPoints(cursor); err != nil {
			return err
		}

		if _, err := e.updateIndexes(ctx, underlying); err != nil {
			return err
		}

		m.P2PIndexCursor = cursor
		return nil
	})
}

func pauseField(m *core.Market, flag core.PauseFlag) (*bool, error) {
	switch flag {
	case core.PauseSupply:
		return &m.IsSupplyPaused, nil
	case core.PauseSupplyCollateral:
		return &m.IsSupplyCollateralPaused, nil
	case core.PauseBorrow:
		return &m.IsBorrowPaused, nil
	case core.PauseRepay:
		return &m.IsRepayPaused, nil
	case core.PauseWithdraw:
		return &m.IsWithdrawPaused, nil
	case core.PauseWithdrawCollateral:
		return &m.IsWithdrawCollateralPaused, nil
	case core.PauseLiquidateCollateral:
		return &m.IsLiquidateCollateralPaused, nil
	case core.PauseLiquidateBorrow:
		return &m.IsLiquidateBorrowPaused, nil
	case core.PauseP2P:
		return &m.IsP2PDisabled, nil
	default:
		return nil, fmt.Errorf("unknown pause flag %q", flag)
	}
}

// SetPaused sets one pause flag. Deprecated markets can not resume borrowing.
func (e *Engine) SetPaused(ctx context.Context, underlying common.Address, flag core.PauseFlag, paused bool) error {
	return e.updateMarket(ctx, "set_paused", underlying, func(ctx context.Context, m *core.Market) error {
		field, err := pauseField(m, flag)
		if err != nil {
			return err
		}

		if flag == core.PauseBorrow && !paused && m.IsDeprecated {
			return core.ErrMarketIsDeprecated
		}

		*field = paused
		return nil
	})
}

// SetPausedForAll sets every action pause flag, peer-to-peer matching is
// left as is
func (e *Engine) SetPausedForAll(ctx context.Context, underlying common.Address, paused bool) error {
	return e.updateMarket(ctx, "set_paused_for_all", underlying, func(ctx context.Context, m *core.Market) error {
		if !paused && m.IsDeprecated {
			return core.ErrMarketIsDeprecated
		}

		for _, flag := range core.PauseFlags {
			if flag == core.PauseP2P {
				continue
			}

			field, _ := pauseField(m, flag)
			*field = paused
		}

		return nil
	})
}

// SetIsDeprecated marks a borrow paused market deprecated, its borrowers
// become fully liquidatable
func (e *Engine) SetIsDeprecated(ctx context.Context, underlying common.Address, deprecated bool) error {
	return e.updateMarket(ctx, "set_is_deprecated", underlying, func(ctx context.Context, m *core.Market) error {
		if deprecated && !m.IsBorrowPaused {
			return core.ErrBorrowNotPaused
		}

		m.IsDeprecated = deprecated
		return nil
	})
}

// SetAssetIsCollateral allows or forbids new collateral on the market
func (e *Engine) SetAssetIsCollateral(ctx context.Context, underlying common.Address, isCollateral bool) error {
	return e.updateMarket(ctx, "set_asset_is_collateral", underlying, func(ctx context.Context, m *core.Market) error {
		if isCollateral {
			reserve, err := e.pool.GetConfiguration(ctx, underlying)
			if err != nil {
				return err
			}

			if reserve.LiquidationThreshold == 0 {
				return core.ErrAssetNotCollateral
			}
		}

		m.IsCollateral = isCollateral
		return nil
	})
}

// SetDefaultIterations sets the iteration budgets used when a request does
// not bring its own
func (e *Engine) SetDefaultIterations(iterations core.Iterations) {
	e.mux.Lock()
	defer e.mux.Unlock()

	e.iterations = iterations
}

// DefaultIterations current iteration budgets
func (e *Engine) DefaultIterations() core.Iterations {
	e.mux.Lock()
	defer e.mux.Unlock()

	return e.iterations
}

// ApproveManager allows or revokes manager to act on delegator's positions
func (e *Engine) ApproveManager(ctx context.Context, delegator, manager common.Address, allowed bool) error {
	return e.run(ctx, "approve_manager", func(ctx context.Context) error {
		if delegator == zeroAddress || manager == zeroAddress {
			return core.ErrAddressIsZero
		}

		if e.managers[delegator] == nil {
			e.managers[delegator] = make(map[common.Address]bool)
		}

		if allowed {
			e.managers[delegator][manager] = true
		} else {
			delete(e.managers[delegator], manager)
		}

		e.emit(&core.Event{
			Kind:     core.EventManagerApproval,
			OnBehalf: delegator,
			Caller:   manager,
			Allowed:  allowed,
		})

		return nil
	})
}

// IsManagedBy reports whether manager may act for delegator
func (e *Engine) IsManagedBy(delegator, manager common.Address) bool {
	e.mux.Lock()
	defer e.mux.Unlock()

	return e.isManagedBy(delegator, manager)
}

// Market copy of the stored market
func (e *Engine) Market(underlying common.Address) (*core.Market, error) {
	e.mux.Lock()
	defer e.mux.Unlock()

	ms, ok := e.markets[underlying]
	if !ok {
		return nil, core.ErrMarketNotCreated
	}

	return ms.market.Clone(), nil
}

// Markets copies of every market in creation order
func (e *Engine) Markets() []*core.Market {
	e.mux.Lock()
	defer e.mux.Unlock()

	markets := make([]*core.Market, 0, len(e.marketIDs))
	for _, underlying := range e.marketIDs {
		markets = append(markets, e.markets[underlying].market.Clone())
	}

	return markets
}

// Position copy of the scaled balances of user
func (e *Engine) Position(underlying, user common.Address) *core.Position {
	e.mux.Lock()
	defer e.mux.Unlock()

	return e.position(underlying, user).Clone()
}

func (e *Engine) balance(ctx context.Context, underlying, user common.Address, fn func(p *core.Position, indexes core.Indexes) *uint256.Int) (*uint256.Int, error) {
	if err := e.acquire(ctx); err != nil {
		return nil, err
	}
	defer e.mux.Unlock()

	ms, ok := e.markets[underlying]
	if !ok {
		return nil, core.ErrMarketNotCreated
	}

	indexes, err := e.computeIndexes(ctx, ms.market)
	if err != nil {
		return nil, err
	}

	return fn(e.position(underlying, user), indexes), nil
}

// SupplyBalance supply of user in underlying, with fresh indexes
func (e *Engine) SupplyBalance(ctx context.Context, underlying, user common.Address) (*uint256.Int, error) {
	return e.balance(ctx, underlying, user, supplyBalance)
}

// BorrowBalance debt of user in underlying, with fresh indexes
func (e *Engine) BorrowBalance(ctx context.Context, underlying, user common.Address) (*uint256.Int, error) {
	return e.balance(ctx, underlying, user, borrowBalance)
}

// CollateralBalance collateral of user in underlying, with fresh indexes
func (e *Engine) CollateralBalance(ctx context.Context, underlying, user common.Address) (*uint256.Int, error) {
	return e.balance(ctx, underlying, user, collateralBalance)
}

// UserCollaterals markets where user has collateral
func (e *Engine) UserCollaterals(user common.Address) []common.Address {
	e.mux.Lock()
	defer e.mux.Unlock()

	return members(e.collaterals, user)
}

// UserBorrows markets where user has debt
func (e *Engine) UserBorrows(user common.Address) []common.Address {
	e.mux.Lock()
	defer e.mux.Unlock()

	return members(e.borrows, user)
}

// UserSupplies markets where user supplies, in creation order
func (e *Engine) UserSupplies(user common.Address) []common.Address {
	e.mux.Lock()
	defer e.mux.Unlock()

	var list []common.Address
	for _, underlying := range e.marketIDs {
		p := e.position(underlying, user)
		if !p.SupplyPool.IsZero() || !p.SupplyP2P.IsZero() {
			list = append(list, underlying)
		}
	}

	return list
}

// Borrowers users with debt in any market, in address order
func (e *Engine) Borrowers() []common.Address {
	e.mux.Lock()
	defer e.mux.Unlock()

	users := make([]common.Address, 0, len(e.borrows))
	for user, markets := range e.borrows {
		if len(markets) > 0 {
			users = append(users, user)
		}
	}

	sort.Slice(users, func(i, j int) bool {
		return bytes.Compare(users[i][:], users[j][:]) < 0
	})

	return users
}
