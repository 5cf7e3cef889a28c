package lending

import (
	"context"
	"fmt"

	"p2plend/core"
	"p2plend/internal/interest"

	"github.com/ethereum/go-ethereum/common"
)

// computeIndexes returns the current indexes of the market without storing
// them. Within the timestamp of the last update the stored indexes are
// returned as is.
func (e *Engine) computeIndexes(ctx context.Context, m *core.Market) (core.Indexes, error) {
	if m.LastUpdateTimestamp == e.now() {
		return m.Indexes.Clone(), nil
	}

	poolSupplyIndex, poolBorrowIndex, err := e.pool.GetCurrentIndexes(ctx, m.Underlying)
	if err != nil {
		return core.Indexes{}, fmt.Errorf("pool indexes of %s: %w", m.Underlying.Hex(), err)
	}

	last := m.Indexes
	growth := e.model.GrowthFactors(interest.GrowthParams{
		NewPoolSupplyIndex:  poolSupplyIndex,
		NewPoolBorrowIndex:  poolBorrowIndex,
		LastPoolSupplyIndex: last.Supply.PoolIndex,
		LastPoolBorrowIndex: last.Borrow.PoolIndex,
		P2PIndexCursor:      m.P2PIndexCursor,
		ReserveFactor:       m.ReserveFactor,
	})

	supplyP2PIndex := e.model.P2PIndex(interest.P2PIndexParams{
		P2PGrowthFactor:  growth.P2PSupply,
		PoolGrowthFactor: growth.PoolSupply,
		LastPoolIndex:    last.Supply.PoolIndex,
		LastP2PIndex:     last.Supply.P2PIndex,
		P2PDelta:         m.Deltas.Supply.ScaledDelta,
		P2PAmount:        m.Deltas.Supply.ScaledP2PTotal,
		ProportionIdle:   interest.ProportionIdle(m.IdleSupply, m.Deltas.Supply.ScaledP2PTotal, last.Supply.P2PIndex),
	})

	borrowP2PIndex := e.model.P2PIndex(interest.P2PIndexParams{
		P2PGrowthFactor:  growth.P2PBorrow,
		PoolGrowthFactor: growth.PoolBorrow,
		LastPoolIndex:    last.Borrow.PoolIndex,
		LastP2PIndex:     last.Borrow.P2PIndex,
		P2PDelta:         m.Deltas.Borrow.ScaledDelta,
		P2PAmount:        m.Deltas.Borrow.ScaledP2PTotal,
		ProportionIdle:   nil,
	})

	return core.Indexes{
		Supply: core.MarketSideIndexes{PoolIndex: poolSupplyIndex, P2PIndex: supplyP2PIndex},
		Borrow: core.MarketSideIndexes{PoolIndex: poolBorrowIndex, P2PIndex: borrowP2PIndex},
	}, nil
}

// updateIndexes brings the stored indexes of the market up to date
func (e *Engine) updateIndexes(ctx context.Context, underlying common.Address) (core.Indexes, error) {
	ms := e.markets[underlying]
	m := ms.market
	if m.LastUpdateTimestamp == e.now() {
		return m.Indexes.Clone(), nil
	}

	indexes, err := e.computeIndexes(ctx, m)
	if err != nil {
		return core.Indexes{}, err
	}

	e.touchMarket(underlying)
	m = e.markets[underlying].market
	m.Indexes = indexes.Clone()
	m.LastUpdateTimestamp = e.now()

	snapshot := indexes.Clone()
	e.emit(&core.Event{
		Kind:       core.EventIndexesUpdated,
		Underlying: underlying,
		Indexes:    &snapshot,
	})

	return indexes, nil
}

// UpdateIndexes brings the stored indexes of the market up to date
func (e *Engine) UpdateIndexes(ctx context.Context, underlying common.Address) (indexes core.Indexes, err error) {
	err = e.run(ctx, "update_indexes", func(ctx context.Context) error {
		if _, ok := e.markets[underlying]; !ok {
			return core.ErrMarketNotCreated
		}

		indexes, err = e.updateIndexes(ctx, underlying)
		return err
	})

	return
}

// ComputeIndexes current indexes of the market, nothing is stored
func (e *Engine) ComputeIndexes(ctx context.Context, underlying common.Address) (core.Indexes, error) {
	if err := e.acquire(ctx); err != nil {
		return core.Indexes{}, err
	}
	defer e.mux.Unlock()

	ms, ok := e.markets[underlying]
	if !ok {
		return core.Indexes{}, core.ErrMarketNotCreated
	}

	return e.computeIndexes(ctx, ms.market)
}
