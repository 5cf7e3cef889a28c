package market

import (
	"context"
	"time"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/store/db"
	"github.com/holiman/uint256"
	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"
)

// Market market row, amounts are raw integers
type Market struct {
	ID                  int64           `sql:"PRIMARY_KEY" json:"id"`
	Underlying          string          `sql:"size:42;unique_index:idx_markets_underlying" json:"underlying"`
	SupplyPoolIndex     decimal.Decimal `sql:"type:decimal(78,0)" json:"supply_pool_index"`
	SupplyP2PIndex      decimal.Decimal `gorm:"column:supply_p2p_index" sql:"type:decimal(78,0)" json:"supply_p2p_index"`
	BorrowPoolIndex     decimal.Decimal `sql:"type:decimal(78,0)" json:"borrow_pool_index"`
	BorrowP2PIndex      decimal.Decimal `gorm:"column:borrow_p2p_index" sql:"type:decimal(78,0)" json:"borrow_p2p_index"`
	SupplyDelta         decimal.Decimal `sql:"type:decimal(78,0)" json:"supply_delta"`
	SupplyP2PTotal      decimal.Decimal `gorm:"column:supply_p2p_total" sql:"type:decimal(78,0)" json:"supply_p2p_total"`
	BorrowDelta         decimal.Decimal `sql:"type:decimal(78,0)" json:"borrow_delta"`
	BorrowP2PTotal      decimal.Decimal `gorm:"column:borrow_p2p_total" sql:"type:decimal(78,0)" json:"borrow_p2p_total"`
	IdleSupply          decimal.Decimal `sql:"type:decimal(78,0)" json:"idle_supply"`
	Reserves            decimal.Decimal `sql:"type:decimal(78,0)" json:"reserves"`
	LastUpdateTimestamp uint64          `json:"last_update_timestamp"`
	ReserveFactor       uint16          `json:"reserve_factor"`
	P2PIndexCursor      uint16          `gorm:"column:p2p_index_cursor" json:"p2p_index_cursor"`
	IsCollateral        bool            `json:"is_collateral"`
	core.PauseStatuses
	Version   int64     `sql:"default:0" json:"version"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName gorm table name
func (Market) TableName() string {
	return "markets"
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(Market{})
		if err := tx.AutoMigrate(Market{}).Error; err != nil {
			return err
		}

		return nil
	})
}

type marketStore struct {
	db *db.DB
}

// New new market store
func New(db *db.DB) core.MarketStore {
	return &marketStore{db: db}
}

func (s *marketStore) Save(ctx context.Context, tx *db.DB, market *core.Market) error {
	row := toRow(market)

	var current Market
	if err := tx.Update().Where("underlying = ?", row.Underlying).First(&current).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return tx.Update().Create(row).Error
		}

		return err
	}

	updates := toUpdateParams(row)
	updates["version"] = current.Version + 1

	update := tx.Update().Model(&current).Where("version = ?", current.Version).Updates(updates)
	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	return nil
}

func (s *marketStore) Find(ctx context.Context, underlying common.Address) (*core.Market, error) {
	var row Market
	if err := s.db.View().Where("underlying = ?", underlying.Hex()).First(&row).Error; err != nil {
		return nil, err
	}

	return FromRow(&row)
}

// All markets in creation order
func (s *marketStore) All(ctx context.Context) ([]*core.Market, error) {
	var rows []*Market
	if err := s.db.View().Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	markets := make([]*core.Market, 0, len(rows))
	for _, row := range rows {
		m, err := FromRow(row)
		if err != nil {
			return nil, err
		}

		markets = append(markets, m)
	}

	return markets, nil
}

func toRow(m *core.Market) *Market {
	return &Market{
		Underlying:          m.Underlying.Hex(),
		SupplyPoolIndex:     number.ToDecimal(m.Indexes.Supply.PoolIndex, 0),
		SupplyP2PIndex:      number.ToDecimal(m.Indexes.Supply.P2PIndex, 0),
		BorrowPoolIndex:     number.ToDecimal(m.Indexes.Borrow.PoolIndex, 0),
		BorrowP2PIndex:      number.ToDecimal(m.Indexes.Borrow.P2PIndex, 0),
		SupplyDelta:         number.ToDecimal(m.Deltas.Supply.ScaledDelta, 0),
		SupplyP2PTotal:      number.ToDecimal(m.Deltas.Supply.ScaledP2PTotal, 0),
		BorrowDelta:         number.ToDecimal(m.Deltas.Borrow.ScaledDelta, 0),
		BorrowP2PTotal:      number.ToDecimal(m.Deltas.Borrow.ScaledP2PTotal, 0),
		IdleSupply:          number.ToDecimal(m.IdleSupply, 0),
		Reserves:            number.ToDecimal(m.Reserves, 0),
		LastUpdateTimestamp: m.LastUpdateTimestamp,
		ReserveFactor:       m.ReserveFactor,
		P2PIndexCursor:      m.P2PIndexCursor,
		IsCollateral:        m.IsCollateral,
		PauseStatuses:       m.PauseStatuses,
	}
}

// gorm skips zero values when updating with a struct
func toUpdateParams(row *Market) map[string]interface{} {
	p := row.PauseStatuses
	return map[string]interface{}{
		"supply_pool_index":              row.SupplyPoolIndex,
		"supply_p2p_index":               row.SupplyP2PIndex,
		"borrow_pool_index":              row.BorrowPoolIndex,
		"borrow_p2p_index":               row.BorrowP2PIndex,
		"supply_delta":                   row.SupplyDelta,
		"supply_p2p_total":               row.SupplyP2PTotal,
		"borrow_delta":                   row.BorrowDelta,
		"borrow_p2p_total":               row.BorrowP2PTotal,
		"idle_supply":                    row.IdleSupply,
		"reserves":                       row.Reserves,
		"last_update_timestamp":          row.LastUpdateTimestamp,
		"reserve_factor":                 row.ReserveFactor,
		"p2p_index_cursor":               row.P2PIndexCursor,
		"is_collateral":                  row.IsCollateral,
		"is_supply_paused":               p.IsSupplyPaused,
		"is_supply_collateral_paused":    p.IsSupplyCollateralPaused,
		"is_borrow_paused":               p.IsBorrowPaused,
		"is_repay_paused":                p.IsRepayPaused,
		"is_withdraw_paused":             p.IsWithdrawPaused,
		"is_withdraw_collateral_paused":  p.IsWithdrawCollateralPaused,
		"is_liquidate_collateral_paused": p.IsLiquidateCollateralPaused,
		"is_liquidate_borrow_paused":     p.IsLiquidateBorrowPaused,
		"is_p2p_disabled":                p.IsP2PDisabled,
		"is_deprecated":                  p.IsDeprecated,
	}
}

// FromRow converts a stored row back to a market
func FromRow(row *Market) (*core.Market, error) {
	var (
		values = []decimal.Decimal{
			row.SupplyPoolIndex, row.SupplyP2PIndex,
			row.BorrowPoolIndex, row.BorrowP2PIndex,
			row.SupplyDelta, row.SupplyP2PTotal,
			row.BorrowDelta, row.BorrowP2PTotal,
			row.IdleSupply, row.Reserves,
		}
		ints = make([]*uint256.Int, len(values))
	)

	for idx, v := range values {
		x, err := number.FromDecimal(v, 0)
		if err != nil {
			return nil, err
		}

		ints[idx] = x
	}

	return &core.Market{
		Underlying: common.HexToAddress(row.Underlying),
		Indexes: core.Indexes{
			Supply: core.MarketSideIndexes{PoolIndex: ints[0], P2PIndex: ints[1]},
			Borrow: core.MarketSideIndexes{PoolIndex: ints[2], P2PIndex: ints[3]},
		},
		Deltas: core.Deltas{
			Supply: core.MarketSideDelta{ScaledDelta: ints[4], ScaledP2PTotal: ints[5]},
			Borrow: core.MarketSideDelta{ScaledDelta: ints[6], ScaledP2PTotal: ints[7]},
		},
		IdleSupply:          ints[8],
		Reserves:            ints[9],
		LastUpdateTimestamp: row.LastUpdateTimestamp,
		ReserveFactor:       row.ReserveFactor,
		P2PIndexCursor:      row.P2PIndexCursor,
		IsCollateral:        row.IsCollateral,
		PauseStatuses:       row.PauseStatuses,
	}, nil
}
