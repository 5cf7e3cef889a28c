package position

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

// Position position row, balances are scaled raw integers
type Position struct {
	ID         int64           `sql:"PRIMARY_KEY" json:"id"`
	Underlying string          `sql:"size:42;unique_index:idx_positions_underlying_user" json:"underlying"`
	User       string          `gorm:"column:account" sql:"size:42;unique_index:idx_positions_underlying_user;index:idx_positions_account" json:"user"`
	SupplyP2P  decimal.Decimal `gorm:"column:supply_p2p" sql:"type:decimal(78,0)" json:"supply_p2p"`
	SupplyPool decimal.Decimal `sql:"type:decimal(78,0)" json:"supply_pool"`
	BorrowP2P  decimal.Decimal `gorm:"column:borrow_p2p" sql:"type:decimal(78,0)" json:"borrow_p2p"`
	BorrowPool decimal.Decimal `sql:"type:decimal(78,0)" json:"borrow_pool"`
	Collateral decimal.Decimal `sql:"type:decimal(78,0)" json:"collateral"`
	Version    int64           `sql:"default:0" json:"version"`
	CreatedAt  time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time       `sql:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName gorm table name
func (Position) TableName() string {
	return "positions"
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(Position{})
		if err := tx.AutoMigrate(Position{}).Error; err != nil {
			return err
		}

		return nil
	})
}

type positionStore struct {
	db *db.DB
}

// New new position store
func New(db *db.DB) core.PositionStore {
	return &positionStore{db: db}
}

// Save creates or updates the position, emptied positions are kept as zero
// rows
func (s *positionStore) Save(ctx context.Context, tx *db.DB, position *core.Position) error {
	row := toRow(position)

	var current Position
	if err := tx.Update().Where("underlying = ? AND account = ?", row.Underlying, row.User).First(&current).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return tx.Update().Create(row).Error
		}

		return err
	}

	update := tx.Update().Model(&current).Where("version = ?", current.Version).Updates(map[string]interface{}{
		"supply_p2p":  row.SupplyP2P,
		"supply_pool": row.SupplyPool,
		"borrow_p2p":  row.BorrowP2P,
		"borrow_pool": row.BorrowPool,
		"collateral":  row.Collateral,
		"version":     current.Version + 1,
	})
	if update.Error != nil {
		return update.Error
	}

	if update.RowsAffected == 0 {
		return db.ErrOptimisticLock
	}

	return nil
}

func (s *positionStore) Find(ctx context.Context, underlying, user common.Address) (*core.Position, error) {
	var row Position
	if err := s.db.View().Where("underlying = ? AND account = ?", underlying.Hex(), user.Hex()).First(&row).Error; err != nil {
		return nil, err
	}

	return FromRow(&row)
}

func (s *positionStore) FindByUser(ctx context.Context, user common.Address) ([]*core.Position, error) {
	var rows []*Position
	if err := s.db.View().Where("account = ?", user.Hex()).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	return fromRows(rows)
}

func (s *positionStore) All(ctx context.Context) ([]*core.Position, error) {
	var rows []*Position
	if err := s.db.View().Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	return fromRows(rows)
}

func toRow(p *core.Position) *Position {
	return &Position{
		Underlying: p.Underlying.Hex(),
		User:       p.User.Hex(),
		SupplyP2P:  number.ToDecimal(p.SupplyP2P, 0),
		SupplyPool: number.ToDecimal(p.SupplyPool, 0),
		BorrowP2P:  number.ToDecimal(p.BorrowP2P, 0),
		BorrowPool: number.ToDecimal(p.BorrowPool, 0),
		Collateral: number.ToDecimal(p.Collateral, 0),
	}
}

// FromRow converts a stored row back to a position
func FromRow(row *Position) (*core.Position, error) {
	p := core.NewPosition(common.HexToAddress(row.Underlying), common.HexToAddress(row.User))

	for _, field := range []struct {
		dst **uint256.Int
		v   decimal.Decimal
	}{
		{&p.SupplyP2P, row.SupplyP2P},
		{&p.SupplyPool, row.SupplyPool},
		{&p.BorrowP2P, row.BorrowP2P},
		{&p.BorrowPool, row.BorrowPool},
		{&p.Collateral, row.Collateral},
	} {
		x, err := number.FromDecimal(field.v, 0)
		if err != nil {
			return nil, err
		}

		*field.dst = x
	}

	return p, nil
}

func fromRows(rows []*Position) ([]*core.Position, error) {
	positions := make([]*core.Position, 0, len(rows))
	for _, row := range rows {
		p, err := FromRow(row)
		if err != nil {
			return nil, err
		}

		positions = append(positions, p)
	}

	return positions, nil
}
