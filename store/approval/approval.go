package approval

import (
	"context"
	"time"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/store/db"
)

// Approval approval row
type Approval struct {
	ID        int64     `sql:"PRIMARY_KEY" json:"id"`
	Delegator string    `sql:"size:42;unique_index:idx_approvals_delegator_manager" json:"delegator"`
	Manager   string    `sql:"size:42;unique_index:idx_approvals_delegator_manager" json:"manager"`
	CreatedAt time.Time `sql:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName gorm table name
func (Approval) TableName() string {
	return "approvals"
}

func init() {
	db.RegisterMigrate(func(db *db.DB) error {
		tx := db.Update().Model(Approval{})
		if err := tx.AutoMigrate(Approval{}).Error; err != nil {
			return err
		}

		return nil
	})
}

type approvalStore struct {
	db *db.DB
}

// New new approval store
func New(db *db.DB) core.ApprovalStore {
	return &approvalStore{db: db}
}

func (s *approvalStore) Save(ctx context.Context, tx *db.DB, approval core.Approval, allowed bool) error {
	row := Approval{
		Delegator: approval.Delegator.Hex(),
		Manager:   approval.Manager.Hex(),
	}

	query := tx.Update().Where("delegator = ? AND manager = ?", row.Delegator, row.Manager)
	if !allowed {
		return query.Delete(Approval{}).Error
	}

	return query.FirstOrCreate(&row).Error
}

func (s *approvalStore) All(ctx context.Context) ([]core.Approval, error) {
	var rows []*Approval
	if err := s.db.View().Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	approvals := make([]core.Approval, 0, len(rows))
	for _, row := range rows {
		approvals = append(approvals, core.Approval{
			Delegator: common.HexToAddress(row.Delegator),
			Manager:   common.HexToAddress(row.Manager),
		})
	}

	return approvals, nil
}
