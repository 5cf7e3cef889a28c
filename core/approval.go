package core

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/store/db"
)

// Approval a manager allowed to act for a delegator
type Approval struct {
	Delegator common.Address `json:"delegator"`
	Manager   common.Address `json:"manager"`
}

// ApprovalStore manager approval store
type ApprovalStore interface {
	// Save records the approval when allowed, otherwise removes it
	Save(ctx context.Context, tx *db.DB, approval Approval, allowed bool) error
	All(ctx context.Context) ([]Approval, error)
}
