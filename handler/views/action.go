package views

import (
	"p2plend/core"

	"github.com/holiman/uint256"
)

// Movement movement view
type Movement struct {
	Action core.ActionType `json:"action"`
	Amount *uint256.Int    `json:"amount"`
	P2P    *uint256.Int    `json:"p2p"`
	Pool   *uint256.Int    `json:"pool"`
	Idle   *uint256.Int    `json:"idle"`
}

// NewMovement movement view
func NewMovement(action core.ActionType, mv core.Movement) *Movement {
	return &Movement{
		Action: action,
		Amount: mv.Amount,
		P2P:    mv.P2P,
		Pool:   mv.Pool,
		Idle:   mv.Idle,
	}
}

// Liquidation liquidation view
type Liquidation struct {
	Repaid *uint256.Int `json:"repaid"`
	Seized *uint256.Int `json:"seized"`
}
