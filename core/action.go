package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ActionType user action
type ActionType string

const (
	// ActionSupply supply
	ActionSupply ActionType = "supply"
	// ActionSupplyCollateral supply collateral
	ActionSupplyCollateral ActionType = "supply-collateral"
	// ActionBorrow borrow
	ActionBorrow ActionType = "borrow"
	// ActionRepay repay
	ActionRepay ActionType = "repay"
	// ActionWithdraw withdraw
	ActionWithdraw ActionType = "withdraw"
	// ActionWithdrawCollateral withdraw collateral
	ActionWithdrawCollateral ActionType = "withdraw-collateral"
	// ActionLiquidate liquidate
	ActionLiquidate ActionType = "liquidate"
)

// Iterations max promotion/demotion iterations per action
type Iterations struct {
	Supply   int `json:"supply"`
	Borrow   int `json:"borrow"`
	Repay    int `json:"repay"`
	Withdraw int `json:"withdraw"`
}

// DefaultIterations default iterations
var DefaultIterations = Iterations{
	Supply:   4,
	Borrow:   4,
	Repay:    10,
	Withdraw: 10,
}

// IsZero reports whether no budget is set
func (i Iterations) IsZero() bool {
	return i == Iterations{}
}

// Movement underlying moved by an action and where it landed
type Movement struct {
	// Amount total underlying moved
	Amount *uint256.Int `json:"amount"`
	// P2P part matched peer-to-peer
	P2P *uint256.Int `json:"p2p"`
	// Pool part moved against the pool
	Pool *uint256.Int `json:"pool"`
	// Idle part parked in or drawn from idle supply
	Idle *uint256.Int `json:"idle"`
}

// EmptyMovement zero movement
func EmptyMovement() Movement {
	return Movement{
		Amount: new(uint256.Int),
		P2P:    new(uint256.Int),
		Pool:   new(uint256.Int),
		Idle:   new(uint256.Int),
	}
}

// Liquidation result of a liquidation
type Liquidation struct {
	Repaid *uint256.Int `json:"repaid"`
	Seized *uint256.Int `json:"seized"`
}

// LiquidityData risk weighted view of a user's positions, in oracle base
// currency
type LiquidityData struct {
	// Collateral value of every collateral
	Collateral *uint256.Int `json:"collateral"`
	// Borrowable collateral weighted by ltv
	Borrowable *uint256.Int `json:"borrowable"`
	// MaxDebt collateral weighted by the liquidation threshold
	MaxDebt *uint256.Int `json:"max_debt"`
	// Debt value of every debt
	Debt *uint256.Int `json:"debt"`
}

// Request user action parameters
type Request struct {
	Underlying common.Address
	Amount     *uint256.Int
	// Caller who submits the action
	Caller common.Address
	// OnBehalf position owner
	OnBehalf common.Address
	// Receiver of withdrawn or borrowed funds
	Receiver common.Address
	// MaxIterations overrides the default budget when set, zero disables
	// matching
	MaxIterations *int
}

// LiquidateRequest liquidation parameters
type LiquidateRequest struct {
	Borrowed   common.Address
	Collateral common.Address
	Borrower   common.Address
	Liquidator common.Address
	Amount     *uint256.Int
}

// PauseFlag pausable operation of a market
type PauseFlag string

const (
	PauseSupply              PauseFlag = "supply"
	PauseSupplyCollateral    PauseFlag = "supply-collateral"
	PauseBorrow              PauseFlag = "borrow"
	PauseRepay               PauseFlag = "repay"
	PauseWithdraw            PauseFlag = "withdraw"
	PauseWithdrawCollateral  PauseFlag = "withdraw-collateral"
	PauseLiquidateCollateral PauseFlag = "liquidate-collateral"
	PauseLiquidateBorrow     PauseFlag = "liquidate-borrow"
	PauseP2P                 PauseFlag = "p2p"
)

// PauseFlags every flag SetPaused accepts
var PauseFlags = []PauseFlag{
	PauseSupply,
	PauseSupplyCollateral,
	PauseBorrow,
	PauseRepay,
	PauseWithdraw,
	PauseWithdrawCollateral,
	PauseLiquidateCollateral,
	PauseLiquidateBorrow,
	PauseP2P,
}
