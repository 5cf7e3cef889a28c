package views

import (
	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Balance balances of a user in one market, in underlying units
type Balance struct {
	Underlying common.Address `json:"underlying"`
	Supply     *uint256.Int   `json:"supply"`
	Borrow     *uint256.Int   `json:"borrow"`
	Collateral *uint256.Int   `json:"collateral"`
	// Scaled raw position
	Scaled *core.Position `json:"scaled"`
}

// User user view
type User struct {
	User         common.Address     `json:"user"`
	Balances     []*Balance         `json:"balances"`
	Liquidity    core.LiquidityData `json:"liquidity"`
	HealthFactor *uint256.Int       `json:"health_factor"`
	Collaterals  []common.Address   `json:"collaterals"`
	Borrows      []common.Address   `json:"borrows"`
}
