package core

import (
	"strings"

	"github.com/fox-one/pkg/store/db"
	"github.com/shopspring/decimal"
)

// Config p2plend config
type Config struct {
	App      App            `json:"app"`
	DB       db.Config      `json:"db"`
	Engine   EngineConfig   `json:"engine"`
	Worker   WorkerConfig   `json:"worker"`
	Oracle   OracleConfig   `json:"oracle"`
	Sentinel SentinelConfig `json:"sentinel"`
	Pool     PoolConfig     `json:"pool"`
	Markets  []MarketConfig `json:"markets"`
	Admins   []string       `json:"admins"`
}

// IsAdmin check if the address is admin
func (c *Config) IsAdmin(address string) bool {
	if len(c.Admins) <= 0 {
		return false
	}

	for _, a := range c.Admins {
		if strings.EqualFold(a, address) {
			return true
		}
	}

	return false
}

// App app config
type App struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// EngineConfig matching engine config
type EngineConfig struct {
	Iterations Iterations `json:"iterations"`
	// MaxSortedUsers users kept ordered per market side, 0 means unbounded
	MaxSortedUsers int `json:"max_sorted_users"`
}

// WorkerConfig cron specs of the background jobs
type WorkerConfig struct {
	// Disabled keeps the server from running any job
	Disabled bool `json:"disabled"`
	// Indexes refreshes and persists the indexes of every market
	Indexes string `json:"indexes"`
	// Liquidity scans borrowers for health factors below one
	Liquidity string `json:"liquidity"`
}

// OracleConfig price oracle config
type OracleConfig struct {
	// EndPoint remote price api, static prices are used when empty
	EndPoint string `json:"end_point"`
	// PriceTTL cache expiry in seconds
	PriceTTL int64 `json:"price_ttl"`
	// Prices static prices by asset address
	Prices map[string]decimal.Decimal `json:"prices"`
}

// SentinelConfig oracle sentinel switches
type SentinelConfig struct {
	LiquidationDisabled bool `json:"liquidation_disabled"`
	BorrowDisabled      bool `json:"borrow_disabled"`
}

// PoolConfig simulated pool config
type PoolConfig struct {
	Reserves []ReserveConfig `json:"reserves"`
}

// ReserveConfig one simulated pool reserve
type ReserveConfig struct {
	Asset    string `json:"asset" valid:"required"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	// risk parameters in bps
	LTV                  uint16 `json:"ltv"`
	LiquidationThreshold uint16 `json:"liquidation_threshold"`
	LiquidationBonus     uint16 `json:"liquidation_bonus"`
	// caps in whole tokens, 0 means no cap
	SupplyCap         uint64 `json:"supply_cap"`
	BorrowCap         uint64 `json:"borrow_cap"`
	BorrowingDisabled bool   `json:"borrowing_disabled"`
	// Liquidity whole tokens seeded by third party suppliers
	Liquidity decimal.Decimal `json:"liquidity"`
	// interest rate model, annual rates
	BaseRate       decimal.Decimal `json:"base_rate"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	JumpMultiplier decimal.Decimal `json:"jump_multiplier"`
	Kink           decimal.Decimal `json:"kink"`
	ReserveFactor  decimal.Decimal `json:"reserve_factor"`
}

// MarketConfig overlay market created at startup
type MarketConfig struct {
	Asset          string `json:"asset" valid:"required"`
	ReserveFactor  uint16 `json:"reserve_factor"`
	P2PIndexCursor uint16 `json:"p2p_index_cursor"`
}
