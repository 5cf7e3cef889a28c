package config

import (
	"testing"

	"p2plend/core"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEngine(t *testing.T) {
	var cfg core.Config
	defaultEngine(&cfg)
	assert.Equal(t, core.DefaultIterations, cfg.Engine.Iterations)
	assert.Equal(t, "p2plend", cfg.App.Name)
	assert.Equal(t, "@every 1m", cfg.Worker.Indexes)
	assert.Equal(t, "@every 30s", cfg.Worker.Liquidity)

	cfg.Engine.Iterations = core.Iterations{Supply: 1}
	defaultEngine(&cfg)
	assert.Equal(t, 1, cfg.Engine.Iterations.Supply)
}

func TestValidate(t *testing.T) {
	dai := "0x6B175474E89094C44Da98b954EedeAC495271d0F"

	cfg := core.Config{
		Pool:    core.PoolConfig{Reserves: []core.ReserveConfig{{Asset: dai, Symbol: "DAI"}}},
		Markets: []core.MarketConfig{{Asset: dai}},
		Admins:  []string{dai},
	}
	assert.NoError(t, validate(&cfg))

	cfg.Markets = []core.MarketConfig{{}}
	assert.Error(t, validate(&cfg))

	cfg.Markets = []core.MarketConfig{{Asset: "dai"}}
	assert.Error(t, validate(&cfg))

	cfg.Markets = nil
	cfg.Pool.Reserves[0].Asset = "0x01"
	assert.Error(t, validate(&cfg))
}
