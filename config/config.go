package config

import (
	"fmt"

	"p2plend/core"

	"github.com/asaskevich/govalidator"
	"github.com/ethereum/go-ethereum/common"
	configUtil "github.com/fox-one/pkg/config"
)

// Load load config file
func Load(configFile string, config *core.Config) error {
	configUtil.AutomaticLoadEnv("P2PLEND")
	if err := configUtil.LoadYaml(configFile, config); err != nil {
		return err
	}

	defaultEngine(config)
	return validate(config)
}

func defaultEngine(cfg *core.Config) {
	if cfg.Engine.Iterations.IsZero() {
		cfg.Engine.Iterations = core.DefaultIterations
	}

	if cfg.App.Name == "" {
		cfg.App.Name = "p2plend"
	}

	if cfg.Worker.Indexes == "" {
		cfg.Worker.Indexes = "@every 1m"
	}

	if cfg.Worker.Liquidity == "" {
		cfg.Worker.Liquidity = "@every 30s"
	}
}

func validate(cfg *core.Config) error {
	for _, r := range cfg.Pool.Reserves {
		if _, err := govalidator.ValidateStruct(r); err != nil {
			return fmt.Errorf("pool reserve %s: %w", r.Symbol, err)
		}

		if !common.IsHexAddress(r.Asset) {
			return fmt.Errorf("pool reserve %s: invalid asset %q", r.Symbol, r.Asset)
		}
	}

	for _, m := range cfg.Markets {
		if _, err := govalidator.ValidateStruct(m); err != nil {
			return fmt.Errorf("market: %w", err)
		}

		if !common.IsHexAddress(m.Asset) {
			return fmt.Errorf("market: invalid asset %q", m.Asset)
		}
	}

	for _, admin := range cfg.Admins {
		if !common.IsHexAddress(admin) {
			return fmt.Errorf("invalid admin %q", admin)
		}
	}

	return nil
}
