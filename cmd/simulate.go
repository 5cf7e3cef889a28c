package cmd

import (
	"context"
	"fmt"

	"p2plend/core"
	"p2plend/pkg/number"
	"p2plend/service/lending"
	"p2plend/service/notifier"
	"p2plend/service/oracle"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/yiplee/structs"
)

var (
	simSupplier   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	simBorrower   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	simLiquidator = common.HexToAddress("0x000000000000000000000000000000000000c0de")
)

type simStep struct {
	Step   string `json:"step"`
	Amount string `json:"amount"`
	P2P    string `json:"p2p,omitempty"`
	Pool   string `json:"pool,omitempty"`
	Idle   string `json:"idle,omitempty"`
	Seized string `json:"seized,omitempty"`
	HF     string `json:"health_factor,omitempty"`
}

// command for replaying a supply, borrow and liquidation round on an in
// memory engine built from the config
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "replay a matching and liquidation round against the configured pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		if len(cfg.Markets) < 2 {
			return fmt.Errorf("simulate needs two markets, %d configured", len(cfg.Markets))
		}

		borrowed := common.HexToAddress(cfg.Markets[0].Asset)
		collateral := common.HexToAddress(cfg.Markets[1].Asset)

		flags := cmd.Flags()
		supplyFlag, _ := flags.GetString("supply")
		collateralFlag, _ := flags.GetString("collateral")
		borrowFlag, _ := flags.GetString("borrow")
		dropFlag, _ := flags.GetString("drop")

		drop, err := cast.ToUint64E(dropFlag)
		if err != nil || drop > 100 {
			return fmt.Errorf("invalid price drop %q", dropFlag)
		}

		supply, err := wholeTokens(borrowed, supplyFlag)
		if err != nil {
			return err
		}

		pledge, err := wholeTokens(collateral, collateralFlag)
		if err != nil {
			return err
		}

		borrow, err := wholeTokens(borrowed, borrowFlag)
		if err != nil {
			return err
		}

		static, err := oracle.NewStaticFromConfig(cfg.Oracle, cfg.Sentinel)
		if err != nil {
			return err
		}

		recorder := notifier.NewRecorder(0)
		engine := lending.New(providePool(), static,
			lending.WithSentinel(static),
			lending.WithIterations(cfg.Engine.Iterations),
			lending.WithNotifier(recorder),
		)

		if err := createMarkets(ctx, engine); err != nil {
			return err
		}

		report := func(s simStep) {
			hf, _ := engine.HealthFactor(ctx, simBorrower)
			s.HF = formatHF(hf)
			log.WithFields(structs.Map(s)).Infoln("simulate")
		}

		for _, step := range []struct {
			name   string
			action func(ctx context.Context, req core.Request) (core.Movement, error)
			req    core.Request
		}{
			{"supply", engine.Supply, core.Request{Underlying: borrowed, Amount: supply, Caller: simSupplier, OnBehalf: simSupplier}},
			{"supply-collateral", engine.SupplyCollateral, core.Request{Underlying: collateral, Amount: pledge, Caller: simBorrower, OnBehalf: simBorrower}},
			{"borrow", engine.Borrow, core.Request{Underlying: borrowed, Amount: borrow, Caller: simBorrower, OnBehalf: simBorrower, Receiver: simBorrower}},
		} {
			mv, err := step.action(ctx, step.req)
			if err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}

			report(simStep{
				Step:   step.name,
				Amount: dec(mv.Amount),
				P2P:    dec(mv.P2P),
				Pool:   dec(mv.Pool),
				Idle:   dec(mv.Idle),
			})
		}

		price, err := static.GetAssetPrice(ctx, collateral)
		if err != nil {
			return err
		}

		static.SetPrice(collateral, number.MulDiv(price, uint256.NewInt(100-drop), uint256.NewInt(100)))
		log.Infof("collateral price dropped by %d%%", drop)

		result, err := engine.Liquidate(ctx, core.LiquidateRequest{
			Borrowed:   borrowed,
			Collateral: collateral,
			Borrower:   simBorrower,
			Liquidator: simLiquidator,
			Amount:     new(uint256.Int).SetAllOne(),
		})
		if err != nil {
			log.WithError(err).Infoln("borrower not liquidatable")
		} else {
			report(simStep{Step: "liquidate", Amount: dec(result.Repaid), Seized: dec(result.Seized)})
		}

		log.Infof("%d events emitted", len(recorder.Events()))
		return nil
	},
}

func wholeTokens(asset common.Address, v string) (*uint256.Int, error) {
	for _, r := range cfg.Pool.Reserves {
		if common.HexToAddress(r.Asset) != asset {
			continue
		}

		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", v, err)
		}

		return number.FromDecimal(d, int32(r.Decimals))
	}

	return nil, fmt.Errorf("asset %s is not listed on the pool", asset.Hex())
}

func dec(x *uint256.Int) string {
	if x == nil {
		return ""
	}

	return x.Dec()
}

func formatHF(hf *uint256.Int) string {
	if hf == nil {
		return ""
	}

	if hf.Eq(new(uint256.Int).SetAllOne()) {
		return "max"
	}

	return number.ToDecimal(hf, 18).String()
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	flags := simulateCmd.Flags()
	flags.String("supply", "1000", "tokens supplied on the borrowed market")
	flags.String("collateral", "1000", "tokens pledged on the collateral market")
	flags.String("borrow", "700", "tokens borrowed")
	flags.String("drop", "30", "collateral price drop in percent")
}
