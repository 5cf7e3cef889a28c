package lending

import (
	"context"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultCloseFactor share of the debt a liquidator may repay, bps
	DefaultCloseFactor = 5_000
	// MaxCloseFactor close factor of deprecated markets and deeply
	// unhealthy borrowers, bps
	MaxCloseFactor = 10_000
)

var (
	// DefaultLiquidationThreshold health factor below which a borrower is
	// liquidatable
	DefaultLiquidationThreshold = number.Copy(number.Wad)
	// MinLiquidationThreshold health factor below which the sentinel is
	// bypassed and the max close factor applies
	MinLiquidationThreshold = uint256.MustFromDecimal("950000000000000000")
)

// closeFactor checks that the borrower is liquidatable and returns the share
// of its debt that may be repaid
func (e *Engine) closeFactor(ctx context.Context, borrowed *core.Market, req core.LiquidateRequest) (uint64, error) {
	if borrowed.IsDeprecated {
		return MaxCloseFactor, nil
	}

	data, err := e.liquidityData(ctx, req.Borrower)
	if err != nil {
		return 0, err
	}

	hf := healthFactor(data)
	if !hf.Lt(DefaultLiquidationThreshold) {
		return 0, core.ErrUnauthorizedLiquidate
	}

	if !hf.Lt(MinLiquidationThreshold) {
		if e.sentinel != nil && !e.sentinel.IsLiquidationAllowed(ctx) {
			return 0, core.ErrSentinelLiquidateNotEnabled
		}

		return DefaultCloseFactor, nil
	}

	return MaxCloseFactor, nil
}

// seize computes the collateral paid for repaid debt, capped at the
// collateral balance, and the repaid amount matching the cap
func seize(repaid, collateralBalance *uint256.Int, borrowed, collateral assetData) (*uint256.Int, *uint256.Int) {
	bonus := uint64(collateral.reserve.LiquidationBonus)

	seized := number.PercentMul(
		number.MulDiv(number.Mul(repaid, borrowed.price), collateral.unit, number.Mul(borrowed.unit, collateral.price)),
		bonus,
	)
	if !seized.Gt(collateralBalance) {
		return repaid, seized
	}

	seized = number.Copy(collateralBalance)
	repaid = number.PercentDiv(
		number.MulDiv(number.Mul(seized, collateral.price), borrowed.unit, number.Mul(borrowed.price, collateral.unit)),
		bonus,
	)

	return repaid, seized
}

// Liquidate repays debt of an unhealthy borrower and seizes collateral with
// the pool's liquidation bonus
func (e *Engine) Liquidate(ctx context.Context, req core.LiquidateRequest) (result core.Liquidation, err error) {
	err = e.run(ctx, string(core.ActionLiquidate), func(ctx context.Context) error {
		borrowed, _, err := e.validateLiquidate(req)
		if err != nil {
			return err
		}

		borrowedIndexes, err := e.updateIndexes(ctx, req.Borrowed)
		if err != nil {
			return err
		}

		collateralIndexes, err := e.updateIndexes(ctx, req.Collateral)
		if err != nil {
			return err
		}

		closeFactor, err := e.closeFactor(ctx, borrowed.market, req)
		if err != nil {
			return err
		}

		borrowedData, err := e.assetData(ctx, req.Borrowed)
		if err != nil {
			return err
		}

		collateralData, err := e.assetData(ctx, req.Collateral)
		if err != nil {
			return err
		}

		debt := borrowBalance(e.position(req.Borrowed, req.Borrower), borrowedIndexes)
		repaid := number.Min(req.Amount, number.PercentMul(debt, closeFactor))

		balance := collateralBalance(e.position(req.Collateral, req.Borrower), collateralIndexes)
		repaid, seized := seize(repaid, balance, borrowedData, collateralData)
		if repaid.IsZero() {
			return core.ErrAmountIsZero
		}

		repayReq := core.Request{
			Underlying: req.Borrowed,
			Amount:     repaid,
			Caller:     req.Liquidator,
			OnBehalf:   req.Borrower,
		}
		mv, err := e.repay(ctx, borrowed, repayReq, e.iterationsFor(core.ActionLiquidate, nil), borrowedIndexes)
		if err != nil {
			return err
		}

		seized = e.withdrawCollateral(req.Collateral, req.Borrower, seized, collateralIndexes)
		withdrawn, err := e.poolWithdrawExact(ctx, req.Collateral, seized)
		if err != nil {
			return err
		}

		e.emitCollateral(core.EventCollateralWithdrawn, core.Request{
			Underlying: req.Collateral,
			Caller:     req.Liquidator,
			OnBehalf:   req.Borrower,
			Receiver:   req.Liquidator,
		}, withdrawn)

		e.emit(&core.Event{
			Kind:                 core.EventLiquidated,
			Underlying:           req.Borrowed,
			Caller:               req.Liquidator,
			OnBehalf:             req.Borrower,
			Amount:               number.Copy(mv.Amount),
			CollateralUnderlying: req.Collateral,
			Seized:               number.Copy(withdrawn),
		})

		logger.FromContext(ctx).WithFields(logrus.Fields{
			"borrower":     req.Borrower.Hex(),
			"close_factor": closeFactor,
			"repaid":       mv.Amount.Dec(),
			"seized":       withdrawn.Dec(),
		}).Infoln("borrower liquidated")

		result = core.Liquidation{Repaid: mv.Amount, Seized: withdrawn}
		return nil
	})

	return
}
