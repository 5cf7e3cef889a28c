package lending

import (
	"context"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var zeroAddress common.Address

func (e *Engine) isManagedBy(delegator, manager common.Address) bool {
	return delegator == manager || e.managers[delegator][manager]
}

// validateInput checks the addresses, amount and market shared by every
// user action, in that order
func (e *Engine) validateInput(underlying common.Address, amount *uint256.Int, addresses ...common.Address) (*marketState, error) {
	for _, addr := range addresses {
		if addr == zeroAddress {
			return nil, core.ErrAddressIsZero
		}
	}

	if amount == nil || amount.IsZero() {
		return nil, core.ErrAmountIsZero
	}

	ms, ok := e.marketState(underlying)
	if !ok {
		return nil, core.ErrMarketNotCreated
	}

	return ms, nil
}

func (e *Engine) validateManager(req core.Request) error {
	if !e.isManagedBy(req.OnBehalf, req.Caller) {
		return core.ErrPermissionDenied
	}

	return nil
}

func (e *Engine) validateSupply(req core.Request) (*marketState, error) {
	ms, err := e.validateInput(req.Underlying, req.Amount, req.OnBehalf)
	if err != nil {
		return nil, err
	}

	if ms.market.IsSupplyPaused {
		return nil, core.ErrSupplyIsPaused
	}

	return ms, nil
}

func (e *Engine) validateSupplyCollateral(req core.Request) (*marketState, error) {
	ms, err := e.validateInput(req.Underlying, req.Amount, req.OnBehalf)
	if err != nil {
		return nil, err
	}

	if !ms.market.IsCollateral {
		return nil, core.ErrAssetNotCollateral
	}

	if ms.market.IsSupplyCollateralPaused {
		return nil, core.ErrSupplyCollateralIsPaused
	}

	return ms, nil
}

func (e *Engine) validateBorrow(ctx context.Context, req core.Request) (*marketState, error) {
	ms, err := e.validateInput(req.Underlying, req.Amount, req.Receiver, req.OnBehalf)
	if err != nil {
		return nil, err
	}

	if err := e.validateManager(req); err != nil {
		return nil, err
	}

	if ms.market.IsBorrowPaused {
		return nil, core.ErrBorrowIsPaused
	}

	reserve, err := e.pool.GetConfiguration(ctx, req.Underlying)
	if err != nil {
		return nil, err
	}

	if !reserve.IsBorrowingEnabled {
		return nil, core.ErrBorrowNotEnabled
	}

	if e.sentinel != nil && !e.sentinel.IsBorrowAllowed(ctx) {
		return nil, core.ErrSentinelBorrowNotEnabled
	}

	return ms, nil
}

func (e *Engine) validateRepay(req core.Request) (*marketState, error) {
	ms, err := e.validateInput(req.Underlying, req.Amount, req.OnBehalf)
	if err != nil {
		return nil, err
	}

	if ms.market.IsRepayPaused {
		return nil, core.ErrRepayIsPaused
	}

	return ms, nil
}

func (e *Engine) validateWithdraw(req core.Request) (*marketState, error) {
	ms, err := e.validateInput(req.Underlying, req.Amount, req.Receiver, req.OnBehalf)
	if err != nil {
		return nil, err
	}

	if err := e.validateManager(req); err != nil {
		return nil, err
	}

	if ms.market.IsWithdrawPaused {
		return nil, core.ErrWithdrawIsPaused
	}

	return ms, nil
}

func (e *Engine) validateWithdrawCollateral(req core.Request) (*marketState, error) {
	ms, err := e.validateInput(req.Underlying, req.Amount, req.Receiver, req.OnBehalf)
	if err != nil {
		return nil, err
	}

	if err := e.validateManager(req); err != nil {
		return nil, err
	}

	if ms.market.IsWithdrawCollateralPaused {
		return nil, core.ErrWithdrawCollateralIsPaused
	}

	return ms, nil
}

func (e *Engine) validateLiquidate(req core.LiquidateRequest) (borrowed, collateral *marketState, err error) {
	if req.Borrower == zeroAddress {
		return nil, nil, core.ErrAddressIsZero
	}

	if req.Amount == nil || req.Amount.IsZero() {
		return nil, nil, core.ErrAmountIsZero
	}

	var ok bool
	if collateral, ok = e.marketState(req.Collateral); !ok {
		return nil, nil, core.ErrMarketNotCreated
	}

	if borrowed, ok = e.marketState(req.Borrowed); !ok {
		return nil, nil, core.ErrMarketNotCreated
	}

	if collateral.market.IsLiquidateCollateralPaused {
		return nil, nil, core.ErrLiquidateCollateralIsPaused
	}

	if borrowed.market.IsLiquidateBorrowPaused {
		return nil, nil, core.ErrLiquidateBorrowIsPaused
	}

	if _, ok := e.collaterals[req.Borrower][req.Collateral]; !ok {
		return nil, nil, core.ErrCollateralIsZero
	}

	if _, ok := e.borrows[req.Borrower][req.Borrowed]; !ok {
		return nil, nil, core.ErrDebtIsZero
	}

	return borrowed, collateral, nil
}
