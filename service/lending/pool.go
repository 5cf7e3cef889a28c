package lending

import (
	"context"
	"fmt"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// poolDust is the largest gap tolerated between what the engine accounted
// for and what the pool paid out, both sides round their scaled balances
var poolDust = uint256.NewInt(10)

// undo reverts one pool call of a rolled back action
type undo struct {
	op         string
	underlying common.Address
	amount     *uint256.Int
	fn         func(ctx context.Context) error
}

func (e *Engine) undoLater(op string, underlying common.Address, amount *uint256.Int, fn func(ctx context.Context) error) {
	e.j.undos = append(e.j.undos, undo{
		op:         op,
		underlying: underlying,
		amount:     number.Copy(amount),
		fn:         fn,
	})
}

func (e *Engine) poolSupply(ctx context.Context, underlying common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	if err := e.pool.Supply(ctx, underlying, amount); err != nil {
		return fmt.Errorf("pool supply: %w", err)
	}

	amount = number.Copy(amount)
	e.undoLater("withdraw", underlying, amount, func(ctx context.Context) error {
		_, err := e.pool.Withdraw(ctx, underlying, amount)
		return err
	})

	return nil
}

// poolWithdraw returns what the pool actually paid out
func (e *Engine) poolWithdraw(ctx context.Context, underlying common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if amount.IsZero() {
		return number.Zero(), nil
	}

	withdrawn, err := e.pool.Withdraw(ctx, underlying, amount)
	if err != nil {
		return nil, fmt.Errorf("pool withdraw: %w", err)
	}

	if !withdrawn.IsZero() {
		supplied := number.Copy(withdrawn)
		e.undoLater("supply", underlying, supplied, func(ctx context.Context) error {
			return e.pool.Supply(ctx, underlying, supplied)
		})
	}

	return withdrawn, nil
}

// poolWithdrawExact fails with ErrPoolShortfall when the pool pays out
// noticeably less than amount
func (e *Engine) poolWithdrawExact(ctx context.Context, underlying common.Address, amount *uint256.Int) (*uint256.Int, error) {
	withdrawn, err := e.poolWithdraw(ctx, underlying, amount)
	if err != nil {
		return nil, err
	}

	if number.ZeroFloorSub(amount, withdrawn).Gt(poolDust) {
		return nil, fmt.Errorf("%w: asked %s, got %s", core.ErrPoolShortfall, amount.Dec(), withdrawn.Dec())
	}

	return withdrawn, nil
}

func (e *Engine) poolBorrow(ctx context.Context, underlying common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	if err := e.pool.Borrow(ctx, underlying, amount); err != nil {
		return fmt.Errorf("pool borrow: %w", err)
	}

	amount = number.Copy(amount)
	e.undoLater("repay", underlying, amount, func(ctx context.Context) error {
		return e.pool.Repay(ctx, underlying, amount)
	})

	return nil
}

func (e *Engine) poolRepay(ctx context.Context, underlying common.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	if err := e.pool.Repay(ctx, underlying, amount); err != nil {
		return fmt.Errorf("pool repay: %w", err)
	}

	amount = number.Copy(amount)
	e.undoLater("borrow", underlying, amount, func(ctx context.Context) error {
		return e.pool.Borrow(ctx, underlying, amount)
	})

	return nil
}

func (e *Engine) poolRepayThenSupply(ctx context.Context, underlying common.Address, toRepay, toSupply *uint256.Int) error {
	if err := e.poolRepay(ctx, underlying, toRepay); err != nil {
		return err
	}

	return e.poolSupply(ctx, underlying, toSupply)
}

// poolWithdrawThenBorrow returns the amount the pool actually paid out of
// toWithdraw
func (e *Engine) poolWithdrawThenBorrow(ctx context.Context, underlying common.Address, toWithdraw, toBorrow *uint256.Int) (*uint256.Int, error) {
	withdrawn, err := e.poolWithdrawExact(ctx, underlying, toWithdraw)
	if err != nil {
		return nil, err
	}

	if err := e.poolBorrow(ctx, underlying, toBorrow); err != nil {
		return nil, err
	}

	return withdrawn, nil
}
