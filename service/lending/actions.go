package lending

import (
	"context"

	"p2plend/core"
	"p2plend/pkg/number"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

func (e *Engine) emitAction(kind core.EventKind, req core.Request, amount *uint256.Int, borrowSide bool) {
	p := e.position(req.Underlying, req.OnBehalf)
	onPool, inP2P := p.SupplyPool, p.SupplyP2P
	if borrowSide {
		onPool, inP2P = p.BorrowPool, p.BorrowP2P
	}

	e.emit(&core.Event{
		Kind:         kind,
		Underlying:   req.Underlying,
		Caller:       req.Caller,
		OnBehalf:     req.OnBehalf,
		Receiver:     req.Receiver,
		Amount:       number.Copy(amount),
		ScaledOnPool: number.Copy(onPool),
		ScaledInP2P:  number.Copy(inP2P),
		Borrow:       borrowSide,
	})
}

func (e *Engine) emitCollateral(kind core.EventKind, req core.Request, amount *uint256.Int) {
	p := e.position(req.Underlying, req.OnBehalf)
	e.emit(&core.Event{
		Kind:         kind,
		Underlying:   req.Underlying,
		Caller:       req.Caller,
		OnBehalf:     req.OnBehalf,
		Receiver:     req.Receiver,
		Amount:       number.Copy(amount),
		ScaledOnPool: number.Copy(p.Collateral),
	})
}

func logAction(ctx context.Context, req core.Request, mv core.Movement) {
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"underlying": req.Underlying.Hex(),
		"on_behalf":  req.OnBehalf.Hex(),
		"amount":     mv.Amount.Dec(),
		"p2p":        mv.P2P.Dec(),
		"pool":       mv.Pool.Dec(),
		"idle":       mv.Idle.Dec(),
	}).Debugln("action committed")
}

// Supply lends amount on behalf of a user, matching it peer-to-peer first
func (e *Engine) Supply(ctx context.Context, req core.Request) (mv core.Movement, err error) {
	err = e.run(ctx, string(core.ActionSupply), func(ctx context.Context) error {
		ms, err := e.validateSupply(req)
		if err != nil {
			return err
		}

		indexes, err := e.updateIndexes(ctx, req.Underlying)
		if err != nil {
			return err
		}

		vars := e.accountSupply(ms, req.Amount, req.OnBehalf, e.iterationsFor(core.ActionSupply, req.MaxIterations), indexes)
		if err := e.poolRepayThenSupply(ctx, req.Underlying, vars.toRepay, vars.toSupply); err != nil {
			return err
		}

		e.emitAction(core.EventSupplied, req, req.Amount, false)

		mv = core.Movement{
			Amount: number.Copy(req.Amount),
			P2P:    number.Sub(req.Amount, vars.userPool),
			Pool:   vars.userPool,
			Idle:   number.Zero(),
		}
		logAction(ctx, req, mv)
		return nil
	})

	return
}

// SupplyCollateral deposits collateral on behalf of a user, collateral
// always rests on the pool
func (e *Engine) SupplyCollateral(ctx context.Context, req core.Request) (mv core.Movement, err error) {
	err = e.run(ctx, string(core.ActionSupplyCollateral), func(ctx context.Context) error {
		if _, err := e.validateSupplyCollateral(req); err != nil {
			return err
		}

		indexes, err := e.updateIndexes(ctx, req.Underlying)
		if err != nil {
			return err
		}

		p := e.position(req.Underlying, req.OnBehalf)
		collateral := number.Add(p.Collateral, number.RayDivDown(req.Amount, indexes.Supply.PoolIndex))
		e.updateCollateral(req.Underlying, req.OnBehalf, collateral)

		if err := e.poolSupply(ctx, req.Underlying, req.Amount); err != nil {
			return err
		}

		e.emitCollateral(core.EventCollateralSupplied, req, req.Amount)

		mv = core.Movement{
			Amount: number.Copy(req.Amount),
			P2P:    number.Zero(),
			Pool:   number.Copy(req.Amount),
			Idle:   number.Zero(),
		}
		logAction(ctx, req, mv)
		return nil
	})

	return
}

// authorizeBorrow checks the borrow cap of the pool reserve against the
// pool debt plus the matched peer-to-peer debt
func (e *Engine) authorizeBorrow(ctx context.Context, m *core.Market, amount *uint256.Int, indexes core.Indexes) error {
	caps, err := e.pool.GetReserveCaps(ctx, m.Underlying)
	if err != nil {
		return err
	}

	if caps.BorrowCap == 0 {
		return nil
	}

	reserve, err := e.pool.GetConfiguration(ctx, m.Underlying)
	if err != nil {
		return err
	}

	poolDebt, err := e.pool.TotalDebt(ctx, m.Underlying)
	if err != nil {
		return err
	}

	borrowCap := number.Mul(uint256.NewInt(caps.BorrowCap), number.Pow10(reserve.Decimals))
	total := number.Add(number.Add(amount, trueP2PBorrow(m, indexes)), poolDebt)
	if total.Gt(borrowCap) {
		return core.ErrExceedsBorrowCap
	}

	return nil
}

// Borrow borrows amount on behalf of a user, matching it peer-to-peer first
func (e *Engine) Borrow(ctx context.Context, req core.Request) (mv core.Movement, err error) {
	err = e.run(ctx, string(core.ActionBorrow), func(ctx context.Context) error {
		ms, err := e.validateBorrow(ctx, req)
		if err != nil {
			return err
		}

		indexes, err := e.updateIndexes(ctx, req.Underlying)
		if err != nil {
			return err
		}

		if err := e.authorizeBorrow(ctx, ms.market, req.Amount, indexes); err != nil {
			return err
		}

		e.addMembership(e.borrows, req.OnBehalf, req.Underlying)
		vars := e.accountBorrow(ms, req.Amount, req.OnBehalf, e.iterationsFor(core.ActionBorrow, req.MaxIterations), indexes)

		data, err := e.liquidityData(ctx, req.OnBehalf)
		if err != nil {
			return err
		}

		if data.Debt.Gt(data.Borrowable) {
			return core.ErrUnauthorizedBorrow
		}

		if _, err := e.poolWithdrawThenBorrow(ctx, req.Underlying, vars.toWithdraw, vars.toBorrow); err != nil {
			return err
		}

		e.emitAction(core.EventBorrowed, req, req.Amount, true)

		mv = core.Movement{
			Amount: number.Copy(req.Amount),
			P2P:    number.Sub(req.Amount, vars.userPool),
			Pool:   vars.userPool,
			Idle:   vars.idle,
		}
		logAction(ctx, req, mv)
		return nil
	})

	return
}

// repay accounts a repayment of at most the user's debt and moves the funds
// to the pool. It returns a zero movement when there is no debt.
func (e *Engine) repay(ctx context.Context, ms *marketState, req core.Request, maxIterations int, indexes core.Indexes) (core.Movement, error) {
	amount := number.Min(req.Amount, borrowBalance(e.position(req.Underlying, req.OnBehalf), indexes))
	if amount.IsZero() {
		return core.EmptyMovement(), nil
	}

	vars, err := e.accountRepay(ctx, ms, amount, req.OnBehalf, maxIterations, indexes)
	if err != nil {
		return core.Movement{}, err
	}

	e.updateBorrowMembership(req.Underlying, req.OnBehalf)

	if err := e.poolRepayThenSupply(ctx, req.Underlying, vars.toRepay, vars.toSupply); err != nil {
		return core.Movement{}, err
	}

	e.emitAction(core.EventRepaid, req, amount, true)

	return core.Movement{
		Amount: amount,
		P2P:    number.Sub(amount, vars.userPool),
		Pool:   vars.userPool,
		Idle:   vars.idle,
	}, nil
}

// Repay repays up to amount of a user's debt, anyone may repay for anyone
func (e *Engine) Repay(ctx context.Context, req core.Request) (mv core.Movement, err error) {
	err = e.run(ctx, string(core.ActionRepay), func(ctx context.Context) error {
		ms, err := e.validateRepay(req)
		if err != nil {
			return err
		}

		indexes, err := e.updateIndexes(ctx, req.Underlying)
		if err != nil {
			return err
		}

		mv, err = e.repay(ctx, ms, req, e.iterationsFor(core.ActionRepay, req.MaxIterations), indexes)
		if err != nil {
			return err
		}

		logAction(ctx, req, mv)
		return nil
	})

	return
}

// Withdraw withdraws up to amount of a user's supply to the receiver
func (e *Engine) Withdraw(ctx context.Context, req core.Request) (mv core.Movement, err error) {
	err = e.run(ctx, string(core.ActionWithdraw), func(ctx context.Context) error {
		ms, err := e.validateWithdraw(req)
		if err != nil {
			return err
		}

		indexes, err := e.updateIndexes(ctx, req.Underlying)
		if err != nil {
			return err
		}

		amount := number.Min(req.Amount, supplyBalance(e.position(req.Underlying, req.OnBehalf), indexes))
		if amount.IsZero() {
			mv = core.EmptyMovement()
			return nil
		}

		vars := e.accountWithdraw(ms, amount, req.OnBehalf, e.iterationsFor(core.ActionWithdraw, req.MaxIterations), indexes)

		withdrawn, err := e.poolWithdrawThenBorrow(ctx, req.Underlying, vars.toWithdraw, vars.toBorrow)
		if err != nil {
			return err
		}

		// the pool may pay out a few wei less than its rounded balance
		shortfall := number.ZeroFloorSub(vars.toWithdraw, withdrawn)
		amount = number.ZeroFloorSub(amount, shortfall)
		userPool := number.ZeroFloorSub(vars.userPool, shortfall)

		e.emitAction(core.EventWithdrawn, req, amount, false)

		mv = core.Movement{
			Amount: amount,
			P2P:    number.ZeroFloorSub(amount, userPool),
			Pool:   userPool,
			Idle:   vars.idle,
		}
		logAction(ctx, req, mv)
		return nil
	})

	return
}

// withdrawCollateral removes up to amount of collateral and returns the
// amount removed
func (e *Engine) withdrawCollateral(underlying, user common.Address, amount *uint256.Int, indexes core.Indexes) *uint256.Int {
	p := e.position(underlying, user)
	amount = number.Min(amount, collateralBalance(p, indexes))
	if amount.IsZero() {
		return amount
	}

	collateral := number.ZeroFloorSub(p.Collateral, number.RayDivUp(amount, indexes.Supply.PoolIndex))
	e.updateCollateral(underlying, user, collateral)
	return amount
}

// WithdrawCollateral withdraws up to amount of a user's collateral as long as
// the user stays healthy
func (e *Engine) WithdrawCollateral(ctx context.Context, req core.Request) (mv core.Movement, err error) {
	err = e.run(ctx, string(core.ActionWithdrawCollateral), func(ctx context.Context) error {
		if _, err := e.validateWithdrawCollateral(req); err != nil {
			return err
		}

		indexes, err := e.updateIndexes(ctx, req.Underlying)
		if err != nil {
			return err
		}

		amount := e.withdrawCollateral(req.Underlying, req.OnBehalf, req.Amount, indexes)
		if amount.IsZero() {
			mv = core.EmptyMovement()
			return nil
		}

		data, err := e.liquidityData(ctx, req.OnBehalf)
		if err != nil {
			return err
		}

		if healthFactor(data).Lt(number.Wad) {
			return core.ErrUnauthorizedWithdraw
		}

		withdrawn, err := e.poolWithdrawExact(ctx, req.Underlying, amount)
		if err != nil {
			return err
		}

		e.emitCollateral(core.EventCollateralWithdrawn, req, withdrawn)

		mv = core.Movement{
			Amount: withdrawn,
			P2P:    number.Zero(),
			Pool:   number.Copy(withdrawn),
			Idle:   number.Zero(),
		}
		logAction(ctx, req, mv)
		return nil
	})

	return
}
