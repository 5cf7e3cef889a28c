package rest

import (
	"context"
	"fmt"
	"net/http"

	"p2plend/core"
	"p2plend/handler/param"
	"p2plend/handler/render"
	"p2plend/handler/request"
	"p2plend/handler/views"
	"p2plend/service/lending"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
)

type actionParams struct {
	Underlying    string `json:"underlying"`
	Amount        string `json:"amount" valid:"required"`
	OnBehalf      string `json:"on_behalf"`
	Receiver      string `json:"receiver"`
	MaxIterations *int   `json:"max_iterations"`
	// liquidate only
	Borrowed   string `json:"borrowed"`
	Collateral string `json:"collateral"`
	Borrower   string `json:"borrower"`
}

type actionFunc func(ctx context.Context, req core.Request) (core.Movement, error)

func actions(engine *lending.Engine) map[core.ActionType]actionFunc {
	return map[core.ActionType]actionFunc{
		core.ActionSupply:             engine.Supply,
		core.ActionSupplyCollateral:   engine.SupplyCollateral,
		core.ActionBorrow:             engine.Borrow,
		core.ActionRepay:              engine.Repay,
		core.ActionWithdraw:           engine.Withdraw,
		core.ActionWithdrawCollateral: engine.WithdrawCollateral,
	}
}

func actionHandler(engine *lending.Engine) http.HandlerFunc {
	handlers := actions(engine)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, _ := request.NewContext(ctx).GetCaller()
		action := core.ActionType(chi.URLParam(r, "action"))

		var params actionParams
		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		amount, err := parseAmount(params.Amount)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		if action == core.ActionLiquidate {
			req, err := liquidateRequest(params, caller)
			if err != nil {
				render.BadRequest(w, err)
				return
			}

			req.Amount = amount
			result, err := engine.Liquidate(ctx, req)
			if err != nil {
				render.Err(w, err)
				return
			}

			render.JSON(w, views.Liquidation{Repaid: result.Repaid, Seized: result.Seized})
			return
		}

		handle, ok := handlers[action]
		if !ok {
			render.NotFoundRequest(w, fmt.Errorf("unknown action %q", action))
			return
		}

		req, err := actionRequest(params, caller)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		req.Amount = amount
		mv, err := handle(ctx, req)
		if err != nil {
			render.Err(w, err)
			return
		}

		render.JSON(w, views.NewMovement(action, mv))
	}
}

// actionRequest the position owner and the receiver default to the caller
func actionRequest(params actionParams, caller common.Address) (core.Request, error) {
	req := core.Request{
		Caller:        caller,
		MaxIterations: params.MaxIterations,
	}

	var err error
	if req.Underlying, err = parseAddress(params.Underlying); err != nil {
		return req, err
	}

	if req.OnBehalf, err = parseAddressOr(params.OnBehalf, caller); err != nil {
		return req, err
	}

	if req.Receiver, err = parseAddressOr(params.Receiver, caller); err != nil {
		return req, err
	}

	return req, nil
}

func liquidateRequest(params actionParams, caller common.Address) (core.LiquidateRequest, error) {
	req := core.LiquidateRequest{Liquidator: caller}

	var err error
	if req.Borrowed, err = parseAddress(params.Borrowed); err != nil {
		return req, err
	}

	if req.Collateral, err = parseAddress(params.Collateral); err != nil {
		return req, err
	}

	if req.Borrower, err = parseAddress(params.Borrower); err != nil {
		return req, err
	}

	return req, nil
}

func approveManagerHandler(engine *lending.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		caller, _ := request.NewContext(ctx).GetCaller()

		var params struct {
			Manager string `json:"manager" valid:"required"`
			Allowed bool   `json:"allowed"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		manager, err := parseAddress(params.Manager)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		if err := engine.ApproveManager(ctx, caller, manager, params.Allowed); err != nil {
			render.Err(w, err)
			return
		}

		render.JSON(w, render.H{"manager": manager, "allowed": params.Allowed})
	}
}
