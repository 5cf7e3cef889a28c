package rest

import (
	"net/http"

	"p2plend/handler/render"
	"p2plend/handler/views"
	"p2plend/service/lending"

	"github.com/go-chi/chi"
)

func userHandler(engine *lending.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := parseAddress(chi.URLParam(r, "user"))
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		view := views.User{
			User:        user,
			Balances:    []*views.Balance{},
			Collaterals: engine.UserCollaterals(user),
			Borrows:     engine.UserBorrows(user),
		}

		for _, m := range engine.Markets() {
			p := engine.Position(m.Underlying, user)
			if p.IsEmpty() {
				continue
			}

			b := &views.Balance{Underlying: m.Underlying, Scaled: p}
			if b.Supply, err = engine.SupplyBalance(ctx, m.Underlying, user); err != nil {
				render.Err(w, err)
				return
			}

			if b.Borrow, err = engine.BorrowBalance(ctx, m.Underlying, user); err != nil {
				render.Err(w, err)
				return
			}

			if b.Collateral, err = engine.CollateralBalance(ctx, m.Underlying, user); err != nil {
				render.Err(w, err)
				return
			}

			view.Balances = append(view.Balances, b)
		}

		if view.Liquidity, err = engine.LiquidityData(ctx, user); err != nil {
			render.Err(w, err)
			return
		}

		if view.HealthFactor, err = engine.HealthFactor(ctx, user); err != nil {
			render.Err(w, err)
			return
		}

		render.JSON(w, view)
	}
}
