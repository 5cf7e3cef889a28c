package rest

import (
	"fmt"
	"net/http"

	"p2plend/core"
	"p2plend/handler/param"
	"p2plend/handler/render"
	"p2plend/handler/views"
	"p2plend/service/lending"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
)

// pauseAll pauses or unpauses every action of a market
const pauseAll = "all"

func createMarketHandler(engine *lending.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Asset          string `json:"asset" valid:"required"`
			ReserveFactor  uint16 `json:"reserve_factor"`
			P2PIndexCursor uint16 `json:"p2p_index_cursor"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		asset, err := parseAddress(params.Asset)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		market, err := engine.CreateMarket(r.Context(), asset, params.ReserveFactor, params.P2PIndexCursor)
		if err != nil {
			render.Err(w, err)
			return
		}

		render.JSON(w, market)
	}
}

func pauseHandler(engine *lending.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		asset, err := parseAddress(chi.URLParam(r, "asset"))
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		var params struct {
			Flag   string `json:"flag" valid:"required"`
			Paused bool   `json:"paused"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		if params.Flag == pauseAll {
			err = engine.SetPausedForAll(ctx, asset, params.Paused)
		} else if !isPauseFlag(params.Flag) {
			render.BadRequest(w, fmt.Errorf("unknown pause flag %q", params.Flag))
			return
		} else {
			err = engine.SetPaused(ctx, asset, core.PauseFlag(params.Flag), params.Paused)
		}

		if err != nil {
			render.Err(w, err)
			return
		}

		renderMarket(w, r, engine, asset)
	}
}

func isPauseFlag(flag string) bool {
	for _, f := range core.PauseFlags {
		if string(f) == flag {
			return true
		}
	}

	return false
}

func parametersHandler(engine *lending.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		asset, err := parseAddress(chi.URLParam(r, "asset"))
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		var params struct {
			ReserveFactor  *uint16 `json:"reserve_factor"`
			P2PIndexCursor *uint16 `json:"p2p_index_cursor"`
			IsCollateral   *bool   `json:"is_collateral"`
			IsDeprecated   *bool   `json:"is_deprecated"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		if params.ReserveFactor != nil {
			err = engine.SetReserveFactor(ctx, asset, *params.ReserveFactor)
		}

		if err == nil && params.P2PIndexCursor != nil {
			err = engine.SetP2PIndexCursor(ctx, asset, *params.P2PIndexCursor)
		}

		if err == nil && params.IsCollateral != nil {
			err = engine.SetAssetIsCollateral(ctx, asset, *params.IsCollateral)
		}

		if err == nil && params.IsDeprecated != nil {
			err = engine.SetIsDeprecated(ctx, asset, *params.IsDeprecated)
		}

		if err != nil {
			render.Err(w, err)
			return
		}

		renderMarket(w, r, engine, asset)
	}
}

func increaseDeltasHandler(engine *lending.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := parseAddress(chi.URLParam(r, "asset"))
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		var params struct {
			Amount string `json:"amount" valid:"required"`
		}

		if err := param.Binding(r, &params); err != nil {
			render.BadRequest(w, err)
			return
		}

		amount, err := parseAmount(params.Amount)
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		increased, err := engine.IncreaseP2PDeltas(r.Context(), asset, amount)
		if err != nil {
			render.Err(w, err)
			return
		}

		render.JSON(w, render.H{"increased": increased})
	}
}

func iterationsHandler(engine *lending.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var iterations core.Iterations
		if err := param.Binding(r, &iterations); err != nil {
			render.BadRequest(w, err)
			return
		}

		engine.SetDefaultIterations(iterations)
		render.JSON(w, engine.DefaultIterations())
	}
}

func renderMarket(w http.ResponseWriter, r *http.Request, engine *lending.Engine, asset common.Address) {
	market, err := engine.Market(asset)
	if err != nil {
		render.Err(w, err)
		return
	}

	indexes, err := engine.ComputeIndexes(r.Context(), asset)
	if err != nil {
		render.Err(w, err)
		return
	}

	render.JSON(w, views.NewMarket(market, indexes))
}
