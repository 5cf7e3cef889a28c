package rest

import (
	"context"
	"net/http"

	"p2plend/core"
	"p2plend/handler/render"
	"p2plend/handler/views"
	"p2plend/service/lending"

	"github.com/go-chi/chi"
)

func allMarketsHandler(engine *lending.Engine, rates RateSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		markets := engine.Markets()
		marketViews := make([]*views.Market, 0, len(markets))
		for _, m := range markets {
			view, err := getMarketView(ctx, engine, rates, m)
			if err != nil {
				render.Err(w, err)
				return
			}

			marketViews = append(marketViews, view)
		}

		render.JSON(w, marketViews)
	}
}

func marketHandler(engine *lending.Engine, rates RateSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, err := parseAddress(chi.URLParam(r, "asset"))
		if err != nil {
			render.BadRequest(w, err)
			return
		}

		market, err := engine.Market(asset)
		if err != nil {
			render.Err(w, err)
			return
		}

		view, err := getMarketView(r.Context(), engine, rates, market)
		if err != nil {
			render.Err(w, err)
			return
		}

		render.JSON(w, view)
	}
}

func getMarketView(ctx context.Context, engine *lending.Engine, rates RateSource, market *core.Market) (*views.Market, error) {
	indexes, err := engine.ComputeIndexes(ctx, market.Underlying)
	if err != nil {
		return nil, err
	}

	view := views.NewMarket(market, indexes)
	if rates != nil {
		if supplyRate, borrowRate, err := rates.Rates(market.Underlying); err == nil {
			view.PoolSupplyRate = supplyRate
			view.PoolBorrowRate = borrowRate
		}
	}

	return view, nil
}
