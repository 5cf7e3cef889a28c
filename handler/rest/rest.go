package rest

import (
	"errors"
	"fmt"
	"net/http"

	"p2plend/core"
	"p2plend/handler/auth"
	"p2plend/handler/render"
	"p2plend/pkg/number"
	"p2plend/service/lending"
	"p2plend/service/notifier"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// RateSource reports the annual pool rates of an asset
type RateSource interface {
	Rates(asset common.Address) (supplyRate, borrowRate decimal.Decimal, err error)
}

// Handle handle rest api request, rates and recorder may be nil
func Handle(cfg *core.Config, engine *lending.Engine, rates RateSource, recorder *notifier.Recorder) http.Handler {
	router := chi.NewRouter()

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.NotFoundRequest(w, errors.New("not found"))
	})

	router.Get("/markets", allMarketsHandler(engine, rates))
	router.Get("/markets/{asset}", marketHandler(engine, rates))
	router.Get("/users/{user}", userHandler(engine))
	if recorder != nil {
		router.Get("/events", eventsHandler(recorder))
	}

	router.Group(func(r chi.Router) {
		r.Use(auth.LoginRequired())
		r.Post("/actions/{action}", actionHandler(engine))
		r.Post("/managers", approveManagerHandler(engine))
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(auth.AdminRequired(cfg))
		r.Post("/markets", createMarketHandler(engine))
		r.Post("/markets/{asset}/pause", pauseHandler(engine))
		r.Post("/markets/{asset}/parameters", parametersHandler(engine))
		r.Post("/markets/{asset}/deltas", increaseDeltasHandler(engine))
		r.Put("/iterations", iterationsHandler(engine))
	})

	return router
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}

	return common.HexToAddress(s), nil
}

// parseAddressOr parses s, empty s gives def
func parseAddressOr(s string, def common.Address) (common.Address, error) {
	if s == "" {
		return def, nil
	}

	return parseAddress(s)
}

func parseAmount(s string) (*uint256.Int, error) {
	amount, err := number.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return amount, nil
}
