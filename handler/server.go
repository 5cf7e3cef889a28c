package handler

import (
	"net/http"

	"p2plend/core"
	"p2plend/handler/auth"
	"p2plend/handler/rest"
	"p2plend/service/lending"
	"p2plend/service/notifier"

	"github.com/go-chi/chi"
)

// Server server
type Server struct {
	cfg      *core.Config
	engine   *lending.Engine
	rates    rest.RateSource
	recorder *notifier.Recorder
}

// New new server function, rates and recorder are optional
func New(
	cfg *core.Config,
	engine *lending.Engine,
	rates rest.RateSource,
	recorder *notifier.Recorder,
) Server {
	return Server{
		cfg:      cfg,
		engine:   engine,
		rates:    rates,
		recorder: recorder,
	}
}

// HandleRestAPI handle restful apis
func (s Server) HandleRestAPI() http.Handler {
	r := chi.NewRouter()
	r.Use(auth.HandleAuthentication())
	r.Mount("/", rest.Handle(s.cfg, s.engine, s.rates, s.recorder))
	return r
}
