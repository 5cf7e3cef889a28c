package auth

import (
	"errors"
	"net/http"

	"p2plend/core"
	"p2plend/handler/render"
	"p2plend/handler/request"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
)

// CallerHeader header carrying the calling account
const CallerHeader = "X-Account"

// HandleAuthentication puts the calling account into the request context.
// The sandbox trusts the header, requests without it are anonymous.
func HandleAuthentication() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logger.FromContext(ctx)

			account := r.Header.Get(CallerHeader)
			if account == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !common.IsHexAddress(account) {
				log.Debugln("invalid caller", account)
				next.ServeHTTP(w, r)
				return
			}

			caller := common.HexToAddress(account)
			log = log.WithField("caller", caller.Hex())
			ctx = logger.WithContext(ctx, log)
			next.ServeHTTP(w, r.WithContext(request.NewContext(ctx).WithCaller(caller)))
		}

		return http.HandlerFunc(fn)
	}
}

// LoginRequired rejects anonymous requests
func LoginRequired() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			if _, ok := request.NewContext(r.Context()).GetCaller(); !ok {
				render.Error(w, http.StatusUnauthorized, int(core.ErrPermissionDenied), errors.New("login required"))
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}

// AdminRequired rejects callers that are not admins
func AdminRequired(cfg *core.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			caller, ok := request.NewContext(r.Context()).GetCaller()
			if !ok || !cfg.IsAdmin(caller.Hex()) {
				render.Forbidden(w, core.ErrPermissionDenied)
				return
			}

			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
