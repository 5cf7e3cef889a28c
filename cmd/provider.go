package cmd

import (
	"context"
	"errors"
	"time"

	"p2plend/core"
	"p2plend/service/lending"
	"p2plend/service/notifier"
	"p2plend/service/oracle"
	"p2plend/service/pool"
	"p2plend/service/state"
	"p2plend/store/approval"
	"p2plend/store/market"
	"p2plend/store/position"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
)

func provideDatabase() *db.DB {
	return db.MustOpen(cfg.DB)
}

func provideConfig() *core.Config {
	return &cfg
}

func provideMarketStore(db *db.DB) core.MarketStore {
	return market.New(db)
}

func providePositionStore(db *db.DB) core.PositionStore {
	return position.New(db)
}

func provideApprovalStore(db *db.DB) core.ApprovalStore {
	return approval.New(db)
}

func provideStateService(db *db.DB) *state.Service {
	return state.New(
		db,
		provideMarketStore(db),
		providePositionStore(db),
		provideApprovalStore(db),
	)
}

func providePool() *pool.Pool {
	p, err := pool.NewFromConfig(cfg.Pool)
	if err != nil {
		panic(err)
	}

	return p
}

// provideOracle the static oracle always acts as sentinel, prices come from
// the remote endpoint when one is configured
func provideOracle() (core.Oracle, core.OracleSentinel) {
	static, err := oracle.NewStaticFromConfig(cfg.Oracle, cfg.Sentinel)
	if err != nil {
		panic(err)
	}

	if cfg.Oracle.EndPoint == "" {
		return static, static
	}

	ttl := time.Duration(cfg.Oracle.PriceTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}

	return oracle.Cache(oracle.NewRemote(cfg.Oracle.EndPoint), ttl), static
}

func provideEngine(p core.Pool, opts ...lending.Option) *lending.Engine {
	o, sentinel := provideOracle()

	opts = append([]lending.Option{
		lending.WithSentinel(sentinel),
		lending.WithIterations(cfg.Engine.Iterations),
		lending.WithMaxSortedUsers(cfg.Engine.MaxSortedUsers),
	}, opts...)

	return lending.New(p, o, opts...)
}

// createMarkets creates the configured markets, markets restored from the
// database are left untouched
func createMarkets(ctx context.Context, engine *lending.Engine) error {
	log := logger.FromContext(ctx)

	for _, m := range cfg.Markets {
		created, err := engine.CreateMarket(ctx, common.HexToAddress(m.Asset), m.ReserveFactor, m.P2PIndexCursor)
		if err != nil {
			var code core.ErrorCode
			if errors.As(err, &code) && code == core.ErrMarketAlreadyCreated {
				continue
			}

			return err
		}

		log.Infoln("market created", created.Underlying.Hex())
	}

	return nil
}

func provideNotifier(notifiers ...core.Notifier) core.Notifier {
	return notifier.Multi(append([]core.Notifier{notifier.NewLogger()}, notifiers...)...)
}
