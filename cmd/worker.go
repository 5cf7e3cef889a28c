package cmd

import (
	"context"
	"sync"
	"time"

	"p2plend/service/lending"
	"p2plend/worker/indexes"
	"p2plend/worker/liquidity"

	"github.com/fox-one/pkg/logger"
)

type servable interface {
	Serve(ctx context.Context) error
}

func provideWorkers(engine *lending.Engine) ([]servable, error) {
	location, err := time.LoadLocation(cfg.App.Location)
	if err != nil {
		return nil, err
	}

	keeper, err := indexes.New(cfg.Worker.Indexes, location, engine)
	if err != nil {
		return nil, err
	}

	scanner, err := liquidity.New(cfg.Worker.Liquidity, location, engine)
	if err != nil {
		return nil, err
	}

	return []servable{keeper, scanner}, nil
}

// runWorkers serves the background jobs until ctx is done, the returned
// group is done once every job stopped
func runWorkers(ctx context.Context, engine *lending.Engine) (*sync.WaitGroup, error) {
	wg := &sync.WaitGroup{}
	if cfg.Worker.Disabled {
		return wg, nil
	}

	workers, err := provideWorkers(engine)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	for _, w := range workers {
		wg.Add(1)

		go func(w servable) {
			defer wg.Done()
			if err := w.Serve(ctx); err != nil {
				log.WithError(err).Errorln("worker stopped")
			}
		}(w)
	}

	return wg, nil
}
