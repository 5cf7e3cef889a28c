package indexes

import (
	"context"
	"time"

	"p2plend/core"
	"p2plend/worker"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
)

// Engine what the keeper needs from the matching engine
type Engine interface {
	Markets() []*core.Market
	UpdateIndexes(ctx context.Context, underlying common.Address) (core.Indexes, error)
}

// Worker keeps the stored indexes of idle markets fresh, every update goes
// through the engine commit hook
type Worker struct {
	*worker.BaseJob
	engine Engine
}

// New new index keeper
func New(spec string, location *time.Location, engine Engine) (*Worker, error) {
	w := &Worker{engine: engine}

	job, err := worker.NewBaseJob("indexes", spec, location, w.onWork)
	if err != nil {
		return nil, err
	}

	w.BaseJob = job
	return w, nil
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx)

	var failed error
	for _, m := range w.engine.Markets() {
		if m.IsDeprecated {
			continue
		}

		indexes, err := w.engine.UpdateIndexes(ctx, m.Underlying)
		if err != nil {
			log.WithError(err).Errorln("update indexes of", m.Underlying.Hex())
			failed = err
			continue
		}

		log.Debugln("indexes updated", m.Underlying.Hex(), indexes.Supply.PoolIndex.Dec(), indexes.Borrow.PoolIndex.Dec())
	}

	return failed
}
