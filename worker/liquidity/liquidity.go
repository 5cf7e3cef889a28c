package liquidity

import (
	"context"
	"sync"
	"time"

	"p2plend/pkg/number"
	"p2plend/worker"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
)

// Engine what the scanner needs from the matching engine
type Engine interface {
	Borrowers() []common.Address
	HealthFactor(ctx context.Context, user common.Address) (*uint256.Int, error)
}

// Worker reports borrowers whose health factor dropped below one
type Worker struct {
	*worker.BaseJob
	engine Engine

	mux          sync.Mutex
	liquidatable []common.Address
}

// New new liquidity scanner
func New(spec string, location *time.Location, engine Engine) (*Worker, error) {
	w := &Worker{engine: engine}

	job, err := worker.NewBaseJob("liquidity", spec, location, w.onWork)
	if err != nil {
		return nil, err
	}

	w.BaseJob = job
	return w, nil
}

// Liquidatable borrowers found by the last round
func (w *Worker) Liquidatable() []common.Address {
	w.mux.Lock()
	defer w.mux.Unlock()

	return append([]common.Address(nil), w.liquidatable...)
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx)

	var found []common.Address
	for _, user := range w.engine.Borrowers() {
		hf, err := w.engine.HealthFactor(ctx, user)
		if err != nil {
			log.WithError(err).Errorln("health factor of", user.Hex())
			continue
		}

		if hf.Lt(number.Wad) {
			log.WithFields(logrus.Fields{
				"borrower":      user.Hex(),
				"health_factor": number.ToDecimal(hf, 18).String(),
			}).Warnln("borrower liquidatable")
			found = append(found, user)
		}
	}

	w.mux.Lock()
	w.liquidatable = found
	w.mux.Unlock()

	return nil
}
