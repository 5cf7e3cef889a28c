package notifier

import (
	"context"
	"sync"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Logger writes every event to the context logger
type Logger struct{}

// NewLogger new logger notifier
func NewLogger() core.Notifier {
	return Logger{}
}

// Notify implements core.Notifier
func (Logger) Notify(ctx context.Context, events []*core.Event) {
	log := logger.FromContext(ctx)
	for _, e := range events {
		log.WithFields(Fields(e)).Debugln(e.Kind)
	}
}

// Fields logrus fields of an event, empty fields are omitted
func Fields(e *core.Event) logrus.Fields {
	fields := logrus.Fields{
		"event":      e.ID,
		"kind":       e.Kind,
		"underlying": e.Underlying.Hex(),
	}

	var zero common.Address
	if e.Caller != zero {
		fields["caller"] = e.Caller.Hex()
	}
	if e.OnBehalf != zero {
		fields["on_behalf"] = e.OnBehalf.Hex()
	}
	if e.Receiver != zero {
		fields["receiver"] = e.Receiver.Hex()
	}
	if e.Amount != nil {
		fields["amount"] = e.Amount.Dec()
	}
	if e.ScaledOnPool != nil {
		fields["scaled_on_pool"] = e.ScaledOnPool.Dec()
	}
	if e.ScaledInP2P != nil {
		fields["scaled_in_p2p"] = e.ScaledInP2P.Dec()
	}
	if e.Seized != nil {
		fields["collateral"] = e.CollateralUnderlying.Hex()
		fields["seized"] = e.Seized.Dec()
	}
	if e.Idle != nil {
		fields["idle"] = e.Idle.Dec()
	}
	if idx := e.Indexes; idx != nil {
		fields["pool_supply_index"] = idx.Supply.PoolIndex.Dec()
		fields["p2p_supply_index"] = idx.Supply.P2PIndex.Dec()
		fields["pool_borrow_index"] = idx.Borrow.PoolIndex.Dec()
		fields["p2p_borrow_index"] = idx.Borrow.P2PIndex.Dec()
	}
	if d := e.Deltas; d != nil {
		fields["supply_delta"] = d.Supply.ScaledDelta.Dec()
		fields["supply_p2p_total"] = d.Supply.ScaledP2PTotal.Dec()
		fields["borrow_delta"] = d.Borrow.ScaledDelta.Dec()
		fields["borrow_p2p_total"] = d.Borrow.ScaledP2PTotal.Dec()
	}

	return fields
}

// Recorder keeps the latest events in memory
type Recorder struct {
	mux    sync.RWMutex
	limit  int
	events []*core.Event
}

// NewRecorder keeps at most limit events, limit <= 0 keeps all
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Notify implements core.Notifier
func (r *Recorder) Notify(_ context.Context, events []*core.Event) {
	r.mux.Lock()
	defer r.mux.Unlock()

	r.events = append(r.events, events...)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = append([]*core.Event(nil), r.events[len(r.events)-r.limit:]...)
	}
}

// Events recorded events, oldest first
func (r *Recorder) Events() []*core.Event {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return append([]*core.Event(nil), r.events...)
}

// Kinds kinds of the recorded events, oldest first
func (r *Recorder) Kinds() []core.EventKind {
	r.mux.RLock()
	defer r.mux.RUnlock()

	kinds := make([]core.EventKind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}

	return kinds
}

// Reset drops every recorded event
func (r *Recorder) Reset() {
	r.mux.Lock()
	r.events = nil
	r.mux.Unlock()
}

// Multi fans events out to every notifier
func Multi(notifiers ...core.Notifier) core.Notifier {
	return multi(notifiers)
}

type multi []core.Notifier

func (m multi) Notify(ctx context.Context, events []*core.Event) {
	for _, n := range m {
		n.Notify(ctx, events)
	}
}
