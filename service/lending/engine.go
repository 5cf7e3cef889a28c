// Package lending is the peer-to-peer matching engine. It keeps the market
// registry, the users' scaled balances and the ordered counterparty sets, and
// moves liquidity between the peer-to-peer domain and the pool.
package lending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"p2plend/core"
	"p2plend/internal/interest"
	"p2plend/pkg/id"
	"p2plend/pkg/number"
	"p2plend/pkg/sorted"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
)

// CommitHook receives the markets and positions touched by a committed action
type CommitHook func(ctx context.Context, markets []*core.Market, positions []*core.Position)

type marketState struct {
	market *core.Market

	suppliersPool *sorted.Set
	suppliersP2P  *sorted.Set
	borrowersPool *sorted.Set
	borrowersP2P  *sorted.Set
}

func (ms *marketState) clone() *marketState {
	return &marketState{
		market:        ms.market.Clone(),
		suppliersPool: ms.suppliersPool.Clone(),
		suppliersP2P:  ms.suppliersP2P.Clone(),
		borrowersPool: ms.borrowersPool.Clone(),
		borrowersP2P:  ms.borrowersP2P.Clone(),
	}
}

type membership map[common.Address]struct{}

func (m membership) clone() membership {
	c := make(membership, len(m))
	for k := range m {
		c[k] = struct{}{}
	}

	return c
}

// Engine matching engine
type Engine struct {
	mux sync.Mutex

	pool     core.Pool
	oracle   core.Oracle
	sentinel core.OracleSentinel
	notifier core.Notifier
	model    interest.Model
	clock    func() time.Time
	onCommit CommitHook

	iterations core.Iterations
	maxSorted  int

	markets   map[common.Address]*marketState
	marketIDs []common.Address
	positions map[common.Address]map[common.Address]*core.Position
	// market membership by user
	collaterals map[common.Address]membership
	borrows     map[common.Address]membership
	// managers by delegator
	managers map[common.Address]map[common.Address]bool

	// journal of the running action, nil outside actions
	j *journal

	// committed actions waiting for delivery
	qmux     sync.Mutex
	pending  []commitment
	draining bool
}

// Option engine option
type Option func(e *Engine)

// WithSentinel sets the oracle sentinel, no sentinel allows everything
func WithSentinel(sentinel core.OracleSentinel) Option {
	return func(e *Engine) { e.sentinel = sentinel }
}

// WithNotifier sets the event notifier
func WithNotifier(notifier core.Notifier) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// WithModel overrides the peer-to-peer index model
func WithModel(model interest.Model) Option {
	return func(e *Engine) { e.model = model }
}

// WithClock overrides time.Now
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithIterations overrides the default iteration budgets
func WithIterations(iterations core.Iterations) Option {
	return func(e *Engine) {
		if !iterations.IsZero() {
			e.iterations = iterations
		}
	}
}

// WithMaxSortedUsers bounds the ordered part of every counterparty set
func WithMaxSortedUsers(n int) Option {
	return func(e *Engine) { e.maxSorted = n }
}

// WithCommitHook is called after every committed action
func WithCommitHook(hook CommitHook) Option {
	return func(e *Engine) { e.onCommit = hook }
}

// New new engine
func New(pool core.Pool, oracle core.Oracle, opts ...Option) *Engine {
	e := &Engine{
		pool:        pool,
		oracle:      oracle,
		model:       interest.DefaultModel{},
		clock:       time.Now,
		iterations:  core.DefaultIterations,
		markets:     make(map[common.Address]*marketState),
		positions:   make(map[common.Address]map[common.Address]*core.Position),
		collaterals: make(map[common.Address]membership),
		borrows:     make(map[common.Address]membership),
		managers:    make(map[common.Address]map[common.Address]bool),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *Engine) now() uint64 {
	return uint64(e.clock().Unix())
}

type actionKey struct{}

// inAction reports whether ctx belongs to a running action
func inAction(ctx context.Context) bool {
	return ctx.Value(actionKey{}) != nil
}

// acquire locks the engine for a view, views reached from inside an action
// would deadlock so they fail instead
func (e *Engine) acquire(ctx context.Context) error {
	if inAction(ctx) {
		return core.ErrReentrantCall
	}

	e.mux.Lock()
	return nil
}

// run executes fn as one atomic action. Every change fn makes to the engine
// state and every pool call it made are rolled back when it returns an error
// or panics with an arithmetic error. Events and the commit hook are
// delivered after the engine is unlocked.
func (e *Engine) run(ctx context.Context, action string, fn func(ctx context.Context) error) (err error) {
	if inAction(ctx) {
		return core.ErrReentrantCall
	}

	traceID := id.GenTraceID()
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"action": action,
		"trace":  traceID,
	})
	ctx = logger.WithContext(ctx, log)
	outer := ctx

	defer e.drain()

	e.mux.Lock()
	defer e.mux.Unlock()

	e.j = newJournal(traceID)
	defer func() {
		j := e.j
		e.j = nil

		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok || !errors.Is(rerr, number.ErrArithmetic) {
				e.rollback(outer, j)
				panic(r)
			}

			err = fmt.Errorf("%w: %v", core.ErrArithmetic, rerr)
		}

		if err != nil {
			e.rollback(outer, j)
			log.WithError(err).Warnln("action rolled back")
			return
		}

		e.commit(outer, j)
	}()

	return fn(context.WithValue(ctx, actionKey{}, traceID))
}

// commitment what a committed action hands to the notifier and the hook
type commitment struct {
	ctx       context.Context
	events    []*core.Event
	markets   []*core.Market
	positions []*core.Position
}

// commit queues the outcome of the action, the caller holds the lock
func (e *Engine) commit(ctx context.Context, j *journal) {
	c := commitment{ctx: ctx, events: j.events}

	if e.onCommit != nil {
		c.markets = make([]*core.Market, 0, len(j.markets))
		for _, underlying := range j.marketOrder {
			c.markets = append(c.markets, e.markets[underlying].market.Clone())
		}

		c.positions = make([]*core.Position, 0, len(j.positions))
		for _, key := range j.positionOrder {
			if p, ok := e.positions[key.underlying][key.user]; ok {
				c.positions = append(c.positions, p.Clone())
			}
		}
	}

	e.qmux.Lock()
	e.pending = append(e.pending, c)
	e.qmux.Unlock()
}

// drain delivers the queued commitments in commit order. A single caller
// delivers at a time, actions started by a notifier only queue theirs.
func (e *Engine) drain() {
	for {
		e.qmux.Lock()
		if e.draining || len(e.pending) == 0 {
			e.qmux.Unlock()
			return
		}

		c := e.pending[0]
		e.pending = e.pending[1:]
		e.draining = true
		e.qmux.Unlock()

		e.deliver(c)
	}
}

func (e *Engine) deliver(c commitment) {
	defer func() {
		e.qmux.Lock()
		e.draining = false
		e.qmux.Unlock()
	}()

	if e.notifier != nil && len(c.events) > 0 {
		e.notifier.Notify(c.ctx, c.events)
	}

	if e.onCommit != nil {
		e.onCommit(c.ctx, c.markets, c.positions)
	}
}

// emit buffers an event of the running action
func (e *Engine) emit(event *core.Event) {
	j := e.j
	event.ID = id.EventID(j.traceID, len(j.events))
	event.CreatedAt = e.clock()
	j.events = append(j.events, event)
}

func (e *Engine) marketState(underlying common.Address) (*marketState, bool) {
	ms, ok := e.markets[underlying]
	return ms, ok
}

// iterationsFor the budget of action, a non nil override wins even when
// it is zero
func (e *Engine) iterationsFor(action core.ActionType, override *int) int {
	if override != nil {
		if *override < 0 {
			return 0
		}

		return *override
	}

	switch action {
	case core.ActionSupply:
		return e.iterations.Supply
	case core.ActionBorrow:
		return e.iterations.Borrow
	case core.ActionRepay, core.ActionLiquidate:
		return e.iterations.Repay
	default:
		return e.iterations.Withdraw
	}
}
