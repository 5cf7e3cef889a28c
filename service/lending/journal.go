package lending

import (
	"context"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fox-one/pkg/logger"
	"github.com/sirupsen/logrus"
)

type positionKey struct {
	underlying common.Address
	user       common.Address
}

// journal keeps the state an action overwrote so it can be put back
type journal struct {
	traceID string
	events  []*core.Event

	// nil snapshots mark entries created by the action
	markets       map[common.Address]*marketState
	marketOrder   []common.Address
	marketIDs     int
	positions     map[positionKey]*core.Position
	positionOrder []positionKey
	collaterals   map[common.Address]membership
	borrows       map[common.Address]membership

	// pool calls already made, undone in reverse order
	undos []undo
}

func newJournal(traceID string) *journal {
	return &journal{
		traceID:     traceID,
		markets:     make(map[common.Address]*marketState),
		marketIDs:   -1,
		positions:   make(map[positionKey]*core.Position),
		collaterals: make(map[common.Address]membership),
		borrows:     make(map[common.Address]membership),
	}
}

// touchMarket records the market and its counterparty sets before they change
func (e *Engine) touchMarket(underlying common.Address) {
	j := e.j
	if _, ok := j.markets[underlying]; ok {
		return
	}

	if j.marketIDs < 0 {
		j.marketIDs = len(e.marketIDs)
	}

	var snapshot *marketState
	if ms, ok := e.markets[underlying]; ok {
		snapshot = ms.clone()
	}

	j.markets[underlying] = snapshot
	j.marketOrder = append(j.marketOrder, underlying)
}

func (e *Engine) touchPosition(underlying, user common.Address) {
	j := e.j
	key := positionKey{underlying: underlying, user: user}
	if _, ok := j.positions[key]; ok {
		return
	}

	var snapshot *core.Position
	if p, ok := e.positions[underlying][user]; ok {
		snapshot = p.Clone()
	}

	j.positions[key] = snapshot
	j.positionOrder = append(j.positionOrder, key)
}

func (e *Engine) touchMembership(user common.Address) {
	j := e.j
	if _, ok := j.collaterals[user]; ok {
		return
	}

	var collaterals, borrows membership
	if m, ok := e.collaterals[user]; ok {
		collaterals = m.clone()
	}
	if m, ok := e.borrows[user]; ok {
		borrows = m.clone()
	}

	j.collaterals[user] = collaterals
	j.borrows[user] = borrows
}

func (e *Engine) rollback(ctx context.Context, j *journal) {
	log := logger.FromContext(ctx)
	for i := len(j.undos) - 1; i >= 0; i-- {
		u := j.undos[i]
		if err := u.fn(ctx); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"op":         u.op,
				"underlying": u.underlying.Hex(),
				"amount":     u.amount.Dec(),
			}).Errorln("undo pool call")
		}
	}

	for underlying, snapshot := range j.markets {
		if snapshot == nil {
			delete(e.markets, underlying)
			continue
		}

		e.markets[underlying] = snapshot
	}

	if j.marketIDs >= 0 {
		e.marketIDs = e.marketIDs[:j.marketIDs]
	}

	for key, snapshot := range j.positions {
		if snapshot == nil {
			delete(e.positions[key.underlying], key.user)
			continue
		}

		if e.positions[key.underlying] == nil {
			e.positions[key.underlying] = make(map[common.Address]*core.Position)
		}

		e.positions[key.underlying][key.user] = snapshot
	}

	for user, snapshot := range j.collaterals {
		restoreMembership(e.collaterals, user, snapshot)
	}

	for user, snapshot := range j.borrows {
		restoreMembership(e.borrows, user, snapshot)
	}
}

func restoreMembership(all map[common.Address]membership, user common.Address, snapshot membership) {
	if snapshot == nil {
		delete(all, user)
		return
	}

	all[user] = snapshot
}
