package lending

import (
	"bytes"
	"sort"

	"p2plend/core"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot full engine state. Ordered sets and membership are derived from
// the positions and are rebuilt on import.
type Snapshot struct {
	Markets   []*core.Market   `json:"markets"`
	Positions []*core.Position `json:"positions"`
	Approvals []core.Approval  `json:"approvals,omitempty"`
}

// Export copies the engine state, markets in creation order
func (e *Engine) Export() Snapshot {
	e.mux.Lock()
	defer e.mux.Unlock()

	var s Snapshot
	for _, underlying := range e.marketIDs {
		s.Markets = append(s.Markets, e.markets[underlying].market.Clone())

		users := make([]common.Address, 0, len(e.positions[underlying]))
		for user := range e.positions[underlying] {
			users = append(users, user)
		}
		sort.Slice(users, func(i, j int) bool {
			return bytes.Compare(users[i][:], users[j][:]) < 0
		})

		for _, user := range users {
			if p := e.positions[underlying][user]; !p.IsEmpty() {
				s.Positions = append(s.Positions, p.Clone())
			}
		}
	}

	for delegator, managers := range e.managers {
		for manager := range managers {
			s.Approvals = append(s.Approvals, core.Approval{Delegator: delegator, Manager: manager})
		}
	}

	sort.Slice(s.Approvals, func(i, j int) bool {
		a, b := s.Approvals[i], s.Approvals[j]
		if c := bytes.Compare(a.Delegator[:], b.Delegator[:]); c != 0 {
			return c < 0
		}

		return bytes.Compare(a.Manager[:], b.Manager[:]) < 0
	})

	return s
}

// Import replaces the engine state with s. Positions of unknown markets are
// skipped.
func (e *Engine) Import(s Snapshot) {
	e.mux.Lock()
	defer e.mux.Unlock()

	e.markets = make(map[common.Address]*marketState, len(s.Markets))
	e.marketIDs = e.marketIDs[:0]
	e.positions = make(map[common.Address]map[common.Address]*core.Position)
	e.collaterals = make(map[common.Address]membership)
	e.borrows = make(map[common.Address]membership)
	e.managers = make(map[common.Address]map[common.Address]bool)

	for _, m := range s.Markets {
		if _, ok := e.markets[m.Underlying]; ok {
			continue
		}

		e.markets[m.Underlying] = e.newMarketState(m.Clone())
		e.marketIDs = append(e.marketIDs, m.Underlying)
	}

	for _, p := range s.Positions {
		ms, ok := e.markets[p.Underlying]
		if !ok {
			continue
		}

		p = p.Clone()
		if e.positions[p.Underlying] == nil {
			e.positions[p.Underlying] = make(map[common.Address]*core.Position)
		}
		e.positions[p.Underlying][p.User] = p

		ms.suppliersPool.Update(p.User, p.SupplyPool)
		ms.suppliersP2P.Update(p.User, p.SupplyP2P)
		ms.borrowersPool.Update(p.User, p.BorrowPool)
		ms.borrowersP2P.Update(p.User, p.BorrowP2P)

		if !p.Collateral.IsZero() {
			addMember(e.collaterals, p.User, p.Underlying)
		}
		if !p.BorrowPool.IsZero() || !p.BorrowP2P.IsZero() {
			addMember(e.borrows, p.User, p.Underlying)
		}
	}

	for _, a := range s.Approvals {
		if e.managers[a.Delegator] == nil {
			e.managers[a.Delegator] = make(map[common.Address]bool)
		}
		e.managers[a.Delegator][a.Manager] = true
	}
}

func addMember(all map[common.Address]membership, user, underlying common.Address) {
	if all[user] == nil {
		all[user] = make(membership)
	}

	all[user][underlying] = struct{}{}
}
