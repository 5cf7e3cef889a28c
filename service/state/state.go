// Package state persists the engine state and restores it on startup
package state

import (
	"context"

	"p2plend/core"
	"p2plend/service/lending"

	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/store/db"
)

// Service writes committed markets, positions and manager approvals to the
// stores
type Service struct {
	db        *db.DB
	markets   core.MarketStore
	positions core.PositionStore
	approvals core.ApprovalStore
}

// New new state service
func New(
	database *db.DB,
	markets core.MarketStore,
	positions core.PositionStore,
	approvals core.ApprovalStore,
) *Service {
	return &Service{
		db:        database,
		markets:   markets,
		positions: positions,
		approvals: approvals,
	}
}

// Save persists markets and positions in one transaction
func (s *Service) Save(ctx context.Context, markets []*core.Market, positions []*core.Position) error {
	return s.db.Tx(func(tx *db.DB) error {
		for _, m := range markets {
			if err := s.markets.Save(ctx, tx, m); err != nil {
				return err
			}
		}

		for _, p := range positions {
			if err := s.positions.Save(ctx, tx, p); err != nil {
				return err
			}
		}

		return nil
	})
}

// OnCommit is a lending.CommitHook, failures are logged and the engine keeps
// running on its in memory state
func (s *Service) OnCommit(ctx context.Context, markets []*core.Market, positions []*core.Position) {
	if err := s.Save(ctx, markets, positions); err != nil {
		logger.FromContext(ctx).WithError(err).Errorln("state: save")
	}
}

// Notify implements core.Notifier, manager approvals are persisted
func (s *Service) Notify(ctx context.Context, events []*core.Event) {
	for _, e := range events {
		if e.Kind != core.EventManagerApproval {
			continue
		}

		approval := core.Approval{Delegator: e.OnBehalf, Manager: e.Caller}
		if err := s.approvals.Save(ctx, s.db, approval, e.Allowed); err != nil {
			logger.FromContext(ctx).WithError(err).Errorln("state: save approval")
		}
	}
}

// Load reads the persisted engine state
func (s *Service) Load(ctx context.Context) (lending.Snapshot, error) {
	var (
		snapshot lending.Snapshot
		err      error
	)

	if snapshot.Markets, err = s.markets.All(ctx); err != nil {
		return snapshot, err
	}

	positions, err := s.positions.All(ctx)
	if err != nil {
		return snapshot, err
	}

	for _, p := range positions {
		if !p.IsEmpty() {
			snapshot.Positions = append(snapshot.Positions, p)
		}
	}

	if snapshot.Approvals, err = s.approvals.All(ctx); err != nil {
		return snapshot, err
	}

	return snapshot, nil
}

// Restore loads the persisted state into engine
func (s *Service) Restore(ctx context.Context, engine *lending.Engine) error {
	snapshot, err := s.Load(ctx)
	if err != nil {
		return err
	}

	engine.Import(snapshot)
	logger.FromContext(ctx).WithField("markets", len(snapshot.Markets)).
		WithField("positions", len(snapshot.Positions)).
		Infoln("state restored")
	return nil
}
