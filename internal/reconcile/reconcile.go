// Package reconcile repairs the swap_pending invariant after crashes.
//
// An event must be swap_pending if and only if exactly one pending request
// references it. A process dying between unrelated failures, or an operator
// mutating rows by hand, can leave an event locked with no live request.
// The sweeper releases such events back to swappable.
package reconcile

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// OrphanReleaser is the repository slice the sweeper needs.
type OrphanReleaser interface {
	ReleaseOrphanedLocks(ctx context.Context) ([]uuid.UUID, error)
}

// Sweeper runs the invariant repair pass.
type Sweeper struct {
	repo OrphanReleaser
	log  *zap.Logger
}

// NewSweeper constructs a sweeper.
func NewSweeper(repo OrphanReleaser, log *zap.Logger) *Sweeper {
	return &Sweeper{repo: repo, log: log}
}

// Run releases orphaned locks once and logs every repaired event.
func (s *Sweeper) Run(ctx context.Context) error {
	ids, err := s.repo.ReleaseOrphanedLocks(ctx)
	if err != nil {
		s.log.Error("reconcile sweep failed", zap.Error(err))
		return err
	}
	for _, id := range ids {
		s.log.Warn("released orphaned swap_pending lock", zap.String("event_id", id.String()))
	}
	return nil
}
