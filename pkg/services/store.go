package services

import (
	"context"

	"github.com/heraerp/hera-engine/pkg/repositories"
)

// TxStore is the unit-of-work boundary services use for atomic multi-row
// writes. *repositories.Store satisfies it; tests substitute an
// implementation that runs fn against mock repositories.
type TxStore interface {
	WithinTx(ctx context.Context, fn func(repositories.Repos) error) error
	// WithinSnapshotTx gives fn a repository bundle whose reads all see one
	// consistent snapshot, for multi-hop graph traversals.
	WithinSnapshotTx(ctx context.Context, fn func(repositories.Repos) error) error
}
