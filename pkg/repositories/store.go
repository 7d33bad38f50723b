package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/heraerp/hera-engine/pkg/database"
)

// Repos bundles one repository per relation, all bound to the same querier.
type Repos struct {
	Organizations OrganizationRepository
	Entities      EntityRepository
	Fields        DynamicFieldRepository
	Relationships RelationshipRepository
	Transactions  TransactionRepository
}

// NewRepos builds the repository bundle over a querier (pool or transaction).
func NewRepos(q database.Querier) Repos {
	return Repos{
		Organizations: NewOrganizationRepository(q),
		Entities:      NewEntityRepository(q),
		Fields:        NewDynamicFieldRepository(q),
		Relationships: NewRelationshipRepository(q),
		Transactions:  NewTransactionRepository(q),
	}
}

// Store hands services pool-bound repositories for reads and
// transaction-bound bundles for atomic multi-row writes.
type Store struct {
	repos  Repos
	runner *database.TxRunner
}

// NewStore builds a Store over the connection pool.
func NewStore(db *database.DB) *Store {
	return &Store{
		repos:  NewRepos(db),
		runner: database.NewTxRunner(db),
	}
}

// Repos returns the pool-bound repository bundle.
func (s *Store) Repos() Repos {
	return s.repos
}

// WithinTx runs fn with a repository bundle bound to one database
// transaction; fn's writes commit together or not at all.
func (s *Store) WithinTx(ctx context.Context, fn func(Repos) error) error {
	return s.runner.Run(ctx, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
}

// WithinSnapshotTx is WithinTx at REPEATABLE READ, for graph traversals that
// must read one consistent snapshot across every hop.
func (s *Store) WithinSnapshotTx(ctx context.Context, fn func(Repos) error) error {
	return s.runner.RunSnapshot(ctx, func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
}
