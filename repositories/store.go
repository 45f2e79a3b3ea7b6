package repositories

import (
	"context"
	"database/sql"
)

// SQLExecutor is satisfied by both *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Store groups the repositories of one persistence backend.
type Store interface {
	Users() UserRepository
	Tournaments() TournamentRepository
	Participants() ParticipantRepository
	Fixtures() FixtureRepository
	Standings() StandingRepository

	// WithinTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise. Calling
	// WithinTx on a store that is already transactional reuses the transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	Close() error
}
