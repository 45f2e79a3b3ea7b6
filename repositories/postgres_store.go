package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

type postgresStore struct {
	db   *sql.DB
	exec SQLExecutor
	inTx bool
}

func NewPostgresStore(db *sql.DB) Store {
	return &postgresStore{db: db, exec: db}
}

func (s *postgresStore) Users() UserRepository {
	return &postgresUserRepository{exec: s.exec}
}

func (s *postgresStore) Tournaments() TournamentRepository {
	return &postgresTournamentRepository{exec: s.exec}
}

func (s *postgresStore) Participants() ParticipantRepository {
	return &postgresParticipantRepository{exec: s.exec}
}

func (s *postgresStore) Fixtures() FixtureRepository {
	return &postgresFixtureRepository{exec: s.exec}
}

func (s *postgresStore) Standings() StandingRepository {
	return &postgresTournamentStandingRepository{exec: s.exec}
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			_ = tx.Rollback()
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(&postgresStore{db: s.db, exec: tx, inTx: true})
}

func (s *postgresStore) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}
