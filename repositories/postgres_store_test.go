package repositories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/league-system/models"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresStore(db), mock
}

func TestPostgresUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	insert := regexp.QuoteMeta(`INSERT INTO users (username, email, password_hash)`)

	t.Run("ok", func(t *testing.T) {
		store, mock := newMockStore(t)
		now := time.Now()
		mock.ExpectQuery(insert).
			WithArgs("alice", "a@example.com", "hash").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(5, now))

		user := &models.User{Username: "alice", Email: "a@example.com", PasswordHash: "hash"}
		require.NoError(t, store.Users().Create(ctx, user))
		assert.Equal(t, 5, user.ID)
		assert.Equal(t, now, user.CreatedAt)
	})

	t.Run("username taken", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(insert).
			WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "users_username_key"})

		err := store.Users().Create(ctx, &models.User{Username: "alice"})
		assert.ErrorIs(t, err, ErrUserUsernameConflict)
	})
}

func TestPostgresUserRepository_GetByUsername(t *testing.T) {
	store, mock := newMockStore(t)
	query := regexp.QuoteMeta(`FROM users`)

	mock.ExpectQuery(query).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	_, err := store.Users().GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	mock.ExpectQuery(query).WithArgs("bob").WillReturnRows(
		sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow(2, "bob", "b@example.com", "hash", time.Now()),
	)
	user, err := store.Users().GetByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "hash", user.PasswordHash)
}

func TestPostgresParticipantRepository_Add(t *testing.T) {
	ctx := context.Background()
	insert := regexp.QuoteMeta(`ON CONFLICT (tournament_id, user_id) DO NOTHING`)

	t.Run("new member", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(insert).WithArgs(1, 2, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

		p := &models.Participant{TournamentID: 1, UserID: 2}
		added, err := store.Participants().Add(ctx, p)
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, 10, p.ID)
	})

	t.Run("already a member", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}))

		added, err := store.Participants().Add(ctx, &models.Participant{TournamentID: 1, UserID: 2})
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(insert).
			WillReturnError(&pq.Error{Code: pqForeignKeyViolation, Constraint: "participants_tournament_id_fkey"})

		_, err := store.Participants().Add(ctx, &models.Participant{TournamentID: 9, UserID: 2})
		assert.ErrorIs(t, err, ErrParticipantTournamentInvalid)
	})
}

func TestPostgresFixtureRepository_RecordScore(t *testing.T) {
	ctx := context.Background()
	update := regexp.QuoteMeta(`UPDATE fixtures`)
	selectByID := regexp.QuoteMeta(`FROM fixtures WHERE tournament_id = $1 AND id = $2`)
	const fixtureID = "0b5c1c43-3c5e-4bd8-9f8c-7e0c8f1d2a11"
	columns := []string{"id", "tournament_id", "position", "home", "away", "home_score", "away_score", "played"}

	t.Run("first result", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(update).WithArgs(3, 1, 7, fixtureID).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Fixtures().RecordScore(ctx, 7, fixtureID, 3, 1))
	})

	t.Run("already played", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectByID).WithArgs(7, fixtureID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(fixtureID, 7, 0, "A", "B", 3, 1, true))

		err := store.Fixtures().RecordScore(ctx, 7, fixtureID, 0, 0)
		assert.ErrorIs(t, err, ErrFixtureAlreadyPlayed)
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(update).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectByID).WillReturnError(sql.ErrNoRows)

		err := store.Fixtures().RecordScore(ctx, 7, fixtureID, 0, 0)
		assert.ErrorIs(t, err, ErrFixtureNotFound)
	})
}

func TestPostgresStandingRepository_ListByTournament(t *testing.T) {
	store, mock := newMockStore(t)
	columns := []string{"id", "tournament_id", "participant", "played", "won", "drawn", "lost", "gf", "ga", "gd", "points", "updated_at"}
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY points DESC, gd DESC, id ASC`)).WithArgs(4).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(2, 4, "B", 1, 1, 0, 0, 2, 0, 2, 3, now).
			AddRow(1, 4, "A", 1, 0, 0, 1, 0, 2, -2, 0, now))

	rows, err := store.Standings().ListByTournament(context.Background(), 4, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "B", rows[0].Participant)
	assert.True(t, rows[1].Consistent())
}

func TestPostgresStore_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "owner_id", "created_at", "logo_key"}).
				AddRow(3, "Cup", 1, time.Now(), nil))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM fixtures`)).WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 6))
		mock.ExpectCommit()

		err := store.WithinTx(ctx, func(tx Store) error {
			if _, err := tx.Tournaments().GetForUpdate(ctx, 3); err != nil {
				return err
			}
			return tx.Fixtures().DeleteByTournamentID(ctx, 3)
		})
		assert.NoError(t, err)
	})

	t.Run("rollback on error", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := store.WithinTx(ctx, func(tx Store) error {
			_, err := tx.Tournaments().GetForUpdate(ctx, 3)
			return err
		})
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("nested call reuses the transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		sentinel := errors.New("inner ran")
		var innerErr error
		err := store.WithinTx(ctx, func(tx Store) error {
			innerErr = tx.WithinTx(ctx, func(Store) error { return sentinel })
			return nil
		})
		assert.NoError(t, err)
		assert.ErrorIs(t, innerErr, sentinel)
	})
}
