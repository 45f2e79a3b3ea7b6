package db

import (
	"context"
	"database/sql"
	"fmt"
)

// schema создаёт таблицы, если их ещё нет. Имена ограничений используются
// репозиториями для распознавания конфликтов.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		email         VARCHAR(255) NOT NULL DEFAULT '',
		password_hash TEXT         NOT NULL,
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT users_username_key UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS tournaments (
		id         SERIAL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		owner_id   INTEGER      NOT NULL,
		logo_key   TEXT,
		created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		CONSTRAINT tournaments_owner_id_fkey FOREIGN KEY (owner_id) REFERENCES users (id)
	)`,
	`CREATE TABLE IF NOT EXISTS participants (
		id            SERIAL PRIMARY KEY,
		tournament_id INTEGER     NOT NULL,
		user_id       INTEGER     NOT NULL,
		joined_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT participants_tournament_user_key UNIQUE (tournament_id, user_id),
		CONSTRAINT participants_tournament_id_fkey FOREIGN KEY (tournament_id) REFERENCES tournaments (id) ON DELETE CASCADE,
		CONSTRAINT participants_user_id_fkey FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS fixtures (
		id            UUID         PRIMARY KEY,
		tournament_id INTEGER      NOT NULL REFERENCES tournaments (id) ON DELETE CASCADE,
		position      INTEGER      NOT NULL,
		home          VARCHAR(64)  NOT NULL,
		away          VARCHAR(64)  NOT NULL,
		home_score    INTEGER      NOT NULL DEFAULT 0,
		away_score    INTEGER      NOT NULL DEFAULT 0,
		played        BOOLEAN      NOT NULL DEFAULT FALSE,
		CONSTRAINT fixtures_tournament_position_key UNIQUE (tournament_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS tournament_standings (
		id            SERIAL PRIMARY KEY,
		tournament_id INTEGER     NOT NULL REFERENCES tournaments (id) ON DELETE CASCADE,
		participant   VARCHAR(64) NOT NULL,
		played        INTEGER     NOT NULL DEFAULT 0,
		won           INTEGER     NOT NULL DEFAULT 0,
		drawn         INTEGER     NOT NULL DEFAULT 0,
		lost          INTEGER     NOT NULL DEFAULT 0,
		gf            BIGINT      NOT NULL DEFAULT 0,
		ga            BIGINT      NOT NULL DEFAULT 0,
		gd            BIGINT      NOT NULL DEFAULT 0,
		points        INTEGER     NOT NULL DEFAULT 0,
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT tournament_standings_participant_key UNIQUE (tournament_id, participant)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tournament_standings_ranking
		ON tournament_standings (tournament_id, points DESC, gd DESC, id ASC)`,
}

// Migrate применяет схему в одной транзакции.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return tx.Commit()
}
