package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/league-system/models"
)

var (
	ErrFixtureNotFound      = errors.New("fixture not found")
	ErrFixtureAlreadyPlayed = errors.New("fixture already has a result")
	ErrFixturePositionTaken = errors.New("fixture position conflict")
)

type FixtureRepository interface {
	BatchCreate(ctx context.Context, fixtures []models.Fixture) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Fixture, error)
	GetByPosition(ctx context.Context, tournamentID, position int) (*models.Fixture, error)
	GetByID(ctx context.Context, tournamentID int, fixtureID string) (*models.Fixture, error)
	// RecordScore stores the score and marks the fixture played. A fixture that
	// is already played is left unchanged and ErrFixtureAlreadyPlayed returned.
	RecordScore(ctx context.Context, tournamentID int, fixtureID string, homeScore, awayScore int) error
	DeleteByTournamentID(ctx context.Context, tournamentID int) error
}

type postgresFixtureRepository struct {
	exec SQLExecutor
}

const fixtureColumns = `id, tournament_id, position, home, away, home_score, away_score, played`

func (r *postgresFixtureRepository) BatchCreate(ctx context.Context, fixtures []models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}

	stmt, err := r.exec.PrepareContext(ctx, `
		INSERT INTO fixtures (`+fixtureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("BatchCreate failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range fixtures {
		_, err = stmt.ExecContext(ctx,
			f.ID, f.TournamentID, f.Position, f.Home, f.Away, f.HomeScore, f.AwayScore, f.Played,
		)
		if err != nil {
			if code, _, ok := pqConstraint(err); ok && code == pqUniqueViolation {
				return ErrFixturePositionTaken
			}
			return fmt.Errorf("BatchCreate failed for position %d: %w", f.Position, err)
		}
	}
	return nil
}

func (r *postgresFixtureRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE tournament_id = $1 ORDER BY position ASC`

	rows, err := r.exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fixtures := make([]models.Fixture, 0)
	for rows.Next() {
		f, scanErr := r.scanFixture(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		fixtures = append(fixtures, *f)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return fixtures, nil
}

func (r *postgresFixtureRepository) GetByPosition(ctx context.Context, tournamentID, position int) (*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE tournament_id = $1 AND position = $2`
	return r.scanFixture(r.exec.QueryRowContext(ctx, query, tournamentID, position))
}

func (r *postgresFixtureRepository) GetByID(ctx context.Context, tournamentID int, fixtureID string) (*models.Fixture, error) {
	query := `SELECT ` + fixtureColumns + ` FROM fixtures WHERE tournament_id = $1 AND id = $2`
	return r.scanFixture(r.exec.QueryRowContext(ctx, query, tournamentID, fixtureID))
}

func (r *postgresFixtureRepository) RecordScore(ctx context.Context, tournamentID int, fixtureID string, homeScore, awayScore int) error {
	query := `
		UPDATE fixtures
		SET home_score = $1, away_score = $2, played = TRUE
		WHERE tournament_id = $3 AND id = $4 AND played = FALSE`

	result, err := r.exec.ExecContext(ctx, query, homeScore, awayScore, tournamentID, fixtureID)
	if err != nil {
		return fmt.Errorf("failed to record fixture score: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	// Ничего не обновлено: либо матча нет, либо результат уже записан.
	if _, err = r.GetByID(ctx, tournamentID, fixtureID); err != nil {
		return err
	}
	return ErrFixtureAlreadyPlayed
}

func (r *postgresFixtureRepository) DeleteByTournamentID(ctx context.Context, tournamentID int) error {
	_, err := r.exec.ExecContext(ctx, `DELETE FROM fixtures WHERE tournament_id = $1`, tournamentID)
	return err
}

func (r *postgresFixtureRepository) scanFixture(rowScanner interface{ Scan(...interface{}) error }) (*models.Fixture, error) {
	var f models.Fixture
	err := rowScanner.Scan(
		&f.ID, &f.TournamentID, &f.Position, &f.Home, &f.Away, &f.HomeScore, &f.AwayScore, &f.Played,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFixtureNotFound
		}
		return nil, err
	}
	return &f, nil
}
