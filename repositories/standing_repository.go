package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/league-system/models"
)

var (
	ErrTournamentStandingNotFound = errors.New("tournament standing not found")
	ErrStandingParticipantTaken   = errors.New("standing participant conflict")
)

type StandingRepository interface {
	BatchCreate(ctx context.Context, standings []*models.TournamentStanding) error
	GetByTournamentAndParticipant(ctx context.Context, tournamentID int, participant string) (*models.TournamentStanding, error)
	Update(ctx context.Context, standing *models.TournamentStanding) error
	// ListByTournament returns rows in participant order, or in ranking order
	// when sortByRank is set.
	ListByTournament(ctx context.Context, tournamentID int, sortByRank bool) ([]models.TournamentStanding, error)
	DeleteByTournamentID(ctx context.Context, tournamentID int) error
}

type postgresTournamentStandingRepository struct {
	exec SQLExecutor
}

const standingColumns = `id, tournament_id, participant, played, won, drawn, lost, gf, ga, gd, points, updated_at`

func (r *postgresTournamentStandingRepository) BatchCreate(ctx context.Context, standings []*models.TournamentStanding) error {
	if len(standings) == 0 {
		return nil
	}

	stmt, err := r.exec.PrepareContext(ctx, `
		INSERT INTO tournament_standings
		    (tournament_id, participant, played, won, drawn, lost, gf, ga, gd, points, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`)
	if err != nil {
		return fmt.Errorf("BatchCreate failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range standings {
		if s.UpdatedAt.IsZero() {
			s.UpdatedAt = time.Now().UTC()
		}
		err = stmt.QueryRowContext(ctx,
			s.TournamentID, s.Participant, s.Played, s.Won, s.Drawn, s.Lost,
			s.GoalsFor, s.GoalsAgainst, s.GoalDifference, s.Points, s.UpdatedAt,
		).Scan(&s.ID)
		if err != nil {
			if code, _, ok := pqConstraint(err); ok && code == pqUniqueViolation {
				return ErrStandingParticipantTaken
			}
			return fmt.Errorf("BatchCreate failed for participant %s: %w", s.Participant, err)
		}
	}
	return nil
}

func (r *postgresTournamentStandingRepository) GetByTournamentAndParticipant(ctx context.Context, tournamentID int, participant string) (*models.TournamentStanding, error) {
	query := `
		SELECT ` + standingColumns + `
		FROM tournament_standings
		WHERE tournament_id = $1 AND participant = $2`
	return r.scanStanding(r.exec.QueryRowContext(ctx, query, tournamentID, participant))
}

func (r *postgresTournamentStandingRepository) Update(ctx context.Context, s *models.TournamentStanding) error {
	s.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE tournament_standings SET
			played = $1, won = $2, drawn = $3, lost = $4,
			gf = $5, ga = $6, gd = $7, points = $8, updated_at = $9
		WHERE id = $10`
	result, err := r.exec.ExecContext(ctx, query,
		s.Played, s.Won, s.Drawn, s.Lost,
		s.GoalsFor, s.GoalsAgainst, s.GoalDifference, s.Points, s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentStandingNotFound)
}

func (r *postgresTournamentStandingRepository) ListByTournament(ctx context.Context, tournamentID int, sortByRank bool) ([]models.TournamentStanding, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`SELECT ` + standingColumns + ` FROM tournament_standings WHERE tournament_id = $1`)
	if sortByRank {
		// id растёт в порядке вступления, поэтому равные строки остаются в нём же
		queryBuilder.WriteString(" ORDER BY points DESC, gd DESC, id ASC")
	} else {
		queryBuilder.WriteString(" ORDER BY id ASC")
	}

	rows, err := r.exec.QueryContext(ctx, queryBuilder.String(), tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	standings := make([]models.TournamentStanding, 0)
	for rows.Next() {
		s, errScan := r.scanStanding(rows)
		if errScan != nil {
			return nil, errScan
		}
		standings = append(standings, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return standings, nil
}

func (r *postgresTournamentStandingRepository) DeleteByTournamentID(ctx context.Context, tournamentID int) error {
	_, err := r.exec.ExecContext(ctx, `DELETE FROM tournament_standings WHERE tournament_id = $1`, tournamentID)
	return err
}

func (r *postgresTournamentStandingRepository) scanStanding(rowScanner interface{ Scan(...interface{}) error }) (*models.TournamentStanding, error) {
	var s models.TournamentStanding
	err := rowScanner.Scan(
		&s.ID, &s.TournamentID, &s.Participant, &s.Played, &s.Won, &s.Drawn, &s.Lost,
		&s.GoalsFor, &s.GoalsAgainst, &s.GoalDifference, &s.Points, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}
