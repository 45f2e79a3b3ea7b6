package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/league-system/models"
)

var (
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantUserInvalid       = errors.New("participant user conflict or invalid")
	ErrParticipantTournamentInvalid = errors.New("participant tournament conflict or invalid")
)

type ParticipantRepository interface {
	// Add inserts the membership and reports whether it was new. Adding an
	// existing member is not an error.
	Add(ctx context.Context, p *models.Participant) (bool, error)
	FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	// ListByTournament returns members in join order.
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error)
}

type postgresParticipantRepository struct {
	exec SQLExecutor
}

func (r *postgresParticipantRepository) Add(ctx context.Context, p *models.Participant) (bool, error) {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO participants (tournament_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (tournament_id, user_id) DO NOTHING
		RETURNING id`

	err := r.exec.QueryRowContext(ctx, query, p.TournamentID, p.UserID, p.JoinedAt).Scan(&p.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if code, constraint, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
			switch constraint {
			case "participants_user_id_fkey":
				return false, ErrParticipantUserInvalid
			case "participants_tournament_id_fkey":
				return false, ErrParticipantTournamentInvalid
			}
		}
		return false, fmt.Errorf("failed to add participant: %w", err)
	}
	return true, nil
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	query := `
		SELECT p.id, p.tournament_id, p.user_id, u.username, p.joined_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1 AND p.tournament_id = $2`

	p := &models.Participant{}
	err := r.exec.QueryRowContext(ctx, query, userID, tournamentID).Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Username, &p.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Participant, error) {
	query := `
		SELECT p.id, p.tournament_id, p.user_id, u.username, p.joined_at
		FROM participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.tournament_id = $1
		ORDER BY p.id ASC`

	rows, err := r.exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if scanErr := rows.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.Username, &p.JoinedAt); scanErr != nil {
			return nil, scanErr
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}
