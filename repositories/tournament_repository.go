package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/league-system/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentInvalidOwner = errors.New("invalid owner reference")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// GetForUpdate reads the tournament and holds it against concurrent
	// schedule or result writes until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int) (*models.Tournament, error)
	ListByMember(ctx context.Context, userID int) ([]models.Tournament, error)
	UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error
}

type postgresTournamentRepository struct {
	exec SQLExecutor
}

const tournamentColumns = `id, name, owner_id, created_at, logo_key`

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, owner_id, logo_key)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.exec.QueryRowContext(ctx, query, t.Name, t.OwnerID, t.LogoKey).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok && code == pqForeignKeyViolation && constraint == "tournaments_owner_id_fkey" {
			return ErrTournamentInvalidOwner
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.scanTournament(r.exec.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return r.scanTournament(r.exec.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) ListByMember(ctx context.Context, userID int) ([]models.Tournament, error) {
	query := `
		SELECT t.id, t.name, t.owner_id, t.created_at, t.logo_key
		FROM tournaments t
		JOIN participants p ON p.tournament_id = t.id
		WHERE p.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC`

	rows, err := r.exec.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		t, scanErr := r.scanTournament(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateLogoKey(ctx context.Context, tournamentID int, logoKey *string) error {
	query := `UPDATE tournaments SET logo_key = $1 WHERE id = $2`
	result, err := r.exec.ExecContext(ctx, query, logoKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament logo key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) scanTournament(rowScanner interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	var logoKey sql.NullString
	err := rowScanner.Scan(&t.ID, &t.Name, &t.OwnerID, &t.CreatedAt, &logoKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if logoKey.Valid {
		t.LogoKey = &logoKey.String
	}
	return t, nil
}
