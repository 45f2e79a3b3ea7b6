package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/league-system/brackets"
	"github.com/Dosada05/league-system/metrics"
	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/storage"
)

type TournamentService interface {
	// Create создаёт турнир; создатель сразу становится участником.
	Create(ctx context.Context, userID int, name string) (*models.Tournament, error)
	// Join добавляет пользователя в турнир. Повторный вызов ничего не меняет.
	Join(ctx context.Context, userID, tournamentID int) (bool, error)
	ListForUser(ctx context.Context, userID int) ([]models.Tournament, error)
	GetDetails(ctx context.Context, tournamentID int) (*models.Tournament, error)
	GetStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error)
	GenerateFixtures(ctx context.Context, userID, tournamentID int) ([]models.Fixture, error)
	RecordResult(ctx context.Context, userID, tournamentID int, input ResultInput) (*ResultOutcome, error)
	UploadLogo(ctx context.Context, userID, tournamentID int, input LogoInput) (*models.Tournament, error)
}

// FixtureAddress selects a fixture either by its schedule position or by id.
type FixtureAddress struct {
	Position *int
	ID       string
}

type ResultInput struct {
	Fixture   FixtureAddress
	HomeScore int
	AwayScore int
}

type ResultOutcome struct {
	Fixture models.Fixture
	Home    models.TournamentStanding
	Away    models.TournamentStanding
}

type LogoInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type tournamentService struct {
	store     repositories.Store
	generator brackets.FixtureGenerator
	uploader  storage.FileUploader
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewTournamentService wires the service. uploader and m may be nil.
func NewTournamentService(
	store repositories.Store,
	uploader storage.FileUploader,
	m *metrics.Metrics,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		store:     store,
		generator: brackets.NewRoundRobinGenerator(brackets.DoubleLeg),
		uploader:  uploader,
		metrics:   m,
		logger:    logger,
	}
}

// MaxScore is the largest score one side can record in a single fixture. It
// matches the INTEGER score columns of the relational schema.
const MaxScore = math.MaxInt32

// ParseScore accepts a decimal integer between 0 and MaxScore.
func ParseScore(raw string) (int, error) {
	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || score < 0 || score > MaxScore {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, raw)
	}
	return score, nil
}

// ParseFixtureAddress prefers the stable fixture id when both are given, so a
// form rendered before a regeneration cannot score a different fixture.
func ParseFixtureAddress(index, fixtureID string) (FixtureAddress, error) {
	index, fixtureID = strings.TrimSpace(index), strings.TrimSpace(fixtureID)
	switch {
	case fixtureID != "":
		if _, err := uuid.Parse(fixtureID); err != nil {
			return FixtureAddress{}, fmt.Errorf("%w: bad id %q", ErrInvalidFixtureAddress, fixtureID)
		}
		return FixtureAddress{ID: fixtureID}, nil
	case index != "":
		pos, err := strconv.Atoi(index)
		if err != nil || pos < 0 {
			return FixtureAddress{}, fmt.Errorf("%w: bad index %q", ErrInvalidFixtureAddress, index)
		}
		return FixtureAddress{Position: &pos}, nil
	default:
		return FixtureAddress{}, ErrInvalidFixtureAddress
	}
}

func validScore(score int) bool {
	return score >= 0 && score <= MaxScore
}

func (s *tournamentService) Create(ctx context.Context, userID int, name string) (*models.Tournament, error) {
	if userID <= 0 {
		return nil, ErrAuthenticationFailed
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}

	tournament := &models.Tournament{Name: name, OwnerID: userID}
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if err := tx.Tournaments().Create(ctx, tournament); err != nil {
			return err
		}
		_, err := tx.Participants().Add(ctx, &models.Participant{TournamentID: tournament.ID, UserID: userID})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", mapRepositoryError(err))
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.Int("tournament_id", tournament.ID), slog.Int("owner_id", userID))
	return tournament, nil
}

func (s *tournamentService) Join(ctx context.Context, userID, tournamentID int) (bool, error) {
	if userID <= 0 {
		return false, ErrAuthenticationFailed
	}
	added, err := s.store.Participants().Add(ctx, &models.Participant{TournamentID: tournamentID, UserID: userID})
	if err != nil {
		return false, fmt.Errorf("failed to join tournament %d: %w", tournamentID, mapRepositoryError(err))
	}
	if added {
		s.logger.InfoContext(ctx, "user joined tournament",
			slog.Int("tournament_id", tournamentID), slog.Int("user_id", userID))
	}
	return added, nil
}

func (s *tournamentService) ListForUser(ctx context.Context, userID int) ([]models.Tournament, error) {
	tournaments, err := s.store.Tournaments().ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", mapRepositoryError(err))
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}
	return tournaments, nil
}

func (s *tournamentService) GetDetails(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.store.Tournaments().GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	s.populateLogoURL(tournament)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.store.Participants().ListByTournament(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch participants: %w", err)
		}
		tournament.Participants = participants
		return nil
	})

	g.Go(func() error {
		fixtures, err := s.store.Fixtures().ListByTournament(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch fixtures: %w", err)
		}
		tournament.Fixtures = fixtures
		return nil
	})

	g.Go(func() error {
		standings, err := s.store.Standings().ListByTournament(gCtx, tournamentID, true)
		if err != nil {
			return fmt.Errorf("failed to fetch standings: %w", err)
		}
		tournament.Standings = standings
		return nil
	})

	if err = g.Wait(); err != nil {
		return nil, mapRepositoryError(err)
	}
	return tournament, nil
}

func (s *tournamentService) GetStandings(ctx context.Context, tournamentID int) ([]models.TournamentStanding, error) {
	if _, err := s.store.Tournaments().GetByID(ctx, tournamentID); err != nil {
		return nil, mapRepositoryError(err)
	}
	standings, err := s.store.Standings().ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch standings: %w", mapRepositoryError(err))
	}
	return standings, nil
}

// GenerateFixtures заменяет расписание и таблицу турнира целиком. Прежние
// результаты удаляются без проверки.
func (s *tournamentService) GenerateFixtures(ctx context.Context, userID, tournamentID int) ([]models.Fixture, error) {
	var fixtures []models.Fixture

	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if _, err := tx.Tournaments().GetForUpdate(ctx, tournamentID); err != nil {
			return err
		}
		if err := requireMember(ctx, tx, userID, tournamentID); err != nil {
			return err
		}

		participants, err := tx.Participants().ListByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		names := (&models.Tournament{Participants: participants}).PlayerNames()
		if len(names) < 2 {
			return ErrNotEnoughPlayers
		}

		fixtures = s.generator.GenerateFixtures(names)
		for i := range fixtures {
			fixtures[i].ID = uuid.NewString()
			fixtures[i].TournamentID = tournamentID
		}

		if err = tx.Fixtures().DeleteByTournamentID(ctx, tournamentID); err != nil {
			return err
		}
		if err = tx.Standings().DeleteByTournamentID(ctx, tournamentID); err != nil {
			return err
		}
		if err = tx.Fixtures().BatchCreate(ctx, fixtures); err != nil {
			return err
		}
		return tx.Standings().BatchCreate(ctx, brackets.NewStandings(tournamentID, names))
	})
	if err != nil {
		return nil, mapRepositoryError(err)
	}

	s.metrics.AddFixturesGenerated(len(fixtures))
	s.logger.InfoContext(ctx, "fixtures generated",
		slog.Int("tournament_id", tournamentID),
		slog.String("format", s.generator.GetName()),
		slog.Int("fixtures", len(fixtures)))
	return fixtures, nil
}

func (s *tournamentService) RecordResult(ctx context.Context, userID, tournamentID int, input ResultInput) (*ResultOutcome, error) {
	if !validScore(input.HomeScore) || !validScore(input.AwayScore) {
		s.metrics.IncResultRejected(KindValidation.String())
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidScore, input.HomeScore, input.AwayScore)
	}
	if input.Fixture.Position == nil && input.Fixture.ID == "" {
		s.metrics.IncResultRejected(KindValidation.String())
		return nil, ErrInvalidFixtureAddress
	}

	outcome := &ResultOutcome{}
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if _, err := tx.Tournaments().GetForUpdate(ctx, tournamentID); err != nil {
			return err
		}
		if err := requireMember(ctx, tx, userID, tournamentID); err != nil {
			return err
		}

		fixture, err := findFixture(ctx, tx, tournamentID, input.Fixture)
		if err != nil {
			return err
		}
		if err = tx.Fixtures().RecordScore(ctx, tournamentID, fixture.ID, input.HomeScore, input.AwayScore); err != nil {
			return err
		}
		fixture.HomeScore, fixture.AwayScore, fixture.Played = input.HomeScore, input.AwayScore, true

		home, err := tx.Standings().GetByTournamentAndParticipant(ctx, tournamentID, fixture.Home)
		if err != nil {
			return fmt.Errorf("standing for %s: %w", fixture.Home, err)
		}
		away, err := tx.Standings().GetByTournamentAndParticipant(ctx, tournamentID, fixture.Away)
		if err != nil {
			return fmt.Errorf("standing for %s: %w", fixture.Away, err)
		}
		if err = brackets.ApplyResult(home, away, input.HomeScore, input.AwayScore); err != nil {
			return err
		}
		if err = tx.Standings().Update(ctx, home); err != nil {
			return err
		}
		if err = tx.Standings().Update(ctx, away); err != nil {
			return err
		}

		outcome.Fixture, outcome.Home, outcome.Away = *fixture, *home, *away
		return nil
	})
	if err != nil {
		err = mapRepositoryError(err)
		s.metrics.IncResultRejected(KindOf(err).String())
		return nil, err
	}

	s.metrics.IncResultRecorded()
	s.logger.InfoContext(ctx, "result recorded",
		slog.Int("tournament_id", tournamentID),
		slog.String("fixture_id", outcome.Fixture.ID),
		slog.Int("position", outcome.Fixture.Position),
		slog.Int("home_score", input.HomeScore),
		slog.Int("away_score", input.AwayScore))
	return outcome, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, userID, tournamentID int, input LogoInput) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	ext, err := logoExtension(input.ContentType, input.Filename)
	if err != nil {
		return nil, err
	}

	tournament, err := s.store.Tournaments().GetByID(ctx, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if tournament.OwnerID != userID {
		return nil, ErrForbiddenOperation
	}

	key := fmt.Sprintf("tournaments/%d/logo-%s%s", tournamentID, uuid.NewString(), ext)
	if _, err = s.uploader.Upload(ctx, key, input.ContentType, input.Body); err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}

	if err = s.store.Tournaments().UpdateLogoKey(ctx, tournamentID, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove orphaned logo", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, mapRepositoryError(err)
	}

	if tournament.LogoKey != nil && *tournament.LogoKey != "" {
		if delErr := s.uploader.Delete(ctx, *tournament.LogoKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove previous logo", slog.String("key", *tournament.LogoKey), slog.Any("error", delErr))
		}
	}

	tournament.LogoKey = &key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if t == nil || t.LogoKey == nil || *t.LogoKey == "" || s.uploader == nil {
		return
	}
	if url := s.uploader.GetPublicURL(*t.LogoKey); url != "" {
		t.LogoURL = &url
	}
}

func requireMember(ctx context.Context, tx repositories.Store, userID, tournamentID int) error {
	if userID <= 0 {
		return ErrAuthenticationFailed
	}
	_, err := tx.Participants().FindByUserAndTournament(ctx, userID, tournamentID)
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return ErrForbiddenOperation
	}
	return err
}

func findFixture(ctx context.Context, tx repositories.Store, tournamentID int, addr FixtureAddress) (*models.Fixture, error) {
	if addr.Position != nil {
		return tx.Fixtures().GetByPosition(ctx, tournamentID, *addr.Position)
	}
	return tx.Fixtures().GetByID(ctx, tournamentID, addr.ID)
}
