package repositories

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Dosada05/league-system/brackets"
	"github.com/Dosada05/league-system/models"
)

type boltUserRepository struct {
	s *boltStore
}

func (r *boltUserRepository) Create(_ context.Context, user *models.User) error {
	return r.s.update(func(tx *bbolt.Tx) error {
		names := tx.Bucket([]byte(usernamesBucket))
		if names.Get([]byte(user.Username)) != nil {
			return ErrUserUsernameConflict
		}

		users := tx.Bucket([]byte(usersBucket))
		seq, err := users.NextSequence()
		if err != nil {
			return err
		}
		doc := userDoc{
			ID:           int(seq),
			Username:     user.Username,
			Email:        user.Email,
			PasswordHash: user.PasswordHash,
			CreatedAt:    time.Now().UTC(),
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		if err = users.Put(itob(doc.ID), data); err != nil {
			return err
		}
		if err = names.Put([]byte(doc.Username), itob(doc.ID)); err != nil {
			return err
		}

		user.ID = doc.ID
		user.CreatedAt = doc.CreatedAt
		return nil
	})
}

func (r *boltUserRepository) GetByID(_ context.Context, id int) (*models.User, error) {
	var user *models.User
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getUserDoc(tx, id)
		if err != nil {
			return err
		}
		user = doc.toModel()
		return nil
	})
	return user, err
}

func (r *boltUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	var user *models.User
	err := r.s.view(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(usernamesBucket)).Get([]byte(username))
		if id == nil {
			return ErrUserNotFound
		}
		doc, err := getUserDoc(tx, int(binary.BigEndian.Uint64(id)))
		if err != nil {
			return err
		}
		user = doc.toModel()
		return nil
	})
	return user, err
}

func (d *userDoc) toModel() *models.User {
	return &models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

type boltTournamentRepository struct {
	s *boltStore
}

func (r *boltTournamentRepository) Create(_ context.Context, t *models.Tournament) error {
	return r.s.update(func(tx *bbolt.Tx) error {
		if _, err := getUserDoc(tx, t.OwnerID); err != nil {
			return ErrTournamentInvalidOwner
		}
		seq, err := tx.Bucket([]byte(tournamentsBucket)).NextSequence()
		if err != nil {
			return err
		}
		doc := &tournamentDoc{
			ID:           int(seq),
			Name:         t.Name,
			OwnerID:      t.OwnerID,
			CreatedAt:    time.Now().UTC(),
			LogoKey:      t.LogoKey,
			Participants: []models.Participant{},
			Fixtures:     []models.Fixture{},
			Standings:    []models.TournamentStanding{},
		}
		if err = putTournamentDoc(tx, doc); err != nil {
			return err
		}
		t.ID = doc.ID
		t.CreatedAt = doc.CreatedAt
		return nil
	})
}

func (r *boltTournamentRepository) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	var t *models.Tournament
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, id)
		if err != nil {
			return err
		}
		t = doc.toModel()
		return nil
	})
	return t, err
}

// GetForUpdate is GetByID: inside WithinTx the bolt writer lock is already held.
func (r *boltTournamentRepository) GetForUpdate(ctx context.Context, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, id)
}

func (r *boltTournamentRepository) ListByMember(_ context.Context, userID int) ([]models.Tournament, error) {
	tournaments := make([]models.Tournament, 0)
	err := r.s.view(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(tournamentsBucket)).Cursor()
		// ключи идут по возрастанию id, поэтому обход с конца даёт новые первыми
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var doc tournamentDoc
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("failed to decode tournament: %w", err)
			}
			if doc.hasMember(userID) {
				tournaments = append(tournaments, *doc.toModel())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *boltTournamentRepository) UpdateLogoKey(_ context.Context, tournamentID int, logoKey *string) error {
	return r.s.mutateTournament(tournamentID, func(doc *tournamentDoc) error {
		doc.LogoKey = logoKey
		return nil
	})
}

type boltParticipantRepository struct {
	s *boltStore
}

func (r *boltParticipantRepository) Add(_ context.Context, p *models.Participant) (bool, error) {
	added := false
	err := r.s.update(func(tx *bbolt.Tx) error {
		user, err := getUserDoc(tx, p.UserID)
		if err != nil {
			return ErrParticipantUserInvalid
		}
		doc, err := getTournamentDoc(tx, p.TournamentID)
		if err != nil {
			return ErrParticipantTournamentInvalid
		}
		if doc.hasMember(p.UserID) {
			return nil
		}

		if p.JoinedAt.IsZero() {
			p.JoinedAt = time.Now().UTC()
		}
		p.ID = doc.nextRowID()
		p.Username = user.Username
		doc.Participants = append(doc.Participants, *p)
		added = true
		return putTournamentDoc(tx, doc)
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

func (r *boltParticipantRepository) FindByUserAndTournament(_ context.Context, userID, tournamentID int) (*models.Participant, error) {
	var found *models.Participant
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, tournamentID)
		if err != nil {
			return ErrParticipantNotFound
		}
		for i := range doc.Participants {
			if doc.Participants[i].UserID == userID {
				p := doc.Participants[i]
				found = &p
				return nil
			}
		}
		return ErrParticipantNotFound
	})
	return found, err
}

func (r *boltParticipantRepository) ListByTournament(_ context.Context, tournamentID int) ([]models.Participant, error) {
	var participants []models.Participant
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, tournamentID)
		if err != nil {
			return err
		}
		participants = append(make([]models.Participant, 0, len(doc.Participants)), doc.Participants...)
		return nil
	})
	return participants, err
}

type boltFixtureRepository struct {
	s *boltStore
}

func (r *boltFixtureRepository) BatchCreate(_ context.Context, fixtures []models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	byTournament := make(map[int][]models.Fixture)
	for _, f := range fixtures {
		byTournament[f.TournamentID] = append(byTournament[f.TournamentID], f)
	}

	return r.s.update(func(tx *bbolt.Tx) error {
		for tournamentID, batch := range byTournament {
			doc, err := getTournamentDoc(tx, tournamentID)
			if err != nil {
				return err
			}
			taken := make(map[int]bool, len(doc.Fixtures))
			for _, f := range doc.Fixtures {
				taken[f.Position] = true
			}
			for _, f := range batch {
				if taken[f.Position] {
					return ErrFixturePositionTaken
				}
				taken[f.Position] = true
				doc.Fixtures = append(doc.Fixtures, f)
			}
			sort.SliceStable(doc.Fixtures, func(i, j int) bool {
				return doc.Fixtures[i].Position < doc.Fixtures[j].Position
			})
			if err = putTournamentDoc(tx, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *boltFixtureRepository) ListByTournament(_ context.Context, tournamentID int) ([]models.Fixture, error) {
	var fixtures []models.Fixture
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, tournamentID)
		if err != nil {
			return err
		}
		fixtures = append(make([]models.Fixture, 0, len(doc.Fixtures)), doc.Fixtures...)
		return nil
	})
	return fixtures, err
}

func (r *boltFixtureRepository) GetByPosition(_ context.Context, tournamentID, position int) (*models.Fixture, error) {
	return r.find(tournamentID, func(f models.Fixture) bool { return f.Position == position })
}

func (r *boltFixtureRepository) GetByID(_ context.Context, tournamentID int, fixtureID string) (*models.Fixture, error) {
	return r.find(tournamentID, func(f models.Fixture) bool { return f.ID == fixtureID })
}

func (r *boltFixtureRepository) find(tournamentID int, match func(models.Fixture) bool) (*models.Fixture, error) {
	var found *models.Fixture
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, tournamentID)
		if err != nil {
			return ErrFixtureNotFound
		}
		for _, f := range doc.Fixtures {
			if match(f) {
				f := f
				found = &f
				return nil
			}
		}
		return ErrFixtureNotFound
	})
	return found, err
}

func (r *boltFixtureRepository) RecordScore(_ context.Context, tournamentID int, fixtureID string, homeScore, awayScore int) error {
	return r.s.update(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, tournamentID)
		if err != nil {
			return ErrFixtureNotFound
		}
		for i := range doc.Fixtures {
			f := &doc.Fixtures[i]
			if f.ID != fixtureID {
				continue
			}
			if f.Played {
				return ErrFixtureAlreadyPlayed
			}
			f.HomeScore, f.AwayScore, f.Played = homeScore, awayScore, true
			return putTournamentDoc(tx, doc)
		}
		return ErrFixtureNotFound
	})
}

func (r *boltFixtureRepository) DeleteByTournamentID(_ context.Context, tournamentID int) error {
	err := r.s.mutateTournament(tournamentID, func(doc *tournamentDoc) error {
		doc.Fixtures = []models.Fixture{}
		return nil
	})
	if errors.Is(err, ErrTournamentNotFound) {
		return nil
	}
	return err
}

type boltStandingRepository struct {
	s *boltStore
}

func (r *boltStandingRepository) BatchCreate(_ context.Context, standings []*models.TournamentStanding) error {
	if len(standings) == 0 {
		return nil
	}
	return r.s.update(func(tx *bbolt.Tx) error {
		docs := make(map[int]*tournamentDoc)
		for _, s := range standings {
			doc, ok := docs[s.TournamentID]
			if !ok {
				var err error
				if doc, err = getTournamentDoc(tx, s.TournamentID); err != nil {
					return err
				}
				docs[s.TournamentID] = doc
			}
			for _, existing := range doc.Standings {
				if existing.Participant == s.Participant {
					return ErrStandingParticipantTaken
				}
			}
			if s.UpdatedAt.IsZero() {
				s.UpdatedAt = time.Now().UTC()
			}
			s.ID = doc.nextRowID()
			doc.Standings = append(doc.Standings, *s)
		}
		for _, doc := range docs {
			if err := putTournamentDoc(tx, doc); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *boltStandingRepository) GetByTournamentAndParticipant(_ context.Context, tournamentID int, participant string) (*models.TournamentStanding, error) {
	var found *models.TournamentStanding
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, tournamentID)
		if err != nil {
			return ErrTournamentStandingNotFound
		}
		for _, s := range doc.Standings {
			if s.Participant == participant {
				s := s
				found = &s
				return nil
			}
		}
		return ErrTournamentStandingNotFound
	})
	return found, err
}

func (r *boltStandingRepository) Update(_ context.Context, standing *models.TournamentStanding) error {
	return r.s.update(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, standing.TournamentID)
		if err != nil {
			return ErrTournamentStandingNotFound
		}
		for i := range doc.Standings {
			if doc.Standings[i].ID == standing.ID {
				standing.UpdatedAt = time.Now().UTC()
				doc.Standings[i] = *standing
				return putTournamentDoc(tx, doc)
			}
		}
		return ErrTournamentStandingNotFound
	})
}

func (r *boltStandingRepository) ListByTournament(_ context.Context, tournamentID int, sortByRank bool) ([]models.TournamentStanding, error) {
	var standings []models.TournamentStanding
	err := r.s.view(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, tournamentID)
		if err != nil {
			return err
		}
		standings = append(make([]models.TournamentStanding, 0, len(doc.Standings)), doc.Standings...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// строки хранятся в порядке вставки, стабильная сортировка его сохраняет при равенстве
	if sortByRank {
		brackets.SortStandings(standings)
	}
	return standings, nil
}

func (r *boltStandingRepository) DeleteByTournamentID(_ context.Context, tournamentID int) error {
	err := r.s.mutateTournament(tournamentID, func(doc *tournamentDoc) error {
		doc.Standings = []models.TournamentStanding{}
		return nil
	})
	if errors.Is(err, ErrTournamentNotFound) {
		return nil
	}
	return err
}
