package repositories

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Dosada05/league-system/models"
)

const (
	usersBucket       = "users"
	usernamesBucket   = "usernames"
	tournamentsBucket = "tournaments"
)

// boltStore keeps every tournament as one JSON document with its members,
// fixtures and standings embedded, so a tournament update is a single Put.
type boltStore struct {
	db *bbolt.DB
	tx *bbolt.Tx
}

// NewBoltStore opens (or creates) the database file and its buckets.
func NewBoltStore(path string) (Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database at %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{usersBucket, usernamesBucket, tournamentsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &boltStore{db: db}, nil
}

func (s *boltStore) Users() UserRepository { return &boltUserRepository{s: s} }
func (s *boltStore) Tournaments() TournamentRepository { return &boltTournamentRepository{s: s} }
func (s *boltStore) Participants() ParticipantRepository { return &boltParticipantRepository{s: s} }
func (s *boltStore) Fixtures() FixtureRepository { return &boltFixtureRepository{s: s} }
func (s *boltStore) Standings() StandingRepository { return &boltStandingRepository{s: s} }

// WithinTx runs fn inside one bolt write transaction. bbolt allows a single
// writer at a time, which serializes all tournament updates.
func (s *boltStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltStore{db: s.db, tx: tx})
	})
}

func (s *boltStore) Close() error {
	if s.tx != nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *boltStore) view(fn func(tx *bbolt.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.View(fn)
}

func (s *boltStore) update(fn func(tx *bbolt.Tx) error) error {
	// WithinTx всегда открывает транзакцию на запись
	if s.tx != nil {
		return fn(s.tx)
	}
	return s.db.Update(fn)
}

func itob(v int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

type userDoc struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type tournamentDoc struct {
	ID           int                         `json:"id"`
	Name         string                      `json:"name"`
	OwnerID      int                         `json:"owner_id"`
	CreatedAt    time.Time                   `json:"created_at"`
	LogoKey      *string                     `json:"logo_key,omitempty"`
	Participants []models.Participant        `json:"participants"`
	Fixtures     []models.Fixture            `json:"fixtures"`
	Standings    []models.TournamentStanding `json:"standings"`
	// LastRowID нумерует участников и строки таблицы внутри документа.
	LastRowID int `json:"last_row_id"`
}

func (d *tournamentDoc) nextRowID() int {
	d.LastRowID++
	return d.LastRowID
}

func (d *tournamentDoc) toModel() *models.Tournament {
	return &models.Tournament{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt,
		LogoKey:   d.LogoKey,
	}
}

func (d *tournamentDoc) hasMember(userID int) bool {
	for _, p := range d.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func getTournamentDoc(tx *bbolt.Tx, id int) (*tournamentDoc, error) {
	data := tx.Bucket([]byte(tournamentsBucket)).Get(itob(id))
	if data == nil {
		return nil, ErrTournamentNotFound
	}
	var doc tournamentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode tournament %d: %w", id, err)
	}
	return &doc, nil
}

func putTournamentDoc(tx *bbolt.Tx, doc *tournamentDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode tournament %d: %w", doc.ID, err)
	}
	return tx.Bucket([]byte(tournamentsBucket)).Put(itob(doc.ID), data)
}

// mutateTournament loads a document, applies fn and writes it back unless fn fails.
func (s *boltStore) mutateTournament(id int, fn func(doc *tournamentDoc) error) error {
	return s.update(func(tx *bbolt.Tx) error {
		doc, err := getTournamentDoc(tx, id)
		if err != nil {
			return err
		}
		if err = fn(doc); err != nil {
			return err
		}
		return putTournamentDoc(tx, doc)
	})
}

func getUserDoc(tx *bbolt.Tx, id int) (*userDoc, error) {
	data := tx.Bucket([]byte(usersBucket)).Get(itob(id))
	if data == nil {
		return nil, ErrUserNotFound
	}
	var doc userDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode user %d: %w", id, err)
	}
	return &doc, nil
}
