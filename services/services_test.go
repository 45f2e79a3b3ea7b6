package services_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/league-system/metrics"
	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/repositories"
	"github.com/Dosada05/league-system/services"
	"github.com/Dosada05/league-system/storage"
)

type testEnv struct {
	store       repositories.Store
	auth        services.AuthService
	tournaments services.TournamentService
	metrics     *metrics.Metrics
	uploader    *FakeUploader
}

func newTestEnv(t *testing.T, withUploader bool) *testEnv {
	t.Helper()
	store, err := repositories.NewBoltStore(filepath.Join(t.TempDir(), "league.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &testEnv{
		store:   store,
		auth:    services.NewAuthService(store),
		metrics: metrics.New(),
	}
	var uploader storage.FileUploader
	if withUploader {
		f.uploader = NewFakeUploader()
		uploader = f.uploader
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.tournaments = services.NewTournamentService(store, uploader, f.metrics, logger)
	return f
}

func (f *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    gofakeit.Email(),
		Password: gofakeit.Password(true, true, true, false, false, 12),
	})
	require.NoError(t, err)
	return user
}

// league creates a tournament owned by the first name and joined by the rest, in order.
func (f *testEnv) league(t *testing.T, names ...string) (*models.Tournament, []*models.User) {
	t.Helper()
	ctx := context.Background()
	users := make([]*models.User, 0, len(names))
	for _, name := range names {
		users = append(users, f.register(t, name))
	}
	tournament, err := f.tournaments.Create(ctx, users[0].ID, gofakeit.Company()+" League")
	require.NoError(t, err)
	for _, u := range users[1:] {
		_, err = f.tournaments.Join(ctx, u.ID, tournament.ID)
		require.NoError(t, err)
	}
	return tournament, users
}

func randomNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", gofakeit.Username(), i)
	}
	return names
}

// FakeUploader keeps uploaded objects in memory.
type FakeUploader struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
}

func NewFakeUploader() *FakeUploader {
	return &FakeUploader{Objects: make(map[string][]byte)}
}

func (u *FakeUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *FakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.Objects, key)
	u.Deleted = append(u.Deleted, key)
	return nil
}

func (u *FakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}
