package services_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/league-system/brackets"
	"github.com/Dosada05/league-system/models"
	"github.com/Dosada05/league-system/services"
)

func at(i int) services.FixtureAddress {
	return services.FixtureAddress{Position: &i}
}

func standingOf(t *testing.T, rows []models.TournamentStanding, name string) models.TournamentStanding {
	t.Helper()
	for _, r := range rows {
		if r.Participant == name {
			return r
		}
	}
	t.Fatalf("no standing row for %s", name)
	return models.TournamentStanding{}
}

func TestTournamentService_CreateAndJoin(t *testing.T) {
	f := newTestEnv(t, false)
	ctx := context.Background()
	tournament, users := f.league(t, "ann", "ben")

	details, err := f.tournaments.GetDetails(ctx, tournament.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "ben"}, details.PlayerNames())
	assert.Empty(t, details.Fixtures)
	assert.Empty(t, details.Standings)

	t.Run("joining twice keeps membership", func(t *testing.T) {
		added, err := f.tournaments.Join(ctx, users[1].ID, tournament.ID)
		require.NoError(t, err)
		assert.False(t, added)

		details, err := f.tournaments.GetDetails(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Len(t, details.Participants, 2)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		_, err := f.tournaments.Join(ctx, users[0].ID, 9999)
		assert.ErrorIs(t, err, services.ErrTournamentNotFound)
		_, err = f.tournaments.GetDetails(ctx, 9999)
		assert.Equal(t, services.KindNotFound, services.KindOf(err))
	})

	t.Run("dashboard lists member tournaments only", func(t *testing.T) {
		outsider := f.register(t, "cat")
		list, err := f.tournaments.ListForUser(ctx, outsider.ID)
		require.NoError(t, err)
		assert.Empty(t, list)

		list, err = f.tournaments.ListForUser(ctx, users[1].ID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, tournament.ID, list[0].ID)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := f.tournaments.Create(ctx, users[0].ID, "   ")
		assert.ErrorIs(t, err, services.ErrTournamentNameRequired)
	})
}

func TestTournamentService_GenerateFixtures(t *testing.T) {
	ctx := context.Background()

	t.Run("three players", func(t *testing.T) {
		f := newTestEnv(t, false)
		tournament, users := f.league(t, "A", "B", "C")

		fixtures, err := f.tournaments.GenerateFixtures(ctx, users[0].ID, tournament.ID)
		require.NoError(t, err)

		want := [][2]string{{"A", "B"}, {"B", "A"}, {"A", "C"}, {"C", "A"}, {"B", "C"}, {"C", "B"}}
		require.Len(t, fixtures, len(want))
		for i, fx := range fixtures {
			assert.Equal(t, i, fx.Position)
			assert.Equal(t, want[i], [2]string{fx.Home, fx.Away})
			assert.NotEmpty(t, fx.ID)
			assert.False(t, fx.Played)
		}

		standings, err := f.tournaments.GetStandings(ctx, tournament.ID)
		require.NoError(t, err)
		require.Len(t, standings, 3)
		for i, row := range standings {
			assert.Equal(t, []string{"A", "B", "C"}[i], row.Participant)
			assert.Zero(t, row.Played)
			assert.Zero(t, row.Points)
		}
		assert.Equal(t, float64(6), testutil.ToFloat64(f.metrics.FixturesGenerated))
	})

	t.Run("pair coverage", func(t *testing.T) {
		f := newTestEnv(t, false)
		names := randomNames(5)
		tournament, users := f.league(t, names...)

		fixtures, err := f.tournaments.GenerateFixtures(ctx, users[2].ID, tournament.ID)
		require.NoError(t, err)
		require.Len(t, fixtures, 5*4)

		seen := make(map[[2]string]int)
		for _, fx := range fixtures {
			assert.NotEqual(t, fx.Home, fx.Away)
			seen[[2]string{fx.Home, fx.Away}]++
		}
		assert.Len(t, seen, 20)
		for pair, n := range seen {
			assert.Equal(t, 1, n, "pair %v", pair)
		}
	})

	t.Run("single player is refused and nothing changes", func(t *testing.T) {
		f := newTestEnv(t, false)
		tournament, users := f.league(t, "solo")

		_, err := f.tournaments.GenerateFixtures(ctx, users[0].ID, tournament.ID)
		require.ErrorIs(t, err, services.ErrNotEnoughPlayers)
		assert.Equal(t, services.KindValidation, services.KindOf(err))

		details, err := f.tournaments.GetDetails(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Empty(t, details.Fixtures)
		assert.Empty(t, details.Standings)
	})

	t.Run("non-member is forbidden", func(t *testing.T) {
		f := newTestEnv(t, false)
		tournament, _ := f.league(t, "A", "B")
		outsider := f.register(t, "Z")

		_, err := f.tournaments.GenerateFixtures(ctx, outsider.ID, tournament.ID)
		assert.ErrorIs(t, err, services.ErrForbiddenOperation)
	})

	t.Run("missing tournament", func(t *testing.T) {
		f := newTestEnv(t, false)
		user := f.register(t, "A")
		_, err := f.tournaments.GenerateFixtures(ctx, user.ID, 42)
		assert.ErrorIs(t, err, services.ErrTournamentNotFound)
	})

	t.Run("regeneration discards results", func(t *testing.T) {
		f := newTestEnv(t, false)
		tournament, users := f.league(t, "A", "B")
		previous, err := f.tournaments.GenerateFixtures(ctx, users[0].ID, tournament.ID)
		require.NoError(t, err)
		_, err = f.tournaments.RecordResult(ctx, users[0].ID, tournament.ID, services.ResultInput{Fixture: at(0), HomeScore: 3, AwayScore: 1})
		require.NoError(t, err)

		joiner := f.register(t, "C")
		_, err = f.tournaments.Join(ctx, joiner.ID, tournament.ID)
		require.NoError(t, err)

		fixtures, err := f.tournaments.GenerateFixtures(ctx, users[1].ID, tournament.ID)
		require.NoError(t, err)
		assert.Len(t, fixtures, 6)

		details, err := f.tournaments.GetDetails(ctx, tournament.ID)
		require.NoError(t, err)
		require.Len(t, details.Fixtures, 6)
		for _, fx := range details.Fixtures {
			assert.False(t, fx.Played)
		}
		require.Len(t, details.Standings, 3)
		for _, row := range details.Standings {
			assert.Zero(t, row.Played)
		}

		// форма, открытая до регенерации, не должна попасть в новый матч на той же позиции
		stale, err := services.ParseFixtureAddress("1", previous[1].ID)
		require.NoError(t, err)
		_, err = f.tournaments.RecordResult(ctx, users[0].ID, tournament.ID, services.ResultInput{Fixture: stale, HomeScore: 1, AwayScore: 0})
		assert.ErrorIs(t, err, services.ErrFixtureNotFound)

		details, err = f.tournaments.GetDetails(ctx, tournament.ID)
		require.NoError(t, err)
		for _, fx := range details.Fixtures {
			assert.False(t, fx.Played)
		}
	})
}

func TestTournamentService_RecordResult(t *testing.T) {
	ctx := context.Background()
	f := newTestEnv(t, false)
	tournament, users := f.league(t, "A", "B", "C")
	fixtures, err := f.tournaments.GenerateFixtures(ctx, users[0].ID, tournament.ID)
	require.NoError(t, err)

	outcome, err := f.tournaments.RecordResult(ctx, users[1].ID, tournament.ID, services.ResultInput{Fixture: at(0), HomeScore: 3, AwayScore: 1})
	require.NoError(t, err)
	assert.True(t, outcome.Fixture.Played)
	assert.Equal(t, "A", outcome.Home.Participant)

	standings, err := f.tournaments.GetStandings(ctx, tournament.ID)
	require.NoError(t, err)
	a, b := standingOf(t, standings, "A"), standingOf(t, standings, "B")
	assert.Equal(t, []int{1, 1, 0, 0, 3, 1, 2, 3}, []int{a.Played, a.Won, a.Drawn, a.Lost, a.GoalsFor, a.GoalsAgainst, a.GoalDifference, a.Points})
	assert.Equal(t, []int{1, 0, 0, 1, 1, 3, -2, 0}, []int{b.Played, b.Won, b.Drawn, b.Lost, b.GoalsFor, b.GoalsAgainst, b.GoalDifference, b.Points})
	assert.Equal(t, "A", standings[0].Participant)

	t.Run("replay is a conflict and changes nothing", func(t *testing.T) {
		_, err := f.tournaments.RecordResult(ctx, users[0].ID, tournament.ID, services.ResultInput{Fixture: at(0), HomeScore: 0, AwayScore: 5})
		require.ErrorIs(t, err, services.ErrFixtureAlreadyPlayed)
		assert.Equal(t, services.KindConflict, services.KindOf(err))

		after, err := f.tournaments.GetStandings(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, standings, after)

		details, err := f.tournaments.GetDetails(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, details.Fixtures[0].HomeScore)
		assert.Equal(t, 1, details.Fixtures[0].AwayScore)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ResultsRejected.WithLabelValues("conflict")))
	})

	t.Run("draw by fixture id", func(t *testing.T) {
		// позиция 2: A-C
		_, err := f.tournaments.RecordResult(ctx, users[2].ID, tournament.ID, services.ResultInput{
			Fixture:   services.FixtureAddress{ID: fixtures[2].ID},
			HomeScore: 2,
			AwayScore: 2,
		})
		require.NoError(t, err)

		rows, err := f.tournaments.GetStandings(ctx, tournament.ID)
		require.NoError(t, err)
		c := standingOf(t, rows, "C")
		assert.Equal(t, 1, c.Played)
		assert.Equal(t, 1, c.Drawn)
		assert.Equal(t, 1, c.Points)
		assert.Equal(t, 0, c.GoalDifference)
	})

	t.Run("errors", func(t *testing.T) {
		outsider := f.register(t, "outsider")
		tests := []struct {
			name    string
			userID  int
			tid     int
			input   services.ResultInput
			wantErr error
		}{
			{"negative score", users[0].ID, tournament.ID, services.ResultInput{Fixture: at(1), HomeScore: -1}, services.ErrInvalidScore},
			{"score too large", users[0].ID, tournament.ID, services.ResultInput{Fixture: at(1), AwayScore: services.MaxScore + 1}, services.ErrInvalidScore},
			{"no address", users[0].ID, tournament.ID, services.ResultInput{HomeScore: 1}, services.ErrInvalidFixtureAddress},
			{"position out of range", users[0].ID, tournament.ID, services.ResultInput{Fixture: at(99)}, services.ErrFixtureNotFound},
			{"unknown id", users[0].ID, tournament.ID, services.ResultInput{Fixture: services.FixtureAddress{ID: "8f6e1c0e-8f5e-4d43-9d7c-1c1f2c7c9a10"}}, services.ErrFixtureNotFound},
			{"missing tournament", users[0].ID, 777, services.ResultInput{Fixture: at(1)}, services.ErrTournamentNotFound},
			{"non-member", outsider.ID, tournament.ID, services.ResultInput{Fixture: at(1)}, services.ErrForbiddenOperation},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.tournaments.RecordResult(ctx, tt.userID, tt.tid, tt.input)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})
}

func TestTournamentService_StandingsInvariants(t *testing.T) {
	ctx := context.Background()
	f := newTestEnv(t, false)
	tournament, users := f.league(t, randomNames(6)...)
	fixtures, err := f.tournaments.GenerateFixtures(ctx, users[0].ID, tournament.ID)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(7))
	for _, fx := range fixtures[:len(fixtures)*2/3] {
		_, err := f.tournaments.RecordResult(ctx, users[rng.Intn(len(users))].ID, tournament.ID, services.ResultInput{
			Fixture:   at(fx.Position),
			HomeScore: rng.Intn(5),
			AwayScore: rng.Intn(5),
		})
		require.NoError(t, err)

		rows, err := f.tournaments.GetStandings(ctx, tournament.ID)
		require.NoError(t, err)
		assert.True(t, brackets.IsRanked(rows))
		for _, row := range rows {
			assert.True(t, row.Consistent(), "%+v", row)
		}
	}

	rows, err := f.tournaments.GetStandings(ctx, tournament.ID)
	require.NoError(t, err)
	played, goalsFor, goalsAgainst := 0, 0, 0
	for _, row := range rows {
		played += row.Played
		goalsFor += row.GoalsFor
		goalsAgainst += row.GoalsAgainst
	}
	assert.Equal(t, 2*(len(fixtures)*2/3), played)
	assert.Equal(t, goalsFor, goalsAgainst)
}

func TestTournamentService_UploadLogo(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled without storage", func(t *testing.T) {
		f := newTestEnv(t, false)
		tournament, users := f.league(t, "A")
		_, err := f.tournaments.UploadLogo(ctx, users[0].ID, tournament.ID, services.LogoInput{
			Filename: "logo.png", ContentType: "image/png", Body: strings.NewReader("png"),
		})
		assert.ErrorIs(t, err, services.ErrUploadsDisabled)
	})

	t.Run("owner replaces the logo", func(t *testing.T) {
		f := newTestEnv(t, true)
		tournament, users := f.league(t, "A", "B")

		first, err := f.tournaments.UploadLogo(ctx, users[0].ID, tournament.ID, services.LogoInput{
			Filename: "Logo.PNG", ContentType: "image/png", Body: strings.NewReader("one"),
		})
		require.NoError(t, err)
		require.NotNil(t, first.LogoURL)
		assert.True(t, strings.HasSuffix(*first.LogoURL, ".png"))

		second, err := f.tournaments.UploadLogo(ctx, users[0].ID, tournament.ID, services.LogoInput{
			Filename: "logo.jpg", ContentType: "image/jpeg", Body: strings.NewReader("two"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{*first.LogoKey}, f.uploader.Deleted)
		assert.Len(t, f.uploader.Objects, 1)

		details, err := f.tournaments.GetDetails(ctx, tournament.ID)
		require.NoError(t, err)
		assert.Equal(t, second.LogoURL, details.LogoURL)
	})

	t.Run("non-owner and bad type", func(t *testing.T) {
		f := newTestEnv(t, true)
		tournament, users := f.league(t, "A", "B")

		_, err := f.tournaments.UploadLogo(ctx, users[1].ID, tournament.ID, services.LogoInput{
			Filename: "x.png", ContentType: "image/png", Body: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, services.ErrForbiddenOperation)

		_, err = f.tournaments.UploadLogo(ctx, users[0].ID, tournament.ID, services.LogoInput{
			Filename: "x.txt", ContentType: "text/plain", Body: strings.NewReader("x"),
		})
		assert.ErrorIs(t, err, services.ErrInvalidLogo)
	})
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"3", 3, false},
		{" 12 ", 12, false},
		{"250", 250, false},
		{"-1", 0, true},
		{"", 0, true},
		{"1.5", 0, true},
		{"two", 0, true},
		{"2147483647", services.MaxScore, false},
		{"2147483648", 0, true},
		{"99999999999999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := services.ParseScore(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, services.ErrInvalidScore)
				assert.Equal(t, services.KindValidation, services.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFixtureAddress(t *testing.T) {
	addr, err := services.ParseFixtureAddress("4", "")
	require.NoError(t, err)
	require.NotNil(t, addr.Position)
	assert.Equal(t, 4, *addr.Position)

	addr, err = services.ParseFixtureAddress("", "8f6e1c0e-8f5e-4d43-9d7c-1c1f2c7c9a10")
	require.NoError(t, err)
	assert.Nil(t, addr.Position)
	assert.Equal(t, "8f6e1c0e-8f5e-4d43-9d7c-1c1f2c7c9a10", addr.ID)

	// id важнее позиции
	addr, err = services.ParseFixtureAddress("0", "8f6e1c0e-8f5e-4d43-9d7c-1c1f2c7c9a10")
	require.NoError(t, err)
	assert.Nil(t, addr.Position)
	assert.Equal(t, "8f6e1c0e-8f5e-4d43-9d7c-1c1f2c7c9a10", addr.ID)

	for _, bad := range [][2]string{{"", ""}, {"-2", ""}, {"x", ""}, {"", "not-a-uuid"}, {"0", "not-a-uuid"}} {
		_, err = services.ParseFixtureAddress(bad[0], bad[1])
		assert.ErrorIs(t, err, services.ErrInvalidFixtureAddress)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want services.ErrorKind
	}{
		{services.ErrUsernameTaken, services.KindConflict},
		{services.ErrFixtureAlreadyPlayed, services.KindConflict},
		{services.ErrInvalidCredentials, services.KindUnauthorized},
		{services.ErrForbiddenOperation, services.KindForbidden},
		{services.ErrTournamentNotFound, services.KindNotFound},
		{services.ErrNotEnoughPlayers, services.KindValidation},
		{assert.AnError, services.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, services.KindOf(tt.err))
		})
	}
}
