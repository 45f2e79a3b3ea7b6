package brackets

import "github.com/Dosada05/league-system/models"

type FixtureGenerator interface {
	// GenerateFixtures returns the schedule for the given participants in a
	// deterministic order. Fewer than two participants yield no fixtures.
	GenerateFixtures(participants []string) []models.Fixture

	GetName() string
}
