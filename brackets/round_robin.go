package brackets

import "github.com/Dosada05/league-system/models"

const (
	SingleLeg = 1
	DoubleLeg = 2
)

type RoundRobinGenerator struct {
	legs int
}

// NewRoundRobinGenerator returns a generator playing each pairing once or twice.
// Any value other than SingleLeg is treated as DoubleLeg.
func NewRoundRobinGenerator(legs int) FixtureGenerator {
	if legs != SingleLeg {
		legs = DoubleLeg
	}
	return &RoundRobinGenerator{legs: legs}
}

func (g *RoundRobinGenerator) GetName() string {
	if g.legs == SingleLeg {
		return "RoundRobin"
	}
	return "DoubleRoundRobin"
}

// GenerateFixtures walks every pair (i, j) with i before j in input order and
// emits i-vs-j, followed directly by the return leg j-vs-i in double mode.
// Positions follow emission order, so a double schedule for n participants has
// positions 0..n*(n-1)-1.
func (g *RoundRobinGenerator) GenerateFixtures(participants []string) []models.Fixture {
	n := len(participants)
	if n < 2 {
		return []models.Fixture{}
	}

	fixtures := make([]models.Fixture, 0, n*(n-1)/2*g.legs)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			fixtures = append(fixtures, models.Fixture{
				Position: len(fixtures),
				Home:     participants[i],
				Away:     participants[j],
			})
			if g.legs == DoubleLeg {
				fixtures = append(fixtures, models.Fixture{
					Position: len(fixtures),
					Home:     participants[j],
					Away:     participants[i],
				})
			}
		}
	}
	return fixtures
}
