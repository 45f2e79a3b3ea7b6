package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/league-system/models"
)

const (
	PointsForWin  = 3
	PointsForDraw = 1
)

var ErrNegativeScore = errors.New("score must not be negative")

// NewStandings creates one zeroed row per participant, in participant order.
func NewStandings(tournamentID int, participants []string) []*models.TournamentStanding {
	rows := make([]*models.TournamentStanding, 0, len(participants))
	for _, name := range participants {
		rows = append(rows, &models.TournamentStanding{
			TournamentID: tournamentID,
			Participant:  name,
		})
	}
	return rows
}

// ApplyResult adds one match result to both sides' rows.
func ApplyResult(home, away *models.TournamentStanding, homeScore, awayScore int) error {
	if homeScore < 0 || awayScore < 0 {
		return fmt.Errorf("%w: %d-%d", ErrNegativeScore, homeScore, awayScore)
	}
	if home == nil || away == nil {
		return errors.New("both standing rows are required")
	}
	applySide(home, homeScore, awayScore)
	applySide(away, awayScore, homeScore)
	return nil
}

// applySide updates the raw counters and then derives gd and points from the
// new totals rather than patching them.
func applySide(s *models.TournamentStanding, goalsFor, goalsAgainst int) {
	s.Played++
	switch {
	case goalsFor > goalsAgainst:
		s.Won++
	case goalsFor == goalsAgainst:
		s.Drawn++
	default:
		s.Lost++
	}
	s.GoalsFor += goalsFor
	s.GoalsAgainst += goalsAgainst
	s.GoalDifference = s.GoalsFor - s.GoalsAgainst
	s.Points = s.Won*PointsForWin + s.Drawn*PointsForDraw
}

// SortStandings orders rows by points, then goal difference, both descending.
// Remaining ties keep their incoming order.
func SortStandings(rows []models.TournamentStanding) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].GoalDifference > rows[j].GoalDifference
	})
}

// IsRanked reports whether rows are already in ranking order.
func IsRanked(rows []models.TournamentStanding) bool {
	return sort.SliceIsSorted(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].GoalDifference > rows[j].GoalDifference
	})
}
