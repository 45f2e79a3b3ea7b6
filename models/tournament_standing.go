package models

import "time"

type TournamentStanding struct {
	ID             int       `json:"id" db:"id"`
	TournamentID   int       `json:"tournament_id" db:"tournament_id"`
	Participant    string    `json:"participant" db:"participant"`
	Played         int       `json:"played" db:"played"`
	Won            int       `json:"won" db:"won"`
	Drawn          int       `json:"drawn" db:"drawn"`
	Lost           int       `json:"lost" db:"lost"`
	GoalsFor       int       `json:"gf" db:"gf"`
	GoalsAgainst   int       `json:"ga" db:"ga"`
	GoalDifference int       `json:"gd" db:"gd"`
	Points         int       `json:"points" db:"points"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Consistent reports whether the derived counters agree with the raw totals.
func (s TournamentStanding) Consistent() bool {
	return s.Played == s.Won+s.Drawn+s.Lost &&
		s.GoalDifference == s.GoalsFor-s.GoalsAgainst &&
		s.Points == s.Won*3+s.Drawn
}
