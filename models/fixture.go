package models

// Fixture is one scheduled match of a tournament. Position is the 0-based index
// in the generated schedule and never changes until the schedule is regenerated.
type Fixture struct {
	ID           string `json:"id" db:"id"`
	TournamentID int    `json:"tournament_id" db:"tournament_id"`
	Position     int    `json:"position" db:"position"`
	Home         string `json:"home" db:"home"`
	Away         string `json:"away" db:"away"`
	HomeScore    int    `json:"home_score" db:"home_score"`
	AwayScore    int    `json:"away_score" db:"away_score"`
	Played       bool   `json:"played" db:"played"`
}
