package models

import "time"

// Participant is a user's membership in a tournament. Username doubles as the
// participant identifier used by fixtures and standings.
type Participant struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	JoinedAt     time.Time `json:"joined_at" db:"joined_at"`
}
