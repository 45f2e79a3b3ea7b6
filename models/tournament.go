package models

import "time"

// Tournament представляет турнир. Fixtures и Standings принадлежат турниру и
// заменяются целиком при каждой генерации расписания.
type Tournament struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	OwnerID   int       `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	LogoKey   *string   `json:"-" db:"logo_key"`
	LogoURL   *string   `json:"logo_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []Participant        `json:"participants,omitempty" db:"-"`
	Fixtures     []Fixture            `json:"fixtures,omitempty" db:"-"`
	Standings    []TournamentStanding `json:"standings,omitempty" db:"-"`
}

// PlayerNames returns participant identifiers in join order.
func (t *Tournament) PlayerNames() []string {
	names := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		names = append(names, p.Username)
	}
	return names
}
