package model

import "time"

const (
	MinTeamSize = 2
	MaxTeamSize = 6
)

// Team holds the captain outside the member list: Members never contains
// the captain and never contains duplicates.
type Team struct {
	ID        int        `json:"id"`
	Captain   string     `json:"captain" validate:"required"`
	Members   []string   `json:"members" validate:"required"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Size is the captain plus the member list.
func (t *Team) Size() int {
	return 1 + len(t.Members)
}

// HasMember reports whether gameID is a listed member (captain excluded).
func (t *Team) HasMember(gameID string) bool {
	for _, m := range t.Members {
		if m == gameID {
			return true
		}
	}
	return false
}
