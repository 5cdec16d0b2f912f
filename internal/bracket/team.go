package bracket

import "github.com/google/uuid"

type Team struct {
	ID             uuid.UUID `db:"id" json:"id"`
	TournamentSlug string    `db:"tournament_slug" json:"tournament_slug"`
	Name           string    `db:"name" json:"name"`
	Seed           int       `db:"seed" json:"seed"`

	// Aggregate record across published matches of published rounds.
	Wins       int `db:"wins" json:"wins"`
	Losses     int `db:"losses" json:"losses"`
	Tiebreaker int `db:"tiebreaker" json:"tiebreaker"`
}

type Player struct {
	ID     uuid.UUID `db:"id" json:"id"`
	TeamID uuid.UUID `db:"team_id" json:"team_id"`
	Name   string    `db:"name" json:"name"`
}

// Membership is a team's standing inside one round. Wins, Losses and
// Tiebreaker are a cache of the published match and game history and are only
// written by the standings recompute.
type Membership struct {
	ID         uuid.UUID `db:"id" json:"id"`
	RoundID    uuid.UUID `db:"round_id" json:"round_id"`
	TeamID     uuid.UUID `db:"team_id" json:"team_id"`
	Wins       int       `db:"wins" json:"wins"`
	Losses     int       `db:"losses" json:"losses"`
	Tiebreaker int       `db:"tiebreaker" json:"tiebreaker"`

	// Joined from teams
	TeamName string `db:"team_name" json:"team_name"`
	Seed     int    `db:"seed" json:"seed"`
}

// Record is the raw count a standings row is derived from.
type Record struct {
	Wins       int `db:"wins"`
	Losses     int `db:"losses"`
	GameWins   int `db:"game_wins"`
	GameLosses int `db:"game_losses"`
}

func (r Record) Tiebreaker() int {
	return r.GameWins - r.GameLosses
}
