package bracket

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentSignup    TournamentStatus = "signup"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

// Structure tells whether games are played between individual players or
// decided between whole teams.
type Structure string

const (
	IndividualStructure Structure = "individual"
	TeamStructure       Structure = "team"
)

func (s Structure) Valid() bool {
	return s == IndividualStructure || s == TeamStructure
}

type Tournament struct {
	Slug          string           `db:"slug" json:"slug"`
	Name          string           `db:"name" json:"name"`
	Status        TournamentStatus `db:"status" json:"status"`
	Structure     Structure        `db:"structure" json:"structure"`
	GamesPerMatch int              `db:"games_per_match" json:"games_per_match"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

func (t *Tournament) String() string {
	return t.Name
}

type Map struct {
	Name string `db:"name" json:"name"`
}

type RoundStructure string

const (
	GroupRound       RoundStructure = "group"
	EliminationRound RoundStructure = "elimination"
)

type Round struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	TournamentSlug string         `db:"tournament_slug" json:"tournament_slug"`
	Order          int            `db:"round_order" json:"order"`
	StageOrder     int            `db:"stage_order" json:"stage_order"`
	StageName      string         `db:"stage_name" json:"stage_name"`
	Structure      RoundStructure `db:"structure" json:"structure"`
	Published      bool           `db:"published" json:"published"`
}

func (r *Round) String() string {
	return fmt.Sprintf("%s : %d", r.StageName, r.Order)
}

// Stage groups the rounds that share a stage_order.
type Stage struct {
	Name  string `db:"stage_name" json:"name"`
	Order int    `db:"stage_order" json:"order"`
}

// CanBecome reports whether a tournament in status s may move to next.
// Tournaments only move forward: signup, active, completed.
func (s TournamentStatus) CanBecome(next TournamentStatus) bool {
	switch s {
	case TournamentSignup:
		return next == TournamentActive
	case TournamentActive:
		return next == TournamentCompleted
	}
	return false
}
