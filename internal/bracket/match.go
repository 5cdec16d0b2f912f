package bracket

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Side int

const (
	NoSide Side = iota
	HomeSide
	AwaySide
)

func (s Side) String() string {
	switch s {
	case HomeSide:
		return "home"
	case AwaySide:
		return "away"
	}
	return "none"
}

type Match struct {
	ID             uuid.UUID `db:"id" json:"id"`
	TournamentSlug string    `db:"tournament_slug" json:"tournament_slug"`
	RoundID        uuid.UUID `db:"round_id" json:"round_id"`
	Structure      Structure `db:"structure" json:"structure"`

	HomeTeamID uuid.UUID `db:"home_team_id" json:"home_team_id"`
	AwayTeamID uuid.UUID `db:"away_team_id" json:"away_team_id"`

	Published   bool       `db:"published" json:"published"`
	PublishDate *time.Time `db:"publish_date" json:"publish_date,omitempty"`
	Description string     `db:"description" json:"description"`
	RefereeID   *uuid.UUID `db:"referee_id" json:"referee_id,omitempty"`

	// LoserID always mirrors WinnerID, use SetWinner to change either.
	WinnerID *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`
	LoserID  *uuid.UUID `db:"loser_id" json:"loser_id,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m *Match) SideOf(teamID *uuid.UUID) Side {
	switch {
	case teamID == nil:
		return NoSide
	case *teamID == m.HomeTeamID:
		return HomeSide
	case *teamID == m.AwayTeamID:
		return AwaySide
	}
	return NoSide
}

func (m *Match) TeamOf(side Side) *uuid.UUID {
	switch side {
	case HomeSide:
		id := m.HomeTeamID
		return &id
	case AwaySide:
		id := m.AwayTeamID
		return &id
	}
	return nil
}

// CheckSeat reports a ValidationError unless p plays for the team on side.
func (m *Match) CheckSeat(side Side, p *Player) error {
	team := m.TeamOf(side)
	if team == nil {
		return invalid("side", "unknown side %d", side)
	}
	if p.TeamID != *team {
		return invalid(side.String()+"_player", "player %s does not play for the %s team", p.Name, side)
	}
	return nil
}

func (m *Match) Teams() [2]uuid.UUID {
	return [2]uuid.UUID{m.HomeTeamID, m.AwayTeamID}
}

// SetWinner sets the winner and derives the loser from it. A nil winner
// returns the match to undecided.
func (m *Match) SetWinner(teamID *uuid.UUID) error {
	if teamID == nil {
		m.WinnerID = nil
		m.LoserID = nil
		return nil
	}
	switch m.SideOf(teamID) {
	case HomeSide:
		m.WinnerID, m.LoserID = m.TeamOf(HomeSide), m.TeamOf(AwaySide)
	case AwaySide:
		m.WinnerID, m.LoserID = m.TeamOf(AwaySide), m.TeamOf(HomeSide)
	default:
		return invalid("winner", "winner must be one of the teams playing")
	}
	return nil
}

func (m *Match) Validate() error {
	if m.HomeTeamID == m.AwayTeamID {
		return invalid("away_team", "a team cannot play against itself")
	}
	if !m.Structure.Valid() {
		return invalid("structure", "unknown match structure %q", m.Structure)
	}
	if m.WinnerID != nil {
		winner := *m.WinnerID
		if err := m.SetWinner(&winner); err != nil {
			return err
		}
	} else {
		m.LoserID = nil
	}
	return nil
}

// Describe renders the match the way notifications and listings show it.
func (m *Match) Describe(tournament, home, away string) string {
	day := m.CreatedAt
	if m.PublishDate != nil {
		day = *m.PublishDate
	}
	return fmt.Sprintf("%s %s vs %s %s", tournament, home, away, day.Format("Jan 02, 2006"))
}
