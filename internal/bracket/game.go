package bracket

import (
	"github.com/google/uuid"
)

type Game struct {
	ID      uuid.UUID `db:"id" json:"id"`
	MatchID uuid.UUID `db:"match_id" json:"match_id"`
	Order   int       `db:"game_order" json:"order"`
	MapName string    `db:"map_name" json:"map"`

	HomePlayerID *uuid.UUID `db:"home_player_id" json:"home_player_id,omitempty"`
	AwayPlayerID *uuid.UUID `db:"away_player_id" json:"away_player_id,omitempty"`

	// Derived by ApplyOutcome, never set directly.
	WinnerPlayerID *uuid.UUID `db:"winner_player_id" json:"winner_player_id,omitempty"`
	LoserPlayerID  *uuid.UUID `db:"loser_player_id" json:"loser_player_id,omitempty"`
	WinnerTeamID   *uuid.UUID `db:"winner_team_id" json:"winner_team_id,omitempty"`
	LoserTeamID    *uuid.UUID `db:"loser_team_id" json:"loser_team_id,omitempty"`

	Forfeit bool   `db:"forfeit" json:"forfeit"`
	IsAce   bool   `db:"is_ace" json:"is_ace"`
	VOD     string `db:"vod" json:"vod,omitempty"`
}

func (g *Game) HasWinner() bool {
	return g.WinnerTeamID != nil
}

func (g *Game) ClearOutcome() {
	g.WinnerPlayerID = nil
	g.LoserPlayerID = nil
	g.WinnerTeamID = nil
	g.LoserTeamID = nil
}

// Outcome is the reported result of a game: either an IndividualOutcome
// naming the winning player or a TeamOutcome naming the winning team.
type Outcome interface {
	outcome()
}

type IndividualOutcome struct {
	WinnerPlayerID uuid.UUID
}

type TeamOutcome struct {
	WinnerTeamID uuid.UUID
}

func (IndividualOutcome) outcome() {}
func (TeamOutcome) outcome()       {}

// ApplyOutcome validates o against the match and writes the derived winner and
// loser fields of g. A nil outcome clears the result.
func ApplyOutcome(m *Match, g *Game, o Outcome) error {
	if g.HomePlayerID != nil && g.AwayPlayerID != nil && *g.HomePlayerID == *g.AwayPlayerID {
		return invalid("away_player", "a player cannot play against themselves")
	}

	switch o := o.(type) {
	case nil:
		g.ClearOutcome()
	case IndividualOutcome:
		var winnerSide Side
		switch {
		case g.HomePlayerID != nil && *g.HomePlayerID == o.WinnerPlayerID:
			winnerSide = HomeSide
			g.LoserPlayerID = g.AwayPlayerID
		case g.AwayPlayerID != nil && *g.AwayPlayerID == o.WinnerPlayerID:
			winnerSide = AwaySide
			g.LoserPlayerID = g.HomePlayerID
		default:
			return invalid("winner", "winner must be one of the players playing")
		}
		winner := o.WinnerPlayerID
		g.WinnerPlayerID = &winner
		g.WinnerTeamID = m.TeamOf(winnerSide)
		g.LoserTeamID = m.TeamOf(opposite(winnerSide))
	case TeamOutcome:
		if m.Structure != TeamStructure {
			return invalid("winner_team", "a winning team can only be reported for team matches")
		}
		side := m.SideOf(&o.WinnerTeamID)
		if side == NoSide {
			return invalid("winner_team", "winning team must be one of the teams playing")
		}
		g.WinnerPlayerID = nil
		g.LoserPlayerID = nil
		g.WinnerTeamID = m.TeamOf(side)
		g.LoserTeamID = m.TeamOf(opposite(side))
	default:
		return invalid("winner", "unsupported outcome %T", o)
	}
	return nil
}

func opposite(s Side) Side {
	switch s {
	case HomeSide:
		return AwaySide
	case AwaySide:
		return HomeSide
	}
	return NoSide
}

// GamesPlayed returns the games that have a decided winner, in order.
func GamesPlayed(games []Game) []Game {
	var played []Game
	for _, g := range games {
		if g.HasWinner() {
			played = append(played, g)
		}
	}
	return played
}

// FirstVOD returns the VOD of the first played game, or "" when none exists.
func FirstVOD(games []Game) string {
	played := GamesPlayed(games)
	if len(played) == 0 {
		return ""
	}
	return played[0].VOD
}
