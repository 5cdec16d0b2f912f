package bracket

import (
	"bytes"
	"fmt"
	"iter"

	"github.com/google/uuid"
)

// PairKey identifies the two teams of a match regardless of home and away.
type PairKey struct {
	a, b uuid.UUID
}

func NewPairKey(x, y uuid.UUID) PairKey {
	if bytes.Compare(x[:], y[:]) > 0 {
		x, y = y, x
	}
	return PairKey{a: x, b: y}
}

// MatchResult is a published match between two teams of a round together with
// the games each side has won so far.
type MatchResult struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	HomeTeamID uuid.UUID  `db:"home_team_id" json:"home_team_id"`
	AwayTeamID uuid.UUID  `db:"away_team_id" json:"away_team_id"`
	WinnerID   *uuid.UUID `db:"winner_id" json:"winner_id,omitempty"`
	HomeWins   int        `db:"home_wins" json:"home_wins"`
	AwayWins   int        `db:"away_wins" json:"away_wins"`
}

type MatchLookup map[PairKey]MatchResult

func NewMatchLookup(results []MatchResult) MatchLookup {
	lookup := make(MatchLookup, len(results))
	for _, r := range results {
		lookup[NewPairKey(r.HomeTeamID, r.AwayTeamID)] = r
	}
	return lookup
}

// Pairing is one slot of a bracket row. Home and Away are nil for slots whose
// participants are not known yet.
type Pairing struct {
	Home       *Membership  `json:"home"`
	Away       *Membership  `json:"away"`
	Match      *MatchResult `json:"match,omitempty"`
	IsChampion bool         `json:"is_champion"`
}

type Row struct {
	Name     string    `json:"name"`
	Pairings []Pairing `json:"pairings"`
}

func RoundName(players int) string {
	switch players {
	case 1:
		return "Champion"
	case 2:
		return "Finals"
	case 4:
		return "Semi-finals"
	}
	return fmt.Sprintf("Round of %d", players)
}

// Rows yields the bracket from the first row down to the champion.
// participants must be given in seed order and carry their wins in the round:
// a participant takes part in row n+1 when it has at least n wins. Once the
// known participants run out, placeholder rows follow for every remaining
// halving. The sequence is empty when the participants cannot be seeded.
//
// An odd participant count in a row leaves the last participant unpaired,
// no bye is generated.
func Rows(participants []Membership, matches MatchLookup) iter.Seq[Row] {
	seeded := Seed(participants)

	return func(yield func(Row) bool) {
		if len(seeded) == 0 {
			return
		}

		current := make([]*Membership, len(seeded))
		for i := range seeded {
			current[i] = &seeded[i]
		}

		players := 0
		for winsNeeded := 1; len(current) > 0; winsNeeded++ {
			players = len(current)
			row := Row{Name: RoundName(players)}
			if players == 1 {
				row.Pairings = []Pairing{{Home: current[0], IsChampion: true}}
			} else {
				for i := 0; i+1 < players; i += 2 {
					row.Pairings = append(row.Pairings, pair(current[i], current[i+1], matches))
				}
			}
			if !yield(row) {
				return
			}

			var advancing []*Membership
			for _, m := range current {
				if m.Wins >= winsNeeded {
					advancing = append(advancing, m)
				}
			}
			current = advancing
		}

		for players /= 2; players > 0; players /= 2 {
			row := Row{Name: RoundName(players)}
			if players == 1 {
				row.Pairings = []Pairing{{IsChampion: true}}
			} else {
				row.Pairings = make([]Pairing, players/2)
			}
			if !yield(row) {
				return
			}
		}
	}
}

func pair(home, away *Membership, matches MatchLookup) Pairing {
	p := Pairing{Home: home, Away: away}
	if m, ok := matches[NewPairKey(home.TeamID, away.TeamID)]; ok {
		p.Match = &m
	}
	return p
}
