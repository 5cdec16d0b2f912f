package bracket

import (
	"cmp"
	"slices"

	"github.com/google/uuid"
)

// Majority is the number of game wins that decides a match of total games.
func Majority(total int) int {
	return total/2 + 1
}

type Tally struct {
	Home int
	Away int
}

func (t Tally) Leader(required int) Side {
	switch {
	case t.Home >= required:
		return HomeSide
	case t.Away >= required:
		return AwaySide
	}
	return NoSide
}

func CountWins(m *Match, games []Game) Tally {
	var t Tally
	for _, g := range games {
		switch m.SideOf(g.WinnerTeamID) {
		case HomeSide:
			t.Home++
		case AwaySide:
			t.Away++
		}
	}
	return t
}

// DecideWinner returns the winner the match should carry given all of its
// recorded games, and whether that differs from the current winner.
func DecideWinner(m *Match, games []Game) (*uuid.UUID, bool) {
	leader := CountWins(m, games).Leader(Majority(len(games)))
	if leader == NoSide {
		return nil, m.WinnerID != nil
	}
	if m.SideOf(m.WinnerID) == leader {
		return m.WinnerID, false
	}
	return m.TeamOf(leader), true
}

// SortGames orders games by their order within the match.
func SortGames(games []Game) {
	slices.SortFunc(games, func(a, b Game) int {
		return cmp.Compare(a.Order, b.Order)
	})
}

// ExtraVictories returns the indexes of the won games that were played after
// one side had already reached the majority. games must be sorted by order.
// Only the games before a given game count towards the tally it is measured
// against.
func ExtraVictories(m *Match, games []Game) []int {
	required := Majority(len(games))

	var tally Tally
	var extra []int
	for i, g := range games {
		if !g.HasWinner() {
			continue
		}
		if tally.Leader(required) != NoSide {
			extra = append(extra, i)
			continue
		}
		switch m.SideOf(g.WinnerTeamID) {
		case HomeSide:
			tally.Home++
		case AwaySide:
			tally.Away++
		}
	}
	return extra
}
