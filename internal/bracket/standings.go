package bracket

import (
	"cmp"
	"slices"
)

// SortParticipants orders memberships the way a round ranks them. Group rounds
// rank by wins, then tiebreaker, then seed. Elimination rounds keep seed order
// because bracket position, not record, decides their pairings.
func SortParticipants(structure RoundStructure, members []Membership) {
	if structure == EliminationRound {
		slices.SortStableFunc(members, func(a, b Membership) int {
			return cmp.Compare(a.Seed, b.Seed)
		})
		return
	}

	slices.SortStableFunc(members, func(a, b Membership) int {
		return cmp.Or(
			cmp.Compare(b.Wins, a.Wins),
			cmp.Compare(b.Tiebreaker, a.Tiebreaker),
			cmp.Compare(a.Seed, b.Seed),
		)
	})
}
