package bracket

// SeedOrder returns, for a bracket of n slots, the original index of the
// participant placed in each slot. Seed 0 and seed 1 can only meet in the
// final, seeds 2 and 3 only meet one of them in the semi-finals and so on.
// It returns nil when n is not a power of two.
func SeedOrder(n int) []int {
	if n <= 0 || n&(n-1) != 0 {
		return nil
	}

	slots := make([]int, n)
	step := n
	for stageSize := 2; stageSize <= n; stageSize *= 2 {
		half := step / 2
		for i := 0; i < n; i += step {
			slots[i+half] = stageSize - 1 - slots[i]
		}
		step = half
	}
	return slots
}

// Seed arranges participants, given best seed first, into bracket order.
// It returns nil when len(participants) is not a power of two.
func Seed[T any](participants []T) []T {
	order := SeedOrder(len(participants))
	if order == nil {
		return nil
	}

	seeded := make([]T, len(order))
	for slot, idx := range order {
		seeded[slot] = participants[idx]
	}
	return seeded
}
