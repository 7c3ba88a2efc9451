package garden

import "verdant/api/internal/store"

// GridSlots is the number of fixed positions in a garden grid (2 rows of 3).
const GridSlots = 6

// GridIndex translates a 1-based slot number into a 0-based grid index.
// Values translating outside [0,6) are unassigned and excluded from the
// grid view.
func GridIndex(slot int) (int, bool) {
	index := slot - 1
	if index < 0 || index >= GridSlots {
		return -1, false
	}
	return index, true
}

// BuildGrid places plants into their grid positions. Plants with an
// out-of-range slot are silently dropped; when two plants claim the same
// slot the one later in snapshot order wins.
func BuildGrid(plants []store.Plant) [GridSlots]*store.Plant {
	var grid [GridSlots]*store.Plant
	for i := range plants {
		index, ok := GridIndex(plants[i].Slot)
		if !ok {
			continue
		}
		grid[index] = &plants[i]
	}
	return grid
}
