package core

// UnitsFree returns true if none of the units is already in occupancy.
func UnitsFree(occupancy UnitSet, units []int) bool {
	for _, u := range units {
		if occupancy.Has(u) {
			return false
		}
	}
	return true
}

// unitsFreeExcept is UnitsFree with the units in released treated as free.
// released holds the units of the bid the mover is giving up.
func unitsFreeExcept(occupancy UnitSet, released []int, units []int) bool {
	for _, u := range units {
		if !occupancy.Has(u) {
			continue
		}
		if !containsUnit(released, u) {
			return false
		}
	}
	return true
}

func containsUnit(units []int, u int) bool {
	for _, v := range units {
		if v == u {
			return true
		}
	}
	return false
}
