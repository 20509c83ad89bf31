package core

// InitialState walks bidders in catalog order and gives each its first bid
// when that bid's units are still free. Earlier bidders win contested units.
func InitialState(c *Catalog) Allocation {
	a := Allocation{
		choices:   make([]Choice, len(c.Bidders)),
		occupancy: make(UnitSet),
	}

	for i, bidder := range c.Bidders {
		if len(bidder.Bids) == 0 {
			continue
		}
		first := &bidder.Bids[0]
		if UnitsFree(a.occupancy, first.Units) {
			a.choices[i] = Pick(0)
			claim(a.occupancy, first.Units)
		}
	}

	return a
}

// GoalBound returns the loose upper bound used for progress reporting: each
// bidder takes its highest-value bid regardless of conflicts, and every
// unit counts as claimed. The result is usually not a feasible allocation.
// The claimed units are kept as a count, so the cost does not grow with
// NumUnits.
//
// Ties between equal-value bids keep the earliest one.
func GoalBound(c *Catalog) Allocation {
	g := Allocation{
		choices:   make([]Choice, len(c.Bidders)),
		occupancy: make(UnitSet),
		everyUnit: c.NumUnits,
	}

	for i, bidder := range c.Bidders {
		if len(bidder.Bids) == 0 {
			continue
		}
		best := 0
		for j := 1; j < len(bidder.Bids); j++ {
			if bidder.Bids[j].Value > bidder.Bids[best].Value {
				best = j
			}
		}
		g.choices[i] = Pick(best)
	}

	return g
}

// IsGoal compares occupancy only; which bids produced it is not checked.
func IsGoal(a, goal Allocation) bool {
	return a.sameOccupancy(goal)
}
