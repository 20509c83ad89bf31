package core

import (
	"fmt"
)

// Allocation selects at most one bid per bidder and tracks the units those
// bids claim. Values are never mutated once returned; every transition
// builds a new Allocation.
type Allocation struct {
	choices   []Choice
	occupancy UnitSet

	// everyUnit > 0 marks units 1..everyUnit as occupied without holding
	// them in occupancy. Only GoalBound builds such allocations.
	everyUnit int
}

// NewAllocation builds an Allocation from explicit per-bidder choices.
// It fails when the choice count does not match the catalog, a bid index is
// out of range, or two selected bids claim the same unit.
func NewAllocation(c *Catalog, choices []Choice) (Allocation, error) {
	if len(choices) != len(c.Bidders) {
		return Allocation{}, fmt.Errorf("got %d choices for %d bidders", len(choices), len(c.Bidders))
	}

	a := Allocation{
		choices:   make([]Choice, len(choices)),
		occupancy: make(UnitSet),
	}
	copy(a.choices, choices)

	for i, choice := range choices {
		idx, ok := choice.Index()
		if !ok {
			continue
		}
		if idx >= len(c.Bidders[i].Bids) {
			return Allocation{}, fmt.Errorf("bidder %d: bid index %d out of range (%d bids)", i, idx, len(c.Bidders[i].Bids))
		}
		bid := &c.Bidders[i].Bids[idx]
		if !UnitsFree(a.occupancy, bid.Units) {
			return Allocation{}, fmt.Errorf("bidder %d: bid %d overlaps units already claimed", i, idx)
		}
		claim(a.occupancy, bid.Units)
	}

	return a, nil
}

// Choice returns the selection of bidder i.
func (a Allocation) Choice(i int) Choice {
	return a.choices[i]
}

// Choices returns a copy of every bidder's selection in catalog order.
func (a Allocation) Choices() []Choice {
	out := make([]Choice, len(a.choices))
	copy(out, a.choices)
	return out
}

// Len returns the number of bidders covered by the allocation.
func (a Allocation) Len() int { return len(a.choices) }

// Occupied reports whether unit u is claimed by a selected bid.
func (a Allocation) Occupied(u int) bool {
	if a.everyUnit > 0 {
		return u >= 1 && u <= a.everyUnit
	}
	return a.occupancy.Has(u)
}

// OccupiedCount returns the number of claimed units.
func (a Allocation) OccupiedCount() int {
	if a.everyUnit > 0 {
		return a.everyUnit
	}
	return len(a.occupancy)
}

// Occupancy returns a copy of the claimed unit set.
func (a Allocation) Occupancy() UnitSet {
	if a.everyUnit > 0 {
		s := make(UnitSet, a.everyUnit)
		for u := 1; u <= a.everyUnit; u++ {
			s[u] = struct{}{}
		}
		return s
	}
	return a.occupancy.Clone()
}

// sameOccupancy compares claimed units. Units outside 1..NumUnits never
// occur in a validated catalog, so a dense side only needs a count match.
func (a Allocation) sameOccupancy(o Allocation) bool {
	switch {
	case a.everyUnit > 0 && o.everyUnit > 0:
		return a.everyUnit == o.everyUnit
	case a.everyUnit > 0:
		return o.denseUpTo(a.everyUnit)
	case o.everyUnit > 0:
		return a.denseUpTo(o.everyUnit)
	default:
		return a.occupancy.Equal(o.occupancy)
	}
}

func (a Allocation) denseUpTo(n int) bool {
	if len(a.occupancy) != n {
		return false
	}
	for u := range a.occupancy {
		if u < 1 || u > n {
			return false
		}
	}
	return true
}

// Equal reports whether both allocations select the same bids.
func (a Allocation) Equal(o Allocation) bool {
	if len(a.choices) != len(o.choices) {
		return false
	}
	for i := range a.choices {
		if a.choices[i] != o.choices[i] {
			return false
		}
	}
	return a.sameOccupancy(o)
}

// CheckInvariants verifies that occupancy is exactly the union of the
// selected bids' units and that no two selected bids share a unit.
func (a Allocation) CheckInvariants(c *Catalog) error {
	if len(a.choices) != len(c.Bidders) {
		return fmt.Errorf("allocation covers %d bidders, catalog has %d", len(a.choices), len(c.Bidders))
	}

	owner := make(map[int]int)
	for i, choice := range a.choices {
		bid := c.bid(i, choice)
		if bid == nil {
			continue
		}
		for _, u := range bid.Units {
			if prev, taken := owner[u]; taken {
				return fmt.Errorf("unit %d claimed by bidders %d and %d", u, prev, i)
			}
			owner[u] = i
			if !a.Occupied(u) {
				return fmt.Errorf("unit %d selected by bidder %d but not occupied", u, i)
			}
		}
	}

	if len(owner) != a.OccupiedCount() {
		return fmt.Errorf("occupancy holds %d units, selected bids claim %d", a.OccupiedCount(), len(owner))
	}
	return nil
}

// with returns a copy of a where bidder i selects to. The caller must
// already know the move is conflict-free.
func (a Allocation) with(c *Catalog, i int, to Choice) Allocation {
	next := Allocation{
		choices:   make([]Choice, len(a.choices)),
		occupancy: a.occupancy.Clone(),
	}
	copy(next.choices, a.choices)

	if prev := c.bid(i, a.choices[i]); prev != nil {
		release(next.occupancy, prev.Units)
	}
	if bid := c.bid(i, to); bid != nil {
		claim(next.occupancy, bid.Units)
	}
	next.choices[i] = to
	return next
}

func claim(occupancy UnitSet, units []int) {
	for _, u := range units {
		occupancy[u] = struct{}{}
	}
}

func release(occupancy UnitSet, units []int) {
	for _, u := range units {
		delete(occupancy, u)
	}
}
