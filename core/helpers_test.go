package core

import (
	"testing"
)

// bid is a shorthand for building catalog fixtures
func bid(value int64, units ...int) Bid {
	return Bid{Value: value, Units: units}
}

// newCatalog builds a catalog whose bidders and bids are numbered from 1
func newCatalog(numUnits int, bidders ...[]Bid) *Catalog {
	c := &Catalog{NumUnits: numUnits, Bidders: make([]Bidder, len(bidders))}
	for i, bids := range bidders {
		c.Bidders[i] = Bidder{ID: i + 1}
		for j, b := range bids {
			b.ID = j + 1
			c.Bidders[i].Bids = append(c.Bidders[i].Bids, b)
		}
	}
	return c
}

// choiceStrings renders every bidder's choice so selections can be compared with check.Equal
func choiceStrings(a Allocation) []string {
	out := make([]string, a.Len())
	for i := range out {
		out[i] = a.Choice(i).String()
	}
	return out
}

// mustInvariants fails the test when the allocation breaks occupancy or conflict rules
func mustInvariants(t *testing.T, a Allocation, c *Catalog) {
	t.Helper()
	if err := a.CheckInvariants(c); err != nil {
		t.Fatalf("allocation invariants violated: %v", err)
	}
}

// contestedCatalog has overlapping bids where the greedy start is not optimal
func contestedCatalog() *Catalog {
	return newCatalog(5,
		[]Bid{bid(4, 1, 2), bid(3, 5)},
		[]Bid{bid(6, 2, 3)},
		[]Bid{bid(2, 3, 4), bid(5, 4)},
		[]Bid{},
	)
}
