package core

import (
	"fmt"
	"sort"
)

// Bid is a single offer: a value paid if every unit in Units is granted.
type Bid struct {
	ID    int   `json:"id"`
	Value int64 `json:"value"`
	Units []int `json:"units"`
}

// Bidder holds the bids of one participant in input order.
type Bidder struct {
	ID   int   `json:"id"`
	Bids []Bid `json:"bids"`
}

// Catalog is the immutable problem definition shared by every component.
// Unit identifiers are 1-based and never exceed NumUnits.
type Catalog struct {
	NumUnits int      `json:"num_units"`
	Bidders  []Bidder `json:"bidders"`
}

// Validate reports the first structural problem in the catalog, if any.
func (c *Catalog) Validate() error {
	if c.NumUnits < 0 {
		return fmt.Errorf("negative unit count %d", c.NumUnits)
	}
	for i, bidder := range c.Bidders {
		for j, bid := range bidder.Bids {
			if bid.Value < 0 {
				return fmt.Errorf("bidder %d bid %d: negative value %d", i, j, bid.Value)
			}
			seen := make(map[int]bool, len(bid.Units))
			for _, u := range bid.Units {
				if u < 1 || u > c.NumUnits {
					return fmt.Errorf("bidder %d bid %d: unit %d outside 1..%d", i, j, u, c.NumUnits)
				}
				if seen[u] {
					return fmt.Errorf("bidder %d bid %d: duplicate unit %d", i, j, u)
				}
				seen[u] = true
			}
		}
	}
	return nil
}

// TotalBids returns the number of bids across all bidders.
func (c *Catalog) TotalBids() int {
	n := 0
	for _, b := range c.Bidders {
		n += len(b.Bids)
	}
	return n
}

func (c *Catalog) bid(bidder int, choice Choice) *Bid {
	idx, ok := choice.Index()
	if !ok {
		return nil
	}
	bids := c.Bidders[bidder].Bids
	if idx >= len(bids) {
		panic(fmt.Sprintf("core: bid index %d out of range for bidder %d (%d bids)", idx, bidder, len(bids)))
	}
	return &bids[idx]
}

// Choice is the optional bid selected for a bidder. The zero value selects nothing.
type Choice struct {
	index int
	set   bool
}

// None selects no bid.
func None() Choice { return Choice{} }

// Pick selects the bid at index i. Panics if i is negative.
func Pick(i int) Choice {
	if i < 0 {
		panic(fmt.Sprintf("core: Pick with negative bid index %d", i))
	}
	return Choice{index: i, set: true}
}

// Index returns the selected bid index and whether a bid is selected.
func (c Choice) Index() (int, bool) {
	return c.index, c.set
}

// IsNone reports whether no bid is selected.
func (c Choice) IsNone() bool { return !c.set }

// ordinal places None before every bid index in enumeration order.
func (c Choice) ordinal() int {
	if !c.set {
		return -1
	}
	return c.index
}

func (c Choice) String() string {
	if !c.set {
		return "none"
	}
	return fmt.Sprintf("%d", c.index)
}

// UnitSet is a set of unit identifiers.
type UnitSet map[int]struct{}

// NewUnitSet returns a set holding the given units.
func NewUnitSet(units ...int) UnitSet {
	s := make(UnitSet, len(units))
	for _, u := range units {
		s[u] = struct{}{}
	}
	return s
}

// Has reports whether u is in the set.
func (s UnitSet) Has(u int) bool {
	_, ok := s[u]
	return ok
}

// Clone returns an independent copy of the set.
func (s UnitSet) Clone() UnitSet {
	c := make(UnitSet, len(s))
	for u := range s {
		c[u] = struct{}{}
	}
	return c
}

// Equal reports whether both sets hold exactly the same units.
func (s UnitSet) Equal(o UnitSet) bool {
	if len(s) != len(o) {
		return false
	}
	for u := range s {
		if !o.Has(u) {
			return false
		}
	}
	return true
}

// Sorted returns the units in ascending order.
func (s UnitSet) Sorted() []int {
	out := make([]int, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	sort.Ints(out)
	return out
}
