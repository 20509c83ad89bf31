// Package report renders catalogs, allocations and search runs as plain
// text for terminals and logs.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/openalloc/core"
)

// printer remembers the first write error so callers can format freely and
// check once at the end.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

// WriteAllocation prints one line per bidder, either "no bid selected" or the
// selected bid record, then the occupancy flag of every unit and the score.
func WriteAllocation(w io.Writer, c *core.Catalog, a core.Allocation) error {
	p := &printer{w: w}
	p.printf("STATE\n")
	p.printf("bidders = %d\n", len(c.Bidders))
	writeSelection(p, c, a)
	writeOccupancy(p, c, a)
	p.printf("score = %d\n", core.Score(a, c))
	return p.err
}

func writeSelection(p *printer, c *core.Catalog, a core.Allocation) {
	for i, bidder := range c.Bidders {
		idx, ok := a.Choice(i).Index()
		if !ok {
			p.printf("  bidder %d: no bid selected\n", bidder.ID)
			continue
		}
		p.printf("  bidder %d: %s\n", bidder.ID, formatBid(bidder.Bids[idx]))
	}
}

// writeOccupancy streams the unit flags so large unit counts are never
// buffered.
func writeOccupancy(p *printer, c *core.Catalog, a core.Allocation) {
	p.printf("units =")
	for u := 1; u <= c.NumUnits && p.err == nil; u++ {
		flag := 0
		if a.Occupied(u) {
			flag = 1
		}
		p.printf(" %d:%d", u, flag)
	}
	p.printf("\n")
}

func formatBid(b core.Bid) string {
	units := make([]string, len(b.Units))
	for i, u := range b.Units {
		units[i] = fmt.Sprint(u)
	}
	return fmt.Sprintf("bid %d value=%d units=[%s]", b.ID, b.Value, strings.Join(units, " "))
}

// WriteCatalog lists every bid of every bidder.
func WriteCatalog(w io.Writer, c *core.Catalog) error {
	p := &printer{w: w}
	p.printf("CATALOG units=%d bidders=%d bids=%d\n", c.NumUnits, len(c.Bidders), c.TotalBids())
	for _, bidder := range c.Bidders {
		p.printf("  bidder %d (%d bids)\n", bidder.ID, len(bidder.Bids))
		for _, bid := range bidder.Bids {
			p.printf("    %s\n", formatBid(bid))
		}
	}
	return p.err
}

var hundred = decimal.NewFromInt(100)

// Percent formats score/bound as a percentage with two decimals.
func Percent(score, bound int64) string {
	return core.BoundRatio(score, bound).Mul(hundred).StringFixed(2) + "%"
}

// WriteRun prints the trajectory of a search followed by the final state.
func WriteRun(w io.Writer, c *core.Catalog, r *core.SearchResult) error {
	p := &printer{w: w}
	p.printf("initial score = %d\n", r.Scores[0])
	for i, m := range r.Moves {
		p.printf("step %d: bidder %d %s -> %s, score %d\n",
			i+1, c.Bidders[m.Bidder].ID, m.From, m.To, m.Score)
	}
	p.printf("stopped: %s after %d iterations\n", r.Stop, r.Iterations)
	p.printf("goal bound = %d (reached %s)\n", r.GoalScore, Percent(r.Score, r.GoalScore))
	if p.err != nil {
		return p.err
	}
	return WriteAllocation(w, c, r.Final)
}
