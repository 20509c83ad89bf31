package allocapi

import (
	"fmt"

	"github.com/cloudx-io/openalloc/core"
)

// NewAllocationView converts an allocation to its wire form.
func NewAllocationView(c *core.Catalog, a core.Allocation) AllocationView {
	return AllocationView{
		Selection: choicePointers(a.Choices()),
		Occupied:  a.Occupancy().Sorted(),
		Score:     core.Score(a, c),
	}
}

// Choices converts the wire selection back to per-bidder choices.
func (v AllocationView) Choices() ([]core.Choice, error) {
	out := make([]core.Choice, len(v.Selection))
	for i, idx := range v.Selection {
		if idx == nil {
			continue
		}
		if *idx < 0 {
			return nil, fmt.Errorf("bidder %d: negative bid index %d", i, *idx)
		}
		out[i] = core.Pick(*idx)
	}
	return out, nil
}

// NewRunReport summarizes a search result for output and transport.
func NewRunReport(c *core.Catalog, r *core.SearchResult) *RunReport {
	moves := make([]MoveView, len(r.Moves))
	for i, m := range r.Moves {
		moves[i] = MoveView{
			Bidder: m.Bidder,
			From:   choicePointer(m.From),
			To:     choicePointer(m.To),
			Score:  m.Score,
		}
	}

	return &RunReport{
		CatalogHash: core.ComputeCatalogHash(c),
		Initial:     NewAllocationView(c, r.Initial),
		Final:       NewAllocationView(c, r.Final),
		Moves:       moves,
		Scores:      r.Scores,
		GoalScore:   r.GoalScore,
		BoundRatio:  core.BoundRatio(r.Score, r.GoalScore).StringFixed(4),
		Iterations:  r.Iterations,
		StopReason:  string(r.Stop),
	}
}

func choicePointers(choices []core.Choice) []*int {
	out := make([]*int, len(choices))
	for i, c := range choices {
		out[i] = choicePointer(c)
	}
	return out
}

func choicePointer(c core.Choice) *int {
	idx, ok := c.Index()
	if !ok {
		return nil
	}
	return &idx
}
