package core

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Baseline is the score a trial move has to beat before it can be taken.
type Baseline string

const (
	// BaselineCurrent only accepts moves that strictly raise the current score.
	BaselineCurrent Baseline = "current"
	// BaselineZero starts the running maximum at zero, so the best trial is
	// taken even when it scores below the current allocation.
	BaselineZero Baseline = "zero"
)

// ParseBaseline maps a config or wire string to a Baseline. Empty means BaselineCurrent.
func ParseBaseline(s string) (Baseline, error) {
	switch Baseline(s) {
	case "", BaselineCurrent:
		return BaselineCurrent, nil
	case BaselineZero:
		return BaselineZero, nil
	default:
		return "", fmt.Errorf("unknown baseline %q (want %q or %q)", s, BaselineCurrent, BaselineZero)
	}
}

// Move changes one bidder's selection.
type Move struct {
	Bidder int
	From   Choice
	To     Choice
	// Score is the total score of the allocation after the move.
	Score int64
}

// StepResult is the outcome of one hill-climbing step.
type StepResult struct {
	// Next is the allocation to continue from. It is the input allocation
	// when no move was taken.
	Next Allocation
	// Move is nil when no move was taken.
	Move *Move
	// Improved is true only when Next scores strictly above the input.
	Improved bool
}

// Climber runs best-improvement steps over single-bidder moves.
//
// Workers > 1 scans bidders concurrently. The reduction keeps the
// sequential tie-break (lowest bidder, then None before bid 0, 1, ...),
// so results do not depend on Workers.
type Climber struct {
	Baseline Baseline
	Workers  int
}

// Step runs one BaselineCurrent step and reports whether the score improved.
// A false result means a is a local optimum and is returned unchanged.
func Step(a Allocation, c *Catalog) (Allocation, bool) {
	r := Climber{Baseline: BaselineCurrent}.Step(a, c)
	return r.Next, r.Improved
}

// Step evaluates every valid move from a and takes the best one if it
// beats the climber's baseline.
func (cl Climber) Step(a Allocation, c *Catalog) StepResult {
	current := Score(a, c)

	var best *Move
	if cl.Workers > 1 && len(c.Bidders) > 1 {
		best = cl.scanParallel(a, c, current)
	} else {
		for i := range c.Bidders {
			best = better(best, bestMoveFor(a, c, i, current))
		}
	}

	threshold := current
	if cl.Baseline == BaselineZero {
		threshold = 0
	}

	if best == nil || best.Score <= threshold {
		return StepResult{Next: a}
	}

	return StepResult{
		Next:     a.with(c, best.Bidder, best.To),
		Move:     best,
		Improved: best.Score > current,
	}
}

func (cl Climber) scanParallel(a Allocation, c *Catalog, current int64) *Move {
	workers := cl.Workers
	if n := runtime.GOMAXPROCS(0); workers > n {
		workers = n
	}
	if workers > len(c.Bidders) {
		workers = len(c.Bidders)
	}

	perBidder := make([]*Move, len(c.Bidders))

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; i < len(c.Bidders); i += workers {
				perBidder[i] = bestMoveFor(a, c, i, current)
			}
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	var best *Move
	for _, m := range perBidder {
		best = better(best, m)
	}
	return best
}

// better keeps the incumbent unless the candidate scores strictly higher.
// Callers feed candidates in enumeration order.
func better(incumbent, candidate *Move) *Move {
	if candidate == nil {
		return incumbent
	}
	if incumbent == nil || candidate.Score > incumbent.Score {
		return candidate
	}
	return incumbent
}

func bestMoveFor(a Allocation, c *Catalog, i int, current int64) *Move {
	var best *Move
	eachMove(a, c, i, current, func(m Move) {
		best = better(best, &m)
	})
	return best
}

// Neighbors lists every valid single-bidder move from a in enumeration
// order: bidders in catalog order, None first, then bids ascending.
// Moves whose bid overlaps units held by another bidder are omitted.
func Neighbors(a Allocation, c *Catalog) []Move {
	current := Score(a, c)
	var moves []Move
	for i := range c.Bidders {
		eachMove(a, c, i, current, func(m Move) {
			moves = append(moves, m)
		})
	}
	return moves
}

// eachMove yields the valid moves of bidder i. The mover's own units are
// released before the conflict check.
func eachMove(a Allocation, c *Catalog, i int, current int64, yield func(Move)) {
	from := a.choices[i]
	bids := c.Bidders[i].Bids

	var held []int
	base := current
	if prev := c.bid(i, from); prev != nil {
		held = prev.Units
		base -= prev.Value
	}

	for j := -1; j < len(bids); j++ {
		if j == from.ordinal() {
			continue
		}

		if j < 0 {
			yield(Move{Bidder: i, From: from, To: None(), Score: base})
			continue
		}

		bid := &bids[j]
		if !unitsFreeExcept(a.occupancy, held, bid.Units) {
			continue
		}
		yield(Move{Bidder: i, From: from, To: Pick(j), Score: base + bid.Value})
	}
}
