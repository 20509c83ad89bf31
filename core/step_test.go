package core

import (
	"fmt"
	"testing"

	"github.com/peterldowns/testy/check"
)

// moveStrings renders moves as "bidder:from->to=score"
func moveStrings(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = fmt.Sprintf("%d:%s->%s=%d", m.Bidder, m.From, m.To, m.Score)
	}
	return out
}

func TestNeighbors_EnumerationOrderAndConflicts(t *testing.T) {
	c := contestedCatalog()
	a := InitialState(c)

	moves := Neighbors(a, c)

	// bidder 1 (index 1) cannot take {2,3}; bidder 3 has no bids
	check.Equal(t, []string{
		"0:0->none=2",
		"0:0->1=5",
		"2:0->none=4",
		"2:0->1=9",
	}, moveStrings(moves))
}

func TestNeighbors_ScoresMatchScorer(t *testing.T) {
	c := contestedCatalog()
	a := InitialState(c)

	for _, m := range Neighbors(a, c) {
		next := a.with(c, m.Bidder, m.To)
		mustInvariants(t, next, c)
		check.Equal(t, Score(next, c), m.Score)
	}
}

func TestNeighbors_OwnUnitsReleasedBeforeCheck(t *testing.T) {
	// the second bid reuses a unit the bidder already holds
	c := newCatalog(2, []Bid{bid(1, 1), bid(4, 1, 2)})
	a := InitialState(c)

	check.Equal(t, []string{"0:0->none=0", "0:0->1=4"}, moveStrings(Neighbors(a, c)))
}

func TestStep_TakesBestImprovingMove(t *testing.T) {
	c := contestedCatalog()
	a := InitialState(c)

	next, improved := Step(a, c)

	check.True(t, improved)
	check.Equal(t, []string{"0", "none", "1", "none"}, choiceStrings(next))
	check.Equal(t, int64(9), Score(next, c))
	mustInvariants(t, next, c)

	// the input allocation is untouched
	check.Equal(t, []string{"0", "none", "0", "none"}, choiceStrings(a))
}

func TestStep_TieKeepsEarliestMove(t *testing.T) {
	c := newCatalog(3,
		[]Bid{bid(1, 1), bid(3, 2)},
		[]Bid{bid(1, 3), bid(3, 3)},
	)
	a := InitialState(c)

	r := Climber{}.Step(a, c)

	check.NotNil(t, r.Move)
	check.Equal(t, 0, r.Move.Bidder)
	check.Equal(t, "1", r.Move.To.String())
	check.Equal(t, int64(4), r.Move.Score)
}

func TestStep_LocalOptimumIsIdempotent(t *testing.T) {
	c := contestedCatalog()
	a, _ := Step(InitialState(c), c)

	first, improved := Step(a, c)
	check.False(t, improved)
	check.True(t, first.Equal(a))

	second, improved := Step(first, c)
	check.False(t, improved)
	check.True(t, second.Equal(a))
}

func TestStep_BaselineCurrentVsZero(t *testing.T) {
	c := newCatalog(2,
		[]Bid{bid(5, 1)},
		[]Bid{bid(3, 1)},
		[]Bid{bid(2, 2)},
	)
	a := InitialState(c)
	check.Equal(t, int64(7), Score(a, c))

	current := Climber{Baseline: BaselineCurrent}.Step(a, c)
	check.Nil(t, current.Move)
	check.False(t, current.Improved)
	check.True(t, current.Next.Equal(a))

	// the legacy running maximum starts at zero and accepts a worse state
	legacy := Climber{Baseline: BaselineZero}.Step(a, c)
	check.NotNil(t, legacy.Move)
	check.False(t, legacy.Improved)
	check.Equal(t, 2, legacy.Move.Bidder)
	check.Equal(t, int64(5), Score(legacy.Next, c))
	mustInvariants(t, legacy.Next, c)
}

func TestStep_BaselineZeroNeedsPositiveTrial(t *testing.T) {
	c := newCatalog(1, []Bid{bid(5, 1)}, []Bid{bid(3, 1)})
	a := InitialState(c)

	r := Climber{Baseline: BaselineZero}.Step(a, c)

	check.Nil(t, r.Move)
	check.True(t, r.Next.Equal(a))
}

func TestStep_ParallelMatchesSequential(t *testing.T) {
	c := newCatalog(8,
		[]Bid{bid(2, 1), bid(4, 1, 2), bid(4, 3)},
		[]Bid{bid(3, 2), bid(6, 2, 4)},
		[]Bid{bid(1, 5), bid(6, 5, 6)},
		[]Bid{},
		[]Bid{bid(2, 6), bid(5, 7)},
		[]Bid{bid(6, 7, 8)},
	)

	for _, baseline := range []Baseline{BaselineCurrent, BaselineZero} {
		seq := InitialState(c)
		par := InitialState(c)
		for i := 0; i < 6; i++ {
			rs := Climber{Baseline: baseline}.Step(seq, c)
			rp := Climber{Baseline: baseline, Workers: 4}.Step(par, c)

			check.Equal(t, choiceStrings(rs.Next), choiceStrings(rp.Next))
			check.Equal(t, rs.Improved, rp.Improved)
			check.Equal(t, rs.Move == nil, rp.Move == nil)
			seq, par = rs.Next, rp.Next
		}
	}
}

func TestStep_BidderWithoutBidsNeverMoves(t *testing.T) {
	c := contestedCatalog()
	a := InitialState(c)

	for i := 0; i < 5; i++ {
		r := Climber{Baseline: BaselineZero}.Step(a, c)
		if r.Move != nil {
			check.NotEqual(t, 3, r.Move.Bidder)
		}
		check.True(t, r.Next.Choice(3).IsNone())
		a = r.Next
	}
}

func TestParseBaseline(t *testing.T) {
	b, err := ParseBaseline("")
	check.Nil(t, err)
	check.Equal(t, BaselineCurrent, b)

	b, err = ParseBaseline("zero")
	check.Nil(t, err)
	check.Equal(t, BaselineZero, b)

	_, err = ParseBaseline("annealing")
	check.NotNil(t, err)
}
