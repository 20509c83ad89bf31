package core

// DefaultMaxIterations caps the number of steps when SearchOptions leaves it unset.
const DefaultMaxIterations = 10

// StopReason says why Search returned.
type StopReason string

const (
	StopLocalOptimum StopReason = "local_optimum"
	StopGoalReached  StopReason = "goal_reached"
	StopIterationCap StopReason = "iteration_cap"
)

// SearchOptions tunes the driver loop.
type SearchOptions struct {
	// MaxIterations caps the number of steps. Zero or negative means DefaultMaxIterations.
	MaxIterations int
	Baseline      Baseline
	Workers       int
}

// SearchResult contains the complete trajectory of one hill-climbing run.
type SearchResult struct {
	Initial Allocation
	Final   Allocation
	Goal    Allocation

	// Scores[0] is the initial score, followed by one entry per move taken.
	Scores    []int64
	Moves     []Move
	Score     int64
	GoalScore int64

	// Iterations counts the steps evaluated, including a final step that
	// found nothing to take.
	Iterations int
	Stop       StopReason
}

// Search executes the driver: initial state → repeated steps → final state.
//
// Processing flow:
//  1. Build the greedy initial allocation and the goal bound
//  2. Before every step, stop if the occupancy matches the goal bound
//  3. Step; stop at a local optimum (BaselineCurrent: no strictly better
//     move; BaselineZero: no move scoring above zero)
//  4. Stop once MaxIterations steps have run
func Search(c *Catalog, opts SearchOptions) *SearchResult {
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	climber := Climber{Baseline: opts.Baseline, Workers: opts.Workers}
	if climber.Baseline == "" {
		climber.Baseline = BaselineCurrent
	}

	initial := InitialState(c)
	goal := GoalBound(c)
	current := initial

	result := &SearchResult{
		Initial:   initial,
		Goal:      goal,
		Scores:    []int64{Score(initial, c)},
		GoalScore: Score(goal, c),
		Stop:      StopIterationCap,
	}

	for result.Iterations < maxIter {
		if IsGoal(current, goal) {
			result.Stop = StopGoalReached
			break
		}

		step := climber.Step(current, c)
		result.Iterations++

		if step.Move == nil {
			result.Stop = StopLocalOptimum
			break
		}

		current = step.Next
		result.Moves = append(result.Moves, *step.Move)
		result.Scores = append(result.Scores, step.Move.Score)
	}

	result.Final = current
	result.Score = Score(current, c)
	return result
}
