package descent

// Default stop thresholds.
const (
	DefaultLossThreshold = 0.001
	DefaultMaxIterations = 1000
)

// StopReason says why a run ended, or StopNone while it may continue.
type StopReason int

const (
	StopNone StopReason = iota
	StopConverged
	StopBudgetExhausted
	StopDiverged
)

// String implements fmt.Stringer.
func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopConverged:
		return "converged"
	case StopBudgetExhausted:
		return "budget_exhausted"
	case StopDiverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// MarshalText encodes the reason by name.
func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Policy holds the advisory stop conditions evaluated after each accepted
// step. They never fail a step; the run controller decides to halt.
type Policy struct {
	// LossThreshold ends the run once loss drops strictly below it.
	LossThreshold float64
	// MaxIterations ends the run once the iteration count exceeds it.
	MaxIterations int
}

// DefaultPolicy returns the 0.001 loss / 1000 iteration policy.
func DefaultPolicy() Policy {
	return Policy{
		LossThreshold: DefaultLossThreshold,
		MaxIterations: DefaultMaxIterations,
	}
}

// Evaluate maps a step result to a stop reason.
func (p Policy) Evaluate(res StepResult) StopReason {
	if res.Outcome == Diverged {
		return StopDiverged
	}
	if res.Loss < p.LossThreshold {
		return StopConverged
	}
	if res.Iteration > p.MaxIterations {
		return StopBudgetExhausted
	}
	return StopNone
}

// Run steps e at rate lr until the policy stops it and returns the final
// result together with the reason. It has no cadence; the controller
// provides that for interactive runs.
func Run(e *Engine, lr float64, p Policy) (StepResult, StopReason) {
	for {
		res := e.Step(lr)
		if reason := p.Evaluate(res); reason != StopNone {
			return res, reason
		}
	}
}
