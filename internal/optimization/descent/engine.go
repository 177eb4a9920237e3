// Package descent implements fixed-rate gradient descent over a
// two-variable objective, keeping the full trajectory of visited points.
package descent

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/gradviz/internal/optimization"
)

// DivergenceBound is the largest coordinate magnitude a step may produce.
// Anything beyond it, or any non-finite coordinate, rejects the step.
const DivergenceBound = 1e6

// Outcome is the result kind of a single step.
type Outcome int

const (
	// Advanced means the step was accepted and the state moved.
	Advanced Outcome = iota
	// Diverged means the candidate position was rejected and the state is
	// unchanged.
	Diverged
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Advanced:
		return "advanced"
	case Diverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// StepResult describes one call to Engine.Step. On Diverged, Position,
// Iteration and Loss describe the unchanged state and Candidate holds the
// rejected position.
type StepResult struct {
	Outcome   Outcome
	Position  optimization.Point
	Candidate optimization.Point
	Gradient  optimization.Point
	Iteration int
	Loss      float64
}

// State is a copy of the engine state, safe to hand to other goroutines.
type State struct {
	Objective string               `json:"objective"`
	Position  optimization.Point   `json:"position"`
	Iteration int                  `json:"iteration"`
	Loss      float64              `json:"loss"`
	History   []optimization.Point `json:"history"`
}

// Engine owns the position, iteration count and trajectory of one descent
// run. It is not safe for concurrent use; callers serialize access.
type Engine struct {
	objective optimization.Objective
	position  optimization.Point
	iteration int
	history   []optimization.Point
}

// NewEngine returns an engine reset to obj's initial point.
func NewEngine(obj optimization.Objective) *Engine {
	e := &Engine{}
	e.Reset(obj)
	return e
}

// Reset moves the engine to obj's initial point and clears the trajectory.
func (e *Engine) Reset(obj optimization.Objective) {
	start := obj.InitialPoint()
	e.objective = obj
	e.position = start
	e.iteration = 0
	e.history = []optimization.Point{start}
}

// Objective returns the objective being descended.
func (e *Engine) Objective() optimization.Objective {
	return e.objective
}

// Position returns the current position.
func (e *Engine) Position() optimization.Point {
	return e.position
}

// Iteration returns the number of accepted steps since the last reset.
func (e *Engine) Iteration() int {
	return e.iteration
}

// Loss returns the objective value at the current position.
func (e *Engine) Loss() float64 {
	return e.objective.Value(e.position.X, e.position.Y)
}

// Step performs one update position -= lr * gradient(position).
func (e *Engine) Step(lr float64) StepResult {
	gx, gy := e.objective.Gradient(e.position.X, e.position.Y)
	candidate := optimization.Point{
		X: e.position.X - lr*gx,
		Y: e.position.Y - lr*gy,
	}

	res := StepResult{
		Candidate: candidate,
		Gradient:  optimization.Point{X: gx, Y: gy},
	}

	if !isFinite(lr) || !withinBound(candidate) {
		res.Outcome = Diverged
		res.Position = e.position
		res.Iteration = e.iteration
		res.Loss = e.Loss()
		return res
	}

	e.position = candidate
	e.iteration++
	e.history = append(e.history, candidate)

	res.Outcome = Advanced
	res.Position = e.position
	res.Iteration = e.iteration
	res.Loss = e.Loss()
	return res
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	return State{
		Objective: e.objective.Name(),
		Position:  e.position,
		Iteration: e.iteration,
		Loss:      e.Loss(),
		History:   append([]optimization.Point(nil), e.history...),
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// withinBound rejects NaN, ±Inf and magnitudes above DivergenceBound.
func withinBound(p optimization.Point) bool {
	c := []float64{p.X, p.Y}
	if floats.HasNaN(c) {
		return false
	}
	return floats.Norm(c, math.Inf(1)) <= DivergenceBound
}
