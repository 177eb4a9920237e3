package optimization

import (
	"math"
)

// Point is a position in the two-variable search space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Domain is the square range [Min, Max] shared by both axes.
type Domain struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Span returns the width of the domain.
func (d Domain) Span() float64 {
	return d.Max - d.Min
}

// Contains reports whether p lies inside the domain on both axes.
func (d Domain) Contains(p Point) bool {
	return p.X >= d.Min && p.X <= d.Max && p.Y >= d.Min && p.Y <= d.Max
}

// LearningRateBounds describes the valid learning rates for an objective.
// The bounds are tuned to the curvature of the function: steep objectives
// need rates one or two orders of magnitude below the convex bowl.
type LearningRateBounds struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"`
	Default float64 `json:"default" yaml:"default"`
}

// Clamp returns v limited to [Min, Max]. Non-finite input yields Default.
func (b LearningRateBounds) Clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return b.Default
	}
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Contains reports whether v is a finite rate within [Min, Max].
func (b LearningRateBounds) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= b.Min && v <= b.Max
}

// Objective is a two-variable test function with an analytic gradient.
// Implementations are immutable and safe for concurrent use.
type Objective interface {
	// Name is the catalog key of the objective.
	Name() string

	// Value evaluates f(x, y).
	Value(x, y float64) float64

	// Gradient returns the partial derivatives (df/dx, df/dy).
	Gradient(x, y float64) (float64, float64)

	// Domain is the plotting range for both axes.
	Domain() Domain

	// Optimum is the known global minimizer.
	Optimum() Point

	// InitialPoint is where every run starts.
	InitialPoint() Point

	// LearningRateBounds are the rates the objective tolerates.
	LearningRateBounds() LearningRateBounds
}

// Description is the JSON-friendly view of an objective.
type Description struct {
	Name               string             `json:"name" yaml:"name"`
	Domain             Domain             `json:"domain" yaml:"domain"`
	Optimum            Point              `json:"optimum" yaml:"optimum"`
	InitialPoint       Point              `json:"initial_point" yaml:"initial_point"`
	LearningRateBounds LearningRateBounds `json:"learning_rate" yaml:"learning_rate"`
	OptimumValue       float64            `json:"optimum_value" yaml:"optimum_value"`
}

// Describe returns the static properties of obj.
func Describe(obj Objective) Description {
	opt := obj.Optimum()
	return Description{
		Name:               obj.Name(),
		Domain:             obj.Domain(),
		Optimum:            opt,
		InitialPoint:       obj.InitialPoint(),
		LearningRateBounds: obj.LearningRateBounds(),
		OptimumValue:       obj.Value(opt.X, opt.Y),
	}
}
