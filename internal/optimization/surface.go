package optimization

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Surface resolution limits.
const (
	DefaultResolution = 100
	MinResolution     = 2
	MaxResolution     = 500
)

// Surface is a regular sampling of an objective over its domain, the data
// behind the heat map and contour plots. Values.At(i, j) holds f at
// x = Min + i*Step, y = Min + j*Step.
type Surface struct {
	Objective  string
	Domain     Domain
	Resolution int
	Step       float64
	Values     *mat.Dense
	Min        float64
	Max        float64
}

// SampleSurface evaluates obj on a (resolution+1)² grid spanning its domain.
func SampleSurface(obj Objective, resolution int) (*Surface, error) {
	if resolution < MinResolution || resolution > MaxResolution {
		return nil, NewErrorf("resolution must be in [%d, %d], got %d", MinResolution, MaxResolution, resolution).
			WithOperation("sample").
			WithComponent("surface")
	}

	d := obj.Domain()
	n := resolution + 1
	step := d.Span() / float64(resolution)

	values := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		x := d.Min + float64(i)*step
		for j := 0; j < n; j++ {
			y := d.Min + float64(j)*step
			values.Set(i, j, obj.Value(x, y))
		}
	}

	return &Surface{
		Objective:  obj.Name(),
		Domain:     d,
		Resolution: resolution,
		Step:       step,
		Values:     values,
		Min:        mat.Min(values),
		Max:        mat.Max(values),
	}, nil
}

// Normalized returns the sample at (i, j) scaled to [0, 1]. A flat surface
// maps to 0.
func (s *Surface) Normalized(i, j int) float64 {
	span := s.Max - s.Min
	if span == 0 {
		return 0
	}
	return (s.Values.At(i, j) - s.Min) / span
}

// Rows returns the samples as a row-major slice, row i being x index i.
func (s *Surface) Rows() [][]float64 {
	r, _ := s.Values.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, s.Values)
	}
	return rows
}

// AsProblem adapts obj to a gonum optimize.Problem over x = [x, y].
func AsProblem(obj Objective) optimize.Problem {
	return optimize.Problem{
		Func: func(x []float64) float64 {
			return obj.Value(x[0], x[1])
		},
		Grad: func(grad, x []float64) {
			grad[0], grad[1] = obj.Gradient(x[0], x[1])
		},
	}
}
