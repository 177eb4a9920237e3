package optimization

// Catalog names.
const (
	QuadraticName  = "quadratic"
	RosenbrockName = "rosenbrock"
	BealeName      = "beale"
)

// properties holds the static metadata shared by every catalog objective.
type properties struct {
	name    string
	domain  Domain
	optimum Point
	initial Point
	rates   LearningRateBounds
}

func (p properties) Name() string                           { return p.name }
func (p properties) Domain() Domain                         { return p.domain }
func (p properties) Optimum() Point                         { return p.optimum }
func (p properties) InitialPoint() Point                    { return p.initial }
func (p properties) LearningRateBounds() LearningRateBounds { return p.rates }

// Quadratic is the convex bowl f(x, y) = (x-2)² + (y-2)².
type Quadratic struct {
	properties
}

// NewQuadratic returns the convex bowl objective.
func NewQuadratic() *Quadratic {
	return &Quadratic{properties{
		name:    QuadraticName,
		domain:  Domain{Min: -1, Max: 5},
		optimum: Point{X: 2, Y: 2},
		initial: Point{X: 3.2, Y: 3.2},
		rates:   LearningRateBounds{Min: 0.01, Max: 0.5, Step: 0.01, Default: 0.1},
	}}
}

// Value implements Objective.
func (q *Quadratic) Value(x, y float64) float64 {
	dx, dy := x-2, y-2
	return dx*dx + dy*dy
}

// Gradient implements Objective.
func (q *Quadratic) Gradient(x, y float64) (float64, float64) {
	return 2 * (x - 2), 2 * (y - 2)
}

// Rosenbrock is the narrow curved valley f(x, y) = (1-x)² + 100(y-x²)².
type Rosenbrock struct {
	properties
}

// NewRosenbrock returns the curved valley objective.
func NewRosenbrock() *Rosenbrock {
	return &Rosenbrock{properties{
		name:    RosenbrockName,
		domain:  Domain{Min: -2, Max: 2},
		optimum: Point{X: 1, Y: 1},
		initial: Point{X: -1.2, Y: 1},
		rates:   LearningRateBounds{Min: 0.0001, Max: 0.05, Step: 0.0001, Default: 0.001},
	}}
}

// Value implements Objective.
func (r *Rosenbrock) Value(x, y float64) float64 {
	a := 1 - x
	b := y - x*x
	return a*a + 100*b*b
}

// Gradient implements Objective.
func (r *Rosenbrock) Gradient(x, y float64) (float64, float64) {
	b := y - x*x
	return -2*(1-x) - 400*x*b, 200 * b
}

// Beale is the multi-term non-convex function
// f(x, y) = (1.5 - x + xy)² + (2.25 - x + xy²)² + (2.625 - x + xy³)².
type Beale struct {
	properties
}

// NewBeale returns the multi-term objective.
func NewBeale() *Beale {
	return &Beale{properties{
		name:    BealeName,
		domain:  Domain{Min: -4, Max: 4},
		optimum: Point{X: 3, Y: 0.5},
		initial: Point{X: 1, Y: 1},
		rates:   LearningRateBounds{Min: 0.0001, Max: 0.2, Step: 0.0001, Default: 0.002},
	}}
}

func (b *Beale) terms(x, y float64) (t1, t2, t3 float64) {
	y2 := y * y
	y3 := y2 * y
	return 1.5 - x + x*y, 2.25 - x + x*y2, 2.625 - x + x*y3
}

// Value implements Objective.
func (b *Beale) Value(x, y float64) float64 {
	t1, t2, t3 := b.terms(x, y)
	return t1*t1 + t2*t2 + t3*t3
}

// Gradient implements Objective.
func (b *Beale) Gradient(x, y float64) (float64, float64) {
	t1, t2, t3 := b.terms(x, y)
	y2 := y * y
	y3 := y2 * y
	gx := 2*t1*(y-1) + 2*t2*(y2-1) + 2*t3*(y3-1)
	gy := 2*t1*x + 2*t2*2*x*y + 2*t3*3*x*y2
	return gx, gy
}
