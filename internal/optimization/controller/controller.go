// Package controller drives a descent engine interactively: it runs steps
// on a cancellable cadence, handles manual stepping and resets, and keeps the
// learning rate and playback speed within their limits.
package controller

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/gradviz/internal/optimization"
	"github.com/copyleftdev/gradviz/internal/optimization/descent"
)

// Speed limits. A tick fires every second/speed while running.
const (
	MinSpeed     = 1
	MaxSpeed     = 10
	DefaultSpeed = 5
)

// Status is the run state of a controller.
type Status string

const (
	Idle    Status = "idle"
	Running Status = "running"
)

// EventKind names the operation that produced an Event.
type EventKind string

const (
	EventStart     EventKind = "start"
	EventStep      EventKind = "step"
	EventStop      EventKind = "stop"
	EventReset     EventKind = "reset"
	EventObjective EventKind = "objective"
	EventSettings  EventKind = "settings"
)

// Event is delivered to observers after every state change.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
	// Outcome is set for EventStep.
	Outcome descent.Outcome
}

// Snapshot is everything a presentation layer needs to render one frame.
type Snapshot struct {
	descent.State
	Status       Status             `json:"status"`
	StopReason   descent.StopReason `json:"stop_reason"`
	LearningRate float64            `json:"learning_rate"`
	RateLabel    string             `json:"learning_rate_label"`
	Speed        int                `json:"speed"`
	SpeedLabel   string             `json:"speed_label"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.scheduler = s }
}

// WithPolicy replaces the default stop policy.
func WithPolicy(p descent.Policy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithObserver registers fn to receive every Event. Observers run on the
// goroutine that changed the state, after the controller lock is released.
func WithObserver(fn func(Event)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

// WithSpeed sets the initial speed, clamped to [MinSpeed, MaxSpeed].
func WithSpeed(level int) Option {
	return func(c *Controller) { c.speed = clampSpeed(level) }
}

// Controller is a two-state (Idle, Running) machine around a descent
// engine. At most one tick is pending at any time; every operation that
// leaves Running cancels it before doing anything else.
type Controller struct {
	registry  *optimization.Registry
	scheduler Scheduler
	policy    descent.Policy
	logger    *zap.Logger
	observers []func(Event)

	mu           sync.Mutex
	engine       *descent.Engine
	objective    optimization.Objective
	learningRate float64
	speed        int
	status       Status
	stopReason   descent.StopReason
	timer        Timer
	// generation is bumped on every cancellation so a tick that was already
	// dispatched when it got cancelled recognises itself as stale.
	generation uint64
}

// New returns an idle controller on the named objective with its default
// learning rate.
func New(registry *optimization.Registry, objective string, opts ...Option) (*Controller, error) {
	obj, err := registry.Get(objective)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		registry:     registry,
		scheduler:    WallScheduler{},
		policy:       descent.DefaultPolicy(),
		logger:       zap.NewNop(),
		engine:       descent.NewEngine(obj),
		objective:    obj,
		learningRate: obj.LearningRateBounds().Default,
		speed:        DefaultSpeed,
		status:       Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status returns the run state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Objective returns the active objective.
func (c *Controller) Objective() optimization.Objective {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objective
}

// Start begins a run: the first step executes immediately and further steps
// follow every second/speed until the run stops. Start is a no-op while
// already running.
func (c *Controller) Start() Snapshot {
	c.mu.Lock()
	if c.status == Running {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	c.status = Running
	c.stopReason = descent.StopNone
	c.logger.Debug("run started",
		zap.String("objective", c.objective.Name()),
		zap.Float64("learning_rate", c.learningRate),
		zap.Int("speed", c.speed))
	gen := c.generation
	started := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(Event{Kind: EventStart, Snapshot: started})
	return c.tick(gen)
}

// StepOnce cancels any run in progress and performs exactly one step.
func (c *Controller) StepOnce() Snapshot {
	c.mu.Lock()
	c.cancelLocked()
	c.status = Idle
	res := c.engine.Step(c.learningRate)
	if res.Outcome == descent.Diverged {
		c.stopReason = descent.StopDiverged
		c.logDivergence(res)
	} else {
		c.stopReason = descent.StopNone
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(Event{Kind: EventStep, Snapshot: snap, Outcome: res.Outcome})
	return snap
}

// Stop cancels any run in progress without stepping.
func (c *Controller) Stop() Snapshot {
	c.mu.Lock()
	wasRunning := c.status == Running
	c.cancelLocked()
	c.status = Idle
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if wasRunning {
		c.notify(Event{Kind: EventStop, Snapshot: snap})
	}
	return snap
}

// Reset cancels any run in progress and returns the engine to the initial
// point of the active objective.
func (c *Controller) Reset() Snapshot {
	c.mu.Lock()
	c.resetLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(Event{Kind: EventReset, Snapshot: snap})
	return snap
}

// ChangeObjective switches to obj, restores its default learning rate and
// resets.
func (c *Controller) ChangeObjective(obj optimization.Objective) Snapshot {
	c.mu.Lock()
	c.objective = obj
	c.learningRate = obj.LearningRateBounds().Default
	c.resetLocked()
	c.logger.Debug("objective changed", zap.String("objective", obj.Name()))
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(Event{Kind: EventObjective, Snapshot: snap})
	return snap
}

// SelectObjective looks name up in the registry and switches to it. Unknown
// names leave the controller untouched.
func (c *Controller) SelectObjective(name string) (Snapshot, error) {
	obj, err := c.registry.Get(name)
	if err != nil {
		return Snapshot{}, err
	}
	return c.ChangeObjective(obj), nil
}

// SetLearningRate clamps v to the active objective's bounds, applies it and
// returns the value in effect. Non-finite input restores the default.
func (c *Controller) SetLearningRate(v float64) float64 {
	c.mu.Lock()
	c.learningRate = c.objective.LearningRateBounds().Clamp(v)
	lr := c.learningRate
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(Event{Kind: EventSettings, Snapshot: snap})
	return lr
}

// SetSpeed clamps level to [MinSpeed, MaxSpeed] and returns the value in
// effect. A running cadence picks it up at the next tick.
func (c *Controller) SetSpeed(level int) int {
	c.mu.Lock()
	c.speed = clampSpeed(level)
	speed := c.speed
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(Event{Kind: EventSettings, Snapshot: snap})
	return speed
}

// Delay returns the interval between ticks at the current speed.
func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return delayFor(c.speed)
}

// tick runs one cadence step if gen is still current.
func (c *Controller) tick(gen uint64) Snapshot {
	c.mu.Lock()
	if gen != c.generation || c.status != Running {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}
	c.timer = nil

	res := c.engine.Step(c.learningRate)
	reason := c.policy.Evaluate(res)
	if reason == descent.StopNone {
		next := c.generation
		c.timer = c.scheduler.AfterFunc(delayFor(c.speed), func() { c.tick(next) })
		snap := c.snapshotLocked()
		c.mu.Unlock()

		c.notify(Event{Kind: EventStep, Snapshot: snap, Outcome: res.Outcome})
		return snap
	}

	c.status = Idle
	c.stopReason = reason
	if reason == descent.StopDiverged {
		c.logDivergence(res)
	} else {
		c.logger.Debug("run stopped",
			zap.Stringer("reason", reason),
			zap.Int("iteration", res.Iteration),
			zap.Float64("loss", res.Loss))
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(Event{Kind: EventStep, Snapshot: snap, Outcome: res.Outcome})
	c.notify(Event{Kind: EventStop, Snapshot: snap})
	return snap
}

// cancelLocked stops the pending tick, if any, and invalidates any tick
// already dispatched.
func (c *Controller) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.generation++
}

func (c *Controller) resetLocked() {
	c.cancelLocked()
	c.status = Idle
	c.stopReason = descent.StopNone
	c.engine.Reset(c.objective)
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:        c.engine.Snapshot(),
		Status:       c.status,
		StopReason:   c.stopReason,
		LearningRate: c.learningRate,
		RateLabel:    FormatLearningRate(c.learningRate),
		Speed:        c.speed,
		SpeedLabel:   SpeedLabel(c.speed),
	}
}

func (c *Controller) logDivergence(res descent.StepResult) {
	c.logger.Warn("step diverged",
		zap.String("objective", c.objective.Name()),
		zap.Float64("learning_rate", c.learningRate),
		zap.Int("iteration", res.Iteration),
		zap.Float64("candidate_x", res.Candidate.X),
		zap.Float64("candidate_y", res.Candidate.Y))
}

func (c *Controller) notify(ev Event) {
	for _, fn := range c.observers {
		fn(ev)
	}
}

func clampSpeed(level int) int {
	if level < MinSpeed {
		return MinSpeed
	}
	if level > MaxSpeed {
		return MaxSpeed
	}
	return level
}

func delayFor(speed int) time.Duration {
	return time.Second / time.Duration(clampSpeed(speed))
}
