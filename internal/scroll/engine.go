package scroll

import "math"

const (
	// VelocityGain converts px/ms pointer speed into px per frame.
	VelocityGain = 8.0
	// StopVelocity is the speed under which motion is considered settled.
	StopVelocity = 0.1
	// Friction is the per-frame velocity retention while coasting.
	Friction = 0.92
)

type Phase int

const (
	Idle Phase = iota
	Dragging
	Inertial
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Inertial:
		return "inertial"
	}
	return "unknown"
}

// Viewport is the horizontal scroll state of the comparison strip.
type Viewport struct {
	ScrollPosition   float64
	Velocity         float64
	Dragging         bool
	LastPointerX     float64
	LastSampleTimeMs int64
}

// Engine turns pointer drags into a scroll position with inertial coasting
// and elastic edges. It is not safe for concurrent use; all calls, including
// the scheduled frame callbacks, must come from the frame loop goroutine.
type Engine struct {
	scheduler Scheduler
	viewport  Viewport
	phase     Phase
	maxScroll float64
	tick      Handle
}

func NewEngine(scheduler Scheduler) *Engine {
	return &Engine{scheduler: scheduler}
}

func (e *Engine) Viewport() Viewport { return e.viewport }
func (e *Engine) Phase() Phase       { return e.phase }
func (e *Engine) MaxScroll() float64 { return e.maxScroll }

// SetMaxScroll updates the right-hand bound. A resting viewport is pulled
// back inside the new range.
func (e *Engine) SetMaxScroll(max float64) {
	if !(max > 0) {
		max = 0
	}
	e.maxScroll = max
	if e.phase == Idle {
		e.viewport.ScrollPosition = Clamp(e.viewport.ScrollPosition, 0, e.maxScroll)
	}
}

// PointerDown starts a drag. Any coasting motion is dropped.
func (e *Engine) PointerDown(x float64, nowMs int64) {
	e.cancelTick()
	e.phase = Dragging
	e.viewport.Dragging = true
	e.viewport.Velocity = 0
	e.viewport.LastPointerX = x
	e.viewport.LastSampleTimeMs = nowMs
}

// PointerMove tracks the content 1:1 with the pointer while dragging.
func (e *Engine) PointerMove(x float64, nowMs int64) {
	if e.phase != Dragging {
		return
	}
	dx := x - e.viewport.LastPointerX
	dt := nowMs - e.viewport.LastSampleTimeMs
	if dt > 0 {
		e.viewport.Velocity = dx / float64(dt) * VelocityGain
	}
	e.viewport.ScrollPosition -= dx
	e.viewport.LastPointerX = x
	e.viewport.LastSampleTimeMs = nowMs
}

// PointerUp ends a drag, coasting if the last sample was fast enough.
func (e *Engine) PointerUp(nowMs int64) {
	if e.phase != Dragging {
		return
	}
	e.viewport.Dragging = false
	if math.Abs(e.viewport.Velocity) > StopVelocity {
		e.phase = Inertial
		e.tick = e.scheduler.Schedule(e.frame)
		return
	}
	e.settle()
}

// PointerLeave behaves like PointerUp.
func (e *Engine) PointerLeave(nowMs int64) { e.PointerUp(nowMs) }

// Close cancels any pending frame callback.
func (e *Engine) Close() {
	e.cancelTick()
	if e.phase == Inertial {
		e.settle()
	}
}

func (e *Engine) frame() {
	e.tick = 0
	if e.phase != Inertial {
		return
	}
	if math.Abs(e.viewport.Velocity) < StopVelocity {
		e.settle()
		return
	}
	e.viewport.ScrollPosition = Elastic(e.viewport.ScrollPosition-e.viewport.Velocity, 0, e.maxScroll)
	e.viewport.Velocity *= Friction
	e.tick = e.scheduler.Schedule(e.frame)
}

// settle parks the viewport inside the content bounds.
func (e *Engine) settle() {
	e.phase = Idle
	e.viewport.Dragging = false
	e.viewport.Velocity = 0
	e.viewport.ScrollPosition = Clamp(e.viewport.ScrollPosition, 0, e.maxScroll)
}

func (e *Engine) cancelTick() {
	if e.tick != 0 {
		e.scheduler.Cancel(e.tick)
		e.tick = 0
	}
}
