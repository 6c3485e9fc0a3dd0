package scroll

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(maxScroll, start float64) (*Engine, *FrameScheduler) {
	sched := NewFrameScheduler()
	engine := NewEngine(sched)
	engine.SetMaxScroll(maxScroll)
	engine.viewport.ScrollPosition = start
	return engine, sched
}

func TestFlickVelocityAndDecay(t *testing.T) {
	engine, sched := newTestEngine(2000, 1000)

	engine.PointerDown(100, 0)
	require.Equal(t, Dragging, engine.Phase())
	engine.PointerMove(150, 10)
	assert.InDelta(t, 40.0, engine.Viewport().Velocity, 1e-9)
	assert.InDelta(t, 950.0, engine.Viewport().ScrollPosition, 1e-9)

	engine.PointerUp(12)
	require.Equal(t, Inertial, engine.Phase())
	require.Equal(t, 1, sched.Pending())

	want := []float64{36.8, 33.856, 31.14752}
	position := 950.0
	velocity := 40.0
	for i, w := range want {
		require.Equal(t, 1, sched.RunFrame())
		position -= velocity
		velocity = w
		assert.InDelta(t, w, engine.Viewport().Velocity, 1e-9, "frame %d", i)
		assert.InDelta(t, position, engine.Viewport().ScrollPosition, 1e-9, "frame %d", i)
	}
}

func TestInertiaStopsAndStopsScheduling(t *testing.T) {
	engine, sched := newTestEngine(100000, 50000)
	engine.PointerDown(0, 0)
	engine.PointerMove(50, 10)
	engine.PointerUp(10)

	frames := 0
	last := math.Abs(engine.Viewport().Velocity)
	for sched.Pending() > 0 && frames < 1000 {
		sched.RunFrame()
		frames++
		v := math.Abs(engine.Viewport().Velocity)
		assert.LessOrEqual(t, v, last, "velocity magnitude must not grow (frame %d)", frames)
		last = v
	}
	assert.Equal(t, Idle, engine.Phase())
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, 0.0, engine.Viewport().Velocity)
	// 40*0.92^n drops under 0.1 after 72 decays; one more frame settles.
	assert.Equal(t, 73, frames)
}

func TestSlowReleaseGoesIdle(t *testing.T) {
	engine, sched := newTestEngine(1000, 200)
	engine.PointerDown(100, 0)
	engine.PointerMove(101, 1000)
	require.InDelta(t, 0.008, engine.Viewport().Velocity, 1e-9)

	engine.PointerUp(1000)
	assert.Equal(t, Idle, engine.Phase())
	assert.Equal(t, 0, sched.Pending())
	assert.False(t, engine.Viewport().Dragging)
	assert.InDelta(t, 199.0, engine.Viewport().ScrollPosition, 1e-9)
}

func TestReleaseAtThresholdGoesIdle(t *testing.T) {
	engine, sched := newTestEngine(1000, 200)
	engine.PointerDown(0, 0)
	engine.viewport.Velocity = StopVelocity
	engine.PointerUp(5)
	assert.Equal(t, Idle, engine.Phase())
	assert.Equal(t, 0, sched.Pending())
}

func TestDragIsUnclampedThenSettles(t *testing.T) {
	engine, _ := newTestEngine(100, 0)
	engine.PointerDown(0, 0)
	engine.PointerMove(300, 30000)
	assert.InDelta(t, -300.0, engine.Viewport().ScrollPosition, 1e-9, "drag tracks the pointer past the edge")

	engine.PointerUp(30000)
	assert.Equal(t, Idle, engine.Phase())
	assert.Equal(t, 0.0, engine.Viewport().ScrollPosition)
}

func TestZeroTimeDeltaKeepsVelocity(t *testing.T) {
	engine, _ := newTestEngine(1000, 500)
	engine.PointerDown(0, 0)
	engine.PointerMove(10, 10)
	require.InDelta(t, 8.0, engine.Viewport().Velocity, 1e-9)
	engine.PointerMove(30, 10)
	assert.InDelta(t, 8.0, engine.Viewport().Velocity, 1e-9)
	assert.InDelta(t, 470.0, engine.Viewport().ScrollPosition, 1e-9)
}

func TestNewDragCancelsInertia(t *testing.T) {
	engine, sched := newTestEngine(5000, 2500)
	engine.PointerDown(0, 0)
	engine.PointerMove(-80, 10)
	engine.PointerUp(10)
	require.Equal(t, Inertial, engine.Phase())
	sched.RunFrame()
	sched.RunFrame()
	position := engine.Viewport().ScrollPosition

	engine.PointerDown(400, 100)
	assert.Equal(t, Dragging, engine.Phase())
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, 0.0, engine.Viewport().Velocity)
	assert.Equal(t, position, engine.Viewport().ScrollPosition)
	assert.Equal(t, 0, sched.RunFrame())
}

func TestInertiaIsElasticAtEdges(t *testing.T) {
	engine, sched := newTestEngine(100, 90)
	engine.PointerDown(0, 0)
	engine.PointerMove(-100, 10) // velocity -80, position 190
	engine.viewport.ScrollPosition = 90
	engine.PointerUp(10)

	for sched.Pending() > 0 {
		sched.RunFrame()
		pos := engine.Viewport().ScrollPosition
		if engine.Phase() == Inertial {
			assert.LessOrEqual(t, pos, 100+50/math.E+1e-9)
		}
	}
	assert.Equal(t, Idle, engine.Phase())
	assert.Equal(t, 100.0, engine.Viewport().ScrollPosition)
}

func TestCloseCancelsPendingTick(t *testing.T) {
	engine, sched := newTestEngine(5000, 2500)
	engine.PointerDown(0, 0)
	engine.PointerMove(60, 10)
	engine.PointerUp(10)
	require.Equal(t, 1, sched.Pending())

	engine.Close()
	assert.Equal(t, 0, sched.Pending())
	assert.Equal(t, Idle, engine.Phase())
}

func TestMovesIgnoredWhenNotDragging(t *testing.T) {
	engine, sched := newTestEngine(500, 10)
	engine.PointerMove(100, 10)
	engine.PointerUp(20)
	assert.Equal(t, Idle, engine.Phase())
	assert.Equal(t, 10.0, engine.Viewport().ScrollPosition)
	assert.Equal(t, 0, sched.Pending())
}

func TestSetMaxScrollPullsRestingViewportBack(t *testing.T) {
	engine, _ := newTestEngine(1000, 900)
	engine.SetMaxScroll(300)
	assert.Equal(t, 300.0, engine.Viewport().ScrollPosition)
	engine.SetMaxScroll(-20)
	assert.Equal(t, 0.0, engine.MaxScroll())
	assert.Equal(t, 0.0, engine.Viewport().ScrollPosition)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "dragging", Dragging.String())
	assert.Equal(t, "inertial", Inertial.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
