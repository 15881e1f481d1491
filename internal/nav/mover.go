package nav

import (
	"time"

	"github.com/pixil98/go-crowd/internal/space"
)

// PointMover is a straight-line Navigator implementation. It moves a body at
// constant speed directly toward its destination, ignoring obstacles. It
// stands in for an external pathfinding engine when none is wired up.
type PointMover struct {
	pos      space.Point
	dest     space.Point
	speed    float64
	stopDist float64

	hasPath bool
	stopped bool
}

// NewPointMover creates a mover at a starting position.
func NewPointMover(start space.Point, speed, stoppingDistance float64) *PointMover {
	return &PointMover{
		pos:      start,
		speed:    speed,
		stopDist: stoppingDistance,
	}
}

func (m *PointMover) SetDestination(p space.Point) {
	m.dest = p
	m.hasPath = true
}

func (m *PointMover) ResetPath() {
	m.hasPath = false
}

func (m *PointMover) SetStopped(stopped bool) {
	m.stopped = stopped
}

func (m *PointMover) Stopped() bool {
	return m.stopped
}

func (m *PointMover) Position() space.Point {
	return m.pos
}

func (m *PointMover) RemainingDistance() float64 {
	if !m.hasPath {
		return 0
	}
	return m.pos.Distance(m.dest)
}

func (m *PointMover) StoppingDistance() float64 {
	return m.stopDist
}

func (m *PointMover) HasPath() bool {
	return m.hasPath
}

// PathPending always returns false: straight-line paths are available
// immediately.
func (m *PointMover) PathPending() bool {
	return false
}

func (m *PointMover) Velocity() space.Point {
	if !m.hasPath || m.stopped {
		return space.Point{}
	}
	return m.dest.Sub(m.pos).Normalize().Scale(m.speed)
}

// Advance integrates the body's position over the elapsed interval. The path
// completes once the body is within stopping distance of the destination.
func (m *PointMover) Advance(elapsed time.Duration) {
	if !m.hasPath || m.stopped {
		return
	}

	remaining := m.pos.Distance(m.dest)
	step := m.speed * elapsed.Seconds()

	if step >= remaining {
		m.pos = m.dest
	} else {
		m.pos = m.pos.Add(m.dest.Sub(m.pos).Normalize().Scale(step))
	}

	if m.pos.Distance(m.dest) <= m.stopDist {
		m.hasPath = false
	}
}
