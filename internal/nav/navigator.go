package nav

import "github.com/pixil98/go-crowd/internal/space"

// Navigator is the movement capability backing a single visitor body. The
// simulation issues destinations and polls progress; how a path is actually
// computed and followed is the navigator's business.
type Navigator interface {
	// SetDestination starts navigation toward a point. It replaces any
	// destination previously set.
	SetDestination(space.Point)

	// ResetPath abandons the current path, if any.
	ResetPath()

	// SetStopped halts or resumes movement without discarding the path.
	SetStopped(bool)
	Stopped() bool

	// Position reports the body's current location.
	Position() space.Point

	// RemainingDistance reports the distance left along the current path.
	// Meaningful only while HasPath or PathPending is true.
	RemainingDistance() float64

	// StoppingDistance reports how close the body gets before it is
	// considered to have reached its destination.
	StoppingDistance() float64

	// HasPath reports whether a path is currently being followed.
	HasPath() bool

	// PathPending reports whether a requested path is still being computed.
	PathPending() bool

	// Velocity reports the body's current velocity.
	Velocity() space.Point
}

// velocityEpsilon is the speed below which a body counts as standing still.
const velocityEpsilon = 1e-3

// Arrived reports whether n has reached its destination: the path is
// resolved, the remaining distance is within stopping range, and the body
// has either finished its path or stopped moving.
func Arrived(n Navigator) bool {
	if n.PathPending() {
		return false
	}
	if n.RemainingDistance() > n.StoppingDistance() {
		return false
	}
	return !n.HasPath() || n.Velocity().Length() < velocityEpsilon
}
