package sim

import (
	"fmt"

	"github.com/pixil98/go-crowd/internal/space"
)

// SelectionPolicy determines how a visitor picks its next target.
type SelectionPolicy int

const (
	// SelectWeighted draws a target at random, biased by priority weight.
	SelectWeighted SelectionPolicy = iota
	// SelectOrdered walks the coordinator's target roster round-robin.
	SelectOrdered
	// SelectNearest picks the closest target within search range.
	SelectNearest
)

func (p *SelectionPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "weighted", "":
		*p = SelectWeighted
	case "ordered":
		*p = SelectOrdered
	case "nearest":
		*p = SelectNearest
	default:
		return fmt.Errorf("unknown selection policy: %s", text)
	}
	return nil
}

func (p SelectionPolicy) String() string {
	switch p {
	case SelectWeighted:
		return "weighted"
	case SelectOrdered:
		return "ordered"
	case SelectNearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// pickWeighted selects from candidates by cumulative priority weight using a
// draw uniform in [0, total weight). The first candidate whose cumulative
// weight reaches the draw wins; floating point rounding can leave the walk
// short of the draw, in which case the last candidate is returned.
func pickWeighted(candidates []*TargetInstance, draw func() float64) *TargetInstance {
	if len(candidates) == 0 {
		return nil
	}

	var total float64
	for _, c := range candidates {
		total += c.Weight()
	}

	roll := draw() * total
	var cumulative float64
	for _, c := range candidates {
		cumulative += c.Weight()
		if cumulative >= roll {
			return c
		}
	}

	return candidates[len(candidates)-1]
}

// pickNearest selects the closest candidate to pos within maxDistance, ties
// broken by candidate order. Returns nil when none is in range.
func pickNearest(candidates []*TargetInstance, pos space.Point, maxDistance float64) *TargetInstance {
	var best *TargetInstance
	bestDist := maxDistance

	for _, c := range candidates {
		d := c.Position().Distance(pos)
		if d > maxDistance {
			continue
		}
		if best == nil || d < bestDist {
			best = c
			bestDist = d
		}
	}

	return best
}
