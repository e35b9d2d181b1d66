package core

import (
	"fmt"

	"github.com/encodeous/edgeflow/state"
)

// Select picks the preferred parent. The returned value is always an element of parents.
//
// A sink always wins. Otherwise parents below state.MinTrustToConsider are ignored and the
// lowest rank is chosen; if every parent is distrusted, the most trusted one is used instead.
// Ties go to the earliest parent in the list.
func Select[P state.ParentView](parents []P) (P, error) {
	var zero P
	if len(parents) == 0 {
		return zero, fmt.Errorf("no parents to select from: %w", state.ErrInvalidArgument)
	}

	for _, p := range parents {
		if p.IsSink() {
			return p, nil
		}
	}

	for _, p := range parents {
		if err := state.CheckParent(p); err != nil {
			return zero, err
		}
	}

	best := -1
	bestRank := 0.0
	for i, p := range parents {
		if p.Trust() < state.MinTrustToConsider {
			continue
		}
		r, err := Rank(p)
		if err != nil {
			return zero, err
		}
		if best == -1 || r < bestRank {
			best = i
			bestRank = r
		}
	}
	if best != -1 {
		return parents[best], nil
	}

	// every parent is distrusted, fall back to the most trusted one
	best = 0
	for i, p := range parents {
		if p.Trust() > parents[best].Trust() {
			best = i
		}
	}
	return parents[best], nil
}
