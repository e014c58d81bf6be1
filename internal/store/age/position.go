// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cairn Contributors

package age

import (
	"math"
	"math/rand/v2"
	"time"
)

// DefaultPositionIncrement is the gap between consecutive appended tasks.
const DefaultPositionIncrement = 1000.0

// ComputeInsertPositions returns count strictly increasing positions for
// tasks inserted after afterPos and before beforePos. A zero bound means
// the list is open on that side.
func ComputeInsertPositions(afterPos, beforePos float64, count int) []float64 {
	if count <= 0 {
		return []float64{}
	}

	out := make([]float64, count)
	for i := range out {
		step := float64(i + 1)
		switch {
		case afterPos == 0 && beforePos == 0:
			out[i] = DefaultPositionIncrement * step
		case beforePos == 0:
			out[i] = afterPos + DefaultPositionIncrement*step
		case afterPos == 0:
			out[i] = beforePos * step / float64(count+1)
		default:
			out[i] = afterPos + (beforePos-afterPos)*step/float64(count+1)
		}
	}
	return out
}

// AppendPosition returns a position after maxPos. The integral part is the
// next multiple of the increment above maxPos, so repeated appends land on
// 1000, 2000, 3000 whatever fraction earlier appends carried. The fractional
// part mixes the sub-second clock with random jitter so concurrent appends
// rarely collide, and stays below 1.
func AppendPosition(maxPos float64) float64 {
	return appendPosition(maxPos, time.Now(), rand.Float64())
}

func appendPosition(maxPos float64, now time.Time, r float64) float64 {
	base := math.Floor(maxPos/DefaultPositionIncrement)*DefaultPositionIncrement + DefaultPositionIncrement
	subsecond := float64(now.Nanosecond()) / 1e9 * 0.5
	jitter := r * 0.5
	return base + subsecond + jitter
}

// RebalancePositions returns n evenly spaced positions starting at the
// increment.
func RebalancePositions(n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = DefaultPositionIncrement * float64(i+1)
	}
	return out
}

// neighborBounds resolves anchor positions for an insert. Given an after
// anchor alone, the before bound is the next position in ordered; given a
// before anchor alone, the after bound is the previous one. Missing
// neighbors leave the bound at zero.
func neighborBounds(ordered []float64, afterPos, beforePos float64, hasAfter, hasBefore bool) (float64, float64) {
	switch {
	case hasAfter && !hasBefore:
		for _, p := range ordered {
			if p > afterPos {
				return afterPos, p
			}
		}
		return afterPos, 0
	case hasBefore && !hasAfter:
		prev := 0.0
		for _, p := range ordered {
			if p >= beforePos {
				break
			}
			prev = p
		}
		return prev, beforePos
	default:
		return afterPos, beforePos
	}
}
