// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// History is the append-only record of every evaluated point.
// An index is the stable identity of a point and is never reused.
type History struct {
	n, nobs  int
	capacity int
	xs       [][]float64 // n
	fs       [][]float64 // nobs
	fnorm    []float64   // ‖ 𝐫(𝐱) ‖²
}

// NewHistory creates an empty history of n-vectors with nobs residuals.
// A non-positive capacity selects the default of 1000 points.
func NewHistory(n, nobs, capacity int) *History {
	if n <= 0 || nobs <= 0 {
		panic("history dimension must greater than 0")
	}
	if capacity <= 0 {
		capacity = defaultHistoryCap
	}
	return &History{n: n, nobs: nobs, capacity: capacity}
}

// Append stores copies of x and its residual and returns the new index.
func (h *History) Append(x, residual []float64) (int, error) {
	if len(x) != h.n || len(residual) != h.nobs {
		panic("history point dimension not match problem")
	}
	if len(h.xs) >= h.capacity {
		return -1, fmt.Errorf("%w: %d points", ErrHistoryExhausted, h.capacity)
	}
	h.xs = append(h.xs, slices.Clone(x))
	h.fs = append(h.fs, slices.Clone(residual))
	h.fnorm = append(h.fnorm, floats.Dot(residual, residual))
	return len(h.xs) - 1, nil
}

// Len returns the number of stored points.
func (h *History) Len() int { return len(h.xs) }

// Cap returns the maximum number of points.
func (h *History) Cap() int { return h.capacity }

// X returns the i-th point. The slice must not be modified.
func (h *History) X(i int) []float64 { return h.xs[i] }

// Residual returns the residual of the i-th point. The slice must not be modified.
func (h *History) Residual(i int) []float64 { return h.fs[i] }

// FNorm returns the squared residual norm of the i-th point.
func (h *History) FNorm(i int) float64 { return h.fnorm[i] }

// MinIndex returns the index of the smallest residual norm, the earliest one on ties.
// It returns -1 for an empty history.
func (h *History) MinIndex() int {
	if len(h.fnorm) == 0 {
		return -1
	}
	return floats.MinIdx(h.fnorm)
}
