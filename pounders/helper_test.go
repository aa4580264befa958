// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// quadResidual is rₖ(𝐱) = cₖ + gₖᵀ𝐱 + ½𝐱ᵀHₖ𝐱.
type quadResidual struct {
	c []float64
	g [][]float64
	h []*mat.SymDense
}

func (q *quadResidual) eval(x []float64) []float64 {
	r := make([]float64, len(q.c))
	xv := mat.NewVecDense(len(x), x)
	for k := range r {
		r[k] = q.c[k] + floats.Dot(q.g[k], x) + 0.5*mat.Inner(xv, q.h[k], xv)
	}
	return r
}

// gradAt returns ∇rₖ(𝐱) = gₖ + Hₖ𝐱.
func (q *quadResidual) gradAt(k int, x []float64) []float64 {
	var hx mat.VecDense
	hx.MulVec(q.h[k], mat.NewVecDense(len(x), x))
	grad := make([]float64, len(x))
	floats.AddTo(grad, q.g[k], hx.RawVector().Data)
	return grad
}

func newTestOptimizer(t *testing.T, p Problem) *Optimizer {
	t.Helper()
	o, err := p.New(nil)
	require.NoError(t, err)
	return o
}

// appendAll evaluates crit at center + δ·dᵢ for every offset and appends them in order.
func appendAll(t *testing.T, h *History, crit Criterion, center []float64, delta float64, offsets ...[]float64) {
	t.Helper()
	for _, d := range offsets {
		x := make([]float64, len(center))
		floats.AddScaledTo(x, center, delta, d)
		_, err := h.Append(x, crit(x))
		require.NoError(t, err)
	}
}
