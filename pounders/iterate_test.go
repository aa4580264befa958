// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func shiftedResidual(x []float64) []float64 {
	return []float64{x[0] - 1, 2 * (x[1] + 0.5)}
}

func TestIterateFromScratch(t *testing.T) {
	o := newTestOptimizer(t, Problem{N: 2, NObs: 2, Criterion: shiftedResidual})
	h, w := o.NewHistory(), o.Init()
	appendAll(t, h, shiftedResidual, []float64{0, 0}, 1, []float64{0, 0})

	prop, err := o.Iterate(h, w, 0, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, prop.Evaluations)
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, []int{0, 1, 2}, w.Indices)

	// the residual is affine so the model is exact
	assert.InDeltaSlice(t, []float64{-1, 2}, prop.Model.JacRes.RawVector().Data, 1e-12)
	assert.InDelta(t, 1.0, prop.Model.HessRes.At(0, 0), 1e-12)
	assert.InDelta(t, 4.0, prop.Model.HessRes.At(1, 1), 1e-12)
	assert.Equal(t, []float64{-1, 1}, prop.Model.Center)

	assert.InDeltaSlice(t, []float64{1, -0.5}, prop.Step.S, 1e-6)
	assert.InDeltaSlice(t, []float64{1, -0.5}, prop.X, 1e-6)
	assert.InDelta(t, -1.0, prop.Step.Value, 1e-9)
	assert.InDelta(t, prop.Step.Value, prop.Model.Predict(prop.Step.S), 1e-12)

	fnew := shiftedResidual(prop.X)
	assert.Less(t, floats.Dot(fnew, fnew), h.FNorm(0))
}

func TestIterateReuseHistory(t *testing.T) {
	o := newTestOptimizer(t, Problem{N: 2, NObs: 2, Criterion: shiftedResidual})
	h, w := o.NewHistory(), o.Init()
	appendAll(t, h, shiftedResidual, []float64{0, 0}, 1, []float64{0, 0})

	prop, err := o.Iterate(h, w, 0, 1, nil)
	require.NoError(t, err)
	_, err = h.Append(prop.X, shiftedResidual(prop.X))
	require.NoError(t, err)

	next := h.MinIndex()
	require.Equal(t, 3, next)

	prop, err = o.Iterate(h, w, next, 1, prop.Model)
	require.NoError(t, err)
	assert.Equal(t, 0, prop.Evaluations)
	assert.Equal(t, 4, h.Len())
	assert.Equal(t, next, w.Indices[0])
	assert.InDeltaSlice(t, h.X(next), prop.X, 1e-6)
}

func TestIterateQuadratic(t *testing.T) {
	q := newQuadResidual(false)
	o := newTestOptimizer(t, Problem{N: 2, NObs: 2, Criterion: q.eval, AddAllPoints: true})
	h, w := o.NewHistory(), o.Init()
	appendAll(t, h, q.eval, []float64{0.3, -0.2}, 1, []float64{0, 0})

	delta := 0.1
	prop, err := o.Iterate(h, w, 0, delta, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, prop.Evaluations)
	assert.LessOrEqual(t, prop.Step.Value, 0.0)
	assert.LessOrEqual(t, floats.Distance(prop.X, h.X(0), 2), delta*1.5)

	// the second pass spends no evaluation on a complete basis
	prop, err = o.Iterate(h, w, 0, delta, prop.Model)
	require.NoError(t, err)
	assert.Equal(t, 0, prop.Evaluations)
}

func TestIterateDeterministic(t *testing.T) {
	q := newQuadResidual(false)
	run := func() (*Proposal, []int) {
		var buf bytes.Buffer
		o, err := (&Problem{N: 2, NObs: 2, Criterion: q.eval}).New(&Logger{Level: LogVerbose, Msg: &buf, Out: &buf})
		require.NoError(t, err)
		h, w := o.NewHistory(), o.Init()
		appendAll(t, h, q.eval, []float64{0.3, -0.2}, 1,
			[]float64{0, 0},
			[]float64{0.5, 0.5},
			[]float64{-0.25, 0.75},
		)
		prop, err := o.Iterate(h, w, h.MinIndex(), 0.5, nil)
		require.NoError(t, err)
		assert.NotZero(t, buf.Len())
		return prop, w.Indices
	}

	p1, idx1 := run()
	p2, idx2 := run()
	assert.Equal(t, idx1, idx2)
	assert.Equal(t, p1.X, p2.X)
	assert.Equal(t, p1.Step.Value, p2.Step.Value)
}

func TestIterateCriterionHalt(t *testing.T) {
	crit := func(x []float64) []float64 { panic("budget") }
	o := newTestOptimizer(t, Problem{N: 2, NObs: 2, Criterion: crit})
	h, w := o.NewHistory(), o.Init()
	appendAll(t, h, shiftedResidual, []float64{0, 0}, 1, []float64{0, 0})

	_, err := o.Iterate(h, w, 0, 1, nil)
	assert.True(t, errors.Is(err, ErrCriterionHalt))
}

func TestIterateArguments(t *testing.T) {
	o := newTestOptimizer(t, Problem{N: 2, NObs: 2, Criterion: shiftedResidual})
	h, w := o.NewHistory(), o.Init()
	appendAll(t, h, shiftedResidual, []float64{0, 0}, 1, []float64{0, 0})

	assert.Panics(t, func() { _, _ = o.Iterate(h, w, 1, 1, nil) })
	assert.Panics(t, func() { _, _ = o.Iterate(h, w, 0, 0, nil) })
}
