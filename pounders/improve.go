// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ImproveModel evaluates the criterion along the unexplored directions of the basis.
//
// The accepted directions are completed to an orthonormal basis q₁ … qₙ.
// For every missing direction qᵢ (i ≥ mₚ) the aggregated model m(s) = gᵀs + ½sᵀHs gives
//
//	𝚜𝚌𝚘𝚛𝚎ᵢ = m(qᵢ) = qᵢᵀ(g + ½Hqᵢ)
//
// after qᵢ was flipped to make gᵀqᵢ ≤ 0, so the new sample lies on the side the model
// expects to descend. With addAll every missing direction is evaluated at 𝐱ₘᵢₙ + Δqᵢ,
// otherwise only the one with the lowest score. A nil model scores every direction as zero.
//
// It returns the number of criterion evaluations.
func (o *Optimizer) ImproveModel(h *History, w *Workspace, minIndex int, delta float64, model *Model, addAll bool) (evals int, err error) {

	o.checkWorkspace(h, w)

	n := o.n
	mp := len(w.Indices)
	if mp >= n {
		return
	}

	var qtmp *mat.Dense
	if w.QIsIdentity {
		qtmp = identity(n)
	} else {
		qtmp = orthoFactor(w.Q)
	}

	var g []float64
	var hess *mat.SymDense
	if model != nil {
		g = model.JacRes.RawVector().Data
		hess = model.HessRes
	}

	dirs := make([][]float64, n)
	hq := mat.NewVecDense(n, nil)
	best, minScore := mp, math.Inf(1)
	for i := mp; i < n; i++ {
		q := mat.Col(nil, i, qtmp)

		score := 0.0
		if model != nil {
			// sample on the descending side of the model
			if floats.Dot(q, g) > 0 {
				floats.Scale(-1, q)
			}
			hq.MulVec(hess, mat.NewVecDense(n, q))
			score = floats.Dot(q, g) + 0.5*floats.Dot(q, hq.RawVector().Data)
		}

		if i == mp || score < minScore {
			best, minScore = i, score
		}
		dirs[i] = q

		if log := o.logger; log.enable(LogTrace) {
			log.log("Missing direction %d scores %.6e\n", i, score)
		}
	}

	if addAll {
		for i := mp; i < n; i++ {
			if err = o.addPoint(h, w, minIndex, delta, dirs[i]); err != nil {
				return
			}
			evals++
		}
	} else {
		if err = o.addPoint(h, w, minIndex, delta, dirs[best]); err != nil {
			return
		}
		evals++
	}

	if log := o.logger; log.enable(LogLast) {
		log.log("Improved model with %d evaluations, %d of %d directions known\n", evals, len(w.Indices), n)
	}
	return
}

// addPoint evaluates 𝐱ₘᵢₙ + Δq and records q as a model direction.
func (o *Optimizer) addPoint(h *History, w *Workspace, minIndex int, delta float64, q []float64) error {

	x := make([]float64, o.n)
	floats.AddScaledTo(x, h.X(minIndex), delta, q)

	idx, err := o.evaluate(h, x)
	if err != nil {
		return err
	}

	if w.QIsIdentity {
		w.Q.Zero()
		w.QIsIdentity = false
	}
	w.Q.SetCol(len(w.Indices), q)
	w.Indices = append(w.Indices, idx)
	return nil
}

// evaluate calls the criterion once and appends the result to the history.
func (o *Optimizer) evaluate(h *History, x []float64) (idx int, err error) {

	var res []float64
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrCriterionHalt, r)
			}
		}()
		res = o.criterion(x)
	}()
	if err != nil {
		return -1, err
	}
	if len(res) != o.nobs {
		panic("criterion residual dimension not match problem")
	}

	if idx, err = h.Append(x, res); err != nil {
		return
	}

	if log := o.logger; log.enable(LogEval) {
		log.log("Evaluated point %d    ‖r‖²= %12.5e\n", idx, h.FNorm(idx))
		log.out("%5d %12.5e", idx, h.FNorm(idx))
		for _, xi := range x {
			log.out(" %.6e", xi)
		}
		log.out("\n")
	}
	return
}
