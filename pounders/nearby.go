// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FindNearbyPoints collects affinely independent directions from the history without new evaluations.
//
// The history is scanned from the newest point to the oldest. A point with scaled direction
//
//	d = (𝐱ᵢ - 𝐱ₘᵢₙ) / Δ,  ‖ d ‖ ≤ c
//
// is accepted when its component in the unexplored subspace is large enough:
//
//	‖ (Qᵀd)[mₚ:n] ‖ ≥ θ₁
//
// where Q is the orthogonal factor of the accepted directions. Ties are resolved
// by the scan order, so the newest point always wins.
// The scan stops once n directions are accepted. It returns the number of accepted points.
func (o *Optimizer) FindNearbyPoints(h *History, w *Workspace, minIndex int, delta float64) (accepted int) {

	o.checkWorkspace(h, w)

	n := o.n
	if len(w.Indices) >= n {
		return
	}

	xmin := h.X(minIndex)
	d := make([]float64, n)
	dv := mat.NewVecDense(n, d)
	proj := mat.NewVecDense(n, nil)

	var qf *mat.Dense // orthogonal factor of w.Q, refreshed after each acceptance
	for i := h.Len() - 1; i >= 0; i-- {

		scaledDir(d, h.X(i), xmin, delta)
		if floats.Norm(d, 2) > o.c {
			continue
		}

		mp := len(w.Indices)
		var rest float64
		if w.QIsIdentity {
			rest = floats.Norm(d[mp:], 2)
		} else {
			if qf == nil {
				qf = orthoFactor(w.Q)
			}
			proj.MulVec(qf.T(), dv)
			rest = floats.Norm(proj.RawVector().Data[mp:], 2)
		}

		if rest >= o.theta1 {
			if w.QIsIdentity {
				w.Q.Zero()
				w.QIsIdentity = false
			}
			w.Q.SetCol(mp, d)
			w.Indices = append(w.Indices, i)
			qf = nil
			accepted++
			if log := o.logger; log.enable(LogTrace) {
				log.log("Nearby point %d accepted as direction %d, projection %.3e\n", i, mp, rest)
			}
		}

		if len(w.Indices) == n {
			break
		}
	}

	if log := o.logger; log.enable(LogLast) {
		log.log("Found %d nearby points, %d of %d directions known\n", accepted, len(w.Indices), n)
	}
	return
}
