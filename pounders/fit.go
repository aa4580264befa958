// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Models holds the quadratic model of every residual component in scaled coordinates s = (𝐱 - 𝐱ₘᵢₙ) / Δ:
//
//	rₖ(𝐱ₘᵢₙ + Δs) ≈ rₖ(𝐱ₘᵢₙ) + Jₖs + ½sᵀHₖs
type Models struct {
	Jac  *mat.Dense      // nobs×n, row k is the gradient of rₖ
	Hess []*mat.SymDense // nobs Hessians
}

// FitModels computes, for every residual component, the quadratic interpolating
// the model points whose Hessian has the least Frobenius norm.
//
// With fₖ the centered residuals rₖ(𝐱ᵢ) - rₖ(𝐱ₘᵢₙ) at the model points,
// the interpolation conditions fₖ = Mɑ + Nβ with β = Nᵀλ, Mᵀλ = 0 reduce to
//
//	(LᵀL)ω = Zᵀfₖ,  β = Lω,  M[:n+1]ɑ = (fₖ - Nβ)[:n+1]
//
// The gradient is ɑ[1:] and the Hessian is unpacked from β.
// Without extra quadratic points β = 0 and the model is affine.
// A singular system reports ErrNumericalConsistency.
func (o *Optimizer) FitModels(h *History, w *Workspace, minIndex int) (*Models, error) {

	o.checkWorkspace(h, w)

	n, nobs := o.n, o.nobs
	nq := n * (n + 1) / 2
	mp := len(w.Indices)
	if mp < n+1 || w.M == nil || w.N == nil {
		panic("quadratic model must be extended before fitting")
	}

	fmin := h.Residual(minIndex)
	F := mat.NewDense(mp, nobs, nil)
	for i, idx := range w.Indices {
		for k, r := range h.Residual(idx) {
			F.Set(i, k, r-fmin[k])
		}
	}

	quad := mp > n+1
	var llt mat.Dense
	if quad {
		llt.Mul(w.L.T(), w.L)
	}
	affine := w.M.Slice(0, n+1, 0, n+1)

	models := &Models{
		Jac:  mat.NewDense(nobs, n, nil),
		Hess: make([]*mat.SymDense, nobs),
	}

	beta := mat.NewVecDense(nq, nil)
	var rhs, omega, res, alpha mat.VecDense
	for k := 0; k < nobs; k++ {
		fk := F.ColView(k)

		if quad {
			rhs.MulVec(w.Z.T(), fk)
			if err := omega.SolveVec(&llt, &rhs); err != nil {
				return nil, fmt.Errorf("%w: quadratic block of component %d: %w", ErrNumericalConsistency, k, err)
			}
			beta.MulVec(w.L, &omega)
		}

		res.MulVec(w.N, beta)
		res.SubVec(fk, &res)

		if err := alpha.SolveVec(affine, res.SliceVec(0, n+1)); err != nil {
			return nil, fmt.Errorf("%w: affine block of component %d: %w", ErrNumericalConsistency, k, err)
		}

		for j := 0; j < n; j++ {
			models.Jac.Set(k, j, alpha.AtVec(j+1))
		}
		models.Hess[k] = unpackHessian(beta.RawVector().Data, n)
	}

	if log := o.logger; log.enable(LogLast) {
		log.log("Fitted %d residual models on %d points\n", nobs, mp)
	}
	return models, nil
}
