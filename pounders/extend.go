// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// AddMorePoints extends the affine interpolation set with history points for the quadratic terms.
//
// The center 𝐱ₘᵢₙ is prepended to the n accepted directions, giving the n+1 affine rows
//
//	Mᵢ = [1, dᵢ],  Nᵢ = φ(dᵢ)
//
// The remaining history is scanned from the newest point to the oldest, skipping model points
// and points with ‖ 𝐱 - 𝐱ₘᵢₙ ‖ > c₂Δ. A candidate is kept when the quadratic block stays well poised:
//
//	M = QR,  Z = Q[:, n+1:],  L = NᵀZ,  σₘᵢₙ(L) > θ₂
//
// It stops at 𝚖𝚊𝚡𝚒𝚗𝚝𝚎𝚛𝚙 points. M, N, Z and L of the final set are stored in the workspace.
// It returns the number of extra points.
func (o *Optimizer) AddMorePoints(h *History, w *Workspace, minIndex int, delta float64) (added int) {

	o.checkWorkspace(h, w)

	n := o.n
	if len(w.Indices) != n {
		panic("affine basis must be complete before adding quadratic points")
	}

	nq := n * (n + 1) / 2
	xmin := h.X(minIndex)

	w.Indices = slices.Insert(w.Indices, 0, minIndex)

	M := mat.NewDense(o.maxInterp, n+1, nil)
	N := mat.NewDense(o.maxInterp, nq, nil)

	d := make([]float64, n)
	phi := make([]float64, nq)
	setRow := func(row, idx int) {
		scaledDir(d, h.X(idx), xmin, delta)
		M.Set(row, 0, 1)
		for j, dj := range d {
			M.Set(row, j+1, dj)
		}
		phiTo(phi, d)
		N.SetRow(row, phi)
	}

	for i, idx := range w.Indices {
		setRow(i, idx)
	}

	var L, Z *mat.Dense
	mp := n + 1
	for point := h.Len() - 1; mp < o.maxInterp && point >= 0; point-- {

		if slices.Contains(w.Indices[:n+1], point) {
			continue
		}

		floats.SubTo(d, h.X(point), xmin)
		if floats.Norm(d, 2)/delta > o.c2 {
			continue
		}

		setRow(mp, point)
		l, z, sigma := quadraticBlock(M.Slice(0, mp+1, 0, n+1), N.Slice(0, mp+1, 0, nq), n)

		if sigma > o.theta2 {
			w.Indices = append(w.Indices, point)
			L, Z = l, z
			mp++
			added++
		}

		if log := o.logger; log.enable(LogTrace) {
			log.log("Quadratic candidate %d    σₘᵢₙ= %.3e    accepted= %t\n", point, sigma, sigma > o.theta2)
		}
	}

	if mp == n+1 {
		L = mat.NewDense(nq, n, nil)
		for i := 0; i < n; i++ {
			L.Set(i, i, 1)
		}
	}

	w.M = mat.DenseCopyOf(M.Slice(0, mp, 0, n+1))
	w.N = mat.DenseCopyOf(N.Slice(0, mp, 0, nq))
	w.L, w.Z = L, Z

	if log := o.logger; log.enable(LogLast) {
		log.log("Extended model with %d quadratic points, %d interpolation points\n", added, mp)
	}
	return
}

// quadraticBlock factorizes the affine rows M (m×(n+1), m > n+1) and returns
// the null space basis Z of Mᵀ, the reduced quadratic block L = NᵀZ and its smallest singular value.
func quadraticBlock(m, nmat mat.Matrix, n int) (l, z *mat.Dense, sigma float64) {

	rows, _ := m.Dims()

	q := orthoFactor(m)
	z = mat.DenseCopyOf(q.Slice(0, rows, n+1, rows))

	l = new(mat.Dense)
	l.Mul(nmat.T(), z)

	var svd mat.SVD
	if !svd.Factorize(l, mat.SVDNone) {
		return l, z, 0
	}
	values := svd.Values(nil)
	return l, z, values[len(values)-1]
}
