// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Phi evaluates the quadratic features of x ∈ ℝⁿ:
//
//	φ(x) = [½x₁²  x₁x₂/√2 … x₁xₙ/√2  ½x₂²  x₂x₃/√2 … ½xₙ²]
//
// so that ½xᵀGx = βᵀφ(x) and ‖ G ‖𝐅 = ‖ β ‖₂ for the symmetric G unpacked from β.
func Phi(x []float64) []float64 {
	n := len(x)
	phi := make([]float64, n*(n+1)/2)
	phiTo(phi, x)
	return phi
}

func phiTo(phi, x []float64) {
	if len(phi) != len(x)*(len(x)+1)/2 {
		panic("bound check error")
	}
	j := 0
	for i, xi := range x {
		phi[j] = 0.5 * xi * xi
		j++
		for _, xk := range x[i+1:] {
			phi[j] = xi * xk / math.Sqrt2
			j++
		}
	}
}

// unpackHessian maps the coefficients of φ back onto the symmetric matrix G.
func unpackHessian(beta []float64, n int) *mat.SymDense {
	if len(beta) != n*(n+1)/2 {
		panic("bound check error")
	}
	g := mat.NewSymDense(n, nil)
	j := 0
	for i := 0; i < n; i++ {
		g.SetSym(i, i, beta[j])
		j++
		for k := i + 1; k < n; k++ {
			g.SetSym(i, k, beta[j]/math.Sqrt2)
			j++
		}
	}
	return g
}
