// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// orthoFactor returns the full m×m orthogonal factor Q of the Householder factorization A = QR (m ≥ n).
// Zero columns of A leave the corresponding reflector as identity.
func orthoFactor(a mat.Matrix) *mat.Dense {
	var qr mat.QR
	qr.Factorize(a)
	q := new(mat.Dense)
	qr.QTo(q)
	return q
}

func identity(n int) *mat.Dense {
	id := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		id.Set(i, i, 1)
	}
	return id
}

// scaledDir computes d = (x - c) / Δ.
func scaledDir(d, x, c []float64, delta float64) {
	floats.SubTo(d, x, c)
	floats.Scale(1/delta, d)
}
