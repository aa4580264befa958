// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxmin

import "math"

// projectX limits x to the feasible region in place:
//
//	𝚙𝚛𝚘𝚓 xᵢ = uᵢ    if xᵢ > uᵢ
//	𝚙𝚛𝚘𝚓 xᵢ = lᵢ    if xᵢ < lᵢ
//	𝚙𝚛𝚘𝚓 xᵢ = xᵢ    otherwise
//
// It reports whether any component moved.
func projectX(x []float64, bounds []Bound) (projected bool) {
	if len(x) != len(bounds) {
		panic("bound check error")
	}
	for i, b := range bounds {
		if b.hint == bndNo {
			continue
		}
		if b.hint <= bndBoth && x[i] < b.Lower {
			x[i] = b.Lower
			projected = true
		} else if b.hint >= bndBoth && x[i] > b.Upper {
			x[i] = b.Upper
			projected = true
		}
	}
	return
}

// projGradNorm computes the infinity norm of the projected gradient ‖ P(x - g) - x ‖∞.
func projGradNorm(loc *iterLoc, bounds []Bound) float64 {

	x, g := loc.x, loc.g
	if len(x) != len(bounds) || len(g) != len(bounds) {
		panic("bound check error")
	}

	norm := zero
	for i, b := range bounds {
		g := g[i]
		if b.hint != bndNo {
			if g < zero {
				if b.hint >= bndBoth {
					g = math.Max(x[i]-b.Upper, g)
				}
			} else {
				if b.hint <= bndBoth {
					g = math.Min(x[i]-b.Lower, g)
				}
			}
		}
		norm = math.Max(norm, math.Abs(g))
	}
	return norm
}

// projDirection computes the feasible direction d = P(x - λg) - x.
func projDirection(loc *iterLoc, lambda float64, bounds []Bound, d []float64) {
	x, g := loc.x, loc.g
	if len(d) != len(x) {
		panic("bound check error")
	}
	for i := range d {
		d[i] = x[i] - lambda*g[i]
	}
	projectX(d, bounds)
	for i := range d {
		d[i] -= x[i]
	}
}
