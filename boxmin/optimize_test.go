// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxmin

import (
	"math"
	"os"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(one, math.Max(math.Abs(a), math.Abs(b)))
}

func TestBasic(t *testing.T) {

	K := []float64{1., 0.3, 0.5}
	F := []float64{
		1, 1, 1,
		1, 1, 0,
		1, 0, 1,
		1, 0, 0,
		1, 0, 0,
	}

	x0 := []float64{0, 0, 0}

	eval := func(x []float64, g []float64) (f float64) {
		const m = 5
		const n = 3
		Fx := make([]float64, m)
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				Fx[i] += F[i*n+j] * x[j]
			}
		}
		sum := zero
		for _, v := range Fx {
			sum += math.Exp(v)
		}
		logZ := math.Log(sum)
		f = logZ
		for j := 0; j < n; j++ {
			f -= K[j] * x[j]
		}
		for i, v := range Fx {
			Fx[i] = math.Exp(v - logZ)
		}
		for j := 0; j < n; j++ {
			g[j] = -K[j]
			for i := 0; i < m; i++ {
				g[j] += F[i*n+j] * Fx[i]
			}
		}
		return
	}

	stop := Termination{
		MaxIterations:     500,
		MaxEvaluations:    2000,
		ProjGradTolerance: 1e-6,
	}

	f, _ := os.Open(os.DevNull)
	log := &Logger{
		Level: LogVerbose,
		Msg:   f,
		Out:   f,
	}

	p := Problem{
		N:    3,
		Eval: eval,
		Stop: stop,
	}
	s, e := p.New(log)
	if e != nil {
		panic(e)
	}

	w := s.Init()
	r := s.Fit(x0, w)

	switch {
	case !r.OK:
		t.Fatal("TestBasic: Not Converge")
	case r.Status != ConvGradProgNorm:
		t.Fatalf("TestBasic: Unexpected Status %v", r.Status)
	case r.F > 1.559132167348348+1e-8:
		t.Fatal("TestBasic: Object Too Large")
	}
}

func TestRosenbrock(t *testing.T) {

	const n = 2

	x := []float64{-1.2, 1.0}
	bounds := []Bound{
		{Lower: -2, Upper: 2},
		{Lower: -2, Upper: 2},
	}

	stop := Termination{
		MaxIterations:     50000,
		ProjGradTolerance: 1e-9,
	}

	eval := func(x []float64, g []float64) (f float64) {
		a, b := 1-x[0], x[1]-x[0]*x[0]
		f = a*a + 100*b*b
		g[0] = -2*a - 400*x[0]*b
		g[1] = 200 * b
		return f
	}

	p := Problem{
		N:      n,
		Eval:   eval,
		Stop:   stop,
		Bounds: bounds,
	}

	s, e := p.New(nil)
	if e != nil {
		panic(e)
	}
	w := s.Init()
	r := s.Fit(x, w)

	switch {
	case !r.OK:
		t.Fatalf("TestRosenbrock: Not Converge %v", r.Status)
	case r.F > 1e-8:
		t.Fatal("TestRosenbrock: Object Too Large")
	case !almostEqual(r.X[0], 1, 1e-3) || !almostEqual(r.X[1], 1, 1e-3):
		t.Fatal("TestRosenbrock: Wrong Minimizer")
	}
}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test_slsqp.py (test_bounds_clipping)
func TestBoundClip(t *testing.T) {

	const n = 1

	eval := func(x []float64, g []float64) (f float64) {
		g[0] = 2*x[0] - 2
		return (x[0] - 1) * (x[0] - 1)
	}

	stop := Termination{
		MaxIterations:     50,
		MaxEvaluations:    100,
		ProjGradTolerance: 1e-5,
	}

	tests := []struct {
		init    float64
		bnd     []Bound
		desired float64
	}{
		{10, []Bound{{Lower: math.NaN(), Upper: 0}}, 0},
		{-10, []Bound{{Lower: 2, Upper: math.NaN()}}, 2},
		{-10, []Bound{{Lower: math.NaN(), Upper: 0}}, 0},
		{10, []Bound{{Lower: 2, Upper: math.NaN()}}, 2},
		{-0.5, []Bound{{Lower: -1, Upper: 0}}, 0},
		{10, []Bound{{Lower: -1, Upper: 0}}, 0},
	}

	for _, tt := range tests {
		p := Problem{
			N:      n,
			Eval:   eval,
			Stop:   stop,
			Bounds: tt.bnd,
		}

		s, e := p.New(nil)
		if e != nil {
			panic(e)
		}

		w := s.Init()
		r := s.Fit([]float64{tt.init}, w)

		switch {
		case !r.OK:
			t.Fatal("TestBoundClip: Not Converge")
		case !almostEqual(r.X[0], tt.desired, 1e-12):
			t.Fatal("TestBoundClip: Bound Violation")
		}
	}
}

func TestBoxQuadratic(t *testing.T) {

	// ½xᵀHx + cᵀx with the unconstrained minimizer (2, -0.25) outside [-1,1]²
	H := [2][2]float64{{2, 0}, {0, 4}}
	c := []float64{-4, 1}

	eval := func(x []float64, g []float64) (f float64) {
		for i := range g {
			g[i] = c[i]
			for j := range x {
				g[i] += H[i][j] * x[j]
			}
			f += c[i] * x[i]
		}
		for i := range x {
			f += half * x[i] * (g[i] - c[i])
		}
		return
	}

	p := Problem{
		N:      2,
		Eval:   eval,
		Stop:   Termination{MaxIterations: 200, ProjGradTolerance: 1e-10, StepTolerance: 1e-14},
		Bounds: []Bound{{Lower: -1, Upper: 1}, {Lower: -1, Upper: 1}},
	}

	s, e := p.New(nil)
	if e != nil {
		t.Fatal(e)
	}
	r := s.Fit([]float64{0, 0}, s.Init())

	switch {
	case !r.OK:
		t.Fatalf("TestBoxQuadratic: Not Converge %v", r.Status)
	case !almostEqual(r.X[0], 1, 1e-10):
		t.Fatalf("TestBoxQuadratic: x[0] = %v", r.X[0])
	case !almostEqual(r.X[1], -0.25, 1e-6):
		t.Fatalf("TestBoxQuadratic: x[1] = %v", r.X[1])
	}
}

func TestStationaryStart(t *testing.T) {

	evals := 0
	eval := func(x []float64, g []float64) (f float64) {
		evals++
		for i := range x {
			g[i] = x[i]
			f += half * x[i] * x[i]
		}
		return
	}

	p := Problem{
		N:      3,
		Eval:   eval,
		Stop:   Termination{MaxIterations: 10},
		Bounds: []Bound{{Lower: -1, Upper: 1}, {Lower: -1, Upper: 1}, {Lower: -1, Upper: 1}},
	}
	s, _ := p.New(nil)
	r := s.Fit([]float64{0, 0, 0}, s.Init())

	switch {
	case r.Status != ConvGradProgNorm:
		t.Fatalf("TestStationaryStart: Unexpected Status %v", r.Status)
	case r.NumIter != 0 || evals != 1:
		t.Fatal("TestStationaryStart: Should Stop At Origin")
	}
}

func TestEvalPanic(t *testing.T) {

	calls := 0
	eval := func(x []float64, g []float64) (f float64) {
		calls++
		if calls > 1 {
			panic("halt")
		}
		g[0] = 2 * (x[0] - 3)
		return (x[0] - 3) * (x[0] - 3)
	}

	p := Problem{
		N:      1,
		Eval:   eval,
		Stop:   Termination{MaxIterations: 100},
		Bounds: []Bound{{Lower: -1, Upper: 1}},
	}
	s, _ := p.New(nil)
	r := s.Fit([]float64{-1}, s.Init())

	switch {
	case r.OK:
		t.Fatal("TestEvalPanic: Should Not Converge")
	case r.Status != HaltEvalPanic:
		t.Fatalf("TestEvalPanic: Unexpected Status %v", r.Status)
	case r.X[0] < -1 || r.X[0] > 1:
		t.Fatal("TestEvalPanic: Infeasible Result")
	case r.F > 16:
		t.Fatal("TestEvalPanic: Best Iterate Lost")
	}
}

func TestProblemValidation(t *testing.T) {

	eval := func(x []float64, g []float64) float64 { return 0 }

	tests := []Problem{
		{N: 0, Eval: eval, Stop: Termination{MaxIterations: 1}},
		{N: 1, Stop: Termination{MaxIterations: 1}},
		{N: 1, Eval: eval},
		{N: 1, Eval: eval, Stop: Termination{MaxIterations: 1, ProjGradTolerance: -1}},
		{N: 2, Eval: eval, Stop: Termination{MaxIterations: 1}, Bounds: []Bound{{Lower: 0, Upper: 1}}},
		{N: 1, Eval: eval, Stop: Termination{MaxIterations: 1}, Bounds: []Bound{{Lower: 1, Upper: 0}}},
	}

	for i, p := range tests {
		if _, err := p.New(nil); err == nil {
			t.Fatalf("TestProblemValidation: case %d accepted", i)
		}
	}
}
