// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pounders builds the local models of a derivative-free trust-region
// method for nonlinear least squares 𝚖𝚒𝚗 ½‖𝐫(𝐱)‖².
//
// Each outer iteration selects a well-poised interpolation set around the current
// best point, fits a quadratic model with least Frobenius norm Hessian to every residual
// component, aggregates them into a Gauss-Newton model and solves a box-constrained
// subproblem for the next step. The outer driver owns the radius and step acceptance.
//
// # Reference:
//
//   - S.M. Wild, 'POUNDERS in TAO: Solving derivative-free nonlinear least-squares problems with POUNDERS' (2017)
//   - S.M. Wild, R.G. Regis, C.A. Shoemaker, 'ORBIT: Optimization by radial basis function interpolation in trust-regions' (2008)
//   - M.J.D. Powell, 'Least Frobenius norm updating of quadratic models that satisfy interpolation conditions' (2004)
package pounders

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only the summary of each operation
	LogLast LogLevel = 0
	// LogEval print also every criterion evaluation
	LogEval LogLevel = 1
	// LogTrace print every accept/reject decision
	LogTrace LogLevel = 99
	// LogVerbose print also the subproblem iterations
	LogVerbose LogLevel = 101
)

// Logger handles logging output for the model builder.
// Note the writers must be thread-safe.
type Logger struct {
	Level LogLevel
	Msg   io.Writer // Writer to output log messages.
	Out   io.Writer // Writer for output data.
}

func (l *Logger) enable(level LogLevel) bool {
	return l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}

func (l *Logger) out(format string, a ...any) {
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Out, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Out, format)
	}
}

// Criterion evaluates the residual vector 𝐫(𝐱) : ℝⁿ → ℝᵐ.
// It must be deterministic and is assumed to be expensive.
type Criterion func(x []float64) (residual []float64)

// SubproblemTol specifies the tolerances of the box-constrained subproblem.
type SubproblemTol struct {
	// The minimizer stop when the accepted step satisfied ‖ sₖ₊₁ - sₖ ‖∞ ≤ 𝚡𝚝𝚘𝚕 (default 1e-10).
	StepTolerance float64
	// The minimizer stop when ‖ 𝚙𝚛𝚘𝚓 g ‖∞ ≤ 𝚐𝚝𝚘𝚕 × ‖ ∇m(0) ‖₂ (default 1e-8).
	GradTolerance float64
	// The maximum number of minimizer iterations (default 1000).
	MaxIterations int
}

// Problem specifies the least squares problem and the model building parameters.
type Problem struct {
	N         int       // The number of parameters
	NObs      int       // The number of residual components
	Criterion Criterion // Residual function

	// History capacity (default 1000).
	HistoryCap int
	// Scaled radius of the points usable for the affine basis (default √n).
	C float64
	// Scaled radius of the points usable for the quadratic terms (default 𝚖𝚊𝚡(10, √n)).
	C2 float64
	// Pivot threshold for a new affine direction (default 1e-5).
	Theta1 float64
	// Singular value threshold for an additional quadratic point (default 1e-4).
	Theta2 float64
	// Maximum number of interpolation points, n+1 ≤ 𝚖𝚊𝚡𝚒𝚗𝚝𝚎𝚛𝚙 ≤ (n+1)(n+2)/2 (default 2n+1).
	MaxInterp int
	// Evaluate every missing direction at once instead of the best scoring one.
	AddAllPoints bool

	Subproblem SubproblemTol
}

const (
	defaultHistoryCap = 1000
	defaultTheta1     = 1e-5
	defaultTheta2     = 1e-4
	defaultC2         = 10.0
	defaultSubStepTol = 1e-10
	defaultSubGradTol = 1e-8
	defaultSubIter    = 1000
)

// New creates the model builder for given problem.
func (p *Problem) New(logger *Logger) (optimizer *Optimizer, err error) {

	if logger == nil {
		logger = new(Logger)
		logger.Level = LogNoop
	}
	if logger.Msg == nil {
		logger.Msg = io.Discard
	}
	if logger.Out == nil {
		logger.Out = io.Discard
	}

	n, nobs := p.N, p.NObs
	c, c2 := p.C, p.C2
	theta1, theta2 := p.Theta1, p.Theta2
	maxInterp, histCap := p.MaxInterp, p.HistoryCap
	sub := p.Subproblem

	sqrtN := math.Sqrt(float64(n))
	if c == 0 {
		c = sqrtN
	}
	if c2 == 0 {
		c2 = math.Max(defaultC2, sqrtN)
	}
	if theta1 == 0 {
		theta1 = defaultTheta1
	}
	if theta2 == 0 {
		theta2 = defaultTheta2
	}
	if maxInterp == 0 {
		maxInterp = 2*n + 1
	}
	if histCap == 0 {
		histCap = defaultHistoryCap
	}
	if sub.StepTolerance == 0 {
		sub.StepTolerance = defaultSubStepTol
	}
	if sub.GradTolerance == 0 {
		sub.GradTolerance = defaultSubGradTol
	}
	if sub.MaxIterations == 0 {
		sub.MaxIterations = defaultSubIter
	}

	switch {
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case nobs <= 0:
		err = errors.New("residual dimension must greater than 0")
	case p.Criterion == nil:
		err = errors.New("criterion is required")
	case histCap <= n:
		err = errors.New("history capacity must greater than n")
	case !(c > 0) || !(c2 > 0):
		err = errors.New("acceptance radius must greater than 0")
	case !(theta1 > 0) || !(theta2 > 0):
		err = errors.New("pivot threshold must greater than 0")
	case maxInterp < n+1 || maxInterp > (n+1)*(n+2)/2:
		err = fmt.Errorf("interpolation points must within [%d, %d]", n+1, (n+1)*(n+2)/2)
	case sub.StepTolerance < 0 || sub.GradTolerance < 0:
		err = errors.New("subproblem tolerance must not less than 0")
	case sub.MaxIterations < 0:
		err = errors.New("subproblem iteration must greater than 0")
	}

	if err != nil {
		return
	}

	optimizer = &Optimizer{
		n: n, nobs: nobs,
		criterion: p.Criterion,
		histCap:   histCap,
		c:         c, c2: c2,
		theta1: theta1, theta2: theta2,
		maxInterp: maxInterp,
		addAll:    p.AddAllPoints,
		sub:       sub,
		logger:    *logger,
	}
	return
}

// Optimizer builds trust-region models for one least squares problem.
// It holds no mutable state and could be shared by multiple workspaces.
type Optimizer struct {
	n, nobs   int
	criterion Criterion
	histCap   int
	c, c2     float64
	theta1    float64
	theta2    float64
	maxInterp int
	addAll    bool
	sub       SubproblemTol
	logger    Logger
}

// Workspace holds the working state of one model building pass.
// It is recomputed from scratch in every outer iteration.
type Workspace struct {
	n, maxInterp int

	// Q is the n×n basis matrix, columns [0, len(Indices)) are the accepted scaled directions
	// until the affine basis is complete.
	Q *mat.Dense
	// QIsIdentity is set while no direction has been accepted and Q is still Iₙ.
	QIsIdentity bool
	// Indices are the history indices of the model points.
	// Before AddMorePoints it holds the n direction points,
	// afterwards the center followed by the directions and the extra quadratic points.
	Indices []int

	// M holds the affine rows [1, dᵢ], N the quadratic rows φ(dᵢ) of every model point.
	M, N *mat.Dense
	// Z spans the null space of Mᵀ, nil when there is no extra quadratic point.
	Z *mat.Dense
	// L = NᵀZ, or the identity leading block when there is no extra quadratic point.
	L *mat.Dense
}

// Init allocate the workspace for the model builder.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
func (o *Optimizer) Init() *Workspace {
	w := &Workspace{n: o.n, maxInterp: o.maxInterp}
	w.Q = mat.NewDense(o.n, o.n, nil)
	w.Indices = make([]int, 0, o.maxInterp)
	w.Reset()
	return w
}

// Reset restores the identity basis and drops all model points.
func (w *Workspace) Reset() {
	w.Q.Zero()
	for i := 0; i < w.n; i++ {
		w.Q.Set(i, i, 1)
	}
	w.QIsIdentity = true
	w.Indices = w.Indices[:0]
	w.M, w.N, w.Z, w.L = nil, nil, nil, nil
}

// MPoints returns the current number of model points.
func (w *Workspace) MPoints() int {
	return len(w.Indices)
}

// NewHistory allocate an empty history sized for the problem.
func (o *Optimizer) NewHistory() *History {
	return NewHistory(o.n, o.nobs, o.histCap)
}

func (o *Optimizer) checkWorkspace(h *History, w *Workspace) {
	if w.n != o.n || w.maxInterp != o.maxInterp {
		panic("workspace dimension not match problem")
	}
	if h.n != o.n || h.nobs != o.nobs {
		panic("history dimension not match problem")
	}
}
