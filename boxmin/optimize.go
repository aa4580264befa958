// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxmin

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
)

// LogLevel controls the frequency and type of logger output
type LogLevel int

const (
	// LogNoop no output is generated (level < 0)
	LogNoop LogLevel = -1
	// LogLast print only one line at the last iteration
	LogLast LogLevel = 0
	// LogEval print also f and |proj g| every `level` iterations for any (0 < level < 99)
	LogEval LogLevel = 1
	// LogTrace print details of every iteration except n-vectors
	LogTrace LogLevel = 99
	// LogVerbose print details of every iteration including x and g (level > 100)
	LogVerbose LogLevel = 101
)

// Logger handles logging output for the optimizer.
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

// Bound represents the bounds for an optimization variable.
// A NaN side is treated as absent.
type Bound struct {
	hint         bndHint
	Lower, Upper float64
}

// Evaluation is a function type for evaluating the objective function and gradient.
type Evaluation func(x []float64, g []float64) (f float64)

// Termination specifies the stopping criteria for the optimization algorithm.
type Termination struct {
	// The iteration stop when the number of iteration exceeds limit.
	MaxIterations int
	// The iteration stop when the total number of function and gradient evaluation exceeds limit.
	MaxEvaluations int
	// The iteration will stop when the projected gradient satisfied:
	//   ‖ P(x - g) - x ‖∞ ≤ 𝚙𝚐𝚝𝚘𝚕
	ProjGradTolerance float64
	// The iteration will stop when the accepted step satisfied:
	//   ‖ xₖ₊₁ - xₖ ‖∞ ≤ 𝚡𝚝𝚘𝚕
	StepTolerance float64
}

// Problem specifies the problem for the projected gradient optimizer.
type Problem struct {
	N      int         // The problem dimension
	M      int         // The nonmonotone memory (default 10)
	Eval   Evaluation  // Objective function and gradient
	Stop   Termination // Stop condition
	Bounds []Bound     // Optional bounds
}

// New creates a new optimizer for given problem.
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

	n, m := p.N, p.M
	eval, stop := p.Eval, p.Stop
	bounds := slices.Clone(p.Bounds)

	if m == 0 {
		m = defaultMemory
	}

	if bounds == nil {
		bounds = make([]Bound, n)
		for i := range bounds {
			bounds[i].Upper = math.NaN()
			bounds[i].Lower = math.NaN()
		}
	}

	stop.MaxEvaluations = max(stop.MaxEvaluations, 0)
	if stop.MaxEvaluations == 0 {
		stop.MaxEvaluations = math.MaxInt
	}

	switch {
	case n <= 0:
		err = errors.New("problem dimension must greater than 0")
	case m < 0:
		err = errors.New("nonmonotone memory must not less than 0")
	case eval == nil:
		err = errors.New("evaluation target is required")
	case stop.MaxIterations <= 0:
		err = errors.New("max iteration must greater than 1")
	case stop.ProjGradTolerance < zero:
		err = errors.New("gradient projection tolerance must not less than 0")
	case stop.StepTolerance < zero:
		err = errors.New("step tolerance must not less than 0")
	case len(bounds) != n:
		err = errors.New("bounds size must equal to n")
	}

	for k, b := range bounds {
		l, u := !math.IsNaN(b.Lower), !math.IsNaN(b.Upper)
		if l && u && b.Lower > b.Upper {
			err = fmt.Errorf("bound range at %d has no feasible solution", k)
			break
		}
		switch {
		case l && u:
			bounds[k].hint = bndBoth
		case l:
			bounds[k].hint = bndLow
		case u:
			bounds[k].hint = bndUp
		default:
			bounds[k].hint = bndNo
		}
	}

	if err != nil {
		return
	}

	optimizer = &Optimizer{
		iterSpec{
			n: n, m: m,
			stop:   stop,
			eval:   eval,
			bounds: bounds,
			logger: *logger,
		},
	}
	return
}

// Optimizer implements the spectral projected gradient method
// with a nonmonotone line search along the feasible direction.
type Optimizer struct {
	iterSpec
}

// Workspace contains the state and context of the optimization process.
type Workspace struct {
	n, m int
	iterCtx
}

// Result contains the final result of the optimization process.
// X is the best feasible iterate seen, not necessarily the last one.
type Result struct {
	OK      bool      // Whether the optimization was converged.
	F       float64   // Final function value.
	X, G    []float64 // Final solution and gradient.
	Summary           // Optimization summary.
}

// Summary contains a summary of the optimization process.
type Summary struct {
	Status  IterTask // Final task status after optimization.
	NumIter int      // Number of iterations performed.
	NumEval int      // Number of function and gradient evaluations performed.
}

// Init allocate the workspace for the optimizer.
// To avoid race conditions, separate workspaces need to be created for each goroutine.
// But multiple workspaces could share one optimizer.
func (o *Optimizer) Init() *Workspace {
	w := new(Workspace)
	w.n, w.m = o.n, o.m
	w.init(w.n, w.m)
	return w
}

// Fit runs the optimization process using the initial guess x and workspace w.
// An infeasible x is projected onto the bounds first.
func (o *Optimizer) Fit(x []float64, w *Workspace) *Result {

	if len(x) != o.n {
		panic("initial x dimension not match spec")
	}

	if w.n != o.n || w.m != o.m {
		panic("workspace dimension not match spec")
	}

	loc := iterLoc{
		x: slices.Clone(x),
		g: make([]float64, len(x)),
	}

	driver := iterDriver{
		optimizer: o,
		workspace: w,
		location:  &loc,
	}

	res := driver.mainLoop()
	return &Result{
		OK: res&iterConv > 0,
		X:  slices.Clone(w.best.x), F: w.best.f, G: slices.Clone(w.best.g),
		Summary: Summary{
			Status:  res,
			NumIter: w.iter,
			NumEval: w.totalEval,
		},
	}
}
