// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxmin

const (
	zero = 0.0
	one  = 1.0
	half = 0.5
)

const (
	defaultMemory = 10

	// safeguards of the spectral step length λₖ
	lambdaMin = 1.0e-30
	lambdaMax = 1.0e+30

	// sufficient decrease factor of the nonmonotone Armijo condition
	searchGamma = 1.0e-4
	// safeguards of the quadratic interpolation step
	searchSigma1 = 0.1
	searchSigma2 = 0.9
	// backtracking gives up below this relative step
	searchMinStep = 1.0e-20
)

type bndHint int

const (
	bndNo   bndHint = 0 // no bound
	bndLow  bndHint = 1 // lower bound only
	bndBoth bndHint = 2 // lower and upper bound
	bndUp   bndHint = 3 // upper bound only
)

// IterTask reports the reason of termination.
type IterTask int

const (
	iterLoop IterTask = 0
	iterConv IterTask = 1 << (4 + iota)
	iterStop
	iterHalt
)

const (
	// ConvGradProgNorm the projected gradient is within tolerance.
	ConvGradProgNorm = iterConv | (1 + iota)
	// ConvStepSize the accepted step is within tolerance.
	ConvStepSize
)

const (
	// OverIterLimit the number of iteration exceeds limit.
	OverIterLimit = iterStop | (1 + iota)
	// OverEvalLimit the number of evaluation exceeds limit.
	OverEvalLimit
	// StopAbnormalSearch the line search can not find a sufficient decrease.
	StopAbnormalSearch
)

const (
	// HaltEvalPanic the evaluation callback panicked.
	HaltEvalPanic = iterHalt | (1 + iota)
)

func (t IterTask) String() string {
	switch t {
	case ConvGradProgNorm:
		return "CONVERGENCE: NORM_OF_PROJECTED_GRADIENT_<=_PGTOL"
	case ConvStepSize:
		return "CONVERGENCE: NORM_OF_STEP_<=_XTOL"
	case OverIterLimit:
		return "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case OverEvalLimit:
		return "STOP: TOTAL NO. of f AND g EVALUATIONS EXCEEDS LIMIT"
	case StopAbnormalSearch:
		return "ABNORMAL_TERMINATION_IN_LNSRCH"
	case HaltEvalPanic:
		return "STOP: CALLBACK REQUESTED HALT"
	default:
		return "UNKNOWN TASK"
	}
}

type iterSpec struct {
	n, m   int
	stop   Termination
	eval   Evaluation
	bounds []Bound
	logger Logger
}

type iterLoc struct {
	f float64
	x []float64 // n
	g []float64 // n
}

func (l *iterLoc) copyTo(dst *iterLoc) {
	dst.f = l.f
	copy(dst.x, l.x)
	copy(dst.g, l.g)
}

type iterCtx struct {
	iter      int
	totalEval int
	// spectral step length λₖ = sᵀs / sᵀy
	lambda float64
	// infinity norm of the projected gradient
	sbgNrm float64
	// infinity norm of the last accepted step
	stpNrm float64
	// number of backtracking in the last line search
	numBack int
	// the last m function values for the nonmonotone condition
	fHist []float64 // m
	// search direction dₖ = P(xₖ - λₖgₖ) - xₖ
	d []float64 // n
	// trial location
	trial iterLoc
	// best location seen
	best iterLoc
}

func (c *iterCtx) init(n, m int) {
	c.fHist = make([]float64, 0, max(m, 1))
	c.d = make([]float64, n)
	c.trial = iterLoc{x: make([]float64, n), g: make([]float64, n)}
	c.best = iterLoc{x: make([]float64, n), g: make([]float64, n)}
}

func (c *iterCtx) clear() {
	c.iter = 0
	c.totalEval = 0
	c.lambda = one
	c.sbgNrm = zero
	c.stpNrm = zero
	c.numBack = 0
	c.fHist = c.fHist[:0]
}

// pushF records fₖ in the sliding window of size m.
func (c *iterCtx) pushF(f float64, m int) {
	if m <= 1 {
		c.fHist = append(c.fHist[:0], f)
		return
	}
	if len(c.fHist) == m {
		copy(c.fHist, c.fHist[1:])
		c.fHist = c.fHist[:m-1]
	}
	c.fHist = append(c.fHist, f)
}

func (c *iterCtx) maxF() float64 {
	fMax := c.fHist[0]
	for _, f := range c.fHist[1:] {
		fMax = max(fMax, f)
	}
	return fMax
}
