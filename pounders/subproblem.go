// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/dfols/boxmin"
)

// CalcRes aggregates the residual models into the Gauss-Newton model of ½‖ 𝐫 ‖²:
//
//	g = Jᵀ𝐫ₘᵢₙ
//	H = JᵀJ + ∑ₖ 𝐫ₘᵢₙ,ₖ Hₖ
//
// A nil Hₖ contributes no curvature.
func CalcRes(jac *mat.Dense, fmin []float64, hess []*mat.SymDense) (*mat.VecDense, *mat.SymDense) {

	nobs, n := jac.Dims()
	if len(fmin) != nobs || len(hess) != nobs {
		panic("residual dimension not match jacobian")
	}

	jacRes := mat.NewVecDense(n, nil)
	jacRes.MulVec(jac.T(), mat.NewVecDense(nobs, fmin))

	hessRes := mat.NewSymDense(n, nil)
	hessRes.SymOuterK(1, jac.T())

	var scaled mat.SymDense
	for k, hk := range hess {
		if hk == nil {
			continue
		}
		scaled.ScaleSym(fmin[k], hk)
		hessRes.AddSym(hessRes, &scaled)
	}
	return jacRes, hessRes
}

// Step is the solution of the trust-region subproblem in scaled coordinates.
type Step struct {
	S       []float64      // Best step in [-1,1]ⁿ.
	Value   float64        // Model change gᵀs + ½sᵀHs, never positive.
	OK      bool           // Whether the minimizer converged.
	Summary boxmin.Summary // Minimizer summary.
}

// SolveSubproblem minimizes the aggregated model over the unit box:
//
//	𝚖𝚒𝚗 ½sᵀHs + gᵀs  subject to  -1 ≤ sᵢ ≤ 1
//
// starting from the origin with the analytic gradient Hs + g.
// The gradient tolerance is relative to gnorm, the norm of the model gradient.
// A minimizer stopping on its budget is not an error: its best iterate is returned.
func (o *Optimizer) SolveSubproblem(jacRes *mat.VecDense, hessRes *mat.SymDense, gnorm float64) (*Step, error) {

	n := o.n
	if jacRes.Len() != n || hessRes.SymmetricDim() != n {
		panic("model dimension not match problem")
	}

	eval := func(s []float64, g []float64) float64 {
		gv := mat.NewVecDense(n, g)
		gv.MulVec(hessRes, mat.NewVecDense(n, s))
		f := 0.5 * floats.Dot(s, g)
		gv.AddVec(gv, jacRes)
		return f + mat.Dot(jacRes, mat.NewVecDense(n, s))
	}

	bounds := make([]boxmin.Bound, n)
	for i := range bounds {
		bounds[i].Lower, bounds[i].Upper = -1, 1
	}

	p := boxmin.Problem{
		N:    n,
		Eval: eval,
		Stop: boxmin.Termination{
			MaxIterations:     o.sub.MaxIterations,
			ProjGradTolerance: o.sub.GradTolerance * gnorm,
			StepTolerance:     o.sub.StepTolerance,
		},
		Bounds: bounds,
	}

	var logger *boxmin.Logger
	if o.logger.enable(LogVerbose) {
		logger = &boxmin.Logger{Level: boxmin.LogEval, Msg: o.logger.Msg, Out: o.logger.Out}
	}

	solver, err := p.New(logger)
	if err != nil {
		return nil, err
	}
	r := solver.Fit(make([]float64, n), solver.Init())

	if log := o.logger; log.enable(LogLast) {
		log.log("Subproblem %v after %d iterations, model change %.6e\n", r.Status, r.NumIter, r.F)
	}

	return &Step{S: r.X, Value: r.F, OK: r.OK, Summary: r.Summary}, nil
}
