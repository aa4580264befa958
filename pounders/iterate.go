// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pounders

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is the local model of one outer iteration in scaled coordinates s = (𝐱 - 𝐱ₘᵢₙ) / Δ.
type Model struct {
	Center []float64 // 𝐫(𝐱ₘᵢₙ)
	Models
	JacRes  *mat.VecDense // gradient of the aggregated model
	HessRes *mat.SymDense // Hessian of the aggregated model
}

// Predict returns the model change gᵀs + ½sᵀHs of a scaled step.
func (m *Model) Predict(s []float64) float64 {
	n := m.JacRes.Len()
	sv := mat.NewVecDense(n, s)
	return mat.Dot(m.JacRes, sv) + 0.5*mat.Inner(sv, m.HessRes, sv)
}

// GradNorm returns ‖ g ‖₂ of the aggregated model.
func (m *Model) GradNorm() float64 {
	return mat.Norm(m.JacRes, 2)
}

// Proposal is the outcome of one model building pass.
type Proposal struct {
	X           []float64 // Candidate 𝐱ₘᵢₙ + ΔS, not evaluated yet.
	Step        *Step     // Subproblem solution.
	Model       *Model    // Model the step was computed from.
	Evaluations int       // Criterion evaluations spent on the model.
}

// Iterate runs one model building pass around the history point minIndex with radius delta:
// nearby point selection, model improvement until the affine basis is complete,
// quadratic extension, fitting, aggregation and the subproblem.
//
// prev is the model of the previous iteration used to orient new directions, nil at the start.
// The proposal is not evaluated and delta is left untouched: acceptance belongs to the caller.
func (o *Optimizer) Iterate(h *History, w *Workspace, minIndex int, delta float64, prev *Model) (*Proposal, error) {

	o.checkWorkspace(h, w)
	if minIndex < 0 || minIndex >= h.Len() {
		panic("center index out of history")
	}
	if !(delta > 0) {
		panic("trust-region radius must greater than 0")
	}

	w.Reset()
	o.FindNearbyPoints(h, w, minIndex, delta)

	evals := 0
	for len(w.Indices) < o.n {
		k, err := o.ImproveModel(h, w, minIndex, delta, prev, o.addAll)
		evals += k
		if err != nil {
			return nil, err
		}
	}

	o.AddMorePoints(h, w, minIndex, delta)

	models, err := o.FitModels(h, w, minIndex)
	if err != nil {
		return nil, err
	}

	center := slices.Clone(h.Residual(minIndex))
	jacRes, hessRes := CalcRes(models.Jac, center, models.Hess)
	model := &Model{
		Center:  center,
		Models:  *models,
		JacRes:  jacRes,
		HessRes: hessRes,
	}

	step, err := o.SolveSubproblem(jacRes, hessRes, model.GradNorm())
	if err != nil {
		return nil, err
	}

	x := make([]float64, o.n)
	floats.AddScaledTo(x, h.X(minIndex), delta, step.S)

	return &Proposal{
		X:           x,
		Step:        step,
		Model:       model,
		Evaluations: evals,
	}, nil
}
