// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package boxmin

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver struct {
	optimizer *Optimizer
	workspace *Workspace
	location  *iterLoc
}

// evaluate computes f and g at loc.x, turning a panic of the callback into HaltEvalPanic.
func (d *iterDriver) evaluate(loc *iterLoc) (task IterTask) {
	o, w := d.optimizer, d.workspace
	if w.totalEval >= o.stop.MaxEvaluations {
		return OverEvalLimit
	}
	defer func() {
		if r := recover(); r != nil {
			task = HaltEvalPanic
		}
	}()
	loc.f = o.eval(loc.x, loc.g)
	w.totalEval++
	return iterLoop
}

// mainLoop runs the spectral projected gradient iteration:
//
//	dₖ = P(xₖ - λₖgₖ) - xₖ
//	xₖ₊₁ = xₖ + ɑₖdₖ  with ɑₖ from a nonmonotone backtracking
//	λₖ₊₁ = sₖᵀsₖ / sₖᵀyₖ
func (d *iterDriver) mainLoop() (task IterTask) {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx
	log := spec.logger

	ctx.clear()

	if projectX(loc.x, spec.bounds) && log.enable(LogLast) {
		log.log("The initial X is infeasible. Restart with its projection.\n")
	}

	if task = d.evaluate(loc); task != iterLoop {
		loc.f = math.NaN()
		loc.copyTo(&ctx.best)
		d.printExit(task)
		return
	}

	loc.copyTo(&ctx.best)
	ctx.pushF(loc.f, spec.m)
	ctx.sbgNrm = projGradNorm(loc, spec.bounds)
	if ctx.sbgNrm > zero {
		ctx.lambda = clampLambda(one / ctx.sbgNrm)
	}

	if log.enable(LogEval) {
		log.log("At iterate %5d    f= %12.5e    |proj g|= %12.5e\n", ctx.iter, loc.f, ctx.sbgNrm)
	}

	s := make([]float64, spec.n)
	y := make([]float64, spec.n)

	for task == iterLoop {

		if ctx.sbgNrm <= spec.stop.ProjGradTolerance {
			task = ConvGradProgNorm
			break
		}
		if ctx.iter >= spec.stop.MaxIterations {
			task = OverIterLimit
			break
		}

		projDirection(loc, ctx.lambda, spec.bounds, ctx.d)
		gd := floats.Dot(loc.g, ctx.d)
		if gd >= zero {
			// only happens when rounding dominates the projected gradient
			task = StopAbnormalSearch
			break
		}

		if task = d.searchStep(gd); task != iterLoop {
			break
		}

		trial := &ctx.trial
		floats.SubTo(s, trial.x, loc.x)
		floats.SubTo(y, trial.g, loc.g)
		sts, sty := floats.Dot(s, s), floats.Dot(s, y)

		trial.copyTo(loc)
		ctx.iter++
		ctx.stpNrm = floats.Norm(s, math.Inf(1))
		ctx.sbgNrm = projGradNorm(loc, spec.bounds)
		ctx.pushF(loc.f, spec.m)

		if loc.f < ctx.best.f {
			loc.copyTo(&ctx.best)
		}

		if sty <= zero {
			ctx.lambda = lambdaMax
		} else {
			ctx.lambda = clampLambda(sts / sty)
		}

		d.printIter()

		if ctx.stpNrm <= spec.stop.StepTolerance {
			task = ConvStepSize
		}
	}

	d.printExit(task)
	return
}

// searchStep backtracks along dₖ until the nonmonotone Armijo condition holds:
//
//	f(xₖ + ɑdₖ) ≤ 𝚖𝚊𝚡{fₖ₋ⱼ : 0 ≤ j < m} + γɑgₖᵀdₖ
//
// The trial step is shrunk by a safeguarded quadratic interpolation.
func (d *iterDriver) searchStep(gd float64) IterTask {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	trial := &ctx.trial
	fMax := ctx.maxF()
	dNrm := floats.Norm(ctx.d, math.Inf(1))
	xNrm := math.Max(one, floats.Norm(loc.x, math.Inf(1)))

	ctx.numBack = 0
	alpha := one
	for {
		floats.AddScaledTo(trial.x, loc.x, alpha, ctx.d)
		projectX(trial.x, spec.bounds)

		if task := d.evaluate(trial); task != iterLoop {
			return task
		}
		if trial.f <= fMax+searchGamma*alpha*gd {
			return iterLoop
		}

		ctx.numBack++
		aTmp := -half * alpha * alpha * gd / (trial.f - loc.f - alpha*gd)
		if aTmp >= searchSigma1 && aTmp <= searchSigma2*alpha {
			alpha = aTmp
		} else {
			alpha *= half
		}

		if alpha*dNrm <= searchMinStep*xNrm {
			if log := spec.logger; log.enable(LogLast) {
				log.log("Line search cannot locate an adequate point after %d backtracking steps.\n", ctx.numBack)
			}
			return StopAbnormalSearch
		}
	}
}

func clampLambda(lambda float64) float64 {
	return math.Min(lambdaMax, math.Max(lambdaMin, lambda))
}

// printIter logs the iteration information.
func (d *iterDriver) printIter() {

	loc := d.location
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := spec.logger
	if log.enable(LogTrace) {
		log.log("\n\nITERATION %5d\n", ctx.iter)
		log.log("Spectral step = %.3e  backtracks = %d  |step| = %.3e\n", ctx.lambda, ctx.numBack, ctx.stpNrm)
		log.log("At iterate %5d    f= %12.5e    |proj g|= %12.5e\n", ctx.iter, loc.f, ctx.sbgNrm)
		if log.enable(LogVerbose) {
			log.log("\n X = ")
			for i := 0; i < spec.n; i++ {
				log.log("%.2e ", loc.x[i])
				if (i+1)%6 == 0 {
					log.log("\n     ")
				}
			}
			log.log("\n G = ")
			for i := 0; i < spec.n; i++ {
				log.log("%.2e ", loc.g[i])
				if (i+1)%6 == 0 {
					log.log("\n     ")
				}
			}
			log.log("\n")
		}
	} else if log.enable(LogEval) {
		if ctx.iter%int(log.Level) == 0 {
			log.log("At iterate %5d    f= %12.5e    |proj g|= %12.5e\n", ctx.iter, loc.f, ctx.sbgNrm)
		}
	}

	if log.enable(LogEval) {
		log.out("%4d %5d %4d %10.3e %10.3e %10.3e\n",
			ctx.iter, ctx.totalEval, ctx.numBack, ctx.stpNrm, ctx.sbgNrm, loc.f)
	}
}

// printExit logs the final statistics and exit conditions of the optimization process.
func (d *iterDriver) printExit(task IterTask) {

	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	log := spec.logger
	if !log.enable(LogLast) {
		return
	}

	log.log("\n   N      Tit      Tnf    Projg         F\n")
	log.log("%5d %6d %7d %6.2e %9.5e\n", spec.n, ctx.iter, ctx.totalEval, ctx.sbgNrm, ctx.best.f)
	log.log("\n%s\n", task)
}
