package sparse

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Stop conditions reported by LSMR, following the usual
// istop convention for the algorithm.
const (
	// StopX0 means b = 0, so x = 0 is the exact solution.
	StopX0 = 0
	// StopResidualSmall means ||Ax-b|| is small enough per btol/atol.
	StopResidualSmall = 1
	// StopLeastSquares means ||A'(Ax-b)|| is small enough per atol.
	StopLeastSquares = 2
	// StopCondLim means the condition number estimate exceeded conlim.
	StopCondLim = 3
	// StopResidualEps, StopLeastSquaresEps and StopCondEps
	// are the machine-precision analogues of the above.
	StopResidualEps     = 4
	StopLeastSquaresEps = 5
	StopCondEps         = 6
	// StopIterLim means the iteration cap was reached. The
	// partial solution is still usable.
	StopIterLim = 7
)

// A Result holds the solution of a damped least-squares
// solve together with the solver's estimates of the
// residual, operator and solution norms.
type Result struct {
	X     []float64
	IStop int
	Iters int

	NormR  float64
	NormAR float64
	NormA  float64
	CondA  float64
	NormX  float64
}

// Converged reports whether the solver stopped for any
// reason other than the iteration cap. Hitting the cap is
// not an error: callers accept the partial solution.
func (r *Result) Converged() bool {
	return r.IStop != StopIterLim
}

// LSMR solves min ||Ax - b||^2 + damp^2 ||x||^2 using the
// iterative algorithm of Fong and Saunders, which applies
// MINRES to the normal equations without ever forming
// them.
//
// atol and btol control the relative residual tolerances,
// conlim bounds the condition number estimate, and maxIter
// caps the iteration count (0 means min(nrows, ncols)).
func LSMR(a *Matrix, b []float64, damp, atol, btol, conlim float64, maxIter int) *Result {
	nrows, ncols := a.Dims()
	if len(b) != nrows {
		panic("right-hand side length does not match matrix")
	}
	if maxIter <= 0 {
		maxIter = nrows
		if ncols < nrows {
			maxIter = ncols
		}
	}

	u := make([]float64, nrows)
	copy(u, b)
	normb := floats.Norm(u, 2)

	x := make([]float64, ncols)
	v := make([]float64, ncols)

	beta := normb
	var alpha float64
	if beta > 0 {
		floats.Scale(1/beta, u)
		v = a.MulTransVec(u)
		alpha = floats.Norm(v, 2)
	}
	if alpha > 0 {
		floats.Scale(1/alpha, v)
	}

	zetabar := alpha * beta
	alphabar := alpha
	rho, rhobar, cbar, sbar := 1.0, 1.0, 1.0, 0.0

	h := make([]float64, ncols)
	copy(h, v)
	hbar := make([]float64, ncols)

	// Variables for the residual-norm estimates.
	betadd := beta
	betad := 0.0
	rhodold := 1.0
	tautildeold := 0.0
	thetatilde := 0.0
	zeta := 0.0
	d := 0.0

	normA2 := alpha * alpha
	maxrbar := 0.0
	minrbar := 1e+100

	normA := math.Sqrt(normA2)
	condA := 1.0
	normr := beta
	normar := alpha * beta
	normx := 0.0

	var ctol float64
	if conlim > 0 {
		ctol = 1 / conlim
	}

	result := func(istop, itn int) *Result {
		return &Result{
			X:      x,
			IStop:  istop,
			Iters:  itn,
			NormR:  normr,
			NormAR: normar,
			NormA:  normA,
			CondA:  condA,
			NormX:  normx,
		}
	}

	if normar == 0 || normb == 0 {
		// The zero vector solves the problem exactly.
		return result(StopX0, 0)
	}

	istop := 0
	itn := 0
	for itn < maxIter {
		itn++

		// Continue the Golub-Kahan bidiagonalization.
		av := a.MulVec(v)
		for i := range u {
			u[i] = av[i] - alpha*u[i]
		}
		beta = floats.Norm(u, 2)
		if beta > 0 {
			floats.Scale(1/beta, u)
			atu := a.MulTransVec(u)
			for i := range v {
				v[i] = atu[i] - beta*v[i]
			}
			alpha = floats.Norm(v, 2)
			if alpha > 0 {
				floats.Scale(1/alpha, v)
			}
		}

		// Construct and apply the rotation eliminating the
		// damping term.
		chat, shat, alphahat := symOrtho(alphabar, damp)

		// Plane rotation turning the bidiagonal system into
		// an upper-bidiagonal one.
		rhoold := rho
		var c, s float64
		c, s, rho = symOrtho(alphahat, beta)
		thetanew := s * alpha
		alphabar = c * alpha

		// Second rotation eliminating the superdiagonal.
		rhobarold := rhobar
		zetaold := zeta
		thetabar := sbar * rho
		rhotemp := cbar * rho
		cbar, sbar, rhobar = symOrtho(cbar*rho, thetanew)
		zeta = cbar * zetabar
		zetabar = -sbar * zetabar

		// Update h, hbar and x.
		hbarScale := thetabar * rho / (rhoold * rhobarold)
		for i := range hbar {
			hbar[i] = h[i] - hbarScale*hbar[i]
		}
		floats.AddScaled(x, zeta/(rho*rhobar), hbar)
		hScale := thetanew / rho
		for i := range h {
			h[i] = v[i] - hScale*h[i]
		}

		// Estimate ||r||, ||A'r||, ||A|| and cond(A).
		betaacute := chat * betadd
		betacheck := -shat * betadd
		betahat := c * betaacute
		betadd = -s * betaacute

		thetatildeold := thetatilde
		ctildeold, stildeold, rhotildeold := symOrtho(rhodold, thetabar)
		thetatilde = stildeold * rhobar
		rhodold = ctildeold * rhobar
		betad = -stildeold*betad + ctildeold*betahat

		tautildeold = (zetaold - thetatildeold*tautildeold) / rhotildeold
		taud := (zeta - thetatilde*tautildeold) / rhodold
		d += betacheck * betacheck
		normr = math.Sqrt(d + (betad-taud)*(betad-taud) + betadd*betadd)

		normA2 += beta * beta
		normA = math.Sqrt(normA2)
		normA2 += alpha * alpha

		maxrbar = math.Max(maxrbar, rhobarold)
		if itn > 1 {
			minrbar = math.Min(minrbar, rhobarold)
		}
		condA = math.Max(maxrbar, rhotemp) / math.Min(minrbar, rhotemp)

		normar = math.Abs(zetabar)
		normx = floats.Norm(x, 2)

		// Stopping tests.
		test1 := normr / normb
		test2 := math.Inf(1)
		if normA*normr != 0 {
			test2 = normar / (normA * normr)
		}
		test3 := 1 / condA
		t1 := test1 / (1 + normA*normx/normb)
		rtol := btol + atol*normA*normx/normb

		if itn >= maxIter {
			istop = StopIterLim
		}
		if 1+test3 <= 1 {
			istop = StopCondEps
		}
		if 1+test2 <= 1 {
			istop = StopLeastSquaresEps
		}
		if 1+t1 <= 1 {
			istop = StopResidualEps
		}
		if test3 <= ctol {
			istop = StopCondLim
		}
		if test2 <= atol {
			istop = StopLeastSquares
		}
		if test1 <= rtol {
			istop = StopResidualSmall
		}
		if istop > 0 {
			break
		}
	}

	return result(istop, itn)
}

// symOrtho computes a stable Givens rotation: c, s and r
// such that [c s; s -c] [a; b] = [r; 0].
func symOrtho(a, b float64) (c, s, r float64) {
	switch {
	case b == 0:
		return math.Copysign(1, a), 0, math.Abs(a)
	case a == 0:
		return 0, math.Copysign(1, b), math.Abs(b)
	case math.Abs(b) > math.Abs(a):
		tau := a / b
		s = math.Copysign(1, b) / math.Sqrt(1+tau*tau)
		c = s * tau
		r = b / s
	default:
		tau := b / a
		c = math.Copysign(1, a) / math.Sqrt(1+tau*tau)
		s = c * tau
		r = a / c
	}
	return c, s, r
}
