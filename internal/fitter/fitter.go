// Public domain.

// Package fitter fits timing model parameters to TOAs by weighted linear
// least squares.
package fitter

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/soniakeys/psrtime/internal/mjd"
	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/param"
	"github.com/soniakeys/psrtime/internal/residuals"
	"github.com/soniakeys/psrtime/internal/toa"
)

var (
	ErrNothingToFit = errors.New("no free parameters")
	ErrZeroError    = errors.New("TOA uncertainty is zero")
	ErrDegenerate   = errors.New("parameter has no effect on residuals")
)

// DefaultThreshold is the chi-square change below which FitTOAs stops.
const DefaultThreshold = 1e-3

// Fitter adjusts the free parameters of Model to fit TOAs.
type Fitter struct {
	TOAs   *toa.TOAs
	Model  *model.TimingModel
	Resids *residuals.Residuals
	Log    *slog.Logger

	// Threshold is the chi-square change that ends FitTOAs.
	Threshold float64

	free []*param.Param
	cov  *mat.SymDense
}

// Result summarizes a fit.
type Result struct {
	Iterations  int
	Converged   bool
	Chi2        float64
	ReducedChi2 float64
	DOF         int
	Free        []string
}

// New returns a fitter for ts and m.  Options configure its residuals.
func New(ts *toa.TOAs, m *model.TimingModel, opts ...residuals.Option) (*Fitter, error) {
	r, err := residuals.New(ts, m, opts...)
	if err != nil {
		return nil, err
	}
	return &Fitter{
		TOAs:      ts,
		Model:     m,
		Resids:    r,
		Log:       r.Log,
		Threshold: DefaultThreshold,
	}, nil
}

// Step runs one least squares iteration.  It updates the free parameters
// and their uncertainties, then the residuals, and returns the new
// chi-square.  If the residuals cannot be updated the parameters are
// restored and the covariance of the previous Step is kept.
//
// Rows of the design matrix are TOAs, columns are free parameters plus an
// offset column when the residual mean is subtracted.  Entries are time
// residual derivatives over TOA uncertainty.  Columns are normalized to
// unit length before solving.
func (f *Fitter) Step() (float64, error) {
	free := f.Model.FreeParams()
	offset := f.Resids.SubtractMean
	nc := len(free)
	if offset {
		nc++
	}
	if len(free) == 0 {
		return 0, ErrNothingToFit
	}
	ts := f.TOAs
	n := ts.Len()
	if n < nc {
		return 0, fmt.Errorf("%d TOAs for %d unknowns", n, nc)
	}
	sigma := ts.Errors()
	for i, s := range sigma {
		if s <= 0 {
			return 0, fmt.Errorf("%w: %s", ErrZeroError, ts.List[i].Name)
		}
	}
	freq, err := f.Model.SpinFreq(ts)
	if err != nil {
		return 0, err
	}

	a := mat.NewDense(n, nc, nil)
	for j, p := range free {
		d, err := f.Model.DPhaseDParam(p.Name, ts)
		if err != nil {
			return 0, err
		}
		for i, x := range d {
			a.Set(i, j, x/freq[i]/sigma[i])
		}
	}
	if offset {
		for i, s := range sigma {
			a.Set(i, nc-1, 1/s)
		}
	}
	b := mat.NewVecDense(n, nil)
	for i, x := range f.Resids.TimeResids() {
		b.SetVec(i, x/sigma[i])
	}

	norm := make([]float64, nc)
	for j := range norm {
		norm[j] = mat.Norm(a.ColView(j), 2)
		if norm[j] == 0 {
			return 0, fmt.Errorf("%w: %s", ErrDegenerate, columnName(free, j))
		}
		for i := 0; i < n; i++ {
			a.Set(i, j, a.At(i, j)/norm[j])
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return 0, fmt.Errorf("least squares: %w", err)
	}
	var ata, inv mat.Dense
	ata.Mul(a.T(), a)
	if err := inv.Inverse(&ata); err != nil {
		var c mat.Condition
		if !errors.As(err, &c) {
			return 0, fmt.Errorf("covariance: %w", err)
		}
		f.Log.Warn("ill conditioned fit", slog.Float64("condition", float64(c)))
	}

	cov := mat.NewSymDense(len(free), nil)
	for j := range free {
		for k := j; k < len(free); k++ {
			cov.SetSym(j, k, inv.At(j, k)/(norm[j]*norm[k]))
		}
	}
	saved := make([]param.Param, len(free))
	for j, p := range free {
		saved[j] = *p
		dx := x.AtVec(j) / norm[j]
		if p.Kind == param.Epoch {
			p.SetEpoch(p.Epoch().Add(-dx * mjd.SecPerDay))
		} else {
			p.SetValue(p.Value() - dx)
		}
		p.SetUncertaintyValue(math.Sqrt(cov.At(j, j)))
		f.Log.Debug("fit step", slog.String("param", p.Name),
			slog.Float64("change", -dx), slog.String("value", p.Text()))
	}
	if err := f.Resids.Update(); err != nil {
		// residuals are unchanged on error, so they still match saved
		for j, p := range free {
			*p = saved[j]
		}
		return 0, err
	}
	f.free = free
	f.cov = cov
	return f.Resids.Chi2(), nil
}

func columnName(free []*param.Param, j int) string {
	if j < len(free) {
		return free[j].Name
	}
	return "offset"
}

// FitTOAs iterates Step until the chi-square changes by less than
// Threshold or maxIter steps have run.
func (f *Fitter) FitTOAs(maxIter int) (Result, error) {
	prev := f.Resids.Chi2()
	res := Result{}
	for res.Iterations < maxIter {
		chi2, err := f.Step()
		if err != nil {
			return res, err
		}
		res.Iterations++
		f.Log.Info("fit iteration",
			slog.Int("iteration", res.Iterations),
			slog.Float64("chi2", chi2),
			slog.Float64("reduced", f.Resids.ReducedChi2()))
		if math.Abs(prev-chi2) < f.Threshold {
			res.Converged = true
			break
		}
		prev = chi2
	}
	res.Chi2 = f.Resids.Chi2()
	res.ReducedChi2 = f.Resids.ReducedChi2()
	res.DOF = f.Resids.DOF()
	for _, p := range f.free {
		res.Free = append(res.Free, p.Name)
	}
	return res, nil
}

// Covariance returns the parameter covariance of the last Step, in
// parameter units, with the names of its rows.
func (f *Fitter) Covariance() (*mat.SymDense, []string) {
	names := make([]string, len(f.free))
	for i, p := range f.free {
		names[i] = p.Name
	}
	return f.cov, names
}
