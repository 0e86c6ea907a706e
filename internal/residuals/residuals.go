// Public domain.

// Package residuals computes timing residuals of TOAs against a model.
package residuals

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/toa"
)

// Track selects how observed pulses are matched to model pulses.
type Track int

const (
	// Nearest matches each TOA to the nearest model pulse.
	Nearest Track = iota
	// PulseNumbers matches each TOA to the pulse numbered on the TOA.
	PulseNumbers
)

func (t Track) String() string {
	if t == PulseNumbers {
		return "pulse numbers"
	}
	return "nearest"
}

var ErrNoPulseNumbers = errors.New("TOAs lack pulse numbers")

// Residuals holds residuals of TOAs against a timing model.
//
// Values are computed by Update and held until the next Update.  Changing
// the TOAs or model parameters does not change them.
type Residuals struct {
	TOAs  *toa.TOAs
	Model *model.TimingModel

	// SubtractMean removes the weighted mean from phase and time
	// residuals.  It costs one degree of freedom.
	SubtractMean bool
	Track        Track
	Log          *slog.Logger

	abs   bool      // phase relative to the TZR TOA
	raw   []float64 // phase residuals before mean subtraction, cycles
	phase []float64
	freq  []float64 // spin frequency at each TOA
	sigma []float64 // TOA uncertainties, s
}

// Option configures Residuals.
type Option func(*Residuals)

// WithoutMean keeps the mean in the residuals.
func WithoutMean() Option {
	return func(r *Residuals) { r.SubtractMean = false }
}

// WithTrack sets the track mode.
func WithTrack(t Track) Option {
	return func(r *Residuals) { r.Track = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Residuals) { r.Log = l }
}

// New computes residuals of ts against m.  The mean is subtracted unless
// WithoutMean is given.  Tracking is by pulse numbers when every TOA has
// one, otherwise by nearest pulse.  Phase is absolute when m has an
// absolute phase component.
func New(ts *toa.TOAs, m *model.TimingModel, opts ...Option) (*Residuals, error) {
	r := &Residuals{
		TOAs:         ts,
		Model:        m,
		SubtractMean: true,
		Log:          m.Log,
		abs:          m.AbsPhase() != nil,
	}
	if ts.HasPulseNumbers() {
		r.Track = PulseNumbers
	}
	for _, o := range opts {
		o(r)
	}
	if r.Log == nil {
		r.Log = slog.Default()
	}
	if err := r.Update(); err != nil {
		return nil, err
	}
	return r, nil
}

// Update recomputes residuals from the current TOAs and model parameters.
func (r *Residuals) Update() error {
	if r.Track == PulseNumbers && !r.TOAs.HasPulseNumbers() {
		return ErrNoPulseNumbers
	}
	ph, err := r.Model.Phase(r.TOAs, r.abs)
	if err != nil {
		return err
	}
	freq, err := r.Model.SpinFreq(r.TOAs)
	if err != nil {
		return err
	}
	raw := make([]float64, len(ph))
	for i, p := range ph {
		if r.Track == PulseNumbers {
			raw[i] = (p.Int - r.TOAs.List[i].PulseNumber) + p.Frac
		} else {
			raw[i] = p.Frac
		}
	}
	r.raw = raw
	r.freq = freq
	r.sigma = r.TOAs.Errors()
	r.phase = raw
	if r.SubtractMean {
		mean := r.weightedMean(raw)
		r.phase = make([]float64, len(raw))
		for i, x := range raw {
			r.phase[i] = x - mean
		}
	}
	r.Log.Debug("residuals updated",
		slog.Int("toas", len(raw)),
		slog.String("track", r.Track.String()),
		slog.Float64("rms", r.RMS()))
	return nil
}

// weights are inverse variances, or equal when any uncertainty is zero.
func (r *Residuals) weights() []float64 {
	w := make([]float64, len(r.sigma))
	for i, s := range r.sigma {
		if s <= 0 {
			for i := range w {
				w[i] = 1
			}
			return w
		}
		w[i] = 1 / (s * s)
	}
	return w
}

func (r *Residuals) weightedMean(x []float64) float64 {
	var sum, sw float64
	for i, w := range r.weights() {
		sum += w * x[i]
		sw += w
	}
	if sw == 0 {
		return 0
	}
	return sum / sw
}

// PhaseResids returns phase residuals, cycles.
func (r *Residuals) PhaseResids() []float64 {
	return append([]float64(nil), r.phase...)
}

// TimeResids returns time residuals, seconds.
func (r *Residuals) TimeResids() []float64 {
	t := make([]float64, len(r.phase))
	for i, p := range r.phase {
		t[i] = p / r.freq[i]
	}
	return t
}

// CalcTimeMean returns the weighted mean of the time residuals before
// any mean subtraction, seconds.
func (r *Residuals) CalcTimeMean() float64 {
	t := make([]float64, len(r.raw))
	for i, p := range r.raw {
		t[i] = p / r.freq[i]
	}
	return r.weightedMean(t)
}

// Chi2 returns the sum of squared time residuals over squared
// uncertainties.  It is NaN when an uncertainty is zero.
func (r *Residuals) Chi2() float64 {
	var c float64
	for i, t := range r.TimeResids() {
		if r.sigma[i] <= 0 {
			return math.NaN()
		}
		x := t / r.sigma[i]
		c += x * x
	}
	return c
}

// DOF returns the degrees of freedom, the number of TOAs less the free
// parameters and less one for a subtracted mean.
func (r *Residuals) DOF() int {
	dof := len(r.phase) - len(r.Model.FreeParams())
	if r.SubtractMean {
		dof--
	}
	return dof
}

// ReducedChi2 returns Chi2 / DOF, NaN when there are no degrees of
// freedom.
func (r *Residuals) ReducedChi2() float64 {
	dof := r.DOF()
	if dof <= 0 {
		return math.NaN()
	}
	return r.Chi2() / float64(dof)
}

// RMS returns the weighted root mean square time residual, seconds.
func (r *Residuals) RMS() float64 {
	t := r.TimeResids()
	for i := range t {
		t[i] *= t[i]
	}
	return math.Sqrt(r.weightedMean(t))
}

// ZeroTZR moves the TZR epoch by the mean time residual so that the mean
// residual of the next Update is near zero.  TOAs are not changed.
func (r *Residuals) ZeroTZR() error {
	a := r.Model.AbsPhase()
	if a == nil {
		return model.ErrNoAbsPhase
	}
	mean := r.CalcTimeMean()
	if math.IsNaN(mean) {
		return fmt.Errorf("zero TZR: mean residual is NaN")
	}
	a.Shift(mean)
	r.Log.Info("TZR shifted", slog.Float64("seconds", mean))
	return nil
}
