// Public domain.

// Package simulate makes synthetic TOAs that a timing model predicts
// exactly, optionally with Gaussian noise.
package simulate

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strconv"
	"time"

	xrand "golang.org/x/exp/rand"

	"github.com/soniakeys/psrtime/internal/mjd"
	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/residuals"
	"github.com/soniakeys/psrtime/internal/toa"
)

// Rand supplies normal deviates for TOA noise.  *golang.org/x/exp/rand.Rand
// satisfies it.
type Rand interface {
	NormFloat64() float64
}

// NewRand returns a PCG generator.  A repeatable generator is seeded with
// seed, otherwise with the clock.
func NewRand(repeatable bool, seed uint64) *xrand.Rand {
	rnd := xrand.New(&xrand.PCGSource{})
	if repeatable {
		rnd.Seed(seed)
	} else {
		rnd.Seed(uint64(time.Now().UnixNano()))
	}
	return rnd
}

var ErrRange = errors.New("invalid simulation range")

// converged when every residual is below this, seconds
const tolerance = 1e-10

type options struct {
	obs      *toa.Observatories
	rnd      Rand
	maxIter  int
	log      *slog.Logger
	flags    map[string]string
	absPhase bool
}

// Option configures UniformTOAs.
type Option func(*options)

// WithObservatories resolves the site through obs.  Without it only the
// barycenter and geocenter are known.
func WithObservatories(obs *toa.Observatories) Option {
	return func(o *options) { o.obs = obs }
}

// WithNoise adds Gaussian noise with the TOA uncertainty as standard
// deviation.
func WithNoise(rnd Rand) Option {
	return func(o *options) { o.rnd = rnd }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithFlags sets flags on every TOA.
func WithFlags(flags map[string]string) Option {
	return func(o *options) { o.flags = flags }
}

// UniformTOAs returns n TOAs evenly spaced from start to end at frequency
// freq (MHz) from site, each with uncertainty errUS (µs).
//
// Arrival times are moved onto model pulses by repeatedly subtracting
// residuals.  Each TOA is then numbered with its pulse, relative to the
// TZR TOA when the model has one.  Noise, if requested, is added last so
// that pulse numbers refer to the noiseless times.
func UniformTOAs(m *model.TimingModel, start, end mjd.MJD, n int, freq float64,
	site string, errUS float64, opts ...Option) (*toa.TOAs, error) {
	o := options{maxIter: 10, log: m.Log, absPhase: m.AbsPhase() != nil}
	for _, f := range opts {
		f(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if n < 2 || !start.Before(end) {
		return nil, fmt.Errorf("%w: %d TOAs from %s to %s", ErrRange, n, start, end)
	}

	hi, lo := end.Sub(start)
	step := (hi + lo) / float64(n-1)
	list := make([]toa.TOA, n)
	for i := range list {
		list[i] = toa.TOA{
			Name:  "sim" + strconv.Itoa(i),
			MJD:   start.Add(step * float64(i)),
			Freq:  freq,
			Error: errUS,
			Site:  site,
			Flags: maps.Clone(o.flags),
		}
	}
	ts, err := toa.New(o.obs, list)
	if err != nil {
		return nil, err
	}

	r, err := residuals.New(ts, m, residuals.WithoutMean(),
		residuals.WithTrack(residuals.Nearest), residuals.WithLogger(o.log))
	if err != nil {
		return nil, err
	}
	iter := 0
	for ; ; iter++ {
		tr := r.TimeResids()
		worst := 0.
		for i, x := range tr {
			worst = math.Max(worst, math.Abs(x))
			tr[i] = -x
		}
		if worst < tolerance {
			break
		}
		if iter == o.maxIter {
			return nil, fmt.Errorf("simulate: residuals %g s after %d iterations", worst, iter)
		}
		if err := ts.AdjustEach(tr); err != nil {
			return nil, err
		}
		if err := r.Update(); err != nil {
			return nil, err
		}
	}
	o.log.Debug("simulated TOAs converged", slog.Int("toas", n), slog.Int("iterations", iter))

	ph, err := m.Phase(ts, o.absPhase)
	if err != nil {
		return nil, err
	}
	for i := range ts.List {
		ts.List[i].SetPulseNumber(ph[i].Int)
	}

	if o.rnd != nil && errUS > 0 {
		noise := make([]float64, n)
		for i := range noise {
			noise[i] = errUS * 1e-6 * o.rnd.NormFloat64()
		}
		if err := ts.AdjustEach(noise); err != nil {
			return nil, err
		}
	}
	return ts, nil
}
