// Public domain.

package model

import (
	"fmt"
	"math"
	"strconv"

	"github.com/soniakeys/psrtime/internal/freqpoly"
	"github.com/soniakeys/psrtime/internal/param"
	"github.com/soniakeys/psrtime/internal/toa"
)

// Spindown is pulsar rotation phase from a Taylor series in spin
// frequency, F0, F1, ... about PEPOCH.
type Spindown struct {
	params *param.Set
	terms  []*param.Param
	pepoch *param.Param
}

// NewSpindown declares the spin parameters in s.
func NewSpindown(s *param.Set) (*Spindown, error) {
	f0 := param.New("F0", param.Float, "Hz", "spin frequency")
	f0.Prefix = "F"
	err := s.Add(f0, param.New("PEPOCH", param.Epoch, "d", "epoch of spin frequency"))
	if err != nil {
		return nil, err
	}
	s.RegisterPrefix(param.Prefix{
		Base:        "F",
		Kind:        param.Float,
		Units:       func(n int) string { return "Hz/s^" + strconv.Itoa(n) },
		Description: func(n int) string { return fmt.Sprintf("spin frequency derivative %d", n) },
	})
	return &Spindown{params: s}, nil
}

func (*Spindown) Name() string { return "Spindown" }

func (sd *Spindown) Setup(m *TimingModel) error {
	s := sd.params
	if !s.IsSet("F0") {
		return param.Missing(sd.Name(), "F0", "spin frequency is required")
	}
	n, err := s.CheckContiguous(sd.Name(), "F")
	if err != nil {
		return err
	}
	if !s.IsSet("PEPOCH") {
		return param.Missing(sd.Name(), "PEPOCH", "spin epoch is required")
	}
	sd.pepoch = s.Get("PEPOCH")
	sd.terms = sd.terms[:0]
	for i := 0; i <= n; i++ {
		p := s.Get("F" + strconv.Itoa(i))
		if _, err := p.Default("0"); err != nil {
			return err
		}
		sd.terms = append(sd.terms, p)
		m.RegisterPhaseDeriv(p.Name, func(ts *toa.TOAs, delay []float64) ([]float64, error) {
			return freqpoly.Coeffs(i, sd.dt(ts, delay)), nil
		})
	}
	return nil
}

// series reads the current coefficient values.
func (sd *Spindown) series() freqpoly.Series {
	f := make(freqpoly.Series, len(sd.terms))
	for i, p := range sd.terms {
		f[i] = p.Value()
	}
	return f
}

// dt returns emission times relative to PEPOCH, seconds.
func (sd *Spindown) dt(ts *toa.TOAs, delay []float64) []float64 {
	pe := sd.pepoch.Epoch()
	dt := make([]float64, ts.Len())
	for i := range ts.List {
		hi, lo := ts.List[i].MJD.Sub(pe)
		dt[i] = hi + (lo - delay[i])
	}
	return dt
}

// Phase returns spin phase.  The F0 term, which carries nearly all the
// cycles, is formed exactly from the whole-day part of the time.
func (sd *Spindown) Phase(ts *toa.TOAs, delay []float64) ([]Phase, error) {
	f := sd.series()
	pe := sd.pepoch.Epoch()
	ph := make([]Phase, ts.Len())
	for i := range ts.List {
		hi, lo := ts.List[i].MJD.Sub(pe)
		lo -= delay[i]
		p, e := twoProd(f[0], hi)
		ip := math.Round(p)
		fp := (p - ip) + e + f[0]*lo + f.PhaseFrom(1, hi+lo)
		ph[i] = NewPhase(ip, fp)
	}
	return ph, nil
}

func (sd *Spindown) DPhaseDDelay(ts *toa.TOAs, delay []float64) ([]float64, error) {
	f := sd.series().Frequencies(sd.dt(ts, delay))
	for i := range f {
		f[i] = -f[i]
	}
	return f, nil
}
