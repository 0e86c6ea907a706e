// Public domain.

package binary

import (
	"errors"
	"fmt"
	"math"

	"github.com/soniakeys/psrtime/internal/freqpoly"
	"github.com/soniakeys/psrtime/internal/mjd"
)

// BTX is a BT orbit whose orbital frequency is a Taylor series about the
// epoch of periastron.  Units are SI seconds and radians.
type BTX struct {
	T0    mjd.MJD         // epoch of periastron
	FB    freqpoly.Series // orbital frequency and derivatives, Hz, Hz/s, ...
	A1    float64         // projected semi-major axis, lt-s
	A1Dot float64         // lt-s/s
	Ecc   float64
	EDot  float64 // 1/s
	Om    float64 // longitude of periastron at T0, rad
	OmDot float64 // rad/s
	Gamma float64 // s
}

// Param identifies a BTX value for derivatives.
type Param int

const (
	A1 Param = iota
	A1Dot
	Ecc
	EDot
	Om
	OmDot
	Gamma
	T0
	fb0 // FB terms follow
)

// FB returns the Param for orbital frequency term i, FB for i = 0.
func FB(i int) Param { return fb0 + Param(i) }

func (p Param) String() string {
	switch p {
	case A1:
		return "A1"
	case A1Dot:
		return "A1DOT"
	case Ecc:
		return "ECC"
	case EDot:
		return "EDOT"
	case Om:
		return "OM"
	case OmDot:
		return "OMDOT"
	case Gamma:
		return "GAMMA"
	case T0:
		return "T0"
	case fb0:
		return "FB"
	}
	if p > fb0 {
		return fmt.Sprintf("FB%d", p-fb0)
	}
	return fmt.Sprintf("Param(%d)", int(p))
}

// state is the orbit at one time.  Eccentricity is not range checked.
// A small negative value, as a fit near a circular orbit may produce,
// evaluates like the reflected orbit; values of 1 or more give NaN.
type state struct {
	tt0    float64 // seconds since T0
	orbits float64
	g      Geometry
}

func (b *BTX) state(tt0 float64) (s state, err error) {
	if len(b.FB) == 0 {
		return s, errors.New("btx: no orbital frequency")
	}
	s.tt0 = tt0
	s.orbits = b.FB.Phase(tt0)
	m := 2 * math.Pi * (s.orbits - math.Floor(s.orbits))
	s.g = Geometry{
		A1:    b.A1 + b.A1Dot*tt0,
		Ecc:   b.Ecc + b.EDot*tt0,
		Om:    b.Om + b.OmDot*tt0,
		Gamma: b.Gamma,
		Nhat:  2 * math.Pi * b.FB.Frequency(tt0),
	}
	s.g.E = Kepler(m, s.g.Ecc)
	return s, nil
}

// each evaluates f at the time of each TOA.  The time is t[i] less
// acc[i], the delays of anything between the pulsar orbit and the
// observatory.  Acc may be nil.
func (b *BTX) each(t []mjd.MJD, acc []float64, f func(*state) float64) ([]float64, error) {
	if acc != nil && len(acc) != len(t) {
		return nil, fmt.Errorf("btx: %d delays for %d times", len(acc), len(t))
	}
	r := make([]float64, len(t))
	for i := range t {
		tt0 := t[i].Since(b.T0)
		if acc != nil {
			tt0 -= acc[i]
		}
		s, err := b.state(tt0)
		if err != nil {
			return nil, err
		}
		r[i] = f(&s)
	}
	return r, nil
}

// Delay returns the binary delay in seconds at each time.
func (b *BTX) Delay(t []mjd.MJD, acc []float64) ([]float64, error) {
	return b.each(t, acc, func(s *state) float64 { return s.g.Delay() })
}

// Orbits returns the number of orbits since T0 at each time.
func (b *BTX) Orbits(t []mjd.MJD, acc []float64) ([]float64, error) {
	return b.each(t, acc, func(s *state) float64 { return s.orbits })
}

// Derivative returns the derivative of the delay with respect to p at
// each time, in seconds per unit of the corresponding BTX field.  The T0
// derivative is per second.
func (b *BTX) Derivative(p Param, t []mjd.MJD, acc []float64) ([]float64, error) {
	if p >= fb0 && int(p-fb0) >= len(b.FB) {
		return nil, fmt.Errorf("btx: %v beyond FB%d", p, len(b.FB)-1)
	}
	return b.each(t, acc, func(s *state) float64 { return b.derivative(p, s) })
}

func (b *BTX) derivative(p Param, s *state) float64 {
	g := &s.g
	pd := g.Partials()
	sE, cE := math.Sincos(g.E)
	den := 1 - g.Ecc*cE
	// through the mean anomaly, dE/dM = 1/den
	dM := pd.E / den
	// eccentricity acts directly and through E, dE/de = sin E/den
	dEcc := pd.Ecc + pd.E*sE/den
	switch p {
	case A1:
		return pd.A1
	case A1Dot:
		return pd.A1 * s.tt0
	case Ecc:
		return dEcc
	case EDot:
		return dEcc * s.tt0
	case Om:
		return pd.Om
	case OmDot:
		return pd.Om * s.tt0
	case Gamma:
		return pd.Gamma
	case T0:
		// everything that depends on tt0, and dtt0/dT0 = -1
		d := dM*2*math.Pi*b.FB.Frequency(s.tt0) +
			pd.Nhat*2*math.Pi*b.FB.Derivative(1, s.tt0) +
			pd.A1*b.A1Dot + dEcc*b.EDot + pd.Om*b.OmDot
		return -d
	}
	i := int(p - fb0)
	return 2 * math.Pi * (dM*freqpoly.Coeff(i, s.tt0) +
		pd.Nhat*freqpoly.FreqCoeff(i, s.tt0))
}
