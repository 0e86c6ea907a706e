// Public domain.

package freqpoly_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/soniakeys/psrtime/internal/freqpoly"
)

// direct sums for comparison
func phase(c []float64, dt float64) (p float64) {
	fact := 1.
	for i, ci := range c {
		fact *= float64(i + 1)
		p += ci * math.Pow(dt, float64(i+1)) / fact
	}
	return
}

func freq(c []float64, dt float64) (f float64) {
	fact := 1.
	for i, ci := range c {
		if i > 0 {
			fact *= float64(i)
		}
		f += ci * math.Pow(dt, float64(i)) / fact
	}
	return
}

var s = freqpoly.Series{2.5e-5, -3e-15, 4e-24, 1e-33}

func TestPhase(t *testing.T) {
	for _, dt := range []float64{0, 1, -1e5, 3.2e7, 1e8} {
		want := phase(s, dt)
		assert.InDelta(t, want, s.Phase(dt), math.Abs(want)*1e-13, dt)
		assert.InDelta(t, want-s[0]*dt, s.PhaseFrom(1, dt), math.Abs(want)*1e-13, dt)
	}
	assert.Zero(t, s.PhaseFrom(len(s), 10))
	assert.Zero(t, freqpoly.Series(nil).Phase(10))
}

func TestFrequency(t *testing.T) {
	for _, dt := range []float64{0, -2e6, 1e8} {
		assert.InEpsilon(t, freq(s, dt), s.Frequency(dt), 1e-13, dt)
		// first derivative of frequency is the frequency of the shifted series
		assert.InEpsilon(t, freq(s[1:], dt), s.Derivative(1, dt), 1e-13, dt)
	}
	assert.Zero(t, s.Derivative(len(s), 5))
	assert.Equal(t, s[0], s.Frequency(0))
}

func TestCoeff(t *testing.T) {
	dt := 1234.5
	assert.Equal(t, dt, freqpoly.Coeff(0, dt))
	assert.InEpsilon(t, dt*dt/2, freqpoly.Coeff(1, dt), 1e-15)
	assert.InEpsilon(t, dt*dt*dt/6, freqpoly.Coeff(2, dt), 1e-15)
	assert.Equal(t, 1., freqpoly.FreqCoeff(0, dt))
	assert.Equal(t, dt, freqpoly.FreqCoeff(1, dt))

	// phase is linear in the coefficients, so a unit step recovers Coeff
	dt = 12.345
	for i := range s {
		h := 1.
		up := append(freqpoly.Series(nil), s...)
		up[i] += h
		dn := append(freqpoly.Series(nil), s...)
		dn[i] -= h
		num := (up.Phase(dt) - dn.Phase(dt)) / (2 * h)
		assert.InEpsilon(t, freqpoly.Coeff(i, dt), num, 1e-9, i)
	}
}

func TestVectorized(t *testing.T) {
	dt := []float64{-10, 0, 10}
	p := s.Phases(dt)
	f := s.Frequencies(dt)
	d := s.Derivatives(1, dt)
	c := freqpoly.Coeffs(1, dt)
	for i, x := range dt {
		assert.Equal(t, s.Phase(x), p[i])
		assert.Equal(t, s.Frequency(x), f[i])
		assert.Equal(t, s.Derivative(1, x), d[i])
		assert.Equal(t, freqpoly.Coeff(1, x), c[i])
	}
	assert.Equal(t, 3, s.Terms())
	assert.Equal(t, 0, freqpoly.Series(nil).Terms())
}
