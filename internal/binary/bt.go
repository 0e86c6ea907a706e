// Public domain.

// Package binary computes Blandford-Teukolsky binary orbit delays.
//
// Geometry evaluates the BT delay and its partial derivatives for a single
// orbital configuration.  BTX drives it over a span of time, with the
// orbital frequency given as a Taylor series about the epoch of
// periastron, and chains partials through to the timing parameters.
//
// The package depends only on times and parameter values; it knows
// nothing of par files or timing model components.
package binary

import "math"

// Geometry is the state of a BT orbit at one instant.
type Geometry struct {
	A1    float64 // projected semi-major axis, light-seconds
	Ecc   float64 // eccentricity
	Om    float64 // longitude of periastron, radians
	Gamma float64 // time dilation and gravitational redshift, seconds
	Nhat  float64 // orbital angular frequency, radians per second
	E     float64 // eccentric anomaly, radians
}

// Partials are partial derivatives of the BT delay, each holding the
// other Geometry fields fixed.
type Partials struct {
	E, Ecc, Om, A1, Gamma, Nhat float64
}

// Kepler solves Kepler's equation E - e sin E = M for the eccentric
// anomaly E.
func Kepler(m, e float64) float64 {
	E := m
	if e > .8 {
		E = math.Pi
	}
	for i := 0; i < 50; i++ {
		s, c := math.Sincos(E)
		dE := (E - e*s - m) / (1 - e*c)
		E -= dE
		if math.Abs(dE) < 1e-15 {
			break
		}
	}
	return E
}

// terms are the common subexpressions of the delay.
type terms struct {
	sE, cE, sw, cw, q, den float64
	alpha, beta, d1, num   float64
	d2                     float64
}

func (g *Geometry) terms() (t terms) {
	t.sE, t.cE = math.Sincos(g.E)
	t.sw, t.cw = math.Sincos(g.Om)
	t.q = math.Sqrt(1 - g.Ecc*g.Ecc)
	t.den = 1 - g.Ecc*t.cE
	t.alpha = g.A1 * t.sw
	t.beta = g.A1 * t.q * t.cw
	t.d1 = t.alpha*(t.cE-g.Ecc) + (t.beta+g.Gamma)*t.sE
	t.num = t.beta*t.cE - t.alpha*t.sE
	t.d2 = 1 - g.Nhat*t.num/t.den
	return
}

// Delay returns the BT delay in seconds.
//
//	delay = [α(cos E - e) + (β + γ) sin E] [1 - n (β cos E - α sin E)/(1 - e cos E)]
//
// with α = a1 sin ω and β = a1 √(1-e²) cos ω.
func (g *Geometry) Delay() float64 {
	t := g.terms()
	return t.d1 * t.d2
}

// Partials returns the partial derivatives of Delay.
func (g *Geometry) Partials() Partials {
	t := g.terms()
	e := g.Ecc
	// each partial is d1' d2 + d1 d2', with
	// d2' = -n (num' den - num den') / den²
	d2p := func(num, den float64) float64 {
		return -g.Nhat * (num*t.den - t.num*den) / (t.den * t.den)
	}
	var p Partials

	// eccentric anomaly
	d1E := -t.alpha*t.sE + (t.beta+g.Gamma)*t.cE
	numE := -t.beta*t.sE - t.alpha*t.cE
	p.E = d1E*t.d2 + t.d1*d2p(numE, e*t.sE)

	// eccentricity, through β and explicitly
	betaE := -g.A1 * t.cw * e / t.q
	d1e := -t.alpha + betaE*t.sE
	nume := betaE * t.cE
	p.Ecc = d1e*t.d2 + t.d1*d2p(nume, -t.cE)

	// longitude of periastron
	alphaW := g.A1 * t.cw
	betaW := -g.A1 * t.q * t.sw
	d1w := alphaW*(t.cE-e) + betaW*t.sE
	numw := betaW*t.cE - alphaW*t.sE
	p.Om = d1w*t.d2 + t.d1*d2p(numw, 0)

	// semi-major axis
	d1a := t.sw*(t.cE-e) + t.q*t.cw*t.sE
	numa := t.q*t.cw*t.cE - t.sw*t.sE
	p.A1 = d1a*t.d2 + t.d1*d2p(numa, 0)

	p.Gamma = t.sE * t.d2
	p.Nhat = -t.d1 * t.num / t.den
	return p
}
