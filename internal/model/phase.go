// Public domain.

package model

import "math"

// Phase is a pulse phase in cycles, held as an integer part and a
// fraction in [-0.5, 0.5).  The split keeps sub-microsecond resolution in
// phases of 1e11 cycles and more.
type Phase struct {
	Int  float64
	Frac float64
}

// NewPhase normalizes i + f into a Phase.
func NewPhase(i, f float64) Phase {
	ii := math.Round(i)
	f += i - ii
	n := math.Floor(f + .5)
	return Phase{ii + n, f - n}
}

// Add returns p + q.
func (p Phase) Add(q Phase) Phase {
	return NewPhase(p.Int+q.Int, p.Frac+q.Frac)
}

// Sub returns p - q.
func (p Phase) Sub(q Phase) Phase {
	return NewPhase(p.Int-q.Int, p.Frac-q.Frac)
}

// Cycles returns p as a single float64.
func (p Phase) Cycles() float64 {
	return p.Int + p.Frac
}

// twoProd returns a*b as p + e exactly.
func twoProd(a, b float64) (p, e float64) {
	p = a * b
	return p, math.FMA(a, b, -p)
}
