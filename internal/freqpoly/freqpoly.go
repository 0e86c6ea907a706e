// Public domain.

// Package freqpoly evaluates a frequency given as a Taylor series about an
// epoch, and the phase that is its integral.
//
// A Series c holds the frequency and its time derivatives at the epoch,
// c[0] = f, c[1] = df/dt, and so on.  With dt the time from the epoch,
//
//	f(dt)     = sum c[i] dt^i / i!
//	phase(dt) = sum c[i] dt^(i+1) / (i+1)!
//
// Units are whatever the caller uses consistently; the timing models use
// cycles and seconds.  The same series serves pulsar spin frequency and
// binary orbital frequency.
package freqpoly

// Series is a frequency and its derivatives at an epoch.
type Series []float64

// Terms returns the number of derivative terms, len(s) - 1.
func (s Series) Terms() int {
	if len(s) == 0 {
		return 0
	}
	return len(s) - 1
}

// Phase returns the phase accumulated dt after the epoch.
func (s Series) Phase(dt float64) float64 {
	return s.PhaseFrom(0, dt)
}

// PhaseFrom returns the phase contribution of terms from index i0 on.
// PhaseFrom(1, dt) is the phase less the c[0] dt term, which callers
// needing extra precision evaluate separately.
func (s Series) PhaseFrom(i0 int, dt float64) float64 {
	if i0 >= len(s) {
		return 0
	}
	var p float64
	for i := len(s) - 1; i >= i0; i-- {
		p = s[i] + p*dt/float64(i+2)
	}
	return p * Coeff(i0, dt)
}

// Frequency returns the frequency at dt.
func (s Series) Frequency(dt float64) float64 {
	return s.Derivative(0, dt)
}

// Derivative returns the k'th time derivative of frequency at dt.
// Derivatives beyond the series are zero.
func (s Series) Derivative(k int, dt float64) float64 {
	var p float64
	for i := len(s) - 1; i >= k; i-- {
		p = s[i] + p*dt/float64(i-k+1)
	}
	return p
}

// Coeff returns the derivative of phase with respect to series coefficient
// i, dt^(i+1)/(i+1)!.  It does not depend on the coefficient values.
func Coeff(i int, dt float64) float64 {
	r := 1.
	for j := 1; j <= i+1; j++ {
		r *= dt / float64(j)
	}
	return r
}

// FreqCoeff returns the derivative of frequency with respect to series
// coefficient i, dt^i/i!.
func FreqCoeff(i int, dt float64) float64 {
	return Coeff(i-1, dt)
}

// Phases evaluates Phase for each element of dt.
func (s Series) Phases(dt []float64) []float64 {
	return each(dt, s.Phase)
}

// Frequencies evaluates Frequency for each element of dt.
func (s Series) Frequencies(dt []float64) []float64 {
	return each(dt, s.Frequency)
}

// Derivatives evaluates Derivative(k, ...) for each element of dt.
func (s Series) Derivatives(k int, dt []float64) []float64 {
	return each(dt, func(x float64) float64 { return s.Derivative(k, x) })
}

// Coeffs evaluates Coeff(i, ...) for each element of dt.
func Coeffs(i int, dt []float64) []float64 {
	return each(dt, func(x float64) float64 { return Coeff(i, x) })
}

func each(dt []float64, f func(float64) float64) []float64 {
	r := make([]float64, len(dt))
	for i, x := range dt {
		r[i] = f(x)
	}
	return r
}
