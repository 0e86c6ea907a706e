// Public domain.

package model

import (
	"github.com/soniakeys/psrtime/internal/toa"
)

// Component is a part of a timing model.  Constructors declare the
// parameters a component uses in the model's parameter set; Setup
// validates them, supplies defaults and registers derivative providers.
type Component interface {
	Name() string
	Setup(m *TimingModel) error
}

// DelayComponent contributes a delay to pulse arrival times.
//
// Delay components run in model order.  Acc is the total delay of the
// components before this one, in seconds, and is subtracted from the
// arrival time before the component evaluates its own delay.
type DelayComponent interface {
	Component
	Delay(ts *toa.TOAs, acc []float64) ([]float64, error)
}

// PhaseComponent contributes pulse phase at the emission time, arrival
// time less the total delay.
type PhaseComponent interface {
	Component
	Phase(ts *toa.TOAs, delay []float64) ([]Phase, error)
	// DPhaseDDelay is the derivative of phase with respect to delay, in
	// cycles per second.  For spin phase it is minus the spin frequency.
	DPhaseDDelay(ts *toa.TOAs, delay []float64) ([]float64, error)
}

// DelayDerivFunc returns the derivative of a component's delay with
// respect to one parameter, seconds per parameter unit.  Acc is as for
// DelayComponent.Delay.
type DelayDerivFunc func(ts *toa.TOAs, acc []float64) ([]float64, error)

// PhaseDerivFunc returns the derivative of a component's phase with
// respect to one parameter, cycles per parameter unit.
type PhaseDerivFunc func(ts *toa.TOAs, delay []float64) ([]float64, error)

type delayDeriv struct {
	owner DelayComponent
	fn    DelayDerivFunc
}
