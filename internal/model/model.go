// Public domain.

// Package model implements pulsar timing models.
//
// A TimingModel is an ordered list of components over a shared parameter
// set.  Delay components (astrometry, dispersion, the BTX binary orbit)
// refer arrival times back to emission at the pulsar; phase components
// (spin-down) turn emission times into pulse phase.  An AbsPhase component
// anchors phase zero to a reference TOA.
//
// Components are stateless between calls.  Every evaluation reads current
// parameter values, so a fitter may change values between iterations
// without notifying the model.  Adding or removing parameters requires
// Setup to be run again.
package model

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/soniakeys/psrtime/internal/param"
	"github.com/soniakeys/psrtime/internal/toa"
)

var (
	ErrNotReady   = errors.New("timing model not set up")
	ErrNoAbsPhase = errors.New("no absolute phase reference")
	ErrNoDeriv    = errors.New("no derivative provider")
)

// TimingModel is a pulsar timing model.
type TimingModel struct {
	Params *param.Set
	Log    *slog.Logger

	components  []Component
	delayDerivs map[string]delayDeriv
	phaseDerivs map[string]PhaseDerivFunc
	ready       bool
}

// New returns a model over params with the given components.  Components
// must have been constructed over the same parameter set.  Setup must be
// run before the model is evaluated.
func New(params *param.Set, comps ...Component) *TimingModel {
	return &TimingModel{
		Params:     params,
		Log:        slog.Default(),
		components: comps,
	}
}

// Components returns the components in evaluation order.
func (m *TimingModel) Components() []Component {
	return slices.Clone(m.components)
}

// Component returns the named component or nil.
func (m *TimingModel) Component(name string) Component {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// AbsPhase returns the absolute phase component or nil.
func (m *TimingModel) AbsPhase() *AbsPhase {
	for _, c := range m.components {
		if a, ok := c.(*AbsPhase); ok {
			return a
		}
	}
	return nil
}

// PSR returns the pulsar name.
func (m *TimingModel) PSR() string {
	if p := m.Params.Get("PSR"); p != nil {
		return p.Str()
	}
	return ""
}

// Setup validates parameters and registers derivative providers for
// every component.  It starts from scratch each time it is called.
func (m *TimingModel) Setup() error {
	m.ready = false
	m.delayDerivs = map[string]delayDeriv{}
	m.phaseDerivs = map[string]PhaseDerivFunc{}
	for _, c := range m.components {
		if err := c.Setup(m); err != nil {
			return err
		}
	}
	m.ready = true
	m.Log.Debug("timing model ready",
		slog.String("psr", m.PSR()),
		slog.Int("components", len(m.components)),
		slog.Int("derivatives", len(m.delayDerivs)+len(m.phaseDerivs)))
	return nil
}

// Ready reports whether Setup has succeeded.
func (m *TimingModel) Ready() bool { return m.ready }

// RegisterDelayDeriv registers the derivative of owner's delay with
// respect to the named parameter.
func (m *TimingModel) RegisterDelayDeriv(owner DelayComponent, name string, fn DelayDerivFunc) {
	m.delayDerivs[name] = delayDeriv{owner, fn}
}

// RegisterPhaseDeriv registers the derivative of phase with respect to
// the named parameter.
func (m *TimingModel) RegisterPhaseDeriv(name string, fn PhaseDerivFunc) {
	m.phaseDerivs[name] = fn
}

// HasDerivative reports whether a derivative provider is registered for
// the named parameter.
func (m *TimingModel) HasDerivative(name string) bool {
	_, d := m.delayDerivs[name]
	_, p := m.phaseDerivs[name]
	return d || p
}

// FreeParams returns the unfrozen parameters that have derivative
// providers, in parameter set order.
func (m *TimingModel) FreeParams() []*param.Param {
	var free []*param.Param
	for _, p := range m.Params.Params() {
		if !p.Frozen && p.IsSet() && m.HasDerivative(p.Name) {
			free = append(free, p)
		}
	}
	return free
}

// delays returns the delay of each delay component.
func (m *TimingModel) delays(ts *toa.TOAs) (per map[DelayComponent][]float64, total []float64, err error) {
	if !m.ready {
		return nil, nil, ErrNotReady
	}
	per = map[DelayComponent][]float64{}
	total = make([]float64, ts.Len())
	for _, c := range m.components {
		dc, ok := c.(DelayComponent)
		if !ok {
			continue
		}
		// components see the accumulated delay as of their turn
		acc := slices.Clone(total)
		d, err := dc.Delay(ts, acc)
		if err != nil {
			return nil, nil, fmt.Errorf("%s delay: %w", c.Name(), err)
		}
		per[dc] = acc
		for i, x := range d {
			total[i] += x
		}
	}
	return per, total, nil
}

// Delay returns the total delay at each TOA, seconds.
func (m *TimingModel) Delay(ts *toa.TOAs) ([]float64, error) {
	_, total, err := m.delays(ts)
	return total, err
}

// DelayBefore returns the delay of the components ahead of c, the
// accumulated delay c sees.
func (m *TimingModel) DelayBefore(c DelayComponent, ts *toa.TOAs) ([]float64, error) {
	per, _, err := m.delays(ts)
	if err != nil {
		return nil, err
	}
	acc, ok := per[c]
	if !ok {
		return nil, fmt.Errorf("%s is not a delay component of the model", c.Name())
	}
	return acc, nil
}

// DDelayDParam returns the derivative of the total delay with respect to
// the named parameter.
func (m *TimingModel) DDelayDParam(name string, ts *toa.TOAs) ([]float64, error) {
	dd, ok := m.delayDerivs[name]
	if !ok {
		return nil, fmt.Errorf("%w for %s delay", ErrNoDeriv, name)
	}
	acc, _, err := m.delays(ts)
	if err != nil {
		return nil, err
	}
	return dd.fn(ts, acc[dd.owner])
}

// Phase returns the pulse phase at each TOA.  With absPhase the phase is
// relative to the phase of the reference TOA, which is evaluated through
// the same components and observatory registry.
func (m *TimingModel) Phase(ts *toa.TOAs, absPhase bool) ([]Phase, error) {
	delay, err := m.Delay(ts)
	if err != nil {
		return nil, err
	}
	ph := make([]Phase, ts.Len())
	for _, c := range m.components {
		pc, ok := c.(PhaseComponent)
		if !ok {
			continue
		}
		p, err := pc.Phase(ts, delay)
		if err != nil {
			return nil, fmt.Errorf("%s phase: %w", c.Name(), err)
		}
		for i := range ph {
			ph[i] = ph[i].Add(p[i])
		}
	}
	if !absPhase {
		return ph, nil
	}
	ref, err := m.tzrPhase(ts)
	if err != nil {
		return nil, err
	}
	for i := range ph {
		ph[i] = ph[i].Sub(ref)
	}
	return ph, nil
}

func (m *TimingModel) tzrPhase(ts *toa.TOAs) (Phase, error) {
	a := m.AbsPhase()
	if a == nil {
		return Phase{}, ErrNoAbsPhase
	}
	tzr, err := a.TZRTOA(ts)
	if err != nil {
		return Phase{}, err
	}
	p, err := m.Phase(tzr, false)
	if err != nil {
		return Phase{}, fmt.Errorf("TZR: %w", err)
	}
	return p[0], nil
}

// dPhaseDDelay sums the phase components' derivatives with respect to
// delay.
func (m *TimingModel) dPhaseDDelay(ts *toa.TOAs, delay []float64) ([]float64, error) {
	r := make([]float64, ts.Len())
	for _, c := range m.components {
		pc, ok := c.(PhaseComponent)
		if !ok {
			continue
		}
		d, err := pc.DPhaseDDelay(ts, delay)
		if err != nil {
			return nil, err
		}
		for i, x := range d {
			r[i] += x
		}
	}
	return r, nil
}

// SpinFreq returns the apparent spin frequency at each TOA, Hz.
func (m *TimingModel) SpinFreq(ts *toa.TOAs) ([]float64, error) {
	delay, err := m.Delay(ts)
	if err != nil {
		return nil, err
	}
	d, err := m.dPhaseDDelay(ts, delay)
	if err != nil {
		return nil, err
	}
	for i := range d {
		d[i] = -d[i]
	}
	return d, nil
}

// DPhaseDParam returns the derivative of phase with respect to the named
// parameter, cycles per parameter unit.  Delay parameters enter through
// the spin frequency.  When the model has an absolute phase reference the
// derivative at the reference TOA is subtracted, matching Phase with
// absPhase true.
func (m *TimingModel) DPhaseDParam(name string, ts *toa.TOAs) ([]float64, error) {
	d, err := m.dPhaseDParam(name, ts)
	if err != nil || m.AbsPhase() == nil {
		return d, err
	}
	tzr, err := m.AbsPhase().TZRTOA(ts)
	if err != nil {
		return nil, err
	}
	dz, err := m.dPhaseDParam(name, tzr)
	if err != nil {
		return nil, err
	}
	for i := range d {
		d[i] -= dz[0]
	}
	return d, nil
}

func (m *TimingModel) dPhaseDParam(name string, ts *toa.TOAs) ([]float64, error) {
	if fn, ok := m.phaseDerivs[name]; ok {
		delay, err := m.Delay(ts)
		if err != nil {
			return nil, err
		}
		return fn(ts, delay)
	}
	dd, ok := m.delayDerivs[name]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoDeriv, name)
	}
	acc, total, err := m.delays(ts)
	if err != nil {
		return nil, err
	}
	dDelay, err := dd.fn(ts, acc[dd.owner])
	if err != nil {
		return nil, err
	}
	dpdd, err := m.dPhaseDDelay(ts, total)
	if err != nil {
		return nil, err
	}
	for i := range dDelay {
		dDelay[i] *= dpdd[i]
	}
	return dDelay, nil
}

// WritePar writes the model parameters in par file format.
func (m *TimingModel) WritePar(w io.Writer) error {
	return param.WritePar(w, m.Params)
}
