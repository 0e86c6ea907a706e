// Public domain.

package model

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/psrtime/internal/binary"
	"github.com/soniakeys/psrtime/internal/freqpoly"
	"github.com/soniakeys/psrtime/internal/mjd"
	"github.com/soniakeys/psrtime/internal/param"
	"github.com/soniakeys/psrtime/internal/toa"
)

type setupState int

const (
	unconfigured setupState = iota
	validated
	ready
)

// BinaryBTX connects the BTX orbit of package binary to a timing model.
//
// The orbital frequency is FB plus any number of derivatives FB1, FB2, ...
// read from the par file.  Setup requires the derivative terms to be
// contiguous, defaults the optional orbital derivatives to frozen zeros,
// and registers a delay derivative for each parameter.
type BinaryBTX struct {
	params *param.Set

	fb, t0, a1, xdot, ecc, edot, om, omdot, gamma *param.Param

	fbTerms []*param.Param // FB, FB1, ... FBn after Setup
	state   setupState

	log       *slog.Logger
	eccWarned float64 // last out of range ECC logged
}

// NewBinaryBTX declares the BTX parameters in s.
func NewBinaryBTX(s *param.Set) (*BinaryBTX, error) {
	b := &BinaryBTX{
		params: s,
		fb:     param.New("FB", param.Float, "Hz", "orbital frequency"),
		t0:     param.New("T0", param.Epoch, "d", "epoch of periastron"),
		a1:     param.New("A1", param.Float, "lt-s", "projected semi-major axis"),
		xdot:   param.New("XDOT", param.Float, "lt-s/s", "rate of change of A1"),
		ecc:    param.New("ECC", param.Float, "", "eccentricity"),
		edot:   param.New("EDOT", param.Float, "1/s", "rate of change of eccentricity"),
		om:     param.New("OM", param.Float, "deg", "longitude of periastron"),
		omdot:  param.New("OMDOT", param.Float, "deg/yr", "rate of advance of periastron"),
		gamma:  param.New("GAMMA", param.Float, "s", "time dilation and gravitational redshift"),
	}
	b.fb.Aliases = []string{"FB0"}
	b.fb.Prefix = "FB"
	b.xdot.Aliases = []string{"A1DOT"}
	b.ecc.Aliases = []string{"E"}
	err := s.Add(b.fb, b.t0, b.a1, b.xdot, b.ecc, b.edot, b.om, b.omdot, b.gamma)
	if err != nil {
		return nil, err
	}
	s.RegisterPrefix(param.Prefix{
		Base:        "FB",
		Kind:        param.Float,
		Units:       func(n int) string { return "Hz/s^" + strconv.Itoa(n) },
		Description: func(n int) string { return fmt.Sprintf("orbital frequency derivative %d", n) },
	})
	return b, nil
}

func (*BinaryBTX) Name() string { return "BinaryBTX" }

// Setup validates the orbit parameters and registers their derivatives.
// A failed Setup leaves the component unusable until Setup succeeds.
func (b *BinaryBTX) Setup(m *TimingModel) error {
	b.state = unconfigured
	b.fbTerms = nil
	b.log = m.Log
	b.eccWarned = 0

	n, err := b.params.CheckContiguous(b.Name(), "FB")
	if err != nil {
		return err
	}
	// derivative terms are zero unless given, and need T0 when given
	fb1, err := b.params.Ensure("FB1")
	if err != nil {
		return err
	}
	for _, p := range []*param.Param{fb1, b.omdot, b.edot, b.xdot} {
		if p.IsSet() && !b.t0.IsSet() {
			return param.Missing(b.Name(), "T0", p.Name+" is set")
		}
	}
	for _, p := range []*param.Param{b.fb, b.t0, b.a1} {
		if !p.IsSet() {
			return param.Missing(b.Name(), p.Name, "required for the BTX orbit")
		}
	}
	for _, p := range []*param.Param{fb1, b.omdot, b.edot, b.xdot} {
		if _, err := p.Default("0"); err != nil {
			return err
		}
	}
	if _, err := b.gamma.Default("0"); err != nil {
		return err
	}
	for _, p := range []*param.Param{b.ecc, b.om} {
		if _, err := p.Default("0"); err != nil {
			return err
		}
	}
	n = max(n, 1)
	b.fbTerms = []*param.Param{b.fb}
	for i := 1; i <= n; i++ {
		b.fbTerms = append(b.fbTerms, b.params.Get("FB"+strconv.Itoa(i)))
	}
	b.state = validated

	// one provider per FB term, each bound to its index
	for i, p := range b.fbTerms {
		b.register(m, p.Name, binary.FB(i), 1)
	}
	deg := unit.AngleFromDeg(1).Rad()
	b.register(m, "T0", binary.T0, mjd.SecPerDay)
	b.register(m, "A1", binary.A1, 1)
	b.register(m, "XDOT", binary.A1Dot, 1)
	b.register(m, "ECC", binary.Ecc, 1)
	b.register(m, "EDOT", binary.EDot, 1)
	b.register(m, "OM", binary.Om, deg)
	b.register(m, "OMDOT", binary.OmDot, deg/secPerYr)
	b.register(m, "GAMMA", binary.Gamma, 1)
	b.state = ready
	return nil
}

// register binds a derivative provider for the named parameter.  Scale
// converts from the BTX field units to parameter units.
func (b *BinaryBTX) register(m *TimingModel, name string, p binary.Param, scale float64) {
	m.RegisterDelayDeriv(b, name, func(ts *toa.TOAs, acc []float64) ([]float64, error) {
		if b.state != ready {
			return nil, ErrNotReady
		}
		d, err := b.orbit().Derivative(p, ts.MJDs(), acc)
		if err != nil {
			return nil, err
		}
		for i := range d {
			d[i] *= scale
		}
		return d, nil
	})
}

// NumFBTerms returns the number of orbital frequency derivative terms,
// n for FB1 through FBn.
func (b *BinaryBTX) NumFBTerms() int {
	if len(b.fbTerms) == 0 {
		return 0
	}
	return len(b.fbTerms) - 1
}

// orbit reads current parameter values into a BTX orbit.
func (b *BinaryBTX) orbit() *binary.BTX {
	fb := make(freqpoly.Series, len(b.fbTerms))
	for i, p := range b.fbTerms {
		fb[i] = p.Value()
	}
	return &binary.BTX{
		T0:    b.t0.Epoch(),
		FB:    fb,
		A1:    b.a1.Value(),
		A1Dot: b.xdot.Value(),
		Ecc:   b.ecc.Value(),
		EDot:  b.edot.Value(),
		Om:    unit.AngleFromDeg(b.om.Value()).Rad(),
		OmDot: unit.AngleFromDeg(b.omdot.Value()).Rad() / secPerYr,
		Gamma: b.gamma.Value(),
	}
}

func (b *BinaryBTX) Delay(ts *toa.TOAs, acc []float64) ([]float64, error) {
	if b.state != ready {
		return nil, ErrNotReady
	}
	o := b.orbit()
	if (o.Ecc < 0 || o.Ecc >= 1) && o.Ecc != b.eccWarned && b.log != nil {
		b.log.Warn("eccentricity out of range [0, 1)", slog.Float64("ECC", o.Ecc))
		b.eccWarned = o.Ecc
	}
	return o.Delay(ts.MJDs(), acc)
}

// Orbits returns the number of orbits since T0 at each TOA.
func (b *BinaryBTX) Orbits(ts *toa.TOAs, acc []float64) ([]float64, error) {
	if b.state != ready {
		return nil, ErrNotReady
	}
	return b.orbit().Orbits(ts.MJDs(), acc)
}
