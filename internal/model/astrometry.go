// Public domain.

package model

import (
	"github.com/soniakeys/astro"
	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"

	"github.com/soniakeys/psrtime/internal/param"
	"github.com/soniakeys/psrtime/internal/toa"
)

// AULightSec is the light travel time over one AU, seconds.
const AULightSec = 499.004783836

// secPerYr is the Julian year, the unit of proper motion.
const secPerYr = 365.25 * 86400

// Obliquity is the IERS 2010 obliquity of the ecliptic at J2000, used to
// turn ecliptic positions into equatorial ones.
var Obliquity = unit.AngleFromSec(84381.406)

// mas is one milliarcsecond.
var mas = unit.AngleFromSec(1e-3)

// Frame is the coordinate frame of a pulsar position.
type Frame int

const (
	Equatorial Frame = iota // RAJ, DECJ, PMRA, PMDEC
	Ecliptic                // ELONG, ELAT, PMELONG, PMELAT
)

// Astrometry is the geometric delay from the observatory to the solar
// system barycenter, for a pulsar with proper motion.
//
// The position is equatorial or ecliptic.  VLBIAX, VLBIAY and VLBIAZ are
// small rotations, in mas, of the frame the position is given in about
// the equatorial axes, as between a VLBI reference frame and the timing
// frame.
//
// The Sun stands in for the barycenter and its position comes from a low
// precision solar theory, good to a few arc seconds.  That is adequate
// for simulation and for the structure of fits, not for publication
// grade timing.
type Astrometry struct {
	params *param.Set
	frame  Frame

	lon, lat, pmlon, pmlat, posepoch *param.Param
	vlbi                             [3]*param.Param
}

// NewAstrometry declares equatorial astrometric parameters in s.
func NewAstrometry(s *param.Set) (*Astrometry, error) {
	return newAstrometry(s, Equatorial,
		param.New("RAJ", param.RA, "H:M:S", "right ascension, J2000"),
		param.New("DECJ", param.Dec, "D:M:S", "declination, J2000"),
		param.New("PMRA", param.Float, "mas/yr", "proper motion in RA"),
		param.New("PMDEC", param.Float, "mas/yr", "proper motion in Dec"))
}

// NewEclipticAstrometry declares ecliptic astrometric parameters in s.
func NewEclipticAstrometry(s *param.Set) (*Astrometry, error) {
	lon := param.New("ELONG", param.Float, "deg", "ecliptic longitude")
	lon.Aliases = []string{"LAMBDA"}
	lat := param.New("ELAT", param.Float, "deg", "ecliptic latitude")
	lat.Aliases = []string{"BETA"}
	return newAstrometry(s, Ecliptic, lon, lat,
		param.New("PMELONG", param.Float, "mas/yr", "proper motion in ecliptic longitude"),
		param.New("PMELAT", param.Float, "mas/yr", "proper motion in ecliptic latitude"))
}

func newAstrometry(s *param.Set, f Frame, lon, lat, pmlon, pmlat *param.Param) (*Astrometry, error) {
	a := &Astrometry{
		params:   s,
		frame:    f,
		lon:      lon,
		lat:      lat,
		pmlon:    pmlon,
		pmlat:    pmlat,
		posepoch: param.New("POSEPOCH", param.Epoch, "d", "epoch of position"),
	}
	for i, ax := range []string{"X", "Y", "Z"} {
		a.vlbi[i] = param.New("VLBIA"+ax, param.Float, "mas", "VLBI frame rotation about "+ax)
	}
	err := s.Add(a.lon, a.lat, a.pmlon, a.pmlat, a.posepoch, a.vlbi[0], a.vlbi[1], a.vlbi[2])
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Astrometry) Name() string {
	if a.frame == Ecliptic {
		return "AstrometryEcliptic"
	}
	return "Astrometry"
}

// Frame returns the frame of the position parameters.
func (a *Astrometry) Frame() Frame { return a.frame }

func (a *Astrometry) Setup(m *TimingModel) error {
	for _, p := range []*param.Param{a.lon, a.lat} {
		if !p.IsSet() {
			return param.Missing(a.Name(), p.Name, "pulsar position is required")
		}
	}
	for _, p := range []*param.Param{a.pmlon, a.pmlat, a.vlbi[0], a.vlbi[1], a.vlbi[2]} {
		if _, err := p.Default("0"); err != nil {
			return err
		}
	}
	if !a.posepoch.IsSet() && (a.pmlon.Value() != 0 || a.pmlat.Value() != 0) {
		pe := a.params.Get("PEPOCH")
		if pe == nil || !pe.IsSet() {
			return param.Missing(a.Name(), "POSEPOCH", "required with proper motion")
		}
		a.posepoch.SetEpoch(pe.Epoch())
		a.posepoch.Frozen = true
	}
	// position parameters are radians or degrees
	pu := 1.
	if a.frame == Ecliptic {
		pu = unit.AngleFromDeg(1).Rad()
	}
	m.RegisterDelayDeriv(a, a.lon.Name, a.deriv(func(g *skyGeom) float64 { return g.dLon * pu }))
	m.RegisterDelayDeriv(a, a.lat.Name, a.deriv(func(g *skyGeom) float64 { return g.dLat * pu }))
	m.RegisterDelayDeriv(a, a.pmlon.Name, a.deriv(func(g *skyGeom) float64 {
		return g.dLon * mas.Mul(g.dtYr).Rad() / g.cosLat0
	}))
	m.RegisterDelayDeriv(a, a.pmlat.Name, a.deriv(func(g *skyGeom) float64 {
		return g.dLat * mas.Mul(g.dtYr).Rad()
	}))
	return nil
}

// Position returns the position parameters as angles, at POSEPOCH.
func (a *Astrometry) Position() (lon, lat unit.Angle) {
	if a.frame == Ecliptic {
		return unit.AngleFromDeg(a.lon.Value()), unit.AngleFromDeg(a.lat.Value())
	}
	return a.lon.RA().Angle(), a.lat.Angle()
}

// toTiming carries a vector in the frame of the position parameters to
// the equatorial timing frame.
func (a *Astrometry) toTiming(v *coord.Cart) {
	if a.frame == Ecliptic {
		s, c := Obliquity.Sincos()
		v.RotateX(v, -s, c)
	}
	// small rotation, v + r × v
	r := coord.Cart{
		X: mas.Mul(a.vlbi[0].Value()).Rad(),
		Y: mas.Mul(a.vlbi[1].Value()).Rad(),
		Z: mas.Mul(a.vlbi[2].Value()).Rad(),
	}
	var rv coord.Cart
	v.Add(v, rv.Cross(&r, v))
}

// skyGeom is the delay geometry at one TOA.
type skyGeom struct {
	delay, dLon, dLat float64 // delay and its derivatives, s and s/rad
	dtYr, cosLat0     float64
}

func (a *Astrometry) geom(t *toa.TOA, acc float64) (g skyGeom) {
	lon0, lat0 := a.Position()
	g.cosLat0 = lat0.Cos()
	if t.Obs == nil || t.Obs.Kind == toa.Barycenter {
		return
	}
	tm := t.MJD.Add(-acc)
	if a.posepoch.IsSet() {
		g.dtYr = tm.Since(a.posepoch.Epoch()) / secPerYr
	}
	sky := coord.Sphr{
		Lon: lon0 + mas.Mul(a.pmlon.Value()*g.dtYr/g.cosLat0),
		Lat: lat0 + mas.Mul(a.pmlat.Value()*g.dtYr),
	}
	sLon, cLon := sky.Lon.Sincos()
	sLat, cLat := sky.Lat.Sincos()
	var n coord.Cart
	n.FromSphr(&sky)
	nLon := coord.Cart{X: -sLon * cLat, Y: cLon * cLat}
	nLat := coord.Cart{X: -cLon * sLat, Y: -sLon * sLat, Z: cLat}
	for _, v := range []*coord.Cart{&n, &nLon, &nLat} {
		a.toTiming(v)
	}

	// sun to observer, equatorial AU
	earthSun, _, _ := astro.Se2000(tm.Float())
	earthSite := t.Obs.EarthObserver(tm)
	var sunObserver coord.Cart
	sunObserver.Sub(&earthSite, &earthSun)

	g.delay = -sunObserver.Dot(&n) * AULightSec
	g.dLon = -sunObserver.Dot(&nLon) * AULightSec
	g.dLat = -sunObserver.Dot(&nLat) * AULightSec
	return
}

func (a *Astrometry) Delay(ts *toa.TOAs, acc []float64) ([]float64, error) {
	return a.deriv(func(g *skyGeom) float64 { return g.delay })(ts, acc)
}

func (a *Astrometry) deriv(f func(*skyGeom) float64) DelayDerivFunc {
	return func(ts *toa.TOAs, acc []float64) ([]float64, error) {
		d := make([]float64, ts.Len())
		for i := range ts.List {
			g := a.geom(&ts.List[i], acc[i])
			d[i] = f(&g)
		}
		return d, nil
	}
}
