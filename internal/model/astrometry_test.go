// Public domain.

package model_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/psrtime/internal/model"
)

var noBinary = []string{"DM", "BINARY", "FB", "A1", "ECC", "OM", "T0"}

// eclipticPar restates the basePar position in ecliptic coordinates.
func eclipticPar(t *testing.T) string {
	t.Helper()
	eq := fromPar(t, without(basePar, append(noBinary, "PMRA", "PMDEC", "POSEPOCH")...))
	sky := coord.Sphr{
		Lon: unit.Angle(eq.Params.Get("RAJ").Value()),
		Lat: unit.Angle(eq.Params.Get("DECJ").Value()),
	}
	var c coord.Cart
	c.FromSphr(&sky)
	s, cs := model.Obliquity.Sincos()
	c.RotateX(&c, s, cs)
	sky.FromCart(&c)
	return fmt.Sprintf("ELONG %.12f\nELAT %.12f\n", sky.Lon.Mod1().Deg(), sky.Lat.Deg()) +
		without(basePar, append(noBinary, "RAJ", "DECJ", "PMRA", "PMDEC", "POSEPOCH")...)
}

func TestEclipticMatchesEquatorial(t *testing.T) {
	eq := fromPar(t, without(basePar, append(noBinary, "PMRA", "PMDEC", "POSEPOCH")...))
	ec := fromPar(t, eclipticPar(t))
	a, ok := ec.Component("AstrometryEcliptic").(*model.Astrometry)
	require.True(t, ok)
	assert.Equal(t, model.Ecliptic, a.Frame())
	assert.Nil(t, ec.Component("Astrometry"))

	ts := toas(t, 20, 365, "gbt", 1400)
	want, err := eq.Delay(ts)
	require.NoError(t, err)
	got, err := ec.Delay(ts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)
}

func TestEclipticAliases(t *testing.T) {
	m := fromPar(t, "LAMBDA 150\nBETA 40\n"+without(basePar, append(noBinary, "RAJ", "DECJ", "PMRA", "PMDEC", "POSEPOCH")...))
	assert.Equal(t, 150., m.Params.Get("ELONG").Value())
	assert.Equal(t, 40., m.Params.Get("ELAT").Value())

	me := missing(t, "ELAT 40\n"+without(basePar, "RAJ", "DECJ", "PMRA", "PMDEC", "POSEPOCH"))
	assert.Equal(t, "ELONG", me.Param)
}

func TestVLBIRotation(t *testing.T) {
	const par = "VLBIAZ 0.5\n"
	rot := fromPar(t, par+without(basePar, noBinary...))
	ra := fromPar(t, without(basePar, noBinary...))
	assert.Equal(t, .5, rot.Params.Get("VLBIAZ").Value())
	assert.Zero(t, ra.Params.Get("VLBIAX").Value())

	// a small rotation about the pole advances right ascension
	p := ra.Params.Get("RAJ")
	p.SetValue(p.Value() + unit.AngleFromSec(.5e-3).Rad())

	ts := toas(t, 20, 365, "gbt", 1400)
	want, err := ra.Delay(ts)
	require.NoError(t, err)
	got, err := rot.Delay(ts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)

	// and rotation about X moves a pulsar on the X axis nowhere
	x := fromPar(t, "RAJ 00:00:00\nDECJ 00:00:00\nVLBIAX 40\n"+
		without(basePar, append(noBinary, "RAJ", "DECJ", "PMRA", "PMDEC", "POSEPOCH")...))
	x0 := fromPar(t, "RAJ 00:00:00\nDECJ 00:00:00\n"+
		without(basePar, append(noBinary, "RAJ", "DECJ", "PMRA", "PMDEC", "POSEPOCH")...))
	want, err = x0.Delay(ts)
	require.NoError(t, err)
	got, err = x.Delay(ts)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-9)
}

func TestEclipticDerivatives(t *testing.T) {
	m := fromPar(t, eclipticPar(t)+"PMELONG 5\nPMELAT -20\nPOSEPOCH 55000\n")
	ts := toas(t, 25, 300, "gbt", 1400)
	for _, c := range []struct {
		name string
		h    float64
	}{
		{"ELONG", 1e-6},
		{"ELAT", 1e-6},
		{"PMELONG", 10},
		{"PMELAT", 10},
	} {
		p := m.Params.Get(c.name)
		want := numeric(t, m, ts, c.h, func(h float64) { p.SetValue(p.Value() + h) })
		got, err := m.DPhaseDParam(c.name, ts)
		require.NoError(t, err, c.name)
		scale := 0.
		for _, w := range want {
			scale = math.Max(scale, math.Abs(w))
		}
		require.NotZero(t, scale, c.name)
		assert.InDeltaSlice(t, want, got, 2e-3*scale, c.name)
	}
}
