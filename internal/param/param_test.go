// Public domain.

package param_test

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/psrtime/internal/param"
)

func fbSet(t *testing.T) *param.Set {
	t.Helper()
	s := param.NewSet()
	fb := param.New("FB", param.Float, "Hz", "orbital frequency")
	fb.Aliases = []string{"FB0"}
	fb.Prefix = "FB"
	require.NoError(t, s.Add(
		fb,
		param.New("T0", param.Epoch, "d", "epoch of periastron"),
		param.New("PSR", param.String, "", "pulsar name"),
		param.New("RAJ", param.RA, "H:M:S", "right ascension"),
		param.New("DECJ", param.Dec, "D:M:S", "declination"),
	))
	s.RegisterPrefix(param.Prefix{
		Base:  "FB",
		Kind:  param.Float,
		Units: func(n int) string { return "Hz/s^" + strconv.Itoa(n) },
	})
	return s
}

func TestParseFloat(t *testing.T) {
	v, err := param.ParseFloat("1.5D-3")
	require.NoError(t, err)
	assert.Equal(t, 1.5e-3, v)
	_, err = param.ParseFloat("x")
	assert.Error(t, err)
}

func TestSetValueKinds(t *testing.T) {
	s := fbSet(t)
	ra := s.Get("RAJ")
	require.NoError(t, ra.Set("06:00:00"))
	assert.InDelta(t, math.Pi/2, ra.Value(), 1e-15)
	assert.Equal(t, "06:00:00.0000000000", ra.Text())

	dec := s.Get("decj")
	require.NoError(t, dec.Set("-30:30:00.0"))
	assert.InDelta(t, -30.5*math.Pi/180, dec.Angle().Rad(), 1e-15)
	assert.Equal(t, "-30:30:00.000000000", dec.Text())

	assert.Error(t, dec.Set("12:xx"))
	assert.Error(t, s.Get("T0").Set("abc"))
}

func TestSexagesimalCarry(t *testing.T) {
	p := param.New("DECJ", param.Dec, "", "")
	require.NoError(t, p.Set("+10:59:59.9999999999"))
	assert.Equal(t, "+11:00:00.000000000", p.Text())
}

func TestUncertaintyUnits(t *testing.T) {
	p := param.New("RAJ", param.RA, "", "")
	p.SetUncertaintyValue(math.Pi / (12 * 3600))
	assert.InDelta(t, 1, p.Uncertainty, 1e-12)
	assert.InEpsilon(t, math.Pi/(12*3600), p.UncertaintyValue(), 1e-12)

	d := param.New("DECJ", param.Dec, "", "")
	require.NoError(t, d.SetUncertainty("0.5"))
	assert.InEpsilon(t, math.Pi/(180*3600)/2, d.UncertaintyValue(), 1e-12)
}

func TestSexagesimalPartial(t *testing.T) {
	ra := param.New("RAJ", param.RA, "", "")
	require.NoError(t, ra.Set("05:30.5"))
	assert.InDelta(t, 5+30.5/60, ra.RA().Hour(), 1e-13)
	require.NoError(t, ra.Set("7.25"))
	assert.InDelta(t, 7.25, ra.RA().Hour(), 1e-13)

	dec := param.New("DECJ", param.Dec, "", "")
	require.NoError(t, dec.Set("-00:30:00"))
	assert.InDelta(t, -.5, dec.Angle().Deg(), 1e-13)
	assert.Error(t, dec.Set("10.5:30"))
	assert.Error(t, dec.Set("1:2:3:4"))
}

func TestAliasAndDuplicate(t *testing.T) {
	s := fbSet(t)
	assert.Same(t, s.Get("FB"), s.Get("fb0"))
	err := s.Add(param.New("FB0", param.Float, "", ""))
	assert.ErrorIs(t, err, param.ErrDuplicate)
	_, err = s.Lookup("NOPE")
	assert.ErrorIs(t, err, param.ErrUnknownParameter)
	assert.True(t, s.Remove("FB0"))
	assert.False(t, s.Has("FB"))
}

func TestEnsurePrefix(t *testing.T) {
	s := fbSet(t)
	p, err := s.Ensure("FB3")
	require.NoError(t, err)
	assert.Equal(t, "FB", p.Prefix)
	assert.Equal(t, 3, p.Index)
	assert.Equal(t, "Hz/s^3", p.Units)
	assert.True(t, p.Frozen)
	_, err = s.Ensure("FBX")
	assert.ErrorIs(t, err, param.ErrUnknownParameter)

	fam := s.Family("FB")
	require.Len(t, fam, 2)
	assert.Equal(t, "FB", fam[0].Name)
	assert.Equal(t, "FB3", fam[1].Name)
}

func TestCheckContiguous(t *testing.T) {
	s := fbSet(t)
	n, err := s.CheckContiguous("BinaryBTX", "FB")
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, name := range []string{"FB1", "FB2"} {
		_, err := s.Ensure(name)
		require.NoError(t, err)
	}
	n, err = s.CheckContiguous("BinaryBTX", "FB")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Ensure("FB5")
	require.NoError(t, err)
	_, err = s.CheckContiguous("BinaryBTX", "FB")
	require.ErrorIs(t, err, param.ErrMissing)
	var me *param.MissingParameterError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "FB3", me.Param)
	assert.Equal(t, []string{"FB3", "FB4"}, me.Gaps)
	assert.Contains(t, err.Error(), "FB3, FB4")
}

func TestDefault(t *testing.T) {
	p := param.New("GAMMA", param.Float, "s", "")
	p.Frozen = false
	set, err := p.Default("0")
	require.NoError(t, err)
	assert.True(t, set)
	assert.True(t, p.Frozen)
	set, err = p.Default("5")
	require.NoError(t, err)
	assert.False(t, set)
	assert.Zero(t, p.Value())
}

const par = `# test
PSR      J1234+5678
RAJ      12:34:56.7890123456
DECJ     +56:48:00.0
FB       1.0D-4   1  2.5e-12
C a comment
FB1      -3.5e-20 1
FB2      1e-30    0  1e-31
T0       55000.123456789012345
EPHEM    DE421
`

func TestReadApplyWrite(t *testing.T) {
	lines, err := param.ReadPar(strings.NewReader(par))
	require.NoError(t, err)
	require.Len(t, lines, 8)
	l, ok := param.Find(lines, "EPHEM")
	require.True(t, ok)
	assert.Equal(t, 10, l.Num)

	s := fbSet(t)
	unknown, err := s.Apply(lines)
	require.NoError(t, err)
	require.Len(t, unknown, 1)
	assert.Equal(t, "EPHEM", unknown[0].Name)

	fb := s.Get("FB")
	assert.Equal(t, 1e-4, fb.Value())
	assert.False(t, fb.Frozen)
	assert.Equal(t, 2.5e-12, fb.Uncertainty)
	assert.False(t, s.Get("FB1").Frozen)
	assert.True(t, s.Get("FB2").Frozen)
	assert.Equal(t, 1e-31, s.Get("FB2").Uncertainty)
	assert.Equal(t, "J1234+5678", s.Get("PSR").Str())

	// fitted uncertainties carry every digit
	fb.Uncertainty = 2.718281828459045e-12

	var buf bytes.Buffer
	require.NoError(t, param.WritePar(&buf, s))
	lines2, err := param.ReadPar(&buf)
	require.NoError(t, err)
	s2 := fbSet(t)
	_, err = s2.Apply(lines2)
	require.NoError(t, err)
	for _, name := range []string{"FB", "FB1", "FB2"} {
		a, b := s.Get(name), s2.Get(name)
		assert.Equal(t, a.Value(), b.Value(), name)
		assert.Equal(t, a.Frozen, b.Frozen, name)
		assert.Equal(t, a.Uncertainty, b.Uncertainty, name)
	}
	for _, name := range []string{"RAJ", "DECJ"} {
		assert.InDelta(t, s.Get(name).Value(), s2.Get(name).Value(), 1e-14, name)
	}
	assert.Equal(t, s.Get("T0").Epoch().Day, s2.Get("T0").Epoch().Day)
	assert.InDelta(t, s.Get("T0").Epoch().Sec, s2.Get("T0").Epoch().Sec, 1e-9)
}

func TestReadParNoValue(t *testing.T) {
	_, err := param.ReadPar(strings.NewReader("F0\n"))
	assert.Error(t, err)
}
