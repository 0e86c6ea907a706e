// Public domain.

package residuals_test

import (
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/psrtime/internal/mjd"
	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/residuals"
	"github.com/soniakeys/psrtime/internal/toa"
)

const spinPar = `PSR       J1012+5307
F0        190.26783
F1        -6.2e-16
PEPOCH    55000
DM        9.02
TZRMJD    55010.123
TZRFRQ    1400
TZRSITE   @
`

const btxPar = spinPar + `BINARY    BTX
FB        1.92e-5
FB1       1e-19
A1        0.58
ECC       0.01
OM        80
T0        55000.1
`

func fromPar(t *testing.T, par string) *model.TimingModel {
	t.Helper()
	m, err := model.FromPar(strings.NewReader(par), nil)
	require.NoError(t, err)
	return m
}

// zeroed returns n barycentric TOAs over 60 days moved onto model pulses.
func zeroed(t *testing.T, m *model.TimingModel, n int) *toa.TOAs {
	t.Helper()
	list := make([]toa.TOA, n)
	start := mjd.MustParse("54990.0")
	for i := range list {
		list[i] = toa.TOA{
			Name:  strconv.Itoa(i),
			MJD:   start.Add(60 * mjd.SecPerDay * float64(i) / float64(n-1)),
			Freq:  1400,
			Error: 1,
			Site:  "@",
		}
	}
	ts, err := toa.New(nil, list)
	require.NoError(t, err)
	r, err := residuals.New(ts, m, residuals.WithoutMean())
	require.NoError(t, err)
	for range 4 {
		tr := r.TimeResids()
		for i := range tr {
			tr[i] = -tr[i]
		}
		require.NoError(t, ts.AdjustEach(tr))
		require.NoError(t, r.Update())
	}
	require.Less(t, r.RMS(), 1e-9)
	return ts
}

func TestZeroTZR(t *testing.T) {
	m := fromPar(t, btxPar)
	ts := zeroed(t, m, 30)
	ts.AdjustTOAs(10)

	r, err := residuals.New(ts, m)
	require.NoError(t, err)
	assert.Equal(t, residuals.Nearest, r.Track)
	assert.Greater(t, math.Abs(r.CalcTimeMean()), 1e-4)

	before := ts.MJDs()
	tzr := m.Params.Get("TZRMJD").Epoch()
	require.NoError(t, r.ZeroTZR())
	assert.Equal(t, before, ts.MJDs())
	assert.NotEqual(t, tzr, m.Params.Get("TZRMJD").Epoch())

	require.NoError(t, r.Update())
	assert.Less(t, math.Abs(r.CalcTimeMean()), 1e-3)
	assert.Less(t, math.Abs(r.CalcTimeMean()), 1e-6)
}

func TestZeroTZRNoAbsPhase(t *testing.T) {
	par := strings.Replace(spinPar, "TZRMJD    55010.123\n", "", 1)
	par = strings.Replace(par, "TZRFRQ    1400\n", "", 1)
	par = strings.Replace(par, "TZRSITE   @\n", "", 1)
	m := fromPar(t, par)
	ts := zeroed(t, m, 5)
	r, err := residuals.New(ts, m)
	require.NoError(t, err)
	assert.ErrorIs(t, r.ZeroTZR(), model.ErrNoAbsPhase)
}

func TestPulseNumbers(t *testing.T) {
	m := fromPar(t, spinPar)
	ts := zeroed(t, m, 12)
	ph, err := m.Phase(ts, true)
	require.NoError(t, err)
	for i := range ts.List {
		ts.List[i].SetPulseNumber(ph[i].Int)
	}
	ts.AdjustTOAs(10)

	r, err := residuals.New(ts, m, residuals.WithoutMean())
	require.NoError(t, err)
	assert.Equal(t, residuals.PulseNumbers, r.Track)
	for _, x := range r.TimeResids() {
		assert.InDelta(t, 10, x, 1e-6)
	}

	n, err := residuals.New(ts, m, residuals.WithoutMean(), residuals.WithTrack(residuals.Nearest))
	require.NoError(t, err)
	for _, x := range n.PhaseResids() {
		assert.LessOrEqual(t, math.Abs(x), .5)
	}
}

func TestPulseNumbersRequired(t *testing.T) {
	m := fromPar(t, spinPar)
	ts := zeroed(t, m, 4)
	_, err := residuals.New(ts, m, residuals.WithTrack(residuals.PulseNumbers))
	assert.ErrorIs(t, err, residuals.ErrNoPulseNumbers)
}

func TestChi2(t *testing.T) {
	const n = 20
	m := fromPar(t, spinPar)
	ts := zeroed(t, m, n)
	dt := make([]float64, n)
	for i := range dt {
		dt[i] = 2e-6
		if i%2 == 1 {
			dt[i] = -2e-6
		}
	}
	require.NoError(t, ts.AdjustEach(dt))

	r, err := residuals.New(ts, m, residuals.WithoutMean())
	require.NoError(t, err)
	assert.Equal(t, n, r.DOF())
	assert.InDelta(t, 4*n, r.Chi2(), 1e-3)
	assert.InDelta(t, 4, r.ReducedChi2(), 1e-4)
	assert.InDelta(t, 2e-6, r.RMS(), 1e-10)
	for i, x := range r.TimeResids() {
		assert.InDelta(t, dt[i], x, 1e-10)
	}

	m.Params.Get("F0").Frozen = false
	r, err = residuals.New(ts, m)
	require.NoError(t, err)
	assert.Equal(t, n-2, r.DOF())
	assert.InDelta(t, 4*float64(n)/float64(n-2), r.ReducedChi2(), 1e-3)
}

func TestUpdateIsExplicit(t *testing.T) {
	m := fromPar(t, spinPar)
	ts := zeroed(t, m, 6)
	r, err := residuals.New(ts, m, residuals.WithoutMean())
	require.NoError(t, err)
	before := r.TimeResids()
	ts.AdjustTOAs(1e-3)
	assert.Equal(t, before, r.TimeResids())
	require.NoError(t, r.Update())
	assert.InDelta(t, 1e-3, r.CalcTimeMean(), 1e-9)
}

func TestNoDOF(t *testing.T) {
	m := fromPar(t, spinPar)
	ts := zeroed(t, m, 2)
	m.Params.Get("F0").Frozen = false
	r, err := residuals.New(ts, m)
	require.NoError(t, err)
	assert.Zero(t, r.DOF())
	assert.True(t, math.IsNaN(r.ReducedChi2()))
}
