// Public domain.

package psrprog_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/psrprog"
)

const truthPar = `PSR       J1012+5307
RAJ       10:12:33.43
DECJ      53:07:02.5
F0        190.26783
F1        -6.2e-16
PEPOCH    55000
DM        9.02
BINARY    BTX
FB        1.92e-5
A1        0.58
ECC       0.01
OM        80
T0        55000.1
TZRMJD    55010.123
TZRFRQ    1400
TZRSITE   gbt
`

type workspace struct {
	dir string
	cfg string
}

func newWorkspace(t *testing.T, archive bool) *workspace {
	t.Helper()
	obs, err := filepath.Abs(filepath.Join("testdata", "obscodes.dat"))
	require.NoError(t, err)
	w := &workspace{dir: t.TempDir()}
	cfg := "log:\n  level: error\nobscodes:\n  file: " + obs + "\n  fetch: false\n"
	if archive {
		cfg += "archive:\n  path: " + w.path("runs.db") + "\n"
	}
	w.cfg = w.write(t, "psrtime.yaml", cfg)
	return w
}

func (w *workspace) path(fn string) string { return filepath.Join(w.dir, fn) }

func (w *workspace) write(t *testing.T, fn, text string) string {
	t.Helper()
	p := w.path(fn)
	require.NoError(t, os.WriteFile(p, []byte(text), 0o644))
	return p
}

func (w *workspace) run(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := psrprog.NewCommand()
	cmd.Writer = &out
	cmd.ErrWriter = io.Discard
	err := cmd.Run(context.Background(),
		append([]string{"psrtime", "--config", w.cfg}, args...))
	return out.String(), err
}

// simulate writes noise-free TOAs for truthPar and returns the tim file.
func (w *workspace) simulate(t *testing.T, n string) (par, tim string) {
	t.Helper()
	par = w.write(t, "truth.par", truthPar)
	tim = w.path("sim.tim")
	_, err := w.run("simulate", "--start", "54990", "--end", "55050",
		"--n", n, "--site", "gbt", "--error", "1", "-o", tim, par)
	require.NoError(t, err)
	return par, tim
}

func TestCheck(t *testing.T) {
	w := newWorkspace(t, false)
	good := w.write(t, "good.par", truthPar)
	bad := w.write(t, "bad.par", strings.Replace(truthPar, "A1        0.58\n", "", 1))
	out, err := w.run("check", good, bad, good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")

	// results come back in argument order
	i1 := strings.Index(out, "J1012+5307  "+good)
	ie := strings.Index(out, "error:")
	i2 := strings.LastIndex(out, "J1012+5307  "+good)
	require.True(t, i1 >= 0 && ie > i1 && i2 > ie, out)
	assert.Contains(t, out[ie:i2], "A1")
	assert.Contains(t, out, "BTX, 1 FB derivative terms")
	assert.Contains(t, out, "AbsPhase")

	out, err = w.run("check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "PEPOCH      55000.0000 (2009-06-18")
}

func TestSimulateResids(t *testing.T) {
	w := newWorkspace(t, false)
	par, tim := w.simulate(t, "60")
	data, err := os.ReadFile(tim)
	require.NoError(t, err)
	assert.Equal(t, 61, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), " -pn ")

	out, err := w.run("resids", "--list", par, tim)
	require.NoError(t, err)
	assert.Contains(t, out, "60 TOAs")
	assert.Contains(t, out, "track pulse numbers")
	assert.Contains(t, out, "weighted RMS 0.000 µs")
	assert.Equal(t, 63, strings.Count(out, "\n"))

	_, err = w.run("resids", par)
	assert.Error(t, err)
}

func TestFitRuns(t *testing.T) {
	w := newWorkspace(t, true)
	_, tim := w.simulate(t, "80")
	start := strings.NewReplacer(
		"F0        190.26783\n", "F0        190.2678300001 1\n",
		"A1        0.58\n", "A1        0.58001 1\n",
	).Replace(truthPar)
	par := w.write(t, "start.par", start)
	fitted := w.path("fitted.par")

	out, err := w.run("fit", "-o", fitted, par, tim)
	require.NoError(t, err)
	assert.Contains(t, out, "fit 2 parameters")

	f, err := os.Open(fitted)
	require.NoError(t, err)
	defer f.Close()
	m, err := model.FromPar(f, nil)
	require.NoError(t, err)
	assert.InDelta(t, 190.26783, m.Params.Get("F0").Value(), 1e-11)
	assert.InDelta(t, .58, m.Params.Get("A1").Value(), 1e-7)
	assert.Positive(t, m.Params.Get("F0").Uncertainty)

	out, err = w.run("runs", "J1012+5307")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, "80 TOAs")

	out, err = w.run("runs", "J0000+0000")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunsNoArchive(t *testing.T) {
	w := newWorkspace(t, false)
	_, err := w.run("runs", "J1012+5307")
	assert.Error(t, err)
}

func TestZero(t *testing.T) {
	w := newWorkspace(t, false)
	_, tim := w.simulate(t, "40")
	par := w.write(t, "shifted.par",
		strings.Replace(truthPar, "TZRMJD    55010.123\n", "TZRMJD    55010.1230000001\n", 1))
	zeroed := w.path("zeroed.par")
	out, err := w.run("zero", "-o", zeroed, par, tim)
	require.NoError(t, err)
	assert.InDelta(t, 0, microseconds(t, `now (\S+) µs`, out), 1e-2)

	out, err = w.run("resids", "--keep-mean", zeroed, tim)
	require.NoError(t, err)
	assert.InDelta(t, 0, microseconds(t, `mean (\S+) µs`, out), 1e-2)
}

// microseconds returns the number captured by pattern in out.
func microseconds(t *testing.T, pattern, out string) float64 {
	t.Helper()
	m := regexp.MustCompile(pattern).FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	x, err := strconv.ParseFloat(m[1], 64)
	require.NoError(t, err)
	return x
}
