// Public domain.

package archive_test

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soniakeys/psrtime/internal/archive"
	"github.com/soniakeys/psrtime/internal/fitter"
	"github.com/soniakeys/psrtime/internal/model"
)

func TestSaveRuns(t *testing.T) {
	ctx := context.Background()
	a, err := archive.Open(filepath.Join(t.TempDir(), "sub", "runs.db"))
	require.NoError(t, err)
	defer a.Close()

	m, err := model.FromPar(strings.NewReader(`PSR J0000+0000
F0  100 1 1e-12
PEPOCH 55000
`), nil)
	require.NoError(t, err)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	res := fitter.Result{Iterations: 3, Converged: true, Chi2: 12.5, ReducedChi2: 1.25, DOF: 10}
	r := archive.NewRun(m, res, 12, created)
	require.Len(t, r.Params, 3)

	id1, err := a.SaveRun(ctx, r)
	require.NoError(t, err)
	r.ReducedChi2 = math.NaN()
	id2, err := a.SaveRun(ctx, r)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	other := r
	other.PSR = "B1937+21"
	_, err = a.SaveRun(ctx, other)
	require.NoError(t, err)

	runs, err := a.Runs(ctx, "J0000+0000")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, id2, runs[0].ID)
	assert.True(t, math.IsNaN(runs[0].ReducedChi2))
	got := runs[1]
	assert.Equal(t, id1, got.ID)
	assert.True(t, created.Equal(got.Created))
	assert.Equal(t, 12, got.TOAs)
	assert.Equal(t, 3, got.Iterations)
	assert.True(t, got.Converged)
	assert.Equal(t, 12.5, got.Chi2)
	assert.Equal(t, 1.25, got.ReducedChi2)
	assert.Equal(t, 10, got.DOF)
	assert.Equal(t, r.Params, got.Params)

	f0 := got.Params[1]
	assert.Equal(t, "F0", f0.Name)
	assert.False(t, f0.Frozen)
	assert.Equal(t, 1e-12, f0.Uncertainty)
}

func TestReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	a, err := archive.Open(path)
	require.NoError(t, err)
	_, err = a.SaveRun(ctx, archive.Run{PSR: "J1", Created: time.Now()})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = archive.Open(path)
	require.NoError(t, err)
	defer a.Close()
	runs, err := a.Runs(ctx, "J1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Empty(t, runs[0].Params)
}
