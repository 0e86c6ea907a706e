// Public domain.

// Package archive keeps a SQLite record of fit runs.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/soniakeys/psrtime/internal/fitter"
	"github.com/soniakeys/psrtime/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Run is one archived fit.
type Run struct {
	ID          int64
	PSR         string
	Created     time.Time
	TOAs        int
	Iterations  int
	Converged   bool
	Chi2        float64
	ReducedChi2 float64
	DOF         int
	Params      []Param
}

// Param is a parameter value as written to a par file.
type Param struct {
	Name        string
	Value       string
	Uncertainty float64
	Frozen      bool
}

// NewRun records the set parameters of m after a fit over ntoas TOAs.
func NewRun(m *model.TimingModel, res fitter.Result, ntoas int, created time.Time) Run {
	r := Run{
		PSR:         m.PSR(),
		Created:     created,
		TOAs:        ntoas,
		Iterations:  res.Iterations,
		Converged:   res.Converged,
		Chi2:        res.Chi2,
		ReducedChi2: res.ReducedChi2,
		DOF:         res.DOF,
	}
	for _, p := range m.Params.Params() {
		if p.IsSet() {
			r.Params = append(r.Params, Param{p.Name, p.Text(), p.Uncertainty, p.Frozen})
		}
	}
	return r
}

// Archive wraps the run database.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	return a, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			psr TEXT NOT NULL,
			created TEXT NOT NULL,
			toas INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			converged INTEGER NOT NULL,
			chi2 REAL NOT NULL,
			reduced_chi2 REAL,
			dof INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_params (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			uncertainty REAL NOT NULL,
			frozen INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_psr ON runs(psr);`,
	}
	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveRun stores r and returns its ID.
func (a *Archive) SaveRun(ctx context.Context, r Run) (id int64, err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// NaN does not survive as REAL; store it as NULL
	var rchi2 sql.NullFloat64
	if !math.IsNaN(r.ReducedChi2) {
		rchi2 = sql.NullFloat64{Float64: r.ReducedChi2, Valid: true}
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (psr, created, toas, iterations, converged, chi2, reduced_chi2, dof)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PSR, r.Created.UTC().Format(time.RFC3339Nano), r.TOAs, r.Iterations,
		r.Converged, r.Chi2, rchi2, r.DOF)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_params (run_id, seq, name, value, uncertainty, frozen)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for i, p := range r.Params {
		if _, err = stmt.ExecContext(ctx, id, i, p.Name, p.Value, p.Uncertainty, p.Frozen); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Runs returns the runs for psr, newest first, with their parameters.
func (a *Archive) Runs(ctx context.Context, psr string) ([]Run, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, psr, created, toas, iterations, converged, chi2, reduced_chi2, dof
		 FROM runs WHERE psr = ? ORDER BY id DESC`, psr)
	if err != nil {
		return nil, err
	}
	var runs []Run
	for rows.Next() {
		var (
			r       Run
			created string
			rchi2   sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.PSR, &created, &r.TOAs, &r.Iterations,
			&r.Converged, &r.Chi2, &rchi2, &r.DOF); err != nil {
			rows.Close()
			return nil, err
		}
		if r.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("run %d: %w", r.ID, err)
		}
		if rchi2.Valid {
			r.ReducedChi2 = rchi2.Float64
		} else {
			r.ReducedChi2 = math.NaN()
		}
		runs = append(runs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].Params, err = a.params(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (a *Archive) params(ctx context.Context, id int64) ([]Param, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT name, value, uncertainty, frozen FROM run_params
		 WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ps []Param
	for rows.Next() {
		var p Param
		if err := rows.Scan(&p.Name, &p.Value, &p.Uncertainty, &p.Frozen); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}
