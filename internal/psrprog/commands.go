// Public domain.

package psrprog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/soniakeys/unit"
	"github.com/urfave/cli/v3"

	"github.com/soniakeys/psrtime/internal/archive"
	"github.com/soniakeys/psrtime/internal/fitter"
	"github.com/soniakeys/psrtime/internal/mjd"
	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/residuals"
	"github.com/soniakeys/psrtime/internal/simulate"
	"github.com/soniakeys/psrtime/internal/toa"
)

func residsCommand() *cli.Command {
	return &cli.Command{
		Name:      "resids",
		Usage:     "compute timing residuals",
		ArgsUsage: "<par file> <tim file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "list residual of each TOA"},
			&cli.BoolFlag{Name: "keep-mean", Usage: "do not subtract the weighted mean"},
		},
		Action: resids,
	}
}

func residOptions(cmd *cli.Command) []residuals.Option {
	if cmd.Bool("keep-mean") {
		return []residuals.Option{residuals.WithoutMean()}
	}
	return nil
}

func resids(_ context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := args(cmd, 2)
	if err != nil {
		return err
	}
	m, err := e.model(a[0])
	if err != nil {
		return err
	}
	ts, err := e.toas(a[1])
	if err != nil {
		return err
	}
	r, err := residuals.New(ts, m, append(residOptions(cmd), residuals.WithLogger(e.log))...)
	if err != nil {
		return err
	}
	if cmd.Bool("list") {
		if err := listResids(e, m, r); err != nil {
			return err
		}
	}
	printStats(e, m, r)
	return nil
}

// listResids prints one line per TOA, with orbital phase for binaries.
func listResids(e *env, m *model.TimingModel, r *residuals.Residuals) error {
	var orb []float64
	if btx, ok := m.Component("BinaryBTX").(*model.BinaryBTX); ok {
		acc, err := m.DelayBefore(btx, r.TOAs)
		if err != nil {
			return err
		}
		if orb, err = btx.Orbits(r.TOAs, acc); err != nil {
			return err
		}
	}
	tr := r.TimeResids()
	for i := range r.TOAs.List {
		t := &r.TOAs.List[i]
		fmt.Fprintf(e.out, "%-12s %s %12.3f %8.3f", t.Name, t.MJD.Format(9), tr[i]*1e6, t.Error)
		if orb != nil {
			_, f := math.Modf(orb[i])
			if f < 0 {
				f++
			}
			fmt.Fprintf(e.out, " %6.4f", f)
		}
		fmt.Fprintln(e.out)
	}
	return nil
}

func printStats(e *env, m *model.TimingModel, r *residuals.Residuals) {
	first, last := r.TOAs.Span()
	span := unit.Time(last.Since(first))
	fmt.Fprintf(e.out, "PSR %s  %d TOAs  %s to %s (%.1f d)  track %s\n",
		m.PSR(), r.TOAs.Len(), first.Format(3), last.Format(3), span.Day(), r.Track)
	fmt.Fprintf(e.out, "weighted RMS %.3f µs  mean %.3f µs\n", r.RMS()*1e6, r.CalcTimeMean()*1e6)
	fmt.Fprintf(e.out, "chi2 %.4g  DOF %d  reduced %.4g\n", r.Chi2(), r.DOF(), r.ReducedChi2())
}

func fitCommand() *cli.Command {
	return &cli.Command{
		Name:      "fit",
		Usage:     "fit free parameters by weighted least squares",
		ArgsUsage: "<par file> <tim file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write fitted par file here"},
			&cli.IntFlag{Name: "max-iter", Usage: "maximum iterations, overrides configuration"},
			&cli.BoolFlag{Name: "keep-mean", Usage: "do not subtract the weighted mean"},
		},
		Action: fit,
	}
}

func fit(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := args(cmd, 2)
	if err != nil {
		return err
	}
	m, err := e.model(a[0])
	if err != nil {
		return err
	}
	ts, err := e.toas(a[1])
	if err != nil {
		return err
	}
	f, err := fitter.New(ts, m, append(residOptions(cmd), residuals.WithLogger(e.log))...)
	if err != nil {
		return err
	}
	f.Threshold = e.cfg.Fit.Threshold
	maxIter := e.cfg.Fit.MaxIter
	if n := int(cmd.Int("max-iter")); n > 0 {
		maxIter = n
	}
	res, err := f.FitTOAs(maxIter)
	if err != nil {
		return err
	}
	if !res.Converged {
		e.log.Warn("fit did not converge", slog.Int("iterations", res.Iterations))
	}
	fmt.Fprintf(e.out, "fit %d parameters, %d iterations, converged %t\n",
		len(res.Free), res.Iterations, res.Converged)
	for _, n := range res.Free {
		p := m.Params.Get(n)
		fmt.Fprintf(e.out, "  %-8s %25s +/- %.3g\n", p.Name, p.Text(), p.Uncertainty)
	}
	printStats(e, m, f.Resids)

	if e.cfg.Archive.Enabled() {
		db, err := archive.Open(e.cfg.Archive.Path)
		if err != nil {
			return err
		}
		id, err := db.SaveRun(ctx, archive.NewRun(m, res, ts.Len(), time.Now()))
		if cerr := db.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		e.log.Info("fit archived", slog.Int64("run", id), slog.String("archive", e.cfg.Archive.Path))
	}
	return e.writePar(m, cmd.String("out"))
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "write TOAs a model predicts, optionally with noise",
		ArgsUsage: "<par file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "first TOA, MJD", Required: true},
			&cli.StringFlag{Name: "end", Usage: "last TOA, MJD", Required: true},
			&cli.IntFlag{Name: "n", Usage: "number of TOAs", Value: 100},
			&cli.FloatFlag{Name: "freq", Usage: "observing frequency, MHz, overrides configuration"},
			&cli.StringFlag{Name: "site", Usage: "observatory, overrides configuration"},
			&cli.FloatFlag{Name: "error", Usage: "TOA uncertainty, µs, overrides configuration"},
			&cli.BoolFlag{Name: "noise", Usage: "add Gaussian noise"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write tim file here"},
		},
		Action: simulateTOAs,
	}
}

func simulateTOAs(_ context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := args(cmd, 1)
	if err != nil {
		return err
	}
	m, err := e.model(a[0])
	if err != nil {
		return err
	}
	start, err := mjd.Parse(cmd.String("start"))
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := mjd.Parse(cmd.String("end"))
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	sc := e.cfg.Simulate
	if cmd.IsSet("freq") {
		sc.Freq = cmd.Float("freq")
	}
	if cmd.IsSet("site") {
		sc.Site = cmd.String("site")
	}
	if cmd.IsSet("error") {
		sc.ErrorUS = cmd.Float("error")
	}
	obs, err := e.observatories()
	if err != nil {
		return err
	}
	opts := []simulate.Option{simulate.WithObservatories(obs), simulate.WithLogger(e.log)}
	if cmd.Bool("noise") {
		opts = append(opts, simulate.WithNoise(simulate.NewRand(sc.Repeatable, sc.Seed)))
	}
	ts, err := simulate.UniformTOAs(m, start, end, int(cmd.Int("n")), sc.Freq, sc.Site, sc.ErrorUS, opts...)
	if err != nil {
		return err
	}
	fn := cmd.String("out")
	if fn == "" {
		return toa.WriteTim(e.out, ts)
	}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := toa.WriteTim(f, ts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func zeroCommand() *cli.Command {
	return &cli.Command{
		Name:      "zero",
		Usage:     "move TZRMJD to zero the mean residual",
		ArgsUsage: "<par file> <tim file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write par file here"},
		},
		Action: zero,
	}
}

func zero(_ context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := args(cmd, 2)
	if err != nil {
		return err
	}
	m, err := e.model(a[0])
	if err != nil {
		return err
	}
	ts, err := e.toas(a[1])
	if err != nil {
		return err
	}
	r, err := residuals.New(ts, m, residuals.WithLogger(e.log))
	if err != nil {
		return err
	}
	before := r.CalcTimeMean()
	if err := r.ZeroTZR(); err != nil {
		return err
	}
	if err := r.Update(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "mean residual %.3f µs, now %.3f µs\n", before*1e6, r.CalcTimeMean()*1e6)
	return e.writePar(m, cmd.String("out"))
}

var errNoArchive = errors.New("no archive configured")

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:      "runs",
		Usage:     "list archived fits of a pulsar",
		ArgsUsage: "<psr>",
		Action:    runs,
	}
}

func runs(ctx context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := args(cmd, 1)
	if err != nil {
		return err
	}
	if !e.cfg.Archive.Enabled() {
		return errNoArchive
	}
	db, err := archive.Open(e.cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	rs, err := db.Runs(ctx, a[0])
	if err != nil {
		return err
	}
	for _, r := range rs {
		fmt.Fprintf(e.out, "%4d %s %5d TOAs %3d iter  reduced chi2 %.4g\n",
			r.ID, r.Created.Format(time.RFC3339), r.TOAs, r.Iterations, r.ReducedChi2)
	}
	return nil
}
