// Public domain.

package psrprog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/urfave/cli/v3"

	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/mjd"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "load par files, set up their models and summarize them",
		ArgsUsage: "<par file>...",
		Action:    check,
	}
}

type checkResult struct {
	summary string
	err     error
}

type checkSeq struct {
	fn  string
	rch chan checkResult
}

// check summarizes par files concurrently, printing results in argument
// order.
func check(_ context.Context, cmd *cli.Command) error {
	e, err := setup(cmd)
	if err != nil {
		return err
	}
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("check: no par files")
	}

	// prCh holds result channels in submission order.  it is buffered so
	// a fast worker can drop off a result without waiting on workers
	// ahead of it.
	maxWorkers := runtime.GOMAXPROCS(0)
	prCh := make(chan chan checkResult, maxWorkers*2)
	seqCh := make(chan checkSeq)

	// dispatcher.  each file gets a return channel that works like a
	// ticket for picking up its result.
	go func() {
		for _, fn := range files {
			rch := make(chan checkResult, 1)
			seqCh <- checkSeq{fn, rch}
			prCh <- rch
		}
		close(seqCh)
		close(prCh)
	}()
	for range min(maxWorkers, len(files)) {
		go func() {
			for s := range seqCh {
				sum, err := summarize(s.fn, e.log)
				s.rch <- checkResult{sum, err}
			}
		}()
	}

	failed := 0
	for rch := range prCh {
		r := <-rch
		if r.err != nil {
			failed++
			fmt.Fprintln(e.out, "error:", r.err)
			continue
		}
		fmt.Fprint(e.out, r.summary)
	}
	if failed > 0 {
		return fmt.Errorf("check: %d of %d par files failed", failed, len(files))
	}
	return nil
}

// summarize loads a par file and describes the model.
func summarize(fn string, log *slog.Logger) (string, error) {
	m, err := model.ReadParFile(fn, log)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", m.PSR(), fn)
	var names []string
	for _, c := range m.Components() {
		names = append(names, c.Name())
	}
	fmt.Fprintf(&b, "  components  %s\n", strings.Join(names, " "))
	p := m.Params
	if p.IsSet("RAJ") && p.IsSet("DECJ") {
		fmt.Fprintf(&b, "  position    %.3d %.2d\n",
			sexa.FmtRA(p.Get("RAJ").RA()), sexa.FmtAngle(p.Get("DECJ").Angle()))
	}
	if a, ok := m.Component("AstrometryEcliptic").(*model.Astrometry); ok {
		lon, lat := a.Position()
		fmt.Fprintf(&b, "  ecliptic    %.2d %.2d\n", sexa.FmtAngle(lon), sexa.FmtAngle(lat))
	}
	if p.IsSet("PEPOCH") {
		fmt.Fprintf(&b, "  PEPOCH      %s\n", calendar(p.Get("PEPOCH").Epoch()))
	}
	if btx, ok := m.Component("BinaryBTX").(*model.BinaryBTX); ok {
		fb := p.Get("FB").Value()
		fmt.Fprintf(&b, "  binary      BTX, %d FB derivative terms, Pb %.6f d\n",
			btx.NumFBTerms(), 1/fb/mjd.SecPerDay)
	}
	if m.AbsPhase() != nil {
		fmt.Fprintf(&b, "  TZR         %s %s\n",
			calendar(p.Get("TZRMJD").Epoch()), p.Get("TZRSITE").Str())
	}
	names = names[:0]
	for _, f := range m.FreeParams() {
		names = append(names, f.Name)
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, "  free        %s\n", strings.Join(names, " "))
	}
	return b.String(), nil
}

// calendar formats an epoch as MJD and Gregorian date.
func calendar(t mjd.MJD) string {
	y, m, d := t.Calendar()
	return fmt.Sprintf("%s (%d-%02d-%07.4f)", t.Format(4), y, m, d)
}
