// Public domain.

// Package psrprog implements the psrtime command.
package psrprog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/soniakeys/exit"
	"github.com/urfave/cli/v3"

	"github.com/soniakeys/psrtime/internal/config"
	"github.com/soniakeys/psrtime/internal/model"
	"github.com/soniakeys/psrtime/internal/toa"
)

const versionString = "0.1 Go source"
const copyrightString = "Public domain."

// Main runs the psrtime command on os.Args and exits on error.
func Main() {
	defer exit.Handler()
	if err := NewCommand().Run(context.Background(), os.Args); err != nil {
		exit.Log(err)
	}
}

// NewCommand returns the psrtime command with its subcommands.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:      "psrtime",
		Usage:     "pulsar timing with the BTX binary model",
		Version:   versionString,
		Copyright: copyrightString,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML run configuration",
				Value:   config.DefaultFile,
				Sources: cli.EnvVars(config.EnvFile),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at debug level",
			},
		},
		Commands: []*cli.Command{
			checkCommand(),
			residsCommand(),
			fitCommand(),
			simulateCommand(),
			zeroCommand(),
			runsCommand(),
		},
	}
}

// env is what every subcommand needs: configuration, a logger and an
// output stream.
type env struct {
	cfg *config.Config
	log *slog.Logger
	out io.Writer
}

func setup(cmd *cli.Command) (*env, error) {
	root := cmd.Root()
	cfg := config.NewDefault()
	fn := cmd.String("config")
	var err error
	if cmd.IsSet("config") {
		err = config.Load(fn, cfg)
	} else {
		err = config.LoadOptional(fn, cfg)
	}
	if err != nil {
		return nil, err
	}
	if cmd.Bool("verbose") {
		cfg.Log.Level = slog.LevelDebug
	}
	errw := root.ErrWriter
	if errw == nil {
		errw = os.Stderr
	}
	out := root.Writer
	if out == nil {
		out = os.Stdout
	}
	return &env{cfg: cfg, log: cfg.Log.Logger(errw), out: out}, nil
}

// args returns the n positional arguments of cmd or a usage error.
func args(cmd *cli.Command, n int) ([]string, error) {
	a := cmd.Args().Slice()
	if len(a) != n {
		return nil, fmt.Errorf("%s: want %d arguments, %s; got %d",
			cmd.Name, n, cmd.ArgsUsage, len(a))
	}
	return a, nil
}

func (e *env) model(fn string) (*model.TimingModel, error) {
	return model.ReadParFile(fn, e.log)
}

func (e *env) observatories() (*toa.Observatories, error) {
	return toa.LoadObservatories(e.cfg.Obscodes.File, e.cfg.Obscodes.Fetch)
}

// toas reads a tim file and applies the configured uncertainty floors.
func (e *env) toas(fn string) (*toa.TOAs, error) {
	obs, err := e.observatories()
	if err != nil {
		return nil, err
	}
	ts, err := toa.ReadTimFile(fn, obs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	e.cfg.Floors.Floors().Apply(ts)
	e.log.Debug("TOAs read", slog.String("file", fn), slog.Int("toas", ts.Len()))
	return ts, nil
}

// writePar writes the model to fn, or to the output stream if fn is empty.
func (e *env) writePar(m *model.TimingModel, fn string) error {
	if fn == "" {
		return m.WritePar(e.out)
	}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := m.WritePar(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
