// Public domain.

// Package config holds the psrtime run configuration.
//
// Configuration is YAML with environment variable expansion.  Every field
// has a default so that a missing file is not an error.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/soniakeys/psrtime/internal/fitter"
	"github.com/soniakeys/psrtime/internal/toa"
)

// EnvFile names the environment variable giving the config file path.
const EnvFile = "PSRTIME_CONFIG"

// DefaultFile is read, if present, when no file is named.
const DefaultFile = "psrtime.yaml"

// Validator is implemented by configurations that check themselves.
type Validator interface {
	Validate() error
}

// Load reads YAML from filename into target, expanding environment
// variables, then validates target if it is a Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config %s: %w", filename, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), target); err != nil {
		return fmt.Errorf("parse config %s: %w", filename, err)
	}
	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config %s: %w", filename, err)
		}
	}
	return nil
}

// LoadOptional is Load where a missing file leaves target as it is.
func LoadOptional[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if v, ok := any(target).(Validator); ok {
			return v.Validate()
		}
		return nil
	}
	return Load(filename, target)
}

// Config is the run configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Obscodes ObscodesConfig `yaml:"obscodes"`
	Floors   FloorsConfig   `yaml:"floors"`
	Fit      FitConfig      `yaml:"fit"`
	Simulate SimulateConfig `yaml:"simulate"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

func (c *Config) Validate() error {
	for _, v := range []Validator{&c.Log, &c.Obscodes, &c.Floors, &c.Fit, &c.Simulate} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type LogConfig struct {
	Level  slog.Level `yaml:"level"`
	Format string     `yaml:"format"`
}

func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In(FormatText, FormatJSON)),
	)
}

// Logger returns a logger writing to w.
func (c *LogConfig) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ObscodesConfig locates the MPC observatory code file.  With Fetch, a
// missing file is downloaded from the MPC.
type ObscodesConfig struct {
	File  string `yaml:"file"`
	Fetch bool   `yaml:"fetch"`
}

func (c *ObscodesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.File, validation.Required),
	)
}

// FloorsConfig gives minimum TOA uncertainties, µs, by site.
type FloorsConfig struct {
	Default float64            `yaml:"default"`
	Sites   map[string]float64 `yaml:"sites"`
}

func (c *FloorsConfig) Validate() error {
	if err := validation.Validate(c.Default, validation.Min(0.)); err != nil {
		return fmt.Errorf("floors: default: %w", err)
	}
	for site, f := range c.Sites {
		if err := validation.Validate(f, validation.Min(0.)); err != nil {
			return fmt.Errorf("floors: %s: %w", site, err)
		}
	}
	return nil
}

// Floors returns the floors for use on TOAs.  Sites are keyed as they
// are written in tim files.
func (c *FloorsConfig) Floors() toa.Floors {
	return toa.Floors{Default: c.Default, Site: maps.Clone(c.Sites)}
}

type FitConfig struct {
	MaxIter   int     `yaml:"max_iter"`
	Threshold float64 `yaml:"threshold"`
}

func (c *FitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxIter, validation.Required, validation.Min(1)),
		validation.Field(&c.Threshold, validation.Required, validation.Min(0.)),
	)
}

// SimulateConfig holds defaults for synthetic TOAs.  A repeatable run
// seeds its generator with Seed.
type SimulateConfig struct {
	Seed       uint64  `yaml:"seed"`
	Repeatable bool    `yaml:"repeatable"`
	ErrorUS    float64 `yaml:"error_us"`
	Freq       float64 `yaml:"freq"`
	Site       string  `yaml:"site"`
}

func (c *SimulateConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ErrorUS, validation.Min(0.)),
		validation.Field(&c.Freq, validation.Min(0.)),
		validation.Field(&c.Site, validation.Required),
	)
}

// ArchiveConfig locates the fit run archive.  An empty path disables it.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether fit runs are archived.
func (c *ArchiveConfig) Enabled() bool { return c.Path != "" }

// NewDefault returns the default configuration.
func NewDefault() *Config {
	return &Config{
		Log:      LogConfig{Level: slog.LevelInfo, Format: FormatText},
		Obscodes: ObscodesConfig{File: "obscode.dat", Fetch: true},
		Floors:   FloorsConfig{Sites: map[string]float64{}},
		Fit:      FitConfig{MaxIter: 10, Threshold: fitter.DefaultThreshold},
		Simulate: SimulateConfig{Seed: 3, ErrorUS: 1, Freq: 1400, Site: "@"},
	}
}
