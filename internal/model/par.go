// Public domain.

package model

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/soniakeys/psrtime/internal/param"
)

var ErrUnsupportedBinary = errors.New("unsupported binary model")

// general parameters every model carries
func declareGeneral(s *param.Set) error {
	return s.Add(
		param.New("PSR", param.String, "", "pulsar name"),
		param.New("EPHEM", param.String, "", "solar system ephemeris"),
		param.New("CLK", param.String, "", "clock realization"),
		param.New("UNITS", param.String, "", "time scale units"),
		param.New("BINARY", param.String, "", "binary model"),
	)
}

// FromPar builds a model from a par file and runs Setup.
//
// Components are chosen by the parameters present: Spindown always,
// Astrometry with RAJ or ELONG, Dispersion with DM, BinaryBTX with BINARY BTX and
// AbsPhase with TZRMJD.  Unrecognized parameters are kept as strings so
// that they are written back out.
func FromPar(r io.Reader, log *slog.Logger) (*TimingModel, error) {
	lines, err := param.ReadPar(r)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	s := param.NewSet()
	if err := declareGeneral(s); err != nil {
		return nil, err
	}
	has := func(name string) bool {
		_, ok := param.Find(lines, name)
		return ok
	}

	var comps []Component
	add := func(c Component, err error) error {
		if err == nil {
			comps = append(comps, c)
		}
		return err
	}
	// delay components in order of signal travel backward from the
	// observatory
	switch {
	case has("RAJ") || has("DECJ"):
		if err := add(NewAstrometry(s)); err != nil {
			return nil, err
		}
	case has("ELONG") || has("ELAT") || has("LAMBDA") || has("BETA"):
		if err := add(NewEclipticAstrometry(s)); err != nil {
			return nil, err
		}
	}
	if has("DM") {
		if err := add(NewDispersion(s)); err != nil {
			return nil, err
		}
	}
	if l, ok := param.Find(lines, "BINARY"); ok {
		switch strings.ToUpper(l.Fields[0]) {
		case "BTX":
			if err := add(NewBinaryBTX(s)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedBinary, l.Fields[0])
		}
	}
	if err := add(NewSpindown(s)); err != nil {
		return nil, err
	}
	if has("TZRMJD") {
		if err := add(NewAbsPhase(s)); err != nil {
			return nil, err
		}
	}

	unknown, err := s.Apply(lines)
	if err != nil {
		return nil, err
	}
	for _, l := range unknown {
		log.Warn("unrecognized parameter", slog.String("name", l.Name), slog.Int("line", l.Num))
		p := param.New(l.Name, param.String, "", "unrecognized")
		if err := s.Add(p); err != nil {
			return nil, fmt.Errorf("par line %d: %w", l.Num, err)
		}
		p.SetStr(strings.Join(l.Fields, " "))
	}

	m := New(s, comps...)
	m.Log = log
	if err := m.Setup(); err != nil {
		return nil, err
	}
	return m, nil
}

// ReadParFile builds a model from the named par file.
func ReadParFile(fn string, log *slog.Logger) (*TimingModel, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := FromPar(f, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	return m, nil
}
