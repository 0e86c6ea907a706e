// Public domain.

// Package toa holds pulse times of arrival and the observatories that
// recorded them.
//
// Observatory positions come from the MPC obscode.dat file.  Pulsar sites
// are usually given by short names in tim files; these resolve through
// aliases to MPC codes.
package toa

import (
	"fmt"
	"maps"
	"math"
	"strconv"

	"github.com/soniakeys/psrtime/internal/mjd"
)

// TOA is a single pulse time of arrival.
type TOA struct {
	Name  string
	MJD   mjd.MJD // site arrival time
	Freq  float64 // observing frequency, MHz.  0 or +Inf is infinite.
	Error float64 // uncertainty, µs
	Site  string  // site as written
	Obs   *Observatory
	Flags map[string]string

	PulseNumber    float64
	HasPulseNumber bool
}

// InfiniteFreq reports whether the TOA is referred to infinite frequency.
func (t *TOA) InfiniteFreq() bool {
	return t.Freq == 0 || math.IsInf(t.Freq, 1)
}

// SetPulseNumber assigns pulse number n.
func (t *TOA) SetPulseNumber(n float64) {
	t.PulseNumber = n
	t.HasPulseNumber = true
	if t.Flags == nil {
		t.Flags = map[string]string{}
	}
	t.Flags["pn"] = strconv.FormatFloat(n, 'f', -1, 64)
}

// TOAs is an ordered collection of TOAs.
type TOAs struct {
	List []TOA

	// Tzr marks a collection holding the absolute phase reference TOA.
	Tzr bool

	// Obs resolved the sites of List.  Derived TOAs, such as the phase
	// reference, resolve through it as well.
	Obs *Observatories
}

// New resolves the sites of list against obs and returns a collection.
// A nil obs resolves only the barycenter and the geocenter.
func New(obs *Observatories, list []TOA) (*TOAs, error) {
	if obs == nil {
		obs = NewObservatories(nil)
	}
	for i := range list {
		t := &list[i]
		o, err := obs.Lookup(t.Site)
		if err != nil {
			return nil, fmt.Errorf("toa %d (%s): %w", i, t.Name, err)
		}
		t.Obs = o
		if pn, ok := t.Flags["pn"]; ok && !t.HasPulseNumber {
			n, err := strconv.ParseFloat(pn, 64)
			if err != nil {
				return nil, fmt.Errorf("toa %d (%s): pulse number %q", i, t.Name, pn)
			}
			t.PulseNumber = n
			t.HasPulseNumber = true
		}
	}
	return &TOAs{List: list, Obs: obs}, nil
}

// Len returns the number of TOAs.
func (ts *TOAs) Len() int { return len(ts.List) }

// Registry returns the observatory registry, never nil.
func (ts *TOAs) Registry() *Observatories {
	if ts.Obs == nil {
		ts.Obs = NewObservatories(nil)
	}
	return ts.Obs
}

// MJDs returns the arrival times.
func (ts *TOAs) MJDs() []mjd.MJD {
	m := make([]mjd.MJD, len(ts.List))
	for i := range ts.List {
		m[i] = ts.List[i].MJD
	}
	return m
}

// Errors returns the TOA uncertainties in seconds.
func (ts *TOAs) Errors() []float64 {
	e := make([]float64, len(ts.List))
	for i := range ts.List {
		e[i] = ts.List[i].Error * 1e-6
	}
	return e
}

// HasPulseNumbers reports whether every TOA carries a pulse number.
func (ts *TOAs) HasPulseNumbers() bool {
	if len(ts.List) == 0 {
		return false
	}
	for i := range ts.List {
		if !ts.List[i].HasPulseNumber {
			return false
		}
	}
	return true
}

// AdjustTOAs shifts every arrival time by dt seconds.
func (ts *TOAs) AdjustTOAs(dt float64) {
	for i := range ts.List {
		ts.List[i].MJD = ts.List[i].MJD.Add(dt)
	}
}

// AdjustEach shifts arrival time i by dt[i] seconds.
func (ts *TOAs) AdjustEach(dt []float64) error {
	if len(dt) != len(ts.List) {
		return fmt.Errorf("adjust: %d offsets for %d TOAs", len(dt), len(ts.List))
	}
	for i := range ts.List {
		ts.List[i].MJD = ts.List[i].MJD.Add(dt[i])
	}
	return nil
}

// Span returns the first and last arrival times.
func (ts *TOAs) Span() (first, last mjd.MJD) {
	for i := range ts.List {
		m := ts.List[i].MJD
		if i == 0 || m.Before(first) {
			first = m
		}
		if i == 0 || last.Before(m) {
			last = m
		}
	}
	return
}

// Clone returns a deep copy of ts.
func (ts *TOAs) Clone() *TOAs {
	c := &TOAs{List: make([]TOA, len(ts.List)), Tzr: ts.Tzr, Obs: ts.Obs}
	copy(c.List, ts.List)
	for i := range c.List {
		c.List[i].Flags = maps.Clone(c.List[i].Flags)
	}
	return c
}
