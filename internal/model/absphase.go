// Public domain.

package model

import (
	"fmt"

	"github.com/soniakeys/psrtime/internal/param"
	"github.com/soniakeys/psrtime/internal/toa"
)

// AbsPhase anchors pulse phase zero at a reference TOA, the TZR TOA.
//
// The reference is a TOA of the collection carrying a -tzr flag if there
// is one, otherwise a TOA built from TZRMJD, TZRFRQ and TZRSITE.
type AbsPhase struct {
	tzrmjd, tzrfrq, tzrsite *param.Param
}

// NewAbsPhase declares the TZR parameters in s.
func NewAbsPhase(s *param.Set) (*AbsPhase, error) {
	a := &AbsPhase{
		tzrmjd:  param.New("TZRMJD", param.Epoch, "d", "epoch of the phase zero TOA"),
		tzrfrq:  param.New("TZRFRQ", param.Float, "MHz", "frequency of the phase zero TOA"),
		tzrsite: param.New("TZRSITE", param.String, "", "observatory of the phase zero TOA"),
	}
	if err := s.Add(a.tzrmjd, a.tzrfrq, a.tzrsite); err != nil {
		return nil, err
	}
	return a, nil
}

func (*AbsPhase) Name() string { return "AbsPhase" }

// Setup requires TZRMJD.  TZRSITE defaults to the barycenter and TZRFRQ
// to infinite frequency.
func (a *AbsPhase) Setup(*TimingModel) error {
	if !a.tzrmjd.IsSet() {
		return param.Missing(a.Name(), "TZRMJD", "required for absolute phase")
	}
	if _, err := a.tzrsite.Default(toa.BarycenterCode); err != nil {
		return err
	}
	if _, err := a.tzrfrq.Default("0"); err != nil {
		return err
	}
	return nil
}

// TZRTOA returns the reference TOA as a collection of one, marked Tzr.
// A collection already marked Tzr is returned as is.  A constructed TOA
// resolves its site through the registry of ts so that it sees the same
// observatory positions as the TOAs it anchors.
func (a *AbsPhase) TZRTOA(ts *toa.TOAs) (*toa.TOAs, error) {
	if ts.Tzr {
		return ts, nil
	}
	for i := range ts.List {
		if _, ok := ts.List[i].Flags["tzr"]; ok {
			return &toa.TOAs{List: []toa.TOA{ts.List[i]}, Tzr: true, Obs: ts.Obs}, nil
		}
	}
	obs, err := ts.Registry().Lookup(a.tzrsite.Str())
	if err != nil {
		return nil, fmt.Errorf("TZRSITE: %w", err)
	}
	return &toa.TOAs{
		List: []toa.TOA{{
			Name: "TZR",
			MJD:  a.tzrmjd.Epoch(),
			Freq: a.tzrfrq.Value(),
			Site: a.tzrsite.Str(),
			Obs:  obs,
		}},
		Tzr: true,
		Obs: ts.Registry(),
	}, nil
}

// Shift moves the reference epoch by dt seconds.
func (a *AbsPhase) Shift(dt float64) {
	a.tzrmjd.SetEpoch(a.tzrmjd.Epoch().Add(dt))
}
