// Public domain.

package toa

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/mpcformat"
	"github.com/soniakeys/observation"

	"github.com/soniakeys/psrtime/internal/mjd"
)

// SiteKind classifies observatories.
type SiteKind int

const (
	Ground SiteKind = iota
	Geocenter
	Barycenter
)

func (k SiteKind) String() string {
	switch k {
	case Geocenter:
		return "geocenter"
	case Barycenter:
		return "barycenter"
	}
	return "ground"
}

// Observatory is a resolved TOA site.
type Observatory struct {
	Code string // MPC observatory code, or "@" for the barycenter
	Kind SiteKind
	Par  *observation.ParallaxConst // nil except for ground sites
}

// EarthObserver returns the vector from the geocenter to the observatory
// at time t, equatorial, in AU.  It is zero for the geocenter and the
// barycenter.
func (o *Observatory) EarthObserver(t mjd.MJD) coord.Cart {
	if o.Kind != Ground || o.Par == nil {
		return coord.Cart{}
	}
	so := &observation.SiteObs{Par: o.Par}
	so.VMeas.MJD = t.Float()
	return so.EarthObserverVect()
}

var ErrUnknownSite = errors.New("unknown observatory")

// BarycenterCode is the site code of TOAs already referred to the solar
// system barycenter.
const BarycenterCode = "@"

// GeocenterCode is the MPC code for the geocenter.
const GeocenterCode = "500"

// DefaultAliases maps common pulsar site names to MPC codes.
var DefaultAliases = map[string]string{
	"bat":        BarycenterCode,
	"bary":       BarycenterCode,
	"barycenter": BarycenterCode,
	"ssb":        BarycenterCode,
	"coe":        GeocenterCode,
	"geo":        GeocenterCode,
	"geocenter":  GeocenterCode,
	"ao":         "251",
	"arecibo":    "251",
	"3":          "251",
	"gbt":        "256",
	"gb":         "256",
	"1":          "256",
	"mk":         "568",
}

// Observatories resolves TOA site names.
type Observatories struct {
	pm      observation.ParallaxMap
	aliases map[string]string
}

// NewObservatories returns a registry over an MPC parallax map, which may
// be nil.  The barycenter and the geocenter are always known.
func NewObservatories(pm observation.ParallaxMap) *Observatories {
	return &Observatories{pm: pm, aliases: maps.Clone(DefaultAliases)}
}

// ReadObservatories reads an MPC obscode.dat file.
func ReadObservatories(ocdFile string) (*Observatories, error) {
	pm, err := mpcformat.ReadObscodeDatFile(ocdFile)
	if err != nil {
		return nil, err
	}
	return NewObservatories(pm), nil
}

// LoadObservatories reads ocdFile, first downloading a fresh copy from
// the MPC if the file is unreadable and fetch is true.
func LoadObservatories(ocdFile string, fetch bool) (*Observatories, error) {
	o, readErr := ReadObservatories(ocdFile)
	if readErr == nil || !fetch {
		return o, readErr
	}
	if err := mpcformat.FetchObscodeDat(ocdFile); err != nil {
		return nil, fmt.Errorf("%w; fetch: %w", readErr, err)
	}
	return ReadObservatories(ocdFile)
}

// Alias adds a site name for code.
func (o *Observatories) Alias(name, code string) {
	o.aliases[strings.ToLower(name)] = code
}

// Lookup resolves a site name or code.
func (o *Observatories) Lookup(site string) (*Observatory, error) {
	code := site
	if c, ok := o.aliases[strings.ToLower(site)]; ok {
		code = c
	}
	switch code {
	case BarycenterCode:
		return &Observatory{Code: BarycenterCode, Kind: Barycenter}, nil
	case GeocenterCode:
		return &Observatory{Code: GeocenterCode, Kind: Geocenter}, nil
	}
	par, ok := o.pm[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, site)
	}
	if par == nil {
		// obscode.dat lists space based and roving codes without
		// parallax constants
		return &Observatory{Code: code, Kind: Geocenter}, nil
	}
	return &Observatory{Code: strings.ToUpper(code), Kind: Ground, Par: par}, nil
}
