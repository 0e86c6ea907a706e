// Public domain.

// Package param holds timing model parameters.
//
// A Param is a named value with units, a frozen flag and an uncertainty.
// Values have one of a few kinds: plain floats, epochs, strings, and the
// sexagesimal right ascension and declination used for pulsar positions.
// A Set collects the parameters of a timing model and knows the prefix
// families, such as F0, F1, F2 or FB1, FB2, that may grow as par files are
// read.
package param

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/soniakeys/unit"

	"github.com/soniakeys/psrtime/internal/mjd"
)

// Kind is the kind of value a parameter holds.
type Kind int

const (
	Float Kind = iota
	Epoch
	String
	RA  // right ascension, hh:mm:ss.s
	Dec // declination, dd:mm:ss.s
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Epoch:
		return "epoch"
	case String:
		return "string"
	case RA:
		return "ra"
	case Dec:
		return "dec"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Param is a single timing model parameter.
//
// Float values are in Units.  RA and Dec values are held in radians and
// their uncertainties in seconds of time and arc seconds, the way par
// files write them.
type Param struct {
	Name        string
	Units       string
	Description string
	Kind        Kind
	Aliases     []string
	Frozen      bool
	Uncertainty float64

	// Prefix and Index are set for members of a prefix family.
	Prefix string
	Index  int

	set   bool
	value float64
	epoch mjd.MJD
	str   string
}

// New returns an unset, frozen parameter.
func New(name string, kind Kind, units, desc string) *Param {
	return &Param{
		Name:        name,
		Units:       units,
		Description: desc,
		Kind:        kind,
		Frozen:      true,
	}
}

// IsSet reports whether p has a value.
func (p *Param) IsSet() bool { return p.set }

// Value returns the numeric value of a Float, RA or Dec parameter.
// RA and Dec are in radians.  Unset parameters read as zero.
func (p *Param) Value() float64 { return p.value }

// SetValue sets the numeric value of a Float, RA or Dec parameter.
func (p *Param) SetValue(v float64) {
	p.value = v
	p.set = true
}

// Epoch returns the value of an Epoch parameter.
func (p *Param) Epoch() mjd.MJD { return p.epoch }

// SetEpoch sets the value of an Epoch parameter.
func (p *Param) SetEpoch(m mjd.MJD) {
	p.epoch = m
	p.set = true
}

// Str returns the value of a String parameter.
func (p *Param) Str() string { return p.str }

// SetStr sets the value of a String parameter.
func (p *Param) SetStr(s string) {
	p.str = s
	p.set = true
}

// Angle returns the value of a Dec parameter.
func (p *Param) Angle() unit.Angle { return unit.Angle(p.value) }

// RA returns the value of an RA parameter.
func (p *Param) RA() unit.RA { return unit.RA(p.value) }

// Default sets v, frozen, if p is unset.  It reports whether it did so.
func (p *Param) Default(v string) (bool, error) {
	if p.set {
		return false, nil
	}
	if err := p.Set(v); err != nil {
		return false, err
	}
	p.Frozen = true
	return true, nil
}

// Set parses text as the value of p.
func (p *Param) Set(text string) error {
	text = strings.TrimSpace(text)
	switch p.Kind {
	case Float:
		v, err := ParseFloat(text)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		p.SetValue(v)
	case Epoch:
		m, err := mjd.Parse(text)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		p.SetEpoch(m)
	case String:
		p.SetStr(text)
	case RA:
		h, err := parseSexa(text)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		p.SetValue(unit.RAFromHour(h).Rad())
	case Dec:
		d, err := parseSexa(text)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Name, err)
		}
		p.SetValue(unit.AngleFromDeg(d).Rad())
	default:
		return fmt.Errorf("%s: unknown kind %v", p.Name, p.Kind)
	}
	return nil
}

// Text formats the value of p for a par file.
func (p *Param) Text() string {
	switch p.Kind {
	case Float:
		return strconv.FormatFloat(p.value, 'g', -1, 64)
	case Epoch:
		return p.epoch.String()
	case RA:
		return formatSexa(p.RA().Hour(), false, 10)
	case Dec:
		return formatSexa(p.Angle().Deg(), true, 9)
	}
	return p.str
}

// SetUncertainty parses a par file uncertainty.
func (p *Param) SetUncertainty(text string) error {
	u, err := ParseFloat(text)
	if err != nil {
		return fmt.Errorf("%s uncertainty: %w", p.Name, err)
	}
	p.Uncertainty = u
	return nil
}

// UncertaintyValue returns the uncertainty in the units of Value, radians
// for RA and Dec.
func (p *Param) UncertaintyValue() float64 {
	switch p.Kind {
	case RA:
		return unit.HourAngleFromSec(p.Uncertainty).Rad()
	case Dec:
		return unit.AngleFromSec(p.Uncertainty).Rad()
	}
	return p.Uncertainty
}

// SetUncertaintyValue sets the uncertainty from the units of Value.
func (p *Param) SetUncertaintyValue(u float64) {
	switch p.Kind {
	case RA:
		u = unit.HourAngle(u).Sec()
	case Dec:
		u = unit.Angle(u).Sec()
	}
	p.Uncertainty = u
}

// Clone returns a copy of p.
func (p *Param) Clone() *Param {
	c := *p
	c.Aliases = append([]string(nil), p.Aliases...)
	return &c
}

func (p *Param) String() string {
	if !p.set {
		return p.Name + " (unset)"
	}
	return p.Name + " " + p.Text()
}

// ParseFloat parses a float that may use a Fortran D exponent.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.Map(func(r rune) rune {
		if r == 'D' || r == 'd' {
			return 'e'
		}
		return r
	}, s), 64)
}

// parseSexa parses [+-]xx:mm:ss.s to decimal units of the leading field.
// Trailing fields may be omitted.  The last field present may have a
// fraction, the others are whole numbers.
func parseSexa(s string) (float64, error) {
	var neg byte
	if strings.HasPrefix(s, "-") {
		neg = '-'
	}
	f := strings.Split(strings.TrimLeft(s, "+-"), ":")
	if len(f) > 3 || f[0] == "" {
		return 0, fmt.Errorf("invalid sexagesimal %q", s)
	}
	var dm [2]int
	for i, x := range f[:len(f)-1] {
		n, err := strconv.Atoi(x)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid sexagesimal %q", s)
		}
		dm[i] = n
	}
	last, err := strconv.ParseFloat(f[len(f)-1], 64)
	if err != nil || last < 0 {
		return 0, fmt.Errorf("invalid sexagesimal %q", s)
	}
	// scale the last field to seconds
	switch len(f) {
	case 1:
		last *= 3600
	case 2:
		last *= 60
	}
	return unit.FromSexa(neg, dm[0], dm[1], last), nil
}

// formatSexa formats x as xx:mm:ss.s with places decimal places on the
// seconds.
func formatSexa(x float64, signed bool, places int) string {
	sign := ""
	switch {
	case x < 0:
		sign = "-"
		x = -x
	case signed:
		sign = "+"
	}
	p10 := math.Pow(10, float64(places))
	// work in units of the last place so carries round correctly
	t := math.Round(x * 3600 * p10)
	perMin := 60 * p10
	perUnit := 3600 * p10
	u := math.Floor(t / perUnit)
	t -= u * perUnit
	m := math.Floor(t / perMin)
	t -= m * perMin
	return fmt.Sprintf("%s%02d:%02d:%0*.*f", sign, int64(u), int64(m),
		places+3, places, t/p10)
}
