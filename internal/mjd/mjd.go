// Public domain.

// Package mjd represents Modified Julian Dates with enough precision for
// pulse arrival times.
//
// A float64 MJD resolves only about a microsecond at present epochs.
// MJD here splits the date into an integer day and seconds into the day,
// which holds picoseconds.  Text conversions go through decimal arithmetic
// so that par and tim file values survive a read-write cycle.
package mjd

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/julian"
)

// SecPerDay is the number of SI seconds in a day.
const SecPerDay = 86400

// MJD is a Modified Julian Date.
type MJD struct {
	Day int64   // integer day
	Sec float64 // seconds into Day, 0 <= Sec < SecPerDay
}

// New returns the MJD sec seconds after the start of day, normalized so
// that Sec is within the day.
func New(day int64, sec float64) MJD {
	if sec >= 0 && sec < SecPerDay {
		return MJD{day, sec}
	}
	d := math.Floor(sec / SecPerDay)
	day += int64(d)
	sec -= d * SecPerDay
	// rounding in the subtraction can leave sec a hair out of range
	switch {
	case sec >= SecPerDay:
		day++
		sec -= SecPerDay
	case sec < 0:
		sec = 0
	}
	return MJD{day, sec}
}

// FromFloat converts a float64 day number.  Precision is that of the float.
func FromFloat(d float64) MJD {
	day := math.Floor(d)
	return New(int64(day), (d-day)*SecPerDay)
}

var secPerDay = decimal.NewFromInt(SecPerDay)

// Parse parses a decimal day number such as "55000.123456789012345".
func Parse(s string) (MJD, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return MJD{}, fmt.Errorf("mjd: invalid date %q: %w", s, err)
	}
	day := d.Floor()
	sec, _ := d.Sub(day).Mul(secPerDay).Float64()
	return New(day.IntPart(), sec), nil
}

// MustParse is like Parse but panics on error.  For tests and constants.
func MustParse(s string) MJD {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String formats m with 15 decimal places, about 0.1 ns.
func (m MJD) String() string {
	return m.Format(15)
}

// Format formats m as a decimal day number with the given number of
// decimal places.
func (m MJD) Format(places int32) string {
	frac := decimal.NewFromFloat(m.Sec).DivRound(secPerDay, places+2)
	return decimal.NewFromInt(m.Day).Add(frac).StringFixed(places)
}

// Float returns m as a float64 day number.
func (m MJD) Float() float64 {
	return float64(m.Day) + m.Sec/SecPerDay
}

// Add returns m + s seconds.
func (m MJD) Add(s float64) MJD {
	return New(m.Day, m.Sec+s)
}

// Sub returns m - o in seconds as the sum hi + lo.  Hi is a whole number of
// days expressed in seconds and is exact; lo is less than a day.
func (m MJD) Sub(o MJD) (hi, lo float64) {
	return float64(m.Day-o.Day) * SecPerDay, m.Sec - o.Sec
}

// Since returns m - o in seconds as a single float64.
func (m MJD) Since(o MJD) float64 {
	hi, lo := m.Sub(o)
	return hi + lo
}

// Before reports whether m is earlier than o.
func (m MJD) Before(o MJD) bool {
	return m.Day < o.Day || m.Day == o.Day && m.Sec < o.Sec
}

// JD returns the Julian date of m.
func (m MJD) JD() float64 {
	return m.Float() + base.JMod
}

// Calendar returns the Gregorian calendar date of m.
func (m MJD) Calendar() (year, month int, day float64) {
	return julian.JDToCalendar(m.JD())
}
