// Public domain.

package toa

// Floors holds minimum TOA uncertainties in µs, per site and default.
type Floors struct {
	Site    map[string]float64
	Default float64
}

// Clip returns the uncertainty to use for a TOA with the reported
// uncertainty at site.
func (f Floors) Clip(reported float64, site string) float64 {
	// look for a floor configured for this site
	floor, ok := f.Site[site]
	if !ok {
		// not there, fall back on the default
		floor = f.Default
	}
	if floor == 0 {
		// a zero floor means accept reported uncertainties as they are
		return reported
	} else if reported <= 0 {
		// no usable uncertainty was reported
		return floor
	}
	// otherwise the greater of the two
	if floor > reported {
		return floor
	}
	return reported
}

// Apply clips the uncertainty of every TOA in ts.
func (f Floors) Apply(ts *TOAs) {
	for i := range ts.List {
		t := &ts.List[i]
		t.Error = f.Clip(t.Error, t.Site)
	}
}
