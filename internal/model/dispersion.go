// Public domain.

package model

import (
	"github.com/soniakeys/psrtime/internal/param"
	"github.com/soniakeys/psrtime/internal/toa"
)

// DMConst is the dispersion constant in the conventional form,
// MHz^-2 pc cm^-3 s^-1.
const DMConst = 2.41e-4

// Dispersion is the cold plasma delay, DM / (DMConst f²).  TOAs at
// infinite frequency have no delay.
type Dispersion struct {
	dm *param.Param
}

// NewDispersion declares DM in s.
func NewDispersion(s *param.Set) (*Dispersion, error) {
	d := &Dispersion{dm: param.New("DM", param.Float, "pc cm^-3", "dispersion measure")}
	if err := s.Add(d.dm); err != nil {
		return nil, err
	}
	return d, nil
}

func (*Dispersion) Name() string { return "Dispersion" }

func (d *Dispersion) Setup(m *TimingModel) error {
	if _, err := d.dm.Default("0"); err != nil {
		return err
	}
	m.RegisterDelayDeriv(d, "DM", func(ts *toa.TOAs, _ []float64) ([]float64, error) {
		return perDM(ts), nil
	})
	return nil
}

func (d *Dispersion) Delay(ts *toa.TOAs, _ []float64) ([]float64, error) {
	r := perDM(ts)
	dm := d.dm.Value()
	for i := range r {
		r[i] *= dm
	}
	return r, nil
}

// perDM is the delay for unit DM.
func perDM(ts *toa.TOAs) []float64 {
	r := make([]float64, ts.Len())
	for i := range ts.List {
		t := &ts.List[i]
		if !t.InfiniteFreq() {
			r[i] = 1 / (DMConst * t.Freq * t.Freq)
		}
	}
	return r
}
