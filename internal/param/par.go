// Public domain.

package param

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line is one parameter line of a par file.
type Line struct {
	Num    int      // line number, from 1
	Name   string   // upper case
	Fields []string // value, then optional fit flag and uncertainty
}

// ReadPar splits a par file into parameter lines.  Blank lines and
// comments, lines starting with # or C followed by a space, are skipped.
func ReadPar(r io.Reader) ([]Line, error) {
	var lines []Line
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		t := strings.TrimSpace(s.Text())
		if t == "" || t[0] == '#' || strings.HasPrefix(t, "C ") {
			continue
		}
		f := strings.Fields(t)
		if len(f) < 2 {
			return nil, fmt.Errorf("par line %d: no value for %s", n, f[0])
		}
		lines = append(lines, Line{Num: n, Name: strings.ToUpper(f[0]), Fields: f[1:]})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Find returns the first line for name.
func Find(lines []Line, name string) (Line, bool) {
	for _, l := range lines {
		if l.Name == name {
			return l, true
		}
	}
	return Line{}, false
}

// Apply sets parameters from par file lines.
//
// Names are resolved against the parameters of s and then against its
// prefix families.  Lines naming anything else are returned as unknown;
// they are not an error.
func (s *Set) Apply(lines []Line) (unknown []Line, err error) {
	for _, l := range lines {
		p, err := s.Ensure(l.Name)
		if err != nil {
			unknown = append(unknown, l)
			continue
		}
		if err := applyFields(p, l.Fields); err != nil {
			return unknown, fmt.Errorf("par line %d: %w", l.Num, err)
		}
	}
	return unknown, nil
}

func applyFields(p *Param, f []string) error {
	if p.Kind == String {
		return p.Set(strings.Join(f, " "))
	}
	if err := p.Set(f[0]); err != nil {
		return err
	}
	switch len(f) {
	case 1:
		return nil
	case 2:
		// a lone 0 or 1 is a fit flag, anything else an uncertainty
		switch f[1] {
		case "0":
			p.Frozen = true
			return nil
		case "1":
			p.Frozen = false
			return nil
		}
		return p.SetUncertainty(f[1])
	}
	switch f[1] {
	case "0":
		p.Frozen = true
	case "1":
		p.Frozen = false
	default:
		return fmt.Errorf("%s: fit flag %q", p.Name, f[1])
	}
	return p.SetUncertainty(f[2])
}

// WritePar writes the set parameters of s in par file format.
func WritePar(w io.Writer, s *Set) error {
	bw := bufio.NewWriter(w)
	for _, p := range s.params {
		if !p.IsSet() {
			continue
		}
		fmt.Fprintf(bw, "%-15s %25s", p.Name, p.Text())
		if p.Kind != String {
			switch {
			case p.Uncertainty != 0:
				fit := "1"
				if p.Frozen {
					fit = "0"
				}
				fmt.Fprintf(bw, " %s %s", fit, strconv.FormatFloat(p.Uncertainty, 'g', -1, 64))
			case !p.Frozen:
				bw.WriteString(" 1")
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
