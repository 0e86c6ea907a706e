// Public domain.

package toa

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/soniakeys/psrtime/internal/mjd"
)

// ReadTim reads TOAs in tempo2 format,
//
//	name freq mjd error site [-flag value]...
//
// FORMAT and MODE lines and comments are skipped.  Sites resolve through
// obs, which may be nil.
func ReadTim(r io.Reader, obs *Observatories) (*TOAs, error) {
	var list []TOA
	s := bufio.NewScanner(r)
	for n := 1; s.Scan(); n++ {
		t := strings.TrimSpace(s.Text())
		if t == "" || t[0] == '#' || strings.HasPrefix(t, "C ") {
			continue
		}
		f := strings.Fields(t)
		switch strings.ToUpper(f[0]) {
		case "FORMAT", "MODE":
			continue
		}
		toa, err := parseTimLine(f)
		if err != nil {
			return nil, fmt.Errorf("tim line %d: %w", n, err)
		}
		list = append(list, toa)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return New(obs, list)
}

// ReadTimFile reads a tim file by name.
func ReadTimFile(fn string, obs *Observatories) (*TOAs, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTim(f, obs)
}

func parseTimLine(f []string) (t TOA, err error) {
	if len(f) < 5 {
		return t, fmt.Errorf("want name, freq, mjd, error, site; got %d fields", len(f))
	}
	t.Name = f[0]
	if t.Freq, err = strconv.ParseFloat(f[1], 64); err != nil {
		return t, fmt.Errorf("frequency %q", f[1])
	}
	if t.MJD, err = mjd.Parse(f[2]); err != nil {
		return t, err
	}
	if t.Error, err = strconv.ParseFloat(f[3], 64); err != nil {
		return t, fmt.Errorf("error %q", f[3])
	}
	t.Site = f[4]
	for i := 5; i < len(f); i++ {
		if !isFlag(f[i]) {
			return t, fmt.Errorf("expected flag, got %q", f[i])
		}
		if t.Flags == nil {
			t.Flags = map[string]string{}
		}
		name := f[i][1:]
		if i+1 < len(f) && !isFlag(f[i+1]) {
			t.Flags[name] = f[i+1]
			i++
		} else {
			t.Flags[name] = ""
		}
	}
	return t, nil
}

// isFlag distinguishes -flag from a negative number.
func isFlag(s string) bool {
	return len(s) > 1 && s[0] == '-' && (s[1] < '0' || s[1] > '9') && s[1] != '.'
}

// WriteTim writes ts in tempo2 format.
func WriteTim(w io.Writer, ts *TOAs) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("FORMAT 1\n")
	for i := range ts.List {
		t := &ts.List[i]
		name := t.Name
		if name == "" {
			name = "toa" + strconv.Itoa(i)
		}
		fmt.Fprintf(bw, "%s %.6f %s %.3f %s", name, t.Freq, t.MJD, t.Error, t.Site)
		keys := make([]string, 0, len(t.Flags))
		for k := range t.Flags {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(bw, " -%s %s", k, t.Flags[k])
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
