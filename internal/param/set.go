// Public domain.

package param

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrDuplicate        = errors.New("duplicate parameter")
	ErrUnknownParameter = errors.New("unknown parameter")
)

// Prefix describes a family of parameters named by a base and an integer
// index, F0, F1, F2 for example.
type Prefix struct {
	Base        string
	Kind        Kind
	Units       func(n int) string
	Description func(n int) string
}

// Param returns a new, frozen and unset member of the family.
func (f Prefix) Param(n int) *Param {
	p := New(f.Base+strconv.Itoa(n), f.Kind, "", "")
	if f.Units != nil {
		p.Units = f.Units(n)
	}
	if f.Description != nil {
		p.Description = f.Description(n)
	}
	p.Prefix = f.Base
	p.Index = n
	return p
}

// Set is an ordered collection of parameters.
type Set struct {
	params   []*Param
	byName   map[string]*Param
	prefixes []Prefix
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byName: map[string]*Param{}}
}

// Add adds parameters to s.  Names and aliases are case insensitive.
func (s *Set) Add(ps ...*Param) error {
	for _, p := range ps {
		names := append([]string{p.Name}, p.Aliases...)
		for _, n := range names {
			if _, ok := s.byName[strings.ToUpper(n)]; ok {
				return fmt.Errorf("%w: %s", ErrDuplicate, n)
			}
		}
		for _, n := range names {
			s.byName[strings.ToUpper(n)] = p
		}
		s.params = append(s.params, p)
	}
	return nil
}

// Get returns the named parameter or nil.
func (s *Set) Get(name string) *Param {
	return s.byName[strings.ToUpper(name)]
}

// Lookup is like Get but returns ErrUnknownParameter for a missing parameter.
func (s *Set) Lookup(name string) (*Param, error) {
	if p := s.Get(name); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
}

// Has reports whether name is a parameter in s.
func (s *Set) Has(name string) bool {
	return s.Get(name) != nil
}

// IsSet reports whether name is present and has a value.
func (s *Set) IsSet(name string) bool {
	p := s.Get(name)
	return p != nil && p.IsSet()
}

// Remove removes the named parameter, reporting whether it was present.
func (s *Set) Remove(name string) bool {
	p := s.Get(name)
	if p == nil {
		return false
	}
	for k, v := range s.byName {
		if v == p {
			delete(s.byName, k)
		}
	}
	s.params = slices.DeleteFunc(s.params, func(q *Param) bool { return q == p })
	return true
}

// Params returns the parameters of s in the order they were added.
func (s *Set) Params() []*Param {
	return slices.Clone(s.params)
}

// RegisterPrefix declares a prefix family.
func (s *Set) RegisterPrefix(f Prefix) {
	s.prefixes = append(s.prefixes, f)
}

// MatchPrefix splits name into a registered family and index.
func (s *Set) MatchPrefix(name string) (Prefix, int, bool) {
	name = strings.ToUpper(name)
	for _, f := range s.prefixes {
		rest, ok := strings.CutPrefix(name, f.Base)
		if !ok || rest == "" || rest[0] < '0' || rest[0] > '9' {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		return f, n, true
	}
	return Prefix{}, 0, false
}

// Ensure returns the named parameter, first creating it if it is a new
// member of a registered family.
func (s *Set) Ensure(name string) (*Param, error) {
	if p := s.Get(name); p != nil {
		return p, nil
	}
	f, n, ok := s.MatchPrefix(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
	}
	p := f.Param(n)
	if err := s.Add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Family returns the members of family base present in s, ordered by
// index.
func (s *Set) Family(base string) []*Param {
	var fam []*Param
	for _, p := range s.params {
		if p.Prefix == base {
			fam = append(fam, p)
		}
	}
	slices.SortFunc(fam, func(a, b *Param) int { return a.Index - b.Index })
	return fam
}

// CheckContiguous verifies that the members of family base with index 1
// or more run 1, 2, ... without a gap.  It returns the highest index,
// zero for an empty family.  A gap is reported as a *MissingParameterError
// naming the first absent member.
func (s *Set) CheckContiguous(component, base string) (int, error) {
	present := map[int]bool{}
	hi := 0
	for _, p := range s.Family(base) {
		if p.Index < 1 {
			continue
		}
		present[p.Index] = true
		hi = max(hi, p.Index)
	}
	var gaps []string
	for i := 1; i < hi; i++ {
		if !present[i] {
			gaps = append(gaps, base+strconv.Itoa(i))
		}
	}
	if len(gaps) > 0 {
		return hi, &MissingParameterError{
			Component: component,
			Param:     gaps[0],
			Reason:    fmt.Sprintf("%s terms must be contiguous", base),
			Gaps:      gaps,
		}
	}
	return hi, nil
}
