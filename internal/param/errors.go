// Public domain.

package param

import (
	"errors"
	"strings"
)

// ErrMissing is matched by every *MissingParameterError.
var ErrMissing = errors.New("missing parameter")

// MissingParameterError reports a parameter that a model component
// requires but that is absent or unset.
type MissingParameterError struct {
	Component string // component that needs the parameter
	Param     string // first missing parameter
	Reason    string
	Gaps      []string // every missing family member, when a family has gaps
}

// Missing returns a *MissingParameterError.
func Missing(component, name, reason string) error {
	return &MissingParameterError{Component: component, Param: name, Reason: reason}
}

func (e *MissingParameterError) Error() string {
	var b strings.Builder
	b.WriteString(e.Component)
	b.WriteString(": missing parameter ")
	b.WriteString(e.Param)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Gaps) > 1 {
		b.WriteString(" (absent: ")
		b.WriteString(strings.Join(e.Gaps, ", "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *MissingParameterError) Unwrap() error { return ErrMissing }
