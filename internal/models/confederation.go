package models

import (
	"fmt"
	"strings"
)

// Confederation identifies one of the six continental governing bodies
// running a World Cup qualifying competition.
type Confederation string

const (
	ConfederationAFC      Confederation = "AFC"
	ConfederationCAF      Confederation = "CAF"
	ConfederationCONCACAF Confederation = "CONCACAF"
	ConfederationCONMEBOL Confederation = "CONMEBOL"
	ConfederationOFC      Confederation = "OFC"
	ConfederationUEFA     Confederation = "UEFA"
)

// AllConfederations returns every confederation in stable (alphabetical) order.
func AllConfederations() []Confederation {
	return []Confederation{
		ConfederationAFC,
		ConfederationCAF,
		ConfederationCONCACAF,
		ConfederationCONMEBOL,
		ConfederationOFC,
		ConfederationUEFA,
	}
}

// IsValid reports whether c is one of the six known confederations.
func (c Confederation) IsValid() bool {
	switch c {
	case ConfederationAFC, ConfederationCAF, ConfederationCONCACAF,
		ConfederationCONMEBOL, ConfederationOFC, ConfederationUEFA:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (c Confederation) String() string {
	return string(c)
}

// ParseConfederation normalizes a raw confederation name (any case,
// surrounding whitespace tolerated) into a Confederation.
func ParseConfederation(s string) (Confederation, error) {
	c := Confederation(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: unknown confederation %q", ErrInvalidInput, s)
	}
	return c, nil
}
