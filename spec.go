package apegears

import (
	"github.com/posener/complete"
)

// Converter turns a single command-line token into a typed value.
type Converter func(string) (interface{}, error)

// Spec describes how values of some type are defined on the command line.
// A Spec bundles everything that is usually repeated at each call site:
// candidate flag names, the string converter, a default, a post-parse
// transformation, the restricted value set, help text, the metavar used in
// usage messages, and a shell completion predictor.
//
// All fields are optional. A zero field means "unset" and is eligible to be
// filled from elsewhere when the spec is merged into an argument
// definition. Default is a *string because the empty string is a legal
// default value; it is converted through FromString when parsing begins.
type Spec struct {
	Names       []string
	Default     *string
	FromString  Converter
	PostProcess func(interface{}) (interface{}, error)
	Choices     []interface{}
	Help        string
	Metavar     string
	Completion  complete.Predictor
}

// SpecProvider is implemented by types that carry their own argument spec.
// It is consulted when a type is used as an argument type but has no
// registry entry.
type SpecProvider interface {
	ArgSpec() *Spec
}

// DefaultString is a convenience for populating Spec.Default.
func DefaultString(s string) *string { return &s }

// normalizeSpec accepts the forms Register takes a spec in: *Spec, Spec, or
// a SpecProvider. Anything else is a programming error.
func normalizeSpec(v interface{}) *Spec {
	switch s := v.(type) {
	case *Spec:
		return s
	case Spec:
		return &s
	case SpecProvider:
		return s.ArgSpec()
	}
	panic("apegears: spec must be a Spec, *Spec or SpecProvider")
}
