// Package apegears is an argument-definition layer over the spf13/pflag
// package. It keeps pflag as the parsing engine and adds the pieces an
// argparse-style command line needs on top of it: positional arguments,
// a registry of reusable per-type argument specs, list and dict arguments
// with correct default handling, post-parse processing hooks, and required
// enforcement that understands accumulated values.
//
// Arguments are declared through a small set of shape adders
// (AddPositional, AddOption, AddFlag, AddList, AddDict), each taking a
// typed config struct. Parsing produces a Values record keyed by
// destination name rather than scattering results across target pointers.
//
// Types registered once, via Register or RegisterEnum, carry their own
// flag names, converter, default, help text, metavar and completion
// predictor, so call sites can stay as small as
//
//	p.AddOption(&apegears.OptionVar{Type: "date"})
package apegears
