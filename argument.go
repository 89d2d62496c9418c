package apegears

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/posener/complete"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/slices"
)

// NArgs says how many value tokens one occurrence of an argument binds.
// The zero value means "unset": exactly one token for options and plain
// positionals, with each shape adder free to pick its own default.
// Positive values demand exactly that many tokens.
type NArgs int

const (
	// ZeroOrOne binds at most one token.
	ZeroOrOne NArgs = -1
	// ZeroOrMore binds any number of tokens, including none.
	ZeroOrMore NArgs = -2
	// OneOrMore binds at least one token.
	OneOrMore NArgs = -3
)

func (n NArgs) String() string {
	switch n {
	case 0:
		return ""
	case ZeroOrOne:
		return "?"
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	}
	return strconv.Itoa(int(n))
}

func (n NArgs) valid() bool { return n >= OneOrMore }

// perOccurrence returns the minimum and maximum number of tokens a single
// occurrence may bind. max < 0 means unbounded.
func (n NArgs) perOccurrence() (min, max int) {
	switch {
	case n > 0:
		return int(n), int(n)
	case n == ZeroOrOne:
		return 0, 1
	case n == ZeroOrMore:
		return 0, -1
	case n == OneOrMore:
		return 1, -1
	}
	return 1, 1
}

// multi reports whether one occurrence can bind more than one token, which
// means the parsed result for the occurrence is a list.
func (n NArgs) multi() bool { return n != 0 && n != ZeroOrOne }

// Action says what an occurrence does with its converted value(s).
type Action int

const (
	// Store replaces the destination with the occurrence's value.
	Store Action = iota
	// StoreTrue stores true; the flag takes no value tokens.
	StoreTrue
	// StoreFalse stores false; the flag takes no value tokens.
	StoreFalse
	// Count increments the destination per occurrence.
	Count
	// Append appends the occurrence's value as one list element.
	Append
	// Extend appends each of the occurrence's values to the list.
	Extend
	// SetItems folds KEY=VALUE occurrences into an ordered dict.
	SetItems
)

func (a Action) String() string {
	switch a {
	case Store:
		return "store"
	case StoreTrue:
		return "store_true"
	case StoreFalse:
		return "store_false"
	case Count:
		return "count"
	case Append:
		return "append"
	case Extend:
		return "extend"
	case SetItems:
		return "set_items"
	}
	return "unknown"
}

// accumulates reports whether the action folds occurrences into a
// collection. Accumulating destinations are the ones subject to the
// default correction and to emptiness-based required enforcement.
func (a Action) accumulates() bool {
	return a == Append || a == Extend || a == SetItems
}

func (a Action) takesValue() bool {
	return a != StoreTrue && a != StoreFalse && a != Count
}

// Argument is one registered argument. The shape adders construct these;
// AddArgument registers one built by hand.
type Argument struct {
	// Name is the positional name. Exactly one of Name and Flags must be
	// set (possibly adopted from the type's spec).
	Name string
	// Flags holds the option's forms. Bare names are normalized: a
	// single-rune name becomes "-x", longer ones become "--xxx".
	Flags []string

	Dest     string
	Action   Action
	NArgs    NArgs
	Type     interface{}
	Default  interface{}
	Choices  []interface{}
	Required bool
	Help     string
	Metavar  string
	Hidden   bool
	EnvVar   string

	// StrictDefault discards a still-untouched default on the first
	// accumulating occurrence instead of appending to it.
	StrictDefault bool

	PostProcess func(interface{}) (interface{}, error)
	Completion  complete.Predictor
	SetHook     func(interface{})

	convert   Converter
	typeName  string
	shorthand string   // single-char form, without the dash
	longs     []string // long forms, without the dashes

	// shadow marks internally generated companions (the --no-X twins).
	// They share a destination with their primary and are skipped by
	// seeding, help, post-processing and required enforcement.
	shadow bool

	// per-parse state
	seeded   interface{}
	occurred bool
}

func (a *Argument) positional() bool { return a.Name != "" }

// displayName is how the argument is referred to in errors: the positional
// name, or the option's forms joined with "/".
func (a *Argument) displayName() string {
	if a.positional() {
		return a.Name
	}
	return strings.Join(a.Flags, "/")
}

// greedy reports whether option occurrences bind following tokens beyond
// what the flag engine would give them.
func (a *Argument) greedy() bool {
	return !a.positional() && a.NArgs != 0 && a.Action.takesValue()
}

// metavar returns the display name for the argument's value in usage text.
func (a *Argument) metavar() string {
	if a.Metavar != "" {
		return a.Metavar
	}
	if a.positional() {
		return a.Name
	}
	return strings.ToUpper(a.Dest)
}

func (a *Argument) emptyValue() interface{} {
	if a.Action == SetItems {
		return orderedmap.New[interface{}, interface{}]()
	}
	return []interface{}{}
}

// firstTouch runs once per parse, on the argument's first occurrence.
// Under StrictDefault it discards a default that is still untouched, so
// occurrences accumulate from empty instead of appending to the default.
func (a *Argument) firstTouch(bag *Values) {
	if a.occurred {
		return
	}
	a.occurred = true
	if !a.StrictDefault || !a.Action.accumulates() {
		return
	}
	if cur, ok := bag.Get(a.Dest); ok && !reflect.DeepEqual(cur, a.seeded) {
		return
	}
	bag.Set(a.Dest, a.emptyValue())
}

// convertChecked converts one token and validates it against Choices.
func (a *Argument) convertChecked(s string) (interface{}, error) {
	v, err := a.convert(s)
	if err != nil {
		return nil, err
	}
	if len(a.Choices) > 0 {
		ok := slices.ContainsFunc(a.Choices, func(c interface{}) bool {
			return reflect.DeepEqual(c, v)
		})
		if !ok {
			return nil, fmt.Errorf("'%v' not valid. Must be one of: %s", v, joinChoices(a.Choices))
		}
	}
	return v, nil
}

func (a *Argument) runHook(v interface{}) {
	if a.SetHook != nil {
		a.SetHook(v)
	}
}

func joinChoices(choices []interface{}) string {
	parts := make([]string, len(choices))
	for i, c := range choices {
		parts[i] = fmt.Sprintf("%v", c)
	}
	return strings.Join(parts, ", ")
}
