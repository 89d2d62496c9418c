package apegears

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"

	"github.com/posener/complete"
	"github.com/ryanuber/columnize"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SpecGenerator derives a spec for types that have no explicit registry
// entry. Generators run in registration order; returning nil means
// "not mine".
type SpecGenerator func(reflect.Type) *Spec

// Registry maps argument types to their specs. Keys are string tags
// (looked up when an adder is given a tag like "date") or reflect.Type
// values (looked up when it is given a type or a sample value).
//
// Lookups that miss the explicit entries fall through to the type's own
// SpecProvider implementation, then to the generator table. A lookup never
// fails; it returns nil when nothing matches.
type Registry struct {
	tags  map[string]*Spec
	types map[reflect.Type]*Spec
	gens  []SpecGenerator
}

// DefaultRegistry is the process-wide registry. The standard types (range,
// date, timestamp, duration, path, regex, ip, literal and the plain scalar
// tags) are registered into it at init time.
var DefaultRegistry = NewRegistry()

// Register associates a spec with a key in the default registry.
func Register(key, spec interface{}) { DefaultRegistry.Register(key, spec) }

// Find looks a spec up in the default registry.
func Find(key interface{}) *Spec { return DefaultRegistry.Find(key) }

// NewRegistry returns an empty registry carrying only the built-in
// generators (enum-style lookups registered later, encoding.TextUnmarshaler
// implementations, and pflag-style Set/String value types). Use
// RegisterStandardTypes to add the standard type table.
func NewRegistry() *Registry {
	return &Registry{
		tags:  map[string]*Spec{},
		types: map[reflect.Type]*Spec{},
		gens:  []SpecGenerator{textUnmarshalerSpec, setterSpec},
	}
}

// Register associates a spec with a key. The key is a string tag, a
// reflect.Type, or a sample value whose dynamic type becomes the key. The
// spec may be given as *Spec, Spec or a SpecProvider. Registering an
// existing key overwrites it.
func (r *Registry) Register(key, spec interface{}) {
	s := normalizeSpec(spec)
	switch k := key.(type) {
	case string:
		r.tags[k] = s
	case reflect.Type:
		r.types[k] = s
	default:
		r.types[reflect.TypeOf(key)] = s
	}
}

// RegisterGenerator appends a generator to the fallback chain.
func (r *Registry) RegisterGenerator(g SpecGenerator) {
	r.gens = append(r.gens, g)
}

// Find resolves a key to a spec, or nil when nothing matches. Key forms are
// the same as Register's.
func (r *Registry) Find(key interface{}) *Spec {
	switch k := key.(type) {
	case string:
		return r.tags[k]
	case reflect.Type:
		return r.findType(k)
	default:
		return r.findType(reflect.TypeOf(key))
	}
}

func (r *Registry) findType(t reflect.Type) *Spec {
	if t == nil {
		return nil
	}
	if s, ok := r.types[t]; ok {
		return s
	}
	if t.Kind() == reflect.Pointer {
		if s, ok := r.types[t.Elem()]; ok {
			return s
		}
	}
	if s := providerSpec(t); s != nil {
		return s
	}
	for _, g := range r.gens {
		if s := g(t); s != nil {
			return s
		}
	}
	return nil
}

// Describe returns a readable table of the registered keys, for docs and
// debugging surfaces.
func (r *Registry) Describe() string {
	rows := []string{"Key | Names | Help"}

	tags := maps.Keys(r.tags)
	slices.Sort(tags)
	for _, tag := range tags {
		rows = append(rows, describeRow(tag, r.tags[tag]))
	}

	types := maps.Keys(r.types)
	slices.SortFunc(types, func(a, b reflect.Type) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, t := range types {
		rows = append(rows, describeRow(t.String(), r.types[t]))
	}

	return columnize.SimpleFormat(rows)
}

func describeRow(key string, s *Spec) string {
	help := s.Help
	if help == "" {
		help = "-"
	}
	names := strings.Join(s.Names, ",")
	if names == "" {
		names = "-"
	}
	return fmt.Sprintf("%s | %s | %s", key, names, help)
}

var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	specProviderType    = reflect.TypeOf((*SpecProvider)(nil)).Elem()
)

// stringSetter is the pflag-style value contract. Types implementing it can
// be used as argument types without any registration.
type stringSetter interface {
	Set(string) error
	String() string
}

var stringSetterType = reflect.TypeOf((*stringSetter)(nil)).Elem()

func providerSpec(t reflect.Type) *Spec {
	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if reflect.PointerTo(base).Implements(specProviderType) {
		return reflect.New(base).Interface().(SpecProvider).ArgSpec()
	}
	if base.Implements(specProviderType) {
		return reflect.New(base).Elem().Interface().(SpecProvider).ArgSpec()
	}
	return nil
}

// textUnmarshalerSpec generates a spec for types implementing
// encoding.TextUnmarshaler.
func textUnmarshalerSpec(t reflect.Type) *Spec {
	base, wantPtr := derefType(t)
	if !reflect.PointerTo(base).Implements(textUnmarshalerType) {
		return nil
	}
	return &Spec{
		FromString: func(s string) (interface{}, error) {
			v := reflect.New(base)
			if err := v.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
				return nil, err
			}
			if wantPtr {
				return v.Interface(), nil
			}
			return v.Elem().Interface(), nil
		},
	}
}

// setterSpec generates a spec for types satisfying the pflag-style
// Set/String contract.
func setterSpec(t reflect.Type) *Spec {
	base, _ := derefType(t)
	if !reflect.PointerTo(base).Implements(stringSetterType) {
		return nil
	}
	return &Spec{
		FromString: func(s string) (interface{}, error) {
			v := reflect.New(base)
			if err := v.Interface().(stringSetter).Set(s); err != nil {
				return nil, err
			}
			return v.Interface(), nil
		},
	}
}

func derefType(t reflect.Type) (base reflect.Type, wasPtr bool) {
	if t.Kind() == reflect.Pointer {
		return t.Elem(), true
	}
	return t, false
}

// EnumSpec builds a spec for an enumeration given its member set, keyed by
// member name. Conversion looks members up by exact name; an unknown name
// is a value error, never a key error. Names are sorted so help text,
// choices and completion are deterministic.
func EnumSpec[T any](members map[string]T) *Spec {
	t := reflect.TypeOf(*new(T))
	if t == nil || t.Name() == "" {
		panic("apegears: EnumSpec requires a named type")
	}
	lower := strings.ToLower(t.Name())

	names := maps.Keys(members)
	slices.Sort(names)
	choices := make([]interface{}, 0, len(names))
	for _, n := range names {
		choices = append(choices, members[n])
	}
	joined := strings.Join(names, "/")

	return &Spec{
		Names: []string{lower},
		FromString: func(s string) (interface{}, error) {
			v, ok := members[s]
			if !ok {
				return nil, fmt.Errorf("'%s' not valid. Must be one of: %s", s, strings.Join(names, ", "))
			}
			return v, nil
		},
		Choices:    choices,
		Help:       joined,
		Metavar:    strings.ToUpper(t.Name()),
		Completion: complete.PredictSet(names...),
	}
}

// RegisterEnum registers an enumeration's spec under both its lower-cased
// type name tag and its reflect type.
func RegisterEnum[T any](r *Registry, members map[string]T) {
	s := EnumSpec(members)
	r.Register(s.Names[0], s)
	r.Register(reflect.TypeOf(*new(T)), s)
}
