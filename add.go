package apegears

import (
	"reflect"
	"strings"

	"github.com/posener/complete"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/slices"
)

// PositionalVar configures AddPositional.
type PositionalVar struct {
	// Name is the positional's display name. Leave empty to adopt the
	// first name from the type's spec, or to go by Dest alone. Setting
	// both Name and Dest is a definition error.
	Name string
	Dest string
	// Type names the value type: a registry tag, a Converter, a
	// reflect.Type, a Spec, a SpecProvider, or a sample value of a
	// registered type. Unset means plain string.
	Type        interface{}
	NArgs       NArgs
	Default     interface{}
	Choices     []interface{}
	Help        string
	Metavar     string
	PostProcess func(interface{}) (interface{}, error)
	Completion  complete.Predictor
}

// AddPositional registers a positional argument. Supplying a default makes
// the positional optional, which demands the zero-or-one arity: an unset
// NArgs is promoted to ZeroOrOne, any other arity is a definition error.
func (p *Parser) AddPositional(v *PositionalVar) (*Argument, error) {
	return p.addArgument(&Argument{
		Name:        v.Name,
		Dest:        v.Dest,
		Action:      Store,
		NArgs:       v.NArgs,
		Type:        v.Type,
		Default:     v.Default,
		Choices:     v.Choices,
		Help:        v.Help,
		Metavar:     v.Metavar,
		PostProcess: v.PostProcess,
		Completion:  v.Completion,
	}, true)
}

// OptionVar configures AddOption.
type OptionVar struct {
	// Flags holds the option's names. Bare names are dash-normalized;
	// leave empty to adopt the type spec's names. The first long name
	// (or the shorthand) derives Dest unless Dest is set.
	Flags       []string
	Dest        string
	Type        interface{}
	NArgs       NArgs
	Default     interface{}
	Choices     []interface{}
	Required    bool
	Help        string
	Metavar     string
	Hidden      bool
	EnvVar      string
	PostProcess func(interface{}) (interface{}, error)
	Completion  complete.Predictor
	SetHook     func(interface{})
}

// AddOption registers an optional (flagged) argument storing a single
// value per occurrence, or a value list when NArgs says so.
func (p *Parser) AddOption(v *OptionVar) (*Argument, error) {
	return p.addArgument(&Argument{
		Flags:       v.Flags,
		Dest:        v.Dest,
		Action:      Store,
		NArgs:       v.NArgs,
		Type:        v.Type,
		Default:     v.Default,
		Choices:     v.Choices,
		Required:    v.Required,
		Help:        v.Help,
		Metavar:     v.Metavar,
		Hidden:      v.Hidden,
		EnvVar:      v.EnvVar,
		PostProcess: v.PostProcess,
		Completion:  v.Completion,
		SetHook:     v.SetHook,
	}, false)
}

// FlagVar configures AddFlag. A flag is a boolean store-true option; it
// deliberately has no Type, NArgs, Default or Choices.
type FlagVar struct {
	Flags  []string
	Dest   string
	Help   string
	Hidden bool
	EnvVar string
	// OmitNegative suppresses the hidden --no-X companion flag.
	OmitNegative bool
	SetHook      func(interface{})
}

// AddFlag registers a boolean flag defaulting to false. Unless
// OmitNegative is set, one hidden negated companion is registered too:
// -v/--verbose gains --no-verbose, a bare -f gains --no-f.
func (p *Parser) AddFlag(v *FlagVar) (*Argument, error) {
	a := &Argument{
		Flags:    v.Flags,
		Dest:     v.Dest,
		Action:   StoreTrue,
		Help:     v.Help,
		Hidden:   v.Hidden,
		EnvVar:   v.EnvVar,
		SetHook:  v.SetHook,
		convert:  Bool,
		typeName: "bool",
	}
	a, err := p.addArgument(a, false)
	if err != nil {
		return nil, err
	}
	if !v.OmitNegative {
		neg := &Argument{
			Flags:    negativeFlags(a.Flags),
			Dest:     a.Dest,
			Action:   StoreFalse,
			Hidden:   true,
			SetHook:  v.SetHook,
			shadow:   true,
			convert:  Bool,
			typeName: "bool",
		}
		if _, err := p.addArgument(neg, false); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// ListVar configures AddList.
type ListVar struct {
	Flags    []string
	Dest     string
	Type     interface{}
	NArgs    NArgs
	Default  []interface{}
	Choices  []interface{}
	Required bool
	// MergeDefault keeps the engine's historical behavior of appending
	// onto a non-empty default. Left false, the default is discarded on
	// the first occurrence and values accumulate from empty.
	MergeDefault bool
	Help         string
	Metavar      string
	Hidden       bool
	EnvVar       string
	PostProcess  func(interface{}) (interface{}, error)
	Completion   complete.Predictor
	SetHook      func(interface{})
}

// AddList registers an accumulating option: every occurrence extends the
// destination list with its values. NArgs defaults to OneOrMore;
// ZeroOrOne is not a list arity. An absent Default means the empty list,
// never the type spec's default. Required means the list must be
// non-empty once parsing completes.
func (p *Parser) AddList(v *ListVar) (*Argument, error) {
	nargs := v.NArgs
	switch nargs {
	case 0:
		nargs = OneOrMore
	case ZeroOrOne:
		return nil, configErrorf("list argument cannot use nargs '?'")
	}
	a := &Argument{
		Flags:         v.Flags,
		Dest:          v.Dest,
		Action:        Extend,
		NArgs:         nargs,
		Type:          v.Type,
		Choices:       v.Choices,
		Required:      v.Required,
		StrictDefault: !v.MergeDefault,
		Help:          v.Help,
		Metavar:       v.Metavar,
		Hidden:        v.Hidden,
		EnvVar:        v.EnvVar,
		PostProcess:   v.PostProcess,
		Completion:    v.Completion,
		SetHook:       v.SetHook,
	}
	// Set before registration, so the type spec's default is never
	// adopted in its place.
	if v.Default != nil {
		a.Default = v.Default
	} else {
		a.Default = []interface{}{}
	}
	return p.addArgument(a, false)
}

// DictVar configures AddDict. Dict arguments deliberately have no Choices.
type DictVar struct {
	Flags []string
	Dest  string
	// Type is the value type of each KEY=VALUE pair; KeyType is the key
	// type. Both default to plain strings.
	KeyType interface{}
	Type    interface{}
	// Delim separates key from value within a token; default "=". Only
	// the first occurrence splits, so values may contain the delimiter.
	Delim      string
	KeyMetavar string
	NArgs      NArgs
	Default    *orderedmap.OrderedMap[interface{}, interface{}]
	Required   bool
	// MergeDefault keeps the engine's historical behavior of updating a
	// non-empty default in place. Left false, the default is discarded
	// on the first occurrence and pairs accumulate from empty.
	MergeDefault bool
	Help         string
	Metavar      string
	Hidden       bool
	EnvVar       string
	PostProcess  func(interface{}) (interface{}, error)
	Completion   complete.Predictor
	SetHook      func(interface{})
}

// AddDict registers an accumulating KEY=VALUE option: every occurrence
// folds its pairs into the destination dict, which preserves the order
// keys first appeared. A repeated key updates the earlier entry in place.
// NArgs defaults to OneOrMore; ZeroOrOne is not a dict arity. An absent
// Default means the empty dict. Required means the dict must be
// non-empty once parsing completes.
func (p *Parser) AddDict(v *DictVar) (*Argument, error) {
	nargs := v.NArgs
	switch nargs {
	case 0:
		nargs = OneOrMore
	case ZeroOrOne:
		return nil, configErrorf("dict argument cannot use nargs '?'")
	}
	delim := v.Delim
	if delim == "" {
		delim = "="
	}

	kSpec, kConv, kTag, err := p.resolveType(v.KeyType)
	if err != nil {
		return nil, err
	}
	vSpec, vConv, vTag, err := p.resolveType(v.Type)
	if err != nil {
		return nil, err
	}

	a := &Argument{
		Flags:         v.Flags,
		Dest:          v.Dest,
		Action:        SetItems,
		NArgs:         nargs,
		Required:      v.Required,
		StrictDefault: !v.MergeDefault,
		Help:          v.Help,
		Metavar:       v.Metavar,
		Hidden:        v.Hidden,
		EnvVar:        v.EnvVar,
		PostProcess:   v.PostProcess,
		Completion:    v.Completion,
		SetHook:       v.SetHook,
		convert:       KeyValueConverter(kConv, vConv, delim),
		typeName:      "key" + delim + "value",
	}
	if v.Default != nil {
		a.Default = v.Default
	} else {
		a.Default = orderedmap.New[interface{}, interface{}]()
	}

	// The composed converter owns conversion, so only surface details are
	// adopted from the value type's spec.
	if len(a.Flags) == 0 && vSpec != nil {
		a.Flags = slices.Clone(vSpec.Names)
	}
	if a.Help == "" && vSpec != nil {
		a.Help = vSpec.Help
	}
	if a.PostProcess == nil && vSpec != nil {
		a.PostProcess = vSpec.PostProcess
	}
	if a.Completion == nil && vSpec != nil {
		a.Completion = vSpec.Completion
	}
	if a.Metavar == "" {
		a.Metavar = dictMetavar(v.KeyMetavar, kSpec, vSpec, kTag, vTag, delim)
	}

	return p.addArgument(a, false)
}

// dictMetavar builds the KEY=VALUE display form. Each side prefers an
// explicit metavar, then the spec's metavar, then the bare type tag.
func dictMetavar(keyMetavar string, kSpec, vSpec *Spec, kTag, vTag, delim string) string {
	km := keyMetavar
	if km == "" && kSpec != nil {
		km = kSpec.Metavar
	}
	if km == "" {
		km = kTag
	}
	if km == "" {
		km = "KEY"
	}
	vm := ""
	if vSpec != nil {
		vm = vSpec.Metavar
	}
	if vm == "" {
		vm = vTag
	}
	if vm == "" {
		vm = "VALUE"
	}
	return km + delim + vm
}

// AddArgument registers an argument built by hand. It is the generic
// entry point under the shape adders; no shape defaults are applied, so
// the Argument is taken as-is after spec resolution.
func (p *Parser) AddArgument(a *Argument) (*Argument, error) {
	return p.addArgument(a, false)
}

func (p *Parser) addArgument(a *Argument, positionalIntent bool) (*Argument, error) {
	if a == nil {
		return nil, configErrorf("nil argument")
	}
	if !a.NArgs.valid() {
		return nil, configErrorf("invalid nargs %d", a.NArgs)
	}

	if a.convert == nil {
		spec, conv, tname, err := p.resolveType(a.Type)
		if err != nil {
			return nil, err
		}
		a.convert = conv
		if a.typeName == "" {
			a.typeName = tname
		}
		a.applySpec(spec)
		if a.Name == "" && len(a.Flags) == 0 && spec != nil && len(spec.Names) > 0 {
			if positionalIntent {
				a.Name = spec.Names[0]
			} else {
				a.Flags = slices.Clone(spec.Names)
			}
		}
	}

	if positionalIntent && a.Name != "" && a.Dest != "" {
		return nil, configErrorf("dest supplied twice for positional argument")
	}
	if a.Name == "" && len(a.Flags) == 0 {
		if !positionalIntent || a.Dest == "" {
			return nil, configErrorf("argument needs a name or flags")
		}
		// A dest-only positional goes by its dest.
		a.Name = a.Dest
	}
	if a.Name != "" && len(a.Flags) > 0 {
		return nil, configErrorf("argument %q cannot have flags as well", a.Name)
	}

	if a.positional() {
		if strings.HasPrefix(a.Name, "-") {
			return nil, configErrorf("positional name %q must not begin with '-'", a.Name)
		}
		if positionalIntent && a.Default != nil {
			switch a.NArgs {
			case 0:
				a.NArgs = ZeroOrOne
			case ZeroOrOne:
			default:
				return nil, configErrorf("argument %s: a default requires nargs '?'", a.Name)
			}
		}
		if a.Action != Store {
			return nil, configErrorf("positional %s supports only the store action", a.Name)
		}
	} else {
		fixed := make([]string, 0, len(a.Flags))
		for _, fl := range a.Flags {
			ff, err := fixFlag(fl)
			if err != nil {
				return nil, err
			}
			fixed = append(fixed, ff)
		}
		a.Flags = fixed
		if err := a.classifyFlags(); err != nil {
			return nil, err
		}
	}

	if a.Dest == "" {
		switch {
		case a.positional():
			a.Dest = identifier(a.Name)
		case len(a.longs) > 0:
			a.Dest = identifier(a.longs[0])
		default:
			a.Dest = a.shorthand
		}
	}

	if !a.shadow {
		if prev, ok := p.dests[a.Dest]; ok {
			return nil, configErrorf("destination %q already used by %s", a.Dest, prev.displayName())
		}
		p.dests[a.Dest] = a
	}

	if a.convert == nil {
		a.convert = String
	}
	if a.typeName == "" {
		switch a.Action {
		case StoreTrue, StoreFalse:
			a.typeName = "bool"
		case Count:
			a.typeName = "count"
		default:
			a.typeName = "string"
		}
	}

	if a.positional() {
		p.positionals = append(p.positionals, a)
	} else if err := p.bindFlags(a); err != nil {
		return nil, err
	}
	p.args = append(p.args, a)
	return a, nil
}

// resolveType resolves an adder's Type reference to a spec and converter.
// Converters are used directly; tags, types and sample values go through
// the registry; a SpecProvider or literal Spec supplies itself.
func (p *Parser) resolveType(ref interface{}) (*Spec, Converter, string, error) {
	switch t := ref.(type) {
	case nil:
		return nil, nil, "", nil
	case Converter:
		return nil, t, "", nil
	case func(string) (interface{}, error):
		return nil, Converter(t), "", nil
	case *Spec:
		return t, t.FromString, "", nil
	case Spec:
		return &t, t.FromString, "", nil
	case SpecProvider:
		s := t.ArgSpec()
		return s, specConverter(s), "", nil
	case string:
		s := p.registry.Find(t)
		if s == nil {
			return nil, nil, "", configErrorf("unknown type tag %q", t)
		}
		return s, specConverter(s), t, nil
	case reflect.Type:
		s := p.registry.Find(t)
		if s == nil {
			return nil, nil, "", configErrorf("no argument spec for type %s", t)
		}
		return s, specConverter(s), "", nil
	default:
		rt := reflect.TypeOf(ref)
		s := p.registry.Find(rt)
		if s == nil {
			return nil, nil, "", configErrorf("no argument spec for type %s", rt)
		}
		return s, specConverter(s), "", nil
	}
}

func specConverter(s *Spec) Converter {
	if s == nil {
		return nil
	}
	return s.FromString
}

// applySpec merges a resolved spec into the definition. Explicit fields
// win; the spec fills what is unset. The converter always comes from the
// spec when it has one, and required arguments never adopt the spec's
// default.
func (a *Argument) applySpec(s *Spec) {
	if s == nil {
		return
	}
	if s.FromString != nil {
		a.convert = s.FromString
	}
	if a.Default == nil && !a.Required && s.Default != nil {
		a.Default = *s.Default
	}
	if a.PostProcess == nil {
		a.PostProcess = s.PostProcess
	}
	if a.Choices == nil && len(s.Choices) > 0 {
		a.Choices = slices.Clone(s.Choices)
	}
	if a.Help == "" {
		a.Help = s.Help
	}
	if a.Metavar == "" {
		a.Metavar = s.Metavar
	}
	if a.Completion == nil {
		a.Completion = s.Completion
	}
}

// fixFlag normalizes a flag name to its dashed form: "x" becomes "-x",
// "xx" becomes "--xx". Already-dashed names pass through.
func fixFlag(name string) (string, error) {
	if name == "" {
		return "", configErrorf("empty flag name")
	}
	if strings.HasPrefix(name, "--") {
		if len(name) == 2 || name[2] == '-' {
			return "", configErrorf("invalid flag name %q", name)
		}
		return name, nil
	}
	if strings.HasPrefix(name, "-") {
		if len(name) == 1 {
			return "", configErrorf("invalid flag name %q", name)
		}
		return name, nil
	}
	if len(name) == 1 {
		return "-" + name, nil
	}
	return "--" + name, nil
}

// negativeFlags derives the single --no-X companion form for a boolean
// flag: the first long form is negated, or the shorthand when the flag
// has no long form, so -f becomes --no-f.
func negativeFlags(flags []string) []string {
	for _, f := range flags {
		if strings.HasPrefix(f, "--") {
			return []string{"--no-" + f[2:]}
		}
	}
	if len(flags) == 0 {
		return nil
	}
	return []string{"--no-" + strings.TrimPrefix(flags[0], "-")}
}

func (a *Argument) classifyFlags() error {
	a.shorthand = ""
	a.longs = a.longs[:0]
	for _, f := range a.Flags {
		if strings.HasPrefix(f, "--") {
			a.longs = append(a.longs, f[2:])
			continue
		}
		s := strings.TrimPrefix(f, "-")
		if len(s) != 1 {
			return configErrorf("short flag %q must be a single character", f)
		}
		if a.shorthand != "" {
			return configErrorf("argument %s: at most one short flag", a.displayName())
		}
		a.shorthand = s
	}
	return nil
}

// identifier derives a destination name: dashes become underscores, so
// --log-levels lands at "log_levels".
func identifier(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

