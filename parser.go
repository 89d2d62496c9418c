package apegears

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/posener/complete"
	"github.com/spf13/pflag"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/slices"
)

// Parser assembles argument definitions and parses command lines against
// them. The flag grammar itself is pflag's; the parser contributes spec
// resolution, positional assignment, accumulation with correct default
// handling, post-processing and required enforcement.
//
// The supported pattern is build, add arguments, parse once. Errors and
// usage output are controlled by the caller (or by MustParse); nothing is
// printed during Parse.
type Parser struct {
	name        string
	description string
	registry    *Registry
	out         io.Writer
	errOut      io.Writer
	exit        func(int)
	noHelp      bool

	fs            *pflag.FlagSet
	args          []*Argument
	positionals   []*Argument
	dests         map[string]*Argument
	longFlags     map[string]*Argument
	shortFlags    map[string]*Argument
	completions   complete.Flags
	numericFlags  bool
	helpRequested bool
	vals          *Values
}

// Option configures a Parser at construction.
type Option func(*Parser)

// WithDescription sets the text printed between the usage line and the
// argument sections of help output.
func WithDescription(desc string) Option {
	return func(p *Parser) { p.description = desc }
}

// WithRegistry gives the parser an isolated spec registry instead of
// DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(p *Parser) { p.registry = r }
}

// WithOutput redirects help output (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(p *Parser) { p.out = w }
}

// WithErrorOutput redirects error output (default os.Stderr).
func WithErrorOutput(w io.Writer) Option {
	return func(p *Parser) { p.errOut = w }
}

// WithoutHelp suppresses the automatic -h/--help flags.
func WithoutHelp() Option {
	return func(p *Parser) { p.noHelp = true }
}

// NewParser returns a parser. An empty name defaults to the program name.
func NewParser(name string, opts ...Option) *Parser {
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	// Errors and usage are expected to be controlled externally by
	// checking on the result of Parse.
	fs.Usage = func() {}
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	p := &Parser{
		name:        name,
		registry:    DefaultRegistry,
		out:         os.Stdout,
		errOut:      os.Stderr,
		exit:        os.Exit,
		fs:          fs,
		dests:       map[string]*Argument{},
		longFlags:   map[string]*Argument{},
		shortFlags:  map[string]*Argument{},
		completions: complete.Flags{},
	}
	for _, o := range opts {
		o(p)
	}

	if !p.noHelp {
		help := &Argument{
			Flags:    []string{"-h", "--help"},
			Dest:     "help",
			Action:   StoreTrue,
			Help:     "Show this help message and exit.",
			shadow:   true,
			convert:  Bool,
			typeName: "bool",
			SetHook: func(v interface{}) {
				if b, ok := v.(bool); ok && b {
					p.helpRequested = true
				}
			},
		}
		if _, err := p.addArgument(help, false); err != nil {
			panic(err)
		}
	}
	return p
}

// Name returns the parser's program name.
func (p *Parser) Name() string { return p.name }

// bindFlags registers an option's forms with the flag engine. The first
// long form is the primary flag, additional longs become hidden aliases
// sharing the same value, and the shorthand rides on the primary.
func (p *Parser) bindFlags(a *Argument) error {
	val := &argValue{p: p, arg: a}

	primary := a.shorthand
	if len(a.longs) > 0 {
		primary = a.longs[0]
	}
	if p.fs.Lookup(primary) != nil {
		return configErrorf("flag --%s already defined", primary)
	}
	if a.shorthand != "" && p.fs.ShorthandLookup(a.shorthand) != nil {
		return configErrorf("short flag -%s already defined", a.shorthand)
	}

	f := p.fs.VarPF(val, primary, a.shorthand, a.Help)
	f.Hidden = a.Hidden
	setNoOptDefVal(a, f)

	for _, alias := range a.longs[min(1, len(a.longs)):] {
		if p.fs.Lookup(alias) != nil {
			return configErrorf("flag --%s already defined", alias)
		}
		af := p.fs.VarPF(val, alias, "", a.Help)
		af.Hidden = true
		setNoOptDefVal(a, af)
	}

	for _, l := range a.longs {
		p.longFlags[l] = a
	}
	if len(a.longs) == 0 {
		p.longFlags[primary] = a
	}
	if a.shorthand != "" {
		p.shortFlags[a.shorthand] = a
	}
	if a.Completion != nil {
		for _, form := range a.Flags {
			p.completions[form] = a.Completion
		}
	}
	if primary[0] >= '0' && primary[0] <= '9' {
		p.numericFlags = true
	}
	if a.shorthand != "" && a.shorthand[0] >= '0' && a.shorthand[0] <= '9' {
		p.numericFlags = true
	}
	return nil
}

func setNoOptDefVal(a *Argument, f *pflag.Flag) {
	switch {
	case a.Action == StoreTrue || a.Action == StoreFalse:
		f.NoOptDefVal = "true"
	case a.Action == Count:
		f.NoOptDefVal = noValue
	case a.greedy():
		if lo, _ := a.NArgs.perOccurrence(); lo == 0 {
			f.NoOptDefVal = noValue
		}
	}
}

// Parse parses args (without the program name) and returns the resulting
// values. Help requests surface as ErrHelp; nothing is printed.
func (p *Parser) Parse(args []string) (*Values, error) {
	vals, extras, err := p.run(args, false)
	if err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		return nil, fmt.Errorf("unrecognized arguments: %s", strings.Join(extras, " "))
	}
	return vals, nil
}

// ParseKnown parses like Parse but tolerates unknown flags and surplus
// positionals, returning the leftover tokens instead of failing on them.
// Values an unknown flag carried in separate tokens surface as leftovers
// rather than being attributed to the flag.
func (p *Parser) ParseKnown(args []string) (*Values, []string, error) {
	return p.run(args, true)
}

func (p *Parser) run(args []string, tolerate bool) (*Values, []string, error) {
	p.vals = newValues()
	p.helpRequested = false
	if err := p.seedDefaults(); err != nil {
		return nil, nil, err
	}

	var unknown []string
	if tolerate {
		args, unknown = p.extractUnknown(args)
	}
	p.fs.ParseErrorsWhitelist.UnknownFlags = tolerate

	norm, err := p.normalizeArgs(args)
	if err != nil {
		return nil, nil, err
	}
	if err := p.fs.Parse(norm); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil, ErrHelp
		}
		return nil, nil, err
	}
	if p.helpRequested {
		return nil, nil, ErrHelp
	}

	extras, missing, err := p.assignPositionals(p.fs.Args())
	if err != nil {
		return nil, nil, err
	}
	if err := p.runPostProcessors(); err != nil {
		return nil, nil, err
	}
	if err := p.enforceRequired(missing); err != nil {
		return nil, nil, err
	}
	return p.vals, append(unknown, extras...), nil
}

// MustParse is Parse for program entry points: help and errors are
// printed and turned into exit codes. A nil args means os.Args[1:].
func (p *Parser) MustParse(args []string) *Values {
	if args == nil {
		args = os.Args[1:]
	}
	if p.Autocomplete() {
		p.exit(0)
		return nil
	}
	vals, err := p.Parse(args)
	switch {
	case err == nil:
		return vals
	case errors.Is(err, ErrHelp):
		fmt.Fprintln(p.out, p.Help())
		p.exit(0)
	default:
		fmt.Fprintln(p.errOut, p.Usage())
		fmt.Fprintf(p.errOut, "%s: error: %v\n", p.name, err)
		p.exit(2)
	}
	return nil
}

// seedDefaults populates the bag with every argument's effective default
// before the engine runs. An environment variable override replaces the
// declared default but never counts as an occurrence.
func (p *Parser) seedDefaults() error {
	for _, a := range p.args {
		a.occurred = false
		a.seeded = nil
		if a.shadow {
			continue
		}
		def := a.Default
		if a.EnvVar != "" {
			if v, ok := os.LookupEnv(a.EnvVar); ok && v != "" {
				def = v
			}
		}
		if def == nil {
			switch a.Action {
			case StoreTrue:
				def = false
			case StoreFalse:
				def = true
			}
		}
		if def == nil {
			continue
		}
		val, err := a.seedValue(def)
		if err != nil {
			return fmt.Errorf("argument %s: bad default: %v", a.displayName(), err)
		}
		p.vals.Set(a.Dest, val)
		a.seeded = val
	}
	return nil
}

// seedValue prepares a default for the bag: string defaults go through
// the converter, collections are cloned so parsing never mutates the
// definition, anything else is used as-is.
func (a *Argument) seedValue(def interface{}) (interface{}, error) {
	switch v := def.(type) {
	case string:
		val, err := a.convertChecked(v)
		if err != nil {
			return nil, err
		}
		if a.Action.accumulates() {
			if kv, ok := val.(KeyValue); ok {
				m := orderedmap.New[interface{}, interface{}]()
				m.Set(kv.Key, kv.Value)
				return m, nil
			}
			return []interface{}{val}, nil
		}
		return val, nil
	case []interface{}:
		return slices.Clone(v), nil
	case *orderedmap.OrderedMap[interface{}, interface{}]:
		clone := orderedmap.New[interface{}, interface{}]()
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			clone.Set(pair.Key, pair.Value)
		}
		return clone, nil
	}
	return def, nil
}

// normalizeArgs rewrites occurrences of multi-value options into the
// attached forms the engine accepts, binding following value tokens
// greedily: "-x a b" becomes "-xa -xb". Tokens that look like flags stop
// the scan, with an exception for negative numbers when no registered
// flag is numeric. Occurrence arity is enforced here; a bare occurrence
// that legally binds nothing passes through for NoOptDefVal handling.
func (p *Parser) normalizeArgs(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			out = append(out, args[i:]...)
			break
		}

		var arg *Argument
		attach := func(v string) string { return tok + "=" + v }
		switch {
		case strings.HasPrefix(tok, "--"):
			if strings.Contains(tok, "=") {
				out = append(out, tok)
				continue
			}
			arg = p.longFlags[tok[2:]]
		case len(tok) == 2 && tok[0] == '-' && tok[1] != '-':
			arg = p.shortFlags[tok[1:2]]
			attach = func(v string) string { return tok + v }
		}
		if arg == nil || !arg.greedy() {
			out = append(out, tok)
			continue
		}

		lo, hi := arg.NArgs.perOccurrence()
		var vals []string
		for i+1 < len(args) && (hi < 0 || len(vals) < hi) && p.isValueToken(args[i+1]) {
			i++
			vals = append(vals, args[i])
		}
		if len(vals) < lo {
			if lo == 1 {
				return nil, fmt.Errorf("argument %s: expected at least one argument", arg.displayName())
			}
			return nil, fmt.Errorf("argument %s: expected %d arguments", arg.displayName(), lo)
		}
		if len(vals) == 0 {
			out = append(out, tok)
			continue
		}
		if arg.NArgs.multi() && (arg.Action == Store || arg.Action == Append) {
			out = append(out, attach(strings.Join(vals, valueSep)))
			continue
		}
		for _, v := range vals {
			out = append(out, attach(v))
		}
	}
	return out, nil
}

var negNumberRe = regexp.MustCompile(`^-\d+(\.\d*)?$|^-\.\d+$`)

func (p *Parser) isValueToken(s string) bool {
	if s == "" || s == "-" {
		return true
	}
	if s[0] != '-' {
		return true
	}
	return negNumberRe.MatchString(s) && !p.numericFlags
}

// extractUnknown pulls out tokens that look like flags but match no
// registered form, so ParseKnown can report them.
func (p *Parser) extractUnknown(args []string) (kept, unknown []string) {
	kept = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if tok == "--" {
			kept = append(kept, args[i:]...)
			break
		}
		switch {
		case strings.HasPrefix(tok, "--"):
			name := tok[2:]
			if eq := strings.IndexByte(name, '='); eq >= 0 {
				name = name[:eq]
			}
			if p.longFlags[name] == nil {
				unknown = append(unknown, tok)
				continue
			}
		case len(tok) >= 2 && tok[0] == '-' && !p.isValueToken(tok):
			if p.shortFlags[tok[1:2]] == nil {
				unknown = append(unknown, tok)
				continue
			}
		}
		kept = append(kept, tok)
	}
	return kept, unknown
}

// assignPositionals allots the engine's leftover tokens to the registered
// positionals in order. Each positional takes what remains beyond the
// minimum demands of those after it, clamped to its own arity. Shortfalls
// are reported as missing rather than failing immediately, so they join
// the aggregated required error.
func (p *Parser) assignPositionals(tokens []string) (extras, missing []string, err error) {
	n := len(p.positionals)
	mins := make([]int, n)
	maxs := make([]int, n)
	for i, a := range p.positionals {
		mins[i], maxs[i] = a.NArgs.perOccurrence()
	}
	reserve := make([]int, n+1)
	for i := n - 1; i >= 0; i-- {
		reserve[i] = reserve[i+1] + mins[i]
	}

	idx := 0
	for i, a := range p.positionals {
		remaining := len(tokens) - idx
		take := remaining - reserve[i+1]
		if maxs[i] >= 0 && take > maxs[i] {
			take = maxs[i]
		}
		if take < mins[i] {
			take = mins[i]
		}
		if take > remaining {
			take = remaining
		}
		if take < mins[i] {
			missing = append(missing, a.Name)
		}
		if take <= 0 {
			if a.NArgs == ZeroOrMore && !p.vals.Has(a.Dest) {
				p.vals.Set(a.Dest, []interface{}{})
			}
			continue
		}

		toks := tokens[idx : idx+take]
		idx += take
		a.occurred = true

		list := make([]interface{}, 0, len(toks))
		for _, t := range toks {
			v, cerr := a.convertChecked(t)
			if cerr != nil {
				return nil, nil, fmt.Errorf("argument %s: %v", a.Name, cerr)
			}
			list = append(list, v)
		}
		var val interface{}
		if a.NArgs == 0 || a.NArgs == ZeroOrOne {
			val = list[0]
		} else {
			val = list
		}
		p.vals.Set(a.Dest, val)
		a.runHook(val)
	}
	return tokens[idx:], missing, nil
}

// runPostProcessors applies the registered post-process hooks in
// registration order, skipping destinations that received no value. The
// transformed value replaces the original in place.
func (p *Parser) runPostProcessors() error {
	for _, a := range p.args {
		if a.shadow || a.PostProcess == nil {
			continue
		}
		v, ok := p.vals.Get(a.Dest)
		if !ok {
			continue
		}
		nv, err := a.PostProcess(v)
		if err != nil {
			return fmt.Errorf("argument %s: %v", a.displayName(), err)
		}
		p.vals.Set(a.Dest, nv)
	}
	return nil
}

// enforceRequired aggregates every missing required argument into a
// single error: positional shortfalls, required options that never
// occurred, and required accumulating destinations that stayed empty.
func (p *Parser) enforceRequired(missing []string) error {
	for _, a := range p.args {
		if a.shadow || !a.Required || a.positional() {
			continue
		}
		if a.Action.accumulates() {
			if v, ok := p.vals.Get(a.Dest); !ok || isEmpty(v) {
				missing = append(missing, a.displayName())
			}
		} else if !a.occurred {
			missing = append(missing, a.displayName())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrRequired, strings.Join(missing, ", "))
	}
	return nil
}

func isEmpty(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case []interface{}:
		return len(x) == 0
	case *orderedmap.OrderedMap[interface{}, interface{}]:
		return x == nil || x.Len() == 0
	}
	return false
}
