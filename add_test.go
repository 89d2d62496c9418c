// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

package apegears

import (
	"errors"
	"strings"
	"testing"

	"github.com/shoenig/test/must"
)

func TestAdd_DestDerivation(t *testing.T) {
	p := NewParser("prog")

	a, err := p.AddOption(&OptionVar{Flags: []string{"-l", "--log-level"}})
	must.NoError(t, err)
	must.Eq(t, "log_level", a.Dest)

	a, err = p.AddOption(&OptionVar{Flags: []string{"-q"}})
	must.NoError(t, err)
	must.Eq(t, "q", a.Dest)

	a, err = p.AddPositional(&PositionalVar{Name: "out-file"})
	must.NoError(t, err)
	must.Eq(t, "out_file", a.Dest)
}

func TestAddPositional_DestOnly(t *testing.T) {
	p := NewParser("prog")
	a, err := p.AddPositional(&PositionalVar{Dest: "arg1"})
	must.NoError(t, err)
	must.Eq(t, "arg1", a.Name)
	must.Eq(t, "arg1", a.Dest)

	vals, err := p.Parse([]string{"abc"})
	must.NoError(t, err)
	must.Eq(t, "abc", vals.String("arg1"))
}

func TestAddPositional_NameAndDest(t *testing.T) {
	p := NewParser("prog")
	_, err := p.AddPositional(&PositionalVar{Name: "src", Dest: "source"})
	must.Error(t, err)
	must.True(t, errors.Is(err, ErrConfig))
	must.StrContains(t, err.Error(), "dest supplied twice")
}

func TestAdd_FlagNormalization(t *testing.T) {
	p := NewParser("prog")

	a, err := p.AddOption(&OptionVar{Flags: []string{"n", "num"}})
	must.NoError(t, err)
	must.Eq(t, []string{"-n", "--num"}, a.Flags)
	must.Eq(t, "num", a.Dest)
}

func TestAdd_ConfigErrors(t *testing.T) {
	p := NewParser("prog")
	_, err := p.AddOption(&OptionVar{Flags: []string{"--num"}})
	must.NoError(t, err)

	testCases := []struct {
		Name string
		Add  func(*Parser) error
	}{
		{
			Name: "duplicate destination",
			Add: func(p *Parser) error {
				_, err := p.AddOption(&OptionVar{Flags: []string{"--num2"}, Dest: "num"})
				return err
			},
		},
		{
			Name: "duplicate flag",
			Add: func(p *Parser) error {
				_, err := p.AddFlag(&FlagVar{Flags: []string{"--num"}, Dest: "other"})
				return err
			},
		},
		{
			Name: "unknown type tag",
			Add: func(p *Parser) error {
				_, err := p.AddOption(&OptionVar{Flags: []string{"--b"}, Type: "bogus-tag"})
				return err
			},
		},
		{
			Name: "list with zero-or-one arity",
			Add: func(p *Parser) error {
				_, err := p.AddList(&ListVar{Flags: []string{"--l"}, NArgs: ZeroOrOne})
				return err
			},
		},
		{
			Name: "dict with zero-or-one arity",
			Add: func(p *Parser) error {
				_, err := p.AddDict(&DictVar{Flags: []string{"--d"}, NArgs: ZeroOrOne})
				return err
			},
		},
		{
			Name: "positional default demands zero-or-one",
			Add: func(p *Parser) error {
				_, err := p.AddPositional(&PositionalVar{Name: "pos", NArgs: 2, Default: "d"})
				return err
			},
		},
		{
			Name: "name and flags together",
			Add: func(p *Parser) error {
				_, err := p.AddArgument(&Argument{Name: "pos", Flags: []string{"--x"}})
				return err
			},
		},
		{
			Name: "no name or flags",
			Add: func(p *Parser) error {
				_, err := p.AddOption(&OptionVar{})
				return err
			},
		},
		{
			Name: "multi-char short flag",
			Add: func(p *Parser) error {
				_, err := p.AddOption(&OptionVar{Flags: []string{"-ab"}})
				return err
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			err := tc.Add(p)
			must.Error(t, err)
			must.True(t, errors.Is(err, ErrConfig))
		})
	}
}

func TestAdd_SpecAdoption(t *testing.T) {
	r := NewRegistry()
	r.Register("shout", &Spec{
		Names: []string{"shout", "yell"},
		FromString: func(s string) (interface{}, error) {
			return strings.ToUpper(s), nil
		},
		Default: DefaultString("hey"),
		Help:    "Spec help.",
		Metavar: "WORD",
	})

	p := NewParser("prog", WithRegistry(r))
	a, err := p.AddOption(&OptionVar{Type: "shout"})
	must.NoError(t, err)
	must.Eq(t, []string{"--shout", "--yell"}, a.Flags)
	must.Eq(t, "shout", a.Dest)
	must.Eq(t, "Spec help.", a.Help)
	must.Eq(t, "WORD", a.Metavar)

	vals, err := p.Parse(nil)
	must.NoError(t, err)
	must.Eq(t, "HEY", vals.String("shout"))

	vals, err = p.Parse([]string{"--yell", "ok"})
	must.NoError(t, err)
	must.Eq(t, "OK", vals.String("shout"))
}

func TestAdd_CallerOverridesSpec(t *testing.T) {
	r := NewRegistry()
	r.Register("shout", &Spec{
		Names: []string{"shout"},
		FromString: func(s string) (interface{}, error) {
			return strings.ToUpper(s), nil
		},
		Default: DefaultString("hey"),
		Help:    "Spec help.",
	})

	p := NewParser("prog", WithRegistry(r))
	a, err := p.AddOption(&OptionVar{
		Flags:   []string{"--scream"},
		Type:    "shout",
		Default: "ho",
		Help:    "Mine.",
	})
	must.NoError(t, err)
	must.Eq(t, []string{"--scream"}, a.Flags)
	must.Eq(t, "Mine.", a.Help)

	vals, err := p.Parse(nil)
	must.NoError(t, err)
	must.Eq(t, "HO", vals.String("scream"))
}

func TestAdd_RequiredSuppressesSpecDefault(t *testing.T) {
	r := NewRegistry()
	r.Register("shout", &Spec{
		Names: []string{"shout"},
		FromString: func(s string) (interface{}, error) {
			return strings.ToUpper(s), nil
		},
		Default: DefaultString("hey"),
	})

	p := NewParser("prog", WithRegistry(r))
	_, err := p.AddOption(&OptionVar{Type: "shout", Required: true})
	must.NoError(t, err)

	_, err = p.Parse(nil)
	must.Error(t, err)
	must.True(t, errors.Is(err, ErrRequired))
}

func TestAdd_SpecNameForPositional(t *testing.T) {
	r := NewRegistry()
	r.Register("word", &Spec{
		Names:      []string{"word"},
		FromString: String,
	})

	p := NewParser("prog", WithRegistry(r))
	a, err := p.AddPositional(&PositionalVar{Type: "word"})
	must.NoError(t, err)
	must.Eq(t, "word", a.Name)
	must.Eq(t, "word", a.Dest)

	vals, err := p.Parse([]string{"x"})
	must.NoError(t, err)
	must.Eq(t, "x", vals.String("word"))
}

func TestAdd_ConverterType(t *testing.T) {
	p := NewParser("prog")
	_, err := p.AddOption(&OptionVar{
		Flags: []string{"--rev"},
		Type: func(s string) (interface{}, error) {
			runes := []rune(s)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return string(runes), nil
		},
	})
	must.NoError(t, err)

	vals, err := p.Parse([]string{"--rev", "abc"})
	must.NoError(t, err)
	must.Eq(t, "cba", vals.String("rev"))
}
