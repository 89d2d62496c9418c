package apegears

import (
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Control tokens used between argv normalization and the flag engine.
// noValue marks an occurrence that bound no value tokens; it is wired
// through pflag's NoOptDefVal. valueSep joins the tokens of one
// multi-value occurrence whose action needs them as a unit.
const (
	noValue  = "\x00"
	valueSep = "\x1f"
)

// argValue adapts an Argument to the pflag.Value contract. Converted values
// flow into the parser's pending Values record rather than into a target
// pointer, so accumulation and the default correction can see the whole
// picture.
type argValue struct {
	p   *Parser
	arg *Argument
}

func (v *argValue) Set(s string) error {
	a := v.arg
	bag := v.p.vals
	a.firstTouch(bag)

	switch a.Action {
	case Count:
		if s == noValue {
			n := bag.Count(a.Dest) + 1
			bag.Set(a.Dest, n)
			a.runHook(n)
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid count value %q", s)
		}
		bag.Set(a.Dest, n)
		a.runHook(n)
		return nil

	case StoreTrue, StoreFalse:
		b := true
		if s != noValue {
			var err error
			b, err = strconv.ParseBool(s)
			if err != nil {
				return fmt.Errorf("invalid bool value %q", s)
			}
		}
		if a.Action == StoreFalse {
			b = !b
		}
		bag.Set(a.Dest, b)
		a.runHook(b)
		return nil
	}

	if s == noValue {
		// A bare occurrence binding no tokens ('?' keeps the default,
		// '*' stores an empty occurrence).
		if a.NArgs == ZeroOrMore && a.Action == Store {
			bag.Set(a.Dest, []interface{}{})
		}
		return nil
	}

	if a.NArgs.multi() && (a.Action == Store || a.Action == Append) {
		// The occurrence's tokens arrive joined, so the whole occurrence
		// lands as one list.
		parts := strings.Split(s, valueSep)
		list := make([]interface{}, 0, len(parts))
		for _, part := range parts {
			val, err := a.convertChecked(part)
			if err != nil {
				return err
			}
			list = append(list, val)
		}
		if a.Action == Append {
			v.p.appendValue(a, list)
		} else {
			bag.Set(a.Dest, list)
		}
		a.runHook(list)
		return nil
	}

	val, err := a.convertChecked(s)
	if err != nil {
		return err
	}

	switch a.Action {
	case Append, Extend:
		v.p.appendValue(a, val)
	case SetItems:
		kv, ok := val.(KeyValue)
		if !ok {
			return fmt.Errorf("set_items argument produced %T, want a key/value pair", val)
		}
		dict := bag.Dict(a.Dest)
		if dict == nil {
			dict = orderedmap.New[interface{}, interface{}]()
			bag.Set(a.Dest, dict)
		}
		dict.Set(kv.Key, kv.Value)
	default:
		bag.Set(a.Dest, val)
	}
	a.runHook(val)
	return nil
}

func (v *argValue) String() string { return "" }

func (v *argValue) Type() string { return v.arg.typeName }

// appendValue grows a list destination by one element.
func (p *Parser) appendValue(a *Argument, elem interface{}) {
	list := p.vals.List(a.Dest)
	p.vals.Set(a.Dest, append(list, elem))
}
