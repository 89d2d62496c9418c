package apegears

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Values is the record Parse produces: one entry per destination that
// received a value, from a default, the environment, or the command line.
// Destinations that stayed unset are simply absent.
//
// The typed accessors are tolerant: a missing destination or one holding a
// different type yields the zero value, which keeps call sites short. Use
// Get when absence matters.
type Values struct {
	m map[string]interface{}
}

func newValues() *Values {
	return &Values{m: map[string]interface{}{}}
}

// Get returns the raw value for a destination and whether it is present.
func (v *Values) Get(dest string) (interface{}, bool) {
	val, ok := v.m[dest]
	return val, ok
}

// Has reports whether a destination is present.
func (v *Values) Has(dest string) bool {
	_, ok := v.m[dest]
	return ok
}

// Set stores a value under a destination. Parse uses it internally; post
// processors may also reshape values through it.
func (v *Values) Set(dest string, val interface{}) {
	v.m[dest] = val
}

// Keys returns the present destinations, sorted.
func (v *Values) Keys() []string {
	keys := maps.Keys(v.m)
	slices.Sort(keys)
	return keys
}

// Len reports the number of present destinations.
func (v *Values) Len() int { return len(v.m) }

// String returns a string destination, or "".
func (v *Values) String(dest string) string {
	s, _ := v.m[dest].(string)
	return s
}

// Int returns an integer destination, widening from int or int64, or 0.
func (v *Values) Int(dest string) int {
	switch n := v.m[dest].(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// Int64 returns an int64 destination, widening from int, or 0.
func (v *Values) Int64(dest string) int64 {
	switch n := v.m[dest].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// Uint returns a uint64 destination, or 0.
func (v *Values) Uint(dest string) uint64 {
	n, _ := v.m[dest].(uint64)
	return n
}

// Float64 returns a float64 destination, or 0.
func (v *Values) Float64(dest string) float64 {
	f, _ := v.m[dest].(float64)
	return f
}

// Bool returns a bool destination, or false.
func (v *Values) Bool(dest string) bool {
	b, _ := v.m[dest].(bool)
	return b
}

// Count returns a counting destination, or 0.
func (v *Values) Count(dest string) int {
	n, _ := v.m[dest].(int)
	return n
}

// Duration returns a time.Duration destination, or 0.
func (v *Values) Duration(dest string) time.Duration {
	d, _ := v.m[dest].(time.Duration)
	return d
}

// Time returns a time.Time destination, or the zero time.
func (v *Values) Time(dest string) time.Time {
	t, _ := v.m[dest].(time.Time)
	return t
}

// List returns an accumulated list destination, or nil.
func (v *Values) List(dest string) []interface{} {
	l, _ := v.m[dest].([]interface{})
	return l
}

// Strings returns a list destination as strings. Non-string elements are
// skipped.
func (v *Values) Strings(dest string) []string {
	l, ok := v.m[dest].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, e := range l {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Ints returns a list destination as ints. Non-int elements are skipped.
func (v *Values) Ints(dest string) []int {
	l, ok := v.m[dest].([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(l))
	for _, e := range l {
		if n, ok := e.(int); ok {
			out = append(out, n)
		}
	}
	return out
}

// Dict returns an accumulated dict destination, or nil. Iteration order is
// the order keys first appeared on the command line.
func (v *Values) Dict(dest string) *orderedmap.OrderedMap[interface{}, interface{}] {
	m, _ := v.m[dest].(*orderedmap.OrderedMap[interface{}, interface{}])
	return m
}
