// Copyright (c) The ApeGears Authors
// SPDX-License-Identifier: MPL-2.0

package apegears

import (
	"net/netip"
	"regexp"
	"testing"
	"time"

	"github.com/shoenig/test/must"
)

func TestParseRange(t *testing.T) {
	testCases := []struct {
		Name        string
		In          string
		expect      Range
		expectError bool
	}{
		{
			Name:   "bare stop",
			In:     "5",
			expect: Range{Start: 0, Stop: 5, Step: 1},
		},
		{
			Name:   "start and stop",
			In:     "2:8",
			expect: Range{Start: 2, Stop: 8, Step: 1},
		},
		{
			Name:   "with step",
			In:     "0:10:3",
			expect: Range{Start: 0, Stop: 10, Step: 3},
		},
		{
			Name:   "negative step",
			In:     "10:0:-3",
			expect: Range{Start: 10, Stop: 0, Step: -3},
		},
		{
			Name:        "zero step",
			In:          "0:10:0",
			expectError: true,
		},
		{
			Name:        "too many parts",
			In:          "0:1:2:3",
			expectError: true,
		},
		{
			Name:        "not a number",
			In:          "a:b",
			expectError: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			r, err := ParseRange(tc.In)
			if tc.expectError {
				must.Error(t, err)
				return
			}
			must.NoError(t, err)
			must.Eq(t, tc.expect, r)
		})
	}
}

func TestRange_Values(t *testing.T) {
	r := Range{Start: 0, Stop: 10, Step: 3}
	must.Eq(t, []int{0, 3, 6, 9}, r.Values())
	must.Eq(t, 4, r.Len())

	r = Range{Start: 10, Stop: 0, Step: -3}
	must.Eq(t, []int{10, 7, 4, 1}, r.Values())
	must.Eq(t, 4, r.Len())

	r = Range{Start: 3, Stop: 3, Step: 1}
	must.Len(t, 0, r.Values())
	must.Eq(t, 0, r.Len())
}

func TestDate(t *testing.T) {
	v, err := Date("2026-08-25")
	must.NoError(t, err)
	must.Eq(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), v.(time.Time))

	_, err = Date("25/08/2026")
	must.Error(t, err)
	must.StrContains(t, err.Error(), "want YYYY-MM-DD")
}

func TestTimestamp(t *testing.T) {
	want := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	for _, in := range []string{
		"2026-08-25T10:30:00",
		"2026-08-25T10:30:00Z",
	} {
		v, err := Timestamp(in)
		must.NoError(t, err)
		must.Eq(t, want, v.(time.Time).UTC())
	}

	v, err := Timestamp("2026-08-25T10:30:00.250Z")
	must.NoError(t, err)
	must.Eq(t, want.Add(250*time.Millisecond), v.(time.Time).UTC())

	// Only the seconds-resolution ISO form is a timestamp; bare dates
	// belong to Date.
	for _, in := range []string{
		"2026-08-25",
		"2026-08-25 10:30:00",
		"2026-08-25T10:30",
		"yesterday",
	} {
		_, err := Timestamp(in)
		must.Error(t, err)
	}
}

func TestPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	v, err := Path("~/a/b")
	must.NoError(t, err)
	must.Eq(t, "/home/tester/a/b", v.(string))

	v, err = Path("a//b/../c")
	must.NoError(t, err)
	must.Eq(t, "a/c", v.(string))
}

func TestRegex(t *testing.T) {
	v, err := Regex(`^ab+$`)
	must.NoError(t, err)
	must.True(t, v.(*regexp.Regexp).MatchString("abbb"))

	_, err = Regex(`(`)
	must.Error(t, err)
}

func TestIP(t *testing.T) {
	v, err := IP("192.168.0.1")
	must.NoError(t, err)
	must.Eq(t, netip.MustParseAddr("192.168.0.1"), v.(netip.Addr))

	v, err = IP("::1")
	must.NoError(t, err)
	must.Eq(t, netip.MustParseAddr("::1"), v.(netip.Addr))

	_, err = IP("999.0.0.1")
	must.Error(t, err)
}

func TestLiteral(t *testing.T) {
	testCases := []struct {
		In     string
		expect interface{}
	}{
		{In: "true", expect: true},
		{In: "False", expect: false},
		{In: "null", expect: nil},
		{In: "None", expect: nil},
		{In: "42", expect: 42},
		{In: "-3", expect: -3},
		{In: "4.5", expect: 4.5},
		{In: `"quoted text"`, expect: "quoted text"},
		{In: "'single'", expect: "single"},
		{In: "plain", expect: "plain"},
	}
	for _, tc := range testCases {
		t.Run(tc.In, func(t *testing.T) {
			v, err := Literal(tc.In)
			must.NoError(t, err)
			must.Eq(t, tc.expect, v)
		})
	}
}

func TestScalarErrors(t *testing.T) {
	_, err := Int("x")
	must.Error(t, err)
	must.StrContains(t, err.Error(), `invalid int value "x"`)

	_, err = Bool("maybe")
	must.Error(t, err)

	_, err = Float64("n/a")
	must.Error(t, err)

	_, err = Duration("4 parsecs")
	must.Error(t, err)
}

func TestStandardSpecs(t *testing.T) {
	// Scalars leave the metavar to the destination name.
	for _, tag := range []string{"string", "str", "int", "int64", "uint", "float", "float64", "bool"} {
		s := Find(tag)
		must.NotNil(t, s)
		must.Eq(t, "", s.Metavar)
	}

	s := Find("path")
	must.NotNil(t, s)
	must.Eq(t, []string{"path"}, s.Names)
	must.Eq(t, "PATH", s.Metavar)

	s = Find("regex")
	must.NotNil(t, s)
	must.Eq(t, []string{"regex"}, s.Names)
}

func TestStandardTags(t *testing.T) {
	p := NewParser("prog")
	_, err := p.AddOption(&OptionVar{Flags: []string{"--when"}, Type: "date"})
	must.NoError(t, err)
	_, err = p.AddOption(&OptionVar{Flags: []string{"--wait"}, Type: "duration"})
	must.NoError(t, err)
	_, err = p.AddOption(&OptionVar{Flags: []string{"--rows"}, Type: "range"})
	must.NoError(t, err)

	vals, err := p.Parse([]string{"--when", "2026-08-25", "--wait", "90s", "--rows", "1:4"})
	must.NoError(t, err)
	must.Eq(t, time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), vals.Time("when"))
	must.Eq(t, 90*time.Second, vals.Duration("wait"))

	r, ok := vals.Get("rows")
	must.True(t, ok)
	must.Eq(t, []int{1, 2, 3}, r.(Range).Values())
}

func TestTypeBySampleValue(t *testing.T) {
	p := NewParser("prog")
	_, err := p.AddOption(&OptionVar{Flags: []string{"--span"}, Type: time.Duration(0)})
	must.NoError(t, err)

	vals, err := p.Parse([]string{"--span", "2h45m"})
	must.NoError(t, err)
	must.Eq(t, 2*time.Hour+45*time.Minute, vals.Duration("span"))
}
