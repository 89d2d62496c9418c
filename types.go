package apegears

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/posener/complete"
)

// Predeclared converters for the plain scalar types. They can be passed
// directly as an adder's Type.

// String returns the token unchanged. It is the converter of last resort.
func String(s string) (interface{}, error) { return s, nil }

// Int converts a token to an int.
func Int(s string) (interface{}, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("invalid int value %q", s)
	}
	return v, nil
}

// Int64 converts a token to an int64.
func Int64(s string) (interface{}, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid int value %q", s)
	}
	return v, nil
}

// Uint converts a token to a uint64.
func Uint(s string) (interface{}, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid uint value %q", s)
	}
	return v, nil
}

// Float64 converts a token to a float64.
func Float64(s string) (interface{}, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid float value %q", s)
	}
	return v, nil
}

// Bool converts a token to a bool, accepting the strconv.ParseBool forms.
func Bool(s string) (interface{}, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("invalid bool value %q", s)
	}
	return v, nil
}

// Duration converts a token to a time.Duration.
func Duration(s string) (interface{}, error) {
	v, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid duration value %q", s)
	}
	return v, nil
}

// Range is a bounded integer sequence in START:STOP[:STEP] form. Start is
// included, Stop is not. A single number is a bare STOP with Start 0.
type Range struct {
	Start, Stop, Step int
}

// ParseRange parses START:STOP[:STEP]. Omitting START means 0, omitting
// STEP means 1. STEP must not be zero.
func ParseRange(s string) (Range, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Range{}, fmt.Errorf("invalid range value %q", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Range{}, fmt.Errorf("invalid range value %q", s)
		}
		nums[i] = n
	}
	r := Range{Step: 1}
	switch len(nums) {
	case 1:
		r.Stop = nums[0]
	case 2:
		r.Start, r.Stop = nums[0], nums[1]
	case 3:
		r.Start, r.Stop, r.Step = nums[0], nums[1], nums[2]
		if r.Step == 0 {
			return Range{}, fmt.Errorf("invalid range value %q: step must not be zero", s)
		}
	}
	return r, nil
}

// Values materializes the sequence.
func (r Range) Values() []int {
	var out []int
	if r.Step > 0 {
		for i := r.Start; i < r.Stop; i += r.Step {
			out = append(out, i)
		}
	} else {
		for i := r.Start; i > r.Stop; i += r.Step {
			out = append(out, i)
		}
	}
	return out
}

// Len reports the number of values in the sequence.
func (r Range) Len() int {
	if r.Step > 0 {
		if r.Stop <= r.Start {
			return 0
		}
		return (r.Stop - r.Start + r.Step - 1) / r.Step
	}
	if r.Start <= r.Stop {
		return 0
	}
	return (r.Start - r.Stop - r.Step - 1) / -r.Step
}

func (r Range) String() string {
	if r.Step != 1 {
		return fmt.Sprintf("%d:%d:%d", r.Start, r.Stop, r.Step)
	}
	return fmt.Sprintf("%d:%d", r.Start, r.Stop)
}

const dateLayout = "2006-01-02"

// timestampLayouts are tried in order. time.Parse accepts fractional
// seconds after the seconds field even when the layout omits them, so
// these two cover the [.micros] forms as well.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z",
}

// Date converts a YYYY-MM-DD token to a time.Time at midnight UTC.
func Date(s string) (interface{}, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date value %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// Timestamp converts an ISO 8601 token of the form
// YYYY-MM-DDTHH:MM:SS[.micros][Z] to a time.Time. Bare dates are the
// business of Date, not Timestamp.
func Timestamp(s string) (interface{}, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp value %q", s)
}

// Path cleans a file path token, expanding a leading "~".
func Path(s string) (interface{}, error) {
	if s == "~" || strings.HasPrefix(s, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			s = filepath.Join(home, s[1:])
		}
	}
	return filepath.Clean(s), nil
}

// Regex compiles a token as a regular expression.
func Regex(s string) (interface{}, error) {
	re, err := regexp.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("invalid regex value %q: %v", s, err)
	}
	return re, nil
}

// IP parses a token as an IPv4 or IPv6 address.
func IP(s string) (interface{}, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil, fmt.Errorf("invalid ip value %q", s)
	}
	return addr, nil
}

// Literal converts a token to its most specific representation: bool,
// int, float64, an unquoted string, nil for null forms, or the raw token.
// It never fails.
func Literal(s string) (interface{}, error) {
	switch s {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	case "null", "nil", "none", "None":
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if len(s) >= 2 {
		if s[0] == '"' && s[len(s)-1] == '"' {
			if uq, err := strconv.Unquote(s); err == nil {
				return uq, nil
			}
		}
		if s[0] == '\'' && s[len(s)-1] == '\'' {
			return s[1 : len(s)-1], nil
		}
	}
	return s, nil
}

// RegisterStandardTypes installs the standard type table into a registry.
// DefaultRegistry receives it automatically.
func RegisterStandardTypes(r *Registry) {
	// The plain scalars carry no metavar of their own; usage text derives
	// one from the destination name.
	r.Register("string", &Spec{FromString: String})
	r.Register("str", &Spec{FromString: String})
	r.Register("int", &Spec{FromString: Int})
	r.Register("int64", &Spec{FromString: Int64})
	r.Register("uint", &Spec{FromString: Uint})
	r.Register("float", &Spec{FromString: Float64})
	r.Register("float64", &Spec{FromString: Float64})
	r.Register("bool", &Spec{FromString: Bool})

	rangeSpec := &Spec{
		Names:      []string{"range"},
		FromString: func(s string) (interface{}, error) { return ParseRange(s) },
		Help:       "An integer range.",
		Metavar:    "START:STOP[:STEP]",
	}
	r.Register("range", rangeSpec)
	r.Register(reflect.TypeOf(Range{}), rangeSpec)

	r.Register("date", &Spec{
		Names:      []string{"date", "d"},
		FromString: Date,
		Help:       "A calendar date, YYYY-MM-DD.",
		Metavar:    "DATE",
	})

	timestampSpec := &Spec{
		Names:      []string{"timestamp", "t"},
		FromString: Timestamp,
		Help:       "A timestamp (ISO 8601: YYYY-MM-DDTHH:MM:SS[.micros][Z]).",
		Metavar:    "TIMESTAMP",
	}
	r.Register("timestamp", timestampSpec)
	r.Register("datetime", timestampSpec)
	r.Register(reflect.TypeOf(time.Time{}), timestampSpec)

	durationSpec := &Spec{
		Names:      []string{"duration"},
		FromString: Duration,
		Help:       "A duration such as 300ms, 2h45m.",
		Metavar:    "DURATION",
	}
	r.Register("duration", durationSpec)
	r.Register(reflect.TypeOf(time.Duration(0)), durationSpec)

	r.Register("path", &Spec{
		Names:      []string{"path"},
		FromString: Path,
		Metavar:    "PATH",
		Completion: complete.PredictFiles("*"),
	})

	regexSpec := &Spec{
		Names:      []string{"regex"},
		FromString: Regex,
		Metavar:    "REGEX",
	}
	r.Register("regex", regexSpec)
	r.Register(reflect.TypeOf(&regexp.Regexp{}), regexSpec)

	ipSpec := &Spec{
		Names:      []string{"ip"},
		FromString: IP,
		Help:       "An IPv4 or IPv6 address.",
		Metavar:    "IP",
	}
	r.Register("ip", ipSpec)
	r.Register(reflect.TypeOf(netip.Addr{}), ipSpec)

	r.Register("literal", &Spec{
		FromString: Literal,
		Help:       "A bool, number, quoted string or null, by best effort.",
		Metavar:    "LITERAL",
	})
}

func init() {
	RegisterStandardTypes(DefaultRegistry)
}
