package apegears

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/mitchellh/go-wordwrap"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/term"
)

// maxLineLength is the maximum width of any help line when the terminal
// width is unknown.
const maxLineLength int = 78

// reRemoveWhitespace is a regular expression for collapsing whitespace
// runs in usage strings.
var reRemoveWhitespace = regexp.MustCompile(`[\s]+`)

// wrapAtLengthWithPadding wraps the given text at the maxLineLength,
// taking into account any provided left padding.
func wrapAtLengthWithPadding(s string, pad int) string {
	wrapped := wordwrap.WrapString(s, uint(maxLineLength-pad))
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.Repeat(" ", pad) + line
	}
	return strings.Join(lines, "\n")
}

// helpWidth is the wrap width for the usage line. The terminal width wins
// when output goes to one, then the COLUMNS variable, then maxLineLength.
func (p *Parser) helpWidth() int {
	if f, ok := p.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			return w - 2
		}
	}
	if c := os.Getenv("COLUMNS"); c != "" {
		if n, err := strconv.Atoi(c); err == nil && n > 20 {
			return n - 2
		}
	}
	return maxLineLength
}

// Usage returns the single usage line: program name, option shapes, then
// positional shapes, wrapped with a hanging indent. Hidden arguments are
// left out.
func (p *Parser) Usage() string {
	var parts []string
	for _, a := range p.args {
		if a.positional() || a.Hidden {
			continue
		}
		s := a.usageShape()
		if !a.Required {
			s = "[" + s + "]"
		}
		parts = append(parts, s)
	}
	for _, a := range p.positionals {
		if a.Hidden {
			continue
		}
		parts = append(parts, valueShape(a.metavar(), a.NArgs))
	}

	head := "usage: " + p.name
	if len(parts) == 0 {
		return head
	}
	width := p.helpWidth()
	pad := len(head) + 1
	if pad > width/2 {
		pad = 8
	}
	lines := fillParts(parts, width-pad)
	for i := 1; i < len(lines); i++ {
		lines[i] = strings.Repeat(" ", pad) + lines[i]
	}
	return head + " " + strings.Join(lines, "\n")
}

// fillParts lays atomic parts onto lines of at most width columns. Parts
// never break internally, so bracketed shapes stay whole.
func fillParts(parts []string, width int) []string {
	var lines []string
	cur := ""
	for _, part := range parts {
		switch {
		case cur == "":
			cur = part
		case len(cur)+1+len(part) <= width:
			cur += " " + part
		default:
			lines = append(lines, cur)
			cur = part
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// Help builds the full help text: usage, description, then the argument
// sections in registration order.
func (p *Parser) Help() string {
	var out bytes.Buffer
	out.WriteString(p.Usage())
	out.WriteString("\n\n")
	if p.description != "" {
		desc := reRemoveWhitespace.ReplaceAllString(p.description, " ")
		out.WriteString(wordwrap.WrapString(desc, uint(p.helpWidth())))
		out.WriteString("\n\n")
	}

	if len(p.positionals) > 0 {
		printArgTitle(&out, "Positional arguments:")
		for _, a := range p.positionals {
			if a.Hidden {
				continue
			}
			printArgDetail(&out, a)
		}
	}

	printArgTitle(&out, "Options:")
	for _, a := range p.args {
		if a.positional() || a.Hidden {
			continue
		}
		printArgDetail(&out, a)
	}
	return strings.TrimRight(out.String(), "\n")
}

// printArgTitle prints a consistently-formatted section title to the
// given writer.
func printArgTitle(w io.Writer, s string) {
	fmt.Fprintf(w, "%s\n\n", s)
}

// printArgDetail prints a single argument to the given writer.
func printArgDetail(w io.Writer, a *Argument) {
	switch {
	case a.positional():
		fmt.Fprintf(w, "  %s", a.metavar())
	case a.shorthand != "" && len(a.longs) > 0:
		fmt.Fprintf(w, "  -%s, --%s", a.shorthand, a.longs[0])
	case a.shorthand != "":
		fmt.Fprintf(w, "  -%s", a.shorthand)
	default:
		fmt.Fprintf(w, "      --%s", a.longs[0])
	}

	if !a.positional() && a.Action.takesValue() {
		fmt.Fprintf(w, "=<%s>", a.metavar())
	}
	if ds, ok := a.defaultString(); ok {
		fmt.Fprintf(w, " (default %s)", ds)
	}
	fmt.Fprint(w, "\n")

	if a.Help != "" {
		usage := reRemoveWhitespace.ReplaceAllString(a.Help, " ")
		fmt.Fprintf(w, "%s\n\n", wrapAtLengthWithPadding(usage, 8))
	} else {
		fmt.Fprint(w, "\n")
	}
}

// usageShape is the argument's appearance in the usage line, without the
// optionality brackets.
func (a *Argument) usageShape() string {
	form := a.Flags[0]
	if !a.Action.takesValue() {
		return form
	}
	return form + " " + valueShape(a.metavar(), a.NArgs)
}

// valueShape renders an arity as usage text: "X", "[X]", "[X ...]",
// "X [X ...]", or a fixed repetition.
func valueShape(mv string, n NArgs) string {
	switch n {
	case 0:
		return mv
	case ZeroOrOne:
		return "[" + mv + "]"
	case ZeroOrMore:
		return "[" + mv + " ...]"
	case OneOrMore:
		return mv + " [" + mv + " ...]"
	default:
		parts := make([]string, n)
		for i := range parts {
			parts[i] = mv
		}
		return strings.Join(parts, " ")
	}
}

// defaultString renders the declared default for help output. Zero-likes
// are suppressed so flags and empty collections stay quiet.
func (a *Argument) defaultString() (string, bool) {
	if a.Default == nil {
		return "", false
	}
	switch v := a.Default.(type) {
	case string:
		if v == "" {
			return "", false
		}
		if a.typeName == "string" || a.Action.accumulates() {
			return strconv.Quote(v), true
		}
		return v, true
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case []interface{}:
		if len(v) == 0 {
			return "", false
		}
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = fmt.Sprintf("%v", e)
		}
		return "[" + strings.Join(parts, ",") + "]", true
	case *orderedmap.OrderedMap[interface{}, interface{}]:
		if v == nil || v.Len() == 0 {
			return "", false
		}
		var parts []string
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			parts = append(parts, fmt.Sprintf("%v=%v", pair.Key, pair.Value))
		}
		return strings.Join(parts, ","), true
	}
	s := fmt.Sprintf("%v", a.Default)
	switch s {
	case "", "0", "false", "<nil>":
		return "", false
	}
	return s, true
}
