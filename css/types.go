package css

import (
	"fmt"
	"io"
	"strings"
)

// cssEscapeSingleQuoted escapes a string for use inside CSS single quotes.
// Backslashes and single quotes are escaped per CSS syntax: \' and \\.
func cssEscapeSingleQuoted(s string) string {
	// Fast path: nothing to escape.
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// URL returns url() value referencing name.
func URL(name string) string {
	return "url('" + cssEscapeSingleQuoted(name) + "')"
}

// Property is a single declaration of a rule.
type Property struct {
	Name  string
	Value string
}

// Properties is an ordered list of declarations. Order is preserved on
// output.
type Properties []Property

// Get returns the value for a property, or empty string if not found.
func (p Properties) Get(name string) (string, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return "", false
}

// With returns a copy of properties with name set to value. Existing
// property keeps its position, new one is appended. Receiver is never
// modified.
func (p Properties) With(name, value string) Properties {
	out := make(Properties, len(p), len(p)+1)
	copy(out, p)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = value
			return out
		}
	}
	return append(out, Property{Name: name, Value: value})
}

// Names returns property names in order.
func (p Properties) Names() []string {
	names := make([]string, 0, len(p))
	for _, prop := range p {
		names = append(names, prop.Name)
	}
	return names
}

// Rule represents a single CSS rule (selector + properties).
type Rule struct {
	Selector   string
	Properties Properties
}

// GetProperty returns the value for a property, or empty string if not found.
func (r Rule) GetProperty(name string) (string, bool) {
	return r.Properties.Get(name)
}

// Stylesheet is a flat list of rules, no at-rules or nesting.
type Stylesheet struct {
	Rules    []Rule
	Warnings []string // Warnings for unsupported features (parser only)
}

// RulesBySelector returns all rules matching the given selector string.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, rule := range s.Rules {
		if rule.Selector == selector {
			matches = append(matches, rule)
		}
	}
	return matches
}

// WriteTo writes the stylesheet to w, one rule per line, implementing
// io.WriterTo. Rule format is 'selector { property: value; [... property: value;] }'.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range s.Rules {
		n, err := writeRule(w, &s.Rules[i])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(w io.Writer, rule *Rule) (int, error) {
	decls := make([]string, 0, len(rule.Properties))
	for _, prop := range rule.Properties {
		decls = append(decls, prop.Name+": "+prop.Value+";")
	}
	return fmt.Fprintf(w, "%s { %s }\n", rule.Selector, strings.Join(decls, " "))
}
