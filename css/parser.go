package css

import (
	"bytes"
	"regexp"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses flat CSS stylesheets into ordered rules. It is used to read
// back generated sprite stylesheets, at-rules are reported and skipped.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if parser.Err() != nil && parser.Err().Error() != "EOF" {
				p.log.Debug("CSS parse error", zap.Error(parser.Err()))
				sheet.Warnings = append(sheet.Warnings, "parse error: "+parser.Err().Error())
			}
			return sheet

		case css.BeginAtRuleGrammar:
			atRule := string(data)
			sheet.Warnings = append(sheet.Warnings, "unsupported at-rule block: "+atRule)
			p.skipAtRuleBlock(parser)
			p.log.Debug("Skipping @-rule", zap.String("rule", atRule))

		case css.AtRuleGrammar:
			atRule := string(data)
			sheet.Warnings = append(sheet.Warnings, "unsupported at-rule: "+atRule)
			p.log.Debug("Skipping @-rule", zap.String("rule", atRule))

		case css.BeginRulesetGrammar:
			selectors := p.parseSelectors(data, parser.Values())
			props := p.parseDeclarations(parser)

			// Create rules for each selector
			for _, sel := range selectors {
				propsCopy := make(Properties, len(props))
				copy(propsCopy, props)
				sheet.Rules = append(sheet.Rules, Rule{Selector: sel, Properties: propsCopy})
			}

		case css.QualifiedRuleGrammar:
			// Selector list without a block
			sheet.Warnings = append(sheet.Warnings, "rule without declarations: "+string(data))
		}
	}
}

// parseSelectors extracts selector strings from token data.
func (p *Parser) parseSelectors(data []byte, values []css.Token) []string {
	// Build full selector string from data and values
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return splitSelectors(sb.String())
}

// splitSelectors splits grouped selectors by commas which are not escaped.
func splitSelectors(s string) []string {
	var (
		selectors []string
		start     int
		escaped   bool
	)
	add := func(part string) {
		if part = strings.TrimSpace(part); part != "" {
			selectors = append(selectors, part)
		}
	}
	for i := 0; i < len(s); i++ {
		switch {
		case escaped:
			escaped = false
		case s[i] == '\\':
			escaped = true
		case s[i] == ',':
			add(s[start:i])
			start = i + 1
		}
	}
	add(s[start:])
	return selectors
}

// spaces around unescaped combinators, whitespace is already collapsed
var combinatorSpace = regexp.MustCompile(`(^|[^\\]) ?([>+~]) ?`)

// NormalizeSelector brings single selector to the form tokenizer gives it
// back: whitespace runs collapsed, no spaces around combinators, trimmed.
func NormalizeSelector(sel string) string {
	sel = strings.Join(strings.Fields(sel), " ")
	return combinatorSpace.ReplaceAllString(sel, "${1}${2}")
}

// SelectorList splits grouped selector and normalizes every part, result
// could be compared with selectors of parsed rules.
func SelectorList(sel string) []string {
	parts := splitSelectors(sel)
	for i := range parts {
		parts[i] = NormalizeSelector(parts[i])
	}
	return parts
}

// parseDeclarations parses property declarations until EndRulesetGrammar
// keeping source order.
func (p *Parser) parseDeclarations(parser *css.Parser) Properties {
	var props Properties

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return props

		case css.DeclarationGrammar:
			values := parser.Values()
			if len(values) > 0 {
				props = props.With(string(data), rawValue(values))
			}

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) - not produced by us
			continue
		}
	}
}

// rawValue converts CSS tokens back to value text collapsing whitespace.
func rawValue(tokens []css.Token) string {
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			// Add space between non-whitespace tokens
			rawParts = append(rawParts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(rawParts, ""))
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}
