// Package formula implements the mapping-value expression language used when
// generating documents. A formula is a single function call such as
// ROUND($record, 2) or CONCAT($customer.name, " 様"); there is no nesting and
// there are no operators. Strings that do not look like a function call are
// passed through unchanged.
package formula

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrUnsupportedFunction is returned when a formula names a function
	// that is not in the dispatch table.
	ErrUnsupportedFunction = errors.New("unsupported function")

	// ErrMalformedArgument is returned when a function receives the wrong
	// number of arguments or an argument that cannot be converted to the
	// required type.
	ErrMalformedArgument = errors.New("malformed argument")
)

// callPattern matches exactly one top-level call: NAME(ARGS). The argument
// capture is non-greedy, so nested parentheses are not supported. This is the
// contract of the language, not a shortcut.
var callPattern = regexp.MustCompile(`(\w+)\((.*?)\)`)

// pathPattern matches dotted datasource references like $customer.address.city.
var pathPattern = regexp.MustCompile(`^\$(\w+)(\.\w+)+$`)

// recordToken substitutes the record value passed to the parser.
const recordToken = "$record"

// Parser evaluates formulas against a record value and an auxiliary
// datasource mapping. A Parser is immutable after construction and safe for
// concurrent use.
type Parser struct {
	record     any
	datasource map[string]any
}

// NewParser returns a Parser bound to the given record and datasource.
// Both may be nil.
func NewParser(record any, datasource map[string]any) *Parser {
	return &Parser{record: record, datasource: datasource}
}

// Evaluate parses and executes a formula string. Input that does not match
// the single-call pattern is returned unchanged with a nil error, so callers
// can feed every mapping value through without pre-classifying it.
func (p *Parser) Evaluate(input string) (any, error) {
	m := callPattern.FindStringSubmatch(input)
	if m == nil {
		return input, nil
	}

	name := strings.ToUpper(m[1])
	fn, ok := functions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFunction, m[1])
	}

	args, err := p.resolveArgs(m[2])
	if err != nil {
		return nil, err
	}
	return fn(args)
}

// resolveArgs splits the raw argument text on commas and resolves each token
// into a value. An empty argument list yields zero arguments, not one empty
// string.
func (p *Parser) resolveArgs(raw string) ([]any, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	tokens := strings.Split(raw, ",")
	args := make([]any, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		args = append(args, p.resolveToken(tok))
	}
	return args, nil
}

// resolveToken applies the argument resolution rules in order: record
// placeholder, dotted datasource path, numeric literal, quoted string.
func (p *Parser) resolveToken(tok string) any {
	if tok == recordToken {
		return p.record
	}
	if pathPattern.MatchString(tok) {
		return lookupPath(strings.TrimPrefix(tok, "$"), p.datasource)
	}
	if n, err := strconv.ParseFloat(tok, 64); err == nil {
		return n
	}
	return strings.Trim(tok, `"'`)
}

// lookupPath walks the datasource key by key. Any missing or non-mapping
// intermediate value resolves to nil rather than an error.
func lookupPath(path string, data map[string]any) any {
	var current any = data
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}
