// Package analyzer implements the declarative extraction language of book
// sources: rule chains dispatched over HTML selectors, JSONPath, and a
// compact default grammar that compiles to CSS.
package analyzer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Common errors for rule evaluation.
var (
	ErrInvalidRule       = errors.New("invalid rule")
	ErrUnknownVariable   = errors.New("unknown variable")
	ErrTemplateRecursion = errors.New("template recursion limit exceeded")
	ErrInvalidValueType  = errors.New("invalid value type")
	ErrDecode            = errors.New("decode error")
)

// RuleError reports a failed rule stage with the rule text preserved.
type RuleError struct {
	Kind Kind
	Rule string
	Err  error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return fmt.Sprintf("%s rule %q: %v", e.Kind, e.Rule, e.Err)
}

// Unwrap returns the underlying evaluation error.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// Kind selects the query language of one rule stage.
type Kind int

const (
	// KindJSONPath evaluates the stage body as a JSONPath expression.
	KindJSONPath Kind = iota
	// KindHTML evaluates the stage body as a CSS selector rule.
	KindHTML
	// KindDefault compiles the compact grammar to CSS, then queries HTML.
	KindDefault
)

func (k Kind) String() string {
	switch k {
	case KindJSONPath:
		return "jsonpath"
	case KindHTML:
		return "css"
	default:
		return "default"
	}
}

// Analyzer evaluates rule bodies against one parsed document.
type Analyzer interface {
	GetString(rule string) (string, error)
	GetElements(rule string) ([]string, error)
}

func newAnalyzer(kind Kind, data string) (Analyzer, error) {
	switch kind {
	case KindJSONPath:
		return newJSONPathAnalyzer(data)
	case KindHTML:
		return newHTMLAnalyzer(data)
	default:
		return newDefaultAnalyzer(data)
	}
}

// SingleRule is one stage of a rule chain: the analyzer kind, the stage
// body, and the optional post-extraction replacement from a ## suffix.
type SingleRule struct {
	Rule    string
	Replace string
	Kind    Kind
}

// ReplaceContent applies the stage's ## replacement. The suffix is either
// "regex" (matches removed) or "regex##replacement".
func (r *SingleRule) ReplaceContent(content string) (string, error) {
	if r.Replace == "" {
		return content, nil
	}
	pattern, repl, _ := strings.Cut(r.Replace, "##")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("%w: replace pattern %q: %v", ErrInvalidRule, pattern, err)
	}
	return re.ReplaceAllString(content, repl), nil
}

// valueToString renders a scalar JSON value as plain text. Objects,
// arrays, and null have no text form.
func valueToString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidValueType, v)
	}
}
