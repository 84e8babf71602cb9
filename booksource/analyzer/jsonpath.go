package analyzer

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// jsonPathAnalyzer queries a parsed JSON document with JSONPath rules.
type jsonPathAnalyzer struct {
	content any
}

func newJSONPathAnalyzer(data string) (*jsonPathAnalyzer, error) {
	v, err := oj.ParseString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse json: %v", ErrDecode, err)
	}
	return &jsonPathAnalyzer{content: v}, nil
}

func (a *jsonPathAnalyzer) query(rule string) ([]any, error) {
	x, err := jp.ParseString(rule)
	if err != nil {
		return nil, fmt.Errorf("%w: json path %q: %v", ErrInvalidRule, rule, err)
	}
	return x.Get(a.content), nil
}

// GetString returns the first match as plain text. No match yields the
// empty string so || fallbacks can take over.
func (a *jsonPathAnalyzer) GetString(rule string) (string, error) {
	results, err := a.query(rule)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	return valueToString(results[0])
}

// GetElements returns every match re-encoded as JSON, so later stages can
// keep querying into them. A single matched array is unwrapped into its
// items.
func (a *jsonPathAnalyzer) GetElements(rule string) ([]string, error) {
	results, err := a.query(rule)
	if err != nil {
		return nil, err
	}
	if len(results) == 1 {
		if arr, ok := results[0].([]any); ok {
			results = arr
		}
	}
	out := make([]string, len(results))
	for i, v := range results {
		out[i] = oj.JSON(v)
	}
	return out, nil
}
