package analyzer

import (
	"fmt"
	"regexp"
	"strings"
)

// maxTemplateDepth bounds recursive template evaluation; a variable that
// transitively references itself fails with ErrTemplateRecursion.
const maxTemplateDepth = 16

var (
	splitRule = regexp.MustCompile(`@css:|@json:|@http:|@xpath:|@match:|@regex:|@regexp:|@replace:|@encode:|@decode:|^`)

	cssToken  = regexp.MustCompile(`^@css:`)
	jsonToken = regexp.MustCompile(`^@json:|^\$`)
	jsonStrip = regexp.MustCompile(`^@json:`)

	putRule  = regexp.MustCompile(`@put:\{(.+?):(.+?)\}`)
	getRule  = regexp.MustCompile(`@get:\{(.+?)\}`)
	exprRule = regexp.MustCompile(`\{\{(.+?)\}\}`)
)

// Manager evaluates rule chains and owns the @put/@get variable store.
// A Manager is single-owner; concurrent use requires one per goroutine.
type Manager struct {
	variables map[string]string
}

// NewManager creates a manager with an empty variable store.
func NewManager() *Manager {
	return &Manager{variables: make(map[string]string)}
}

// Set binds a variable for later @get references.
func (m *Manager) Set(key string, value any) {
	m.variables[key] = fmt.Sprint(value)
}

// SplitRule cuts a rule chain at analyzer tokens and classifies each
// stage. The body keeps everything up to the next token; a ## suffix
// becomes the stage's replacement.
func (m *Manager) SplitRule(rule string) ([]SingleRule, error) {
	matches := splitRule.FindAllStringIndex(rule, -1)
	list := make([]SingleRule, 0, len(matches))
	end := len(rule)

	for i := len(matches) - 1; i >= 0; i-- {
		seg := rule[matches[i][0]:end]
		end = matches[i][0]

		kind, body := classify(seg)
		replace := ""
		if idx := strings.Index(body, "##"); idx >= 0 {
			replace = body[idx+2:]
			body = body[:idx]
		}
		list = append(list, SingleRule{Rule: body, Replace: replace, Kind: kind})
	}

	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

// classify picks the analyzer for a stage and strips its token. The
// token match is decided on the trimmed body; JSONPath rules written as
// bare $-paths keep their body verbatim.
func classify(seg string) (Kind, string) {
	trimmed := strings.TrimSpace(seg)
	switch {
	case cssToken.MatchString(trimmed):
		return KindHTML, cssToken.ReplaceAllString(seg, "")
	case jsonToken.MatchString(trimmed):
		return KindJSONPath, jsonStrip.ReplaceAllString(seg, "")
	default:
		return KindDefault, seg
	}
}

// GetString evaluates a rule chain over data and returns a single text
// result.
func (m *Manager) GetString(rule, data string) (string, error) {
	return m.getString(rule, data, nil, 0)
}

// GetStringWithExtra is GetString with an overlay of pre-bound template
// names: a {{name}} found in extra short-circuits rule evaluation.
func (m *Manager) GetStringWithExtra(rule, data string, extra map[string]any) (string, error) {
	return m.getString(rule, data, extra, 0)
}

func (m *Manager) getString(rule, data string, extra map[string]any, depth int) (string, error) {
	if depth > maxTemplateDepth {
		return "", fmt.Errorf("%w: %q", ErrTemplateRecursion, rule)
	}
	if rule == "" {
		return "", nil
	}

	rule, err := m.putVariables(rule, data, depth)
	if err != nil {
		return "", err
	}
	rule, err = m.getVariables(rule)
	if err != nil {
		return "", err
	}

	// Template pass. The rule is a template only when a {{ still opens
	// before the last }}; otherwise braces belong to the rule proper.
	left := strings.LastIndex(rule, "{{")
	right := strings.LastIndex(rule, "}}")
	if left >= 0 && right >= 0 && left < right {
		return replaceAllSubmatchFunc(exprRule, rule, func(groups []string) (string, error) {
			sub := strings.TrimSpace(groups[1])
			if extra != nil {
				if v, ok := extra[sub]; ok {
					return valueToString(v)
				}
			}
			return m.getString(sub, data, nil, depth+1)
		})
	}

	rules, err := m.SplitRule(rule)
	if err != nil {
		return "", err
	}
	temp := data
	for i := range rules {
		a, err := newAnalyzer(rules[i].Kind, temp)
		if err != nil {
			return "", &RuleError{Kind: rules[i].Kind, Rule: rules[i].Rule, Err: err}
		}
		temp, err = getString(&rules[i], a, rules[i].Rule)
		if err != nil {
			return "", &RuleError{Kind: rules[i].Kind, Rule: rules[i].Rule, Err: err}
		}
		temp, err = rules[i].ReplaceContent(temp)
		if err != nil {
			return "", err
		}
	}
	return temp, nil
}

// getString resolves the && and || operators, then queries the analyzer.
// && concatenates non-empty branch results with two spaces; || takes the
// first non-empty branch. The stage replacement applies to leaf results.
func getString(sr *SingleRule, a Analyzer, rule string) (string, error) {
	if strings.Contains(rule, "&&") {
		var parts []string
		for _, sub := range strings.Split(rule, "&&") {
			r, err := getString(sr, a, sub)
			if err != nil {
				return "", err
			}
			if r != "" {
				parts = append(parts, r)
			}
		}
		return strings.Join(parts, "  "), nil
	}
	if strings.Contains(rule, "||") {
		for _, sub := range strings.Split(rule, "||") {
			r, err := getString(sr, a, sub)
			if err != nil {
				return "", err
			}
			if r != "" {
				return r, nil
			}
		}
		return "", nil
	}

	result, err := a.GetString(rule)
	if err != nil {
		return "", err
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return "", nil
	}
	return sr.ReplaceContent(result)
}

// GetElements evaluates a rule chain over data and returns a list of
// document fragments. Each stage runs against every fragment the
// previous stage produced, and the results are flattened in order.
func (m *Manager) GetElements(rule, data string) ([]string, error) {
	rules, err := m.SplitRule(rule)
	if err != nil {
		return nil, err
	}

	cur := []string{data}
	for i := range rules {
		var next []string
		for _, d := range cur {
			a, err := newAnalyzer(rules[i].Kind, d)
			if err != nil {
				return nil, &RuleError{Kind: rules[i].Kind, Rule: rules[i].Rule, Err: err}
			}
			els, err := getElements(a, rules[i].Rule)
			if err != nil {
				return nil, &RuleError{Kind: rules[i].Kind, Rule: rules[i].Rule, Err: err}
			}
			next = append(next, els...)
		}
		cur = next
	}
	return cur, nil
}

func getElements(a Analyzer, rule string) ([]string, error) {
	if strings.Contains(rule, "&&") {
		var res []string
		for _, sub := range strings.Split(rule, "&&") {
			r, err := getElements(a, sub)
			if err != nil {
				return nil, err
			}
			res = append(res, r...)
		}
		return res, nil
	}
	if strings.Contains(rule, "||") {
		for _, sub := range strings.Split(rule, "||") {
			r, err := getElements(a, sub)
			if err != nil {
				return nil, err
			}
			if len(r) > 0 {
				return r, nil
			}
		}
		return nil, nil
	}
	return a.GetElements(rule)
}

// putVariables evaluates every @put:{key:rule} in place, binding the
// captured value and removing the directive from the rule.
func (m *Manager) putVariables(rule, data string, depth int) (string, error) {
	return replaceAllSubmatchFunc(putRule, rule, func(groups []string) (string, error) {
		key := strings.TrimSpace(groups[1])
		sub := strings.TrimSpace(groups[2])
		v, err := m.getString(sub, data, nil, depth+1)
		if err != nil {
			return "", err
		}
		m.variables[key] = v
		return "", nil
	})
}

// getVariables substitutes every @get:{key} with its bound value.
func (m *Manager) getVariables(rule string) (string, error) {
	return replaceAllSubmatchFunc(getRule, rule, func(groups []string) (string, error) {
		key := strings.TrimSpace(groups[1])
		v, ok := m.variables[key]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownVariable, key)
		}
		return v, nil
	})
}

// replaceAllSubmatchFunc is regexp.ReplaceAllStringFunc with submatches
// and error propagation.
func replaceAllSubmatchFunc(re *regexp.Regexp, s string, repl func([]string) (string, error)) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
		b.WriteString(s[last:m[0]])
		groups := make([]string, 0, len(m)/2)
		for i := 0; i < len(m); i += 2 {
			if m[i] < 0 {
				groups = append(groups, "")
			} else {
				groups = append(groups, s[m[i]:m[i+1]])
			}
		}
		r, err := repl(groups)
		if err != nil {
			return "", err
		}
		b.WriteString(r)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}
