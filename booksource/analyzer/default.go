package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// defaultAnalyzer handles the compact grammar: @-separated segments of
// "class.NAME", "id.NAME", "tag.NAME" with optional positions, compiled
// to a CSS selector and delegated to the HTML analyzer.
type defaultAnalyzer struct {
	html *htmlAnalyzer
}

func newDefaultAnalyzer(content string) (*defaultAnalyzer, error) {
	h, err := newHTMLAnalyzer(content)
	if err != nil {
		return nil, err
	}
	return &defaultAnalyzer{html: h}, nil
}

func (a *defaultAnalyzer) GetString(rule string) (string, error) {
	selector, err := ruleToSelector(rule)
	if err != nil {
		return "", err
	}
	return a.html.GetString(selector)
}

func (a *defaultAnalyzer) GetElements(rule string) ([]string, error) {
	selector, err := ruleToSelector(rule)
	if err != nil {
		return nil, err
	}
	return a.html.GetElements(selector)
}

var (
	classMap = map[string]string{"class": ".", "id": "#", "tag": ""}
	rangeRe  = regexp.MustCompile(`\[(.*?)\]`)
)

// ruleToSelector compiles one compact rule to a CSS selector. A trailing
// dot-free segment is an extraction keyword and passes through behind @.
//
// Positions are 0-based: "tag.p.0" is the first p. Bracket suffixes select
// ("[1,4]"), exclude ("[!1,4]"), slice with optional step ("[1:8:2]"), or
// match an attribute ("[key=value]"). Negative indexes count from the
// end, so "[-1]" is the last sibling of its type.
func ruleToSelector(rule string) (string, error) {
	segments := strings.Split(rule, "@")
	selectors := make([]string, 0, len(segments))

	for index, segment := range segments {
		if index == len(segments)-1 && !strings.Contains(segment, ".") {
			selectors = append(selectors, "@"+segment)
			continue
		}

		seg := strings.TrimSpace(segment)
		position := ""
		if loc := rangeRe.FindStringIndex(seg); loc != nil {
			position = strings.TrimSpace(seg[loc[0]+1 : loc[1]-1])
			seg = seg[:loc[0]]
		}

		var res string
		parts := strings.Split(seg, ".")
		switch len(parts) {
		case 1:
			res = parts[0]
		case 2:
			res = classMap[parts[0]] + parts[1]
		case 3:
			n, err := strconv.Atoi(parts[2])
			if err != nil {
				return "", fmt.Errorf("%w: position in %q", ErrInvalidRule, segment)
			}
			res = fmt.Sprintf("%s%s:nth-of-type(%d)", classMap[parts[0]], parts[1], n+1)
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidRule, segment)
		}

		if position != "" {
			if key, value, ok := strings.Cut(position, "="); ok {
				selectors = append(selectors, fmt.Sprintf(`%s[%s="%s"]`, res, key, value))
				continue
			}
			exclude := strings.HasPrefix(position, "!")
			if exclude {
				position = position[1:]
			}

			var ranges []string
			for _, p := range strings.Split(position, ",") {
				expr, err := positionToSelector(p)
				if err != nil {
					return "", fmt.Errorf("%w: position in %q", ErrInvalidRule, segment)
				}
				ranges = append(ranges, expr)
			}

			if exclude {
				res = fmt.Sprintf("%s:not(%s)", res, strings.Join(ranges, ","))
			} else {
				res = fmt.Sprintf("%s:is(%s)", res, strings.Join(ranges, ","))
			}
		}
		selectors = append(selectors, res)
	}

	return strings.Join(selectors, " "), nil
}

func positionToSelector(p string) (string, error) {
	if strings.Contains(p, ":") {
		bounds := strings.Split(p, ":")
		if len(bounds) < 2 {
			return "", fmt.Errorf("bad slice %q", p)
		}
		start, err := strconv.Atoi(bounds[0])
		if err != nil {
			return "", err
		}
		end, err := strconv.Atoi(bounds[1])
		if err != nil {
			return "", err
		}
		step := ""
		if len(bounds) > 2 {
			step = bounds[2]
		}
		return fmt.Sprintf(":nth-of-type(%sn+%d):not(:nth-of-type(%sn+%d))",
			step, start+1, step, end+1), nil
	}

	n, err := strconv.Atoi(p)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return fmt.Sprintf(":nth-last-of-type(%d)", -n), nil
	}
	return fmt.Sprintf(":nth-of-type(%d)", n+1), nil
}
