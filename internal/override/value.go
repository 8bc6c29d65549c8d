package override

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingZero = regexp.MustCompile(`^[-+]?0[0-9]`)
	decimalInt  = regexp.MustCompile(`^[-+]?[0-9][0-9_]*$`)
	prefixedInt = regexp.MustCompile(`^[-+]?0[xXoObB][0-9a-fA-F_]+$`)
	decimalReal = regexp.MustCompile(`^[-+]?([0-9]+)?(\.[0-9]*)?([eE][-+]?[0-9]+)?$`)
)

// ParseValue infers the type of a raw override value.
func ParseValue(raw string) (any, error) {
	s := strings.TrimSpace(raw)

	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') {
		if s[len(s)-1] != s[0] {
			return nil, fmt.Errorf("unterminated quote in %q", raw)
		}
		return s[1 : len(s)-1], nil
	}

	switch s {
	case "null", "~":
		return nil, nil
	case "inf", "+inf", ".inf", "+.inf":
		return math.Inf(1), nil
	case "-inf", "-.inf":
		return math.Inf(-1), nil
	case "nan", ".nan":
		return math.NaN(), nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	if n, ok := parseInt(s); ok {
		return n, nil
	}
	if f, ok := parseFloat(s); ok {
		return f, nil
	}

	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("unterminated list in %q", raw)
		}
		return parseList(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "{") {
		if !strings.HasSuffix(s, "}") {
			return nil, fmt.Errorf("unterminated mapping in %q", raw)
		}
		return parseMap(s[1 : len(s)-1])
	}
	return s, nil
}

func parseInt(s string) (int64, bool) {
	switch {
	case leadingZero.MatchString(s) && decimalInt.MatchString(s):
		n, err := strconv.ParseInt(strings.ReplaceAll(s, "_", ""), 10, 64)
		return n, err == nil
	case decimalInt.MatchString(s), prefixedInt.MatchString(s):
		n, err := strconv.ParseInt(s, 0, 64)
		return n, err == nil
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	if !decimalReal.MatchString(s) || !strings.ContainsAny(s, "0123456789") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func parseList(body string) (any, error) {
	items, err := splitTopLevel(body)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := ParseValue(strings.TrimSpace(item))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseMap(body string) (any, error) {
	items, err := splitTopLevel(body)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(items))
	for _, item := range items {
		k, raw, ok := strings.Cut(item, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("mapping entry %q must be key: value", strings.TrimSpace(item))
		}
		v, err := ParseValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// splitTopLevel splits on commas that are not nested in brackets or quotes.
// An empty or all-space body yields no items.
func splitTopLevel(body string) ([]string, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}
	var (
		items []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q", string(c))
			}
		case c == ',' && depth == 0:
			items = append(items, body[start:i])
			start = i + 1
		}
	}
	if quote != 0 || depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets or quotes in %q", body)
	}
	return append(items, body[start:]), nil
}
