package clinicflow

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

func evaluateCondition(expr string, data map[string]any) (bool, error) {
	tpl, err := template.New("condition").Option("missingkey=zero").Funcs(template.FuncMap{
		"eq":     valuesEqual,
		"ne":     func(a, b any) bool { return !valuesEqual(a, b) },
		"gt":     func(a, b any) (bool, error) { return compareNumbers(a, b, func(x, y float64) bool { return x > y }) },
		"lt":     func(a, b any) (bool, error) { return compareNumbers(a, b, func(x, y float64) bool { return x < y }) },
		"ge":     func(a, b any) (bool, error) { return compareNumbers(a, b, func(x, y float64) bool { return x >= y }) },
		"le":     func(a, b any) (bool, error) { return compareNumbers(a, b, func(x, y float64) bool { return x <= y }) },
		"absent": func(a any) bool { return a == nil },
	}).Parse(expr)
	if err != nil {
		return false, fmt.Errorf("parse condition: %w", err)
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return false, fmt.Errorf("execute condition: %w", err)
	}

	result := strings.TrimSpace(buf.String())
	switch result {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid condition output: %q", result)
	}
}

func compareNumbers(a, b any, cmp func(x, y float64) bool) (bool, error) {
	x, err := toFloat(a)
	if err != nil {
		return false, err
	}
	y, err := toFloat(b)
	if err != nil {
		return false, err
	}

	return cmp(x, y), nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

// valuesEqual compares numbers by value regardless of their integer or
// float representation.
func valuesEqual(a, b any) bool {
	if a != nil && b != nil {
		x, errX := toFloat(a)
		y, errY := toFloat(b)
		if errX == nil && errY == nil {
			return x == y
		}
	}

	return a == b
}
