package expressions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/veldt/synapse/pkg/schema"
)

// HasPlaceholder reports whether a raw field value embeds any {{...}}
// reference.
func HasPlaceholder(raw string) bool {
	return strings.Contains(raw, "{{")
}

// Interpolate scans all {{path}} placeholders left to right, resolves
// each through the path resolver, and concatenates the resolved and
// stringified segments with the surrounding literal text.
func (r *Resolver) Interpolate(ctx context.Context, raw string, vars map[string]any) (string, error) {
	var result strings.Builder
	result.Grow(len(raw))

	i := 0
	for i < len(raw) {
		idx := strings.Index(raw[i:], "{{")
		if idx == -1 {
			result.WriteString(raw[i:])
			break
		}

		result.WriteString(raw[i : i+idx])
		start := i + idx + 2 // skip "{{"

		end := strings.Index(raw[start:], "}}")
		if end == -1 {
			return "", schema.NewErrorf(schema.ErrCodeInvalidToken, "unclosed {{ reference in %q", raw)
		}
		end += start

		path := strings.TrimSpace(raw[start:end])
		if path == "" {
			return "", schema.NewError(schema.ErrCodeInvalidToken, "empty variable reference: {{ }}")
		}

		val, err := r.Resolve(ctx, path, vars)
		if err != nil {
			return "", err
		}
		result.WriteString(stringify(val))

		i = end + 2 // skip "}}"
	}

	return result.String(), nil
}

// ResolveValue resolves a raw field value to its native form. A raw
// value that is exactly one placeholder yields the referenced value
// unchanged; anything else interpolates to a string.
func (r *Resolver) ResolveValue(ctx context.Context, raw string, vars map[string]any) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{{") && strings.HasSuffix(trimmed, "}}") {
		inner := trimmed[2 : len(trimmed)-2]
		if !strings.Contains(inner, "{{") && !strings.Contains(inner, "}}") {
			path := strings.TrimSpace(inner)
			if path == "" {
				return nil, schema.NewError(schema.ErrCodeInvalidToken, "empty variable reference: {{ }}")
			}
			return r.Resolve(ctx, path, vars)
		}
	}
	if !HasPlaceholder(raw) {
		return raw, nil
	}
	return r.Interpolate(ctx, raw, vars)
}

// stringify converts a resolved value into the text embedded in a
// composed field value. Whole numbers render without a decimal point.
func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
