// Package casing converts JSON object keys between the camelCase convention
// spoken by the frontend and the snake_case convention used by the backend
// services and their database columns.
package casing

import (
	"errors"
	"strings"
	"unicode"
)

// KeyFunc renames a single object key. ToSnakeCase and ToCamelCase are the
// two directions the gateway uses.
type KeyFunc func(string) string

// MaxDepth bounds ConvertKeys recursion. JSON decoded from a request can
// never contain a cycle, so this only trips on pathologically deep payloads.
const MaxDepth = 1000

// ErrMaxDepthExceeded is returned by ConvertKeys when the input nests deeper
// than MaxDepth levels.
var ErrMaxDepthExceeded = errors.New("casing: maximum conversion depth exceeded")

// ToSnakeCase converts camelCase or PascalCase to snake_case. Every uppercase
// letter after the first character gets its own underscore, so consecutive
// capitals split individually: XMLHttpRequest becomes x_m_l_http_request.
// That is the mapping downstream columns were named under; it is intentional,
// not an acronym-handling bug. Already-snake input comes back unchanged.
func ToSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteRune('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToCamelCase converts snake_case to camelCase. An underscore immediately
// followed by a non-underscore character is removed and that character
// uppercased; digits uppercase to themselves, so user_1_name becomes
// user1Name. An underscore followed by another underscore (or ending the
// string) is kept, which gives user__name -> user_Name. Consumers depend on
// that exact mapping; do not normalise it.
func ToCamelCase(s string) string {
	if !strings.ContainsRune(s, '_') {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		if runes[i] == '_' && i+1 < len(runes) && runes[i+1] != '_' {
			i++
			b.WriteRune(unicode.ToUpper(runes[i]))
			continue
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// ConvertKeys applies fn to every object key at every nesting level of v and
// returns a newly built tree of the same shape. Maps and slices are rebuilt;
// everything else — strings, numbers, booleans, nil, and opaque values such
// as time.Time, compiled regexps or funcs — is returned unchanged by
// reference. The input is never mutated.
//
// Only map[string]any and []any are traversed, the two composite types
// encoding/json produces. Typed maps built by hand count as opaque.
func ConvertKeys(v any, fn KeyFunc) (any, error) {
	return convert(v, fn, 0)
}

func convert(v any, fn KeyFunc, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, ErrMaxDepthExceeded
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			converted, err := convert(child, fn, depth+1)
			if err != nil {
				return nil, err
			}
			out[fn(k)] = converted
		}
		return out, nil

	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			converted, err := convert(child, fn, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil

	default:
		return v, nil
	}
}
