package policy

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Condition is one node of a parsed rule condition tree. Conditions are
// parsed once from the stored JSON when rules are loaded, then evaluated
// against the flattened evaluation context.
type Condition interface {
	Matches(ctx map[string]any) bool
}

// And matches when every child matches. An empty And matches everything,
// which is how a rule with no conditions applies unconditionally.
type And struct {
	Children []Condition
}

func (c And) Matches(ctx map[string]any) bool {
	for _, child := range c.Children {
		if !child.Matches(ctx) {
			return false
		}
	}
	return true
}

// Eq requires strict equality between the context value at Path and Value
type Eq struct {
	Path  string
	Value any
}

func (c Eq) Matches(ctx map[string]any) bool {
	return equalValues(lookupPath(ctx, c.Path), c.Value)
}

// MatchAny matches when the context value equals any listed value, or, for
// string context values, contains one as a substring
type MatchAny struct {
	Path   string
	Values []any
}

func (c MatchAny) Matches(ctx map[string]any) bool {
	got := lookupPath(ctx, c.Path)
	for _, want := range c.Values {
		if s, ok := got.(string); ok {
			if ws, ok := want.(string); ok && (s == ws || strings.Contains(s, ws)) {
				return true
			}
			continue
		}
		if equalValues(got, want) {
			return true
		}
	}
	return false
}

// Not matches unless the context value equals Value
type Not struct {
	Path  string
	Value any
}

func (c Not) Matches(ctx map[string]any) bool {
	return !equalValues(lookupPath(ctx, c.Path), c.Value)
}

// Lte matches when the context value is a number not greater than N
type Lte struct {
	Path string
	N    float64
}

func (c Lte) Matches(ctx map[string]any) bool {
	n, ok := lookupPath(ctx, c.Path).(float64)
	return ok && n <= c.N
}

// Gte matches when the context value is a number not less than N
type Gte struct {
	Path string
	N    float64
}

func (c Gte) Matches(ctx map[string]any) bool {
	n, ok := lookupPath(ctx, c.Path).(float64)
	return ok && n >= c.N
}

// Exists requires a non-falsy value at Path. Produced for an empty nested
// condition object, which constrains presence but nothing else.
type Exists struct {
	Path string
}

func (c Exists) Matches(ctx map[string]any) bool {
	return !isFalsy(lookupPath(ctx, c.Path))
}

// never is produced for malformed operator operands (e.g. a non-numeric lte
// bound); the rule then cannot match, matching no input is safer than
// guessing
type never struct{}

func (never) Matches(map[string]any) bool { return false }

// ParseConditions parses a stored condition tree into a Condition AST.
// Nil, empty, or "{}"/"null" input yields an empty And (matches all).
func ParseConditions(raw json.RawMessage) (Condition, error) {
	if len(raw) == 0 {
		return And{}, nil
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse rule conditions: %w", err)
	}
	return parseConditionMap("", tree), nil
}

// parseConditionMap walks one level of the condition object. Keys may
// themselves be dot paths; nested objects without an operator key extend the
// path, so {"a": {"b": 1}} and {"a.b": 1} are equivalent.
func parseConditionMap(prefix string, tree map[string]any) Condition {
	and := And{}
	for key, value := range tree {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		obj, isObj := value.(map[string]any)
		if !isObj {
			and.Children = append(and.Children, Eq{Path: path, Value: value})
			continue
		}

		switch {
		case hasKey(obj, "match_any"):
			values, ok := obj["match_any"].([]any)
			if !ok {
				and.Children = append(and.Children, never{})
				continue
			}
			and.Children = append(and.Children, MatchAny{Path: path, Values: values})
		case hasKey(obj, "not"):
			and.Children = append(and.Children, Not{Path: path, Value: obj["not"]})
		case hasKey(obj, "lte"):
			n, ok := obj["lte"].(float64)
			if !ok {
				and.Children = append(and.Children, never{})
				continue
			}
			and.Children = append(and.Children, Lte{Path: path, N: n})
		case hasKey(obj, "gte"):
			n, ok := obj["gte"].(float64)
			if !ok {
				and.Children = append(and.Children, never{})
				continue
			}
			and.Children = append(and.Children, Gte{Path: path, N: n})
		case len(obj) == 0:
			and.Children = append(and.Children, Exists{Path: path})
		default:
			// A nested condition only matches when the context sub-object is
			// actually present, so guard the recursion with an Exists.
			and.Children = append(and.Children, And{Children: []Condition{
				Exists{Path: path},
				parseConditionMap(path, obj),
			}})
		}
	}
	return and
}

func hasKey(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

// lookupPath resolves a dot path against nested maps; missing segments
// resolve to nil
func lookupPath(ctx map[string]any, path string) any {
	var current any = ctx
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

// isFalsy mirrors JS truthiness for JSON values: nil, "", 0, and false are
// falsy; everything else (including empty arrays and objects) is truthy
func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case bool:
		return !t
	default:
		return false
	}
}

// equalValues compares two JSON-decoded values strictly
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}
