package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Resolver looks up a path in the data a condition is evaluated against.
type Resolver interface {
	Lookup(path string) (any, bool)
}

// Env is the evaluation environment of a condition.
type Env struct {
	// Value is the current value of the element the rule belongs to.
	Value    any
	Required bool
	Disabled bool
	Data     Resolver
}

// now is replaced in tests.
var now = time.Now

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// Evaluate returns the return value of the first rule with a matching group
// and true, or nil and false when no rule matches. A return value of "true"
// or "false" is converted to a bool.
func Evaluate(rules []Rule, env Env) (any, bool) {
	for _, rule := range rules {
		for _, group := range rule.Groups {
			if matchGroup(group, env) {
				return coerce(rule.Return), true
			}
		}
	}
	return nil, false
}

// EvaluateBool evaluates rules as a boolean, falling back to def when no rule
// matches or the matching rule does not return a boolean.
func EvaluateBool(rules []Rule, env Env, def bool) bool {
	v, ok := Evaluate(rules, env)
	if !ok {
		return def
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func coerce(ret string) any {
	switch strings.ToLower(strings.TrimSpace(ret)) {
	case "true":
		return true
	case "false":
		return false
	}
	return ret
}

func matchGroup(group []Atom, env Env) bool {
	if len(group) == 0 {
		return false
	}
	for _, atom := range group {
		if !atom.Match(env) {
			return false
		}
	}
	return true
}

func (env Env) lookup(path string) any {
	switch path {
	case VarValue:
		return env.Value
	case VarRequired:
		return env.Required
	case VarDisabled:
		return env.Disabled
	}
	if env.Data == nil {
		return nil
	}
	v, _ := env.Data.Lookup(path)
	return v
}

// Match reports whether the atom holds in env.
func (a Atom) Match(env Env) bool {
	if a.Invalid {
		return false
	}
	left := env.lookup(a.Left)
	if a.IsDate {
		return matchDate(left, a.Right.String, a.Op)
	}
	if a.Right.Kind != KindNull && (a.Op == OpEqual || a.Op == OpNotEqual) {
		if items, ok := asSlice(left); ok {
			found := false
			for _, item := range items {
				if matchScalar(item, a.Right, OpEqual) {
					found = true
					break
				}
			}
			return found == (a.Op == OpEqual)
		}
	}
	return matchScalar(left, a.Right, a.Op)
}

func matchScalar(left any, right Literal, op Operator) bool {
	switch right.Kind {
	case KindNull:
		switch op {
		case OpEqual:
			return IsEmpty(left)
		case OpNotEqual:
			return !IsEmpty(left)
		}
		return false
	case KindBool:
		b, ok := toBool(left)
		switch op {
		case OpEqual:
			return ok && b == right.Bool
		case OpNotEqual:
			return !ok || b != right.Bool
		}
		return false
	case KindNumber:
		n, ok := ToNumber(left)
		if !ok {
			return op == OpNotEqual
		}
		return compareNumbers(n, right.Number, op)
	case KindString:
		s := ToString(left)
		if op == OpEqual {
			return s == right.String
		}
		if op == OpNotEqual {
			return s != right.String
		}
		ln, lok := ToNumber(s)
		rn, rok := ToNumber(right.String)
		if lok && rok {
			return compareNumbers(ln, rn, op)
		}
		return compareOrdered(strings.Compare(s, right.String), op)
	}
	return false
}

func matchDate(left any, right string, op Operator) bool {
	l, ok := toDate(left)
	if !ok {
		return false
	}
	r, ok := toDate(right)
	if !ok {
		return false
	}
	return compareOrdered(l.Compare(r), op)
}

func compareNumbers(l, r float64, op Operator) bool {
	switch {
	case l < r:
		return compareOrdered(-1, op)
	case l > r:
		return compareOrdered(1, op)
	}
	return compareOrdered(0, op)
}

func compareOrdered(c int, op Operator) bool {
	switch op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpGreater:
		return c > 0
	case OpLess:
		return c < 0
	case OpGreaterEqual:
		return c >= 0
	case OpLessEqual:
		return c <= 0
	}
	return false
}

// IsEmpty reports whether v is nil, an empty string or an empty collection.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func asSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// ToNumber converts v to a float64 when it holds a finite number, a numeric
// string or a bool.
func ToNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, isFinite(t)
	case float32:
		return float64(t), isFinite(float64(t))
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case json.Number:
		n, err := t.Float64()
		return n, err == nil && isFinite(n)
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil && isFinite(n)
	}
	return 0, false
}

// isFinite rejects the NaN and Inf spellings ParseFloat accepts.
func isFinite(n float64) bool {
	return !math.IsNaN(n) && !math.IsInf(n, 0)
}

func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, true
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "on", "yes":
			return true, true
		case "false", "0", "off", "no", "":
			return false, true
		}
		return false, false
	}
	if n, ok := ToNumber(v); ok {
		return n != 0, true
	}
	return false, false
}

// ToString formats v the way conditions compare it against strings.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func toDate(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToLower(s) {
		case "now":
			return now(), true
		case "today":
			y, m, d := now().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.Local), true
		}
		for _, layout := range dateLayouts {
			if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
				return d, true
			}
		}
	}
	return time.Time{}, false
}
