package form

import (
	"github.com/G-Node/tonicforms/tonic/form/condition"
)

// RuleFunc computes a rule from the element's value and the form data. The
// data map is the live form data and must not be modified.
type RuleFunc func(value any, data map[string]any) bool

// Rule is a boolean element property (visible, required, disabled) that is
// either a static value, a condition string or a function. The zero Rule is
// unset and yields the property's default.
type Rule struct {
	set    bool
	static bool
	source string
	parsed []condition.Rule
	fn     RuleFunc
}

// Static returns a rule with a fixed value.
func Static(v bool) Rule {
	return Rule{set: true, static: v}
}

// When returns a rule computed from a condition string. A condition that
// matches no clause is false.
func When(source string) Rule {
	return Rule{set: true, source: source, parsed: condition.Parse(source)}
}

// Func returns a rule computed by fn.
func Func(fn RuleFunc) Rule {
	if fn == nil {
		return Rule{}
	}
	return Rule{set: true, fn: fn}
}

// IsSet reports whether the rule was configured.
func (r Rule) IsSet() bool {
	return r.set
}

// Source returns the condition string of the rule, if any.
func (r Rule) Source() string {
	return r.source
}

func (r Rule) eval(env condition.Env, data map[string]any, def bool) bool {
	switch {
	case !r.set:
		return def
	case r.fn != nil:
		return r.fn(env.Value, data)
	case r.parsed != nil || r.source != "":
		return condition.EvaluateBool(r.parsed, env, false)
	}
	return r.static
}
