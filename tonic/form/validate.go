package form

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/G-Node/tonicforms/tonic/form/condition"
)

const (
	defaultRequiredMessage = "This field is required."
	defaultInvalidMessage  = "Invalid value."
)

func isBlank(v any) bool {
	if b, ok := v.(bool); ok {
		return !b
	}
	return condition.IsEmpty(v)
}

func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// defaultValidate checks, in order: required, length bounds, numeric
// bounds, pattern and the node's validation condition. Empty values of
// optional fields are valid.
func (f *Field) defaultValidate(value any, data map[string]any, required bool) (string, bool) {
	node := f.node
	if isBlank(value) {
		if !required {
			return "", true
		}
		if node.RequiredMessage != "" {
			return node.RequiredMessage, false
		}
		return defaultRequiredMessage, false
	}
	if n, ok := value.(float64); ok && (math.IsNaN(n) || math.IsInf(n, 0)) {
		return "Please enter a number.", false
	}

	if n, ok := length(value); ok {
		if node.MinLength != nil && n < *node.MinLength {
			return fmt.Sprintf("Please enter at least %d characters.", *node.MinLength), false
		}
		if node.MaxLength != nil && n > *node.MaxLength {
			return fmt.Sprintf("Please enter at most %d characters.", *node.MaxLength), false
		}
	}

	if node.Min != nil || node.Max != nil {
		n, ok := condition.ToNumber(value)
		if !ok {
			return "Please enter a number.", false
		}
		if node.Min != nil && n < *node.Min {
			return "Value must be at least " + formatNumber(*node.Min) + ".", false
		}
		if node.Max != nil && n > *node.Max {
			return "Value must be at most " + formatNumber(*node.Max) + ".", false
		}
	}

	if f.pattern != nil {
		if s, ok := value.(string); ok && !f.pattern.MatchString(s) {
			return "Value does not match the required format.", false
		}
	}

	if len(f.validation) > 0 {
		env := f.env(value)
		env.Required, env.Disabled = required, f.disabled
		if ret, ok := condition.Evaluate(f.validation, env); ok {
			switch r := ret.(type) {
			case bool:
				if !r {
					return defaultInvalidMessage, false
				}
			case string:
				if r != "" {
					return r, false
				}
			}
		}
	}
	return "", true
}
