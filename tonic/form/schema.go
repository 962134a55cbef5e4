package form

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Schema is an ordered list of element definitions.
type Schema []Node

// Choice is an option of a select or radio field.
type Choice struct {
	Value string `mapstructure:"value"`
	Label string `mapstructure:"label"`
}

// ValidatorFunc validates a field value. It returns ok=true for valid values,
// or a message and ok=false.
type ValidatorFunc func(value any, data map[string]any, required bool) (msg string, ok bool)

// Node defines a single element of a schema. Only ID and Type are required;
// other options apply to the element types that use them.
type Node struct {
	ID          string `mapstructure:"id"`
	Type        string `mapstructure:"type"`
	Label       string `mapstructure:"label"`
	Description string `mapstructure:"description"`
	Placeholder string `mapstructure:"placeholder"`
	// Default is the initial value of a field and the value restored on reset.
	Default any               `mapstructure:"default"`
	Class   string            `mapstructure:"class"`
	Attrs   map[string]string `mapstructure:"attrs"`

	Visible  Rule `mapstructure:"visible"`
	Required Rule `mapstructure:"required"`
	Disabled Rule `mapstructure:"disabled"`

	// Validation is a condition string; a matching clause returning a string
	// makes the field invalid with that message.
	Validation      string   `mapstructure:"validation"`
	RequiredMessage string   `mapstructure:"requiredMessage"`
	MinLength       *int     `mapstructure:"minLength"`
	MaxLength       *int     `mapstructure:"maxLength"`
	Min             *float64 `mapstructure:"min"`
	Max             *float64 `mapstructure:"max"`
	Pattern         string   `mapstructure:"pattern"`

	Options  []Choice      `mapstructure:"options"`
	Multiple bool          `mapstructure:"multiple"`
	Debounce time.Duration `mapstructure:"debounce"`
	// Persist set to false keeps a field out of saved progress.
	Persist *bool `mapstructure:"persist"`

	// DataKey nests the data of a group's children under this key.
	DataKey string `mapstructure:"dataKey"`

	MaxRows     int    `mapstructure:"maxRows"`
	Addable     *bool  `mapstructure:"addable"`
	Removable   *bool  `mapstructure:"removable"`
	AddLabel    string `mapstructure:"addLabel"`
	RemoveLabel string `mapstructure:"removeLabel"`

	// Action of a button: submit, reset, save.
	Action string `mapstructure:"action"`

	Schema Schema `mapstructure:"schema"`

	// Extra holds options not known to the built-in types, for plugins.
	Extra map[string]any `mapstructure:",remain"`

	Validator ValidatorFunc     `mapstructure:"-"`
	OnClick   func(*Form) error `mapstructure:"-"`
}

var (
	ruleType     = reflect.TypeOf(Rule{})
	choiceType   = reflect.TypeOf(Choice{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// ruleHook decodes true, false and condition strings into a Rule.
func ruleHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != ruleType {
		return data, nil
	}
	switch v := data.(type) {
	case nil:
		return Rule{}, nil
	case bool:
		return Static(v), nil
	case string:
		switch v {
		case "true":
			return Static(true), nil
		case "false":
			return Static(false), nil
		}
		return When(v), nil
	case Rule:
		return v, nil
	}
	return nil, fmt.Errorf("cannot use %T as a rule", data)
}

// choiceHook decodes plain strings into a Choice with equal value and label.
func choiceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != choiceType {
		return data, nil
	}
	if s, ok := data.(string); ok {
		return Choice{Value: s, Label: s}, nil
	}
	return data, nil
}

// millisecondsHook decodes plain numbers into a duration in milliseconds.
func millisecondsHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	}
	return data, nil
}

// DecodeSchema decodes a generic tree (as produced by JSON or YAML decoders)
// into a Schema.
func DecodeSchema(input any) (Schema, error) {
	var schema Schema
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			ruleHook,
			choiceHook,
			millisecondsHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &schema,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return schema, nil
}

// ParseJSON decodes a JSON schema document.
func ParseJSON(data []byte) (Schema, error) {
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return DecodeSchema(input)
}

// ParseYAML decodes a YAML schema document.
func ParseYAML(data []byte) (Schema, error) {
	var input any
	if err := yaml.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return DecodeSchema(input)
}
