package task

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ValueType describes the value semantics of a parameter or output. The
// built-in types cover the closed set used by task declarations; outputs
// carrying richer handles (a repository, a disk image) declare a custom
// type via ValueOf.
type ValueType interface {
	// Name identifies the type in diagnostics.
	Name() string
	// Accepts reports whether val is a valid value of this type.
	Accepts(val any) bool
	// Parse converts a textual command-line value into a value of this type.
	Parse(raw string) (any, error)
}

var (
	String ValueType = stringType{}
	Int    ValueType = intType{}
	Bool   ValueType = boolType{}
	Path   ValueType = pathType{}
)

type stringType struct{}

func (stringType) Name() string { return "string" }

func (stringType) Accepts(val any) bool {
	_, ok := val.(string)
	return ok
}

func (stringType) Parse(raw string) (any, error) {
	return raw, nil
}

type intType struct{}

func (intType) Name() string { return "int" }

func (intType) Accepts(val any) bool {
	_, ok := val.(int)
	return ok
}

func (intType) Parse(raw string) (any, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("not an integer")
	}
	return v, nil
}

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (boolType) Accepts(val any) bool {
	_, ok := val.(bool)
	return ok
}

func (boolType) Parse(raw string) (any, error) {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return nil, fmt.Errorf("not a boolean")
}

// pathType values are filesystem paths. They are stored as strings; Parse
// cleans the textual form but does not require the path to exist.
type pathType struct{}

func (pathType) Name() string { return "path" }

func (pathType) Accepts(val any) bool {
	_, ok := val.(string)
	return ok
}

func (pathType) Parse(raw string) (any, error) {
	if raw == "" {
		return nil, fmt.Errorf("not a path")
	}
	return filepath.Clean(raw), nil
}

// Enum restricts string values to a fixed set of choices.
func Enum(choices ...string) ValueType {
	return enumType{choices: choices}
}

type enumType struct {
	choices []string
}

func (e enumType) Name() string {
	return fmt.Sprintf("enum[%s]", strings.Join(e.choices, "|"))
}

func (e enumType) Accepts(val any) bool {
	s, ok := val.(string)
	if !ok {
		return false
	}
	for _, c := range e.choices {
		if s == c {
			return true
		}
	}
	return false
}

func (e enumType) Parse(raw string) (any, error) {
	if !e.Accepts(raw) {
		return nil, fmt.Errorf("not one of %s", strings.Join(e.choices, ", "))
	}
	return raw, nil
}

// ValueOf declares a custom value type accepting any value assignable to T.
// It is used for output schemas whose values are rich in-process handles
// rather than textual parameters; Parse always fails.
func ValueOf[T any](name string) ValueType {
	return typeOf[T]{name: name}
}

type typeOf[T any] struct {
	name string
}

func (t typeOf[T]) Name() string { return t.name }

func (t typeOf[T]) Accepts(val any) bool {
	_, ok := val.(T)
	return ok
}

func (t typeOf[T]) Parse(string) (any, error) {
	return nil, fmt.Errorf("%s values cannot be parsed from text", t.name)
}
