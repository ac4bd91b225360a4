package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
)

// Check validates a raw value and returns its typed form.
// A returned error carries only the reason; Field.Bind adds the field name.
type Check func(value any) (any, error)

// Field describes one typed input slot of a Schema.
// Fields are immutable descriptors shared by every Bind call.
type Field struct {
	Name     string
	Required bool
	Nullable bool
	check    Check
}

// Option adjusts a Field at construction time.
type Option func(*Field)

// Required marks a field whose value must be present.
func Required(f *Field) { f.Required = true }

// NotNull marks a field whose value must be present and non-empty.
func NotNull(f *Field) { f.Nullable = false }

// NewField builds a field around a custom check. Fields default to optional
// and nullable.
func NewField(name string, check Check, opts ...Option) Field {
	f := Field{Name: name, Nullable: true, check: check}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

var (
	errRequired = errors.New("required not set")
	errEmpty    = errors.New("empty require")
)

// Bind runs the field's rules against a raw value. A nil raw value means the
// key was absent or explicitly null.
func (f Field) Bind(raw any) (any, error) {
	if f.Required && raw == nil {
		return nil, &FieldError{Field: f.Name, Reason: errRequired.Error()}
	}
	if !f.Nullable && isEmpty(raw) {
		return nil, &FieldError{Field: f.Name, Reason: errEmpty.Error()}
	}
	if raw == nil {
		return nil, nil
	}
	if f.check == nil {
		return raw, nil
	}
	v, err := f.check(raw)
	if err != nil {
		return nil, &FieldError{Field: f.Name, Reason: err.Error()}
	}
	return v, nil
}

// isEmpty reports whether v is a falsy value: nil, zero number, false, or an
// empty string, list or object.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		return err == nil && f == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// asInt extracts an integer from Go integer types or an integral json.Number.
// Booleans and floats are rejected.
func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}
