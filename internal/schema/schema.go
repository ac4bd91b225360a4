package schema

import (
	"time"

	"github.com/hashicorp/go-multierror"
)

// Schema is a named, ordered set of fields describing one request shape.
type Schema struct {
	// Name appears in the "Empty <Name>." error.
	Name string

	// Fields are bound in this order; it is also the order of aggregated
	// errors and of Values.Present.
	Fields []Field

	// Validate, if set, runs after every field bound successfully.
	Validate func(Values) error
}

// Bind validates raw against every field and returns the bound values.
// It fails with *EmptyError for an empty mapping, with an aggregated error
// listing every failed field, or with the Validate hook's error.
func (s *Schema) Bind(raw map[string]any) (Values, error) {
	if len(raw) == 0 {
		return Values{}, &EmptyError{Schema: s.Name}
	}

	vals := Values{
		order:  make([]string, 0, len(s.Fields)),
		values: make(map[string]any, len(s.Fields)),
	}
	var errs *multierror.Error
	for _, f := range s.Fields {
		vals.order = append(vals.order, f.Name)
		v, err := f.Bind(raw[f.Name])
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		vals.values[f.Name] = v
	}
	if err := aggregate(errs); err != nil {
		return Values{}, err
	}

	if s.Validate != nil {
		if err := s.Validate(vals); err != nil {
			return Values{}, err
		}
	}
	return vals, nil
}

// Values holds the typed result of one Bind call.
// A field that was absent or null is stored as nil.
type Values struct {
	order  []string
	values map[string]any
}

// Get returns the bound value of a field, or nil.
func (v Values) Get(name string) any {
	return v.values[name]
}

// IsSet reports whether a field bound to a non-nil value.
func (v Values) IsSet(name string) bool {
	return v.values[name] != nil
}

// Present lists the fields with non-nil values in declaration order.
func (v Values) Present() []string {
	out := make([]string, 0, len(v.order))
	for _, name := range v.order {
		if v.IsSet(name) {
			out = append(out, name)
		}
	}
	return out
}

// String returns a string-typed field (Char, Email, Phone) or nil.
func (v Values) String(name string) *string {
	if s, ok := v.values[name].(string); ok {
		return &s
	}
	return nil
}

// Time returns a Date or BirthDay field or nil.
func (v Values) Time(name string) *time.Time {
	if t, ok := v.values[name].(time.Time); ok {
		return &t
	}
	return nil
}

// Int returns an integer field (Gender) or nil.
func (v Values) Int(name string) *int {
	if n, ok := v.values[name].(int); ok {
		return &n
	}
	return nil
}

// Ints returns a ClientIDs field or nil.
func (v Values) Ints(name string) []int {
	ids, _ := v.values[name].([]int)
	return ids
}

// Map returns an Arguments field or nil.
func (v Values) Map(name string) map[string]any {
	m, _ := v.values[name].(map[string]any)
	return m
}
