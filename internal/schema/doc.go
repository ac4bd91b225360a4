// Package schema turns untyped key/value input into typed, constraint-checked
// values, collecting every field failure of a request into one error.
//
// # Overview
//
// A Schema is an ordered table of Field descriptors. Each Field carries its
// name, its required/nullable flags and a type-specific check. Descriptors are
// built once (usually as package-level variables) and shared by every call;
// they hold no per-call state. Binding raw input produces a Values record that
// belongs to the caller and is discarded when the call completes.
//
// # Binding Rules
//
// Every field runs the same sequence, stopping at the first failure:
//
//  1. required and the raw value is absent (missing key or JSON null):
//     "required not set"
//  2. not nullable and the raw value is empty (nil, "", 0, false, empty
//     list or object): "empty require"
//  3. nullable and the raw value is absent: bound as nil, no type check
//  4. otherwise the type-specific check runs and may convert the value
//
// Field errors always name the field:
//
//	Field phone: must be 11 characters long and start with 7
//
// # Aggregation
//
// Schema.Bind never stops at the first bad field. All fields are bound in
// declaration order and every failure is collected; the resulting error
// message joins them with ", ". An empty or nil input mapping fails at once
// with "Empty <SchemaName>." and no per-field errors. The optional Validate
// hook runs only after every field bound successfully and is used for
// cross-field rules.
//
// # Field Variants
//
//   - Char: string
//   - Arguments: JSON object (map[string]any)
//   - Email: string containing "@"
//   - Phone: string or integer, 11 characters, starting with "7"; bound as string
//   - Date: "DD.MM.YYYY" string; bound as time.Time
//   - BirthDay: Date no more than MaxAge years before the current year
//   - Gender: integer 0, 1 or 2
//   - ClientIDs: non-empty list of non-negative integers; bound as []int
//
// Integers may arrive as Go integer types or as json.Number (decoders should
// use UseNumber). Booleans and floating point numbers are never integers.
//
// # Usage
//
//	var Person = &schema.Schema{
//	    Name: "Person",
//	    Fields: []schema.Field{
//	        schema.Char("name", schema.Required, schema.NotNull),
//	        schema.Email("email"),
//	    },
//	}
//
//	values, err := Person.Bind(raw)
//	if err != nil {
//	    return err // "Field name: required not set, Field email: ..."
//	}
//	name := values.String("name")
package schema
