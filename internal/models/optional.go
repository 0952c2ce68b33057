package models

import "encoding/json"

// Optional distinguishes "field omitted" (Set=false) from "field present",
// including present-and-null when T is a pointer type.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null is an explicitly-present nil for nullable fields.
func Null[T any]() Optional[*T] {
	return Optional[*T]{Set: true}
}

// UnmarshalJSON is only invoked when the key is present in the object, so
// reaching it at all marks the field as set.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	return json.Unmarshal(b, &o.Value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o Optional[T]) assign(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}
