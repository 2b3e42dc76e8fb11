package models

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that may be unavailable. The zero value is unavailable.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns an available value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns an unavailable value.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Or returns the value if available, otherwise def.
func (o Optional[T]) Or(def T) T {
	if o.Valid {
		return o.Value
	}
	return def
}

// MarshalJSON encodes an unavailable value as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON decodes null (or an absent field) as unavailable.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
