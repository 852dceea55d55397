package domain

import (
	"bytes"
	"encoding/json"
)

type fieldState uint8

const (
	fieldUnset fieldState = iota
	fieldClear
	fieldSet
)

// Field is a tri-state update value: Unset leaves the column alone, Clear
// writes NULL and Set writes the value. The zero value is Unset, so a JSON key
// missing from a request body decodes as Unset and an explicit null as Clear.
type Field[T any] struct {
	state fieldState
	value T
}

func Unset[T any]() Field[T] { return Field[T]{} }

func Clear[T any]() Field[T] { return Field[T]{state: fieldClear} }

func Set[T any](v T) Field[T] { return Field[T]{state: fieldSet, value: v} }

// Present reports whether the field was supplied at all (Clear or Set).
func (f Field[T]) Present() bool { return f.state != fieldUnset }

func (f Field[T]) IsClear() bool { return f.state == fieldClear }

// Value returns the value when the field is Set.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == fieldSet
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
