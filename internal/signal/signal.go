// Package signal provides tagged optional values for enrichment signals.
// A signal that could not be fetched is "unknown", which must stay
// distinguishable from an explicit false or zero: several scoring rules
// treat the two differently (an unknown star count scores as zero, but an
// unknown archived flag must not count as "not archived").
package signal

import (
	"bytes"
	"encoding/json"
)

// Opt is an optional value of type T. The zero Opt is unknown.
type Opt[T any] struct {
	val   T
	known bool
}

// Some returns a known Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{val: v, known: true}
}

// None returns an unknown Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Known reports whether the value was observed.
func (o Opt[T]) Known() bool {
	return o.known
}

// Get returns the value and whether it is known.
func (o Opt[T]) Get() (T, bool) {
	return o.val, o.known
}

// Or returns the value if known, otherwise def.
func (o Opt[T]) Or(def T) T {
	if o.known {
		return o.val
	}
	return def
}

// MarshalJSON encodes unknown values as null so published signal sets
// preserve the unknown/false distinction.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.known {
		return []byte("null"), nil
	}
	return json.Marshal(o.val)
}

// UnmarshalJSON decodes null as unknown and anything else as a known value.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Opt[T]{val: v, known: true}
	return nil
}
