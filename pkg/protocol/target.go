// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package protocol

import (
	"reflect"
)

// =============================================================================
// Dispatch Targets
// =============================================================================

// Target identifies a type for registration and dispatch purposes.
//
// A Target is either a concrete Go type (obtained via TargetOf or TargetFor)
// or one of the three marker sentinels Null, Undefined, and ObjectFallback.
// Targets are comparable identities: two Targets derived from the same Go
// type are interchangeable as registration keys.
//
// Targets are supplied by callers; this package never invents them beyond
// the three markers.
type Target interface {
	// TypeName returns the human-readable name used in errors and
	// introspection output ("string", "[]int", "protocol_test.widget",
	// "null", "object", ...).
	TypeName() string

	// key returns the comparable identity used as a map key.
	// Unexported so the marker set stays closed.
	key() targetKey
}

// targetKey is the comparable identity behind a Target.
// Exactly one of typ and marker is set.
type targetKey struct {
	typ    reflect.Type
	marker string
}

// typeTarget wraps a concrete reflect.Type as a dispatch target.
type typeTarget struct {
	typ reflect.Type
}

func (t typeTarget) TypeName() string { return t.typ.String() }
func (t typeTarget) key() targetKey   { return targetKey{typ: t.typ} }

// markerTarget is a pseudo-type identity for values that have no usable
// concrete type: nil, the explicit absent value, and the plain-object
// catch-all.
type markerTarget struct {
	name string
}

func (m markerTarget) TypeName() string { return m.name }
func (m markerTarget) key() targetKey   { return targetKey{marker: m.name} }

// The three marker targets.
//
// Null keys the nil receiver, Undefined keys the Undef sentinel value, and
// ObjectFallback keys the catch-all implementation consulted for object-like
// receivers (structs, struct pointers, maps) that have no dedicated
// registration. ObjectFallback is never consulted for slices, strings,
// numbers, nil, or Undef.
var (
	Null           Target = markerTarget{name: "null"}
	Undefined      Target = markerTarget{name: "undefined"}
	ObjectFallback Target = markerTarget{name: "object"}
)

// =============================================================================
// Sentinel Values
// =============================================================================

// undef is the type of the Undef sentinel.
type undef struct{}

// Undef is the explicit absent-value sentinel. A nil interface dispatches as
// Null; callers that need a distinct "value intentionally missing" marker
// (the source environment's undefined) pass Undef and register against the
// Undefined target.
var Undef undef

// NullValue returns the value that dispatches to the Null target.
//
// Together with UndefinedValue and ObjectValue this mirrors the source
// environment's pseudo-constructors: a constructor-shaped handle for values
// that have no constructor of their own.
func NullValue() any { return nil }

// UndefinedValue returns the sentinel that dispatches to the Undefined target.
func UndefinedValue() any { return Undef }

// ObjectValue returns a fresh empty plain object. Useful in tests and demos
// that need a value guaranteed to hit the ObjectFallback path.
func ObjectValue() map[string]any { return map[string]any{} }

// =============================================================================
// Target Derivation
// =============================================================================

// TargetOf derives the dispatch target for a sample value.
//
// nil maps to Null, Undef maps to Undefined, and everything else maps to its
// concrete type. This is the same derivation Call performs on receivers, so
// TargetOf(v) is always the target Extend must use for v to dispatch
// directly (before any fallback retry).
func TargetOf(v any) Target {
	if v == nil {
		return Null
	}
	if _, ok := v.(undef); ok {
		return Undefined
	}
	return typeTarget{typ: reflect.TypeOf(v)}
}

// TargetFor returns the dispatch target for the type parameter T without
// needing a sample value.
//
// Example:
//
//	seq.MustExtend(protocol.TargetFor[[]int](), map[string]protocol.Method{...})
func TargetFor[T any]() Target {
	return typeTarget{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// dispatchKey resolves a receiver to its dispatch key and display name.
func dispatchKey(receiver any) (targetKey, string) {
	if receiver == nil {
		return Null.key(), Null.TypeName()
	}
	if _, ok := receiver.(undef); ok {
		return Undefined.key(), Undefined.TypeName()
	}
	t := reflect.TypeOf(receiver)
	return targetKey{typ: t}, t.String()
}

// isObjectLike reports whether a receiver is eligible for the object
// fallback. Only genuine objects qualify: structs, pointers to structs, and
// maps. Slices, arrays, primitives, functions, and channels must miss
// loudly instead of silently matching a catch-all meant for records.
func isObjectLike(receiver any) bool {
	if receiver == nil {
		return false
	}
	if _, ok := receiver.(undef); ok {
		return false
	}
	t := reflect.TypeOf(receiver)
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return true
	case reflect.Pointer:
		return t.Elem().Kind() == reflect.Struct
	default:
		return false
	}
}
