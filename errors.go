package neotraverse

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNotFound is a sentinel error returned by First and the Repository lookups
// when the server returns no elements.
var ErrNotFound = errors.New("record not found")

// ErrModelFrozen is returned when a type is registered on a Model that is
// already in use by a Client.
var ErrModelFrozen = errors.New("model is frozen")

// DuplicateTypeError is returned when a Go type is registered twice.
type DuplicateTypeError struct {
	Type reflect.Type
}

func (e *DuplicateTypeError) Error() string {
	return fmt.Sprintf("type %s is already registered", e.Type)
}

// UnknownTypeError is returned when a type that was never registered is used
// as a label source.
type UnknownTypeError struct {
	Type reflect.Type
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("type %s is not registered", e.Type)
}

// NoIdentityError is returned when the identity of an instance that has not
// been persisted yet is requested.
type NoIdentityError struct {
	Type reflect.Type
}

func (e *NoIdentityError) Error() string {
	return fmt.Sprintf("instance of %s has no identity", e.Type)
}

// UnsupportedPredicateError is returned when a filter cannot be expressed in
// Cypher.
type UnsupportedPredicateError struct {
	Predicate Predicate
	Reason    string
}

func (e *UnsupportedPredicateError) Error() string {
	return fmt.Sprintf("unsupported predicate %s: %s", e.Predicate, e.Reason)
}

// UnknownAliasError is returned when a traversal selects an alias that is not
// declared in its scope.
type UnknownAliasError struct {
	Alias Alias
}

func (e *UnknownAliasError) Error() string {
	return fmt.Sprintf("alias %q is not declared in this traversal", e.Alias.name)
}

// NonScalarSortKeyError is returned when a traversal is ordered by a field
// that does not hold a scalar value.
type NonScalarSortKeyError struct {
	Type  reflect.Type
	Field string
}

func (e *NonScalarSortKeyError) Error() string {
	return fmt.Sprintf("field %s of %s is not a scalar and cannot be used as a sort key", e.Field, e.Type)
}

// TransportError wraps failures talking to the server. It aborts the whole
// traversal it belongs to.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HydrationError reports a single result element that could not be converted
// into the requested Go type. The remaining elements are unaffected.
type HydrationError struct {
	Index  int
	Target reflect.Type
	Err    error
}

func (e *HydrationError) Error() string {
	return fmt.Sprintf("could not hydrate result %d into %s: %v", e.Index, e.Target, e.Err)
}

func (e *HydrationError) Unwrap() error { return e.Err }
