package neotraverse

import (
	"fmt"
	"reflect"
	"strings"
)

// StepKind identifies the operation of a Step.
type StepKind int

const (
	StepV StepKind = iota + 1
	StepE
	StepAddV
	StepAddE
	StepTo
	StepWhere
	StepOfType
	StepOut
	StepOutE
	StepIn
	StepInV
	StepOutV
	StepOrderBy
	StepValues
	StepProject
	StepAs
	StepSelect
	StepLimit
	StepCount
	StepDrop
)

var stepNames = map[StepKind]string{
	StepV:       "V",
	StepE:       "E",
	StepAddV:    "addV",
	StepAddE:    "addE",
	StepTo:      "to",
	StepWhere:   "where",
	StepOfType:  "ofType",
	StepOut:     "out",
	StepOutE:    "outE",
	StepIn:      "in",
	StepInV:     "inV",
	StepOutV:    "outV",
	StepOrderBy: "orderBy",
	StepValues:  "values",
	StepProject: "project",
	StepAs:      "as",
	StepSelect:  "select",
	StepLimit:   "limit",
	StepCount:   "count",
	StepDrop:    "drop",
}

func (k StepKind) String() string {
	if s, ok := stepNames[k]; ok {
		return s
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// TypeRef identifies a registered Go type inside a traversal.
type TypeRef struct {
	typ reflect.Type
}

// Of returns the TypeRef of T.
func Of[T any]() TypeRef {
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	return TypeRef{typ: typ}
}

// Type returns the referenced Go type, or nil for the zero TypeRef.
func (r TypeRef) Type() reflect.Type { return r.typ }

func (r TypeRef) String() string {
	if r.typ == nil {
		return "<any>"
	}
	return r.typ.String()
}

// Alias names a traversal position so later steps can select it.
type Alias struct {
	root uint64
	name string
}

// Name returns the deterministic name of the alias.
func (a Alias) Name() string { return a.name }

// SortKey is one ordering criterion.
type SortKey struct {
	Field      string
	Descending bool
}

// Asc orders by field in ascending order. An empty field orders by the current
// value itself.
func Asc(field string) SortKey { return SortKey{Field: field} }

// Desc orders by field in descending order.
func Desc(field string) SortKey { return SortKey{Field: field, Descending: true} }

// Step is one immutable operation of a traversal. Only the fields relevant to
// Kind are set.
type Step struct {
	Kind      StepKind
	IDs       []string
	Payload   any
	Type      TypeRef
	Predicate Predicate
	Keys      []SortKey
	Fields    []string
	Alias     Alias
	Aliases   []Alias
	Sub       []Step
	Limit     int
}

func (s Step) String() string {
	var arg string
	switch s.Kind {
	case StepV, StepE:
		arg = strings.Join(s.IDs, ", ")
	case StepAddV, StepAddE:
		arg = fmt.Sprintf("%T", s.Payload)
	case StepTo:
		arg = "__." + formatSteps(s.Sub)
	case StepWhere:
		if s.Predicate != nil {
			arg = s.Predicate.String()
		}
	case StepOfType, StepOut, StepOutE, StepIn:
		if s.Type.typ != nil {
			arg = s.Type.String()
		}
	case StepOrderBy:
		keys := make([]string, len(s.Keys))
		for i, k := range s.Keys {
			keys[i] = k.Field
			if k.Descending {
				keys[i] += " desc"
			}
		}
		arg = strings.Join(keys, ", ")
	case StepValues, StepProject:
		arg = strings.Join(s.Fields, ", ")
	case StepAs:
		arg = s.Alias.name
	case StepSelect:
		names := make([]string, len(s.Aliases))
		for i, a := range s.Aliases {
			names[i] = a.name
		}
		arg = strings.Join(names, ", ")
	case StepLimit:
		arg = fmt.Sprint(s.Limit)
	}
	return s.Kind.String() + "(" + arg + ")"
}

func formatSteps(steps []Step) string {
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}
