package neotraverse

import (
	"fmt"
	"strings"
)

// Predicate is a filter condition kept as data so it can be translated into
// Cypher. Build predicates with Field, And, Or and Not.
type Predicate interface {
	fmt.Stringer
	isPredicate()
}

// Operator is a comparison operator of a Comparison predicate.
type Operator int

const (
	OpEq Operator = iota + 1
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpStartsWith
	OpEndsWith
	OpContains
	OpIn
)

var operatorNames = map[Operator]string{
	OpEq:         "==",
	OpNeq:        "!=",
	OpLt:         "<",
	OpLte:        "<=",
	OpGt:         ">",
	OpGte:        ">=",
	OpStartsWith: "startsWith",
	OpEndsWith:   "endsWith",
	OpContains:   "contains",
	OpIn:         "in",
}

func (o Operator) String() string {
	if s, ok := operatorNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Comparison compares a struct field of the current element with a constant.
type Comparison struct {
	Field string
	Op    Operator
	Value any
}

func (Comparison) isPredicate() {}

func (c Comparison) String() string {
	return fmt.Sprintf("%s %s %#v", c.Field, c.Op, c.Value)
}

// Conjunction holds when all its terms hold.
type Conjunction struct {
	Terms []Predicate
}

func (Conjunction) isPredicate() {}

func (c Conjunction) String() string { return joinTerms(c.Terms, " && ") }

// Disjunction holds when any of its terms holds.
type Disjunction struct {
	Terms []Predicate
}

func (Disjunction) isPredicate() {}

func (d Disjunction) String() string { return joinTerms(d.Terms, " || ") }

// Negation inverts its term.
type Negation struct {
	Term Predicate
}

func (Negation) isPredicate() {}

func (n Negation) String() string {
	if n.Term == nil {
		return "!(<nil>)"
	}
	return "!(" + n.Term.String() + ")"
}

func joinTerms(terms []Predicate, sep string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		if t == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = t.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// FieldRef names a struct field of the element being filtered.
type FieldRef struct {
	name string
}

// Field refers to the Go struct field name of a registered type. It is
// resolved to the mapped property when the traversal is compiled.
func Field(name string) FieldRef { return FieldRef{name: name} }

func (f FieldRef) cmp(op Operator, v any) Predicate {
	return Comparison{Field: f.name, Op: op, Value: v}
}

func (f FieldRef) Eq(v any) Predicate  { return f.cmp(OpEq, v) }
func (f FieldRef) Neq(v any) Predicate { return f.cmp(OpNeq, v) }
func (f FieldRef) Lt(v any) Predicate  { return f.cmp(OpLt, v) }
func (f FieldRef) Lte(v any) Predicate { return f.cmp(OpLte, v) }
func (f FieldRef) Gt(v any) Predicate  { return f.cmp(OpGt, v) }
func (f FieldRef) Gte(v any) Predicate { return f.cmp(OpGte, v) }

func (f FieldRef) StartsWith(prefix string) Predicate { return f.cmp(OpStartsWith, prefix) }
func (f FieldRef) EndsWith(suffix string) Predicate   { return f.cmp(OpEndsWith, suffix) }
func (f FieldRef) Contains(sub string) Predicate      { return f.cmp(OpContains, sub) }

// In holds when the field equals one of values. values must be a slice.
func (f FieldRef) In(values any) Predicate { return f.cmp(OpIn, values) }

// And combines predicates so that all must hold.
func And(terms ...Predicate) Predicate {
	return Conjunction{Terms: append([]Predicate(nil), terms...)}
}

// Or combines predicates so that at least one must hold.
func Or(terms ...Predicate) Predicate {
	return Disjunction{Terms: append([]Predicate(nil), terms...)}
}

// Not inverts a predicate.
func Not(term Predicate) Predicate {
	return Negation{Term: term}
}
