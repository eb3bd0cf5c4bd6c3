package neotraverse

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Traversal is a compiled-on-demand sequence of steps. Every builder method
// returns a new value; a traversal is never modified once returned, so partial
// traversals can be shared and extended freely.
type Traversal interface {
	fmt.Stringer
	// Steps returns a copy of the step sequence.
	Steps() []Step
	core() traversal
}

type traversal struct {
	root  uint64
	scope string
	steps []Step
}

func (t traversal) append(s Step) traversal {
	steps := make([]Step, len(t.steps)+1)
	copy(steps, t.steps)
	steps[len(t.steps)] = s
	return traversal{root: t.root, scope: t.scope, steps: steps}
}

func (t traversal) Steps() []Step {
	return cloneSteps(t.steps)
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	for i, s := range steps {
		s.IDs = append([]string(nil), s.IDs...)
		s.Keys = append([]SortKey(nil), s.Keys...)
		s.Fields = append([]string(nil), s.Fields...)
		s.Aliases = append([]Alias(nil), s.Aliases...)
		s.Sub = cloneSteps(s.Sub)
		out[i] = s
	}
	return out
}

func (t traversal) String() string {
	return "g." + formatSteps(t.steps)
}

func (t traversal) core() traversal { return t }

func (t traversal) nextAlias() Alias {
	return Alias{root: t.root, name: fmt.Sprintf("%s/as%d", t.scope, len(t.steps))}
}

// Source starts traversals.
type Source struct {
	root  uint64
	scope string
}

var roots atomic.Uint64

// G returns a new root traversal source. Aliases declared under one root
// never resolve in traversals started from another.
func G() Source { return Source{root: roots.Add(1), scope: "g"} }

func (s Source) start(step Step) traversal {
	return traversal{root: s.root, scope: s.scope}.append(step)
}

// V starts at the vertices with the given element ids, or at all vertices.
func (s Source) V(ids ...string) VertexTraversal {
	return VertexTraversal{s.start(Step{Kind: StepV, IDs: append([]string(nil), ids...)})}
}

// E starts at the edges with the given element ids, or at all edges.
func (s Source) E(ids ...string) EdgeTraversal {
	return EdgeTraversal{s.start(Step{Kind: StepE, IDs: append([]string(nil), ids...)})}
}

// AddV creates a vertex from a registered vertex struct.
func (s Source) AddV(payload any) VertexTraversal {
	return VertexTraversal{s.start(Step{Kind: StepAddV, Payload: snapshot(payload)})}
}

// snapshot copies the struct behind a pointer so later changes by the caller
// do not leak into the traversal.
func snapshot(payload any) any {
	v := reflect.ValueOf(payload)
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		return v.Elem().Interface()
	}
	return payload
}

// VertexTraversal is a traversal positioned on vertices.
type VertexTraversal struct {
	traversal
}

// Where keeps the vertices matching p.
func (t VertexTraversal) Where(p Predicate) VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepWhere, Predicate: p})}
}

// OfType keeps the vertices carrying the label of a registered vertex type.
func (t VertexTraversal) OfType(ref TypeRef) VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepOfType, Type: ref})}
}

// Out moves along outgoing edges of the given type to the adjacent vertices.
// The zero TypeRef follows edges of any type.
func (t VertexTraversal) Out(edgeType TypeRef) VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepOut, Type: edgeType})}
}

// In moves along incoming edges of the given type to the adjacent vertices.
func (t VertexTraversal) In(edgeType TypeRef) VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepIn, Type: edgeType})}
}

// OutE moves onto the outgoing edges of the given type.
func (t VertexTraversal) OutE(edgeType TypeRef) EdgeTraversal {
	return EdgeTraversal{t.append(Step{Kind: StepOutE, Type: edgeType})}
}

// OrderBy sorts the vertices by scalar fields.
func (t VertexTraversal) OrderBy(keys ...SortKey) VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepOrderBy, Keys: append([]SortKey(nil), keys...)})}
}

// Values projects a single field of each vertex.
func (t VertexTraversal) Values(field string) ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepValues, Fields: []string{field}})}
}

// Project projects several fields of each vertex into a map keyed by field
// name.
func (t VertexTraversal) Project(fields ...string) ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepProject, Fields: append([]string(nil), fields...)})}
}

// Limit keeps at most n vertices.
func (t VertexTraversal) Limit(n int) VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepLimit, Limit: n})}
}

// Count counts the vertices.
func (t VertexTraversal) Count() ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepCount})}
}

// Drop deletes the vertices together with their edges.
func (t VertexTraversal) Drop() DropTraversal {
	return DropTraversal{t.append(Step{Kind: StepDrop})}
}

// AddE starts an edge from every current vertex. The edge payload must be a
// registered edge struct; the returned builder only accepts a target.
func (t VertexTraversal) AddE(edge any) EdgeBuilder {
	return EdgeBuilder{t.append(Step{Kind: StepAddE, Payload: snapshot(edge)})}
}

// As binds the current position to a fresh alias and continues the traversal
// in fn.
func (t VertexTraversal) As(fn func(VertexTraversal, Alias) Traversal) Traversal {
	a := t.nextAlias()
	return fn(VertexTraversal{t.append(Step{Kind: StepAs, Alias: a})}, a)
}

// Select returns the elements bound to aliases as one tuple per result.
func (t VertexTraversal) Select(aliases ...Alias) TupleTraversal {
	return TupleTraversal{t.append(Step{Kind: StepSelect, Aliases: append([]Alias(nil), aliases...)})}
}

// EdgeBuilder is returned by AddE. An edge needs a target before the traversal
// can continue.
type EdgeBuilder struct {
	t traversal
}

// To sets the target vertex of the edge. fn receives a fresh source and
// returns the traversal producing the target.
func (b EdgeBuilder) To(fn func(Source) VertexTraversal) EdgeTraversal {
	sub := fn(Source{root: b.t.root, scope: fmt.Sprintf("%s.%d", b.t.scope, len(b.t.steps))})
	return EdgeTraversal{b.t.append(Step{Kind: StepTo, Sub: sub.Steps()})}
}

// EdgeTraversal is a traversal positioned on edges.
type EdgeTraversal struct {
	traversal
}

// Where keeps the edges matching p.
func (t EdgeTraversal) Where(p Predicate) EdgeTraversal {
	return EdgeTraversal{t.append(Step{Kind: StepWhere, Predicate: p})}
}

// OfType keeps the edges of a registered edge type.
func (t EdgeTraversal) OfType(ref TypeRef) EdgeTraversal {
	return EdgeTraversal{t.append(Step{Kind: StepOfType, Type: ref})}
}

// InV moves to the vertex each edge points to.
func (t EdgeTraversal) InV() VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepInV})}
}

// OutV moves to the vertex each edge starts from.
func (t EdgeTraversal) OutV() VertexTraversal {
	return VertexTraversal{t.append(Step{Kind: StepOutV})}
}

// OrderBy sorts the edges by scalar fields.
func (t EdgeTraversal) OrderBy(keys ...SortKey) EdgeTraversal {
	return EdgeTraversal{t.append(Step{Kind: StepOrderBy, Keys: append([]SortKey(nil), keys...)})}
}

// Values projects a single field of each edge.
func (t EdgeTraversal) Values(field string) ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepValues, Fields: []string{field}})}
}

// Project projects several fields of each edge into a map keyed by field
// name.
func (t EdgeTraversal) Project(fields ...string) ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepProject, Fields: append([]string(nil), fields...)})}
}

// Limit keeps at most n edges.
func (t EdgeTraversal) Limit(n int) EdgeTraversal {
	return EdgeTraversal{t.append(Step{Kind: StepLimit, Limit: n})}
}

// Count counts the edges.
func (t EdgeTraversal) Count() ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepCount})}
}

// Drop deletes the edges.
func (t EdgeTraversal) Drop() DropTraversal {
	return DropTraversal{t.append(Step{Kind: StepDrop})}
}

// As binds the current edge to a fresh alias and continues the traversal in
// fn.
func (t EdgeTraversal) As(fn func(EdgeTraversal, Alias) Traversal) Traversal {
	a := t.nextAlias()
	return fn(EdgeTraversal{t.append(Step{Kind: StepAs, Alias: a})}, a)
}

// Select returns the elements bound to aliases as one tuple per result.
func (t EdgeTraversal) Select(aliases ...Alias) TupleTraversal {
	return TupleTraversal{t.append(Step{Kind: StepSelect, Aliases: append([]Alias(nil), aliases...)})}
}

// ValueTraversal is a traversal positioned on scalars or projected maps.
type ValueTraversal struct {
	traversal
}

// OrderBy sorts the values. Pass no keys, or Asc("")/Desc(""), to sort by the
// value itself.
func (t ValueTraversal) OrderBy(keys ...SortKey) ValueTraversal {
	if len(keys) == 0 {
		keys = []SortKey{Asc("")}
	}
	return ValueTraversal{t.append(Step{Kind: StepOrderBy, Keys: append([]SortKey(nil), keys...)})}
}

// Limit keeps at most n values.
func (t ValueTraversal) Limit(n int) ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepLimit, Limit: n})}
}

// Count counts the values.
func (t ValueTraversal) Count() ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepCount})}
}

// TupleTraversal is a traversal producing one Tuple per result.
type TupleTraversal struct {
	traversal
}

// Limit keeps at most n tuples.
func (t TupleTraversal) Limit(n int) TupleTraversal {
	return TupleTraversal{t.append(Step{Kind: StepLimit, Limit: n})}
}

// Count counts the tuples.
func (t TupleTraversal) Count() ValueTraversal {
	return ValueTraversal{t.append(Step{Kind: StepCount})}
}

// DropTraversal deletes elements and produces no results.
type DropTraversal struct {
	traversal
}
