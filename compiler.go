package neotraverse

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/bytedance/sonic"
)

// ShapeKind is the kind of value each result element carries.
type ShapeKind int

const (
	ShapeNone ShapeKind = iota
	ShapeVertex
	ShapeEdge
	ShapeScalar
	ShapeMap
	ShapeTuple
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeNone:
		return "none"
	case ShapeVertex:
		return "vertex"
	case ShapeEdge:
		return "edge"
	case ShapeScalar:
		return "scalar"
	case ShapeMap:
		return "map"
	case ShapeTuple:
		return "tuple"
	default:
		return fmt.Sprintf("ShapeKind(%d)", int(k))
	}
}

// ResultShape describes what each result element hydrates into.
type ResultShape struct {
	Kind ShapeKind
	// Type is the static Go type when the compiler knows it: the registered
	// struct of a vertex or edge, or the field type of a scalar.
	Type reflect.Type
	// Elements describes the components of a tuple.
	Elements []ResultShape
}

func (s ResultShape) String() string {
	switch s.Kind {
	case ShapeTuple:
		parts := make([]string, len(s.Elements))
		for i, e := range s.Elements {
			parts[i] = e.String()
		}
		return "tuple(" + strings.Join(parts, ", ") + ")"
	default:
		if s.Type != nil {
			return s.Kind.String() + "<" + s.Type.String() + ">"
		}
		return s.Kind.String()
	}
}

// CompiledRequest is a traversal translated into a Cypher statement.
type CompiledRequest struct {
	Query    string
	Params   map[string]any
	Shape    ResultShape
	Mutating bool
}

// Bytes returns the canonical encoding of the request. Two compilations of
// the same traversal produce identical bytes.
func (r *CompiledRequest) Bytes() ([]byte, error) {
	return sonic.ConfigStd.Marshal(struct {
		Query    string         `json:"query"`
		Params   map[string]any `json:"params"`
		Shape    string         `json:"shape"`
		Mutating bool           `json:"mutating"`
	}{r.Query, r.Params, r.Shape.String(), r.Mutating})
}

// Compile translates t into a Cypher request. It does not touch the network
// and has no side effects.
func Compile(m *Model, t Traversal) (*CompiledRequest, error) {
	if t == nil {
		return nil, errors.New("traversal must not be nil")
	}
	c := &compiler{model: m, params: make(map[string]any)}
	s, err := c.compileSteps(t.core().steps, nil)
	if err != nil {
		return nil, err
	}
	if s.cur.shape.Kind != ShapeNone {
		c.emit("RETURN " + s.cur.v + s.orderClause())
	}
	return &CompiledRequest{
		Query:    strings.Join(c.clauses, "\n"),
		Params:   c.params,
		Shape:    s.cur.shape,
		Mutating: c.mutating,
	}, nil
}

// position is a Cypher variable standing for the current traversal element.
type position struct {
	v     string
	shape ResultShape
	meta  *entityMetadata
}

// sortKey is one term of a pending ORDER BY. dep is the variable expr reads;
// once a WITH drops dep the term is carried as a column of its own.
type sortKey struct {
	expr string
	dep  string
	desc bool
	col  bool
}

// scope tracks the variables visible to one traversal level.
type scope struct {
	carry   []string
	cur     position
	aliases map[Alias]position
	order   []Alias
	// sort is the ordering of the current rows. It is applied again on every
	// clause that needs ordered input and on the final RETURN.
	sort []sortKey
}

func (s *scope) orderClause() string {
	if len(s.sort) == 0 {
		return ""
	}
	terms := make([]string, len(s.sort))
	for i, k := range s.sort {
		terms[i] = k.expr
		if k.desc {
			terms[i] += " DESC"
		}
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (s *scope) live(includeCur bool) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range s.carry {
		add(v)
	}
	for _, a := range s.order {
		add(s.aliases[a].v)
	}
	if includeCur {
		add(s.cur.v)
	}
	for _, k := range s.sort {
		if k.col {
			add(k.expr)
		}
	}
	return out
}

type compiler struct {
	model    *Model
	clauses  []string
	params   map[string]any
	nvars    int
	mutating bool

	pending []string
	// canWhere is set when the last clause is a MATCH or a plain WITH that
	// can still take a WHERE.
	canWhere bool
	// updated is set when the last clause writes; reading clauses then need
	// a WITH in between.
	updated bool
}

func (c *compiler) emit(clause string) {
	c.clauses = append(c.clauses, clause)
	c.canWhere = false
	c.updated = false
}

func (c *compiler) newVar(prefix string) string {
	v := fmt.Sprintf("%s%d", prefix, c.nvars)
	c.nvars++
	return v
}

func (c *compiler) param(v any) string {
	name := fmt.Sprintf("p%d", len(c.params))
	c.params[name] = v
	return "$" + name
}

// with emits a WITH over items. Sort terms whose variable is not among the
// items become columns first. When sorted is set the clause orders its rows
// before tail applies.
func (c *compiler) with(s *scope, items []string, sorted bool, tail string) {
	kept := make(map[string]bool, len(items))
	for _, item := range items {
		kept[item] = true
	}
	for i, k := range s.sort {
		if k.col || kept[k.dep] {
			continue
		}
		v := c.newVar("o")
		items = append(items, k.expr+" AS "+v)
		s.sort[i] = sortKey{expr: v, dep: v, desc: k.desc, col: true}
	}
	clause := "WITH " + strings.Join(items, ", ")
	if len(items) == 0 {
		clause = "WITH *"
	}
	if sorted {
		clause += s.orderClause()
	}
	c.emit(clause + tail)
}

func (c *compiler) match(s *scope, pattern string) error {
	if err := c.flushWhere(s); err != nil {
		return err
	}
	if c.updated {
		c.with(s, s.live(true), false, "")
	}
	c.emit("MATCH " + pattern)
	c.canWhere = true
	return nil
}

// flushWhere attaches pending conditions to the last clause, or to a new WITH
// when the last clause cannot take a WHERE.
func (c *compiler) flushWhere(s *scope) error {
	if len(c.pending) == 0 {
		return nil
	}
	cond := strings.Join(c.pending, " AND ")
	c.pending = nil
	if !c.canWhere {
		c.with(s, s.live(true), false, "")
	}
	c.clauses[len(c.clauses)-1] += " WHERE " + cond
	c.canWhere = false
	return nil
}

func (c *compiler) project(s *scope, expr, prefix string, shape ResultShape) error {
	if err := c.flushWhere(s); err != nil {
		return err
	}
	v := c.newVar(prefix)
	c.with(s, append(s.live(false), expr+" AS "+v), false, "")
	c.canWhere = true
	s.cur = position{v: v, shape: shape}
	return nil
}

func (c *compiler) compileSteps(steps []Step, carry []string) (*scope, error) {
	s := &scope{carry: carry, aliases: make(map[Alias]position)}
	if len(steps) == 0 {
		return nil, errors.New("empty traversal")
	}
	for i := 0; i < len(steps); i++ {
		step := steps[i]
		if i > 0 && (step.Kind == StepV || step.Kind == StepE) {
			return nil, fmt.Errorf("step %s must start a traversal", step.Kind)
		}
		if i > 0 && s.cur.shape.Kind == ShapeNone {
			return nil, fmt.Errorf("step %s follows a step that produces no elements", step.Kind)
		}
		if i == 0 && step.Kind != StepV && step.Kind != StepE && step.Kind != StepAddV {
			return nil, fmt.Errorf("traversal cannot start with %s", step.Kind)
		}
		if step.Kind == StepAddE {
			if i+1 >= len(steps) || steps[i+1].Kind != StepTo {
				return nil, errors.New("addE must be followed by to")
			}
			if err := c.addEdge(s, step, steps[i+1]); err != nil {
				return nil, err
			}
			i++
			continue
		}
		if err := c.step(s, step); err != nil {
			return nil, err
		}
	}
	if err := c.flushWhere(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (c *compiler) step(s *scope, step Step) error {
	switch step.Kind {
	case StepV:
		v := c.newVar("v")
		if err := c.match(s, "("+v+")"); err != nil {
			return err
		}
		s.cur = position{v: v, shape: ResultShape{Kind: ShapeVertex}}
		c.idFilter(v, step.IDs)
	case StepE:
		v := c.newVar("e")
		if err := c.match(s, "()-["+v+"]->()"); err != nil {
			return err
		}
		s.cur = position{v: v, shape: ResultShape{Kind: ShapeEdge}}
		c.idFilter(v, step.IDs)
	case StepAddV:
		meta, props, err := c.payload(step.Payload, KindVertex)
		if err != nil {
			return err
		}
		if err := c.flushWhere(s); err != nil {
			return err
		}
		v := c.newVar("v")
		c.emit(fmt.Sprintf("CREATE (%s:%s %s)", v, quoteIdent(meta.Label), c.param(props)))
		c.updated = true
		c.mutating = true
		s.cur = position{v: v, shape: ResultShape{Kind: ShapeVertex, Type: meta.Type}, meta: meta}
	case StepTo:
		return errors.New("to must follow addE")
	case StepWhere:
		if s.cur.shape.Kind != ShapeVertex && s.cur.shape.Kind != ShapeEdge {
			return fmt.Errorf("where cannot filter %s elements", s.cur.shape.Kind)
		}
		cond, err := c.predicate(step.Predicate, s.cur.v, s.cur.meta)
		if err != nil {
			return err
		}
		c.pending = append(c.pending, cond)
	case StepOfType:
		return c.ofType(s, step.Type)
	case StepOut, StepIn:
		if s.cur.shape.Kind != ShapeVertex {
			return fmt.Errorf("%s must follow a vertex step", step.Kind)
		}
		rel, err := c.relPattern("", step.Type)
		if err != nil {
			return err
		}
		v := c.newVar("v")
		pattern := fmt.Sprintf("(%s)-%s->(%s)", s.cur.v, rel, v)
		if step.Kind == StepIn {
			pattern = fmt.Sprintf("(%s)<-%s-(%s)", s.cur.v, rel, v)
		}
		if err := c.match(s, pattern); err != nil {
			return err
		}
		s.cur = position{v: v, shape: ResultShape{Kind: ShapeVertex}}
	case StepOutE:
		if s.cur.shape.Kind != ShapeVertex {
			return fmt.Errorf("%s must follow a vertex step", step.Kind)
		}
		e := c.newVar("e")
		rel, err := c.relPattern(e, step.Type)
		if err != nil {
			return err
		}
		if err := c.match(s, fmt.Sprintf("(%s)-%s->()", s.cur.v, rel)); err != nil {
			return err
		}
		pos := position{v: e, shape: ResultShape{Kind: ShapeEdge}}
		if step.Type.typ != nil {
			meta, _ := c.model.lookup(step.Type.typ)
			pos.meta = meta
			pos.shape.Type = meta.Type
		}
		s.cur = pos
	case StepInV, StepOutV:
		if s.cur.shape.Kind != ShapeEdge {
			return fmt.Errorf("%s must follow an edge step", step.Kind)
		}
		fn := "endNode"
		if step.Kind == StepOutV {
			fn = "startNode"
		}
		return c.project(s, fn+"("+s.cur.v+")", "v", ResultShape{Kind: ShapeVertex})
	case StepOrderBy:
		return c.orderBy(s, step.Keys)
	case StepValues:
		expr, fm, err := c.fieldExpr(s, step.Fields[0])
		if err != nil {
			return err
		}
		if err := c.project(s, expr, "x", ResultShape{Kind: ShapeScalar, Type: fm}); err != nil {
			return err
		}
		// Elements without the property produce no value.
		c.pending = append(c.pending, s.cur.v+" IS NOT NULL")
	case StepProject:
		if len(step.Fields) == 0 {
			return errors.New("project needs at least one field")
		}
		entries := make([]string, len(step.Fields))
		for i, f := range step.Fields {
			expr, _, err := c.fieldExpr(s, f)
			if err != nil {
				return err
			}
			entries[i] = quoteIdent(f) + ": " + expr
		}
		return c.project(s, "{"+strings.Join(entries, ", ")+"}", "x", ResultShape{Kind: ShapeMap})
	case StepAs:
		if _, ok := s.aliases[step.Alias]; !ok {
			s.order = append(s.order, step.Alias)
		}
		s.aliases[step.Alias] = s.cur
	case StepSelect:
		if len(step.Aliases) == 0 {
			return errors.New("select needs at least one alias")
		}
		vars := make([]string, len(step.Aliases))
		elems := make([]ResultShape, len(step.Aliases))
		for i, a := range step.Aliases {
			pos, ok := s.aliases[a]
			if !ok {
				return &UnknownAliasError{Alias: a}
			}
			vars[i] = pos.v
			elems[i] = pos.shape
		}
		return c.project(s, "["+strings.Join(vars, ", ")+"]", "x", ResultShape{Kind: ShapeTuple, Elements: elems})
	case StepLimit:
		if step.Limit < 0 {
			return fmt.Errorf("limit must not be negative, got %d", step.Limit)
		}
		if err := c.flushWhere(s); err != nil {
			return err
		}
		c.with(s, s.live(true), true, fmt.Sprintf(" LIMIT %d", step.Limit))
	case StepCount:
		if err := c.flushWhere(s); err != nil {
			return err
		}
		v := c.newVar("x")
		items := append(append([]string(nil), s.carry...), "count("+s.cur.v+") AS "+v)
		c.emit("WITH " + strings.Join(items, ", "))
		c.canWhere = true
		s.aliases = make(map[Alias]position)
		s.order = nil
		s.sort = nil
		s.cur = position{v: v, shape: ResultShape{Kind: ShapeScalar, Type: reflect.TypeFor[int64]()}}
	case StepDrop:
		if s.cur.shape.Kind != ShapeVertex && s.cur.shape.Kind != ShapeEdge {
			return fmt.Errorf("drop cannot delete %s elements", s.cur.shape.Kind)
		}
		if err := c.flushWhere(s); err != nil {
			return err
		}
		if s.cur.shape.Kind == ShapeVertex {
			c.emit("DETACH DELETE " + s.cur.v)
		} else {
			c.emit("DELETE " + s.cur.v)
		}
		c.updated = true
		c.mutating = true
		s.cur = position{}
		s.sort = nil
	default:
		return fmt.Errorf("unsupported step %s", step.Kind)
	}
	return nil
}

func (c *compiler) idFilter(v string, ids []string) {
	switch len(ids) {
	case 0:
	case 1:
		c.pending = append(c.pending, "elementId("+v+") = "+c.param(ids[0]))
	default:
		c.pending = append(c.pending, "elementId("+v+") IN "+c.param(append([]string(nil), ids...)))
	}
}

func (c *compiler) payload(payload any, kind EntityKind) (*entityMetadata, map[string]any, error) {
	val := reflect.ValueOf(payload)
	if !val.IsValid() {
		return nil, nil, fmt.Errorf("%s payload must not be nil", kind)
	}
	meta, err := c.model.lookup(val.Type())
	if err != nil {
		return nil, nil, err
	}
	if meta.Kind != kind {
		return nil, nil, fmt.Errorf("type %s is registered as %s, not %s", meta.Type, meta.Kind, kind)
	}
	props, err := propertiesOf(meta, val)
	if err != nil {
		return nil, nil, err
	}
	return meta, props, nil
}

func (c *compiler) addEdge(s *scope, add, to Step) error {
	if s.cur.shape.Kind != ShapeVertex {
		return errors.New("addE must follow a vertex step")
	}
	meta, props, err := c.payload(add.Payload, KindEdge)
	if err != nil {
		return err
	}
	if err := c.flushWhere(s); err != nil {
		return err
	}
	from := s.cur.v
	target, err := c.target(s, to.Sub)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if target.shape.Kind != ShapeVertex {
		return fmt.Errorf("to must produce vertices, got %s", target.shape.Kind)
	}
	e := c.newVar("e")
	c.emit(fmt.Sprintf("CREATE (%s)-[%s:%s %s]->(%s)", from, e, quoteIdent(meta.Label), c.param(props), target.v))
	c.updated = true
	c.mutating = true
	s.cur = position{v: e, shape: ResultShape{Kind: ShapeEdge, Type: meta.Type}, meta: meta}
	return nil
}

// target compiles the traversal producing the target vertex of an edge. A
// target that limits its rows runs in a CALL subquery so the limit applies
// per source vertex.
func (c *compiler) target(s *scope, steps []Step) (position, error) {
	carry := s.live(true)
	for _, k := range s.sort {
		if !k.col && !slices.Contains(carry, k.dep) {
			carry = append(carry, k.dep)
		}
	}
	limited := false
	for _, step := range steps {
		limited = limited || step.Kind == StepLimit
	}
	if !limited {
		sub, err := c.compileSteps(steps, carry)
		if err != nil {
			return position{}, err
		}
		return sub.cur, nil
	}

	if c.updated {
		c.with(s, carry, false, "")
	}
	c.emit("CALL {")
	start := len(c.clauses)
	c.emit("WITH " + strings.Join(carry, ", "))
	sub, err := c.compileSteps(steps, carry)
	if err != nil {
		return position{}, err
	}
	c.emit("RETURN " + sub.cur.v)
	for i := start; i < len(c.clauses); i++ {
		c.clauses[i] = "  " + c.clauses[i]
	}
	c.emit("}")
	return sub.cur, nil
}

func (c *compiler) ofType(s *scope, ref TypeRef) error {
	var want EntityKind
	switch s.cur.shape.Kind {
	case ShapeVertex:
		want = KindVertex
	case ShapeEdge:
		want = KindEdge
	default:
		return fmt.Errorf("ofType cannot filter %s elements", s.cur.shape.Kind)
	}
	meta, err := c.model.lookup(ref.typ)
	if err != nil {
		return err
	}
	if meta.Kind != want {
		return fmt.Errorf("type %s is registered as %s, not %s", meta.Type, meta.Kind, want)
	}
	if want == KindVertex {
		c.pending = append(c.pending, s.cur.v+":"+quoteIdent(meta.Label))
	} else {
		c.pending = append(c.pending, "type("+s.cur.v+") = "+c.param(meta.Label))
	}
	s.cur.meta = meta
	s.cur.shape.Type = meta.Type
	return nil
}

func (c *compiler) relPattern(v string, ref TypeRef) (string, error) {
	if ref.typ == nil {
		return "[" + v + "]", nil
	}
	meta, err := c.model.lookup(ref.typ)
	if err != nil {
		return "", err
	}
	if meta.Kind != KindEdge {
		return "", fmt.Errorf("type %s is registered as %s, not edge", meta.Type, meta.Kind)
	}
	return "[" + v + ":" + quoteIdent(meta.Label) + "]", nil
}

// fieldExpr resolves a struct field of the current element to a property
// access.
func (c *compiler) fieldExpr(s *scope, field string) (string, reflect.Type, error) {
	meta := s.cur.meta
	if meta == nil {
		return "", nil, fmt.Errorf("field %s cannot be resolved on an untyped %s; add OfType first", field, s.cur.shape.Kind)
	}
	if field == meta.IDField {
		return "elementId(" + s.cur.v + ")", reflect.TypeFor[string](), nil
	}
	fm, ok := meta.field(field)
	if !ok {
		return "", nil, fmt.Errorf("type %s has no mapped field %s", meta.Type, field)
	}
	return s.cur.v + "." + quoteIdent(fm.Prop), fm.Type, nil
}

func (c *compiler) orderBy(s *scope, keys []SortKey) error {
	cur := s.cur
	var terms []sortKey
	term := func(expr string, k SortKey) sortKey {
		return sortKey{expr: expr, dep: cur.v, desc: k.Descending}
	}
	switch cur.shape.Kind {
	case ShapeVertex, ShapeEdge:
		if len(keys) == 0 {
			return errors.New("orderBy on elements needs at least one key")
		}
		for _, k := range keys {
			if cur.meta == nil {
				return &NonScalarSortKeyError{Field: k.Field}
			}
			expr, typ, err := c.fieldExpr(s, k.Field)
			if err != nil || !isScalar(typ) {
				return &NonScalarSortKeyError{Type: cur.meta.Type, Field: k.Field}
			}
			terms = append(terms, term(expr, k))
		}
		// Equal keys keep a fixed order.
		terms = append(terms, term("elementId("+cur.v+")", Asc("")))
	case ShapeScalar:
		for _, k := range keys {
			if k.Field != "" || (cur.shape.Type != nil && !isScalar(cur.shape.Type)) {
				return &NonScalarSortKeyError{Type: cur.shape.Type, Field: k.Field}
			}
			terms = append(terms, term(cur.v, k))
		}
	case ShapeMap:
		for _, k := range keys {
			if k.Field == "" {
				return &NonScalarSortKeyError{Field: k.Field}
			}
			terms = append(terms, term(cur.v+"."+quoteIdent(k.Field), k))
		}
	default:
		return &NonScalarSortKeyError{Type: cur.shape.Type}
	}
	s.sort = terms
	return nil
}

var comparisonOps = map[Operator]string{
	OpEq:         "=",
	OpNeq:        "<>",
	OpLt:         "<",
	OpLte:        "<=",
	OpGt:         ">",
	OpGte:        ">=",
	OpStartsWith: "STARTS WITH",
	OpEndsWith:   "ENDS WITH",
	OpContains:   "CONTAINS",
	OpIn:         "IN",
}

func (c *compiler) predicate(p Predicate, v string, meta *entityMetadata) (string, error) {
	switch p := p.(type) {
	case Comparison:
		return c.comparison(p, v, meta)
	case Conjunction:
		return c.combine(p, p.Terms, " AND ", v, meta)
	case Disjunction:
		return c.combine(p, p.Terms, " OR ", v, meta)
	case Negation:
		if p.Term == nil {
			return "", &UnsupportedPredicateError{Predicate: p, Reason: "negation of nothing"}
		}
		inner, err := c.predicate(p.Term, v, meta)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case nil:
		return "", &UnsupportedPredicateError{Predicate: Conjunction{}, Reason: "predicate is nil"}
	default:
		return "", &UnsupportedPredicateError{Predicate: p, Reason: fmt.Sprintf("%T has no Cypher form", p)}
	}
}

func (c *compiler) combine(p Predicate, terms []Predicate, sep, v string, meta *entityMetadata) (string, error) {
	if len(terms) == 0 {
		return "", &UnsupportedPredicateError{Predicate: p, Reason: "no terms"}
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		part, err := c.predicate(t, v, meta)
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

// valueClass groups Go types the way Cypher compares them.
type valueClass int

const (
	classOther valueClass = iota
	classString
	classNumber
	classBool
	classTime
	classList
)

func classify(typ reflect.Type) valueClass {
	if typ == timeType {
		return classTime
	}
	switch typ.Kind() {
	case reflect.String:
		return classString
	case reflect.Bool:
		return classBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32, reflect.Float64:
		return classNumber
	case reflect.Slice, reflect.Array:
		return classList
	case reflect.Ptr:
		return classify(typ.Elem())
	default:
		return classOther
	}
}

func (c *compiler) comparison(p Comparison, v string, meta *entityMetadata) (string, error) {
	unsupported := func(reason string, args ...any) error {
		return &UnsupportedPredicateError{Predicate: p, Reason: fmt.Sprintf(reason, args...)}
	}
	op, ok := comparisonOps[p.Op]
	if !ok {
		return "", unsupported("unknown operator")
	}
	if meta == nil {
		return "", unsupported("element type is unknown; add OfType before Where")
	}

	var expr string
	var fieldType reflect.Type
	if p.Field == meta.IDField {
		expr = "elementId(" + v + ")"
		fieldType = reflect.TypeFor[string]()
	} else {
		fm, ok := meta.field(p.Field)
		if !ok {
			return "", unsupported("%s has no mapped field %s", meta.Type, p.Field)
		}
		expr = v + "." + quoteIdent(fm.Prop)
		fieldType = fm.Type
	}

	if p.Value == nil {
		switch p.Op {
		case OpEq:
			return expr + " IS NULL", nil
		case OpNeq:
			return expr + " IS NOT NULL", nil
		default:
			return "", unsupported("nil can only be compared for equality")
		}
	}

	rv := reflect.ValueOf(p.Value)
	value, err := normalizeValue(rv)
	if err != nil {
		return "", unsupported("%v", err)
	}
	field, given := classify(fieldType), classify(rv.Type())

	switch p.Op {
	case OpStartsWith, OpEndsWith, OpContains:
		if field != classString || given != classString {
			return "", unsupported("%s needs a string field and a string value", p.Op)
		}
	case OpIn:
		if given != classList {
			return "", unsupported("in needs a list of values")
		}
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i)
			if elem.Kind() == reflect.Interface {
				if elem.IsNil() {
					continue
				}
				elem = elem.Elem()
			}
			if classify(elem.Type()) != field {
				return "", unsupported("element %d of the list does not match field %s", i, p.Field)
			}
		}
	case OpLt, OpLte, OpGt, OpGte:
		if field != given {
			return "", unsupported("cannot compare %s field with %T", fieldType, p.Value)
		}
		if field == classBool || field == classList || field == classOther {
			return "", unsupported("values of %s are not ordered", fieldType)
		}
	default:
		if field != given {
			return "", unsupported("cannot compare %s field with %T", fieldType, p.Value)
		}
	}
	return expr + " " + op + " " + c.param(value), nil
}

// quoteIdent escapes a label, relationship type or property name.
func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
