package neotraverse

import (
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Tuple is the result element of Select: one component per selected alias,
// in selection order. Vertices and edges are hydrated into their registered
// struct types.
type Tuple []any

// TupleItem returns component i of t as a V.
func TupleItem[V any](t Tuple, i int) (V, error) {
	var zero V
	if i < 0 || i >= len(t) {
		return zero, fmt.Errorf("tuple has %d components, index %d is out of range", len(t), i)
	}
	v, ok := t[i].(V)
	if !ok {
		return zero, fmt.Errorf("tuple component %d is %T, not %s", i, t[i], reflect.TypeFor[V]())
	}
	return v, nil
}

var (
	tupleType = reflect.TypeFor[Tuple]()
	mapType   = reflect.TypeFor[map[string]any]()
)

func hydrate[T any](m *Model, shape ResultShape, raw any) (T, error) {
	var zero T
	v, err := hydrateValue(m, shape, raw, reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

// hydrateValue converts a raw driver value into target.
func hydrateValue(m *Model, shape ResultShape, raw any, target reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Value{}, fmt.Errorf("server returned null")
	}

	switch {
	case target == tupleType:
		return hydrateTuple(m, shape, raw)
	case target.Kind() == reflect.Interface:
		v, err := hydrateDynamic(m, shape, raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if !v.Type().AssignableTo(target) {
			return reflect.Value{}, fmt.Errorf("%s does not implement %s", v.Type(), target)
		}
		out := reflect.New(target).Elem()
		out.Set(v)
		return out, nil
	case target.Kind() == reflect.Ptr && target.Elem().Kind() == reflect.Struct:
		v, err := hydrateValue(m, shape, raw, target.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(target.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case target == mapType:
		switch r := raw.(type) {
		case map[string]any:
			return reflect.ValueOf(r), nil
		case neo4j.Node:
			return reflect.ValueOf(r.Props), nil
		case neo4j.Relationship:
			return reflect.ValueOf(r.Props), nil
		}
		return reflect.Value{}, fmt.Errorf("cannot hydrate %T into a map", raw)
	case target.Kind() == reflect.Struct && target != timeType:
		if r, ok := raw.(map[string]any); ok {
			return hydrateFromMap(r, target)
		}
		meta, err := m.lookup(target)
		if err != nil {
			return reflect.Value{}, err
		}
		return hydrateEntity(meta, raw)
	default:
		return convertScalar(raw, target)
	}
}

func hydrateTuple(m *Model, shape ResultShape, raw any) (reflect.Value, error) {
	items, ok := raw.([]any)
	if !ok {
		return reflect.Value{}, fmt.Errorf("cannot hydrate %T into a tuple", raw)
	}
	if shape.Kind == ShapeTuple && len(shape.Elements) != len(items) {
		return reflect.Value{}, fmt.Errorf("tuple has %d components, expected %d", len(items), len(shape.Elements))
	}
	out := make(Tuple, len(items))
	for i, item := range items {
		var elem ResultShape
		if i < len(shape.Elements) {
			elem = shape.Elements[i]
		}
		v, err := hydrateDynamic(m, elem, item)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = v.Interface()
	}
	return reflect.ValueOf(out), nil
}

// hydrateDynamic picks the Go type from the element itself: registered
// structs for vertices and edges, the raw value otherwise.
func hydrateDynamic(m *Model, shape ResultShape, raw any) (reflect.Value, error) {
	if shape.Type != nil && (shape.Kind == ShapeVertex || shape.Kind == ShapeEdge) {
		return hydrateValue(m, shape, raw, shape.Type)
	}
	switch r := raw.(type) {
	case neo4j.Node:
		for _, label := range r.Labels {
			if meta, ok := m.lookupLabel(KindVertex, label); ok {
				return hydrateEntity(meta, r)
			}
		}
		return reflect.Value{}, fmt.Errorf("no vertex type registered for labels %v", r.Labels)
	case neo4j.Relationship:
		meta, ok := m.lookupLabel(KindEdge, r.Type)
		if !ok {
			return reflect.Value{}, fmt.Errorf("no edge type registered for %q", r.Type)
		}
		return hydrateEntity(meta, r)
	case []any:
		return hydrateTuple(m, shape, r)
	default:
		return reflect.ValueOf(raw), nil
	}
}

func hydrateEntity(meta *entityMetadata, raw any) (reflect.Value, error) {
	var id string
	var props map[string]any
	switch r := raw.(type) {
	case neo4j.Node:
		if meta.Kind != KindVertex {
			return reflect.Value{}, fmt.Errorf("got a vertex, %s is an edge type", meta.Type)
		}
		if !hasLabel(r.Labels, meta.Label) {
			return reflect.Value{}, fmt.Errorf("vertex with labels %v is not a %s", r.Labels, meta.Label)
		}
		id, props = r.ElementId, r.Props
	case neo4j.Relationship:
		if meta.Kind != KindEdge {
			return reflect.Value{}, fmt.Errorf("got an edge, %s is a vertex type", meta.Type)
		}
		if r.Type != meta.Label {
			return reflect.Value{}, fmt.Errorf("edge of type %s is not a %s", r.Type, meta.Label)
		}
		id, props = r.ElementId, r.Props
	default:
		return reflect.Value{}, fmt.Errorf("cannot hydrate %T into %s", raw, meta.Type)
	}

	out := reflect.New(meta.Type).Elem()
	out.Field(meta.idIndex).SetString(id)
	for prop, value := range props {
		i, ok := meta.byProp[prop]
		if !ok {
			return reflect.Value{}, fmt.Errorf("property %q is not mapped by %s", prop, meta.Type)
		}
		fm := meta.Fields[i]
		if err := setField(out.Field(fm.Index), value); err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", fm.Field, err)
		}
	}
	return out, nil
}

// hydrateFromMap fills an unregistered struct from a projection keyed by
// field name.
func hydrateFromMap(raw map[string]any, target reflect.Type) (reflect.Value, error) {
	out := reflect.New(target).Elem()
	for key, value := range raw {
		f := out.FieldByName(key)
		if !f.IsValid() || !f.CanSet() {
			return reflect.Value{}, fmt.Errorf("%s has no field %s", target, key)
		}
		if err := setField(f, value); err != nil {
			return reflect.Value{}, fmt.Errorf("field %s: %w", key, err)
		}
	}
	return out, nil
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func setField(field reflect.Value, raw any) error {
	if raw == nil {
		return nil
	}
	if field.Kind() == reflect.Ptr {
		v, err := convertScalarOrList(raw, field.Type().Elem())
		if err != nil {
			return err
		}
		ptr := reflect.New(field.Type().Elem())
		ptr.Elem().Set(v)
		field.Set(ptr)
		return nil
	}
	v, err := convertScalarOrList(raw, field.Type())
	if err != nil {
		return err
	}
	field.Set(v)
	return nil
}

func convertScalarOrList(raw any, target reflect.Type) (reflect.Value, error) {
	items, ok := raw.([]any)
	if !ok || target.Kind() != reflect.Slice {
		return convertScalar(raw, target)
	}
	out := reflect.MakeSlice(target, len(items), len(items))
	for i, item := range items {
		v, err := convertScalar(item, target.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(v)
	}
	return out, nil
}

// convertScalar converts between values of the same class, e.g. the int64
// the driver returns into an int field or a string into a named string type.
func convertScalar(raw any, target reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(target) {
		return rv, nil
	}
	if classify(rv.Type()) == classify(target) && classify(target) != classOther && rv.Type().ConvertibleTo(target) {
		if rv.Kind() == reflect.Int64 && rv.Int() < 0 && isUnsigned(target.Kind()) {
			return reflect.Value{}, fmt.Errorf("negative value %d does not fit %s", rv.Int(), target)
		}
		out := rv.Convert(target)
		if rv.Kind() == reflect.Int64 && out.Kind() != reflect.Float32 && out.Kind() != reflect.Float64 {
			if out.Convert(rv.Type()).Int() != rv.Int() {
				return reflect.Value{}, fmt.Errorf("value %d overflows %s", rv.Int(), target)
			}
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %T into %s", raw, target)
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}
