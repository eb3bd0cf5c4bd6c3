package neotraverse

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"
)

// EntityKind tells whether a registered type describes vertices or edges.
type EntityKind int

const (
	KindVertex EntityKind = iota + 1
	KindEdge
)

func (k EntityKind) String() string {
	switch k {
	case KindVertex:
		return "vertex"
	case KindEdge:
		return "edge"
	default:
		return "unknown"
	}
}

// fieldMapping describes one persisted struct field.
type fieldMapping struct {
	Field string
	Prop  string
	Type  reflect.Type
	Index int
}

// entityMetadata holds the parsed `graph` tag information for a registered
// struct type. It is immutable once built.
type entityMetadata struct {
	Type  reflect.Type
	Kind  EntityKind
	Label string
	// IDField is the struct field receiving the server-assigned element id.
	IDField string
	idIndex int
	// Fields lists persisted fields in declaration order.
	Fields  []fieldMapping
	byField map[string]int
	byProp  map[string]int
}

func (m *entityMetadata) field(name string) (fieldMapping, bool) {
	i, ok := m.byField[name]
	if !ok {
		return fieldMapping{}, false
	}
	return m.Fields[i], true
}

type labelKey struct {
	kind  EntityKind
	label string
}

// Model maps application structs to graph labels. Register every type before
// handing the Model to a Client; afterwards it is read-only and safe for
// concurrent use.
type Model struct {
	mu      sync.RWMutex
	frozen  bool
	byType  map[reflect.Type]*entityMetadata
	byLabel map[labelKey]*entityMetadata
}

// NewModel returns an empty Model.
func NewModel() *Model {
	return &Model{
		byType:  make(map[reflect.Type]*entityMetadata),
		byLabel: make(map[labelKey]*entityMetadata),
	}
}

// RegisterOption customises a registration.
type RegisterOption func(*entityMetadata)

// WithLabel overrides the label, which defaults to the struct name.
func WithLabel(label string) RegisterOption {
	return func(m *entityMetadata) { m.Label = label }
}

// RegisterVertex registers T as a vertex type.
func RegisterVertex[T any](m *Model, opts ...RegisterOption) error {
	return m.register(reflect.TypeFor[T](), KindVertex, opts)
}

// RegisterEdge registers T as an edge type.
func RegisterEdge[T any](m *Model, opts ...RegisterOption) error {
	return m.register(reflect.TypeFor[T](), KindEdge, opts)
}

func (m *Model) register(typ reflect.Type, kind EntityKind, opts []RegisterOption) error {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	meta, err := parseTagsFromType(typ)
	if err != nil {
		return err
	}
	meta.Kind = kind
	for _, opt := range opts {
		opt(meta)
	}
	if meta.Label == "" {
		return fmt.Errorf("type %s registered with an empty label", typ)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return ErrModelFrozen
	}
	if _, ok := m.byType[typ]; ok {
		return &DuplicateTypeError{Type: typ}
	}
	m.byType[typ] = meta
	key := labelKey{kind: kind, label: meta.Label}
	if _, ok := m.byLabel[key]; !ok {
		m.byLabel[key] = meta
	}
	return nil
}

func (m *Model) freeze() {
	m.mu.Lock()
	m.frozen = true
	m.mu.Unlock()
}

// Label returns the graph label registered for typ.
func (m *Model) Label(typ reflect.Type) (string, error) {
	meta, err := m.lookup(typ)
	if err != nil {
		return "", err
	}
	return meta.Label, nil
}

// LabelOf returns the graph label registered for T.
func LabelOf[T any](m *Model) (string, error) {
	return m.Label(reflect.TypeFor[T]())
}

// Identity returns the server-assigned element id of a registered instance.
func (m *Model) Identity(instance any) (string, error) {
	val := reflect.ValueOf(instance)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return "", fmt.Errorf("instance must not be a nil pointer")
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		return "", fmt.Errorf("instance must not be nil")
	}
	meta, err := m.lookup(val.Type())
	if err != nil {
		return "", err
	}
	id := val.Field(meta.idIndex).String()
	if id == "" {
		return "", &NoIdentityError{Type: meta.Type}
	}
	return id, nil
}

func (m *Model) lookup(typ reflect.Type) (*entityMetadata, error) {
	if typ == nil {
		return nil, &UnknownTypeError{Type: typ}
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	m.mu.RLock()
	meta, ok := m.byType[typ]
	m.mu.RUnlock()
	if !ok {
		return nil, &UnknownTypeError{Type: typ}
	}
	return meta, nil
}

func (m *Model) lookupLabel(kind EntityKind, label string) (*entityMetadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.byLabel[labelKey{kind: kind, label: label}]
	return meta, ok
}

// parseTagsFromType inspects a struct type and extracts the mapping from its
// `graph` tags. Supported parts are "id" and "property:<name>".
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ)
	}

	meta := &entityMetadata{
		Type:    typ,
		Label:   typ.Name(),
		idIndex: -1,
		byField: make(map[string]int),
		byProp:  make(map[string]int),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("graph")
		if tag == "" || tag == "-" {
			continue
		}
		if !field.IsExported() {
			return nil, fmt.Errorf("field %s of %s is tagged but not exported", field.Name, typ)
		}

		isID := false
		propName := ""
		for _, part := range strings.Split(tag, ",") {
			switch {
			case part == "id":
				isID = true
			case strings.HasPrefix(part, "property:"):
				propName = strings.TrimPrefix(part, "property:")
			default:
				return nil, fmt.Errorf("field %s of %s has unknown tag component %q", field.Name, typ, part)
			}
		}

		if isID {
			if meta.IDField != "" {
				return nil, fmt.Errorf("type %s declares more than one id field", typ)
			}
			if field.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("id field %s of %s must be a string", field.Name, typ)
			}
			meta.IDField = field.Name
			meta.idIndex = i
			continue
		}
		if propName == "" {
			return nil, fmt.Errorf("field %s is missing 'property' tag component", field.Name)
		}
		if _, dup := meta.byProp[propName]; dup {
			return nil, fmt.Errorf("property %q is mapped twice in %s", propName, typ)
		}

		meta.byField[field.Name] = len(meta.Fields)
		meta.byProp[propName] = len(meta.Fields)
		meta.Fields = append(meta.Fields, fieldMapping{
			Field: field.Name,
			Prop:  propName,
			Type:  field.Type,
			Index: i,
		})
	}

	if meta.IDField == "" {
		return nil, fmt.Errorf("no identity ('id') tag defined for struct %s", typ.Name())
	}
	return meta, nil
}

var timeType = reflect.TypeFor[time.Time]()

// isScalar reports whether values of typ can be compared and sorted by the
// server.
func isScalar(typ reflect.Type) bool {
	if typ == timeType {
		return true
	}
	switch typ.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// propertiesOf extracts the persisted properties of a registered instance,
// normalised to the value types the driver understands.
func propertiesOf(meta *entityMetadata, val reflect.Value) (map[string]any, error) {
	props := make(map[string]any, len(meta.Fields))
	for _, f := range meta.Fields {
		v, err := normalizeValue(val.Field(f.Index))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Field, err)
		}
		props[f.Prop] = v
	}
	return props, nil
}

func normalizeValue(v reflect.Value) (any, error) {
	if v.Type() == timeType {
		return v.Interface(), nil
	}
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		if v.Uint() > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", v.Uint())
		}
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			item, err := normalizeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return normalizeValue(v.Elem())
	default:
		return nil, fmt.Errorf("values of kind %s cannot be stored as properties", v.Kind())
	}
}
