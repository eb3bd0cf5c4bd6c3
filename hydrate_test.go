package neotraverse

import (
	"reflect"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var personShape = ResultShape{Kind: ShapeVertex, Type: reflect.TypeFor[person]()}

func TestHydrate_Vertex(t *testing.T) {
	m := newTestModel(t)

	p, err := hydrate[person](m, personShape, personNode("4:a:3", "Josh", 32))
	require.NoError(t, err)
	assert.Equal(t, person{ID: "4:a:3", Name: "Josh", Age: 32}, p)

	ptr, err := hydrate[*person](m, personShape, personNode("4:a:3", "Josh", 32))
	require.NoError(t, err)
	assert.Equal(t, &person{ID: "4:a:3", Name: "Josh", Age: 32}, ptr)
}

func TestHydrate_NamedAndListProperties(t *testing.T) {
	m := newTestModel(t)

	s, err := hydrate[software](m, ResultShape{Kind: ShapeVertex}, neo4j.Node{
		ElementId: "4:a:5",
		Labels:    []string{"Software"},
		Props: map[string]any{
			"name":     "Lop",
			"language": "Java",
			"tags":     []any{"graph", "db"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, software{ID: "4:a:5", Name: "Lop", Language: "Java", Tags: []string{"graph", "db"}}, s)
}

func TestHydrate_MissingPropertiesKeepZeroValues(t *testing.T) {
	m := newTestModel(t)

	p, err := hydrate[person](m, personShape, neo4j.Node{
		ElementId: "4:a:8",
		Labels:    []string{"Person"},
		Props:     map[string]any{"name": "Peter"},
	})
	require.NoError(t, err)
	assert.Equal(t, person{ID: "4:a:8", Name: "Peter"}, p)
}

func TestHydrate_Dynamic(t *testing.T) {
	m := newTestModel(t)

	v, err := hydrate[any](m, ResultShape{Kind: ShapeEdge}, knowsRel("5:a:1", "4:a:1", "4:a:2"))
	require.NoError(t, err)
	assert.Equal(t, knows{ID: "5:a:1"}, v)

	v, err = hydrate[any](m, ResultShape{Kind: ShapeVertex}, neo4j.Node{
		ElementId: "4:a:1",
		Labels:    []string{"Employee", "Person"},
		Props:     map[string]any{"name": "Marko", "age": int64(29)},
	})
	require.NoError(t, err)
	assert.Equal(t, person{ID: "4:a:1", Name: "Marko", Age: 29}, v)

	v, err = hydrate[any](m, ResultShape{Kind: ShapeScalar}, int64(4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	_, err = hydrate[any](m, ResultShape{Kind: ShapeVertex}, neo4j.Node{ElementId: "4:a:1", Labels: []string{"Robot"}})
	assert.ErrorContains(t, err, "no vertex type registered")
}

func TestHydrate_Scalars(t *testing.T) {
	m := newTestModel(t)
	scalar := ResultShape{Kind: ShapeScalar}

	n, err := hydrate[int](m, scalar, int64(27))
	require.NoError(t, err)
	assert.Equal(t, 27, n)

	f, err := hydrate[float64](m, scalar, int64(3))
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	lang, err := hydrate[language](m, scalar, "Go")
	require.NoError(t, err)
	assert.Equal(t, language("Go"), lang)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts, err := hydrate[time.Time](m, scalar, now)
	require.NoError(t, err)
	assert.Equal(t, now, ts)

	_, err = hydrate[int8](m, scalar, int64(300))
	assert.ErrorContains(t, err, "overflows")

	u, err := hydrate[uint16](m, scalar, int64(7))
	require.NoError(t, err)
	assert.Equal(t, uint16(7), u)

	_, err = hydrate[uint](m, scalar, int64(-1))
	assert.ErrorContains(t, err, "negative value -1")

	_, err = hydrate[string](m, scalar, int64(1))
	assert.ErrorContains(t, err, "cannot convert")

	_, err = hydrate[string](m, scalar, nil)
	assert.ErrorContains(t, err, "null")
}

func TestHydrate_Maps(t *testing.T) {
	m := newTestModel(t)
	raw := map[string]any{"Name": "Vadas", "Age": int64(27)}

	got, err := hydrate[map[string]any](m, ResultShape{Kind: ShapeMap}, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	type nameAge struct {
		Name string
		Age  int
	}
	row, err := hydrate[nameAge](m, ResultShape{Kind: ShapeMap}, raw)
	require.NoError(t, err)
	assert.Equal(t, nameAge{Name: "Vadas", Age: 27}, row)

	_, err = hydrate[nameAge](m, ResultShape{Kind: ShapeMap}, map[string]any{"Email": "x"})
	assert.ErrorContains(t, err, "has no field Email")

	props, err := hydrate[map[string]any](m, personShape, personNode("4:a:1", "Marko", 29))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Marko", "age": int64(29)}, props)
}

func TestHydrate_Tuple(t *testing.T) {
	m := newTestModel(t)
	shape := ResultShape{Kind: ShapeTuple, Elements: []ResultShape{personShape, {Kind: ShapeVertex}}}

	tuple, err := hydrate[Tuple](m, shape, []any{
		personNode("4:a:1", "Marko", 29),
		personNode("4:a:2", "Vadas", 27),
	})
	require.NoError(t, err)
	require.Len(t, tuple, 2)

	first, err := TupleItem[person](tuple, 0)
	require.NoError(t, err)
	assert.Equal(t, "Marko", first.Name)
	second, err := TupleItem[person](tuple, 1)
	require.NoError(t, err)
	assert.Equal(t, "Vadas", second.Name)

	_, err = TupleItem[knows](tuple, 0)
	assert.ErrorContains(t, err, "not neotraverse.knows")
	_, err = TupleItem[person](tuple, 2)
	assert.ErrorContains(t, err, "out of range")

	_, err = hydrate[Tuple](m, shape, []any{personNode("4:a:1", "Marko", 29)})
	assert.ErrorContains(t, err, "expected 2")
}

func TestHydrate_Rejects(t *testing.T) {
	m := newTestModel(t)

	tests := []struct {
		name    string
		raw     any
		wantErr string
	}{
		{
			name:    "unmapped property",
			raw:     neo4j.Node{ElementId: "1", Labels: []string{"Person"}, Props: map[string]any{"email": "x"}},
			wantErr: `property "email" is not mapped`,
		},
		{
			name:    "wrong label",
			raw:     neo4j.Node{ElementId: "1", Labels: []string{"Software"}, Props: map[string]any{}},
			wantErr: "is not a Person",
		},
		{
			name:    "edge for a vertex type",
			raw:     knowsRel("5:a:1", "1", "2"),
			wantErr: "is a vertex type",
		},
		{
			name:    "wrong property type",
			raw:     neo4j.Node{ElementId: "1", Labels: []string{"Person"}, Props: map[string]any{"age": "old"}},
			wantErr: "field Age",
		},
		{
			name:    "scalar for a struct",
			raw:     "Marko",
			wantErr: "cannot hydrate string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hydrate[person](m, personShape, tt.raw)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
