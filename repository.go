package neotraverse

import (
	"context"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// Repository persists a registered vertex type by a natural key instead of
// the server-assigned identity. Merge is idempotent, which makes it the tool
// for seeding data that may already exist.
type Repository[T any] struct {
	client *Client
	meta   *entityMetadata
}

// NewRepository creates a repository for the registered vertex type T.
func NewRepository[T any](c *Client) (*Repository[T], error) {
	meta, err := c.model.lookup(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if meta.Kind != KindVertex {
		return nil, fmt.Errorf("type %s is registered as %s, repositories need a vertex type", meta.Type, meta.Kind)
	}
	return &Repository[T]{client: c, meta: meta}, nil
}

func (r *Repository[T]) property(field string) (string, error) {
	fm, ok := r.meta.field(field)
	if !ok {
		return "", fmt.Errorf("type %s has no mapped field %s", r.meta.Type, field)
	}
	return fm.Prop, nil
}

// Merge creates the vertex or updates the one whose keyField matches. It uses a
// MERGE on the key property and sets all other mapped fields. The returned
// copy carries the element id.
func (r *Repository[T]) Merge(ctx context.Context, entity *T, keyField string) (*T, error) {
	if entity == nil {
		return nil, fmt.Errorf("cannot merge a nil %s", r.meta.Type)
	}
	keyProp, err := r.property(keyField)
	if err != nil {
		return nil, err
	}
	props, err := propertiesOf(r.meta, reflect.ValueOf(entity).Elem())
	if err != nil {
		return nil, err
	}

	mergeProps := map[string]interface{}{keyProp: props[keyProp]}
	setProps := make(map[string]interface{})
	for prop, value := range props {
		if prop != keyProp {
			// The property is prefixed with 'n.' for the SET clause.
			setProps["n."+prop] = value
		}
	}

	qb := gocypher.NewQueryBuilder().
		Merge(gocypher.N("n", r.meta.Label).WithProperties(mergeProps))
	if len(setProps) > 0 {
		qb = qb.Set(setProps)
	}
	query, params, err := qb.Return("n").Build()
	if err != nil {
		return nil, err
	}

	eagerResult, err := r.client.runner.Run(ctx, query, params)
	if err != nil {
		return nil, &TransportError{Op: "merge", Err: err}
	}
	if len(eagerResult.Records) != 1 {
		return nil, fmt.Errorf("expected 1 record but found %d", len(eagerResult.Records))
	}
	return r.entityFrom(eagerResult.Records[0], 0)
}

// FindBy returns every vertex of T whose field equals value.
func (r *Repository[T]) FindBy(ctx context.Context, field string, value any) ([]*T, error) {
	prop, err := r.property(field)
	if err != nil {
		return nil, err
	}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(map[string]interface{}{prop: value})).
		Return("n").
		Build()
	if err != nil {
		return nil, err
	}

	eagerResult, err := r.client.runner.Run(ctx, query, params)
	if err != nil {
		return nil, &TransportError{Op: "find", Err: err}
	}
	if len(eagerResult.Records) == 0 {
		return nil, ErrNotFound
	}

	out := make([]*T, 0, len(eagerResult.Records))
	for i, record := range eagerResult.Records {
		entity, err := r.entityFrom(record, i)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// DeleteBy removes every vertex of T whose field equals value, together with
// its edges.
func (r *Repository[T]) DeleteBy(ctx context.Context, field string, value any) error {
	prop, err := r.property(field)
	if err != nil {
		return err
	}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(map[string]interface{}{prop: value})).
		DetachDelete("n").
		Build()
	if err != nil {
		return err
	}
	if _, err := r.client.runner.Run(ctx, query, params); err != nil {
		return &TransportError{Op: "delete", Err: err}
	}
	return nil
}

func (r *Repository[T]) entityFrom(record *neo4j.Record, index int) (*T, error) {
	nodeValue, ok := record.Get("n")
	if !ok {
		return nil, fmt.Errorf("could not find return value 'n' in query result")
	}
	v, err := hydrateEntity(r.meta, nodeValue)
	if err != nil {
		return nil, &HydrationError{Index: index, Target: r.meta.Type, Err: err}
	}
	entity := v.Addr().Interface().(*T)
	return entity, nil
}
