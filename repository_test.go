package neotraverse

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodeRecords(nodes ...neo4j.Node) []*neo4j.Record {
	out := make([]*neo4j.Record, len(nodes))
	for i, n := range nodes {
		out[i] = &neo4j.Record{Keys: []string{"n"}, Values: []any{n}}
	}
	return out
}

// mentions reports whether v was sent with the query, either as a
// parameter or inline.
func mentions(call runCall, v any) bool {
	for _, p := range call.params {
		if reflect.DeepEqual(p, v) {
			return true
		}
	}
	return strings.Contains(call.query, fmt.Sprint(v))
}

func TestRepository_Merge(t *testing.T) {
	runner := &fakeRunner{records: nodeRecords(personNode("4:a:1", "Marko", 29))}
	repo, err := NewRepository[person](newTestClient(t, runner))
	require.NoError(t, err)

	saved, err := repo.Merge(context.Background(), &person{Name: "Marko", Age: 29}, "Name")
	require.NoError(t, err)
	assert.Equal(t, &person{ID: "4:a:1", Name: "Marko", Age: 29}, saved)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].query, "MERGE")
	assert.Contains(t, calls[0].query, "Person")
	assert.True(t, mentions(calls[0], "Marko"))
	assert.True(t, mentions(calls[0], int64(29)))
}

func TestRepository_MergeRejectsUnexpectedResults(t *testing.T) {
	runner := &fakeRunner{records: nodeRecords(personNode("4:a:1", "Marko", 29), personNode("4:a:2", "Marko", 30))}
	repo, err := NewRepository[person](newTestClient(t, runner))
	require.NoError(t, err)

	_, err = repo.Merge(context.Background(), &person{Name: "Marko"}, "Name")
	assert.ErrorContains(t, err, "expected 1 record")

	_, err = repo.Merge(context.Background(), &person{Name: "Marko"}, "Email")
	assert.ErrorContains(t, err, "no mapped field Email")
}

func TestRepository_MergeNil(t *testing.T) {
	runner := &fakeRunner{}
	repo, err := NewRepository[person](newTestClient(t, runner))
	require.NoError(t, err)

	_, err = repo.Merge(context.Background(), nil, "Name")
	assert.ErrorContains(t, err, "cannot merge a nil")
	assert.Empty(t, runner.Calls())
}

func TestRepository_FindBy(t *testing.T) {
	runner := &fakeRunner{records: nodeRecords(personNode("4:a:1", "Marko", 29), personNode("4:a:4", "Peter", 29))}
	repo, err := NewRepository[person](newTestClient(t, runner))
	require.NoError(t, err)

	people, err := repo.FindBy(context.Background(), "Age", 29)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Peter", people[1].Name)
	assert.Contains(t, runner.Calls()[0].query, "MATCH")

	runner.records = nil
	_, err = repo.FindBy(context.Background(), "Age", 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_FindByHydrationError(t *testing.T) {
	bad := neo4j.Node{ElementId: "4:a:1", Labels: []string{"Person"}, Props: map[string]any{"email": "x"}}
	repo, err := NewRepository[person](newTestClient(t, &fakeRunner{records: nodeRecords(bad)}))
	require.NoError(t, err)

	_, err = repo.FindBy(context.Background(), "Name", "Marko")
	var hydrationErr *HydrationError
	require.ErrorAs(t, err, &hydrationErr)
	assert.Equal(t, 0, hydrationErr.Index)
}

func TestRepository_DeleteBy(t *testing.T) {
	runner := &fakeRunner{}
	repo, err := NewRepository[person](newTestClient(t, runner))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteBy(context.Background(), "Name", "Bob"))
	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].query, "DETACH DELETE")
	assert.True(t, mentions(calls[0], "Bob"))

	runner.runErr = errors.New("unavailable")
	err = repo.DeleteBy(context.Background(), "Name", "Bob")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "delete", transportErr.Op)
}

func TestNewRepository_Errors(t *testing.T) {
	c := newTestClient(t, &fakeRunner{})

	_, err := NewRepository[knows](c)
	assert.ErrorContains(t, err, "need a vertex type")

	_, err = NewRepository[unregistered](c)
	var unknown *UnknownTypeError
	assert.ErrorAs(t, err, &unknown)
}
