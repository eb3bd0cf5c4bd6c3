package neotraverse

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_DeduplicatesElements(t *testing.T) {
	marko, vadas, josh := personNode("4:a:1", "Marko", 29), personNode("4:a:2", "Vadas", 27), personNode("4:a:3", "Josh", 32)
	path := neo4j.Path{
		Nodes:         []neo4j.Node{marko, josh},
		Relationships: []neo4j.Relationship{knowsRel("5:a:2", "4:a:1", "4:a:3")},
	}
	runner := &fakeRunner{records: rows(
		[]any{marko, vadas},
		[]any{marko, knowsRel("5:a:1", "4:a:1", "4:a:2"), vadas},
		path,
		"ignored scalar",
	)}
	c := newTestClient(t, runner)

	graph, err := c.Graph(context.Background(), G().V().OfType(Of[person]()))
	require.NoError(t, err)

	var ids []string
	for _, n := range graph.Nodes {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"4:a:1", "4:a:2", "4:a:3"}, ids)
	assert.Equal(t, []string{"Person"}, graph.Nodes[0].Labels)
	assert.Equal(t, "Marko", graph.Nodes[0].Properties["name"])

	require.Len(t, graph.Edges, 2)
	assert.Equal(t, &GraphEdge{
		ID:         "5:a:1",
		Source:     "4:a:1",
		Target:     "4:a:2",
		Type:       "Knows",
		Properties: map[string]any{},
	}, graph.Edges[0])
	assert.Equal(t, "4:a:3", graph.Edges[1].Target)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].stream, "graphs are read eagerly")
}

func TestGraph_Errors(t *testing.T) {
	c := newTestClient(t, &fakeRunner{})
	_, err := c.Graph(context.Background(), G().V())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.Graph(context.Background(), G().V().OfType(Of[unregistered]()))
	var unknown *UnknownTypeError
	assert.ErrorAs(t, err, &unknown)

	c = newTestClient(t, &fakeRunner{runErr: errors.New("unavailable")})
	_, err = c.Graph(context.Background(), G().V())
	var transportErr *TransportError
	assert.ErrorAs(t, err, &transportErr)
}
