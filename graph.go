package neotraverse

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphNode represents a generic vertex from a Neo4j graph.
// It is a domain-agnostic representation, capturing the essential components of any node:
// its unique element id, its labels, and its properties. This struct is designed to be
// easily serialized to JSON.
type GraphNode struct {
	// ID is the element id assigned by Neo4j.
	ID string `json:"id"`

	// Labels contains all the labels attached to the node (e.g., ["Person"]).
	Labels []string `json:"labels"`

	// Properties is a map containing the key-value properties of the node.
	Properties map[string]any `json:"properties"`
}

// GraphEdge represents a generic relationship between two vertices.
type GraphEdge struct {
	ID string `json:"id"`

	// Source is the element id of the vertex where the relationship starts.
	Source string `json:"source"`

	// Target is the element id of the vertex where the relationship ends.
	Target string `json:"target"`

	// Type is the relationship's type (e.g., "Knows").
	Type string `json:"type"`

	Properties map[string]any `json:"properties"`
}

// GraphResult is a top-level container for a generic graph query result, in the
// nodes + edges form most graph visualization libraries consume.
type GraphResult struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`
}

// Graph executes a traversal eagerly and collects every vertex and edge found
// in its results, including inside tuples and lists, into a GraphResult.
//
// Elements returned in several rows appear once. Returns ErrNotFound when the
// traversal yields no rows.
func (c *Client) Graph(ctx context.Context, t Traversal) (*GraphResult, error) {
	req, err := c.Compile(t)
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := c.runner.Run(ctx, req.Query, req.Params)
	if err != nil {
		return nil, &TransportError{Op: "run", Err: err}
	}

	if len(eagerResult.Records) == 0 {
		return nil, ErrNotFound
	}

	g := &graphCollector{
		graph: &GraphResult{
			Nodes: make([]*GraphNode, 0),
			Edges: make([]*GraphEdge, 0),
		},
		seenNodes: make(map[string]bool),
		seenEdges: make(map[string]bool),
	}
	for _, record := range eagerResult.Records {
		for _, value := range record.Values {
			g.add(value)
		}
	}
	return g.graph, nil
}

type graphCollector struct {
	graph     *GraphResult
	seenNodes map[string]bool
	seenEdges map[string]bool
}

func (g *graphCollector) add(value any) {
	switch v := value.(type) {
	case neo4j.Node:
		if !g.seenNodes[v.ElementId] {
			g.graph.Nodes = append(g.graph.Nodes, &GraphNode{
				ID:         v.ElementId,
				Labels:     v.Labels,
				Properties: v.Props,
			})
			g.seenNodes[v.ElementId] = true
		}
	case neo4j.Relationship:
		if !g.seenEdges[v.ElementId] {
			g.graph.Edges = append(g.graph.Edges, &GraphEdge{
				ID:         v.ElementId,
				Source:     v.StartElementId,
				Target:     v.EndElementId,
				Type:       v.Type,
				Properties: v.Props,
			})
			g.seenEdges[v.ElementId] = true
		}
	case neo4j.Path:
		for _, n := range v.Nodes {
			g.add(n)
		}
		for _, r := range v.Relationships {
			g.add(r)
		}
	case []any:
		for _, item := range v {
			g.add(item)
		}
	}
}
