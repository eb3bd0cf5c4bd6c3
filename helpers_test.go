package neotraverse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/require"
)

type person struct {
	ID   string `graph:"id"`
	Name string `graph:"property:name"`
	Age  int    `graph:"property:age"`
}

type language string

type software struct {
	ID       string   `graph:"id"`
	Name     string   `graph:"property:name"`
	Language language `graph:"property:language"`
	Tags     []string `graph:"property:tags"`
}

type knows struct {
	ID string `graph:"id"`
}

type created struct {
	ID     string  `graph:"id"`
	Weight float64 `graph:"property:weight"`
}

type unregistered struct {
	ID string `graph:"id"`
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel()
	require.NoError(t, RegisterVertex[person](m, WithLabel("Person")))
	require.NoError(t, RegisterVertex[software](m, WithLabel("Software")))
	require.NoError(t, RegisterEdge[knows](m, WithLabel("Knows")))
	require.NoError(t, RegisterEdge[created](m, WithLabel("Created")))
	return m
}

func newTestClient(t *testing.T, runner DBRunner) *Client {
	t.Helper()
	return NewClient(runner, newTestModel(t), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// newLoggedClient returns a client whose log output is captured in the
// returned buffer.
func newLoggedClient(t *testing.T, runner DBRunner) (*Client, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewClient(runner, newTestModel(t), WithLogger(logger)), &buf
}

func personNode(id, name string, age int) neo4j.Node {
	return neo4j.Node{
		ElementId: id,
		Labels:    []string{"Person"},
		Props:     map[string]any{"name": name, "age": int64(age)},
	}
}

func knowsRel(id, from, to string) neo4j.Relationship {
	return neo4j.Relationship{
		ElementId:      id,
		StartElementId: from,
		EndElementId:   to,
		Type:           "Knows",
		Props:          map[string]any{},
	}
}

func rows(values ...any) []*neo4j.Record {
	out := make([]*neo4j.Record, len(values))
	for i, v := range values {
		out[i] = &neo4j.Record{Keys: []string{"x"}, Values: []any{v}}
	}
	return out
}

type runCall struct {
	query  string
	params map[string]any
	write  bool
	stream bool
}

// fakeRunner answers every query with the same records. It records the calls
// it receives and is safe for concurrent use.
type fakeRunner struct {
	records []*neo4j.Record
	// runErr fails the call itself.
	runErr error
	// fetchErr is reported by a stream after its records are exhausted.
	fetchErr error
	// respond, when set, overrides records per call.
	respond func(query string, params map[string]any) []*neo4j.Record

	mu     sync.Mutex
	calls  []runCall
	closed int
}

func (f *fakeRunner) answer(call runCall) ([]*neo4j.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.runErr != nil {
		return nil, f.runErr
	}
	if f.respond != nil {
		return f.respond(call.query, call.params), nil
	}
	return f.records, nil
}

func (f *fakeRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	records, err := f.answer(runCall{query: query, params: params, write: true})
	if err != nil {
		return nil, err
	}
	var keys []string
	if len(records) > 0 {
		keys = records[0].Keys
	}
	return &neo4j.EagerResult{Keys: keys, Records: records}, nil
}

func (f *fakeRunner) Stream(ctx context.Context, query string, params map[string]any, write bool) (RecordStream, error) {
	records, err := f.answer(runCall{query: query, params: params, write: write, stream: true})
	if err != nil {
		return nil, err
	}
	return &fakeStream{runner: f, records: records, fetchErr: f.fetchErr}, nil
}

func (f *fakeRunner) Calls() []runCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runCall(nil), f.calls...)
}

func (f *fakeRunner) Closed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeStream struct {
	runner   *fakeRunner
	records  []*neo4j.Record
	pos      int
	cur      *neo4j.Record
	fetchErr error
	err      error
}

func (s *fakeStream) Next(ctx context.Context) bool {
	s.cur = nil
	if s.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		s.err = fmt.Errorf("stream interrupted: %w", err)
		return false
	}
	if s.pos >= len(s.records) {
		s.err = s.fetchErr
		return false
	}
	s.cur = s.records[s.pos]
	s.pos++
	return true
}

func (s *fakeStream) Record() *neo4j.Record { return s.cur }

func (s *fakeStream) Err() error { return s.err }

func (s *fakeStream) Close(context.Context) error {
	s.runner.mu.Lock()
	s.runner.closed++
	s.runner.mu.Unlock()
	return nil
}
