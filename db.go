// Package neotraverse builds typed graph traversals, compiles them into Cypher
// and runs them against Neo4j through the official Go driver.
package neotraverse

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DBRunner defines the interface for a generic query executor.
// It abstracts the execution of a Cypher query, allowing for different implementations
// or mocking in tests.
type DBRunner interface {
	// Run executes a given Cypher query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
	// Stream executes a query and returns its records lazily. write selects
	// the access mode of the underlying session.
	Stream(ctx context.Context, query string, params map[string]any, write bool) (RecordStream, error)
}

// RecordStream is a single-pass cursor over the records of one query.
type RecordStream interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
	// Close releases the session backing the stream.
	Close(ctx context.Context) error
}

//---

// Neo4jExecutor is a concrete implementation of the DBRunner interface that uses the
// official Neo4j Go driver. It manages the driver instance and the target database name.
// The driver keeps a connection pool shared by all concurrent calls.
type Neo4jExecutor struct {
	Driver    neo4j.DriverWithContext
	DBName    string
	FetchSize int
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// It establishes a connection driver with the credentials from cfg.
//
// Returns:
//
//	A pointer to the newly created Neo4jExecutor or an error if the driver creation fails.
func NewNeo4jExecutor(cfg Config) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(conf *neo4j.Config) {
			if cfg.MaxConnectionPoolSize > 0 {
				conf.MaxConnectionPoolSize = cfg.MaxConnectionPoolSize
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: cfg.Database, FetchSize: cfg.FetchSize}, nil
}

// Verify checks the connectivity to the Neo4j database.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close shuts the driver and its connection pool down.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes a Cypher query using the modern ExecuteQuery function, which handles
// session and transaction management automatically for robust and simple execution.
// This function is suitable for both read and write operations.
//
// Returns:
//
//	An EagerResult containing all buffered records from the query, or an error if
//	the execution fails.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer, // Buffers all results in memory before returning.
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)

	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	return result, nil
}

// Stream opens a session and runs the query in an auto-commit transaction.
// Records are pulled from the server in batches of FetchSize as the caller
// advances the stream.
func (e *Neo4jExecutor) Stream(ctx context.Context, query string, params map[string]any, write bool) (RecordStream, error) {
	mode := neo4j.AccessModeRead
	if write {
		mode = neo4j.AccessModeWrite
	}
	session := e.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: e.DBName,
		FetchSize:    e.FetchSize,
	})
	result, err := session.Run(ctx, query, params)
	if err != nil {
		_ = session.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}
	return &sessionStream{session: session, result: result}, nil
}

type sessionStream struct {
	session neo4j.SessionWithContext
	result  neo4j.ResultWithContext
}

func (s *sessionStream) Next(ctx context.Context) bool { return s.result.Next(ctx) }

func (s *sessionStream) Record() *neo4j.Record { return s.result.Record() }

func (s *sessionStream) Err() error { return s.result.Err() }

func (s *sessionStream) Close(ctx context.Context) error {
	// The session must be returned to the pool even when ctx is cancelled.
	return s.session.Close(context.WithoutCancel(ctx))
}
