package neotraverse

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// Client executes traversals against a DBRunner. It holds no per-call state,
// so one Client can serve any number of concurrent executions; the runner's
// connection pool is the only shared resource.
type Client struct {
	runner DBRunner
	model  *Model
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client. The model is frozen: registering further types
// fails with ErrModelFrozen.
func NewClient(runner DBRunner, m *Model, opts ...ClientOption) *Client {
	m.freeze()
	c := &Client{runner: runner, model: m, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model the client hydrates results with.
func (c *Client) Model() *Model { return c.model }

// Compile compiles t against the client's model.
func (c *Client) Compile(t Traversal) (*CompiledRequest, error) {
	req, err := Compile(c.model, t)
	if err != nil {
		c.logger.Debug("traversal rejected", "traversal", t, "error", err)
		return nil, err
	}
	return req, nil
}

// Execute compiles t and sends it to the server. Compilation errors are
// returned without any network I/O. The returned Results must be drained or
// closed. Mutating traversals are never retried.
func Execute[T any](ctx context.Context, c *Client, t Traversal) (*Results[T], error) {
	req, err := c.Compile(t)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := c.logger.With("request_id", id)
	ctx, span := startExecuteSpan(ctx, id, req)
	start := time.Now()

	logger.Debug("executing traversal", "query", req.Query, "shape", req.Shape.String(), "mutating", req.Mutating)
	stream, err := c.runner.Stream(ctx, req.Query, req.Params, req.Mutating)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = &TransportError{Op: "run", Err: err}
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		recordExecuteMetrics(ctx, time.Since(start), 0, req.Mutating, false)
		logger.Error("traversal failed", "error", err)
		return nil, err
	}

	return &Results[T]{
		client: c,
		req:    req,
		stream: stream,
		span:   span,
		logger: logger,
		start:  start,
	}, nil
}

// Exec runs a traversal for its side effects and discards its results.
func (c *Client) Exec(ctx context.Context, t Traversal) error {
	res, err := Execute[any](ctx, c, t)
	if err != nil {
		return err
	}
	defer res.Close(ctx)
	for res.Next(ctx) {
	}
	return res.Err()
}

// First returns the first result of t, or ErrNotFound.
func First[T any](ctx context.Context, c *Client, t Traversal) (T, error) {
	var zero T
	res, err := Execute[T](ctx, c, t)
	if err != nil {
		return zero, err
	}
	defer res.Close(ctx)

	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return zero, err
		}
		return zero, ErrNotFound
	}
	return res.Item()
}

// ToSlice executes t and reads all results, failing on the first element that
// cannot be hydrated.
func ToSlice[T any](ctx context.Context, c *Client, t Traversal) ([]T, error) {
	res, err := Execute[T](ctx, c, t)
	if err != nil {
		return nil, err
	}
	defer res.Close(ctx)

	var out []T
	for res.Next(ctx) {
		item, err := res.Item()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, res.Err()
}

// Collect executes t and reads all results, skipping elements that cannot be
// hydrated. Their errors are joined into the returned error alongside any
// transport error; the slice holds every element that succeeded.
func Collect[T any](ctx context.Context, c *Client, t Traversal) ([]T, error) {
	res, err := Execute[T](ctx, c, t)
	if err != nil {
		return nil, err
	}
	defer res.Close(ctx)

	var out []T
	var errs []error
	for res.Next(ctx) {
		item, err := res.Item()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, item)
	}
	if err := res.Err(); err != nil {
		errs = append(errs, err)
	}
	return out, errors.Join(errs...)
}
