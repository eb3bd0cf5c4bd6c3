package neotraverse

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"reflect"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Results is the lazy, single-pass sequence of one execution. It is not safe
// for concurrent use.
//
//	for res.Next(ctx) {
//		p, err := res.Item()
//		...
//	}
//	if err := res.Err(); err != nil { ... }
type Results[T any] struct {
	client *Client
	req    *CompiledRequest
	stream RecordStream
	span   trace.Span
	logger *slog.Logger
	start  time.Time

	index  int
	item   T
	itemOK bool
	itemEr error
	failed int

	err  error
	done bool
}

// Next advances to the next element. It returns false once the server has no
// more elements, the stream failed, or ctx is done; calling it again keeps
// returning false.
func (r *Results[T]) Next(ctx context.Context) bool {
	if r.done {
		return false
	}
	var zero T
	r.item, r.itemOK, r.itemEr = zero, false, nil

	if err := ctx.Err(); err != nil {
		r.err = err
		r.finish(ctx)
		return false
	}
	if !r.stream.Next(ctx) {
		if err := r.stream.Err(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.err = ctxErr
			} else {
				r.err = &TransportError{Op: "fetch", Err: err}
			}
		}
		r.finish(ctx)
		return false
	}

	index := r.index
	r.index++
	record := r.stream.Record()
	if record == nil || len(record.Values) == 0 {
		r.fail(ctx, index, errors.New("record has no values"))
		return true
	}
	item, err := hydrate[T](r.client.model, r.req.Shape, record.Values[0])
	if err != nil {
		r.fail(ctx, index, err)
		return true
	}
	r.item, r.itemOK = item, true
	return true
}

func (r *Results[T]) fail(ctx context.Context, index int, err error) {
	var zero T
	r.failed++
	r.itemEr = &HydrationError{Index: index, Target: reflect.TypeFor[T](), Err: err}
	r.logger.Warn("result element could not be hydrated", "index", index, "error", err)
	recordHydrationFailure(ctx, r.req.Shape.Kind)
	r.item = zero
}

// Item returns the current element, or a *HydrationError if that element
// could not be converted. A failed element does not end the sequence.
func (r *Results[T]) Item() (T, error) {
	if r.itemEr != nil {
		var zero T
		return zero, r.itemEr
	}
	if !r.itemOK {
		var zero T
		return zero, errors.New("no current element; call Next first")
	}
	return r.item, nil
}

// Err returns the error that ended the sequence: a *TransportError, or the
// context error after cancellation.
func (r *Results[T]) Err() error { return r.err }

// Close stops reading and releases the server session. Mutations the server
// already applied stay applied.
func (r *Results[T]) Close(ctx context.Context) error {
	if r.done {
		return nil
	}
	return r.finish(ctx)
}

// All iterates the remaining elements. Each pair carries either the element
// or its hydration error; a transport error is yielded last.
func (r *Results[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for r.Next(ctx) {
			if !yield(r.Item()) {
				r.Close(ctx)
				return
			}
		}
		if err := r.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

func (r *Results[T]) finish(ctx context.Context) error {
	r.done = true
	closeErr := r.stream.Close(ctx)
	if closeErr != nil {
		closeErr = &TransportError{Op: "close", Err: closeErr}
		if r.err == nil {
			r.err = closeErr
		}
	}

	success := r.err == nil
	r.span.SetAttributes(
		attribute.Int("neotraverse.results", r.index),
		attribute.Int("neotraverse.hydration_failures", r.failed),
	)
	if !success {
		r.span.RecordError(r.err)
		r.span.SetStatus(codes.Error, r.err.Error())
	}
	r.span.End()
	recordExecuteMetrics(context.WithoutCancel(ctx), time.Since(r.start), r.index, r.req.Mutating, success)

	if success {
		r.logger.Debug("traversal finished", "results", r.index, "hydration_failures", r.failed,
			"duration", time.Since(r.start))
	} else {
		r.logger.Error("traversal aborted", "results", r.index, "error", r.err)
	}
	return closeErr
}
