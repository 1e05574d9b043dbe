package fn

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "holocron/pkg/fn"

// Stage is one step of a pipeline.
type Stage[In, Out any] func(context.Context, In) Result[Out]

// Then runs first and feeds its value to second, stopping at the first error.
func Then[A, B, C any](first Stage[A, B], second Stage[B, C]) Stage[A, C] {
	return func(ctx context.Context, a A) Result[C] {
		r := first(ctx, a)
		if r.IsErr() {
			return Err[C](r.err)
		}
		return second(ctx, r.val)
	}
}

// Lift adapts a plain (value, error) function into a Stage.
func Lift[In, Out any](f func(context.Context, In) (Out, error)) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		return FromPair(f(ctx, in))
	}
}

// TracedStage runs stage inside a span named name and records its error.
func TracedStage[In, Out any](name string, stage Stage[In, Out]) Stage[In, Out] {
	return func(ctx context.Context, in In) Result[Out] {
		ctx, span := otel.Tracer(tracerName).Start(ctx, name)
		defer span.End()
		result := stage(ctx, in)
		if result.IsErr() {
			span.RecordError(result.err)
			span.SetStatus(codes.Error, result.err.Error())
		}
		return result
	}
}

// LoggedStage logs the duration and outcome of stage.
func LoggedStage[In, Out any](name string, log *slog.Logger, stage Stage[In, Out]) Stage[In, Out] {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, in In) Result[Out] {
		start := time.Now()
		result := stage(ctx, in)
		if result.IsErr() {
			log.Warn("stage failed", "stage", name, "duration", time.Since(start), "err", result.err)
		} else {
			log.Debug("stage done", "stage", name, "duration", time.Since(start))
		}
		return result
	}
}
