package observability

import (
	"context"

	"github.com/felixgeelhaar/agentsim/application"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingMiddleware creates middleware that traces agent turns.
func TracingMiddleware(tracer trace.Tracer) application.TurnMiddleware {
	return func(next application.TurnHandler) application.TurnHandler {
		return func(ctx context.Context, turn application.Turn) (application.TurnResult, error) {
			ctx, span := tracer.Start(ctx, "agent.turn",
				trace.WithAttributes(
					attribute.String("agent.id", turn.Agent.ID()),
					attribute.String("agent.state", string(turn.Agent.CurrentState())),
					attribute.Int("simulation.round", turn.Round),
				),
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			res, err := next(ctx, turn)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.SetAttributes(attribute.String("turn.status", "error"))
			case res.Skipped != nil:
				span.AddEvent("turn.skipped", trace.WithAttributes(
					attribute.String("turn.stage", string(res.Skipped.Stage)),
					attribute.String("turn.error", res.Skipped.Err.Error()),
				))
				span.SetAttributes(attribute.String("turn.status", "skipped"))
			default:
				out := res.Outcome
				span.SetAttributes(
					attribute.String("turn.status", "ok"),
					attribute.String("turn.trigger", out.Decision.Trigger),
					attribute.String("agent.next_state", string(out.To)),
					attribute.Bool("turn.transitioned", out.Transitioned),
					attribute.Bool("oracle.fallback", out.Decision.Fallback()),
				)
				span.SetStatus(codes.Ok, "")
			}

			return res, err
		}
	}
}
