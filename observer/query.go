package observer

import (
	"context"
	"strings"
	"time"

	tandem "github.com/tandem-ai/tandem"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StartQuery opens a span covering one pass through the query pipeline:
// retrieval, routing, and generation. LLM and embedding calls made under the
// returned context nest as child spans. The finish function records the
// routing outcome and end-to-end duration; call it exactly once.
func (inst *Instruments) StartQuery(ctx context.Context, query string, forced bool) (context.Context, func(decision tandem.RoutingDecision, err error)) {
	ctx, span := inst.Tracer.Start(ctx, "query.pipeline", trace.WithAttributes(
		AttrQueryWords.Int(len(strings.Fields(query))),
		AttrRouteForced.Bool(forced),
	))
	start := time.Now()

	finish := func(decision tandem.RoutingDecision, err error) {
		defer span.End()

		durationMs := float64(time.Since(start).Milliseconds())
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		span.SetAttributes(
			AttrRouteBackend.String(string(decision.RouteTo)),
			AttrRouteReason.String(decision.Reason),
			AttrRouteHasContext.Bool(decision.HasContext),
		)

		inst.QueryRequests.Add(ctx, 1, metric.WithAttributes(
			AttrRouteBackend.String(string(decision.RouteTo)),
			AttrRouteForced.Bool(forced),
			attribute.String("status", status),
		))
		inst.QueryDuration.Record(ctx, durationMs, metric.WithAttributes(
			AttrRouteBackend.String(string(decision.RouteTo)),
		))
	}

	return ctx, finish
}
