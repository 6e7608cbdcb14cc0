package telemetry

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/retorded/chordring/internal/ring"
)

const tracerName = "chordring/lookup"

// HopTracer implements ring.Tracer, emitting one span per
// find_successor routing decision.
type HopTracer struct {
	tracer trace.Tracer
}

// NewHopTracer returns a ring.Tracer backed by the globally configured
// OpenTelemetry tracer provider (set by Init).
func NewHopTracer() *HopTracer {
	return &HopTracer{tracer: otel.Tracer(tracerName)}
}

// Hop starts a span for one find_successor decision on nodeID, tagged
// with the key being resolved and, when decision is non-empty, how
// this hop was routed. ring.Node.FindSuccessor passes an empty
// decision, so its spans carry no chord.decision attribute. The
// returned context carries the span so a subsequent outbound RPC can
// propagate it via InjectHTTP.
func (h *HopTracer) Hop(ctx context.Context, keyID, nodeID int, decision string) (context.Context, func()) {
	ctx, span := h.tracer.Start(ctx, "find_successor",
		trace.WithAttributes(
			attribute.Int("chord.key_id", keyID),
			attribute.Int("chord.node_id", nodeID),
		),
	)
	if decision != "" {
		span.SetAttributes(attribute.String("chord.decision", decision))
	}
	return ctx, func() { span.End() }
}

// InjectHTTP writes the current trace context from ctx into req's
// headers, for use before issuing an outbound RPC.
func InjectHTTP(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// ExtractHTTP reads trace context out of an inbound request's
// headers, for use before handling it.
func ExtractHTTP(ctx context.Context, req *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(req.Header))
}

var _ ring.Tracer = (*HopTracer)(nil)
