package client

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoughjr/go-request/pkg/param"
)

// SendSpanName is the name of the span created by OtelTracer for each send.
const SendSpanName = "go.request.client.send"

// OtelTracer creates a client span for each request send.
// The span covers all retry attempts and the body read.
func OtelTracer(tracer trace.Tracer) TraceFactory {
	return func() *Trace {
		var span trace.Span
		var retries int

		t := &Trace{}
		t.GotRequest = func(descriptor *param.Descriptor) {
			_, span = tracer.Start(
				context.Background(),
				SendSpanName,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", descriptor.Method),
					attribute.String("url.full", descriptor.URL().String()),
				),
			)
		}
		t.HTTPRequestRetry = func(attempt int, delay time.Duration) {
			retries = attempt
		}
		t.RequestProcessed = func(response *param.Response, err error) {
			if span == nil {
				return
			}
			if retries > 0 {
				span.SetAttributes(attribute.Int("http.request.resend_count", retries))
			}
			if response != nil {
				span.SetAttributes(attribute.Int("http.response.status_code", response.StatusCode))
			}
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}
		return t
	}
}
