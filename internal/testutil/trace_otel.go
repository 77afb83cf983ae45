// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package testutil holds helpers shared by tests in this module.
package testutil

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// RefreshSpans captures the spans of token refreshes. Pass Provider() to a
// token manager or to trace.Tracer; nothing is installed globally, so tests
// using it may run in parallel.
type RefreshSpans struct {
	exporter *tracetest.InMemoryExporter
	tp       *sdktrace.TracerProvider
}

// NewRefreshSpans returns a recorder that keeps every ended span. It is shut
// down when t finishes.
func NewRefreshSpans(t testing.TB) *RefreshSpans {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.Cleanup(func() { tp.Shutdown(context.Background()) })
	return &RefreshSpans{exporter: exporter, tp: tp}
}

// Provider returns the provider whose spans are recorded.
func (r *RefreshSpans) Provider() trace.TracerProvider {
	return r.tp
}

// Ended returns the spans ended so far, oldest first.
func (r *RefreshSpans) Ended() tracetest.SpanStubs {
	return r.exporter.GetSpans()
}
