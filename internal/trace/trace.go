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

// Package trace wraps OpenTelemetry span handling for token operations.
package trace

import (
	"context"
	"errors"

	"firebase.google.com/admin/errorutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "firebase.google.com/admin"

// Tracer returns the tracer of this module from tp, or from the global
// provider if tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// StartSpan adds a span to the trace with the given name and attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) context.Context {
	ctx, _ = tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx
}

// EndSpan ends the span in ctx, recording err if it is not nil.
func EndSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, statusDescription(err))
	}
	span.End()
}

// statusDescription prefers the developer facing message of an
// [errorutils.Error] over the full error string.
func statusDescription(err error) string {
	var fe *errorutils.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
