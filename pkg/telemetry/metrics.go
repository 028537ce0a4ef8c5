// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aldasoro/troupe/pkg/errors"
)

// ChatMetrics tracks chat round trips and function registrations for
// production monitoring.
type ChatMetrics struct {
	// requestCounter tracks chat requests by agent type, operation, and outcome
	requestCounter metric.Int64Counter

	// latencyHistogram tracks chat round-trip duration in seconds
	latencyHistogram metric.Float64Histogram

	// registrationCounter tracks function registrations
	registrationCounter metric.Int64Counter
}

// NewChatMetrics creates a chat metrics tracker with OTEL meters.
func NewChatMetrics(ctx context.Context) (*ChatMetrics, error) {
	meter := otel.Meter("troupe/chat")

	requestCounter, err := meter.Int64Counter(
		"troupe.chat.requests",
		metric.WithDescription("Chat requests by agent type, operation, and outcome"),
	)
	if err != nil {
		return nil, err
	}

	latencyHistogram, err := meter.Float64Histogram(
		"troupe.chat.duration",
		metric.WithDescription("Chat round-trip duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	registrationCounter, err := meter.Int64Counter(
		"troupe.functions.registered",
		metric.WithDescription("Function registrations by name"),
	)
	if err != nil {
		return nil, err
	}

	return &ChatMetrics{
		requestCounter:      requestCounter,
		latencyHistogram:    latencyHistogram,
		registrationCounter: registrationCounter,
	}, nil
}

// RecordChat records one chat round trip.
func (m *ChatMetrics) RecordChat(ctx context.Context, agentType, operation string, seconds float64, err error) {
	if m == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if te := errors.AsTroupeError(err); te != nil {
			outcome = string(te.Code)
		}
	}

	attrs := metric.WithAttributes(
		attribute.String("agent.type", agentType),
		attribute.String("agent.operation", operation),
		attribute.String("outcome", outcome),
	)
	m.requestCounter.Add(ctx, 1, attrs)
	m.latencyHistogram.Record(ctx, seconds, attrs)
}

// RecordRegistration records one function registration.
func (m *ChatMetrics) RecordRegistration(ctx context.Context, name string) {
	if m == nil {
		return
	}
	m.registrationCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("function.name", name)),
	)
}
