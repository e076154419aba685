package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tekeve/WITv3.0-sub000/internal/model"
)

// ResultSink receives tally reports. Delivery is fire-and-forget: the
// coordinator never retries a failed post, it only stops emitting.
type ResultSink interface {
	Post(ctx context.Context, report model.Report) error
}

// SinkFactory builds a sink from an election's sink reference. The
// coordinator calls it when an election carries its own sink_ref, routing
// that election's reports somewhere other than the process-wide default.
type SinkFactory func(ref string) ResultSink

// WebhookSink posts each report as JSON to a configured endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *WebhookSink) Post(ctx context.Context, report model.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post report: sink returned %d", resp.StatusCode)
	}
	return nil
}

// InstrumentedSink wraps another sink and counts delivered reports.
type InstrumentedSink struct {
	next   ResultSink
	posted prometheus.Counter
}

func NewInstrumentedSink(next ResultSink, posted prometheus.Counter) *InstrumentedSink {
	return &InstrumentedSink{next: next, posted: posted}
}

func (s *InstrumentedSink) Post(ctx context.Context, report model.Report) error {
	if err := s.next.Post(ctx, report); err != nil {
		return err
	}
	if s.posted != nil {
		s.posted.Inc()
	}
	return nil
}

// LogSink writes reports to the structured log. Used when no webhook URL is
// configured, so tally output is never silently dropped.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Post(_ context.Context, report model.Report) error {
	evt := s.logger.Info()
	switch report.Severity {
	case model.SeverityWarning:
		evt = s.logger.Warn()
	case model.SeverityError:
		evt = s.logger.Error()
	}

	evt.
		Str("correlation_id", report.CorrelationID).
		Str("title", report.Title).
		Str("severity", report.Severity)
	for k, v := range report.Fields {
		evt.Str(k, v)
	}
	evt.Msg(report.Body)
	return nil
}
