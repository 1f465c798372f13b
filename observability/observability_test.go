package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/voyagent/voyagent/voyagent"
)

type staticAgent struct {
	reply string
	err   error
}

func (a *staticAgent) Name() string           { return "static" }
func (a *staticAgent) Capabilities() []string { return []string{"conversational"} }
func (a *staticAgent) Process(ctx context.Context, msg *voyagent.Message) (*voyagent.Message, error) {
	if a.err != nil {
		return nil, a.err
	}
	return voyagent.NewMessage("agent", a.reply), nil
}

func TestTraceContextHandlerAddsTraceIDs(t *testing.T) {
	if _, err := InitTracing("voyagent-test", false); err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(NewTraceContextHandler(slog.NewJSONHandler(&buf, nil)))

	tracer := GetTracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")
	logger.InfoContext(ctx, "inside span")
	span.End()

	out := buf.String()
	if !strings.Contains(out, "trace_id") || !strings.Contains(out, "span_id") {
		t.Errorf("log line missing trace context: %s", out)
	}

	buf.Reset()
	logger.Info("outside span")
	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log line outside span should not carry trace context: %s", buf.String())
	}
}

func TestTracingMiddleware(t *testing.T) {
	if _, err := InitTracing("voyagent-test", false); err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}

	wrapped := NewTracingMiddleware(&staticAgent{reply: "hello"}, "")
	resp, err := wrapped.Process(context.Background(), voyagent.NewMessage("user", "hi"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Content != "hello" {
		t.Errorf("response = %q", resp.Content)
	}

	failing := NewTracingMiddleware(&staticAgent{err: errors.New("boom")}, "agent.fail")
	if _, err := failing.Process(context.Background(), voyagent.NewMessage("user", "hi")); err == nil {
		t.Error("error should propagate through tracing middleware")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	if _, err := InitMetrics("voyagent-test"); err != nil {
		t.Fatalf("InitMetrics() error = %v", err)
	}
	t.Cleanup(func() { ShutdownMetrics(context.Background()) })

	wrapped, err := NewMetricsMiddleware(&staticAgent{reply: "ok"})
	if err != nil {
		t.Fatalf("NewMetricsMiddleware() error = %v", err)
	}

	resp, err := wrapped.Process(context.Background(), voyagent.NewMessage("user", "hi"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("response = %q", resp.Content)
	}

	failing, err := NewMetricsMiddleware(&staticAgent{err: errors.New("boom")})
	if err != nil {
		t.Fatalf("NewMetricsMiddleware() error = %v", err)
	}
	if _, err := failing.Process(context.Background(), voyagent.NewMessage("user", "hi")); err == nil {
		t.Error("error should propagate through metrics middleware")
	}
}
