package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestCtxAddsRequestAndCorrelationIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	ctx := ContextWithRequestID(context.Background(), "rid-1")
	ctx = ContextWithCorrelationID(ctx, "cid-1")
	Ctx(ctx).Info().Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"rid-1"`) || !strings.Contains(out, `"correlation_id":"cid-1"`) {
		t.Fatalf("missing ids in %s", out)
	}
}

func TestSlogAdapterForwardsAttrs(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	NewSlogLogger().WithGroup("sup").Info("service restarted", "name", "http-server")

	out := buf.String()
	if !strings.Contains(out, `"sup.name":"http-server"`) {
		t.Fatalf("group attr not flattened: %s", out)
	}
	if !strings.Contains(out, "service restarted") {
		t.Fatalf("message lost: %s", out)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense").String(); got != "info" {
		t.Fatalf("level=%s", got)
	}
	if got := parseLevel("WARNING").String(); got != "warn" {
		t.Fatalf("level=%s", got)
	}
}
