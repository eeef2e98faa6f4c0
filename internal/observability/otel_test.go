package observability

import (
	"context"
	"testing"

	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" authorization = Bearer x ,broken,=v,k=, x-team=media")
	if len(got) != 2 {
		t.Fatalf("header count: want=2 got=%d (%v)", len(got), got)
	}
	if got["authorization"] != "Bearer x" || got["x-team"] != "media" {
		t.Fatalf("headers: got=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("empty headers: want nil")
	}
}

func TestParseRatio(t *testing.T) {
	cases := map[string]float64{
		"":     defaultSampleRatio,
		"nope": defaultSampleRatio,
		"0.5":  0.5,
		"-1":   0,
		"3":    1,
	}
	for raw, want := range cases {
		if got := parseRatio(raw); got != want {
			t.Fatalf("parseRatio(%q): want=%v got=%v", raw, want, got)
		}
	}
}

func TestOtelConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "1")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.25")

	cfg := OtelConfigFromEnv()
	if !cfg.Enabled || !cfg.Insecure {
		t.Fatalf("flags: want enabled+insecure got=%+v", cfg)
	}
	if cfg.Endpoint != "collector:4318" || cfg.SampleRatio != 0.25 || cfg.ServiceName != TracerName {
		t.Fatalf("config: got=%+v", cfg)
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.NewNop(), OtelConfig{})
	if shutdown == nil {
		t.Fatalf("shutdown: want non-nil func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
