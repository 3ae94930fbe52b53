package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/chris-regnier/sharplint/internal/config"
)

// shutdownCtx bounds shutdown calls so a missing collector does not stall
// the test on export retries.
func shutdownCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 1*time.Second)
}

func TestInit_DisabledReturnsNoop(t *testing.T) {
	t.Setenv(EnvEnabled, "")

	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown should not error, got: %v", err)
	}
}

func TestEnabled_EnvOverride(t *testing.T) {
	tests := []struct {
		env  string
		cfg  bool
		want bool
	}{
		{"", true, true},
		{"", false, false},
		{"false", true, false},
		{"0", true, false},
		{"TRUE", false, true},
		{"True", false, true},
		{"1", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(EnvEnabled, tt.env)
			if got := Enabled(config.TelemetryConfig{Enabled: tt.cfg}); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInit_EnvVarOverrideEnables(t *testing.T) {
	// exporters connect lazily, so Init succeeds without a collector
	cfg := config.TelemetryConfig{
		Endpoint:    "localhost:4317",
		Protocol:    "grpc",
		Insecure:    true,
		ServiceName: "sharplint-test",
		SampleRate:  1.0,
	}
	t.Setenv(EnvEnabled, "true")

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if otel.GetTracerProvider() == nil {
		t.Fatal("expected non-nil tracer provider")
	}

	ctx, cancel := shutdownCtx()
	defer cancel()
	_ = shutdown(ctx)
}

func TestInit_HTTPProtocolWithHeaders(t *testing.T) {
	t.Setenv(EnvEnabled, "")
	cfg := config.TelemetryConfig{
		Enabled:    true,
		Endpoint:   "localhost:4318",
		Protocol:   "http",
		Insecure:   true,
		SampleRate: 0.5,
		Headers:    map[string]string{"Authorization": "Bearer test-token"},
	}

	shutdown, err := Init(context.Background(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	ctx, cancel := shutdownCtx()
	defer cancel()
	_ = shutdown(ctx)
}
