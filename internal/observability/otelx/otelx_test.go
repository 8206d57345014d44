package otelx

import (
	"context"
	"errors"
	"testing"

	"github.com/bakkerme/manifest-watch/internal/config"
)

func TestInitDisabledReturnsNilShutdown(t *testing.T) {
	shutdown, err := Init(context.Background(), nil, config.OTelEnvConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if shutdown != nil {
		t.Fatalf("expected nil shutdown when disabled")
	}
}

func TestProtocolAndEndpointDefaults(t *testing.T) {
	tests := []struct {
		cfg      config.OTelEnvConfig
		protocol string
		endpoint string
	}{
		{cfg: config.OTelEnvConfig{}, protocol: "grpc", endpoint: "localhost:4317"},
		{cfg: config.OTelEnvConfig{Protocol: "http"}, protocol: "http/protobuf", endpoint: "localhost:4318"},
		{cfg: config.OTelEnvConfig{Protocol: "grpc", Endpoint: "collector:4317"}, protocol: "grpc", endpoint: "collector:4317"},
	}
	for _, tt := range tests {
		if got := protocolOrDefault(tt.cfg); got != tt.protocol {
			t.Fatalf("protocol = %q, want %q", got, tt.protocol)
		}
		if got := endpointOrDefault(tt.cfg); got != tt.endpoint {
			t.Fatalf("endpoint = %q, want %q", got, tt.endpoint)
		}
	}
}

func TestUnsupportedProtocol(t *testing.T) {
	if _, err := newTraceExporter(context.Background(), config.OTelEnvConfig{Protocol: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unsupported protocol")
	}
}

func TestStartEndWithoutProvider(t *testing.T) {
	ctx, span := Start(context.Background(), "test")
	if ctx == nil {
		t.Fatalf("expected context")
	}
	End(span, errors.New("boom"))
}
