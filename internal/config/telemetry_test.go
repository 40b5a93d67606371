package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTelemetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TelemetryConfig)
		wantErr string
	}{
		{"disabled skips checks", func(c *TelemetryConfig) { c.Endpoint = "" }, ""},
		{"enabled local defaults", func(c *TelemetryConfig) { c.Enabled = true }, ""},
		{"missing endpoint", func(c *TelemetryConfig) { c.Enabled = true; c.Endpoint = "" }, "endpoint is required"},
		{"missing service name", func(c *TelemetryConfig) { c.Enabled = true; c.ServiceName = "" }, "service_name is required"},
		{"unknown protocol", func(c *TelemetryConfig) { c.Enabled = true; c.Protocol = "udp" }, "protocol must be"},
		{"insecure remote", func(c *TelemetryConfig) { c.Enabled = true; c.Endpoint = "otel.example.com:4317" }, "insecure connections"},
		{"secure remote", func(c *TelemetryConfig) {
			c.Enabled = true
			c.Endpoint = "otel.example.com:4317"
			c.Insecure = false
		}, ""},
		{"bad sample rate", func(c *TelemetryConfig) { c.Enabled = true; c.SampleRate = 1.5 }, "sample rate"},
		{"zero export interval", func(c *TelemetryConfig) { c.Enabled = true; c.ExportInterval = 0 }, "export_interval"},
		{"zero export interval without metrics", func(c *TelemetryConfig) {
			c.Enabled = true
			c.MetricsEnabled = false
			c.ExportInterval = 0
		}, ""},
		{"zero shutdown timeout", func(c *TelemetryConfig) { c.Enabled = true; c.ShutdownTimeout = 0 }, "shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultTelemetryConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"127.1.2.3", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"http://localhost:4318", true},
		{"otel.example.com:4317", false},
		{"10.0.0.5:4317", false},
		{"localhost.example.com:4317", false},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, isLocalEndpoint(tt.endpoint))
		})
	}
}
