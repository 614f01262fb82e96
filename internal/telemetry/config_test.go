package telemetry

import "testing"

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.ServiceName != "pct" {
		t.Errorf("ServiceName = %q, want %q", config.ServiceName, "pct")
	}
	if config.Enabled {
		t.Error("Enabled should be false by default")
	}
	if config.Endpoint != "" {
		t.Error("Endpoint should be empty by default")
	}
	if config.SampleRate != 1.0 {
		t.Errorf("SampleRate = %v, want 1.0", config.SampleRate)
	}
}

func TestForEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		enabled  bool
	}{
		{"", false},
		{"localhost:4318", true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			config := ForEndpoint(tt.endpoint)
			if config.Enabled != tt.enabled {
				t.Errorf("Enabled = %v, want %v", config.Enabled, tt.enabled)
			}
			if config.Endpoint != tt.endpoint {
				t.Errorf("Endpoint = %q, want %q", config.Endpoint, tt.endpoint)
			}
		})
	}
}
