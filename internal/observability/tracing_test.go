package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOTLPTarget(t *testing.T) {
	tests := []struct {
		endpoint string
		target   string
		insecure bool
	}{
		{endpoint: "collector:4317", target: "collector:4317", insecure: true},
		{endpoint: "http://collector:4317", target: "collector:4317", insecure: true},
		{endpoint: "https://otel.example.com:443", target: "otel.example.com:443", insecure: false},
		{endpoint: "http://localhost:4317/", target: "localhost:4317", insecure: true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			target, insecure := otlpTarget(tt.endpoint)
			assert.Equal(t, tt.target, target)
			assert.Equal(t, tt.insecure, insecure)
		})
	}
}
