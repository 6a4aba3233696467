package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channelbox/internal/ws"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, 1_048_576, cfg.HistorySize)
	assert.Equal(t, 24*time.Hour, cfg.ConnTTL)
	assert.Equal(t, "json", cfg.PayloadType)
	assert.Equal(t, "@every 1m", cfg.SweepSchedule)
	assert.Empty(t, cfg.AMQPURL)
	assert.False(t, cfg.DebugRoutes)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HISTORY_SIZE", "2048")
	t.Setenv("CONN_TTL", "90s")
	t.Setenv("PAYLOAD_TYPE", "text")
	t.Setenv("SWEEP_SCHEDULE", "*/5 * * * *")
	t.Setenv("WS_MESSAGE_RATE", "0")

	cfg, err := Load()
	require.NoError(t, err)

	socket := cfg.Socket()
	assert.Equal(t, 2048, cfg.HistorySize)
	assert.Equal(t, 90*time.Second, socket.Expires)
	assert.Equal(t, ws.PayloadText, socket.PayloadType)
	assert.Zero(t, socket.MessageRate)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  error
	}{
		{name: "zero history", key: "HISTORY_SIZE", value: "0", want: ErrInvalidHistorySize},
		{name: "negative history", key: "HISTORY_SIZE", value: "-5", want: ErrInvalidHistorySize},
		{name: "unknown payload type", key: "PAYLOAD_TYPE", value: "xml", want: ErrInvalidPayloadType},
		{name: "unset payload type", key: "PAYLOAD_TYPE", value: "unset", want: ErrInvalidPayloadType},
		{name: "bad schedule", key: "SWEEP_SCHEDULE", value: "whenever", want: ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadRejectsUnparsableDuration(t *testing.T) {
	t.Setenv("CONN_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
}
