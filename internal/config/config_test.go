package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("REQUEST_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 100, cfg.OutboxBatch)
	assert.Equal(t, int32(16), cfg.PostgresMaxConns)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("OUTBOX_BATCH", "25")
	t.Setenv("POSTGRES_MAX_CONNS", "40")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 25, cfg.OutboxBatch)
	assert.Equal(t, int32(40), cfg.PostgresMaxConns)
}

func TestLoad_MalformedFallsBack(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("PROJECTOR_WORKERS", "-3")
	t.Setenv("POSTGRES_MAX_CONNS", "99999999999")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.ProjectorWorkers)
	assert.Equal(t, int32(16), cfg.PostgresMaxConns)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(Config{LogLevel: "nonsense", LogFormat: "console", ServiceName: "test"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}
