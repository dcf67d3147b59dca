package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 365, cfg.HorizonDays)
	assert.Equal(t, uint64(3), cfg.ConflictMaxRetries)
	initial, max := cfg.RetryBounds()
	assert.Equal(t, 20*time.Millisecond, initial)
	assert.Equal(t, 200*time.Millisecond, max)
}

func TestLoadMongoRequiresURI(t *testing.T) {
	t.Setenv("STORAGE", "Mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGO_URI")

	t.Setenv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMongo, cfg.Storage)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("STORAGE", "postgres")
	_, err := Load()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv("STORAGE", "memory")
	t.Setenv("LOCK_TTL", "soon")
	_, err = Load()
	assert.Error(t, err)
}
