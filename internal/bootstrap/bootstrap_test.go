package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/tutor-admin-api/pkg/config"
)

func memoryConfig(seed string) *config.Config {
	return &config.Config{
		Store: config.StoreConfig{Driver: config.StoreDriverMemory, SeedFile: seed, Timeout: time.Second},
		Admin: config.AdminConfig{DefaultPageSize: 20, MaxPageSize: 100, BulkMaxIDs: 100, VersionTokenSecret: "test"},
		JWT:   config.JWTConfig{Secret: "test"},
		Audit: config.AuditConfig{Enabled: true},
	}
}

func TestNewWithMemoryStore(t *testing.T) {
	services, err := New(memoryConfig(filepath.Join("..", "repository", "testdata", "seed.json")), zap.NewNop())
	require.NoError(t, err)
	defer services.Close()

	assert.Nil(t, services.RateLimit)
	require.NoError(t, services.Records.Ping(context.Background()))

	detail, err := services.Records.Get(context.Background(), "accounts", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, detail.Version)
}

func TestNewFailsOnMissingSeedFile(t *testing.T) {
	_, err := New(memoryConfig("does-not-exist.json"), zap.NewNop())
	assert.Error(t, err)
}
