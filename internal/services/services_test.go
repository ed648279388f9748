package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"codevox/internal/config"
)

func containerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestNewServicesResolvesBotTokenFallback(t *testing.T) {
	t.Setenv("CODEVOX_BOT_TOKEN", "tok-from-env")

	cfg := &config.Config{SessionsDir: t.TempDir()}
	svc := NewServices(containerDB(t), cfg, zap.NewNop())

	require.NotNil(t, svc.Keyring)
	assert.Equal(t, "tok-from-env", cfg.BotToken)
}

func TestNewServicesKeepsExplicitBotToken(t *testing.T) {
	t.Setenv("CODEVOX_BOT_TOKEN", "tok-from-env")

	cfg := &config.Config{BotToken: "explicit", SessionsDir: t.TempDir()}
	NewServices(containerDB(t), cfg, zap.NewNop())

	assert.Equal(t, "explicit", cfg.BotToken)
}
