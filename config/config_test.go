package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "test-token")
	t.Setenv("DIRECTOR_ID", "7592151419")
	t.Setenv("WEBAPP_URL", "https://example.com/app")
	t.Setenv("WELCOME_BONUS", "1000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Telegram.Token)
	assert.Equal(t, int64(7592151419), cfg.Telegram.DirectorID)
	assert.Equal(t, "https://example.com/app", cfg.Telegram.WebAppURL)

	// Env override and loyalty defaults.
	assert.Equal(t, int64(1000), cfg.Loyalty.WelcomeBonus)
	assert.Equal(t, int64(5), cfg.Loyalty.CashbackPercent)
	assert.Equal(t, int64(500), cfg.Loyalty.MinOrderForBonus)
	assert.Equal(t, int64(50), cfg.Loyalty.MaxBonusSharePercent)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.Validate())

	cfg.Telegram.Token = "token"
	assert.Error(t, cfg.Validate())

	cfg.Telegram.DirectorID = 1
	assert.NoError(t, cfg.Validate())
}
