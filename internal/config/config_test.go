package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Requires JWT secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")

		cfg, err := Load()
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("APP_URL", "https://smartwin.example/")
		t.Setenv("GATEWAY_TIMEOUT", "")
		t.Setenv("KAFKA_BROKERS", "")
		t.Setenv("ACCESS_PRICE", "")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 30*time.Second, cfg.GatewayTimeout)
		assert.Equal(t, "https://smartwin.example", cfg.AppURL)
		assert.Equal(t, "https://smartwin.example/payment-callback", cfg.CallbackURL())
		assert.Equal(t, "https://smartwin.example/api/payment-webhook", cfg.WebhookURL())
		assert.Equal(t, float64(100), cfg.AccessPrice)
		assert.Nil(t, cfg.KafkaBrokers)
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("GATEWAY_TIMEOUT", "5s")
		t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
		t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "4242")
		t.Setenv("ACCESS_PRICE", "49.5")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 5*time.Second, cfg.GatewayTimeout)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
		assert.Equal(t, int64(4242), cfg.TelegramAdminChatID)
		assert.Equal(t, 49.5, cfg.AccessPrice)
	})

	t.Run("Rejects non-positive price", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("ACCESS_PRICE", "0")

		_, err := Load()
		assert.Error(t, err)
	})
}
