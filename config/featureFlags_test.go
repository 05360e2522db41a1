package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestDefaultInvoiceMode(t *testing.T) {
	t.Setenv("INVOICE_MODE", "")
	assert.Equal(t, "batch", DefaultInvoiceMode())

	t.Setenv("INVOICE_MODE", " per_row ")
	assert.Equal(t, "per_row", DefaultInvoiceMode())
}

func TestPhoneDefaultRegion(t *testing.T) {
	t.Setenv("PHONE_DEFAULT_REGION", "")
	assert.Equal(t, "IN", PhoneDefaultRegion())

	t.Setenv("PHONE_DEFAULT_REGION", "ae")
	assert.Equal(t, "AE", PhoneDefaultRegion())
}

func TestBoolFlags(t *testing.T) {
	t.Setenv("SKIP_MIGRATIONS", "yes")
	assert.True(t, SkipMigrations())
	t.Setenv("SKIP_MIGRATIONS", "0")
	assert.False(t, SkipMigrations())

	t.Setenv("GO_ENV", "Production")
	assert.True(t, IsProduction())
	t.Setenv("GO_ENV", "development")
	assert.False(t, IsProduction())
}

func TestLevelFromEnv(t *testing.T) {
	assert.Equal(t, logrus.ErrorLevel, levelFromEnv(""))
	assert.Equal(t, logrus.ErrorLevel, levelFromEnv("chatty"))
	assert.Equal(t, logrus.DebugLevel, levelFromEnv("debug"))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1))
	assert.Equal(t, 16*time.Second, backoff(4))
	assert.Equal(t, 30*time.Second, backoff(5))
	assert.Equal(t, 30*time.Second, backoff(12))
}

func TestIntFromEnv(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "")
	assert.Equal(t, 50, intFromEnv("DB_MAX_OPEN_CONNS", 50))
	t.Setenv("DB_MAX_OPEN_CONNS", "abc")
	assert.Equal(t, 50, intFromEnv("DB_MAX_OPEN_CONNS", 50))
	t.Setenv("DB_MAX_OPEN_CONNS", " 12 ")
	assert.Equal(t, 12, intFromEnv("DB_MAX_OPEN_CONNS", 50))
}
