package workflow

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gdb, mock
}

func useMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	gdb, mock := newMockDB(t)
	prev := config.GetDB()
	config.SetDB(gdb)
	t.Cleanup(func() { config.SetDB(prev) })
	return mock
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	prev := config.GetRedisDB()
	config.SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { config.SetRedisClient(prev) })
	return mr
}

func bizCtx() context.Context {
	return utils.SetBusinessIdInContext(context.Background(), "biz-1")
}

// cacheSettings primes the settings cache so no settings query reaches the database.
func cacheSettings(t *testing.T, ctx context.Context) {
	t.Helper()
	settings := models.RealappSettings{BusinessId: "biz-1", InvoicePrefix: models.DefaultInvoicePrefix}
	require.NoError(t, config.SetRedisObject(ctx, utils.SettingsCacheKey("biz-1"), &settings, utils.GetCacheLifespan()))
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
