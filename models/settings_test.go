package models

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRealappSettings_CacheHit(t *testing.T) {
	useMiniredis(t)
	mock := useMockDB(t)
	ctx := bizCtx()

	cached := RealappSettings{BusinessId: "biz-1", GstRate: dec("12"), InvoicePrefix: "RA"}
	require.NoError(t, config.SetRedisObject(ctx, utils.SettingsCacheKey("biz-1"), &cached, utils.GetCacheLifespan()))

	got, err := GetRealappSettings(ctx)
	require.NoError(t, err)
	assert.True(t, got.GstRate.Equal(dec("12")))
	assert.Equal(t, "RA", got.invoicePrefix())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRealappSettings_MissingRowFallsBackToDefaults(t *testing.T) {
	mr := useMiniredis(t)
	mock := useMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM `realapp_settings` WHERE business_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id"}))

	got, err := GetRealappSettings(bizCtx())
	require.NoError(t, err)
	assert.Equal(t, "biz-1", got.BusinessId)
	assert.Equal(t, DefaultInvoicePrefix, got.InvoicePrefix)
	assert.True(t, mr.Exists(utils.SettingsCacheKey("biz-1")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRealappSettings_RequiresBusiness(t *testing.T) {
	_, err := GetRealappSettings(context.Background())
	assert.ErrorIs(t, err, utils.ErrorBusinessRequired)
}

func TestRealappSettings_RateSettings(t *testing.T) {
	s := &RealappSettings{
		GstRate:                dec("5"),
		TdsRate:                dec("1"),
		MaintenanceRatePerSft:  dec("3"),
		RegistrationCharges:    dec("25000"),
		DefaultBasePricePerSft: dec("4200"),
	}

	rs := s.RateSettings()

	assert.True(t, rs.GstRate.Equal(dec("5")))
	assert.True(t, rs.BeforeRegistration.MaintenanceRatePerSft.Equal(dec("3")))
	assert.True(t, rs.BeforeRegistration.RegistrationCharges.Equal(dec("25000")))
	assert.True(t, rs.UnitDefaults.BasePricePerSft.Equal(dec("4200")))
}

func TestRealappSettings_InvoicePrefixDefault(t *testing.T) {
	assert.Equal(t, DefaultInvoicePrefix, (&RealappSettings{InvoicePrefix: "  "}).invoicePrefix())
	assert.Equal(t, "BLR", (&RealappSettings{InvoicePrefix: "BLR"}).invoicePrefix())
}
