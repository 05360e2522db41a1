package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneNumber(t *testing.T) {
	got, err := NormalizePhoneNumber("098765 43210", "IN")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", got)

	got, err = NormalizePhoneNumber("+91 98765-43210", "US")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", got)

	_, err = NormalizePhoneNumber("12345", "IN")
	assert.ErrorIs(t, err, ErrInvalidPhoneNumber)

	_, err = NormalizePhoneNumber("not a phone", "IN")
	assert.ErrorIs(t, err, ErrInvalidPhoneNumber)
}

func TestDereferencePtr(t *testing.T) {
	assert.True(t, DereferencePtr(NewTrue(), false))
	assert.Equal(t, 7, DereferencePtr[int](nil, 7))
}

func TestJSONHelpers(t *testing.T) {
	type row struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	s, err := MarshalToJSON(row{ID: 1, Name: "A-101"})
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"name":"A-101"}`, s)

	var back row
	require.NoError(t, UnmarshalFromJSON([]byte(s), &back))
	assert.Equal(t, row{ID: 1, Name: "A-101"}, back)
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "RealappSettings:biz-1", SettingsCacheKey("biz-1"))
	assert.Equal(t, "lock:biz-1:BookingOrder:9", BookingOrderLockKey("biz-1", 9))
	assert.Equal(t, "InvoiceSeq:biz-1:SINV", InvoiceSequenceKey("biz-1", "SINV"))
}

func TestGetCacheLifespan(t *testing.T) {
	t.Setenv("CACHE_LIFESPAN", "")
	assert.Equal(t, time.Hour, GetCacheLifespan())
	t.Setenv("CACHE_LIFESPAN", "6")
	assert.Equal(t, 6*time.Hour, GetCacheLifespan())
	t.Setenv("CACHE_LIFESPAN", "-3")
	assert.Equal(t, time.Hour, GetCacheLifespan())
}
