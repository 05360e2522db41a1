package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceInput struct {
	Name     string              `validate:"required,max=10"`
	Rate     decimal.Decimal     `validate:"gte=0,lte=100"`
	Optional decimal.NullDecimal `validate:"omitempty,gte=0"`
}

func TestValidateStruct_Decimals(t *testing.T) {
	ok := priceInput{Name: "Tower A", Rate: decimal.RequireFromString("18")}
	assert.NoError(t, ValidateStruct(ok))

	ok.Optional = decimal.NewNullDecimal(decimal.RequireFromString("0"))
	assert.NoError(t, ValidateStruct(ok))

	bad := priceInput{Name: "Tower A", Rate: decimal.RequireFromString("100.5")}
	err := ValidateStruct(bad)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"Rate": "lte"}, ProcessValidationErrors(err))

	bad = priceInput{Name: "Tower A", Optional: decimal.NewNullDecimal(decimal.RequireFromString("-1"))}
	err = ValidateStruct(bad)
	require.Error(t, err)
	assert.Equal(t, "Optional failed gte", FormatValidationErrors(err))
}

func TestFormatValidationErrors_JoinsFields(t *testing.T) {
	err := ValidateStruct(priceInput{Rate: decimal.RequireFromString("-2")})
	require.Error(t, err)
	assert.Equal(t, "Name failed required; Rate failed gte", FormatValidationErrors(err))
}

func TestValidationHelpers_PlainError(t *testing.T) {
	err := errors.New("plain")
	assert.Nil(t, ProcessValidationErrors(err))
	assert.Equal(t, "plain", FormatValidationErrors(err))
}

func TestBusinessIdFromContext(t *testing.T) {
	_, err := BusinessIdFromContext(context.Background())
	assert.ErrorIs(t, err, ErrorBusinessRequired)

	_, err = BusinessIdFromContext(SetBusinessIdInContext(context.Background(), ""))
	assert.ErrorIs(t, err, ErrorBusinessRequired)

	id, err := BusinessIdFromContext(SetBusinessIdInContext(context.Background(), "biz-1"))
	require.NoError(t, err)
	assert.Equal(t, "biz-1", id)
}

func TestContextValues(t *testing.T) {
	ctx := SetUsernameInContext(context.Background(), "admin")
	ctx = SetCorrelationIdInContext(ctx, "cid-1")
	ctx = SetIdempotencyKeyInContext(ctx, "key-1")

	u, _ := GetUsernameFromContext(ctx)
	c, _ := GetCorrelationIdFromContext(ctx)
	k, ok := GetIdempotencyKeyFromContext(ctx)
	assert.Equal(t, "admin", u)
	assert.Equal(t, "cid-1", c)
	assert.True(t, ok)
	assert.Equal(t, "key-1", k)

	_, ok = GetBusinessIdFromContext(ctx)
	assert.False(t, ok)
}
