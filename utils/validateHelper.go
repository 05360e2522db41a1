package utils

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// decimals validate as float64 so numeric tags (gte, lte) work on them
func init() {
	validate.RegisterCustomTypeFunc(decimalTypeFunc, decimal.Decimal{}, decimal.NullDecimal{})
}

func decimalTypeFunc(field reflect.Value) interface{} {
	switch d := field.Interface().(type) {
	case decimal.Decimal:
		f, _ := d.Float64()
		return f
	case decimal.NullDecimal:
		if !d.Valid {
			return nil
		}
		f, _ := d.Decimal.Float64()
		return f
	}
	return nil
}

// ValidateStruct runs the `validate` tags on input.
func ValidateStruct(input any) error {
	return validate.Struct(input)
}

// ProcessValidationErrors maps field name to the failed tag. Non-validator errors yield nil.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// FormatValidationErrors joins the failed fields into one line, in field order.
func FormatValidationErrors(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		parts = append(parts, fmt.Sprintf("%s failed %s", ve.Field(), ve.Tag()))
	}
	return strings.Join(parts, "; ")
}

// check if id exists, using business_id in WHERE, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, businessId string, id interface{}) error {
	count, err := ResourceCountWhere[T](ctx, businessId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, businessId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, businessId, column+" = ? AND NOT id = ?", value, exceptId)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w %s", ErrorDuplicate, column)
	}
	return nil
}

// count records, using WHERE business_id = ? AND $condition
func ResourceCountWhere[T any](ctx context.Context, businessId string, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	if businessId != "" {
		dbCtx = dbCtx.Where("business_id = ?", businessId)
	}
	if err := dbCtx.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
