package utils

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BusinessIdFromContext returns ErrorBusinessRequired when ctx carries no business.
func BusinessIdFromContext(ctx context.Context) (string, error) {
	businessId, ok := GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return "", ErrorBusinessRequired
	}
	return businessId, nil
}

// fetch model from db
// (business_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, businessId string, id int, associations ...string) (*T, error) {
	return FetchModelTx[T](config.GetDB().WithContext(ctx), businessId, id, associations...)
}

// FetchModelTx is FetchModel on an open transaction.
func FetchModelTx[T any](tx *gorm.DB, businessId string, id int, associations ...string) (*T, error) {
	dbCtx := tx.Where("business_id = ?", businessId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	if err := dbCtx.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// FetchModelForUpdate row-locks the record until tx ends.
func FetchModelForUpdate[T any](tx *gorm.DB, businessId string, id int, associations ...string) (*T, error) {
	return FetchModelTx[T](tx.Clauses(clause.Locking{Strength: "UPDATE"}), businessId, id, associations...)
}
