package workflow

import (
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("a request with this idempotency key is in progress")

const idempotencyStaleAfter = 5 * time.Minute

// BeginIdempotency inserts STARTED inside tx. When the key already SUCCEEDED it returns
// the stored record, meaning "replay the stored response".
func BeginIdempotency(tx *gorm.DB, businessId, handlerName, messageId string) (*models.IdempotencyKey, error) {
	key := models.IdempotencyKey{
		BusinessId:  businessId,
		HandlerName: handlerName,
		MessageId:   messageId,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return nil, nil
	} else if !models.IsDuplicateKeyErr(err) {
		return nil, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		First(&existing).Error; err != nil {
		return nil, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return &existing, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < idempotencyStaleAfter {
			return nil, ErrIdempotencyInProgress
		}
	}
	return nil, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func MarkIdempotencySucceeded(tx *gorm.DB, businessId, handlerName, messageId string, response []byte) error {
	body := string(response)
	return tx.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND handler_name = ? AND message_id = ?", businessId, handlerName, messageId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "response": &body, "last_error": nil}).Error
}

// MarkIdempotencyFailed runs outside the failed transaction, which already rolled the STARTED row back.
func MarkIdempotencyFailed(db *gorm.DB, businessId, handlerName, messageId string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	key := models.IdempotencyKey{
		BusinessId:  businessId,
		HandlerName: handlerName,
		MessageId:   messageId,
		Status:      models.IdempotencyStatusFailed,
		LastError:   &msg,
	}
	if err := db.Create(&key).Error; err == nil || !models.IsDuplicateKeyErr(err) {
		return err
	}
	return db.Model(&models.IdempotencyKey{}).
		Where("business_id = ? AND handler_name = ? AND message_id = ? AND status <> ?", businessId, handlerName, messageId, models.IdempotencyStatusSucceeded).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
