package models

import (
	"errors"

	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"gorm.io/gorm"
)

// validateInput runs the struct tags and reports failures as a validation error.
func validateInput(input any) error {
	if err := utils.ValidateStruct(input); err != nil {
		return pricing.NewValidationError(utils.ErrorInvalidInput, "%s", utils.FormatValidationErrors(err))
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ErrorRecordNotFound
	}
	return err
}
