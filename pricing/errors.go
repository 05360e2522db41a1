package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrNoMilestoneSelected = errors.New("select at least one milestone")
	ErrRowNotInvoiceable   = errors.New("unknown or already-invoiced row")
	ErrNotSubmitted        = errors.New("booking order must be submitted before invoicing")
	ErrScheduleLocked      = errors.New("payment schedule is locked once the booking order is submitted")

	ErrTemplateRequired    = errors.New("payment scheme template is required")
	ErrTemplateNotAllowed  = errors.New("payment scheme template is not allowed for this block")
	ErrDuplicateSchemeCode = errors.New("duplicate scheme code in payment scheme template")
	ErrPercentageExceeded  = errors.New("total percentage exceeds 100%")

	ErrUnitNotAvailable   = errors.New("unit is not available")
	ErrInvalidInvoiceMode = errors.New("invalid invoice mode")
)

// ValidationError is a user-correctable failure. Its message is shown verbatim.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(err error, format string, args ...any) *ValidationError {
	details := ""
	if format != "" {
		details = fmt.Sprintf(format, args...)
	}
	return &ValidationError{Err: err, Details: details}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
