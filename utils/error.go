package utils

import "errors"

var (
	ErrorRecordNotFound   = errors.New("record not found")
	ErrorBusinessRequired = errors.New("business id is required")
	ErrorInvalidInput     = errors.New("invalid input")
	ErrorDuplicate        = errors.New("duplicate")
)
