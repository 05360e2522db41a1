package config

import (
	"os"
	"strings"
)

// DefaultInvoiceMode is how selected milestones are grouped when a request does not say.
//
// Set via env:
// - INVOICE_MODE=batch|per_row (default batch)
func DefaultInvoiceMode() string {
	v := strings.TrimSpace(os.Getenv("INVOICE_MODE"))
	if v == "" {
		return "batch"
	}
	return v
}

// PhoneDefaultRegion is the region used to parse customer phone numbers written without a country code.
//
// Set via env:
// - PHONE_DEFAULT_REGION=IN
func PhoneDefaultRegion() string {
	v := strings.ToUpper(strings.TrimSpace(os.Getenv("PHONE_DEFAULT_REGION")))
	if v == "" {
		return "IN"
	}
	return v
}

func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
