package models

import (
	"encoding/json"
	"errors"

	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
)

type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "Available"
	UnitStatusBlocked   UnitStatus = "Blocked"
	UnitStatusBooked    UnitStatus = "Booked"
	UnitStatusSold      UnitStatus = "Sold"
)

// convert input to enum type
func (t *UnitStatus) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("unit status must be string")
	}
	switch str {
	case "", "Available":
		*t = UnitStatusAvailable
	case "Blocked":
		*t = UnitStatusBlocked
	case "Booked":
		*t = UnitStatusBooked
	case "Sold":
		*t = UnitStatusSold
	default:
		return errors.New("invalid unit status")
	}
	return nil
}

type CostSheetType = pricing.CostSheetType

const (
	CostSheetTypeStandard   = pricing.CostSheetTypeStandard
	CostSheetTypeNegotiated = pricing.CostSheetTypeNegotiated
)

type DocStatus = pricing.DocStatus

const (
	DocStatusDraft     = pricing.DocStatusDraft
	DocStatusSubmitted = pricing.DocStatusSubmitted
	DocStatusCancelled = pricing.DocStatusCancelled
)

type PartyType string

const (
	PartyTypeCustomer PartyType = "Customer"
	PartyTypeLead     PartyType = "Lead"
)

func (t *PartyType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("party type must be string")
	}
	switch str {
	case "", "Customer":
		*t = PartyTypeCustomer
	case "Lead":
		*t = PartyTypeLead
	default:
		return errors.New("invalid party type")
	}
	return nil
}

type SalesInvoiceStatus string

const (
	SalesInvoiceStatusDraft       SalesInvoiceStatus = "Draft"
	SalesInvoiceStatusConfirmed   SalesInvoiceStatus = "Confirmed"
	SalesInvoiceStatusPartialPaid SalesInvoiceStatus = "Partial Paid"
	SalesInvoiceStatusPaid        SalesInvoiceStatus = "Paid"
	SalesInvoiceStatusVoid        SalesInvoiceStatus = "Void"
)

const (
	ReferenceTypeCostSheet    = "cost_sheets"
	ReferenceTypeBookingOrder = "booking_orders"
)
