package pricing

import "github.com/shopspring/decimal"

var (
	DefaultGstRate            = decimal.NewFromInt(5)
	DefaultTdsRate            = decimal.NewFromInt(1)
	DefaultMaintenanceGstRate = decimal.NewFromInt(18)
	DefaultFloorRiseRate      = decimal.Zero
)

// RateSettings is the process-wide configuration a calculation session reads.
// It is loaded once by the host and passed down; nothing here mutates it.
type RateSettings struct {
	GstRate            decimal.Decimal `json:"gst_rate"`
	TdsRate            decimal.Decimal `json:"tds_rate"`
	FloorRiseRate      decimal.Decimal `json:"floor_rise_rate"`
	MaintenanceGstRate decimal.Decimal `json:"maintenance_gst_rate"`

	BeforeRegistration BeforeRegistrationConfig `json:"before_registration"`
	UnitDefaults       UnitDefaults             `json:"unit_defaults"`
}

// RateOverrides are the per-record rates. A zero value means "not overridden".
type RateOverrides struct {
	GstRate            decimal.Decimal
	TdsRate            decimal.Decimal
	FloorRiseRate      decimal.Decimal
	MaintenanceGstRate decimal.Decimal
}

type ResolvedRates struct {
	GstRate            decimal.Decimal `json:"gst_rate"`
	TdsRate            decimal.Decimal `json:"tds_rate"`
	FloorRiseRate      decimal.Decimal `json:"floor_rise_rate"`
	MaintenanceGstRate decimal.Decimal `json:"maintenance_gst_rate"`
}

// ResolveRates picks, per rate, the record override, then the settings value,
// then the fixed default. It never fails.
func ResolveRates(overrides RateOverrides, settings RateSettings) ResolvedRates {
	return ResolvedRates{
		GstRate:            firstNonZero(overrides.GstRate, settings.GstRate, DefaultGstRate),
		TdsRate:            firstNonZero(overrides.TdsRate, settings.TdsRate, DefaultTdsRate),
		FloorRiseRate:      firstNonZero(overrides.FloorRiseRate, settings.FloorRiseRate, DefaultFloorRiseRate),
		MaintenanceGstRate: firstNonZero(overrides.MaintenanceGstRate, settings.MaintenanceGstRate, DefaultMaintenanceGstRate),
	}
}

// UnitDefaults fill Unit rate fields that were left empty.
type UnitDefaults struct {
	BasePricePerSft        decimal.Decimal `json:"base_price_per_sft"`
	FacingPremiumPerSft    decimal.Decimal `json:"facing_premium_per_sft"`
	CornerPremiumPerSft    decimal.Decimal `json:"corner_premium_per_sft"`
	CarParkingAmount       decimal.Decimal `json:"car_parking_amount"`
	AmenitiesChargesPerSft decimal.Decimal `json:"amenities_charges_per_sft"`
	InfraChargesPerSft     decimal.Decimal `json:"infra_charges_per_sft"`
	DocumentationCharges   decimal.Decimal `json:"documentation_charges"`
}

// UnitRateFields are the Unit inputs that may be left empty by the user.
// Valid=false means empty; an explicit zero stays zero.
type UnitRateFields struct {
	BasePricePerSft        decimal.NullDecimal
	FacingPremiumPerSft    decimal.NullDecimal
	CornerPremiumPerSft    decimal.NullDecimal
	CarParkingAmount       decimal.NullDecimal
	AmenitiesChargesPerSft decimal.NullDecimal
	InfraChargesPerSft     decimal.NullDecimal
	DocumentationCharges   decimal.NullDecimal
}

func ApplyUnitDefaults(f UnitRateFields, d UnitDefaults) UnitRateFields {
	fill := func(n decimal.NullDecimal, def decimal.Decimal) decimal.NullDecimal {
		if n.Valid {
			return n
		}
		return decimal.NewNullDecimal(def)
	}
	return UnitRateFields{
		BasePricePerSft:        fill(f.BasePricePerSft, d.BasePricePerSft),
		FacingPremiumPerSft:    fill(f.FacingPremiumPerSft, d.FacingPremiumPerSft),
		CornerPremiumPerSft:    fill(f.CornerPremiumPerSft, d.CornerPremiumPerSft),
		CarParkingAmount:       fill(f.CarParkingAmount, d.CarParkingAmount),
		AmenitiesChargesPerSft: fill(f.AmenitiesChargesPerSft, d.AmenitiesChargesPerSft),
		InfraChargesPerSft:     fill(f.InfraChargesPerSft, d.InfraChargesPerSft),
		DocumentationCharges:   fill(f.DocumentationCharges, d.DocumentationCharges),
	}
}
