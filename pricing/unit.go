package pricing

import "github.com/shopspring/decimal"

// Floor rise starts at FloorRiseThreshold; each floor above FloorRiseOffset adds one step of the base rate.
const (
	FloorRiseThreshold = 5
	FloorRiseOffset    = 4
)

type UnitInput struct {
	Area                  decimal.Decimal
	FloorNumber           int
	IsFloorRiseApplicable bool

	BasePricePerSft        decimal.Decimal
	AmenitiesChargesPerSft decimal.Decimal
	InfraChargesPerSft     decimal.Decimal
	FacingPremiumPerSft    decimal.Decimal
	CornerPremiumPerSft    decimal.Decimal

	CarParkingAmount     decimal.Decimal
	DocumentationCharges decimal.Decimal
}

// NewUnitInput builds a UnitInput from possibly-empty rate fields; empty reads as zero.
func NewUnitInput(area decimal.Decimal, floorNumber int, floorRise bool, f UnitRateFields) UnitInput {
	return UnitInput{
		Area:                   area,
		FloorNumber:            floorNumber,
		IsFloorRiseApplicable:  floorRise,
		BasePricePerSft:        nullOr(f.BasePricePerSft, decimalZero),
		AmenitiesChargesPerSft: nullOr(f.AmenitiesChargesPerSft, decimalZero),
		InfraChargesPerSft:     nullOr(f.InfraChargesPerSft, decimalZero),
		FacingPremiumPerSft:    nullOr(f.FacingPremiumPerSft, decimalZero),
		CornerPremiumPerSft:    nullOr(f.CornerPremiumPerSft, decimalZero),
		CarParkingAmount:       nullOr(f.CarParkingAmount, decimalZero),
		DocumentationCharges:   nullOr(f.DocumentationCharges, decimalZero),
	}
}

// UnitFigures are the derived fields of a Unit.
type UnitFigures struct {
	EffectiveFloorRiseRate decimal.Decimal `json:"effective_floor_rise_rate"`

	AmenitiesChargesAmt decimal.Decimal `json:"amenities_charges_amt"`
	InfraChargesAmt     decimal.Decimal `json:"infra_charges_amt"`
	FloorRiseCharges    decimal.Decimal `json:"floor_rise_charges"`
	UnitBaseAmount      decimal.Decimal `json:"unit_base_amount"`
	FacingPremiumAmount decimal.Decimal `json:"facing_premium_amount"`
	CornerPremiumAmount decimal.Decimal `json:"corner_premium_amount"`

	FullUnitValue       decimal.Decimal `json:"full_unit_value"`
	ValueExcludingBP    decimal.Decimal `json:"value_excluding_bp"`
	AosValue            decimal.Decimal `json:"aos_value"`
	AosGst              decimal.Decimal `json:"aos_gst"`
	AosValueWithGst     decimal.Decimal `json:"aos_value_gst"`
	TdsAmount           decimal.Decimal `json:"tds_amount"`
	NetPayable          decimal.Decimal `json:"net_payable"`
	EffectiveRatePerSft decimal.Decimal `json:"effective_rate_per_sft"`
}

// EffectiveFloorRiseRate is (floorNumber-4) * rate from the fifth floor up, zero below or when not applicable.
func EffectiveFloorRiseRate(floorNumber int, applicable bool, rate decimal.Decimal) decimal.Decimal {
	if !applicable || floorNumber < FloorRiseThreshold {
		return decimalZero
	}
	return decimal.NewFromInt(int64(floorNumber - FloorRiseOffset)).Mul(rate)
}

// PriceUnit computes every derived Unit field. Area <= 0 yields zero money fields.
// Amenities and infra are informational; they do not enter the AOS value.
func PriceUnit(in UnitInput, rates ResolvedRates) UnitFigures {
	riseRate := EffectiveFloorRiseRate(in.FloorNumber, in.IsFloorRiseApplicable, rates.FloorRiseRate)

	area := in.Area
	if !area.IsPositive() {
		return UnitFigures{EffectiveFloorRiseRate: riseRate}
	}

	lumps := in.CarParkingAmount.Add(in.DocumentationCharges)
	premiumRate := riseRate.Add(in.FacingPremiumPerSft).Add(in.CornerPremiumPerSft)

	f := UnitFigures{
		EffectiveFloorRiseRate: riseRate,
		AmenitiesChargesAmt:    roundMoney(in.AmenitiesChargesPerSft.Mul(area)),
		InfraChargesAmt:        roundMoney(in.InfraChargesPerSft.Mul(area)),
		FloorRiseCharges:       roundMoney(riseRate.Mul(area)),
		UnitBaseAmount:         roundMoney(in.BasePricePerSft.Mul(area)),
		FacingPremiumAmount:    roundMoney(in.FacingPremiumPerSft.Mul(area)),
		CornerPremiumAmount:    roundMoney(in.CornerPremiumPerSft.Mul(area)),
	}

	f.FullUnitValue = roundMoney(area.Mul(in.BasePricePerSft.Add(premiumRate)).Add(lumps))
	f.ValueExcludingBP = roundMoney(area.Mul(premiumRate).Add(lumps))

	aos := aosFigures(in.BasePricePerSft, area, f.ValueExcludingBP, rates.GstRate, rates.TdsRate)
	f.AosValue = aos.AosValue
	f.AosGst = aos.AosGst
	f.AosValueWithGst = aos.AosValueWithGst
	f.TdsAmount = aos.TdsAmount
	f.NetPayable = aos.NetPayable
	f.EffectiveRatePerSft = aos.EffectiveRatePerSft
	return f
}

type aosSet struct {
	AosValue            decimal.Decimal
	AosGst              decimal.Decimal
	AosValueWithGst     decimal.Decimal
	TdsAmount           decimal.Decimal
	NetPayable          decimal.Decimal
	EffectiveRatePerSft decimal.Decimal
}

// aosFigures is shared by the unit and the negotiated cost sheet. area must be positive.
func aosFigures(baseRate, area, valueExBP, gstRate, tdsRate decimal.Decimal) aosSet {
	var s aosSet
	s.AosValue = roundMoney(baseRate.Mul(area).Add(valueExBP))
	s.AosGst = roundMoney(percentOf(s.AosValue, gstRate))
	s.AosValueWithGst = s.AosValue.Add(s.AosGst)
	s.TdsAmount = roundMoney(percentOf(s.AosValue, tdsRate))
	s.NetPayable = s.AosValueWithGst.Sub(s.TdsAmount)
	s.EffectiveRatePerSft = roundMoney(s.NetPayable.Div(area))
	return s
}

// FieldMap is the field-name to value map the host copies onto the stored document.
func (f UnitFigures) FieldMap() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"effective_floor_rise_rate": f.EffectiveFloorRiseRate,
		"amenities_charges_amt":     f.AmenitiesChargesAmt,
		"infra_charges_amt":         f.InfraChargesAmt,
		"floor_rise_charges":        f.FloorRiseCharges,
		"unit_base_amount":          f.UnitBaseAmount,
		"facing_premium_amount":     f.FacingPremiumAmount,
		"corner_premium_amount":     f.CornerPremiumAmount,
		"full_unit_value":           f.FullUnitValue,
		"value_excluding_bp":        f.ValueExcludingBP,
		"aos_value":                 f.AosValue,
		"aos_gst":                   f.AosGst,
		"aos_value_gst":             f.AosValueWithGst,
		"tds_amount":                f.TdsAmount,
		"net_payable":               f.NetPayable,
		"effective_rate_per_sft":    f.EffectiveRatePerSft,
	}
}
