package pricing

import "github.com/shopspring/decimal"

type CostSheetType string

const (
	CostSheetTypeStandard   CostSheetType = "Standard"
	CostSheetTypeNegotiated CostSheetType = "Negotiated"
)

func (t CostSheetType) IsValid() bool {
	switch t {
	case CostSheetTypeStandard, CostSheetTypeNegotiated:
		return true
	}
	return false
}

// UnitSnapshot is what a cost sheet reads from its Unit.
type UnitSnapshot struct {
	Area            decimal.Decimal
	BasePricePerSft decimal.Decimal
	Figures         UnitFigures
}

type HeaderInput struct {
	Type CostSheetType
	Unit UnitSnapshot
	// BasicPricePerSft is the negotiated base rate. Ignored for Standard; empty falls back to the Unit.
	BasicPricePerSft decimal.NullDecimal
	Rates            ResolvedRates
}

type Header struct {
	SalableArea         decimal.Decimal `json:"salable_area"`
	BasicPricePerSft    decimal.Decimal `json:"basic_price_per_sft"`
	FullUnitValue       decimal.Decimal `json:"full_unit_value"`
	ValueExcludingBP    decimal.Decimal `json:"value_excluding_bp"`
	AosValue            decimal.Decimal `json:"aos_value"`
	AosGst              decimal.Decimal `json:"aos_gst"`
	AosValueWithGst     decimal.Decimal `json:"aos_value_gst"`
	TdsAmount           decimal.Decimal `json:"tds_amount"`
	NetPayable          decimal.Decimal `json:"net_payable"`
	EffectiveRatePerSft decimal.Decimal `json:"effective_rate_per_sft"`
}

// ComputeHeader derives the cost sheet header.
// Standard copies the Unit's figures as they are; Negotiated reprices AOS with the user's base rate.
func ComputeHeader(in HeaderInput) Header {
	area := in.Unit.Area
	h := Header{SalableArea: area}

	if in.Type == CostSheetTypeNegotiated {
		h.BasicPricePerSft = nullOr(in.BasicPricePerSft, in.Unit.BasePricePerSft)
	} else {
		h.BasicPricePerSft = in.Unit.BasePricePerSft
	}
	if !area.IsPositive() {
		return h
	}

	u := in.Unit.Figures
	h.ValueExcludingBP = u.ValueExcludingBP

	if in.Type != CostSheetTypeNegotiated {
		h.FullUnitValue = u.FullUnitValue
		h.AosValue = u.AosValue
		h.AosGst = u.AosGst
		h.AosValueWithGst = u.AosValueWithGst
		h.TdsAmount = u.TdsAmount
		h.NetPayable = u.NetPayable
		h.EffectiveRatePerSft = u.EffectiveRatePerSft
		return h
	}

	aos := aosFigures(h.BasicPricePerSft, area, h.ValueExcludingBP, in.Rates.GstRate, in.Rates.TdsRate)
	h.FullUnitValue = roundMoney(h.BasicPricePerSft.Mul(area).Add(h.ValueExcludingBP))
	h.AosValue = aos.AosValue
	h.AosGst = aos.AosGst
	h.AosValueWithGst = aos.AosValueWithGst
	h.TdsAmount = aos.TdsAmount
	h.NetPayable = aos.NetPayable
	h.EffectiveRatePerSft = aos.EffectiveRatePerSft
	return h
}

// BeforeRegistrationConfig holds the charges collected alongside the sale price.
type BeforeRegistrationConfig struct {
	MaintenanceRatePerSft    decimal.Decimal `json:"maintenance_rate_per_sft"`
	CorpusFundRatePerSft     decimal.Decimal `json:"corpus_fund_rate_per_sft"`
	MoveInCharges            decimal.Decimal `json:"move_in_charges"`
	RefundableCautionDeposit decimal.Decimal `json:"refundable_caution_deposit"`
	RegistrationCharges      decimal.Decimal `json:"registration_charges"`
}

type BeforeRegistration struct {
	MaintenanceCharges       decimal.Decimal `json:"maintenance_charges"`
	MaintenanceGst           decimal.Decimal `json:"maintenance_gst"`
	CorpusFund               decimal.Decimal `json:"corpus_fund"`
	MoveInCharges            decimal.Decimal `json:"move_in_charges"`
	RefundableCautionDeposit decimal.Decimal `json:"refundable_caution_deposit"`
	RegistrationCharges      decimal.Decimal `json:"registration_charges"`
	Total                    decimal.Decimal `json:"before_registration_total"`
}

// ComputeBeforeRegistration returns all zero when area <= 0, flat charges included.
func ComputeBeforeRegistration(area decimal.Decimal, cfg BeforeRegistrationConfig, rates ResolvedRates) BeforeRegistration {
	if !area.IsPositive() {
		return BeforeRegistration{}
	}
	b := BeforeRegistration{
		MaintenanceCharges:       roundMoney(cfg.MaintenanceRatePerSft.Mul(area)),
		CorpusFund:               roundMoney(cfg.CorpusFundRatePerSft.Mul(area)),
		MoveInCharges:            roundMoney(cfg.MoveInCharges),
		RefundableCautionDeposit: roundMoney(cfg.RefundableCautionDeposit),
		RegistrationCharges:      roundMoney(cfg.RegistrationCharges),
	}
	b.MaintenanceGst = roundMoney(percentOf(b.MaintenanceCharges, rates.MaintenanceGstRate))
	b.Total = b.MaintenanceCharges.
		Add(b.MaintenanceGst).
		Add(b.CorpusFund).
		Add(b.MoveInCharges).
		Add(b.RefundableCautionDeposit).
		Add(b.RegistrationCharges)
	return b
}

func GrandTotal(h Header, b BeforeRegistration) decimal.Decimal {
	return h.AosValueWithGst.Add(b.Total)
}

// CostSheetFigures is the full derived state of a cost sheet.
type CostSheetFigures struct {
	Header             Header             `json:"header"`
	BeforeRegistration BeforeRegistration `json:"before_registration"`
	GrandTotalPayable  decimal.Decimal    `json:"grand_total_payable"`
}

// ComputeCostSheet runs header, before-registration and grand total in order.
func ComputeCostSheet(in HeaderInput, cfg BeforeRegistrationConfig) CostSheetFigures {
	h := ComputeHeader(in)
	b := ComputeBeforeRegistration(h.SalableArea, cfg, in.Rates)
	return CostSheetFigures{
		Header:             h,
		BeforeRegistration: b,
		GrandTotalPayable:  GrandTotal(h, b),
	}
}
