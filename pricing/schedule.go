package pricing

import "github.com/shopspring/decimal"

// ScheduleRates are the GST and TDS percentages applied to every schedule row.
type ScheduleRates struct {
	GstRate decimal.Decimal
	TdsRate decimal.Decimal
}

func ExplicitScheduleRates(r ResolvedRates) ScheduleRates {
	return ScheduleRates{GstRate: r.GstRate, TdsRate: r.TdsRate}
}

// InferScheduleRates derives the rates from the header amounts, or 5/1 when the base is zero.
func InferScheduleRates(headerBase, headerGst, headerTds decimal.Decimal) ScheduleRates {
	if headerBase.IsZero() {
		return ScheduleRates{GstRate: DefaultGstRate, TdsRate: DefaultTdsRate}
	}
	return ScheduleRates{
		GstRate: headerGst.Div(headerBase).Mul(decimalOneHundred),
		TdsRate: headerTds.Div(headerBase).Mul(decimalOneHundred),
	}
}

// RecalcSchedule re-derives every row from its percentage and returns new rows.
// Identity, dates and invoice references are carried over unchanged.
func RecalcSchedule(rows []ScheduleRow, baseAmount decimal.Decimal, rates ScheduleRates) []ScheduleRow {
	out := make([]ScheduleRow, len(rows))
	for i, r := range rows {
		r.Amount = roundMoney(percentOf(baseAmount, r.Percentage))
		r.GstAmount = roundMoney(percentOf(r.Amount, rates.GstRate))
		r.TdsAmount = roundMoney(percentOf(r.Amount, rates.TdsRate))
		r.NetPayable = r.Amount.Add(r.GstAmount).Sub(r.TdsAmount)
		out[i] = r
	}
	return out
}

type ScheduleTotals struct {
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
	GstAmount  decimal.Decimal `json:"gst_amount"`
	TdsAmount  decimal.Decimal `json:"tds_amount"`
	NetPayable decimal.Decimal `json:"net_payable"`
	Invoiced   decimal.Decimal `json:"invoiced"`
}

func SumSchedule(rows []ScheduleRow) ScheduleTotals {
	var t ScheduleTotals
	for _, r := range rows {
		t.Percentage = t.Percentage.Add(r.Percentage)
		t.Amount = t.Amount.Add(r.Amount)
		t.GstAmount = t.GstAmount.Add(r.GstAmount)
		t.TdsAmount = t.TdsAmount.Add(r.TdsAmount)
		t.NetPayable = t.NetPayable.Add(r.NetPayable)
		if r.IsInvoiced() {
			t.Invoiced = t.Invoiced.Add(r.Amount)
		}
	}
	return t
}
