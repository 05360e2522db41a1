package models

import (
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"github.com/shopspring/decimal"
)

// PaymentScheduleRow belongs to a CostSheet or a BookingOrder (polymorphic Reference).
type PaymentScheduleRow struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id"`
	ReferenceType  string          `gorm:"index:idx_schedule_ref;size:50;not null" json:"reference_type"`
	ReferenceID    int             `gorm:"index:idx_schedule_ref;not null" json:"reference_id"`
	SeqNo          int             `gorm:"not null" json:"seq_no"`
	SchemeCode     string          `gorm:"size:50" json:"scheme_code"`
	Milestone      string          `gorm:"size:255" json:"milestone"`
	MilestoneItem  string          `gorm:"size:100" json:"milestone_item"`
	Particulars    string          `gorm:"size:100" json:"particulars"`
	Percentage     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"percentage"`
	MilestoneDate  *time.Time      `gorm:"type:date" json:"milestone_date"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	GstAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gst_amount"`
	TdsAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tds_amount"`
	NetPayable     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_payable"`
	InvoiceRef     string          `gorm:"size:255" json:"invoice_ref"`
	SalesInvoiceId *int            `gorm:"index" json:"sales_invoice_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewScheduleRow is a user-edited schedule row. Amounts are always re-derived.
type NewScheduleRow struct {
	SchemeCode    string          `json:"scheme_code" validate:"max=50"`
	Milestone     string          `json:"milestone" validate:"max=255"`
	MilestoneItem string          `json:"milestone_item" validate:"max=100"`
	Particulars   string          `json:"particulars" validate:"max=100"`
	Percentage    decimal.Decimal `json:"percentage" validate:"gte=0,lte=100"`
	MilestoneDate *time.Time      `json:"milestone_date"`
}

func (r PaymentScheduleRow) toPricing() pricing.ScheduleRow {
	return pricing.ScheduleRow{
		ID: r.ID,
		MilestoneCore: pricing.MilestoneCore{
			SchemeCode:    r.SchemeCode,
			Milestone:     r.Milestone,
			MilestoneItem: r.MilestoneItem,
			Particulars:   r.Particulars,
		},
		Percentage:    r.Percentage,
		MilestoneDate: r.MilestoneDate,
		Amount:        r.Amount,
		GstAmount:     r.GstAmount,
		TdsAmount:     r.TdsAmount,
		NetPayable:    r.NetPayable,
		InvoiceRef:    r.InvoiceRef,
	}
}

// applyPricing copies the calculated values of p onto r; identity and invoice link stay.
func (r *PaymentScheduleRow) applyPricing(p pricing.ScheduleRow) {
	r.SchemeCode = p.SchemeCode
	r.Milestone = p.Milestone
	r.MilestoneItem = p.MilestoneItem
	r.Particulars = p.Particulars
	r.Percentage = p.Percentage
	r.MilestoneDate = p.MilestoneDate
	r.Amount = p.Amount
	r.GstAmount = p.GstAmount
	r.TdsAmount = p.TdsAmount
	r.NetPayable = p.NetPayable
}

func scheduleToPricing(rows []PaymentScheduleRow) []pricing.ScheduleRow {
	out := make([]pricing.ScheduleRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toPricing())
	}
	return out
}

// scheduleFromPricing builds fresh (unsaved) rows.
func scheduleFromPricing(businessId string, rows []pricing.ScheduleRow) []PaymentScheduleRow {
	out := make([]PaymentScheduleRow, 0, len(rows))
	for i, p := range rows {
		r := PaymentScheduleRow{BusinessId: businessId, SeqNo: i + 1, InvoiceRef: p.InvoiceRef}
		r.applyPricing(p)
		out = append(out, r)
	}
	return out
}

func scheduleFromInput(rows []NewScheduleRow) []pricing.ScheduleRow {
	out := make([]pricing.ScheduleRow, 0, len(rows))
	for _, in := range rows {
		out = append(out, pricing.ScheduleRow{
			MilestoneCore: pricing.MilestoneCore{
				SchemeCode:    in.SchemeCode,
				Milestone:     in.Milestone,
				MilestoneItem: in.MilestoneItem,
				Particulars:   in.Particulars,
			},
			Percentage:    in.Percentage,
			MilestoneDate: in.MilestoneDate,
		})
	}
	return out
}

// recalcRows re-derives the amounts of rows in place.
func recalcRows(rows []PaymentScheduleRow, base decimal.Decimal, rates pricing.ScheduleRates) {
	calculated := pricing.RecalcSchedule(scheduleToPricing(rows), base, rates)
	for i := range rows {
		rows[i].applyPricing(calculated[i])
	}
}
