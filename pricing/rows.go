package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// MilestoneCore is the shape shared by template rows, schedule rows and tower milestones.
type MilestoneCore struct {
	SchemeCode    string `json:"scheme_code"`
	Milestone     string `json:"milestone"`
	MilestoneItem string `json:"milestone_item"`
	Particulars   string `json:"particulars"`
}

type TemplateRow struct {
	MilestoneCore
	Percentage decimal.Decimal `json:"percentage"`
}

type Template struct {
	ID   int
	Name string
	Rows []TemplateRow
}

// TowerMilestone is a Block-level milestone whose date is shared by every template used in the Block.
type TowerMilestone struct {
	SchemeCode    string     `json:"scheme_code"`
	Milestone     string     `json:"milestone"`
	MilestoneDate *time.Time `json:"milestone_date"`
}

type ScheduleRow struct {
	ID int `json:"id"`
	MilestoneCore
	Percentage    decimal.Decimal `json:"percentage"`
	MilestoneDate *time.Time      `json:"milestone_date"`

	Amount     decimal.Decimal `json:"amount"`
	GstAmount  decimal.Decimal `json:"gst_amount"`
	TdsAmount  decimal.Decimal `json:"tds_amount"`
	NetPayable decimal.Decimal `json:"net_payable"`

	// InvoiceRef names the invoice that covers this row; empty until invoiced.
	InvoiceRef string `json:"invoice_ref"`
}

func (r ScheduleRow) IsInvoiced() bool {
	return r.InvoiceRef != ""
}

// Description is the text shown on an invoice line.
func (r ScheduleRow) Description() string {
	if r.Milestone != "" {
		return r.Milestone
	}
	return r.Particulars
}
