package reports

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	CollectionStatusFullyPaid     = "Fully Paid"
	CollectionStatusPending       = "Pending"
	CollectionStatusOverdue       = "Overdue"
	CollectionStatusPartiallyPaid = "Partially Paid"
)

type CollectionReportFilter struct {
	ProjectId int        `form:"project_id"`
	BlockId   int        `form:"block_id"`
	UnitId    int        `form:"unit_id"`
	Customer  string     `form:"customer"`
	Milestone string     `form:"milestone"`
	FromDate  *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate    *time.Time `form:"to_date" time_format:"2006-01-02"`
}

type CollectionReportRow struct {
	ProjectId       int             `json:"project_id"`
	BlockId         int             `json:"block_id"`
	UnitId          int             `json:"unit_id"`
	UnitName        string          `json:"unit_name"`
	Customer        string          `json:"customer"`
	Milestone       string          `json:"milestone"`
	InvoiceId       int             `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	DueDate         *time.Time      `json:"due_date"`
	InvoiceAmount   decimal.Decimal `json:"invoice_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	LastPaymentDate *time.Time      `json:"last_payment_date"`
	Status          string          `json:"status"`
	LastRemark      string          `json:"last_remark"`
}

type CollectionSummary struct {
	TotalInvoices      int             `json:"total_invoices"`
	TotalInvoiceAmount decimal.Decimal `json:"total_invoice_amount"`
	TotalCollected     decimal.Decimal `json:"total_collected"`
	TotalOutstanding   decimal.Decimal `json:"total_outstanding"`
	OverdueAmount      decimal.Decimal `json:"overdue_amount"`
}

type CollectionReport struct {
	Rows    []*CollectionReportRow `json:"rows"`
	Summary CollectionSummary      `json:"summary"`
}

// CollectionStatus classifies an invoice; due dates compare by calendar day.
func CollectionStatus(outstanding, paid decimal.Decimal, due *time.Time, today time.Time) string {
	switch {
	case !outstanding.IsPositive():
		return CollectionStatusFullyPaid
	case paid.IsZero():
		return CollectionStatusPending
	case due != nil && truncateDay(*due).Before(truncateDay(today)):
		return CollectionStatusOverdue
	default:
		return CollectionStatusPartiallyPaid
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func Summarize(rows []*CollectionReportRow) CollectionSummary {
	s := CollectionSummary{TotalInvoices: len(rows)}
	for _, r := range rows {
		s.TotalInvoiceAmount = s.TotalInvoiceAmount.Add(r.InvoiceAmount)
		s.TotalCollected = s.TotalCollected.Add(r.PaidAmount)
		s.TotalOutstanding = s.TotalOutstanding.Add(r.Outstanding)
		if r.Status == CollectionStatusOverdue {
			s.OverdueAmount = s.OverdueAmount.Add(r.Outstanding)
		}
	}
	return s
}

// GetCollectionReport lists confirmed booking-order invoices, one row per invoice.
func GetCollectionReport(ctx context.Context, filter CollectionReportFilter, today time.Time) (*CollectionReport, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	defer logSlowReport(ctx, "collection", started, map[string]any{"project_id": filter.ProjectId, "block_id": filter.BlockId})

	cacheKey, err := reportCacheKey("collection", businessId, filter, today)
	if err != nil {
		return nil, err
	}
	var cached CollectionReport
	if cacheGet(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	conditions := []string{"si.business_id = ?", "si.current_status IN ?"}
	args := []interface{}{businessId, []models.SalesInvoiceStatus{
		models.SalesInvoiceStatusConfirmed,
		models.SalesInvoiceStatusPartialPaid,
		models.SalesInvoiceStatusPaid,
	}}
	if filter.ProjectId > 0 {
		conditions = append(conditions, "si.project_id = ?")
		args = append(args, filter.ProjectId)
	}
	if filter.BlockId > 0 {
		conditions = append(conditions, "si.block_id = ?")
		args = append(args, filter.BlockId)
	}
	if filter.UnitId > 0 {
		conditions = append(conditions, "si.unit_id = ?")
		args = append(args, filter.UnitId)
	}
	if filter.Customer != "" {
		conditions = append(conditions, "si.party_name = ?")
		args = append(args, filter.Customer)
	}
	if filter.Milestone != "" {
		conditions = append(conditions, "EXISTS (SELECT 1 FROM sales_invoice_details m WHERE m.sales_invoice_id = si.id AND m.description = ?)")
		args = append(args, filter.Milestone)
	}
	if filter.FromDate != nil && filter.ToDate != nil {
		conditions = append(conditions, "si.invoice_due_date BETWEEN ? AND ?")
		args = append(args, *filter.FromDate, *filter.ToDate)
	}

	sql := `
SELECT
    si.project_id,
    si.block_id,
    si.unit_id,
    si.unit_name,
    si.party_name AS customer,
    GROUP_CONCAT(sid.description ORDER BY sid.id SEPARATOR ', ') AS milestone,
    si.id AS invoice_id,
    si.invoice_number,
    si.invoice_date,
    si.invoice_due_date AS due_date,
    si.total_amount AS invoice_amount,
    si.paid_amount,
    si.remaining_balance AS outstanding,
    si.last_payment_date,
    si.remark AS last_remark
FROM
    sales_invoices si
    JOIN sales_invoice_details sid ON sid.sales_invoice_id = si.id
WHERE ` + strings.Join(conditions, " AND ") + `
GROUP BY
    si.id
ORDER BY
    si.invoice_due_date, si.project_id, si.block_id, si.unit_id, si.id`

	var rows []*CollectionReportRow
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		r.Status = CollectionStatus(r.Outstanding, r.PaidAmount, r.DueDate, today)
	}
	report := &CollectionReport{Rows: rows, Summary: Summarize(rows)}
	cacheSet(ctx, cacheKey, report)
	return report, nil
}
