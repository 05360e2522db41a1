package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DocStatus string

const (
	DocStatusDraft     DocStatus = "Draft"
	DocStatusSubmitted DocStatus = "Submitted"
	DocStatusCancelled DocStatus = "Cancelled"
)

// InvoiceMode decides how selected rows are grouped into invoices.
type InvoiceMode string

const (
	InvoiceModeBatch  InvoiceMode = "batch"
	InvoiceModePerRow InvoiceMode = "per_row"
)

func ParseInvoiceMode(s string) (InvoiceMode, error) {
	switch InvoiceMode(strings.ToLower(strings.TrimSpace(s))) {
	case InvoiceModeBatch:
		return InvoiceModeBatch, nil
	case InvoiceModePerRow, "per-row", "perrow":
		return InvoiceModePerRow, nil
	}
	return "", NewValidationError(ErrInvalidInvoiceMode, "%q", s)
}

// InvoiceSource is the snapshot of the document whose schedule rows get invoiced.
type InvoiceSource struct {
	DocType     string
	Name        string
	ID          int
	Status      DocStatus
	Party       string
	Unit        string
	Project     string
	Block       string
	FloorNumber int
	Rows        []ScheduleRow
}

type InvoiceLine struct {
	RowID       int             `json:"row_id"`
	ItemCode    string          `json:"item_code"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	GstAmount   decimal.Decimal `json:"gst_amount"`
	TdsAmount   decimal.Decimal `json:"tds_amount"`
	DueDate     *time.Time      `json:"due_date"`
}

type InvoiceMeta struct {
	SourceDocType string
	SourceName    string
	SourceID      int
	Party         string
	Unit          string
	Project       string
	Block         string
	FloorNumber   int
	// DueDate is the earliest line due date, nil when no line has one.
	DueDate *time.Time
}

type InvoiceRef struct {
	DocType string `json:"doctype"`
	Name    string `json:"name"`
	ID      int    `json:"id"`
}

// InvoiceSink creates one invoice document per call.
type InvoiceSink interface {
	CreateInvoice(ctx context.Context, lines []InvoiceLine, meta InvoiceMeta) (InvoiceRef, error)
}

type InvoiceResult struct {
	Mode     InvoiceMode        `json:"mode"`
	Invoices []InvoiceRef       `json:"invoices"`
	Invoiced map[int]InvoiceRef `json:"invoiced"`
	// Rows is the source schedule with the invoiced rows marked.
	Rows []ScheduleRow `json:"rows"`
}

// CreateInvoices turns the selected schedule rows into invoices through sink.
// Every check runs before the first sink call, and no row is marked unless every sink call succeeded.
// The source rows are not modified; the marked copy is returned in the result.
func CreateInvoices(ctx context.Context, src InvoiceSource, selected []int, mode InvoiceMode, sink InvoiceSink) (*InvoiceResult, error) {
	if len(selected) == 0 {
		return nil, NewValidationError(ErrNoMilestoneSelected, "")
	}
	if src.Status != DocStatusSubmitted {
		return nil, NewValidationError(ErrNotSubmitted, "%s is %s", src.Name, src.Status)
	}
	if mode != InvoiceModeBatch && mode != InvoiceModePerRow {
		return nil, NewValidationError(ErrInvalidInvoiceMode, "%q", mode)
	}

	index := make(map[int]int, len(src.Rows))
	for i, r := range src.Rows {
		index[r.ID] = i
	}
	wanted := make(map[int]struct{}, len(selected))
	for _, id := range selected {
		i, ok := index[id]
		if !ok || src.Rows[i].IsInvoiced() {
			return nil, NewValidationError(ErrRowNotInvoiceable, "%d", id)
		}
		wanted[id] = struct{}{}
	}

	// lines follow schedule order, not selection order
	var lines []InvoiceLine
	for _, r := range src.Rows {
		if _, ok := wanted[r.ID]; ok {
			lines = append(lines, lineFromRow(r))
		}
	}

	var groups [][]InvoiceLine
	if mode == InvoiceModeBatch {
		groups = [][]InvoiceLine{lines}
	} else {
		for _, l := range lines {
			groups = append(groups, []InvoiceLine{l})
		}
	}

	result := &InvoiceResult{
		Mode:     mode,
		Invoices: make([]InvoiceRef, 0, len(groups)),
		Invoiced: make(map[int]InvoiceRef, len(lines)),
	}
	for _, g := range groups {
		ref, err := sink.CreateInvoice(ctx, g, metaFor(src, g))
		if err != nil {
			return nil, err
		}
		result.Invoices = append(result.Invoices, ref)
		for _, l := range g {
			result.Invoiced[l.RowID] = ref
		}
	}

	result.Rows = make([]ScheduleRow, len(src.Rows))
	for i, r := range src.Rows {
		if ref, ok := result.Invoiced[r.ID]; ok {
			r.InvoiceRef = ref.Name
		}
		result.Rows[i] = r
	}
	return result, nil
}

func lineFromRow(r ScheduleRow) InvoiceLine {
	return InvoiceLine{
		RowID:       r.ID,
		ItemCode:    r.MilestoneItem,
		Description: r.Description(),
		Qty:         decimal.NewFromInt(1),
		Rate:        r.Amount,
		Amount:      r.Amount,
		GstAmount:   r.GstAmount,
		TdsAmount:   r.TdsAmount,
		DueDate:     r.MilestoneDate,
	}
}

func metaFor(src InvoiceSource, lines []InvoiceLine) InvoiceMeta {
	meta := InvoiceMeta{
		SourceDocType: src.DocType,
		SourceName:    src.Name,
		SourceID:      src.ID,
		Party:         src.Party,
		Unit:          src.Unit,
		Project:       src.Project,
		Block:         src.Block,
		FloorNumber:   src.FloorNumber,
	}
	for _, l := range lines {
		if l.DueDate == nil {
			continue
		}
		if meta.DueDate == nil || l.DueDate.Before(*meta.DueDate) {
			d := *l.DueDate
			meta.DueDate = &d
		}
	}
	return meta
}
