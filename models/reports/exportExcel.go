package reports

import (
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName = "Sheet1"

	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func writeHeadings(f *excelize.File, headings ...string) error {
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, rowNo int, values ...interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, rowNo)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}

// CollectionReportExcel renders the report rows followed by the summary block.
func CollectionReportExcel(report *CollectionReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeHeadings(f,
		"Project", "Block", "Unit", "Customer", "Milestone", "Invoice No", "Invoice Date", "Due Date",
		"Invoice Amount", "Paid Amount", "Outstanding", "Last Payment Date", "Status", "Last Remark",
	); err != nil {
		return nil, err
	}

	for i, r := range report.Rows {
		invoiceDate := r.InvoiceDate
		if err := writeRow(f, i+2,
			r.ProjectId, r.BlockId, r.UnitName, r.Customer, r.Milestone, r.InvoiceNumber,
			formatDate(&invoiceDate), formatDate(r.DueDate),
			money(r.InvoiceAmount), money(r.PaidAmount), money(r.Outstanding),
			formatDate(r.LastPaymentDate), r.Status, r.LastRemark,
		); err != nil {
			return nil, err
		}
	}

	s := report.Summary
	row := len(report.Rows) + 3
	summary := []struct {
		label string
		value interface{}
	}{
		{"Total Invoices", s.TotalInvoices},
		{"Total Invoice Amount", money(s.TotalInvoiceAmount)},
		{"Total Collected", money(s.TotalCollected)},
		{"Total Outstanding", money(s.TotalOutstanding)},
		{"Overdue Amount", money(s.OverdueAmount)},
	}
	for i, item := range summary {
		if err := writeRow(f, row+i, item.label, item.value); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// PaymentScheduleExcel renders a cost sheet or booking order schedule with a totals row.
func PaymentScheduleExcel(rows []models.PaymentScheduleRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := writeHeadings(f,
		"#", "Scheme Code", "Milestone", "Item", "Particulars", "Percentage", "Milestone Date",
		"Amount", "GST", "TDS", "Net Payable", "Invoice",
	); err != nil {
		return nil, err
	}

	var percentage, amount, gst, tds, net decimal.Decimal
	for i, r := range rows {
		if err := writeRow(f, i+2,
			r.SeqNo, r.SchemeCode, r.Milestone, r.MilestoneItem, r.Particulars, money(r.Percentage),
			formatDate(r.MilestoneDate), money(r.Amount), money(r.GstAmount), money(r.TdsAmount),
			money(r.NetPayable), r.InvoiceRef,
		); err != nil {
			return nil, err
		}
		percentage = percentage.Add(r.Percentage)
		amount = amount.Add(r.Amount)
		gst = gst.Add(r.GstAmount)
		tds = tds.Add(r.TdsAmount)
		net = net.Add(r.NetPayable)
	}

	totalRow := len(rows) + 2
	if err := writeRow(f, totalRow,
		"", "", "Total", "", "", money(percentage), "", money(amount), money(gst), money(tds), money(net), "",
	); err != nil {
		return nil, err
	}
	return f, nil
}

func ExcelFileName(prefix string, id int) string {
	return fmt.Sprintf("%s-%d.xlsx", prefix, id)
}
