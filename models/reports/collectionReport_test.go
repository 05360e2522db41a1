package reports

import (
	"context"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCollectionStatus(t *testing.T) {
	today := day(2024, time.March, 10)
	yesterday := day(2024, time.March, 9)
	sameDayLater := time.Date(2024, time.March, 10, 18, 30, 0, 0, time.UTC)

	cases := []struct {
		name        string
		outstanding string
		paid        string
		due         *time.Time
		want        string
	}{
		{"nothing outstanding", "0", "1000", &yesterday, CollectionStatusFullyPaid},
		{"overpaid", "-5", "1005", nil, CollectionStatusFullyPaid},
		{"unpaid and overdue stays pending", "1000", "0", &yesterday, CollectionStatusPending},
		{"part paid past due", "400", "600", &yesterday, CollectionStatusOverdue},
		{"part paid due today", "400", "600", &sameDayLater, CollectionStatusPartiallyPaid},
		{"part paid without due date", "400", "600", nil, CollectionStatusPartiallyPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CollectionStatus(dec(tc.outstanding), dec(tc.paid), tc.due, today))
		})
	}
}

func TestSummarize(t *testing.T) {
	rows := []*CollectionReportRow{
		{InvoiceAmount: dec("1000"), PaidAmount: dec("1000"), Outstanding: dec("0"), Status: CollectionStatusFullyPaid},
		{InvoiceAmount: dec("2000"), PaidAmount: dec("500"), Outstanding: dec("1500"), Status: CollectionStatusOverdue},
		{InvoiceAmount: dec("3000"), PaidAmount: dec("0"), Outstanding: dec("3000"), Status: CollectionStatusPending},
	}

	s := Summarize(rows)

	assert.Equal(t, 3, s.TotalInvoices)
	assert.True(t, s.TotalInvoiceAmount.Equal(dec("6000")))
	assert.True(t, s.TotalCollected.Equal(dec("1500")))
	assert.True(t, s.TotalOutstanding.Equal(dec("4500")))
	assert.True(t, s.OverdueAmount.Equal(dec("1500")))

	empty := Summarize(nil)
	assert.Zero(t, empty.TotalInvoices)
	assert.True(t, empty.TotalOutstanding.IsZero())
}

func TestCollectionReportExcel(t *testing.T) {
	due := day(2024, time.February, 1)
	rows := []*CollectionReportRow{
		{
			ProjectId: 1, BlockId: 2, UnitName: "A-101", Customer: "Ravi Kumar", Milestone: "Booking",
			InvoiceNumber: "SINV-00001", InvoiceDate: day(2024, time.January, 5), DueDate: &due,
			InvoiceAmount: dec("105000"), PaidAmount: dec("5000"), Outstanding: dec("100000"),
			Status: CollectionStatusOverdue,
		},
	}
	report := &CollectionReport{Rows: rows, Summary: Summarize(rows)}

	f, err := CollectionReportExcel(report)
	require.NoError(t, err)
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue(sheetName, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Project", get("A1"))
	assert.Equal(t, "Last Remark", get("N1"))
	assert.Equal(t, "A-101", get("C2"))
	assert.Equal(t, "SINV-00001", get("F2"))
	assert.Equal(t, "2024-01-05", get("G2"))
	assert.Equal(t, "2024-02-01", get("H2"))
	assert.Equal(t, "100000", get("K2"))
	assert.Equal(t, "Overdue", get("M2"))

	assert.Equal(t, "Total Invoices", get("A4"))
	assert.Equal(t, "1", get("B4"))
	assert.Equal(t, "Overdue Amount", get("A8"))
	assert.Equal(t, "100000", get("B8"))
}

func TestPaymentScheduleExcel_TotalsRow(t *testing.T) {
	rows := []models.PaymentScheduleRow{
		{SeqNo: 1, Milestone: "Booking", Percentage: dec("10"), Amount: dec("100000"), GstAmount: dec("5000"), TdsAmount: dec("1000"), NetPayable: dec("104000"), InvoiceRef: "SINV-00001"},
		{SeqNo: 2, Milestone: "Plinth", Percentage: dec("15.5"), Amount: dec("155000"), GstAmount: dec("7750"), TdsAmount: dec("1550"), NetPayable: dec("161200")},
	}

	f, err := PaymentScheduleExcel(rows)
	require.NoError(t, err)
	defer f.Close()

	label, err := f.GetCellValue(sheetName, "C4")
	require.NoError(t, err)
	assert.Equal(t, "Total", label)
	pct, err := f.GetCellValue(sheetName, "F4")
	require.NoError(t, err)
	assert.Equal(t, "25.5", pct)
	net, err := f.GetCellValue(sheetName, "K4")
	require.NoError(t, err)
	assert.Equal(t, "265200", net)
	ref, err := f.GetCellValue(sheetName, "L2")
	require.NoError(t, err)
	assert.Equal(t, "SINV-00001", ref)
}

func TestExcelFileName(t *testing.T) {
	assert.Equal(t, "cost-sheet-12.xlsx", ExcelFileName("cost-sheet", 12))
}

func TestReportCacheKey_StableForEqualFilters(t *testing.T) {
	today := day(2024, time.March, 10)
	a, err := reportCacheKey("collection", "biz-1", CollectionReportFilter{ProjectId: 1, Customer: "Ravi"}, today)
	require.NoError(t, err)
	b, err := reportCacheKey("collection", "biz-1", CollectionReportFilter{ProjectId: 1, Customer: "Ravi"}, today)
	require.NoError(t, err)
	c, err := reportCacheKey("collection", "biz-1", CollectionReportFilter{ProjectId: 2, Customer: "Ravi"}, today)
	require.NoError(t, err)
	d, err := reportCacheKey("collection", "biz-1", CollectionReportFilter{ProjectId: 1, Customer: "Ravi"}, today.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}

func TestGetCollectionReport_ServedFromCache(t *testing.T) {
	t.Setenv("ENABLE_REPORT_CACHE", "true")
	mr := miniredis.RunT(t)
	config.SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { config.SetRedisClient(nil) })

	ctx := utils.SetBusinessIdInContext(context.Background(), "biz-1")
	today := day(2024, time.March, 10)
	filter := CollectionReportFilter{ProjectId: 1}
	key, err := reportCacheKey("collection", "biz-1", filter, today)
	require.NoError(t, err)

	cached := CollectionReport{Rows: []*CollectionReportRow{{InvoiceNumber: "SINV-00007", Outstanding: dec("10")}}}
	cached.Summary = Summarize(cached.Rows)
	cacheSet(ctx, key, &cached)
	require.True(t, mr.Exists(key))

	// no database is configured, so a cache miss would panic
	report, err := GetCollectionReport(ctx, filter, today)
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "SINV-00007", report.Rows[0].InvoiceNumber)
	assert.Equal(t, 1, report.Summary.TotalInvoices)
}

func TestReportCache_DisabledByDefault(t *testing.T) {
	t.Setenv("ENABLE_REPORT_CACHE", "")
	mr := miniredis.RunT(t)
	config.SetRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { config.SetRedisClient(nil) })

	cacheSet(context.Background(), "Report:x", map[string]int{"a": 1})
	assert.False(t, mr.Exists("Report:x"))

	var dest map[string]int
	assert.False(t, cacheGet(context.Background(), "Report:x", &dest))
}
