package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsWithPercentages(pcts ...string) []ScheduleRow {
	rows := make([]ScheduleRow, 0, len(pcts))
	for i, p := range pcts {
		rows = append(rows, ScheduleRow{ID: i + 1, Percentage: dec(p)})
	}
	return rows
}

func TestRecalcSchedule_SplitsBase(t *testing.T) {
	rows := rowsWithPercentages("50", "30", "20")

	got := RecalcSchedule(rows, dec("100000"), ScheduleRates{GstRate: dec("5"), TdsRate: dec("1")})

	expected := []string{"50000", "30000", "20000"}
	sum := decimal.Zero
	for i, r := range got {
		assertDec(t, expected[i], r.Amount, "amount")
		sum = sum.Add(r.Amount)
	}
	assertDec(t, "100000", sum, "sum")

	assertDec(t, "2500", got[0].GstAmount, "gst_amount")
	assertDec(t, "500", got[0].TdsAmount, "tds_amount")
	assertDec(t, "52000", got[0].NetPayable, "net_payable")
}

func TestRecalcSchedule_SumFollowsPercentages(t *testing.T) {
	cases := []struct {
		base string
		pcts []string
	}{
		{"123456.78", []string{"10", "20", "25"}},
		{"100000", []string{"33.33", "33.33", "33.34"}},
		{"3150000", []string{"10", "15", "15", "15", "15", "15", "15"}},
		{"0", []string{"40", "60"}},
	}
	for _, tc := range cases {
		rows := RecalcSchedule(rowsWithPercentages(tc.pcts...), dec(tc.base), ScheduleRates{GstRate: dec("5"), TdsRate: dec("1")})
		totals := SumSchedule(rows)

		want := dec(tc.base).Mul(totals.Percentage).Div(decimal.NewFromInt(100))
		tolerance := dec("0.005").Mul(decimal.NewFromInt(int64(len(rows))))
		diff := totals.Amount.Sub(want).Abs()
		if diff.GreaterThan(tolerance) {
			t.Fatalf("base %s: sum %s differs from %s by %s", tc.base, totals.Amount, want, diff)
		}
		for _, r := range rows {
			assert.True(t, r.NetPayable.Equal(r.Amount.Add(r.GstAmount).Sub(r.TdsAmount)))
		}
	}
}

func TestRecalcSchedule_ReDerivesEveryRow(t *testing.T) {
	rows := RecalcSchedule(rowsWithPercentages("50", "50"), dec("1000"), ScheduleRates{GstRate: dec("5"), TdsRate: dec("1")})
	rows[0].InvoiceRef = "SINV-0001"
	rows[1].Amount = dec("999999")

	// percentage edit plus a new row
	rows[0].Percentage = dec("40")
	rows = append(rows, ScheduleRow{ID: 3, Percentage: dec("10")})

	got := RecalcSchedule(rows, dec("2000"), ScheduleRates{GstRate: dec("5"), TdsRate: dec("1")})

	require.Len(t, got, 3)
	assertDec(t, "800", got[0].Amount, "row 1")
	assertDec(t, "1000", got[1].Amount, "row 2")
	assertDec(t, "200", got[2].Amount, "row 3")
	assert.Equal(t, "SINV-0001", got[0].InvoiceRef)
	assert.Equal(t, 1, got[0].ID)

	// the input slice is not touched
	assertDec(t, "999999", rows[1].Amount, "input row 2")
}

func TestInferScheduleRates(t *testing.T) {
	r := InferScheduleRates(dec("3000000"), dec("150000"), dec("30000"))
	assertDec(t, "5", r.GstRate, "gst")
	assertDec(t, "1", r.TdsRate, "tds")

	r = InferScheduleRates(dec("2000000"), dec("240000"), dec("0"))
	assertDec(t, "12", r.GstRate, "gst")
	assertDec(t, "0", r.TdsRate, "tds")

	r = InferScheduleRates(decimal.Zero, dec("100"), dec("100"))
	assertDec(t, "5", r.GstRate, "default gst")
	assertDec(t, "1", r.TdsRate, "default tds")
}

func TestExplicitScheduleRates(t *testing.T) {
	r := ExplicitScheduleRates(ResolvedRates{GstRate: dec("18"), TdsRate: dec("2")})
	assertDec(t, "18", r.GstRate, "gst")
	assertDec(t, "2", r.TdsRate, "tds")
}
