package models

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRateSettings() pricing.RateSettings {
	return pricing.RateSettings{
		GstRate: dec("5"),
		TdsRate: dec("1"),
		UnitDefaults: pricing.UnitDefaults{
			BasePricePerSft: dec("3000"),
		},
	}
}

func TestUnitRecompute_FillsEmptyRatesFromDefaults(t *testing.T) {
	u := &Unit{Name: "A-101", SalableArea: dec("1000"), FloorNumber: 1}

	figs := u.Recompute(testRateSettings())

	require.True(t, u.BasicPricePerSft.Valid)
	assert.True(t, u.BasicPricePerSft.Decimal.Equal(dec("3000")))
	assert.True(t, u.FacingPremiumCharges.Valid)
	assert.True(t, u.FacingPremiumCharges.Decimal.IsZero())

	assert.True(t, figs.AosValue.Equal(dec("3000000")), figs.AosValue.String())
	assert.True(t, u.AosGst.Equal(dec("150000")), u.AosGst.String())
	assert.True(t, u.TdsAmount.Equal(dec("30000")), u.TdsAmount.String())
	assert.True(t, u.NetPayable.Equal(dec("3120000")), u.NetPayable.String())
	assert.Equal(t, figs, u.Figures())
}

func TestUnitRecompute_ExplicitZeroIsKept(t *testing.T) {
	u := &Unit{
		SalableArea:      dec("1000"),
		BasicPricePerSft: decimal.NewNullDecimal(decimal.Zero),
	}

	u.Recompute(testRateSettings())

	assert.True(t, u.BasicPricePerSft.Decimal.IsZero())
	assert.True(t, u.AosValue.IsZero(), u.AosValue.String())
}

func TestUnitRecompute_ZeroAreaZeroesFigures(t *testing.T) {
	u := &Unit{SalableArea: decimal.Zero, FloorNumber: 9}

	figs := u.Recompute(testRateSettings())

	assert.True(t, figs.AosValue.IsZero())
	assert.True(t, figs.NetPayable.IsZero())
	assert.True(t, figs.EffectiveRatePerSft.IsZero())
}

func TestUnitRecompute_UnitOverrideBeatsSettings(t *testing.T) {
	u := &Unit{SalableArea: dec("1000"), GstRate: dec("12")}

	u.Recompute(testRateSettings())

	assert.True(t, u.AosGst.Equal(dec("360000")), u.AosGst.String())
}

func TestUnitCheckSellable(t *testing.T) {
	cases := []struct {
		status  UnitStatus
		wantErr bool
	}{
		{UnitStatusAvailable, false},
		{"", false},
		{UnitStatusBlocked, true},
		{UnitStatusBooked, true},
		{UnitStatusSold, true},
	}
	for _, tc := range cases {
		u := &Unit{Name: "B-204", Status: tc.status}
		err := u.CheckSellable()
		if !tc.wantErr {
			assert.NoError(t, err, string(tc.status))
			continue
		}
		require.Error(t, err, string(tc.status))
		assert.True(t, pricing.IsValidationError(err))
		assert.True(t, errors.Is(err, pricing.ErrUnitNotAvailable))
	}
}

func TestUnitStatus_UnmarshalJSON(t *testing.T) {
	var s UnitStatus
	require.NoError(t, s.UnmarshalJSON([]byte(`""`)))
	assert.Equal(t, UnitStatusAvailable, s)

	require.NoError(t, s.UnmarshalJSON([]byte(`"Sold"`)))
	assert.Equal(t, UnitStatusSold, s)

	assert.Error(t, s.UnmarshalJSON([]byte(`"Reserved"`)))
	assert.Error(t, s.UnmarshalJSON([]byte(`3`)))
}

func TestCostSheetRecompute_StandardFollowsUnit(t *testing.T) {
	settings := testRateSettings()
	unit := &Unit{ID: 7, ProjectId: 1, BlockId: 2, FloorNumber: 3, SalableArea: dec("1000")}
	unit.Recompute(settings)

	cs := &CostSheet{
		CostSheetType: CostSheetTypeStandard,
		PaymentSchedule: []PaymentScheduleRow{
			{SeqNo: 1, Milestone: "Booking", Percentage: dec("10")},
			{SeqNo: 2, Milestone: "Registration", Percentage: dec("90")},
		},
	}
	figs := cs.Recompute(unit, settings)

	assert.Equal(t, 7, cs.UnitId)
	assert.Equal(t, 2, cs.BlockId)
	assert.True(t, cs.AosValue.Equal(unit.AosValue))
	assert.True(t, figs.GrandTotalPayable.Equal(cs.AosValueWithGst.Add(cs.BeforeRegistrationTotal)))

	first := cs.PaymentSchedule[0]
	assert.True(t, first.Amount.Equal(dec("300000")), first.Amount.String())
	assert.True(t, first.GstAmount.Equal(dec("15000")), first.GstAmount.String())
	assert.True(t, first.TdsAmount.Equal(dec("3000")), first.TdsAmount.String())
	assert.True(t, first.NetPayable.Equal(dec("312000")), first.NetPayable.String())
	assert.True(t, cs.PaymentSchedule[1].Amount.Equal(dec("2700000")))
}

func TestBookingOrderInvoiceSource(t *testing.T) {
	order := &BookingOrder{
		ID:          3,
		OrderNumber: "BO-0003",
		DocStatus:   DocStatusSubmitted,
		PartyName:   "Ravi Kumar",
		UnitName:    "A-101",
		ProjectId:   1,
		BlockId:     2,
		FloorNumber: 1,
		PaymentSchedule: []PaymentScheduleRow{
			{ID: 10, Milestone: "Booking", Percentage: dec("10"), Amount: dec("100")},
			{ID: 11, Milestone: "Slab", Percentage: dec("20"), Amount: dec("200"), InvoiceRef: "SINV-00001"},
		},
	}

	src := order.InvoiceSource()

	assert.Equal(t, BookingOrderDocType, src.DocType)
	assert.Equal(t, "BO-0003", src.Name)
	assert.Equal(t, DocStatusSubmitted, src.Status)
	assert.Equal(t, "1", src.Project)
	assert.Equal(t, "2", src.Block)
	require.Len(t, src.Rows, 2)
	assert.Equal(t, 10, src.Rows[0].ID)
	assert.False(t, src.Rows[0].IsInvoiced())
	assert.True(t, src.Rows[1].IsInvoiced())
}

func TestBookingOrderInvoiceSource_MissingLinksStayEmpty(t *testing.T) {
	order := &BookingOrder{ID: 4, OrderNumber: "BO-0004", DocStatus: DocStatusSubmitted}

	src := order.InvoiceSource()

	assert.Empty(t, src.Project)
	assert.Empty(t, src.Block)
}

func TestBookingOrderRecalcSchedule_InfersRatesFromHeader(t *testing.T) {
	order := &BookingOrder{
		AosValue:  dec("1000000"),
		AosGst:    dec("50000"),
		TdsAmount: dec("10000"),
		PaymentSchedule: []PaymentScheduleRow{
			{ID: 1, Percentage: dec("25"), InvoiceRef: "SINV-00009"},
		},
	}

	order.recalcSchedule()

	row := order.PaymentSchedule[0]
	assert.True(t, row.Amount.Equal(dec("250000")))
	assert.True(t, row.GstAmount.Equal(dec("12500")))
	assert.True(t, row.TdsAmount.Equal(dec("2500")))
	assert.Equal(t, "SINV-00009", row.InvoiceRef)
	assert.Equal(t, 1, row.ID)
}

func TestNormalizeCustomerPhone(t *testing.T) {
	got, err := normalizeCustomerPhone(" 98765 43210 ")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", got)

	got, err = normalizeCustomerPhone("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = normalizeCustomerPhone("12")
	require.Error(t, err)
	assert.True(t, pricing.IsValidationError(err))
}

func TestScheduleFromPricing_NumbersRows(t *testing.T) {
	rows := scheduleFromPricing("biz-1", []pricing.ScheduleRow{
		{MilestoneCore: pricing.MilestoneCore{SchemeCode: "S1", Milestone: "Booking"}, Percentage: dec("10")},
		{MilestoneCore: pricing.MilestoneCore{SchemeCode: "S2", Milestone: "Plinth"}, Percentage: dec("15")},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].SeqNo)
	assert.Equal(t, 2, rows[1].SeqNo)
	assert.Equal(t, "biz-1", rows[1].BusinessId)
	assert.Equal(t, "Plinth", rows[1].Milestone)
	assert.Zero(t, rows[0].ID)
}
