package models

import (
	"testing"

	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderRows(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "business_id", "order_number", "cost_sheet_id", "unit_id", "unit_name", "project_id", "block_id",
		"party_type", "party_name", "doc_status", "aos_value", "aos_gst", "tds_amount", "grand_total_payable", "advance_paid", "balance_payable"}).
		AddRow(15, "biz-1", "BO-00015", 20, 7, "A-101", 1, 2,
			"Customer", "Ravi Kumar", status, "3000000", "150000", "30000", "3200000", "100000", "3100000")
}

func orderScheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "business_id", "reference_type", "reference_id", "seq_no", "milestone", "percentage", "amount"}).
		AddRow(50, "biz-1", "booking_orders", 15, 1, "Booking", "10", "300000").
		AddRow(51, "biz-1", "booking_orders", 15, 2, "Slab", "90", "2700000")
}

func expectBookingOrderFetch(mock sqlmock.Sqlmock, status string) {
	mock.ExpectQuery("SELECT \\* FROM `booking_orders` .* FOR UPDATE").WillReturnRows(orderRows(status))
	mock.ExpectQuery("SELECT \\* FROM `booking_orders`").WillReturnRows(orderRows(status))
	mock.ExpectQuery("SELECT \\* FROM `payment_schedule_rows`").WillReturnRows(orderScheduleRows())
}

func unitStatusRows(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "business_id", "name", "status"}).AddRow(7, "biz-1", "A-101", status)
}

func TestCreateBookingOrder_SnapshotsCostSheet(t *testing.T) {
	useMiniredis(t)
	mock := useMockDB(t)
	ctx := bizCtx()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `cost_sheets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "unit_id", "project_id", "block_id", "floor_number", "payment_scheme_template_id",
			"salable_area", "basic_price_per_sft", "aos_value", "aos_gst", "aos_value_gst", "tds_amount", "net_payable",
			"before_registration_total", "grand_total_payable"}).
			AddRow(20, "biz-1", 7, 1, 2, 1, 5,
				"1000", "3000", "3000000", "150000", "3150000", "30000", "3120000",
				"50000", "3200000"))
	mock.ExpectQuery("SELECT \\* FROM `payment_schedule_rows`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "reference_type", "reference_id", "seq_no", "scheme_code", "milestone", "percentage", "amount", "gst_amount", "tds_amount", "net_payable", "invoice_ref"}).
			AddRow(30, "biz-1", "cost_sheets", 20, 1, "BK", "Booking", "10", "300000", "15000", "3000", "312000", "SINV-00003").
			AddRow(31, "biz-1", "cost_sheets", 20, 2, "T1", "Slab", "90", "2700000", "135000", "27000", "2808000", ""))
	mock.ExpectQuery("SELECT \\* FROM `units`").WillReturnRows(unitRows("Available"))
	mock.ExpectExec("INSERT INTO `booking_orders`").WillReturnResult(sqlmock.NewResult(15, 1))
	mock.ExpectExec("INSERT INTO `payment_schedule_rows`").WillReturnResult(sqlmock.NewResult(50, 2))
	mock.ExpectExec("UPDATE `booking_orders` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := CreateBookingOrder(ctx, &NewBookingOrder{
		CostSheetId:   20,
		PartyName:     " Ravi Kumar ",
		CustomerPhone: "98765 43210",
		AdvancePaid:   dec("100000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "BO-00015", order.OrderNumber)
	assert.Equal(t, DocStatusDraft, order.DocStatus)
	assert.Equal(t, PartyTypeCustomer, order.PartyType)
	assert.Equal(t, "Ravi Kumar", order.PartyName)
	assert.Equal(t, "+919876543210", order.CustomerPhone)
	assert.Equal(t, "A-101", order.UnitName)
	assert.True(t, order.GrandTotalPayable.Equal(dec("3200000")))
	assert.True(t, order.BalancePayable.Equal(dec("3100000")), order.BalancePayable.String())

	require.Len(t, order.PaymentSchedule, 2)
	for _, row := range order.PaymentSchedule {
		assert.Empty(t, row.InvoiceRef)
		assert.Equal(t, ReferenceTypeBookingOrder, row.ReferenceType)
		assert.Equal(t, 15, row.ReferenceID)
	}
	assert.True(t, order.PaymentSchedule[0].Amount.Equal(dec("300000")))
	assert.Equal(t, "T1", order.PaymentSchedule[1].SchemeCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingOrder_ScheduleLockedAfterSubmit(t *testing.T) {
	mock := useMockDB(t)

	mock.ExpectBegin()
	expectBookingOrderFetch(mock, "Submitted")
	mock.ExpectRollback()

	_, err := UpdateBookingOrder(bizCtx(), 15, &UpdateBookingOrderInput{
		PartyName:       "Ravi Kumar",
		PaymentSchedule: []NewScheduleRow{{SchemeCode: "BK", Milestone: "Booking", Percentage: dec("100")}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pricing.ErrScheduleLocked)
	assert.True(t, pricing.IsValidationError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingOrder_AdvanceRecomputesBalance(t *testing.T) {
	mock := useMockDB(t)

	mock.ExpectBegin()
	expectBookingOrderFetch(mock, "Submitted")
	mock.ExpectExec("UPDATE `booking_orders` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := UpdateBookingOrder(bizCtx(), 15, &UpdateBookingOrderInput{
		PartyName:   "Ravi Kumar",
		AdvancePaid: dec("200000"),
	})
	require.NoError(t, err)
	assert.True(t, order.BalancePayable.Equal(dec("3000000")), order.BalancePayable.String())
	require.Len(t, order.PaymentSchedule, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBookingOrder_BooksUnit(t *testing.T) {
	mock := useMockDB(t)

	mock.ExpectBegin()
	expectBookingOrderFetch(mock, "Draft")
	mock.ExpectQuery("SELECT \\* FROM `units` .* FOR UPDATE").WillReturnRows(unitStatusRows("Available"))
	mock.ExpectExec("UPDATE `units` SET `status`=\\?").
		WithArgs(UnitStatusBooked, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `booking_orders` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := SubmitBookingOrder(bizCtx(), 15)
	require.NoError(t, err)
	assert.Equal(t, DocStatusSubmitted, order.DocStatus)
	assert.NotNil(t, order.SubmittedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitBookingOrder_RejectsUnavailableUnit(t *testing.T) {
	mock := useMockDB(t)

	mock.ExpectBegin()
	expectBookingOrderFetch(mock, "Draft")
	mock.ExpectQuery("SELECT \\* FROM `units` .* FOR UPDATE").WillReturnRows(unitStatusRows("Booked"))
	mock.ExpectRollback()

	_, err := SubmitBookingOrder(bizCtx(), 15)
	assert.ErrorIs(t, err, pricing.ErrUnitNotAvailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingOrder_ReleasesUnit(t *testing.T) {
	mock := useMockDB(t)

	mock.ExpectBegin()
	expectBookingOrderFetch(mock, "Submitted")
	mock.ExpectQuery("SELECT \\* FROM `units` .* FOR UPDATE").WillReturnRows(unitStatusRows("Booked"))
	mock.ExpectExec("UPDATE `units` SET `status`=\\?").
		WithArgs(UnitStatusAvailable, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `booking_orders` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := CancelBookingOrder(bizCtx(), 15)
	require.NoError(t, err)
	assert.Equal(t, DocStatusCancelled, order.DocStatus)
	assert.NotNil(t, order.CancelledAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelBookingOrder_AlreadyCancelled(t *testing.T) {
	mock := useMockDB(t)

	mock.ExpectBegin()
	expectBookingOrderFetch(mock, "Cancelled")
	mock.ExpectRollback()

	_, err := CancelBookingOrder(bizCtx(), 15)
	require.Error(t, err)
	assert.True(t, pricing.IsValidationError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
