package workflow

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingOrderRows(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "business_id", "order_number", "unit_id", "unit_name", "project_id", "block_id", "party_name", "doc_status", "aos_value", "aos_gst", "tds_amount"}).
		AddRow(3, "biz-1", "BO-0003", 7, "A-101", 1, 2, "Ravi Kumar", status, "1000000", "50000", "10000")
}

func scheduleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "business_id", "reference_type", "reference_id", "seq_no", "milestone", "percentage", "amount", "gst_amount", "tds_amount", "net_payable", "invoice_ref"}).
		AddRow(10, "biz-1", "booking_orders", 3, 1, "Booking", "10", "100000", "5000", "1000", "104000", "").
		AddRow(11, "biz-1", "booking_orders", 3, 2, "Plinth", "20", "200000", "10000", "2000", "208000", "")
}

func expectOrderFetch(mock sqlmock.Sqlmock, status string) {
	mock.ExpectQuery("SELECT \\* FROM `booking_orders` .* FOR UPDATE").WillReturnRows(bookingOrderRows(status))
	mock.ExpectQuery("SELECT \\* FROM `booking_orders`").WillReturnRows(bookingOrderRows(status))
	mock.ExpectQuery("SELECT \\* FROM `payment_schedule_rows`").WillReturnRows(scheduleRows())
}

func TestCreateBookingOrderInvoices_Batch(t *testing.T) {
	t.Setenv("PUBSUB_TOPIC", "")
	mr := useMiniredis(t)
	mock := useMockDB(t)
	ctx := utils.SetIdempotencyKeyInContext(bizCtx(), "req-1")
	cacheSettings(t, ctx)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `idempotency_keys`").WillReturnResult(sqlmock.NewResult(1, 1))
	expectOrderFetch(mock, "Submitted")
	mock.ExpectExec("INSERT INTO `sales_invoices`").WillReturnResult(sqlmock.NewResult(50, 1))
	mock.ExpectExec("INSERT INTO `sales_invoice_details`").WillReturnResult(sqlmock.NewResult(70, 1))
	mock.ExpectExec("UPDATE `payment_schedule_rows` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `idempotency_keys` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := CreateBookingOrderInvoices(ctx, 3, InvoiceRequest{Selected: []int{10, 10}, Mode: "batch"})
	require.NoError(t, err)

	assert.False(t, result.Replayed)
	assert.Equal(t, pricing.InvoiceModeBatch, result.Mode)
	require.Len(t, result.Invoices, 1)
	assert.Equal(t, "SINV-00001", result.Invoices[0].InvoiceNumber)
	assert.True(t, result.Invoices[0].TotalAmount.Equal(result.Invoices[0].Subtotal.Add(result.Invoices[0].TotalGstAmount)))
	require.Len(t, result.InvoicedRows, 1)
	assert.Equal(t, "SINV-00001", result.InvoicedRows[10].Name)
	assert.Equal(t, 50, result.InvoicedRows[10].ID)
	require.NoError(t, mock.ExpectationsWereMet())

	// the booking order lock is released once the request finishes
	assert.False(t, mr.Exists(utils.BookingOrderLockKey("biz-1", 3)))
}

func TestCreateBookingOrderInvoices_DraftOrderRollsBack(t *testing.T) {
	useMiniredis(t)
	mock := useMockDB(t)
	ctx := bizCtx()
	cacheSettings(t, ctx)

	mock.ExpectBegin()
	expectOrderFetch(mock, "Draft")
	mock.ExpectRollback()

	_, err := CreateBookingOrderInvoices(ctx, 3, InvoiceRequest{Selected: []int{10}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrNotSubmitted))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingOrderInvoices_FailureMarksIdempotencyKey(t *testing.T) {
	useMiniredis(t)
	mock := useMockDB(t)
	ctx := utils.SetIdempotencyKeyInContext(bizCtx(), "req-9")
	cacheSettings(t, ctx)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `idempotency_keys`").WillReturnResult(sqlmock.NewResult(1, 1))
	expectOrderFetch(mock, "Submitted")
	mock.ExpectRollback()
	mock.ExpectExec("INSERT INTO `idempotency_keys`").WillReturnResult(sqlmock.NewResult(2, 1))

	_, err := CreateBookingOrderInvoices(ctx, 3, InvoiceRequest{Selected: []int{99}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrRowNotInvoiceable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingOrderInvoices_ReplaysSucceededKey(t *testing.T) {
	useMiniredis(t)
	mock := useMockDB(t)
	ctx := utils.SetIdempotencyKeyInContext(bizCtx(), "req-1")

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `idempotency_keys`").WillReturnError(duplicateEntry)
	mock.ExpectQuery("SELECT \\* FROM `idempotency_keys`").
		WillReturnRows(idempotencyRows("SUCCEEDED", `{"booking_order_id":3,"mode":"batch","invoiced_rows":{"10":{"doctype":"Sales Invoice","name":"SINV-00001","id":50}}}`, nowUTC()))
	mock.ExpectRollback()

	result, err := CreateBookingOrderInvoices(ctx, 3, InvoiceRequest{Selected: []int{10}})
	require.NoError(t, err)
	assert.True(t, result.Replayed)
	assert.Equal(t, "SINV-00001", result.InvoicedRows[10].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingOrderInvoices_RejectsBeforeTouchingDatabase(t *testing.T) {
	config.SetDB(nil)

	_, err := CreateBookingOrderInvoices(context.Background(), 3, InvoiceRequest{Selected: []int{10}})
	assert.ErrorIs(t, err, utils.ErrorBusinessRequired)

	_, err = CreateBookingOrderInvoices(bizCtx(), 3, InvoiceRequest{Selected: []int{10}, Mode: "weekly"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrInvalidInvoiceMode))
}

func TestObtainBookingOrderLock(t *testing.T) {
	useMiniredis(t)
	ctx := context.Background()
	logger := config.GetLogger()

	first := obtainBookingOrderLock(ctx, logger, "biz-1", 3)
	require.NotNil(t, first)
	assert.Nil(t, obtainBookingOrderLock(ctx, logger, "biz-1", 3))
	require.NoError(t, first.Release(ctx))

	config.SetRedisClient(nil)
	assert.Nil(t, obtainBookingOrderLock(ctx, logger, "biz-1", 3))
}
