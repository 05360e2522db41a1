package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const createInvoicesHandler = "CreateBookingOrderInvoices"

var tracer = otel.Tracer("realapp_backend/workflow")

type InvoiceRequest struct {
	Selected []int  `json:"selected"`
	Mode     string `json:"mode"`
}

type InvoiceWorkflowResult struct {
	BookingOrderId int                        `json:"booking_order_id"`
	Mode           pricing.InvoiceMode        `json:"mode"`
	Invoices       []*models.SalesInvoice     `json:"invoices"`
	InvoicedRows   map[int]pricing.InvoiceRef `json:"invoiced_rows"`
	Replayed       bool                       `json:"replayed"`
}

// CreateBookingOrderInvoices invoices the selected schedule rows of a submitted booking order.
// Invoices and row links are written in one transaction; nothing is kept when any invoice fails.
// With an idempotency key in ctx a repeated request returns the first result.
func CreateBookingOrderInvoices(ctx context.Context, bookingOrderId int, req InvoiceRequest) (*InvoiceWorkflowResult, error) {
	ctx, span := tracer.Start(ctx, createInvoicesHandler)
	defer span.End()
	span.SetAttributes(attribute.Int("booking_order_id", bookingOrderId), attribute.Int("selected", len(req.Selected)))

	logger := config.GetLogger()
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	modeName := req.Mode
	if modeName == "" {
		modeName = config.DefaultInvoiceMode()
	}
	mode, err := pricing.ParseInvoiceMode(modeName)
	if err != nil {
		return nil, err
	}

	lock := obtainBookingOrderLock(ctx, logger, businessId, bookingOrderId)
	defer func() {
		if lock == nil {
			return
		}
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			logger.WithFields(logrus.Fields{
				"field":            createInvoicesHandler,
				"business_id":      businessId,
				"booking_order_id": bookingOrderId,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}()

	idemKey, _ := utils.GetIdempotencyKeyFromContext(ctx)
	result, err := createInvoicesTx(ctx, logger, businessId, bookingOrderId, req.Selected, mode, idemKey)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if idemKey != "" && !errors.Is(err, ErrIdempotencyInProgress) {
			if markErr := MarkIdempotencyFailed(config.GetDB().WithContext(ctx), businessId, createInvoicesHandler, idemKey, err); markErr != nil {
				config.LogError(logger, "InvoiceWorkflow.go", createInvoicesHandler, "MarkIdempotencyFailed", idemKey, markErr)
			}
		}
		return nil, err
	}
	if !result.Replayed {
		publishInvoicesCreated(ctx, logger, businessId, result)
	}
	return result, nil
}

func createInvoicesTx(ctx context.Context, logger *logrus.Logger, businessId string, bookingOrderId int, selected []int, mode pricing.InvoiceMode, idemKey string) (*InvoiceWorkflowResult, error) {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()

	if idemKey != "" {
		existing, err := BeginIdempotency(tx, businessId, createInvoicesHandler, idemKey)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if existing != nil {
			tx.Rollback()
			return replayResult(existing)
		}
	}

	order, err := models.FetchBookingOrderForUpdate(tx, businessId, bookingOrderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	settings, err := models.GetRealappSettings(ctx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	sink := models.NewSalesInvoiceSink(tx, order, settings)
	invoiced, err := pricing.CreateInvoices(ctx, order.InvoiceSource(), selected, mode, sink)
	if err != nil {
		tx.Rollback()
		if !pricing.IsValidationError(err) {
			config.LogError(logger, "InvoiceWorkflow.go", createInvoicesHandler+" > CreateInvoices", "CreateInvoice", order.OrderNumber, err)
		}
		return nil, err
	}
	if err := models.MarkScheduleInvoicedTx(tx, order, invoiced.Invoiced); err != nil {
		tx.Rollback()
		config.LogError(logger, "InvoiceWorkflow.go", createInvoicesHandler+" > MarkScheduleInvoiced", "Update schedule rows", order.OrderNumber, err)
		return nil, err
	}

	result := &InvoiceWorkflowResult{
		BookingOrderId: order.ID,
		Mode:           invoiced.Mode,
		Invoices:       sink.Created,
		InvoicedRows:   invoiced.Invoiced,
	}
	if idemKey != "" {
		body, err := json.Marshal(result)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := MarkIdempotencySucceeded(tx, businessId, createInvoicesHandler, idemKey, body); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}

func replayResult(key *models.IdempotencyKey) (*InvoiceWorkflowResult, error) {
	var result InvoiceWorkflowResult
	if key.Response != nil {
		if err := utils.UnmarshalFromJSON([]byte(*key.Response), &result); err != nil {
			return nil, err
		}
	}
	result.Replayed = true
	return &result, nil
}

// obtainBookingOrderLock is best effort; the row lock on the order still serializes writers.
func obtainBookingOrderLock(ctx context.Context, logger *logrus.Logger, businessId string, bookingOrderId int) *redislock.Lock {
	fields := logrus.Fields{
		"field":            createInvoicesHandler,
		"business_id":      businessId,
		"booking_order_id": bookingOrderId,
	}
	locker := config.GetRedisLock()
	if locker == nil {
		logger.WithFields(fields).Warn("redis lock not ready; proceeding without redis lock")
		return nil
	}
	lock, err := locker.Obtain(ctx, utils.BookingOrderLockKey(businessId, bookingOrderId), 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		logger.WithFields(fields).Warn("could not obtain redis lock; proceeding without redis lock")
		return nil
	} else if err != nil {
		logger.WithFields(fields).Warn("error obtaining redis lock; proceeding without redis lock: " + err.Error())
		return nil
	}
	return lock
}

func publishInvoicesCreated(ctx context.Context, logger *logrus.Logger, businessId string, result *InvoiceWorkflowResult) {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	msg := config.InvoicesCreatedMessage{
		BusinessId:     businessId,
		BookingOrderId: result.BookingOrderId,
		Mode:           string(result.Mode),
		CreatedAt:      time.Now().UTC(),
		CorrelationId:  correlationId,
	}
	for _, inv := range result.Invoices {
		msg.InvoiceIds = append(msg.InvoiceIds, inv.ID)
		msg.InvoiceNumbers = append(msg.InvoiceNumbers, inv.InvoiceNumber)
	}
	for rowId := range result.InvoicedRows {
		msg.RowIds = append(msg.RowIds, rowId)
	}
	slices.Sort(msg.RowIds)

	if _, err := config.PublishInvoicesCreated(ctx, msg); err != nil && !errors.Is(err, config.ErrPubSubDisabled) {
		logger.WithFields(logrus.Fields{
			"field":            createInvoicesHandler,
			"business_id":      businessId,
			"booking_order_id": result.BookingOrderId,
		}).Warn("publish invoices.created failed: " + err.Error())
	}
}
