package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	SalesInvoiceDocType = "Sales Invoice"

	invoiceNumberAttempts = 3
)

type SalesInvoice struct {
	ID               int                  `gorm:"primary_key" json:"id"`
	BusinessId       string               `gorm:"index;not null;uniqueIndex:uniq_invoice_number,priority:1" json:"business_id"`
	InvoiceNumber    string               `gorm:"size:50;not null;uniqueIndex:uniq_invoice_number,priority:2" json:"invoice_number"`
	SequenceNo       int64                `gorm:"not null" json:"sequence_no"`
	BookingOrderId   int                  `gorm:"index;not null" json:"booking_order_id"`
	OrderNumber      string               `gorm:"size:50" json:"order_number"`
	PartyName        string               `gorm:"size:255" json:"party_name"`
	UnitId           int                  `gorm:"index" json:"unit_id"`
	UnitName         string               `gorm:"size:100" json:"unit_name"`
	ProjectId        int                  `gorm:"index" json:"project_id"`
	BlockId          int                  `gorm:"index" json:"block_id"`
	FloorNumber      int                  `gorm:"default:0" json:"floor_number"`
	InvoiceDate      time.Time            `gorm:"type:date;not null" json:"invoice_date"`
	InvoiceDueDate   *time.Time           `gorm:"type:date" json:"invoice_due_date"`
	Subtotal         decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	TotalGstAmount   decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_gst_amount"`
	TotalTdsAmount   decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_tds_amount"`
	TotalAmount      decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	PaidAmount       decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	RemainingBalance decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"remaining_balance"`
	LastPaymentDate  *time.Time           `gorm:"type:date" json:"last_payment_date"`
	Remark           string               `gorm:"type:text" json:"remark"`
	CreatedBy        string               `gorm:"size:100" json:"created_by"`
	CurrentStatus    SalesInvoiceStatus   `gorm:"type:enum('Draft','Confirmed','Partial Paid','Paid','Void');not null;default:Draft" json:"current_status"`
	Details          []SalesInvoiceDetail `gorm:"foreignKey:SalesInvoiceId" json:"details"`
	CreatedAt        time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesInvoiceDetail struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	SalesInvoiceId       int             `gorm:"index;not null" json:"sales_invoice_id"`
	PaymentScheduleRowId int             `gorm:"index;not null" json:"payment_schedule_row_id"`
	ItemCode             string          `gorm:"size:100" json:"item_code"`
	Description          string          `gorm:"size:255" json:"description"`
	Qty                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Rate                 decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"rate"`
	Amount               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	GstAmount            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gst_amount"`
	TdsAmount            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tds_amount"`
	DueDate              *time.Time      `gorm:"type:date" json:"due_date"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoicePayment struct {
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentDate *time.Time      `json:"payment_date"`
	Remark      string          `json:"remark"`
}

func (si *SalesInvoice) GetBusinessId() string {
	return si.BusinessId
}

// SalesInvoiceSink persists invoices for one booking order inside the caller's transaction.
type SalesInvoiceSink struct {
	Tx         *gorm.DB
	BusinessId string
	Order      *BookingOrder
	Prefix     string
	Now        func() time.Time

	Created []*SalesInvoice
}

func NewSalesInvoiceSink(tx *gorm.DB, order *BookingOrder, settings *RealappSettings) *SalesInvoiceSink {
	return &SalesInvoiceSink{
		Tx:         tx,
		BusinessId: order.BusinessId,
		Order:      order,
		Prefix:     settings.invoicePrefix(),
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *SalesInvoiceSink) CreateInvoice(ctx context.Context, lines []pricing.InvoiceLine, meta pricing.InvoiceMeta) (pricing.InvoiceRef, error) {
	invoice := SalesInvoice{
		BusinessId:     s.BusinessId,
		BookingOrderId: s.Order.ID,
		OrderNumber:    s.Order.OrderNumber,
		PartyName:      meta.Party,
		UnitId:         s.Order.UnitId,
		UnitName:       s.Order.UnitName,
		ProjectId:      s.Order.ProjectId,
		BlockId:        s.Order.BlockId,
		FloorNumber:    meta.FloorNumber,
		InvoiceDate:    s.Now(),
		InvoiceDueDate: meta.DueDate,
		CurrentStatus:  SalesInvoiceStatusDraft,
	}
	invoice.CreatedBy, _ = utils.GetUsernameFromContext(ctx)
	for _, l := range lines {
		invoice.Details = append(invoice.Details, SalesInvoiceDetail{
			PaymentScheduleRowId: l.RowID,
			ItemCode:             l.ItemCode,
			Description:          l.Description,
			Qty:                  l.Qty,
			Rate:                 l.Rate,
			Amount:               l.Amount,
			GstAmount:            l.GstAmount,
			TdsAmount:            l.TdsAmount,
			DueDate:              l.DueDate,
		})
		invoice.Subtotal = invoice.Subtotal.Add(l.Amount)
		invoice.TotalGstAmount = invoice.TotalGstAmount.Add(l.GstAmount)
		invoice.TotalTdsAmount = invoice.TotalTdsAmount.Add(l.TdsAmount)
	}
	invoice.TotalAmount = invoice.Subtotal.Add(invoice.TotalGstAmount)
	invoice.RemainingBalance = invoice.TotalAmount

	if err := s.createNumbered(ctx, &invoice); err != nil {
		return pricing.InvoiceRef{}, err
	}
	s.Created = append(s.Created, &invoice)
	return pricing.InvoiceRef{DocType: SalesInvoiceDocType, Name: invoice.InvoiceNumber, ID: invoice.ID}, nil
}

// createNumbered inserts invoice under the next number of the prefix. The redis counter
// is the fast path; a duplicate number resyncs the counter from the table and retries.
func (s *SalesInvoiceSink) createNumbered(ctx context.Context, invoice *SalesInvoice) error {
	key := utils.InvoiceSequenceKey(s.BusinessId, s.Prefix)
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		seq, err := s.nextSequence(ctx, key, attempt > 0)
		if err != nil {
			return err
		}
		invoice.SequenceNo = seq
		invoice.InvoiceNumber = FormatInvoiceNumber(s.Prefix, seq)

		err = s.Tx.Create(invoice).Error
		if err == nil {
			return nil
		}
		if !IsDuplicateKeyErr(err) {
			return err
		}
		config.GetLogger().WithFields(logrus.Fields{
			"business_id":    s.BusinessId,
			"invoice_number": invoice.InvoiceNumber,
			"attempt":        attempt + 1,
		}).Warn("invoice number taken, resyncing sequence")
		invoice.ID = 0
		for i := range invoice.Details {
			invoice.Details[i].ID = 0
			invoice.Details[i].SalesInvoiceId = 0
		}
	}
	return fmt.Errorf("no free invoice number for prefix %s after %d attempts", s.Prefix, invoiceNumberAttempts)
}

func (s *SalesInvoiceSink) nextSequence(ctx context.Context, key string, resync bool) (int64, error) {
	if !resync {
		seq, err := config.GetRedisCounter(ctx, key)
		if err == nil && seq > 0 {
			return seq, nil
		}
		if err != nil {
			config.GetLogger().WithFields(logrus.Fields{
				"business_id": s.BusinessId,
				"error":       err.Error(),
			}).Warn("invoice sequence counter unavailable")
		}
	}

	var max int64
	err := s.Tx.Model(&SalesInvoice{}).
		Where("business_id = ? AND invoice_number LIKE ?", s.BusinessId, s.Prefix+"-%").
		Select("COALESCE(MAX(sequence_no), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	seq := max + 1
	if rdb := config.GetRedisDB(); rdb != nil {
		if err := rdb.Set(ctx, key, seq, 0).Err(); err != nil {
			config.GetLogger().WithFields(logrus.Fields{
				"business_id": s.BusinessId,
				"error":       err.Error(),
			}).Warn("invoice sequence counter resync failed")
		}
	}
	return seq, nil
}

func FormatInvoiceNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%05d", strings.TrimSpace(prefix), seq)
}

// IsDuplicateKeyErr reports a MySQL unique key violation.
func IsDuplicateKeyErr(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func GetSalesInvoice(ctx context.Context, id int) (*SalesInvoice, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[SalesInvoice](ctx, businessId, id, "Details")
}

func ListSalesInvoices(ctx context.Context, bookingOrderId int) ([]*SalesInvoice, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if bookingOrderId > 0 {
		dbCtx = dbCtx.Where("booking_order_id = ?", bookingOrderId)
	}
	var results []*SalesInvoice
	if err := dbCtx.Preload("Details").Order("sequence_no").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ConfirmSalesInvoice moves a Draft invoice to Confirmed; only confirmed invoices are collected.
func ConfirmSalesInvoice(ctx context.Context, id int) (*SalesInvoice, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	invoice, err := utils.FetchModel[SalesInvoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if invoice.CurrentStatus != SalesInvoiceStatusDraft {
		return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "invoice %s is %s", invoice.InvoiceNumber, invoice.CurrentStatus)
	}
	if err := db.WithContext(ctx).Model(invoice).Update("CurrentStatus", SalesInvoiceStatusConfirmed).Error; err != nil {
		return nil, err
	}
	invoice.CurrentStatus = SalesInvoiceStatusConfirmed
	return invoice, nil
}

// RecordSalesInvoicePayment records a receipt against a confirmed invoice.
func RecordSalesInvoicePayment(ctx context.Context, id int, input *NewInvoicePayment) (*SalesInvoice, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()

	invoice, err := utils.FetchModelForUpdate[SalesInvoice](tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	switch invoice.CurrentStatus {
	case SalesInvoiceStatusConfirmed, SalesInvoiceStatusPartialPaid:
	default:
		tx.Rollback()
		return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "invoice %s is %s", invoice.InvoiceNumber, invoice.CurrentStatus)
	}
	if input.Amount.GreaterThan(invoice.RemainingBalance) {
		tx.Rollback()
		return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "payment %s exceeds balance %s", input.Amount.StringFixed(2), invoice.RemainingBalance.StringFixed(2))
	}

	paidOn := utils.DereferencePtr(input.PaymentDate, time.Now().UTC())
	invoice.PaidAmount = invoice.PaidAmount.Add(input.Amount)
	invoice.RemainingBalance = invoice.TotalAmount.Sub(invoice.PaidAmount)
	invoice.LastPaymentDate = &paidOn
	invoice.CurrentStatus = SalesInvoiceStatusPartialPaid
	if !invoice.RemainingBalance.IsPositive() {
		invoice.CurrentStatus = SalesInvoiceStatusPaid
	}
	if input.Remark != "" {
		invoice.Remark = input.Remark
	}
	if err := tx.Model(invoice).Updates(map[string]interface{}{
		"PaidAmount":       invoice.PaidAmount,
		"RemainingBalance": invoice.RemainingBalance,
		"LastPaymentDate":  invoice.LastPaymentDate,
		"CurrentStatus":    invoice.CurrentStatus,
		"Remark":           invoice.Remark,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return invoice, nil
}
