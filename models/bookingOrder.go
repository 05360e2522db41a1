package models

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const BookingOrderDocType = "Booking Order"

type BookingOrder struct {
	ID                      int       `gorm:"primary_key" json:"id"`
	BusinessId              string    `gorm:"index;not null" json:"business_id"`
	OrderNumber             string    `gorm:"index;size:50" json:"order_number"`
	CostSheetId             int       `gorm:"index;not null" json:"cost_sheet_id"`
	UnitId                  int       `gorm:"index;not null" json:"unit_id"`
	UnitName                string    `gorm:"size:100" json:"unit_name"`
	ProjectId               int       `gorm:"index" json:"project_id"`
	BlockId                 int       `gorm:"index" json:"block_id"`
	FloorNumber             int       `gorm:"default:0" json:"floor_number"`
	PaymentSchemeTemplateId *int      `gorm:"index" json:"payment_scheme_template_id"`
	PartyType               PartyType `gorm:"type:enum('Customer','Lead');not null;default:Customer" json:"party_type"`
	PartyName               string    `gorm:"size:255;not null" json:"party_name"`
	CustomerPhone           string    `gorm:"size:20" json:"customer_phone"`
	BookingDate             time.Time `gorm:"type:date;not null" json:"booking_date"`

	SalableArea             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"salable_area"`
	BasicPricePerSft        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"basic_price_per_sft"`
	AosValue                decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"aos_value"`
	AosGst                  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"aos_gst"`
	AosValueWithGst         decimal.Decimal `gorm:"column:aos_value_gst;type:decimal(20,4);default:0" json:"aos_value_gst"`
	TdsAmount               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tds_amount"`
	NetPayable              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_payable"`
	BeforeRegistrationTotal decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"before_registration_total"`
	GrandTotalPayable       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grand_total_payable"`
	AdvancePaid             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"advance_paid"`
	BalancePayable          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"balance_payable"`

	DocStatus       DocStatus            `gorm:"type:enum('Draft','Submitted','Cancelled');not null;default:Draft" json:"doc_status"`
	SubmittedAt     *time.Time           `json:"submitted_at"`
	CancelledAt     *time.Time           `json:"cancelled_at"`
	PaymentSchedule []PaymentScheduleRow `gorm:"polymorphic:Reference" json:"payment_schedule"`
	CreatedAt       time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBookingOrder struct {
	CostSheetId   int             `json:"cost_sheet_id" validate:"required,gt=0"`
	PartyType     PartyType       `json:"party_type"`
	PartyName     string          `json:"party_name" validate:"required,max=255"`
	CustomerPhone string          `json:"customer_phone" validate:"max=20"`
	BookingDate   *time.Time      `json:"booking_date"`
	AdvancePaid   decimal.Decimal `json:"advance_paid" validate:"gte=0"`
}

// UpdateBookingOrderInput edits a booking order. Nil PaymentSchedule keeps the rows.
type UpdateBookingOrderInput struct {
	PartyName       string           `json:"party_name" validate:"required,max=255"`
	CustomerPhone   string           `json:"customer_phone" validate:"max=20"`
	AdvancePaid     decimal.Decimal  `json:"advance_paid" validate:"gte=0"`
	PaymentSchedule []NewScheduleRow `json:"payment_schedule" validate:"dive"`
}

type BookingOrderFilter struct {
	UnitId    int       `form:"unit_id"`
	DocStatus DocStatus `form:"doc_status"`
}

func (o *BookingOrder) GetBusinessId() string {
	return o.BusinessId
}

func (o *BookingOrder) balance() {
	o.BalancePayable = o.GrandTotalPayable.Sub(o.AdvancePaid)
}

// InvoiceSource is the calculator view used for milestone invoicing.
func (o *BookingOrder) InvoiceSource() pricing.InvoiceSource {
	return pricing.InvoiceSource{
		DocType:     BookingOrderDocType,
		Name:        o.OrderNumber,
		ID:          o.ID,
		Status:      o.DocStatus,
		Party:       o.PartyName,
		Unit:        o.UnitName,
		Project:     linkLabel(o.ProjectId),
		Block:       linkLabel(o.BlockId),
		FloorNumber: o.FloorNumber,
		Rows:        scheduleToPricing(o.PaymentSchedule),
	}
}

// linkLabel is empty for an unset link.
func linkLabel(id int) string {
	if id <= 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func (o *BookingOrder) recalcSchedule() {
	recalcRows(o.PaymentSchedule, o.AosValue, pricing.InferScheduleRates(o.AosValue, o.AosGst, o.TdsAmount))
}

func normalizeCustomerPhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	normalized, err := utils.NormalizePhoneNumber(phone, config.PhoneDefaultRegion())
	if err != nil {
		return "", pricing.NewValidationError(err, "%s", phone)
	}
	return normalized, nil
}

// CreateBookingOrder snapshots a cost sheet into a Draft booking order and copies its schedule.
func CreateBookingOrder(ctx context.Context, input *NewBookingOrder) (*BookingOrder, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	input.PartyName = strings.TrimSpace(input.PartyName)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	phone, err := normalizeCustomerPhone(input.CustomerPhone)
	if err != nil {
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

	costSheet, err := fetchCostSheet(tx, businessId, input.CostSheetId)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("fetch cost sheet %d: %w", input.CostSheetId, err)
	}
	unit, err := utils.FetchModelTx[Unit](tx, businessId, costSheet.UnitId)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("fetch unit %d: %w", costSheet.UnitId, err)
	}
	if err := unit.CheckSellable(); err != nil {
		tx.Rollback()
		return nil, err
	}

	order := BookingOrder{
		BusinessId:              businessId,
		CostSheetId:             costSheet.ID,
		UnitId:                  unit.ID,
		UnitName:                unit.Name,
		ProjectId:               costSheet.ProjectId,
		BlockId:                 costSheet.BlockId,
		FloorNumber:             costSheet.FloorNumber,
		PaymentSchemeTemplateId: costSheet.PaymentSchemeTemplateId,
		PartyType:               input.PartyType,
		PartyName:               input.PartyName,
		CustomerPhone:           phone,
		BookingDate:             utils.DereferencePtr(input.BookingDate, time.Now().UTC()),
		SalableArea:             costSheet.SalableArea,
		BasicPricePerSft:        costSheet.BasicPricePerSft,
		AosValue:                costSheet.AosValue,
		AosGst:                  costSheet.AosGst,
		AosValueWithGst:         costSheet.AosValueWithGst,
		TdsAmount:               costSheet.TdsAmount,
		NetPayable:              costSheet.NetPayable,
		BeforeRegistrationTotal: costSheet.BeforeRegistrationTotal,
		GrandTotalPayable:       costSheet.GrandTotalPayable,
		AdvancePaid:             input.AdvancePaid,
		DocStatus:               DocStatusDraft,
		PaymentSchedule:         scheduleFromPricing(businessId, scheduleToPricing(costSheet.PaymentSchedule)),
	}
	if order.PartyType == "" {
		order.PartyType = PartyTypeCustomer
	}
	for i := range order.PaymentSchedule {
		order.PaymentSchedule[i].InvoiceRef = ""
	}
	order.balance()

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	order.OrderNumber = fmt.Sprintf("BO-%05d", order.ID)
	if err := tx.Model(&order).Omit("PaymentSchedule").Update("OrderNumber", order.OrderNumber).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateBookingOrder changes party details and the advance; schedule edits need a Draft order.
func UpdateBookingOrder(ctx context.Context, id int, input *UpdateBookingOrderInput) (*BookingOrder, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	input.PartyName = strings.TrimSpace(input.PartyName)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	phone, err := normalizeCustomerPhone(input.CustomerPhone)
	if err != nil {
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

	order, err := FetchBookingOrderForUpdate(tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.DocStatus == DocStatusCancelled {
		tx.Rollback()
		return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "booking order %s is cancelled", order.OrderNumber)
	}
	if input.PaymentSchedule != nil {
		if order.DocStatus != DocStatusDraft {
			tx.Rollback()
			return nil, pricing.NewValidationError(pricing.ErrScheduleLocked, "%s", order.OrderNumber)
		}
		if err := deleteScheduleTx(tx, ReferenceTypeBookingOrder, order.ID); err != nil {
			tx.Rollback()
			return nil, err
		}
		order.PaymentSchedule = scheduleFromPricing(businessId, scheduleFromInput(input.PaymentSchedule))
		order.recalcSchedule()
	}

	order.PartyName = input.PartyName
	order.CustomerPhone = phone
	order.AdvancePaid = input.AdvancePaid
	order.balance()

	if err := tx.Omit("PaymentSchedule").Save(order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.PaymentSchedule != nil {
		if err := saveScheduleTx(tx, ReferenceTypeBookingOrder, order.ID, order.PaymentSchedule); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order, nil
}

// SubmitBookingOrder locks the schedule and books the unit. The unit must be Available.
func SubmitBookingOrder(ctx context.Context, id int) (*BookingOrder, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
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

	order, err := FetchBookingOrderForUpdate(tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.DocStatus != DocStatusDraft {
		tx.Rollback()
		return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "booking order %s is %s", order.OrderNumber, order.DocStatus)
	}
	unit, err := utils.FetchModelForUpdate[Unit](tx, businessId, order.UnitId)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("fetch unit %d: %w", order.UnitId, err)
	}
	if err := setUnitStatusTx(tx, unit, UnitStatusBooked, UnitStatusAvailable); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now().UTC()
	order.DocStatus = DocStatusSubmitted
	order.SubmittedAt = &now
	if err := tx.Model(order).Omit("PaymentSchedule").Updates(map[string]interface{}{
		"DocStatus":   order.DocStatus,
		"SubmittedAt": order.SubmittedAt,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CancelBookingOrder cancels the order and releases a Booked unit back to Available.
func CancelBookingOrder(ctx context.Context, id int) (*BookingOrder, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
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

	order, err := FetchBookingOrderForUpdate(tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.DocStatus == DocStatusCancelled {
		tx.Rollback()
		return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "booking order %s is already cancelled", order.OrderNumber)
	}
	if order.DocStatus == DocStatusSubmitted {
		unit, err := utils.FetchModelForUpdate[Unit](tx, businessId, order.UnitId)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("fetch unit %d: %w", order.UnitId, err)
		}
		if unit.Status == UnitStatusBooked {
			if err := tx.Model(unit).Update("Status", UnitStatusAvailable).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	}

	now := time.Now().UTC()
	order.DocStatus = DocStatusCancelled
	order.CancelledAt = &now
	if err := tx.Model(order).Omit("PaymentSchedule").Updates(map[string]interface{}{
		"DocStatus":   order.DocStatus,
		"CancelledAt": order.CancelledAt,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order, nil
}

// FetchBookingOrderForUpdate row-locks the order and loads its schedule.
func FetchBookingOrderForUpdate(tx *gorm.DB, businessId string, id int) (*BookingOrder, error) {
	if _, err := utils.FetchModelForUpdate[BookingOrder](tx, businessId, id); err != nil {
		return nil, err
	}
	return fetchBookingOrder(tx, businessId, id)
}

func fetchBookingOrder(tx *gorm.DB, businessId string, id int) (*BookingOrder, error) {
	var order BookingOrder
	err := tx.Where("business_id = ?", businessId).
		Preload("PaymentSchedule", preloadSchedule).
		First(&order, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &order, nil
}

func GetBookingOrder(ctx context.Context, id int) (*BookingOrder, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return fetchBookingOrder(config.GetDB().WithContext(ctx), businessId, id)
}

func ListBookingOrders(ctx context.Context, filter BookingOrderFilter) ([]*BookingOrder, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if filter.UnitId > 0 {
		dbCtx = dbCtx.Where("unit_id = ?", filter.UnitId)
	}
	if filter.DocStatus != "" {
		dbCtx = dbCtx.Where("doc_status = ?", filter.DocStatus)
	}
	var results []*BookingOrder
	if err := dbCtx.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MarkScheduleInvoicedTx writes the invoice links of result onto the order's rows.
func MarkScheduleInvoicedTx(tx *gorm.DB, order *BookingOrder, invoiced map[int]pricing.InvoiceRef) error {
	for i := range order.PaymentSchedule {
		row := &order.PaymentSchedule[i]
		ref, ok := invoiced[row.ID]
		if !ok {
			continue
		}
		invoiceId := ref.ID
		if err := tx.Model(row).Updates(map[string]interface{}{
			"InvoiceRef":     ref.Name,
			"SalesInvoiceId": &invoiceId,
		}).Error; err != nil {
			return err
		}
		row.InvoiceRef = ref.Name
		row.SalesInvoiceId = &invoiceId
	}
	return nil
}
