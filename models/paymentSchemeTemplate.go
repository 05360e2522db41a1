package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentSchemeTemplate struct {
	ID         int                   `gorm:"primary_key" json:"id"`
	BusinessId string                `gorm:"index;not null" json:"business_id"`
	Name       string                `gorm:"index;size:100;not null" json:"name"`
	IsActive   *bool                 `gorm:"not null;default:true" json:"is_active"`
	Details    []PaymentSchemeDetail `gorm:"foreignKey:TemplateId" json:"details"`
	CreatedAt  time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

type PaymentSchemeDetail struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TemplateId    int             `gorm:"index;not null" json:"template_id"`
	SeqNo         int             `gorm:"not null" json:"seq_no"`
	SchemeCode    string          `gorm:"size:50;not null" json:"scheme_code"`
	Milestone     string          `gorm:"size:255" json:"milestone"`
	MilestoneItem string          `gorm:"size:100" json:"milestone_item"`
	Particulars   string          `gorm:"size:100" json:"particulars"`
	Percentage    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"percentage"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaymentSchemeTemplate struct {
	Name     string                   `json:"name" validate:"required,max=100"`
	IsActive *bool                    `json:"is_active"`
	Details  []NewPaymentSchemeDetail `json:"details" validate:"dive"`
}

type NewPaymentSchemeDetail struct {
	SchemeCode    string          `json:"scheme_code" validate:"required,max=50"`
	Milestone     string          `json:"milestone" validate:"max=255"`
	MilestoneItem string          `json:"milestone_item" validate:"max=100"`
	Particulars   string          `json:"particulars" validate:"max=100"`
	Percentage    decimal.Decimal `json:"percentage" validate:"gte=0,lte=100"`
}

func (t *PaymentSchemeTemplate) GetBusinessId() string {
	return t.BusinessId
}

// Template is the calculator view, rows in SeqNo order.
func (t *PaymentSchemeTemplate) Template() *pricing.Template {
	tpl := &pricing.Template{ID: t.ID, Name: t.Name, Rows: make([]pricing.TemplateRow, 0, len(t.Details))}
	for _, d := range t.Details {
		tpl.Rows = append(tpl.Rows, pricing.TemplateRow{
			MilestoneCore: pricing.MilestoneCore{
				SchemeCode:    d.SchemeCode,
				Milestone:     d.Milestone,
				MilestoneItem: d.MilestoneItem,
				Particulars:   d.Particulars,
			},
			Percentage: d.Percentage,
		})
	}
	return tpl
}

func (input *NewPaymentSchemeTemplate) template() pricing.Template {
	tpl := pricing.Template{Name: input.Name}
	for _, d := range input.Details {
		tpl.Rows = append(tpl.Rows, pricing.TemplateRow{
			MilestoneCore: pricing.MilestoneCore{SchemeCode: strings.TrimSpace(d.SchemeCode)},
			Percentage:    d.Percentage,
		})
	}
	return tpl
}

func (input *NewPaymentSchemeTemplate) validate(ctx context.Context, businessId string, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	if id > 0 {
		if err := utils.ValidateResourceId[PaymentSchemeTemplate](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[PaymentSchemeTemplate](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	return pricing.ValidateTemplate(input.template())
}

func (input *NewPaymentSchemeTemplate) details() []PaymentSchemeDetail {
	details := make([]PaymentSchemeDetail, 0, len(input.Details))
	for i, d := range input.Details {
		details = append(details, PaymentSchemeDetail{
			SeqNo:         i + 1,
			SchemeCode:    strings.TrimSpace(d.SchemeCode),
			Milestone:     d.Milestone,
			MilestoneItem: d.MilestoneItem,
			Particulars:   d.Particulars,
			Percentage:    d.Percentage,
		})
	}
	return details
}

func CreatePaymentSchemeTemplate(ctx context.Context, input *NewPaymentSchemeTemplate) (*PaymentSchemeTemplate, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	tpl := PaymentSchemeTemplate{
		BusinessId: businessId,
		Name:       input.Name,
		IsActive:   utils.NewTrue(),
		Details:    input.details(),
	}
	if input.IsActive != nil {
		tpl.IsActive = input.IsActive
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// UpdatePaymentSchemeTemplate replaces the template rows. Schedules already materialized keep their copies.
func UpdatePaymentSchemeTemplate(ctx context.Context, id int, input *NewPaymentSchemeTemplate) (*PaymentSchemeTemplate, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
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

	tpl, err := utils.FetchModelForUpdate[PaymentSchemeTemplate](tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("template_id = ?", tpl.ID).Delete(&PaymentSchemeDetail{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	tpl.Name = input.Name
	if input.IsActive != nil {
		tpl.IsActive = input.IsActive
	}
	tpl.Details = input.details()
	for i := range tpl.Details {
		tpl.Details[i].TemplateId = tpl.ID
	}
	if err := tx.Omit("Details").Save(tpl).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(tpl.Details) > 0 {
		if err := tx.Create(&tpl.Details).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return tpl, nil
}

func GetPaymentSchemeTemplate(ctx context.Context, id int) (*PaymentSchemeTemplate, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return fetchPaymentSchemeTemplate(config.GetDB().WithContext(ctx), businessId, id)
}

func fetchPaymentSchemeTemplate(tx *gorm.DB, businessId string, id int) (*PaymentSchemeTemplate, error) {
	var tpl PaymentSchemeTemplate
	err := tx.Where("business_id = ?", businessId).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("seq_no") }).
		First(&tpl, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &tpl, nil
}

func ListPaymentSchemeTemplates(ctx context.Context, activeOnly bool) ([]*PaymentSchemeTemplate, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if activeOnly {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}
	var results []*PaymentSchemeTemplate
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
