package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CostSheet struct {
	ID                      int                 `gorm:"primary_key" json:"id"`
	BusinessId              string              `gorm:"index;not null" json:"business_id"`
	UnitId                  int                 `gorm:"index;not null" json:"unit_id"`
	ProjectId               int                 `gorm:"index" json:"project_id"`
	BlockId                 int                 `gorm:"index" json:"block_id"`
	FloorNumber             int                 `gorm:"default:0" json:"floor_number"`
	CostSheetType           CostSheetType       `gorm:"type:enum('Standard','Negotiated');not null;default:Standard" json:"cost_sheet_type"`
	PaymentSchemeTemplateId *int                `gorm:"index" json:"payment_scheme_template_id"`
	CustomerName            string              `gorm:"size:255" json:"customer_name"`
	NegotiatedPricePerSft   decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"negotiated_price_per_sft"`
	GstRate                 decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"gst_rate"`
	TdsRate                 decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"tds_rate"`

	SalableArea         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"salable_area"`
	BasicPricePerSft    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"basic_price_per_sft"`
	FullUnitValue       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"full_unit_value"`
	ValueExcludingBP    decimal.Decimal `gorm:"column:value_excluding_bp;type:decimal(20,4);default:0" json:"value_excluding_bp"`
	AosValue            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"aos_value"`
	AosGst              decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"aos_gst"`
	AosValueWithGst     decimal.Decimal `gorm:"column:aos_value_gst;type:decimal(20,4);default:0" json:"aos_value_gst"`
	TdsAmount           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tds_amount"`
	NetPayable          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_payable"`
	EffectiveRatePerSft decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"effective_rate_per_sft"`

	MaintenanceCharges       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"maintenance_charges"`
	MaintenanceGst           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"maintenance_gst"`
	CorpusFund               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"corpus_fund"`
	MoveInCharges            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"move_in_charges"`
	RefundableCautionDeposit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"refundable_caution_deposit"`
	RegistrationCharges      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"registration_charges"`
	BeforeRegistrationTotal  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"before_registration_total"`
	GrandTotalPayable        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"grand_total_payable"`

	PaymentSchedule []PaymentScheduleRow `gorm:"polymorphic:Reference" json:"payment_schedule"`
	CreatedAt       time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCostSheet struct {
	UnitId                  int                 `json:"unit_id" validate:"required,gt=0"`
	CostSheetType           CostSheetType       `json:"cost_sheet_type"`
	PaymentSchemeTemplateId *int                `json:"payment_scheme_template_id"`
	CustomerName            string              `json:"customer_name" validate:"max=255"`
	NegotiatedPricePerSft   decimal.NullDecimal `json:"negotiated_price_per_sft" validate:"omitempty,gte=0"`
	GstRate                 decimal.Decimal     `json:"gst_rate" validate:"gte=0,lte=100"`
	TdsRate                 decimal.Decimal     `json:"tds_rate" validate:"gte=0,lte=100"`
	// PaymentSchedule is used as entered when no template is given; on update nil keeps the rows.
	PaymentSchedule []NewScheduleRow `json:"payment_schedule" validate:"dive"`
}

func (cs *CostSheet) GetBusinessId() string {
	return cs.BusinessId
}

// rate overrides: the cost sheet's own, then the unit's
func (cs *CostSheet) overrides(unit *Unit) pricing.RateOverrides {
	o := unit.Overrides()
	if !cs.GstRate.IsZero() {
		o.GstRate = cs.GstRate
	}
	if !cs.TdsRate.IsZero() {
		o.TdsRate = cs.TdsRate
	}
	return o
}

func (cs *CostSheet) applyFigures(f pricing.CostSheetFigures) {
	h, b := f.Header, f.BeforeRegistration
	cs.SalableArea = h.SalableArea
	cs.BasicPricePerSft = h.BasicPricePerSft
	cs.FullUnitValue = h.FullUnitValue
	cs.ValueExcludingBP = h.ValueExcludingBP
	cs.AosValue = h.AosValue
	cs.AosGst = h.AosGst
	cs.AosValueWithGst = h.AosValueWithGst
	cs.TdsAmount = h.TdsAmount
	cs.NetPayable = h.NetPayable
	cs.EffectiveRatePerSft = h.EffectiveRatePerSft

	cs.MaintenanceCharges = b.MaintenanceCharges
	cs.MaintenanceGst = b.MaintenanceGst
	cs.CorpusFund = b.CorpusFund
	cs.MoveInCharges = b.MoveInCharges
	cs.RefundableCautionDeposit = b.RefundableCautionDeposit
	cs.RegistrationCharges = b.RegistrationCharges
	cs.BeforeRegistrationTotal = b.Total
	cs.GrandTotalPayable = f.GrandTotalPayable
}

// Recompute derives the header, the before-registration charges and the schedule amounts.
// The schedule base is the AOS value; its rates are inferred from the header so a
// Standard sheet follows the unit's own rates.
func (cs *CostSheet) Recompute(unit *Unit, settings pricing.RateSettings) pricing.CostSheetFigures {
	cs.UnitId = unit.ID
	cs.ProjectId = unit.ProjectId
	cs.BlockId = unit.BlockId
	cs.FloorNumber = unit.FloorNumber

	figs := pricing.ComputeCostSheet(pricing.HeaderInput{
		Type:             cs.CostSheetType,
		Unit:             unit.Snapshot(),
		BasicPricePerSft: cs.NegotiatedPricePerSft,
		Rates:            pricing.ResolveRates(cs.overrides(unit), settings),
	}, settings.BeforeRegistration)
	cs.applyFigures(figs)

	h := figs.Header
	recalcRows(cs.PaymentSchedule, h.AosValue, pricing.InferScheduleRates(h.AosValue, h.AosGst, h.TdsAmount))
	return figs
}

func (input *NewCostSheet) validate(ctx context.Context, businessId string, id int) error {
	if input.CostSheetType == "" {
		input.CostSheetType = CostSheetTypeStandard
	}
	if !input.CostSheetType.IsValid() {
		return pricing.NewValidationError(utils.ErrorInvalidInput, "invalid cost sheet type %s", input.CostSheetType)
	}
	if err := validateInput(input); err != nil {
		return err
	}
	if id > 0 {
		if err := utils.ValidateResourceId[CostSheet](ctx, businessId, id); err != nil {
			return err
		}
	}
	return nil
}

// materializeTx builds the schedule of templateId for unit, checking the unit's Block allows it.
func materializeTx(tx *gorm.DB, businessId string, unit *Unit, templateId int) ([]pricing.ScheduleRow, error) {
	tpl, err := fetchPaymentSchemeTemplate(tx, businessId, templateId)
	if err != nil {
		return nil, err
	}
	var tower []pricing.TowerMilestone
	if unit.BlockId > 0 {
		block, err := fetchBlock(tx, businessId, unit.BlockId)
		if err != nil {
			return nil, err
		}
		if err := pricing.CheckTemplateAllowed(tpl.ID, block.AllowedTemplateIds()); err != nil {
			return nil, err
		}
		tower = block.Milestones()
	}
	return pricing.MaterializeSchedule(tpl.Template(), tower)
}

func CreateCostSheet(ctx context.Context, input *NewCostSheet) (*CostSheet, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}
	settings, err := GetRateSettings(ctx)
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

	unit, err := utils.FetchModelTx[Unit](tx, businessId, input.UnitId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := unit.CheckSellable(); err != nil {
		tx.Rollback()
		return nil, err
	}

	rows := scheduleFromInput(input.PaymentSchedule)
	if input.PaymentSchemeTemplateId != nil && *input.PaymentSchemeTemplateId > 0 {
		rows, err = materializeTx(tx, businessId, unit, *input.PaymentSchemeTemplateId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	costSheet := CostSheet{
		BusinessId:              businessId,
		CostSheetType:           input.CostSheetType,
		PaymentSchemeTemplateId: input.PaymentSchemeTemplateId,
		CustomerName:            input.CustomerName,
		NegotiatedPricePerSft:   input.NegotiatedPricePerSft,
		GstRate:                 input.GstRate,
		TdsRate:                 input.TdsRate,
		PaymentSchedule:         scheduleFromPricing(businessId, rows),
	}
	costSheet.Recompute(unit, settings)

	if err := tx.Create(&costSheet).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &costSheet, nil
}

// UpdateCostSheet saves new inputs. A changed template replaces the whole schedule;
// otherwise entered rows replace the schedule, and nil rows keep it.
func UpdateCostSheet(ctx context.Context, id int, input *NewCostSheet) (*CostSheet, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}
	settings, err := GetRateSettings(ctx)
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

	costSheet, err := fetchCostSheetForUpdate(tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	unit, err := utils.FetchModelTx[Unit](tx, businessId, input.UnitId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := unit.CheckSellable(); err != nil {
		tx.Rollback()
		return nil, err
	}

	var replaced []pricing.ScheduleRow
	templateChanged := input.PaymentSchemeTemplateId != nil && *input.PaymentSchemeTemplateId > 0 &&
		(costSheet.PaymentSchemeTemplateId == nil || *costSheet.PaymentSchemeTemplateId != *input.PaymentSchemeTemplateId)
	switch {
	case templateChanged:
		replaced, err = materializeTx(tx, businessId, unit, *input.PaymentSchemeTemplateId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	case input.PaymentSchedule != nil:
		replaced = scheduleFromInput(input.PaymentSchedule)
	}

	costSheet.CostSheetType = input.CostSheetType
	costSheet.CustomerName = input.CustomerName
	costSheet.NegotiatedPricePerSft = input.NegotiatedPricePerSft
	costSheet.GstRate = input.GstRate
	costSheet.TdsRate = input.TdsRate
	if input.PaymentSchemeTemplateId != nil {
		costSheet.PaymentSchemeTemplateId = input.PaymentSchemeTemplateId
	}
	if replaced != nil || input.PaymentSchedule != nil {
		if err := deleteScheduleTx(tx, ReferenceTypeCostSheet, costSheet.ID); err != nil {
			tx.Rollback()
			return nil, err
		}
		costSheet.PaymentSchedule = scheduleFromPricing(businessId, replaced)
	}

	if err := saveCostSheetTx(tx, costSheet, unit, settings); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return costSheet, nil
}

// RefreshCostSheetTx recomputes costSheet from unit and saves header and rows.
func RefreshCostSheetTx(tx *gorm.DB, costSheet *CostSheet, unit *Unit, settings pricing.RateSettings) error {
	return saveCostSheetTx(tx, costSheet, unit, settings)
}

func saveCostSheetTx(tx *gorm.DB, costSheet *CostSheet, unit *Unit, settings pricing.RateSettings) error {
	costSheet.Recompute(unit, settings)
	if err := tx.Omit("PaymentSchedule").Save(costSheet).Error; err != nil {
		return err
	}
	return saveScheduleTx(tx, ReferenceTypeCostSheet, costSheet.ID, costSheet.PaymentSchedule)
}

// saveScheduleTx updates existing rows and inserts new ones.
func saveScheduleTx(tx *gorm.DB, refType string, refId int, rows []PaymentScheduleRow) error {
	for i := range rows {
		rows[i].ReferenceType = refType
		rows[i].ReferenceID = refId
		rows[i].SeqNo = i + 1
		if err := tx.Save(&rows[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func deleteScheduleTx(tx *gorm.DB, refType string, refId int) error {
	return tx.Where("reference_type = ? AND reference_id = ?", refType, refId).Delete(&PaymentScheduleRow{}).Error
}

func preloadSchedule(db *gorm.DB) *gorm.DB {
	return db.Order("seq_no")
}

func fetchCostSheetForUpdate(tx *gorm.DB, businessId string, id int) (*CostSheet, error) {
	if _, err := utils.FetchModelForUpdate[CostSheet](tx, businessId, id); err != nil {
		return nil, err
	}
	return fetchCostSheet(tx, businessId, id)
}

func fetchCostSheet(tx *gorm.DB, businessId string, id int) (*CostSheet, error) {
	var costSheet CostSheet
	err := tx.Where("business_id = ?", businessId).
		Preload("PaymentSchedule", preloadSchedule).
		First(&costSheet, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &costSheet, nil
}

func GetCostSheet(ctx context.Context, id int) (*CostSheet, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return fetchCostSheet(config.GetDB().WithContext(ctx), businessId, id)
}

func ListCostSheets(ctx context.Context, unitId int) ([]*CostSheet, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if unitId > 0 {
		dbCtx = dbCtx.Where("unit_id = ?", unitId)
	}
	var results []*CostSheet
	if err := dbCtx.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListCostSheetsForUnitTx loads every cost sheet of a unit with its schedule.
func ListCostSheetsForUnitTx(tx *gorm.DB, businessId string, unitId int) ([]*CostSheet, error) {
	var results []*CostSheet
	err := tx.Where("business_id = ? AND unit_id = ?", businessId, unitId).
		Preload("PaymentSchedule", preloadSchedule).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
