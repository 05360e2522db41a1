package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Unit struct {
	ID                    int        `gorm:"primary_key" json:"id"`
	BusinessId            string     `gorm:"index;not null" json:"business_id"`
	Name                  string     `gorm:"index;size:100;not null" json:"name"`
	ProjectId             int        `gorm:"index" json:"project_id"`
	BlockId               int        `gorm:"index" json:"block_id"`
	FloorId               int        `gorm:"index;not null" json:"floor_id"`
	FloorNumber           int        `gorm:"not null;default:0" json:"floor_number"`
	Status                UnitStatus `gorm:"type:enum('Available','Blocked','Booked','Sold');not null;default:Available" json:"status"`
	IsFloorRiseApplicable *bool      `gorm:"not null;default:true" json:"is_floor_rise_applicable"`

	SalableArea            decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"salable_area"`
	BasicPricePerSft       decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"basic_price_per_sft"`
	FacingPremiumCharges   decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"facing_premium_charges"`
	CornerPremiumCharges   decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"corner_premium_charges"`
	AmenitiesChargesPerSft decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"amenities_charges_per_sft"`
	InfraChargesPerSft     decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"infra_charges_per_sft"`
	CarParkingAmount       decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"car_parking_amount"`
	DocumentationCharges   decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"documentation_charges"`

	// rate overrides, zero reads the settings
	GstRate       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gst_rate"`
	TdsRate       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tds_rate"`
	FloorRiseRate decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"floor_rise_rate"`

	EffectiveFloorRiseRate decimal.Decimal `gorm:"column:effective_floor_rise_rate;type:decimal(20,4);default:0" json:"effective_floor_rise_rate"`
	AmenitiesChargesAmt    decimal.Decimal `gorm:"column:amenities_charges_amt;type:decimal(20,4);default:0" json:"amenities_charges_amt"`
	InfraChargesAmt        decimal.Decimal `gorm:"column:infra_charges_amt;type:decimal(20,4);default:0" json:"infra_charges_amt"`
	FloorRiseCharges       decimal.Decimal `gorm:"column:floor_rise_charges;type:decimal(20,4);default:0" json:"floor_rise_charges"`
	UnitBaseAmount         decimal.Decimal `gorm:"column:unit_base_amount;type:decimal(20,4);default:0" json:"unit_base_amount"`
	FacingPremiumAmount    decimal.Decimal `gorm:"column:facing_premium_amount;type:decimal(20,4);default:0" json:"facing_premium_amount"`
	CornerPremiumAmount    decimal.Decimal `gorm:"column:corner_premium_amount;type:decimal(20,4);default:0" json:"corner_premium_amount"`
	FullUnitValue          decimal.Decimal `gorm:"column:full_unit_value;type:decimal(20,4);default:0" json:"full_unit_value"`
	ValueExcludingBP       decimal.Decimal `gorm:"column:value_excluding_bp;type:decimal(20,4);default:0" json:"value_excluding_bp"`
	AosValue               decimal.Decimal `gorm:"column:aos_value;type:decimal(20,4);default:0" json:"aos_value"`
	AosGst                 decimal.Decimal `gorm:"column:aos_gst;type:decimal(20,4);default:0" json:"aos_gst"`
	AosValueWithGst        decimal.Decimal `gorm:"column:aos_value_gst;type:decimal(20,4);default:0" json:"aos_value_gst"`
	TdsAmount              decimal.Decimal `gorm:"column:tds_amount;type:decimal(20,4);default:0" json:"tds_amount"`
	NetPayable             decimal.Decimal `gorm:"column:net_payable;type:decimal(20,4);default:0" json:"net_payable"`
	EffectiveRatePerSft    decimal.Decimal `gorm:"column:effective_rate_per_sft;type:decimal(20,4);default:0" json:"effective_rate_per_sft"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewUnit carries the user-entered Unit fields. A null rate field takes the settings default.
type NewUnit struct {
	Name                  string     `json:"name" validate:"required,max=100"`
	FloorId               int        `json:"floor_id" validate:"required,gt=0"`
	Status                UnitStatus `json:"status"`
	IsFloorRiseApplicable *bool      `json:"is_floor_rise_applicable"`

	SalableArea            decimal.Decimal     `json:"salable_area" validate:"gte=0"`
	BasicPricePerSft       decimal.NullDecimal `json:"basic_price_per_sft" validate:"omitempty,gte=0"`
	FacingPremiumCharges   decimal.NullDecimal `json:"facing_premium_charges" validate:"omitempty,gte=0"`
	CornerPremiumCharges   decimal.NullDecimal `json:"corner_premium_charges" validate:"omitempty,gte=0"`
	AmenitiesChargesPerSft decimal.NullDecimal `json:"amenities_charges_per_sft" validate:"omitempty,gte=0"`
	InfraChargesPerSft     decimal.NullDecimal `json:"infra_charges_per_sft" validate:"omitempty,gte=0"`
	CarParkingAmount       decimal.NullDecimal `json:"car_parking_amount" validate:"omitempty,gte=0"`
	DocumentationCharges   decimal.NullDecimal `json:"documentation_charges" validate:"omitempty,gte=0"`

	GstRate       decimal.Decimal `json:"gst_rate" validate:"gte=0,lte=100"`
	TdsRate       decimal.Decimal `json:"tds_rate" validate:"gte=0,lte=100"`
	FloorRiseRate decimal.Decimal `json:"floor_rise_rate" validate:"gte=0"`
}

type UnitFilter struct {
	ProjectId int        `form:"project_id"`
	BlockId   int        `form:"block_id"`
	FloorId   int        `form:"floor_id"`
	Status    UnitStatus `form:"status"`
}

func (u *Unit) GetBusinessId() string {
	return u.BusinessId
}

func (u *Unit) floorRise() bool {
	return utils.DereferencePtr(u.IsFloorRiseApplicable, true)
}

func (u *Unit) rateFields() pricing.UnitRateFields {
	return pricing.UnitRateFields{
		BasePricePerSft:        u.BasicPricePerSft,
		FacingPremiumPerSft:    u.FacingPremiumCharges,
		CornerPremiumPerSft:    u.CornerPremiumCharges,
		CarParkingAmount:       u.CarParkingAmount,
		AmenitiesChargesPerSft: u.AmenitiesChargesPerSft,
		InfraChargesPerSft:     u.InfraChargesPerSft,
		DocumentationCharges:   u.DocumentationCharges,
	}
}

func (u *Unit) setRateFields(f pricing.UnitRateFields) {
	u.BasicPricePerSft = f.BasePricePerSft
	u.FacingPremiumCharges = f.FacingPremiumPerSft
	u.CornerPremiumCharges = f.CornerPremiumPerSft
	u.CarParkingAmount = f.CarParkingAmount
	u.AmenitiesChargesPerSft = f.AmenitiesChargesPerSft
	u.InfraChargesPerSft = f.InfraChargesPerSft
	u.DocumentationCharges = f.DocumentationCharges
}

func (u *Unit) Overrides() pricing.RateOverrides {
	return pricing.RateOverrides{
		GstRate:       u.GstRate,
		TdsRate:       u.TdsRate,
		FloorRiseRate: u.FloorRiseRate,
	}
}

// Figures reads the stored derived fields back.
func (u *Unit) Figures() pricing.UnitFigures {
	return pricing.UnitFigures{
		EffectiveFloorRiseRate: u.EffectiveFloorRiseRate,
		AmenitiesChargesAmt:    u.AmenitiesChargesAmt,
		InfraChargesAmt:        u.InfraChargesAmt,
		FloorRiseCharges:       u.FloorRiseCharges,
		UnitBaseAmount:         u.UnitBaseAmount,
		FacingPremiumAmount:    u.FacingPremiumAmount,
		CornerPremiumAmount:    u.CornerPremiumAmount,
		FullUnitValue:          u.FullUnitValue,
		ValueExcludingBP:       u.ValueExcludingBP,
		AosValue:               u.AosValue,
		AosGst:                 u.AosGst,
		AosValueWithGst:        u.AosValueWithGst,
		TdsAmount:              u.TdsAmount,
		NetPayable:             u.NetPayable,
		EffectiveRatePerSft:    u.EffectiveRatePerSft,
	}
}

func (u *Unit) applyFigures(f pricing.UnitFigures) {
	u.EffectiveFloorRiseRate = f.EffectiveFloorRiseRate
	u.AmenitiesChargesAmt = f.AmenitiesChargesAmt
	u.InfraChargesAmt = f.InfraChargesAmt
	u.FloorRiseCharges = f.FloorRiseCharges
	u.UnitBaseAmount = f.UnitBaseAmount
	u.FacingPremiumAmount = f.FacingPremiumAmount
	u.CornerPremiumAmount = f.CornerPremiumAmount
	u.FullUnitValue = f.FullUnitValue
	u.ValueExcludingBP = f.ValueExcludingBP
	u.AosValue = f.AosValue
	u.AosGst = f.AosGst
	u.AosValueWithGst = f.AosValueWithGst
	u.TdsAmount = f.TdsAmount
	u.NetPayable = f.NetPayable
	u.EffectiveRatePerSft = f.EffectiveRatePerSft
}

// Snapshot is what a cost sheet reads from this unit.
func (u *Unit) Snapshot() pricing.UnitSnapshot {
	return pricing.UnitSnapshot{
		Area:            u.SalableArea,
		BasePricePerSft: u.BasicPricePerSft.Decimal,
		Figures:         u.Figures(),
	}
}

// Recompute fills empty rate fields from the settings defaults and re-derives every figure.
func (u *Unit) Recompute(settings pricing.RateSettings) pricing.UnitFigures {
	fields := pricing.ApplyUnitDefaults(u.rateFields(), settings.UnitDefaults)
	u.setRateFields(fields)
	rates := pricing.ResolveRates(u.Overrides(), settings)
	figs := pricing.PriceUnit(pricing.NewUnitInput(u.SalableArea, u.FloorNumber, u.floorRise(), fields), rates)
	u.applyFigures(figs)
	return figs
}

// CheckSellable fails unless the unit is Available.
func (u *Unit) CheckSellable() error {
	if u.Status == UnitStatusAvailable || u.Status == "" {
		return nil
	}
	return pricing.NewValidationError(pricing.ErrUnitNotAvailable, "unit %s is %s and cannot be sold", u.Name, u.Status)
}

func (input *NewUnit) validate(ctx context.Context, businessId string, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	if id > 0 {
		if err := utils.ValidateResourceId[Unit](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Unit](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[Floor](ctx, businessId, input.FloorId); err != nil {
		return fmt.Errorf("floor %d: %w", input.FloorId, err)
	}
	return nil
}

func (u *Unit) applyInput(input *NewUnit, h *Hierarchy) {
	u.Name = input.Name
	u.FloorId = h.FloorId
	u.FloorNumber = h.FloorNumber
	u.ProjectId = h.ProjectId
	u.BlockId = h.BlockId
	u.IsFloorRiseApplicable = input.IsFloorRiseApplicable
	if u.IsFloorRiseApplicable == nil {
		u.IsFloorRiseApplicable = utils.NewTrue()
	}
	u.SalableArea = input.SalableArea
	u.BasicPricePerSft = input.BasicPricePerSft
	u.FacingPremiumCharges = input.FacingPremiumCharges
	u.CornerPremiumCharges = input.CornerPremiumCharges
	u.AmenitiesChargesPerSft = input.AmenitiesChargesPerSft
	u.InfraChargesPerSft = input.InfraChargesPerSft
	u.CarParkingAmount = input.CarParkingAmount
	u.DocumentationCharges = input.DocumentationCharges
	u.GstRate = input.GstRate
	u.TdsRate = input.TdsRate
	u.FloorRiseRate = input.FloorRiseRate
}

func CreateUnit(ctx context.Context, input *NewUnit) (*Unit, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}
	if input.Status == UnitStatusBooked {
		return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "a unit is booked through a booking order")
	}

	h, err := ResolveHierarchy(ctx, input.FloorId)
	if err != nil {
		return nil, err
	}
	settings, err := GetRateSettings(ctx)
	if err != nil {
		return nil, err
	}

	unit := Unit{BusinessId: businessId, Status: UnitStatusAvailable}
	if input.Status != "" {
		unit.Status = input.Status
	}
	unit.applyInput(input, h)
	unit.Recompute(settings)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&unit).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpdateUnit saves the new inputs and re-derives the unit. Cost sheets are refreshed by the caller.
func UpdateUnit(ctx context.Context, id int, input *NewUnit) (*Unit, error) {
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

	unit, err := utils.FetchModelForUpdate[Unit](tx, businessId, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.Status != "" && input.Status != unit.Status {
		if input.Status == UnitStatusBooked || unit.Status == UnitStatusBooked {
			tx.Rollback()
			return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "unit %s: booked status changes through booking orders", unit.Name)
		}
		unit.Status = input.Status
	}
	h, err := resolveHierarchy(tx, businessId, input.FloorId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	unit.applyInput(input, h)
	unit.Recompute(settings)

	if err := tx.Save(unit).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return unit, nil
}

// RecalculateUnitTx re-derives a stored unit with the given settings and writes
// only the derived columns and the defaulted rate fields.
func RecalculateUnitTx(tx *gorm.DB, unit *Unit, settings pricing.RateSettings) (pricing.UnitFigures, error) {
	figs := unit.Recompute(settings)
	columns := make(map[string]interface{}, 24)
	for k, v := range figs.FieldMap() {
		columns[k] = v
	}
	columns["basic_price_per_sft"] = unit.BasicPricePerSft
	columns["facing_premium_charges"] = unit.FacingPremiumCharges
	columns["corner_premium_charges"] = unit.CornerPremiumCharges
	columns["amenities_charges_per_sft"] = unit.AmenitiesChargesPerSft
	columns["infra_charges_per_sft"] = unit.InfraChargesPerSft
	columns["car_parking_amount"] = unit.CarParkingAmount
	columns["documentation_charges"] = unit.DocumentationCharges
	if err := tx.Model(unit).Updates(columns).Error; err != nil {
		return figs, err
	}
	return figs, nil
}

func GetUnit(ctx context.Context, id int) (*Unit, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Unit](ctx, businessId, id)
}

func ListUnits(ctx context.Context, filter UnitFilter) ([]*Unit, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if filter.ProjectId > 0 {
		dbCtx = dbCtx.Where("project_id = ?", filter.ProjectId)
	}
	if filter.BlockId > 0 {
		dbCtx = dbCtx.Where("block_id = ?", filter.BlockId)
	}
	if filter.FloorId > 0 {
		dbCtx = dbCtx.Where("floor_id = ?", filter.FloorId)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	var results []*Unit
	if err := dbCtx.Order("floor_number").Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListUnitIds returns every unit id of the business, for batch recalculation.
func ListUnitIds(ctx context.Context) ([]int, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var ids []int
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Unit{}).Where("business_id = ?", businessId).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// setUnitStatusTx moves unit to status when it is currently in one of from.
func setUnitStatusTx(tx *gorm.DB, unit *Unit, to UnitStatus, from ...UnitStatus) error {
	allowed := false
	for _, s := range from {
		if unit.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return pricing.NewValidationError(pricing.ErrUnitNotAvailable, "unit %s is %s and cannot be sold", unit.Name, unit.Status)
	}
	if err := tx.Model(unit).Update("Status", to).Error; err != nil {
		return err
	}
	unit.Status = to
	return nil
}
