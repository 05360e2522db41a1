package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DefaultInvoicePrefix = "SINV"

// RealappSettings is the single settings record of a business.
// Zero rates fall through to the pricing defaults.
type RealappSettings struct {
	ID                            int             `gorm:"primary_key" json:"id"`
	BusinessId                    string          `gorm:"uniqueIndex;size:64;not null" json:"business_id"`
	GstRate                       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gst_rate"`
	TdsRate                       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tds_rate"`
	FloorRiseRate                 decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"floor_rise_rate"`
	MaintenanceGstRate            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"maintenance_gst_rate"`
	MaintenanceRatePerSft         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"maintenance_rate_per_sft"`
	CorpusFundRatePerSft          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"corpus_fund_rate_per_sft"`
	MoveInCharges                 decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"move_in_charges"`
	RefundableCautionDeposit      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"refundable_caution_deposit"`
	RegistrationCharges           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"registration_charges"`
	DefaultBasePricePerSft        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_base_price_per_sft"`
	DefaultFacingPremiumPerSft    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_facing_premium_per_sft"`
	DefaultCornerPremiumPerSft    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_corner_premium_per_sft"`
	DefaultCarParkingAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_car_parking_amount"`
	DefaultAmenitiesChargesPerSft decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_amenities_charges_per_sft"`
	DefaultInfraChargesPerSft     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_infra_charges_per_sft"`
	DefaultDocumentationCharges   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"default_documentation_charges"`
	InvoicePrefix                 string          `gorm:"size:20;not null;default:SINV" json:"invoice_prefix"`
	CreatedAt                     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRealappSettings struct {
	GstRate                       decimal.Decimal `json:"gst_rate" validate:"gte=0"`
	TdsRate                       decimal.Decimal `json:"tds_rate" validate:"gte=0"`
	FloorRiseRate                 decimal.Decimal `json:"floor_rise_rate" validate:"gte=0"`
	MaintenanceGstRate            decimal.Decimal `json:"maintenance_gst_rate" validate:"gte=0"`
	MaintenanceRatePerSft         decimal.Decimal `json:"maintenance_rate_per_sft" validate:"gte=0"`
	CorpusFundRatePerSft          decimal.Decimal `json:"corpus_fund_rate_per_sft" validate:"gte=0"`
	MoveInCharges                 decimal.Decimal `json:"move_in_charges" validate:"gte=0"`
	RefundableCautionDeposit      decimal.Decimal `json:"refundable_caution_deposit" validate:"gte=0"`
	RegistrationCharges           decimal.Decimal `json:"registration_charges" validate:"gte=0"`
	DefaultBasePricePerSft        decimal.Decimal `json:"default_base_price_per_sft" validate:"gte=0"`
	DefaultFacingPremiumPerSft    decimal.Decimal `json:"default_facing_premium_per_sft" validate:"gte=0"`
	DefaultCornerPremiumPerSft    decimal.Decimal `json:"default_corner_premium_per_sft" validate:"gte=0"`
	DefaultCarParkingAmount       decimal.Decimal `json:"default_car_parking_amount" validate:"gte=0"`
	DefaultAmenitiesChargesPerSft decimal.Decimal `json:"default_amenities_charges_per_sft" validate:"gte=0"`
	DefaultInfraChargesPerSft     decimal.Decimal `json:"default_infra_charges_per_sft" validate:"gte=0"`
	DefaultDocumentationCharges   decimal.Decimal `json:"default_documentation_charges" validate:"gte=0"`
	InvoicePrefix                 string          `json:"invoice_prefix" validate:"omitempty,max=20,alphanum"`
}

func (s *RealappSettings) GetBusinessId() string {
	return s.BusinessId
}

// RateSettings is the read-only view the calculators take.
func (s *RealappSettings) RateSettings() pricing.RateSettings {
	return pricing.RateSettings{
		GstRate:            s.GstRate,
		TdsRate:            s.TdsRate,
		FloorRiseRate:      s.FloorRiseRate,
		MaintenanceGstRate: s.MaintenanceGstRate,
		BeforeRegistration: pricing.BeforeRegistrationConfig{
			MaintenanceRatePerSft:    s.MaintenanceRatePerSft,
			CorpusFundRatePerSft:     s.CorpusFundRatePerSft,
			MoveInCharges:            s.MoveInCharges,
			RefundableCautionDeposit: s.RefundableCautionDeposit,
			RegistrationCharges:      s.RegistrationCharges,
		},
		UnitDefaults: pricing.UnitDefaults{
			BasePricePerSft:        s.DefaultBasePricePerSft,
			FacingPremiumPerSft:    s.DefaultFacingPremiumPerSft,
			CornerPremiumPerSft:    s.DefaultCornerPremiumPerSft,
			CarParkingAmount:       s.DefaultCarParkingAmount,
			AmenitiesChargesPerSft: s.DefaultAmenitiesChargesPerSft,
			InfraChargesPerSft:     s.DefaultInfraChargesPerSft,
			DocumentationCharges:   s.DefaultDocumentationCharges,
		},
	}
}

func (s *RealappSettings) invoicePrefix() string {
	if p := strings.TrimSpace(s.InvoicePrefix); p != "" {
		return p
	}
	return DefaultInvoicePrefix
}

// first find in redis, then in db; a business without a settings row gets the defaults
func GetRealappSettings(ctx context.Context) (*RealappSettings, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var cached RealappSettings
	found, err := config.GetRedisObject(ctx, utils.SettingsCacheKey(businessId), &cached)
	if err != nil {
		config.GetLogger().WithFields(logrus.Fields{
			"business_id": businessId,
			"error":       err.Error(),
		}).Warn("settings cache read failed")
	}
	if found {
		return &cached, nil
	}

	var settings RealappSettings
	db := config.GetDB()
	err = db.WithContext(ctx).Where("business_id = ?", businessId).First(&settings).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		settings = RealappSettings{BusinessId: businessId, InvoicePrefix: DefaultInvoicePrefix}
	}

	if err := config.SetRedisObject(ctx, utils.SettingsCacheKey(businessId), &settings, utils.GetCacheLifespan()); err != nil {
		config.GetLogger().WithFields(logrus.Fields{
			"business_id": businessId,
			"error":       err.Error(),
		}).Warn("settings cache write failed")
	}
	return &settings, nil
}

func GetRateSettings(ctx context.Context) (pricing.RateSettings, error) {
	settings, err := GetRealappSettings(ctx)
	if err != nil {
		return pricing.RateSettings{}, err
	}
	return settings.RateSettings(), nil
}

func UpsertRealappSettings(ctx context.Context, input *NewRealappSettings) (*RealappSettings, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var settings RealappSettings
	err = db.WithContext(ctx).Where("business_id = ?", businessId).First(&settings).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings.BusinessId = businessId
	settings.GstRate = input.GstRate
	settings.TdsRate = input.TdsRate
	settings.FloorRiseRate = input.FloorRiseRate
	settings.MaintenanceGstRate = input.MaintenanceGstRate
	settings.MaintenanceRatePerSft = input.MaintenanceRatePerSft
	settings.CorpusFundRatePerSft = input.CorpusFundRatePerSft
	settings.MoveInCharges = input.MoveInCharges
	settings.RefundableCautionDeposit = input.RefundableCautionDeposit
	settings.RegistrationCharges = input.RegistrationCharges
	settings.DefaultBasePricePerSft = input.DefaultBasePricePerSft
	settings.DefaultFacingPremiumPerSft = input.DefaultFacingPremiumPerSft
	settings.DefaultCornerPremiumPerSft = input.DefaultCornerPremiumPerSft
	settings.DefaultCarParkingAmount = input.DefaultCarParkingAmount
	settings.DefaultAmenitiesChargesPerSft = input.DefaultAmenitiesChargesPerSft
	settings.DefaultInfraChargesPerSft = input.DefaultInfraChargesPerSft
	settings.DefaultDocumentationCharges = input.DefaultDocumentationCharges
	settings.InvoicePrefix = input.InvoicePrefix
	if settings.InvoicePrefix == "" {
		settings.InvoicePrefix = DefaultInvoicePrefix
	}

	if err := db.WithContext(ctx).Save(&settings).Error; err != nil {
		return nil, err
	}
	if err := config.RemoveRedisKey(ctx, utils.SettingsCacheKey(businessId)); err != nil {
		config.LogError(config.GetLogger(), "Settings", "UpsertRealappSettings", "remove cache", businessId, err)
	}
	return &settings, nil
}
