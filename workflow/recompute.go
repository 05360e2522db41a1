package workflow

import (
	"context"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type RecalculateSummary struct {
	Units      int            `json:"units"`
	CostSheets int            `json:"cost_sheets"`
	Failed     int            `json:"failed"`
	Errors     map[int]string `json:"errors,omitempty"`
}

// UpdateUnit saves the unit, then refreshes every cost sheet priced from it.
// Booking orders keep the figures they were created with.
func UpdateUnit(ctx context.Context, id int, input *models.NewUnit) (*models.Unit, error) {
	ctx, span := tracer.Start(ctx, "UpdateUnit", trace.WithAttributes(attribute.Int("unit_id", id)))
	defer span.End()

	unit, err := models.UpdateUnit(ctx, id, input)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if _, err := RefreshUnitCostSheets(ctx, unit.ID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return unit, nil
}

// RecalculateUnit re-derives one stored unit and its cost sheets in a single transaction.
func RecalculateUnit(ctx context.Context, id int) (*models.Unit, int, error) {
	ctx, span := tracer.Start(ctx, "RecalculateUnit", trace.WithAttributes(attribute.Int("unit_id", id)))
	defer span.End()

	return recalculate(ctx, id, true)
}

// RefreshUnitCostSheets recomputes the cost sheets of a unit without touching the unit row.
func RefreshUnitCostSheets(ctx context.Context, unitId int) (int, error) {
	_, n, err := recalculate(ctx, unitId, false)
	return n, err
}

func recalculate(ctx context.Context, unitId int, withUnit bool) (*models.Unit, int, error) {
	logger := config.GetLogger()
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, 0, err
	}
	settings, err := models.GetRateSettings(ctx)
	if err != nil {
		return nil, 0, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()

	unit, err := utils.FetchModelForUpdate[models.Unit](tx, businessId, unitId)
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}
	if withUnit {
		if _, err := models.RecalculateUnitTx(tx, unit, settings); err != nil {
			tx.Rollback()
			config.LogError(logger, "Recompute.go", "recalculate > RecalculateUnitTx", "unit", unitId, err)
			return nil, 0, err
		}
	} else {
		unit.Recompute(settings)
	}
	n, err := refreshCostSheetsTx(tx, businessId, unit, settings)
	if err != nil {
		tx.Rollback()
		config.LogError(logger, "Recompute.go", "recalculate > refreshCostSheetsTx", "unit", unitId, err)
		return nil, 0, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, 0, err
	}
	return unit, n, nil
}

func refreshCostSheetsTx(tx *gorm.DB, businessId string, unit *models.Unit, settings pricing.RateSettings) (int, error) {
	costSheets, err := models.ListCostSheetsForUnitTx(tx, businessId, unit.ID)
	if err != nil {
		return 0, err
	}
	for _, cs := range costSheets {
		if err := models.RefreshCostSheetTx(tx, cs, unit, settings); err != nil {
			return 0, err
		}
	}
	return len(costSheets), nil
}

// RecalculateAllUnits walks every unit of the business. A failing unit is logged and skipped.
func RecalculateAllUnits(ctx context.Context) (*RecalculateSummary, error) {
	ctx, span := tracer.Start(ctx, "RecalculateAllUnits")
	defer span.End()

	logger := config.GetLogger()
	ids, err := models.ListUnitIds(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RecalculateSummary{}
	for _, id := range ids {
		_, n, err := recalculate(ctx, id, true)
		if err != nil {
			summary.Failed++
			if summary.Errors == nil {
				summary.Errors = make(map[int]string)
			}
			summary.Errors[id] = err.Error()
			continue
		}
		summary.Units++
		summary.CostSheets += n
	}
	span.SetAttributes(attribute.Int("units", summary.Units), attribute.Int("failed", summary.Failed))
	if summary.Failed > 0 {
		logger.WithFields(logrus.Fields{
			"field":  "RecalculateAllUnits",
			"units":  summary.Units,
			"failed": summary.Failed,
		}).Warn("some units could not be recalculated")
	}
	return summary, nil
}
