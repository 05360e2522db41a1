package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Floor struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"index;not null" json:"business_id"`
	BlockId     *int      `gorm:"index" json:"block_id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	FloorNumber int       `gorm:"not null;default:0" json:"floor_number"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFloor struct {
	BlockId     *int   `json:"block_id"`
	Name        string `json:"name" validate:"required,max=100"`
	FloorNumber int    `json:"floor_number" validate:"gte=0"`
}

func (f *Floor) GetBusinessId() string {
	return f.BusinessId
}

func (input *NewFloor) validate(ctx context.Context, businessId string, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	if id > 0 {
		if err := utils.ValidateResourceId[Floor](ctx, businessId, id); err != nil {
			return err
		}
	}
	if input.BlockId != nil && *input.BlockId > 0 {
		if err := utils.ValidateResourceId[Block](ctx, businessId, *input.BlockId); err != nil {
			return err
		}
	}
	return nil
}

func CreateFloor(ctx context.Context, input *NewFloor) (*Floor, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	floor := Floor{
		BusinessId:  businessId,
		BlockId:     input.BlockId,
		Name:        input.Name,
		FloorNumber: input.FloorNumber,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&floor).Error; err != nil {
		return nil, err
	}
	return &floor, nil
}

func GetFloor(ctx context.Context, id int) (*Floor, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Floor](ctx, businessId, id)
}

func ListFloors(ctx context.Context, blockId *int) ([]*Floor, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if blockId != nil && *blockId > 0 {
		dbCtx = dbCtx.Where("block_id = ?", *blockId)
	}
	var results []*Floor
	if err := dbCtx.Order("floor_number").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Hierarchy is the flattened Project > Block > Floor chain of a unit.
// Zero ids mean the link is missing.
type Hierarchy struct {
	ProjectId   int      `json:"project_id"`
	ProjectName string   `json:"project_name"`
	BlockId     int      `json:"block_id"`
	BlockName   string   `json:"block_name"`
	FloorId     int      `json:"floor_id"`
	FloorNumber int      `json:"floor_number"`
	Warnings    []string `json:"warnings,omitempty"`
}

// ResolveHierarchy chases Floor > Block > Project. A missing or dangling link is
// logged as a warning and leaves the rest of the chain empty; only fetch errors fail.
func ResolveHierarchy(ctx context.Context, floorId int) (*Hierarchy, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return resolveHierarchy(config.GetDB().WithContext(ctx), businessId, floorId)
}

func resolveHierarchy(tx *gorm.DB, businessId string, floorId int) (*Hierarchy, error) {
	floor, err := utils.FetchModelTx[Floor](tx, businessId, floorId)
	if err != nil {
		return nil, err
	}
	h := &Hierarchy{FloorId: floor.ID, FloorNumber: floor.FloorNumber}

	if floor.BlockId == nil || *floor.BlockId == 0 {
		h.warn(businessId, "floor %s has no block", floor.Name)
		return h, nil
	}
	block, err := utils.FetchModelTx[Block](tx, businessId, *floor.BlockId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			h.warn(businessId, "block of floor %s not found", floor.Name)
			return h, nil
		}
		return nil, err
	}
	h.BlockId, h.BlockName = block.ID, block.Name

	if block.ProjectId == nil || *block.ProjectId == 0 {
		h.warn(businessId, "block %s has no project", block.Name)
		return h, nil
	}
	project, err := utils.FetchModelTx[Project](tx, businessId, *block.ProjectId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			h.warn(businessId, "project of block %s not found", block.Name)
			return h, nil
		}
		return nil, err
	}
	h.ProjectId, h.ProjectName = project.ID, project.Name
	return h, nil
}

func (h *Hierarchy) warn(businessId string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.Warnings = append(h.Warnings, msg)
	config.GetLogger().WithFields(logrus.Fields{
		"business_id": businessId,
		"floor_id":    h.FloorId,
	}).Warn(msg)
}
