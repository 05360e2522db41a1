package models

import (
	"context"
	"slices"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/pricing"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
	"gorm.io/gorm"
)

type Block struct {
	ID              int                   `gorm:"primary_key" json:"id"`
	BusinessId      string                `gorm:"index;not null" json:"business_id"`
	ProjectId       *int                  `gorm:"index" json:"project_id"`
	Name            string                `gorm:"index;size:100;not null" json:"name"`
	AllowedSchemes  []BlockPaymentScheme  `gorm:"foreignKey:BlockId" json:"allowed_schemes"`
	TowerMilestones []BlockTowerMilestone `gorm:"foreignKey:BlockId" json:"tower_milestones"`
	CreatedAt       time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// BlockPaymentScheme restricts which templates the Block's units may use. No rows means any.
type BlockPaymentScheme struct {
	ID                      int       `gorm:"primary_key" json:"id"`
	BlockId                 int       `gorm:"index;not null" json:"block_id"`
	PaymentSchemeTemplateId int       `gorm:"index;not null" json:"payment_scheme_template_id"`
	CreatedAt               time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type BlockTowerMilestone struct {
	ID            int        `gorm:"primary_key" json:"id"`
	BlockId       int        `gorm:"index;not null" json:"block_id"`
	SeqNo         int        `gorm:"not null" json:"seq_no"`
	SchemeCode    string     `gorm:"size:50;not null" json:"scheme_code"`
	Milestone     string     `gorm:"size:255" json:"milestone"`
	MilestoneDate *time.Time `gorm:"type:date" json:"milestone_date"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBlock struct {
	ProjectId *int   `json:"project_id"`
	Name      string `json:"name" validate:"required,max=100"`
}

type NewTowerMilestoneDate struct {
	SchemeCode    string     `json:"scheme_code" validate:"required"`
	MilestoneDate *time.Time `json:"milestone_date"`
}

func (b *Block) GetBusinessId() string {
	return b.BusinessId
}

func (b *Block) AllowedTemplateIds() []int {
	ids := make([]int, 0, len(b.AllowedSchemes))
	for _, s := range b.AllowedSchemes {
		ids = append(ids, s.PaymentSchemeTemplateId)
	}
	return ids
}

func (b *Block) Milestones() []pricing.TowerMilestone {
	out := make([]pricing.TowerMilestone, 0, len(b.TowerMilestones))
	for _, m := range b.TowerMilestones {
		out = append(out, pricing.TowerMilestone{
			SchemeCode:    m.SchemeCode,
			Milestone:     m.Milestone,
			MilestoneDate: m.MilestoneDate,
		})
	}
	return out
}

func (input *NewBlock) validate(ctx context.Context, businessId string, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	if id > 0 {
		if err := utils.ValidateResourceId[Block](ctx, businessId, id); err != nil {
			return err
		}
	}
	if input.ProjectId != nil && *input.ProjectId > 0 {
		if err := utils.ValidateResourceId[Project](ctx, businessId, *input.ProjectId); err != nil {
			return err
		}
	}
	return nil
}

func CreateBlock(ctx context.Context, input *NewBlock) (*Block, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	block := Block{
		BusinessId: businessId,
		ProjectId:  input.ProjectId,
		Name:       input.Name,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&block).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

func UpdateBlock(ctx context.Context, id int, input *NewBlock) (*Block, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	block, err := utils.FetchModel[Block](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(block).Updates(map[string]interface{}{
		"ProjectId": input.ProjectId,
		"Name":      input.Name,
	}).Error
	if err != nil {
		return nil, err
	}
	return block, nil
}

func GetBlock(ctx context.Context, id int) (*Block, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return fetchBlock(config.GetDB().WithContext(ctx), businessId, id)
}

func fetchBlock(tx *gorm.DB, businessId string, id int) (*Block, error) {
	var block Block
	err := tx.Where("business_id = ?", businessId).
		Preload("AllowedSchemes").
		Preload("TowerMilestones", func(db *gorm.DB) *gorm.DB { return db.Order("seq_no") }).
		First(&block, id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &block, nil
}

func ListBlocks(ctx context.Context, projectId *int) ([]*Block, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if projectId != nil && *projectId > 0 {
		dbCtx = dbCtx.Where("project_id = ?", *projectId)
	}
	var results []*Block
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AddBlockPaymentScheme allows templateId on the Block and appends the template's
// tower-specific rows to the Block's tower milestones. It returns the number of milestones added.
func AddBlockPaymentScheme(ctx context.Context, blockId int, templateId int) (*Block, int, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
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

	if _, err := utils.FetchModelForUpdate[Block](tx, businessId, blockId); err != nil {
		tx.Rollback()
		return nil, 0, err
	}
	block, err := fetchBlock(tx, businessId, blockId)
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}
	tpl, err := fetchPaymentSchemeTemplate(tx, businessId, templateId)
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	if !slices.Contains(block.AllowedTemplateIds(), tpl.ID) {
		allowed := BlockPaymentScheme{BlockId: block.ID, PaymentSchemeTemplateId: tpl.ID}
		if err := tx.Create(&allowed).Error; err != nil {
			tx.Rollback()
			return nil, 0, err
		}
		block.AllowedSchemes = append(block.AllowedSchemes, allowed)
	}

	existing := block.Milestones()
	merged, added, err := pricing.MergeTowerMilestones(tpl.Template(), existing)
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}
	for i, m := range merged[len(existing):] {
		row := BlockTowerMilestone{
			BlockId:    block.ID,
			SeqNo:      len(existing) + i + 1,
			SchemeCode: m.SchemeCode,
			Milestone:  m.Milestone,
		}
		if err := tx.Create(&row).Error; err != nil {
			tx.Rollback()
			return nil, 0, err
		}
		block.TowerMilestones = append(block.TowerMilestones, row)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, 0, err
	}
	return block, added, nil
}

// UpdateTowerMilestoneDates sets Block milestone dates by scheme code.
// Schedules materialized later pick up the new dates; existing schedules keep theirs.
func UpdateTowerMilestoneDates(ctx context.Context, blockId int, input []NewTowerMilestoneDate) (*Block, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	for i := range input {
		if err := validateInput(&input[i]); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()

	block, err := fetchBlock(tx, businessId, blockId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	index := make(map[string]int, len(block.TowerMilestones))
	for i, m := range block.TowerMilestones {
		index[m.SchemeCode] = i
	}
	for _, in := range input {
		i, ok := index[in.SchemeCode]
		if !ok {
			tx.Rollback()
			return nil, pricing.NewValidationError(utils.ErrorInvalidInput, "block %s has no tower milestone %s", block.Name, in.SchemeCode)
		}
		m := &block.TowerMilestones[i]
		if err := tx.Model(m).Update("MilestoneDate", in.MilestoneDate).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		m.MilestoneDate = in.MilestoneDate
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return block, nil
}
