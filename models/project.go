package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/config"
	"bitbucket.org/mmdatafocus/realapp_backend/utils"
)

type Project struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null" json:"business_id"`
	Name       string    `gorm:"index;size:100;not null" json:"name"`
	Code       string    `gorm:"size:20" json:"code"`
	Location   string    `gorm:"type:text" json:"location"`
	IsActive   *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProject struct {
	Name     string `json:"name" validate:"required,max=100"`
	Code     string `json:"code" validate:"max=20"`
	Location string `json:"location"`
}

func (p *Project) GetBusinessId() string {
	return p.BusinessId
}

func (input *NewProject) validate(ctx context.Context, businessId string, id int) error {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return err
	}
	if id > 0 {
		if err := utils.ValidateResourceId[Project](ctx, businessId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Project](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateProject(ctx context.Context, input *NewProject) (*Project, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	project := Project{
		BusinessId: businessId,
		Name:       input.Name,
		Code:       input.Code,
		Location:   input.Location,
		IsActive:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func UpdateProject(ctx context.Context, id int, input *NewProject) (*Project, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	project, err := utils.FetchModel[Project](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(project).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Code":     input.Code,
		"Location": input.Location,
	}).Error
	if err != nil {
		return nil, err
	}
	return project, nil
}

func GetProject(ctx context.Context, id int) (*Project, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Project](ctx, businessId, id)
}

func ListProjects(ctx context.Context) ([]*Project, error) {
	businessId, err := utils.BusinessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*Project
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
