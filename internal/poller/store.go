package poller

import (
	"fmt"

	"github.com/LolHubFun/server-vps/internal/model"
	"gorm.io/gorm"
)

// GormProjectLister 基于数据库的项目列表和游标存储
type GormProjectLister struct {
	db *gorm.DB
}

func NewGormProjectLister(db *gorm.DB) *GormProjectLister {
	return &GormProjectLister{db: db}
}

// ActiveProjects 查询未毕业的项目，按最近交互时间倒序
func (s *GormProjectLister) ActiveProjects(limit int) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.Where("is_finalized = ?", false).
		Order("last_interaction_at DESC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("查询活跃项目失败: %w", err)
	}
	return projects, nil
}

// SaveProjectCursor 推进单个项目的扫描游标
func (s *GormProjectLister) SaveProjectCursor(contractAddress string, block uint64) error {
	err := s.db.Model(&model.Project{}).
		Where("contract_address = ?", contractAddress).
		Update("last_processed_block", block).Error
	if err != nil {
		return fmt.Errorf("保存项目游标失败: %w", err)
	}
	return nil
}
