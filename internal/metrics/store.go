package metrics

import (
	"fmt"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"gorm.io/gorm"
)

// GormStore 聚合器的数据库存储
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// StaleProjects 最久没有刷新的未结束项目优先
func (s *GormStore) StaleProjects(limit int) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.Where("is_finalized = ?", false).
		Order("last_interaction_at ASC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("查询待刷新项目失败: %w", err)
	}
	return projects, nil
}

// UpdateMetrics 一轮聚合的全部指标在一次更新中落库。
// 同时推后 last_interaction_at，让下一轮挑到别的项目
func (s *GormStore) UpdateMetrics(contractAddress string, u Update) error {
	err := s.db.Model(&model.Project{}).
		Where("contract_address = ?", contractAddress).
		Updates(map[string]interface{}{
			"total_raised":        u.TotalRaised,
			"market_cap":          u.MarketCap,
			"volume_24h":          u.Volume24h,
			"holders_count":       u.HoldersCount,
			"price_change_1h":     u.Changes.H1,
			"price_change_2h":     u.Changes.H2,
			"price_change_24h":    u.Changes.H24,
			"price_change_1w":     u.Changes.W1,
			"price_change_30d":    u.Changes.D30,
			"last_interaction_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("更新项目指标失败: %w", err)
	}
	return nil
}
