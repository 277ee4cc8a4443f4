package event

import (
	"fmt"
	"math/big"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectStore 项目写操作的gorm实现
type GormProjectStore struct {
	db *gorm.DB
}

var _ ProjectStore = (*GormProjectStore)(nil)

// NewGormProjectStore 创建存储
func NewGormProjectStore(db *gorm.DB) *GormProjectStore {
	return &GormProjectStore{db: db}
}

// CreateIfAbsent 主键冲突即忽略
func (s *GormProjectStore) CreateIfAbsent(project *model.Project) (bool, error) {
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(project)
	if result.Error != nil {
		return false, fmt.Errorf("创建项目失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AdjustRaised 增减募资总额并刷新活跃时间
func (s *GormProjectStore) AdjustRaised(contractAddress string, delta *big.Int) error {
	if delta == nil || delta.Sign() == 0 {
		return nil
	}
	err := s.db.Model(&model.Project{}).
		Where("contract_address = ?", contractAddress).
		Updates(map[string]interface{}{
			"total_raised":        gorm.Expr("total_raised + ?::numeric", delta.String()),
			"last_interaction_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("更新募资总额失败: %w", err)
	}
	return nil
}

// MarkFinalized 标记毕业
func (s *GormProjectStore) MarkFinalized(contractAddress, lpPair string) error {
	err := s.db.Model(&model.Project{}).
		Where("contract_address = ?", contractAddress).
		Updates(map[string]interface{}{
			"is_finalized":        true,
			"lp_pair_address":     lpPair,
			"last_interaction_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("标记毕业失败: %w", err)
	}
	return nil
}

// UpsertSuggestion 同一 (项目, 地址) 的建议只留最新一条
func (s *GormProjectStore) UpsertSuggestion(suggestion *model.Suggestion) error {
	suggestion.CreatedAt = time.Now()
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "project_contract_address"},
			{Name: "suggester_address"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"name_suggestion", "char_suggestion", "created_at"}),
	}).Create(suggestion).Error
	if err != nil {
		return fmt.Errorf("保存建议失败: %w", err)
	}
	return nil
}
