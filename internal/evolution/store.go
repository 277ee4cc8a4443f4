package evolution

import (
	"errors"
	"fmt"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"gorm.io/gorm"
)

// GormStore 项目/建议表的gorm实现
type GormStore struct {
	db *gorm.DB
}

var (
	_ ProjectStore    = (*GormStore)(nil)
	_ SuggestionStore = (*GormStore)(nil)
)

// NewGormStore 创建存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// GetIdleProject 只取未毕业且IDLE的项目
func (s *GormStore) GetIdleProject(contractAddress string) (*model.Project, error) {
	var project model.Project
	err := s.db.Where("contract_address = ? AND is_finalized = ? AND evolution_status = ?",
		contractAddress, false, model.StatusIdle).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询项目失败: %w", err)
	}
	return &project, nil
}

// TryTransition 条件更新实现的比较交换，影响行数为0即没抢到
func (s *GormStore) TryTransition(contractAddress string, from, to model.EvolutionStatus) (bool, error) {
	result := s.db.Model(&model.Project{}).
		Where("contract_address = ? AND evolution_status = ?", contractAddress, from).
		Update("evolution_status", to)
	if result.Error != nil {
		return false, fmt.Errorf("状态迁移失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CompleteEvolution 推进里程碑并释放锁，只在PROCESSING下生效
func (s *GormStore) CompleteEvolution(contractAddress, name, logoURL string) error {
	updates := map[string]interface{}{
		"evolution_status":        model.StatusIdle,
		"current_milestone_index": gorm.Expr("current_milestone_index + 1"),
		"last_interaction_at":     time.Now(),
	}
	if name != "" {
		updates["current_name"] = name
	}
	if logoURL != "" {
		updates["current_logo_url"] = logoURL
	}
	result := s.db.Model(&model.Project{}).
		Where("contract_address = ? AND evolution_status = ?", contractAddress, model.StatusProcessing).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("完成进化失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("完成进化失败: 项目 %s 不处于PROCESSING状态", contractAddress)
	}
	return nil
}

// ReleaseLock 只回IDLE，里程碑保持原位
func (s *GormStore) ReleaseLock(contractAddress string) error {
	err := s.db.Model(&model.Project{}).
		Where("contract_address = ? AND evolution_status = ?", contractAddress, model.StatusProcessing).
		Update("evolution_status", model.StatusIdle).Error
	if err != nil {
		return fmt.Errorf("释放进化锁失败: %w", err)
	}
	return nil
}

// ReleaseExpiredLock 过期的紧急锁定回到IDLE，仍在时效内的不动
func (s *GormStore) ReleaseExpiredLock(contractAddress string) (bool, error) {
	result := s.db.Model(&model.Project{}).
		Where("contract_address = ? AND evolution_status = ? AND emergency_lock_until <= ?",
			contractAddress, model.StatusEmergencyLocked, time.Now()).
		Updates(map[string]interface{}{
			"evolution_status":      model.StatusIdle,
			"emergency_lock_reason": "",
			"emergency_lock_until":  nil,
		})
	if result.Error != nil {
		return false, fmt.Errorf("解除过期紧急锁定失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RecentSuggestions 取最新的若干条建议，新的在前
func (s *GormStore) RecentSuggestions(contractAddress string, limit int) ([]model.Suggestion, error) {
	var suggestions []model.Suggestion
	err := s.db.Where("project_contract_address = ?", contractAddress).
		Order("created_at DESC").
		Limit(limit).
		Find(&suggestions).Error
	if err != nil {
		return nil, fmt.Errorf("读取建议失败: %w", err)
	}
	return suggestions, nil
}

// IdleRecentProjects 窗口内有过交互、未毕业且IDLE的项目
func (s *GormStore) IdleRecentProjects(limit int, since time.Time) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.Where("is_finalized = ? AND evolution_status = ? AND last_interaction_at >= ?",
		false, model.StatusIdle, since).
		Order("last_interaction_at DESC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("查询待核对项目失败: %w", err)
	}
	return projects, nil
}

// SetTotalRaised 用链上读数覆盖本地累计值
func (s *GormStore) SetTotalRaised(contractAddress, raised string) error {
	err := s.db.Model(&model.Project{}).
		Where("contract_address = ?", contractAddress).
		Update("total_raised", raised).Error
	if err != nil {
		return fmt.Errorf("纠正募资额失败: %w", err)
	}
	return nil
}

// SetEmergencyLock 运营侧紧急锁定，until 为锁定到期时间
func (s *GormStore) SetEmergencyLock(contractAddress, reason string, until time.Time) (bool, error) {
	result := s.db.Model(&model.Project{}).
		Where("contract_address = ?", contractAddress).
		Updates(map[string]interface{}{
			"evolution_status":      model.StatusEmergencyLocked,
			"emergency_lock_reason": reason,
			"emergency_lock_until":  until,
		})
	if result.Error != nil {
		return false, fmt.Errorf("紧急锁定失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ActiveEmergencyLock 返回仍在时效内的锁定原因
func (s *GormStore) ActiveEmergencyLock(contractAddress string) (string, bool, error) {
	var project model.Project
	err := s.db.Select("emergency_lock_reason", "emergency_lock_until").
		Where("contract_address = ?", contractAddress).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("查询紧急锁定失败: %w", err)
	}
	if project.EmergencyLockUntil == nil || time.Now().After(*project.EmergencyLockUntil) {
		return "", false, nil
	}
	return project.EmergencyLockReason, true, nil
}
