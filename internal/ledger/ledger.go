package ledger

import (
	"fmt"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 事件台账接口
// 台账的唯一约束是幂等性的最终裁决者，内存防重层只是它前面的优化
type Store interface {
	Exists(contractAddress, txHash, eventName string) (bool, error)
	// InsertIgnore 返回本次是否真的插入了新行
	InsertIgnore(entry *model.ProjectEvent) (bool, error)
	EventsForContract(contractAddress string) ([]model.ProjectEvent, error)
	RecentEvents(contractAddress, eventName string, limit int) ([]model.ProjectEvent, error)
}

// GormStore 基于gorm的台账实现
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore 创建台账
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Exists 权威幂等检查，按 (合约, 交易哈希, 事件名) 查重
func (s *GormStore) Exists(contractAddress, txHash, eventName string) (bool, error) {
	var count int64
	err := s.db.Model(&model.ProjectEvent{}).
		Where("contract_address = ? AND tx_hash = ? AND event_name = ?", contractAddress, txHash, eventName).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询事件是否存在失败: %w", err)
	}
	return count > 0, nil
}

// InsertIgnore 冲突即忽略的写入，兜住并发写同一事件的竞态
func (s *GormStore) InsertIgnore(entry *model.ProjectEvent) (bool, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("写入事件台账失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// EventsForContract 取合约的全部台账条目，按区块升序，用于重放
func (s *GormStore) EventsForContract(contractAddress string) ([]model.ProjectEvent, error) {
	var events []model.ProjectEvent
	err := s.db.Where("contract_address = ?", contractAddress).
		Order("block_number ASC, log_index ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("读取事件台账失败: %w", err)
	}
	return events, nil
}

// RecentEvents 取最近的若干条目，按区块降序，eventName为空则不过滤
func (s *GormStore) RecentEvents(contractAddress, eventName string, limit int) ([]model.ProjectEvent, error) {
	var events []model.ProjectEvent
	query := s.db.Where("contract_address = ?", contractAddress)
	if eventName != "" {
		query = query.Where("event_name = ?", eventName)
	}
	err := query.Order("block_number DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("读取最近事件失败: %w", err)
	}
	return events, nil
}
