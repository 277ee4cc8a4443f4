package poller

import (
	"fmt"
	"strconv"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CursorStore 持久化的区块游标，存在app_state表里
type CursorStore struct {
	db *gorm.DB
}

// NewCursorStore 创建游标存储
func NewCursorStore(db *gorm.DB) *CursorStore {
	return &CursorStore{db: db}
}

// LastCheckedBlock 读取游标，没有记录时 found 为 false
func (s *CursorStore) LastCheckedBlock() (uint64, bool, error) {
	var state model.AppState
	err := s.db.Where("key = ?", model.AppStateKeyLastCheckedBlock).First(&state).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("读取区块游标失败: %w", err)
	}
	block, err := strconv.ParseUint(state.Value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("区块游标值非法: %w", err)
	}
	return block, true, nil
}

// SaveLastCheckedBlock upsert游标
func (s *CursorStore) SaveLastCheckedBlock(block uint64) error {
	state := model.AppState{
		Key:       model.AppStateKeyLastCheckedBlock,
		Value:     strconv.FormatUint(block, 10),
		UpdatedAt: time.Now(),
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&state).Error
	if err != nil {
		return fmt.Errorf("保存区块游标失败: %w", err)
	}
	return nil
}
