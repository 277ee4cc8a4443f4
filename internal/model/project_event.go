package model

import (
	"time"
)

// ProjectEvent 链上事件台账，(tx_hash, event_name, contract_address) 唯一
// 只插入、不更新、不删除，是重放持仓/交易量的事实来源
type ProjectEvent struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ContractAddress string `json:"contract_address" gorm:"size:42;not null;uniqueIndex:idx_project_events_dedup,priority:3;index"`
	BlockNumber     uint64 `json:"block_number" gorm:"not null"`
	TxHash          string `json:"tx_hash" gorm:"size:66;not null;uniqueIndex:idx_project_events_dedup,priority:1"`
	LogIndex        uint   `json:"log_index"`
	EventName       string `json:"event_name" gorm:"not null;uniqueIndex:idx_project_events_dedup,priority:2"`
	EventData       string `json:"event_data" gorm:"type:text"`
}

// 台账中出现的事件名
const (
	EventInvested     = "Invested"
	EventSold         = "Sold"
	EventFinalized    = "Finalized"
	EventTokenCreated = "TokenCreated"
)
