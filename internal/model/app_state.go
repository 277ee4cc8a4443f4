package model

import (
	"time"
)

// AppState 持久化的键值状态，目前存放轮询器的区块游标
type AppState struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppStateKeyLastCheckedBlock 工厂合约轮询器的游标键
const AppStateKeyLastCheckedBlock = "lastCheckedBlock"
