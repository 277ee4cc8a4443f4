package model

import (
	"time"
)

// Project 代币项目模型，每个已部署的代币合约对应一条记录
type Project struct {
	// 合约地址作为主键，统一小写存储
	ContractAddress string    `json:"contract_address" gorm:"primaryKey;size:42"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// 链信息
	ChainId   int64  `json:"chain_id" gorm:"not null;index"`
	ChainName string `json:"chain_name"`

	// 创建者信息
	CreatorAddress string `json:"creator_address" gorm:"not null;size:42"`

	// 展示信息（进化管线会覆写 name/logo）
	CurrentName    string `json:"current_name"`
	CurrentSymbol  string `json:"current_symbol"`
	CurrentLogoURL string `json:"current_logo_url"`

	// 进化状态机
	EvolutionMode         EvolutionMode   `json:"evolution_mode" gorm:"not null;default:'standard'"`
	EvolutionStatus       EvolutionStatus `json:"evolution_status" gorm:"not null;default:'IDLE';index"`
	CurrentMilestoneIndex int             `json:"current_milestone_index" gorm:"default:0"`

	// 聚合指标，wei 精度用字符串存储
	TotalRaised    string  `json:"total_raised" gorm:"type:numeric;default:0"`
	MarketCap      string  `json:"market_cap" gorm:"type:numeric;default:0"`
	Volume24h      string  `json:"volume_24h" gorm:"type:numeric;default:0"`
	HoldersCount   int     `json:"holders_count" gorm:"default:0"`
	PriceChange1h  float64 `json:"price_change_1h" gorm:"default:0"`
	PriceChange2h  float64 `json:"price_change_2h" gorm:"default:0"`
	PriceChange24h float64 `json:"price_change_24h" gorm:"default:0"`
	PriceChange1w  float64 `json:"price_change_1w" gorm:"default:0"`
	PriceChange30d float64 `json:"price_change_30d" gorm:"default:0"`

	// 毕业信息
	IsFinalized   bool   `json:"is_finalized" gorm:"default:false;index"`
	LpPairAddress string `json:"lp_pair_address"`

	// 事件轮询游标与活跃时间
	LastProcessedBlock uint64    `json:"last_processed_block" gorm:"default:0"`
	LastInteractionAt  time.Time `json:"last_interaction_at" gorm:"index"`

	// 紧急锁定（运营人工干预，带时效）
	EmergencyLockReason string     `json:"emergency_lock_reason"`
	EmergencyLockUntil  *time.Time `json:"emergency_lock_until"`
}

// EvolutionMode 进化模式，创建后不可变更
type EvolutionMode string

const (
	ModeStandard  EvolutionMode = "standard"  // 标准模式，只募资不进化
	ModeDemocracy EvolutionMode = "democracy" // 民主模式，按建议高频词生成
	ModeChaos     EvolutionMode = "chaos"     // 混沌模式，随机拼接建议
)

// EvolutionStatus 进化状态
type EvolutionStatus string

const (
	StatusIdle            EvolutionStatus = "IDLE"             // 空闲
	StatusProcessing      EvolutionStatus = "PROCESSING"       // 管线执行中（排他锁）
	StatusEmergencyLocked EvolutionStatus = "EMERGENCY_LOCKED" // 紧急锁定
)
