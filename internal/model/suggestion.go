package model

import (
	"time"
)

// Suggestion 投资人随交易提交的命名/角色建议
// 每个 (项目, 投资人) 只保留最新一条，新建议覆盖旧建议
type Suggestion struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	ProjectContractAddress string `json:"project_contract_address" gorm:"size:42;not null;uniqueIndex:idx_suggestions_project_suggester,priority:1"`
	SuggesterAddress       string `json:"suggester_address" gorm:"size:42;not null;uniqueIndex:idx_suggestions_project_suggester,priority:2"`
	NameSuggestion         string `json:"name_suggestion"`
	CharSuggestion         string `json:"char_suggestion"`
}
