package evolution

import (
	"context"
	"fmt"
	"math/big"

	"github.com/LolHubFun/server-vps/internal/cache"
	"github.com/LolHubFun/server-vps/internal/chain"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
)

// ProjectStore 进化引擎对项目表的窄接口
// TryTransition 是唯一的并发控制点：条件更新即比较交换，
// 多实例部署下由数据库裁决谁拿到锁
type ProjectStore interface {
	// GetIdleProject 取未毕业且空闲的项目，不存在时返回 (nil, nil)
	GetIdleProject(contractAddress string) (*model.Project, error)
	// TryTransition 原子地把状态从from改到to，没抢到返回false
	TryTransition(contractAddress string, from, to model.EvolutionStatus) (bool, error)
	// CompleteEvolution 持有锁时调用：里程碑+1、回到IDLE、写入新名字和图标
	CompleteEvolution(contractAddress, name, logoURL string) error
	// ReleaseLock 管线失败时调用：只回到IDLE，里程碑不动
	ReleaseLock(contractAddress string) error
	// ReleaseExpiredLock 把过期的紧急锁定恢复为IDLE，返回是否恢复了
	ReleaseExpiredLock(contractAddress string) (bool, error)
}

// SuggestionStore 建议池的读取接口
type SuggestionStore interface {
	RecentSuggestions(contractAddress string, limit int) ([]model.Suggestion, error)
}

// Engine 每个项目的里程碑状态机
type Engine struct {
	projects        ProjectStore
	suggestions     SuggestionStore
	pipeline        *Pipeline
	cache           cache.Store
	suggestionLimit int
}

// NewEngine 创建进化引擎
func NewEngine(projects ProjectStore, suggestions SuggestionStore, pipeline *Pipeline, cacheStore cache.Store, suggestionLimit int) *Engine {
	if suggestionLimit <= 0 {
		suggestionLimit = 50
	}
	return &Engine{
		projects:        projects,
		suggestions:     suggestions,
		pipeline:        pipeline,
		cache:           cacheStore,
		suggestionLimit: suggestionLimit,
	}
}

// CheckAndTrigger 检查里程碑并在达标时执行一次进化
// 返回true表示本次调用确实触发并完成了进化
// 同一里程碑在并发调用下至多触发一次，由TryTransition保证
func (e *Engine) CheckAndTrigger(ctx context.Context, contractAddress string) (bool, error) {
	// 紧急锁定到期后项目停在EMERGENCY_LOCKED，这里先恢复再查
	released, err := e.projects.ReleaseExpiredLock(contractAddress)
	if err != nil {
		return false, fmt.Errorf("release expired lock: %w", err)
	}
	if released {
		logger.Info("Expired emergency lock released for %s", contractAddress)
	}

	project, err := e.projects.GetIdleProject(contractAddress)
	if err != nil {
		return false, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return false, nil
	}

	// 标准模式只募资，永远不走进化路径
	if project.EvolutionMode == model.ModeStandard {
		return false, nil
	}

	threshold, ok := chain.MilestoneThreshold(project.ChainId, project.CurrentMilestoneIndex)
	if !ok {
		// 档位表走完了，没有下一个里程碑
		return false, nil
	}

	totalRaised, ok := new(big.Int).SetString(project.TotalRaised, 10)
	if !ok {
		totalRaised = new(big.Int)
	}
	if totalRaised.Cmp(threshold) < 0 {
		return false, nil
	}

	acquired, err := e.projects.TryTransition(contractAddress, model.StatusIdle, model.StatusProcessing)
	if err != nil {
		return false, fmt.Errorf("acquire evolution lock: %w", err)
	}
	if !acquired {
		// 别的调用方已经持锁，预期内的控制流
		logger.Debug("Evolution lock busy for %s", contractAddress)
		return false, nil
	}

	suggestions, err := e.suggestions.RecentSuggestions(contractAddress, e.suggestionLimit)
	if err != nil {
		// 建议池读不出来不挡进化，按空池降级
		logger.Warn("Failed to load suggestions for %s: %v", contractAddress, err)
		suggestions = nil
	}

	name, logoURL, err := e.pipeline.Run(ctx, project, suggestions)
	if err != nil {
		// 失败释放锁但不推进里程碑，下一个达标事件会重试同一档
		logger.Error("Evolution pipeline failed for %s at milestone %d: %v",
			contractAddress, project.CurrentMilestoneIndex, err)
		if relErr := e.projects.ReleaseLock(contractAddress); relErr != nil {
			logger.Error("Failed to release evolution lock for %s: %v", contractAddress, relErr)
		}
		return false, nil
	}

	if err := e.projects.CompleteEvolution(contractAddress, name, logoURL); err != nil {
		return false, fmt.Errorf("complete evolution: %w", err)
	}

	if e.cache != nil {
		e.cache.ClearProjectCache(ctx, contractAddress)
	}

	logger.Info("Evolution triggered for %s: milestone %d -> %d, new name %q",
		contractAddress, project.CurrentMilestoneIndex, project.CurrentMilestoneIndex+1, name)
	return true, nil
}
