package evolution

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/LolHubFun/server-vps/internal/chain"
	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/common"
)

// 一轮核对覆盖的项目上限和活跃窗口
const (
	consistencyBatch  = 25
	consistencyWindow = 7 * 24 * time.Hour
)

// ConsistencyStore 一致性核对需要的存储能力
type ConsistencyStore interface {
	// IdleRecentProjects 窗口内有过交互、未毕业且IDLE的项目
	IdleRecentProjects(limit int, since time.Time) ([]model.Project, error)
	// SetTotalRaised 用链上读数纠正本地累计值
	SetTotalRaised(contractAddress, raised string) error
}

// Trigger 进化检查入口，生产实现是 *Engine
type Trigger interface {
	CheckAndTrigger(ctx context.Context, contractAddress string) (bool, error)
}

// ConsistencyChecker 兜底核对：漏掉的事件会让本地募资额落后于链上
// 定期用链上 totalRaised 纠偏，并补触发达到阈值的进化
type ConsistencyChecker struct {
	provider *chain.Provider
	store    ConsistencyStore
	trigger  Trigger
	busy     atomic.Bool
	now      func() time.Time
}

func NewConsistencyChecker(provider *chain.Provider, store ConsistencyStore, trigger Trigger) *ConsistencyChecker {
	return &ConsistencyChecker{
		provider: provider,
		store:    store,
		trigger:  trigger,
		now:      time.Now,
	}
}

// Run 执行一轮核对，单个项目失败不影响其他项目
func (c *ConsistencyChecker) Run(ctx context.Context) {
	if !c.busy.CompareAndSwap(false, true) {
		logger.Debug("Consistency checker already running, skipping")
		return
	}
	defer c.busy.Store(false)

	projects, err := c.store.IdleRecentProjects(consistencyBatch, c.now().Add(-consistencyWindow))
	if err != nil {
		logger.Error("Failed to list projects for consistency check: %v", err)
		return
	}

	for _, p := range projects {
		if err := c.checkProject(ctx, p); err != nil {
			logger.Warn("Consistency check failed for %s: %v", p.ContractAddress, err)
		}
	}
}

func (c *ConsistencyChecker) checkProject(ctx context.Context, p model.Project) error {
	client, err := c.provider.GetClient(ctx, p.ChainId, "")
	if err != nil {
		return err
	}

	addr := common.HexToAddress(p.ContractAddress)
	results, err := chain.Multicall(ctx, client, []chain.Call{
		{Target: addr, CallData: contract.PackCall("totalRaised")},
	})
	if err != nil {
		return err
	}
	if len(results) != 1 || !results[0].Success {
		logger.Warn("On-chain totalRaised read failed for %s", p.ContractAddress)
		return nil
	}
	onChain := new(big.Int).SetBytes(results[0].ReturnData)

	local, ok := new(big.Int).SetString(p.TotalRaised, 10)
	if !ok {
		local = big.NewInt(0)
	}
	if onChain.Cmp(local) != 0 {
		logger.Info("Correcting total raised for %s: local %s, on-chain %s",
			p.ContractAddress, local.String(), onChain.String())
		if err := c.store.SetTotalRaised(p.ContractAddress, onChain.String()); err != nil {
			return err
		}
	}

	threshold, ok := chain.MilestoneThreshold(p.ChainId, p.CurrentMilestoneIndex)
	if !ok || onChain.Cmp(threshold) < 0 {
		return nil
	}
	triggered, err := c.trigger.CheckAndTrigger(ctx, p.ContractAddress)
	if err != nil {
		return err
	}
	if triggered {
		logger.Info("Consistency check triggered evolution for %s", p.ContractAddress)
	}
	return nil
}
