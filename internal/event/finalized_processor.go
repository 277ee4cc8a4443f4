package event

import (
	"context"

	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/core/types"
)

// handleFinalized 处理毕业事件：标记项目已迁移到流动性池
func (p *Processor) handleFinalized(ctx context.Context, l types.Log) error {
	ev, err := contract.ParseFinalized(l)
	if err != nil {
		logger.Error("Malformed Finalized log in tx %s: %v", l.TxHash.Hex(), err)
		return nil
	}

	fresh, err := p.persistOnce(ev.Meta, model.EventFinalized, ev)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	addr := contract.NormalizeAddress(ev.ContractAddress)
	lpPair := contract.NormalizeAddress(ev.LpPair)
	logger.Info("Processing Finalized event for %s, LP pair %s", addr, lpPair)

	if err := p.projects.MarkFinalized(addr, lpPair); err != nil {
		logger.Error("Failed to mark project %s finalized: %v", addr, err)
		return nil
	}

	// 已毕业项目不会通过空闲过滤，触发检查自然落空
	p.triggerEvolution(ctx, addr)
	if p.cache != nil {
		p.cache.ClearProjectCache(ctx, addr)
	}
	return nil
}
