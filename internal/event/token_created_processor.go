package event

import (
	"context"
	"time"

	"github.com/LolHubFun/server-vps/internal/chain"
	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/core/types"
)

// HandleTokenCreated 处理工厂的TokenCreated日志，项目在首次目击时建档
// 轮询器直接调用，失败只记录不上抛
func (p *Processor) HandleTokenCreated(ctx context.Context, l types.Log) {
	ev, err := contract.ParseTokenCreated(l)
	if err != nil {
		logger.Error("Malformed TokenCreated log in tx %s: %v", l.TxHash.Hex(), err)
		return
	}

	fresh, err := p.persistOnce(ev.Meta, model.EventTokenCreated, ev)
	if err != nil {
		logger.Error("Failed to record TokenCreated in tx %s: %v", l.TxHash.Hex(), err)
		return
	}
	if !fresh {
		return
	}

	info := chain.Lookup(ev.ChainId)
	mode := model.EvolutionMode(ev.EvolutionMode)
	switch mode {
	case model.ModeStandard, model.ModeDemocracy, model.ModeChaos:
	default:
		logger.Warn("Unknown evolution mode %q for token %s, defaulting to standard", ev.EvolutionMode, ev.TokenAddress.Hex())
		mode = model.ModeStandard
	}

	// 动态模式先挂占位名，第一次进化时被管线覆写
	name := ""
	switch mode {
	case model.ModeDemocracy:
		name = "Democracy Project"
	case model.ModeChaos:
		name = "Chaos Project"
	}

	project := &model.Project{
		ContractAddress:   contract.NormalizeAddress(ev.TokenAddress),
		ChainId:           info.Id,
		ChainName:         info.Name,
		CreatorAddress:    contract.NormalizeAddress(ev.Creator),
		CurrentName:       name,
		EvolutionMode:     mode,
		EvolutionStatus:   model.StatusIdle,
		TotalRaised:       "0",
		MarketCap:         "0",
		Volume24h:         "0",
		LastInteractionAt: time.Now(),
	}

	created, err := p.projects.CreateIfAbsent(project)
	if err != nil {
		logger.Error("Failed to save project %s: %v", project.ContractAddress, err)
		return
	}
	if created {
		logger.Info("Project saved: %s (mode=%s, chain=%s)", project.ContractAddress, mode, info.Name)
	} else {
		logger.Warn("Project %s already exists, skipping", project.ContractAddress)
	}
}
