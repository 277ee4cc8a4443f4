package event

import (
	"context"
	"strings"

	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/core/types"
)

// handleInvested 处理买入事件
func (p *Processor) handleInvested(ctx context.Context, chainId int64, l types.Log) error {
	ev, err := contract.ParseInvested(l)
	if err != nil {
		// 事件参数畸形属于数据完整性问题，记录后放过
		logger.Error("Malformed Invested log in tx %s: %v", l.TxHash.Hex(), err)
		return nil
	}

	fresh, err := p.persistOnce(ev.Meta, model.EventInvested, ev)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	addr := contract.NormalizeAddress(ev.ContractAddress)
	logger.Info("Processing Invested event for %s at block %d", addr, ev.BlockNumber)

	if err := p.projects.AdjustRaised(addr, ev.AmountIn); err != nil {
		logger.Error("Failed to adjust raised amount for %s: %v", addr, err)
	}

	// 尽力解码交易入参里的建议，失败只记录，绝不中断处理
	p.saveSuggestion(ctx, chainId, ev)

	p.triggerEvolution(ctx, addr)
	return nil
}

// saveSuggestion 从invest交易入参提取命名/角色建议并落库
func (p *Processor) saveSuggestion(ctx context.Context, chainId int64, ev *contract.InvestedEvent) {
	if p.txReader == nil {
		return
	}

	input, from, err := p.txReader.TransactionInput(ctx, chainId, ev.TxHash)
	if err != nil {
		logger.Warn("Failed to fetch tx %s for suggestion decode: %v", ev.TxHash.Hex(), err)
		return
	}

	decoded, err := contract.DecodeInvestInput(input)
	if err != nil {
		logger.Debug("No decodable suggestion in tx %s: %v", ev.TxHash.Hex(), err)
		return
	}
	if strings.TrimSpace(decoded.NameSuggestion) == "" && strings.TrimSpace(decoded.CharSuggestion) == "" {
		return
	}

	suggestion := &model.Suggestion{
		ProjectContractAddress: contract.NormalizeAddress(ev.ContractAddress),
		SuggesterAddress:       contract.NormalizeAddress(from),
		NameSuggestion:         decoded.NameSuggestion,
		CharSuggestion:         decoded.CharSuggestion,
	}
	if err := p.projects.UpsertSuggestion(suggestion); err != nil {
		logger.Error("Failed to save suggestion from %s: %v", suggestion.SuggesterAddress, err)
		return
	}
	logger.Info("Saved suggestion from %s for %s", suggestion.SuggesterAddress, suggestion.ProjectContractAddress)
}
