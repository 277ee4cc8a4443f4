package event

import (
	"context"
	"math/big"

	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/core/types"
)

// handleSold 处理卖出事件
func (p *Processor) handleSold(ctx context.Context, l types.Log) error {
	ev, err := contract.ParseSold(l)
	if err != nil {
		logger.Error("Malformed Sold log in tx %s: %v", l.TxHash.Hex(), err)
		return nil
	}

	fresh, err := p.persistOnce(ev.Meta, model.EventSold, ev)
	if err != nil {
		return err
	}
	if !fresh {
		return nil
	}

	addr := contract.NormalizeAddress(ev.ContractAddress)
	logger.Info("Processing Sold event for %s at block %d", addr, ev.BlockNumber)

	// 卖出从募资池退钱，总额相应回落
	if err := p.projects.AdjustRaised(addr, new(big.Int).Neg(ev.AmountOut)); err != nil {
		logger.Error("Failed to adjust raised amount for %s: %v", addr, err)
	}

	p.triggerEvolution(ctx, addr)
	return nil
}
