package event

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/ledger"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ProjectStore 事件处理器对项目表的写接口
type ProjectStore interface {
	// CreateIfAbsent 不存在才创建，返回是否新建
	CreateIfAbsent(project *model.Project) (bool, error)
	// AdjustRaised 按delta增减募资总额，可为负
	AdjustRaised(contractAddress string, delta *big.Int) error
	// MarkFinalized 标记毕业并记录LP池地址
	MarkFinalized(contractAddress, lpPair string) error
	// UpsertSuggestion 同一 (项目, 地址) 的新建议覆盖旧建议
	UpsertSuggestion(suggestion *model.Suggestion) error
}

// EvolutionTrigger 进化引擎的触发入口
type EvolutionTrigger interface {
	CheckAndTrigger(ctx context.Context, contractAddress string) (bool, error)
}

// TxReader 读取原始交易，用来提取invest入参里的建议
type TxReader interface {
	TransactionInput(ctx context.Context, chainId int64, txHash common.Hash) ([]byte, common.Address, error)
}

// CacheInvalidator 进化触发后的缓存失效入口
type CacheInvalidator interface {
	ClearProjectCache(ctx context.Context, contractAddress string)
}

// Processor 链上事件处理器
// 幂等链路：内存防重 -> 台账查重 -> 冲突忽略写入，台账唯一约束是最终裁决
type Processor struct {
	ledger   ledger.Store
	guard    *ledger.ReplayGuard
	projects ProjectStore
	engine   EvolutionTrigger
	cache    CacheInvalidator
	txReader TxReader
}

// NewProcessor 创建事件处理器
func NewProcessor(
	ledgerStore ledger.Store,
	guard *ledger.ReplayGuard,
	projects ProjectStore,
	engine EvolutionTrigger,
	cacheStore CacheInvalidator,
	txReader TxReader,
) *Processor {
	if guard == nil {
		guard = ledger.NewReplayGuard()
	}
	return &Processor{
		ledger:   ledgerStore,
		guard:    guard,
		projects: projects,
		engine:   engine,
		cache:    cacheStore,
		txReader: txReader,
	}
}

// Dispatch 按事件签名分发一条项目合约日志
// 任何处理失败只记录不上抛：游标没跨过去的事件下个周期会重来，
// 跨过去的由一致性核对兜底
func (p *Processor) Dispatch(ctx context.Context, chainId int64, l types.Log) {
	if len(l.Topics) == 0 {
		return
	}
	var err error
	switch l.Topics[0] {
	case contract.InvestedTopic:
		err = p.handleInvested(ctx, chainId, l)
	case contract.SoldTopic:
		err = p.handleSold(ctx, l)
	case contract.FinalizedTopic:
		err = p.handleFinalized(ctx, l)
	default:
		logger.Warn("Unknown event signature %s in tx %s", l.Topics[0].Hex(), l.TxHash.Hex())
		return
	}
	if err != nil {
		logger.Error("Failed to process %s log in tx %s: %v", l.Topics[0].Hex(), l.TxHash.Hex(), err)
	}
}

// persistOnce 幂等落账，返回true表示本次真的新增了台账行，
// 类型相关的副作用只在这种情况下执行
func (p *Processor) persistOnce(meta contract.Meta, eventName string, payload interface{}) (bool, error) {
	eventId := meta.EventId()
	if p.guard.Seen(eventId) {
		logger.Debug("Replay detected via in-memory guard: %s", eventId)
		return false, nil
	}

	addr := contract.NormalizeAddress(meta.ContractAddress)
	txHash := meta.TxHash.Hex()

	exists, err := p.ledger.Exists(addr, txHash, eventName)
	if err != nil {
		return false, err
	}
	if exists {
		logger.Debug("Replay detected via ledger: %s %s", eventName, eventId)
		p.guard.Mark(eventId)
		return false, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return false, err
	}
	inserted, err := p.ledger.InsertIgnore(&model.ProjectEvent{
		ContractAddress: addr,
		BlockNumber:     meta.BlockNumber,
		TxHash:          txHash,
		LogIndex:        meta.LogIndex,
		EventName:       eventName,
		EventData:       string(data),
		CreatedAt:       time.Now(),
	})
	if err != nil {
		return false, err
	}
	p.guard.Mark(eventId)
	// 没插进去说明并发的另一个处理方抢先了，副作用归它
	return inserted, nil
}

// triggerEvolution 调用进化检查，触发成功则清项目缓存
func (p *Processor) triggerEvolution(ctx context.Context, contractAddress string) {
	triggered, err := p.engine.CheckAndTrigger(ctx, contractAddress)
	if err != nil {
		logger.Error("Evolution check failed for %s: %v", contractAddress, err)
		return
	}
	if triggered && p.cache != nil {
		p.cache.ClearProjectCache(ctx, contractAddress)
	}
}
