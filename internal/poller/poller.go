package poller

import (
	"context"
	"math/big"
	"sort"
	"sync/atomic"

	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/event"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// 首次运行只回看最近这么多个区块
const defaultLookback = 20

// ChainReader 轮询器需要的链读能力，*ethclient.Client 天然满足
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// ClientProvider 按链ID解析一个可用的链读客户端
type ClientProvider interface {
	Reader(ctx context.Context, chainId int64) (ChainReader, error)
}

// BlockCursor 持久化区块游标，生产实现是 *CursorStore
type BlockCursor interface {
	LastCheckedBlock() (uint64, bool, error)
	SaveLastCheckedBlock(block uint64) error
}

// TokenCreatedPoller 工厂合约轮询器，发现新部署的代币
// busy标志只防本进程内的自我重叠，跨实例的正确性由台账唯一约束兜底
type TokenCreatedPoller struct {
	provider    ClientProvider
	cursor      BlockCursor
	processor   *event.Processor
	factoryAddr common.Address
	chainId     int64
	busy        atomic.Bool
}

// NewTokenCreatedPoller 创建轮询器
func NewTokenCreatedPoller(
	provider ClientProvider,
	cursor BlockCursor,
	processor *event.Processor,
	factoryAddr string,
	chainId int64,
) *TokenCreatedPoller {
	return &TokenCreatedPoller{
		provider:    provider,
		cursor:      cursor,
		processor:   processor,
		factoryAddr: common.HexToAddress(factoryAddr),
		chainId:     chainId,
	}
}

// Run 执行一轮：游标到链头之间的TokenCreated日志按序处理
// 游标无条件推进到链头，漏掉的由一致性核对补偿
func (p *TokenCreatedPoller) Run(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		logger.Debug("Token poller already running, skipping")
		return
	}
	defer p.busy.Store(false)

	if err := p.runOnce(ctx); err != nil {
		logger.Error("Token poller pass failed: %v", err)
	}
}

func (p *TokenCreatedPoller) runOnce(ctx context.Context) error {
	client, err := p.provider.Reader(ctx, p.chainId)
	if err != nil {
		return err
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return err
	}

	cursor, found, err := p.cursor.LastCheckedBlock()
	if err != nil {
		return err
	}
	if !found || cursor == 0 {
		if head > defaultLookback {
			cursor = head - defaultLookback
		} else {
			cursor = 0
		}
	}

	if head <= cursor {
		return nil
	}

	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(cursor + 1),
		ToBlock:   new(big.Int).SetUint64(head),
		Addresses: []common.Address{p.factoryAddr},
		Topics:    [][]common.Hash{{contract.TokenCreatedTopic}},
	})
	if err != nil {
		return err
	}

	if len(logs) > 0 {
		logger.Info("Found %d new TokenCreated event(s) in blocks %d-%d", len(logs), cursor+1, head)
		sortLogs(logs)
		for _, l := range logs {
			p.processor.HandleTokenCreated(ctx, l)
		}
	}

	return p.cursor.SaveLastCheckedBlock(head)
}

// sortLogs 按 (区块, 日志序号) 升序
func sortLogs(logs []types.Log) {
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
}
