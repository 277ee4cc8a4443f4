package poller

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/event"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/panjf2000/ants/v2"
)

const (
	// 单个项目一轮最多扫这么多区块，控制每轮成本
	// 注意：若链增长快于轮询周期，窗口封顶可能漏事件，靠一致性核对补
	maxBlockWindow = 2000
	// 一轮并发扫描的协程数上限
	scanPoolSize = 4
)

// 每个项目合约关心的事件签名，逐个拉取以隔离失败
var projectEventTopics = []common.Hash{
	contract.InvestedTopic,
	contract.SoldTopic,
	contract.FinalizedTopic,
}

// ProjectLister 项目轮询器的存储接口
type ProjectLister interface {
	// ActiveProjects 未毕业的项目按最近活跃度取前若干个
	ActiveProjects(limit int) ([]model.Project, error)
	// SaveProjectCursor 保存单个项目的区块游标
	SaveProjectCursor(contractAddress string, block uint64) error
}

// ProjectEventPoller 项目合约事件轮询器
// 一轮只扫最活跃的一批项目，项目间并发，项目×事件类型粒度上隔离失败
type ProjectEventPoller struct {
	provider  ClientProvider
	store     ProjectLister
	processor *event.Processor
	batchSize int
	busy      atomic.Bool
}

// NewProjectEventPoller 创建轮询器
func NewProjectEventPoller(provider ClientProvider, store ProjectLister, processor *event.Processor, batchSize int) *ProjectEventPoller {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ProjectEventPoller{
		provider:  provider,
		store:     store,
		processor: processor,
		batchSize: batchSize,
	}
}

// Run 执行一轮扫描
func (p *ProjectEventPoller) Run(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		logger.Debug("Project event poller already running, skipping")
		return
	}
	defer p.busy.Store(false)

	projects, err := p.store.ActiveProjects(p.batchSize)
	if err != nil {
		logger.Error("Failed to list projects for polling: %v", err)
		return
	}
	if len(projects) == 0 {
		return
	}

	pool, err := ants.NewPool(scanPoolSize)
	if err != nil {
		logger.Error("Failed to create scan pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range projects {
		project := projects[i]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			p.scanProject(ctx, project)
		})
		if submitErr != nil {
			wg.Done()
			logger.Error("Failed to submit scan for %s: %v", project.ContractAddress, submitErr)
		}
	}
	wg.Wait()
}

// scanProject 扫描单个项目的新日志，任何失败都不影响其他项目
func (p *ProjectEventPoller) scanProject(ctx context.Context, project model.Project) {
	client, err := p.provider.Reader(ctx, project.ChainId)
	if err != nil {
		logger.Warn("No usable RPC for project %s on chain %d: %v", project.ContractAddress, project.ChainId, err)
		return
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		logger.Warn("Failed to get head for chain %d: %v", project.ChainId, err)
		return
	}

	from := project.LastProcessedBlock + 1
	if project.LastProcessedBlock == 0 {
		if head > defaultLookback {
			from = head - defaultLookback
		} else {
			from = 1
		}
	}
	if head < from {
		return
	}

	// 窗口封顶，剩下的区间留给下一轮
	to := head
	if to-from+1 > maxBlockWindow {
		to = from + maxBlockWindow - 1
	}

	addr := common.HexToAddress(project.ContractAddress)
	var collected []types.Log
	for _, topic := range projectEventTopics {
		logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: []common.Address{addr},
			Topics:    [][]common.Hash{{topic}},
		})
		if err != nil {
			// 单个事件类型拉取失败不挡同项目其他类型
			logger.Warn("Failed to fetch %s logs for %s: %v", topic.Hex(), project.ContractAddress, err)
			continue
		}
		collected = append(collected, logs...)
	}

	if len(collected) > 0 {
		sort.Slice(collected, func(i, j int) bool {
			if collected[i].BlockNumber != collected[j].BlockNumber {
				return collected[i].BlockNumber < collected[j].BlockNumber
			}
			return collected[i].Index < collected[j].Index
		})
		logger.Info("Processing %d event(s) for %s in blocks %d-%d", len(collected), project.ContractAddress, from, to)
		for _, l := range collected {
			p.processor.Dispatch(ctx, project.ChainId, l)
		}
	}

	// 游标无条件推进，失败事件的补偿走一致性核对
	if err := p.store.SaveProjectCursor(project.ContractAddress, to); err != nil {
		logger.Error("Failed to save cursor for %s: %v", project.ContractAddress, err)
	}
}
