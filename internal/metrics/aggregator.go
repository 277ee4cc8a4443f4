package metrics

import (
	"context"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/LolHubFun/server-vps/internal/chain"
	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/ledger"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Update 一次聚合刷新产出的全部指标，整体落到项目行
type Update struct {
	TotalRaised  string
	MarketCap    string
	Volume24h    string
	HoldersCount int
	Changes      PriceChanges
}

// Store 聚合器的项目存储接口
type Store interface {
	// StaleProjects 按最近交互时间取最久未刷新的一批项目
	StaleProjects(limit int) ([]model.Project, error)
	UpdateMetrics(contractAddress string, u Update) error
}

// Aggregator 定期把链上读数和台账重放合并成项目指标
type Aggregator struct {
	provider  *chain.Provider
	store     Store
	ledger    ledger.Store
	snaps     *Snapshotter
	batchSize int
	busy      atomic.Bool
	now       func() time.Time
}

func NewAggregator(provider *chain.Provider, store Store, ldg ledger.Store, snaps *Snapshotter, batchSize int) *Aggregator {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Aggregator{
		provider:  provider,
		store:     store,
		ledger:    ldg,
		snaps:     snaps,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run 执行一轮指标刷新
// 按链分组后每组一次multicall，单个项目失败只跳过该项目
func (a *Aggregator) Run(ctx context.Context) {
	if !a.busy.CompareAndSwap(false, true) {
		logger.Debug("Metrics aggregator already running, skipping")
		return
	}
	defer a.busy.Store(false)

	projects, err := a.store.StaleProjects(a.batchSize)
	if err != nil {
		logger.Error("Failed to list stale projects: %v", err)
		return
	}
	if len(projects) == 0 {
		return
	}

	byChain := make(map[int64][]model.Project)
	for _, p := range projects {
		byChain[p.ChainId] = append(byChain[p.ChainId], p)
	}

	g, gctx := errgroup.WithContext(ctx)
	for chainId, group := range byChain {
		chainId, group := chainId, group
		g.Go(func() error {
			// 链级失败降级成日志，不影响其他链
			if err := a.refreshChainGroup(gctx, chainId, group); err != nil {
				logger.Error("Metrics refresh failed for chain %d: %v", chainId, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// refreshChainGroup 一条链上的一组项目共享一次multicall
func (a *Aggregator) refreshChainGroup(ctx context.Context, chainId int64, projects []model.Project) error {
	client, err := a.provider.GetClient(ctx, chainId, "")
	if err != nil {
		return err
	}

	// 每个项目三个读调用：totalRaised、totalSupply、合约自持余额
	calls := make([]chain.Call, 0, len(projects)*3)
	for _, p := range projects {
		addr := common.HexToAddress(p.ContractAddress)
		calls = append(calls,
			chain.Call{Target: addr, CallData: contract.PackCall("totalRaised")},
			chain.Call{Target: addr, CallData: contract.PackCall("totalSupply")},
			chain.Call{Target: addr, CallData: contract.PackCall("balanceOf", addr)},
		)
	}

	results, err := chain.Multicall(ctx, client, calls)
	if err != nil {
		return err
	}

	for i, p := range projects {
		raised, ok1 := uint256Result(results[i*3])
		totalSupply, ok2 := uint256Result(results[i*3+1])
		selfBalance, ok3 := uint256Result(results[i*3+2])
		if !ok1 || !ok2 || !ok3 {
			logger.Warn("On-chain read failed for %s, skipping metrics refresh", p.ContractAddress)
			continue
		}
		a.refreshProject(ctx, p, raised, totalSupply, selfBalance)
	}
	return nil
}

// refreshProject 合并链上读数和台账重放，写回单行
func (a *Aggregator) refreshProject(ctx context.Context, p model.Project, raised, totalSupply, selfBalance *big.Int) {
	soldSupply := new(big.Int).Sub(totalSupply, selfBalance)
	if soldSupply.Sign() < 0 {
		soldSupply.SetInt64(0)
	}
	price := SpotPrice(soldSupply)

	events, err := a.ledger.EventsForContract(p.ContractAddress)
	if err != nil {
		logger.Warn("Ledger replay failed for %s, skipping metrics refresh: %v", p.ContractAddress, err)
		return
	}

	a.snaps.Record(ctx, p.ChainId, p.ContractAddress, price)
	changes := a.snaps.Changes(ctx, p.ChainId, p.ContractAddress, price)
	a.snaps.RecordSidecar(ctx, p.ContractAddress, changes)

	u := Update{
		TotalRaised:  raised.String(),
		MarketCap:    MarketCap(soldSupply, totalSupply).String(),
		Volume24h:    ledger.Volume24h(events, a.now()).String(),
		HoldersCount: ledger.HolderCount(events),
		Changes:      changes,
	}
	if err := a.store.UpdateMetrics(p.ContractAddress, u); err != nil {
		logger.Error("Failed to persist metrics for %s: %v", p.ContractAddress, err)
	}
}

func uint256Result(r chain.Result) (*big.Int, bool) {
	if !r.Success || len(r.ReturnData) < 32 {
		return nil, false
	}
	return new(big.Int).SetBytes(r.ReturnData), true
}
