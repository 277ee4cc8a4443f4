package logic

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/LolHubFun/server-vps/internal/cache"
	"github.com/LolHubFun/server-vps/internal/chain"
	"github.com/LolHubFun/server-vps/internal/contract"
	"github.com/LolHubFun/server-vps/internal/ledger"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/LolHubFun/server-vps/internal/metrics"
	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// 缓存时效：列表和交易短、详情和排行稍长
const (
	listCacheTTL    = 30 * time.Second
	detailCacheTTL  = 60 * time.Second
	tradesCacheTTL  = 30 * time.Second
	rankingCacheTTL = 60 * time.Second
)

const topHolderCount = 10

// 允许的排序列，白名单之外一律按创建时间
var listSortColumns = map[string]string{
	"created_at":   "created_at",
	"market_cap":   "market_cap",
	"volume_24h":   "volume_24h",
	"total_raised": "total_raised",
	"holders":      "holders_count",
}

var rankingSortColumns = map[string]string{
	"market_cap": "market_cap",
	"volume_24h": "volume_24h",
}

// ErrProjectNotFound 项目不存在
var ErrProjectNotFound = errors.New("项目不存在")

// ProjectLogic 项目读路径业务逻辑
type ProjectLogic struct {
	db       *gorm.DB
	cache    cache.Store
	ledger   ledger.Store
	provider *chain.Provider
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB, cacheStore cache.Store, ledgerStore ledger.Store, provider *chain.Provider) *ProjectLogic {
	return &ProjectLogic{
		db:       db,
		cache:    cacheStore,
		ledger:   ledgerStore,
		provider: provider,
	}
}

// ProjectList 分页的项目列表
type ProjectList struct {
	Projects []model.Project `json:"projects"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

// ProjectDetail 项目详情，附带持仓分布
type ProjectDetail struct {
	Project    model.Project   `json:"project"`
	TopHolders []ledger.Holder `json:"top_holders"`
}

// ListProjects 获取项目列表，排序×模式×分页粒度缓存
func (p *ProjectLogic) ListProjects(ctx context.Context, page, limit int, sortBy, mode string) (*ProjectList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if _, ok := listSortColumns[sortBy]; !ok {
		sortBy = "created_at"
	}
	if mode != string(model.ModeStandard) && mode != string(model.ModeDemocracy) && mode != string(model.ModeChaos) {
		mode = "all"
	}

	key := cache.ListKey(page, limit, sortBy, mode)
	var cached ProjectList
	if p.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	list, err := p.listFromDB(page, limit, sortBy, mode)
	if err != nil {
		return nil, err
	}
	p.applySidecars(ctx, list.Projects)
	p.cache.Set(ctx, key, list, listCacheTTL)
	return list, nil
}

// applySidecars 用侧车覆盖短窗口涨跌幅，两轮聚合之间行值可能已经过时
func (p *ProjectLogic) applySidecars(ctx context.Context, projects []model.Project) {
	for i := range projects {
		var sc metrics.ChangeSidecar
		if p.cache.Get(ctx, cache.SidecarKey(projects[i].ContractAddress), &sc) {
			projects[i].PriceChange2h = sc.PC2H
			projects[i].PriceChange1w = sc.PC1W
		}
	}
}

func (p *ProjectLogic) listFromDB(page, limit int, sortBy, mode string) (*ProjectList, error) {
	query := p.db.Model(&model.Project{})
	if mode != "all" {
		query = query.Where("evolution_mode = ?", mode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计项目数量失败: %w", err)
	}

	var projects []model.Project
	err := query.Order(listSortColumns[sortBy] + " DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("获取项目列表失败: %w", err)
	}

	return &ProjectList{Projects: projects, Total: total, Page: page, Limit: limit}, nil
}

// GetProjectDetail 获取项目详情，持仓分布从台账重放
func (p *ProjectLogic) GetProjectDetail(ctx context.Context, contractAddress string) (*ProjectDetail, error) {
	contractAddress = strings.ToLower(contractAddress)

	key := cache.DetailKey(contractAddress)
	var cached ProjectDetail
	if p.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	var project model.Project
	err := p.db.Where("contract_address = ?", contractAddress).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("获取项目详情失败: %w", err)
	}

	detail := &ProjectDetail{
		Project:    project,
		TopHolders: p.topHolders(ctx, project),
	}
	p.cache.Set(ctx, key, detail, detailCacheTTL)
	return detail, nil
}

// topHolders 余额从台账重放，占比需要链上总供给，链读失败时占比降级为0
func (p *ProjectLogic) topHolders(ctx context.Context, project model.Project) []ledger.Holder {
	events, err := p.ledger.EventsForContract(project.ContractAddress)
	if err != nil {
		logger.Warn("Failed to replay holders for %s: %v", project.ContractAddress, err)
		return nil
	}
	balances := ledger.ReplayBalances(events)

	var totalSupply, contractBalance *big.Int
	if client, err := p.provider.GetClient(ctx, project.ChainId, ""); err == nil {
		addr := common.HexToAddress(project.ContractAddress)
		results, mcErr := chain.Multicall(ctx, client, []chain.Call{
			{Target: addr, CallData: contract.PackCall("totalSupply")},
			{Target: addr, CallData: contract.PackCall("balanceOf", addr)},
		})
		if mcErr == nil && len(results) == 2 && results[0].Success && results[1].Success {
			totalSupply = new(big.Int).SetBytes(results[0].ReturnData)
			contractBalance = new(big.Int).SetBytes(results[1].ReturnData)
		}
	}

	return ledger.TopHolders(balances, project.ContractAddress, contractBalance, totalSupply, topHolderCount)
}

// TradeHistory 项目交易历史，最新在前
func (p *ProjectLogic) TradeHistory(ctx context.Context, contractAddress string, limit int) ([]ledger.Trade, error) {
	contractAddress = strings.ToLower(contractAddress)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	key := cache.TradesKey(contractAddress)
	var cached []ledger.Trade
	if p.cache.Get(ctx, key, &cached) {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	// 两类事件各取limit条再合并，映射后裁剪
	events, err := p.ledger.RecentEvents(contractAddress, "", limit*2)
	if err != nil {
		return nil, err
	}
	trades := ledger.Trades(events)
	p.cache.Set(ctx, key, trades, tradesCacheTTL)
	if len(trades) > limit {
		trades = trades[:limit]
	}
	return trades, nil
}

// Ranking 按市值或24小时交易量的排行榜
func (p *ProjectLogic) Ranking(ctx context.Context, sortBy string, chainId int64, limit int) ([]model.Project, error) {
	if _, ok := rankingSortColumns[sortBy]; !ok {
		sortBy = "market_cap"
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	key := cache.RankingKey(sortBy, chainId, limit)
	var cached []model.Project
	if p.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	query := p.db.Model(&model.Project{})
	if chainId > 0 {
		query = query.Where("chain_id = ?", chainId)
	}

	var projects []model.Project
	err := query.Order(rankingSortColumns[sortBy] + " DESC").
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("获取排行榜失败: %w", err)
	}

	p.cache.Set(ctx, key, projects, rankingCacheTTL)
	return projects, nil
}

// WarmListCache 预热首页会命中的列表组合
func (p *ProjectLogic) WarmListCache(ctx context.Context) {
	sorts := []string{"created_at", "market_cap", "volume_24h"}
	modes := []string{"all", string(model.ModeStandard), string(model.ModeDemocracy), string(model.ModeChaos)}
	for _, sortBy := range sorts {
		for _, mode := range modes {
			list, err := p.listFromDB(1, 20, sortBy, mode)
			if err != nil {
				logger.Warn("List cache warmup failed for sort=%s mode=%s: %v", sortBy, mode, err)
				continue
			}
			p.applySidecars(ctx, list.Projects)
			p.cache.Set(ctx, cache.ListKey(1, 20, sortBy, mode), list, listCacheTTL)
		}
	}
}
