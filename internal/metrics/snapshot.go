package metrics

import (
	"context"
	"math/big"
	"time"

	"github.com/LolHubFun/server-vps/internal/cache"
)

// 快照保留 31 天，覆盖最长的 30 天涨跌幅窗口
const snapshotTTL = 31 * 24 * time.Hour

// 侧车只要撑到下一轮聚合，10分钟足够
const sidecarTTL = 10 * time.Minute

// PriceChanges 各窗口的涨跌幅，百分比
type PriceChanges struct {
	H1  float64
	H2  float64
	H24 float64
	W1  float64
	D30 float64
}

// Snapshotter 按小时桶写入价格快照并计算涨跌幅
type Snapshotter struct {
	store cache.Store
	now   func() time.Time
}

func NewSnapshotter(store cache.Store) *Snapshotter {
	return &Snapshotter{store: store, now: time.Now}
}

// Record 写入当前小时桶的价格快照，同一小时内重复写入直接覆盖
func (s *Snapshotter) Record(ctx context.Context, chainId int64, contractAddress string, price *big.Int) {
	key := cache.PriceSnapshotKey(chainId, contractAddress, s.now())
	s.store.Set(ctx, key, price.String(), snapshotTTL)
}

// Changes 对比各窗口起点的快照计算涨跌幅，快照缺失或为零按 0 处理
func (s *Snapshotter) Changes(ctx context.Context, chainId int64, contractAddress string, current *big.Int) PriceChanges {
	now := s.now()
	return PriceChanges{
		H1:  s.changeSince(ctx, chainId, contractAddress, current, now.Add(-time.Hour)),
		H2:  s.changeSince(ctx, chainId, contractAddress, current, now.Add(-2*time.Hour)),
		H24: s.changeSince(ctx, chainId, contractAddress, current, now.Add(-24*time.Hour)),
		W1:  s.changeSince(ctx, chainId, contractAddress, current, now.Add(-7*24*time.Hour)),
		D30: s.changeSince(ctx, chainId, contractAddress, current, now.Add(-30*24*time.Hour)),
	}
}

// ChangeSidecar 短窗口涨跌幅侧车，读路径在两轮聚合之间用它覆盖行值
type ChangeSidecar struct {
	PC2H      float64   `json:"pc2h"`
	PC1W      float64   `json:"pc1w"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordSidecar 把本轮算出的短窗口涨跌幅写入侧车
func (s *Snapshotter) RecordSidecar(ctx context.Context, contractAddress string, changes PriceChanges) {
	s.store.Set(ctx, cache.SidecarKey(contractAddress), ChangeSidecar{
		PC2H:      changes.H2,
		PC1W:      changes.W1,
		UpdatedAt: s.now(),
	}, sidecarTTL)
}

func (s *Snapshotter) changeSince(ctx context.Context, chainId int64, contractAddress string, current *big.Int, at time.Time) float64 {
	var raw string
	if !s.store.Get(ctx, cache.PriceSnapshotKey(chainId, contractAddress, at), &raw) {
		return 0
	}
	old, ok := new(big.Int).SetString(raw, 10)
	if !ok || old.Sign() == 0 {
		return 0
	}
	return PercentChange(old, current)
}

// PercentChange (current-old)/old × 100，保留浮点精度够展示用
func PercentChange(old, current *big.Int) float64 {
	if old == nil || old.Sign() == 0 {
		return 0
	}
	diff := new(big.Float).Sub(new(big.Float).SetInt(current), new(big.Float).SetInt(old))
	ratio := new(big.Float).Quo(diff, new(big.Float).SetInt(old))
	pct, _ := new(big.Float).Mul(ratio, big.NewFloat(100)).Float64()
	return pct
}
