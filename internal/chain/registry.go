package chain

import (
	"math/big"
)

// Info 单条链的静态配置：名称、原生币、里程碑档位
type Info struct {
	Id           int64
	Name         string
	NativeSymbol string
	// 里程碑募资门槛，wei计，按原生币价值分档归一
	Milestones []*big.Int
}

// DefaultChainId 未知链统一回落的默认链（Polygon Amoy）
const DefaultChainId int64 = 80002

var (
	// 按原生币价值分三档的里程碑表，单位是原生币个数
	lowValueMilestones  = []int64{100, 500, 1500, 5000}
	midValueMilestones  = []int64{10, 50, 150, 500}
	highValueMilestones = []int64{1, 5, 15, 50}
)

// registry 链注册表，所有按链分支的配置只此一份
var registry = map[int64]*Info{
	1:     {Id: 1, Name: "ethereum", NativeSymbol: "ETH", Milestones: toWei(highValueMilestones)},
	10:    {Id: 10, Name: "optimism", NativeSymbol: "ETH", Milestones: toWei(highValueMilestones)},
	56:    {Id: 56, Name: "bsc", NativeSymbol: "BNB", Milestones: toWei(midValueMilestones)},
	137:   {Id: 137, Name: "polygon", NativeSymbol: "POL", Milestones: toWei(lowValueMilestones)},
	8453:  {Id: 8453, Name: "base", NativeSymbol: "ETH", Milestones: toWei(highValueMilestones)},
	42161: {Id: 42161, Name: "arbitrum", NativeSymbol: "ETH", Milestones: toWei(highValueMilestones)},
	43114: {Id: 43114, Name: "avalanche", NativeSymbol: "AVAX", Milestones: toWei(midValueMilestones)},
	80002: {Id: 80002, Name: "polygon-amoy", NativeSymbol: "POL", Milestones: toWei(lowValueMilestones)},
}

func toWei(native []int64) []*big.Int {
	wei := make([]*big.Int, len(native))
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	for i, n := range native {
		wei[i] = new(big.Int).Mul(big.NewInt(n), one)
	}
	return wei
}

// Lookup 查注册表，未知链返回默认链配置
func Lookup(chainId int64) *Info {
	if info, ok := registry[chainId]; ok {
		return info
	}
	return registry[DefaultChainId]
}

// MilestoneThreshold 返回指定链第index档的募资门槛
// index越过档位表末尾时返回 (nil, false)
func MilestoneThreshold(chainId int64, index int) (*big.Int, bool) {
	info := Lookup(chainId)
	if index < 0 || index >= len(info.Milestones) {
		return nil, false
	}
	return info.Milestones[index], true
}
