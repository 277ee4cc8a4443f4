package cache

import (
	"fmt"
	"strings"
	"time"
)

// 缓存键统一在这里构造，版本号变更即整体失效

// ListKey 项目列表缓存键（排序×模式×分页）
func ListKey(page, limit int, sortBy, mode string) string {
	return fmt.Sprintf("projects:list:v16:p%d:l%d:s%s:m%s", page, limit, sortBy, mode)
}

// DetailKey 项目详情缓存键
func DetailKey(contractAddress string) string {
	return fmt.Sprintf("project:detail:v4:%s", strings.ToLower(contractAddress))
}

// TradesKey 项目交易历史缓存键
func TradesKey(contractAddress string) string {
	return fmt.Sprintf("trades:history:%s", strings.ToLower(contractAddress))
}

// SidecarKey 短周期涨跌幅侧车缓存键
func SidecarKey(contractAddress string) string {
	return fmt.Sprintf("pchange:%s", strings.ToLower(contractAddress))
}

// RankingKey 排行榜缓存键
func RankingKey(sortBy string, chainId int64, limit int) string {
	chain := "all"
	if chainId > 0 {
		chain = fmt.Sprintf("%d", chainId)
	}
	return fmt.Sprintf("ranking:%s:chain:%s:limit:%d:v8", sortBy, chain, limit)
}

// PriceSnapshotKey 按小时分桶的价格快照键
func PriceSnapshotKey(chainId int64, contractAddress string, at time.Time) string {
	return fmt.Sprintf("prices:%d:%s:%s", chainId, strings.ToLower(contractAddress), HourBucket(at))
}

// HourBucket UTC小时桶，格式 YYYYMMDDHH
func HourBucket(at time.Time) string {
	return at.UTC().Format("2006010215")
}

// RateLimitKey 按分钟分桶的限流计数键
func RateLimitKey(scope, ip string, at time.Time) string {
	return fmt.Sprintf("rl:%s:%s:%s", scope, ip, at.UTC().Format("200601021504"))
}
