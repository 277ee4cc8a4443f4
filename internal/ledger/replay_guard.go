package ledger

import (
	"sync"
	"time"
)

const (
	guardSweepThreshold = 50
	guardMaxAge         = 30 * time.Minute
)

// ReplayGuard 有界的内存防重表，键是 txHash_logIndex
// 只用来省掉短窗口内的重复台账查询，永远不作为幂等性依据
type ReplayGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	maxAge  time.Duration
	now     func() time.Time
}

// NewReplayGuard 创建防重表
func NewReplayGuard() *ReplayGuard {
	return &ReplayGuard{
		entries: make(map[string]time.Time),
		maxAge:  guardMaxAge,
		now:     time.Now,
	}
}

// Seen 短窗口内是否已处理过该事件
func (g *ReplayGuard) Seen(eventId string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	seenAt, ok := g.entries[eventId]
	if !ok {
		return false
	}
	if g.now().Sub(seenAt) > g.maxAge {
		delete(g.entries, eventId)
		return false
	}
	return true
}

// Mark 记录事件已处理，表超限时先清掉过期条目
func (g *ReplayGuard) Mark(eventId string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.entries) > guardSweepThreshold {
		cutoff := g.now().Add(-g.maxAge)
		for id, seenAt := range g.entries {
			if seenAt.Before(cutoff) {
				delete(g.entries, id)
			}
		}
	}
	g.entries[eventId] = g.now()
}

// Len 当前条目数
func (g *ReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}
