package metrics

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 内存缓存，只支持快照和侧车用到的值类型
type memStore struct {
	values map[string]interface{}
	ttls   map[string]time.Duration
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]interface{}), ttls: make(map[string]time.Duration)}
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) bool {
	v, ok := m.values[key]
	if !ok {
		return false
	}
	switch d := dest.(type) {
	case *string:
		*d = v.(string)
	case *ChangeSidecar:
		*d = v.(ChangeSidecar)
	}
	return true
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	m.values[key] = value
	m.ttls[key] = ttl
}

func (m *memStore) Delete(ctx context.Context, keys ...string) {
	for _, k := range keys {
		delete(m.values, k)
	}
}

func (m *memStore) ClearProjectCache(ctx context.Context, contractAddress string) {}

func TestSnapshotterRecordUsesHourBucket(t *testing.T) {
	store := newMemStore()
	s := NewSnapshotter(store)
	now := time.Date(2026, 8, 31, 14, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Record(context.Background(), 80002, "0xAAA", big.NewInt(12345))

	key := "prices:80002:0xaaa:2026083114"
	require.Contains(t, store.values, key)
	assert.Equal(t, "12345", store.values[key])
	assert.Equal(t, snapshotTTL, store.ttls[key])
}

func TestSnapshotterChanges(t *testing.T) {
	store := newMemStore()
	s := NewSnapshotter(store)
	now := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	// 一小时前100，一天前200，其余窗口缺失
	store.values["prices:80002:0xaaa:2026083113"] = "100"
	store.values["prices:80002:0xaaa:2026083014"] = "200"

	changes := s.Changes(context.Background(), 80002, "0xaaa", big.NewInt(150))

	assert.InDelta(t, 50.0, changes.H1, 1e-9)
	assert.InDelta(t, -25.0, changes.H24, 1e-9)
	// 缺失的窗口一律按0
	assert.Equal(t, 0.0, changes.H2)
	assert.Equal(t, 0.0, changes.W1)
	assert.Equal(t, 0.0, changes.D30)
}

func TestSnapshotterRecordSidecar(t *testing.T) {
	store := newMemStore()
	s := NewSnapshotter(store)
	now := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.RecordSidecar(context.Background(), "0xAAA", PriceChanges{H2: 12.5, W1: -3.25})

	key := "pchange:0xaaa"
	require.Contains(t, store.values, key)
	sc := store.values[key].(ChangeSidecar)
	assert.Equal(t, 12.5, sc.PC2H)
	assert.Equal(t, -3.25, sc.PC1W)
	assert.Equal(t, now, sc.UpdatedAt)
	assert.Equal(t, sidecarTTL, store.ttls[key])
}

func TestSnapshotterChangesBadSnapshotValue(t *testing.T) {
	store := newMemStore()
	s := NewSnapshotter(store)
	now := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	store.values["prices:80002:0xaaa:2026083113"] = "not a number"
	store.values["prices:80002:0xaaa:2026083112"] = "0"

	changes := s.Changes(context.Background(), 80002, "0xaaa", big.NewInt(150))
	assert.Equal(t, 0.0, changes.H1)
	assert.Equal(t, 0.0, changes.H2)
}
