package evolution

import (
	"context"
	"errors"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProjectStore 内存版项目存储，状态迁移语义与数据库实现一致
type fakeProjectStore struct {
	project       *model.Project
	denyLock      bool
	completeCalls int
	releaseCalls  int
	completeErr   error
}

func (f *fakeProjectStore) GetIdleProject(contractAddress string) (*model.Project, error) {
	if f.project == nil || f.project.IsFinalized || f.project.EvolutionStatus != model.StatusIdle {
		return nil, nil
	}
	clone := *f.project
	return &clone, nil
}

func (f *fakeProjectStore) TryTransition(contractAddress string, from, to model.EvolutionStatus) (bool, error) {
	if f.denyLock || f.project == nil || f.project.EvolutionStatus != from {
		return false, nil
	}
	f.project.EvolutionStatus = to
	return true, nil
}

func (f *fakeProjectStore) CompleteEvolution(contractAddress, name, logoURL string) error {
	f.completeCalls++
	if f.completeErr != nil {
		return f.completeErr
	}
	f.project.EvolutionStatus = model.StatusIdle
	f.project.CurrentMilestoneIndex++
	f.project.CurrentName = name
	f.project.CurrentLogoURL = logoURL
	return nil
}

func (f *fakeProjectStore) ReleaseLock(contractAddress string) error {
	f.releaseCalls++
	f.project.EvolutionStatus = model.StatusIdle
	return nil
}

func (f *fakeProjectStore) ReleaseExpiredLock(contractAddress string) (bool, error) {
	p := f.project
	if p == nil || p.EvolutionStatus != model.StatusEmergencyLocked {
		return false, nil
	}
	if p.EmergencyLockUntil == nil || time.Now().Before(*p.EmergencyLockUntil) {
		return false, nil
	}
	p.EvolutionStatus = model.StatusIdle
	p.EmergencyLockReason = ""
	p.EmergencyLockUntil = nil
	return true, nil
}

type fakeSuggestionStore struct {
	suggestions []model.Suggestion
	err         error
}

func (f *fakeSuggestionStore) RecentSuggestions(contractAddress string, limit int) ([]model.Suggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestions, nil
}

type fakeGenerator struct {
	url   string
	err   error
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type fakeCache struct {
	cleared []string
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) bool { return false }
func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
}
func (f *fakeCache) Delete(ctx context.Context, keys ...string) {}
func (f *fakeCache) ClearProjectCache(ctx context.Context, contractAddress string) {
	f.cleared = append(f.cleared, contractAddress)
}

func wei(native int64) string {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(native), one).String()
}

func testProject(mode model.EvolutionMode, raised string) *model.Project {
	return &model.Project{
		ContractAddress:       "0xproject",
		ChainId:               80002,
		EvolutionMode:         mode,
		EvolutionStatus:       model.StatusIdle,
		CurrentMilestoneIndex: 0,
		TotalRaised:           raised,
	}
}

func newTestEngine(store *fakeProjectStore, gen *fakeGenerator, cache *fakeCache) *Engine {
	pipeline := NewPipeline(gen, rand.New(rand.NewSource(1)))
	return NewEngine(store, &fakeSuggestionStore{}, pipeline, cache, 50)
}

func TestCheckAndTriggerAdvancesMilestone(t *testing.T) {
	store := &fakeProjectStore{project: testProject(model.ModeDemocracy, wei(100))}
	gen := &fakeGenerator{url: "https://cdn.example/logo.png"}
	cache := &fakeCache{}
	engine := newTestEngine(store, gen, cache)

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.True(t, triggered)

	assert.Equal(t, 1, store.project.CurrentMilestoneIndex)
	assert.Equal(t, model.StatusIdle, store.project.EvolutionStatus)
	assert.Equal(t, "https://cdn.example/logo.png", store.project.CurrentLogoURL)
	assert.Equal(t, []string{"0xproject"}, cache.cleared)
}

func TestCheckAndTriggerBelowThreshold(t *testing.T) {
	// 第0档门槛是100个原生币，99不够
	store := &fakeProjectStore{project: testProject(model.ModeDemocracy, wei(99))}
	gen := &fakeGenerator{url: "u"}
	engine := newTestEngine(store, gen, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 0, store.project.CurrentMilestoneIndex)
}

func TestCheckAndTriggerExactThreshold(t *testing.T) {
	// 达标判定是大于等于
	store := &fakeProjectStore{project: testProject(model.ModeChaos, wei(100))}
	engine := newTestEngine(store, &fakeGenerator{url: "u"}, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestCheckAndTriggerStandardModeNeverEvolves(t *testing.T) {
	store := &fakeProjectStore{project: testProject(model.ModeStandard, wei(5000))}
	gen := &fakeGenerator{url: "u"}
	engine := newTestEngine(store, gen, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Equal(t, 0, gen.calls)
}

func TestCheckAndTriggerPastScheduleEnd(t *testing.T) {
	project := testProject(model.ModeDemocracy, wei(1000000))
	project.CurrentMilestoneIndex = 4 // 档位表只有4档
	store := &fakeProjectStore{project: project}
	engine := newTestEngine(store, &fakeGenerator{url: "u"}, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCheckAndTriggerLockBusy(t *testing.T) {
	// 读到IDLE快照后锁被并发调用方抢走，比较交换落空
	store := &fakeProjectStore{project: testProject(model.ModeDemocracy, wei(100)), denyLock: true}
	gen := &fakeGenerator{url: "u"}
	engine := newTestEngine(store, gen, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Equal(t, 0, gen.calls)
}

func TestCheckAndTriggerPipelineFailureKeepsMilestone(t *testing.T) {
	store := &fakeProjectStore{project: testProject(model.ModeDemocracy, wei(100))}
	gen := &fakeGenerator{err: errors.New("generator down")}
	engine := newTestEngine(store, gen, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.False(t, triggered)

	// 锁被释放，里程碑原地不动，下一个达标事件重试同一档
	assert.Equal(t, 1, store.releaseCalls)
	assert.Equal(t, 0, store.completeCalls)
	assert.Equal(t, 0, store.project.CurrentMilestoneIndex)
	assert.Equal(t, model.StatusIdle, store.project.EvolutionStatus)
}

func TestCheckAndTriggerMissingProject(t *testing.T) {
	engine := newTestEngine(&fakeProjectStore{}, &fakeGenerator{url: "u"}, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xmissing")
	require.NoError(t, err)
	assert.False(t, triggered)
}

func TestCheckAndTriggerActiveEmergencyLockBlocks(t *testing.T) {
	project := testProject(model.ModeDemocracy, wei(100))
	project.EvolutionStatus = model.StatusEmergencyLocked
	project.EmergencyLockReason = "suspicious volume"
	until := time.Now().Add(time.Hour)
	project.EmergencyLockUntil = &until
	store := &fakeProjectStore{project: project}
	gen := &fakeGenerator{url: "u"}
	engine := newTestEngine(store, gen, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.False(t, triggered)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, model.StatusEmergencyLocked, store.project.EvolutionStatus)
}

func TestCheckAndTriggerExpiredEmergencyLockRecovers(t *testing.T) {
	// 锁过期后项目停在EMERGENCY_LOCKED，触发前要恢复成IDLE再走进化
	project := testProject(model.ModeDemocracy, wei(100))
	project.EvolutionStatus = model.StatusEmergencyLocked
	project.EmergencyLockReason = "suspicious volume"
	until := time.Now().Add(-time.Minute)
	project.EmergencyLockUntil = &until
	store := &fakeProjectStore{project: project}
	engine := newTestEngine(store, &fakeGenerator{url: "u"}, &fakeCache{})

	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Equal(t, 1, store.project.CurrentMilestoneIndex)
	assert.Equal(t, model.StatusIdle, store.project.EvolutionStatus)
	assert.Empty(t, store.project.EmergencyLockReason)
	assert.Nil(t, store.project.EmergencyLockUntil)
}

func TestCheckAndTriggerSuggestionFailureDegrades(t *testing.T) {
	store := &fakeProjectStore{project: testProject(model.ModeDemocracy, wei(100))}
	gen := &fakeGenerator{url: "u"}
	pipeline := NewPipeline(gen, rand.New(rand.NewSource(1)))
	engine := NewEngine(store, &fakeSuggestionStore{err: errors.New("db down")}, pipeline, &fakeCache{}, 50)

	// 建议池读不出来按空池降级，进化照常
	triggered, err := engine.CheckAndTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Equal(t, "Mystery Evolution", store.project.CurrentName)
}
