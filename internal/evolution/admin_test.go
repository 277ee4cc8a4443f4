package evolution

import (
	"context"
	"testing"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdminStore 内存版锁定存储
type fakeAdminStore struct {
	found  bool
	reason string
	until  *time.Time
}

func (f *fakeAdminStore) SetEmergencyLock(contractAddress, reason string, until time.Time) (bool, error) {
	if !f.found {
		return false, nil
	}
	f.reason = reason
	f.until = &until
	return true, nil
}

func (f *fakeAdminStore) ActiveEmergencyLock(contractAddress string) (string, bool, error) {
	if f.until == nil || time.Now().After(*f.until) {
		return "", false, nil
	}
	return f.reason, true, nil
}

func TestEmergencyLockDefaultDuration(t *testing.T) {
	store := &fakeAdminStore{found: true}
	admin := NewAdmin(store, nil)

	require.NoError(t, admin.EmergencyLock("0xproject", "rug risk", 0))
	require.NotNil(t, store.until)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *store.until, time.Minute)
}

func TestEmergencyLockUnknownProject(t *testing.T) {
	admin := NewAdmin(&fakeAdminStore{}, nil)
	assert.Error(t, admin.EmergencyLock("0xmissing", "rug risk", 1))
}

func TestManualTriggerRefusedWhileLocked(t *testing.T) {
	store := &fakeAdminStore{found: true}
	projects := &fakeProjectStore{project: testProject(model.ModeDemocracy, wei(100))}
	gen := &fakeGenerator{url: "u"}
	admin := NewAdmin(store, newTestEngine(projects, gen, &fakeCache{}))

	require.NoError(t, admin.EmergencyLock("0xproject", "rug risk", 2))

	_, err := admin.ManualTrigger(context.Background(), "0xproject")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rug risk")
	assert.Equal(t, 0, gen.calls)
}

func TestManualTriggerAfterLockExpiry(t *testing.T) {
	// 锁到期后人工触发要能把项目从EMERGENCY_LOCKED救回来并完成进化
	expired := time.Now().Add(-time.Minute)
	store := &fakeAdminStore{found: true, reason: "rug risk", until: &expired}

	project := testProject(model.ModeDemocracy, wei(100))
	project.EvolutionStatus = model.StatusEmergencyLocked
	project.EmergencyLockUntil = &expired
	projects := &fakeProjectStore{project: project}
	admin := NewAdmin(store, newTestEngine(projects, &fakeGenerator{url: "u"}, &fakeCache{}))

	triggered, err := admin.ManualTrigger(context.Background(), "0xproject")
	require.NoError(t, err)
	assert.True(t, triggered)
	assert.Equal(t, model.StatusIdle, projects.project.EvolutionStatus)
	assert.Equal(t, 1, projects.project.CurrentMilestoneIndex)
}
