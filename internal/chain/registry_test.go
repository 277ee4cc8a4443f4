package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownChain(t *testing.T) {
	info := Lookup(137)
	require.NotNil(t, info)
	assert.Equal(t, int64(137), info.Id)
	assert.Equal(t, "polygon", info.Name)
	assert.Equal(t, "POL", info.NativeSymbol)
}

func TestLookupUnknownChainFallsBackToDefault(t *testing.T) {
	info := Lookup(999999)
	require.NotNil(t, info)
	assert.Equal(t, DefaultChainId, info.Id)
	assert.Equal(t, "polygon-amoy", info.Name)
}

func TestMilestoneThreshold(t *testing.T) {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// 低币值链：100个原生币起步
	threshold, ok := MilestoneThreshold(80002, 0)
	require.True(t, ok)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(100), one), threshold)

	// 高币值链：1个原生币起步
	threshold, ok = MilestoneThreshold(1, 0)
	require.True(t, ok)
	assert.Equal(t, one, threshold)

	// 中币值链最后一档
	threshold, ok = MilestoneThreshold(56, 3)
	require.True(t, ok)
	assert.Equal(t, new(big.Int).Mul(big.NewInt(500), one), threshold)
}

func TestMilestoneThresholdPastEnd(t *testing.T) {
	_, ok := MilestoneThreshold(137, 4)
	assert.False(t, ok)

	_, ok = MilestoneThreshold(137, -1)
	assert.False(t, ok)
}

func TestMilestoneSchedulesAscending(t *testing.T) {
	for chainId, info := range registry {
		for i := 1; i < len(info.Milestones); i++ {
			assert.Equal(t, 1, info.Milestones[i].Cmp(info.Milestones[i-1]),
				"chain %d milestone %d not greater than previous", chainId, i)
		}
	}
}
