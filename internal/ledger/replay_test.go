package ledger

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func investedEvent(buyer string, amountIn, tokensOut int64, at time.Time) model.ProjectEvent {
	return model.ProjectEvent{
		EventName: model.EventInvested,
		EventData: fmt.Sprintf(`{"buyer":"%s","amountIn":%d,"tokensOut":%d}`, buyer, amountIn, tokensOut),
		CreatedAt: at,
	}
}

func soldEvent(seller string, tokensIn, amountOut int64, at time.Time) model.ProjectEvent {
	return model.ProjectEvent{
		EventName: model.EventSold,
		EventData: fmt.Sprintf(`{"seller":"%s","tokensIn":%d,"amountOut":%d}`, seller, tokensIn, amountOut),
		CreatedAt: at,
	}
}

func TestHolderCountDistinctBuyers(t *testing.T) {
	now := time.Now()
	events := []model.ProjectEvent{
		investedEvent("0xAAA", 100, 10, now),
		investedEvent("0xaaa", 200, 20, now), // 同一地址不同大小写
		investedEvent("0xbbb", 300, 30, now),
		soldEvent("0xccc", 5, 50, now), // 卖家不算持有人
	}
	assert.Equal(t, 2, HolderCount(events))
}

func TestHolderCountSkipsMalformedPayload(t *testing.T) {
	events := []model.ProjectEvent{
		{EventName: model.EventInvested, EventData: `not json`},
		{EventName: model.EventInvested, EventData: `{"amountIn":1}`},
	}
	assert.Equal(t, 0, HolderCount(events))
}

func TestVolume24hWindow(t *testing.T) {
	now := time.Now()
	events := []model.ProjectEvent{
		investedEvent("0xaaa", 100, 10, now.Add(-time.Hour)),
		soldEvent("0xaaa", 5, 40, now.Add(-23*time.Hour)),
		investedEvent("0xbbb", 999, 10, now.Add(-25*time.Hour)), // 窗口外
	}
	assert.Equal(t, big.NewInt(140), Volume24h(events, now))
}

func TestReplayBalances(t *testing.T) {
	now := time.Now()
	events := []model.ProjectEvent{
		investedEvent("0xAAA", 100, 50, now),
		investedEvent("0xaaa", 100, 30, now),
		soldEvent("0xaaa", 20, 10, now),
		investedEvent("0xbbb", 100, 70, now),
	}

	balances := ReplayBalances(events)
	require.Len(t, balances, 2)
	assert.Equal(t, big.NewInt(60), balances["0xaaa"])
	assert.Equal(t, big.NewInt(70), balances["0xbbb"])
}

func TestTopHoldersOrderingAndPercent(t *testing.T) {
	balances := map[string]*big.Int{
		"0xaaa": big.NewInt(500),
		"0xbbb": big.NewInt(300),
		"0xccc": big.NewInt(0), // 零余额不进榜
	}
	holders := TopHolders(balances, "0xfff", big.NewInt(200), big.NewInt(1000), 10)

	require.Len(t, holders, 3)
	assert.Equal(t, "0xaaa", holders[0].Address)
	assert.Equal(t, 50.0, holders[0].Percent)
	assert.Equal(t, "0xbbb", holders[1].Address)
	assert.Equal(t, 30.0, holders[1].Percent)
	assert.Equal(t, "0xfff", holders[2].Address)
	assert.Equal(t, 20.0, holders[2].Percent)
}

func TestTopHoldersLimitAndTiebreak(t *testing.T) {
	balances := map[string]*big.Int{
		"0xbbb": big.NewInt(100),
		"0xaaa": big.NewInt(100),
		"0xccc": big.NewInt(100),
	}
	holders := TopHolders(balances, "0xfff", nil, big.NewInt(1000), 2)

	require.Len(t, holders, 2)
	// 余额相同时按地址字典序稳定排序
	assert.Equal(t, "0xaaa", holders[0].Address)
	assert.Equal(t, "0xbbb", holders[1].Address)
}

func TestTopHoldersPercentWithoutSupply(t *testing.T) {
	balances := map[string]*big.Int{"0xaaa": big.NewInt(100)}
	holders := TopHolders(balances, "0xfff", nil, nil, 10)

	require.Len(t, holders, 1)
	assert.Equal(t, 0.0, holders[0].Percent)
}

func TestTopHoldersPercentClamped(t *testing.T) {
	// 台账畸形导致余额超过总供给时占比钳在100
	balances := map[string]*big.Int{"0xaaa": big.NewInt(2000)}
	holders := TopHolders(balances, "0xfff", nil, big.NewInt(1000), 10)

	require.Len(t, holders, 1)
	assert.Equal(t, 100.0, holders[0].Percent)
}

func TestTradesMapping(t *testing.T) {
	now := time.Now()
	buy := investedEvent("0xAAA", 100, 50, now)
	buy.TxHash = "0x01"
	buy.BlockNumber = 7
	sell := soldEvent("0xbbb", 20, 10, now)
	sell.TxHash = "0x02"
	sell.BlockNumber = 8
	bad := model.ProjectEvent{EventName: model.EventInvested, EventData: `broken`}

	trades := Trades([]model.ProjectEvent{buy, sell, bad})
	require.Len(t, trades, 2)

	assert.Equal(t, "BUY", trades[0].Type)
	assert.Equal(t, "0xaaa", trades[0].Trader)
	assert.Equal(t, "100", trades[0].NativeAmount)
	assert.Equal(t, "50", trades[0].TokenAmount)
	assert.Equal(t, uint64(7), trades[0].BlockNumber)

	assert.Equal(t, "SELL", trades[1].Type)
	assert.Equal(t, "0xbbb", trades[1].Trader)
	assert.Equal(t, "10", trades[1].NativeAmount)
	assert.Equal(t, "20", trades[1].TokenAmount)
}

func TestReplayDeterministic(t *testing.T) {
	now := time.Now()
	events := []model.ProjectEvent{
		investedEvent("0xaaa", 100, 50, now),
		soldEvent("0xaaa", 10, 5, now),
		investedEvent("0xbbb", 200, 80, now),
	}

	first := ReplayBalances(events)
	second := ReplayBalances(events)
	require.Equal(t, len(first), len(second))
	for addr, b := range first {
		assert.Equal(t, 0, b.Cmp(second[addr]))
	}
}
