package ledger

import (
	"encoding/json"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/LolHubFun/server-vps/internal/model"
)

// 台账条目payload的重放视图，只认字段名
type investedPayload struct {
	Buyer     string   `json:"buyer"`
	AmountIn  *big.Int `json:"amountIn"`
	TokensOut *big.Int `json:"tokensOut"`
}

type soldPayload struct {
	Seller    string   `json:"seller"`
	TokensIn  *big.Int `json:"tokensIn"`
	AmountOut *big.Int `json:"amountOut"`
}

// HolderCount 重放台账得到持有人数：出现过的不同买家地址数
func HolderCount(events []model.ProjectEvent) int {
	buyers := make(map[string]struct{})
	for _, e := range events {
		if e.EventName != model.EventInvested {
			continue
		}
		var p investedPayload
		if err := json.Unmarshal([]byte(e.EventData), &p); err != nil || p.Buyer == "" {
			continue
		}
		buyers[strings.ToLower(p.Buyer)] = struct{}{}
	}
	return len(buyers)
}

// Volume24h 重放台账得到24小时交易量：窗口内买入与卖出金额之和
func Volume24h(events []model.ProjectEvent, now time.Time) *big.Int {
	cutoff := now.Add(-24 * time.Hour)
	total := new(big.Int)
	for _, e := range events {
		if e.CreatedAt.Before(cutoff) {
			continue
		}
		switch e.EventName {
		case model.EventInvested:
			var p investedPayload
			if err := json.Unmarshal([]byte(e.EventData), &p); err != nil || p.AmountIn == nil {
				continue
			}
			total.Add(total, p.AmountIn)
		case model.EventSold:
			var p soldPayload
			if err := json.Unmarshal([]byte(e.EventData), &p); err != nil || p.AmountOut == nil {
				continue
			}
			total.Add(total, p.AmountOut)
		}
	}
	return total
}

// ReplayBalances 把完整的买卖台账重放成地址->代币余额表
func ReplayBalances(events []model.ProjectEvent) map[string]*big.Int {
	balances := make(map[string]*big.Int)
	get := func(addr string) *big.Int {
		addr = strings.ToLower(addr)
		if b, ok := balances[addr]; ok {
			return b
		}
		b := new(big.Int)
		balances[addr] = b
		return b
	}

	for _, e := range events {
		switch e.EventName {
		case model.EventInvested:
			var p investedPayload
			if err := json.Unmarshal([]byte(e.EventData), &p); err != nil || p.Buyer == "" || p.TokensOut == nil {
				continue
			}
			get(p.Buyer).Add(get(p.Buyer), p.TokensOut)
		case model.EventSold:
			var p soldPayload
			if err := json.Unmarshal([]byte(e.EventData), &p); err != nil || p.Seller == "" || p.TokensIn == nil {
				continue
			}
			get(p.Seller).Sub(get(p.Seller), p.TokensIn)
		}
	}
	return balances
}

// Trade 交易历史条目，从台账重放得出
type Trade struct {
	Type         string    `json:"type"` // BUY / SELL
	Trader       string    `json:"trader"`
	NativeAmount string    `json:"native_amount"`
	TokenAmount  string    `json:"token_amount"`
	TxHash       string    `json:"tx_hash"`
	BlockNumber  uint64    `json:"block_number"`
	Timestamp    time.Time `json:"timestamp"`
}

// Trades 把买卖事件映射成交易历史，保持输入顺序，坏payload跳过
func Trades(events []model.ProjectEvent) []Trade {
	trades := make([]Trade, 0, len(events))
	for _, e := range events {
		switch e.EventName {
		case model.EventInvested:
			var p investedPayload
			if err := json.Unmarshal([]byte(e.EventData), &p); err != nil || p.Buyer == "" || p.AmountIn == nil || p.TokensOut == nil {
				continue
			}
			trades = append(trades, Trade{
				Type:         "BUY",
				Trader:       strings.ToLower(p.Buyer),
				NativeAmount: p.AmountIn.String(),
				TokenAmount:  p.TokensOut.String(),
				TxHash:       e.TxHash,
				BlockNumber:  e.BlockNumber,
				Timestamp:    e.CreatedAt,
			})
		case model.EventSold:
			var p soldPayload
			if err := json.Unmarshal([]byte(e.EventData), &p); err != nil || p.Seller == "" || p.TokensIn == nil || p.AmountOut == nil {
				continue
			}
			trades = append(trades, Trade{
				Type:         "SELL",
				Trader:       strings.ToLower(p.Seller),
				NativeAmount: p.AmountOut.String(),
				TokenAmount:  p.TokensIn.String(),
				TxHash:       e.TxHash,
				BlockNumber:  e.BlockNumber,
				Timestamp:    e.CreatedAt,
			})
		}
	}
	return trades
}

// Holder 持仓占比条目，Percent是定点两位小数并被钳在[0,100]
type Holder struct {
	Address string  `json:"address"`
	Balance string  `json:"balance"`
	Percent float64 `json:"percent"`
}

// TopHolders 按余额排序的前n名持仓分布，含合约自身保留的份额
func TopHolders(balances map[string]*big.Int, contractAddress string, contractBalance, totalSupply *big.Int, n int) []Holder {
	type entry struct {
		addr    string
		balance *big.Int
	}
	entries := make([]entry, 0, len(balances)+1)
	for addr, b := range balances {
		if b.Sign() > 0 {
			entries = append(entries, entry{addr: addr, balance: b})
		}
	}
	if contractBalance != nil && contractBalance.Sign() > 0 {
		entries = append(entries, entry{addr: strings.ToLower(contractAddress), balance: contractBalance})
	}

	sort.Slice(entries, func(i, j int) bool {
		cmp := entries[i].balance.Cmp(entries[j].balance)
		if cmp != 0 {
			return cmp > 0
		}
		return entries[i].addr < entries[j].addr
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	holders := make([]Holder, len(entries))
	for i, e := range entries {
		holders[i] = Holder{
			Address: e.addr,
			Balance: e.balance.String(),
			Percent: supplyPercent(e.balance, totalSupply),
		}
	}
	return holders
}

// supplyPercent 余额占总供应量的百分比，两位小数，钳在[0,100]
func supplyPercent(balance, totalSupply *big.Int) float64 {
	if totalSupply == nil || totalSupply.Sign() <= 0 || balance == nil {
		return 0
	}
	// 先放大到百分之一单位再除，避免浮点参与大整数运算
	hundredths := new(big.Int).Mul(balance, big.NewInt(10000))
	hundredths.Quo(hundredths, totalSupply)
	pct := float64(hundredths.Int64()) / 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
