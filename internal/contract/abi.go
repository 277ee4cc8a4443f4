package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// 工厂合约ABI（只含监听所需部分）
const factoryABIJson = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "tokenAddress", "type": "address"},
			{"indexed": true, "name": "implementationAddress", "type": "address"},
			{"indexed": true, "name": "creator", "type": "address"},
			{"indexed": false, "name": "evolutionMode", "type": "string"},
			{"indexed": false, "name": "chainId", "type": "uint256"}
		],
		"name": "TokenCreated",
		"type": "event"
	}
]`

// 代币合约ABI（事件、读方法、invest入参解码所需部分）
const tokenABIJson = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "buyer", "type": "address"},
			{"indexed": false, "name": "amountIn", "type": "uint256"},
			{"indexed": false, "name": "tokensOut", "type": "uint256"}
		],
		"name": "Invested",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "seller", "type": "address"},
			{"indexed": false, "name": "tokensIn", "type": "uint256"},
			{"indexed": false, "name": "amountOut", "type": "uint256"}
		],
		"name": "Sold",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "name": "lpPair", "type": "address"},
			{"indexed": false, "name": "totalRaised", "type": "uint256"}
		],
		"name": "Finalized",
		"type": "event"
	},
	{
		"inputs": [
			{"name": "referrer", "type": "address"},
			{"name": "nameSuggestion", "type": "string"},
			{"name": "charSuggestion", "type": "string"}
		],
		"name": "invest",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalRaised",
		"outputs": [{"type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "totalSupply",
		"outputs": [{"type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	FactoryABI = mustParseABI(factoryABIJson)
	TokenABI   = mustParseABI(tokenABIJson)
)

// 事件签名哈希，轮询器用来构造日志过滤条件
var (
	TokenCreatedTopic = FactoryABI.Events["TokenCreated"].ID
	InvestedTopic     = TokenABI.Events["Invested"].ID
	SoldTopic         = TokenABI.Events["Sold"].ID
	FinalizedTopic    = TokenABI.Events["Finalized"].ID
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid contract ABI: %v", err))
	}
	return parsed
}

// PackCall 打包一次无参或有参的合约读调用
func PackCall(method string, args ...interface{}) []byte {
	data, err := TokenABI.Pack(method, args...)
	if err != nil {
		panic(fmt.Sprintf("pack %s: %v", method, err))
	}
	return data
}

// NormalizeAddress 地址统一小写，作为数据库键使用
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
