package chain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Multicall3 在所有支持的链上部署在同一地址
var multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicall3ABI = `[
	{
		"inputs": [
			{
				"components": [
					{"name": "target", "type": "address"},
					{"name": "allowFailure", "type": "bool"},
					{"name": "callData", "type": "bytes"}
				],
				"name": "calls",
				"type": "tuple[]"
			}
		],
		"name": "aggregate3",
		"outputs": [
			{
				"components": [
					{"name": "success", "type": "bool"},
					{"name": "returnData", "type": "bytes"}
				],
				"name": "returnData",
				"type": "tuple[]"
			}
		],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// 数据拉取比探活允许更长的超时
const multicallTimeout = 10 * time.Second

// Call 一次multicall中的单个子调用
type Call struct {
	Target   common.Address
	CallData []byte
}

// Result 子调用结果，Success为false时ReturnData无意义
type Result struct {
	Success    bool
	ReturnData []byte
}

// Multicall 把一批独立的合约读操作合并成一次RPC请求
// 子调用允许单独失败，整批不会因此失败
func Multicall(ctx context.Context, client *ethclient.Client, calls []Call) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	parsed, err := abi.JSON(strings.NewReader(multicall3ABI))
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	type mcCall struct {
		Target       common.Address `abi:"target"`
		AllowFailure bool           `abi:"allowFailure"`
		CallData     []byte         `abi:"callData"`
	}
	packed := make([]mcCall, len(calls))
	for i, c := range calls {
		packed[i] = mcCall{Target: c.Target, AllowFailure: true, CallData: c.CallData}
	}

	input, err := parsed.Pack("aggregate3", packed)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, multicallTimeout)
	defer cancel()

	output, err := client.CallContract(callCtx, ethereum.CallMsg{
		To:   &multicall3Address,
		Data: input,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall: %w", err)
	}

	var raw []struct {
		Success    bool   `abi:"success"`
		ReturnData []byte `abi:"returnData"`
	}
	if err := parsed.UnpackIntoInterface(&raw, "aggregate3", output); err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}

	results := make([]Result, len(raw))
	for i, r := range raw {
		results[i] = Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}
