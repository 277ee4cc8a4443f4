package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxReader 按需拉取原始交易，给建议解码用
type TxReader struct {
	provider *Provider
}

// NewTxReader 创建交易读取器
func NewTxReader(provider *Provider) *TxReader {
	return &TxReader{provider: provider}
}

// TransactionInput 返回交易的输入数据和发起人地址
func (r *TxReader) TransactionInput(ctx context.Context, chainId int64, txHash common.Hash) ([]byte, common.Address, error) {
	client, err := r.provider.GetClient(ctx, chainId, "")
	if err != nil {
		return nil, common.Address{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, pending, err := client.TransactionByHash(callCtx, txHash)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("fetch transaction: %w", err)
	}
	if pending {
		return nil, common.Address{}, fmt.Errorf("transaction %s still pending", txHash.Hex())
	}

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("recover sender: %w", err)
	}
	return tx.Data(), from, nil
}
