package poller

import (
	"context"

	"github.com/LolHubFun/server-vps/internal/chain"
)

// ChainClientProvider 把 chain.Provider 适配成轮询器需要的接口
type ChainClientProvider struct {
	provider *chain.Provider
}

func NewChainClientProvider(provider *chain.Provider) *ChainClientProvider {
	return &ChainClientProvider{provider: provider}
}

func (p *ChainClientProvider) Reader(ctx context.Context, chainId int64) (ChainReader, error) {
	return p.provider.GetClient(ctx, chainId, "")
}
