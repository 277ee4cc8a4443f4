package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LolHubFun/server-vps/internal/config"
	"github.com/LolHubFun/server-vps/internal/logger"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNoUsableRPC 用户节点和兜底节点都不可用
// 调用方应视为可重试错误，留给下个轮询周期，而不是让进程退出
var ErrNoUsableRPC = errors.New("no usable rpc endpoint")

// 探活用的短超时，兜底最后一搏时加倍
const probeTimeout = 2 * time.Second

// Provider 只读链客户端提供者
// 解析顺序：调用方提供的节点优先，失败后用该链配置的带鉴权兜底节点
type Provider struct {
	cfg config.ChainConfig
}

// NewProvider 创建客户端提供者
func NewProvider(cfg config.ChainConfig) *Provider {
	return &Provider{cfg: cfg}
}

// GetClient 按链ID解析一个可用客户端，userEndpoint可为空
func (p *Provider) GetClient(ctx context.Context, chainId int64, userEndpoint string) (*ethclient.Client, error) {
	info := Lookup(chainId)

	if userEndpoint != "" {
		client, err := dialAndProbe(ctx, userEndpoint, probeTimeout)
		if err == nil {
			logger.Debug("Using caller-supplied RPC for chain %d", info.Id)
			return client, nil
		}
		logger.Warn("User RPC failed for chain %d: %v", info.Id, err)
	}

	fallbackUrl := p.cfg.FallbackRpcUrl(info.Id)
	if fallbackUrl == "" {
		fallbackUrl = p.cfg.FallbackRpcUrl(p.cfg.DefaultChainId)
	}
	if fallbackUrl == "" {
		return nil, fmt.Errorf("%w: chain %d has no fallback endpoint configured", ErrNoUsableRPC, info.Id)
	}

	client, err := dialAndProbe(ctx, fallbackUrl, probeTimeout)
	if err == nil {
		return client, nil
	}
	logger.Warn("Fallback RPC failed for chain %d, retrying with longer timeout: %v", info.Id, err)

	// 最后用双倍超时再试一次兜底节点
	client, err = dialAndProbe(ctx, fallbackUrl, probeTimeout*2)
	if err != nil {
		return nil, fmt.Errorf("%w: chain %d: %v", ErrNoUsableRPC, info.Id, err)
	}
	return client, nil
}

// dialAndProbe 建连后用取块高做一次廉价探活
func dialAndProbe(ctx context.Context, url string, timeout time.Duration) (*ethclient.Client, error) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ethclient.DialContext(probeCtx, url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	if _, err := client.BlockNumber(probeCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("probe: %w", err)
	}
	return client, nil
}
