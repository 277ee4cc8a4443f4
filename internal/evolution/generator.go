package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const replicateEndpoint = "https://api.replicate.com/v1/predictions"

// ReplicateGenerator 调用Replicate出图的Generator实现
type ReplicateGenerator struct {
	token      string
	httpClient *http.Client
}

var _ Generator = (*ReplicateGenerator)(nil)

// NewReplicateGenerator 创建生成器
func NewReplicateGenerator(token string) *ReplicateGenerator {
	return &ReplicateGenerator{
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Generate 同步等待模式下发起一次出图，返回制品URL
func (g *ReplicateGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"input": map[string]string{"prompt": prompt},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, replicateEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")
	// 让服务端阻塞到生成完成再返回
	req.Header.Set("Prefer", "wait=60")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call replicate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("replicate returned status %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Status string   `json:"status"`
		Output []string `json:"output"`
		Error  string   `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("replicate error: %s", result.Error)
	}
	if len(result.Output) == 0 || result.Output[0] == "" {
		return "", fmt.Errorf("replicate returned no artifact (status %s)", result.Status)
	}
	return result.Output[0], nil
}
