package task

import (
	"context"
	"time"

	"github.com/LolHubFun/server-vps/internal/poller"
	"github.com/go-co-op/gocron/v2"
)

// TokenPollJob 工厂合约轮询任务，发现新部署的代币
type TokenPollJob struct {
	poller   *poller.TokenCreatedPoller
	interval time.Duration
}

// NewTokenPollJob 创建任务
func NewTokenPollJob(p *poller.TokenCreatedPoller, intervalSeconds int) *TokenPollJob {
	return &TokenPollJob{
		poller:   p,
		interval: time.Duration(intervalSeconds) * time.Second,
	}
}

// GetName 获取任务名称
func (j *TokenPollJob) GetName() string {
	return "token_created_poller"
}

// GetSchedule 获取调度配置
func (j *TokenPollJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *TokenPollJob) Execute() {
	j.poller.Run(context.Background())
}
