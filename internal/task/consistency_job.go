package task

import (
	"context"
	"time"

	"github.com/LolHubFun/server-vps/internal/evolution"
	"github.com/go-co-op/gocron/v2"
)

// ConsistencyJob 链上数据一致性核对任务
type ConsistencyJob struct {
	checker  *evolution.ConsistencyChecker
	interval time.Duration
}

// NewConsistencyJob 创建任务
func NewConsistencyJob(checker *evolution.ConsistencyChecker, intervalSeconds int) *ConsistencyJob {
	return &ConsistencyJob{
		checker:  checker,
		interval: time.Duration(intervalSeconds) * time.Second,
	}
}

// GetName 获取任务名称
func (j *ConsistencyJob) GetName() string {
	return "consistency_checker"
}

// GetSchedule 获取调度配置
func (j *ConsistencyJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *ConsistencyJob) Execute() {
	j.checker.Run(context.Background())
}
