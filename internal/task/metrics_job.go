package task

import (
	"context"
	"time"

	"github.com/LolHubFun/server-vps/internal/metrics"
	"github.com/go-co-op/gocron/v2"
)

// ListWarmer 指标刷新后预热列表缓存
type ListWarmer interface {
	WarmListCache(ctx context.Context)
}

// MetricsJob 项目指标聚合任务
type MetricsJob struct {
	aggregator *metrics.Aggregator
	warmer     ListWarmer
	interval   time.Duration
}

// NewMetricsJob 创建任务，warmer可以为nil
func NewMetricsJob(aggregator *metrics.Aggregator, warmer ListWarmer, intervalSeconds int) *MetricsJob {
	return &MetricsJob{
		aggregator: aggregator,
		warmer:     warmer,
		interval:   time.Duration(intervalSeconds) * time.Second,
	}
}

// GetName 获取任务名称
func (j *MetricsJob) GetName() string {
	return "metrics_aggregator"
}

// GetSchedule 获取调度配置
func (j *MetricsJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *MetricsJob) Execute() {
	ctx := context.Background()
	j.aggregator.Run(ctx)
	if j.warmer != nil {
		j.warmer.WarmListCache(ctx)
	}
}
