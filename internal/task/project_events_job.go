package task

import (
	"context"
	"time"

	"github.com/LolHubFun/server-vps/internal/poller"
	"github.com/go-co-op/gocron/v2"
)

// ProjectEventsJob 项目合约事件轮询任务
type ProjectEventsJob struct {
	poller   *poller.ProjectEventPoller
	interval time.Duration
}

// NewProjectEventsJob 创建任务
func NewProjectEventsJob(p *poller.ProjectEventPoller, intervalSeconds int) *ProjectEventsJob {
	return &ProjectEventsJob{
		poller:   p,
		interval: time.Duration(intervalSeconds) * time.Second,
	}
}

// GetName 获取任务名称
func (j *ProjectEventsJob) GetName() string {
	return "project_event_poller"
}

// GetSchedule 获取调度配置
func (j *ProjectEventsJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

// Execute 执行任务
func (j *ProjectEventsJob) Execute() {
	j.poller.Run(context.Background())
}
