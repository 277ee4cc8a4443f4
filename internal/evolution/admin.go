package evolution

import (
	"context"
	"fmt"
	"time"

	"github.com/LolHubFun/server-vps/internal/logger"
)

const defaultLockHours = 24

// AdminStore 运营干预所需的存储操作
type AdminStore interface {
	SetEmergencyLock(contractAddress, reason string, until time.Time) (bool, error)
	ActiveEmergencyLock(contractAddress string) (string, bool, error)
}

// Admin 运营侧工具：紧急锁定与人工触发
type Admin struct {
	store  AdminStore
	engine *Engine
}

// NewAdmin 创建运营工具
func NewAdmin(store AdminStore, engine *Engine) *Admin {
	return &Admin{store: store, engine: engine}
}

// EmergencyLock 把项目置为紧急锁定 hours 小时，阻断进化路径
func (a *Admin) EmergencyLock(contractAddress, reason string, hours int) error {
	if hours <= 0 {
		hours = defaultLockHours
	}
	until := time.Now().Add(time.Duration(hours) * time.Hour)
	found, err := a.store.SetEmergencyLock(contractAddress, reason, until)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("project %s not found", contractAddress)
	}
	logger.Warn("Project %s emergency locked for %dh: %s", contractAddress, hours, reason)
	return nil
}

// ManualTrigger 人工触发一次进化检查，时效内的紧急锁定会拒绝执行
func (a *Admin) ManualTrigger(ctx context.Context, contractAddress string) (bool, error) {
	reason, locked, err := a.store.ActiveEmergencyLock(contractAddress)
	if err != nil {
		return false, err
	}
	if locked {
		return false, fmt.Errorf("project is emergency locked: %s", reason)
	}

	logger.Info("Manually triggering evolution for %s", contractAddress)
	return a.engine.CheckAndTrigger(ctx, contractAddress)
}
