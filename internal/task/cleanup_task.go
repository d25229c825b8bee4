package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"uzum_erp_v1_202608/internal/repository"
)

// ==================== CleanupTask 运行审计清理任务 ====================

// 审计记录保留期
const runRetention = 90 * 24 * time.Hour

// CleanupTask 定期物理清理过期的流水线运行记录
type CleanupTask struct {
	runs repository.PipelineRunRepository
	cron *cron.Cron
}

// NewCleanupTask 创建清理任务
func NewCleanupTask(runs repository.PipelineRunRepository) *CleanupTask {
	return &CleanupTask{
		runs: runs,
		cron: cron.New(),
	}
}

// Start 启动定时任务
func (t *CleanupTask) Start() {
	// 每天 05:00 清理
	if _, err := t.cron.AddFunc("0 5 * * *", t.run); err != nil {
		log.Printf("[CleanupTask] 注册清理任务失败: %v", err)
	}
	t.cron.Start()
	log.Println("[CleanupTask] 运行审计清理任务已启动")
}

// Stop 停止定时任务
func (t *CleanupTask) Stop() {
	t.cron.Stop()
}

func (t *CleanupTask) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-runRetention)
	deleted, err := t.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("[CleanupTask] 清理失败: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[CleanupTask] 已清理 %d 条过期运行记录", deleted)
	}
}
