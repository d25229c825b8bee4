package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"uzum_erp_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// PipelineRunRepository 流水线运行审计仓储
type PipelineRunRepository interface {
	Create(ctx context.Context, run *model.PipelineRun) error
	Update(ctx context.Context, run *model.PipelineRun) error
	GetByRunID(ctx context.Context, runID string) (*model.PipelineRun, error)
	ListByPartner(ctx context.Context, partnerID string, page, pageSize int) ([]model.PipelineRun, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ==================== 仓储实现 ====================

type pipelineRunRepo struct {
	db *gorm.DB
}

// NewPipelineRunRepository 创建运行审计仓储
func NewPipelineRunRepository(db *gorm.DB) PipelineRunRepository {
	return &pipelineRunRepo{db: db}
}

func (r *pipelineRunRepo) Create(ctx context.Context, run *model.PipelineRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *pipelineRunRepo) Update(ctx context.Context, run *model.PipelineRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *pipelineRunRepo) GetByRunID(ctx context.Context, runID string) (*model.PipelineRun, error) {
	var run model.PipelineRun
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *pipelineRunRepo) ListByPartner(ctx context.Context, partnerID string, page, pageSize int) ([]model.PipelineRun, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var runs []model.PipelineRun
	var total int64

	q := r.db.WithContext(ctx).Model(&model.PipelineRun{}).Where("partner_id = ?", partnerID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&runs).Error
	return runs, total, err
}

// DeleteOlderThan 物理清理过期审计记录，返回删除行数
func (r *pipelineRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Where("created_at < ?", cutoff).
		Delete(&model.PipelineRun{})
	return res.RowsAffected, res.Error
}
