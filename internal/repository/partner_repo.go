package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"uzum_erp_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// PartnerRepository 合作伙伴仓储接口
type PartnerRepository interface {
	Create(ctx context.Context, partner *model.Partner) error
	GetByPartnerID(ctx context.Context, partnerID string) (*model.Partner, error)
	Update(ctx context.Context, partner *model.Partner) error
	UpdateFields(ctx context.Context, partnerID string, fields map[string]interface{}) error
	List(ctx context.Context, page, pageSize int) ([]model.Partner, int64, error)
	ListAll(ctx context.Context) ([]model.Partner, error)
	CountBlocked(ctx context.Context, now time.Time) (int64, error)
}

// ==================== 仓储实现 ====================

type partnerRepo struct {
	db *gorm.DB
}

// NewPartnerRepository 创建伙伴仓储
func NewPartnerRepository(db *gorm.DB) PartnerRepository {
	return &partnerRepo{db: db}
}

func (r *partnerRepo) Create(ctx context.Context, partner *model.Partner) error {
	return r.db.WithContext(ctx).Create(partner).Error
}

func (r *partnerRepo) GetByPartnerID(ctx context.Context, partnerID string) (*model.Partner, error) {
	var partner model.Partner
	err := r.db.WithContext(ctx).Where("partner_id = ?", partnerID).First(&partner).Error
	if err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *partnerRepo) Update(ctx context.Context, partner *model.Partner) error {
	return r.db.WithContext(ctx).Save(partner).Error
}

func (r *partnerRepo) UpdateFields(ctx context.Context, partnerID string, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Partner{}).
		Where("partner_id = ?", partnerID).
		Updates(fields).Error
}

func (r *partnerRepo) List(ctx context.Context, page, pageSize int) ([]model.Partner, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var partners []model.Partner
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Partner{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&partners).Error
	return partners, total, err
}

func (r *partnerRepo) ListAll(ctx context.Context) ([]model.Partner, error) {
	var partners []model.Partner
	err := r.db.WithContext(ctx).Order("id").Find(&partners).Error
	return partners, err
}

func (r *partnerRepo) CountBlocked(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Partner{}).
		Where("blocked_until IS NOT NULL AND blocked_until > ?", now).
		Count(&count).Error
	return count, err
}
