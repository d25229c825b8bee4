package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"uzum_erp_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// CredentialRepository 市场凭证仓储接口
type CredentialRepository interface {
	Upsert(ctx context.Context, cred *model.MarketplaceCredential) error
	Get(ctx context.Context, partnerID string, mp model.Marketplace) (*model.MarketplaceCredential, error)
	ListByPartner(ctx context.Context, partnerID string) ([]model.MarketplaceCredential, error)
	SetActive(ctx context.Context, partnerID string, mp model.Marketplace, active bool) error
	Delete(ctx context.Context, partnerID string, mp model.Marketplace) error
}

// ==================== 仓储实现 ====================

type credentialRepo struct {
	db *gorm.DB
}

// NewCredentialRepository 创建凭证仓储
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepo{db: db}
}

// Upsert 以 (partner_id, marketplace) 为冲突键的幂等写入
func (r *credentialRepo) Upsert(ctx context.Context, cred *model.MarketplaceCredential) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "partner_id"}, {Name: "marketplace"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"api_key_enc", "api_secret_enc", "password_enc",
			"login", "campaign_id", "business_id", "is_active", "updated_at",
		}),
	}).Create(cred).Error
}

func (r *credentialRepo) Get(ctx context.Context, partnerID string, mp model.Marketplace) (*model.MarketplaceCredential, error) {
	var cred model.MarketplaceCredential
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND marketplace = ?", partnerID, mp).
		First(&cred).Error
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *credentialRepo) ListByPartner(ctx context.Context, partnerID string) ([]model.MarketplaceCredential, error) {
	var creds []model.MarketplaceCredential
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("marketplace").
		Find(&creds).Error
	return creds, err
}

func (r *credentialRepo) SetActive(ctx context.Context, partnerID string, mp model.Marketplace, active bool) error {
	return r.db.WithContext(ctx).
		Model(&model.MarketplaceCredential{}).
		Where("partner_id = ? AND marketplace = ?", partnerID, mp).
		Update("is_active", active).Error
}

func (r *credentialRepo) Delete(ctx context.Context, partnerID string, mp model.Marketplace) error {
	return r.db.WithContext(ctx).
		Where("partner_id = ? AND marketplace = ?", partnerID, mp).
		Delete(&model.MarketplaceCredential{}).Error
}
