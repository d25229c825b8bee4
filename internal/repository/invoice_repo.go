package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"uzum_erp_v1_202608/internal/model"
)

// ==================== 接口定义 ====================

// InvoiceRepository 账单仓储接口
type InvoiceRepository interface {
	// Upsert 以 (partner_id, month_key) 为冲突键
	// 唯一键冲突视为幂等更新而非错误（同月重跑收敛到同一账单）
	Upsert(ctx context.Context, invoice *model.Invoice) error
	GetByPartnerAndMonth(ctx context.Context, partnerID, monthKey string) (*model.Invoice, error)
	ListByPartner(ctx context.Context, partnerID string) ([]model.Invoice, error)
	ListOpenByPartner(ctx context.Context, partnerID string) ([]model.Invoice, error)
	SumOpenDebt(ctx context.Context, partnerID string) (int64, error)
	MarkPaid(ctx context.Context, invoiceID string, paidAt time.Time) error
	MarkOverdue(ctx context.Context, partnerID string, before time.Time) error
}

// ==================== 仓储实现 ====================

type invoiceRepo struct {
	db *gorm.DB
}

// NewInvoiceRepository 创建账单仓储
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Upsert(ctx context.Context, invoice *model.Invoice) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "partner_id"}, {Name: "month_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sales_uzs", "monthly_fee_uzs", "revenue_share_uzs", "total_uzs",
			"due_at", "updated_at",
		}),
	}).Create(invoice).Error
}

func (r *invoiceRepo) GetByPartnerAndMonth(ctx context.Context, partnerID, monthKey string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND month_key = ?", partnerID, monthKey).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepo) ListByPartner(ctx context.Context, partnerID string) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("month_key DESC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) ListOpenByPartner(ctx context.Context, partnerID string) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Where("partner_id = ? AND status <> ?", partnerID, model.InvoiceStatusPaid).
		Order("month_key").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) SumOpenDebt(ctx context.Context, partnerID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("partner_id = ? AND status <> ?", partnerID, model.InvoiceStatusPaid).
		Select("COALESCE(SUM(total_uzs), 0)").
		Scan(&total).Error
	return total, err
}

func (r *invoiceRepo) MarkPaid(ctx context.Context, invoiceID string, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("invoice_id = ?", invoiceID).
		Updates(map[string]interface{}{
			"status":  model.InvoiceStatusPaid,
			"paid_at": paidAt,
		}).Error
}

func (r *invoiceRepo) MarkOverdue(ctx context.Context, partnerID string, before time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("partner_id = ? AND status = ? AND due_at < ?",
			partnerID, model.InvoiceStatusPending, before).
		Update("status", model.InvoiceStatusOverdue).Error
}
