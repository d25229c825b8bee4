package model

import (
	"fmt"
	"time"
)

// ==================== 枚举 ====================

// InvoiceStatus 账单状态
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// ==================== 账单 ====================

// Invoice 月度账单
// (partner_id, month_key) 全局唯一；重复跑账必须走 upsert 收敛到同一总额
type Invoice struct {
	BaseModel
	InvoiceID string `gorm:"size:32;uniqueIndex;not null" json:"invoice_id"` // INV-{前6位}-{YYYYMM}
	PartnerID string `gorm:"size:64;uniqueIndex:idx_partner_month;not null" json:"partner_id"`
	MonthKey  string `gorm:"size:6;uniqueIndex:idx_partner_month;not null" json:"month_key"` // YYYYMM

	// --- 金额拆分 (整数苏姆) ---
	SalesUZS        int64 `gorm:"default:0" json:"sales_uzs"`
	MonthlyFeeUZS   int64 `gorm:"default:0" json:"monthly_fee_uzs"`
	RevenueShareUZS int64 `gorm:"default:0" json:"revenue_share_uzs"`
	TotalUZS        int64 `gorm:"default:0" json:"total_uzs"` // monthly_fee + revenue_share

	DueAt  time.Time     `json:"due_at"`
	Status InvoiceStatus `gorm:"size:16;default:pending;index" json:"status"`
	PaidAt *time.Time    `json:"paid_at,omitempty"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// BuildInvoiceID 确定性账单号：重跑生成同一 ID，天然幂等
func BuildInvoiceID(partnerID, monthKey string) string {
	prefix := partnerID
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	return fmt.Sprintf("INV-%s-%s", prefix, monthKey)
}

// MonthKeyOf 生成 YYYYMM 月键
func MonthKeyOf(t time.Time) string {
	return t.Format("200601")
}
