package model

import "time"

// ==================== 枚举 ====================

// Tariff 合作伙伴套餐
type Tariff string

const (
	TariffFreeTrial       Tariff = "free_trial"
	TariffStarterPro      Tariff = "starter_pro"
	TariffProfessional    Tariff = "professional_plus"
	TariffEnterpriseElite Tariff = "enterprise_elite"
	TariffCustom          Tariff = "custom"
)

// ==================== 合作伙伴 ====================

// Partner 入驻卖家（多租户核心实体）
// 计费引擎依据 TotalDebtUZS / BlockedUntil / LastPaymentAt 驱动
// active → overdue(blocked) → active 的生命周期
type Partner struct {
	BaseModel
	PartnerID string `gorm:"size:64;uniqueIndex;not null" json:"partner_id"` // 业务侧 UUID
	Name      string `gorm:"size:255" json:"name"`
	Phone     string `gorm:"size:32;index" json:"phone"`
	Tariff    Tariff `gorm:"size:32;default:free_trial" json:"tariff"`

	// --- 费用协议 ---
	SetupPaid           bool    `gorm:"default:false" json:"setup_paid"`
	SetupFeeUSD         float64 `gorm:"default:699" json:"setup_fee_usd"`
	MonthlyFeeUSD       float64 `gorm:"default:499" json:"monthly_fee_usd"`
	RevenueSharePercent float64 `gorm:"default:0.04" json:"revenue_share_percent"` // [0,1]

	// --- 账务状态 ---
	TotalDebtUZS  int64      `gorm:"default:0" json:"total_debt_uzs"`
	BlockedUntil  *time.Time `json:"blocked_until,omitempty"`
	LastPaymentAt *time.Time `json:"last_payment_at,omitempty"`
}

func (Partner) TableName() string {
	return "partners"
}

// IsBlocked 封禁判定：now < blocked_until
// 被封禁的伙伴拒绝上架流水线的写操作
func (p *Partner) IsBlocked(now time.Time) bool {
	return p.BlockedUntil != nil && now.Before(*p.BlockedUntil)
}
