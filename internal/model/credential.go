package model

// ==================== 市场枚举 ====================

// Marketplace 目标市场
type Marketplace string

const (
	MarketplaceUzum        Marketplace = "uzum"
	MarketplaceYandex      Marketplace = "yandex"
	MarketplaceWildberries Marketplace = "wildberries"
	MarketplaceOzon        Marketplace = "ozon"
)

// Valid 上架流水线当前只接 uzum / yandex
func (m Marketplace) Valid() bool {
	switch m {
	case MarketplaceUzum, MarketplaceYandex:
		return true
	}
	return false
}

// ==================== 市场凭证 ====================

// MarketplaceCredential 每个 (partner, marketplace) 一条凭证记录
// 敏感字段（api_key / api_secret / password）只存 AES-GCM 密文的 base64，
// 明文永远不落库、不打日志；解密依赖进程级密钥
type MarketplaceCredential struct {
	BaseModel
	PartnerID   string      `gorm:"size:64;uniqueIndex:idx_partner_marketplace;not null" json:"partner_id"`
	Marketplace Marketplace `gorm:"size:20;uniqueIndex:idx_partner_marketplace;not null" json:"marketplace"`

	// --- 加密字段 (base64 密文) ---
	APIKeyEnc    string `gorm:"type:text" json:"-"`
	APISecretEnc string `gorm:"type:text" json:"-"`
	PasswordEnc  string `gorm:"type:text" json:"-"`

	// --- 明文字段 ---
	Login      string `gorm:"size:128" json:"login"`
	CampaignID string `gorm:"size:64" json:"campaign_id"`
	BusinessID string `gorm:"size:64" json:"business_id"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

func (MarketplaceCredential) TableName() string {
	return "marketplace_credentials"
}
