package model

import "uzum_erp_v1_202608/internal/apperr"

// ==================== 枚举 ====================

// Fulfillment 履约模式
type Fulfillment string

const (
	FulfillmentFBS Fulfillment = "fbs" // 卖家发货
	FulfillmentFBO Fulfillment = "fbo" // 市场仓发货
	FulfillmentDBS Fulfillment = "dbs" // 卖家配送
	FulfillmentFBY Fulfillment = "fby" // Yandex 仓发货
)

// PayoutFrequency 回款频率
type PayoutFrequency string

const (
	PayoutDaily    PayoutFrequency = "daily"
	PayoutWeekly   PayoutFrequency = "weekly"
	PayoutBiweekly PayoutFrequency = "biweekly"
	PayoutMonthly  PayoutFrequency = "monthly"
)

// ==================== 上架请求 ====================

// ListingRequest 流水线输入（不可变）
// 三种来源互斥：图片 base64 / 图片 URL / 纯文本商品名
type ListingRequest struct {
	PartnerID   string      `json:"partner_id"`
	Marketplace Marketplace `json:"marketplace"`

	// --- 来源 (三选一) ---
	ImageBase64 string `json:"image_base64,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ProductName string `json:"product_name,omitempty"`

	// --- 商品参数 ---
	SKU          string          `json:"sku"`
	CostPriceUZS int64           `json:"cost_price_uzs"`
	Quantity     int             `json:"quantity"`
	Category     string          `json:"category"`
	Subcategory  string          `json:"subcategory,omitempty"`
	CategoryPath []string        `json:"category_path,omitempty"` // uzum 向导的 4 级类目
	Country      string          `json:"country,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	WeightKg     float64         `json:"weight_kg"`
	Fulfillment  Fulfillment     `json:"fulfillment"`
	PayoutFreq   PayoutFrequency `json:"payout_frequency,omitempty"`

	// --- 开关 ---
	AutoIKPU         bool `json:"auto_ikpu"`
	AutoInfographics bool `json:"auto_generate_infographics"`
	InfographicCount int  `json:"infographic_count"`
}

// Validate 入口校验；违反约定直接中止整次运行
func (r *ListingRequest) Validate() error {
	if r.PartnerID == "" {
		return apperr.New(apperr.KindValidation, "partner_id 不能为空")
	}
	if !r.Marketplace.Valid() {
		return apperr.Newf(apperr.KindValidation, "不支持的市场: %s", r.Marketplace)
	}

	sources := 0
	if r.ImageBase64 != "" {
		sources++
	}
	if r.ImageURL != "" {
		sources++
	}
	if r.ProductName != "" {
		sources++
	}
	if sources != 1 {
		return apperr.Newf(apperr.KindValidation, "来源必须恰好一个 (image_base64 | image_url | product_name)，当前 %d 个", sources)
	}

	if r.CostPriceUZS <= 0 {
		return apperr.New(apperr.KindValidation, "cost_price_uzs 必须为正")
	}
	if r.Category == "" {
		return apperr.New(apperr.KindValidation, "category 不能为空")
	}
	if r.InfographicCount < 0 || r.InfographicCount > 6 {
		return apperr.Newf(apperr.KindValidation, "infographic_count 必须在 [0,6]，当前 %d", r.InfographicCount)
	}
	return nil
}

// HasImageSource 来源是否为图片（决定是否跑识别阶段）
func (r *ListingRequest) HasImageSource() bool {
	return r.ImageBase64 != "" || r.ImageURL != ""
}
