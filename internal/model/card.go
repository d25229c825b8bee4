package model

// ==================== 商品卡片 ====================

// CardLocale 单一语言的卡片内容
type CardLocale struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	BulletPoints []string `json:"bullet_points"`
}

// CardValidation 卡片后处理校验结果
type CardValidation struct {
	Valid        bool     `json:"valid"`
	HasStopWords bool     `json:"has_stop_words"`
	Errors       []string `json:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// ProductCard 生成后的商品卡片
// uzum 卡片含 uz（乌兹别克拉丁文）+ ru 两个语言版本，yandex 只有 ru
type ProductCard struct {
	Marketplace    Marketplace            `json:"marketplace"`
	Locales        map[string]*CardLocale `json:"locales"` // "ru" / "uz"
	Specifications map[string]string      `json:"specifications,omitempty"`
	SEOScore       int                    `json:"seo_score"` // [0,100]
	Validation     CardValidation         `json:"validation"`
}

// Locale 取指定语言版本；不存在返回 nil
func (c *ProductCard) Locale(lang string) *CardLocale {
	if c.Locales == nil {
		return nil
	}
	return c.Locales[lang]
}

// ==================== 市场商品 ====================

// OfferStatus 市场侧商品状态（统一口径）
type OfferStatus string

const (
	OfferStatusReady        OfferStatus = "ready"
	OfferStatusInModeration OfferStatus = "in_moderation"
	OfferStatusNeedContent  OfferStatus = "need_content"
	OfferStatusRejected     OfferStatus = "rejected"
	OfferStatusOther        OfferStatus = "other"
)

// Offer 待上架/已上架的市场商品
// OfferID 是伙伴自选的唯一 SKU，同时作为写操作的幂等键
type Offer struct {
	OfferID     string `json:"offer_id"`
	Name        string `json:"name"`    // ru 标题
	NameUz      string `json:"name_uz"` // uz 标题（uzum 向导要求双语）
	Description string `json:"description"`
	ShortDesc   string `json:"short_description,omitempty"` // uzum 向导 ≤390 字符
	Vendor      string `json:"vendor,omitempty"`

	Pictures []string `json:"pictures"` // ≥1

	PriceUZS int64  `json:"price_uzs"`
	Currency string `json:"currency"`
	Quantity int    `json:"quantity"`

	// --- 重量尺寸 ---
	WeightKg float64 `json:"weight_kg"`
	LengthCm float64 `json:"length_cm"`
	WidthCm  float64 `json:"width_cm"`
	HeightCm float64 `json:"height_cm"`

	// --- 合规 ---
	CommodityCodes []string `json:"commodity_codes,omitempty"` // IKPU 17 位码
	Barcodes       []string `json:"barcodes,omitempty"`

	// --- uzum 向导专用 ---
	CategoryPath    []string          `json:"category_path,omitempty"` // 4 级类目
	Country         string            `json:"country,omitempty"`
	Characteristics map[string]string `json:"characteristics,omitempty"`

	Status OfferStatus `json:"status,omitempty"`
}
