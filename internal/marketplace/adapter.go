package marketplace

import (
	"context"
	"sync"
	"time"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/service"
)

// ==================== 统一契约 ====================

// ConnectionResult test_connection 结果
type ConnectionResult struct {
	OK             bool     `json:"ok"`
	Accounts       []string `json:"accounts"`
	PrimaryAccount string   `json:"primary_account,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// OfferStats 商品列表的状态统计
type OfferStats struct {
	Total        int `json:"total"`
	Ready        int `json:"ready"`
	InModeration int `json:"in_moderation"`
	NeedContent  int `json:"need_content"`
	Rejected     int `json:"rejected"`
	Other        int `json:"other"`
}

// OfferList list_offers 结果
type OfferList struct {
	Offers []model.Offer `json:"offers"`
	Stats  OfferStats    `json:"stats"`
}

// StatusResult offer_status 结果
type StatusResult struct {
	Status          model.OfferStatus `json:"status"`
	StatusLocalized string            `json:"status_localized"`
	MarketSKU       string            `json:"market_sku,omitempty"`
	Errors          []string          `json:"errors,omitempty"`
}

// CreateResult create_offer 结果
// StepsCompleted 仅浏览器通道填写：已走完的向导状态，失败时用于审计
type CreateResult struct {
	OfferID        string   `json:"offer_id"`
	Warnings       []string `json:"warnings,omitempty"`
	Errors         []string `json:"errors,omitempty"`
	StepsCompleted []string `json:"steps_completed,omitempty"`
}

// Order 统一订单视图
type Order struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	TotalUZS  int64     `json:"total_uzs"`
	Items     int       `json:"items"`
}

// SalesStats sales_stats 结果；Daily 键为 YYYY-MM-DD
type SalesStats struct {
	Orders     int              `json:"orders"`
	RevenueUZS int64            `json:"revenue_uzs"`
	Items      int              `json:"items"`
	Daily      map[string]int64 `json:"daily"`
}

// maxSalesPages 销售统计翻页硬上限
const maxSalesPages = 200

// accumulateSales 把一页订单累加进 [from, to) 统计
// 上游按创建时间倒序返回；一旦页内出现早于 from 的订单即可停止翻页，
// 返回 true 表示已翻过统计窗口
func accumulateSales(stats *SalesStats, orders []Order, from, to time.Time) bool {
	pastFrom := false
	for _, o := range orders {
		if o.CreatedAt.Before(from) {
			pastFrom = true
			continue
		}
		if !o.CreatedAt.Before(to) {
			continue
		}
		stats.Orders++
		stats.Items += o.Items
		stats.RevenueUZS += o.TotalUZS
		stats.Daily[o.CreatedAt.Format("2006-01-02")] += o.TotalUZS
	}
	return pastFrom
}

// Adapter 市场适配器统一契约
// 三种实现：UzumAPI（uzum 读）、UzumBrowser（uzum 写）、YandexAPI（yandex 读写）
type Adapter interface {
	TestConnection(ctx context.Context) (*ConnectionResult, error)
	ListOffers(ctx context.Context, page, pageSize int) (*OfferList, error)
	OfferStatus(ctx context.Context, offerID string) (*StatusResult, error)
	CreateOffer(ctx context.Context, offer *model.Offer) (*CreateResult, error)
	UpdatePrice(ctx context.Context, offerID string, priceUZS int64, currency string) error
	UpdateStock(ctx context.Context, offerID string, amount int) error
	FetchOrders(ctx context.Context, page int, status string) ([]Order, error)
	SalesStats(ctx context.Context, from, to time.Time) (*SalesStats, error)
}

// ==================== 注册表 ====================

// SessionFactory 创建一条浏览器会话（引擎由部署方注入）
type SessionFactory func(ctx context.Context) (Session, error)

// Registry 按 (marketplace, 读/写) 路由适配器
// uzum 读 → UzumAPI；uzum 写 → UzumBrowser（无写 API）；yandex → YandexAPI
type Registry struct {
	vault          *service.VaultService
	sessionFactory SessionFactory

	// 单租户部署的进程级兜底凭证：伙伴没有自己的 yandex 凭证时启用
	defaultYandex *service.Credential

	mu       sync.Mutex
	browsers map[string]*UzumBrowser // key: partnerID；会话按伙伴独占
}

// NewRegistry 创建适配器注册表
func NewRegistry(vault *service.VaultService, sessions SessionFactory) *Registry {
	return &Registry{
		vault:          vault,
		sessionFactory: sessions,
		browsers:       make(map[string]*UzumBrowser),
	}
}

// ForRead 读操作适配器
func (r *Registry) ForRead(ctx context.Context, partnerID string, mp model.Marketplace) (Adapter, error) {
	switch mp {
	case model.MarketplaceUzum:
		return r.uzumAPI(ctx, partnerID)
	case model.MarketplaceYandex:
		return r.yandexAPI(ctx, partnerID)
	default:
		return nil, apperr.Newf(apperr.KindUnsupported, "市场 %s 暂不支持", mp)
	}
}

// ForWrite 写操作适配器
func (r *Registry) ForWrite(ctx context.Context, partnerID string, mp model.Marketplace) (Adapter, error) {
	switch mp {
	case model.MarketplaceUzum:
		return r.uzumBrowser(ctx, partnerID)
	case model.MarketplaceYandex:
		return r.yandexAPI(ctx, partnerID)
	default:
		return nil, apperr.Newf(apperr.KindUnsupported, "市场 %s 暂不支持", mp)
	}
}

// ForPriceStock 价格/库存更新走 API 面（uzum 的这两个写操作有 API）
func (r *Registry) ForPriceStock(ctx context.Context, partnerID string, mp model.Marketplace) (Adapter, error) {
	return r.ForRead(ctx, partnerID, mp)
}

func (r *Registry) uzumAPI(ctx context.Context, partnerID string) (Adapter, error) {
	cred, err := r.vault.Get(ctx, partnerID, model.MarketplaceUzum, true)
	if err != nil {
		return nil, err
	}
	return NewUzumAPI(cred), nil
}

// SetDefaultYandexCredential 配置进程级 yandex 兜底凭证（来自环境变量）
func (r *Registry) SetDefaultYandexCredential(cred *service.Credential) {
	r.defaultYandex = cred
}

func (r *Registry) yandexAPI(ctx context.Context, partnerID string) (Adapter, error) {
	cred, err := r.vault.Get(ctx, partnerID, model.MarketplaceYandex, true)
	if err != nil {
		if r.defaultYandex != nil {
			return NewYandexAPI(r.defaultYandex), nil
		}
		return nil, err
	}
	return NewYandexAPI(cred), nil
}

// uzumBrowser 取或建伙伴的浏览器适配器；同一伙伴复用会话
func (r *Registry) uzumBrowser(ctx context.Context, partnerID string) (Adapter, error) {
	cred, err := r.vault.Get(ctx, partnerID, model.MarketplaceUzum, true)
	if err != nil {
		return nil, err
	}
	if r.sessionFactory == nil {
		return nil, apperr.New(apperr.KindUnsupported, "未配置浏览器引擎，uzum 写操作不可用")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.browsers[partnerID]; ok {
		return b, nil
	}
	session, err := r.sessionFactory(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "启动浏览器会话失败", err)
	}
	b := NewUzumBrowser(session, cred)
	r.browsers[partnerID] = b
	return b, nil
}

// ==================== 计费数据源 ====================

// SalesTotal 跨伙伴全部活跃市场的销售额合计（计费引擎调用）
// 单个市场失败视作 0：计费不能因一个市场不可达而整体失败
func (r *Registry) SalesTotal(ctx context.Context, partnerID string, from, to time.Time) (int64, error) {
	summaries, err := r.vault.List(ctx, partnerID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, s := range summaries {
		if !s.IsActive {
			continue
		}
		adapter, err := r.ForRead(ctx, partnerID, s.Marketplace)
		if err != nil {
			continue
		}
		stats, err := adapter.SalesStats(ctx, from, to)
		if err != nil {
			continue
		}
		total += stats.RevenueUZS
	}
	return total, nil
}
