package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/service"
	"uzum_erp_v1_202608/pkg/uzum"
)

const uzumBaseURL = "https://api-seller.uzum.uz/api/seller-openapi"

// UzumAPI seller-openapi 适配器
// 认证是裸 Authorization 头（无 Bearer 前缀）；只读面 + 价格/库存更新，
// 商品创建没有 API，走 UzumBrowser
type UzumAPI struct {
	client *resty.Client
	shopID string
}

// NewUzumAPI 创建适配器；凭证需已解密
func NewUzumAPI(cred *service.Credential) *UzumAPI {
	client := resty.New().
		SetBaseURL(uzumBaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", cred.APIKey). // 裸 token，加前缀会 401
		SetHeader("Content-Type", "application/json")
	return &UzumAPI{
		client: client,
		shopID: cred.CampaignID, // uzum 侧 campaign_id 存店铺 ID
	}
}

// SetBaseURL 改写目标地址（测试用）
func (a *UzumAPI) SetBaseURL(url string) {
	a.client.SetBaseURL(url)
}

// ==================== 连接与列表 ====================

// TestConnection 拉店铺列表验证 token
func (a *UzumAPI) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	var out uzum.ShopsResp
	resp, err := a.client.R().SetContext(ctx).SetResult(&out).Get("/v1/shops")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "uzum 连接失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return &ConnectionResult{OK: false, Error: err.Error()}, nil
	}

	result := &ConnectionResult{OK: true}
	for _, shop := range out.Payload {
		result.Accounts = append(result.Accounts, shop.Name)
		if strconv.FormatInt(shop.ID, 10) == a.shopID {
			result.PrimaryAccount = shop.Name
		}
	}
	if result.PrimaryAccount == "" && len(result.Accounts) > 0 {
		result.PrimaryAccount = result.Accounts[0]
	}
	return result, nil
}

// ListOffers 拉取商品快照并汇总状态
func (a *UzumAPI) ListOffers(ctx context.Context, page, pageSize int) (*OfferList, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	var out uzum.ProductsResp
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page": strconv.Itoa(page - 1), // uzum 从 0 计页
			"size": strconv.Itoa(pageSize),
		}).
		SetResult(&out).
		Get(fmt.Sprintf("/v1/shop/%s/product", a.shopID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "uzum 拉取商品列表失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return nil, err
	}

	list := &OfferList{}
	for _, p := range out.Payload.Products {
		status := mapUzumStatus(p.Status)
		offer := model.Offer{
			OfferID: strconv.FormatInt(p.ProductID, 10),
			Name:    p.Title,
			Status:  status,
		}
		if len(p.SkuList) > 0 {
			offer.PriceUZS = p.SkuList[0].SellerPrice
			offer.Currency = "UZS"
			offer.Quantity = p.SkuList[0].Amount
		}
		list.Offers = append(list.Offers, offer)
		countStatus(&list.Stats, status)
	}
	list.Stats.Total = out.Payload.TotalProducts
	if list.Stats.Total == 0 {
		list.Stats.Total = len(list.Offers)
	}
	return list, nil
}

// OfferStatus 单品状态（从列表快照里找）
func (a *UzumAPI) OfferStatus(ctx context.Context, offerID string) (*StatusResult, error) {
	list, err := a.ListOffers(ctx, 1, 100)
	if err != nil {
		return nil, err
	}
	for _, offer := range list.Offers {
		if offer.OfferID == offerID {
			return &StatusResult{
				Status:          offer.Status,
				StatusLocalized: localizeStatus(offer.Status),
			}, nil
		}
	}
	return nil, apperr.Newf(apperr.KindValidation, "商品 %s 不存在", offerID)
}

// ==================== 写操作 ====================

// CreateOffer uzum 没有创建 API，必须走浏览器向导
func (a *UzumAPI) CreateOffer(ctx context.Context, offer *model.Offer) (*CreateResult, error) {
	return nil, apperr.New(apperr.KindUnsupported, "uzum API 不支持创建商品，请走浏览器通道")
}

// UpdatePrice 调价
func (a *UzumAPI) UpdatePrice(ctx context.Context, offerID string, priceUZS int64, currency string) error {
	skuID, err := strconv.ParseInt(offerID, 10, 64)
	if err != nil {
		return apperr.Newf(apperr.KindValidation, "uzum SKU 必须是数字: %s", offerID)
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(uzum.PriceUpdateReq{SkuID: skuID, SellerPrice: priceUZS}).
		Post("/v1/sku/price")
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "uzum 调价失败", err)
	}
	return a.checkHTTP(resp)
}

// UpdateStock 更新库存
func (a *UzumAPI) UpdateStock(ctx context.Context, offerID string, amount int) error {
	skuID, err := strconv.ParseInt(offerID, 10, 64)
	if err != nil {
		return apperr.Newf(apperr.KindValidation, "uzum SKU 必须是数字: %s", offerID)
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(uzum.StockUpdateReq{Stocks: []uzum.StockItem{{SkuID: skuID, Amount: amount}}}).
		Post("/v2/sku/stocks")
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "uzum 更新库存失败", err)
	}
	return a.checkHTTP(resp)
}

// ==================== 订单与统计 ====================

// FetchOrders 分页拉订单
func (a *UzumAPI) FetchOrders(ctx context.Context, page int, status string) ([]Order, error) {
	if page < 1 {
		page = 1
	}
	req := a.client.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page-1))
	if status != "" {
		req.SetQueryParam("status", status)
	}
	var out uzum.OrdersResp
	resp, err := req.SetResult(&out).Get(fmt.Sprintf("/v1/shop/%s/order", a.shopID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "uzum 拉取订单失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(out.Payload.Orders))
	for _, o := range out.Payload.Orders {
		items := 0
		for _, it := range o.OrderItems {
			items += it.Amount
		}
		orders = append(orders, Order{
			OrderID:   strconv.FormatInt(o.ID, 10),
			Status:    o.Status,
			CreatedAt: time.UnixMilli(o.DateCreated),
			TotalUZS:  o.TotalSum,
			Items:     items,
		})
	}
	return orders, nil
}

// SalesStats 统计周期内已送达订单的流水
// 逐页拉取，直到空页或最早订单早于 from
func (a *UzumAPI) SalesStats(ctx context.Context, from, to time.Time) (*SalesStats, error) {
	stats := &SalesStats{Daily: make(map[string]int64)}
	for page := 1; page <= maxSalesPages; page++ {
		orders, err := a.FetchOrders(ctx, page, "DELIVERED")
		if err != nil {
			return nil, err
		}
		if len(orders) == 0 {
			break
		}
		if accumulateSales(stats, orders, from, to) {
			break
		}
	}
	return stats, nil
}

// ==================== 辅助 ====================

func (a *UzumAPI) checkHTTP(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return apperr.New(apperr.KindAuthFailed, "uzum 拒绝 token")
	case resp.StatusCode() == http.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, "uzum 限流")
	case resp.StatusCode() >= 400:
		return apperr.Newf(apperr.KindUpstream, "uzum HTTP %d", resp.StatusCode())
	}
	return nil
}

// mapUzumStatus 市场状态 → 统一口径
func mapUzumStatus(s string) model.OfferStatus {
	switch s {
	case "ACTIVE":
		return model.OfferStatusReady
	case "MODERATION":
		return model.OfferStatusInModeration
	case "DISABLED":
		return model.OfferStatusNeedContent
	case "BLOCKED":
		return model.OfferStatusRejected
	default:
		return model.OfferStatusOther
	}
}
