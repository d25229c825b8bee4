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
	"uzum_erp_v1_202608/pkg/yandex"
)

const yandexBaseURL = "https://api.partner.market.yandex.ru"

// 未填尺寸时的兜底四元组
const (
	defaultWeightKg = 0.5
	defaultLengthCm = 20.0
	defaultWidthCm  = 15.0
	defaultHeightCm = 10.0
)

// YandexAPI Yandex Market Partner API 适配器
// 认证只认 Api-Key 头；OAuth / Bearer 前缀会被网关拒绝
type YandexAPI struct {
	client     *resty.Client
	campaignID string
	businessID string
}

// NewYandexAPI 创建适配器；凭证需已解密
func NewYandexAPI(cred *service.Credential) *YandexAPI {
	client := resty.New().
		SetBaseURL(yandexBaseURL).
		SetTimeout(60 * time.Second).
		SetHeader("Api-Key", cred.APIKey).
		SetHeader("Content-Type", "application/json")
	return &YandexAPI{
		client:     client,
		campaignID: cred.CampaignID,
		businessID: cred.BusinessID,
	}
}

// SetBaseURL 改写目标地址（测试用）
func (a *YandexAPI) SetBaseURL(url string) {
	a.client.SetBaseURL(url)
}

// ==================== 连接与列表 ====================

// TestConnection 拉取 campaign 列表验证密钥
func (a *YandexAPI) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	var out yandex.CampaignsResp
	resp, err := a.client.R().SetContext(ctx).SetResult(&out).Get("/campaigns")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "yandex 连接失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return &ConnectionResult{OK: false, Error: err.Error()}, nil
	}

	result := &ConnectionResult{OK: true}
	for _, c := range out.Campaigns {
		result.Accounts = append(result.Accounts, c.Domain)
		if strconv.FormatInt(c.ID, 10) == a.campaignID {
			result.PrimaryAccount = c.Domain
		}
	}
	if result.PrimaryAccount == "" && len(result.Accounts) > 0 {
		result.PrimaryAccount = result.Accounts[0]
	}
	return result, nil
}

// ListOffers 分页拉取商品并按统一状态口径汇总
func (a *YandexAPI) ListOffers(ctx context.Context, page, pageSize int) (*OfferList, error) {
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	var out yandex.GetOfferMappingsResp
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(pageSize)).
		SetBody(yandex.GetOfferMappingsReq{}).
		SetResult(&out).
		Post(fmt.Sprintf("/businesses/%s/offer-mappings", a.businessID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "yandex 拉取商品列表失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return nil, err
	}
	if err := checkYandexStatus(out.Status, out.Errors); err != nil {
		return nil, err
	}

	list := &OfferList{}
	for _, m := range out.Result.OfferMappings {
		status := mapYandexStatus(m.Mapping.MarketSku, m.CardStatus)
		offer := model.Offer{
			OfferID:     m.Offer.OfferID,
			Name:        m.Offer.Name,
			Description: m.Offer.Description,
			Vendor:      m.Offer.Vendor,
			Pictures:    m.Offer.Pictures,
			Barcodes:    m.Offer.Barcodes,
			Status:      status,
		}
		if m.Offer.BasicPrice != nil {
			offer.PriceUZS = m.Offer.BasicPrice.Value
			offer.Currency = m.Offer.BasicPrice.CurrencyID
		}
		list.Offers = append(list.Offers, offer)
		countStatus(&list.Stats, status)
	}
	list.Stats.Total = len(list.Offers)
	return list, nil
}

// OfferStatus 单品状态
func (a *YandexAPI) OfferStatus(ctx context.Context, offerID string) (*StatusResult, error) {
	var out yandex.GetOfferMappingsResp
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(yandex.GetOfferMappingsReq{OfferIDs: []string{offerID}}).
		SetResult(&out).
		Post(fmt.Sprintf("/businesses/%s/offer-mappings", a.businessID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "yandex 查询商品状态失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return nil, err
	}
	if err := checkYandexStatus(out.Status, out.Errors); err != nil {
		return nil, err
	}
	if len(out.Result.OfferMappings) == 0 {
		return nil, apperr.Newf(apperr.KindValidation, "商品 %s 不存在", offerID)
	}

	m := out.Result.OfferMappings[0]
	status := mapYandexStatus(m.Mapping.MarketSku, m.CardStatus)
	result := &StatusResult{
		Status:          status,
		StatusLocalized: localizeStatus(status),
	}
	if m.Mapping.MarketSku > 0 {
		result.MarketSKU = strconv.FormatInt(m.Mapping.MarketSku, 10)
	}
	return result, nil
}

// ==================== 写操作 ====================

// CreateOffer 提交商品卡片
// HTTP 200 不代表成功：status=ERROR 或任一商品的 errors 非空都按失败处理
func (a *YandexAPI) CreateOffer(ctx context.Context, offer *model.Offer) (*CreateResult, error) {
	if len(offer.Pictures) == 0 {
		return nil, apperr.New(apperr.KindValidation, "yandex 创建商品至少需要一张图片")
	}

	dto := yandex.OfferDTO{
		OfferID:     offer.OfferID,
		Name:        offer.Name,
		Description: offer.Description,
		Vendor:      offer.Vendor,
		Pictures:    offer.Pictures,
		Barcodes:    offer.Barcodes,
		BasicPrice: &yandex.BasicPriceDTO{
			Value:      offer.PriceUZS, // 整数价
			CurrencyID: currencyOrDefault(offer.Currency),
		},
		WeightDimensions: weightDimensionsOf(offer),
	}
	for _, code := range offer.CommodityCodes {
		dto.CommodityCodes = append(dto.CommodityCodes, yandex.CommodityCodeDTO{
			Code: code,
			Type: "IKPU_CODE",
		})
	}

	var out yandex.UpdateOfferMappingsResp
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(yandex.UpdateOfferMappingsReq{
			OfferMappings: []yandex.OfferMappingEntry{{Offer: dto}},
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/businesses/%s/offer-mappings/update", a.businessID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "yandex 提交商品失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return nil, err
	}

	result := &CreateResult{OfferID: offer.OfferID}
	for _, e := range out.Errors {
		result.Errors = append(result.Errors, e.Code)
	}
	for _, r := range out.Results {
		for _, e := range r.Errors {
			result.Errors = append(result.Errors, e.Code)
		}
		for _, w := range r.Warnings {
			result.Warnings = append(result.Warnings, w.Code)
		}
	}
	if out.Status == "ERROR" || len(result.Errors) > 0 {
		return result, apperr.New(apperr.KindUpload, "yandex 拒绝商品").
			WithDetail("errors", result.Errors)
	}
	return result, nil
}

// UpdatePrice 调价；value 必须是整数
func (a *YandexAPI) UpdatePrice(ctx context.Context, offerID string, priceUZS int64, currency string) error {
	var out yandex.ApiResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(yandex.UpdatePricesReq{
			Offers: []yandex.PriceUpdateEntry{{
				OfferID: offerID,
				Price: yandex.BasicPriceDTO{
					Value:      priceUZS,
					CurrencyID: currencyOrDefault(currency),
				},
			}},
		}).
		SetResult(&out).
		Post(fmt.Sprintf("/businesses/%s/offer-prices/updates", a.businessID))
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "yandex 调价失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return err
	}
	return checkYandexStatus(out.Status, out.Errors)
}

// UpdateStock 更新库存
func (a *YandexAPI) UpdateStock(ctx context.Context, offerID string, amount int) error {
	var out yandex.ApiResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(yandex.UpdateStocksReq{
			Skus: []yandex.StockUpdateEntry{{
				Sku:   offerID,
				Items: []yandex.StockItemCount{{Count: amount}},
			}},
		}).
		SetResult(&out).
		Put(fmt.Sprintf("/campaigns/%s/offers/stocks", a.campaignID))
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "yandex 更新库存失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return err
	}
	return checkYandexStatus(out.Status, out.Errors)
}

// ==================== 订单与统计 ====================

// FetchOrders 分页拉订单
func (a *YandexAPI) FetchOrders(ctx context.Context, page int, status string) ([]Order, error) {
	if page < 1 {
		page = 1
	}
	req := a.client.R().
		SetContext(ctx).
		SetQueryParam("page", strconv.Itoa(page))
	if status != "" {
		req.SetQueryParam("status", status)
	}
	var out yandex.OrdersResp
	resp, err := req.SetResult(&out).Get(fmt.Sprintf("/campaigns/%s/orders", a.campaignID))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "yandex 拉取订单失败", err)
	}
	if err := a.checkHTTP(resp); err != nil {
		return nil, err
	}

	orders := make([]Order, 0, len(out.Orders))
	for _, o := range out.Orders {
		created, _ := time.Parse("02-01-2006 15:04:05", o.CreationDate)
		items := 0
		for _, it := range o.Items {
			items += it.Count
		}
		orders = append(orders, Order{
			OrderID:   strconv.FormatInt(o.ID, 10),
			Status:    o.Status,
			CreatedAt: created,
			TotalUZS:  int64(o.ItemsTotal),
			Items:     items,
		})
	}
	return orders, nil
}

// SalesStats 统计周期内已送达订单的流水
// 逐页拉取，直到空页或最早订单早于 from
func (a *YandexAPI) SalesStats(ctx context.Context, from, to time.Time) (*SalesStats, error) {
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

func (a *YandexAPI) checkHTTP(resp *resty.Response) error {
	switch {
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return apperr.New(apperr.KindAuthFailed, "yandex 拒绝 Api-Key")
	case resp.StatusCode() == http.StatusTooManyRequests:
		return apperr.New(apperr.KindRateLimited, "yandex 限流")
	case resp.StatusCode() >= 400:
		return apperr.Newf(apperr.KindUpstream, "yandex HTTP %d", resp.StatusCode())
	}
	return nil
}

func checkYandexStatus(status string, errs []yandex.ApiErrorDTO) error {
	if status != "ERROR" && len(errs) == 0 {
		return nil
	}
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	return apperr.New(apperr.KindUpstream, "yandex 返回错误").WithDetail("errors", codes)
}

// mapYandexStatus 市场状态 → 统一口径
// 有 marketSku 即已上架；其余按卡片审核态
func mapYandexStatus(marketSku int64, cardStatus string) model.OfferStatus {
	if marketSku > 0 {
		return model.OfferStatusReady
	}
	switch cardStatus {
	case "IN_WORK":
		return model.OfferStatusInModeration
	case "NEED_CONTENT":
		return model.OfferStatusNeedContent
	case "REJECTED":
		return model.OfferStatusRejected
	default:
		return model.OfferStatusOther
	}
}

func localizeStatus(s model.OfferStatus) string {
	switch s {
	case model.OfferStatusReady:
		return "Опубликован"
	case model.OfferStatusInModeration:
		return "На модерации"
	case model.OfferStatusNeedContent:
		return "Требуется контент"
	case model.OfferStatusRejected:
		return "Отклонён"
	default:
		return "Другое"
	}
}

func countStatus(stats *OfferStats, s model.OfferStatus) {
	switch s {
	case model.OfferStatusReady:
		stats.Ready++
	case model.OfferStatusInModeration:
		stats.InModeration++
	case model.OfferStatusNeedContent:
		stats.NeedContent++
	case model.OfferStatusRejected:
		stats.Rejected++
	default:
		stats.Other++
	}
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "UZS"
	}
	return c
}

// weightDimensionsOf 缺失项填兜底值，保证四元组完整
func weightDimensionsOf(offer *model.Offer) *yandex.WeightDimensionsDTO {
	wd := &yandex.WeightDimensionsDTO{
		Weight: offer.WeightKg,
		Length: offer.LengthCm,
		Width:  offer.WidthCm,
		Height: offer.HeightCm,
	}
	if wd.Weight <= 0 {
		wd.Weight = defaultWeightKg
	}
	if wd.Length <= 0 {
		wd.Length = defaultLengthCm
	}
	if wd.Width <= 0 {
		wd.Width = defaultWidthCm
	}
	if wd.Height <= 0 {
		wd.Height = defaultHeightCm
	}
	return wd
}
