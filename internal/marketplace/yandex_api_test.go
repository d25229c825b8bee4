package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/service"
	"uzum_erp_v1_202608/pkg/yandex"
)

// ==================== 测试辅助 ====================

func newTestYandex(baseURL string) *YandexAPI {
	api := NewYandexAPI(&service.Credential{
		APIKey:     "ya-test-key",
		CampaignID: "21718734",
		BusinessID: "998877",
	})
	api.SetBaseURL(baseURL)
	return api
}

func testOffer() *model.Offer {
	return &model.Offer{
		OfferID:        "UZS-001",
		Name:           "Чайник электрический",
		Description:    "Стеклянный чайник 1.7л",
		Vendor:         "HomeBrand",
		Pictures:       []string{"https://img.example/1.png"},
		PriceUZS:       183051,
		CommodityCodes: []string{"08516710000000000"},
	}
}

// ==================== 认证头 ====================

func TestYandexUsesApiKeyHeaderOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 只认 Api-Key；Authorization / Bearer 一律不能出现
		assert.Equal(t, "ya-test-key", r.Header.Get("Api-Key"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(yandex.CampaignsResp{Campaigns: []yandex.CampaignDTO{
			{ID: 21718734, Domain: "magazin.uz"},
			{ID: 11111111, Domain: "other.uz"},
		}})
	}))
	defer srv.Close()

	res, err := newTestYandex(srv.URL).TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "magazin.uz", res.PrimaryAccount)
	assert.Len(t, res.Accounts, 2)
}

func TestYandexAuthFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := newTestYandex(srv.URL).UpdatePrice(context.Background(), "UZS-001", 100000, "")
	assert.Equal(t, apperr.KindAuthFailed, apperr.KindOf(err))
}

func TestYandexRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestYandex(srv.URL).ListOffers(context.Background(), 1, 50)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
}

// ==================== 创建商品 ====================

func TestYandexCreateOfferRequestBody(t *testing.T) {
	var captured yandex.UpdateOfferMappingsReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/998877/offer-mappings/update", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(yandex.UpdateOfferMappingsResp{Status: "OK"})
	}))
	defer srv.Close()

	res, err := newTestYandex(srv.URL).CreateOffer(context.Background(), testOffer())
	require.NoError(t, err)
	assert.Equal(t, "UZS-001", res.OfferID)
	assert.Empty(t, res.Errors)

	require.Len(t, captured.OfferMappings, 1)
	dto := captured.OfferMappings[0].Offer

	// 价格是整数 UZS
	require.NotNil(t, dto.BasicPrice)
	assert.Equal(t, int64(183051), dto.BasicPrice.Value)
	assert.Equal(t, "UZS", dto.BasicPrice.CurrencyID)

	// 未填尺寸 → 兜底四元组
	require.NotNil(t, dto.WeightDimensions)
	assert.Equal(t, 0.5, dto.WeightDimensions.Weight)
	assert.Equal(t, 20.0, dto.WeightDimensions.Length)
	assert.Equal(t, 15.0, dto.WeightDimensions.Width)
	assert.Equal(t, 10.0, dto.WeightDimensions.Height)

	// IKPU 走 commodityCodes
	require.Len(t, dto.CommodityCodes, 1)
	assert.Equal(t, "IKPU_CODE", dto.CommodityCodes[0].Type)
	assert.Equal(t, "08516710000000000", dto.CommodityCodes[0].Code)
}

func TestYandexCreateOfferRejectedDespite200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 + status OK，但单品带错误 → 仍算失败
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(yandex.UpdateOfferMappingsResp{
			Status: "OK",
			Results: []yandex.OfferMappingResultDTO{{
				OfferID: "UZS-001",
				Errors:  []yandex.ApiErrorDTO{{Code: "MISSING_IMAGES"}},
			}},
		})
	}))
	defer srv.Close()

	res, err := newTestYandex(srv.URL).CreateOffer(context.Background(), testOffer())
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpload, apperr.KindOf(err))
	require.NotNil(t, res)
	assert.Equal(t, []string{"MISSING_IMAGES"}, res.Errors)

	codes, ok := apperr.DetailsOf(err)["errors"].([]string)
	require.True(t, ok)
	assert.Contains(t, codes, "MISSING_IMAGES")
}

func TestYandexCreateOfferRequiresPicture(t *testing.T) {
	offer := testOffer()
	offer.Pictures = nil

	_, err := newTestYandex("http://127.0.0.1:0").CreateOffer(context.Background(), offer)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

// ==================== 列表与状态口径 ====================

func TestYandexListOffersStatusMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var out yandex.GetOfferMappingsResp
		out.Status = "OK"
		out.Result.OfferMappings = []yandex.OfferMappingDTO{
			offerMapping("a", 100500, ""),
			offerMapping("b", 0, "IN_WORK"),
			offerMapping("c", 0, "NEED_CONTENT"),
			offerMapping("d", 0, "REJECTED"),
			offerMapping("e", 0, "ЧТО-ТО"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	list, err := newTestYandex(srv.URL).ListOffers(context.Background(), 1, 50)
	require.NoError(t, err)

	assert.Equal(t, 5, list.Stats.Total)
	assert.Equal(t, 1, list.Stats.Ready)
	assert.Equal(t, 1, list.Stats.InModeration)
	assert.Equal(t, 1, list.Stats.NeedContent)
	assert.Equal(t, 1, list.Stats.Rejected)
	assert.Equal(t, 1, list.Stats.Other)
	assert.Equal(t, model.OfferStatusReady, list.Offers[0].Status)
}

func offerMapping(id string, marketSku int64, cardStatus string) yandex.OfferMappingDTO {
	m := yandex.OfferMappingDTO{CardStatus: cardStatus}
	m.Offer.OfferID = id
	m.Offer.Name = "товар " + id
	m.Mapping.MarketSku = marketSku
	return m
}

func TestMapYandexStatus(t *testing.T) {
	assert.Equal(t, model.OfferStatusReady, mapYandexStatus(42, "REJECTED")) // marketSku 优先
	assert.Equal(t, model.OfferStatusInModeration, mapYandexStatus(0, "IN_WORK"))
	assert.Equal(t, model.OfferStatusNeedContent, mapYandexStatus(0, "NEED_CONTENT"))
	assert.Equal(t, model.OfferStatusRejected, mapYandexStatus(0, "REJECTED"))
	assert.Equal(t, model.OfferStatusOther, mapYandexStatus(0, ""))
}

// ==================== 销售统计 ====================

func TestYandexSalesStatsWindowsDelivered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/21718734/orders", r.URL.Path)
		assert.Equal(t, "DELIVERED", r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") != "1" {
			_ = json.NewEncoder(w).Encode(yandex.OrdersResp{})
			return
		}
		_ = json.NewEncoder(w).Encode(yandex.OrdersResp{Orders: []yandex.OrderDTO{
			{ID: 1, Status: "DELIVERED", CreationDate: "05-07-2026 12:30:00", ItemsTotal: 250000,
				Items: []yandex.OrderItemDTO{{Count: 2}}},
			{ID: 2, Status: "DELIVERED", CreationDate: "15-07-2026 09:00:00", ItemsTotal: 100000,
				Items: []yandex.OrderItemDTO{{Count: 1}}},
			// 窗口之外（八月）要被过滤
			{ID: 3, Status: "DELIVERED", CreationDate: "01-08-2026 00:00:00", ItemsTotal: 999999,
				Items: []yandex.OrderItemDTO{{Count: 1}}},
		}})
	}))
	defer srv.Close()

	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	stats, err := newTestYandex(srv.URL).SalesStats(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Orders)
	assert.Equal(t, 3, stats.Items)
	assert.Equal(t, int64(350000), stats.RevenueUZS)
	assert.Equal(t, int64(250000), stats.Daily["2026-07-05"])
}

// 订单超过一页时必须翻页到底，否则分成基数被低估
func TestYandexSalesStatsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var orders []yandex.OrderDTO
		switch r.URL.Query().Get("page") {
		case "1":
			orders = []yandex.OrderDTO{
				{ID: 1, Status: "DELIVERED", CreationDate: "20-07-2026 10:00:00", ItemsTotal: 150000,
					Items: []yandex.OrderItemDTO{{Count: 1}}},
				{ID: 2, Status: "DELIVERED", CreationDate: "12-07-2026 10:00:00", ItemsTotal: 200000,
					Items: []yandex.OrderItemDTO{{Count: 2}}},
			}
		case "2":
			// 第二页含一笔六月订单：窗口已翻完，不应再请求第三页
			orders = []yandex.OrderDTO{
				{ID: 3, Status: "DELIVERED", CreationDate: "03-07-2026 10:00:00", ItemsTotal: 100000,
					Items: []yandex.OrderItemDTO{{Count: 1}}},
				{ID: 4, Status: "DELIVERED", CreationDate: "28-06-2026 10:00:00", ItemsTotal: 999999,
					Items: []yandex.OrderItemDTO{{Count: 1}}},
			}
		default:
			assert.Fail(t, "多余的翻页请求", "page=%s", r.URL.Query().Get("page"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(yandex.OrdersResp{Orders: orders})
	}))
	defer srv.Close()

	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	stats, err := newTestYandex(srv.URL).SalesStats(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Orders)
	assert.Equal(t, 4, stats.Items)
	assert.Equal(t, int64(450000), stats.RevenueUZS)
}
