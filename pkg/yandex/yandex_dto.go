package yandex

// ==========================================
// DTO: Yandex Market Partner API 的原始 JSON 结构
// ==========================================

// ApiErrorDTO 通用错误条目
type ApiErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ApiResponse 通用响应外壳
// 注意：HTTP 200 且 Status == "ERROR" 仍是失败
type ApiResponse struct {
	Status string        `json:"status"` // OK / ERROR
	Errors []ApiErrorDTO `json:"errors,omitempty"`
}

// CampaignDTO 店铺（campaign）
type CampaignDTO struct {
	ID       int64  `json:"id"`
	Domain   string `json:"domain"`
	ClientID int64  `json:"clientId"`
	Business struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"business"`
}

// CampaignsResp GET /campaigns 响应
type CampaignsResp struct {
	Campaigns []CampaignDTO `json:"campaigns"`
}

// ==========================================
// 商品目录（business-assortment）
// ==========================================

// BasicPriceDTO 基础价；Value 必须是整数（分市场要求）
type BasicPriceDTO struct {
	Value        int64  `json:"value"`
	CurrencyID   string `json:"currencyId"`
	DiscountBase int64  `json:"discountBase,omitempty"`
}

// WeightDimensionsDTO 重量尺寸四元组，创建商品时必填
type WeightDimensionsDTO struct {
	Length float64 `json:"length"` // cm
	Width  float64 `json:"width"`  // cm
	Height float64 `json:"height"` // cm
	Weight float64 `json:"weight"` // kg
}

// CommodityCodeDTO 商品合规编码（乌兹别克卖家传 IKPU）
type CommodityCodeDTO struct {
	Code string `json:"code"`
	Type string `json:"type"` // IKPU_CODE
}

// OfferDTO 商品卡片主体
type OfferDTO struct {
	OfferID          string               `json:"offerId"`
	Name             string               `json:"name"`
	Description      string               `json:"description,omitempty"`
	Vendor           string               `json:"vendor,omitempty"`
	Pictures         []string             `json:"pictures,omitempty"`
	Barcodes         []string             `json:"barcodes,omitempty"`
	BasicPrice       *BasicPriceDTO       `json:"basicPrice,omitempty"`
	WeightDimensions *WeightDimensionsDTO `json:"weightDimensions,omitempty"`
	CommodityCodes   []CommodityCodeDTO   `json:"commodityCodes,omitempty"`
	MarketCategoryID int64                `json:"marketCategoryId,omitempty"`
}

// UpdateOfferMappingsReq POST /businesses/{id}/offer-mappings/update
type UpdateOfferMappingsReq struct {
	OfferMappings []OfferMappingEntry `json:"offerMappings"`
}

// OfferMappingEntry 单个商品的提交条目
type OfferMappingEntry struct {
	Offer OfferDTO `json:"offer"`
}

// OfferMappingResultDTO 单个商品的处理结果
type OfferMappingResultDTO struct {
	OfferID  string        `json:"offerId"`
	Errors   []ApiErrorDTO `json:"errors,omitempty"`
	Warnings []ApiErrorDTO `json:"warnings,omitempty"`
}

// UpdateOfferMappingsResp 提交响应
// 即使 Status == "OK"，Results 里任一非空 Errors 都表示该商品失败
type UpdateOfferMappingsResp struct {
	Status  string                  `json:"status"`
	Errors  []ApiErrorDTO           `json:"errors,omitempty"`
	Results []OfferMappingResultDTO `json:"results,omitempty"`
}

// ==========================================
// 商品列表与状态
// ==========================================

// OfferCardStatusDTO 卡片审核状态
type OfferCardStatusDTO struct {
	OfferID    string        `json:"offerId"`
	CardStatus string        `json:"cardStatus"` // HAS_CARD_CAN_NOT_UPDATE / IN_WORK / NEED_CONTENT / REJECTED ...
	Errors     []ApiErrorDTO `json:"errors,omitempty"`
}

// OfferMappingDTO 列表条目：商品 + 市场侧映射
type OfferMappingDTO struct {
	Offer   OfferDTO `json:"offer"`
	Mapping struct {
		MarketSku        int64  `json:"marketSku"`
		MarketCategoryID int64  `json:"marketCategoryId"`
		MarketModelName  string `json:"marketModelName"`
	} `json:"mapping"`
	CardStatus string `json:"cardStatus,omitempty"`
}

// GetOfferMappingsReq POST /businesses/{id}/offer-mappings 请求体
type GetOfferMappingsReq struct {
	OfferIDs []string `json:"offerIds,omitempty"`
}

// GetOfferMappingsResp POST /businesses/{id}/offer-mappings 响应
type GetOfferMappingsResp struct {
	Status string `json:"status"`
	Result struct {
		OfferMappings []OfferMappingDTO `json:"offerMappings"`
		Paging        struct {
			NextPageToken string `json:"nextPageToken"`
		} `json:"paging"`
	} `json:"result"`
	Errors []ApiErrorDTO `json:"errors,omitempty"`
}

// ==========================================
// 价格 / 库存
// ==========================================

// UpdatePricesReq POST /businesses/{id}/offer-prices/updates
type UpdatePricesReq struct {
	Offers []PriceUpdateEntry `json:"offers"`
}

// PriceUpdateEntry 单个商品的调价条目
type PriceUpdateEntry struct {
	OfferID string        `json:"offerId"`
	Price   BasicPriceDTO `json:"price"`
}

// UpdateStocksReq PUT /campaigns/{id}/offers/stocks
type UpdateStocksReq struct {
	Skus []StockUpdateEntry `json:"skus"`
}

// StockUpdateEntry 单 SKU 库存条目
type StockUpdateEntry struct {
	Sku   string           `json:"sku"`
	Items []StockItemCount `json:"items"`
}

// StockItemCount 库存数量
type StockItemCount struct {
	Count int `json:"count"`
}

// ==========================================
// 订单
// ==========================================

// OrderItemDTO 订单行
type OrderItemDTO struct {
	OfferID string  `json:"offerId"`
	Count   int     `json:"count"`
	Price   float64 `json:"price"`
}

// OrderDTO 订单
type OrderDTO struct {
	ID           int64          `json:"id"`
	Status       string         `json:"status"` // DELIVERED / PROCESSING / CANCELLED ...
	CreationDate string         `json:"creationDate"`
	ItemsTotal   float64        `json:"itemsTotal"`
	Items        []OrderItemDTO `json:"items"`
}

// OrdersResp GET /campaigns/{id}/orders 响应
type OrdersResp struct {
	Orders []OrderDTO `json:"orders"`
	Pager  struct {
		Total       int `json:"total"`
		PagesCount  int `json:"pagesCount"`
		CurrentPage int `json:"currentPage"`
	} `json:"pager"`
}

// OrdersStatsResp POST /campaigns/{id}/stats/orders 响应
type OrdersStatsResp struct {
	Status string `json:"status"`
	Result struct {
		Orders []struct {
			ID           int64  `json:"id"`
			CreationDate string `json:"creationDate"`
			Status       string `json:"status"`
			Items        []struct {
				OfferID string `json:"offerId"`
				Count   int    `json:"count"`
				Prices  []struct {
					Type        string  `json:"type"` // BUYER
					CostPerItem float64 `json:"costPerItem"`
					Total       float64 `json:"total"`
				} `json:"prices"`
			} `json:"items"`
		} `json:"orders"`
		Paging struct {
			NextPageToken string `json:"nextPageToken"`
		} `json:"paging"`
	} `json:"result"`
}
