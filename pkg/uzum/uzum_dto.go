package uzum

// ==========================================
// DTO: Uzum seller-openapi 的原始 JSON 结构
// 只读面：店铺、库存、订单、价格/库存更新
// ==========================================

// ShopDTO 店铺
type ShopDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ShopsResp GET /v1/shops 响应
type ShopsResp struct {
	Payload []ShopDTO `json:"payload"`
}

// ProductDTO 商品（库存视角）
type ProductDTO struct {
	ProductID int64  `json:"productId"`
	Title     string `json:"title"`
	Status    string `json:"status"` // ACTIVE / MODERATION / BLOCKED / DISABLED
	SkuList   []struct {
		SkuID       int64  `json:"skuId"`
		SkuTitle    string `json:"skuTitle"`
		Barcode     string `json:"barcode"`
		Price       int64  `json:"price"` // so'm
		SellerPrice int64  `json:"sellerPrice"`
		Amount      int    `json:"amount"`
	} `json:"skuList"`
}

// ProductsResp GET /v1/shop/{shopId}/product 响应
type ProductsResp struct {
	Payload struct {
		Products      []ProductDTO `json:"products"`
		TotalProducts int          `json:"totalProducts"`
	} `json:"payload"`
}

// StockUpdateReq POST /v2/sku/stocks 请求
type StockUpdateReq struct {
	Stocks []StockItem `json:"stocks"`
}

// StockItem 单 SKU 库存
type StockItem struct {
	SkuID  int64 `json:"skuId"`
	Amount int   `json:"amount"`
}

// PriceUpdateReq POST /v1/sku/price 请求
type PriceUpdateReq struct {
	SkuID       int64 `json:"skuId"`
	SellerPrice int64 `json:"sellerPrice"`
}

// OrderItemDTO 订单行
type OrderItemDTO struct {
	SkuID       int64  `json:"skuId"`
	SkuTitle    string `json:"skuTitle"`
	Amount      int    `json:"amount"`
	SellerPrice int64  `json:"sellerPrice"`
}

// OrderDTO 订单（FBS 视角）
type OrderDTO struct {
	ID          int64          `json:"id"`
	Status      string         `json:"status"`      // CREATED / PACKING / DELIVERED / CANCELED ...
	DateCreated int64          `json:"dateCreated"` // unix ms
	TotalSum    int64          `json:"totalSum"`
	OrderItems  []OrderItemDTO `json:"orderItems"`
}

// OrdersResp GET /v1/shop/{shopId}/order 响应
type OrdersResp struct {
	Payload struct {
		Orders     []OrderDTO `json:"orders"`
		TotalCount int        `json:"totalCount"`
	} `json:"payload"`
}

// ErrorResp 错误外壳
type ErrorResp struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
