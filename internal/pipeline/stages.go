package pipeline

import (
	"context"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/service"
)

// ==================== 阶段实现 ====================

// runRecognize 图片识别（仅图片来源时进入阶段链）
func (o *Orchestrator) runRecognize(ctx context.Context, st *runState) (interface{}, error) {
	rec, err := o.ai.RecognizeProduct(ctx, st.req.ImageBase64, st.req.ImageURL)
	if err != nil {
		return nil, err
	}
	st.recognition = rec
	return rec, nil
}

// productOf 拼装卡片输入：用户字段优先，识别结果补缺
// 图片识别失败且用户没给商品名时返回 nil
func (st *runState) productOf() *service.CardProduct {
	if st.product != nil {
		return st.product
	}

	p := &service.CardProduct{
		Name:     st.req.ProductName,
		Category: st.req.Category,
		Brand:    st.req.Brand,
	}
	if st.recognition != nil {
		if p.Name == "" {
			p.Name = st.recognition.ProductName
		}
		if p.Brand == "" {
			p.Brand = st.recognition.Brand
		}
		p.Description = st.recognition.Description
		p.Specifications = st.recognition.Specifications
		p.Keywords = st.recognition.Keywords
	}
	if p.Name == "" {
		return nil
	}
	st.product = p
	return p
}

// runResolveTax IKPU 解析；服务内部逐级降级到占位码，从不报错
func (o *Orchestrator) runResolveTax(ctx context.Context, st *runState) (interface{}, error) {
	name := st.req.ProductName
	if p := st.productOf(); p != nil {
		name = p.Name
	}
	res := o.ikpu.Resolve(ctx, name, st.req.Category)
	st.taxCode = res
	return res, nil
}

// runPrice 竞品感知定价
func (o *Orchestrator) runPrice(ctx context.Context, st *runState) (interface{}, error) {
	product := st.productOf()
	if product == nil {
		product = &service.CardProduct{Name: st.req.Category, Category: st.req.Category}
	}

	avg, summary := o.pricing.EstimateCompetitorAvg(ctx, product, st.req.Marketplace, st.req.CostPriceUZS)
	st.competitor = summary

	calc, err := o.pricing.Calculate(&service.PriceRequest{
		Marketplace:      st.req.Marketplace,
		Category:         st.req.Category,
		Subcategory:      st.req.Subcategory,
		CostPriceUZS:     st.req.CostPriceUZS,
		WeightKg:         st.req.WeightKg,
		Fulfillment:      st.req.Fulfillment,
		PayoutFreq:       st.req.PayoutFreq,
		CompetitorAvgUZS: avg,
	})
	if err != nil {
		return nil, err
	}
	st.price = calc
	return calc, nil
}

// runCard 卡片生成；识别失败且用户没给商品名时这里是致命失败
func (o *Orchestrator) runCard(ctx context.Context, st *runState) (interface{}, error) {
	product := st.productOf()
	if product == nil {
		return nil, apperr.New(apperr.KindCardGeneration, "识别失败且未提供商品名，无法生成卡片")
	}
	card, err := o.ai.GenerateCard(ctx, product, st.req.Marketplace, st.competitor)
	if err != nil {
		return nil, err
	}
	st.card = card
	return card, nil
}

// runInfographics 信息图（可选阶段，失败不致命，部分产物照样落档）
func (o *Orchestrator) runInfographics(ctx context.Context, st *runState) (interface{}, error) {
	product := st.productOf()
	if product == nil {
		return nil, apperr.New(apperr.KindInfographic, "无商品信息，跳过信息图")
	}
	res, err := o.infographics.Generate(ctx, product, st.req.Marketplace, st.req.InfographicCount)
	st.infographics = res
	// 失败时 res 仍可能带成功的前几张
	return res, err
}

// runUpload 上架；先过计费守门，欠费封禁的伙伴在这里被拦下
func (o *Orchestrator) runUpload(ctx context.Context, st *runState) (interface{}, error) {
	if err := o.billing.CheckWriteAllowed(ctx, st.req.PartnerID); err != nil {
		return nil, err
	}

	offer := st.buildOffer()
	adapter, err := o.adapters.ForWrite(ctx, st.req.PartnerID, st.req.Marketplace)
	if err != nil {
		return nil, err
	}

	created, err := adapter.CreateOffer(ctx, offer)
	if err != nil {
		// 浏览器通道失败时已走完的向导状态保留在产物里
		return created, err
	}
	st.offerID = created.OfferID
	return created, nil
}

// ==================== 商品拼装 ====================

// buildOffer 把各阶段产物拼成市场商品
// 卡片缺失时退回用户字段构成的最小商品（用户自带商品名的场景）
func (st *runState) buildOffer() *model.Offer {
	req := st.req
	offer := &model.Offer{
		OfferID:  req.SKU,
		Name:     req.ProductName,
		Quantity: req.Quantity,
		Currency: "UZS",
		WeightKg: req.WeightKg,
	}

	if st.card != nil {
		if ru := st.card.Locale("ru"); ru != nil {
			offer.Name = ru.Title
			offer.Description = ru.Description
			offer.ShortDesc = cutRunes(ru.Description, 390)
		}
		if uz := st.card.Locale("uz"); uz != nil {
			offer.NameUz = uz.Title
		}
		offer.Characteristics = st.card.Specifications
	}
	if offer.Name == "" && st.recognition != nil {
		offer.Name = st.recognition.ProductName
		offer.Description = st.recognition.Description
	}
	if req.Brand != "" {
		offer.Vendor = req.Brand
	} else if st.recognition != nil {
		offer.Vendor = st.recognition.Brand
	}

	// 定价是上传的硬依赖，走到这里必然有结果
	if st.price != nil {
		offer.PriceUZS = st.price.OptimalPriceUZS
	}

	if req.ImageURL != "" {
		offer.Pictures = append(offer.Pictures, req.ImageURL)
	}
	if st.infographics != nil {
		offer.Pictures = append(offer.Pictures, st.infographics.Images...)
	}

	if st.taxCode != nil && st.taxCode.Code != "" {
		offer.CommodityCodes = []string{st.taxCode.Code}
	}

	// uzum 向导专用字段
	offer.CategoryPath = req.CategoryPath
	offer.Country = req.Country
	return offer
}

func cutRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
