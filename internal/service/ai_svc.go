package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/middleware"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/pkg/utils"
)

// ==================== 配置 ====================

// AIConfig AI 服务配置
type AIConfig struct {
	ApiKey     string
	TextModel  string
	ImageModel string
	BaseURL    string // 测试时指向 httptest
	Timeout    time.Duration
}

// ==================== 服务 ====================

// AIService 多模态内容生成：识图、卡片文案、信息图提示词、竞品摘要
// 所有外呼都过闸门 (ProviderGate)；三个操作都是 at-most-once，缓存由调用方负责
type AIService struct {
	Config *AIConfig
	Fees   *FeeTableService
	gate   *middleware.ProviderGate
	client *http.Client
}

const aiProviderName = "gemini"

// NewAIService 创建 AI 服务
func NewAIService(cfg *AIConfig, fees *FeeTableService, gate *middleware.ProviderGate) *AIService {
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.5-flash-image"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &AIService{
		Config: cfg,
		Fees:   fees,
		gate:   gate,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// ==================== 商品识别 ====================

// RecognitionResult 识图结果
type RecognitionResult struct {
	ProductName       string            `json:"product_name"`
	Category          string            `json:"category"`
	Brand             string            `json:"brand,omitempty"`
	Description       string            `json:"description"`
	Specifications    map[string]string `json:"specifications,omitempty"`
	EstimatedPriceUZS int64             `json:"estimated_price_uzs"`
	Keywords          []string          `json:"keywords"`
	Confidence        int               `json:"confidence"` // [0,100]
}

// RecognizeProduct 从单张商品图识别商品信息
// 输入二选一：base64 原始数据 或 HTTP URL（先下载再内联）
// 网络错误 / 模型拒答 / JSON 解析失败统一归为 RecognitionFailed
func (s *AIService) RecognizeProduct(ctx context.Context, imageBase64, imageURL string) (*RecognitionResult, error) {
	if s.Config.ApiKey == "" {
		return nil, apperr.New(apperr.KindRecognition, "LLM API Key 未配置")
	}

	imageData := imageBase64
	mimeType := "image/jpeg"
	if imageData == "" && imageURL != "" {
		data, mt, err := downloadImageData(ctx, imageURL)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindRecognition, "下载商品图失败", err)
		}
		imageData = base64.StdEncoding.EncodeToString(data)
		mimeType = mt
	}
	if imageData == "" {
		return nil, apperr.New(apperr.KindRecognition, "缺少图片来源")
	}

	prompt := `You are a product recognition expert for Central Asian e-commerce marketplaces.
Analyze the product photo and answer in Russian where text is needed.

Output Format (JSON only, no markdown):
{
  "product_name": "краткое название товара",
  "category": "one of: electronics, clothing, cosmetics, perfume, food, toys, home",
  "brand": "бренд если виден, иначе пустая строка",
  "description": "описание товара 2-3 предложения",
  "specifications": {"характеристика": "значение"},
  "estimated_price_uzs": 150000,
  "keywords": ["ключевое слово 1", "..."],
  "confidence": 85
}`

	parts := []map[string]interface{}{
		{"text": prompt},
		{"inline_data": map[string]interface{}{
			"mime_type": mimeType,
			"data":      imageData,
		}},
	}

	var result RecognitionResult
	err := s.gate.Do(ctx, aiProviderName, func(ctx context.Context) error {
		raw, err := s.callGemini(ctx, s.Config.TextModel, parts, false)
		if err != nil {
			return err
		}
		return parseModelJSON(raw, &result)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTimeout {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindRecognition, "商品识别失败", err)
	}

	if result.ProductName == "" {
		return nil, apperr.New(apperr.KindRecognition, "模型未返回商品名")
	}
	return &result, nil
}

// ==================== 卡片生成 ====================

// CardProduct 卡片生成输入
type CardProduct struct {
	Name           string
	Category       string
	Brand          string
	Description    string
	Specifications map[string]string
	Keywords       []string
}

// geminiCardPayload 模型侧卡片输出结构
type geminiCardPayload struct {
	Locales        map[string]*model.CardLocale `json:"locales"`
	Specifications map[string]string            `json:"specifications"`
	SEOScore       int                          `json:"seo_score"`
}

// GenerateCard 生成市场商品卡片
// uzum 双语（uz 拉丁 + ru 西里尔），yandex 仅 ru
// 输出经确定性后处理：JSON 提取 → 禁用词剔除 → 标题截断 → 复核
func (s *AIService) GenerateCard(ctx context.Context, product *CardProduct, mp model.Marketplace, competitorSummary string) (*model.ProductCard, error) {
	if s.Config.ApiKey == "" {
		return nil, apperr.New(apperr.KindCardGeneration, "LLM API Key 未配置")
	}

	prompt := s.buildCardPrompt(product, mp, competitorSummary)
	parts := []map[string]interface{}{{"text": prompt}}

	var payload geminiCardPayload
	err := s.gate.Do(ctx, aiProviderName, func(ctx context.Context) error {
		raw, err := s.callGemini(ctx, s.Config.TextModel, parts, false)
		if err != nil {
			return err
		}
		return parseModelJSON(raw, &payload)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTimeout {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindCardGeneration, "卡片生成失败", err)
	}

	card := &model.ProductCard{
		Marketplace:    mp,
		Locales:        payload.Locales,
		Specifications: payload.Specifications,
		SEOScore:       payload.SEOScore,
	}
	s.PostProcessCard(card)
	return card, nil
}

// buildCardPrompt 组装市场专属提示词（带禁用词与长度上限）
func (s *AIService) buildCardPrompt(product *CardProduct, mp model.Marketplace, competitorSummary string) string {
	stopWords := make([]string, 0, 16)
	for w := range s.Fees.StopWords(mp) {
		stopWords = append(stopWords, w)
	}
	titleCap := s.Fees.TitleCap(mp)
	minDesc := s.Fees.MinDescriptionLen(mp)

	var langReq, shape string
	if mp == model.MarketplaceUzum {
		langReq = "Write TWO language variants: \"uz\" in Uzbek Latin script and \"ru\" in Russian Cyrillic."
		shape = `{"locales": {"uz": {"title": "...", "description": "...", "keywords": ["..."], "bullet_points": ["..."]},
             "ru": {"title": "...", "description": "...", "keywords": ["..."], "bullet_points": ["..."]}},
 "specifications": {"...": "..."}, "seo_score": 80}`
	} else {
		langReq = "Write ONE language variant: \"ru\" in Russian only."
		shape = `{"locales": {"ru": {"title": "...", "description": "...", "keywords": ["..."], "bullet_points": ["..."]}},
 "specifications": {"...": "..."}, "seo_score": 80}`
	}

	specs, _ := json.Marshal(product.Specifications)

	b := &strings.Builder{}
	fmt.Fprintf(b, `You are a marketplace listing copywriter for %s.

Product: %s
Category: %s
Brand: %s
Details: %s
Specifications: %s
Seed keywords: %s
`, mp, product.Name, product.Category, product.Brand, product.Description, specs, strings.Join(product.Keywords, ", "))

	if competitorSummary != "" {
		fmt.Fprintf(b, "Competitor summary: %s\n", competitorSummary)
	}

	fmt.Fprintf(b, `
Requirements:
1. %s
2. Title: max %d characters, keyword-rich, no promotional fluff
3. Description: at least %d characters, benefit-driven, honest
4. NEVER use these banned words (whole words, any case): %s
5. 8-13 keywords, 4-6 bullet points per language

Output Format (JSON only, no markdown):
%s`, langReq, titleCap, minDesc, strings.Join(stopWords, ", "), shape)

	return b.String()
}

// PostProcessCard 卡片确定性后处理
// 禁用词整词剔除、标题按上限截断加 …、缺关键词计告警；
// 复核后仍残留禁用词记为校验错误（不重试）
func (s *AIService) PostProcessCard(card *model.ProductCard) {
	stopWords := s.Fees.StopWords(card.Marketplace)
	titleCap := s.Fees.TitleCap(card.Marketplace)
	minDesc := s.Fees.MinDescriptionLen(card.Marketplace)

	v := model.CardValidation{Valid: true}

	if len(card.Locales) == 0 {
		v.Valid = false
		v.Errors = append(v.Errors, "卡片缺少语言版本")
		card.Validation = v
		return
	}
	if card.Marketplace == model.MarketplaceYandex {
		// yandex 卡片只保留俄文
		for lang := range card.Locales {
			if lang != "ru" {
				delete(card.Locales, lang)
			}
		}
		if card.Locales["ru"] == nil {
			v.Valid = false
			v.Errors = append(v.Errors, "yandex 卡片缺少 ru 版本")
			card.Validation = v
			return
		}
	}

	for lang, loc := range card.Locales {
		if loc == nil {
			continue
		}
		loc.Title = utils.TruncateTitle(utils.StripStopWords(loc.Title, stopWords), titleCap)
		loc.Description = utils.StripStopWords(loc.Description, stopWords)
		for i, bp := range loc.BulletPoints {
			loc.BulletPoints[i] = utils.StripStopWords(bp, stopWords)
		}
		kept := loc.Keywords[:0]
		for _, kw := range loc.Keywords {
			if !utils.ContainsStopWord(kw, stopWords) {
				kept = append(kept, kw)
			}
		}
		loc.Keywords = kept

		if len(loc.Keywords) == 0 {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s 版本无关键词", lang))
		}
		if len([]rune(loc.Description)) < minDesc {
			v.Warnings = append(v.Warnings, fmt.Sprintf("%s 描述短于 %d 字符", lang, minDesc))
		}

		// 复核：后处理完成后不允许残留禁用词
		if utils.ContainsStopWord(loc.Title, stopWords) || utils.ContainsStopWord(loc.Description, stopWords) {
			v.HasStopWords = true
			v.Valid = false
			v.Errors = append(v.Errors, fmt.Sprintf("%s 版本残留禁用词", lang))
		}
	}

	card.Validation = v
}

// ==================== 信息图提示词 ====================

// SlideType 信息图版式
type SlideType string

const (
	SlideHeroFloating SlideType = "hero_floating"
	SlideBenefits     SlideType = "benefits"
	SlideComposition  SlideType = "composition"
	SlideUsage        SlideType = "usage"
	SlidePurity       SlideType = "purity"
	SlideLifestyle    SlideType = "lifestyle"
)

// ImagePrompt 单张信息图的生成提示词
type ImagePrompt struct {
	SlideType SlideType `json:"slide_type"`
	Prompt    string    `json:"prompt"`
}

// slidePlans 按品类提示选版式及顺序
var slidePlans = map[string][]SlideType{
	"cosmetic":   {SlideHeroFloating, SlidePurity, SlideComposition, SlideUsage, SlideBenefits, SlideLifestyle},
	"food":       {SlideHeroFloating, SlideComposition, SlidePurity, SlideBenefits, SlideUsage, SlideLifestyle},
	"electronic": {SlideHeroFloating, SlideBenefits, SlideUsage, SlideComposition, SlideLifestyle, SlidePurity},
	"perfume":    {SlideHeroFloating, SlideLifestyle, SlideComposition, SlideBenefits, SlidePurity, SlideUsage},
	"general":    {SlideHeroFloating, SlideBenefits, SlideComposition, SlideUsage, SlidePurity, SlideLifestyle},
}

// categoryHint 类目 → 版式方案键
func categoryHint(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "cosmetics", "cosmetic", "beauty":
		return "cosmetic"
	case "food", "grocery":
		return "food"
	case "electronics", "electronic":
		return "electronic"
	case "perfume", "fragrance":
		return "perfume"
	}
	return "general"
}

// SlidePlanFor 取品类的版式顺序（最多 count 张）
func SlidePlanFor(category string, count int) []SlideType {
	plan := slidePlans[categoryHint(category)]
	if count > len(plan) {
		count = len(plan)
	}
	if count < 0 {
		count = 0
	}
	return plan[:count]
}

// GenerateImagePrompts 为商品生成最多 count 条信息图提示词
// 版式选择在本地按品类决定，模型只负责填充每张的画面描述
func (s *AIService) GenerateImagePrompts(ctx context.Context, product *CardProduct, mp model.Marketplace, count int) ([]ImagePrompt, error) {
	if s.Config.ApiKey == "" {
		return nil, apperr.New(apperr.KindInfographic, "LLM API Key 未配置")
	}

	plan := SlidePlanFor(product.Category, count)
	if len(plan) == 0 {
		return nil, nil
	}

	spec := s.Fees.MediaSpec(mp)
	planNames := make([]string, len(plan))
	for i, st := range plan {
		planNames[i] = string(st)
	}

	prompt := fmt.Sprintf(`You are an e-commerce infographic art director.
Product: %s (%s), brand: %s.
Details: %s

For EACH slide type below write one detailed image-generation prompt in English.
Slide types, in this exact order: %s
Canvas: %dx%d (%s), background: %s. Text on image in Russian.

Output Format (JSON array only, no markdown):
[{"slide_type": "%s", "prompt": "..."}, ...]`,
		product.Name, product.Category, product.Brand, product.Description,
		strings.Join(planNames, ", "),
		spec.Width, spec.Height, spec.Ratio, spec.Background,
		planNames[0])

	parts := []map[string]interface{}{{"text": prompt}}

	var prompts []ImagePrompt
	err := s.gate.Do(ctx, aiProviderName, func(ctx context.Context) error {
		raw, err := s.callGemini(ctx, s.Config.TextModel, parts, false)
		if err != nil {
			return err
		}
		return parseModelJSON(raw, &prompts)
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTimeout {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindInfographic, "信息图提示词生成失败", err)
	}

	// 对齐到本地版式顺序；模型漏掉的槽位用兜底提示词补齐
	byType := make(map[SlideType]string, len(prompts))
	for _, p := range prompts {
		byType[p.SlideType] = p.Prompt
	}
	aligned := make([]ImagePrompt, 0, len(plan))
	for _, st := range plan {
		text := byType[st]
		if text == "" {
			text = fmt.Sprintf("Professional %s e-commerce infographic for %s, %s canvas, clean studio look",
				st, product.Name, spec.Ratio)
		}
		aligned = append(aligned, ImagePrompt{SlideType: st, Prompt: text})
	}
	return aligned, nil
}

// ==================== 竞品摘要 ====================

// CompetitorInfo 市场竞品概况
type CompetitorInfo struct {
	AvgPriceUZS int64  `json:"avg_price_uzs"`
	Summary     string `json:"summary"`
}

// CompetitorSummary 让模型估计同类商品的市场均价与卖点概况
// 模型不可用时由调用方退回静态启发式（1.1 × 成本价）
func (s *AIService) CompetitorSummary(ctx context.Context, product *CardProduct, mp model.Marketplace) (*CompetitorInfo, error) {
	if s.Config.ApiKey == "" {
		return nil, apperr.New(apperr.KindUpstream, "LLM API Key 未配置")
	}

	prompt := fmt.Sprintf(`Estimate the competitive landscape on %s marketplace (Uzbekistan) for:
Product: %s, category: %s, brand: %s.

Output Format (JSON only, no markdown):
{"avg_price_uzs": 250000, "summary": "2-3 sentences in Russian about typical competitors"}`,
		mp, product.Name, product.Category, product.Brand)

	parts := []map[string]interface{}{{"text": prompt}}

	var info CompetitorInfo
	err := s.gate.Do(ctx, aiProviderName, func(ctx context.Context) error {
		raw, err := s.callGemini(ctx, s.Config.TextModel, parts, false)
		if err != nil {
			return err
		}
		return parseModelJSON(raw, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// ==================== 图片生成 ====================

// GenerateImage 生成单张信息图，返回原始图片字节
// 只发一次请求；重试与节奏控制是上层（图片流水线）的事
func (s *AIService) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if s.Config.ApiKey == "" {
		return nil, apperr.New(apperr.KindInfographic, "LLM API Key 未配置")
	}

	parts := []map[string]interface{}{{"text": prompt}}

	var imageData []byte
	err := s.gate.Do(ctx, aiProviderName, func(ctx context.Context) error {
		raw, err := s.callGemini(ctx, s.Config.ImageModel, parts, true)
		if err != nil {
			return err
		}
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return fmt.Errorf("图片数据解码失败: %w", err)
		}
		imageData = data
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindTimeout {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindInfographic, "信息图生成失败", err)
	}
	return imageData, nil
}

// ==================== Gemini 调用 ====================

// callGemini 调用 generateContent
// wantImage=false 返回首个文本 part；wantImage=true 返回首个 inlineData 的 base64
func (s *AIService) callGemini(ctx context.Context, modelName string, parts []map[string]interface{}, wantImage bool) (string, error) {
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		s.Config.BaseURL, modelName, s.Config.ApiKey)

	genCfg := map[string]interface{}{}
	if wantImage {
		genCfg["responseModalities"] = []string{"TEXT", "IMAGE"}
	} else {
		genCfg["responseMimeType"] = "application/json"
	}

	reqBody := map[string]interface{}{
		"contents":         []map[string]interface{}{{"parts": parts}},
		"generationConfig": genCfg,
	}

	bodyBytes, _ := json.Marshal(reqBody)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", apperr.New(apperr.KindRateLimited, "Gemini API 限流")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API 错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string `json:"text,omitempty"`
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData,omitempty"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("API错误: %s", geminiResp.Error.Message)
	}

	for _, candidate := range geminiResp.Candidates {
		for _, part := range candidate.Content.Parts {
			if wantImage {
				if part.InlineData != nil && part.InlineData.Data != "" {
					return part.InlineData.Data, nil
				}
			} else if part.Text != "" {
				return part.Text, nil
			}
		}
	}

	if wantImage {
		return "", fmt.Errorf("响应中未找到图片数据")
	}
	return "", fmt.Errorf("无生成结果")
}

// parseModelJSON 防御性解析模型输出：先提取首个配对 JSON 片段再 Unmarshal
func parseModelJSON(raw string, out interface{}) error {
	jsonText, err := utils.ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(jsonText), out); err != nil {
		return fmt.Errorf("解析生成结果失败: %w, raw: %.200s", err, raw)
	}
	return nil
}

// ==================== 工具函数 ====================

// downloadImageData 下载图片并返回字节与 MIME 类型
func downloadImageData(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("下载失败 [%d]", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, "", err
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}
	return data, mimeType, nil
}
