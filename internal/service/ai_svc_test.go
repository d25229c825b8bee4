package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/middleware"
	"uzum_erp_v1_202608/internal/model"
)

// ==================== 测试辅助 ====================

func newTestAI(baseURL string) *AIService {
	return NewAIService(&AIConfig{
		ApiKey:  "test-key",
		BaseURL: baseURL,
	}, NewFeeTableService(), middleware.NewProviderGate(middleware.DefaultGateConfig(), nil))
}

// geminiTextResponse 构造 generateContent 的文本响应体
func geminiTextResponse(text string) map[string]interface{} {
	return map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{
				"parts": []map[string]interface{}{{"text": text}},
			},
		}},
	}
}

func repeatRunes(r string, n int) string {
	return strings.Repeat(r, n)
}

// ==================== 卡片后处理 ====================

func TestPostProcessCardTitleTruncation(t *testing.T) {
	ai := newTestAI("")

	// 150 字符标题，uzum 上限 80 → 前 77 rune + …
	long := repeatRunes("т", 150)
	card := &model.ProductCard{
		Marketplace: model.MarketplaceUzum,
		Locales: map[string]*model.CardLocale{
			"ru": {Title: long, Description: repeatRunes("о", 120), Keywords: []string{"чайник"}},
			"uz": {Title: "Choynak", Description: repeatRunes("o", 120), Keywords: []string{"choynak"}},
		},
	}
	ai.PostProcessCard(card)

	ru := card.Locale("ru")
	runes := []rune(ru.Title)
	assert.Len(t, runes, 78)
	assert.Equal(t, "…", string(runes[77]))
	assert.True(t, card.Validation.Valid)
}

func TestPostProcessCardStripsCyrillicStopWords(t *testing.T) {
	ai := newTestAI("")

	card := &model.ProductCard{
		Marketplace: model.MarketplaceUzum,
		Locales: map[string]*model.CardLocale{
			"ru": {
				Title:       "Хит продаж! Оригинал зарядка Xiaomi",
				Description: "Супер качество. " + repeatRunes("д", 120),
				Keywords:    []string{"зарядка", "оригинал xiaomi", "кабель"},
				BulletPoints: []string{
					"Акция недели",
					"Быстрая зарядка 33Вт",
				},
			},
			"uz": {Title: "Zaryadlovchi", Description: repeatRunes("o", 120), Keywords: []string{"zaryadka"}},
		},
	}
	ai.PostProcessCard(card)

	ru := card.Locale("ru")
	assert.Equal(t, "продаж! зарядка Xiaomi", ru.Title)
	assert.NotContains(t, strings.ToLower(ru.Description), "супер")
	assert.Equal(t, []string{"зарядка", "кабель"}, ru.Keywords) // 含禁用词的关键词整条剔除
	assert.Equal(t, "недели", ru.BulletPoints[0])

	assert.True(t, card.Validation.Valid)
	assert.False(t, card.Validation.HasStopWords)
}

func TestPostProcessCardYandexPrunesNonRussian(t *testing.T) {
	ai := newTestAI("")

	card := &model.ProductCard{
		Marketplace: model.MarketplaceYandex,
		Locales: map[string]*model.CardLocale{
			"ru": {Title: "Чайник", Description: repeatRunes("о", 160), Keywords: []string{"чайник"}},
			"uz": {Title: "Choynak", Description: "x", Keywords: []string{"x"}},
		},
	}
	ai.PostProcessCard(card)

	assert.Nil(t, card.Locale("uz")) // yandex 只保留 ru
	assert.NotNil(t, card.Locale("ru"))
	assert.True(t, card.Validation.Valid)
}

func TestPostProcessCardYandexMissingRussian(t *testing.T) {
	ai := newTestAI("")

	card := &model.ProductCard{
		Marketplace: model.MarketplaceYandex,
		Locales: map[string]*model.CardLocale{
			"uz": {Title: "Choynak"},
		},
	}
	ai.PostProcessCard(card)
	assert.False(t, card.Validation.Valid)
}

func TestPostProcessCardEmptyLocales(t *testing.T) {
	ai := newTestAI("")
	card := &model.ProductCard{Marketplace: model.MarketplaceUzum}
	ai.PostProcessCard(card)
	assert.False(t, card.Validation.Valid)
}

func TestPostProcessCardWarnings(t *testing.T) {
	ai := newTestAI("")

	card := &model.ProductCard{
		Marketplace: model.MarketplaceUzum,
		Locales: map[string]*model.CardLocale{
			"ru": {
				Title:       "Чайник",
				Description: "короткое описание", // < 100 字符
				Keywords:    []string{"акция"},   // 剔除后为空
			},
		},
	}
	ai.PostProcessCard(card)

	assert.True(t, card.Validation.Valid)
	assert.Len(t, card.Validation.Warnings, 2)
}

// ==================== 卡片生成 ====================

func TestGenerateCardUzumBilingual(t *testing.T) {
	cardJSON := `{"locales": {
		"uz": {"title": "Elektr choynak", "description": "` + repeatRunes("o", 120) + `", "keywords": ["choynak"], "bullet_points": ["1.7L"]},
		"ru": {"title": "Чайник электрический хит", "description": "` + repeatRunes("о", 120) + `", "keywords": ["чайник"], "bullet_points": ["1.7Л"]}},
		"specifications": {"Объём": "1.7 л"}, "seo_score": 82}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		var req struct {
			GenerationConfig map[string]interface{} `json:"generationConfig"`
		}
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "application/json", req.GenerationConfig["responseMimeType"])

		// 模型输出裹一层 markdown，走防御性提取
		_ = json.NewEncoder(w).Encode(geminiTextResponse("```json\n" + cardJSON + "\n```"))
	}))
	defer srv.Close()

	ai := newTestAI(srv.URL)
	card, err := ai.GenerateCard(context.Background(),
		&CardProduct{Name: "Чайник", Category: "home"}, model.MarketplaceUzum, "")
	require.NoError(t, err)

	require.NotNil(t, card.Locale("ru"))
	require.NotNil(t, card.Locale("uz"))
	assert.Equal(t, "Чайник электрический", card.Locale("ru").Title) // 禁用词 хит 已剔除
	assert.Equal(t, 82, card.SEOScore)
	assert.Equal(t, "1.7 л", card.Specifications["Объём"])
	assert.True(t, card.Validation.Valid)
}

func TestGenerateCardNoAPIKey(t *testing.T) {
	ai := NewAIService(&AIConfig{}, NewFeeTableService(),
		middleware.NewProviderGate(middleware.DefaultGateConfig(), nil))
	_, err := ai.GenerateCard(context.Background(),
		&CardProduct{Name: "x"}, model.MarketplaceUzum, "")
	assert.Equal(t, apperr.KindCardGeneration, apperr.KindOf(err))
}

func TestCallGeminiRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ai := newTestAI(srv.URL)
	_, err := ai.callGemini(context.Background(), ai.Config.TextModel,
		[]map[string]interface{}{{"text": "x"}}, false)
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
}

// ==================== 识图 ====================

func TestRecognizeProductFromBase64(t *testing.T) {
	recJSON := `{"product_name": "Кроссовки Nike", "category": "clothing", "brand": "Nike",
		"description": "Беговые кроссовки", "estimated_price_uzs": 450000,
		"keywords": ["кроссовки", "бег"], "confidence": 90}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		// 图片以 inline_data 内联
		assert.Contains(t, string(body), "inline_data")
		_ = json.NewEncoder(w).Encode(geminiTextResponse(recJSON))
	}))
	defer srv.Close()

	ai := newTestAI(srv.URL)
	rec, err := ai.RecognizeProduct(context.Background(),
		base64.StdEncoding.EncodeToString([]byte("fake-jpeg")), "")
	require.NoError(t, err)
	assert.Equal(t, "Кроссовки Nike", rec.ProductName)
	assert.Equal(t, "clothing", rec.Category)
	assert.Equal(t, 90, rec.Confidence)
}

func TestRecognizeProductModelRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ai := newTestAI(srv.URL)
	_, err := ai.RecognizeProduct(context.Background(),
		base64.StdEncoding.EncodeToString([]byte("x")), "")
	assert.Equal(t, apperr.KindRecognition, apperr.KindOf(err))
}

func TestRecognizeProductMissingSource(t *testing.T) {
	ai := newTestAI("")
	_, err := ai.RecognizeProduct(context.Background(), "", "")
	assert.Equal(t, apperr.KindRecognition, apperr.KindOf(err))
}

// ==================== 信息图提示词 ====================

func TestSlidePlanFor(t *testing.T) {
	plan := SlidePlanFor("cosmetics", 3)
	assert.Equal(t, []SlideType{SlideHeroFloating, SlidePurity, SlideComposition}, plan)

	assert.Len(t, SlidePlanFor("неизвестно", 10), 6) // 上限是方案长度
	assert.Empty(t, SlidePlanFor("food", 0))

	// 所有方案首图都是悬浮主图
	for _, cat := range []string{"cosmetics", "food", "electronics", "perfume", "другое"} {
		plan := SlidePlanFor(cat, 6)
		require.NotEmpty(t, plan)
		assert.Equal(t, SlideHeroFloating, plan[0], cat)
	}
}

func TestGenerateImagePromptsAlignsToPlan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 模型漏掉第二个版式，槽位用兜底提示词补齐
		_ = json.NewEncoder(w).Encode(geminiTextResponse(
			`[{"slide_type": "hero_floating", "prompt": "floating bottle on gradient"}]`))
	}))
	defer srv.Close()

	ai := newTestAI(srv.URL)
	prompts, err := ai.GenerateImagePrompts(context.Background(),
		&CardProduct{Name: "Крем", Category: "cosmetics"}, model.MarketplaceUzum, 2)
	require.NoError(t, err)
	require.Len(t, prompts, 2)

	assert.Equal(t, SlideHeroFloating, prompts[0].SlideType)
	assert.Equal(t, "floating bottle on gradient", prompts[0].Prompt)
	assert.Equal(t, SlidePurity, prompts[1].SlideType)
	assert.NotEmpty(t, prompts[1].Prompt)
}

// ==================== 图片生成 ====================

func TestGenerateImage(t *testing.T) {
	pngBytes := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var req struct {
			GenerationConfig struct {
				ResponseModalities []string `json:"responseModalities"`
			} `json:"generationConfig"`
		}
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, []string{"TEXT", "IMAGE"}, req.GenerationConfig.ResponseModalities)

		fmt.Fprintf(w, `{"candidates": [{"content": {"parts": [
			{"inlineData": {"mimeType": "image/png", "data": %q}}]}}]}`,
			base64.StdEncoding.EncodeToString(pngBytes))
	}))
	defer srv.Close()

	ai := newTestAI(srv.URL)
	data, err := ai.GenerateImage(context.Background(), "studio shot")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestGenerateImageNoImageInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(geminiTextResponse("не могу"))
	}))
	defer srv.Close()

	ai := newTestAI(srv.URL)
	_, err := ai.GenerateImage(context.Background(), "x")
	assert.Equal(t, apperr.KindInfographic, apperr.KindOf(err))
}
