package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/middleware"
	"uzum_erp_v1_202608/internal/model"
)

// ==================== 信息图流水线 ====================

// 单个商品的信息图严格串行生成，图与图之间固定间隔，
// 避免触发上游限流；部分成功是一等结果，不是错误。

const (
	infographicProviderName = "imgbb"
	interImageDelay         = 3 * time.Second
	maxInfographics         = 6
)

// InfographicError 单张失败记录
type InfographicError struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// InfographicResult 信息图流水线结果
// Images 与 ImageTypes 一一对应且保持版式顺序；GeneratedCount ≤ 请求数
type InfographicResult struct {
	Images         []string           `json:"images"`
	ImageTypes     []string           `json:"image_types"`
	GeneratedCount int                `json:"generated_count"`
	Errors         []InfographicError `json:"errors,omitempty"`
}

// InfographicService 信息图生成 + 图床上传
type InfographicService struct {
	ai      *AIService
	storage *StorageService
	gate    *middleware.ProviderGate
	delay   time.Duration
}

// NewInfographicService 创建信息图服务
func NewInfographicService(ai *AIService, storage *StorageService, gate *middleware.ProviderGate) *InfographicService {
	return &InfographicService{
		ai:      ai,
		storage: storage,
		gate:    gate,
		delay:   interImageDelay,
	}
}

// SetDelay 调整图间延迟（测试用）
func (s *InfographicService) SetDelay(d time.Duration) {
	s.delay = d
}

// ==================== 生成入口 ====================

// Generate 为商品生成最多 count 张信息图并上传图床
// 每张图：生成 → 上传 → 记录 URL；任何一张失败只记录，不中断后续
func (s *InfographicService) Generate(ctx context.Context, product *CardProduct, mp model.Marketplace, count int) (*InfographicResult, error) {
	if s.storage == nil {
		return nil, apperr.New(apperr.KindInfographic, "存储服务未配置")
	}
	if count > maxInfographics {
		count = maxInfographics
	}
	result := &InfographicResult{}
	if count <= 0 {
		return result, nil
	}

	prompts, err := s.ai.GenerateImagePrompts(ctx, product, mp, count)
	if err != nil {
		return nil, err
	}

	for i, p := range prompts {
		if i > 0 {
			// 固定间隔，绝不并行
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				result.Errors = append(result.Errors, InfographicError{Index: i, Error: "canceled"})
				return result, nil
			}
		}

		url, err := s.generateOne(ctx, p)
		if err != nil {
			log.Printf("[Infographic] 第 %d 张 (%s) 失败: %v", i+1, p.SlideType, err)
			result.Errors = append(result.Errors, InfographicError{Index: i, Error: err.Error()})
			continue
		}

		result.Images = append(result.Images, url)
		result.ImageTypes = append(result.ImageTypes, string(p.SlideType))
		result.GeneratedCount++
	}

	if result.GeneratedCount == 0 && len(result.Errors) > 0 {
		return result, apperr.Newf(apperr.KindInfographic, "全部 %d 张信息图生成失败", len(prompts))
	}
	return result, nil
}

// generateOne 生成并上传单张
func (s *InfographicService) generateOne(ctx context.Context, p ImagePrompt) (string, error) {
	imageData, err := s.ai.GenerateImage(ctx, p.Prompt)
	if err != nil {
		return "", err
	}

	var url string
	err = s.gate.Do(ctx, infographicProviderName, func(ctx context.Context) error {
		uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		u, err := s.storage.Upload(uploadCtx, imageData,
			fmt.Sprintf("infographic_%s_%d.png", p.SlideType, time.Now().UnixNano()),
			"image/png")
		if err != nil {
			return err
		}
		url = u
		return nil
	})
	if err != nil {
		return "", err
	}
	return url, nil
}
