package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ==================== 结果定义 ====================

// IKPUConfidence 识别置信度
type IKPUConfidence string

const (
	IKPUConfidenceHigh    IKPUConfidence = "high"    // 远程分类器命中
	IKPUConfidenceMedium  IKPUConfidence = "medium"  // 本地关键词表命中
	IKPUConfidenceLow     IKPUConfidence = "low"     // 类目前缀兜底
	IKPUConfidenceDefault IKPUConfidence = "default" // 全零占位码
)

// IKPUResult IKPU/MXIK 解析结果
type IKPUResult struct {
	Code       string         `json:"code"` // 17 位分类码
	Name       string         `json:"name,omitempty"`
	Confidence IKPUConfidence `json:"confidence"`
	Is17Digit  bool           `json:"is_17_digit"`
}

// ikpuPlaceholder 完全无法解析时的占位码
const ikpuPlaceholder = "00000000000000000"

// ==================== 配置 ====================

// IKPUConfig 分类器配置
type IKPUConfig struct {
	BaseURL string        // 远程分类器地址
	Timeout time.Duration // 单次查询超时
}

// ==================== 服务 ====================

// IKPUService 17 位税务分类码解析
// 解析顺序：远程分类器 → 本地关键词表 → 类目前缀 → 全零占位
// 远程失败静默降级，永远不向调用方抛硬错误
type IKPUService struct {
	client *resty.Client
	cfg    *IKPUConfig
}

// NewIKPUService 创建解析服务
func NewIKPUService(cfg *IKPUConfig) *IKPUService {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &IKPUService{client: client, cfg: cfg}
}

// ==================== 解析入口 ====================

// Resolve 解析商品的 IKPU 码
func (s *IKPUService) Resolve(ctx context.Context, productName, category string) *IKPUResult {
	// 1. 远程分类器
	if s.cfg.BaseURL != "" {
		if result := s.resolveRemote(ctx, productName); result != nil {
			return result
		}
	}

	// 2. 本地关键词表
	if result := s.resolveByKeyword(productName); result != nil {
		return result
	}

	// 3. 类目前缀兜底
	if result := s.resolveByCategory(category); result != nil {
		return result
	}

	// 4. 占位码
	return &IKPUResult{
		Code:       ikpuPlaceholder,
		Confidence: IKPUConfidenceDefault,
		Is17Digit:  true,
	}
}

// ==================== 远程分类器 ====================

// tasnifCandidate 分类器返回的候选条目
type tasnifCandidate struct {
	MxikCode string `json:"mxikCode"`
	Code     string `json:"code"`
	Name     string `json:"name"`
}

type tasnifResponse struct {
	Data []tasnifCandidate `json:"data"`
}

// resolveRemote 调用远程分类器，按名称相似度取最优候选
func (s *IKPUService) resolveRemote(ctx context.Context, productName string) *IKPUResult {
	var body tasnifResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("text", productName).
		SetQueryParam("limit", "10").
		SetResult(&body).
		Get("/api/cls-api/mxik/search/by-params")

	if err != nil {
		log.Printf("[IKPU] 远程分类器请求失败，降级本地表: %v", err)
		return nil
	}
	if resp.StatusCode() != 200 || len(body.Data) == 0 {
		log.Printf("[IKPU] 远程分类器无结果 [%d]，降级本地表", resp.StatusCode())
		return nil
	}

	best := body.Data[0]
	bestScore := similarity(productName, best.Name)
	for _, c := range body.Data[1:] {
		if score := similarity(productName, c.Name); score > bestScore {
			best, bestScore = c, score
		}
	}

	code := best.MxikCode
	if code == "" {
		code = best.Code
	}
	if code == "" {
		return nil
	}

	return &IKPUResult{
		Code:       PadIKPU(code),
		Name:       best.Name,
		Confidence: IKPUConfidenceHigh,
		Is17Digit:  true,
	}
}

// similarity 词级重叠相似度 [0,1]
func similarity(a, b string) float64 {
	aw := strings.Fields(strings.ToLower(a))
	bw := strings.Fields(strings.ToLower(b))
	if len(aw) == 0 || len(bw) == 0 {
		return 0
	}
	bset := make(map[string]struct{}, len(bw))
	for _, w := range bw {
		bset[w] = struct{}{}
	}
	hits := 0
	for _, w := range aw {
		if _, ok := bset[w]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(aw))
}

// ==================== 本地关键词表 ====================

// ikpuKeywordMap 常见商品关键词 → 分类码
// 码值可能短于 17 位，统一右补零
var ikpuKeywordMap = map[string]string{
	"телефон":   "08517120010000000",
	"смартфон":  "08517120010000000",
	"наушники":  "08518300030000000",
	"часы":      "09102190010000000",
	"крем":      "03304990050000000",
	"шампунь":   "03305100000000000",
	"духи":      "03303000010000000",
	"парфюм":    "03303000010000000",
	"футболка":  "06109100010000000",
	"платье":    "06204420000000000",
	"обувь":     "06403990000000000",
	"кроссовки": "06404110000000000",
	"игрушка":   "09503009590000000",
	"чай":       "00902300020000000",
	"кофе":      "00901210000000000",
	"мед":       "00409000000000000",
	"посуда":    "06911100010000000",
	"лампа":     "08539500000000000",
	"чайник":    "08516710000000000",
	"ковер":     "05703200000000000",
}

func (s *IKPUService) resolveByKeyword(productName string) *IKPUResult {
	lower := strings.ToLower(productName)
	for keyword, code := range ikpuKeywordMap {
		if strings.Contains(lower, keyword) {
			return &IKPUResult{
				Code:       PadIKPU(code),
				Name:       keyword,
				Confidence: IKPUConfidenceMedium,
				Is17Digit:  true,
			}
		}
	}
	return nil
}

// ==================== 类目前缀兜底 ====================

// ikpuCategoryPrefix 类目 → 码前缀
var ikpuCategoryPrefix = map[string]string{
	"electronics": "085",
	"clothing":    "061",
	"cosmetics":   "033",
	"perfume":     "033",
	"food":        "009",
	"toys":        "095",
	"home":        "069",
}

func (s *IKPUService) resolveByCategory(category string) *IKPUResult {
	prefix, ok := ikpuCategoryPrefix[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return nil
	}
	return &IKPUResult{
		Code:       PadIKPU(prefix),
		Confidence: IKPUConfidenceLow,
		Is17Digit:  true,
	}
}

// ==================== 工具 ====================

// PadIKPU 短码右补零到 17 位；超长截断
func PadIKPU(code string) string {
	code = strings.TrimSpace(code)
	if len(code) >= 17 {
		return code[:17]
	}
	return code + strings.Repeat("0", 17-len(code))
}
