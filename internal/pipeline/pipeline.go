package pipeline

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/marketplace"
	"uzum_erp_v1_202608/internal/metrics"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/repository"
	"uzum_erp_v1_202608/internal/service"
)

// ==================== 阶段描述符 ====================

// Stage 流水线阶段：名字、依赖、是否可选、执行体
// 编排器按声明顺序解释执行，阶段本身不关心先后
type Stage struct {
	Name      string
	DependsOn []string
	Optional  bool
	Run       func(ctx context.Context, st *runState) (interface{}, error)
}

// 阶段名
const (
	StageRecognize    = "recognize"
	StageResolveTax   = "resolve_tax_code"
	StagePrice        = "optimize_price"
	StageCard         = "generate_card"
	StageInfographics = "generate_infographics"
	StageUpload       = "upload_offer"
)

// runState 单次运行的可变状态；阶段产物只写一次
type runState struct {
	req *model.ListingRequest

	product      *service.CardProduct
	recognition  *service.RecognitionResult
	taxCode      *service.IKPUResult
	price        *service.PriceCalc
	competitor   string
	card         *model.ProductCard
	infographics *service.InfographicResult
	offerID      string
}

// RunResult 一次运行的完整结果
type RunResult struct {
	RunID          string                 `json:"run_id"`
	Status         model.RunStatus        `json:"terminal_status"`
	StepsCompleted []string               `json:"steps_completed"`
	StepsFailed    []model.StepFailure    `json:"steps_failed,omitempty"`
	Artifacts      map[string]interface{} `json:"artifacts"`
	OfferID        string                 `json:"offer_id,omitempty"`
	ErrorKind      string                 `json:"error,omitempty"`
}

// ==================== 编排器 ====================

// Orchestrator 上架流水线编排器
// 单次运行内严格串行、每阶段至多执行一次、从不重试（重试是调用方的事）
type Orchestrator struct {
	ai           *service.AIService
	ikpu         *service.IKPUService
	pricing      *service.PricingService
	infographics *service.InfographicService
	billing      *service.BillingService
	adapters     *marketplace.Registry
	runs         repository.PipelineRunRepository
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	ai *service.AIService,
	ikpu *service.IKPUService,
	pricing *service.PricingService,
	infographics *service.InfographicService,
	billing *service.BillingService,
	adapters *marketplace.Registry,
	runs repository.PipelineRunRepository,
) *Orchestrator {
	return &Orchestrator{
		ai:           ai,
		ikpu:         ikpu,
		pricing:      pricing,
		infographics: infographics,
		billing:      billing,
		adapters:     adapters,
		runs:         runs,
	}
}

// Execute 驱动一个 ListingRequest 走完全部阶段
// 取消是协作式的：下一个阶段开始前检查，终态记 partial，已有产物保留
func (o *Orchestrator) Execute(ctx context.Context, req *model.ListingRequest) (*RunResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.SKU == "" {
		req.SKU = "SKU-" + uuid.NewString()[:8]
	}

	result := &RunResult{
		RunID:     uuid.NewString(),
		Status:    model.RunStatusRunning,
		Artifacts: make(map[string]interface{}),
	}
	st := &runState{req: req}
	record := o.createRecord(ctx, result, req)

	canceled := false
	failedSet := make(map[string]bool)

	for _, stage := range o.buildStages(req) {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		if dep, ok := o.unmetDependency(stage, st, failedSet); ok {
			failedSet[stage.Name] = true
			result.StepsFailed = append(result.StepsFailed, model.StepFailure{
				Step:  stage.Name,
				Error: "跳过: 依赖 " + dep + " 未完成",
			})
			continue
		}

		artifact, err := stage.Run(ctx, st)
		if err != nil {
			kind := string(apperr.KindOf(err))
			failedSet[stage.Name] = true
			result.StepsFailed = append(result.StepsFailed, model.StepFailure{
				Step:  stage.Name,
				Error: err.Error(),
			})
			if result.ErrorKind == "" && !stage.Optional {
				result.ErrorKind = kind
			}
			metrics.PipelineStageFailures.WithLabelValues(stage.Name, kind).Inc()
			// 部分产物（如失败但有产出的信息图）仍然落档
			if artifact != nil {
				result.Artifacts[stage.Name] = artifact
			}
			log.Printf("[Pipeline] 运行 %s 阶段 %s 失败: %v", result.RunID, stage.Name, err)
			continue
		}

		result.StepsCompleted = append(result.StepsCompleted, stage.Name)
		if artifact != nil {
			result.Artifacts[stage.Name] = artifact
		}
	}

	result.OfferID = st.offerID
	result.Status = terminalStatus(result, canceled)
	metrics.PipelineRunsTotal.WithLabelValues(string(req.Marketplace), string(result.Status)).Inc()

	o.finishRecord(ctx, record, result)
	return result, nil
}

// buildStages 按请求拼装阶段链；可选阶段按开关裁剪
func (o *Orchestrator) buildStages(req *model.ListingRequest) []Stage {
	stages := make([]Stage, 0, 6)
	if req.HasImageSource() {
		stages = append(stages, Stage{
			Name: StageRecognize,
			Run:  o.runRecognize,
		})
	}
	if req.AutoIKPU {
		stages = append(stages, Stage{
			Name:     StageResolveTax,
			Optional: true, // 内部兜底占位码，从不失败
			Run:      o.runResolveTax,
		})
	}
	stages = append(stages,
		Stage{Name: StagePrice, Run: o.runPrice},
		Stage{Name: StageCard, Run: o.runCard},
	)
	if req.AutoInfographics && req.InfographicCount > 0 {
		stages = append(stages, Stage{
			Name:      StageInfographics,
			DependsOn: []string{StageCard},
			Optional:  true, // 信息图失败永不致命
			Run:       o.runInfographics,
		})
	}
	stages = append(stages, Stage{
		Name:      StageUpload,
		DependsOn: []string{StagePrice, StageCard},
		Run:       o.runUpload,
	})
	return stages
}

// unmetDependency 返回第一个未满足的依赖
// 特例：卡片失败但用户自带商品名时，上传仍可用最小卡片进行
func (o *Orchestrator) unmetDependency(stage Stage, st *runState, failed map[string]bool) (string, bool) {
	for _, dep := range stage.DependsOn {
		if !failed[dep] {
			continue
		}
		if stage.Name == StageUpload && dep == StageCard && st.req.ProductName != "" {
			continue
		}
		return dep, true
	}
	return "", false
}

// terminalStatus 终态判定
//
//	partial — 被取消；或拿到 offer_id 但有阶段失败
//	success — 拿到 offer_id 且零失败
//	failed  — 没拿到 offer_id
func terminalStatus(result *RunResult, canceled bool) model.RunStatus {
	if canceled {
		return model.RunStatusPartial
	}
	if result.OfferID != "" {
		if len(result.StepsFailed) == 0 {
			return model.RunStatusSuccess
		}
		return model.RunStatusPartial
	}
	return model.RunStatusFailed
}

// ==================== 运行落库 ====================

func (o *Orchestrator) createRecord(ctx context.Context, result *RunResult, req *model.ListingRequest) *model.PipelineRun {
	if o.runs == nil {
		return nil
	}
	reqJSON, _ := json.Marshal(req)
	record := &model.PipelineRun{
		RunID:       result.RunID,
		PartnerID:   req.PartnerID,
		Marketplace: req.Marketplace,
		Request:     reqJSON,
		Status:      model.RunStatusRunning,
	}
	if err := o.runs.Create(ctx, record); err != nil {
		log.Printf("[Pipeline] 运行 %s 落库失败: %v", result.RunID, err)
		return nil
	}
	return record
}

func (o *Orchestrator) finishRecord(ctx context.Context, record *model.PipelineRun, result *RunResult) {
	if record == nil {
		return
	}
	record.StepsCompleted = result.StepsCompleted
	record.StepsFailed, _ = json.Marshal(result.StepsFailed)
	record.Artifacts, _ = json.Marshal(result.Artifacts)
	record.FinalOfferID = result.OfferID
	record.Status = result.Status
	record.ErrorKind = result.ErrorKind
	if err := o.runs.Update(ctx, record); err != nil {
		log.Printf("[Pipeline] 运行 %s 更新落库失败: %v", result.RunID, err)
	}
}
