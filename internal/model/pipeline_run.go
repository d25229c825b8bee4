package model

import (
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// ==================== 枚举 ====================

// RunStatus 流水线终态
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFailed  RunStatus = "failed"
)

// StepFailure 单阶段失败记录
type StepFailure struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// ==================== 流水线运行审计 ====================

// PipelineRun 一次上架流水线运行的落库快照
// 不变量：阶段一旦进入 StepsCompleted，其产物必然已写入 Artifacts 且不再变更
type PipelineRun struct {
	BaseModel
	RunID       string      `gorm:"size:64;uniqueIndex;not null" json:"run_id"`
	PartnerID   string      `gorm:"size:64;index;not null" json:"partner_id"`
	Marketplace Marketplace `gorm:"size:20" json:"marketplace"`

	Request        datatypes.JSON `gorm:"type:jsonb" json:"request"`         // ListingRequest 快照
	StepsCompleted pq.StringArray `gorm:"type:text[]" json:"steps_completed"`
	StepsFailed    datatypes.JSON `gorm:"type:jsonb" json:"steps_failed"`    // []StepFailure
	Artifacts      datatypes.JSON `gorm:"type:jsonb" json:"artifacts"`       // 阶段名 → 产物

	FinalOfferID string    `gorm:"size:128" json:"final_offer_id,omitempty"`
	Status       RunStatus `gorm:"size:16;index;default:running" json:"terminal_status"`
	ErrorKind    string    `gorm:"size:64" json:"error,omitempty"`
}

func (PipelineRun) TableName() string {
	return "pipeline_runs"
}
