package middleware

import (
	"fmt"
	"sync"
	"time"
)

// ==================== 伙伴级冷却限流 ====================

// PartnerRateLimiter 防止同一伙伴高频触发上架/同步
// 每个 key 独立冷却窗口，过窗才放行
type PartnerRateLimiter struct {
	locks sync.Map // key -> *lockEntry
}

type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

var globalPartnerLimiter = &PartnerRateLimiter{}

// GetPartnerLimiter 获取全局限流器
func GetPartnerLimiter() *PartnerRateLimiter {
	return globalPartnerLimiter
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Check 检查是否允许执行，允许时立即占用窗口
func (r *PartnerRateLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(entry.lastTime)
	if elapsed < interval {
		return CheckResult{Allowed: false, RetryAfter: interval - elapsed}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key
func (r *PartnerRateLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// ==================== Key 生成 ====================

// ListingKey 伙伴上架操作限流键
func ListingKey(partnerID string, marketplace string) string {
	return fmt.Sprintf("partner:%s:%s:listing", partnerID, marketplace)
}

// BillingKey 伙伴手动触发跑账限流键
func BillingKey(partnerID string) string {
	return fmt.Sprintf("partner:%s:billing", partnerID)
}
