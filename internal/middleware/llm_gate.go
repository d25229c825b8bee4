package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/metrics"
)

// ==================== 上游并发闸门 ====================

// 所有 LLM / 图床调用前必须过闸：每个上游最多 N 个在途调用，
// 超出的调用按到达顺序排队。不重试、不改序、不做优先级。

// GateConfig 单个上游的闸门配置
type GateConfig struct {
	MaxConcurrent int           // 在途上限
	RatePerSecond float64       // 请求节奏（0 = 不限）
	WaitTimeout   time.Duration // 排队超时
}

// DefaultGateConfig 默认配置
func DefaultGateConfig() GateConfig {
	return GateConfig{
		MaxConcurrent: 4,
		RatePerSecond: 2,
		WaitTimeout:   90 * time.Second,
	}
}

// providerGate 单个上游的闸门
type providerGate struct {
	name    string
	slots   chan struct{}
	limiter *rate.Limiter
	timeout time.Duration
}

// ProviderGate 进程级限流闸门，按上游名隔离配额
type ProviderGate struct {
	mu       sync.Mutex
	gates    map[string]*providerGate
	defaults GateConfig
	configs  map[string]GateConfig
}

// NewProviderGate 创建闸门
func NewProviderGate(defaults GateConfig, perProvider map[string]GateConfig) *ProviderGate {
	if defaults.MaxConcurrent <= 0 {
		defaults = DefaultGateConfig()
	}
	return &ProviderGate{
		gates:    make(map[string]*providerGate),
		defaults: defaults,
		configs:  perProvider,
	}
}

func (g *ProviderGate) gateFor(provider string) *providerGate {
	g.mu.Lock()
	defer g.mu.Unlock()

	if pg, ok := g.gates[provider]; ok {
		return pg
	}

	cfg := g.defaults
	if c, ok := g.configs[provider]; ok {
		cfg = c
	}

	pg := &providerGate{
		name:    provider,
		slots:   make(chan struct{}, cfg.MaxConcurrent),
		timeout: cfg.WaitTimeout,
	}
	if cfg.RatePerSecond > 0 {
		pg.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	g.gates[provider] = pg
	return pg
}

// ==================== 执行入口 ====================

// Do 在指定上游的配额内执行 fn
// 等槽超时是闸门层唯一可见的取消来源，映射为 Timeout 类错误
func (g *ProviderGate) Do(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	pg := g.gateFor(provider)

	waitStart := time.Now()
	waitCtx := ctx
	if pg.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, pg.timeout)
		defer cancel()
	}

	select {
	case pg.slots <- struct{}{}:
	case <-waitCtx.Done():
		metrics.UpstreamCallsTotal.WithLabelValues(provider, "gate_timeout").Inc()
		return apperr.Wrap(apperr.KindTimeout, "等待上游 "+provider+" 槽位超时", waitCtx.Err())
	}
	defer func() { <-pg.slots }()

	metrics.GateWaitDuration.WithLabelValues(provider).Observe(time.Since(waitStart).Seconds())

	if pg.limiter != nil {
		if err := pg.limiter.Wait(ctx); err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(provider, "gate_timeout").Inc()
			return apperr.Wrap(apperr.KindTimeout, "等待上游 "+provider+" 节奏窗口超时", err)
		}
	}

	callStart := time.Now()
	err := fn(ctx)
	metrics.UpstreamCallDuration.WithLabelValues(provider).Observe(time.Since(callStart).Seconds())

	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(provider, "failure").Inc()
		return err
	}
	metrics.UpstreamCallsTotal.WithLabelValues(provider, "success").Inc()
	return nil
}

// InFlight 当前在途调用数（测试与诊断用）
func (g *ProviderGate) InFlight(provider string) int {
	return len(g.gateFor(provider).slots)
}
