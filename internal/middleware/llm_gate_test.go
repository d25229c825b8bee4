package middleware

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uzum_erp_v1_202608/internal/apperr"
)

// ==================== 并发上限 ====================

func TestGateLimitsConcurrency(t *testing.T) {
	gate := NewProviderGate(GateConfig{
		MaxConcurrent: 2,
		RatePerSecond: 0,
		WaitTimeout:   5 * time.Second,
	}, nil)

	var inFlight, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.Do(context.Background(), "gemini", func(ctx context.Context) error {
				cur := atomic.AddInt64(&inFlight, 1)
				for {
					old := atomic.LoadInt64(&peak)
					if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
						break
					}
				}
				time.Sleep(30 * time.Millisecond)
				atomic.AddInt64(&inFlight, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
	assert.Equal(t, 0, gate.InFlight("gemini"))
}

func TestGateWaitTimeout(t *testing.T) {
	gate := NewProviderGate(GateConfig{
		MaxConcurrent: 1,
		WaitTimeout:   80 * time.Millisecond,
	}, nil)

	release := make(chan struct{})
	occupied := make(chan struct{})
	go func() {
		_ = gate.Do(context.Background(), "gemini", func(ctx context.Context) error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied
	defer close(release)

	err := gate.Do(context.Background(), "gemini", func(ctx context.Context) error {
		t.Error("槽位已满，不应执行")
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "gemini")
}

// ==================== 上游隔离 ====================

func TestGatePerProviderIsolation(t *testing.T) {
	gate := NewProviderGate(GateConfig{
		MaxConcurrent: 1,
		WaitTimeout:   100 * time.Millisecond,
	}, nil)

	release := make(chan struct{})
	occupied := make(chan struct{})
	go func() {
		_ = gate.Do(context.Background(), "gemini", func(ctx context.Context) error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied
	defer close(release)

	// gemini 占满不影响 imgbb 的配额
	err := gate.Do(context.Background(), "imgbb", func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

// ==================== 按上游覆盖配置 ====================

func TestGatePerProviderConfigOverride(t *testing.T) {
	gate := NewProviderGate(DefaultGateConfig(), map[string]GateConfig{
		"imgbb": {MaxConcurrent: 1, WaitTimeout: 50 * time.Millisecond},
	})

	release := make(chan struct{})
	occupied := make(chan struct{})
	go func() {
		_ = gate.Do(context.Background(), "imgbb", func(ctx context.Context) error {
			close(occupied)
			<-release
			return nil
		})
	}()
	<-occupied
	defer close(release)

	err := gate.Do(context.Background(), "imgbb", func(ctx context.Context) error { return nil })
	assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
}

// ==================== 透传 ====================

func TestGatePassesThroughFnError(t *testing.T) {
	gate := NewProviderGate(GateConfig{MaxConcurrent: 1}, nil)

	boom := errors.New("上游挂了")
	err := gate.Do(context.Background(), "gemini", func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, gate.InFlight("gemini"))
}

func TestGateCanceledContext(t *testing.T) {
	gate := NewProviderGate(GateConfig{MaxConcurrent: 1, WaitTimeout: time.Second}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gate.Do(ctx, "gemini", func(ctx context.Context) error {
		return nil
	})
	// 已取消的上下文在抢槽阶段就会失败
	if err != nil {
		assert.Equal(t, apperr.KindTimeout, apperr.KindOf(err))
	}
}
