package marketplace

import "context"

// ==================== 浏览器会话抽象 ====================

// Session 无头浏览器会话的最小接口
// 具体引擎（chromedp / playwright 网关等）由部署方注入；
// 适配器只依赖导航、JS 求值和坐标点击三种原语
type Session interface {
	// Navigate 跳转并等待页面加载完成
	Navigate(ctx context.Context, url string) error
	// CurrentURL 当前地址
	CurrentURL(ctx context.Context) (string, error)
	// Eval 执行 JS 表达式，返回 JSON 序列化后的求值结果
	Eval(ctx context.Context, script string) (string, error)
	// Click 按视口坐标点击（部分控件拒绝合成 click 事件，只认真实坐标）
	Click(ctx context.Context, x, y float64) error
	// Close 释放会话
	Close(ctx context.Context) error
}
