package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"uzum_erp_v1_202608/internal/apperr"
)

// ==================== Shadow DOM 查询层 ====================

// 向导渲染在 Web Component 内部，document.querySelector 查不到，
// 必须先取宿主组件的 shadowRoot 再向下查询。
// 赋值后要补发 input + change 两个事件（前端两个都监听）。

// shadowExpr 生成穿透 shadow root 的查询表达式
// host 为空表示普通 DOM（登录页不在组件内）
func shadowExpr(host, selector string) string {
	if host == "" {
		return fmt.Sprintf(`document.querySelector(%q)`, selector)
	}
	return fmt.Sprintf(
		`document.querySelector(%q) && document.querySelector(%q).shadowRoot ? document.querySelector(%q).shadowRoot.querySelector(%q) : null`,
		host, host, host, selector)
}

// shadowDOM 绑定到一条会话的查询助手
type shadowDOM struct {
	session Session
	host    string
}

func newShadowDOM(session Session, host string) *shadowDOM {
	return &shadowDOM{session: session, host: host}
}

// exists 元素是否存在
func (d *shadowDOM) exists(ctx context.Context, selector string) (bool, error) {
	out, err := d.session.Eval(ctx, fmt.Sprintf(`(() => { const el = %s; return el !== null; })()`,
		shadowExpr(d.host, selector)))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// setValue 赋值并合成 input + change 事件
func (d *shadowDOM) setValue(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return "missing";
		el.value = %s;
		el.dispatchEvent(new Event('input', {bubbles: true, composed: true}));
		el.dispatchEvent(new Event('change', {bubbles: true, composed: true}));
		return "ok";
	})()`, shadowExpr(d.host, selector), strconv.Quote(value))

	out, err := d.session.Eval(ctx, script)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "浏览器执行失败", err)
	}
	if strings.Trim(strings.TrimSpace(out), `"`) != "ok" {
		return apperr.Newf(apperr.KindUpload, "找不到元素 %s", selector)
	}
	return nil
}

// clickCenter 取包围盒中心坐标后真实点击
// 合成 click 会被部分控件的信任检查拒绝
func (d *shadowDOM) clickCenter(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return null;
		const r = el.getBoundingClientRect();
		return JSON.stringify({x: r.x + r.width / 2, y: r.y + r.height / 2});
	})()`, shadowExpr(d.host, selector))

	out, err := d.session.Eval(ctx, script)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "浏览器执行失败", err)
	}
	out = strings.TrimSpace(out)
	if out == "null" || out == "" {
		return apperr.Newf(apperr.KindUpload, "找不到元素 %s", selector)
	}
	// Eval 可能把 JSON 再包一层字符串
	if unquoted, err := strconv.Unquote(out); err == nil {
		out = unquoted
	}

	var point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	if err := json.Unmarshal([]byte(out), &point); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "解析坐标失败", err)
	}
	return d.session.Click(ctx, point.X, point.Y)
}

// isDisabled 按钮是否禁用
func (d *shadowDOM) isDisabled(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return true;
		return el.disabled || el.hasAttribute('disabled');
	})()`, shadowExpr(d.host, selector))

	out, err := d.session.Eval(ctx, script)
	if err != nil {
		return true, err
	}
	return strings.TrimSpace(out) == "true", nil
}

// waitEnabled 轮询保存按钮直到可点击；超时视作该状态迁移的终态失败
func (d *shadowDOM) waitEnabled(ctx context.Context, selector string, interval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		disabled, err := d.isDisabled(ctx, selector)
		if err != nil {
			return apperr.Wrap(apperr.KindUpstream, "轮询按钮状态失败", err)
		}
		if !disabled {
			return nil
		}
		if time.Now().After(deadline) {
			return apperr.Newf(apperr.KindUpload, "按钮 %s 始终不可用", selector)
		}
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.KindTimeout, "等待按钮可用被取消", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// ==================== 状态 blob 解析 ====================

// firstLongDigitKey 取 JSON 对象中第一个 ≥5 位纯数字键（店铺 ID 的存放位置）
// map 解析会打乱顺序，这里按文档顺序找 "数字串": 的模式
func firstLongDigitKey(blob string) string {
	for i := 0; i < len(blob); i++ {
		if blob[i] != '"' {
			continue
		}
		j := i + 1
		for j < len(blob) && blob[j] >= '0' && blob[j] <= '9' {
			j++
		}
		if j < len(blob) && blob[j] == '"' && j-i-1 >= 5 {
			k := j + 1
			for k < len(blob) && (blob[k] == ' ' || blob[k] == '\t' || blob[k] == '\n' || blob[k] == '\r') {
				k++
			}
			if k < len(blob) && blob[k] == ':' {
				return blob[i+1 : j]
			}
		}
		i = j
	}
	return ""
}
