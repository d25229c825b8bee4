package utils

import (
	"strings"
	"unicode"
)

// ==================== 标题截断 ====================

// TruncateTitle 将标题截断到市场标题上限
// 超长时保留前 cap-3 个字符并以 … 结尾（与市场端展示规则一致）
func TruncateTitle(title string, cap int) string {
	runes := []rune(title)
	if len(runes) <= cap {
		return title
	}
	if cap <= 3 {
		return string(runes[:cap])
	}
	return string(runes[:cap-3]) + "…"
}

// ==================== 禁用词处理 ====================

// isWordRune 判断是否属于词内字符（拉丁/西里尔字母、数字均算）
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ContainsStopWord 检查文本是否包含任一整词禁用词（大小写不敏感）
// 注意不能用正则 \b：RE2 的 \b 只认 ASCII 词字符，西里尔词会漏判
func ContainsStopWord(text string, stopWords map[string]struct{}) bool {
	for _, tok := range splitWords(text) {
		if _, ok := stopWords[strings.ToLower(tok)]; ok {
			return true
		}
	}
	return false
}

// StripStopWords 删除文本中的整词禁用词并压缩多余空白
func StripStopWords(text string, stopWords map[string]struct{}) string {
	if len(stopWords) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		if _, banned := stopWords[strings.ToLower(string(word))]; !banned {
			b.WriteString(string(word))
		}
		word = word[:0]
	}

	for _, r := range text {
		if isWordRune(r) {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()

	return collapseSpaces(b.String())
}

// splitWords 按词切分文本
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
}

// collapseSpaces 压缩连续空格并修剪首尾
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	// 逐行修剪空格，保留换行结构
	lines := strings.Split(b.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ==================== 脱敏 ====================

// MaskSecret 固定格式脱敏：前 3 位 + *** + 后 2 位
// 过短的值直接整体打码，避免泄露
func MaskSecret(s string) string {
	runes := []rune(s)
	if len(runes) <= 6 {
		return "***"
	}
	return string(runes[:3]) + "***" + string(runes[len(runes)-2:])
}
