package utils

import (
	"fmt"
	"strings"
)

// ==================== LLM 输出 JSON 提取 ====================

// ExtractJSON 从可能混有叙述文字的模型输出中提取第一个配对完整的
// {...} 或 [...] 片段。模型偶尔会在 JSON 外包裹 markdown 或说明文字，
// 直接 Unmarshal 会失败，必须防御性提取。
func ExtractJSON(raw string) (string, error) {
	// 先剥掉常见的 markdown 代码块包装
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := -1
	var open, close rune
	for i, r := range s {
		if r == '{' || r == '[' {
			start = i
			open = r
			if r == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("输出中不包含 JSON 结构: %.120s", raw)
	}

	depth := 0
	inString := false
	escaped := false
	for i, r := range s[start:] {
		if escaped {
			escaped = false
			continue
		}
		switch {
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
			// 字符串内部的括号不参与配对
		case r == open:
			depth++
		case r == close:
			depth--
			if depth == 0 {
				return s[start : start+i+1], nil
			}
		}
	}

	return "", fmt.Errorf("JSON 括号未闭合: %.120s", raw)
}
