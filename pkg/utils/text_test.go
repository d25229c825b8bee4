package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==================== 测试辅助 ====================

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// ==================== 标题截断 ====================

func TestTruncateTitleShortUnchanged(t *testing.T) {
	assert.Equal(t, "Чайник электрический", TruncateTitle("Чайник электрический", 80))
}

func TestTruncateTitleOverCap(t *testing.T) {
	// 150 个西里尔字符，上限 80：保留前 77 个 rune 加 …
	long := ""
	for i := 0; i < 150; i++ {
		long += "а"
	}
	got := TruncateTitle(long, 80)
	runes := []rune(got)
	assert.Len(t, runes, 78)
	assert.Equal(t, "…", string(runes[77]))
	for _, r := range runes[:77] {
		assert.Equal(t, 'а', r)
	}
}

func TestTruncateTitleExactCap(t *testing.T) {
	s := ""
	for i := 0; i < 80; i++ {
		s += "б"
	}
	assert.Equal(t, s, TruncateTitle(s, 80))
}

// ==================== 禁用词 ====================

func TestContainsStopWordCyrillicWholeWord(t *testing.T) {
	stop := wordSet("хит", "оригинал", "sale")

	assert.True(t, ContainsStopWord("Хит продаж этого сезона", stop))
	assert.True(t, ContainsStopWord("ОРИГИНАЛ из Франции", stop))
	assert.True(t, ContainsStopWord("big SALE today", stop))

	// 整词匹配：词内包含不算命中
	assert.False(t, ContainsStopWord("хитрость и оригинальность", stop))
	assert.False(t, ContainsStopWord("wholesale price", stop))
}

func TestStripStopWordsCyrillic(t *testing.T) {
	stop := wordSet("хит", "супер", "акция")

	got := StripStopWords("Хит продаж! Супер зарядка, акция", stop)
	assert.Equal(t, "продаж! зарядка,", got)
	assert.False(t, ContainsStopWord(got, stop))
}

func TestStripStopWordsKeepsInnerMatches(t *testing.T) {
	stop := wordSet("хит")
	// 整词删除不碰包含禁用词的长词
	assert.Equal(t, "хитрый лис", StripStopWords("хитрый лис", stop))
}

func TestStripStopWordsEmptySet(t *testing.T) {
	assert.Equal(t, "как есть", StripStopWords("как есть", nil))
}

func TestStripStopWordsPreservesLines(t *testing.T) {
	stop := wordSet("sale")
	got := StripStopWords("первая строка sale\nвторая строка", stop)
	assert.Equal(t, "первая строка\nвторая строка", got)
}

// ==================== 脱敏 ====================

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abc***yz", MaskSecret("abcdefxyz"))
	assert.Equal(t, "+99***78", MaskSecret("+998901234578"))

	// 过短整体打码
	assert.Equal(t, "***", MaskSecret("abc"))
	assert.Equal(t, "***", MaskSecret("abcdef"))
	assert.Equal(t, "***", MaskSecret(""))
}
