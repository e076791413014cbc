package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/config"
)

func newTestChunker() *Chunker {
	return NewChunker(config.DefaultConfig().Chunking)
}

func TestSplitShortText(t *testing.T) {
	c := newTestChunker()

	chunks := c.Split("cv-1", "cv", "张三", "短文本不需要切分")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "短文本不需要切分", chunks[0].Text)
	assert.Equal(t, "cv-1", chunks[0].Metadata["source_id"])
	assert.Equal(t, "cv", chunks[0].Metadata["source_type"])
	assert.Equal(t, "张三", chunks[0].Metadata["name"])
}

func TestSplitEmptyText(t *testing.T) {
	c := newTestChunker()
	assert.Nil(t, c.Split("cv-1", "cv", "x", ""))
	assert.Nil(t, c.Split("cv-1", "cv", "x", "   \n  "))
}

func TestSplitLongTextProperties(t *testing.T) {
	c := newTestChunker()

	// 生成带空白的长文本
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString("word")
		b.WriteByte(' ')
	}
	text := strings.TrimSpace(b.String())

	chunks := c.Split("cv-1", "cv", "x", text)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		// 下标连续递增
		assert.Equal(t, i, ch.Index)
		// 单块不超过上限
		assert.LessOrEqual(t, len([]rune(ch.Text)), 500)
		assert.NotEmpty(t, ch.Text)
	}
}

func TestSplitBreaksOnWhitespace(t *testing.T) {
	c := newTestChunker()

	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("alpha ")
	}
	chunks := c.Split("cv-1", "cv", "x", strings.TrimSpace(b.String()))
	require.Greater(t, len(chunks), 1)

	// 有空白可用时不应从单词中间硬切
	for _, ch := range chunks {
		assert.False(t, strings.HasSuffix(ch.Text, "alph"), "块尾不应是被切断的单词: %q", ch.Text)
	}
}

func TestSplitHardCutWithoutWhitespace(t *testing.T) {
	c := newTestChunker()

	text := strings.Repeat("a", 1200)
	chunks := c.Split("cv-1", "cv", "x", text)
	require.Greater(t, len(chunks), 1)

	// 无空白时硬切，窗口仍然前进且覆盖全文
	total := 0
	for _, ch := range chunks {
		total += len(ch.Text)
	}
	assert.GreaterOrEqual(t, total, 1200)
}

func TestSplitReconstructsOriginalText(t *testing.T) {
	c := NewChunker(config.ChunkingConfig{MaxChars: 100, OverlapChars: 10, LookBack: 10})

	// 不规则空白（含连续空格）必须原样保留在块内
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString(strings.Repeat("简历", 2+i%5))
		b.WriteString(strings.Repeat(" ", 1+i%3))
	}
	text := b.String()

	chunks := c.Split("cv-1", "cv", "x", text)
	require.Greater(t, len(chunks), 1)

	// 去掉每块的重叠前缀后依次拼接，应逐字还原原文
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for _, ch := range chunks[1:] {
		rebuilt.WriteString(string([]rune(ch.Text)[10:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitDeterministic(t *testing.T) {
	c := newTestChunker()

	var b strings.Builder
	for i := 0; i < 250; i++ {
		b.WriteString("工作经历 项目经验 ")
	}
	text := b.String()

	first := c.Split("cv-1", "cv", "x", text)
	second := c.Split("cv-1", "cv", "x", text)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].Index, second[i].Index)
	}
}
