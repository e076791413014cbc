package chunker

import (
	"strings"
	"unicode"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/types"
)

// Chunker 将原始文档切分为带重叠的连续分块
// 切分是纯函数：同样的输入文本必然产出同样的分块序列
type Chunker struct {
	maxChars int
	overlap  int
	lookBack int
}

// NewChunker 创建分块器
func NewChunker(cfg config.ChunkingConfig) *Chunker {
	return &Chunker{
		maxChars: cfg.MaxChars,
		overlap:  cfg.OverlapChars,
		lookBack: cfg.LookBack,
	}
}

// Split 切分文本并为每块附加来源元数据
// 块边界优先落在空白处：窗口末尾向前回溯lookBack个字符寻找空白，
// 找不到则硬切。相邻块严格重叠overlap个字符，块文本是原文的逐字片段，
// 去掉重叠前缀后依次拼接可精确还原原文
func (c *Chunker) Split(sourceID, sourceType, name, text string) []types.DocumentChunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	var chunks []types.DocumentChunk

	start := 0
	for start < len(runes) {
		end := start + c.maxChars
		if end >= len(runes) {
			end = len(runes)
		} else {
			// 在[end-lookBack, end)内寻找最后一个空白作为断点
			cut := -1
			low := end - c.lookBack
			if low < start+1 {
				low = start + 1
			}
			for i := end - 1; i >= low; i-- {
				if unicode.IsSpace(runes[i]) {
					cut = i
					break
				}
			}
			if cut > start {
				end = cut
			}
		}

		chunks = append(chunks, types.DocumentChunk{
			SourceID:   sourceID,
			SourceType: sourceType,
			Index:      len(chunks),
			Text:       string(runes[start:end]),
			Metadata: map[string]interface{}{
				constants.MetaKeySourceID:   sourceID,
				constants.MetaKeySourceType: sourceType,
				constants.MetaKeyChunkIndex: len(chunks),
				constants.MetaKeyName:       name,
			},
		})

		if end >= len(runes) {
			break
		}
		next := end - c.overlap
		// 防止窗口不前进
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}
