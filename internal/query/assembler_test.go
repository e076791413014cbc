package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/types"
)

func cvChunk(text, name string, score float64, seq int) types.RetrievedChunk {
	return types.RetrievedChunk{
		Text:  text,
		Score: score,
		Seq:   seq,
		Metadata: map[string]interface{}{
			constants.MetaKeySourceType: constants.SourceTypeCV,
			constants.MetaKeyName:       name,
		},
	}
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler(config.DefaultConfig().Assembler)

	out := a.Assemble(&RetrievalResult{})
	assert.True(t, out.Empty)
	assert.Empty(t, out.Text)

	out = a.Assemble(nil)
	assert.True(t, out.Empty)
}

func TestAssembleChunksAndSources(t *testing.T) {
	a := NewAssembler(config.DefaultConfig().Assembler)

	result := &RetrievalResult{
		Chunks: []types.RetrievedChunk{
			cvChunk("张三的Go经验", "张三", 0.9, 1),
			cvChunk("张三的项目经历", "张三", 0.8, 2),
			cvChunk("李四的前端经验", "李四", 0.7, 3),
			{
				Text:  "岗位要求五年经验",
				Score: 0.6,
				Seq:   4,
				Metadata: map[string]interface{}{
					constants.MetaKeySourceType: constants.SourceTypeJobDescription,
					constants.MetaKeyName:       "后端开发",
				},
			},
		},
	}

	out := a.Assemble(result)
	assert.False(t, out.Empty)
	assert.False(t, out.Truncated)
	assert.Contains(t, out.Text, "张三的Go经验")
	assert.Contains(t, out.Text, "岗位要求五年经验")

	// 来源按(name,type)去重且保持首次出现顺序
	require.Len(t, out.Sources, 3)
	assert.Equal(t, types.SourceRef{Name: "张三", Type: constants.SourceTypeCV}, out.Sources[0])
	assert.Equal(t, types.SourceRef{Name: "李四", Type: constants.SourceTypeCV}, out.Sources[1])
	assert.Equal(t, types.SourceRef{Name: "后端开发", Type: constants.SourceTypeJobDescription}, out.Sources[2])
}

func TestAssembleRespectsBudget(t *testing.T) {
	// 预算100 token * 4字符 = 400字符
	a := NewAssembler(config.AssemblerConfig{TokenBudget: 100, CharsPerToken: 4})

	result := &RetrievalResult{}
	for i := 0; i < 10; i++ {
		result.Chunks = append(result.Chunks, cvChunk(strings.Repeat("x", 150), "某人", 0.9, i))
	}

	out := a.Assemble(result)
	assert.True(t, out.Truncated)
	assert.LessOrEqual(t, len(out.Text), 400)
	// 预算内至少放入两块
	assert.Equal(t, 2, strings.Count(out.Text, strings.Repeat("x", 150)))
}

func TestAssembleStructuredFirst(t *testing.T) {
	a := NewAssembler(config.DefaultConfig().Assembler)

	result := &RetrievalResult{
		Chunks: []types.RetrievedChunk{cvChunk("简历分块", "张三", 0.9, 1)},
		Structured: []*types.MatchResult{
			{
				CandidateID: "c1", JobID: "j1", TotalScore: 81, Grade: "B",
				MatchedSkills: []string{"Python"}, MissingSkills: []string{"AWS"},
			},
		},
	}

	out := a.Assemble(result)
	assert.Contains(t, out.Text, "总分81(B)")
	assert.Contains(t, out.Text, "缺失技能: AWS")
	// 结构化事实排在分块之前
	assert.Less(t, strings.Index(out.Text, "总分81"), strings.Index(out.Text, "简历分块"))
}
