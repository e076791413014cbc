package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/types"
)

// mockEmbedder 按预置表返回技能向量
type mockEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   int
}

func (m *mockEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float64{0, 0, 1}
		}
	}
	return out, nil
}

// mockSkillCache 简单的内存缓存实现
type mockSkillCache struct {
	store map[string][]float64
	hits  int
}

func (c *mockSkillCache) GetSkillEmbedding(_ context.Context, skill string) ([]float64, bool, error) {
	v, ok := c.store[skill]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mockSkillCache) SetSkillEmbedding(_ context.Context, skill string, vec []float64) error {
	c.store[skill] = vec
	return nil
}

func matchCfg() config.MatchingConfig {
	return config.DefaultConfig().Matching
}

func TestMatchExactTier(t *testing.T) {
	m := NewSkillMatcher(nil, matchCfg())

	out, err := m.Match(context.Background(), []string{"Python", "react.js"}, []string{"PYTHON", "ReactJS"})
	require.NoError(t, err)

	require.Len(t, out.Details, 2)
	assert.Equal(t, types.MatchExact, out.Details[0].Method)
	assert.Equal(t, "Python", out.Details[0].MatchedSkill)
	assert.Equal(t, 1.0, out.Details[0].Confidence)

	// "ReactJS"和"react.js"归一化后同为"reactjs"
	assert.Equal(t, types.MatchExact, out.Details[1].Method)

	assert.Equal(t, []string{"PYTHON", "ReactJS"}, out.Matched)
	assert.Empty(t, out.Missing)
}

func TestMatchFuzzyTier(t *testing.T) {
	m := NewSkillMatcher(nil, matchCfg())

	// "kubernets"与"kubernetes"编辑距离1，相似比0.9，超过0.85阈值
	out, err := m.Match(context.Background(), []string{"Kubernets"}, []string{"Kubernetes"})
	require.NoError(t, err)

	require.Len(t, out.Details, 1)
	assert.Equal(t, types.MatchFuzzy, out.Details[0].Method)
	assert.Equal(t, "Kubernets", out.Details[0].MatchedSkill)
	assert.InDelta(t, 0.9, out.Details[0].Confidence, 1e-9)
}

func TestMatchFuzzyTokenOrderInsensitive(t *testing.T) {
	m := NewSkillMatcher(nil, matchCfg())

	out, err := m.Match(context.Background(), []string{"learning machine"}, []string{"machine learning"})
	require.NoError(t, err)
	assert.Equal(t, types.MatchFuzzy, out.Details[0].Method)
	assert.Equal(t, 1.0, out.Details[0].Confidence)
}

func TestMatchSemanticTier(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float64{
		"golang": {1, 0, 0},
		"go":     {0.95, 0.1, 0},
	}}
	m := NewSkillMatcher(emb, matchCfg())

	out, err := m.Match(context.Background(), []string{"Go"}, []string{"Golang"})
	require.NoError(t, err)

	require.Len(t, out.Details, 1)
	assert.Equal(t, types.MatchSemantic, out.Details[0].Method)
	assert.Equal(t, "Go", out.Details[0].MatchedSkill)
	assert.GreaterOrEqual(t, out.Details[0].Confidence, 0.75)
}

func TestMatchSemanticBelowThreshold(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float64{
		"painting": {1, 0, 0},
		"go":       {0, 1, 0},
	}}
	m := NewSkillMatcher(emb, matchCfg())

	out, err := m.Match(context.Background(), []string{"Go"}, []string{"Painting"})
	require.NoError(t, err)
	assert.Equal(t, types.MatchNone, out.Details[0].Method)
	assert.Equal(t, []string{"Painting"}, out.Missing)
}

func TestMatchSkipsSemanticWhenEarlierTierHits(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float64{}}
	m := NewSkillMatcher(emb, matchCfg())

	out, err := m.Match(context.Background(), []string{"Python"}, []string{"Python"})
	require.NoError(t, err)
	assert.Equal(t, types.MatchExact, out.Details[0].Method)
	// 所有要求技能均已在前两层命中时不应调用Embedding服务
	assert.Equal(t, 0, emb.calls)
}

func TestMatchPropagatesEmbedderError(t *testing.T) {
	emb := &mockEmbedder{err: errors.New("dashscope超时")}
	m := NewSkillMatcher(emb, matchCfg())

	_, err := m.Match(context.Background(), []string{"Go"}, []string{"Golang"})
	require.Error(t, err)
}

func TestMatchUsesEmbeddingCache(t *testing.T) {
	cache := &mockSkillCache{store: map[string][]float64{
		"golang": {1, 0, 0},
		"go":     {0.95, 0.1, 0},
	}}
	emb := &mockEmbedder{vectors: map[string][]float64{}}
	m := NewSkillMatcher(emb, matchCfg(), WithEmbeddingCache(cache))

	out, err := m.Match(context.Background(), []string{"Go"}, []string{"Golang"})
	require.NoError(t, err)

	assert.Equal(t, types.MatchSemantic, out.Details[0].Method)
	// 全部命中缓存，不应触发外部调用
	assert.Equal(t, 0, emb.calls)
	assert.Equal(t, 2, cache.hits)
}

func TestMatchNoRequiredSkills(t *testing.T) {
	m := NewSkillMatcher(nil, matchCfg())
	out, err := m.Match(context.Background(), []string{"Python"}, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Details)
	assert.Empty(t, out.Matched)
	assert.Empty(t, out.Missing)
}
