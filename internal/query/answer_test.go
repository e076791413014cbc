package query

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/chunker"
	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/corpus"
	"smart-recruit-go/internal/storage"
	"smart-recruit-go/internal/types"
)

// fixedEmbedder 基于字符统计生成确定性三维向量
type fixedEmbedder struct{}

func (fixedEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		var a, b, c float64
		for j, r := range t {
			switch j % 3 {
			case 0:
				a += float64(r)
			case 1:
				b += float64(r)
			case 2:
				c += float64(r)
			}
		}
		out[i] = []float64{a + 1, b + 1, c + 1}
	}
	return out, nil
}

// echoGenerator 返回收到的用户消息，便于断言上下文内容
type echoGenerator struct {
	lastSystem string
	calls      int
}

func (g *echoGenerator) Generate(_ context.Context, systemPrompt, userMessage string) (string, error) {
	g.calls++
	g.lastSystem = systemPrompt
	return userMessage, nil
}

func newTestService(t *testing.T) (*AnswerService, *corpus.CorpusIndex, *storage.MemoryMatchStore, *echoGenerator) {
	t.Helper()
	cfg := config.DefaultConfig()
	idx := corpus.NewCorpusIndex(corpus.NewMemoryVectorStore(), fixedEmbedder{}, chunker.NewChunker(cfg.Chunking), 3)
	matches := storage.NewMemoryMatchStore()
	gen := &echoGenerator{}
	svc := NewAnswerService(
		NewRetriever(idx, matches, cfg.Router),
		NewAssembler(cfg.Assembler),
		gen,
	)
	return svc, idx, matches, gen
}

func TestAskEmptyCorpus(t *testing.T) {
	svc, _, _, gen := newTestService(t)

	ans, err := svc.Ask(context.Background(), types.Query{Text: "有哪些候选人"})
	require.NoError(t, err)

	assert.False(t, ans.Grounded)
	assert.Contains(t, ans.Text, "没有任何可检索的内容")
	// 空语料不调用大模型
	assert.Equal(t, 0, gen.calls)
}

func TestAskFullCorpus(t *testing.T) {
	svc, idx, matches, _ := newTestService(t)
	ctx := context.Background()

	_, err := idx.UpsertDocument(ctx, constants.CollectionGlobalCandidates, "c1", constants.SourceTypeCV, "张三",
		"张三，五年Go后端开发经验", map[string]interface{}{constants.MetaKeyCandidate: "c1"})
	require.NoError(t, err)
	require.NoError(t, matches.SaveMatch(ctx, &types.MatchResult{
		CandidateID: "c1", JobID: "j1", TotalScore: 81, Grade: "B",
	}))

	ans, err := svc.Ask(ctx, types.Query{Text: "有哪些掌握Go的候选人"})
	require.NoError(t, err)

	assert.True(t, ans.Grounded)
	assert.Equal(t, types.QueryFullCorpus, ans.Mode)
	// 上下文包含向量检索分块和结构化评分事实
	assert.Contains(t, ans.Text, "张三")
	assert.Contains(t, ans.Text, "总分81(B)")
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "张三", ans.Sources[0].Name)
}

func TestAskPersonaPrompts(t *testing.T) {
	svc, idx, _, gen := newTestService(t)
	ctx := context.Background()

	_, err := idx.UpsertDocument(ctx, constants.CollectionGlobalCandidates, "c1", constants.SourceTypeCV, "张三",
		"张三的简历", map[string]interface{}{constants.MetaKeyCandidate: "c1"})
	require.NoError(t, err)

	_, err = svc.Ask(ctx, types.Query{Text: "问题", Persona: types.PersonaRecruiter})
	require.NoError(t, err)
	assert.Contains(t, gen.lastSystem, "招聘助理")

	_, err = svc.Ask(ctx, types.Query{Text: "我要怎么改进", CandidateID: "c1", Persona: types.PersonaCandidate})
	require.NoError(t, err)
	assert.Contains(t, gen.lastSystem, "职业发展顾问")
}

func TestAskInvalidQuery(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Ask(context.Background(), types.Query{Text: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidQuery)
}

func TestRetrieveFullCorpusStructuredScopedToJob(t *testing.T) {
	cfg := config.DefaultConfig()
	idx := corpus.NewCorpusIndex(corpus.NewMemoryVectorStore(), fixedEmbedder{}, chunker.NewChunker(cfg.Chunking), 3)
	matches := storage.NewMemoryMatchStore()
	r := NewRetriever(idx, matches, cfg.Router)
	ctx := context.Background()

	require.NoError(t, matches.SaveMatch(ctx, &types.MatchResult{
		CandidateID: "c1", JobID: "j1", TotalScore: 81, Grade: "B",
	}))
	require.NoError(t, matches.SaveMatch(ctx, &types.MatchResult{
		CandidateID: "c1", JobID: "j2", TotalScore: 70, Grade: "C",
	}))

	// 带岗位ID的全库问答只遍历该岗位的评分结果
	result, err := r.Retrieve(ctx, types.Query{
		Text: "这个岗位的候选人整体表现如何", Mode: types.QueryFullCorpus, JobID: "j1",
	})
	require.NoError(t, err)

	require.Len(t, result.Structured, 1)
	assert.Equal(t, "j1", result.Structured[0].JobID)
}

func TestRetrieveSpecificFallsBackWhenScoped(t *testing.T) {
	cfg := config.DefaultConfig()
	idx := corpus.NewCorpusIndex(corpus.NewMemoryVectorStore(), fixedEmbedder{}, chunker.NewChunker(cfg.Chunking), 3)
	r := NewRetriever(idx, storage.NewMemoryMatchStore(), cfg.Router)
	ctx := context.Background()

	_, err := idx.UpsertDocument(ctx, constants.JobCollection("j1"), "jd-1", constants.SourceTypeJobDescription, "后端开发",
		"岗位要求五年Go经验", map[string]interface{}{constants.MetaKeyJob: "j1"})
	require.NoError(t, err)

	result, err := r.Retrieve(ctx, types.Query{Text: "岗位要求什么", Mode: types.QuerySpecific, JobID: "j1"})
	require.NoError(t, err)

	// specific缺候选人ID，降级为job_scoped后仍能命中岗位集合
	assert.Equal(t, types.QueryJobScoped, result.Plan.Mode)
	require.NotEmpty(t, result.Chunks)
	assert.Contains(t, result.Chunks[0].Text, "岗位要求")
}
