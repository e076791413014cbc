package query

import (
	"context"
	"sort"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/corpus"
	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/storage"
	"smart-recruit-go/internal/types"
)

// RetrievalResult 一次检索的全部产出
type RetrievalResult struct {
	Plan   types.RetrievalPlan
	Chunks []types.RetrievedChunk
	// Structured 结构化遍历命中的评分结果，不参与相似度排序
	Structured []*types.MatchResult
}

// Retriever 执行检索计划：向量检索加可选的结构化遍历
type Retriever struct {
	index   *corpus.CorpusIndex
	matches storage.MatchResultStore
	cfg     config.RouterConfig
}

// NewRetriever 创建检索器，matches可为nil（此时跳过结构化遍历）
func NewRetriever(index *corpus.CorpusIndex, matches storage.MatchResultStore, cfg config.RouterConfig) *Retriever {
	return &Retriever{index: index, matches: matches, cfg: cfg}
}

// Retrieve 路由并执行检索
// 所有集合查询共用同一个查询向量，文本只向量化一次
func (r *Retriever) Retrieve(ctx context.Context, q types.Query) (*RetrievalResult, error) {
	plan, err := Route(q, r.cfg)
	if err != nil {
		return nil, err
	}

	vector, err := r.index.EmbedQuery(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	result := &RetrievalResult{Plan: plan}
	for _, cq := range plan.Collections {
		chunks, err := r.index.Query(ctx, cq.Collection, vector, cq.TopK, cq.Filter)
		if err != nil {
			return nil, err
		}
		result.Chunks = append(result.Chunks, chunks...)
	}

	// 多路结果合并后统一按相似度排序，打平时按插入序号
	sort.SliceStable(result.Chunks, func(i, j int) bool {
		if result.Chunks[i].Score != result.Chunks[j].Score {
			return result.Chunks[i].Score > result.Chunks[j].Score
		}
		return result.Chunks[i].Seq < result.Chunks[j].Seq
	})

	if plan.IncludeStructured && r.matches != nil {
		var structured []*types.MatchResult
		if plan.StructuredJobID != "" {
			structured, err = r.matches.ListMatchesByJob(ctx, plan.StructuredJobID)
		} else {
			structured, err = r.matches.ListAllMatches(ctx)
		}
		if err != nil {
			// 结构化遍历失败不阻断向量检索结果
			logger.Warn().Err(err).Msg("结构化评分遍历失败，仅返回向量检索结果")
		} else {
			result.Structured = structured
		}
	}

	logger.Debug().
		Str("mode", string(plan.Mode)).
		Int("chunks", len(result.Chunks)).
		Int("structured", len(result.Structured)).
		Msg("检索完成")

	return result, nil
}
