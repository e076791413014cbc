package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/corpus"
	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/matching"
	"smart-recruit-go/internal/storage"
	"smart-recruit-go/internal/types"
)

// Pipeline 批量入库流水线：向量化、评分、写入语料索引和结构化存储
type Pipeline struct {
	index       *corpus.CorpusIndex
	scorer      *matching.Scorer
	matches     storage.MatchResultStore
	embedder    embedding.Embedder
	profiles    storage.ProfileStore
	concurrency int
}

// PipelineOption 定义Pipeline的配置选项
type PipelineOption func(*Pipeline)

// WithConcurrency 设置并发处理的候选人数
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithProfileStore 启用档案登记，记录语料库收录了哪些来源
func WithProfileStore(store storage.ProfileStore) PipelineOption {
	return func(p *Pipeline) {
		p.profiles = store
	}
}

// NewPipeline 创建入库流水线
func NewPipeline(index *corpus.CorpusIndex, scorer *matching.Scorer, matches storage.MatchResultStore, embedder embedding.Embedder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		index:       index,
		scorer:      scorer,
		matches:     matches,
		embedder:    embedder,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ItemFailure 单个候选人的处理失败记录
type ItemFailure struct {
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
}

// Summary 一次批量入库的汇总
// 单个候选人的失败不中断整批，失败明细逐项记录
type Summary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}

// IngestJob 将岗位描述写入全局岗位集合和该岗位的专属集合
// 岗位档案缺少向量时就地补全
func (p *Pipeline) IngestJob(ctx context.Context, job *types.Profile) error {
	if job == nil {
		return fmt.Errorf("岗位档案不能为空")
	}
	if err := p.ensureEmbedding(ctx, job); err != nil {
		return err
	}

	meta := map[string]interface{}{constants.MetaKeyJob: job.ID}
	chunks, err := p.index.UpsertDocument(ctx, constants.CollectionGlobalJobs, job.ID, constants.SourceTypeJobDescription, job.Name, job.RawText, meta)
	if err != nil {
		return fmt.Errorf("岗位写入全局集合失败: %w", err)
	}
	if _, err := p.index.UpsertDocument(ctx, constants.JobCollection(job.ID), job.ID, constants.SourceTypeJobDescription, job.Name, job.RawText, meta); err != nil {
		return fmt.Errorf("岗位写入专属集合失败: %w", err)
	}
	p.registerProfile(ctx, job, chunks)
	return nil
}

// IngestCandidates 并发处理一批候选人：向量化、对岗位评分、写入语料索引
// job为nil时跳过评分，只做索引
func (p *Pipeline) IngestCandidates(ctx context.Context, job *types.Profile, candidates []*types.Profile) *Summary {
	summary := &Summary{Total: len(candidates)}
	if len(candidates) == 0 {
		return summary
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, p.concurrency)
	)

	for _, candidate := range candidates {
		wg.Add(1)
		go func(candidate *types.Profile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := p.processCandidate(ctx, job, candidate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				id := ""
				if candidate != nil {
					id = candidate.ID
				}
				summary.Failures = append(summary.Failures, ItemFailure{
					CandidateID: id,
					Reason:      err.Error(),
				})
				logger.Warn().Err(err).Str("candidate_id", id).Msg("候选人入库失败")
			} else {
				summary.Succeeded++
			}
		}(candidate)
	}
	wg.Wait()

	// 失败明细按候选人ID排序，汇总结果与处理顺序无关
	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].CandidateID < summary.Failures[j].CandidateID
	})

	logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("批量入库完成")
	return summary
}

// processCandidate 单个候选人的完整处理
func (p *Pipeline) processCandidate(ctx context.Context, job, candidate *types.Profile) error {
	if candidate == nil {
		return fmt.Errorf("候选人档案为空")
	}
	if err := p.ensureEmbedding(ctx, candidate); err != nil {
		return err
	}

	// 评分失败不应阻止简历入库，先索引后评分
	meta := map[string]interface{}{constants.MetaKeyCandidate: candidate.ID}
	chunks, err := p.index.UpsertDocument(ctx, constants.CollectionGlobalCandidates, candidate.ID, constants.SourceTypeCV, candidate.Name, candidate.RawText, meta)
	if err != nil {
		return fmt.Errorf("写入全局候选人集合失败: %w", err)
	}
	p.registerProfile(ctx, candidate, chunks)

	if job == nil {
		return nil
	}

	if _, err := p.index.UpsertDocument(ctx, constants.JobCollection(job.ID), candidate.ID, constants.SourceTypeCV, candidate.Name, candidate.RawText, meta); err != nil {
		return fmt.Errorf("写入岗位集合失败: %w", err)
	}

	result, err := p.scorer.Score(ctx, candidate, job)
	if err != nil {
		return fmt.Errorf("评分失败: %w", err)
	}
	if err := p.matches.SaveMatch(ctx, result); err != nil {
		return fmt.Errorf("保存评分结果失败: %w", err)
	}
	return nil
}

// registerProfile 档案登记是辅助簿记，失败只记日志不影响入库
func (p *Pipeline) registerProfile(ctx context.Context, profile *types.Profile, chunkCount int) {
	if p.profiles == nil {
		return
	}
	if err := p.profiles.SaveProfile(ctx, profile, chunkCount); err != nil {
		logger.Warn().Err(err).Str("source_id", profile.ID).Msg("档案登记失败")
	}
}

// ensureEmbedding 为缺少向量的档案补全全文向量
func (p *Pipeline) ensureEmbedding(ctx context.Context, profile *types.Profile) error {
	if profile.HasEmbedding() {
		return nil
	}
	vectors, err := p.embedder.EmbedStrings(ctx, []string{profile.RawText})
	if err != nil {
		return fmt.Errorf("档案向量化失败: %w", err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("档案向量化返回空结果")
	}
	profile.Embedding = vectors[0]
	return nil
}
