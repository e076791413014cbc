package matching

import (
	"context"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/cloudwego/eino/components/embedding"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/types"
)

// EmbeddingCache 技能向量缓存接口，由Redis实现
// 缓存未命中不是错误，返回found=false即可
type EmbeddingCache interface {
	GetSkillEmbedding(ctx context.Context, skill string) (vec []float64, found bool, err error)
	SetSkillEmbedding(ctx context.Context, skill string, vec []float64) error
}

// SkillMatcher 按精确、模糊、语义三层逐级匹配岗位要求技能
// 每个要求技能只命中一次，且只记录首个命中层级
type SkillMatcher struct {
	embedder embedding.Embedder
	cache    EmbeddingCache
	cfg      config.MatchingConfig
}

// SkillMatcherOption 定义SkillMatcher的配置选项
type SkillMatcherOption func(*SkillMatcher)

// WithEmbeddingCache 设置技能向量缓存（可选）
func WithEmbeddingCache(cache EmbeddingCache) SkillMatcherOption {
	return func(m *SkillMatcher) {
		m.cache = cache
	}
}

// NewSkillMatcher 创建技能匹配器
// embedder为nil时语义层被跳过，只做精确和模糊匹配
func NewSkillMatcher(embedder embedding.Embedder, cfg config.MatchingConfig, opts ...SkillMatcherOption) *SkillMatcher {
	m := &SkillMatcher{
		embedder: embedder,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SkillMatchOutcome 一次技能匹配的汇总结果
type SkillMatchOutcome struct {
	Details []types.SkillMatchDetail
	// Matched/Missing 保留要求技能的原始写法和顺序
	Matched []string
	Missing []string
}

// Match 对每个岗位要求技能执行三层级联匹配
// 候选人技能一旦被某个要求技能命中，仍可被后续要求技能再次命中（技能可复用）
func (m *SkillMatcher) Match(ctx context.Context, candidateSkills, requiredSkills []string) (*SkillMatchOutcome, error) {
	outcome := &SkillMatchOutcome{
		Details: make([]types.SkillMatchDetail, 0, len(requiredSkills)),
	}
	if len(requiredSkills) == 0 {
		return outcome, nil
	}

	candNorms := make([]string, len(candidateSkills))
	for i, s := range candidateSkills {
		candNorms[i] = NormalizeSkill(s)
	}

	// 需要进入语义层的要求技能下标
	var semanticPending []int

	for _, req := range requiredSkills {
		reqNorm := NormalizeSkill(req)
		detail := types.SkillMatchDetail{RequiredSkill: req, Method: types.MatchNone}

		// 第一层：归一化后精确相等
		for i, cn := range candNorms {
			if cn == reqNorm {
				detail.Method = types.MatchExact
				detail.MatchedSkill = candidateSkills[i]
				detail.Confidence = 1.0
				break
			}
		}

		// 第二层：token排序后的编辑距离相似比
		if detail.Method == types.MatchNone {
			bestRatio := 0.0
			bestIdx := -1
			for i, cn := range candNorms {
				r := tokenSortRatio(reqNorm, cn)
				if r > bestRatio {
					bestRatio = r
					bestIdx = i
				}
			}
			if bestIdx >= 0 && bestRatio >= m.cfg.FuzzyThreshold {
				detail.Method = types.MatchFuzzy
				detail.MatchedSkill = candidateSkills[bestIdx]
				detail.Confidence = bestRatio
			}
		}

		outcome.Details = append(outcome.Details, detail)
		if detail.Method == types.MatchNone {
			semanticPending = append(semanticPending, len(outcome.Details)-1)
		}
	}

	// 第三层：语义相似度，只对前两层未命中的要求技能执行
	if len(semanticPending) > 0 && m.embedder != nil && len(candidateSkills) > 0 {
		if err := m.semanticPass(ctx, candidateSkills, candNorms, outcome, semanticPending); err != nil {
			return nil, err
		}
	}

	for _, d := range outcome.Details {
		if d.Method != types.MatchNone {
			outcome.Matched = append(outcome.Matched, d.RequiredSkill)
		} else {
			outcome.Missing = append(outcome.Missing, d.RequiredSkill)
		}
	}
	return outcome, nil
}

// semanticPass 批量获取向量并对pending的要求技能做余弦匹配
func (m *SkillMatcher) semanticPass(ctx context.Context, candidateSkills, candNorms []string, outcome *SkillMatchOutcome, pending []int) error {
	// 收集需要向量的全部技能文本（去重后的归一化形式）
	need := make([]string, 0, len(pending)+len(candNorms))
	seen := make(map[string]struct{})
	add := func(norm string) {
		if norm == "" {
			return
		}
		if _, ok := seen[norm]; ok {
			return
		}
		seen[norm] = struct{}{}
		need = append(need, norm)
	}
	for _, idx := range pending {
		add(NormalizeSkill(outcome.Details[idx].RequiredSkill))
	}
	for _, cn := range candNorms {
		add(cn)
	}

	vectors, err := m.embedSkills(ctx, need)
	if err != nil {
		return err
	}

	for _, idx := range pending {
		reqNorm := NormalizeSkill(outcome.Details[idx].RequiredSkill)
		reqVec, ok := vectors[reqNorm]
		if !ok {
			continue
		}
		bestSim := 0.0
		bestIdx := -1
		for i, cn := range candNorms {
			cv, ok := vectors[cn]
			if !ok {
				continue
			}
			sim := CosineSimilarity(reqVec, cv)
			if sim > bestSim {
				bestSim = sim
				bestIdx = i
			}
		}
		if bestIdx >= 0 && bestSim >= m.cfg.SemanticThreshold {
			outcome.Details[idx].Method = types.MatchSemantic
			outcome.Details[idx].MatchedSkill = candidateSkills[bestIdx]
			outcome.Details[idx].Confidence = bestSim
		}
	}
	return nil
}

// embedSkills 获取技能向量，优先走缓存，未命中的批量调用Embedding服务
func (m *SkillMatcher) embedSkills(ctx context.Context, skills []string) (map[string][]float64, error) {
	vectors := make(map[string][]float64, len(skills))
	var misses []string

	if m.cache != nil {
		for _, s := range skills {
			vec, found, err := m.cache.GetSkillEmbedding(ctx, s)
			if err != nil {
				// 缓存故障降级为直接调用，不阻断匹配
				logger.Warn().Err(err).Str("skill", s).Msg("技能向量缓存读取失败，降级为直接调用Embedding服务")
				misses = append(misses, s)
				continue
			}
			if found {
				vectors[s] = vec
			} else {
				misses = append(misses, s)
			}
		}
	} else {
		misses = skills
	}

	if len(misses) == 0 {
		return vectors, nil
	}

	embedded, err := m.embedder.EmbedStrings(ctx, misses)
	if err != nil {
		return nil, err
	}
	for i, s := range misses {
		if i >= len(embedded) {
			break
		}
		vectors[s] = embedded[i]
		if m.cache != nil {
			if cerr := m.cache.SetSkillEmbedding(ctx, s, embedded[i]); cerr != nil {
				logger.Warn().Err(cerr).Str("skill", s).Msg("技能向量写入缓存失败")
			}
		}
	}
	return vectors, nil
}

// tokenSortRatio 将两个归一化技能名按token排序后拼接，计算编辑距离相似比
// "js react"与"react js"视为完全相同
func tokenSortRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	sa := sortTokens(a)
	sb := sortTokens(b)
	if sa == sb {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(sa, sb)
	maxLen := len([]rune(sa))
	if l := len([]rune(sb)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
