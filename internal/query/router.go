package query

import (
	"fmt"
	"math"
	"strings"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/types"
)

// Route 将检索请求解析为可执行的检索计划，纯函数，不触发任何外部调用
//
// 降级链：specific缺候选人ID时降为job_scoped，job_scoped缺岗位ID时
// 降为full_corpus。模式为空时按给定的ID自动推断
func Route(q types.Query, cfg config.RouterConfig) (types.RetrievalPlan, error) {
	var plan types.RetrievalPlan

	if strings.TrimSpace(q.Text) == "" {
		return plan, fmt.Errorf("%w: 检索文本为空", types.ErrInvalidQuery)
	}
	switch q.Persona {
	case "", types.PersonaRecruiter, types.PersonaCandidate:
	default:
		return plan, fmt.Errorf("%w: 未知persona '%s'", types.ErrInvalidQuery, q.Persona)
	}

	mode := q.Mode
	if mode == "" {
		switch {
		case q.CandidateID != "":
			mode = types.QuerySpecific
		case q.JobID != "":
			mode = types.QueryJobScoped
		default:
			mode = types.QueryFullCorpus
		}
	}
	switch mode {
	case types.QuerySpecific, types.QueryJobScoped, types.QueryFullCorpus:
	default:
		return plan, fmt.Errorf("%w: 未知模式 '%s'", types.ErrInvalidQuery, mode)
	}

	// 逐级降级到参数齐备的模式
	if mode == types.QuerySpecific && q.CandidateID == "" {
		mode = types.QueryJobScoped
	}
	if mode == types.QueryJobScoped && q.JobID == "" {
		mode = types.QueryFullCorpus
	}
	plan.Mode = mode

	switch mode {
	case types.QuerySpecific:
		buildSpecificPlan(&plan, q, cfg)
	case types.QueryJobScoped:
		buildJobScopedPlan(&plan, q, cfg)
	case types.QueryFullCorpus:
		buildFullCorpusPlan(&plan, q, cfg)
	}
	return plan, nil
}

// buildSpecificPlan 针对单个候选人
// 候选人分块始终从全局候选人集合按候选人ID过滤检索；
// 附带岗位ID时追加一路岗位集合内的岗位描述分块，两路按比例分配k
func buildSpecificPlan(plan *types.RetrievalPlan, q types.Query, cfg config.RouterConfig) {
	k := q.TopK
	if k <= 0 {
		k = cfg.SpecificK
	}
	candidateQuery := types.CollectionQuery{
		Collection: constants.CollectionGlobalCandidates,
		Filter:     map[string]interface{}{constants.MetaKeyCandidate: q.CandidateID},
		TopK:       k,
	}
	if q.JobID == "" {
		plan.Collections = []types.CollectionQuery{candidateQuery}
		return
	}

	candidateK := int(math.Ceil(float64(k) * cfg.CandidateShare))
	if candidateK < 1 {
		candidateK = 1
	}
	jobK := k - candidateK
	if jobK < 1 {
		jobK = 1
	}
	candidateQuery.TopK = candidateK
	plan.Collections = []types.CollectionQuery{
		candidateQuery,
		{
			Collection: constants.JobCollection(q.JobID),
			Filter:     map[string]interface{}{constants.MetaKeySourceType: constants.SourceTypeJobDescription},
			TopK:       jobK,
		},
	}
}

// buildJobScopedPlan 针对岗位及其关联候选人
// candidate口吻只能看到自己的简历和岗位描述，recruiter口吻看到全部
func buildJobScopedPlan(plan *types.RetrievalPlan, q types.Query, cfg config.RouterConfig) {
	k := clamp(q.TopK, cfg.JobScopedMinK, cfg.JobScopedMaxK)
	collection := constants.JobCollection(q.JobID)

	if q.Persona == types.PersonaCandidate && q.CandidateID != "" {
		candidateK := int(math.Ceil(float64(k) * cfg.CandidateShare))
		plan.Collections = []types.CollectionQuery{
			{
				Collection: collection,
				Filter:     map[string]interface{}{constants.MetaKeyCandidate: q.CandidateID},
				TopK:       candidateK,
			},
			{
				Collection: collection,
				Filter:     map[string]interface{}{constants.MetaKeySourceType: constants.SourceTypeJobDescription},
				TopK:       k - candidateK,
			},
		}
		return
	}

	plan.Collections = []types.CollectionQuery{
		{Collection: collection, TopK: k},
	}
}

// buildFullCorpusPlan 全库检索
// 语义检索只走全局候选人集合，岗位侧信息由结构化评分遍历补齐
func buildFullCorpusPlan(plan *types.RetrievalPlan, q types.Query, cfg config.RouterConfig) {
	k := clamp(q.TopK, cfg.FullCorpusMinK, cfg.FullCorpusMaxK)
	candidateQuery := types.CollectionQuery{
		Collection: constants.CollectionGlobalCandidates,
		TopK:       k,
	}
	if q.Persona == types.PersonaCandidate && q.CandidateID != "" {
		candidateQuery.Filter = map[string]interface{}{constants.MetaKeyCandidate: q.CandidateID}
	}
	plan.Collections = []types.CollectionQuery{candidateQuery}

	// 全库问答同时遍历结构化评分结果，覆盖"哪些候选人最匹配"这类问题；
	// 带岗位ID时结构化遍历只看该岗位
	plan.IncludeStructured = true
	plan.StructuredJobID = q.JobID
}

// clamp 将k限制在[min,max]内，0表示取下界默认值
func clamp(k, min, max int) int {
	if k <= 0 {
		return min
	}
	if k < min {
		return min
	}
	if k > max {
		return max
	}
	return k
}
