package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/types"
)

// Scorer 计算候选人与岗位的加权匹配评分
type Scorer struct {
	matcher *SkillMatcher
	cfg     config.MatchingConfig
}

// NewScorer 创建评分器
func NewScorer(matcher *SkillMatcher, cfg config.MatchingConfig) *Scorer {
	return &Scorer{matcher: matcher, cfg: cfg}
}

// Score 对一对候选人/岗位档案评分
// 任一档案缺少向量时返回ErrIncompleteProfile，不做部分评分
func (s *Scorer) Score(ctx context.Context, candidate, job *types.Profile) (*types.MatchResult, error) {
	if candidate == nil || job == nil {
		return nil, types.NewIncompleteProfileError("", "", "候选人或岗位档案为nil")
	}
	if !candidate.HasEmbedding() {
		return nil, types.NewIncompleteProfileError(candidate.ID, job.ID, "候选人档案缺少向量")
	}
	if !job.HasEmbedding() {
		return nil, types.NewIncompleteProfileError(candidate.ID, job.ID, "岗位档案缺少向量")
	}
	if len(candidate.Embedding) != len(job.Embedding) {
		return nil, &types.ScoringError{
			CandidateID: candidate.ID,
			JobID:       job.ID,
			Op:          "score",
			BaseErr:     types.ErrDimensionMismatch,
			Detail:      fmt.Sprintf("候选人%d维，岗位%d维", len(candidate.Embedding), len(job.Embedding)),
		}
	}

	result := &types.MatchResult{
		CandidateID: candidate.ID,
		JobID:       job.ID,
	}

	// 语义分量：全文向量余弦相似度，负值截断为0
	sim := CosineSimilarity(candidate.Embedding, job.Embedding)
	if sim < 0 {
		sim = 0
	}
	result.SemanticScore = sim * 100

	// 技能分量：命中要求技能的比例
	outcome, err := s.matcher.Match(ctx, candidate.Skills, job.Skills)
	if err != nil {
		return nil, &types.ScoringError{
			CandidateID: candidate.ID,
			JobID:       job.ID,
			Op:          "skill_match",
			BaseErr:     err,
		}
	}
	result.SkillDetails = outcome.Details
	result.MatchedSkills = outcome.Matched
	result.MissingSkills = outcome.Missing
	if len(job.Skills) == 0 {
		// 岗位未列出要求技能时，技能分量不参与加权而非记0分
		result.SkillsExcluded = true
	} else {
		result.SkillScore = float64(len(outcome.Matched)) / float64(len(job.Skills)) * 100
	}

	result.ExperienceScore = s.experienceScore(candidate.ExperienceYears, job.ExperienceYears)
	result.EducationScore = s.educationScore(candidate.EducationLevel, job.EducationLevel)

	result.TotalScore = s.totalScore(result)
	result.Grade = s.grade(float64(result.TotalScore))

	s.buildNarrative(result, candidate, job)

	logger.Debug().
		Str("candidate_id", candidate.ID).
		Str("job_id", job.ID).
		Int("total", result.TotalScore).
		Str("grade", result.Grade).
		Float64("semantic", result.SemanticScore).
		Float64("skills", result.SkillScore).
		Msg("评分完成")

	return result, nil
}

// experienceScore 经验分量
// 岗位未要求年限时满分；满足要求满分；不足时按比例线性给分
func (s *Scorer) experienceScore(candidateYears, requiredYears float64) float64 {
	if requiredYears <= 0 {
		return 100
	}
	if candidateYears >= requiredYears {
		return 100
	}
	if candidateYears <= 0 {
		return 0
	}
	return candidateYears / requiredYears * 100
}

// educationScore 学历分量
// 任一侧学历未知（含岗位未填写要求）给中间分，不惩罚到底也不给满分
func (s *Scorer) educationScore(candidateLevel, requiredLevel string) float64 {
	reqRank, reqOK := s.cfg.EducationRanks[requiredLevel]
	candRank, candOK := s.cfg.EducationRanks[candidateLevel]
	if !reqOK || !candOK {
		return s.cfg.EducationUnknownScore
	}
	switch {
	case candRank >= reqRank:
		return 100
	case reqRank-candRank == 1:
		return s.cfg.EducationOneBelowScore
	default:
		return s.cfg.EducationFarBelowScore
	}
}

// totalScore 加权总分，技能分量被排除时其余权重等比放大
func (s *Scorer) totalScore(r *types.MatchResult) int {
	wSem := s.cfg.SemanticWeight
	wSkill := s.cfg.SkillWeight
	wExp := s.cfg.ExperienceWeight
	wEdu := s.cfg.EducationWeight

	var total float64
	if r.SkillsExcluded {
		rest := wSem + wExp + wEdu
		if rest <= 0 {
			return 0
		}
		total = (r.SemanticScore*wSem + r.ExperienceScore*wExp + r.EducationScore*wEdu) / rest
	} else {
		total = r.SemanticScore*wSem + r.SkillScore*wSkill + r.ExperienceScore*wExp + r.EducationScore*wEdu
	}

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return int(math.Round(total))
}

// grade 按配置的等级边界表从高到低取首个满足的等级
func (s *Scorer) grade(total float64) string {
	bands := make([]config.GradeBand, len(s.cfg.GradeBands))
	copy(bands, s.cfg.GradeBands)
	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].MinScore > bands[j].MinScore
	})
	for _, b := range bands {
		if total >= b.MinScore {
			return b.Grade
		}
	}
	return bands[len(bands)-1].Grade
}

// buildNarrative 选取确定性的叙述事实
// 只做事实选取，不生成自由文本，同样的输入必然产出同样的列表
func (s *Scorer) buildNarrative(r *types.MatchResult, candidate, job *types.Profile) {
	topN := s.cfg.NarrativeTopN
	if topN <= 0 {
		topN = 3
	}

	if r.SemanticScore >= s.cfg.StrongComponentThreshold {
		r.Strengths = append(r.Strengths, "整体背景与岗位描述高度契合")
	}
	if len(r.MatchedSkills) > 0 {
		n := topN
		if n > len(r.MatchedSkills) {
			n = len(r.MatchedSkills)
		}
		r.Strengths = append(r.Strengths, fmt.Sprintf("具备岗位核心技能: %s", strings.Join(r.MatchedSkills[:n], ", ")))
	}
	if r.ExperienceScore >= 100 && job.ExperienceYears > 0 {
		r.Strengths = append(r.Strengths, fmt.Sprintf("工作年限(%.0f年)满足岗位要求(%.0f年)", candidate.ExperienceYears, job.ExperienceYears))
	}
	if r.EducationScore >= 100 && job.EducationLevel != "" {
		r.Strengths = append(r.Strengths, "学历满足岗位要求")
	}

	if len(r.MissingSkills) > 0 {
		n := topN
		if n > len(r.MissingSkills) {
			n = len(r.MissingSkills)
		}
		missing := strings.Join(r.MissingSkills[:n], ", ")
		r.Weaknesses = append(r.Weaknesses, fmt.Sprintf("缺少岗位要求技能: %s", missing))
		r.Recommendations = append(r.Recommendations, fmt.Sprintf("建议重点补强: %s", missing))
	}
	if r.ExperienceScore < 100 && job.ExperienceYears > 0 {
		r.Weaknesses = append(r.Weaknesses, fmt.Sprintf("工作年限(%.0f年)低于岗位要求(%.0f年)", candidate.ExperienceYears, job.ExperienceYears))
	}
	if r.EducationScore < s.cfg.WeakComponentThreshold && job.EducationLevel != "" {
		r.Weaknesses = append(r.Weaknesses, "学历低于岗位要求")
	}
	if r.SemanticScore < s.cfg.WeakComponentThreshold {
		r.Weaknesses = append(r.Weaknesses, "整体背景与岗位描述相关度较低")
	}

	if len(r.Weaknesses) == 0 {
		r.Recommendations = append(r.Recommendations, "各维度均达标，建议优先安排面试")
	}
}
