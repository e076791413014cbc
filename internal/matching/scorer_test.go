package matching

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/types"
)

// embeddingWithCosine 构造一对余弦相似度恰好为sim的二维向量
func embeddingWithCosine(sim float64) ([]float64, []float64) {
	theta := math.Acos(sim)
	return []float64{1, 0}, []float64{math.Cos(theta), math.Sin(theta)}
}

func newTestScorer() *Scorer {
	cfg := matchCfg()
	return NewScorer(NewSkillMatcher(nil, cfg), cfg)
}

func TestScoreWeightedExample(t *testing.T) {
	s := newTestScorer()

	candVec, jobVec := embeddingWithCosine(0.90)
	candidate := &types.Profile{
		ID:              "cand-1",
		Kind:            types.ProfileCandidate,
		Skills:          []string{"Python", "React", "Docker", "Git"},
		ExperienceYears: 7,
		EducationLevel:  "bachelor",
		Embedding:       candVec,
	}
	job := &types.Profile{
		ID:              "job-1",
		Kind:            types.ProfileJob,
		Skills:          []string{"Python", "React", "AWS", "Kubernetes"},
		ExperienceYears: 5,
		EducationLevel:  "bachelor",
		Embedding:       jobVec,
	}

	r, err := s.Score(context.Background(), candidate, job)
	require.NoError(t, err)

	assert.InDelta(t, 90, r.SemanticScore, 0.01)
	assert.InDelta(t, 50, r.SkillScore, 1e-9)
	assert.Equal(t, 100.0, r.ExperienceScore)
	assert.Equal(t, 100.0, r.EducationScore)

	assert.Equal(t, []string{"Python", "React"}, r.MatchedSkills)
	assert.Equal(t, []string{"AWS", "Kubernetes"}, r.MissingSkills)

	// 0.4*90 + 0.3*50 + 0.2*100 + 0.1*100 = 81
	assert.Equal(t, 81, r.TotalScore)
	assert.Equal(t, "B", r.Grade)
}

func TestScoreSkillsExcludedRenormalizes(t *testing.T) {
	s := newTestScorer()

	candVec, jobVec := embeddingWithCosine(0.80)
	candidate := &types.Profile{
		ID: "cand-1", Skills: []string{"Go"},
		ExperienceYears: 3, EducationLevel: "master", Embedding: candVec,
	}
	job := &types.Profile{
		ID: "job-1", Skills: nil,
		ExperienceYears: 3, EducationLevel: "bachelor", Embedding: jobVec,
	}

	r, err := s.Score(context.Background(), candidate, job)
	require.NoError(t, err)

	assert.True(t, r.SkillsExcluded)
	// (0.4*80 + 0.2*100 + 0.1*100) / 0.7 = 62/0.7 ≈ 88.57 → 89
	assert.Equal(t, 89, r.TotalScore)
	assert.Equal(t, "A", r.Grade)
}

func TestScoreMissingEmbedding(t *testing.T) {
	s := newTestScorer()

	candidate := &types.Profile{ID: "cand-1"}
	job := &types.Profile{ID: "job-1", Embedding: []float64{1, 0}}

	_, err := s.Score(context.Background(), candidate, job)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrIncompleteProfile)
}

func TestScoreDimensionMismatch(t *testing.T) {
	s := newTestScorer()

	candidate := &types.Profile{ID: "c", Embedding: []float64{1, 0, 0}}
	job := &types.Profile{ID: "j", Embedding: []float64{1, 0}}

	_, err := s.Score(context.Background(), candidate, job)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrDimensionMismatch)
}

func TestExperienceScoreLinear(t *testing.T) {
	s := newTestScorer()

	assert.Equal(t, 100.0, s.experienceScore(5, 0))
	assert.Equal(t, 100.0, s.experienceScore(5, 5))
	assert.Equal(t, 100.0, s.experienceScore(8, 5))
	assert.InDelta(t, 60.0, s.experienceScore(3, 5), 1e-9)
	assert.Equal(t, 0.0, s.experienceScore(0, 5))
}

func TestEducationScoreBands(t *testing.T) {
	s := newTestScorer()

	assert.Equal(t, 100.0, s.educationScore("master", "bachelor"))
	assert.Equal(t, 100.0, s.educationScore("bachelor", "bachelor"))
	assert.Equal(t, 60.0, s.educationScore("associate", "bachelor"))
	assert.Equal(t, 30.0, s.educationScore("none", "bachelor"))
	// 任一侧未知（含岗位未填写）一律中间分
	assert.Equal(t, 70.0, s.educationScore("", "bachelor"))
	assert.Equal(t, 70.0, s.educationScore("master", ""))
	assert.Equal(t, 70.0, s.educationScore("", ""))
}

func TestNarrativeWeaknessBoundary(t *testing.T) {
	s := newTestScorer()

	candVec, jobVec := embeddingWithCosine(0.90)
	candidate := &types.Profile{
		ID: "c", Skills: []string{"Python"},
		ExperienceYears: 5, EducationLevel: "associate", Embedding: candVec,
	}
	job := &types.Profile{
		ID: "j", Skills: []string{"Python"},
		ExperienceYears: 5, EducationLevel: "bachelor", Embedding: jobVec,
	}

	r, err := s.Score(context.Background(), candidate, job)
	require.NoError(t, err)

	// 低一档学历得60分，劣势判定是严格小于阈值，恰好60分不算劣势
	assert.Equal(t, 60.0, r.EducationScore)
	for _, w := range r.Weaknesses {
		assert.NotContains(t, w, "学历")
	}
}

func TestGradeBands(t *testing.T) {
	s := newTestScorer()

	cases := []struct {
		total float64
		want  string
	}{
		{95, "A+"}, {90, "A+"}, {89, "A"}, {85, "A"},
		{84, "B"}, {75, "B"}, {74, "C"}, {65, "C"}, {64, "D"}, {0, "D"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, s.grade(c.total), "总分%.0f", c.total)
	}
}

func TestNarrativeDeterministic(t *testing.T) {
	s := newTestScorer()

	candVec, jobVec := embeddingWithCosine(0.90)
	candidate := &types.Profile{
		ID: "c", Skills: []string{"Python"},
		ExperienceYears: 2, EducationLevel: "bachelor", Embedding: candVec,
	}
	job := &types.Profile{
		ID: "j", Skills: []string{"Python", "AWS", "Kubernetes", "Terraform", "Helm"},
		ExperienceYears: 5, EducationLevel: "bachelor", Embedding: jobVec,
	}

	r1, err := s.Score(context.Background(), candidate, job)
	require.NoError(t, err)
	r2, err := s.Score(context.Background(), candidate, job)
	require.NoError(t, err)

	// 同样输入必须产出同样的叙述事实
	assert.Equal(t, r1.Strengths, r2.Strengths)
	assert.Equal(t, r1.Weaknesses, r2.Weaknesses)
	assert.Equal(t, r1.Recommendations, r2.Recommendations)

	// 缺失技能只取前N个进入叙述
	require.NotEmpty(t, r1.Weaknesses)
	assert.Contains(t, r1.Weaknesses[0], "AWS")
	assert.NotContains(t, r1.Weaknesses[0], "Helm")
	require.NotEmpty(t, r1.Recommendations)
}
