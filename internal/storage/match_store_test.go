package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/types"
)

func sampleMatch(candidateID, jobID string, total int) *types.MatchResult {
	return &types.MatchResult{
		CandidateID:     candidateID,
		JobID:           jobID,
		SemanticScore:   90,
		SkillScore:      50,
		ExperienceScore: 100,
		EducationScore:  100,
		TotalScore:      total,
		Grade:           "B",
		MatchedSkills:   []string{"Python", "React"},
		MissingSkills:   []string{"AWS", "Kubernetes"},
		SkillDetails: []types.SkillMatchDetail{
			{RequiredSkill: "Python", Method: types.MatchExact, MatchedSkill: "Python", Confidence: 1},
		},
		Strengths:  []string{"具备岗位核心技能: Python, React"},
		Weaknesses: []string{"缺少岗位要求技能: AWS, Kubernetes"},
	}
}

func TestMemoryMatchStoreSaveAndGet(t *testing.T) {
	s := NewMemoryMatchStore()
	ctx := context.Background()

	require.NoError(t, s.SaveMatch(ctx, sampleMatch("c1", "j1", 81)))

	got, err := s.GetMatch(ctx, "c1", "j1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 81, got.TotalScore)
	assert.Equal(t, []string{"Python", "React"}, got.MatchedSkills)

	missing, err := s.GetMatch(ctx, "c1", "j2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryMatchStoreOverwrite(t *testing.T) {
	s := NewMemoryMatchStore()
	ctx := context.Background()

	require.NoError(t, s.SaveMatch(ctx, sampleMatch("c1", "j1", 81)))
	require.NoError(t, s.SaveMatch(ctx, sampleMatch("c1", "j1", 92)))

	got, err := s.GetMatch(ctx, "c1", "j1")
	require.NoError(t, err)
	assert.Equal(t, 92, got.TotalScore)

	all, err := s.ListAllMatches(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryMatchStoreListByJobOrdering(t *testing.T) {
	s := NewMemoryMatchStore()
	ctx := context.Background()

	require.NoError(t, s.SaveMatch(ctx, sampleMatch("c1", "j1", 70)))
	require.NoError(t, s.SaveMatch(ctx, sampleMatch("c2", "j1", 90)))
	require.NoError(t, s.SaveMatch(ctx, sampleMatch("c3", "j1", 90)))
	require.NoError(t, s.SaveMatch(ctx, sampleMatch("c4", "j2", 99)))

	got, err := s.ListMatchesByJob(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	// 总分降序，同分按候选人ID升序
	assert.Equal(t, "c2", got[0].CandidateID)
	assert.Equal(t, "c3", got[1].CandidateID)
	assert.Equal(t, "c1", got[2].CandidateID)
}

func TestRecordRoundTrip(t *testing.T) {
	original := sampleMatch("c1", "j1", 81)

	record, err := toRecord(original)
	require.NoError(t, err)
	assert.Equal(t, "c1", record.CandidateID)
	assert.NotEmpty(t, record.MatchedSkills)

	restored, err := fromRecord(record)
	require.NoError(t, err)
	assert.Equal(t, original.TotalScore, restored.TotalScore)
	assert.Equal(t, original.MatchedSkills, restored.MatchedSkills)
	assert.Equal(t, original.SkillDetails, restored.SkillDetails)
	assert.Equal(t, original.Strengths, restored.Strengths)
}
