package matching

import (
	"strings"

	"github.com/google/uuid"

	"smart-recruit-go/internal/types"
)

// NewCandidateProfile 构造候选人档案，技能列表经过清洗去重
// ID为空时自动生成
func NewCandidateProfile(id, name, rawText string, skills []string, years float64, education string) (*types.Profile, error) {
	return newProfile(id, types.ProfileCandidate, name, rawText, skills, years, education)
}

// NewJobProfile 构造岗位档案
func NewJobProfile(id, name, rawText string, skills []string, minYears float64, education string) (*types.Profile, error) {
	return newProfile(id, types.ProfileJob, name, rawText, skills, minYears, education)
}

func newProfile(id string, kind types.ProfileKind, name, rawText string, skills []string, years float64, education string) (*types.Profile, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, types.NewIncompleteProfileError(id, "", "原始文本为空")
	}
	if years < 0 {
		years = 0
	}
	if id == "" {
		id = uuid.New().String()
	}
	return &types.Profile{
		ID:              id,
		Kind:            kind,
		Name:            strings.TrimSpace(name),
		RawText:         rawText,
		Skills:          DeduplicateSkills(CleanSkills(skills)),
		ExperienceYears: years,
		EducationLevel:  strings.ToLower(strings.TrimSpace(education)),
	}, nil
}
