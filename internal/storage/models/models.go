package models

import (
	"time"

	"gorm.io/datatypes"
)

// MatchRecord 候选人-岗位匹配结果的持久化记录
// 每次评分产生一条新记录，同一候选人-岗位对的重复评分做整行覆盖
type MatchRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	CandidateID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_candidate_job,priority:1"`
	JobID       string `gorm:"type:varchar(64);not null;uniqueIndex:idx_candidate_job,priority:2;index:idx_job_score,priority:1"`

	SemanticScore   float64 `gorm:"type:decimal(5,2)"`
	SkillScore      float64 `gorm:"type:decimal(5,2)"`
	ExperienceScore float64 `gorm:"type:decimal(5,2)"`
	EducationScore  float64 `gorm:"type:decimal(5,2)"`
	SkillsExcluded  bool    `gorm:"not null;default:false"`

	TotalScore int    `gorm:"not null;index:idx_job_score,priority:2,sort:desc"`
	Grade      string `gorm:"type:varchar(8);not null"`

	MatchedSkills datatypes.JSON `gorm:"type:json"`
	MissingSkills datatypes.JSON `gorm:"type:json"`
	SkillDetails  datatypes.JSON `gorm:"type:json"`

	Strengths       datatypes.JSON `gorm:"type:json"`
	Weaknesses      datatypes.JSON `gorm:"type:json"`
	Recommendations datatypes.JSON `gorm:"type:json"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (MatchRecord) TableName() string {
	return "match_records"
}

// ProfileRecord 档案的结构化登记，记录语料库中有哪些来源
type ProfileRecord struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	SourceID string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Kind    string `gorm:"type:varchar(16);not null;index"`
	Name    string `gorm:"type:varchar(255)"`

	Skills          datatypes.JSON `gorm:"type:json"`
	ExperienceYears float64        `gorm:"type:decimal(4,1)"`
	EducationLevel  string         `gorm:"type:varchar(32)"`
	ChunkCount      int            `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定表名
func (ProfileRecord) TableName() string {
	return "profile_records"
}
