package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smart-recruit-go/internal/storage/models"
	"smart-recruit-go/internal/tracing"
	"smart-recruit-go/internal/types"
)

var matchStoreTracer = otel.Tracer("smart-recruit-go/storage/match_store")

// MatchResultStore 匹配结果的结构化存储接口
type MatchResultStore interface {
	// SaveMatch 保存评分结果，同一候选人-岗位对的旧记录被覆盖
	SaveMatch(ctx context.Context, result *types.MatchResult) error

	// GetMatch 按候选人和岗位查询，不存在时返回(nil, nil)
	GetMatch(ctx context.Context, candidateID, jobID string) (*types.MatchResult, error)

	// ListMatchesByJob 列出岗位的全部评分结果，按总分降序
	ListMatchesByJob(ctx context.Context, jobID string) ([]*types.MatchResult, error)

	// ListAllMatches 列出全部评分结果，按总分降序
	ListAllMatches(ctx context.Context) ([]*types.MatchResult, error)
}

// MySQLMatchStore 基于GORM的匹配结果存储
type MySQLMatchStore struct {
	db *gorm.DB
}

var _ MatchResultStore = (*MySQLMatchStore)(nil)

// NewMySQLMatchStore 创建MySQL匹配结果存储
func NewMySQLMatchStore(db *MySQL) *MySQLMatchStore {
	return &MySQLMatchStore{db: db.DB()}
}

// SaveMatch 实现MatchResultStore接口
func (s *MySQLMatchStore) SaveMatch(ctx context.Context, result *types.MatchResult) error {
	ctx, span := matchStoreTracer.Start(ctx, "MySQLMatchStore.SaveMatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("candidate.id", result.CandidateID),
		attribute.String("job.id", result.JobID),
		attribute.Int("match.total_score", result.TotalScore),
	)

	record, err := toRecord(result)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return err
	}

	// 按(candidate_id, job_id)唯一键做整行覆盖
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}, {Name: "job_id"}},
		UpdateAll: true,
	}).Create(record).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return fmt.Errorf("保存匹配结果失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetMatch 实现MatchResultStore接口
func (s *MySQLMatchStore) GetMatch(ctx context.Context, candidateID, jobID string) (*types.MatchResult, error) {
	ctx, span := matchStoreTracer.Start(ctx, "MySQLMatchStore.GetMatch")
	defer span.End()

	var record models.MatchRecord
	err := s.db.WithContext(ctx).
		Where("candidate_id = ? AND job_id = ?", candidateID, jobID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Ok, "not found")
		return nil, nil
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("查询匹配结果失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return fromRecord(&record)
}

// ListMatchesByJob 实现MatchResultStore接口
func (s *MySQLMatchStore) ListMatchesByJob(ctx context.Context, jobID string) ([]*types.MatchResult, error) {
	ctx, span := matchStoreTracer.Start(ctx, "MySQLMatchStore.ListMatchesByJob")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", jobID))

	var records []models.MatchRecord
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("total_score DESC, candidate_id ASC").
		Find(&records).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("查询岗位匹配结果失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return fromRecords(records)
}

// ListAllMatches 实现MatchResultStore接口
func (s *MySQLMatchStore) ListAllMatches(ctx context.Context) ([]*types.MatchResult, error) {
	ctx, span := matchStoreTracer.Start(ctx, "MySQLMatchStore.ListAllMatches")
	defer span.End()

	var records []models.MatchRecord
	err := s.db.WithContext(ctx).
		Order("total_score DESC, candidate_id ASC").
		Find(&records).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("查询全部匹配结果失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return fromRecords(records)
}

func toRecord(r *types.MatchResult) (*models.MatchRecord, error) {
	record := &models.MatchRecord{
		CandidateID:     r.CandidateID,
		JobID:           r.JobID,
		SemanticScore:   r.SemanticScore,
		SkillScore:      r.SkillScore,
		ExperienceScore: r.ExperienceScore,
		EducationScore:  r.EducationScore,
		SkillsExcluded:  r.SkillsExcluded,
		TotalScore:      r.TotalScore,
		Grade:           r.Grade,
	}
	for _, pair := range []struct {
		dst *[]byte
		src interface{}
	}{
		{dst: (*[]byte)(&record.MatchedSkills), src: r.MatchedSkills},
		{dst: (*[]byte)(&record.MissingSkills), src: r.MissingSkills},
		{dst: (*[]byte)(&record.SkillDetails), src: r.SkillDetails},
		{dst: (*[]byte)(&record.Strengths), src: r.Strengths},
		{dst: (*[]byte)(&record.Weaknesses), src: r.Weaknesses},
		{dst: (*[]byte)(&record.Recommendations), src: r.Recommendations},
	} {
		data, err := json.Marshal(pair.src)
		if err != nil {
			return nil, fmt.Errorf("序列化匹配结果字段失败: %w", err)
		}
		*pair.dst = data
	}
	return record, nil
}

func fromRecord(record *models.MatchRecord) (*types.MatchResult, error) {
	r := &types.MatchResult{
		CandidateID:     record.CandidateID,
		JobID:           record.JobID,
		SemanticScore:   record.SemanticScore,
		SkillScore:      record.SkillScore,
		ExperienceScore: record.ExperienceScore,
		EducationScore:  record.EducationScore,
		SkillsExcluded:  record.SkillsExcluded,
		TotalScore:      record.TotalScore,
		Grade:           record.Grade,
	}
	for _, pair := range []struct {
		src []byte
		dst interface{}
	}{
		{src: record.MatchedSkills, dst: &r.MatchedSkills},
		{src: record.MissingSkills, dst: &r.MissingSkills},
		{src: record.SkillDetails, dst: &r.SkillDetails},
		{src: record.Strengths, dst: &r.Strengths},
		{src: record.Weaknesses, dst: &r.Weaknesses},
		{src: record.Recommendations, dst: &r.Recommendations},
	} {
		if len(pair.src) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.src, pair.dst); err != nil {
			return nil, fmt.Errorf("解析匹配结果字段失败: %w", err)
		}
	}
	return r, nil
}

func fromRecords(records []models.MatchRecord) ([]*types.MatchResult, error) {
	out := make([]*types.MatchResult, 0, len(records))
	for i := range records {
		r, err := fromRecord(&records[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// MemoryMatchStore 进程内匹配结果存储，供测试和单机部署使用
type MemoryMatchStore struct {
	mu      sync.RWMutex
	results map[string]*types.MatchResult
}

var _ MatchResultStore = (*MemoryMatchStore)(nil)

// NewMemoryMatchStore 创建内存匹配结果存储
func NewMemoryMatchStore() *MemoryMatchStore {
	return &MemoryMatchStore{results: make(map[string]*types.MatchResult)}
}

func matchKey(candidateID, jobID string) string {
	return candidateID + "\x00" + jobID
}

// SaveMatch 实现MatchResultStore接口
func (s *MemoryMatchStore) SaveMatch(_ context.Context, result *types.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *result
	s.results[matchKey(result.CandidateID, result.JobID)] = &copied
	return nil
}

// GetMatch 实现MatchResultStore接口
func (s *MemoryMatchStore) GetMatch(_ context.Context, candidateID, jobID string) (*types.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.results[matchKey(candidateID, jobID)]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

// ListMatchesByJob 实现MatchResultStore接口
func (s *MemoryMatchStore) ListMatchesByJob(_ context.Context, jobID string) ([]*types.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.MatchResult
	for _, r := range s.results {
		if r.JobID == jobID {
			copied := *r
			out = append(out, &copied)
		}
	}
	sortMatches(out)
	return out, nil
}

// ListAllMatches 实现MatchResultStore接口
func (s *MemoryMatchStore) ListAllMatches(_ context.Context) ([]*types.MatchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.MatchResult, 0, len(s.results))
	for _, r := range s.results {
		copied := *r
		out = append(out, &copied)
	}
	sortMatches(out)
	return out, nil
}

// sortMatches 总分降序，分数相同时按候选人ID升序保证稳定
func sortMatches(matches []*types.MatchResult) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].TotalScore != matches[j].TotalScore {
			return matches[i].TotalScore > matches[j].TotalScore
		}
		return matches[i].CandidateID < matches[j].CandidateID
	})
}
