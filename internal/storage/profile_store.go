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

var profileStoreTracer = otel.Tracer("smart-recruit-go/storage/profile_store")

// ProfileEntry 语料库来源登记项
type ProfileEntry struct {
	SourceID        string            `json:"source_id"`
	Kind            types.ProfileKind `json:"kind"`
	Name            string            `json:"name"`
	Skills          []string          `json:"skills"`
	ExperienceYears float64           `json:"experience_years"`
	EducationLevel  string            `json:"education_level"`
	ChunkCount      int               `json:"chunk_count"`
}

// ProfileStore 档案登记存储，记录语料库中收录了哪些来源
type ProfileStore interface {
	// SaveProfile 登记档案，同一来源的旧记录被覆盖
	SaveProfile(ctx context.Context, profile *types.Profile, chunkCount int) error

	// GetProfile 按来源ID查询，不存在时返回(nil, nil)
	GetProfile(ctx context.Context, sourceID string) (*ProfileEntry, error)

	// ListProfiles 列出指定类型的全部登记项，按来源ID升序；kind为空时列出全部
	ListProfiles(ctx context.Context, kind types.ProfileKind) ([]*ProfileEntry, error)
}

// MySQLProfileStore 基于GORM的档案登记存储
type MySQLProfileStore struct {
	db *gorm.DB
}

var _ ProfileStore = (*MySQLProfileStore)(nil)

// NewMySQLProfileStore 创建MySQL档案登记存储
func NewMySQLProfileStore(db *MySQL) *MySQLProfileStore {
	return &MySQLProfileStore{db: db.DB()}
}

// SaveProfile 实现ProfileStore接口
func (s *MySQLProfileStore) SaveProfile(ctx context.Context, profile *types.Profile, chunkCount int) error {
	ctx, span := profileStoreTracer.Start(ctx, "MySQLProfileStore.SaveProfile")
	defer span.End()
	span.SetAttributes(
		attribute.String("profile.source_id", profile.ID),
		attribute.String("profile.kind", string(profile.Kind)),
	)

	skills, err := json.Marshal(profile.Skills)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return fmt.Errorf("序列化技能列表失败: %w", err)
	}

	record := &models.ProfileRecord{
		SourceID:        profile.ID,
		Kind:            string(profile.Kind),
		Name:            profile.Name,
		Skills:          skills,
		ExperienceYears: profile.ExperienceYears,
		EducationLevel:  profile.EducationLevel,
		ChunkCount:      chunkCount,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}},
		UpdateAll: true,
	}).Create(record).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return fmt.Errorf("登记档案失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetProfile 实现ProfileStore接口
func (s *MySQLProfileStore) GetProfile(ctx context.Context, sourceID string) (*ProfileEntry, error) {
	ctx, span := profileStoreTracer.Start(ctx, "MySQLProfileStore.GetProfile")
	defer span.End()

	var record models.ProfileRecord
	err := s.db.WithContext(ctx).
		Where("source_id = ?", sourceID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Ok, "not found")
		return nil, nil
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("查询档案登记失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return entryFromRecord(&record)
}

// ListProfiles 实现ProfileStore接口
func (s *MySQLProfileStore) ListProfiles(ctx context.Context, kind types.ProfileKind) ([]*ProfileEntry, error) {
	ctx, span := profileStoreTracer.Start(ctx, "MySQLProfileStore.ListProfiles")
	defer span.End()
	span.SetAttributes(attribute.String("profile.kind", string(kind)))

	query := s.db.WithContext(ctx).Order("source_id ASC")
	if kind != "" {
		query = query.Where("kind = ?", string(kind))
	}
	var records []models.ProfileRecord
	if err := query.Find(&records).Error; err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("查询档案登记列表失败: %w", err)
	}

	out := make([]*ProfileEntry, 0, len(records))
	for i := range records {
		entry, err := entryFromRecord(&records[i])
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeInternal)
			return nil, err
		}
		out = append(out, entry)
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func entryFromRecord(record *models.ProfileRecord) (*ProfileEntry, error) {
	entry := &ProfileEntry{
		SourceID:        record.SourceID,
		Kind:            types.ProfileKind(record.Kind),
		Name:            record.Name,
		ExperienceYears: record.ExperienceYears,
		EducationLevel:  record.EducationLevel,
		ChunkCount:      record.ChunkCount,
	}
	if len(record.Skills) > 0 {
		if err := json.Unmarshal(record.Skills, &entry.Skills); err != nil {
			return nil, fmt.Errorf("解析技能列表失败: %w", err)
		}
	}
	return entry, nil
}

// MemoryProfileStore 进程内档案登记存储，供测试和单机部署使用
type MemoryProfileStore struct {
	mu      sync.RWMutex
	entries map[string]*ProfileEntry
}

var _ ProfileStore = (*MemoryProfileStore)(nil)

// NewMemoryProfileStore 创建内存档案登记存储
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{entries: make(map[string]*ProfileEntry)}
}

// SaveProfile 实现ProfileStore接口
func (s *MemoryProfileStore) SaveProfile(_ context.Context, profile *types.Profile, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[profile.ID] = &ProfileEntry{
		SourceID:        profile.ID,
		Kind:            profile.Kind,
		Name:            profile.Name,
		Skills:          append([]string(nil), profile.Skills...),
		ExperienceYears: profile.ExperienceYears,
		EducationLevel:  profile.EducationLevel,
		ChunkCount:      chunkCount,
	}
	return nil
}

// GetProfile 实现ProfileStore接口
func (s *MemoryProfileStore) GetProfile(_ context.Context, sourceID string) (*ProfileEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[sourceID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, nil
}

// ListProfiles 实现ProfileStore接口
func (s *MemoryProfileStore) ListProfiles(_ context.Context, kind types.ProfileKind) ([]*ProfileEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ProfileEntry
	for _, e := range s.entries {
		if kind != "" && e.Kind != kind {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}
