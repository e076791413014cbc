package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/types"
)

func sampleProfile(id string, kind types.ProfileKind) *types.Profile {
	return &types.Profile{
		ID:              id,
		Kind:            kind,
		Name:            "档案" + id,
		RawText:         "原文",
		Skills:          []string{"Go", "MySQL"},
		ExperienceYears: 5,
		EducationLevel:  "bachelor",
	}
}

func TestMemoryProfileStoreSaveAndGet(t *testing.T) {
	s := NewMemoryProfileStore()
	ctx := context.Background()

	require.NoError(t, s.SaveProfile(ctx, sampleProfile("c1", types.ProfileCandidate), 3))

	entry, err := s.GetProfile(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, types.ProfileCandidate, entry.Kind)
	assert.Equal(t, []string{"Go", "MySQL"}, entry.Skills)
	assert.Equal(t, 3, entry.ChunkCount)

	missing, err := s.GetProfile(ctx, "不存在")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryProfileStoreOverwrite(t *testing.T) {
	s := NewMemoryProfileStore()
	ctx := context.Background()

	require.NoError(t, s.SaveProfile(ctx, sampleProfile("c1", types.ProfileCandidate), 3))
	require.NoError(t, s.SaveProfile(ctx, sampleProfile("c1", types.ProfileCandidate), 7))

	entry, err := s.GetProfile(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	// 重复登记做整行覆盖
	assert.Equal(t, 7, entry.ChunkCount)
}

func TestMemoryProfileStoreListByKind(t *testing.T) {
	s := NewMemoryProfileStore()
	ctx := context.Background()

	require.NoError(t, s.SaveProfile(ctx, sampleProfile("c2", types.ProfileCandidate), 1))
	require.NoError(t, s.SaveProfile(ctx, sampleProfile("c1", types.ProfileCandidate), 1))
	require.NoError(t, s.SaveProfile(ctx, sampleProfile("j1", types.ProfileJob), 1))

	candidates, err := s.ListProfiles(ctx, types.ProfileCandidate)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	// 按来源ID升序
	assert.Equal(t, "c1", candidates[0].SourceID)
	assert.Equal(t, "c2", candidates[1].SourceID)

	all, err := s.ListProfiles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
