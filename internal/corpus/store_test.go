package corpus

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-recruit-go/internal/types"
)

func chunkWithVector(sourceID string, index int, text string, vec []float64) types.DocumentChunk {
	return types.DocumentChunk{
		SourceID:  sourceID,
		SourceType: "cv",
		Index:     index,
		Text:      text,
		Embedding: vec,
		Metadata: map[string]interface{}{
			"source_id": sourceID,
		},
	}
}

func TestMemoryStoreSearchRanking(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()

	require.NoError(t, s.ReplaceSource(ctx, "c", "s1", []types.DocumentChunk{
		chunkWithVector("s1", 0, "远", []float64{0, 1, 0}),
		chunkWithVector("s1", 1, "近", []float64{1, 0, 0}),
		chunkWithVector("s1", 2, "中", []float64{0.7, 0.7, 0}),
	}))

	results, err := s.Search(ctx, "c", []float64{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "近", results[0].Text)
	assert.Equal(t, "中", results[1].Text)
}

func TestMemoryStoreSearchStableTies(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()

	// 相同向量的多个分块，相似度完全一致
	chunks := make([]types.DocumentChunk, 5)
	for i := range chunks {
		chunks[i] = chunkWithVector("s1", i, fmt.Sprintf("块%d", i), []float64{1, 0, 0})
	}
	require.NoError(t, s.ReplaceSource(ctx, "c", "s1", chunks))

	first, err := s.Search(ctx, "c", []float64{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	second, err := s.Search(ctx, "c", []float64{1, 0, 0}, 5, nil)
	require.NoError(t, err)

	// 相似度打平时按插入顺序稳定排序
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, fmt.Sprintf("块%d", i), first[i].Text)
	}
}

func TestMemoryStoreReplaceAtomicity(t *testing.T) {
	s := NewMemoryVectorStore()
	ctx := context.Background()

	require.NoError(t, s.ReplaceSource(ctx, "c", "s1", []types.DocumentChunk{
		chunkWithVector("s1", 0, "旧A", []float64{1, 0, 0}),
		chunkWithVector("s1", 1, "旧B", []float64{1, 0, 0}),
	}))
	require.NoError(t, s.ReplaceSource(ctx, "c", "s2", []types.DocumentChunk{
		chunkWithVector("s2", 0, "他人", []float64{1, 0, 0}),
	}))

	require.NoError(t, s.ReplaceSource(ctx, "c", "s1", []types.DocumentChunk{
		chunkWithVector("s1", 0, "新", []float64{1, 0, 0}),
	}))

	results, err := s.Search(ctx, "c", []float64{1, 0, 0}, 10, nil)
	require.NoError(t, err)

	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}
	// 旧分块整体消失，其他来源不受影响
	assert.ElementsMatch(t, []string{"新", "他人"}, texts)
}

func TestMemoryStoreMissingCollection(t *testing.T) {
	s := NewMemoryVectorStore()

	results, err := s.Search(context.Background(), "nope", []float64{1}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	count, err := s.Count(context.Background(), "nope")
	require.NoError(t, err)
	assert.Zero(t, count)
}
