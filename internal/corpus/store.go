package corpus

import (
	"context"
	"sort"
	"sync"

	"smart-recruit-go/internal/matching"
	"smart-recruit-go/internal/types"
)

// VectorStore 向量存储接口
// 实现必须保证ReplaceSource的原子性：同一来源的旧分块被整体替换，
// 不会出现新旧分块混存的中间状态对查询可见
type VectorStore interface {
	// EnsureCollection 确保集合存在，已存在时幂等返回
	EnsureCollection(ctx context.Context, collection string, dimension int) error

	// ReplaceSource 删除该来源的全部旧分块并写入新分块
	ReplaceSource(ctx context.Context, collection, sourceID string, chunks []types.DocumentChunk) error

	// Search 按余弦相似度检索，集合不存在时返回空结果而非错误
	// filter的键值对以精确相等方式匹配分块元数据
	Search(ctx context.Context, collection string, vector []float64, topK int, filter map[string]interface{}) ([]types.RetrievedChunk, error)

	// Count 统计集合内分块数，集合不存在时返回0
	Count(ctx context.Context, collection string) (int, error)

	// Collections 列出全部已存在的集合名
	Collections(ctx context.Context) ([]string, error)

	// DropCollection 删除整个集合，不存在时幂等返回
	DropCollection(ctx context.Context, collection string) error
}

// memoryPoint 内存存储中的单个向量点
type memoryPoint struct {
	sourceID string
	vector   []float64
	text     string
	metadata map[string]interface{}
	seq      int
}

// MemoryVectorStore 进程内向量存储
// 供测试和单机部署使用，语义与Qdrant实现一致
type MemoryVectorStore struct {
	mu          sync.RWMutex
	collections map[string][]memoryPoint
	nextSeq     int
}

var _ VectorStore = (*MemoryVectorStore)(nil)

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{
		collections: make(map[string][]memoryPoint),
	}
}

// EnsureCollection 实现VectorStore接口
func (s *MemoryVectorStore) EnsureCollection(_ context.Context, collection string, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = nil
	}
	return nil
}

// ReplaceSource 实现VectorStore接口
// 在单次持锁期间完成删旧写新，替换对并发查询原子可见
func (s *MemoryVectorStore) ReplaceSource(_ context.Context, collection, sourceID string, chunks []types.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.collections[collection]
	kept := make([]memoryPoint, 0, len(existing)+len(chunks))
	for _, p := range existing {
		if p.sourceID != sourceID {
			kept = append(kept, p)
		}
	}
	for _, ch := range chunks {
		s.nextSeq++
		kept = append(kept, memoryPoint{
			sourceID: ch.SourceID,
			vector:   ch.Embedding,
			text:     ch.Text,
			metadata: ch.Metadata,
			seq:      s.nextSeq,
		})
	}
	s.collections[collection] = kept
	return nil
}

// Search 实现VectorStore接口
// 相似度相同时按插入序号升序保证结果稳定
func (s *MemoryVectorStore) Search(_ context.Context, collection string, vector []float64, topK int, filter map[string]interface{}) ([]types.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.collections[collection]
	if !ok || topK <= 0 {
		return nil, nil
	}

	results := make([]types.RetrievedChunk, 0, len(points))
	for _, p := range points {
		if !matchesFilter(p.metadata, filter) {
			continue
		}
		results = append(results, types.RetrievedChunk{
			Text:     p.text,
			Score:    matching.CosineSimilarity(vector, p.vector),
			Metadata: p.metadata,
			Seq:      p.seq,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Count 实现VectorStore接口
func (s *MemoryVectorStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

// Collections 实现VectorStore接口
func (s *MemoryVectorStore) Collections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DropCollection 实现VectorStore接口
func (s *MemoryVectorStore) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// matchesFilter 判断元数据是否满足全部过滤条件（精确相等）
func matchesFilter(metadata, filter map[string]interface{}) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
