package corpus

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"smart-recruit-go/internal/chunker"
	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/types"
)

// CorpusIndex 语料索引，负责文档的分块、向量化和入库
// 同一(集合,来源)的并发写入被串行化，不同来源互不阻塞
type CorpusIndex struct {
	store    VectorStore
	embedder embedding.Embedder
	splitter *chunker.Chunker
	dim      int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewCorpusIndex 创建语料索引
func NewCorpusIndex(store VectorStore, embedder embedding.Embedder, splitter *chunker.Chunker, dimension int) *CorpusIndex {
	return &CorpusIndex{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		dim:      dimension,
		locks:    make(map[string]*sync.Mutex),
	}
}

// sourceLock 返回(集合,来源)对应的互斥锁
func (idx *CorpusIndex) sourceLock(collection, sourceID string) *sync.Mutex {
	key := collection + "\x00" + sourceID
	idx.locksMu.Lock()
	defer idx.locksMu.Unlock()
	if mu, ok := idx.locks[key]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	idx.locks[key] = mu
	return mu
}

// UpsertDocument 将文档写入指定集合
// 重复写入同一来源时整体替换旧分块，分块下标重新从0计数
// 返回写入的分块数
func (idx *CorpusIndex) UpsertDocument(ctx context.Context, collection, sourceID, sourceType, name, text string, extraMeta map[string]interface{}) (int, error) {
	if sourceID == "" {
		return 0, fmt.Errorf("来源ID不能为空")
	}

	chunks := idx.splitter.Split(sourceID, sourceType, name, text)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("文档 '%s' 切分后没有可索引的内容", sourceID)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := idx.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("向量数(%d)与分块数(%d)不一致", len(vectors), len(chunks))
	}
	for i := range chunks {
		if idx.dim > 0 && len(vectors[i]) != idx.dim {
			return 0, fmt.Errorf("%w: 分块%d向量%d维，期望%d维", types.ErrDimensionMismatch, i, len(vectors[i]), idx.dim)
		}
		chunks[i].Embedding = vectors[i]
		for k, v := range extraMeta {
			chunks[i].Metadata[k] = v
		}
	}

	mu := idx.sourceLock(collection, sourceID)
	mu.Lock()
	defer mu.Unlock()

	if err := idx.store.ReplaceSource(ctx, collection, sourceID, chunks); err != nil {
		return 0, err
	}

	logger.Info().
		Str("collection", collection).
		Str("source_id", sourceID).
		Str("source_type", sourceType).
		Int("chunks", len(chunks)).
		Msg("文档已写入语料索引")

	return len(chunks), nil
}

// Query 在集合内按向量检索
// 集合不存在时返回空结果，空语料不是错误
func (idx *CorpusIndex) Query(ctx context.Context, collection string, vector []float64, topK int, filter map[string]interface{}) ([]types.RetrievedChunk, error) {
	if idx.dim > 0 && len(vector) != idx.dim {
		return nil, fmt.Errorf("%w: 查询向量%d维，期望%d维", types.ErrDimensionMismatch, len(vector), idx.dim)
	}
	return idx.store.Search(ctx, collection, vector, topK, filter)
}

// EmbedQuery 将查询文本向量化
func (idx *CorpusIndex) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	vectors, err := idx.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("查询向量化返回空结果")
	}
	return vectors[0], nil
}

// Stats 返回各集合的分块数
func (idx *CorpusIndex) Stats(ctx context.Context) (map[string]int, error) {
	names, err := idx.store.Collections(ctx)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int, len(names))
	for _, name := range names {
		count, err := idx.store.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		stats[name] = count
	}
	return stats, nil
}

// Clear 删除整个集合
func (idx *CorpusIndex) Clear(ctx context.Context, collection string) error {
	return idx.store.DropCollection(ctx, collection)
}
