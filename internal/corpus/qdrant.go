package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/tracing"
	"smart-recruit-go/internal/types"
)

// 定义Qdrant的专用tracer
var qdrantTracer = otel.Tracer("smart-recruit-go/corpus/qdrant")

// QdrantPointIDNamespace 用于生成确定性向量点ID的专用命名空间
// 同一来源的同一分块总是得到同一个点ID，保证重复写入幂等
var QdrantPointIDNamespace = uuid.Must(uuid.FromString("9b1f63a4-7c2e-4d18-b5af-12c4de90f7b3"))

// QdrantStore 基于Qdrant REST API的多集合向量存储
type QdrantStore struct {
	endpoint       string
	vectorSize     int
	distanceMetric string
	apiKey         string
	httpClient     *http.Client

	// 已确认存在的集合，避免重复的存在性检查
	ensuredMu sync.Mutex
	ensured   map[string]struct{}
}

var _ VectorStore = (*QdrantStore)(nil)

// QdrantOption 定义QdrantStore构造函数选项
type QdrantOption func(*QdrantStore)

// WithDistanceMetric 设置距离度量
func WithDistanceMetric(metric string) QdrantOption {
	return func(q *QdrantStore) {
		q.distanceMetric = metric
	}
}

// WithHTTPTimeout 设置HTTP客户端超时
func WithHTTPTimeout(timeout time.Duration) QdrantOption {
	return func(q *QdrantStore) {
		q.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewQdrantStore 创建Qdrant存储客户端
func NewQdrantStore(cfg *config.QdrantConfig, opts ...QdrantOption) (*QdrantStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("qdrant配置不能为空")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:6333"
	}
	vectorSize := cfg.Dimension
	if vectorSize <= 0 {
		vectorSize = 1024
	}

	q := &QdrantStore{
		endpoint:       endpoint,
		vectorSize:     vectorSize,
		distanceMetric: "Cosine",
		apiKey:         cfg.APIKey,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		ensured:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// EnsureCollection 实现VectorStore接口
func (q *QdrantStore) EnsureCollection(ctx context.Context, collection string, dimension int) error {
	q.ensuredMu.Lock()
	if _, ok := q.ensured[collection]; ok {
		q.ensuredMu.Unlock()
		return nil
	}
	q.ensuredMu.Unlock()

	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.EnsureCollection",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if dimension <= 0 {
		dimension = q.vectorSize
	}
	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "ensure_collection"),
		attribute.String("db.collection", collection),
		attribute.Int("db.vector_size", dimension),
	)

	// 先检查集合是否已存在
	statusCode, _, err := q.rawRequest(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", collection), nil)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("检查集合失败: %w", err)
	}

	if statusCode == http.StatusNotFound {
		createReq := map[string]interface{}{
			"vectors": map[string]interface{}{
				"size":     dimension,
				"distance": q.distanceMetric,
			},
			"optimizers_config": map[string]interface{}{
				"default_segment_number": 2,
			},
		}
		var result struct {
			Status string `json:"status"`
		}
		if err := q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", collection), createReq, &result); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return fmt.Errorf("创建集合 '%s' 失败: %w", collection, err)
		}
		span.AddEvent("collection_created")
	} else if statusCode != http.StatusOK {
		err := fmt.Errorf("检查集合失败，状态码: %d", statusCode)
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}

	q.ensuredMu.Lock()
	q.ensured[collection] = struct{}{}
	q.ensuredMu.Unlock()

	span.SetStatus(codes.Ok, "")
	return nil
}

// ReplaceSource 实现VectorStore接口
// 先按source_id过滤删除旧分块，再写入新分块；两步之间的并发查询
// 可能短暂看不到该来源，由上层的按来源串行化避免交叉写入
func (q *QdrantStore) ReplaceSource(ctx context.Context, collection, sourceID string, chunks []types.DocumentChunk) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.ReplaceSource",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "replace_source"),
		attribute.String("db.collection", collection),
		attribute.String("source.id", sourceID),
		attribute.Int("chunks.count", len(chunks)),
	)

	if err := q.EnsureCollection(ctx, collection, q.vectorSize); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}

	// 删除该来源的全部旧分块
	deleteReq := map[string]interface{}{
		"filter": map[string]interface{}{
			"must": []map[string]interface{}{
				{"key": constants.MetaKeySourceID, "match": map[string]interface{}{"value": sourceID}},
			},
		},
	}
	var deleteResult struct {
		Status string `json:"status"`
	}
	if err := q.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete?wait=true", collection), deleteReq, &deleteResult); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("删除来源 '%s' 旧分块失败: %w", sourceID, err)
	}

	if len(chunks) == 0 {
		span.SetStatus(codes.Ok, "no chunks to store")
		return nil
	}

	points := make([]interface{}, 0, len(chunks))
	for _, ch := range chunks {
		if len(ch.Embedding) != q.vectorSize {
			err := fmt.Errorf("%w: 分块向量%d维，集合配置%d维", types.ErrDimensionMismatch, len(ch.Embedding), q.vectorSize)
			tracing.RecordError(span, err, tracing.ErrorTypeValidation)
			return err
		}

		idSource := fmt.Sprintf("collection:%s_source:%s_chunk:%d", collection, ch.SourceID, ch.Index)
		pointID := uuid.NewV5(QdrantPointIDNamespace, idSource).String()

		payload := map[string]interface{}{
			"content_text": ch.Text,
		}
		for k, v := range ch.Metadata {
			payload[k] = v
		}

		points = append(points, map[string]interface{}{
			"id":      pointID,
			"vector":  ch.Embedding,
			"payload": payload,
		})
	}

	upsertReq := map[string]interface{}{"points": points}
	var upsertResult struct {
		Status string `json:"status"`
	}
	if err := q.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", collection), upsertReq, &upsertResult); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return fmt.Errorf("写入来源 '%s' 分块失败: %w", sourceID, err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Search 实现VectorStore接口
func (q *QdrantStore) Search(ctx context.Context, collection string, vector []float64, topK int, filter map[string]interface{}) ([]types.RetrievedChunk, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Search",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "search_vectors"),
		attribute.String("db.collection", collection),
		attribute.Int("search.limit", topK),
		attribute.Int("query_vector.size", len(vector)),
	)

	if len(vector) != q.vectorSize {
		err := fmt.Errorf("%w: 查询向量%d维，集合配置%d维", types.ErrDimensionMismatch, len(vector), q.vectorSize)
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	searchReq := map[string]interface{}{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if len(filter) > 0 {
		must := make([]map[string]interface{}, 0, len(filter))
		for k, v := range filter {
			must = append(must, map[string]interface{}{
				"key":   k,
				"match": map[string]interface{}{"value": v},
			})
		}
		searchReq["filter"] = map[string]interface{}{"must": must}
	}

	var result struct {
		Result []struct {
			ID      string                 `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
		Status string `json:"status"`
	}

	statusCode, body, err := q.rawRequestJSON(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", collection), searchReq)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}
	// 集合不存在时按空语料处理，查询不报错
	if statusCode == http.StatusNotFound {
		span.AddEvent("collection_not_found")
		span.SetStatus(codes.Ok, "empty corpus")
		return nil, nil
	}
	if statusCode != http.StatusOK {
		err := fmt.Errorf("检索失败，状态码: %d, 响应: %s", statusCode, string(body))
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}
	if err := json.Unmarshal(body, &result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, fmt.Errorf("解析检索响应失败: %w", err)
	}

	out := make([]types.RetrievedChunk, 0, len(result.Result))
	for i, point := range result.Result {
		text, _ := point.Payload["content_text"].(string)
		metadata := make(map[string]interface{}, len(point.Payload))
		for k, v := range point.Payload {
			if k != "content_text" {
				metadata[k] = v
			}
		}
		out = append(out, types.RetrievedChunk{
			Text:     text,
			Score:    point.Score,
			Metadata: metadata,
			Seq:      i,
		})
	}

	span.SetAttributes(attribute.Int("search.results.count", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}

// Count 实现VectorStore接口
func (q *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Count",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "count"),
		attribute.String("db.collection", collection),
	)

	countReq := map[string]interface{}{"exact": true}
	statusCode, body, err := q.rawRequestJSON(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/count", collection), countReq)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return 0, err
	}
	if statusCode == http.StatusNotFound {
		span.SetStatus(codes.Ok, "collection not found")
		return 0, nil
	}
	if statusCode != http.StatusOK {
		err := fmt.Errorf("统计失败，状态码: %d, 响应: %s", statusCode, string(body))
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return 0, err
	}

	var result struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return 0, fmt.Errorf("解析统计响应失败: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return result.Result.Count, nil
}

// Collections 实现VectorStore接口
func (q *QdrantStore) Collections(ctx context.Context) ([]string, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Collections",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var result struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := q.doRequest(ctx, http.MethodGet, "/collections", nil, &result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, err
	}

	names := make([]string, 0, len(result.Result.Collections))
	for _, c := range result.Result.Collections {
		names = append(names, c.Name)
	}
	span.SetStatus(codes.Ok, "")
	return names, nil
}

// DropCollection 实现VectorStore接口
func (q *QdrantStore) DropCollection(ctx context.Context, collection string) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DropCollection",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", "drop_collection"),
		attribute.String("db.collection", collection),
	)

	statusCode, body, err := q.rawRequest(ctx, http.MethodDelete, fmt.Sprintf("/collections/%s", collection), nil)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}
	if statusCode != http.StatusOK && statusCode != http.StatusNotFound {
		err := fmt.Errorf("删除集合失败，状态码: %d, 响应: %s", statusCode, string(body))
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}

	q.ensuredMu.Lock()
	delete(q.ensured, collection)
	q.ensuredMu.Unlock()

	span.SetStatus(codes.Ok, "")
	return nil
}

// doRequest 发送请求并要求200响应，将响应体解析到result
func (q *QdrantStore) doRequest(ctx context.Context, method, path string, reqBody interface{}, result interface{}) error {
	statusCode, body, err := q.rawRequestJSON(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	if statusCode != http.StatusOK {
		return fmt.Errorf("API调用失败，状态码: %d, 响应: %s", statusCode, string(body))
	}
	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("解析响应体失败: %w", err)
		}
	}
	return nil
}

// rawRequestJSON 序列化请求体并发送，返回状态码和原始响应体
func (q *QdrantStore) rawRequestJSON(ctx context.Context, method, path string, reqBody interface{}) (int, []byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}
	return q.rawRequest(ctx, method, path, bodyReader)
}

func (q *QdrantStore) rawRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, q.endpoint+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	// 注入OpenTelemetry追踪上下文到HTTP请求
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
