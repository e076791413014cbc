package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/constants"
	"smart-recruit-go/internal/logger"
)

// ErrNotFound 键不存在时的错误，包装底层的redis.Nil
var ErrNotFound = redis.Nil

// Redis 封装go-redis客户端
type Redis struct {
	client *redis.Client
}

// NewRedis 创建Redis连接，启用OpenTelemetry追踪钩子
func NewRedis(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("Redis配置不能为空")
	}

	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Address,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		DialTimeout:     time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:     time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:    time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("注册Redis追踪钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}

	logger.Info().Str("address", cfg.Address).Int("db", cfg.DB).Msg("成功连接到Redis")
	return &Redis{client: client}, nil
}

// Client 返回底层客户端
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close 关闭连接
func (r *Redis) Close() error {
	return r.client.Close()
}

// SkillEmbeddingCache 技能向量的Redis缓存
// 技能文本高度重复，缓存命中可以省掉大部分Embedding调用
type SkillEmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSkillEmbeddingCache 创建技能向量缓存
func NewSkillEmbeddingCache(r *Redis) *SkillEmbeddingCache {
	return &SkillEmbeddingCache{
		client: r.client,
		ttl:    constants.SkillEmbeddingCacheTTL,
	}
}

// GetSkillEmbedding 读取缓存的技能向量
func (c *SkillEmbeddingCache) GetSkillEmbedding(ctx context.Context, skill string) ([]float64, bool, error) {
	data, err := c.client.Get(ctx, constants.SkillEmbeddingCachePrefix+skill).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取技能向量缓存失败: %w", err)
	}

	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		// 缓存内容损坏时视为未命中，由调用方重新生成
		logger.Warn().Err(err).Str("skill", skill).Msg("技能向量缓存内容损坏")
		return nil, false, nil
	}
	return vec, true, nil
}

// SetSkillEmbedding 写入技能向量缓存
func (c *SkillEmbeddingCache) SetSkillEmbedding(ctx context.Context, skill string, vec []float64) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("序列化技能向量失败: %w", err)
	}
	if err := c.client.Set(ctx, constants.SkillEmbeddingCachePrefix+skill, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("写入技能向量缓存失败: %w", err)
	}
	return nil
}
