package constants

import "time"

const (
	// 全局候选人集合：所有候选人简历的分块
	CollectionGlobalCandidates = "global_candidates"
	// 全局岗位集合：所有岗位描述的分块
	CollectionGlobalJobs = "global_jobs"
	// 岗位专属集合前缀，完整名称为 job_{job_id}
	JobCollectionPrefix = "job_"

	// 分块元数据的固定键
	MetaKeySourceID   = "source_id"
	MetaKeySourceType = "source_type"
	MetaKeyChunkIndex = "chunk_index"
	MetaKeyName       = "name"
	MetaKeyCandidate  = "candidate_id"
	MetaKeyJob        = "job_id"

	// 文档来源类型
	SourceTypeCV             = "cv"
	SourceTypeJobDescription = "job_description"
)

const (
	// Redis键前缀与过期时间
	SkillEmbeddingCachePrefix = "cache:skill_embedding:"
	SkillEmbeddingCacheTTL    = 7 * 24 * time.Hour
)

// JobCollection 返回岗位专属集合的名称
func JobCollection(jobID string) string {
	return JobCollectionPrefix + jobID
}
