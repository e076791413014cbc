package types

// QueryMode 检索范围模式
type QueryMode string

const (
	// QuerySpecific 针对单个候选人
	QuerySpecific QueryMode = "specific"
	// QueryJobScoped 针对某个岗位及其关联候选人
	QueryJobScoped QueryMode = "job_scoped"
	// QueryFullCorpus 全库检索
	QueryFullCorpus QueryMode = "full_corpus"
)

// Persona 回答的叙述口吻
type Persona string

const (
	PersonaRecruiter Persona = "recruiter"
	PersonaCandidate Persona = "candidate"
)

// Query 一次自然语言检索请求
type Query struct {
	Mode        QueryMode `json:"mode"`
	Text        string    `json:"text"`
	CandidateID string    `json:"candidate_id,omitempty"`
	JobID       string    `json:"job_id,omitempty"`
	Persona     Persona   `json:"persona"`
	// TopK 期望的结果数量预算，0表示使用模式默认值
	TopK int `json:"top_k"`
}

// CollectionQuery 检索计划中对单个集合的一次查询
type CollectionQuery struct {
	Collection string                 `json:"collection"`
	Filter     map[string]interface{} `json:"filter,omitempty"`
	TopK       int                    `json:"top_k"`
}

// RetrievalPlan 路由决议后的检索计划
// 由纯函数Route产生，执行不在此结构的职责内
type RetrievalPlan struct {
	// Mode 降级解析后的实际模式
	Mode QueryMode `json:"mode"`

	Collections []CollectionQuery `json:"collections"`

	// IncludeStructured 为true时额外执行结构化MatchResult遍历
	// （全库模式专用，结构化结果无条件并入，不参与相似度排序）
	IncludeStructured bool `json:"include_structured"`
	// StructuredJobID 非空时结构化遍历仅限该岗位
	StructuredJobID string `json:"structured_job_id,omitempty"`
}
