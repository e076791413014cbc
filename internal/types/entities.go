package types

// ProfileKind 档案类型：候选人或岗位
type ProfileKind string

const (
	ProfileCandidate ProfileKind = "candidate"
	ProfileJob       ProfileKind = "job"
)

// Profile 表示一份已解析的候选人简历或岗位描述
// 上传一次创建一份，附加向量后不再修改（重新上传产生新ID）
type Profile struct {
	ID      string      `json:"id"`
	Kind    ProfileKind `json:"kind"`
	Name    string      `json:"name"`
	RawText string      `json:"raw_text"`

	// Skills 经过清洗和归一化去重后的技能列表（保留首次出现的原始大小写）
	Skills []string `json:"skills"`

	// ExperienceYears 候选人为实际工作年限，岗位为最低要求年限；0表示未知/不要求
	ExperienceYears float64 `json:"experience_years"`

	// EducationLevel 学历等级，如 "bachelor"、"master"；空字符串表示未知
	EducationLevel string `json:"education_level"`

	// Embedding 全文向量，维度必须与全局配置一致
	Embedding []float64 `json:"-"`
}

// HasEmbedding 判断档案是否已附加向量
func (p *Profile) HasEmbedding() bool {
	return len(p.Embedding) > 0
}

// MatchMethod 技能命中的层级
type MatchMethod string

const (
	MatchExact    MatchMethod = "exact"
	MatchFuzzy    MatchMethod = "fuzzy"
	MatchSemantic MatchMethod = "semantic"
	MatchNone     MatchMethod = "none"
)

// SkillMatchDetail 记录单个岗位要求技能的匹配明细
type SkillMatchDetail struct {
	RequiredSkill string      `json:"required_skill"`
	Method        MatchMethod `json:"method"`
	// MatchedSkill 命中的候选人技能原文，未命中时为空
	MatchedSkill string  `json:"matched_skill,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// MatchResult 一次候选人-岗位评分的完整结果，创建后不再修改
type MatchResult struct {
	CandidateID string `json:"candidate_id"`
	JobID       string `json:"job_id"`

	// 各维度分量，均在[0,100]
	SemanticScore   float64 `json:"semantic_score"`
	SkillScore      float64 `json:"skill_score"`
	ExperienceScore float64 `json:"experience_score"`
	EducationScore  float64 `json:"education_score"`

	// SkillsExcluded 岗位未列出任何要求技能时为true，此时技能分量不参与加权
	SkillsExcluded bool `json:"skills_excluded"`

	// TotalScore 加权总分，四舍五入到整数百分比
	TotalScore int    `json:"total_score"`
	Grade      string `json:"grade"`

	MatchedSkills []string           `json:"matched_skills"`
	MissingSkills []string           `json:"missing_skills"`
	SkillDetails  []SkillMatchDetail `json:"skill_details"`

	// 叙述性事实选取结果，供生成层组织成文
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []string `json:"recommendations"`
}

// DocumentChunk 一个可独立检索的文本分块
type DocumentChunk struct {
	SourceID   string `json:"source_id"`
	SourceType string `json:"source_type"`
	// Index 同一来源内从0开始连续递增
	Index     int                    `json:"chunk_index"`
	Text      string                 `json:"text"`
	Embedding []float64              `json:"-"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// RetrievedChunk 一次检索命中的分块及其相似度
type RetrievedChunk struct {
	Text     string                 `json:"text"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
	// Seq 插入序号，相似度相同时按此稳定排序
	Seq int `json:"-"`
}

// SourceRef 上下文中出现过的来源标识 (name, type)
type SourceRef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}
