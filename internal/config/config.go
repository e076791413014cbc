package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	Aliyun struct {
		APIKey    string          `yaml:"api_key"`
		APIURL    string          `yaml:"api_url"`
		Model     string          `yaml:"model"`
		Embedding EmbeddingConfig `yaml:"embedding"`
	} `yaml:"aliyun"`

	Qdrant QdrantConfig `yaml:"qdrant"`

	// 匹配评分配置
	Matching MatchingConfig `yaml:"matching"`

	// 分块配置
	Chunking ChunkingConfig `yaml:"chunking"`

	// 检索路由配置
	Router RouterConfig `yaml:"router"`

	// 上下文组装配置
	Assembler AssemblerConfig `yaml:"assembler"`

	MySQL MySQLConfig `yaml:"mysql"`

	Redis RedisConfig `yaml:"redis"`

	Logger LoggerConfig `yaml:"logger"`
}

// EmbeddingConfig Aliyun Embedding配置
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"`       // 调用失败的最大重试次数
	RetryWait  string `yaml:"retry_wait"`        // 初始重试间隔，如 "500ms"
	BatchSize  int    `yaml:"batch_size"`        // 单次请求最多的文本数
	Timeout    int    `yaml:"timeout_seconds"`   // HTTP超时(秒)
}

// QdrantConfig Qdrant向量数据库配置
type QdrantConfig struct {
	Endpoint           string `yaml:"endpoint"`
	Dimension          int    `yaml:"dimension"`
	APIKey             string `yaml:"api_key,omitempty"`
	DefaultSearchLimit int    `yaml:"default_search_limit"`
}

// MatchingConfig 评分权重、阈值与等级边界，均为策略配置而非硬编码常量
type MatchingConfig struct {
	// 各维度权重，要求总和为1
	SemanticWeight   float64 `yaml:"semantic_weight"`
	SkillWeight      float64 `yaml:"skill_weight"`
	ExperienceWeight float64 `yaml:"experience_weight"`
	EducationWeight  float64 `yaml:"education_weight"`

	// 技能匹配阈值
	FuzzyThreshold    float64 `yaml:"fuzzy_threshold"`    // 编辑距离相似比下限
	SemanticThreshold float64 `yaml:"semantic_threshold"` // 余弦相似度下限

	// 学历等级序，数值越大等级越高
	EducationRanks map[string]int `yaml:"education_ranks"`
	// 学历分量的部分得分
	EducationOneBelowScore  float64 `yaml:"education_one_below_score"`
	EducationFarBelowScore  float64 `yaml:"education_far_below_score"`
	EducationUnknownScore   float64 `yaml:"education_unknown_score"`

	// 等级边界，按总分降序排列；分数大于等于边界即获得该等级
	GradeBands []GradeBand `yaml:"grade_bands"`

	// 叙述事实选取时每类最多取的技能数
	NarrativeTopN int `yaml:"narrative_top_n"`
	// 分量被视为优势/劣势的阈值
	StrongComponentThreshold float64 `yaml:"strong_component_threshold"`
	WeakComponentThreshold   float64 `yaml:"weak_component_threshold"`
}

// GradeBand 单个等级的下界
type GradeBand struct {
	Grade    string  `yaml:"grade"`
	MinScore float64 `yaml:"min_score"`
}

// ChunkingConfig 文本分块配置
type ChunkingConfig struct {
	MaxChars     int `yaml:"max_chars"`     // 单块最大字符数
	OverlapChars int `yaml:"overlap_chars"` // 相邻块重叠字符数
	LookBack     int `yaml:"look_back"`     // 回溯寻找空白断点的窗口
}

// RouterConfig 检索路由配置
type RouterConfig struct {
	// specific模式附带岗位时，候选人/岗位两路的k值分配比例
	CandidateShare float64 `yaml:"candidate_share"`
	// 各模式的k值边界
	JobScopedMinK  int `yaml:"job_scoped_min_k"`
	JobScopedMaxK  int `yaml:"job_scoped_max_k"`
	FullCorpusMinK int `yaml:"full_corpus_min_k"`
	FullCorpusMaxK int `yaml:"full_corpus_max_k"`
	SpecificK      int `yaml:"specific_k"`
}

// AssemblerConfig 上下文组装配置
type AssemblerConfig struct {
	TokenBudget   int `yaml:"token_budget"`    // 上下文预算(token)
	CharsPerToken int `yaml:"chars_per_token"` // token到字符的换算比
}

// MySQLConfig MySQL配置结构
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	// 连接池设置
	MaxIdleConns int `yaml:"max_idle_conns"`
	MaxOpenConns int `yaml:"max_open_conns"`
	// 连接生命周期
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
	ConnMaxIdleTimeMinutes int `yaml:"conn_max_idle_time_minutes"`
	// 超时设置
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	ReadTimeoutSeconds    int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds   int `yaml:"write_timeout_seconds"`
	// 日志设置
	LogLevel int `yaml:"log_level"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	// 重试设置
	MaxRetries        int `yaml:"max_retries"`
	MinRetryBackoffMS int `yaml:"min_retry_backoff_ms"`
	MaxRetryBackoffMS int `yaml:"max_retry_backoff_ms"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	TimeFormat   string `yaml:"time_format"`
	ReportCaller bool   `yaml:"report_caller"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
			"../config.yaml",
			filepath.Join(os.Getenv("HOME"), ".smart-recruit", "config.yaml"),
		}

		execPath, err := os.Executable()
		if err == nil {
			execDir := filepath.Dir(execPath)
			searchPaths = append(searchPaths, filepath.Join(execDir, "config.yaml"))
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		// 找不到配置文件时，测试环境返回默认配置
		if configPath == "" {
			if inTestEnv() {
				return DefaultConfig(), nil
			}
			configPath = "config.yaml"
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		if inTestEnv() {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖配置（如果存在）
	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	}
	if envURL := os.Getenv("ALIYUN_API_URL"); envURL != "" {
		config.Aliyun.APIURL = envURL
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// inTestEnv 判断当前是否在go test环境中
func inTestEnv() bool {
	for _, arg := range os.Args {
		if strings.Contains(arg, "test") {
			return true
		}
	}
	return false
}

// Validate 校验配置的合法性
func (c *Config) Validate() error {
	m := c.Matching
	total := m.SemanticWeight + m.SkillWeight + m.ExperienceWeight + m.EducationWeight
	if math.Abs(total-1.0) > 0.01 {
		return fmt.Errorf("匹配权重之和必须为1.0，实际为%.4f", total)
	}
	if m.FuzzyThreshold <= 0 || m.FuzzyThreshold > 1 {
		return fmt.Errorf("模糊匹配阈值必须在(0,1]内: %.2f", m.FuzzyThreshold)
	}
	if m.SemanticThreshold <= 0 || m.SemanticThreshold > 1 {
		return fmt.Errorf("语义匹配阈值必须在(0,1]内: %.2f", m.SemanticThreshold)
	}
	if c.Chunking.MaxChars <= c.Chunking.OverlapChars+c.Chunking.LookBack {
		return fmt.Errorf("分块max_chars(%d)必须大于overlap(%d)+look_back(%d)",
			c.Chunking.MaxChars, c.Chunking.OverlapChars, c.Chunking.LookBack)
	}
	if len(m.GradeBands) == 0 {
		return fmt.Errorf("等级边界表不能为空")
	}
	return nil
}

// DefaultConfig 创建默认配置，用于测试环境和配置文件缺省值
func DefaultConfig() *Config {
	config := &Config{}

	config.Aliyun.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	config.Aliyun.Model = "qwen-turbo"
	config.Aliyun.Embedding.Model = "text-embedding-v3"
	config.Aliyun.Embedding.Dimensions = 1024
	config.Aliyun.Embedding.BaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	config.Aliyun.Embedding.MaxRetries = 3
	config.Aliyun.Embedding.RetryWait = "500ms"
	config.Aliyun.Embedding.BatchSize = 25
	config.Aliyun.Embedding.Timeout = 30

	config.Qdrant.Endpoint = "http://localhost:6333"
	config.Qdrant.Dimension = 1024
	config.Qdrant.DefaultSearchLimit = 10

	config.Matching = MatchingConfig{
		SemanticWeight:   0.40,
		SkillWeight:      0.30,
		ExperienceWeight: 0.20,
		EducationWeight:  0.10,

		FuzzyThreshold:    0.85,
		SemanticThreshold: 0.75,

		EducationRanks: map[string]int{
			"none":      0,
			"associate": 1,
			"bachelor":  2,
			"master":    3,
			"doctorate": 4,
		},
		EducationOneBelowScore: 60,
		EducationFarBelowScore: 30,
		EducationUnknownScore:  70,

		GradeBands: []GradeBand{
			{Grade: "A+", MinScore: 90},
			{Grade: "A", MinScore: 85},
			{Grade: "B", MinScore: 75},
			{Grade: "C", MinScore: 65},
			{Grade: "D", MinScore: 0},
		},

		NarrativeTopN:            3,
		StrongComponentThreshold: 85,
		WeakComponentThreshold:   60,
	}

	config.Chunking = ChunkingConfig{
		MaxChars:     500,
		OverlapChars: 50,
		LookBack:     50,
	}

	config.Router = RouterConfig{
		CandidateShare: 0.7,
		JobScopedMinK:  30,
		JobScopedMaxK:  50,
		FullCorpusMinK: 20,
		FullCorpusMaxK: 30,
		SpecificK:      10,
	}

	config.Assembler = AssemblerConfig{
		TokenBudget:   8000,
		CharsPerToken: 4,
	}

	config.MySQL.Host = "localhost"
	config.MySQL.Port = 3306
	config.MySQL.Username = "root"
	config.MySQL.Password = "password"
	config.MySQL.Database = "smart_recruit"
	config.MySQL.MaxIdleConns = 10
	config.MySQL.MaxOpenConns = 100
	config.MySQL.ConnMaxLifetimeMinutes = 60
	config.MySQL.ConnMaxIdleTimeMinutes = 30
	config.MySQL.ConnectTimeoutSeconds = 10
	config.MySQL.ReadTimeoutSeconds = 30
	config.MySQL.WriteTimeoutSeconds = 30
	config.MySQL.LogLevel = 4

	config.Redis.Address = "localhost:6379"
	config.Redis.DB = 0
	config.Redis.PoolSize = 10
	config.Redis.MinIdleConns = 2
	config.Redis.DialTimeoutSeconds = 5
	config.Redis.ReadTimeoutSeconds = 3
	config.Redis.WriteTimeoutSeconds = 3
	config.Redis.MaxRetries = 3
	config.Redis.MinRetryBackoffMS = 8
	config.Redis.MaxRetryBackoffMS = 512

	config.Logger.Level = "info"
	config.Logger.Format = "pretty"
	config.Logger.TimeFormat = "2006-01-02 15:04:05"
	config.Logger.ReportCaller = true

	if envKey := os.Getenv("ALIYUN_API_KEY"); envKey != "" {
		config.Aliyun.APIKey = envKey
	}

	return config
}

// GetDuration utility to parse duration strings from config
func GetDuration(durationStr string, defaultDuration time.Duration) time.Duration {
	if durationStr == "" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return defaultDuration
	}
	return d
}
