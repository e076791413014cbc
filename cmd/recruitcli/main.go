package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"smart-recruit-go/internal/chunker"
	"smart-recruit-go/internal/config"
	"smart-recruit-go/internal/corpus"
	"smart-recruit-go/internal/ingest"
	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/matching"
	"smart-recruit-go/internal/provider"
	"smart-recruit-go/internal/query"
	"smart-recruit-go/internal/storage"
	"smart-recruit-go/internal/types"
)

// 命令行参数
var (
	configPath     string
	memoryMode     bool
	jobFile        string
	candidatesFile string
	questionText   string
	queryMode      string
	candidateID    string
	jobID          string
	persona        string
	topK           int
	collection     string
)

func main() {
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，留空则按默认路径搜索")
	pflag.BoolVar(&memoryMode, "memory", false, "使用进程内存储，不连接Qdrant/MySQL/Redis")
	pflag.StringVar(&jobFile, "job", "", "岗位档案JSON文件路径")
	pflag.StringVar(&candidatesFile, "candidates", "", "候选人档案JSON文件路径（数组）")
	pflag.StringVarP(&questionText, "query", "q", "", "自然语言问题")
	pflag.StringVar(&queryMode, "mode", "", "检索模式: specific/job_scoped/full_corpus，留空自动推断")
	pflag.StringVar(&candidateID, "candidate-id", "", "候选人ID")
	pflag.StringVar(&jobID, "job-id", "", "岗位ID")
	pflag.StringVar(&persona, "persona", "recruiter", "回答口吻: recruiter/candidate")
	pflag.IntVar(&topK, "top-k", 0, "检索结果数量，0表示使用模式默认值")
	pflag.StringVar(&collection, "collection", "", "集合名（clear命令用）")
	pflag.Parse()

	if pflag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "用法: recruitcli [flags] <ingest|score|ask|stats|profiles|clear>")
		pflag.PrintDefaults()
		os.Exit(1)
	}
	command := pflag.Arg(0)

	// 加载.env中的环境变量（如果存在）
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化失败")
	}
	defer app.Close()

	switch command {
	case "ingest":
		err = runIngest(ctx, app)
	case "score":
		err = runScore(ctx, app)
	case "ask":
		err = runAsk(ctx, app)
	case "stats":
		err = runStats(ctx, app)
	case "profiles":
		err = runProfiles(ctx, app)
	case "clear":
		err = runClear(ctx, app)
	default:
		fmt.Fprintf(os.Stderr, "未知命令 '%s'，支持的命令: ingest, score, ask, stats, profiles, clear\n", command)
		os.Exit(1)
	}
	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("命令执行失败")
		os.Exit(1)
	}
}

// App 汇集全部已初始化的组件
type App struct {
	cfg       *config.Config
	index     *corpus.CorpusIndex
	scorer    *matching.Scorer
	matches   storage.MatchResultStore
	profiles  storage.ProfileStore
	pipeline  *ingest.Pipeline
	answering *query.AnswerService

	mysql *storage.MySQL
	redis *storage.Redis
}

// buildApp 按依赖顺序装配组件
// 进程内模式跳过全部外部存储，便于本地试用和测试
func buildApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg}

	embedder, err := provider.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		return nil, fmt.Errorf("初始化Embedding客户端失败: %w", err)
	}

	chatModel, err := provider.NewQwenChatModel(cfg.Aliyun.APIKey, cfg.Aliyun.Model, cfg.Aliyun.APIURL)
	if err != nil {
		return nil, fmt.Errorf("初始化大模型客户端失败: %w", err)
	}
	generator := provider.NewGenerator(chatModel)

	var store corpus.VectorStore
	var matcherOpts []matching.SkillMatcherOption
	if memoryMode {
		store = corpus.NewMemoryVectorStore()
		app.matches = storage.NewMemoryMatchStore()
		app.profiles = storage.NewMemoryProfileStore()
	} else {
		qdrant, err := corpus.NewQdrantStore(&cfg.Qdrant)
		if err != nil {
			return nil, fmt.Errorf("初始化Qdrant失败: %w", err)
		}
		store = qdrant

		mysql, err := storage.NewMySQL(&cfg.MySQL)
		if err != nil {
			return nil, fmt.Errorf("初始化MySQL失败: %w", err)
		}
		app.mysql = mysql
		app.matches = storage.NewMySQLMatchStore(mysql)
		app.profiles = storage.NewMySQLProfileStore(mysql)

		// Redis缓存是可选优化，连不上时降级为直连Embedding服务
		redis, err := storage.NewRedis(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis不可用，跳过技能向量缓存")
		} else {
			app.redis = redis
			matcherOpts = append(matcherOpts, matching.WithEmbeddingCache(storage.NewSkillEmbeddingCache(redis)))
		}
	}

	app.index = corpus.NewCorpusIndex(store, embedding.Embedder(embedder), chunker.NewChunker(cfg.Chunking), cfg.Aliyun.Embedding.Dimensions)

	matcher := matching.NewSkillMatcher(embedder, cfg.Matching, matcherOpts...)
	app.scorer = matching.NewScorer(matcher, cfg.Matching)
	app.pipeline = ingest.NewPipeline(app.index, app.scorer, app.matches, embedder,
		ingest.WithProfileStore(app.profiles))
	app.answering = query.NewAnswerService(
		query.NewRetriever(app.index, app.matches, cfg.Router),
		query.NewAssembler(cfg.Assembler),
		generator,
	)
	return app, nil
}

// Close 释放外部连接
func (a *App) Close() {
	if a.mysql != nil {
		if err := a.mysql.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}

// profileInput 档案JSON文件的结构
type profileInput struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Text            string   `json:"text"`
	Skills          []string `json:"skills"`
	ExperienceYears float64  `json:"experience_years"`
	EducationLevel  string   `json:"education_level"`
}

func loadJobProfile() (*types.Profile, error) {
	if jobFile == "" {
		return nil, nil
	}
	var in profileInput
	if err := readJSONFile(jobFile, &in); err != nil {
		return nil, err
	}
	return matching.NewJobProfile(in.ID, in.Name, in.Text, in.Skills, in.ExperienceYears, in.EducationLevel)
}

func loadCandidateProfiles() ([]*types.Profile, error) {
	if candidatesFile == "" {
		return nil, nil
	}
	var ins []profileInput
	if err := readJSONFile(candidatesFile, &ins); err != nil {
		return nil, err
	}
	out := make([]*types.Profile, 0, len(ins))
	for _, in := range ins {
		p, err := matching.NewCandidateProfile(in.ID, in.Name, in.Text, in.Skills, in.ExperienceYears, in.EducationLevel)
		if err != nil {
			return nil, fmt.Errorf("候选人 '%s' 档案无效: %w", in.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func readJSONFile(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取文件失败: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("解析JSON失败 (%s): %w", path, err)
	}
	return nil
}

// runIngest 岗位和候选人批量入库
func runIngest(ctx context.Context, app *App) error {
	job, err := loadJobProfile()
	if err != nil {
		return err
	}
	candidates, err := loadCandidateProfiles()
	if err != nil {
		return err
	}
	if job == nil && len(candidates) == 0 {
		return fmt.Errorf("至少需要指定 --job 或 --candidates")
	}

	if job != nil {
		if err := app.pipeline.IngestJob(ctx, job); err != nil {
			return err
		}
		logger.Info().Str("job_id", job.ID).Msg("岗位已入库")
	}
	if len(candidates) > 0 {
		summary := app.pipeline.IngestCandidates(ctx, job, candidates)
		return printJSON(summary)
	}
	return nil
}

// runScore 对单个候选人-岗位对评分并打印结果
func runScore(ctx context.Context, app *App) error {
	job, err := loadJobProfile()
	if err != nil {
		return err
	}
	candidates, err := loadCandidateProfiles()
	if err != nil {
		return err
	}
	if job == nil || len(candidates) != 1 {
		return fmt.Errorf("score命令需要 --job 和恰好一位候选人的 --candidates")
	}

	summary := app.pipeline.IngestCandidates(ctx, job, candidates[:1])
	if summary.Failed > 0 {
		return fmt.Errorf("评分失败: %s", summary.Failures[0].Reason)
	}
	result, err := app.matches.GetMatch(ctx, candidates[0].ID, job.ID)
	if err != nil {
		return err
	}
	return printJSON(result)
}

// runAsk 检索增强问答
func runAsk(ctx context.Context, app *App) error {
	if questionText == "" {
		return fmt.Errorf("ask命令需要 --query")
	}
	answer, err := app.answering.Ask(ctx, types.Query{
		Mode:        types.QueryMode(queryMode),
		Text:        questionText,
		CandidateID: candidateID,
		JobID:       jobID,
		Persona:     types.Persona(persona),
		TopK:        topK,
	})
	if err != nil {
		return err
	}
	return printJSON(answer)
}

// runStats 打印各集合的分块数
func runStats(ctx context.Context, app *App) error {
	stats, err := app.index.Stats(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

// runProfiles 列出语料库登记的档案来源
func runProfiles(ctx context.Context, app *App) error {
	var kind types.ProfileKind
	switch pflag.Arg(1) {
	case "candidate":
		kind = types.ProfileCandidate
	case "job":
		kind = types.ProfileJob
	case "":
	default:
		return fmt.Errorf("未知档案类型 '%s'，支持: candidate, job", pflag.Arg(1))
	}
	entries, err := app.profiles.ListProfiles(ctx, kind)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

// runClear 删除指定集合
func runClear(ctx context.Context, app *App) error {
	if collection == "" {
		return fmt.Errorf("clear命令需要 --collection")
	}
	if err := app.index.Clear(ctx, collection); err != nil {
		return err
	}
	logger.Info().Str("collection", collection).Msg("集合已删除")
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
