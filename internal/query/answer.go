package query

import (
	"context"
	"fmt"

	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/types"
)

// Generator 文本生成接口，由provider.Generator实现
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Answer 一次问答的结果
type Answer struct {
	Text    string            `json:"text"`
	Sources []types.SourceRef `json:"sources"`
	Mode    types.QueryMode   `json:"mode"`
	// Grounded 为false表示语料库中没有可用内容，回答未经过检索支撑
	Grounded bool `json:"grounded"`
}

// AnswerService 检索增强问答服务
type AnswerService struct {
	retriever *Retriever
	assembler *Assembler
	generator Generator
}

// NewAnswerService 创建问答服务
func NewAnswerService(retriever *Retriever, assembler *Assembler, generator Generator) *AnswerService {
	return &AnswerService{
		retriever: retriever,
		assembler: assembler,
		generator: generator,
	}
}

const recruiterSystemPrompt = `你是一名专业的招聘助理，帮助招聘方评估候选人并做出决策。
回答规则：
1. 只依据提供的上下文回答，不要编造上下文之外的信息。
2. 上下文可能包含多位候选人的信息，用姓名区分他们。
3. 被问到某位候选人时，在上下文中查找对应的内容。
4. 被要求比较候选人时，逐项对比各自的上下文信息。
5. 上下文中找不到答案时，明确回答"提供的资料中没有这个信息"。`

const candidateSystemPrompt = `你是一名职业发展顾问，帮助候选人理解岗位要求并改进自己的履历。
回答规则：
1. 依据提供的上下文（简历和岗位描述）回答问题。
2. 被问到改进建议时，对比简历与岗位要求找出差距，给出可执行的建议。
3. 可以结合通用的招聘常识，但必须落到上下文中的具体细节上。
4. 语气专业、鼓励、具体。
5. 与求职和招聘无关的问题，礼貌说明只能协助职业发展相关话题。`

// Ask 回答一个自然语言问题
// 空语料不是错误：返回固定的无内容回答，不调用大模型
func (s *AnswerService) Ask(ctx context.Context, q types.Query) (*Answer, error) {
	result, err := s.retriever.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}

	assembled := s.assembler.Assemble(result)
	if assembled.Empty {
		logger.Info().
			Str("mode", string(result.Plan.Mode)).
			Msg("语料库中没有可用内容，返回未检索支撑的回答")
		return &Answer{
			Text:     "语料库中还没有任何可检索的内容，请先上传简历或岗位描述。",
			Mode:     result.Plan.Mode,
			Grounded: false,
		}, nil
	}

	persona := q.Persona
	if persona == "" {
		persona = types.PersonaRecruiter
	}
	systemPrompt := recruiterSystemPrompt
	if persona == types.PersonaCandidate {
		systemPrompt = candidateSystemPrompt
	}

	userMessage := fmt.Sprintf("上下文:\n%s\n\n问题:\n%s", assembled.Text, q.Text)

	text, err := s.generator.Generate(ctx, systemPrompt, userMessage)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:     text,
		Sources:  assembled.Sources,
		Mode:     result.Plan.Mode,
		Grounded: true,
	}, nil
}
