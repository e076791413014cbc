package provider

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"

	"smart-recruit-go/internal/logger"
	"smart-recruit-go/internal/types"
)

// Generator 包装eino ChatModel，提供带重试的文本生成
type Generator struct {
	chatModel  model.ToolCallingChatModel
	maxRetries int
	retryWait  time.Duration
}

// GeneratorOption 定义Generator的配置选项
type GeneratorOption func(*Generator)

// WithGenerationRetries 设置重试次数和初始重试间隔
func WithGenerationRetries(maxRetries int, wait time.Duration) GeneratorOption {
	return func(g *Generator) {
		g.maxRetries = maxRetries
		g.retryWait = wait
	}
}

// NewGenerator 创建生成器
func NewGenerator(chatModel model.ToolCallingChatModel, opts ...GeneratorOption) *Generator {
	g := &Generator{
		chatModel:  chatModel,
		maxRetries: 2,
		retryWait:  time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate 以系统提示词加用户消息调用大模型，返回生成文本
// 重试耗尽后包装为ProviderError上抛
func (g *Generator) Generate(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	messages := []*einoschema.Message{
		einoschema.SystemMessage(systemPrompt),
		einoschema.UserMessage(userMessage),
	}

	var lastErr error
	wait := g.retryWait

	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn().
				Int("attempt", attempt).
				Err(lastErr).
				Msg("大模型调用失败，准备重试")
			select {
			case <-ctx.Done():
				return "", &types.ProviderError{Provider: "generation", Attempts: attempt, BaseErr: ctx.Err()}
			case <-time.After(wait):
			}
			wait *= 2
		}

		resp, err := g.chatModel.Generate(ctx, messages)
		if err == nil && resp != nil {
			return resp.Content, nil
		}
		if err != nil {
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}

	return "", &types.ProviderError{
		Provider: "generation",
		Attempts: g.maxRetries + 1,
		BaseErr:  lastErr,
	}
}
