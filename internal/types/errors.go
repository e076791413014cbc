package types

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	// ErrIncompleteProfile 档案缺少向量或必需字段，本次评分直接失败，不重试
	ErrIncompleteProfile = errors.New("档案不完整")
	// ErrProviderUnavailable 外部Embedding/生成服务调用失败（重试耗尽后上抛）
	ErrProviderUnavailable = errors.New("外部模型服务不可用")
	// ErrInvalidQuery 检索请求的模式或过滤条件非法，在任何外部调用之前拒绝
	ErrInvalidQuery = errors.New("无效的检索请求")
	// ErrDimensionMismatch 向量维度与集合配置不一致
	ErrDimensionMismatch = errors.New("向量维度不匹配")
)

// ScoringError 包含详细上下文的评分错误
type ScoringError struct {
	CandidateID string
	JobID       string
	Op          string
	BaseErr     error
	Detail      string
}

func (e *ScoringError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, 候选人:%s, 岗位:%s): %s", e.BaseErr, e.Op, e.CandidateID, e.JobID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, 候选人:%s, 岗位:%s)", e.BaseErr, e.Op, e.CandidateID, e.JobID)
}

func (e *ScoringError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ScoringError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewIncompleteProfileError 构造档案不完整错误
func NewIncompleteProfileError(candidateID, jobID, detail string) error {
	return &ScoringError{
		CandidateID: candidateID,
		JobID:       jobID,
		Op:          "score",
		BaseErr:     ErrIncompleteProfile,
		Detail:      detail,
	}
}

// ProviderError 外部服务调用失败的错误，记录重试次数
type ProviderError struct {
	Provider string // "embedding" 或 "generation"
	Attempts int
	BaseErr  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s (provider:%s, 尝试%d次): %v", ErrProviderUnavailable, e.Provider, e.Attempts, e.BaseErr)
}

func (e *ProviderError) Unwrap() error {
	return e.BaseErr
}

func (e *ProviderError) Is(target error) bool {
	return errors.Is(ErrProviderUnavailable, target) || errors.Is(e.BaseErr, target)
}
