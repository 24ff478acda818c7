package util

import "errors"

var (
	ErrUserNotFound    = errors.New("用户不存在")
	ErrEmailRegistered = errors.New("该邮箱已被注册")
	ErrWrongPassword   = errors.New("密码错误")

	// 相似度服务（向量/模糊匹配）不可用；判题逻辑必须原样上抛，
	// 绝不允许把它当成"回答错误"
	ErrScoringUnavailable = errors.New("scoring service unavailable")

	// 外部模型调用失败
	ErrTranscription = errors.New("transcription failed")
	ErrSynthesis     = errors.New("speech synthesis failed")
	ErrCompletion    = errors.New("chat completion failed")

	// 题库配置错误，加载期即失败
	ErrQuestionBank = errors.New("invalid question bank")

	// webhook推送体不是合法JSON
	ErrInvalidPayload = errors.New("payload is not valid JSON")

	ErrSessionNotFound    = errors.New("session not found")
	ErrUnknownScenario    = errors.New("unknown scenario")
	ErrSessionComplete    = errors.New("all levels already completed")
	ErrInvalidMaxQuestion = errors.New("max questions out of range")
	ErrNoActiveQuestion   = errors.New("no active question yet")
)
