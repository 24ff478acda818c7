package service

import (
	"context"
	"strings"
	"sync"

	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/util"
)

// SemanticScorer 语义相似度打分的最小接口，测试时可替换
type SemanticScorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// JudgeService 判题：单条答案 → 基础结论，再按连错次数升级提示。
// 阈值支持配置热更新，读写用锁隔离。
type JudgeService struct {
	scorer SemanticScorer

	mu             sync.RWMutex
	threshold      float64
	fuzzyThreshold int
}

func NewJudgeService(scorer SemanticScorer, cfg config.EvaluationConfig) *JudgeService {
	return &JudgeService{
		scorer:         scorer,
		threshold:      cfg.Threshold,
		fuzzyThreshold: cfg.FuzzyThreshold,
	}
}

// SetThresholds 配置文件变更时由watcher回调
func (j *JudgeService) SetThresholds(threshold float64, fuzzyThreshold int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if threshold > 0 {
		j.threshold = threshold
	}
	if fuzzyThreshold > 0 {
		j.fuzzyThreshold = fuzzyThreshold
	}
}

func (j *JudgeService) Thresholds() (float64, int) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.threshold, j.fuzzyThreshold
}

// IsNotAnAnswer 空输入或用户在请求重讲/再问一遍，不判题也不动连错计数。
// 关键词匹配用原始小写文本，不做标准化，避免把答案里的正常词误伤。
func IsNotAnAnswer(raw string) bool {
	if util.NormalizeText(raw) == "" {
		return true
	}
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "explain") || strings.Contains(lower, "again")
}

// JudgeQuestion 按题目配置的方式判定一条答案。
// priorAssistant 是该答案之前最近一条assistant消息，semantic模式的对照文本。
func (j *JudgeService) JudgeQuestion(ctx context.Context, raw string, q model.Question, priorAssistant string) (model.Verdict, error) {
	if IsNotAnAnswer(raw) {
		return model.Verdict{Kind: model.VerdictNotAnAnswer}, nil
	}

	switch q.EffectiveMode() {
	case model.ModeContains:
		return j.judgeContains(raw, q), nil
	case model.ModeSemantic:
		return j.judgeSemantic(ctx, raw, priorAssistant)
	default:
		return j.judgeFuzzy(raw, q), nil
	}
}

// JudgeFreeform 无题库配置时的默认判定，与上一条assistant消息做语义对照
func (j *JudgeService) JudgeFreeform(ctx context.Context, raw, priorAssistant string) (model.Verdict, error) {
	if IsNotAnAnswer(raw) {
		return model.Verdict{Kind: model.VerdictNotAnAnswer}, nil
	}
	return j.judgeSemantic(ctx, raw, priorAssistant)
}

func (j *JudgeService) judgeContains(raw string, q model.Question) model.Verdict {
	normalized := util.NormalizeText(raw)
	for _, candidate := range q.CorrectAnswers {
		if strings.Contains(normalized, util.NormalizeText(candidate)) {
			return model.Verdict{Kind: model.VerdictCorrect, Score: 1}
		}
	}
	return model.Verdict{Kind: model.VerdictIncorrect, Score: 0}
}

func (j *JudgeService) judgeFuzzy(raw string, q model.Question) model.Verdict {
	_, fuzzyThreshold := j.Thresholds()

	normalized := util.NormalizeText(raw)
	best := 0
	for _, candidate := range q.CorrectAnswers {
		if ratio := FuzzyRatio(raw, candidate); ratio > best {
			best = ratio
		}
	}

	score := float64(best) / 100
	if best >= fuzzyThreshold {
		return model.Verdict{Kind: model.VerdictCorrect, Score: score}
	}

	// 比值不达标时的兜底：答案里原样包含某个标准答案
	if q.CheckPartial {
		for _, candidate := range q.CorrectAnswers {
			if strings.Contains(normalized, util.NormalizeText(candidate)) {
				return model.Verdict{Kind: model.VerdictCorrect, Score: score}
			}
		}
	}
	return model.Verdict{Kind: model.VerdictIncorrect, Score: score}
}

func (j *JudgeService) judgeSemantic(ctx context.Context, raw, priorAssistant string) (model.Verdict, error) {
	threshold, _ := j.Thresholds()

	score, err := j.scorer.Score(ctx, raw, priorAssistant)
	if err != nil {
		return model.Verdict{}, err
	}
	if score >= threshold {
		return model.Verdict{Kind: model.VerdictCorrect, Score: score}, nil
	}
	return model.Verdict{Kind: model.VerdictIncorrect, Score: score}, nil
}

// SemanticScore 裸相似度，整场评估阶段用
func (j *JudgeService) SemanticScore(ctx context.Context, answer, priorAssistant string) (float64, error) {
	return j.scorer.Score(ctx, answer, priorAssistant)
}

// PassThreshold 整场评估的及格线
func (j *JudgeService) PassThreshold() float64 {
	threshold, _ := j.Thresholds()
	return threshold
}

// Escalate 把基础结论与当前连错次数映射到最终结论与新的计数。
// 连错第1次提示错误，第2次简短讲解，第3次讲解后强制进入下一题并清零。
// not_an_answer 不影响计数，答对清零。
func Escalate(v model.Verdict, attempts int) (model.Verdict, int) {
	switch v.Kind {
	case model.VerdictNotAnAnswer:
		return v, attempts
	case model.VerdictCorrect:
		return v, 0
	}

	attempts++
	switch {
	case attempts >= 3:
		v.Kind = model.VerdictExplainAndMoveOn
		return v, 0
	case attempts == 2:
		v.Kind = model.VerdictExplainBriefly
		return v, attempts
	default:
		v.Kind = model.VerdictIncorrect
		return v, attempts
	}
}
