package model

import (
	"encoding/json"
	"fmt"
)

// ComparisonMode 判题方式，封闭集合；新增方式必须同时扩展判题的switch
type ComparisonMode string

const (
	// 模糊匹配（编辑距离比值 >= 阈值），默认方式
	ModeFuzzy ComparisonMode = "fuzzy"
	// 包含匹配：答案包含任一标准答案即正确
	ModeContains ComparisonMode = "contains"
	// 语义匹配：与上一条assistant消息做向量相似度
	ModeSemantic ComparisonMode = "semantic"
)

func ValidComparisonMode(m ComparisonMode) bool {
	switch m {
	case ModeFuzzy, ModeContains, ModeSemantic:
		return true
	}
	return false
}

// AnswerList 标准答案，JSON里既可能是单个字符串也可能是数组
type AnswerList []string

func (a *AnswerList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = AnswerList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("correctAnswer must be a string or an array of strings")
	}
	*a = AnswerList(many)
	return nil
}

func (a AnswerList) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// Question 题库中的一道题，加载后不可变
// swagger:model Question
type Question struct {
	Prompt         string         `json:"prompt"`
	CorrectAnswers AnswerList     `json:"correctAnswer"`
	Hint           string         `json:"hint,omitempty"`
	Mode           ComparisonMode `json:"mode,omitempty"` // 为空时按fuzzy处理
	// 开启后即便模糊比值不达标，包含任一标准答案也算正确
	CheckPartial bool `json:"checkPartial,omitempty"`
}

// EffectiveMode 空mode回退到fuzzy
func (q Question) EffectiveMode() ComparisonMode {
	if q.Mode == "" {
		return ModeFuzzy
	}
	return q.Mode
}

// QuestionBank 场景 → 等级 → 有序题目列表
type QuestionBank map[string]map[Level][]Question

// Validate 加载期校验，题库不合法直接拒绝启动，绝不留到判题时再炸
func (b QuestionBank) Validate() error {
	for scenario, byLevel := range b {
		if scenario == "" {
			return fmt.Errorf("question bank contains an empty scenario name")
		}
		for level, questions := range byLevel {
			if !ValidLevel(level) {
				return fmt.Errorf("scenario %q: unknown level %q", scenario, level)
			}
			for i, q := range questions {
				if q.Prompt == "" {
					return fmt.Errorf("scenario %q level %q question #%d: missing prompt", scenario, level, i+1)
				}
				if !ValidComparisonMode(q.EffectiveMode()) {
					return fmt.Errorf("scenario %q level %q question #%d: unknown comparison mode %q", scenario, level, i+1, q.Mode)
				}
				// 语义模式对照的是对话上文，不需要标准答案列表
				if q.EffectiveMode() != ModeSemantic && len(q.CorrectAnswers) == 0 {
					return fmt.Errorf("scenario %q level %q question #%d: missing correctAnswer", scenario, level, i+1)
				}
				for _, ans := range q.CorrectAnswers {
					if ans == "" {
						return fmt.Errorf("scenario %q level %q question #%d: empty correctAnswer entry", scenario, level, i+1)
					}
				}
			}
		}
	}
	return nil
}

// Prompts 题面列表
func Prompts(questions []Question) []string {
	out := make([]string, 0, len(questions))
	for _, q := range questions {
		out = append(out, q.Prompt)
	}
	return out
}
