package model

import "time"

type SessionState string

const (
	// 等待用户自我介绍，首条发言不判题
	StateAwaitingIntroduction SessionState = "awaiting_introduction"
	// 面试进行中
	StateInProgress SessionState = "in_progress"
	// 三个等级全部通过，终态
	StateAllLevelsComplete SessionState = "all_levels_complete"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn 对话记录中的一条消息
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type VerdictKind string

const (
	VerdictNotAnAnswer      VerdictKind = "not_an_answer"
	VerdictCorrect          VerdictKind = "correct"
	VerdictIncorrect        VerdictKind = "incorrect"
	VerdictExplainBriefly   VerdictKind = "explain_briefly"
	VerdictExplainAndMoveOn VerdictKind = "explain_and_move_on"
)

// Verdict 单次判题结果
// swagger:model Verdict
type Verdict struct {
	Kind  VerdictKind `json:"kind"`
	Score float64     `json:"score"`
	// 需要展示给用户的讲解内容（explain_briefly / explain_and_move_on 时非空）
	Reveal string `json:"reveal,omitempty"`
}

// InterviewSession 单用户的实时面试会话，整体作为JSON存入Redis。
// 状态只能由 InterviewService 变更。
// swagger:model InterviewSession
type InterviewSession struct {
	UserID            uint         `json:"userId"`
	Scenario          string       `json:"scenario"`
	Level             Level        `json:"level"`
	State             SessionState `json:"state"`
	MaxQuestions      int          `json:"maxQuestions"`
	CurrentQuestion   int          `json:"currentQuestion"` // 0-based，<= MaxQuestions
	IncorrectAttempts int          `json:"incorrectAttempts"`
	IntroductionGiven bool         `json:"introductionGiven"`
	UserIntroduction  string       `json:"userIntroduction"`
	QuestionList      []string     `json:"questionList"` // 本轮随机抽取的题面，拼进system prompt
	// 抽取到的完整题目（含标准答案与判题方式），只进Redis，快照接口不外发
	Questions  []Question `json:"questions"`
	Answers    []string   `json:"answers"` // 原始答案，按作答顺序
	Transcript []Turn     `json:"transcript"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// LastAssistantTurnBefore 返回第idx条消息之前最近一条assistant消息的内容。
// 评估阶段用它找到每条答案对应的提问。
func (s *InterviewSession) LastAssistantTurnBefore(idx int) (string, bool) {
	if idx > len(s.Transcript) {
		idx = len(s.Transcript)
	}
	for i := idx - 1; i >= 0; i-- {
		if s.Transcript[i].Role == RoleAssistant {
			return s.Transcript[i].Content, true
		}
	}
	return "", false
}

// LastAssistantTurn 当前对话中最近一条assistant消息
func (s *InterviewSession) LastAssistantTurn() (string, bool) {
	return s.LastAssistantTurnBefore(len(s.Transcript))
}
