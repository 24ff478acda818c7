package service

import (
	"context"
	"math/rand"
	"sync"

	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/util"
	"interview_bot_backend/pkg/monitoring"

	"go.uber.org/zap"
)

// SessionStore 会话读写，生产实现为Redis
type SessionStore interface {
	Get(ctx context.Context, userID uint) (*model.InterviewSession, error)
	Save(ctx context.Context, session *model.InterviewSession) error
}

// ProgressStore 用户长期进度读写，生产实现为MySQL
type ProgressStore interface {
	GetOrCreate(userID uint, scenario string) (*model.LevelProgress, error)
	SetLevel(userID uint, scenario string, level model.Level) error
	ListByUser(userID uint) ([]model.LevelProgress, error)
}

// QuestionSource 题库查询
type QuestionSource interface {
	Questions(scenario string, level model.Level) ([]model.Question, error)
}

// ChatClient 面试官回复的生成端
type ChatClient interface {
	Chat(ctx context.Context, history []AIChatMessage, systemPrompt string) (string, error)
	ChatStream(ctx context.Context, history []AIChatMessage, systemPrompt string) (<-chan string, <-chan error)
}

// InterviewService 面试状态机。会话状态只在这里变更，
// 判题、评估失败时不落任何半成品状态。
type InterviewService struct {
	sessions SessionStore
	progress ProgressStore
	bank     QuestionSource
	ai       ChatClient
	judge    *JudgeService
	eval     config.EvaluationConfig
	logger   *zap.Logger

	// 抽题用的洗牌函数，测试里替换成恒等实现保证顺序可控
	shuffle func(n int, swap func(i, j int))

	// 同一用户的并发提交串行化，跨用户互不影响
	userLocks sync.Map
}

func NewInterviewService(
	sessions SessionStore,
	progress ProgressStore,
	bank QuestionSource,
	ai ChatClient,
	judge *JudgeService,
	eval config.EvaluationConfig,
	logger *zap.Logger,
) *InterviewService {
	return &InterviewService{
		sessions: sessions,
		progress: progress,
		bank:     bank,
		ai:       ai,
		judge:    judge,
		eval:     eval,
		logger:   logger,
		shuffle:  rand.Shuffle,
	}
}

func (s *InterviewService) lockUser(userID uint) func() {
	v, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Scenarios 可选场景列表
func (s *InterviewService) Scenarios() []string {
	return model.ScenarioNames()
}

// Progress 用户全部场景的长期进度
func (s *InterviewService) Progress(userID uint) ([]model.LevelProgress, error) {
	return s.progress.ListByUser(userID)
}

// Snapshot 当前会话状态
func (s *InterviewService) Snapshot(ctx context.Context, userID uint) (*model.InterviewSession, error) {
	return s.sessions.Get(ctx, userID)
}

// ResetSession 开始（或重开）一场面试。等级取用户在该场景的长期进度，
// maxQuestions 为0时用默认值，超出范围直接拒绝。
func (s *InterviewService) ResetSession(ctx context.Context, userID uint, scenario string, maxQuestions int) (*model.InterviewSession, error) {
	if !model.KnownScenario(scenario) {
		return nil, util.ErrUnknownScenario
	}
	if maxQuestions == 0 {
		maxQuestions = s.eval.DefaultQuestions
	}
	if maxQuestions < s.eval.MinQuestions || maxQuestions > s.eval.MaxQuestions {
		return nil, util.ErrInvalidMaxQuestion
	}

	unlock := s.lockUser(userID)
	defer unlock()

	progress, err := s.progress.GetOrCreate(userID, scenario)
	if err != nil {
		return nil, err
	}

	session, err := s.newSession(userID, scenario, progress.Level, maxQuestions)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("interview session reset",
		zap.Uint("userID", userID),
		zap.String("scenario", scenario),
		zap.String("level", string(progress.Level)),
		zap.Int("maxQuestions", maxQuestions))
	return session, nil
}

func (s *InterviewService) newSession(userID uint, scenario string, level model.Level, maxQuestions int) (*model.InterviewSession, error) {
	questions, err := s.sampleQuestions(scenario, level, maxQuestions)
	if err != nil {
		return nil, err
	}

	return &model.InterviewSession{
		UserID:       userID,
		Scenario:     scenario,
		Level:        level,
		State:        model.StateAwaitingIntroduction,
		MaxQuestions: maxQuestions,
		QuestionList: model.Prompts(questions),
		Questions:    questions,
		Transcript: []model.Turn{
			{Role: model.RoleAssistant, Content: model.WelcomeMessage(scenario, level)},
		},
	}, nil
}

// sampleQuestions 从题库随机抽n道；题库不足n道时全部使用
func (s *InterviewService) sampleQuestions(scenario string, level model.Level, n int) ([]model.Question, error) {
	questions, err := s.bank.Questions(scenario, level)
	if err != nil {
		return nil, err
	}
	s.shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	if len(questions) > n {
		questions = questions[:n]
	}
	return questions, nil
}

// SubmitAnswer 处理用户一条发言。首条发言作为自我介绍不判题，
// 之后每条按当前题目判定并推进状态机。
// 返回的verdict在自我介绍阶段为nil；面试官的回复在会话transcript末尾。
func (s *InterviewService) SubmitAnswer(ctx context.Context, userID uint, text string) (*model.Verdict, *model.InterviewSession, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if session.State == model.StateAllLevelsComplete {
		return nil, nil, util.ErrSessionComplete
	}

	if !session.IntroductionGiven {
		return s.handleIntroduction(ctx, session, text)
	}
	return s.handleAnswer(ctx, session, text)
}

func (s *InterviewService) handleIntroduction(ctx context.Context, session *model.InterviewSession, text string) (*model.Verdict, *model.InterviewSession, error) {
	session.IntroductionGiven = true
	session.UserIntroduction = text
	session.State = model.StateInProgress
	session.Transcript = append(session.Transcript, model.Turn{Role: model.RoleUser, Content: text})

	reply, err := s.interviewerReply(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	session.Transcript = append(session.Transcript, model.Turn{Role: model.RoleAssistant, Content: reply})

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, nil, err
	}
	return nil, session, nil
}

func (s *InterviewService) handleAnswer(ctx context.Context, session *model.InterviewSession, text string) (*model.Verdict, *model.InterviewSession, error) {
	priorAssistant, _ := session.LastAssistantTurn()

	// 先判题后改状态：判题失败时会话保持原样
	var base model.Verdict
	var err error
	if session.CurrentQuestion < len(session.Questions) {
		base, err = s.judge.JudgeQuestion(ctx, text, session.Questions[session.CurrentQuestion], priorAssistant)
	} else {
		base, err = s.judge.JudgeFreeform(ctx, text, priorAssistant)
	}
	if err != nil {
		return nil, nil, err
	}

	verdict, attempts := Escalate(base, session.IncorrectAttempts)
	s.fillReveal(&verdict, session)
	monitoring.AnswersJudged.WithLabelValues(string(verdict.Kind)).Inc()

	session.Transcript = append(session.Transcript, model.Turn{Role: model.RoleUser, Content: text})
	session.IncorrectAttempts = attempts
	if verdict.Kind != model.VerdictNotAnAnswer {
		session.Answers = append(session.Answers, text)
	}
	if verdict.Kind == model.VerdictCorrect || verdict.Kind == model.VerdictExplainAndMoveOn {
		session.CurrentQuestion++
	}

	if session.CurrentQuestion >= session.MaxQuestions {
		if err := s.finishLevel(ctx, session); err != nil {
			return nil, nil, err
		}
	} else {
		reply, err := s.interviewerReply(ctx, session)
		if err != nil {
			return nil, nil, err
		}
		session.Transcript = append(session.Transcript, model.Turn{Role: model.RoleAssistant, Content: reply})
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, nil, err
	}
	return &verdict, session, nil
}

// fillReveal 需要讲解时带上提示或标准答案，前端展示用
func (s *InterviewService) fillReveal(v *model.Verdict, session *model.InterviewSession) {
	if v.Kind != model.VerdictExplainBriefly && v.Kind != model.VerdictExplainAndMoveOn {
		return
	}
	if session.CurrentQuestion >= len(session.Questions) {
		return
	}
	q := session.Questions[session.CurrentQuestion]
	if q.Hint != "" {
		v.Reveal = q.Hint
	} else if len(q.CorrectAnswers) > 0 {
		v.Reveal = q.CorrectAnswers[0]
	}
}

func (s *InterviewService) interviewerReply(ctx context.Context, session *model.InterviewSession) (string, error) {
	prompt, err := model.SystemPrompt(session.Scenario, session.Level, session.MaxQuestions, session.QuestionList)
	if err != nil {
		return "", err
	}

	history := make([]AIChatMessage, 0, len(session.Transcript))
	for _, turn := range session.Transcript {
		history = append(history, AIChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return s.ai.Chat(ctx, history, prompt)
}

// ExplainStream 流式讲解当前问题。只读会话，不动判题状态也不写transcript，
// 用户听完讲解后仍按原题作答。
func (s *InterviewService) ExplainStream(ctx context.Context, userID uint) (<-chan string, <-chan error, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if session.State == model.StateAllLevelsComplete {
		return nil, nil, util.ErrSessionComplete
	}
	question, ok := session.LastAssistantTurn()
	if !ok || !session.IntroductionGiven {
		return nil, nil, util.ErrNoActiveQuestion
	}

	prompt := model.ExplainPrompt(session.Scenario, session.Level, question)
	history := make([]AIChatMessage, 0, len(session.Transcript))
	for _, turn := range session.Transcript {
		history = append(history, AIChatMessage{Role: turn.Role, Content: turn.Content})
	}
	stream, errChan := s.ai.ChatStream(ctx, history, prompt)
	return stream, errChan, nil
}

// finishLevel 答满题数后的整场评估与等级流转。
// 全部答案与对应提问的语义相似度都达标才算通过；任一打分失败时
// 原样上抛，不保存本次提交的任何变更。
func (s *InterviewService) finishLevel(ctx context.Context, session *model.InterviewSession) error {
	passed, err := s.evaluateSession(ctx, session)
	if err != nil {
		return err
	}

	if !passed {
		monitoring.LevelTransitions.WithLabelValues("reset").Inc()
		s.logger.Info("interview failed, progress reset",
			zap.Uint("userID", session.UserID),
			zap.String("scenario", session.Scenario),
			zap.String("level", string(session.Level)))
		return s.resetToBeginner(session)
	}

	next, ok := model.NextLevel(session.Level)
	if !ok {
		monitoring.LevelTransitions.WithLabelValues("completed").Inc()
		s.logger.Info("all levels completed",
			zap.Uint("userID", session.UserID),
			zap.String("scenario", session.Scenario))
		session.State = model.StateAllLevelsComplete
		session.Transcript = append(session.Transcript, model.Turn{
			Role:    model.RoleAssistant,
			Content: "Congratulations, you have completed all levels of this interview.",
		})
		return nil
	}

	monitoring.LevelTransitions.WithLabelValues("advanced").Inc()
	s.logger.Info("level advanced",
		zap.Uint("userID", session.UserID),
		zap.String("scenario", session.Scenario),
		zap.String("nextLevel", string(next)))
	return s.advanceTo(session, next)
}

// evaluateSession 把每条答案与它前面最近一条assistant消息做语义对照。
// 只评前 maxQuestions 条进入判题的答案，同一题的后续重试不计入。
func (s *InterviewService) evaluateSession(ctx context.Context, session *model.InterviewSession) (bool, error) {
	threshold := s.judge.PassThreshold()
	passed := true

	introSkipped := false
	scored := 0
	lastAssistant := ""
	for _, turn := range session.Transcript {
		if scored >= session.MaxQuestions {
			break
		}
		if turn.Role == model.RoleAssistant {
			lastAssistant = turn.Content
			continue
		}
		// 第一条user消息是自我介绍，不参与评估
		if !introSkipped {
			introSkipped = true
			continue
		}
		// 要求重讲之类的发言没有进入判题，评估也跳过
		if IsNotAnAnswer(turn.Content) {
			continue
		}
		score, err := s.judge.SemanticScore(ctx, turn.Content, lastAssistant)
		if err != nil {
			return false, err
		}
		scored++
		if score < threshold {
			passed = false
		}
	}
	return passed, nil
}

// advanceTo 晋级：长期进度落库后就地重建会话。
// 新一轮对话固定两条消息：晋级公告 + 回放的自我介绍，不再重新要求介绍。
func (s *InterviewService) advanceTo(session *model.InterviewSession, next model.Level) error {
	if err := s.progress.SetLevel(session.UserID, session.Scenario, next); err != nil {
		return err
	}

	questions, err := s.sampleQuestions(session.Scenario, next, session.MaxQuestions)
	if err != nil {
		return err
	}

	session.Level = next
	session.State = model.StateInProgress
	session.CurrentQuestion = 0
	session.IncorrectAttempts = 0
	session.QuestionList = model.Prompts(questions)
	session.Questions = questions
	session.Answers = nil
	session.Transcript = []model.Turn{
		{Role: model.RoleAssistant, Content: model.LevelAdvanceMessage(next)},
		{Role: model.RoleUser, Content: session.UserIntroduction},
	}
	return nil
}

// resetToBeginner 评估未通过：进度降回Beginner，会话回到等待自我介绍
func (s *InterviewService) resetToBeginner(session *model.InterviewSession) error {
	if err := s.progress.SetLevel(session.UserID, session.Scenario, model.LevelBeginner); err != nil {
		return err
	}

	questions, err := s.sampleQuestions(session.Scenario, model.LevelBeginner, session.MaxQuestions)
	if err != nil {
		return err
	}

	session.Level = model.LevelBeginner
	session.State = model.StateAwaitingIntroduction
	session.CurrentQuestion = 0
	session.IncorrectAttempts = 0
	session.IntroductionGiven = false
	session.UserIntroduction = ""
	session.QuestionList = model.Prompts(questions)
	session.Questions = questions
	session.Answers = nil
	session.Transcript = []model.Turn{
		{Role: model.RoleAssistant, Content: model.WelcomeMessage(session.Scenario, model.LevelBeginner)},
	}
	return nil
}
