package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/util"

	"go.uber.org/zap"
)

// fakeSessionStore 模拟Redis行为：存取都经过JSON序列化，
// 调用方拿到的永远是独立副本
type fakeSessionStore struct {
	data map[uint][]byte
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{data: map[uint][]byte{}}
}

func (f *fakeSessionStore) Get(ctx context.Context, userID uint) (*model.InterviewSession, error) {
	raw, ok := f.data[userID]
	if !ok {
		return nil, util.ErrSessionNotFound
	}
	var s model.InterviewSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *fakeSessionStore) Save(ctx context.Context, session *model.InterviewSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	f.data[session.UserID] = raw
	return nil
}

type fakeProgressStore struct {
	levels   map[string]model.Level
	setCalls []model.Level
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{levels: map[string]model.Level{}}
}

func (f *fakeProgressStore) key(userID uint, scenario string) string {
	return scenario
}

func (f *fakeProgressStore) GetOrCreate(userID uint, scenario string) (*model.LevelProgress, error) {
	level, ok := f.levels[f.key(userID, scenario)]
	if !ok {
		level = model.LevelBeginner
		f.levels[f.key(userID, scenario)] = level
	}
	return &model.LevelProgress{UserID: userID, Scenario: scenario, Level: level}, nil
}

func (f *fakeProgressStore) SetLevel(userID uint, scenario string, level model.Level) error {
	f.levels[f.key(userID, scenario)] = level
	f.setCalls = append(f.setCalls, level)
	return nil
}

func (f *fakeProgressStore) ListByUser(userID uint) ([]model.LevelProgress, error) {
	var out []model.LevelProgress
	for scenario, level := range f.levels {
		out = append(out, model.LevelProgress{UserID: userID, Scenario: scenario, Level: level})
	}
	return out, nil
}

type fakeBank struct{}

func (fakeBank) Questions(scenario string, level model.Level) ([]model.Question, error) {
	if scenario != "Java Interview" {
		return nil, util.ErrUnknownScenario
	}
	return []model.Question{
		{Prompt: "q-one", CorrectAnswers: model.AnswerList{"alpha"}, Mode: model.ModeContains, Hint: "starts with a"},
		{Prompt: "q-two", CorrectAnswers: model.AnswerList{"beta"}, Mode: model.ModeContains},
		{Prompt: "q-three", CorrectAnswers: model.AnswerList{"gamma"}, Mode: model.ModeContains},
	}, nil
}

type fakeChat struct {
	reply string
	err   error
	calls int
}

func (f *fakeChat) Chat(ctx context.Context, history []AIChatMessage, systemPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeChat) ChatStream(ctx context.Context, history []AIChatMessage, systemPrompt string) (<-chan string, <-chan error) {
	f.calls++
	out := make(chan string, 1)
	errChan := make(chan error, 1)
	if f.err != nil {
		errChan <- f.err
	} else {
		out <- f.reply
	}
	close(out)
	close(errChan)
	return out, errChan
}

// seqScorer 按调用顺序返回预设分数，超出后重复最后一个
type seqScorer struct {
	scores []float64
	calls  int
}

func (f *seqScorer) Score(ctx context.Context, a, b string) (float64, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.scores) {
		idx = len(f.scores) - 1
	}
	return f.scores[idx], nil
}

func newTestInterviewService(sessions *fakeSessionStore, progress *fakeProgressStore, chat *fakeChat, scorer SemanticScorer) *InterviewService {
	judge := NewJudgeService(scorer, config.EvaluationConfig{Threshold: 0.6, FuzzyThreshold: 90})
	svc := NewInterviewService(sessions, progress, fakeBank{}, chat, judge, config.EvaluationConfig{
		Threshold:        0.6,
		FuzzyThreshold:   90,
		DefaultQuestions: 2,
		MinQuestions:     2,
		MaxQuestions:     10,
	}, zap.NewNop())
	// 测试不洗牌，抽到的题目保持题库顺序
	svc.shuffle = func(int, func(i, j int)) {}
	return svc
}

const testUser = uint(7)

// 走完自我介绍，让会话进入答题状态
func startInterview(t *testing.T, svc *InterviewService) *model.InterviewSession {
	t.Helper()
	ctx := context.Background()

	if _, err := svc.ResetSession(ctx, testUser, "Java Interview", 2); err != nil {
		t.Fatalf("reset: %v", err)
	}
	verdict, session, err := svc.SubmitAnswer(ctx, testUser, "Hi, I am a backend developer.")
	if err != nil {
		t.Fatalf("introduction: %v", err)
	}
	if verdict != nil {
		t.Fatalf("introduction should not be judged, got %v", verdict)
	}
	return session
}

func TestResetSessionValidation(t *testing.T) {
	svc := newTestInterviewService(newFakeSessionStore(), newFakeProgressStore(), &fakeChat{reply: "ok"}, &fakeScorer{})
	ctx := context.Background()

	if _, err := svc.ResetSession(ctx, testUser, "Cobol Interview", 2); !errors.Is(err, util.ErrUnknownScenario) {
		t.Errorf("got %v, want ErrUnknownScenario", err)
	}
	if _, err := svc.ResetSession(ctx, testUser, "Java Interview", 1); !errors.Is(err, util.ErrInvalidMaxQuestion) {
		t.Errorf("got %v, want ErrInvalidMaxQuestion for too few", err)
	}
	if _, err := svc.ResetSession(ctx, testUser, "Java Interview", 11); !errors.Is(err, util.ErrInvalidMaxQuestion) {
		t.Errorf("got %v, want ErrInvalidMaxQuestion for too many", err)
	}

	// 0 使用默认值
	session, err := svc.ResetSession(ctx, testUser, "Java Interview", 0)
	if err != nil {
		t.Fatal(err)
	}
	if session.MaxQuestions != 2 {
		t.Errorf("MaxQuestions = %d, want default 2", session.MaxQuestions)
	}
	if session.State != model.StateAwaitingIntroduction {
		t.Errorf("state = %s, want awaiting_introduction", session.State)
	}
	if len(session.Transcript) != 1 || session.Transcript[0].Role != model.RoleAssistant {
		t.Errorf("new session should open with a single assistant welcome turn")
	}
}

func TestResetSessionSamplesRequestedCount(t *testing.T) {
	svc := newTestInterviewService(newFakeSessionStore(), newFakeProgressStore(), &fakeChat{reply: "ok"}, &fakeScorer{})

	session, err := svc.ResetSession(context.Background(), testUser, "Java Interview", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(session.QuestionList) != 2 || len(session.Questions) != 2 {
		t.Fatalf("sampled %d prompts / %d questions, want 2 each", len(session.QuestionList), len(session.Questions))
	}
	if session.QuestionList[0] != "q-one" || session.QuestionList[1] != "q-two" {
		t.Errorf("question order = %v", session.QuestionList)
	}
}

func TestIntroductionFlow(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newTestInterviewService(sessions, newFakeProgressStore(), &fakeChat{reply: "First question: q-one"}, &fakeScorer{})

	session := startInterview(t, svc)

	if session.State != model.StateInProgress {
		t.Errorf("state = %s, want in_progress", session.State)
	}
	if !session.IntroductionGiven || session.UserIntroduction == "" {
		t.Error("introduction not captured")
	}
	// welcome + intro + 面试官回复
	if len(session.Transcript) != 3 {
		t.Errorf("transcript length = %d, want 3", len(session.Transcript))
	}

	saved, err := sessions.Get(context.Background(), testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Transcript) != 3 {
		t.Errorf("saved transcript length = %d, want 3", len(saved.Transcript))
	}
}

func TestCorrectAnswerAdvancesQuestion(t *testing.T) {
	svc := newTestInterviewService(newFakeSessionStore(), newFakeProgressStore(), &fakeChat{reply: "Next question."}, &fakeScorer{score: 0.9})
	startInterview(t, svc)

	verdict, session, err := svc.SubmitAnswer(context.Background(), testUser, "the answer is alpha")
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Kind != model.VerdictCorrect {
		t.Errorf("verdict = %s, want correct", verdict.Kind)
	}
	if session.CurrentQuestion != 1 {
		t.Errorf("CurrentQuestion = %d, want 1", session.CurrentQuestion)
	}
	if len(session.Answers) != 1 {
		t.Errorf("answers = %d, want 1", len(session.Answers))
	}
}

func TestNotAnAnswerLeavesStateAlone(t *testing.T) {
	svc := newTestInterviewService(newFakeSessionStore(), newFakeProgressStore(), &fakeChat{reply: "Sure, let me rephrase."}, &fakeScorer{})
	startInterview(t, svc)

	verdict, session, err := svc.SubmitAnswer(context.Background(), testUser, "could you explain the question again?")
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Kind != model.VerdictNotAnAnswer {
		t.Errorf("verdict = %s, want not_an_answer", verdict.Kind)
	}
	if session.CurrentQuestion != 0 || session.IncorrectAttempts != 0 || len(session.Answers) != 0 {
		t.Errorf("meta request mutated judgement state: q=%d attempts=%d answers=%d",
			session.CurrentQuestion, session.IncorrectAttempts, len(session.Answers))
	}
	// 对话本身继续
	if len(session.Transcript) != 5 {
		t.Errorf("transcript length = %d, want 5", len(session.Transcript))
	}
}

func TestEscalationThroughService(t *testing.T) {
	svc := newTestInterviewService(newFakeSessionStore(), newFakeProgressStore(), &fakeChat{reply: "Hmm."}, &fakeScorer{})
	startInterview(t, svc)
	ctx := context.Background()

	v1, s1, err := svc.SubmitAnswer(ctx, testUser, "wrong one")
	if err != nil {
		t.Fatal(err)
	}
	if v1.Kind != model.VerdictIncorrect || s1.IncorrectAttempts != 1 {
		t.Fatalf("first wrong: (%s, %d)", v1.Kind, s1.IncorrectAttempts)
	}

	v2, s2, err := svc.SubmitAnswer(ctx, testUser, "wrong two")
	if err != nil {
		t.Fatal(err)
	}
	if v2.Kind != model.VerdictExplainBriefly || s2.IncorrectAttempts != 2 {
		t.Fatalf("second wrong: (%s, %d)", v2.Kind, s2.IncorrectAttempts)
	}
	if v2.Reveal != "starts with a" {
		t.Errorf("reveal = %q, want hint", v2.Reveal)
	}

	v3, s3, err := svc.SubmitAnswer(ctx, testUser, "wrong three")
	if err != nil {
		t.Fatal(err)
	}
	if v3.Kind != model.VerdictExplainAndMoveOn {
		t.Fatalf("third wrong: %s", v3.Kind)
	}
	if s3.IncorrectAttempts != 0 {
		t.Errorf("attempts after move-on = %d, want 0", s3.IncorrectAttempts)
	}
	if s3.CurrentQuestion != 1 {
		t.Errorf("CurrentQuestion after move-on = %d, want 1", s3.CurrentQuestion)
	}
}

func TestLevelAdvanceOnPass(t *testing.T) {
	progress := newFakeProgressStore()
	chat := &fakeChat{reply: "Question."}
	svc := newTestInterviewService(newFakeSessionStore(), progress, chat, &fakeScorer{score: 0.9})
	startInterview(t, svc)
	ctx := context.Background()

	if _, _, err := svc.SubmitAnswer(ctx, testUser, "alpha"); err != nil {
		t.Fatal(err)
	}
	chatCallsBefore := chat.calls

	verdict, session, err := svc.SubmitAnswer(ctx, testUser, "beta")
	if err != nil {
		t.Fatal(err)
	}
	if verdict.Kind != model.VerdictCorrect {
		t.Fatalf("verdict = %s", verdict.Kind)
	}

	if session.Level != model.LevelIntermediate {
		t.Errorf("level = %s, want Intermediate", session.Level)
	}
	if session.State != model.StateInProgress {
		t.Errorf("state = %s, want in_progress", session.State)
	}
	// 新一轮对话固定两条：晋级公告 + 回放的自我介绍
	if len(session.Transcript) != 2 {
		t.Fatalf("transcript length = %d, want 2", len(session.Transcript))
	}
	if session.Transcript[0].Role != model.RoleAssistant || session.Transcript[1].Role != model.RoleUser {
		t.Error("transcript roles after advance are wrong")
	}
	if session.Transcript[1].Content != "Hi, I am a backend developer." {
		t.Errorf("introduction not replayed: %q", session.Transcript[1].Content)
	}
	if len(session.Answers) != 0 || session.CurrentQuestion != 0 || session.IncorrectAttempts != 0 {
		t.Error("counters not reset after advance")
	}
	if progress.levels["Java Interview"] != model.LevelIntermediate {
		t.Errorf("progress = %s, want Intermediate", progress.levels["Java Interview"])
	}
	// 评估回合不生成面试官回复
	if chat.calls != chatCallsBefore {
		t.Errorf("chat called during evaluation turn")
	}
}

func TestFailedEvaluationResetsToBeginner(t *testing.T) {
	progress := newFakeProgressStore()
	progress.levels["Java Interview"] = model.LevelIntermediate
	scorer := &fakeScorer{score: 0.3}
	svc := newTestInterviewService(newFakeSessionStore(), progress, &fakeChat{reply: "Question."}, scorer)
	startInterview(t, svc)
	ctx := context.Background()

	if _, _, err := svc.SubmitAnswer(ctx, testUser, "alpha"); err != nil {
		t.Fatal(err)
	}
	_, session, err := svc.SubmitAnswer(ctx, testUser, "beta")
	if err != nil {
		t.Fatal(err)
	}

	if session.Level != model.LevelBeginner {
		t.Errorf("level = %s, want Beginner after failed evaluation", session.Level)
	}
	if session.State != model.StateAwaitingIntroduction {
		t.Errorf("state = %s, want awaiting_introduction", session.State)
	}
	if session.IntroductionGiven {
		t.Error("introduction flag should be cleared")
	}
	if len(session.Transcript) != 1 {
		t.Errorf("transcript length = %d, want 1 welcome turn", len(session.Transcript))
	}
	if progress.levels["Java Interview"] != model.LevelBeginner {
		t.Errorf("progress = %s, want Beginner", progress.levels["Java Interview"])
	}
}

func TestHardPassCompletesAllLevels(t *testing.T) {
	progress := newFakeProgressStore()
	progress.levels["Java Interview"] = model.LevelHard
	svc := newTestInterviewService(newFakeSessionStore(), progress, &fakeChat{reply: "Question."}, &fakeScorer{score: 0.9})
	startInterview(t, svc)
	ctx := context.Background()

	if _, _, err := svc.SubmitAnswer(ctx, testUser, "alpha"); err != nil {
		t.Fatal(err)
	}
	_, session, err := svc.SubmitAnswer(ctx, testUser, "beta")
	if err != nil {
		t.Fatal(err)
	}

	if session.State != model.StateAllLevelsComplete {
		t.Fatalf("state = %s, want all_levels_complete", session.State)
	}
	// Hard通关不再晋级
	if progress.levels["Java Interview"] != model.LevelHard {
		t.Errorf("progress = %s, want Hard kept", progress.levels["Java Interview"])
	}

	// 终态下继续提交被拒绝
	if _, _, err := svc.SubmitAnswer(ctx, testUser, "hello?"); !errors.Is(err, util.ErrSessionComplete) {
		t.Errorf("got %v, want ErrSessionComplete", err)
	}
}

func TestScoringFailureLeavesSessionUntouched(t *testing.T) {
	sessions := newFakeSessionStore()
	scorer := &fakeScorer{score: 0.9}
	svc := newTestInterviewService(sessions, newFakeProgressStore(), &fakeChat{reply: "Question."}, scorer)
	startInterview(t, svc)
	ctx := context.Background()

	if _, _, err := svc.SubmitAnswer(ctx, testUser, "alpha"); err != nil {
		t.Fatal(err)
	}
	before, _ := sessions.Get(ctx, testUser)

	// 最后一题答对会触发整场评估，此时打分服务坏掉
	scorer.err = util.ErrScoringUnavailable
	_, _, err := svc.SubmitAnswer(ctx, testUser, "beta")
	if !errors.Is(err, util.ErrScoringUnavailable) {
		t.Fatalf("got %v, want ErrScoringUnavailable", err)
	}

	after, _ := sessions.Get(ctx, testUser)
	if len(after.Transcript) != len(before.Transcript) {
		t.Errorf("transcript changed on scoring failure: %d -> %d", len(before.Transcript), len(after.Transcript))
	}
	if after.CurrentQuestion != before.CurrentQuestion || len(after.Answers) != len(before.Answers) {
		t.Error("judgement state changed on scoring failure")
	}

	// 服务恢复后同一条提交可以成功
	scorer.err = nil
	_, session, err := svc.SubmitAnswer(ctx, testUser, "beta")
	if err != nil {
		t.Fatal(err)
	}
	if session.Level != model.LevelIntermediate {
		t.Errorf("retry did not advance: level = %s", session.Level)
	}
}

func TestChatFailureLeavesSessionUntouched(t *testing.T) {
	sessions := newFakeSessionStore()
	chat := &fakeChat{reply: "Question."}
	svc := newTestInterviewService(sessions, newFakeProgressStore(), chat, &fakeScorer{score: 0.9})
	startInterview(t, svc)
	ctx := context.Background()

	before, _ := sessions.Get(ctx, testUser)

	chat.err = util.ErrCompletion
	_, _, err := svc.SubmitAnswer(ctx, testUser, "alpha")
	if !errors.Is(err, util.ErrCompletion) {
		t.Fatalf("got %v, want ErrCompletion", err)
	}

	after, _ := sessions.Get(ctx, testUser)
	if len(after.Transcript) != len(before.Transcript) || after.CurrentQuestion != before.CurrentQuestion {
		t.Error("session mutated although interviewer reply failed")
	}
}

func TestSnapshotWithoutSession(t *testing.T) {
	svc := newTestInterviewService(newFakeSessionStore(), newFakeProgressStore(), &fakeChat{reply: "ok"}, &fakeScorer{})
	if _, err := svc.Snapshot(context.Background(), testUser); !errors.Is(err, util.ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestEvaluationOnlyScoresFirstMaxQuestions(t *testing.T) {
	scorer := &seqScorer{scores: []float64{0.9, 0.9, 0.2}}
	svc := newTestInterviewService(newFakeSessionStore(), newFakeProgressStore(), &fakeChat{reply: "Question."}, scorer)
	startInterview(t, svc)
	ctx := context.Background()

	// 第1题先答错再答对，第2题答对，共3条进入判题的答案
	if _, _, err := svc.SubmitAnswer(ctx, testUser, "zzz not it"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, testUser, "alpha"); err != nil {
		t.Fatal(err)
	}
	_, session, err := svc.SubmitAnswer(ctx, testUser, "beta")
	if err != nil {
		t.Fatal(err)
	}

	// 评估只看前 maxQuestions 条答案，窗口之外的低分不翻盘
	if session.Level != model.LevelIntermediate {
		t.Errorf("level = %s, want Intermediate", session.Level)
	}
	if scorer.calls != 2 {
		t.Errorf("scorer called %d times during evaluation, want 2", scorer.calls)
	}
}

func TestMixedScoresFailEvaluation(t *testing.T) {
	progress := newFakeProgressStore()
	progress.levels["Java Interview"] = model.LevelIntermediate
	scorer := &seqScorer{scores: []float64{0.9, 0.9, 0.3}}
	svc := newTestInterviewService(newFakeSessionStore(), progress, &fakeChat{reply: "Question."}, scorer)
	ctx := context.Background()

	if _, err := svc.ResetSession(ctx, testUser, "Java Interview", 3); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, testUser, "Hi, I am a backend developer."); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, testUser, "alpha"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, testUser, "beta"); err != nil {
		t.Fatal(err)
	}
	_, session, err := svc.SubmitAnswer(ctx, testUser, "gamma")
	if err != nil {
		t.Fatal(err)
	}

	// 任何一条答案低于阈值，整场不通过
	if session.Level != model.LevelBeginner {
		t.Errorf("level = %s, want Beginner after mixed scores", session.Level)
	}
	if session.State != model.StateAwaitingIntroduction {
		t.Errorf("state = %s, want awaiting_introduction", session.State)
	}
	if progress.levels["Java Interview"] != model.LevelBeginner {
		t.Errorf("progress = %s, want Beginner", progress.levels["Java Interview"])
	}
}

func TestExplainStream(t *testing.T) {
	sessions := newFakeSessionStore()
	svc := newTestInterviewService(sessions, newFakeProgressStore(), &fakeChat{reply: "In plain words, the question asks about inheritance."}, &fakeScorer{})
	ctx := context.Background()

	// 自我介绍之前没有可讲解的问题
	if _, err := svc.ResetSession(ctx, testUser, "Java Interview", 2); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.ExplainStream(ctx, testUser); !errors.Is(err, util.ErrNoActiveQuestion) {
		t.Errorf("got %v, want ErrNoActiveQuestion", err)
	}

	if _, _, err := svc.SubmitAnswer(ctx, testUser, "Hi, I am a backend developer."); err != nil {
		t.Fatal(err)
	}
	before, _ := sessions.Get(ctx, testUser)

	stream, errChan, err := svc.ExplainStream(ctx, testUser)
	if err != nil {
		t.Fatal(err)
	}
	var explained string
	for chunk := range stream {
		explained += chunk
	}
	if err := <-errChan; err != nil {
		t.Fatal(err)
	}
	if explained == "" {
		t.Error("no explanation streamed")
	}

	// 讲解是只读的，不碰会话
	after, _ := sessions.Get(ctx, testUser)
	if len(after.Transcript) != len(before.Transcript) || after.IncorrectAttempts != before.IncorrectAttempts {
		t.Error("explain stream mutated the session")
	}
}
