package service

import (
	"context"
	"errors"
	"testing"

	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/util"
)

type fakeScorer struct {
	score float64
	err   error
	calls int
}

func (f *fakeScorer) Score(ctx context.Context, a, b string) (float64, error) {
	f.calls++
	return f.score, f.err
}

func newTestJudge(scorer SemanticScorer) *JudgeService {
	return NewJudgeService(scorer, config.EvaluationConfig{
		Threshold:      0.6,
		FuzzyThreshold: 90,
	})
}

func TestIsNotAnAnswer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"?!", true},
		{"Can you explain that again?", true},
		{"EXPLAIN it to me", true},
		{"say it AGAIN please", true},
		{"the answer is extends", false},
		{"a plain answer", false},
	}

	for _, tt := range tests {
		if got := IsNotAnAnswer(tt.input); got != tt.want {
			t.Errorf("IsNotAnAnswer(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestJudgeQuestionContains(t *testing.T) {
	judge := newTestJudge(&fakeScorer{})
	q := model.Question{
		Prompt:         "What keyword creates a subclass?",
		CorrectAnswers: model.AnswerList{"extends"},
		Mode:           model.ModeContains,
	}

	v, err := judge.JudgeQuestion(context.Background(), "I would use the EXTENDS keyword.", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictCorrect {
		t.Errorf("got %s, want correct", v.Kind)
	}

	v, err = judge.JudgeQuestion(context.Background(), "implements", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictIncorrect {
		t.Errorf("got %s, want incorrect", v.Kind)
	}
}

func TestJudgeQuestionContainsAnyCandidate(t *testing.T) {
	judge := newTestJudge(&fakeScorer{})
	q := model.Question{
		Prompt:         "Which hook manages state?",
		CorrectAnswers: model.AnswerList{"usestate", "use state"},
		Mode:           model.ModeContains,
	}

	v, err := judge.JudgeQuestion(context.Background(), "you call use state for that", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictCorrect {
		t.Errorf("got %s, want correct via second candidate", v.Kind)
	}
}

func TestJudgeQuestionFuzzy(t *testing.T) {
	judge := newTestJudge(&fakeScorer{})
	q := model.Question{
		Prompt:         "Name the four pillars",
		CorrectAnswers: model.AnswerList{"encapsulation inheritance polymorphism abstraction"},
	}

	// 与标准答案完全一致，比值100
	v, err := judge.JudgeQuestion(context.Background(), "Encapsulation, inheritance, polymorphism, abstraction!", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictCorrect {
		t.Errorf("got %s (score %v), want correct", v.Kind, v.Score)
	}
	if v.Score != 1 {
		t.Errorf("exact match score = %v, want 1", v.Score)
	}

	v, err = judge.JudgeQuestion(context.Background(), "something entirely unrelated", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictIncorrect {
		t.Errorf("got %s, want incorrect", v.Kind)
	}
}

func TestJudgeQuestionFuzzyThresholdBoundary(t *testing.T) {
	judge := newTestJudge(&fakeScorer{})

	// 两串共20个字符、19个能对齐：ratio = round(2*9/20*100) = 90，正好到线
	q := model.Question{
		Prompt:         "Spell the identifier",
		CorrectAnswers: model.AnswerList{"abcdefghij"},
	}
	v, err := judge.JudgeQuestion(context.Background(), "abcdefghix", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictCorrect {
		t.Errorf("ratio 90: got %s (score %v), want correct at threshold", v.Kind, v.Score)
	}

	// 两串共18个字符、16个能对齐：ratio = round(2*8/18*100) = 89，差一分即判错
	q.CorrectAnswers = model.AnswerList{"abcdefghi"}
	v, err = judge.JudgeQuestion(context.Background(), "abcdefghx", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictIncorrect {
		t.Errorf("ratio 89: got %s (score %v), want incorrect below threshold", v.Kind, v.Score)
	}
}

func TestJudgeQuestionFuzzyPartialFallback(t *testing.T) {
	judge := newTestJudge(&fakeScorer{})
	q := model.Question{
		Prompt:         "What keyword prevents overriding?",
		CorrectAnswers: model.AnswerList{"final"},
		CheckPartial:   true,
	}

	// 长回答拉低比值，但包含标准答案
	v, err := judge.JudgeQuestion(context.Background(), "I believe marking the method as final prevents any subclass from overriding it.", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictCorrect {
		t.Errorf("got %s, want correct via partial fallback", v.Kind)
	}

	// 不开启checkPartial时同样的回答判错
	q.CheckPartial = false
	v, err = judge.JudgeQuestion(context.Background(), "I believe marking the method as final prevents any subclass from overriding it.", q, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictIncorrect {
		t.Errorf("got %s, want incorrect without partial fallback", v.Kind)
	}
}

func TestJudgeQuestionSemantic(t *testing.T) {
	scorer := &fakeScorer{score: 0.8}
	judge := newTestJudge(scorer)
	q := model.Question{Prompt: "Explain decorators", Mode: model.ModeSemantic}

	v, err := judge.JudgeQuestion(context.Background(), "a decorator wraps a function", q, "Explain what a decorator does.")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictCorrect || v.Score != 0.8 {
		t.Errorf("got (%s, %v), want (correct, 0.8)", v.Kind, v.Score)
	}
	if scorer.calls != 1 {
		t.Errorf("scorer called %d times, want 1", scorer.calls)
	}

	scorer.score = 0.5
	v, err = judge.JudgeQuestion(context.Background(), "no idea", q, "Explain what a decorator does.")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictIncorrect {
		t.Errorf("got %s, want incorrect below threshold", v.Kind)
	}
}

func TestJudgeSemanticScorerFailure(t *testing.T) {
	scorer := &fakeScorer{err: util.ErrScoringUnavailable}
	judge := newTestJudge(scorer)
	q := model.Question{Prompt: "Explain", Mode: model.ModeSemantic}

	_, err := judge.JudgeQuestion(context.Background(), "an answer", q, "prior")
	if !errors.Is(err, util.ErrScoringUnavailable) {
		t.Errorf("got %v, want ErrScoringUnavailable", err)
	}
}

func TestJudgeNotAnAnswerSkipsScoring(t *testing.T) {
	scorer := &fakeScorer{}
	judge := newTestJudge(scorer)
	q := model.Question{Prompt: "Explain", Mode: model.ModeSemantic}

	v, err := judge.JudgeQuestion(context.Background(), "please explain again", q, "prior")
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != model.VerdictNotAnAnswer {
		t.Errorf("got %s, want not_an_answer", v.Kind)
	}
	if scorer.calls != 0 {
		t.Errorf("scorer should not be called, got %d calls", scorer.calls)
	}
}

func TestSetThresholds(t *testing.T) {
	judge := newTestJudge(&fakeScorer{})

	judge.SetThresholds(0.9, 50)
	threshold, fuzzyThreshold := judge.Thresholds()
	if threshold != 0.9 || fuzzyThreshold != 50 {
		t.Errorf("got (%v, %d), want (0.9, 50)", threshold, fuzzyThreshold)
	}

	// 非法值不覆盖
	judge.SetThresholds(0, -1)
	threshold, fuzzyThreshold = judge.Thresholds()
	if threshold != 0.9 || fuzzyThreshold != 50 {
		t.Errorf("invalid values overwrote thresholds: (%v, %d)", threshold, fuzzyThreshold)
	}
}

func TestEscalate(t *testing.T) {
	correct := model.Verdict{Kind: model.VerdictCorrect, Score: 1}
	wrong := model.Verdict{Kind: model.VerdictIncorrect, Score: 0.2}
	meta := model.Verdict{Kind: model.VerdictNotAnAnswer}

	// 答对清零
	if v, n := Escalate(correct, 2); v.Kind != model.VerdictCorrect || n != 0 {
		t.Errorf("correct: got (%s, %d), want (correct, 0)", v.Kind, n)
	}

	// 连错三次逐级升级
	v, n := Escalate(wrong, 0)
	if v.Kind != model.VerdictIncorrect || n != 1 {
		t.Errorf("first wrong: got (%s, %d), want (incorrect, 1)", v.Kind, n)
	}
	v, n = Escalate(wrong, n)
	if v.Kind != model.VerdictExplainBriefly || n != 2 {
		t.Errorf("second wrong: got (%s, %d), want (explain_briefly, 2)", v.Kind, n)
	}
	v, n = Escalate(wrong, n)
	if v.Kind != model.VerdictExplainAndMoveOn || n != 0 {
		t.Errorf("third wrong: got (%s, %d), want (explain_and_move_on, 0)", v.Kind, n)
	}

	// 未作答不动计数
	if v, n := Escalate(meta, 2); v.Kind != model.VerdictNotAnAnswer || n != 2 {
		t.Errorf("meta: got (%s, %d), want (not_an_answer, 2)", v.Kind, n)
	}
}
