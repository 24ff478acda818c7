package model

import (
	"encoding/json"
	"testing"
)

func TestAnswerListUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single string", `"extends"`, []string{"extends"}},
		{"array", `["extends", "inherits"]`, []string{"extends", "inherits"}},
		{"empty array", `[]`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a AnswerList
			if err := json.Unmarshal([]byte(tt.input), &a); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.input, err)
			}
			if len(a) != len(tt.want) {
				t.Fatalf("got %d answers, want %d", len(a), len(tt.want))
			}
			for i := range a {
				if a[i] != tt.want[i] {
					t.Errorf("answer %d = %q, want %q", i, a[i], tt.want[i])
				}
			}
		})
	}

	var a AnswerList
	if err := json.Unmarshal([]byte(`42`), &a); err == nil {
		t.Error("expected error for numeric correctAnswer")
	}
}

func TestQuestionEffectiveMode(t *testing.T) {
	if (Question{}).EffectiveMode() != ModeFuzzy {
		t.Error("empty mode should fall back to fuzzy")
	}
	if (Question{Mode: ModeSemantic}).EffectiveMode() != ModeSemantic {
		t.Error("explicit mode should be kept")
	}
}

func TestQuestionBankValidate(t *testing.T) {
	valid := QuestionBank{
		"Java Interview": {
			LevelBeginner: []Question{
				{Prompt: "q1", CorrectAnswers: AnswerList{"a1"}},
				{Prompt: "q2", Mode: ModeSemantic},
			},
		},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid bank rejected: %v", err)
	}

	tests := []struct {
		name string
		bank QuestionBank
	}{
		{
			"missing prompt",
			QuestionBank{"s": {LevelBeginner: []Question{{CorrectAnswers: AnswerList{"a"}}}}},
		},
		{
			"unknown level",
			QuestionBank{"s": {Level("Expert"): []Question{{Prompt: "q", CorrectAnswers: AnswerList{"a"}}}}},
		},
		{
			"unknown mode",
			QuestionBank{"s": {LevelBeginner: []Question{{Prompt: "q", CorrectAnswers: AnswerList{"a"}, Mode: "regex"}}}},
		},
		{
			"non-semantic without answers",
			QuestionBank{"s": {LevelBeginner: []Question{{Prompt: "q", Mode: ModeContains}}}},
		},
		{
			"empty answer entry",
			QuestionBank{"s": {LevelBeginner: []Question{{Prompt: "q", CorrectAnswers: AnswerList{""}}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.bank.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
