package model

import (
	"strings"
	"testing"
)

func TestNextLevel(t *testing.T) {
	tests := []struct {
		current Level
		next    Level
		ok      bool
	}{
		{LevelBeginner, LevelIntermediate, true},
		{LevelIntermediate, LevelHard, true},
		{LevelHard, "", false},
	}

	for _, tt := range tests {
		next, ok := NextLevel(tt.current)
		if next != tt.next || ok != tt.ok {
			t.Errorf("NextLevel(%s) = (%s, %v), want (%s, %v)", tt.current, next, ok, tt.next, tt.ok)
		}
	}
}

func TestSystemPromptSubstitution(t *testing.T) {
	prompt, err := SystemPrompt("Java Interview", LevelBeginner, 3, []string{"q1", "q2", "q3"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(prompt, "q1; q2; q3") {
		t.Errorf("question list not substituted: %s", prompt)
	}
	if !strings.Contains(prompt, "Prepare 3 questions") {
		t.Errorf("max questions not substituted: %s", prompt)
	}
	if strings.Contains(prompt, "{question_list}") || strings.Contains(prompt, "{max_questions}") {
		t.Errorf("placeholders left in prompt: %s", prompt)
	}

	if _, err := SystemPrompt("Cobol Interview", LevelBeginner, 3, nil); err == nil {
		t.Error("expected error for unknown scenario")
	}
}

func TestWelcomeMessageFallback(t *testing.T) {
	if WelcomeMessage("Java Interview", LevelBeginner) == "" {
		t.Error("expected welcome message")
	}
	if WelcomeMessage("Nope", LevelBeginner) == "" {
		t.Error("expected generic fallback for unknown scenario")
	}
}

func TestLastAssistantTurnBefore(t *testing.T) {
	s := InterviewSession{Transcript: []Turn{
		{Role: RoleAssistant, Content: "welcome"},
		{Role: RoleUser, Content: "intro"},
		{Role: RoleAssistant, Content: "question one"},
		{Role: RoleUser, Content: "answer one"},
	}}

	if got, ok := s.LastAssistantTurnBefore(3); !ok || got != "question one" {
		t.Errorf("got (%q, %v), want question one", got, ok)
	}
	if got, ok := s.LastAssistantTurnBefore(1); !ok || got != "welcome" {
		t.Errorf("got (%q, %v), want welcome", got, ok)
	}
	if _, ok := s.LastAssistantTurnBefore(0); ok {
		t.Error("expected no assistant turn before index 0")
	}
	if got, ok := s.LastAssistantTurn(); !ok || got != "question one" {
		t.Errorf("got (%q, %v), want question one", got, ok)
	}
}
