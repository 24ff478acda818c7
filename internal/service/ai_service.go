package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/util"
	"interview_bot_backend/pkg/monitoring"
	"io"
	"net/http"
	"strings"
	"time"
)

// AIService OpenAI兼容的聊天补全客户端，面试官的回复全部由它生成
type AIService struct {
	config config.AIConfig
	client *http.Client
}

func NewAIService(cfg config.AIConfig) *AIService {
	return &AIService{
		config: cfg,
		client: &http.Client{},
	}
}

type AIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatCompletionRequest struct {
	Model    string          `json:"model"`
	Messages []AIChatMessage `json:"messages"`
}

type ChatCompletionResponse struct {
	Choices []struct {
		Message AIChatMessage `json:"message"`
		Delta   AIChatMessage `json:"delta"` // 流式响应
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat 携带对话历史与system prompt请求一次补全。
// 上游失败（含限流/鉴权）统一包装为 ErrCompletion。
func (s *AIService) Chat(ctx context.Context, history []AIChatMessage, systemPrompt string) (string, error) {
	messages := make([]AIChatMessage, 0, len(history)+1)
	messages = append(messages, AIChatMessage{
		Role:    "system",
		Content: systemPrompt,
	})
	messages = append(messages, history...)

	reqBody := ChatCompletionRequest{
		Model:    s.config.ChatModel,
		Messages: messages,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	start := time.Now()
	resp, err := s.client.Do(req)
	monitoring.ObserveUpstream("chat", start)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrCompletion, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", util.ErrCompletion, resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrCompletion, err)
	}

	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: no choices returned", util.ErrCompletion)
}

// ChatStream 流式补全，按SSE分片推送增量内容
func (s *AIService) ChatStream(ctx context.Context, history []AIChatMessage, systemPrompt string) (<-chan string, <-chan error) {
	out := make(chan string)
	errChan := make(chan error, 1)

	messages := make([]AIChatMessage, 0, len(history)+1)
	messages = append(messages, AIChatMessage{
		Role:    "system",
		Content: systemPrompt,
	})
	messages = append(messages, history...)

	reqBody := map[string]interface{}{
		"model":    s.config.ChatModel,
		"messages": messages,
		"stream":   true,
	}

	jsonData, _ := json.Marshal(reqBody)

	go func() {
		defer close(out)
		defer close(errChan)

		req, err := http.NewRequestWithContext(ctx, "POST", s.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
		if err != nil {
			errChan <- err
			return
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

		start := time.Now()
		resp, err := s.client.Do(req)
		monitoring.ObserveUpstream("chat", start)
		if err != nil {
			errChan <- fmt.Errorf("%w: %v", util.ErrCompletion, err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errChan <- fmt.Errorf("%w: status %d: %s", util.ErrCompletion, resp.StatusCode, string(body))
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err != io.EOF {
					errChan <- err
				}
				break
			}

			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var streamResp ChatCompletionResponse
			if err := json.Unmarshal([]byte(data), &streamResp); err != nil {
				continue
			}

			if len(streamResp.Choices) > 0 {
				content := streamResp.Choices[0].Delta.Content
				if content != "" {
					out <- content
				}
			}
		}
	}()

	return out, errChan
}
