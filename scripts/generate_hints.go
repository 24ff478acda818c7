// 离线补全题库提示脚本
//
// 扫描题库中没有hint的非semantic题目，用聊天模型生成一条不剧透答案的提示
// 并写回题库文件。新导入一批题目后手动跑一次即可。
//
// 用法: go run scripts/generate_hints.go

package main

import (
	"context"
	"fmt"
	"interview_bot_backend/internal/config"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/repository"
	"interview_bot_backend/internal/service"
	"log"
	"strings"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	bankRepo, err := repository.NewQuestionBankRepository(cfg.Evaluation.QuestionBankPath)
	if err != nil {
		log.Fatalf("题库加载失败: %v", err)
	}

	aiService := service.NewAIService(cfg.AI)
	ctx := context.Background()

	generated := 0
	err = bankRepo.Update(func(bank model.QuestionBank) error {
		for scenario, byLevel := range bank {
			for level, questions := range byLevel {
				for i, q := range questions {
					if q.Hint != "" || q.EffectiveMode() == model.ModeSemantic {
						continue
					}

					hint, err := generateHint(ctx, aiService, q)
					if err != nil {
						return fmt.Errorf("%s/%s #%d: %v", scenario, level, i+1, err)
					}
					questions[i].Hint = hint
					generated++
					log.Printf("已生成提示 %s/%s #%d: %s", scenario, level, i+1, hint)
				}
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("补全提示失败: %v", err)
	}

	log.Printf("完成！共生成 %d 条提示", generated)
}

func generateHint(ctx context.Context, ai *service.AIService, q model.Question) (string, error) {
	prompt := fmt.Sprintf(
		"Question: %s\nCorrect answer: %s\nWrite a single short hint for a student who is stuck. The hint must not contain the answer itself.",
		q.Prompt, strings.Join(q.CorrectAnswers, ", "))

	hint, err := ai.Chat(ctx, []service.AIChatMessage{
		{Role: "user", Content: prompt},
	}, "You write concise one-sentence hints for interview questions.")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(hint), nil
}
