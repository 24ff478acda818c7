package service

import (
	"fmt"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/repository"
	"interview_bot_backend/internal/util"

	"go.uber.org/zap"
)

// QuestionBankService 管理端的题库维护。所有写操作经仓库校验后
// 原子落盘，正在进行中的会话不受影响（会话持有抽题时的副本）。
type QuestionBankService struct {
	Repo   *repository.QuestionBankRepository
	logger *zap.Logger
}

func NewQuestionBankService(repo *repository.QuestionBankRepository, logger *zap.Logger) *QuestionBankService {
	return &QuestionBankService{Repo: repo, logger: logger}
}

// Bank 整个题库
func (s *QuestionBankService) Bank() model.QuestionBank {
	return s.Repo.Snapshot()
}

// List 某场景某等级的题目
func (s *QuestionBankService) List(scenario string, level model.Level) ([]model.Question, error) {
	return s.Repo.Questions(scenario, level)
}

// Add 追加一道题
func (s *QuestionBankService) Add(scenario string, level model.Level, q model.Question) error {
	err := s.Repo.Update(func(bank model.QuestionBank) error {
		if bank[scenario] == nil {
			bank[scenario] = map[model.Level][]model.Question{}
		}
		bank[scenario][level] = append(bank[scenario][level], q)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("question added",
		zap.String("scenario", scenario),
		zap.String("level", string(level)),
		zap.String("prompt", q.Prompt))
	return nil
}

// Update 覆盖指定下标的题目
func (s *QuestionBankService) Update(scenario string, level model.Level, index int, q model.Question) error {
	return s.Repo.Update(func(bank model.QuestionBank) error {
		questions := bank[scenario][level]
		if index < 0 || index >= len(questions) {
			return fmt.Errorf("%w: question index %d out of range", util.ErrQuestionBank, index)
		}
		questions[index] = q
		return nil
	})
}

// Delete 删除指定下标的题目
func (s *QuestionBankService) Delete(scenario string, level model.Level, index int) error {
	err := s.Repo.Update(func(bank model.QuestionBank) error {
		questions := bank[scenario][level]
		if index < 0 || index >= len(questions) {
			return fmt.Errorf("%w: question index %d out of range", util.ErrQuestionBank, index)
		}
		bank[scenario][level] = append(questions[:index], questions[index+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("question deleted",
		zap.String("scenario", scenario),
		zap.String("level", string(level)),
		zap.Int("index", index))
	return nil
}

// Move 上移/下移一道题，offset为-1或+1
func (s *QuestionBankService) Move(scenario string, level model.Level, index, offset int) error {
	if offset != -1 && offset != 1 {
		return fmt.Errorf("%w: offset must be -1 or 1, got %d", util.ErrQuestionBank, offset)
	}
	return s.Repo.Update(func(bank model.QuestionBank) error {
		questions := bank[scenario][level]
		target := index + offset
		if index < 0 || index >= len(questions) || target < 0 || target >= len(questions) {
			return fmt.Errorf("%w: cannot move question %d by %d", util.ErrQuestionBank, index, offset)
		}
		questions[index], questions[target] = questions[target], questions[index]
		return nil
	})
}
