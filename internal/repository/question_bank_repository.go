package repository

import (
	"encoding/json"
	"fmt"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/util"
	"os"
	"path/filepath"
	"sync"
)

// QuestionBankRepository 题库以单个JSON文件为准（管理页沿用该格式），
// 进程内持有缓存，写操作先落盘再换缓存
type QuestionBankRepository struct {
	path string

	mu   sync.RWMutex
	bank model.QuestionBank
}

func NewQuestionBankRepository(path string) (*QuestionBankRepository, error) {
	r := &QuestionBankRepository{path: path}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *QuestionBankRepository) load() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.bank = model.QuestionBank{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", util.ErrQuestionBank, err)
	}

	var bank model.QuestionBank
	if err := json.Unmarshal(data, &bank); err != nil {
		return fmt.Errorf("%w: %v", util.ErrQuestionBank, err)
	}
	if err := bank.Validate(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrQuestionBank, err)
	}

	r.bank = bank
	return nil
}

// Questions 某场景某等级的题目（副本，防止调用方改动缓存）
func (r *QuestionBankRepository) Questions(scenario string, level model.Level) ([]model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byLevel, ok := r.bank[scenario]
	if !ok {
		return nil, util.ErrUnknownScenario
	}
	questions := byLevel[level]
	out := make([]model.Question, len(questions))
	copy(out, questions)
	return out, nil
}

// Snapshot 整个题库的深拷贝，管理端列表用
func (r *QuestionBankRepository) Snapshot() model.QuestionBank {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(model.QuestionBank, len(r.bank))
	for scenario, byLevel := range r.bank {
		levels := make(map[model.Level][]model.Question, len(byLevel))
		for level, questions := range byLevel {
			qs := make([]model.Question, len(questions))
			copy(qs, questions)
			levels[level] = qs
		}
		out[scenario] = levels
	}
	return out
}

// Replace 校验后整体替换并持久化
func (r *QuestionBankRepository) Replace(bank model.QuestionBank) error {
	if err := bank.Validate(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrQuestionBank, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persist(bank); err != nil {
		return err
	}
	r.bank = bank
	return nil
}

// Update 在锁内对题库做一次变更并持久化
func (r *QuestionBankRepository) Update(fn func(bank model.QuestionBank) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 在副本上修改，持久化失败时缓存保持原样
	working := make(model.QuestionBank, len(r.bank))
	for scenario, byLevel := range r.bank {
		levels := make(map[model.Level][]model.Question, len(byLevel))
		for level, questions := range byLevel {
			qs := make([]model.Question, len(questions))
			copy(qs, questions)
			levels[level] = qs
		}
		working[scenario] = levels
	}

	if err := fn(working); err != nil {
		return err
	}
	if err := working.Validate(); err != nil {
		return fmt.Errorf("%w: %v", util.ErrQuestionBank, err)
	}
	if err := r.persist(working); err != nil {
		return err
	}
	r.bank = working
	return nil
}

// persist 写临时文件后rename，避免写一半的题库文件
func (r *QuestionBankRepository) persist(bank model.QuestionBank) error {
	data, err := json.MarshalIndent(bank, "", "    ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "questions-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
