package service

import (
	"encoding/json"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/repository"
	"interview_bot_backend/internal/util"

	"go.uber.org/zap"
)

// WebhookService 外部系统推送的作答/事件先原样入库，后续离线分析。
// 只校验是合法JSON，不理解payload结构。
type WebhookService struct {
	Repo   *repository.SubmissionRepository
	logger *zap.Logger
}

func NewWebhookService(repo *repository.SubmissionRepository, logger *zap.Logger) *WebhookService {
	return &WebhookService{Repo: repo, logger: logger}
}

func (s *WebhookService) Receive(source string, payload []byte) (*model.Submission, error) {
	if !json.Valid(payload) {
		return nil, util.ErrInvalidPayload
	}

	submission := &model.Submission{
		Source:  source,
		Payload: json.RawMessage(payload),
	}
	if err := s.Repo.Create(submission); err != nil {
		return nil, err
	}

	s.logger.Info("webhook submission stored",
		zap.String("source", source),
		zap.Int("bytes", len(payload)))
	return submission, nil
}

func (s *WebhookService) List(page, limit int) ([]model.Submission, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Repo.List(page, limit)
}
