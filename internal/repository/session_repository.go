package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"interview_bot_backend/internal/model"
	"interview_bot_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
)

// 会话在Redis中的保留时间，过期视为放弃本次面试
const sessionTTL = 24 * time.Hour

// SessionRepository 实时面试会话存Redis，每个用户一份
type SessionRepository struct {
	rdb *redis.Client
}

func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("interview:session:%d", userID)
}

func (r *SessionRepository) Get(ctx context.Context, userID uint) (*model.InterviewSession, error) {
	data, err := r.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, util.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	var session model.InterviewSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *model.InterviewSession) error {
	session.UpdatedAt = time.Now()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, sessionKey(session.UserID), data, sessionTTL).Err()
}

func (r *SessionRepository) Delete(ctx context.Context, userID uint) error {
	return r.rdb.Del(ctx, sessionKey(userID)).Err()
}
