package repository

import (
	"errors"
	"interview_bot_backend/internal/model"

	"gorm.io/gorm"
)

type LevelProgressRepository struct {
	DB *gorm.DB
}

func NewLevelProgressRepository(db *gorm.DB) *LevelProgressRepository {
	return &LevelProgressRepository{DB: db}
}

// GetOrCreate 查询用户某场景的进度，不存在则从Beginner开始
func (r *LevelProgressRepository) GetOrCreate(userID uint, scenario string) (*model.LevelProgress, error) {
	var p model.LevelProgress
	err := r.DB.Where("user_id = ? AND scenario = ?", userID, scenario).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p = model.LevelProgress{UserID: userID, Scenario: scenario, Level: model.LevelBeginner}
		if err := r.DB.Create(&p).Error; err != nil {
			return nil, err
		}
		return &p, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SetLevel 事务内更新进度，晋级与降级都走这里
func (r *LevelProgressRepository) SetLevel(userID uint, scenario string, level model.Level) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var p model.LevelProgress
		err := tx.Where("user_id = ? AND scenario = ?", userID, scenario).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&model.LevelProgress{UserID: userID, Scenario: scenario, Level: level}).Error
		}
		if err != nil {
			return err
		}
		p.Level = level
		return tx.Save(&p).Error
	})
}

// ListByUser 用户全部场景的进度
func (r *LevelProgressRepository) ListByUser(userID uint) ([]model.LevelProgress, error) {
	var list []model.LevelProgress
	err := r.DB.Where("user_id = ?", userID).Find(&list).Error
	return list, err
}
