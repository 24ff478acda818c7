package model

// LevelProgress 用户在某场景下已解锁的最高等级，跨会话持久化。
// 只在一轮面试评估结束时更新。
// swagger:model LevelProgress
type LevelProgress struct {
	BaseModel

	UserID   uint   `gorm:"index:idx_user_scenario,unique;type:bigint unsigned" json:"userId"`
	Scenario string `gorm:"index:idx_user_scenario,unique;size:100" json:"scenario"`
	Level    Level  `gorm:"size:20;default:'Beginner'" json:"level"`
}

func (LevelProgress) TableName() string {
	return "level_progress"
}
