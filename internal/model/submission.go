package model

import "encoding/json"

// Submission webhook收到的任意提交载荷，原样落库
// swagger:model Submission
type Submission struct {
	UUIDModel

	Source  string          `gorm:"size:100" json:"source"`
	Payload json.RawMessage `gorm:"type:json" json:"payload"`
}

func (Submission) TableName() string {
	return "submissions"
}
