package model

// Level 难度等级，按 Beginner → Intermediate → Hard 逐级解锁
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelHard         Level = "Hard"
)

// Levels 从低到高的全部等级
var Levels = []Level{LevelBeginner, LevelIntermediate, LevelHard}

// NextLevel 返回下一等级；已是最高等级时 ok 为 false
func NextLevel(l Level) (Level, bool) {
	switch l {
	case LevelBeginner:
		return LevelIntermediate, true
	case LevelIntermediate:
		return LevelHard, true
	default:
		return "", false
	}
}

func ValidLevel(l Level) bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelHard:
		return true
	}
	return false
}
