package model

import (
	"time"
)

// UserTaskCompletion 每个用户每个任务一条，记录完成状态与最近一次提交的代码
// swagger:model UserTaskCompletion
type UserTaskCompletion struct {
	BaseModel
	UserID        uint       `gorm:"not null;uniqueIndex:idx_user_task" json:"userId"`
	TaskID        string     `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_task" json:"taskId"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	Code          string     `gorm:"type:text" json:"code"`
	CompletedAt   *time.Time `json:"completedAt"`
	LastRunAt     time.Time  `json:"lastRunAt"`
	LastRunPassed bool       `gorm:"not null;default:false" json:"lastRunPassed"`
	LastOutput    string     `gorm:"type:text" json:"lastOutput"`
	Attempts      int        `gorm:"not null;default:0" json:"attempts"`
}

func (UserTaskCompletion) TableName() string {
	return "user_task_completions"
}

// UserTopicCompletion 由任务完成情况重新推导，不做增量维护
// swagger:model UserTopicCompletion
type UserTopicCompletion struct {
	BaseModel
	UserID      uint      `gorm:"not null;uniqueIndex:idx_user_topic" json:"userId"`
	TopicID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_topic" json:"topicId"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

func (UserTopicCompletion) TableName() string {
	return "user_topic_completions"
}
