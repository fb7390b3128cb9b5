package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// User 用户账号，同时承载进度聚合记录（完成数、当前/最长 streak、最后完成日期）。
// 聚合字段只能通过 ProgressService 的事务更新。
// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	Avatar   string   `gorm:"size:255" json:"avatar"`

	CompletedTasksCount int        `gorm:"not null;default:0" json:"completedTasksCount"`
	CurrentStreak       int        `gorm:"not null;default:0;index" json:"currentStreak"`
	LongestStreak       int        `gorm:"not null;default:0" json:"longestStreak"`
	LastCompletedDate   *time.Time `json:"lastCompletedDate"`

	LastLogin *time.Time `json:"lastLogin"`
}

func (User) TableName() string {
	return "users"
}

// ProgressSummary 对外展示的进度聚合
// swagger:model ProgressSummary
type ProgressSummary struct {
	UserID              uint       `json:"userId"`
	CompletedTasksCount int        `json:"completedTasksCount"`
	CurrentStreak       int        `json:"currentStreak"`
	LongestStreak       int        `json:"longestStreak"`
	LastCompletedDate   *time.Time `json:"lastCompletedDate"`
}

func (u *User) Progress() ProgressSummary {
	return ProgressSummary{
		UserID:              u.ID,
		CompletedTasksCount: u.CompletedTasksCount,
		CurrentStreak:       u.CurrentStreak,
		LongestStreak:       u.LongestStreak,
		LastCompletedDate:   u.LastCompletedDate,
	}
}
