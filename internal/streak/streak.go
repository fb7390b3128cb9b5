// Package streak 实现连续学习天数（streak）的纯计算规则。
//
// 所有“天”都是给定时区下的自然日，时分秒被丢弃。跨时区或午夜前后提交时
// 结果可能与用户直觉不一致，这是按客户端本地日期计算的已知限制。
package streak

import "time"

// DecayThresholdDays 连续两个自然日及以上无完成记录即视为断签
const DecayThresholdDays = 2

// State 用户进度聚合记录中与 streak 相关的字段
type State struct {
	CompletedTasksCount int
	CurrentStreak       int
	LongestStreak       int
	LastCompletedDate   *time.Time
}

// DaysBetween 返回 last 与 now 在 loc 时区下相差的自然日数。
// now 早于 last（时钟偏差）时返回 0。
func DaysBetween(last, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	a := civilDay(last.In(loc))
	b := civilDay(now.In(loc))
	diff := int(b.Sub(a).Hours() / 24)
	if diff < 0 {
		return 0
	}
	return diff
}

// civilDay 以 UTC 午夜表示一个自然日，避免夏令时导致一天不等于 24 小时
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Advance 计算一次“首次完成任务”事件之后的新状态。
//
//	无上次完成日期        -> 1
//	同一天               -> 不变
//	相差 1 天            -> +1
//	相差 2 天及以上       -> 重置为 1
//
// 同时累计完成数、刷新最长记录并把最后完成日期设为 now。
// 每个完成事件只能调用一次。
func Advance(prev State, now time.Time, loc *time.Location) State {
	next := prev
	next.CompletedTasksCount = prev.CompletedTasksCount + 1

	if prev.LastCompletedDate == nil {
		next.CurrentStreak = 1
	} else {
		switch diff := DaysBetween(*prev.LastCompletedDate, now, loc); {
		case diff == 0:
			next.CurrentStreak = prev.CurrentStreak
		case diff == 1:
			next.CurrentStreak = prev.CurrentStreak + 1
		default:
			next.CurrentStreak = 1
		}
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	completedAt := now
	next.LastCompletedDate = &completedAt
	return next
}

// Decay 在没有新完成事件的情况下检查 streak 是否已经失效。
// 断签时 streak 归零（而不是 Advance 中的重置为 1），返回 true 表示发生了变化。
func Decay(prev State, now time.Time, loc *time.Location) (State, bool) {
	if prev.LastCompletedDate == nil || prev.CurrentStreak == 0 {
		return prev, false
	}
	if DaysBetween(*prev.LastCompletedDate, now, loc) < DecayThresholdDays {
		return prev, false
	}
	next := prev
	next.CurrentStreak = 0
	return next, true
}
