package service

import (
	"codegrow_backend/internal/config"
	"codegrow_backend/internal/executor"
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/repository"
	"codegrow_backend/pkg/database"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// newFileTestDB 文件型 sqlite，允许多个连接并发开启事务
func newFileTestDB(t *testing.T, maxConns int) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "codegrow.db") + "?_txlock=immediate&_busy_timeout=10000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxConns)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// fakeExecutor 返回固定输出或错误，并统计调用次数
type fakeExecutor struct {
	output string
	err    error
	calls  int32
}

func (f *fakeExecutor) Execute(ctx context.Context, code string) (*executor.Result, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &executor.Result{Output: f.output, StatusCode: 200}, nil
}

func (f *fakeExecutor) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

// clock 可在测试中推进的时钟
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	db          *gorm.DB
	users       *repository.UserRepository
	content     *repository.ContentRepository
	progressRep *repository.ProgressRepository
	progress    *ProgressService
	clock       *clock
	exec        *fakeExecutor
	submission  *SubmissionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithDB(t, newTestDB(t))
}

func newFixtureWithDB(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()
	f := &fixture{
		db:          db,
		users:       repository.NewUserRepository(db),
		content:     repository.NewContentRepository(db),
		progressRep: repository.NewProgressRepository(db),
		clock:       newClock(time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)),
		exec:        &fakeExecutor{},
	}
	f.progress = NewProgressService(db, f.users, f.content, f.progressRep, nil, config.ProgressConfig{
		Timezone:        "UTC",
		LookupBatchSize: 10,
		TxMaxRetries:    3,
	})
	f.progress.SetClock(f.clock.Now)
	f.submission = NewSubmissionService(f.content, NewEvaluatorService(f.exec), f.progress)
	return f
}

func (f *fixture) createUser(t *testing.T, mutate ...func(u *model.User)) *model.User {
	t.Helper()
	u := &model.User{
		Name:     "learner",
		Email:    uuid.NewString() + "@example.com",
		Password: "x",
		Role:     model.Student,
	}
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// createTopic 创建一个主题下的知识点及 n 个任务，任务按创建时间递增
func (f *fixture) createTopic(t *testing.T, n int) (*model.Topic, []model.Task) {
	t.Helper()
	theme := &model.Theme{Name: "Theme " + uuid.NewString()[:8]}
	require.NoError(t, f.db.Create(theme).Error)
	topic := &model.Topic{ThemeID: theme.ID, Name: "Topic"}
	require.NoError(t, f.db.Create(topic).Error)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tasks := make([]model.Task, 0, n)
	for i := 0; i < n; i++ {
		task := model.Task{
			UUIDBase:       model.UUIDBase{CreatedAt: base.Add(time.Duration(i) * time.Minute)},
			TopicID:        topic.ID,
			Title:          fmt.Sprintf("Task %d", i+1),
			ExpectedOutput: "Hello, Codegrow!",
		}
		require.NoError(t, f.db.Create(&task).Error)
		tasks = append(tasks, task)
	}
	return topic, tasks
}

func (f *fixture) reloadUser(t *testing.T, id uint) *model.User {
	t.Helper()
	var u model.User
	require.NoError(t, f.db.First(&u, id).Error)
	return &u
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

func ptrTime(t time.Time) *time.Time { return &t }
