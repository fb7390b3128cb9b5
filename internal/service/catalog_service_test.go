package service

import (
	"codegrow_backend/internal/model"
	"codegrow_backend/internal/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTopicDecoratesProgress(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.content, f.progressRep)
	user := f.createUser(t)
	topic, tasks := f.createTopic(t, 3)
	ctx := context.Background()

	_, _, err := f.progress.RecordSubmission(ctx, user.ID, tasks[1].ID, "saved code", true, RecordOptions{})
	require.NoError(t, err)

	detail, err := catalog.GetTopic(ctx, user.ID, topic.ID, false)
	require.NoError(t, err)
	require.Len(t, detail.Tasks, 3)
	assert.False(t, detail.Completed)

	for i, task := range detail.Tasks {
		assert.Equal(t, tasks[i].ID, task.ID, "ordered by creation time")
		assert.Empty(t, task.ExpectedOutput, "answers hidden from students")
	}
	assert.True(t, detail.Tasks[1].Completed)
	assert.Equal(t, "saved code", detail.Tasks[1].SavedCode)
	assert.False(t, detail.Tasks[0].Completed)

	admin, err := catalog.GetTopic(ctx, user.ID, topic.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Codegrow!", admin.Tasks[0].ExpectedOutput)
}

func TestGetThemeMarksCompletedTopics(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.content, f.progressRep)
	user := f.createUser(t)
	topic, tasks := f.createTopic(t, 1)
	ctx := context.Background()

	_, _, err := f.progress.RecordSubmission(ctx, user.ID, tasks[0].ID, "code", true, RecordOptions{})
	require.NoError(t, err)

	detail, err := catalog.GetTheme(ctx, user.ID, topic.ThemeID)
	require.NoError(t, err)
	require.Len(t, detail.Topics, 1)
	assert.True(t, detail.Topics[0].Completed)

	_, err = catalog.GetTheme(ctx, user.ID, "missing")
	assert.ErrorIs(t, err, util.ErrThemeNotFound)
}

func TestGetTaskNotFound(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.content, f.progressRep)
	_, err := catalog.GetTask(context.Background(), 1, "missing", false)
	assert.ErrorIs(t, err, util.ErrTaskNotFound)
	assert.True(t, util.IsNotFound(err))
}

func TestCreateContent(t *testing.T) {
	f := newFixture(t)
	catalog := NewCatalogService(f.content, f.progressRep)
	ctx := context.Background()

	assert.ErrorIs(t, catalog.CreateTheme(ctx, &model.Theme{Name: "  "}), util.ErrInvalidContent)

	theme := &model.Theme{Name: "Loops", Order: 2}
	require.NoError(t, catalog.CreateTheme(ctx, theme))
	assert.NotEmpty(t, theme.ID)

	assert.ErrorIs(t, catalog.CreateTopic(ctx, &model.Topic{ThemeID: "missing", Name: "for"}), util.ErrThemeNotFound)
	topic := &model.Topic{ThemeID: theme.ID, Name: "for"}
	require.NoError(t, catalog.CreateTopic(ctx, topic))

	assert.ErrorIs(t, catalog.CreateTask(ctx, &model.Task{TopicID: "missing", Title: "t"}), util.ErrTopicNotFound)
	task := &model.Task{TopicID: topic.ID, Title: "Count to three", ExpectedOutput: "1\n2\n3"}
	require.NoError(t, catalog.CreateTask(ctx, task))
	assert.Equal(t, model.DefaultStarterCode, task.StarterCode)

	themes, err := catalog.ListThemes(ctx)
	require.NoError(t, err)
	// 种子数据 Java Basics 的 order 为 1，排在前面
	require.Len(t, themes, 2)
	assert.Equal(t, "Java Basics", themes[0].Name)
	assert.Equal(t, "Loops", themes[1].Name)
}
