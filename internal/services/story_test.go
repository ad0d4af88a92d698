package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStories struct {
	rows     map[int64]types.Story
	likes    map[[2]int64]bool
	viewsErr error
}

func newMemStories() *memStories {
	return &memStories{rows: map[int64]types.Story{}, likes: map[[2]int64]bool{}}
}

func (m *memStories) List(context.Context, types.StoryCategory, string, int, int) ([]types.Story, int, error) {
	return nil, 0, nil
}

func (m *memStories) ListByAuthor(context.Context, int64) ([]types.Story, error) {
	return nil, nil
}

func (m *memStories) Get(_ context.Context, id int64) (types.Story, error) {
	s, ok := m.rows[id]
	if !ok {
		return types.Story{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memStories) IncrementViews(_ context.Context, id int64) error {
	if m.viewsErr != nil {
		return m.viewsErr
	}
	s := m.rows[id]
	s.ViewsCount++
	m.rows[id] = s
	return nil
}

func (m *memStories) Create(_ context.Context, s types.Story) (types.Story, error) {
	s.ID = int64(len(m.rows) + 1)
	m.rows[s.ID] = s
	return s, nil
}

func (m *memStories) Update(_ context.Context, id int64, update types.StoryUpdate) (types.Story, error) {
	s := m.rows[id]
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Tags != nil {
		s.Tags = *update.Tags
	}
	if update.IsPublished != nil {
		s.IsPublished = *update.IsPublished
	}
	m.rows[id] = s
	return s, nil
}

func (m *memStories) Like(_ context.Context, storyID, userID int64) (int, error) {
	key := [2]int64{storyID, userID}
	if m.likes[key] {
		return 0, store.ErrConflict
	}
	m.likes[key] = true
	s := m.rows[storyID]
	s.LikesCount++
	m.rows[storyID] = s
	return s.LikesCount, nil
}

func (m *memStories) Unlike(_ context.Context, storyID, userID int64) (int, error) {
	key := [2]int64{storyID, userID}
	if !m.likes[key] {
		return 0, store.ErrNotFound
	}
	delete(m.likes, key)
	s := m.rows[storyID]
	s.LikesCount--
	m.rows[storyID] = s
	return s.LikesCount, nil
}

func TestCreateStoryCleansTags(t *testing.T) {
	svc := NewStoryService(newMemStories(), nil)

	story, err := svc.Create(context.Background(), 7, types.Story{
		Title:       " Landed it ",
		Content:     "Thanks to the network",
		Category:    types.StoryJobPlacement,
		Tags:        []string{"Go", " go ", "", "Backend"},
		IsPublished: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), story.AuthorID)
	assert.Equal(t, "Landed it", story.Title)
	assert.Equal(t, []string{"go", "backend"}, story.Tags)

	_, err = svc.Create(context.Background(), 7, types.Story{Title: "x", Content: "y", Category: "gossip"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUnpublishedStoryIsHidden(t *testing.T) {
	repo := newMemStories()
	svc := NewStoryService(repo, nil)
	draft, err := svc.Create(context.Background(), 7, types.Story{
		Title: "Draft", Content: "wip", Category: types.StoryNetworking,
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), draft.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Like(context.Background(), 8, draft.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, repo.rows[draft.ID].ViewsCount)
}

func TestStoryViewFailureIsLogged(t *testing.T) {
	repo := newMemStories()
	repo.viewsErr = errors.New("db down")
	logger, hook := test.NewNullLogger()
	svc := NewStoryService(repo, logger)
	story, err := svc.Create(context.Background(), 7, types.Story{
		Title: "Public", Content: "hello", Category: types.StoryScholarship, IsPublished: true,
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), story.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ViewsCount)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestStoryLikesAndOwnership(t *testing.T) {
	svc := NewStoryService(newMemStories(), nil)
	ctx := context.Background()
	story, err := svc.Create(ctx, 7, types.Story{
		Title: "Public", Content: "hello", Category: types.StoryCareerChange, IsPublished: true,
	})
	require.NoError(t, err)

	count, err := svc.Like(ctx, 8, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, err = svc.Like(ctx, 8, story.ID)
	assert.ErrorIs(t, err, store.ErrConflict)
	count, err = svc.Unlike(ctx, 8, story.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	title := "Hijacked"
	_, err = svc.Update(ctx, 8, story.ID, types.StoryUpdate{Title: &title})
	assert.ErrorIs(t, err, ErrNotPermitted)

	blank := "  "
	_, err = svc.Update(ctx, 7, story.ID, types.StoryUpdate{Title: &blank})
	assert.ErrorIs(t, err, ErrValidation)
}
