package services

import (
	"context"
	"strings"

	"github.com/alumni-connect/apiserver/internal/store"
	"github.com/alumni-connect/apiserver/types"
	"github.com/sirupsen/logrus"
)

type StoryRepository interface {
	List(ctx context.Context, category types.StoryCategory, search string, offset, limit int) ([]types.Story, int, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]types.Story, error)
	Get(ctx context.Context, id int64) (types.Story, error)
	IncrementViews(ctx context.Context, id int64) error
	Create(ctx context.Context, s types.Story) (types.Story, error)
	Update(ctx context.Context, id int64, update types.StoryUpdate) (types.Story, error)
	Like(ctx context.Context, storyID, userID int64) (int, error)
	Unlike(ctx context.Context, storyID, userID int64) (int, error)
}

type StoryService struct {
	repo StoryRepository
	log  logrus.FieldLogger
}

func NewStoryService(repo StoryRepository, log logrus.FieldLogger) *StoryService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StoryService{repo: repo, log: log}
}

func (s *StoryService) Categories() []types.StoryCategory {
	return types.StoryCategories()
}

func (s *StoryService) List(ctx context.Context, category types.StoryCategory, search string, offset, limit int) ([]types.Story, int, error) {
	if category != "" && !category.Valid() {
		return nil, 0, invalid("invalid category")
	}
	return s.repo.List(ctx, category, search, offset, clampLimit(limit))
}

func (s *StoryService) ListMine(ctx context.Context, authorID int64) ([]types.Story, error) {
	return s.repo.ListByAuthor(ctx, authorID)
}

// Get returns a published story and counts the view. A failed view increment
// is logged and does not fail the read.
func (s *StoryService) Get(ctx context.Context, id int64) (types.Story, error) {
	story, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Story{}, err
	}
	if !story.IsPublished {
		return types.Story{}, store.ErrNotFound
	}
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.log.WithError(err).WithField("story_id", id).Warn("failed to count story view")
	} else {
		story.ViewsCount++
	}
	return story, nil
}

func (s *StoryService) Create(ctx context.Context, authorID int64, story types.Story) (types.Story, error) {
	story.Title = strings.TrimSpace(story.Title)
	story.Content = strings.TrimSpace(story.Content)
	if story.Title == "" || story.Content == "" || story.Category == "" {
		return types.Story{}, invalid("title, content and category are required")
	}
	if !story.Category.Valid() {
		return types.Story{}, invalid("invalid category")
	}
	story.Tags = cleanTags(story.Tags)
	story.AuthorID = authorID
	return s.repo.Create(ctx, story)
}

func (s *StoryService) Update(ctx context.Context, authorID, id int64, update types.StoryUpdate) (types.Story, error) {
	story, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Story{}, err
	}
	if story.AuthorID != authorID {
		return types.Story{}, ErrNotPermitted
	}
	if update.Category != nil && !update.Category.Valid() {
		return types.Story{}, invalid("invalid category")
	}
	for _, field := range []*string{update.Title, update.Content} {
		if field != nil && strings.TrimSpace(*field) == "" {
			return types.Story{}, invalid("title and content cannot be empty")
		}
	}
	if update.Tags != nil {
		tags := cleanTags(*update.Tags)
		update.Tags = &tags
	}
	return s.repo.Update(ctx, id, update)
}

// Like returns the new like count. Liking twice yields store.ErrConflict.
func (s *StoryService) Like(ctx context.Context, userID, id int64) (int, error) {
	if _, err := s.published(ctx, id); err != nil {
		return 0, err
	}
	return s.repo.Like(ctx, id, userID)
}

func (s *StoryService) Unlike(ctx context.Context, userID, id int64) (int, error) {
	if _, err := s.published(ctx, id); err != nil {
		return 0, err
	}
	return s.repo.Unlike(ctx, id, userID)
}

func (s *StoryService) published(ctx context.Context, id int64) (types.Story, error) {
	story, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Story{}, err
	}
	if !story.IsPublished {
		return types.Story{}, store.ErrNotFound
	}
	return story, nil
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
