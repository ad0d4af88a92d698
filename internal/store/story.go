package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alumni-connect/apiserver/types"
)

const storySelect = `
	SELECT s.id, s.author_id, s.title, s.content, s.category, COALESCE(s.tags, '[]'::jsonb),
		s.is_published, s.is_featured, s.likes_count, s.views_count, s.created_at, s.updated_at,
		u.first_name, u.last_name, COALESCE(u.current_position, '')
	FROM success_stories s
	JOIN users u ON u.id = s.author_id`

// StoryRepository handles success stories and their likes.
type StoryRepository struct {
	db *sql.DB
}

func NewStoryRepository(db *sql.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

// List returns published stories, featured ones first.
func (r *StoryRepository) List(ctx context.Context, category types.StoryCategory, search string, offset, limit int) ([]types.Story, int, error) {
	where := []string{"s.is_published = TRUE"}
	args := []any{}
	if category != "" {
		args = append(args, category)
		where = append(where, fmt.Sprintf("s.category = $%d", len(args)))
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(s.title ILIKE $%d OR s.content ILIKE $%d)", n, n))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM success_stories s`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := storySelect + clause +
		fmt.Sprintf(" ORDER BY s.is_featured DESC, s.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *StoryRepository) ListByAuthor(ctx context.Context, authorID int64) ([]types.Story, error) {
	return r.query(ctx, storySelect+` WHERE s.author_id = $1 ORDER BY s.created_at DESC`, authorID)
}

func (r *StoryRepository) Get(ctx context.Context, id int64) (types.Story, error) {
	items, err := r.query(ctx, storySelect+` WHERE s.id = $1`, id)
	if err != nil {
		return types.Story{}, err
	}
	if len(items) == 0 {
		return types.Story{}, ErrNotFound
	}
	return items[0], nil
}

func (r *StoryRepository) IncrementViews(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE success_stories SET views_count = views_count + 1 WHERE id = $1`, id)
	return err
}

func (r *StoryRepository) Create(ctx context.Context, s types.Story) (types.Story, error) {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	tags, err := marshalStrings(s.Tags)
	if err != nil {
		return types.Story{}, err
	}

	const query = `
		INSERT INTO success_stories (
			author_id, title, content, category, tags, is_published, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		s.AuthorID,
		s.Title,
		s.Content,
		s.Category,
		tags,
		s.IsPublished,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID); err != nil {
		return types.Story{}, mapWriteError(err)
	}
	return r.Get(ctx, s.ID)
}

func (r *StoryRepository) Update(ctx context.Context, id int64, update types.StoryUpdate) (types.Story, error) {
	var (
		category any
		tags     any
	)
	if update.Category != nil {
		category = string(*update.Category)
	}
	if update.Tags != nil {
		raw, err := marshalStrings(*update.Tags)
		if err != nil {
			return types.Story{}, err
		}
		tags = raw
	}
	var published any
	if update.IsPublished != nil {
		published = *update.IsPublished
	}

	const query = `
		UPDATE success_stories
		SET title = COALESCE($1, title),
			content = COALESCE($2, content),
			category = COALESCE($3, category),
			tags = COALESCE($4::jsonb, tags),
			is_published = COALESCE($5, is_published),
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		nullableString(update.Title),
		nullableString(update.Content),
		category,
		tags,
		published,
		time.Now(),
		id,
	)
	if err != nil {
		return types.Story{}, err
	}
	if err := expectAffected(result); err != nil {
		return types.Story{}, err
	}
	return r.Get(ctx, id)
}

// Like records userID's like and bumps the counter in one transaction.
// A second like by the same user yields ErrConflict.
func (r *StoryRepository) Like(ctx context.Context, storyID, userID int64) (int, error) {
	return r.withLikeTx(ctx, func(tx *sql.Tx) error {
		const insert = `INSERT INTO story_likes (story_id, user_id, created_at) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, insert, storyID, userID, time.Now()); err != nil {
			return mapWriteError(err)
		}
		_, err := tx.ExecContext(ctx, `UPDATE success_stories SET likes_count = likes_count + 1 WHERE id = $1`, storyID)
		return err
	}, storyID)
}

// Unlike removes userID's like. It returns ErrNotFound if there was none.
func (r *StoryRepository) Unlike(ctx context.Context, storyID, userID int64) (int, error) {
	return r.withLikeTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM story_likes WHERE story_id = $1 AND user_id = $2`, storyID, userID)
		if err != nil {
			return err
		}
		if err := expectAffected(result); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE success_stories SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`, storyID)
		return err
	}, storyID)
}

func (r *StoryRepository) withLikeTx(ctx context.Context, fn func(tx *sql.Tx) error, storyID int64) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	var count int
	if err := tx.QueryRowContext(ctx, `SELECT likes_count FROM success_stories WHERE id = $1`, storyID).Scan(&count); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *StoryRepository) query(ctx context.Context, query string, args ...any) ([]types.Story, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.Story, 0)
	for rows.Next() {
		var (
			s       types.Story
			rawTags []byte
		)
		if err := rows.Scan(
			&s.ID,
			&s.AuthorID,
			&s.Title,
			&s.Content,
			&s.Category,
			&rawTags,
			&s.IsPublished,
			&s.IsFeatured,
			&s.LikesCount,
			&s.ViewsCount,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.Author.FirstName,
			&s.Author.LastName,
			&s.Author.CurrentPosition,
		); err != nil {
			return nil, err
		}
		if s.Tags, err = unmarshalStrings(rawTags); err != nil {
			return nil, err
		}
		s.Author.ID = s.AuthorID
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
