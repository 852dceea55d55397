package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recipe-service/domain"
	"recipe-service/entities"
	"recipe-service/internal/utils"
)

type (
	// FeedRepository is the document side of the system: one feed document per
	// processed recipe and an append-only comment partition per recipe.
	FeedRepository interface {
		UpsertFeedItem(ctx context.Context, item domain.FeedItem) error
		GetFeedPage(ctx context.Context, page, pageSize int) ([]domain.FeedItem, error)
		DeleteFeedItem(ctx context.Context, recipeID string) error
		AddComment(ctx context.Context, recipeID, userID, text string) (*domain.Comment, error)
		GetComments(ctx context.Context, recipeID string, page, pageSize int) ([]domain.Comment, error)
		DeleteCommentsForRecipe(ctx context.Context, recipeID string) (int, error)
	}

	feedRepository struct {
		db  *gorm.DB
		now func() time.Time
	}
)

func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db, now: utils.NowUTC}
}

// UpsertFeedItem replaces the feed document for the recipe, last write wins.
func (r *feedRepository) UpsertFeedItem(ctx context.Context, item domain.FeedItem) error {
	item.PK = domain.FeedPartition
	if item.ID == "" {
		item.ID = item.RecipeID
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal feed item: %w", err)
	}

	doc := entities.Document{
		Collection:   entities.CollectionFeed,
		PartitionKey: domain.FeedPartition,
		ID:           item.ID,
		Body:         datatypes.JSON(body),
		CreatedAt:    parseTimestamp(item.CreatedAt, r.now),
		UpdatedAt:    r.now(),
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "partition_key"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "created_at", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("upsert feed item %s: %w", item.ID, err)
	}
	return nil
}

func (r *feedRepository) GetFeedPage(ctx context.Context, page, pageSize int) ([]domain.FeedItem, error) {
	docs, err := r.page(ctx, entities.CollectionFeed, domain.FeedPartition, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("get feed page: %w", err)
	}
	items := make([]domain.FeedItem, 0, len(docs))
	for _, doc := range docs {
		var item domain.FeedItem
		if err := json.Unmarshal(doc.Body, &item); err != nil {
			return nil, fmt.Errorf("decode feed item %s: %w", doc.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// DeleteFeedItem treats a missing document as success.
func (r *feedRepository) DeleteFeedItem(ctx context.Context, recipeID string) error {
	err := r.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ? AND id = ?", entities.CollectionFeed, domain.FeedPartition, recipeID).
		Delete(&entities.Document{}).Error
	if err != nil {
		return fmt.Errorf("delete feed item %s: %w", recipeID, err)
	}
	return nil
}

func (r *feedRepository) AddComment(ctx context.Context, recipeID, userID, text string) (*domain.Comment, error) {
	now := r.now().UTC()
	comment := domain.Comment{
		ID:        uuid.NewString(),
		RecipeID:  recipeID,
		UserID:    userID,
		Text:      text,
		CreatedAt: now.Format(domain.TimestampLayout),
	}
	body, err := json.Marshal(comment)
	if err != nil {
		return nil, fmt.Errorf("marshal comment: %w", err)
	}

	doc := entities.Document{
		Collection:   entities.CollectionComments,
		PartitionKey: recipeID,
		ID:           comment.ID,
		Body:         datatypes.JSON(body),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &comment, nil
}

func (r *feedRepository) GetComments(ctx context.Context, recipeID string, page, pageSize int) ([]domain.Comment, error) {
	docs, err := r.page(ctx, entities.CollectionComments, recipeID, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	comments := make([]domain.Comment, 0, len(docs))
	for _, doc := range docs {
		var c domain.Comment
		if err := json.Unmarshal(doc.Body, &c); err != nil {
			return nil, fmt.Errorf("decode comment %s: %w", doc.ID, err)
		}
		comments = append(comments, c)
	}
	return comments, nil
}

// DeleteCommentsForRecipe removes the partition document by document. It keeps
// going past individual failures and reports how many were deleted.
func (r *feedRepository) DeleteCommentsForRecipe(ctx context.Context, recipeID string) (int, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entities.Document{}).
		Where("collection = ? AND partition_key = ?", entities.CollectionComments, recipeID).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("list comments for %s: %w", recipeID, err)
	}

	deleted := 0
	var errs []error
	for _, id := range ids {
		err := r.db.WithContext(ctx).
			Where("collection = ? AND partition_key = ? AND id = ?", entities.CollectionComments, recipeID, id).
			Delete(&entities.Document{}).Error
		if err != nil {
			errs = append(errs, fmt.Errorf("delete comment %s: %w", id, err))
			continue
		}
		deleted++
	}
	return deleted, errors.Join(errs...)
}

func (r *feedRepository) page(ctx context.Context, collection, partition string, page, pageSize int) ([]entities.Document, error) {
	p := domain.Pagination{Page: page, PageSize: pageSize}.Normalize()
	var docs []entities.Document
	err := r.db.WithContext(ctx).
		Where("collection = ? AND partition_key = ?", collection, partition).
		Order("created_at DESC").
		Order("id").
		Offset(p.Offset()).
		Limit(p.PageSize).
		Find(&docs).Error
	return docs, err
}

func parseTimestamp(s string, now func() time.Time) time.Time {
	for _, layout := range []string{domain.TimestampLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return now().UTC()
}
