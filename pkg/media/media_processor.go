package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"recipe-service/domain"
	"recipe-service/internal/utils"
	"recipe-service/internal/utils/logger"
	"recipe-service/internal/utils/storage"
)

const untitled = "Untitled"

type (
	// RecipeStore is the part of the recipe repository the pipeline touches.
	RecipeStore interface {
		GetByID(ctx context.Context, id string) (*domain.RecipeDetail, error)
		SetImagePointers(ctx context.Context, id, imageURL, thumbURL string) error
	}

	FeedWriter interface {
		UpsertFeedItem(ctx context.Context, item domain.FeedItem) error
	}

	Processor interface {
		Process(ctx context.Context, job domain.MediaJob) (domain.MediaResult, error)
	}

	MediaProcessor struct {
		raw       storage.BlobStore
		processed storage.BlobStore
		deriver   ImageDeriver
		recipes   RecipeStore
		feed      FeedWriter
		log       *logger.Logger
		now       func() time.Time
	}
)

func NewMediaProcessor(
	raw storage.BlobStore,
	processed storage.BlobStore,
	deriver ImageDeriver,
	recipes RecipeStore,
	feed FeedWriter,
	log *logger.Logger,
) *MediaProcessor {
	return &MediaProcessor{
		raw:       raw,
		processed: processed,
		deriver:   deriver,
		recipes:   recipes,
		feed:      feed,
		log:       log.With("service", "MediaProcessor"),
		now:       utils.NowUTC,
	}
}

// Process derives the thumbnail and main image for one recipe and projects the
// recipe into the feed. Running it again for the same job rewrites the same
// blobs, pointers and feed document.
func (p *MediaProcessor) Process(ctx context.Context, job domain.MediaJob) (domain.MediaResult, error) {
	recipeID := strings.TrimSpace(job.RecipeID)
	blobName := strings.TrimSpace(job.BlobName)
	if recipeID == "" || blobName == "" {
		return domain.MediaResult{}, domain.ErrInvalidJob
	}
	log := p.log.Ctx(ctx).With("recipeId", recipeID, "blobName", blobName)

	raw, err := p.raw.Download(ctx, blobName)
	if err != nil {
		return domain.MediaResult{}, fmt.Errorf("download raw image: %w", err)
	}

	derived, err := p.deriver.Derive(raw)
	if err != nil {
		return domain.MediaResult{}, fmt.Errorf("derive images: %w", err)
	}

	result := domain.MediaResult{RecipeID: recipeID}
	result.ThumbBlobName, result.MainBlobName = ProcessedBlobNames(recipeID)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := p.processed.Upload(gctx, result.ThumbBlobName, derived.Thumbnail, domain.MediaContentType, domain.MediaCacheControl)
		if err != nil {
			return fmt.Errorf("upload thumbnail: %w", err)
		}
		result.ThumbURL = url
		return nil
	})
	g.Go(func() error {
		url, err := p.processed.Upload(gctx, result.MainBlobName, derived.Main, domain.MediaContentType, domain.MediaCacheControl)
		if err != nil {
			return fmt.Errorf("upload main image: %w", err)
		}
		result.ImageURL = url
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.MediaResult{}, err
	}

	if err := p.recipes.SetImagePointers(ctx, recipeID, result.ImageURL, result.ThumbURL); err != nil {
		return domain.MediaResult{}, fmt.Errorf("set image pointers: %w", err)
	}

	recipe, err := p.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return domain.MediaResult{}, fmt.Errorf("reload recipe: %w", err)
	}
	if recipe == nil {
		log.Warn("recipe deleted while processing; derived blobs orphaned",
			"thumb", result.ThumbBlobName, "main", result.MainBlobName)
		return domain.MediaResult{}, domain.ErrRecipeNotFound
	}

	title := strings.TrimSpace(recipe.Title)
	if title == "" {
		title = untitled
	}
	createdAt := recipe.CreatedAt
	if createdAt.IsZero() {
		createdAt = p.now()
	}
	thumbURL := result.ThumbURL

	item := domain.FeedItem{
		ID:            recipeID,
		PK:            domain.FeedPartition,
		RecipeID:      recipeID,
		Title:         title,
		ImageThumbURL: &thumbURL,
		CreatedAt:     createdAt.UTC().Format(domain.TimestampLayout),
	}
	if err := p.feed.UpsertFeedItem(ctx, item); err != nil {
		return domain.MediaResult{}, fmt.Errorf("upsert feed item: %w", err)
	}

	log.Info("media processed", "thumbUrl", result.ThumbURL, "imageUrl", result.ImageURL)
	return result, nil
}
