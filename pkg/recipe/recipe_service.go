package recipe

import (
	"context"
	"strings"

	"recipe-service/domain"
	"recipe-service/internal/utils/logger"
	"recipe-service/internal/utils/metrics"
	"recipe-service/internal/utils/storage"
	"recipe-service/pkg/feed"
	"recipe-service/pkg/media"
)

type (
	RecipeService interface {
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest) (*domain.RecipeDetail, error)
		GetRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error)
		ListRecipes(ctx context.Context, filter domain.RecipeListFilter) (domain.RecipeListResult, error)
		UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest) (*domain.RecipeDetail, error)
		DeleteRecipe(ctx context.Context, id string) (DeleteResult, error)
		PublishRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error)
		ApproveRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error)
		BlockRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error)
		ReprocessImage(ctx context.Context, id string) (domain.MediaJob, error)
		AddFavorite(ctx context.Context, recipeID string, req domain.FavoriteRequest) (string, error)
		RemoveFavorite(ctx context.Context, recipeID, userID string) (string, error)
		AddReview(ctx context.Context, req domain.AddReviewRequest) (*domain.Review, error)
		GetRatingAverage(ctx context.Context, recipeID string) (domain.RatingResponse, error)
	}

	// ModerationNotifier is told about every publish request. A nil notifier
	// disables the call.
	ModerationNotifier interface {
		Notify(ctx context.Context, payload any) error
	}

	// JobEnqueuer is the producer side of the media job queue.
	JobEnqueuer interface {
		Enqueue(ctx context.Context, payload any) error
	}

	// CleanupResult reports one best-effort step run after a recipe delete.
	CleanupResult struct {
		Step   string
		Target string
		Err    error
	}

	DeleteResult struct {
		Recipe  domain.Recipe
		Cleanup []CleanupResult
	}

	recipeService struct {
		recipeRepository RecipeRepository
		feedRepository   feed.FeedRepository
		jobs             JobEnqueuer
		rawStore         storage.BlobStore
		processedStore   storage.BlobStore
		notifier         ModerationNotifier
		log              *logger.Logger
	}
)

func NewRecipeService(
	recipeRepository RecipeRepository,
	feedRepository feed.FeedRepository,
	jobs JobEnqueuer,
	rawStore storage.BlobStore,
	processedStore storage.BlobStore,
	notifier ModerationNotifier,
	log *logger.Logger,
) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		feedRepository:   feedRepository,
		jobs:             jobs,
		rawStore:         rawStore,
		processedStore:   processedStore,
		notifier:         notifier,
		log:              log.With("service", "RecipeService"),
	}
}

// CreateRecipe stores the recipe and queues image derivation when a raw
// upload is attached. A failed enqueue is logged only; the recipe can be
// reprocessed later.
func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest) (*domain.RecipeDetail, error) {
	recipe, err := s.recipeRepository.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.RawImageBlobName != nil && strings.TrimSpace(*req.RawImageBlobName) != "" {
		s.enqueue(ctx, domain.MediaJob{RecipeID: recipe.ID, BlobName: *req.RawImageBlobName})
	}
	return recipe, nil
}

func (s *recipeService) GetRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	recipe, err := s.recipeRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrRecipeNotFound
	}
	return recipe, nil
}

func (s *recipeService) ListRecipes(ctx context.Context, filter domain.RecipeListFilter) (domain.RecipeListResult, error) {
	filter.Pagination = filter.Pagination.Normalize()
	return s.recipeRepository.List(ctx, filter)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest) (*domain.RecipeDetail, error) {
	recipe, err := s.recipeRepository.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrRecipeNotFound
	}
	if blob, ok := req.RawImageBlobName.Value(); ok && strings.TrimSpace(blob) != "" {
		s.enqueue(ctx, domain.MediaJob{RecipeID: recipe.ID, BlobName: blob})
	}
	return recipe, nil
}

// DeleteRecipe removes the relational rows, then tries to remove the blobs and
// documents that hang off the recipe. Cleanup failures never fail the call.
func (s *recipeService) DeleteRecipe(ctx context.Context, id string) (DeleteResult, error) {
	snapshot, err := s.recipeRepository.Delete(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}
	if snapshot == nil {
		return DeleteResult{}, domain.ErrRecipeNotFound
	}

	recipeID := snapshot.ID.String()
	var cleanup []CleanupResult
	if snapshot.RawImageBlobName != nil && *snapshot.RawImageBlobName != "" {
		cleanup = append(cleanup, CleanupResult{
			Step:   "raw_blob",
			Target: *snapshot.RawImageBlobName,
			Err:    s.rawStore.Delete(ctx, *snapshot.RawImageBlobName),
		})
	}
	thumb, main := media.ProcessedBlobNames(recipeID)
	for _, name := range []string{thumb, main} {
		cleanup = append(cleanup, CleanupResult{
			Step:   "processed_blob",
			Target: name,
			Err:    s.processedStore.Delete(ctx, name),
		})
	}
	cleanup = append(cleanup, CleanupResult{
		Step:   "feed_item",
		Target: recipeID,
		Err:    s.feedRepository.DeleteFeedItem(ctx, recipeID),
	})
	_, commentsErr := s.feedRepository.DeleteCommentsForRecipe(ctx, recipeID)
	cleanup = append(cleanup, CleanupResult{Step: "comments", Target: recipeID, Err: commentsErr})

	for _, c := range cleanup {
		if c.Err != nil {
			s.log.Ctx(ctx).Warn("recipe cleanup step failed", "recipeId", recipeID, "step", c.Step, "target", c.Target, "error", c.Err)
			metrics.RecordCleanupFailure(c.Step)
		}
	}

	return DeleteResult{Recipe: toDomainRecipe(snapshot), Cleanup: cleanup}, nil
}

// PublishRecipe moves the recipe to pending and notifies moderation. The
// status change stands even when the notification fails.
func (s *recipeService) PublishRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	recipe, err := s.recipeRepository.SetPublishStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrRecipeNotFound
	}

	if s.notifier != nil {
		notification := domain.PublishNotification{ID: recipe.ID, IsPublished: true, Title: recipe.Title}
		if err := s.notifier.Notify(ctx, notification); err != nil {
			s.log.Ctx(ctx).Error("moderation webhook failed", "recipeId", recipe.ID, "error", err)
			return nil, err
		}
	}
	return recipe, nil
}

func (s *recipeService) ApproveRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	return s.moderate(ctx, id, domain.ModerationApproved, true, domain.ModerationPending, domain.ModerationApproved)
}

func (s *recipeService) BlockRecipe(ctx context.Context, id string) (*domain.RecipeDetail, error) {
	return s.moderate(ctx, id, domain.ModerationBlocked, false, domain.ModerationPending, domain.ModerationApproved, domain.ModerationBlocked)
}

func (s *recipeService) moderate(ctx context.Context, id, status string, isPublished bool, allowedFrom ...string) (*domain.RecipeDetail, error) {
	current, err := s.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, from := range allowedFrom {
		if current.ModerationStatus == from {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, domain.ErrInvalidTransition
	}

	recipe, err := s.recipeRepository.SetModerationStatus(ctx, id, status, isPublished)
	if err != nil {
		return nil, err
	}
	if recipe == nil {
		return nil, domain.ErrRecipeNotFound
	}
	return recipe, nil
}

func (s *recipeService) ReprocessImage(ctx context.Context, id string) (domain.MediaJob, error) {
	recipe, err := s.GetRecipe(ctx, id)
	if err != nil {
		return domain.MediaJob{}, err
	}
	if recipe.RawImageBlobName == nil || strings.TrimSpace(*recipe.RawImageBlobName) == "" {
		return domain.MediaJob{}, domain.ErrNoRawImage
	}

	job := domain.MediaJob{
		RecipeID:      recipe.ID,
		BlobName:      *recipe.RawImageBlobName,
		CorrelationID: logger.CorrelationID(ctx),
	}
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		return domain.MediaJob{}, err
	}
	metrics.MediaJobsEnqueuedTotal.Inc()
	return job, nil
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID string, req domain.FavoriteRequest) (string, error) {
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return "", err
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = domain.DefaultUserID
	}
	if err := s.recipeRepository.AddFavorite(ctx, recipeID, userID, req.UserName); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = domain.DefaultUserID
	}
	if err := s.recipeRepository.RemoveFavorite(ctx, recipeID, userID); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *recipeService) AddReview(ctx context.Context, req domain.AddReviewRequest) (*domain.Review, error) {
	return s.recipeRepository.AddReview(ctx, req)
}

func (s *recipeService) GetRatingAverage(ctx context.Context, recipeID string) (domain.RatingResponse, error) {
	if _, err := s.GetRecipe(ctx, recipeID); err != nil {
		return domain.RatingResponse{}, err
	}
	avg, err := s.recipeRepository.GetRatingAverage(ctx, recipeID)
	if err != nil {
		return domain.RatingResponse{}, err
	}
	return domain.RatingResponse{RecipeID: recipeID, Average: avg}, nil
}

func (s *recipeService) enqueue(ctx context.Context, job domain.MediaJob) {
	job.CorrelationID = logger.CorrelationID(ctx)
	if err := s.jobs.Enqueue(ctx, job); err != nil {
		s.log.Ctx(ctx).Error("enqueue media job failed", "recipeId", job.RecipeID, "blobName", job.BlobName, "error", err)
		return
	}
	metrics.MediaJobsEnqueuedTotal.Inc()
}
