package recipe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-service/domain"
	"recipe-service/internal/testutil"
	"recipe-service/internal/utils/logger"
	"recipe-service/pkg/feed"
	"recipe-service/pkg/media"
)

type fakeEnqueuer struct {
	mu   sync.Mutex
	err  error
	jobs []domain.MediaJob
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, payload.(domain.MediaJob))
	return nil
}

type fakeNotifier struct {
	err      error
	payloads []any
	ids      []string
}

func (n *fakeNotifier) Notify(ctx context.Context, payload any) error {
	n.payloads = append(n.payloads, payload)
	n.ids = append(n.ids, logger.CorrelationID(ctx))
	return n.err
}

type serviceFixture struct {
	svc       RecipeService
	repo      RecipeRepository
	feed      feed.FeedRepository
	jobs      *fakeEnqueuer
	notifier  *fakeNotifier
	raw       *testutil.MemoryBlobStore
	processed *testutil.MemoryBlobStore
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	f := serviceFixture{
		repo:      NewRecipeRepository(db),
		feed:      feed.NewFeedRepository(db),
		jobs:      &fakeEnqueuer{},
		notifier:  &fakeNotifier{},
		raw:       testutil.NewMemoryBlobStore("raw"),
		processed: testutil.NewMemoryBlobStore("processed"),
	}
	f.svc = NewRecipeService(f.repo, f.feed, f.jobs, f.raw, f.processed, f.notifier, logger.Nop())
	return f
}

func TestRecipeService_CreateEnqueuesMediaJob(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	blob := "recipes/a.png"

	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Pancakes", RawImageBlobName: &blob})
	require.NoError(t, err)
	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, domain.MediaJob{RecipeID: created.ID, BlobName: blob}, f.jobs.jobs[0])

	_, err = f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "No image"})
	require.NoError(t, err)
	assert.Len(t, f.jobs.jobs, 1)
}

func TestRecipeService_CreateSurvivesEnqueueFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.jobs.err = errors.New("redis down")
	blob := "recipes/a.png"

	created, err := f.svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{Title: "Pancakes", RawImageBlobName: &blob})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestRecipeService_UpdateEnqueuesOnNewRawImage(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Stew"})
	require.NoError(t, err)

	_, err = f.svc.UpdateRecipe(ctx, created.ID, domain.UpdateRecipeRequest{Title: domain.Set("Beef Stew")})
	require.NoError(t, err)
	assert.Empty(t, f.jobs.jobs)

	_, err = f.svc.UpdateRecipe(ctx, created.ID, domain.UpdateRecipeRequest{RawImageBlobName: domain.Set("recipes/new.jpg")})
	require.NoError(t, err)
	require.Len(t, f.jobs.jobs, 1)
	assert.Equal(t, "recipes/new.jpg", f.jobs.jobs[0].BlobName)

	_, err = f.svc.UpdateRecipe(ctx, uuid.NewString(), domain.UpdateRecipeRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecipeService_GetMissing(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.GetRecipe(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRecipeService_DeleteRunsCleanup(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	blob := "recipes/a.png"
	f.raw.Put(blob, []byte("raw"))

	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Pancakes", RawImageBlobName: &blob})
	require.NoError(t, err)
	thumb, main := media.ProcessedBlobNames(created.ID)
	f.processed.Put(thumb, []byte("t"))
	f.processed.Put(main, []byte("m"))
	require.NoError(t, f.feed.UpsertFeedItem(ctx, domain.FeedItem{RecipeID: created.ID, Title: "Pancakes"}))
	_, err = f.feed.AddComment(ctx, created.ID, domain.DefaultUserID, "yum")
	require.NoError(t, err)

	res, err := f.svc.DeleteRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pancakes", res.Recipe.Title)

	steps := make([]string, 0, len(res.Cleanup))
	for _, c := range res.Cleanup {
		steps = append(steps, c.Step)
		assert.NoError(t, c.Err, c.Step)
	}
	assert.Equal(t, []string{"raw_blob", "processed_blob", "processed_blob", "feed_item", "comments"}, steps)

	assert.Empty(t, f.raw.Keys())
	assert.Empty(t, f.processed.Keys())
	items, err := f.feed.GetFeedPage(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
	comments, err := f.feed.GetComments(ctx, created.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = f.svc.DeleteRecipe(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRecipeService_DeleteToleratesCleanupFailures(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.processed.DeleteErr = errors.New("access denied")

	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Soup"})
	require.NoError(t, err)

	res, err := f.svc.DeleteRecipe(ctx, created.ID)
	require.NoError(t, err)

	failed := 0
	for _, c := range res.Cleanup {
		if c.Err != nil {
			failed++
			assert.Equal(t, "processed_blob", c.Step)
		}
	}
	assert.Equal(t, 2, failed)

	got, err := f.repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecipeService_ModerationTransitions(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Pie"})
	require.NoError(t, err)

	_, err = f.svc.ApproveRecipe(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, err = f.svc.BlockRecipe(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	published, err := f.svc.PublishRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationPending, published.ModerationStatus)

	approved, err := f.svc.ApproveRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationApproved, approved.ModerationStatus)
	assert.True(t, approved.IsPublished)

	blocked, err := f.svc.BlockRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationBlocked, blocked.ModerationStatus)
	assert.False(t, blocked.IsPublished)

	_, err = f.svc.ApproveRecipe(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.svc.PublishRecipe(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRecipeService_ReprocessImage(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	bare, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Bare"})
	require.NoError(t, err)
	_, err = f.svc.ReprocessImage(ctx, bare.ID)
	assert.ErrorIs(t, err, domain.ErrNoRawImage)

	blob := "recipes/a.png"
	withImage, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Pictured", RawImageBlobName: &blob})
	require.NoError(t, err)

	job, err := f.svc.ReprocessImage(ctx, withImage.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaJob{RecipeID: withImage.ID, BlobName: blob}, job)
	assert.Len(t, f.jobs.jobs, 2)

	f.jobs.err = errors.New("redis down")
	_, err = f.svc.ReprocessImage(ctx, withImage.ID)
	assert.EqualError(t, err, "redis down")

	_, err = f.svc.ReprocessImage(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRecipeService_FavoritesAndRatings(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Risotto"})
	require.NoError(t, err)

	userID, err := f.svc.AddFavorite(ctx, created.ID, domain.FavoriteRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultUserID, userID)

	_, err = f.svc.AddFavorite(ctx, uuid.NewString(), domain.FavoriteRequest{})
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)

	userID, err = f.svc.RemoveFavorite(ctx, created.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultUserID, userID)

	_, err = f.svc.AddReview(ctx, domain.AddReviewRequest{RecipeID: created.ID, Rating: 3})
	require.NoError(t, err)
	rating, err := f.svc.GetRatingAverage(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, rating.RecipeID)
	assert.InDelta(t, 3.0, rating.Average, 0.0001)

	_, err = f.svc.GetRatingAverage(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
}

func TestRecipeService_PublishNotifiesModeration(t *testing.T) {
	f := newServiceFixture(t)
	created, err := f.svc.CreateRecipe(context.Background(), domain.CreateRecipeRequest{Title: "Tart"})
	require.NoError(t, err)

	ctx := logger.ContextWithCorrelationID(context.Background(), "req-1")
	_, err = f.svc.PublishRecipe(ctx, created.ID)
	require.NoError(t, err)

	require.Len(t, f.notifier.payloads, 1)
	assert.Equal(t, domain.PublishNotification{ID: created.ID, IsPublished: true, Title: "Tart"}, f.notifier.payloads[0])
	assert.Equal(t, []string{"req-1"}, f.notifier.ids)

	_, err = f.svc.PublishRecipe(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
	assert.Len(t, f.notifier.payloads, 1)
}

func TestRecipeService_PublishReportsWebhookFailure(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.notifier.err = fmt.Errorf("%w: webhook responded 500", domain.ErrWebhookFailed)
	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Tart"})
	require.NoError(t, err)

	_, err = f.svc.PublishRecipe(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrWebhookFailed)

	got, err := f.svc.GetRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationPending, got.ModerationStatus)
}

func TestRecipeService_PublishWithoutNotifier(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	svc := NewRecipeService(f.repo, f.feed, f.jobs, f.raw, f.processed, nil, logger.Nop())
	created, err := svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Tart"})
	require.NoError(t, err)

	published, err := svc.PublishRecipe(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ModerationPending, published.ModerationStatus)
}

func TestRecipeService_JobsCarryCorrelationID(t *testing.T) {
	f := newServiceFixture(t)
	ctx := logger.ContextWithCorrelationID(context.Background(), "req-9")
	blob := "recipes/a.png"

	created, err := f.svc.CreateRecipe(ctx, domain.CreateRecipeRequest{Title: "Pictured", RawImageBlobName: &blob})
	require.NoError(t, err)
	job, err := f.svc.ReprocessImage(ctx, created.ID)
	require.NoError(t, err)

	require.Len(t, f.jobs.jobs, 2)
	assert.Equal(t, "req-9", f.jobs.jobs[0].CorrelationID)
	assert.Equal(t, "req-9", job.CorrelationID)
}
