package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-service/domain"
	"recipe-service/internal/api/handlers"
	"recipe-service/internal/api/presenters"
	"recipe-service/internal/middleware"
	"recipe-service/internal/testutil"
	"recipe-service/internal/utils"
	"recipe-service/internal/utils/logger"
	"recipe-service/pkg/feed"
	"recipe-service/pkg/health"
	"recipe-service/pkg/recipe"
	"recipe-service/pkg/upload"
)

type recordingQueue struct {
	jobs    []any
	pingErr error
}

func (q *recordingQueue) Ping(context.Context) error { return q.pingErr }

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, any) error {
	return fmt.Errorf("%w: webhook responded 500", domain.ErrWebhookFailed)
}

func (q *recordingQueue) Enqueue(_ context.Context, payload any) error {
	q.jobs = append(q.jobs, payload)
	return nil
}

type presignBucket struct {
	*testutil.MemoryBlobStore
}

func (b presignBucket) PresignUpload(_ context.Context, key, _ string, ttl time.Duration) (string, time.Time, error) {
	return b.PublicURL(key) + "?sig=test", time.Now().Add(ttl), nil
}

func newTestApp(t *testing.T) (*fiber.App, *recordingQueue) {
	t.Helper()
	return newTestAppWith(t, nil)
}

func newTestAppWith(t *testing.T, notifier recipe.ModerationNotifier) (*fiber.App, *recordingQueue) {
	t.Helper()
	utils.InitValidator()
	db := testutil.SetupTestDB(t)
	raw := testutil.NewMemoryBlobStore("raw")
	processed := testutil.NewMemoryBlobStore("processed")
	jobs := &recordingQueue{}

	recipeRepository := recipe.NewRecipeRepository(db)
	feedRepository := feed.NewFeedRepository(db)
	recipeService := recipe.NewRecipeService(recipeRepository, feedRepository, jobs, raw, processed, notifier, logger.Nop())
	healthService := health.NewHealthService(map[string]health.Check{
		"database": health.DatabaseCheck(db),
		"queue":    health.PingCheck(jobs),
	}, "", "abc123", "")

	app := fiber.New()
	cfg := Config{
		App:           app,
		RecipeHandler: handlers.NewRecipeHandler(recipeService, utils.Validate),
		FeedHandler:   handlers.NewFeedHandler(feed.NewFeedService(feedRepository), utils.Validate),
		UploadHandler: handlers.NewUploadHandler(upload.NewUploadService(presignBucket{raw}, time.Minute), utils.Validate),
		HealthHandler: handlers.NewHealthHandler(healthService),
		Middleware:    middleware.NewMiddleware("*"),
	}
	cfg.Setup()
	return app, jobs
}

func call(t *testing.T, app *fiber.App, method, target, body string, data any) (int, presenters.Response) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope struct {
		presenters.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope), string(raw))
	if data != nil && len(envelope.Data) > 0 {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
	return resp.StatusCode, envelope.Response
}

func TestRoutes_RecipeLifecycle(t *testing.T) {
	app, jobs := newTestApp(t)

	var created domain.RecipeDetail
	status, res := call(t, app, http.MethodPost, "/api/v1/recipes",
		`{"title":"Pancakes","description":"Fluffy","categories":["Breakfast"],"raw_image_blob_name":"recipes/a.png"}`, &created)
	require.Equal(t, http.StatusCreated, status, res.Error)
	assert.True(t, res.Status)
	assert.Equal(t, []string{"Breakfast"}, created.Categories)
	assert.Len(t, jobs.jobs, 1)

	var patched domain.RecipeDetail
	status, _ = call(t, app, http.MethodPatch, "/api/v1/recipes/"+created.ID, `{"description":null}`, &patched)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, patched.Description)
	assert.Equal(t, "Pancakes", patched.Title)

	status, _ = call(t, app, http.MethodPost, "/api/v1/recipes/"+created.ID+"/approve", "", nil)
	assert.Equal(t, http.StatusConflict, status)

	var published domain.RecipeDetail
	status, _ = call(t, app, http.MethodPost, "/api/v1/recipes/"+created.ID+"/publish", "", &published)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, domain.ModerationPending, published.ModerationStatus)

	status, _ = call(t, app, http.MethodPost, "/api/v1/recipes/"+created.ID+"/reprocess-image", "", nil)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Len(t, jobs.jobs, 2)

	var comment domain.Comment
	status, _ = call(t, app, http.MethodPost, "/api/v1/recipes/"+created.ID+"/comments", `{"text":"nice"}`, &comment)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, domain.DefaultUserID, comment.UserID)

	var comments domain.CommentPage
	status, _ = call(t, app, http.MethodGet, "/api/v1/recipes/"+created.ID+"/comments", "", &comments)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, comments.Items, 1)

	status, _ = call(t, app, http.MethodPost, "/api/v1/recipes/"+created.ID+"/favorite", "", nil)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/recipes/"+created.ID+"/reviews", `{"rating":4}`, nil)
	assert.Equal(t, http.StatusCreated, status)
	var rating domain.RatingResponse
	status, _ = call(t, app, http.MethodGet, "/api/v1/recipes/"+created.ID+"/rating", "", &rating)
	require.Equal(t, http.StatusOK, status)
	assert.InDelta(t, 4.0, rating.Average, 0.0001)

	status, _ = call(t, app, http.MethodDelete, "/api/v1/recipes/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, app, http.MethodGet, "/api/v1/recipes/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRoutes_RejectsBadInput(t *testing.T) {
	app, _ := newTestApp(t)

	status, res := call(t, app, http.MethodPost, "/api/v1/recipes", `{"description":"no title"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, res.Status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/recipes?pageSize=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/feed?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, app, http.MethodGet, "/api/v1/recipes/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, app, http.MethodPost, "/api/v1/recipes/"+uuid.NewString()+"/reviews", `{"rating":9}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutes_ListAndUpload(t *testing.T) {
	app, _ := newTestApp(t)

	for _, title := range []string{"Soup", "Salad", "Stew"} {
		status, _ := call(t, app, http.MethodPost, "/api/v1/recipes", `{"title":"`+title+`"}`, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	var list domain.RecipeListResult
	status, _ := call(t, app, http.MethodGet, "/api/v1/recipes?page=1&pageSize=2&q=s", "", &list)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, list.Total)
	assert.Len(t, list.Items, 2)

	var initRes domain.UploadInitResponse
	status, _ = call(t, app, http.MethodPost, "/api/v1/upload-init", `{"fileName":"cake.png","contentType":"image/png"}`, &initRes)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, strings.HasSuffix(initRes.BlobName, ".png"))
	assert.Contains(t, initRes.UploadURL, "sig=test")

	var ping map[string]string
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ping))
	assert.Equal(t, "pong", ping["message"])
}

func TestRoutes_HealthAndVersion(t *testing.T) {
	app, jobs := newTestApp(t)

	var report domain.HealthReport
	status, _ := call(t, app, http.MethodGet, "/api/v1/health", "", &report)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, report.OK)
	assert.Equal(t, map[string]string{"database": "ok", "queue": "ok"}, report.Checks)

	jobs.pingErr = errors.New("redis down")
	status, res := call(t, app, http.MethodGet, "/api/v1/health", "", &report)
	require.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, res.Status)
	assert.False(t, report.OK)
	assert.Equal(t, "ok", report.Checks["database"])
	assert.Equal(t, "redis down", report.Checks["queue"])

	var info domain.VersionInfo
	status, _ = call(t, app, http.MethodGet, "/api/v1/version", "", &info)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "abc123", info.Commit)
	assert.NotEmpty(t, info.GoVersion)
}

func TestRoutes_CorrelationID(t *testing.T) {
	app, jobs := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes",
		strings.NewReader(`{"title":"Pancakes","raw_image_blob_name":"recipes/a.png"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CorrelationHeader, "req-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "req-123", resp.Header.Get(middleware.CorrelationHeader))
	require.Len(t, jobs.jobs, 1)
	assert.Equal(t, "req-123", jobs.jobs[0].(domain.MediaJob).CorrelationID)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/ping", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(middleware.CorrelationHeader))
}

func TestRoutes_PublishWebhookFailureIsBadGateway(t *testing.T) {
	app, _ := newTestAppWith(t, failingNotifier{})

	var created domain.RecipeDetail
	status, _ := call(t, app, http.MethodPost, "/api/v1/recipes", `{"title":"Tart"}`, &created)
	require.Equal(t, http.StatusCreated, status)

	status, res := call(t, app, http.MethodPost, "/api/v1/recipes/"+created.ID+"/publish", "", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, res.Error, "webhook")
}
