package health

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-service/domain"
	"recipe-service/internal/testutil"
)

func TestHealthService_AllReachable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewHealthService(map[string]Check{
		"database": DatabaseCheck(db),
		"queue":    func(context.Context) error { return nil },
	}, "", "", "")

	report, err := svc.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, map[string]string{"database": "ok", "queue": "ok"}, report.Checks)
}

func TestHealthService_ReportsEveryFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	svc := NewHealthService(map[string]Check{
		"database": DatabaseCheck(db),
		"queue":    func(context.Context) error { return errors.New("connection refused") },
	}, "", "", "")

	report, err := svc.Check(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnhealthy)
	assert.False(t, report.OK)
	assert.NotEqual(t, "ok", report.Checks["database"])
	assert.Equal(t, "connection refused", report.Checks["queue"])
}

func TestHealthService_ChecksAreBounded(t *testing.T) {
	svc := NewHealthService(map[string]Check{
		"slow": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}, "", "", "").(*healthService)
	svc.timeout = 20 * time.Millisecond

	report, err := svc.Check(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnhealthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), report.Checks["slow"])
}

func TestHealthService_Version(t *testing.T) {
	info := NewHealthService(nil, "2.3.0", "abc123", "2024-05-01T00:00:00Z").Version()
	assert.Equal(t, domain.VersionInfo{
		Version:   "2.3.0",
		Commit:    "abc123",
		BuildTime: "2024-05-01T00:00:00Z",
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}, info)

	defaults := NewHealthService(nil, "", "", "").Version()
	assert.Equal(t, "1.0.0", defaults.Version)
	assert.Equal(t, "unknown", defaults.Commit)
	_, err := time.Parse(time.RFC3339, defaults.BuildTime)
	assert.NoError(t, err)
}
