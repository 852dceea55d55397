package health

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"recipe-service/domain"
)

const defaultCheckTimeout = 3 * time.Second

type (
	// Check reports whether one dependency is reachable.
	Check func(ctx context.Context) error

	HealthService interface {
		Check(ctx context.Context) (domain.HealthReport, error)
		Version() domain.VersionInfo
	}

	// Pinger is satisfied by the job queue.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	healthService struct {
		checks  map[string]Check
		version domain.VersionInfo
		timeout time.Duration
	}
)

func NewHealthService(checks map[string]Check, version, commit, buildTime string) HealthService {
	if version == "" {
		version = "1.0.0"
	}
	if commit == "" {
		commit = "unknown"
	}
	if buildTime == "" {
		buildTime = time.Now().UTC().Format(time.RFC3339)
	}
	return &healthService{
		checks: checks,
		version: domain.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildTime: buildTime,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS,
			Arch:      runtime.GOARCH,
		},
		timeout: defaultCheckTimeout,
	}
}

// DatabaseCheck pings the connection pool behind db.
func DatabaseCheck(db *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func PingCheck(p Pinger) Check {
	return p.Ping
}

// Check runs every dependency check concurrently. All checks run to
// completion; the report lists each one.
func (s *healthService) Check(ctx context.Context) (domain.HealthReport, error) {
	report := domain.HealthReport{OK: true, Checks: make(map[string]string, len(s.checks))}
	var mu sync.Mutex

	var g errgroup.Group
	for name, check := range s.checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			status := "ok"
			err := check(cctx)
			if err != nil {
				status = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Checks[name] = status
			if err != nil {
				report.OK = false
			}
			return nil
		})
	}
	_ = g.Wait()

	if !report.OK {
		return report, domain.ErrUnhealthy
	}
	return report, nil
}

func (s *healthService) Version() domain.VersionInfo {
	return s.version
}
