package domain

import "errors"

var (
	MessageSuccessHealth  = "all dependencies reachable"
	MessageFailedHealth   = "health check failed"
	MessageSuccessVersion = "version info"

	ErrUnhealthy = errors.New("one or more dependencies unreachable")
)

type (
	// HealthReport maps each dependency to "ok" or its error text.
	HealthReport struct {
		OK     bool              `json:"ok"`
		Checks map[string]string `json:"checks"`
	}

	VersionInfo struct {
		Version   string `json:"version"`
		Commit    string `json:"commit"`
		BuildTime string `json:"buildTime"`
		GoVersion string `json:"goVersion"`
		Platform  string `json:"platform"`
		Arch      string `json:"arch"`
	}
)
