package constants

import "time"

// Defaults for the monitor configuration
const (
	DefaultStorageLocation = "monitor.db"
	DefaultDashboardPath   = "/monitor"
	DefaultPageSize        = 20
	DefaultTokenTTL        = time.Hour
)

// Environment variable keys recognized by config.Load
const (
	EnvStorageLocation = "MONITOR_STORAGE_LOCATION"
	EnvDashboardPath   = "MONITOR_DASHBOARD_PATH"
	EnvExcludePaths    = "MONITOR_EXCLUDE_PATHS"
	EnvAuthUsername    = "MONITOR_AUTH_USERNAME"
	EnvAuthPassword    = "MONITOR_AUTH_PASSWORD"
	EnvTokenSecret     = "MONITOR_TOKEN_SECRET"
	EnvTokenTTL        = "MONITOR_TOKEN_TTL"
	EnvLogFile         = "MONITOR_LOG_FILE"
)
