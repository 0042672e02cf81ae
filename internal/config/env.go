// Package config provides environment helpers for wraith commands.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-wraith/internal/log"
	"github.com/teslashibe/go-wraith/pkg/escalation"
)

// Defaults.
const (
	DefaultPort     = "8080"
	DefaultLocation = "unknown"
	DefaultDataDir  = ".wraith"
)

// LoadDotEnv loads .env files into the environment. Variables already set
// are kept. Missing files are not an error.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to load env file", "file", f, "error", err)
		}
	}
}

// Get returns the named variable or def when unset or empty.
func Get(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetInt returns the named variable as an int, or def.
func GetInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

// Port returns the HTTP port from PORT.
func Port() string {
	return Get("PORT", DefaultPort)
}

// DataDir returns WRAITH_DATA_DIR, defaulting to ~/.wraith.
func DataDir() string {
	if dir := os.Getenv("WRAITH_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// DatabasePath returns the SQLite path inside the data directory.
func DatabasePath() string {
	return Get("WRAITH_DB", filepath.Join(DataDir(), "wraith.db"))
}

// Identity returns the driver, vehicle and location attached to operator
// notifications.
func Identity() escalation.Identity {
	id := escalation.DefaultConfig().Identity
	return escalation.Identity{
		DriverID:  Get("DRIVER_ID", id.DriverID),
		VehicleID: Get("VEHICLE_ID", id.VehicleID),
		Location:  Get("LOCATION", DefaultLocation),
	}
}

// WebhookURL returns the operator webhook, or "" to log notifications only.
func WebhookURL() string {
	return os.Getenv("OPERATOR_WEBHOOK_URL")
}

// GoogleClient returns the OAuth client credentials for sleep sync.
func GoogleClient() (id, secret string) {
	return os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET")
}

// GoogleRedirectURL returns the OAuth redirect for the configured port.
func GoogleRedirectURL() string {
	return Get("GOOGLE_REDIRECT_URL", "http://localhost:"+Port()+"/api/fit/callback")
}
