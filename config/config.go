// Package config holds process configuration and the shared logger.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/bonus-engine/engine"
)

// Config is the configuration of both binaries.
type Config struct {
	Data   DataConfig
	Output OutputConfig
	Server ServerConfig

	PolicyFile string // empty = built-in policy
	DBPath     string // empty disables the SQLite store
	LogLevel   string
}

// DataConfig locates the input feeds.
type DataConfig struct {
	Dir            string
	RosterFile     string
	TimesheetFile  string
	EvaluationFile string
	SalesFile      string
}

// Files maps feed names to file names.
func (c DataConfig) Files() map[string]string {
	return map[string]string{
		engine.SourceRoster:     c.RosterFile,
		engine.SourceTimesheet:  c.TimesheetFile,
		engine.SourceEvaluation: c.EvaluationFile,
		engine.SourceSales:      c.SalesFile,
	}
}

type OutputConfig struct {
	Dir string
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	// RefreshInterval is how often the server polls the store for a newer
	// run. Zero disables polling.
	RefreshInterval time.Duration
}

// Load reads .env (if present) and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Data: DataConfig{
			Dir:            getEnv("BONUS_DATA_DIR", "."),
			RosterFile:     getEnv("BONUS_ROSTER_FILE", "emp_beg_yr.txt"),
			TimesheetFile:  getEnv("BONUS_TIMESHEET_FILE", "timesheet.txt"),
			EvaluationFile: getEnv("BONUS_EVALUATION_FILE", "evaluation.txt"),
			SalesFile:      getEnv("BONUS_SALES_FILE", "sales.txt"),
		},
		Output: OutputConfig{
			Dir: getEnv("BONUS_OUTPUT_DIR", "."),
		},
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8080")),
			RefreshInterval: getDuration("BONUS_REFRESH_INTERVAL", time.Minute),
		},
		PolicyFile: os.Getenv("BONUS_POLICY_FILE"),
		DBPath:     lookupEnv("BONUS_DB", "bonus.db"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is getEnv, except an explicitly empty variable is kept.
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration such as "30s". Invalid values fall back to
// the default.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		logg.WithField(key, value).Warn("invalid duration, using default " + defaultValue.String())
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
