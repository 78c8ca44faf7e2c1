package config_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/warp/bonus-engine/config"
	"github.com/warp/bonus-engine/engine"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BONUS_DATA_DIR", "")
	t.Setenv("BONUS_SALES_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("BONUS_REFRESH_INTERVAL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg := config.Load()

	assert.Equal(t, ".", cfg.Data.Dir)
	assert.Equal(t, "sales.txt", cfg.Data.SalesFile)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "emp_beg_yr.txt", cfg.Data.Files()[engine.SourceRoster])
	assert.Equal(t, time.Minute, cfg.Server.RefreshInterval)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BONUS_DATA_DIR", "/data/2024")
	t.Setenv("BONUS_TIMESHEET_FILE", "hours.csv")
	t.Setenv("BONUS_DB", "")
	t.Setenv("PORT", "9090")
	t.Setenv("BONUS_REFRESH_INTERVAL", "0s")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://hr.example.com , ")

	cfg := config.Load()

	assert.Equal(t, "/data/2024", cfg.Data.Dir)
	assert.Equal(t, "hours.csv", cfg.Data.Files()[engine.SourceTimesheet])
	assert.Equal(t, "", cfg.DBPath, "explicitly empty BONUS_DB disables the store")
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.Server.RefreshInterval)
	assert.Equal(t, []string{"https://hr.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("BONUS_REFRESH_INTERVAL", "soon")

	cfg := config.Load()

	assert.Equal(t, time.Minute, cfg.Server.RefreshInterval)
}

func TestSetLogLevel(t *testing.T) {
	log := config.GetLogger()
	prev := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(prev) })

	config.SetLogLevel("DEBUG")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	config.SetLogLevel("chatty")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}
