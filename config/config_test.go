package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Database: DatabaseConfig{
			Host:   "localhost",
			User:   "test",
			DBName: "test",
		},
		Google: GoogleConfig{
			ClientID:     "client",
			ClientSecret: "secret",
		},
		Harvest: HarvestConfig{
			FromFilter: "from:store@email.meta.com",
			StartDate:  "2024-01-01",
			UserID:     1,
		},
		Scheduler: SchedulerConfig{
			IntervalMinutes: 30,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	// Test valid configuration
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	// Test missing server port
	cfg = validConfig()
	cfg.Server.Port = ""
	assert.Error(t, cfg.Validate())

	// Test missing database settings
	cfg = validConfig()
	cfg.Database.User = ""
	assert.Error(t, cfg.Validate())

	// Test missing OAuth client
	cfg = validConfig()
	cfg.Google.ClientSecret = ""
	assert.Error(t, cfg.Validate())

	// Test malformed harvest start date
	cfg = validConfig()
	cfg.Harvest.StartDate = "01/01/2024"
	assert.Error(t, cfg.Validate())
}

func TestConfigValidationScheduler(t *testing.T) {
	// Enabled scheduler requires an interval and a refresh token
	cfg := validConfig()
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.IntervalMinutes = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Scheduler.Enabled = true
	cfg.Google.RefreshToken = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Scheduler.Enabled = true
	cfg.Google.RefreshToken = "refresh"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     3306,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	}

	dsn := cfg.GetDSN()
	expected := "testuser:testpass@tcp(localhost:3306)/testdb?charset=utf8mb4&parseTime=True&loc=UTC"
	assert.Equal(t, expected, dsn)
}
