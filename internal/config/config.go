package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultCacheTTL = 5 * time.Minute

type Config struct {
	MySQLDSN   string `yaml:"mysql_dsn"`
	RedisAddr  string `yaml:"redis_addr"` // empty disables the report cache
	ListenAddr string `yaml:"listen_addr"`
	ModelsDir  string `yaml:"models_dir"`

	ReportCacheTTLSeconds int `yaml:"report_cache_ttl_seconds"`

	// RetrainSchedule is a standard 5-field cron expression; empty disables
	// scheduled retraining.
	RetrainSchedule string `yaml:"retrain_schedule"`
}

// Load reads config.yaml (or $CONFIG_PATH) when present, then applies
// environment overrides and defaults.
func Load() Config {
	cfg := Config{
		MySQLDSN:   "root:root@tcp(localhost:3306)/retail?parseTime=true",
		ListenAddr: ":8080",
		ModelsDir:  "models",
	}

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.MySQLDSN, "MYSQL_DSN")
	envOverride(&cfg.RedisAddr, "REDIS_ADDR")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.ModelsDir, "MODELS_DIR")
	envOverride(&cfg.RetrainSchedule, "RETRAIN_SCHEDULE")
	envOverrideInt(&cfg.ReportCacheTTLSeconds, "REPORT_CACHE_TTL_SECONDS")

	return cfg
}

// CacheTTL is the report cache expiry, defaulting to five minutes.
func (c Config) CacheTTL() time.Duration {
	if c.ReportCacheTTLSeconds <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(c.ReportCacheTTLSeconds) * time.Second
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Invalid %s '%s': %v", key, v, err)
			return
		}
		*target = n
	}
}
