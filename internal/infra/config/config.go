package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	LeetCode struct {
		BaseURL    string        `envconfig:"LEETCODE_BASE_URL" default:"https://leetcode.com/graphql"`
		Timeout    time.Duration `envconfig:"LEETCODE_TIMEOUT" default:"10s"`
		FetchLimit int           `envconfig:"LEETCODE_FETCH_LIMIT" default:"15"`
	} `envconfig:""`

	Jobs struct {
		CollectInterval time.Duration `envconfig:"COLLECT_INTERVAL" default:"30m"`
		ReportAtUTC     string        `envconfig:"REPORT_TIME_UTC" default:"13:00"`
		SweepAtUTC      string        `envconfig:"SWEEP_TIME_UTC" default:"16:00"`
		RetentionDays   int           `envconfig:"RETENTION_DAYS" default:"2"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
