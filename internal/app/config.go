package app

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr string `envconfig:"VS_ADDR" default:":8080"`

	ThrottleWindow       time.Duration `envconfig:"VS_THROTTLE_WINDOW" default:"100ms"`
	InteractionThreshold float64       `envconfig:"VS_INTERACTION_THRESHOLD" default:"100"`
	VideoThreshold       float64       `envconfig:"VS_VIDEO_THRESHOLD" default:"150"`

	SpawnX float64 `envconfig:"VS_SPAWN_X" default:"400"`
	SpawnY float64 `envconfig:"VS_SPAWN_Y" default:"300"`

	HeartbeatTimeout time.Duration `envconfig:"VS_HEARTBEAT_TIMEOUT" default:"6s"`
	ReaperInterval   time.Duration `envconfig:"VS_REAPER_INTERVAL" default:"2s"`

	OutboxSize int `envconfig:"VS_OUTBOX_SIZE" default:"64"`

	LogSeverity string `envconfig:"VS_LOG_SEVERITY" default:"info"`
	LogSinks    string `envconfig:"VS_LOG_SINKS" default:"console"`
	LogJSONPath string `envconfig:"VS_LOG_JSON_PATH" default:""`
}

// LoadConfig reads configuration from the environment, preloading a local
// .env file when one exists.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
