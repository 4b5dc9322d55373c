package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	redisstate "github.com/ayushanand27/xhire/internal/infra/state/redis"
	"github.com/ayushanand27/xhire/internal/validation"
)

// Config holds everything read from the environment (or a .env file).
type Config struct {
	AppEnv     string `validate:"oneof=development production test"`
	LogLevel   string
	ServerPort string `validate:"required,numeric"`

	DBDriver   string `validate:"oneof=mysql postgres sqlite"`
	DBUser     string `validate:"required_unless=DBDriver sqlite"`
	DBPassword string
	DBHost     string `validate:"required_unless=DBDriver sqlite"`
	DBPort     string `validate:"required_unless=DBDriver sqlite"`
	DBName     string `validate:"required_unless=DBDriver sqlite"`
	DBPath     string `validate:"required_if=DBDriver sqlite"`

	RedisAddr      string `validate:"required,hostname_port"`
	RedisPassword  string
	RedisDB        int `validate:"gte=0"`
	RedisKeyPrefix string
	// PresenceStaleAfter drops connections whose heartbeat is older than this.
	PresenceStaleAfter time.Duration `validate:"gte=1m"`

	JWTSecret       string        `validate:"required,min=16"`
	RateLimitMax    int           `validate:"gt=0"`
	RateLimitWindow time.Duration `validate:"gt=0"`
	CORSOrigin      string

	StreamAPIKey        string `validate:"required_with=StreamAPISecret"`
	StreamAPISecret     string `validate:"required_with=StreamAPIKey"`
	StreamWebhookSecret string
	ProviderTimeout     time.Duration `validate:"gt=0"`

	PistonURL        string        `validate:"required,url"`
	ExecutionTimeout time.Duration `validate:"gt=0"`

	DefaultMaxParticipants int     `validate:"gte=2,lte=50"`
	WSEventsPerSecond      float64 `validate:"gt=0"`
	WSEventBurst           int     `validate:"gt=0"`

	RoomSweepSchedule     string
	InactiveRoomRetention time.Duration `validate:"gt=0"`
}

// LoadConfig reads .env (if present) and the environment, fills defaults and validates.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:     env("APP_ENV", "development"),
		LogLevel:   env("LOG_LEVEL", "info"),
		ServerPort: env("SERVER_PORT", "8080"),

		DBDriver:   env("DB_DRIVER", "mysql"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     env("DB_HOST", "127.0.0.1"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),
		DBPath:     os.Getenv("DB_PATH"),

		RedisAddr:      env("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisKeyPrefix: env("REDIS_KEY_PREFIX", "xhire:"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		CORSOrigin: env("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),

		StreamAPIKey:        os.Getenv("STREAM_API_KEY"),
		StreamAPISecret:     os.Getenv("STREAM_API_SECRET"),
		StreamWebhookSecret: os.Getenv("STREAM_WEBHOOK_SECRET"),

		PistonURL:         env("PISTON_URL", "https://emkc.org/api/v2/piston/execute"),
		RoomSweepSchedule: env("ROOM_SWEEP_SCHEDULE", "@every 10m"),
	}
	if cfg.DBPort == "" {
		cfg.DBPort = defaultDBPort(cfg.DBDriver)
	}

	var err error
	intVars := []struct {
		key  string
		def  int
		dest *int
	}{
		{"REDIS_DB", 0, &cfg.RedisDB},
		{"RATE_LIMIT_MAX", 100, &cfg.RateLimitMax},
		{"DEFAULT_MAX_PARTICIPANTS", 5, &cfg.DefaultMaxParticipants},
		{"WS_EVENT_BURST", 60, &cfg.WSEventBurst},
	}
	for _, v := range intVars {
		if *v.dest, err = envInt(v.key, v.def); err != nil {
			return nil, err
		}
	}
	durVars := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"RATE_LIMIT_WINDOW", time.Minute, &cfg.RateLimitWindow},
		{"PROVIDER_TIMEOUT", 10 * time.Second, &cfg.ProviderTimeout},
		{"EXECUTION_TIMEOUT", 15 * time.Second, &cfg.ExecutionTimeout},
		{"INACTIVE_ROOM_RETENTION", 30 * 24 * time.Hour, &cfg.InactiveRoomRetention},
		{"PRESENCE_STALE_AFTER", redisstate.DefaultPresenceStaleAfter, &cfg.PresenceStaleAfter},
	}
	for _, v := range durVars {
		if *v.dest, err = envDuration(v.key, v.def); err != nil {
			return nil, err
		}
	}
	if cfg.WSEventsPerSecond, err = envFloat("WS_EVENTS_PER_SECOND", 30); err != nil {
		return nil, err
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %s", validation.Describe(err))
	}
	return cfg, nil
}

// VideoEnabled reports whether provider credentials are configured.
func (c *Config) VideoEnabled() bool {
	return c.StreamAPIKey != "" && c.StreamAPISecret != ""
}

func (c *Config) Production() bool { return c.AppEnv == "production" }

func defaultDBPort(driver string) string {
	switch driver {
	case "postgres":
		return "5432"
	case "mysql":
		return "3306"
	}
	return ""
}

func env(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return f, nil
}

// envDuration accepts Go durations ("90s", "720h") or a bare number of seconds.
func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s: %w", key, err)
	}
	return d, nil
}
