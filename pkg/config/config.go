package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Scheduler  SchedulerConfig
	Storage    StorageConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LLMConfig configures the generative-model adapter used by the extraction
// orchestrator and the scheduler core.
type LLMConfig struct {
	APIKey          string
	Model           string
	RequestTimeout  time.Duration
	MaxOutputTokens int
}

// ExtractionConfig governs quota and staleness behavior for the extraction
// orchestrator.
type ExtractionConfig struct {
	DailyQuotaPerUser   int
	StaleLockThreshold  time.Duration
	SecondPassBatchSize int
}

// SchedulerConfig tunes the daily-budget allocation bounds used by the
// scheduler core.
type SchedulerConfig struct {
	MinDailyHours float64
	MaxDailyHours float64
	ProposalTTL   time.Duration
}

// StorageConfig sets the base directory of the local file storage that
// backs the health check's storage probe.
type StorageConfig struct {
	Dir string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.LLM = LLMConfig{
		APIKey:          v.GetString("LLM_API_KEY"),
		Model:           v.GetString("LLM_MODEL"),
		RequestTimeout:  parseDuration(v.GetString("LLM_REQUEST_TIMEOUT"), 45*time.Second),
		MaxOutputTokens: v.GetInt("LLM_MAX_OUTPUT_TOKENS"),
	}

	cfg.Extraction = ExtractionConfig{
		DailyQuotaPerUser:   v.GetInt("EXTRACTION_DAILY_QUOTA"),
		StaleLockThreshold:  parseDuration(v.GetString("EXTRACTION_STALE_LOCK_THRESHOLD"), 5*time.Minute),
		SecondPassBatchSize: v.GetInt("EXTRACTION_SECOND_PASS_BATCH_SIZE"),
	}

	cfg.Scheduler = SchedulerConfig{
		MinDailyHours: v.GetFloat64("SCHEDULER_MIN_DAILY_HOURS"),
		MaxDailyHours: v.GetFloat64("SCHEDULER_MAX_DAILY_HOURS"),
		ProposalTTL:   parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 30*time.Minute),
	}

	cfg.Storage = StorageConfig{
		Dir: v.GetString("STORAGE_DIR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "studyplan_core")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LLM_API_KEY", "")
	v.SetDefault("LLM_MODEL", "gpt-4o-mini")
	v.SetDefault("LLM_REQUEST_TIMEOUT", "45s")
	v.SetDefault("LLM_MAX_OUTPUT_TOKENS", 4096)

	v.SetDefault("EXTRACTION_DAILY_QUOTA", 10)
	v.SetDefault("EXTRACTION_STALE_LOCK_THRESHOLD", "5m")
	v.SetDefault("EXTRACTION_SECOND_PASS_BATCH_SIZE", 5)

	v.SetDefault("SCHEDULER_MIN_DAILY_HOURS", 0.25)
	v.SetDefault("SCHEDULER_MAX_DAILY_HOURS", 6.0)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "30m")

	v.SetDefault("STORAGE_DIR", "./uploads")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
