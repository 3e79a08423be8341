package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Mail providers.
const (
	MailConsole  = "console"
	MailSendGrid = "sendgrid"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	Session       SessionConfig
	CORS          CORSConfig
	Log           LogConfig
	OTP           OTPConfig
	Mail          MailConfig
	Storage       StorageConfig
	Uploads       UploadsConfig
	Notifications NotificationsConfig
	Cache         CacheConfig
	Metrics       MetricsConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig controls the signed session cookie.
type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	CookieSecure bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OTPConfig governs one-time code validity.
type OTPConfig struct {
	TTL time.Duration
}

// MailConfig selects and configures the outbound mail transport.
type MailConfig struct {
	Provider       string
	SendGridAPIKey string
	FromName       string
	FromAddress    string
	SubjectPrefix  string
}

// StorageConfig selects where uploaded files live.
type StorageConfig struct {
	Backend      string
	MediaRoot    string
	MediaBaseURL string
	S3           S3Config
}

// S3Config configures an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// UploadsConfig controls upload validation.
type UploadsConfig struct {
	Prefix                string
	MaxFileSizeBytes      int64
	AllowedMIMEs          []string
	StudentUploadPassword string
}

// NotificationsConfig tunes upload notification dispatch.
type NotificationsConfig struct {
	AttachmentLimitBytes int64
	Async                bool
	Workers              int
	Retries              int
}

// CacheConfig toggles Redis-backed listing caches.
type CacheConfig struct {
	Enabled      bool
	DocumentsTTL time.Duration
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret:       v.GetString("SESSION_SECRET"),
		TTL:          parseDuration(v.GetString("SESSION_TTL"), 14*24*time.Hour),
		CookieName:   v.GetString("SESSION_COOKIE_NAME"),
		CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.OTP = OTPConfig{
		TTL: parseDuration(v.GetString("OTP_TTL"), 10*time.Minute),
	}

	cfg.Mail = MailConfig{
		Provider:       strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		FromAddress:    v.GetString("MAIL_FROM_ADDRESS"),
		SubjectPrefix:  v.GetString("MAIL_SUBJECT_PREFIX"),
	}

	cfg.Storage = StorageConfig{
		Backend:      strings.ToLower(v.GetString("STORAGE_BACKEND")),
		MediaRoot:    v.GetString("MEDIA_ROOT"),
		MediaBaseURL: v.GetString("MEDIA_BASE_URL"),
		S3: S3Config{
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UsePathStyle:    v.GetBool("S3_USE_PATH_STYLE"),
		},
	}

	maxUploadSize := v.GetInt64("UPLOAD_MAX_FILE_SIZE")
	if maxUploadSize <= 0 {
		maxUploadSize = 25 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Prefix:                v.GetString("UPLOAD_PREFIX"),
		MaxFileSizeBytes:      maxUploadSize,
		AllowedMIMEs:          splitAndTrim(v.GetString("UPLOAD_ALLOWED_MIME_TYPES")),
		StudentUploadPassword: v.GetString("STUDENT_UPLOAD_PASSWORD"),
	}

	attachmentLimit := v.GetInt64("NOTIFY_ATTACHMENT_LIMIT")
	if attachmentLimit <= 0 {
		attachmentLimit = 5 * 1024 * 1024
	}
	cfg.Notifications = NotificationsConfig{
		AttachmentLimitBytes: attachmentLimit,
		Async:                v.GetBool("NOTIFY_ASYNC"),
		Workers:              v.GetInt("NOTIFY_WORKERS"),
		Retries:              v.GetInt("NOTIFY_RETRIES"),
	}

	cfg.Cache = CacheConfig{
		Enabled:      v.GetBool("ENABLE_CACHE"),
		DocumentsTTL: parseDuration(v.GetString("DOCUMENTS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "papers_hub")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("MIGRATE_ON_START", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "336h")
	v.SetDefault("SESSION_COOKIE_NAME", "papers_session")
	v.SetDefault("SESSION_COOKIE_SECURE", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OTP_TTL", "10m")

	v.SetDefault("MAIL_PROVIDER", MailConsole)
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_FROM_NAME", "Papers Hub")
	v.SetDefault("MAIL_FROM_ADDRESS", "no-reply@papershub.local")
	v.SetDefault("MAIL_SUBJECT_PREFIX", "")

	v.SetDefault("STORAGE_BACKEND", StorageLocal)
	v.SetDefault("MEDIA_ROOT", "./media")
	v.SetDefault("MEDIA_BASE_URL", "http://127.0.0.1:8000/media/")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_USE_PATH_STYLE", true)

	v.SetDefault("UPLOAD_PREFIX", "question_papers/")
	v.SetDefault("UPLOAD_MAX_FILE_SIZE", 25*1024*1024)
	v.SetDefault("UPLOAD_ALLOWED_MIME_TYPES", "")
	v.SetDefault("STUDENT_UPLOAD_PASSWORD", "student123")

	v.SetDefault("NOTIFY_ATTACHMENT_LIMIT", 5*1024*1024)
	v.SetDefault("NOTIFY_ASYNC", false)
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("DOCUMENTS_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_METRICS", true)
}

// isMissingFile reports the *PathError viper returns when an explicit config file is absent.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
