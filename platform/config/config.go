// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// StoreConfig selects and configures the conversation store backend.
type StoreConfig interface {
	DatabaseConfig
	GetStoreDriver() string
	GetSQLitePath() string
}

// JWTConfig provides JWT validation settings for middleware.
// Tokens are issued by the external auth service; this service only verifies them.
type JWTConfig interface {
	GetJWTAccessSecret() string
	IsJWTEnabled() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// LLMConfig provides settings for the text-completion service.
type LLMConfig interface {
	GetLLMAPIKey() string
	GetLLMBaseURL() string
	GetLLMModel() string
}

// PipelineConfig provides the tunables of the conversation pipeline.
type PipelineConfig interface {
	GetFAQTopK() int
	GetLeadTopK() int
	GetEscalationMinTurns() int
	GetEscalationMinStage() int
	GetHistoryTokenBudget() int
	GetLLMTimeout() time.Duration
	GetClassifierTimeout() time.Duration
	GetRetrievalTimeout() time.Duration
	GetStoreTimeout() time.Duration
	GetNotifyTimeout() time.Duration
}

// KnowledgeConfig provides settings for the FAQ and lead corpora.
type KnowledgeConfig interface {
	GetFAQPath() string
	GetFAQWatch() bool
	GetLeadPhoneRegion() string
}

// SchedulerConfig provides Redis/asynq settings for background jobs and locks.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketLeadCorpus() string
	IsMinIOEnabled() bool
}

// QdrantConfig provides settings for Qdrant vector database.
type QdrantConfig interface {
	GetQdrantURL() string
	GetQdrantAPIKey() string
	GetQdrantCollection() string
	IsQdrantEnabled() bool
}

// EmbeddingConfig provides settings for the embedding API service.
type EmbeddingConfig interface {
	GetEmbeddingAPIURL() string
	GetEmbeddingAPIKey() string
	IsEmbeddingEnabled() bool
}

// ProfileConfig points at the optional agent profile file.
type ProfileConfig interface {
	GetAgentProfilePath() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env         string
	HTTPAddr    string
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool

	LLMAPIKey         string
	LLMBaseURL        string
	LLMModel          string
	LLMTimeout        time.Duration
	ClassifierTimeout time.Duration
	RetrievalTimeout  time.Duration
	StoreTimeout      time.Duration
	NotifyTimeout     time.Duration

	FAQTopK            int
	LeadTopK           int
	EscalationMinTurns int
	EscalationMinStage int
	HistoryTokenBudget int
	FAQPath            string
	FAQWatch           bool
	LeadPhoneRegion    string

	EmailEnabled     bool
	EmailProvider    string
	BrevoAPIKey      string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOMaxFileSize      int64
	MinioBucketLeadCorpus string

	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	EmbeddingAPIURL  string
	EmbeddingAPIKey  string
	AgentProfilePath string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig / StoreConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }
func (c *Config) GetStoreDriver() string { return c.StoreDriver }
func (c *Config) GetSQLitePath() string  { return c.SQLitePath }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }
func (c *Config) IsJWTEnabled() bool         { return c.JWTAccessSecret != "" }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// LLMConfig implementation
func (c *Config) GetLLMAPIKey() string  { return c.LLMAPIKey }
func (c *Config) GetLLMBaseURL() string { return c.LLMBaseURL }
func (c *Config) GetLLMModel() string   { return c.LLMModel }

// PipelineConfig implementation
func (c *Config) GetFAQTopK() int                     { return c.FAQTopK }
func (c *Config) GetLeadTopK() int                    { return c.LeadTopK }
func (c *Config) GetEscalationMinTurns() int          { return c.EscalationMinTurns }
func (c *Config) GetEscalationMinStage() int          { return c.EscalationMinStage }
func (c *Config) GetHistoryTokenBudget() int          { return c.HistoryTokenBudget }
func (c *Config) GetLLMTimeout() time.Duration        { return c.LLMTimeout }
func (c *Config) GetClassifierTimeout() time.Duration { return c.ClassifierTimeout }
func (c *Config) GetRetrievalTimeout() time.Duration  { return c.RetrievalTimeout }
func (c *Config) GetStoreTimeout() time.Duration      { return c.StoreTimeout }
func (c *Config) GetNotifyTimeout() time.Duration     { return c.NotifyTimeout }

// KnowledgeConfig implementation
func (c *Config) GetFAQPath() string         { return c.FAQPath }
func (c *Config) GetFAQWatch() bool          { return c.FAQWatch }
func (c *Config) GetLeadPhoneRegion() string { return c.LeadPhoneRegion }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketLeadCorpus() string {
	return c.MinioBucketLeadCorpus
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// QdrantConfig implementation
func (c *Config) GetQdrantURL() string        { return c.QdrantURL }
func (c *Config) GetQdrantAPIKey() string     { return c.QdrantAPIKey }
func (c *Config) GetQdrantCollection() string { return c.QdrantCollection }
func (c *Config) IsQdrantEnabled() bool {
	return c.QdrantURL != "" && c.QdrantCollection != ""
}

// EmbeddingConfig implementation
func (c *Config) GetEmbeddingAPIURL() string { return c.EmbeddingAPIURL }
func (c *Config) GetEmbeddingAPIKey() string { return c.EmbeddingAPIKey }
func (c *Config) IsEmbeddingEnabled() bool   { return c.EmbeddingAPIURL != "" }

// ProfileConfig implementation
func (c *Config) GetAgentProfilePath() string { return c.AgentProfilePath }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:8501"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	emailProvider := strings.ToLower(getEnv("EMAIL_PROVIDER", "smtp"))
	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	smtpHost := getEnv("SMTP_HOST", "")
	emailConfigured := (emailProvider == "brevo" && brevoAPIKey != "") || (emailProvider == "smtp" && smtpHost != "")

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:           strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		SQLitePath:            getEnv("SQLITE_PATH", "data/conversations.db"),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		LLMAPIKey:             getEnv("LLM_API_KEY", ""),
		LLMBaseURL:            getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
		LLMModel:              getEnv("LLM_MODEL", "gpt-3.5-turbo"),
		LLMTimeout:            mustDuration(getEnv("LLM_TIMEOUT", "45s")),
		ClassifierTimeout:     mustDuration(getEnv("CLASSIFIER_TIMEOUT", "20s")),
		RetrievalTimeout:      mustDuration(getEnv("RETRIEVAL_TIMEOUT", "15s")),
		StoreTimeout:          mustDuration(getEnv("STORE_TIMEOUT", "5s")),
		NotifyTimeout:         mustDuration(getEnv("NOTIFY_TIMEOUT", "20s")),
		FAQTopK:               mustInt(getEnv("RETRIEVAL_FAQ_TOP_K", "2")),
		LeadTopK:              mustInt(getEnv("RETRIEVAL_LEAD_TOP_K", "2")),
		EscalationMinTurns:    mustInt(getEnv("ESCALATION_MIN_TURNS", "6")),
		EscalationMinStage:    mustInt(getEnv("ESCALATION_MIN_STAGE", "6")),
		HistoryTokenBudget:    mustInt(getEnv("HISTORY_TOKEN_BUDGET", "3000")),
		FAQPath:               getEnv("FAQ_PATH", "data/company_faq.txt"),
		FAQWatch:              strings.EqualFold(getEnv("FAQ_WATCH", "true"), "true"),
		LeadPhoneRegion:       strings.ToUpper(getEnv("LEAD_PHONE_REGION", "US")),
		EmailEnabled:          emailEnabled && emailConfigured,
		EmailProvider:         emailProvider,
		BrevoAPIKey:           brevoAPIKey,
		SMTPHost:              smtpHost,
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "The AI SDR Team"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:      mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "20971520")),
		MinioBucketLeadCorpus: getEnv("MINIO_BUCKET_LEAD_CORPUS", "lead-corpus"),
		QdrantURL:             getEnv("QDRANT_URL", ""),
		QdrantAPIKey:          getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:      getEnv("QDRANT_COLLECTION", ""),
		EmbeddingAPIURL:       getEnv("EMBEDDING_API_URL", ""),
		EmbeddingAPIKey:       getEnv("EMBEDDING_API_KEY", ""),
		AgentProfilePath:      getEnv("AGENT_PROFILE_PATH", ""),
	}

	if err := cfg.validate(emailEnabled); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate(emailRequested bool) error {
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if emailRequested && c.EmailProvider != "smtp" && c.EmailProvider != "brevo" {
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.EscalationMinStage < 1 || c.EscalationMinStage > 8 {
		return fmt.Errorf("ESCALATION_MIN_STAGE must be between 1 and 8")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
