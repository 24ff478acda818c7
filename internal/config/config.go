package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	AI         AIConfig         `mapstructure:"ai"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

// AIConfig 聊天补全与向量接口（OpenAI 兼容）
type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	ChatModel      string `mapstructure:"chat_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// SpeechConfig 语音识别与合成
type SpeechConfig struct {
	STTModel string `mapstructure:"stt_model"`
	TTSModel string `mapstructure:"tts_model"`
	Voice    string `mapstructure:"voice"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"` // local/minio
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

// EvaluationConfig 判题阈值，支持热更新
type EvaluationConfig struct {
	Threshold        float64 `mapstructure:"threshold"`       // 语义相似度及格线
	FuzzyThreshold   int     `mapstructure:"fuzzy_threshold"` // 模糊匹配及格线（0-100）
	DefaultQuestions int     `mapstructure:"default_questions"`
	MinQuestions     int     `mapstructure:"min_questions"`
	MaxQuestions     int     `mapstructure:"max_questions"`
	QuestionBankPath string  `mapstructure:"question_bank_path"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("INTERVIEW_BOT")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// AI / Speech
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY")
	viper.BindEnv("ai.chat_model", "AI_CHAT_MODEL")
	viper.BindEnv("ai.embedding_model", "AI_EMBEDDING_MODEL")
	viper.BindEnv("speech.stt_model", "SPEECH_STT_MODEL")
	viper.BindEnv("speech.tts_model", "SPEECH_TTS_MODEL")
	viper.BindEnv("speech.voice", "SPEECH_VOICE")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	applyEvaluationDefaults(&cfg.Evaluation)

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func applyEvaluationDefaults(ev *EvaluationConfig) {
	if ev.Threshold <= 0 {
		ev.Threshold = 0.6
	}
	if ev.FuzzyThreshold <= 0 {
		ev.FuzzyThreshold = 90
	}
	if ev.MinQuestions <= 0 {
		ev.MinQuestions = 2
	}
	if ev.MaxQuestions <= 0 {
		ev.MaxQuestions = 10
	}
	if ev.DefaultQuestions <= 0 {
		ev.DefaultQuestions = 5
	}
	if ev.QuestionBankPath == "" {
		ev.QuestionBankPath = "configs/questions.json"
	}
}
