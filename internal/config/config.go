package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	AI      AIConfig      `mapstructure:"ai"`
	Log     LogConfig     `mapstructure:"log"`
	Store   StoreConfig   `mapstructure:"store"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Lock    LockConfig    `mapstructure:"lock"`
	Session SessionConfig `mapstructure:"session"`
	TTS     TTSConfig     `mapstructure:"tts"`
	STT     STTConfig     `mapstructure:"stt"`
	Storage StorageConfig `mapstructure:"storage"`
	Audio   AudioConfig   `mapstructure:"audio"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// AIConfig 生成模型配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"` // openai, azure, ark, groq
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Timeout  time.Duration   `mapstructure:"timeout"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// StoreConfig 持久化后端配置
type StoreConfig struct {
	Type         string `mapstructure:"type"`         // memory, mongo, postgres, sqlite
	DSN          string `mapstructure:"dsn"`          // postgres/sqlite 连接串
	Transactions bool   `mapstructure:"transactions"` // mongo 是否使用多文档事务（需要副本集）
}

// MongoConfig MongoDB 配置
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LockConfig 对话锁配置
type LockConfig struct {
	Backend     string        `mapstructure:"backend"` // local, redis
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// SessionConfig 匿名会话 Cookie 配置
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	Secret     string        `mapstructure:"secret"`
	TTL        time.Duration `mapstructure:"ttl"`
	Secure     bool          `mapstructure:"secure"`
}

// TTSConfig 语音合成配置
type TTSConfig struct {
	APIURL      string        `mapstructure:"api_url"`
	AccessToken string        `mapstructure:"access_token"`
	AppID       string        `mapstructure:"app_id"`
	Cluster     string        `mapstructure:"cluster"`
	VoiceType   string        `mapstructure:"voice_type"`
	SampleRate  int           `mapstructure:"sample_rate"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// STTConfig 语音识别配置（Whisper 兼容接口）
type STTConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig 音频文件存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath string `mapstructure:"base_path"` // 基础路径
	BaseURL  string `mapstructure:"base_url"`  // 基础URL（用于生成访问URL）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	PresignExpiry   int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// AudioConfig 音频访问路径配置
type AudioConfig struct {
	URLPrefix string `mapstructure:"url_prefix"`
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	validStores := map[string]bool{"memory": true, "mongo": true, "postgres": true, "sqlite": true}
	if !validStores[c.Store.Type] {
		return errors.New("invalid store type, must be memory/mongo/postgres/sqlite")
	}
	if (c.Store.Type == "postgres" || c.Store.Type == "sqlite") && c.Store.DSN == "" {
		return errors.New("store dsn is required for postgres/sqlite")
	}
	if c.Store.Type == "mongo" && c.Mongo.URI == "" {
		return errors.New("mongo uri is required for mongo store")
	}

	if c.Lock.Backend != "local" && c.Lock.Backend != "redis" {
		return errors.New("invalid lock backend, must be local/redis")
	}
	if c.Lock.Backend == "redis" && c.Redis.Addr == "" {
		return errors.New("redis addr is required for redis lock backend")
	}
	if c.Lock.Backend == "redis" && c.Lock.TTL < time.Second {
		return errors.New("lock ttl must be at least 1s for redis lock backend")
	}

	if c.Session.Secret == "" {
		return errors.New("session secret is required")
	}

	return nil
}
