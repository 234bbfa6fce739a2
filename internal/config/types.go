package config

// CacheBackend selects the storage engine backing the PDF blob cache.
type CacheBackend string

const (
	CacheSQLite CacheBackend = "sqlite"
	CacheRedis  CacheBackend = "redis"
)

// LoggingConfig holds logging-related settings.
type LoggingConfig struct {
	Level      string `yaml:"level" koanf:"level"`
	Pretty     bool   `yaml:"pretty" koanf:"pretty"`
	File       string `yaml:"file" koanf:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" koanf:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" koanf:"max_age_days"`
	Compress   bool   `yaml:"compress" koanf:"compress"`
}

// ChatConfig holds the AI assistant settings. The API key is read from
// OPENAI_API_KEY, not from the config file.
type ChatConfig struct {
	Model       string  `yaml:"model" koanf:"model"`
	MaxTokens   int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature float64 `yaml:"temperature" koanf:"temperature"`
}

// Config is the top-level tentor configuration, corresponding to tentor.yml.
type Config struct {
	Port         int           `yaml:"port" koanf:"port"`
	DataDir      string        `yaml:"data_dir" koanf:"data_dir"`
	AllowAllCORS bool          `yaml:"allow_all_cors" koanf:"allow_all_cors"`
	AdminToken   string        `yaml:"admin_token" koanf:"admin_token"`
	CacheBackend CacheBackend  `yaml:"cache_backend" koanf:"cache_backend"`
	RedisURL     string        `yaml:"redis_url" koanf:"redis_url"`
	Logging      LoggingConfig `yaml:"logging" koanf:"logging"`
	Chat         ChatConfig    `yaml:"chat" koanf:"chat"`
}
