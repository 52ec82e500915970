package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DispatchLog   = "log"
	DispatchQueue = "queue"
)

// ConfigPath is the YAML file Load reads when given an empty path.
var ConfigPath = envOr("CONTACT_CONFIG", "config.yaml")

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port               string   `yaml:"port"`
	LogLevel           string   `yaml:"logLevel"`
	LogsDir            string   `yaml:"logsDir"`
	GenerationProvider string   `yaml:"generationProvider"`
	GenerationModel    string   `yaml:"generationModel"`
	GenerationBaseURL  string   `yaml:"generationBaseURL"`
	GeminiAPIKey       string   `yaml:"geminiAPIKey"`
	AdminEmail         string   `yaml:"adminEmail"`
	DispatchMode       string   `yaml:"dispatchMode"`
	RedisAddr          string   `yaml:"redisAddr"`
	RedisPassword      string   `yaml:"redisPassword"`
	QueueName          string   `yaml:"queueName"`
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute"`
	TrustedProxies     []string `yaml:"trustedProxies"`
	AllowedOrigins     []string `yaml:"allowedOrigins"`
}

// Load reads config from path (defaults to ConfigPath). A missing default file
// is not an error; environment variables alone may configure the service.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	explicit := path != ""
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOGS_DIR"); v != "" {
		cfg.LogsDir = v
	}
	if v := os.Getenv("GENERATION_PROVIDER"); v != "" {
		cfg.GenerationProvider = v
	}
	if v := os.Getenv("GENERATION_MODEL"); v != "" {
		cfg.GenerationModel = v
	}
	if v := os.Getenv("GENERATION_BASE_URL"); v != "" {
		cfg.GenerationBaseURL = v
	}
	// GEMINI_API_KEY wins over the shorter API_KEY.
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("CONTACT_ADMIN_EMAIL"); v != "" {
		cfg.AdminEmail = v
	}
	if v := os.Getenv("CONTACT_DISPATCH_MODE"); v != "" {
		cfg.DispatchMode = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("CONTACT_QUEUE_NAME"); v != "" {
		cfg.QueueName = v
	}
	if v := os.Getenv("CONTACT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DispatchMode == "" {
		cfg.DispatchMode = DispatchLog
	}
	cfg.DispatchMode = strings.ToLower(strings.TrimSpace(cfg.DispatchMode))
	if cfg.QueueName == "" {
		cfg.QueueName = "contactdesk:dispatch"
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = "admin@example.com"
	}
}

func validateConfig(cfg FileConfig) error {
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		return errors.New("config: geminiAPIKey is required (set in config.yaml, GEMINI_API_KEY or API_KEY)")
	}
	switch cfg.DispatchMode {
	case DispatchLog:
	case DispatchQueue:
		if cfg.RedisAddr == "" {
			return errors.New("config: redisAddr is required when dispatchMode=queue (set in config.yaml or REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("config: unknown dispatchMode %q (want log or queue)", cfg.DispatchMode)
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must be >= 0")
	}
	if cfg.RateLimitPerMinute > 0 && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when rateLimitPerMinute > 0")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
