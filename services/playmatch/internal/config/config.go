package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default location of the service config.
const ConfigPath = "config.yaml"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	ObjectStoreNone  = "none"
	ObjectStoreMinio = "minio"
	ObjectStoreS3    = "s3"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                       string   `yaml:"port"`
	LogLevel                   string   `yaml:"logLevel"`
	LogFormat                  string   `yaml:"logFormat"`
	StoreDriver                string   `yaml:"storeDriver"`
	DatabaseURL                string   `yaml:"databaseURL"`
	MongoURL                   string   `yaml:"mongoURL"`
	MongoDatabase              string   `yaml:"mongoDatabase"`
	RedisAddr                  string   `yaml:"redisAddr"`
	RedisPassword              string   `yaml:"redisPassword"`
	SessionTTL                 string   `yaml:"sessionTTL"`
	IdentityURL                string   `yaml:"identityURL"`
	IdentityLoginURL           string   `yaml:"identityLoginURL"`
	CORSOrigins                []string `yaml:"corsOrigins"`
	CookieSecure               bool     `yaml:"cookieSecure"`
	TrustedProxyCIDRs          []string `yaml:"trustedProxyCidrs"`
	CallbackRateLimitPerMinute int      `yaml:"callbackRateLimitPerMinute"`
	ObjectStoreDriver          string   `yaml:"objectStoreDriver"`
	MinioEndpoint              string   `yaml:"minioEndpoint"`
	MinioAccessKey             string   `yaml:"minioAccessKey"`
	MinioSecretKey             string   `yaml:"minioSecretKey"`
	MinioUseSSL                bool     `yaml:"minioUseSSL"`
	AvatarBucket               string   `yaml:"avatarBucket"`
	AWSRegion                  string   `yaml:"awsRegion"`
	MaxAvatarBytes             int64    `yaml:"maxAvatarBytes"`
}

// Load reads config from path (defaults to config.yaml) and applies env overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("PLAYMATCH_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLAYMATCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLAYMATCH_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLAYMATCH_STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("MONGO_URL"); v != "" {
		cfg.MongoURL = v
	}
	if v := os.Getenv("PLAYMATCH_MONGO_DATABASE"); v != "" {
		cfg.MongoDatabase = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("PLAYMATCH_SESSION_TTL"); v != "" {
		cfg.SessionTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLAYMATCH_IDENTITY_URL"); v != "" {
		cfg.IdentityURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLAYMATCH_IDENTITY_LOGIN_URL"); v != "" {
		cfg.IdentityLoginURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("PLAYMATCH_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("PLAYMATCH_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := os.Getenv("PLAYMATCH_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("PLAYMATCH_CALLBACK_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.CallbackRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("PLAYMATCH_OBJECT_STORE_DRIVER"); v != "" {
		cfg.ObjectStoreDriver = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("PLAYMATCH_AVATAR_BUCKET"); v != "" {
		cfg.AvatarBucket = strings.TrimSpace(v)
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWSRegion = v
	}
	if v := os.Getenv("PLAYMATCH_MAX_AVATAR_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.MaxAvatarBytes = n
		}
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreMemory
	}
	if cfg.ObjectStoreDriver == "" {
		cfg.ObjectStoreDriver = ObjectStoreNone
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "playmatch"
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PLAYMATCH_PORT)")
	}
	switch cfg.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres store")
		}
	case StoreMongo:
		if strings.TrimSpace(cfg.MongoURL) == "" {
			return errors.New("config: mongoURL is required for the mongo store")
		}
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}
	if strings.TrimSpace(cfg.IdentityURL) == "" {
		return errors.New("config: identityURL is required (set in config.yaml or PLAYMATCH_IDENTITY_URL)")
	}
	if strings.TrimSpace(cfg.IdentityLoginURL) == "" {
		return errors.New("config: identityLoginURL is required (set in config.yaml or PLAYMATCH_IDENTITY_LOGIN_URL)")
	}
	if _, err := ParseSessionTTL(cfg.SessionTTL); err != nil {
		return err
	}
	if cfg.CallbackRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.CallbackRateLimitPerMinute > 0 && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.MaxAvatarBytes < 0 {
		return errors.New("config: maxAvatarBytes must be >= 0")
	}
	switch cfg.ObjectStoreDriver {
	case ObjectStoreNone:
	case ObjectStoreMinio:
		if cfg.MinioEndpoint == "" || cfg.AvatarBucket == "" {
			return errors.New("config: minioEndpoint and avatarBucket are required for the minio object store")
		}
	case ObjectStoreS3:
		if cfg.AWSRegion == "" || cfg.AvatarBucket == "" {
			return errors.New("config: awsRegion and avatarBucket are required for the s3 object store")
		}
	default:
		return fmt.Errorf("config: unknown objectStoreDriver %q", cfg.ObjectStoreDriver)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseSessionTTL parses the optional session lifetime; empty means the app default.
func ParseSessionTTL(ttl string) (time.Duration, error) {
	if ttl == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttl)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("config: sessionTTL must be positive")
	}
	return dur, nil
}
