package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"genui/internal/domain"
)

const envPrefix = "GENUI"

type rawConfig struct {
	Service  rawServiceConfig  `mapstructure:"service"`
	HTTP     rawHTTPConfig     `mapstructure:"http"`
	Toolsets rawToolsetsConfig `mapstructure:"toolsets"`
	Canvas   rawCanvasConfig   `mapstructure:"canvas"`
	Memory   rawMemoryConfig   `mapstructure:"memory"`
	Log      rawLogConfig      `mapstructure:"log"`
}

type rawServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Model   string `mapstructure:"model"`
}

type rawHTTPConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
	EnableMetrics bool   `mapstructure:"enableMetrics"`
}

type rawToolsetsConfig struct {
	CatalogPath string   `mapstructure:"catalogPath"`
	AliasesPath string   `mapstructure:"aliasesPath"`
	Enabled     []string `mapstructure:"enabled"`
}

type rawCanvasConfig struct {
	SessionTimeoutSeconds int `mapstructure:"sessionTimeoutSeconds"`
	SweepIntervalSeconds  int `mapstructure:"sweepIntervalSeconds"`
}

type rawMemoryConfig struct {
	Enabled    bool               `mapstructure:"enabled"`
	Backend    string             `mapstructure:"backend"`
	SessionID  string             `mapstructure:"sessionId"`
	PersistDir string             `mapstructure:"persistDir"`
	Postgres   rawPostgresConfig  `mapstructure:"postgres"`
	Mongo      rawMongoConfig     `mapstructure:"mongo"`
	Embedding  rawEmbeddingConfig `mapstructure:"embedding"`
}

type rawPostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type rawMongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type rawEmbeddingConfig struct {
	Provider     string `mapstructure:"provider"`
	Model        string `mapstructure:"model"`
	Dimensions   int    `mapstructure:"dimensions"`
	APIKeyEnvVar string `mapstructure:"apiKeyEnvVar"`
	BaseURL      string `mapstructure:"baseURL"`
}

type rawLogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setConfigDefaults(v)
	return v
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("service.name", domain.DefaultServiceName)
	v.SetDefault("service.version", domain.DefaultServiceVersion)
	v.SetDefault("service.model", domain.DefaultModel)
	v.SetDefault("http.listenAddress", domain.DefaultHTTPListenAddress)
	v.SetDefault("http.enableMetrics", domain.DefaultEnableMetrics)
	v.SetDefault("toolsets.catalogPath", domain.DefaultCatalogPath)
	v.SetDefault("toolsets.aliasesPath", domain.DefaultAliasesPath)
	v.SetDefault("toolsets.enabled", []string{})
	v.SetDefault("canvas.sessionTimeoutSeconds", domain.DefaultSessionTimeoutSeconds)
	v.SetDefault("canvas.sweepIntervalSeconds", domain.DefaultSweepIntervalSeconds)
	v.SetDefault("memory.enabled", domain.DefaultMemoryEnabled)
	v.SetDefault("memory.backend", string(domain.DefaultMemoryBackend))
	v.SetDefault("memory.sessionId", "")
	v.SetDefault("memory.persistDir", domain.DefaultMemoryPersistDir)
	v.SetDefault("memory.postgres.dsn", "")
	v.SetDefault("memory.mongo.uri", "")
	v.SetDefault("memory.mongo.database", domain.DefaultMongoDatabase)
	v.SetDefault("memory.embedding.provider", domain.DefaultEmbeddingProvider)
	v.SetDefault("memory.embedding.model", "")
	v.SetDefault("memory.embedding.dimensions", domain.DefaultEmbeddingDimensions)
	v.SetDefault("memory.embedding.apiKeyEnvVar", "")
	v.SetDefault("memory.embedding.baseURL", "")
	v.SetDefault("log.level", domain.DefaultLogLevel)
	v.SetDefault("log.format", domain.DefaultLogFormat)
}

// LoadConfig reads the YAML config at path. A missing file yields the
// defaults; GENUI_* variables and PORT override file values.
func LoadConfig(path string, logger *zap.Logger) (domain.Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("config")

	v := newConfigViper()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded, missing, err := expandConfigEnv(data)
			if err != nil {
				return domain.Config{}, err
			}
			if len(missing) > 0 {
				logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
			}
			if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
				return domain.Config{}, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			logger.Info("config file not found, using defaults", zap.String("path", path))
		default:
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && !listenAddressSet(v) {
		raw.HTTP.ListenAddress = "0.0.0.0:" + port
	}

	cfg, errs := normalizeConfig(raw)
	if len(errs) > 0 {
		return domain.Config{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

// listenAddressSet reports whether the file or GENUI_HTTP_LISTENADDRESS
// chose an address, which takes precedence over PORT.
func listenAddressSet(v *viper.Viper) bool {
	if v.InConfig("http.listenAddress") {
		return true
	}
	_, ok := os.LookupEnv(envPrefix + "_HTTP_LISTENADDRESS")
	return ok
}

func normalizeConfig(raw rawConfig) (domain.Config, []string) {
	var errs []string

	cfg := domain.Config{
		Service: domain.ServiceConfig{
			Name:    strings.TrimSpace(raw.Service.Name),
			Version: strings.TrimSpace(raw.Service.Version),
			Model:   strings.TrimSpace(raw.Service.Model),
		},
		HTTP: domain.HTTPConfig{
			ListenAddress: strings.TrimSpace(raw.HTTP.ListenAddress),
			EnableMetrics: raw.HTTP.EnableMetrics,
		},
		Toolsets: domain.ToolsetsConfig{
			CatalogPath: strings.TrimSpace(raw.Toolsets.CatalogPath),
			AliasesPath: strings.TrimSpace(raw.Toolsets.AliasesPath),
			Enabled:     normalizeList(raw.Toolsets.Enabled),
		},
		Canvas: domain.CanvasConfig{
			SessionTimeoutSeconds: raw.Canvas.SessionTimeoutSeconds,
			SweepIntervalSeconds:  raw.Canvas.SweepIntervalSeconds,
		},
		Memory: domain.MemoryConfig{
			Enabled:    raw.Memory.Enabled,
			Backend:    domain.MemoryBackend(strings.ToLower(strings.TrimSpace(raw.Memory.Backend))),
			SessionID:  strings.TrimSpace(raw.Memory.SessionID),
			PersistDir: strings.TrimSpace(raw.Memory.PersistDir),
			Postgres:   domain.PostgresConfig{DSN: strings.TrimSpace(raw.Memory.Postgres.DSN)},
			Mongo: domain.MongoConfig{
				URI:      strings.TrimSpace(raw.Memory.Mongo.URI),
				Database: strings.TrimSpace(raw.Memory.Mongo.Database),
			},
			Embedding: domain.EmbeddingConfig{
				Provider:     strings.ToLower(strings.TrimSpace(raw.Memory.Embedding.Provider)),
				Model:        strings.TrimSpace(raw.Memory.Embedding.Model),
				Dimensions:   raw.Memory.Embedding.Dimensions,
				APIKeyEnvVar: strings.TrimSpace(raw.Memory.Embedding.APIKeyEnvVar),
				BaseURL:      strings.TrimSpace(raw.Memory.Embedding.BaseURL),
			},
		},
		Log: domain.LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(raw.Log.Level)),
			Format: strings.ToLower(strings.TrimSpace(raw.Log.Format)),
		},
	}

	if cfg.HTTP.ListenAddress == "" {
		errs = append(errs, "http.listenAddress must not be empty")
	}
	if cfg.Toolsets.CatalogPath == "" {
		errs = append(errs, "toolsets.catalogPath must not be empty")
	}
	if cfg.Canvas.SessionTimeoutSeconds <= 0 {
		errs = append(errs, "canvas.sessionTimeoutSeconds must be > 0")
	}
	if cfg.Canvas.SweepIntervalSeconds <= 0 {
		errs = append(errs, "canvas.sweepIntervalSeconds must be > 0")
	}

	switch cfg.Memory.Backend {
	case domain.MemoryBackendEphemeral, domain.MemoryBackendPersistent:
	case domain.MemoryBackendPostgres:
		if cfg.Memory.Enabled && cfg.Memory.Postgres.DSN == "" {
			errs = append(errs, "memory.postgres.dsn is required for the postgres backend")
		}
	case domain.MemoryBackendMongo:
		if cfg.Memory.Enabled && cfg.Memory.Mongo.URI == "" {
			errs = append(errs, "memory.mongo.uri is required for the mongo backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("memory.backend %q is not supported", cfg.Memory.Backend))
	}

	switch cfg.Memory.Embedding.Provider {
	case "none", "gemini", "openai", "ollama":
	default:
		errs = append(errs, fmt.Sprintf("memory.embedding.provider %q is not supported", cfg.Memory.Embedding.Provider))
	}
	if cfg.Memory.Embedding.Dimensions < 0 {
		errs = append(errs, "memory.embedding.dimensions must be >= 0")
	}

	if _, err := zapcore.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be json or console", cfg.Log.Format))
	}

	return cfg, errs
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
