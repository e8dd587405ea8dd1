package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variable of every key, e.g. FIGMA_MCP_SERVER_PORT.
const EnvPrefix = "FIGMA_MCP"

// envAliases are the short variable names also accepted for the most used keys.
// The first name wins when several are set.
var envAliases = map[string][]string{
	"figma.access_token":            {"FIGMA_ACCESS_TOKEN"},
	"storage.provider":              {"STORAGE_PROVIDER"},
	"storage.custom.secret_key":     {"CUSTOM_SECRET_KEY"},
	"storage.custom.upload_url":     {"CUSTOM_UPLOAD_URL"},
	"storage.local.dir":             {"LOCAL_DIR"},
	"storage.local.public_base_url": {"LOCAL_PUBLIC_BASE_URL"},
	"storage.gcs.bucket":            {"GCS_BUCKET"},
	"storage.gcs.credentials_file":  {"GCS_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS"},
	"storage.gcs.public_base_url":   {"GCS_PUBLIC_BASE_URL"},
	"storage.gcs.predefined_acl":    {"GCS_PREDEFINED_ACL"},
}

// Load reads the configuration. When path is empty the file "config.yaml" is searched in:
//  1. Directory specified by FIGMA_MCP_CONFIG_DIR environment variable
//  2. ~/.config/figma-structured-mcp/
//  3. Current working directory (.)
//
// A missing config file is not an error; defaults and the environment are enough.
// A .env file in the working directory is loaded first without overriding variables
// that are already set.
func Load(path string) (*Config, error) {
	if err := LoadEnvFile(); err != nil {
		return nil, err
	}

	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
		}
		return unmarshalConfig(v)
	}

	addSearchPaths(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return unmarshalConfig(v)
}

// LoadEnvFile loads the given .env files (default ".env"). Missing files are ignored.
func LoadEnvFile(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
	}
	return nil
}

// ConfigFileUsed reports the file Load would read for an empty path, or "" when there is none.
func ConfigFileUsed() string {
	v := newViper()
	addSearchPaths(v)
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// addSearchPaths registers config.yaml and the directories searched for it, in priority order.
func addSearchPaths(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if envPath := os.Getenv(EnvPrefix + "_CONFIG_DIR"); envPath != "" {
		v.AddConfigPath(envPath)
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "figma-structured-mcp"))
	}
	v.AddConfigPath(".")
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setViperDefaults(v)

	for key, names := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		v.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	return v
}

// unmarshalConfig converts viper config to typed Config struct.
func unmarshalConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Normalize()
	return cfg, nil
}

// setViperDefaults registers all default configuration values with a viper instance.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("figma.access_token", "")
	v.SetDefault("figma.oauth", false)
	v.SetDefault("figma.base_url", d.Figma.BaseURL)
	v.SetDefault("figma.rate_limit", d.Figma.RateLimit)

	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.custom.secret_key", "")
	v.SetDefault("storage.custom.upload_url", "")
	v.SetDefault("storage.local.dir", d.Storage.Local.Dir)
	v.SetDefault("storage.local.public_base_url", "")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.credentials_file", "")
	v.SetDefault("storage.gcs.public_base_url", "")
	v.SetDefault("storage.gcs.predefined_acl", "")

	v.SetDefault("pipeline.download_concurrency", d.Pipeline.DownloadConcurrency)
	v.SetDefault("pipeline.upload_concurrency", d.Pipeline.UploadConcurrency)
	v.SetDefault("pipeline.download_timeout", d.Pipeline.DownloadTimeout)
	v.SetDefault("pipeline.upload_timeout", d.Pipeline.UploadTimeout)
	v.SetDefault("pipeline.batch_timeout", d.Pipeline.BatchTimeout)
	v.SetDefault("pipeline.download_retries", d.Pipeline.DownloadRetries)

	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
}
