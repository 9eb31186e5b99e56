package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/yourusername/flare-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// A missing .env is the normal case
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// Start with default config
	config := domain.DefaultConfig()

	// Set up viper
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.flare")
		v.AddConfigPath("/etc/flare")
	}

	// FLARE_DOWNLOAD_OUTPUT_DIR overrides download.output_dir
	v.SetEnvPrefix("FLARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// bindEnvKeys makes every known key visible to AutomaticEnv during Unmarshal,
// which only consults the environment for keys viper already knows about
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.host", "server.port",
		"download.output_dir", "download.create_output_dir", "download.logs_dir",
		"download.database_path", "download.default_type", "download.default_quality",
		"tool.binary", "tool.cookie_file",
		"update.release_url", "update.fallback_version_url", "update.raw_base_url",
		"update.package_suffix", "update.user_agent", "update.check_timeout",
		"update.fetch_timeout", "update.install_dir", "update.backup_dir", "update.temp_dir",
		"update.check_on_startup",
		"notification.enabled", "notification.sound", "notification.method",
		"logging.level", "logging.format", "logging.output_path",
		"logging.max_size_mb", "logging.max_backups", "logging.max_age_days",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Download.DatabasePath = expandPath(config.Download.DatabasePath)
	config.Tool.CookieFile = expandPath(config.Tool.CookieFile)
	for i, dir := range config.Tool.BundleDirs {
		config.Tool.BundleDirs[i] = expandPath(dir)
	}
	config.Update.InstallDir = expandPath(config.Update.InstallDir)
	config.Update.BackupDir = expandPath(config.Update.BackupDir)
	config.Update.TempDir = expandPath(config.Update.TempDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.OutputDir == "" {
		return fmt.Errorf("download output directory not configured")
	}

	if config.Download.DatabasePath == "" {
		return fmt.Errorf("download database path not configured")
	}

	if config.Download.LogsDir == "" {
		return fmt.Errorf("download logs directory not configured")
	}

	if !domain.ValidateMediaType(domain.MediaType(config.Download.DefaultType)) {
		return fmt.Errorf("invalid default media type: %q", config.Download.DefaultType)
	}

	if config.Tool.Binary == "" {
		return fmt.Errorf("tool binary not configured")
	}

	if config.Update.CheckTimeout <= 0 || config.Update.FetchTimeout <= 0 {
		return fmt.Errorf("update timeouts must be positive")
	}

	if len(config.Update.ManagedFiles) == 0 {
		return fmt.Errorf("update managed files not configured")
	}
	for _, name := range config.Update.ManagedFiles {
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("managed file must be a plain file name: %q", name)
		}
	}

	if config.Update.InstallDir == "" || config.Update.BackupDir == "" || config.Update.TempDir == "" {
		return fmt.Errorf("update directories not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	sections := map[string]interface{}{
		"server":       config.Server,
		"download":     config.Download,
		"tool":         config.Tool,
		"update":       config.Update,
		"notification": config.Notification,
		"logging":      config.Logging,
	}
	for key, section := range sections {
		m, err := sectionMap(section)
		if err != nil {
			return fmt.Errorf("failed to encode %s config: %w", key, err)
		}
		v.Set(key, m)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// sectionMap flattens a config section into its mapstructure keys so the written
// file loads back through LoadConfig
func sectionMap(section interface{}) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if err := mapstructure.Decode(section, &m); err != nil {
		return nil, err
	}
	for k, val := range m {
		if d, ok := val.(time.Duration); ok {
			m[k] = d.String()
		}
	}
	return m, nil
}
