package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	Tool         ToolConfig         `mapstructure:"tool"`
	Update       UpdateConfig       `mapstructure:"update"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	OutputDir       string `mapstructure:"output_dir"`
	CreateOutputDir bool   `mapstructure:"create_output_dir"`
	LogsDir         string `mapstructure:"logs_dir"`
	DatabasePath    string `mapstructure:"database_path"`
	DefaultType     string `mapstructure:"default_type"`
	DefaultQuality  string `mapstructure:"default_quality"`
}

// ToolConfig describes how the external media tool is located and invoked
type ToolConfig struct {
	Binary     string   `mapstructure:"binary"`
	BundleDirs []string `mapstructure:"bundle_dirs"` // searched before PATH and prepended to it
	CookieFile string   `mapstructure:"cookie_file"`
	ExtraArgs  []string `mapstructure:"extra_args"`
}

// UpdateConfig contains self-update configuration
type UpdateConfig struct {
	ReleaseURL         string        `mapstructure:"release_url"`
	FallbackVersionURL string        `mapstructure:"fallback_version_url"`
	RawBaseURL         string        `mapstructure:"raw_base_url"`
	PackageSuffix      string        `mapstructure:"package_suffix"`
	UserAgent          string        `mapstructure:"user_agent"`
	CheckTimeout       time.Duration `mapstructure:"check_timeout"`
	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`
	InstallDir         string        `mapstructure:"install_dir"`
	BackupDir          string        `mapstructure:"backup_dir"`
	TempDir            string        `mapstructure:"temp_dir"`
	ManagedFiles       []string      `mapstructure:"managed_files"`
	CheckOnStartup     bool          `mapstructure:"check_on_startup"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			OutputDir:       "$HOME/Downloads/flare",
			CreateOutputDir: true,
			LogsDir:         "$HOME/.flare/logs",
			DatabasePath:    "$HOME/.flare/history.db",
			DefaultType:     string(MediaVideo),
			DefaultQuality:  QualityBest,
		},
		Tool: ToolConfig{
			Binary:     "yt-dlp",
			BundleDirs: []string{},
			CookieFile: "$HOME/.flare/cookies.txt",
			ExtraArgs:  []string{},
		},
		Update: UpdateConfig{
			ReleaseURL:         "https://api.github.com/repos/yourusername/flare-go/releases/latest",
			FallbackVersionURL: "https://raw.githubusercontent.com/yourusername/flare-go/main/VERSION",
			RawBaseURL:         "https://raw.githubusercontent.com/yourusername/flare-go/main",
			PackageSuffix:      ".zip",
			UserAgent:          "Flare-Updater",
			CheckTimeout:       10 * time.Second,
			FetchTimeout:       30 * time.Second,
			InstallDir:         "$HOME/.flare/app",
			BackupDir:          "$HOME/.flare/backup",
			TempDir:            "$HOME/.flare/update_tmp",
			ManagedFiles:       []string{"flare", "VERSION", "deps.json"},
			CheckOnStartup:     false,
		},
		Notification: NotificationConfig{
			Enabled: true,
			Sound:   true,
			Method:  "osascript",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}
