package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "NUPKG"

// Proxy types accepted in Settings.ProxyType.
const (
	ProxyNone   = "none"
	ProxySystem = "system"
	ProxyManual = "manual"
)

// Settings holds all configuration options for one run.
type Settings struct {
	// Input and output
	ManifestPath string   `mapstructure:"props_path" toml:"props_path"`
	OutputDir    string   `mapstructure:"output_dir" toml:"output_dir"`
	Sources      []string `mapstructure:"sources" toml:"sources"`

	// Transport
	DisableSSLValidation bool          `mapstructure:"disable_ssl_validation" toml:"disable_ssl_validation"`
	Username             string        `mapstructure:"user" toml:"user,omitempty"`
	Password             string        `mapstructure:"password" toml:"password,omitempty"`
	RequestTimeout       time.Duration `mapstructure:"timeout" toml:"timeout"`
	UserAgent            string        `mapstructure:"user_agent" toml:"user_agent"`

	// Download settings
	MaxConcurrentDownloads int `mapstructure:"parallel" toml:"parallel"`

	// Proxy settings
	ProxyType    string `mapstructure:"proxy_type" toml:"proxy_type"` // none, system, manual
	ProxyAddress string `mapstructure:"proxy_address" toml:"proxy_address,omitempty"`
	ProxyPort    int    `mapstructure:"proxy_port" toml:"proxy_port,omitempty"`

	// Output settings
	LogFile     string `mapstructure:"log_file" toml:"log_file,omitempty"`
	MetricsFile string `mapstructure:"metrics_file" toml:"metrics_file,omitempty"`
	Verbose     bool   `mapstructure:"verbose" toml:"verbose"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Sources:                []string{"https://api.nuget.org/v3-flatcontainer/"},
		RequestTimeout:         5 * time.Minute,
		UserAgent:              "nupkg-downloader",
		MaxConcurrentDownloads: runtime.NumCPU(),
		ProxyType:              ProxySystem,
	}
}

// Load builds settings from defaults, an optional config file, NUPKG_*
// environment variables and whatever the caller already bound into v
// (typically command line flags), in increasing order of precedence.
//
// A missing config file is not an error when path is empty.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if v == nil {
		v = viper.New()
	}

	defaults := DefaultSettings()
	v.SetDefault("sources", defaults.Sources)
	v.SetDefault("timeout", defaults.RequestTimeout)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("parallel", defaults.MaxConcurrentDownloads)
	v.SetDefault("proxy_type", defaults.ProxyType)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, goerr.Wrap(err, "failed to decode settings")
	}
	settings.Sources = SplitSources(settings.Sources)

	return settings, nil
}

// Save writes settings to a TOML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create config directory", goerr.V("dir", dir))
	}

	data, err := toml.Marshal(s)
	if err != nil {
		return goerr.Wrap(err, "failed to encode settings")
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks that the settings describe a runnable download.
func (s *Settings) Validate() error {
	if s.ManifestPath == "" {
		return goerr.New("props path is required")
	}
	if s.OutputDir == "" {
		return goerr.New("output directory is required")
	}
	if len(SplitSources(s.Sources)) == 0 {
		return goerr.New("at least one source is required")
	}
	if s.MaxConcurrentDownloads < 1 {
		return goerr.New("parallel must be at least 1", goerr.V("parallel", s.MaxConcurrentDownloads))
	}
	if s.RequestTimeout < 0 {
		return goerr.New("timeout must not be negative", goerr.V("timeout", s.RequestTimeout))
	}
	switch s.ProxyType {
	case "", ProxyNone, ProxySystem:
	case ProxyManual:
		if s.ProxyAddress == "" || s.ProxyPort <= 0 {
			return goerr.New("manual proxy requires an address and a port",
				goerr.V("address", s.ProxyAddress), goerr.V("port", s.ProxyPort))
		}
	default:
		return goerr.New("unknown proxy type", goerr.V("proxy_type", s.ProxyType))
	}
	return nil
}

// HasCredentials reports whether both username and password are set.
func (s *Settings) HasCredentials() bool {
	return s.Username != "" && s.Password != ""
}

// SplitSources flattens comma-joined source entries.
//
// Each entry is split on commas and trimmed; empty pieces are dropped. The
// relative order of sources is preserved exactly since it is the priority
// order used when fetching.
//
// Example:
//
//	SplitSources([]string{"https://a/, https://b", " https://c "})
//	// ["https://a/", "https://b", "https://c"]
func SplitSources(entries []string) []string {
	var sources []string
	for _, entry := range entries {
		for _, s := range strings.Split(entry, ",") {
			s = strings.TrimSpace(s)
			if s != "" {
				sources = append(sources, s)
			}
		}
	}
	return sources
}
