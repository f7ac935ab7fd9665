// Package config provides configuration management for nupkg-downloader.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from flags, NUPKG_* environment variables and an
//     optional TOML/JSON/YAML file through viper
//   - Saving settings as TOML
//   - Splitting comma-joined source lists
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// nuget.org flat container as the only source
//	// one download per CPU
//	// 5 minute per-request timeout
//
// # Loading
//
//	v := viper.New()
//	_ = v.BindPFlags(cmd.Flags())
//	settings, err := config.Load(v, "/path/to/config.toml")
//
// # Saving Settings
//
//	err := settings.Save("/path/to/config.toml")
package config
