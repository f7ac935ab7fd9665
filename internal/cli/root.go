// Package cli holds the cobra command tree shared by the nupkg-dl and
// nupkg-tui binaries: flag definitions, their binding into viper, exit codes
// and the end-of-run summary.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/handiism/nupkg-downloader/internal/applog"
	"github.com/handiism/nupkg-downloader/internal/config"
	"github.com/handiism/nupkg-downloader/internal/download"
	"github.com/handiism/nupkg-downloader/internal/metrics"
	"github.com/handiism/nupkg-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is the semantic version (set via -ldflags).
var Version = "dev"

// DefaultConfigFile is written by "config init" when no path is given.
const DefaultConfigFile = "nupkg-dl.toml"

// flagKeys maps command line flags to settings keys.
var flagKeys = map[string]string{
	"props-path":             "props_path",
	"output-dir":             "output_dir",
	"sources":                "sources",
	"disable-ssl-validation": "disable_ssl_validation",
	"user":                   "user",
	"password":               "password",
	"timeout":                "timeout",
	"user-agent":             "user_agent",
	"parallel":               "parallel",
	"proxy":                  "proxy_type",
	"proxy-address":          "proxy_address",
	"proxy-port":             "proxy_port",
	"log-file":               "log_file",
	"metrics-file":           "metrics_file",
	"verbose":                "verbose",
}

// Run carries what a front-end needs for one download run.
type Run struct {
	Settings *config.Settings
	Logger   *applog.Logger
	Metrics  *metrics.Recorder
}

// NewManager builds the download manager for this run. Progress events go to
// the log sink and then to extra, when set.
func (r *Run) NewManager(extra download.ProgressFunc, opts ...download.Option) (*download.Manager, error) {
	onProgress := func(event download.ProgressEvent) {
		r.Logger.Progress(event)
		if extra != nil {
			extra(event)
		}
	}
	opts = append([]download.Option{download.WithMetrics(r.Metrics)}, opts...)
	return download.NewManager(r.Settings, onProgress, opts...)
}

// Frontend describes one binary built on the shared command tree.
type Frontend struct {
	Use   string
	Short string
	Long  string

	// Interactive front-ends own the terminal while running, so console log
	// lines are suppressed. The summary is still printed afterwards.
	Interactive bool

	// Execute drives the run to completion. It returns context.Canceled,
	// possibly alongside a summary, when the user cancelled the run.
	Execute func(ctx context.Context, run *Run) (*model.Summary, error)
}

// Download is the plain console front-end.
var Download = Frontend{
	Use:   "nupkg-dl",
	Short: "Download the NuGet packages listed in a props manifest",
	Long: TitleStyle.Render("nupkg-dl") + SubtitleStyle.Render(" - NuGet package downloader") + `

Reads the PackageVersion entries of a Directory.Packages.props style manifest
and downloads every package missing from the output directory, trying each
source in order until one serves it.

` + SubtitleStyle.Render("Examples:") + `
  nupkg-dl --props-path Directory.Packages.props --output-dir ./packages
  nupkg-dl --props-path deps.props --output-dir out \
    --sources https://feed.example/v3-flatcontainer,https://api.nuget.org/v3-flatcontainer
  nupkg-dl config init --output-dir ./packages`,
	Execute: func(ctx context.Context, run *Run) (*model.Summary, error) {
		m, err := run.NewManager(nil)
		if err != nil {
			return nil, err
		}
		return m.Run(ctx)
	},
}

// NewRootCommand creates the command tree for a front-end.
func NewRootCommand(fe Frontend) *cobra.Command {
	root := &cobra.Command{
		Use:          fe.Use,
		Short:        fe.Short,
		Long:         fe.Long,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}
			return execute(cmd, fe, settings)
		},
	}

	defaults := config.DefaultSettings()
	flags := root.PersistentFlags()
	flags.String("props-path", "", "path to the props manifest listing PackageVersion entries")
	flags.String("output-dir", "", "directory receiving the .nupkg files")
	flags.StringArray("sources", defaults.Sources, "package source base URL, in priority order (repeatable, comma-separated allowed)")
	flags.Bool("disable-ssl-validation", false, "skip TLS certificate validation")
	flags.String("user", "", "username for basic authentication")
	flags.String("password", "", "password for basic authentication")
	flags.Duration("timeout", defaults.RequestTimeout, "timeout of a single HTTP request (0 disables)")
	flags.String("user-agent", defaults.UserAgent, "User-Agent header sent to sources")
	flags.Int("parallel", runtime.NumCPU(), "maximum concurrent package downloads")
	flags.String("proxy", defaults.ProxyType, "proxy mode: none, system or manual")
	flags.String("proxy-address", "", "proxy host for --proxy manual")
	flags.Int("proxy-port", 0, "proxy port for --proxy manual")
	flags.String("log-file", "", "also write timestamped log lines to this file")
	flags.String("metrics-file", "", "write Prometheus metrics of the run to this file")
	flags.BoolP("verbose", "v", false, "show debug output")
	flags.String("config", "", "config file (toml, yaml or json)")

	root.AddCommand(newConfigCommand())

	return root
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective settings to a TOML config file",
		Long: `Write the settings resolved from defaults, environment and the given flags
to a TOML file (default ` + DefaultConfigFile + `) for later use with --config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			path := DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := settings.Save(path); err != nil {
				return goerr.Wrap(err, "failed to write config file", goerr.V("path", path))
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Wrote "+path))
			return nil
		},
	})

	return configCmd
}

// loadSettings binds the command's flags into a fresh viper instance and
// resolves settings from flags, NUPKG_* environment and the --config file.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	v := viper.New()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read --config")
	}

	return config.Load(v, path)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return goerr.Wrap(err, "failed to bind flag", goerr.V("flag", name))
		}
	}
	return nil
}

func execute(cmd *cobra.Command, fe Frontend, settings *config.Settings) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var console io.Writer
	if !fe.Interactive {
		console = cmd.OutOrStdout()
	}
	logger, err := applog.New(console, settings.LogFile, settings.Verbose)
	if err != nil {
		return &ExitError{Code: ExitFatal, Err: err}
	}
	defer logger.Close()

	run := &Run{Settings: settings, Logger: logger, Metrics: metrics.NewRecorder()}

	start := time.Now()
	summary, runErr := fe.Execute(ctx, run)
	if summary != nil {
		writeMetrics(run, start)
	}

	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), RenderSummary(summary))
	}

	return ExitFor(ctx, summary, runErr)
}

func writeMetrics(run *Run, start time.Time) {
	path := run.Settings.MetricsFile
	if path == "" {
		return
	}
	run.Metrics.RunDuration(time.Since(start))
	if err := run.Metrics.WriteTextfile(path); err != nil {
		run.Logger.Log(fmt.Sprintf("Failed to write metrics to %s: %v", path, err), download.LevelWarning)
		return
	}
	run.Logger.Log(fmt.Sprintf("Metrics written to %s", path), download.LevelVerbose)
}

// Execute runs the front-end's command tree and exits the process with the
// mapped exit code. An interrupt cancels the run's context.
func Execute(fe Frontend) {
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(fe),
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(ExitCode(err))
	}
}
