package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/specialistvlad/jobgrid/internal/app"
	"github.com/specialistvlad/jobgrid/internal/artifacts"
	"github.com/specialistvlad/jobgrid/internal/config"
	"github.com/specialistvlad/jobgrid/internal/hcl_adapter"
	"github.com/specialistvlad/jobgrid/internal/report"
	"github.com/specialistvlad/jobgrid/internal/yaml_adapter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Process exit codes.
const (
	ExitRunFailed = 1
	ExitUsage     = 2
	ExitConfig    = 3
	ExitReport    = 4
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// usageError marks bad invocations: unknown flags, wrong arguments, invalid
// option values.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

// Execute runs the command line in args and translates the outcome into an
// ExitError. A nil return means exit code 0.
func Execute(ctx context.Context, args []string, outW io.Writer) error {
	root := NewRootCommand(outW)
	root.SetArgs(args)
	return exitError(root.ExecuteContext(ctx))
}

func exitError(err error) error {
	if err == nil {
		return nil
	}
	var ue *usageError
	switch {
	case errors.As(err, &ue):
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	case errors.Is(err, app.ErrConfig):
		return &ExitError{Code: ExitConfig, Message: err.Error()}
	case errors.Is(err, report.ErrReport):
		return &ExitError{Code: ExitReport, Message: err.Error()}
	default:
		return &ExitError{Code: ExitRunFailed, Message: err.Error()}
	}
}

// NewRootCommand builds the command tree. Every call gets its own viper
// instance so commands can be built repeatedly in one process.
func NewRootCommand(outW io.Writer) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "jobgrid",
		Short: "Dependency-aware concurrent CI job runner",
		Long: `jobgrid runs CI jobs declared in HCL or YAML files. Every job starts as soon
as the jobs it needs have completed, and the first failure stops new work.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v, cmd)
		},
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usage(err)
	})

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "config file (default is ./jobgrid.yaml when present)")
	pf.StringP("jobs", "j", "", "path to a job file or a directory of .hcl/.yaml files")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.Bool("strict-graph", false, "reject dependency cycles before running")

	root.AddCommand(newRunCommand(v, outW), newValidateCommand(v, outW), newOrderCommand(v, outW))
	return root
}

func newRunCommand(v *viper.Viper, outW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [JOBS_PATH]",
		Short: "Run every job, honouring dependencies",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, args, outW)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.Int("healthcheck-port", 0, "port for the /health and /status HTTP server, 0 disables it")
	f.Duration("poll-interval", 0, "upper bound on how long the scheduler idles between sweeps")
	f.Bool("kill-on-abort", false, "kill still-running scripts when the run fails")
	f.String("shell", "", "default shell command line, e.g. \"bash -eo pipefail -c\"")
	f.String("report", "", "write the run report to this file")
	f.String("report-format", "", "report format: markdown, json or table (default from file extension)")
	f.String("summary", "", "append a markdown summary to this file (default $GITHUB_STEP_SUMMARY)")
	f.Bool("github-annotations", false, "emit GitHub Actions log groups and error annotations")
	f.String("events-url", "", "socket.io server that receives live job events")
	f.Bool("events-insecure", false, "skip TLS verification for the events server")
	f.String("artifacts-endpoint", "", "S3-compatible endpoint (host:port) for report uploads")
	f.String("artifacts-bucket", "jobgrid-reports", "bucket for report uploads")
	f.String("artifacts-prefix", "runs", "object key prefix for report uploads")
	f.String("artifacts-region", "us-east-1", "bucket region")
	f.String("artifacts-access-key", "", "access key for report uploads")
	f.String("artifacts-secret-key", "", "secret key for report uploads")
	f.Bool("artifacts-ssl", true, "use TLS for report uploads")
	f.String("history-dsn", "", "Postgres URL for the run history table")
	return cmd
}

func newValidateCommand(v *viper.Viper, outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [JOBS_PATH]",
		Short: "Check job files and the dependency graph without running anything",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, args, outW)
			if err != nil {
				return err
			}
			return a.Validate(cmd.Context())
		},
	}
}

func newOrderCommand(v *viper.Viper, outW io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "order [JOBS_PATH]",
		Short: "Print the jobs in topological order",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, args, outW)
			if err != nil {
				return err
			}
			return a.PrintOrder(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usage(check(cmd, args))
	}
}

// initConfig layers flags over JOBGRID_* environment variables over the
// config file over defaults.
func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return usage(err)
	}

	v.SetDefault("summary", os.Getenv("GITHUB_STEP_SUMMARY"))
	v.SetDefault("github-annotations", os.Getenv("GITHUB_ACTIONS") == "true")

	v.SetEnvPrefix("JOBGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("%w: reading config file: %w", app.ErrConfig, err)
		}
		slog.Debug("Config file loaded.", "path", cfgFile)
		return nil
	}

	v.SetConfigName("jobgrid")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("%w: reading config file: %w", app.ErrConfig, err)
		}
	}
	return nil
}

// newApp validates the merged settings and builds the App.
func newApp(v *viper.Viper, args []string, outW io.Writer) (*app.App, error) {
	jobsPath := v.GetString("jobs")
	if len(args) > 0 {
		jobsPath = args[0]
	}
	if jobsPath == "" {
		return nil, usage(errors.New("no jobs path given: pass JOBS_PATH, --jobs or JOBGRID_JOBS"))
	}

	cfg, err := app.NewConfig(app.Config{
		JobsPath:          jobsPath,
		LogFormat:         strings.ToLower(v.GetString("log-format")),
		LogLevel:          strings.ToLower(v.GetString("log-level")),
		HealthcheckPort:   v.GetInt("healthcheck-port"),
		PollInterval:      v.GetDuration("poll-interval"),
		StrictGraph:       v.GetBool("strict-graph"),
		KillOnAbort:       v.GetBool("kill-on-abort"),
		Shell:             v.GetString("shell"),
		ReportPath:        v.GetString("report"),
		ReportFormat:      strings.ToLower(v.GetString("report-format")),
		SummaryPath:       v.GetString("summary"),
		GitHubAnnotations: v.GetBool("github-annotations"),
		EventsURL:         v.GetString("events-url"),
		EventsInsecure:    v.GetBool("events-insecure"),
		Artifacts: artifacts.Config{
			Endpoint:  v.GetString("artifacts-endpoint"),
			AccessKey: v.GetString("artifacts-access-key"),
			SecretKey: v.GetString("artifacts-secret-key"),
			Region:    v.GetString("artifacts-region"),
			Bucket:    v.GetString("artifacts-bucket"),
			Prefix:    v.GetString("artifacts-prefix"),
			UseSSL:    v.GetBool("artifacts-ssl"),
		},
		HistoryDSN: v.GetString("history-dsn"),
	})
	if err != nil {
		return nil, usage(err)
	}
	slog.Debug("CLI configuration resolved.", "jobs", cfg.JobsPath)

	loader := config.Combine(hcl_adapter.NewLoader(), yaml_adapter.NewLoader())
	return app.NewApp(outW, cfg, loader), nil
}
