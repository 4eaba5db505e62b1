package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/app"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("cellgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
cellgrid - Runs per-sample quantification and per-group aggregation jobs
for single-cell sequencing data under a concurrency cap.

Usage:
  cellgrid [options] [CONFIG_PATH...]

Arguments:
  CONFIG_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the run configuration file or directory.")
	cFlag := flagSet.String("c", "", "Path to the run configuration file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health and status server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	maxJobsFlag := flagSet.Int("max-jobs", 0, "Maximum number of concurrently running jobs. 0 keeps the configured value.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the job plan and simulate the run without executing anything.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	paths := collectPaths(flagSet, *configFlag, *cFlag)
	slog.Debug("Configuration paths determined.", "paths", paths)
	if len(paths) == 0 {
		slog.Debug("No configuration path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat, logLevel, exitErr := validateLogging(*logFormatFlag, *logLevelFlag)
	if exitErr != nil {
		return nil, false, exitErr
	}

	config, err := app.NewConfig(app.Config{
		ConfigPaths:     paths,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		MaxJobs:         *maxJobsFlag,
		DryRun:          *dryRunFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// collectPaths returns the flag paths followed by positional arguments.
func collectPaths(flagSet *flag.FlagSet, flagPaths ...string) []string {
	var paths []string
	for _, p := range flagPaths {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return append(paths, flagSet.Args()...)
}

func validateLogging(format, level string) (string, string, *ExitError) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return "", "", &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	level = strings.ToLower(level)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return "", "", &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return format, level, nil
}
