package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/assetgrid/internal/app"
)

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags and task names may be interleaved.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("assetgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
assetgrid - A declarative front-end asset build runner.

Usage:
  assetgrid [options] [TASK...]

Arguments:
  TASK
    A task ("sass"), one of its targets ("sass:dev") or an alias ("build").
    Tasks run in the order given. Without any, "default" runs.

Options:
`)
		flagSet.PrintDefaults()
	}

	gridFlag := flagSet.String("gridfile", "Gridfile.hcl", "Path to the Gridfile or a directory of .hcl files.")
	fFlag := flagSet.String("f", "", "Path to the Gridfile (shorthand).")
	baseFlag := flagSet.String("base", "", "Project base directory. Defaults to the Gridfile's directory.")
	forceFlag := flagSet.Bool("force", false, "Continue running tasks after a task fails.")
	noColorFlag := flagSet.Bool("no-color", false, "Disable colored output.")
	listFlag := flagSet.Bool("list", false, "List available tasks and aliases, then exit.")
	workersFlag := flagSet.Int("workers", 4, "Number of files processed concurrently by tasks that support it.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	var tasks []string
	rest := args
	for {
		if err := flagSet.Parse(rest); err != nil {
			if err == flag.ErrHelp {
				return nil, true, nil
			}
			return nil, false, &ExitError{Code: CodeUsage, Message: err.Error()}
		}
		remaining := flagSet.Args()
		if len(remaining) == 0 {
			break
		}
		// Everything after a "--" is a task name.
		if consumed := len(rest) - len(remaining); consumed > 0 && rest[consumed-1] == "--" {
			tasks = append(tasks, remaining...)
			break
		}
		tasks = append(tasks, remaining[0])
		rest = remaining[1:]
	}
	slog.Debug("Arguments parsed successfully.", "tasks", tasks)

	path := *gridFlag
	if *fFlag != "" {
		path = *fFlag
	}

	for _, name := range tasks {
		if name == "" || strings.HasPrefix(name, "-") {
			return nil, false, &ExitError{Code: CodeUsage, Message: fmt.Sprintf("invalid task name %q", name)}
		}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: CodeUsage, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: CodeUsage, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GridPath:        path,
		BaseDir:         *baseFlag,
		Tasks:           tasks,
		Force:           *forceFlag,
		NoColor:         *noColorFlag,
		List:            *listFlag,
		HealthcheckPort: *healthPortFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		Workers:         *workersFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: CodeUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
