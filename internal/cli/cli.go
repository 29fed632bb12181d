package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/syncgraph/internal/app"
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
	flagSet := flag.NewFlagSet("syncgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
syncgraph - Inspect, edit and track data-synchronization pipelines.

Usage:
  syncgraph [options] [DEFINITION_PATH]

Arguments:
  DEFINITION_PATH
    Path to a single .hcl or .json definition file, or a directory of them.

Options:
`)
		flagSet.PrintDefaults()
	}

	defsFlag := flagSet.String("definitions", "", "Path to the definition file or directory.")
	dFlag := flagSet.String("d", "", "Path to the definition file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and progress server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	sessionDBFlag := flagSet.String("session-db", "", "SQLite file for session state. Empty keeps state in memory.")
	sessionIDFlag := flagSet.String("session-id", "", "Session to resume in the session-db file. Its state survives restarts.")
	feedURLFlag := flagSet.String("feed-url", "", "socket.io endpoint delivering progress and lifecycle events.")
	feedNamespaceFlag := flagSet.String("feed-namespace", "/", "socket.io namespace of the feed.")
	feedInsecureFlag := flagSet.Bool("feed-insecure", false, "Skip TLS certificate verification for the feed.")
	visualFlag := flagSet.Bool("visual", false, "Print definitions as positional graphs (JSON) instead of a summary.")
	insertEdgeFlag := flagSet.String("insert-edge", "", "Id of the edge to splice a transformer into.")
	insertNameFlag := flagSet.String("insert-name", "", "Name of the transformer to insert.")
	insertShortNameFlag := flagSet.String("insert-short-name", "", "Implementation short name of the transformer to insert.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *defsFlag != "" {
		path = *defsFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Definition path determined.", "path", path)

	if path == "" {
		slog.Debug("No definition path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		DefinitionPath:         path,
		HealthcheckPort:        *healthPortFlag,
		LogFormat:              logFormat,
		LogLevel:               logLevel,
		SessionDBPath:          *sessionDBFlag,
		SessionID:              *sessionIDFlag,
		FeedURL:                *feedURLFlag,
		FeedNamespace:          *feedNamespaceFlag,
		FeedInsecureSkipVerify: *feedInsecureFlag,
		Visual:                 *visualFlag,
		InsertEdge:             *insertEdgeFlag,
		InsertName:             *insertNameFlag,
		InsertShortName:        *insertShortNameFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
