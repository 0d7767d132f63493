package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/dnakit/cmd/dnactl/logger"
)

var (
	// Global flags
	verbose     bool
	quiet       bool
	jsonOut     bool
	noColor     bool
	debugLog    bool
	logDir      string
	renamesPath string
)

var rootCmd = &cobra.Command{
	Use:   "dnactl",
	Short: "Inspect and convert files that carry their own struct layouts",
	Long: `dnactl reads stored files whose DNA1 block describes the struct layouts
of the build that wrote them. It lists layouts and blocks, compares the layouts
of two files, and rewrites a file into the layout of another.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Init(logger.Options{
			Enabled: debugLog,
			LogDir:  logDir,
			Level:   slog.LevelDebug,
			Command: cmd.Name(),
		})
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Write a debug log file")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for debug logs (default ~/.dnactl/logs)")
	rootCmd.PersistentFlags().
		StringVar(&renamesPath, "renames", "", "File of struct and member renames applied to stored layouts")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
