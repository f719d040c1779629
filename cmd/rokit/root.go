package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rojo-rbx/rokit/internal/progress"
)

const outputJSON = "json"

// logLevelFlag implements pflag.Value for slog.Level, following the
// same --log-level convention as --verbose: the latter is sugar for
// "debug".
type logLevelFlag struct {
	level slog.Level
}

func (f *logLevelFlag) String() string { return strings.ToLower(f.level.String()) }
func (f *logLevelFlag) Type() string   { return "string" }
func (f *logLevelFlag) Set(s string) error {
	switch strings.ToLower(s) {
	case "debug":
		f.level = slog.LevelDebug
	case "info":
		f.level = slog.LevelInfo
	case "warn":
		f.level = slog.LevelWarn
	case "error":
		f.level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
	return nil
}

var (
	verboseFlag    bool
	globalLogLevel = &logLevelFlag{level: slog.LevelWarn}
)

func newLogger() progress.Logger {
	level := globalLogLevel.level
	if verboseFlag {
		level = slog.LevelDebug
	}
	return progress.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// colorableStderr is the writer progress bars and colored output draw
// to; a plain os.Stderr suffices since fatih/color and mpb both probe
// the file descriptor themselves.
func colorableStderr() io.Writer { return os.Stderr }

var rootCmd = &cobra.Command{
	Use:   "rokit",
	Short: "A per-project toolchain manager for GitHub-released CLIs",
	Long: `Rokit installs and manages the command-line tools a project
depends on, pinned per-project in rokit.toml and resolved from GitHub
releases. Invoking a managed tool by name (rojo, selene, ...) transparently
installs it on first use and dispatches straight to its binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		level := globalLogLevel.level
		if verboseFlag {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug-level logging")
	rootCmd.PersistentFlags().Var(globalLogLevel, "log-level", "Log level (debug, info, warn, error)")
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		initCmd,
		addCmd,
		listCmd,
		installCmd,
		updateCmd,
		authenticateCmd,
		selfInstallCmd,
		selfUpdateCmd,
		systemInfoCmd,
		versionCmd,
	)
}
