package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/brandonbloom/cliharness/internal/config"
	"github.com/brandonbloom/cliharness/internal/logging"
	"github.com/brandonbloom/cliharness/internal/version"
)

const defaultConfigFile = "cliharness.toml"

// ExitError carries the exit status the process should end with. Execute
// returns it after any user-facing output has already been written.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// Execute runs the driver and returns the process exit status.
func Execute() int {
	return execute(newRootCommand())
}

func execute(cmd *cobra.Command) int {
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "cliharness:", err)
	return 1
}

type globalOptions struct {
	configPath string
	debug      bool
	logFile    string
}

// load reads the config file (if any), layers environment overrides, and
// initializes logging.
func (o *globalOptions) load() (config.Config, *slog.Logger, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("CLIHARNESS_CONFIG")
	}
	if path == "" {
		path = defaultConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}
	if _, err := logging.Initialize(o.debug, o.logFile); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logging.Logger, nil
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "cliharness",
		Short:         "Run commands inside a freshly reset scratch workspace",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ./"+defaultConfigFile+")")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "write debug logs")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "debug log destination")

	cmd.AddCommand(
		newRunCommand(opts),
		newResetCommand(opts),
		newVersionCommand(),
	)

	return cmd
}
