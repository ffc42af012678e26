// Command secure-edge synthesizes, checks and deploys an IP-allowlisted,
// API-key protected REST endpoint backed by a single Lambda function.
//
// Usage:
//
//	secure-edge build                 Emit the CloudFormation template
//	secure-edge validate              Audit and lint the template
//	secure-edge deploy --env CODE     Create or update the stack
//	secure-edge version               Show version
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mkuzdowicz/secure-edge-rest/internal/config"
)

// Global flags shared by every command.
var (
	configPath string
	verbose    bool
)

// exitCodeError makes main exit with a specific status.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }
func (e *exitCodeError) Unwrap() error { return e.err }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var exitErr *exitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "secure-edge",
		Short: "Synthesize and deploy a secured REST edge for a Lambda function",
		Long: `secure-edge declares a single CloudFormation stack: an IAM execution role,
a Lambda function and an API Gateway REST API that only accepts calls from
whitelisted IP ranges carrying a valid API key.

Settings come from secure-edge.yaml (or --config), overridden by
SECURE_EDGE_* environment variables:

    SECURE_EDGE_PARAMETERS_ENV=CODE secure-edge deploy`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetOutput(os.Stderr)
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newBuildCmd(),
		newListCmd(),
		newGraphCmd(),
		newValidateCmd(),
		newResolveCmd(),
		newDiffCmd(),
		newDeployCmd(),
		newDestroyCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// loadConfig reads the configuration selected by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logrus.WithField("app", cfg.AppName).Debug("configuration loaded")
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "secure-edge %s\n", getVersion())
		},
	}
}
