package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/battkit/ocvd/pkg/client"
	"github.com/battkit/ocvd/pkg/version"
)

var (
	logLevel   = "info"
	daemonAddr = "127.0.0.1:8900"
	configPath = "ocvd.yaml"

	apiClient *client.Client
)

var (
	gDiagnostics = "Diagnostics:"
	gManagement  = "Management:"
	commandGroups = []string{
		gDiagnostics,
		gManagement,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.Kitchen,
	})

	return nil
}

func handleCmdError(err error) {
	if err == nil {
		return
	}
	if isDaemonNotRunning(err) {
		fmt.Fprintln(os.Stderr, "\nError: ocvd daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'ocvd daemon', or point --addr at a running instance")
	}
}

func isDaemonNotRunning(err error) bool {
	for ; err != nil; err = unwrap(err) {
		if err == client.ErrDaemonNotRunning {
			return true
		}
	}
	return false
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

// NewCommand builds the root ocvd command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ocvd",
		Short:        "ocvd models and diagnoses lithium-ion cell degradation from OCV curves",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if err := setupLogger(); err != nil {
				return err
			}
			apiClient = client.NewClient(daemonAddr)
			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "daemon config file path")
	globalFlags.StringVar(&daemonAddr, "addr", daemonAddr, "ocvd daemon address")

	for _, g := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    g,
			Title: g,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewCatalogCommand(),
		NewCurvesCommand(),
		NewEstimateCommand(),
		NewPoolCommand(),
	)

	return cmd
}

// NewVersionCommand prints client and (when reachable) daemon versions.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
			if v, err := apiClient.Version(); err == nil {
				cmd.Printf("daemon: %s %s\n", v.Version, v.GitCommit)
			}
		},
	}
}
