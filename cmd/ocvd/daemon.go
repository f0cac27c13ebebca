package main

import (
	"github.com/spf13/cobra"

	"github.com/battkit/ocvd/pkg/config"
	"github.com/battkit/ocvd/pkg/daemon"
)

// NewDaemonCommand runs the ocvd HTTP daemon in the foreground.
func NewDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "daemon",
		Short:   "Run the ocvd daemon",
		GroupID: gManagement,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return daemon.Run(cfg)
		},
	}
}
