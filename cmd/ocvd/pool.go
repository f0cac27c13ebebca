package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/battkit/ocvd/pkg/api"
)

// NewPoolCommand groups the degradation-pool subcommands.
func NewPoolCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pool",
		Short:   "Manage saved degradation results",
		GroupID: gManagement,
	}
	cmd.AddCommand(
		newPoolSaveCommand(),
		newPoolListCommand(),
		newPoolLoadCommand(),
	)
	return cmd
}

func newPoolSaveCommand() *cobra.Command {
	var (
		lli   float64
		lamPE float64
		lamNE float64
		label string
	)

	cmd := &cobra.Command{
		Use:   "save <pristine-id>",
		Short: "Save a degradation result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := apiClient.PoolSave(api.PoolSaveRequest{
				PristineID: args[0],
				LLI:        lli,
				LAMPE:      lamPE,
				LAMNE:      lamNE,
				Label:      label,
			})
			if err != nil {
				return err
			}
			cmd.Println(resp.ID)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&lli, "lli", 0, "loss of lithium inventory")
	flags.Float64Var(&lamPE, "lam-pe", 0, "loss of positive electrode active material")
	flags.Float64Var(&lamNE, "lam-ne", 0, "loss of negative electrode active material")
	flags.StringVar(&label, "label", "", "free-form label for the record")

	return cmd
}

func newPoolListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved degradation results, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := apiClient.PoolList()
			if err != nil {
				return err
			}
			if len(resp.Items) == 0 {
				cmd.Println("pool is empty")
				return nil
			}

			bold := color.New(color.Bold)
			for _, it := range resp.Items {
				bold.Print(it.ID)
				cmd.Printf("  %s  %s", it.CreatedAt, it.PristineID)
				if it.Label != "" {
					cmd.Printf("  (%s)", it.Label)
				}
				cmd.Println()
				cmd.Printf("  LLI=%.4g LAM_PE=%.4g LAM_NE=%.4g\n", it.LLI, it.LAMPE, it.LAMNE)
			}
			return nil
		},
	}
}

func newPoolLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load <id>",
		Short: "Print one saved degradation record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := apiClient.PoolLoad(args[0])
			if err != nil {
				return err
			}
			cmd.Println(string(raw))
			return nil
		},
	}
}
