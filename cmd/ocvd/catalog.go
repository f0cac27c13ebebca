package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewCatalogCommand lists the pristine profiles the daemon knows about.
func NewCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "catalog",
		Short:   "List available pristine cell profiles",
		GroupID: gDiagnostics,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := apiClient.Catalog()
			if err != nil {
				return err
			}

			if len(resp.Profiles) == 0 {
				cmd.Println("no pristine profiles available")
				return nil
			}

			bold := color.New(color.Bold)
			for _, p := range resp.Profiles {
				bold.Print(p.ID)
				if p.Name != "" {
					cmd.Printf("  (%s)", p.Name)
				}
				cmd.Println()
				cmd.Printf("  pe: %s  ne: %s\n", p.Files.PositiveTable, p.Files.NegativeTable)
				cmd.Printf("  endpoints: pe [%.4g, %.4g]  ne [%.4g, %.4g]\n",
					p.Endpoints.SolPeEoc, p.Endpoints.SolPeEod,
					p.Endpoints.SolNeEoc, p.Endpoints.SolNeEod)
				if p.Notes != "" {
					cmd.Printf("  notes: %s\n", p.Notes)
				}
			}
			return nil
		},
	}
}
