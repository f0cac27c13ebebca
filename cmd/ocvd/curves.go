package main

import (
	"encoding/json"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/battkit/ocvd/pkg/api"
)

// NewCurvesCommand runs the forward degradation model against the daemon.
func NewCurvesCommand() *cobra.Command {
	var (
		lli       float64
		lamPE     float64
		lamNE     float64
		numPoints int
		noPad     bool
		jsonOut   bool
		pngPath   string
	)

	cmd := &cobra.Command{
		Use:     "curves <pristine-id>",
		Short:   "Compute pristine and degraded OCV curves",
		GroupID: gDiagnostics,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.CurvesRequest{
				PristineID: args[0],
				LLI:        lli,
				LAMPE:      lamPE,
				LAMNE:      lamNE,
				NumPoints:  numPoints,
			}
			if noPad {
				pad := false
				req.IncludePlotDomainPadding = &pad
			}

			resp, err := apiClient.Curves(req)
			if err != nil {
				return err
			}

			if jsonOut {
				b, err := json.MarshalIndent(resp, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			printCurvesSummary(cmd, resp)

			if pngPath != "" {
				if err := renderCurvesPNG(resp, pngPath); err != nil {
					return err
				}
				cmd.Printf("plot written to %s\n", pngPath)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&lli, "lli", 0, "loss of lithium inventory, in [0, 1)")
	flags.Float64Var(&lamPE, "lam-pe", 0, "loss of positive electrode active material, in [0, 1)")
	flags.Float64Var(&lamNE, "lam-ne", 0, "loss of negative electrode active material, in [0, 1)")
	flags.IntVar(&numPoints, "num-points", 0, "grid size override (0 uses the profile default)")
	flags.BoolVar(&noPad, "no-pad", false, "disable the 2% plot-domain padding")
	flags.BoolVar(&jsonOut, "json", false, "print the full response as JSON")
	flags.StringVar(&pngPath, "png", "", "also render the curves to a PNG file")

	return cmd
}

func printCurvesSummary(cmd *cobra.Command, resp api.CurvesResponse) {
	bold := color.New(color.Bold)

	bold.Printf("%s", resp.PristineID)
	cmd.Printf("  LLI=%.4g LAM_PE=%.4g LAM_NE=%.4g\n",
		resp.Theta.LLI, resp.Theta.LAMPE, resp.Theta.LAMNE)

	if !resp.Degraded.Valid {
		color.Yellow("no valid degraded window for these parameters")
		return
	}

	r := resp.Degraded.Results
	cmd.Printf("cell capacity: %.6g\n", r.CellCapacity)
	cmd.Printf("window: x_cell [%.6g, %.6g]  offsets eoc=%.6g eod=%.6g\n",
		r.XCellEoc, r.XCellEod, r.DeltaXEoc, r.DeltaXEod)
	cmd.Printf("electrode windows: pe [%.6g, %.6g]  ne [%.6g, %.6g]\n",
		r.Endpoints.XPeEoc, r.Endpoints.XPeEod,
		r.Endpoints.XNeEoc, r.Endpoints.XNeEod)
}
