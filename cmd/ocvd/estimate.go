package main

import (
	"encoding/json"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/battkit/ocvd/pkg/api"
)

// NewEstimateCommand fits degradation parameters to a measured OCV series.
func NewEstimateCommand() *cobra.Command {
	var (
		measuredPath  string
		parquetPath   string
		numStarts     int
		seed          int64
		seedSet       bool
		numPoints     int
		gradientLimit float64
		maxIter       int
		jsonOut       bool
	)

	cmd := &cobra.Command{
		Use:     "estimate <pristine-id>",
		Short:   "Estimate degradation parameters from a measured OCV series",
		Long: `Estimate degradation parameters from a measured OCV series.

The measured series comes either from a local JSON file given with
--measured (an object with "capacity" and "ocv" arrays, sent inline) or
from --parquet, a path relative to the daemon's data root that the daemon
reads itself.`,
		GroupID: gDiagnostics,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := api.EstimateRequest{
				PristineID:    args[0],
				NumStarts:     numStarts,
				NumPoints:     numPoints,
				GradientLimit: gradientLimit,
				MaxIter:       maxIter,
			}
			if seedSet {
				req.Seed = &seed
			}

			switch {
			case measuredPath != "" && parquetPath != "":
				return errors.New("--measured and --parquet are mutually exclusive")
			case measuredPath != "":
				b, err := os.ReadFile(measuredPath)
				if err != nil {
					return errors.Wrapf(err, "reading measured series %q", measuredPath)
				}
				var m api.MeasuredPayload
				if err := json.Unmarshal(b, &m); err != nil {
					return errors.Wrapf(err, "parsing measured series %q", measuredPath)
				}
				req.Measured = &m
			case parquetPath != "":
				req.ExternalPath = parquetPath
			default:
				return errors.New("one of --measured or --parquet is required")
			}

			resp, err := apiClient.Estimate(req)
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

			printEstimate(cmd, resp)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&measuredPath, "measured", "", "local JSON file with capacity and ocv arrays")
	flags.StringVar(&parquetPath, "parquet", "", "parquet file path relative to the daemon data root")
	flags.IntVar(&numStarts, "num-starts", 0, "multistart count (0 uses the daemon default)")
	flags.Int64Var(&seed, "seed", 0, "random seed for start sampling")
	flags.IntVar(&numPoints, "num-points", 0, "forward-model grid size (0 uses the daemon default)")
	flags.Float64Var(&gradientLimit, "gradient-limit", 0, "flat-region gradient threshold (0 uses the daemon default)")
	flags.IntVar(&maxIter, "maxiter", 0, "per-start optimizer iteration cap (0 uses the daemon default)")
	flags.BoolVar(&jsonOut, "json", false, "print the full response as JSON")

	cmd.PreRun = func(c *cobra.Command, _ []string) {
		seedSet = c.Flags().Changed("seed")
	}

	return cmd
}

func printEstimate(cmd *cobra.Command, resp api.EstimateResponse) {
	if !resp.Valid {
		color.Yellow("estimation failed: %s", resp.Reason)
		return
	}

	bold := color.New(color.Bold)
	bold.Println("estimated degradation:")
	cmd.Printf("  LLI    = %.6f\n", resp.Theta.LLI)
	cmd.Printf("  LAM_PE = %.6f\n", resp.Theta.LAMPE)
	cmd.Printf("  LAM_NE = %.6f\n", resp.Theta.LAMNE)
	if resp.RmseV != nil {
		cmd.Printf("  rmse   = %.3g V\n", *resp.RmseV)
	}
	if resp.Debug != nil {
		cmd.Printf("starts: %d/%d succeeded, %d flat points used\n",
			resp.Debug.StartsSucceeded, resp.Debug.StartsTried, resp.Debug.NumFlat)
	}
}
