package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/pairdash/internal/app"
	"github.com/newthinker/pairdash/internal/indicator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Show the latest indicator readings per strategy",
	RunE:  runIndicators,
}

var indicatorsStrategy string

func init() {
	rootCmd.AddCommand(indicatorsCmd)
	indicatorsCmd.Flags().StringVar(&indicatorsStrategy, "strategy", "", "only this strategy id")
}

func runIndicators(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		var bundles []indicator.StrategyIndicators
		if indicatorsStrategy != "" {
			si, err := a.Indicators.FetchByID(ctx, indicatorsStrategy)
			if err != nil {
				return err
			}
			bundles = append(bundles, *si)
		} else {
			all, err := a.Indicators.FetchAll(ctx)
			if err != nil {
				return err
			}
			bundles = all
		}

		if len(bundles) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No strategies saved.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STRATEGY\tCORR\tRSI1\tRSI2\tSIGNAL\tREASON\t")
		fmt.Fprintln(w, "--------\t----\t----\t----\t------\t------\t")
		for _, si := range bundles {
			sig := indicator.Evaluate(si)
			fmt.Fprintf(w, "%s\t%.2f\t%.1f\t%.1f\t%s\t%s\t\n",
				si.StrategyName, sig.Correlation, sig.RSI1, sig.RSI2, sig.Signal, sig.Reason)
		}
		return w.Flush()
	})
}
