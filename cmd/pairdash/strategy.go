package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/newthinker/pairdash/internal/app"
	"github.com/newthinker/pairdash/internal/strategy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "Manage pair trading strategies",
}

var strategyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved strategies",
	RunE:  runStrategyList,
}

var strategyAddDefaultCmd = &cobra.Command{
	Use:   "add-default [name]",
	Short: "Save a strategy with the default parameters",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStrategyAddDefault,
}

var strategyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  runStrategyDelete,
}

var (
	addPair1 string
	addPair2 string
)

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyListCmd)
	strategyCmd.AddCommand(strategyAddDefaultCmd)
	strategyCmd.AddCommand(strategyDeleteCmd)

	strategyAddDefaultCmd.Flags().StringVar(&addPair1, "pair1", "", "override the first currency pair")
	strategyAddDefaultCmd.Flags().StringVar(&addPair2, "pair2", "", "override the second currency pair")
}

func runStrategyList(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		all, err := a.Strategies.List(ctx)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No strategies saved.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPAIRS\tTF\tRSI\tENTRY\tEXIT\t")
		fmt.Fprintln(w, "--\t----\t-----\t--\t---\t-----\t----\t")
		for _, st := range all {
			p := st.Parameters
			fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s\t%d\t%.2f\t%.2f\t\n",
				st.ID, st.Name, p.CurrencyPair1, p.CurrencyPair2, p.Timeframe, p.RSIPeriod, p.EntryThreshold, p.ExitThreshold)
		}
		return w.Flush()
	})
}

func runStrategyAddDefault(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		st := strategy.Strategy{Parameters: strategy.DefaultParameters()}
		if len(args) == 1 {
			st.Name = args[0]
		}
		if addPair1 != "" {
			st.Parameters.CurrencyPair1 = addPair1
		}
		if addPair2 != "" {
			st.Parameters.CurrencyPair2 = addPair2
		}

		saved, err := a.Strategies.Save(ctx, st)
		if err != nil {
			return err
		}
		log.Info("strategy saved", zap.String("id", saved.ID))
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", saved.Name, saved.ID)
		return nil
	})
}

func runStrategyDelete(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		if err := a.Strategies.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	})
}
