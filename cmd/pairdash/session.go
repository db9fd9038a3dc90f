package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/newthinker/pairdash/internal/app"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Log in to the trading terminal",
	RunE:  runConnect,
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "End the terminal session",
	RunE:  runDisconnect,
}

var reconnectCmd = &cobra.Command{
	Use:   "reconnect",
	Short: "Log in again with the saved credentials",
	RunE:  runReconnect,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the connection status and account",
	RunE:  runStatus,
}

var loginCreds core.Credentials

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(reconnectCmd)
	rootCmd.AddCommand(statusCmd)

	connectCmd.Flags().StringVarP(&loginCreds.Username, "username", "u", "", "account login")
	connectCmd.Flags().StringVarP(&loginCreds.Password, "password", "p", "", "account password")
	connectCmd.Flags().StringVarP(&loginCreds.Server, "server", "s", "", "broker server name")
	connectCmd.Flags().StringVarP(&loginCreds.Terminal, "terminal", "t", "", "terminal path or address")
}

func runConnect(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		if _, err := a.Session.Connect(ctx, loginCreds); err != nil {
			return err
		}
		log.Info("connected", zap.String("username", loginCreds.Username))
		printState(cmd.OutOrStdout(), a.Session.State())
		return nil
	})
}

func runDisconnect(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		if err := a.Session.Disconnect(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Disconnected.")
		return nil
	})
}

func runReconnect(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		if _, err := a.Session.Reconnect(ctx); err != nil {
			return err
		}
		printState(cmd.OutOrStdout(), a.Session.State())
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		printState(cmd.OutOrStdout(), a.Session.State())
		return nil
	})
}

func printState(out io.Writer, st session.State) {
	fmt.Fprintf(out, "Status: %s\n", st.Status)
	if st.Account == nil {
		return
	}

	acct := st.Account
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Login:\t%d\n", acct.Login)
	fmt.Fprintf(w, "Name:\t%s\n", acct.Name)
	fmt.Fprintf(w, "Server:\t%s\n", acct.Server)
	fmt.Fprintf(w, "Balance:\t%.2f\n", acct.Balance)
	fmt.Fprintf(w, "Equity:\t%.2f\n", acct.Equity)
	fmt.Fprintf(w, "Margin:\t%.2f\n", acct.Margin)
	fmt.Fprintf(w, "Free Margin:\t%.2f\n", acct.FreeMargin)
	fmt.Fprintf(w, "Leverage:\t1:%d\n", acct.Leverage)
	w.Flush()
}
