package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/SyncSphere7/smartwin-official/internal/app"
	"github.com/SyncSphere7/smartwin-official/internal/config"
	"github.com/SyncSphere7/smartwin-official/internal/db"
	"github.com/SyncSphere7/smartwin-official/internal/gateway"
	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/payment"
)

var Version = "dev"

func main() {
	logger.Init()

	rootCmd := &cobra.Command{
		Use:           "smartwinctl",
		Short:         "Operator tools for the Smart-Win access service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(registerIPNCmd())
	rootCmd.AddCommand(reconcileCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			database, err := db.Connect(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func registerIPNCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register-ipn",
		Short: "Register the webhook URL with Pesapal and print the notification id",
		Long: `Registers the payment webhook with Pesapal. Put the printed id in
PESAPAL_IPN_ID so the API stops registering it lazily.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				url = cfg.WebhookURL()
			}

			ctx := cmd.Context()
			client := gateway.NewPesapalClient(cfg.PesapalAPIURL, cfg.PesapalConsumerKey, cfg.PesapalConsumerSecret, cfg.GatewayTimeout)
			token, err := client.GetToken(ctx)
			if err != nil {
				return fmt.Errorf("request token: %w", err)
			}
			id, err := client.RegisterCallback(ctx, token, url)
			if err != nil {
				return fmt.Errorf("register ipn: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "PESAPAL_IPN_ID=%s\n", id)
			return nil
		},
	}

	cmd.Flags().String("url", "", "Webhook URL (default APP_URL/api/payment-webhook)")
	return cmd
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile [trackingId]",
		Short: "Ask Pesapal for an order's status and apply it to the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			database, err := db.Connect(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			a, err := app.New(cfg, database, rdb, gateway.NewMemoryCache())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Payments.Reconcile(cmd.Context(), args[0], payment.SourceCLI)
			if err != nil {
				return fmt.Errorf("reconcile %s: %w", args[0], err)
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payment %d (user %d): %s\n", res.Payment.ID, res.Payment.UserID, res.Status)
			return nil
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
	return cmd
}
