package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kr8tiv/claw/pkg/claw/health"
	"github.com/kr8tiv/claw/pkg/claw/secrets"
	"github.com/kr8tiv/claw/pkg/claw/watchdog"
)

// WebhookSecretEnv names the optional heartbeat signing secret.
const WebhookSecretEnv = "WATCHDOG_WEBHOOK_SECRET"

// newHealthCmd creates `claw health`, the container health probe.
func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the gateway token and runtime config (container health probe)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, _ := cmd.Flags().GetString("token")
			configPath, _ := cmd.Flags().GetString("config")
			strict, _ := cmd.Flags().GetBool("strict")

			if err := health.Check(health.Options{Token: token, ConfigPath: configPath, Strict: strict}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "health:ok")
			return nil
		},
	}
	cmd.Flags().String("token", "", "gateway token (default $"+health.TokenEnv+")")
	cmd.Flags().String("config", "", "openclaw.json that must exist and parse")
	cmd.Flags().Bool("strict", false, "also validate the config against the runtime schema")
	return cmd
}

// newWatchdogCmd creates `claw watchdog`, the heartbeat loop.
func newWatchdogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchdog",
		Short: "Post periodic liveness heartbeats to the owner and management webhooks",
		Long: `Post {tenant, status:"alive", timestamp, heartbeatId} to each configured
webhook once at startup and then every --interval-seconds. Delivery is
best-effort; failures are logged and the loop keeps going until SIGINT or
SIGTERM.

Set ` + WebhookSecretEnv + ` (environment or OS keyring) to sign bodies with
HMAC-SHA256 in the X-Webhook-Signature header.`,
		RunE: runWatchdog,
	}
	cmd.Flags().String("tenant", "", "tenant id reported in every heartbeat")
	cmd.Flags().String("owner-webhook", "", "owner webhook URL (default $OWNER_WEBHOOK_URL)")
	cmd.Flags().String("management-webhook", "", "management webhook URL (default $MANAGEMENT_WEBHOOK_URL)")
	cmd.Flags().Int("interval-seconds", watchdog.DefaultIntervalSeconds, "heartbeat interval; non-positive means 60")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func runWatchdog(cmd *cobra.Command, _ []string) error {
	tenantID, _ := cmd.Flags().GetString("tenant")
	owner, _ := cmd.Flags().GetString("owner-webhook")
	mgmt, _ := cmd.Flags().GetString("management-webhook")
	interval, _ := cmd.Flags().GetInt("interval-seconds")

	if !cmd.Flags().Changed("owner-webhook") {
		owner = os.Getenv("OWNER_WEBHOOK_URL")
	}
	if !cmd.Flags().Changed("management-webhook") {
		mgmt = os.Getenv("MANAGEMENT_WEBHOOK_URL")
	}

	logger := newLogger(cmd)
	secret, _ := secrets.Resolve(WebhookSecretEnv, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, u := range []string{owner, mgmt} {
		if u == "" {
			continue
		}
		if err := watchdog.CheckWebhookURL(ctx, u); err != nil {
			return err
		}
	}

	return watchdog.New(watchdog.Options{
		Tenant:               tenantID,
		OwnerWebhookURL:      owner,
		ManagementWebhookURL: mgmt,
		IntervalSeconds:      interval,
		Secret:               secret,
		Logger:               logger,
	}).Run(ctx)
}
