package cmd

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/apptracker/dryrun"
	"github.com/playvault/marketplace-backend/internal/apptracker/sentry"
	"github.com/playvault/marketplace-backend/internal/serve"
)

type serveCmd struct{}

func (c *serveCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the marketplace backend HTTP server",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			bindFlags(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := serveConfigFromViper()
			if err != nil {
				logrus.Fatalf("Error building serve config: %s", err.Error())
			}
			if err := serve.Serve(cfg); err != nil {
				logrus.Fatalf("Error running serve: %s", err.Error())
			}
		},
	}

	cmd.Flags().Int("port", 8000, "Port to listen on")
	cmd.Flags().String("database-url", "postgres://postgres@localhost:5432/marketplace?sslmode=disable", "Database connection URL")
	cmd.Flags().String("log-level", "info", "Log severity (debug, info, warn, error)")
	cmd.Flags().String("jwt-signing-key", "", "HS256 signing key for bearer tokens")
	cmd.Flags().StringSlice("admin-user-ids", nil, "User ids allowed to approve or reject listings")
	cmd.Flags().Int("max-query-complexity", 0, "Listing query complexity ceiling (0 uses the default)")
	cmd.Flags().Int("max-query-depth", 0, "Listing query depth ceiling (0 uses the default)")
	cmd.Flags().Duration("sweep-interval", time.Hour, "How often the expiration sweeper runs")
	cmd.Flags().Duration("staleness-after", 30*time.Minute, "Age after which a pending transaction is expired")
	cmd.Flags().String("notification-webhook-url", "", "Webhook endpoint for notification delivery (optional)")
	cmd.Flags().String("sentry-dsn", "", "Sentry DSN for error tracking (optional)")
	cmd.Flags().String("environment", "development", "Deployment environment reported to error tracking")

	return cmd
}

func serveConfigFromViper() (serve.Configs, error) {
	logLevel, err := logrus.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return serve.Configs{}, err
	}
	logrus.SetLevel(logLevel)

	var appTracker apptracker.AppTracker = &dryrun.DryRunTracker{}
	if dsn := viper.GetString("sentry-dsn"); dsn != "" {
		appTracker, err = sentry.NewSentryTracker(dsn, viper.GetString("environment"), 5)
		if err != nil {
			return serve.Configs{}, err
		}
	}

	return serve.Configs{
		Port:                   viper.GetInt("port"),
		DatabaseURL:            viper.GetString("database-url"),
		LogLevel:               logLevel,
		JWTSigningKey:          viper.GetString("jwt-signing-key"),
		AdminUserIDs:           viper.GetStringSlice("admin-user-ids"),
		MaxQueryComplexity:     viper.GetInt("max-query-complexity"),
		MaxQueryDepth:          viper.GetInt("max-query-depth"),
		SweepInterval:          viper.GetDuration("sweep-interval"),
		StalenessAfter:         viper.GetDuration("staleness-after"),
		NotificationWebhookURL: viper.GetString("notification-webhook-url"),
		AppTracker:             appTracker,
	}, nil
}
