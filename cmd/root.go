package cmd

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "marketplace-backend",
	Short: "Marketplace Backend Server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			logrus.Fatalf("Error calling help command: %s", err.Error())
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("Error executing root command: %s", err.Error())
	}
}

func init() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	viper.SetEnvPrefix("MARKETPLACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand((&serveCmd{}).Command())
	rootCmd.AddCommand((&migrateCmd{}).Command())
}

// bindFlags registers every flag of the command with viper so each one
// can also be set through a MARKETPLACE_ prefixed environment variable.
func bindFlags(cmd *cobra.Command) {
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		logrus.Fatalf("Error binding persistent flags: %s", err.Error())
	}
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		logrus.Fatalf("Error binding flags: %s", err.Error())
	}
}
