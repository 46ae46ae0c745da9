package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and status
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xraymcp",
		Short: "Whitelist-enforcing gateway for Jira JQL and Xray GraphQL",
		Long: `xraymcp sits between AI agents and your Jira/Xray Cloud site. Every JQL
query and GraphQL document is validated against a strict whitelist before it
is forwarded upstream: unknown fields, unknown operations, introspection, and
injection patterns are all rejected at the gateway.

Queries reach the gateway over two surfaces: a REST API for programmatic
clients, and an MCP server for AI agents like Claude. Both share the same
validation pipeline, audit log, and connection registry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./xraymcp.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for SQLite config (default: ~/.xraymcp)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newConnectionCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newAdminCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("xraymcp")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.xraymcp")
	}

	viper.SetEnvPrefix("XRAYMCP")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
