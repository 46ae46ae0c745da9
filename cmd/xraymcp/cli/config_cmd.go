package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gateway configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default xraymcp.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")

	return cmd
}

const defaultConfig = `# xraymcp configuration

server:
  host: 0.0.0.0
  port: 8080
  shutdown_timeout: 30s
  rate_per_minute: 120
  cors_origins:
    - "*"

# Jira/Xray site connections. Connections declared here are merged into the
# SQLite store at startup; they can also be managed with 'xraymcp connection'.
connections: []
  # - name: prod
  #   jira_url: https://acme.atlassian.net
  #   xray_url: https://xray.cloud.getxray.app
  #   email: bot@acme.com
  #   api_token: ""      # set via env or 'xraymcp connection add'
  #   client_id: ""
  #   client_secret: ""
  #   read_only: false

# Authentication
auth:
  jwt_secret: ""  # Set via XRAYMCP_AUTH_JWT_SECRET env var
  api_key_header: X-API-Key

# Forwarded-result cache
cache:
  enabled: true
  ttl: 5m

# Logging
logging:
  level: info    # debug, info, warn, error
  format: text   # text or json
`

func runConfigInit(force bool) error {
	path := "xraymcp.yaml"

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Created %s\n", path)
	fmt.Println("Edit the file to add your Jira/Xray connections, then run 'xraymcp serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	return cmd
}

func runConfigShow() error {
	settings := viper.AllSettings()
	if len(settings) == 0 {
		fmt.Println("No configuration loaded (using built-in defaults).")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if file := viper.ConfigFileUsed(); file != "" {
		fmt.Printf("# from %s\n", file)
	}
	os.Stdout.Write(out)
	return nil
}
