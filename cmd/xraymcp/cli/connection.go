package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/client"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/model"
)

func newConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connection",
		Aliases: []string{"conn"},
		Short:   "Manage Jira/Xray connections",
		Long:    "Add, remove, test, and inspect the Jira/Xray site connections that queries are forwarded to.",
	}

	cmd.AddCommand(newConnectionAddCmd())
	cmd.AddCommand(newConnectionListCmd())
	cmd.AddCommand(newConnectionRemoveCmd())
	cmd.AddCommand(newConnectionTestCmd())

	return cmd
}

// ---------- connection add ----------

func newConnectionAddCmd() *cobra.Command {
	var (
		name     string
		label    string
		jiraURL  string
		xrayURL  string
		email    string
		clientID string
		readOnly bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a Jira/Xray connection",
		Long: `Add a new connection to a Jira Cloud site and its Xray test management
instance. The Jira API token and Xray client secret are prompted for with
hidden input; they are never accepted as flags to keep them out of shell
history.`,
		Example: `  xraymcp connection add --name prod --jira-url https://acme.atlassian.net \
      --xray-url https://xray.cloud.getxray.app --email bot@acme.com --client-id ABCD
  xraymcp connection add --name staging --jira-url https://acme-stg.atlassian.net \
      --email bot@acme.com --read-only`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnectionAdd(name, label, jiraURL, xrayURL, email, clientID, readOnly)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Connection name (unique identifier)")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable label (defaults to name)")
	cmd.Flags().StringVar(&jiraURL, "jira-url", "", "Jira Cloud base URL")
	cmd.Flags().StringVar(&xrayURL, "xray-url", "", "Xray Cloud base URL")
	cmd.Flags().StringVar(&email, "email", "", "Jira account email for basic auth")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Xray API client ID")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Refuse GraphQL mutations on this connection")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runConnectionAdd(name, label, jiraURL, xrayURL, email, clientID string, readOnly bool) error {
	if jiraURL == "" && xrayURL == "" {
		return fmt.Errorf("at least one of --jira-url and --xray-url is required")
	}
	if label == "" {
		label = name
	}

	var apiToken, clientSecret string
	if jiraURL != "" {
		token, err := promptSecret("Jira API token: ")
		if err != nil {
			return err
		}
		apiToken = token
	}
	if xrayURL != "" {
		secret, err := promptSecret("Xray client secret: ")
		if err != nil {
			return err
		}
		clientSecret = secret
	}

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	conn := &model.Connection{
		Name:         name,
		Label:        label,
		JiraURL:      jiraURL,
		XrayURL:      xrayURL,
		Email:        email,
		APIToken:     apiToken,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		ReadOnly:     readOnly,
		IsActive:     true,
	}

	if err := store.CreateConnection(context.Background(), conn); err != nil {
		return fmt.Errorf("create connection: %w", err)
	}

	fmt.Printf("Added connection %q (id=%d)\n", name, conn.ID)
	if readOnly {
		fmt.Println("  Connection is read-only: GraphQL mutations will be refused.")
	}
	return nil
}

// promptSecret reads a line from the terminal with echo disabled.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(secret), nil
}

// ---------- connection list ----------

func newConnectionListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all registered connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnectionList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runConnectionList(jsonOutput bool) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	conns, err := store.ListConnections(context.Background())
	if err != nil {
		return fmt.Errorf("list connections: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conns)
	}

	if len(conns) == 0 {
		fmt.Println("No connections configured. Use 'xraymcp connection add' to add one.")
		return nil
	}

	fmt.Printf("%-16s %-36s %-10s %-8s\n", "NAME", "JIRA URL", "READ-ONLY", "ACTIVE")
	fmt.Printf("%-16s %-36s %-10s %-8s\n", "----", "--------", "---------", "------")
	for _, c := range conns {
		fmt.Printf("%-16s %-36s %-10s %-8s\n", c.Name, c.JiraURL, yesNo(c.ReadOnly), yesNo(c.IsActive))
	}

	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ---------- connection remove ----------

func newConnectionRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a connection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnectionRemove(args[0])
		},
	}

	return cmd
}

func runConnectionRemove(name string) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	if err := store.DeleteConnection(context.Background(), name); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}

	fmt.Printf("Removed connection %q\n", name)
	return nil
}

// ---------- connection test ----------

func newConnectionTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <name>",
		Short: "Test a connection's credentials",
		Long:  "Verify that the stored credentials authenticate against the connection's Jira and Xray endpoints.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnectionTest(args[0])
		},
	}

	return cmd
}

func runConnectionTest(name string) error {
	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	conn, err := store.GetConnectionByName(ctx, name)
	if err != nil {
		return fmt.Errorf("connection %q: %w", name, err)
	}

	if conn.JiraURL != "" {
		jira := client.NewJiraClient(conn, 0)
		if err := jira.Myself(ctx); err != nil {
			fmt.Printf("  Jira: FAILED (%v)\n", err)
		} else {
			fmt.Printf("  Jira: OK (%s)\n", conn.JiraURL)
		}
	}
	if conn.XrayURL != "" {
		xray := client.NewXrayClient(conn, 0)
		doc := "query { getTests(limit: 1) { total } }"
		if _, err := xray.Execute(ctx, doc, nil); err != nil {
			fmt.Printf("  Xray: FAILED (%v)\n", err)
		} else {
			fmt.Printf("  Xray: OK (%s)\n", conn.XrayURL)
		}
	}

	return nil
}
