package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/guard"
	"github.com/bikeracer4487/xray-mcp-sub001/internal/service"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a query without forwarding it",
		Long: `Run a JQL query or GraphQL document through the whitelist validator without
forwarding it anywhere. The verdict is recorded in the audit log like any
other query. Useful for checking queries while writing agent prompts or CI
fixtures. Pass "-" to read the query from stdin.`,
	}

	cmd.AddCommand(newValidateJQLCmd())
	cmd.AddCommand(newValidateGraphQLCmd())

	return cmd
}

func newValidateJQLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jql <query>",
		Short: "Validate a JQL query against the whitelist",
		Example: `  xraymcp validate jql 'project = PROJ AND status = "In Progress"'
  cat query.jql | xraymcp validate jql -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := readQueryArg(args[0])
			if err != nil {
				return err
			}
			gateway, closeStore, err := openGateway()
			if err != nil {
				return err
			}
			defer closeStore()
			sanitized, err := gateway.ValidateJQL(context.Background(), query, "cli")
			return printVerdict(sanitized, err)
		},
	}

	return cmd
}

func newValidateGraphQLCmd() *cobra.Command {
	var variablesJSON string

	cmd := &cobra.Command{
		Use:     "graphql <document>",
		Aliases: []string{"gql"},
		Short:   "Validate a GraphQL document against the whitelist",
		Example: `  xraymcp validate graphql 'query { getTests(limit: 10) { total } }'
  xraymcp validate graphql 'query ($id: String!) { getTest(issueId: $id) { jira } }' --variables '{"id":"PROJ-1"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			document, err := readQueryArg(args[0])
			if err != nil {
				return err
			}
			var variables map[string]interface{}
			if variablesJSON != "" {
				if err := json.Unmarshal([]byte(variablesJSON), &variables); err != nil {
					return fmt.Errorf("parse --variables: %w", err)
				}
			}
			gateway, closeStore, err := openGateway()
			if err != nil {
				return err
			}
			defer closeStore()
			sanitized, err := gateway.ValidateGraphQL(context.Background(), document, variables, "cli")
			return printVerdict(sanitized, err)
		},
	}

	cmd.Flags().StringVar(&variablesJSON, "variables", "", "GraphQL variables as a JSON object")

	return cmd
}

// openGateway builds a gateway backed by the config store so CLI
// validations land in the same audit log as HTTP and MCP traffic.
func openGateway() (*service.Gateway, func(), error) {
	store, err := openConfigStore()
	if err != nil {
		return nil, nil, fmt.Errorf("open config store: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	gateway := service.NewGateway(store, nil, logger, 0)
	return gateway, func() { store.Close() }, nil
}

func readQueryArg(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// printVerdict writes the validation result and returns a non-nil error on
// rejection so the process exits non-zero for scripting.
func printVerdict(sanitized string, err error) error {
	if err != nil {
		fmt.Printf("REJECTED (%s)\n", guard.KindOf(err))
		fmt.Printf("  %v\n", err)
		return fmt.Errorf("query rejected")
	}
	fmt.Println("ACCEPTED")
	fmt.Printf("  %s\n", sanitized)
	return nil
}
