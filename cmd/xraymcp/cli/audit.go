package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	var (
		verdict    string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent guard decisions",
		Long:  "Show the audit trail of validated queries, newest first. Every query that reaches the gateway is recorded with its verdict.",
		Example: `  xraymcp audit
  xraymcp audit --verdict rejected --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(verdict, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&verdict, "verdict", "", "Filter by verdict: accepted or rejected")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAudit(verdict string, limit int, jsonOutput bool) error {
	if verdict != "" && verdict != "accepted" && verdict != "rejected" {
		return fmt.Errorf("invalid verdict %q; use 'accepted' or 'rejected'", verdict)
	}

	store, err := openConfigStore()
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	defer store.Close()

	records, err := store.ListAudit(context.Background(), verdict, limit)
	if err != nil {
		return fmt.Errorf("list audit records: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No audit records yet.")
		return nil
	}

	fmt.Printf("%-20s %-8s %-9s %-6s %s\n", "TIME", "LANG", "VERDICT", "SRC", "QUERY")
	for _, rec := range records {
		query := rec.Query
		if len(query) > 60 {
			query = query[:57] + "..."
		}
		fmt.Printf("%-20s %-8s %-9s %-6s %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Language, rec.Verdict, rec.Source, query)
		if rec.Reason != "" {
			fmt.Printf("%-20s   reason: %s\n", "", rec.Reason)
		}
	}

	return nil
}
