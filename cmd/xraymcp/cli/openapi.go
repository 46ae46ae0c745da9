package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bikeracer4487/xray-mcp-sub001/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  "Generate the OpenAPI 3.1 specification for the gateway REST API and print it to stdout or a file.",
		Example: `  xraymcp openapi
  xraymcp openapi --base-url https://gateway.example.com -o openapi.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(baseURL, outputFile)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Server URL embedded in the spec")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")

	return cmd
}

func runOpenAPI(baseURL, outputFile string) error {
	doc := openapi.GenerateSpec(baseURL, versionString())

	raw, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	var buf json.RawMessage = raw
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return fmt.Errorf("format spec: %w", err)
	}
	pretty = append(pretty, '\n')

	if outputFile != "" {
		if err := os.WriteFile(outputFile, pretty, 0644); err != nil {
			return fmt.Errorf("write spec: %w", err)
		}
		fmt.Printf("Wrote OpenAPI spec to %s\n", outputFile)
		return nil
	}

	_, err = os.Stdout.Write(pretty)
	return err
}
