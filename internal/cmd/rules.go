package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/output"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the detection rules that would be evaluated",
	Long: `List the active rules: the built-in catalog overlaid with any --rules files,
narrowed by --categories and --min-severity.

Examples:
  logsentry rules
  logsentry rules --categories web_attack,auth_attack
  logsentry rules --rules custom.yaml --output json`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

type ruleJSON struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Patterns    []string       `json:"patterns"`
	Severity    model.Severity `json:"severity"`
	Confidence  int            `json:"confidence"`
	Category    string         `json:"category"`
	Tags        []string       `json:"tags,omitempty"`
	Threshold   int            `json:"threshold,omitempty"`
	GroupBy     rules.GroupBy  `json:"group_by,omitempty"`
}

func runRules(cmd *cobra.Command, _ []string) error {
	e, _, err := newEngine(nil)
	if err != nil {
		return err
	}
	active := e.ActiveRules()
	if settings.Output != "json" {
		return output.WriteRules(cmd.OutOrStdout(), active)
	}

	list := make([]ruleJSON, 0, len(active))
	for _, r := range active {
		patterns := make([]string, len(r.Patterns))
		for i, re := range r.Patterns {
			patterns[i] = re.String()
		}
		list = append(list, ruleJSON{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Patterns:    patterns,
			Severity:    r.Severity,
			Confidence:  r.BaseConfidence,
			Category:    r.Category,
			Tags:        r.Tags,
			Threshold:   r.Threshold,
			GroupBy:     r.GroupBy,
		})
	}
	return output.WriteJSON(cmd.OutOrStdout(), list)
}
