package output

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
)

// MaxCSVMatchedText bounds the Matched Text column.
const MaxCSVMatchedText = 100

var csvHeader = []string{
	"Line Number", "Timestamp", "Severity", "Rule", "Category",
	"Description", "Matched Text", "Confidence",
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes one row per detection. Descriptions come from catalog, which
// may be nil.
func WriteCSV(w io.Writer, dets []model.Detection, catalog *rules.Catalog) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, d := range dets {
		ts := ""
		if !d.Timestamp.IsZero() {
			ts = d.Timestamp.Format(time.RFC3339)
		}
		desc := ""
		if catalog != nil {
			if r, ok := catalog.Get(d.RuleID); ok {
				desc = r.Description
			}
		}
		row := []string{
			strconv.Itoa(d.LineNumber),
			ts,
			d.Severity.String(),
			d.RuleName,
			d.Category,
			desc,
			Clip(d.MatchedText, MaxCSVMatchedText),
			strconv.Itoa(d.Confidence),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
