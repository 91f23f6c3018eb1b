package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/engine"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/rules"
	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/source"
)

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"rules":  len(s.cfg.Engine.ActiveRules()),
	}
	if s.cfg.Aggregator != nil {
		stats := s.cfg.Aggregator.Snapshot()
		body["uptime"] = stats.Uptime
		body["files_watched"] = stats.FilesWatched
		body["lines_processed"] = stats.LinesProcessed
		body["dropped_events"] = stats.DroppedEvents
	}
	c.JSON(http.StatusOK, body)
}

type ruleView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Severity    model.Severity `json:"severity"`
	Confidence  int            `json:"confidence"`
	Category    string         `json:"category"`
	Tags        []string       `json:"tags,omitempty"`
	Threshold   int            `json:"threshold,omitempty"`
	GroupBy     rules.GroupBy  `json:"group_by,omitempty"`
	Active      bool           `json:"active"`
}

// handleRules lists the catalog. ?category= and ?min_severity= filter it.
func (s *Server) handleRules(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	catalog := s.cfg.Engine.Catalog()
	for _, cat := range f.Categories {
		if !catalog.HasCategory(cat) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + strconv.Quote(cat)})
			return
		}
	}

	active := make(map[string]bool)
	for _, r := range s.cfg.Engine.ActiveRules() {
		active[r.ID] = true
	}
	view := catalog.View(f)
	out := make([]ruleView, 0, view.Len())
	for _, r := range view.Rules() {
		out = append(out, ruleView{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Severity:    r.Severity,
			Confidence:  r.BaseConfidence,
			Category:    r.Category,
			Tags:        r.Tags,
			Threshold:   r.Threshold,
			GroupBy:     r.GroupBy,
			Active:      active[r.ID],
		})
	}
	c.JSON(http.StatusOK, gin.H{"rules": out, "categories": catalog.Categories()})
}

// handleStats returns live counters and the per-source results of watched files.
func (s *Server) handleStats(c *gin.Context) {
	if s.cfg.Aggregator == nil || s.cfg.Hub == nil {
		c.JSON(http.StatusOK, gin.H{"watching": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"watching": true,
		"live":     s.cfg.Aggregator.Snapshot(),
		"sources":  s.cfg.Hub.Results(c.Request.Context()),
	})
}

// handleAnalyze runs the request body, plain or gzip, through the engine.
// ?category=, ?min_severity= and ?max_lines= narrow the run.
func (s *Server) handleAnalyze(c *gin.Context) {
	e, err := s.engineFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := source.Wrap(http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer body.Close()

	name := c.DefaultQuery("name", "request")
	res, err := e.AnalyzeReader(c.Request.Context(), name, body)
	if err != nil {
		status := http.StatusUnprocessableEntity
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.log.Warn("analysis request ended early", "error", err, "lines", res.TotalLines)
		c.JSON(status, gin.H{"error": err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, res)
}

type testRequest struct {
	Text string `json:"text" binding:"required"`
}

type testMatch struct {
	model.Detection
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// handleTest runs the rules against the single line in {"text": ...}. The same
// query filters as /api/analyze apply.
func (s *Server) handleTest(c *gin.Context) {
	var req testRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no text provided"})
		return
	}
	e, err := s.engineFor(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, dets := e.Inspect(req.Text)
	matches := make([]testMatch, 0, len(dets))
	for _, d := range dets {
		m := testMatch{Detection: d}
		if r, ok := e.Catalog().Get(d.RuleID); ok {
			m.Description = r.Description
			m.Tags = r.Tags
		}
		matches = append(matches, m)
	}
	c.JSON(http.StatusOK, gin.H{
		"format":        rec.Format,
		"detections":    matches,
		"total_matches": len(matches),
	})
}

// engineFor returns the shared engine, or a narrowed one when the request
// carries filters.
func (s *Server) engineFor(c *gin.Context) (*engine.Engine, error) {
	f, err := filterFromQuery(c)
	if err != nil {
		return nil, err
	}
	maxLines := 0
	if v := c.Query("max_lines"); v != "" {
		if maxLines, err = strconv.Atoi(v); err != nil {
			return nil, &engine.ConfigError{Field: "max_lines", Err: err}
		}
	}
	if len(f.Categories) == 0 && f.MinSeverity == model.SeverityLow && maxLines == 0 {
		return s.cfg.Engine, nil
	}

	opts := s.cfg.Engine.Options()
	if len(f.Categories) > 0 {
		opts.EnabledCategories = f.Categories
	}
	if f.MinSeverity > opts.MinSeverity {
		opts.MinSeverity = f.MinSeverity
	}
	if maxLines != 0 {
		opts.MaxLines = maxLines
	}
	return engine.New(s.cfg.Engine.Catalog(), opts)
}

func filterFromQuery(c *gin.Context) (rules.Filter, error) {
	var f rules.Filter
	for _, v := range c.QueryArray("category") {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Categories = append(f.Categories, part)
			}
		}
	}
	if v := c.Query("min_severity"); v != "" {
		sev, err := model.ParseSeverity(v)
		if err != nil {
			return f, &engine.ConfigError{Field: "min_severity", Err: err}
		}
		f.MinSeverity = sev
	}
	return f, nil
}
