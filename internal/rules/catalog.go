package rules

import (
	"fmt"
	"sort"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

// Catalog is an ordered, immutable set of compiled rules keyed by ID.
type Catalog struct {
	rules      []*Rule
	index      map[string]int
	categories []string
}

// NewCatalog compiles defs in order. It fails on the first invalid definition or
// duplicate ID, so a broken rule never silently drops out of the catalog.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		rules: make([]*Rule, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	seen := make(map[string]bool)
	for _, d := range defs {
		r, err := Compile(d)
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[r.ID]; dup {
			return nil, &CompileError{RuleID: r.ID, Err: fmt.Errorf("duplicate rule id")}
		}
		c.index[r.ID] = len(c.rules)
		c.rules = append(c.rules, r)
		if !seen[r.Category] {
			seen[r.Category] = true
			c.categories = append(c.categories, r.Category)
		}
	}
	sort.Strings(c.categories)
	return c, nil
}

// Default compiles the built-in rules.
func Default() (*Catalog, error) {
	return NewCatalog(Builtin())
}

// Len returns the number of rules.
func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns the rules in catalog order.
func (c *Catalog) Rules() []*Rule {
	out := make([]*Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Get returns the rule with the given ID.
func (c *Catalog) Get(id string) (*Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.rules[i], true
}

// Index returns the catalog position of id, or -1.
func (c *Catalog) Index(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// HasCategory reports whether any rule belongs to category.
func (c *Catalog) HasCategory(category string) bool {
	i := sort.SearchStrings(c.categories, category)
	return i < len(c.categories) && c.categories[i] == category
}

// Filter selects the rules a View exposes. Empty Categories means all.
type Filter struct {
	Categories  []string
	MinSeverity model.Severity
}

// View is a read-only subset of a catalog. It shares the compiled rules.
type View struct {
	catalog *Catalog
	rules   []*Rule
}

// View returns the rules matching f, in catalog order.
func (c *Catalog) View(f Filter) *View {
	var cats map[string]bool
	if len(f.Categories) > 0 {
		cats = make(map[string]bool, len(f.Categories))
		for _, cat := range f.Categories {
			cats[cat] = true
		}
	}
	v := &View{catalog: c}
	for _, r := range c.rules {
		if r.Severity < f.MinSeverity {
			continue
		}
		if cats != nil && !cats[r.Category] {
			continue
		}
		v.rules = append(v.rules, r)
	}
	return v
}

// Rules returns the active rules in catalog order. Callers must not modify the slice.
func (v *View) Rules() []*Rule { return v.rules }

// Len returns the number of active rules.
func (v *View) Len() int { return len(v.rules) }

// Catalog returns the catalog the view was taken from.
func (v *View) Catalog() *Catalog { return v.catalog }
