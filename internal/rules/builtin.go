package rules

// Categories of the built-in rules.
const (
	CategoryWebAttack      = "web_attack"
	CategoryAuthAttack     = "auth_attack"
	CategoryNetworkAttack  = "network_attack"
	CategoryReconnaissance = "reconnaissance"
	CategorySystemAttack   = "system_attack"
	CategoryMalware        = "malware"
	CategoryExfiltration   = "exfiltration"
)

var failedLoginPatterns = []string{
	`failed (login|password)`,
	`auth\w*\s+fail(ed|ure)?`,
	`invalid (credentials|password|user)`,
	`login (failed|failure|incorrect)`,
	`an account failed to log on`,
	`access denied for user`,
}

// Builtin returns the definitions of the built-in rules, in catalog order.
// The returned slice is a fresh copy.
func Builtin() []Definition {
	defs := make([]Definition, len(builtin))
	for i, d := range builtin {
		d.Patterns = append([]string(nil), d.Patterns...)
		d.Tags = append([]string(nil), d.Tags...)
		defs[i] = d
	}
	return defs
}

var builtin = []Definition{
	// Web attacks
	{
		ID:          "sql_injection",
		Name:        "SQL Injection",
		Description: "SQL injection attempt detected",
		Severity:    "high",
		Confidence:  80,
		Category:    CategoryWebAttack,
		Tags:        []string{"sqli", "injection", "web"},
		Patterns: []string{
			`union(\s|\+|%20|/\*.*?\*/)+(all(\s|\+|%20)+)?select`,
			`(%27|')\s*(or|and)(\s|\+|%20)+'?\w+'?\s*=\s*'?\w+`,
			`;\s*(drop|delete|insert|update|alter)\s+(table|from|into)\b`,
			`\bselect\s+[\w*,\s]{1,80}\s+from\s+\w+`,
			`\b(sleep|benchmark)\s*\(\s*\d|waitfor\s+delay\s+'`,
			`information_schema`,
		},
	},
	{
		ID:          "xss_attempt",
		Name:        "Cross-Site Scripting",
		Description: "Cross-site scripting (XSS) attempt",
		Severity:    "high",
		Confidence:  85,
		Category:    CategoryWebAttack,
		Tags:        []string{"xss", "injection", "web"},
		Patterns: []string{
			`<script`,
			`%3cscript`,
			`javascript:`,
			`\bon(load|error|mouseover|focus|click)\s*=`,
			`<iframe`,
			`\beval\(`,
			`document\.cookie`,
			`\balert\(`,
		},
	},
	{
		ID:          "directory_traversal",
		Name:        "Directory Traversal",
		Description: "Directory traversal attempt",
		Severity:    "high",
		Confidence:  85,
		Category:    CategoryWebAttack,
		Tags:        []string{"directory_traversal", "path_traversal"},
		Patterns: []string{
			`\.\./`,
			`\.\.\\`,
			`%2e%2e(%2f|%5c|/)`,
			`\.\.%2f`,
			`%252e%252e`,
		},
	},
	{
		ID:          "lfi_rfi_attempt",
		Name:        "File Inclusion",
		Description: "Local or remote file inclusion attempt",
		Severity:    "high",
		Confidence:  80,
		Category:    CategoryWebAttack,
		Tags:        []string{"lfi", "rfi", "file_inclusion"},
		Patterns: []string{
			`\b(php|file|zip|data|expect|phar)://`,
			`[?&]\w+=(https?|ftp)(://|%3a%2f%2f)`,
			`/proc/self/(environ|cmdline|fd)`,
			`[?&](file|page|path|include|template|doc)=[^&\s]*\.\./`,
		},
	},
	{
		ID:          "command_injection",
		Name:        "Command Injection",
		Description: "Command injection attempt",
		Severity:    "critical",
		Confidence:  85,
		Category:    CategoryWebAttack,
		Tags:        []string{"command_injection", "rce"},
		Patterns: []string{
			`(;|\|\|?|&&|\x60|\$\(|%0a|%0d|%3b|%7c|%26%26)\s*(cat|ls|id|whoami|uname|nc|netcat|wget|curl|python[23]?|perl|bash|sh|ping|nslookup)(\s|\+|%20|\x60|\)|;|$)`,
			`\$\{IFS\}`,
			`/bin/(ba)?sh\s+-c\s`,
		},
	},
	{
		ID:          "jndi_injection",
		Name:        "JNDI Lookup Injection",
		Description: "JNDI lookup injection (Log4Shell) attempt",
		Severity:    "critical",
		Confidence:  95,
		Category:    CategoryWebAttack,
		Tags:        []string{"log4shell", "injection", "rce"},
		Patterns: []string{
			`\$\{jndi:(ldap|ldaps|rmi|dns|iiop|corba|nds|http)s?:`,
			`\$\{[^}]{0,30}\$\{(lower|upper|env|::-)`,
			`%24%7bjndi`,
		},
	},
	{
		ID:          "ssrf_attempt",
		Name:        "Server-Side Request Forgery",
		Description: "Request targeting internal or metadata endpoints",
		Severity:    "medium",
		Confidence:  70,
		Category:    CategoryWebAttack,
		Tags:        []string{"ssrf", "web"},
		Patterns: []string{
			`169\.254\.169\.254`,
			`metadata\.google\.internal`,
			`[?&](url|uri|dest|redirect|target|next)=(https?|gopher|dict)(://|%3a%2f%2f)(localhost|127\.|0\.0\.0\.0|\[::1\])`,
			`\bgopher://`,
		},
	},

	// Authentication attacks
	{
		ID:          "failed_login_attempt",
		Name:        "Failed Login",
		Description: "Failed login attempt detected",
		Severity:    "medium",
		Confidence:  75,
		Category:    CategoryAuthAttack,
		Tags:        []string{"bruteforce", "authentication"},
		Patterns:    failedLoginPatterns,
	},
	{
		ID:          "brute_force",
		Name:        "Brute Force",
		Description: "Repeated failed logins from the same source",
		Severity:    "high",
		Confidence:  90,
		Category:    CategoryAuthAttack,
		Tags:        []string{"bruteforce", "authentication", "repeated"},
		Patterns:    failedLoginPatterns,
		Threshold:   5,
		GroupBy:     GroupByUser,
	},
	{
		ID:          "credential_stuffing",
		Name:        "Credential Stuffing",
		Description: "Many login submissions from the same source",
		Severity:    "high",
		Confidence:  80,
		Category:    CategoryAuthAttack,
		Tags:        []string{"credential_stuffing", "bruteforce"},
		Patterns: []string{
			`POST\s+/\S*(login|signin|sign-in|auth|session)`,
		},
		Threshold: 10,
		GroupBy:   GroupByIP,
	},
	{
		ID:          "account_lockout",
		Name:        "Account Lockout",
		Description: "Account locked after repeated failures",
		Severity:    "medium",
		Confidence:  70,
		Category:    CategoryAuthAttack,
		Tags:        []string{"authentication", "lockout"},
		Patterns: []string{
			`account (is |has been |was )?(locked|disabled)`,
			`too many (failed|login|authentication) (attempts|failures)`,
			`maximum authentication attempts exceeded`,
		},
	},

	// Network attacks
	{
		ID:          "port_scan",
		Name:        "Port Scan",
		Description: "Port scanning activity detected",
		Severity:    "medium",
		Confidence:  70,
		Category:    CategoryNetworkAttack,
		Tags:        []string{"port_scan", "reconnaissance"},
		Patterns: []string{
			`connection refused`,
			`\[UFW BLOCK\]`,
			`\bDPT=\d+.*\bSYN\b`,
			`did not receive identification string`,
		},
		Threshold: 10,
		GroupBy:   GroupByIP,
	},
	{
		ID:          "dns_tunneling",
		Name:        "DNS Tunneling",
		Description: "Potential DNS tunneling",
		Severity:    "high",
		Confidence:  70,
		Category:    CategoryNetworkAttack,
		Tags:        []string{"dns_tunneling", "exfiltration"},
		Patterns: []string{
			`\b[a-f0-9]{24,}\.([a-z0-9-]+\.)*[a-z0-9-]+\.(com|net|org|io|info|xyz|top)\b`,
			`\b[a-z0-9+/]{50,}={0,2}\.[a-z0-9-]+\.[a-z]{2,}\b`,
		},
	},

	// Reconnaissance
	{
		ID:          "scanner_tool",
		Name:        "Scanner Tool",
		Description: "Known security scanner or attack tool",
		Severity:    "medium",
		Confidence:  80,
		Category:    CategoryReconnaissance,
		Tags:        []string{"scanning", "tooling"},
		Patterns: []string{
			`\b(sqlmap|nikto|nmap|masscan|zmap|dirbuster|gobuster|wfuzz|ffuf|hydra|medusa|nuclei|acunetix|nessus|openvas|w3af|zgrab)\b`,
		},
	},
	{
		ID:          "suspicious_user_agent",
		Name:        "Suspicious User Agent",
		Description: "Suspicious user agent detected",
		Severity:    "medium",
		Confidence:  75,
		Category:    CategoryReconnaissance,
		Tags:        []string{"suspicious_ua", "scanning"},
		Patterns: []string{
			`user.agent[:=\s"]+.{0,40}(sqlmap|nikto|nmap|burp|dirb|gobuster|wfuzz|hydra|medusa|masscan)`,
			`"(python-requests|python-urllib|libwww-perl|go-http-client|curl|wget|scrapy|okhttp|java)/[\d.]+"\s*$`,
		},
	},
	{
		ID:          "http_error_response",
		Name:        "HTTP Error Response",
		Description: "HTTP client or server error response",
		Severity:    "low",
		Confidence:  60,
		Category:    CategoryReconnaissance,
		Tags:        []string{"http_error", "web"},
		Patterns: []string{
			`HTTP/[12](\.[01])?"?\s+[45]\d{2}\b`,
		},
	},
	{
		ID:          "admin_probe",
		Name:        "Admin Interface Probe",
		Description: "Request for an administrative or sensitive endpoint",
		Severity:    "low",
		Confidence:  65,
		Category:    CategoryReconnaissance,
		Tags:        []string{"probing", "web"},
		Patterns: []string{
			`/(wp-admin|wp-login\.php|phpmyadmin|administrator|admin\.php|manager/html|server-status|actuator|xmlrpc\.php)\b`,
			`/\.(env|git/(config|HEAD))\b`,
			`\s/admin(/|\s|\?)`,
		},
	},

	// System attacks
	{
		ID:          "privilege_escalation",
		Name:        "Privilege Escalation",
		Description: "Potential privilege escalation attempt",
		Severity:    "high",
		Confidence:  70,
		Category:    CategorySystemAttack,
		Tags:        []string{"privilege_escalation", "admin"},
		Patterns: []string{
			`privilege\s+escalat`,
			`\bsudo\s+(su|-i|-s|bash|sh)\b`,
			`\bsudo:.{0,120}(authentication failure|incorrect password attempts|not in (the )?sudoers)`,
			`\bsu(\[\d+\])?:\s*(FAILED SU|authentication failure)`,
			`\brunas\s+/user:(administrator|system)`,
			`\bchmod\s+(u\+s|[2467][0-7]{3})\s`,
			`\bbecome\s+root\b`,
			`uid=0\(root\)`,
		},
	},
	{
		ID:          "suspicious_file_access",
		Name:        "Sensitive File Access",
		Description: "Access to sensitive system or credential files",
		Severity:    "high",
		Confidence:  90,
		Category:    CategorySystemAttack,
		Tags:        []string{"sensitive_files", "credential_access"},
		Patterns: []string{
			`/etc/(passwd|shadow|sudoers|gshadow)\b`,
			`[/\\]windows[/\\]system32[/\\]config[/\\]sam\b`,
			`\.ssh/(id_rsa|id_ed25519|authorized_keys)\b`,
			`\.aws/credentials\b`,
			`\.(htpasswd|bash_history)\b`,
			`\b(win|boot)\.ini\b`,
		},
	},
	{
		ID:          "persistence",
		Name:        "Persistence Mechanism",
		Description: "Creation of a persistence mechanism",
		Severity:    "medium",
		Confidence:  65,
		Category:    CategorySystemAttack,
		Tags:        []string{"persistence"},
		Patterns: []string{
			`\bcrontab\s+-e\b`,
			`/etc/(cron\.d|crontab|rc\.local|init\.d)\b`,
			`\bsystemctl\s+enable\s+\S+`,
			`\buseradd\s`,
			`\bschtasks(\.exe)?\s+/create`,
			`currentversion\\run\b`,
		},
	},

	// Malware
	{
		ID:          "reverse_shell",
		Name:        "Reverse Shell",
		Description: "Reverse shell attempt",
		Severity:    "critical",
		Confidence:  90,
		Category:    CategoryMalware,
		Tags:        []string{"reverse_shell", "backdoor"},
		Patterns: []string{
			`\bnc(at)?\s+(-\w+\s+)*-e\s`,
			`/bin/(ba)?sh\s+-i\b`,
			`/dev/tcp/\d{1,3}(\.\d{1,3}){3}/\d+`,
			`python[23]?\s+-c\s+.{0,40}socket`,
			`perl\s+-e\s+.{0,40}socket`,
			`socat\s+.{0,40}exec:`,
			`mkfifo\s+/tmp/`,
		},
	},
	{
		ID:          "crypto_mining",
		Name:        "Crypto Mining",
		Description: "Cryptocurrency mining activity",
		Severity:    "medium",
		Confidence:  70,
		Category:    CategoryMalware,
		Tags:        []string{"cryptomining", "malware"},
		Patterns: []string{
			`stratum\+(tcp|ssl)://`,
			`\b(xmrig|ccminer|cgminer|cpuminer|minerd|nicehash)\b`,
			`\bcryptonight\b`,
			`\b(minexmr|supportxmr|nanopool|moneroocean)\b`,
		},
	},
	{
		ID:          "web_shell",
		Name:        "Web Shell",
		Description: "Web shell upload or use",
		Severity:    "high",
		Confidence:  80,
		Category:    CategoryMalware,
		Tags:        []string{"web_shell", "backdoor"},
		Patterns: []string{
			`/(c99|r57|wso|b374k|shell|cmd)\.(php|asp|aspx|jsp)\b`,
			`[?&](cmd|exec|command)=[^&\s]*(whoami|uname|ls|dir|cat)`,
			`\b(eval|assert|system|passthru|shell_exec)\s*\(\s*(\$_(GET|POST|REQUEST)|base64_decode)`,
		},
	},
	{
		ID:          "malware_download",
		Name:        "Malware Download",
		Description: "Download and execution of a remote payload",
		Severity:    "critical",
		Confidence:  85,
		Category:    CategoryMalware,
		Tags:        []string{"dropper", "malware"},
		Patterns: []string{
			`\b(curl|wget)\s[^|;]{0,200}\|\s*(sudo\s+)?(ba)?sh\b`,
			`\bchmod\s+(\+x|[0-7]?7[0-7]{2})\s+/tmp/`,
			`\b(powershell|pwsh)(\.exe)?\s.{0,80}(downloadstring|downloadfile|invoke-webrequest|\biwr\b)`,
			`\bcertutil(\.exe)?\s+.{0,40}-urlcache`,
		},
	},

	// Exfiltration
	{
		ID:          "data_exfiltration",
		Name:        "Data Exfiltration",
		Description: "Potential data exfiltration",
		Severity:    "high",
		Confidence:  75,
		Category:    CategoryExfiltration,
		Tags:        []string{"exfiltration", "data_theft"},
		Patterns: []string{
			`\b(wget|curl|ftp)\b.{0,200}\s-[oO]\s*\S*\.(sql|db|backup|bak|dump|csv|xlsx?)\b`,
			`\b(scp|rsync)\b.{0,200}\.(sql|db|dump|bak)\s+\S+@\S+:`,
			`\b(mysqldump|pg_dump)\b.{0,200}\|\s*(nc|curl|ssh)\b`,
			`\bcurl\s.{0,80}(-T\s|--upload-file|-F\s*["']?\w+=@)`,
		},
	},
	{
		ID:          "large_data_transfer",
		Name:        "Large Data Transfer",
		Description: "Large data transfer detected",
		Severity:    "medium",
		Confidence:  60,
		Category:    CategoryExfiltration,
		Tags:        []string{"large_transfer", "exfiltration"},
		Patterns: []string{
			`(POST|PUT).{0,200}content-length:\s*[1-9]\d{7,}`,
			`"\s+200\s+[1-9]\d{7,}\b`,
		},
	},
}
