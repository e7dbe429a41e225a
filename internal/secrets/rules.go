package secrets

import "regexp"

// Rule is one secret detection pattern.
type Rule struct {
	ID      string
	Pattern *regexp.Regexp
}

// DefaultRules returns the credentials most likely to be pasted into a
// standup channel or spoken into a meeting transcript.
func DefaultRules() []Rule {
	return []Rule{
		{"slack-token", regexp.MustCompile(`xox[abposr]-[A-Za-z0-9-]{10,}`)},
		{"slack-webhook", regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Za-z0-9/]+`)},
		{"linear-api-key", regexp.MustCompile(`lin_(?:api|oauth)_[A-Za-z0-9]{20,}`)},
		{"google-api-key", regexp.MustCompile(`AIza[0-9A-Za-z_\-]{35}`)},
		{"openai-api-key", regexp.MustCompile(`sk-(?:proj-)?[A-Za-z0-9_\-]{20,}`)},
		{"github-token", regexp.MustCompile(`(?:ghp|gho|ghu|ghs)_[A-Za-z0-9]{36}|github_pat_[A-Za-z0-9_]{22,}`)},
		{"aws-access-key-id", regexp.MustCompile(`(?:AKIA|ASIA)[A-Z0-9]{16}`)},
		{"private-key", regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |PGP )?PRIVATE KEY-----`)},
		{"jwt", regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
		{"bearer", regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]{16,}`)},
		{"password-assignment", regexp.MustCompile(`(?i)(?:password|passwd|secret|api[_-]?key)\s*[:=]\s*['"]?[^\s'"]{8,}`)},
	}
}
