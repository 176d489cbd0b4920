// Package redact scrubs secrets from diff text before it is sent to a model.
package redact

import "regexp"

const placeholder = "[REDACTED]"

type rule struct {
	name string
	re   *regexp.Regexp
}

var rules = []rule{
	{"aws-access-key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"aws-secret-key", regexp.MustCompile(`(?i)(aws_secret_access_key|aws_secret)\s*[:=]\s*[A-Za-z0-9/+=]{40}`)},
	{"private-key", regexp.MustCompile(`-----BEGIN [A-Z ]+PRIVATE KEY-----[\s\S]*?-----END [A-Z ]+PRIVATE KEY-----`)},
	{"bearer-token", regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`)},
	{"github-token", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`)},
	{"slack-token", regexp.MustCompile(`xox[baprs]-[A-Za-z0-9-]{10,}`)},
	{"generic-secret", regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?secret|secret[_-]?key|token|password|passwd|credentials)\s*[:=]\s*\S+`)},
}

// Apply replaces secret patterns in text with [REDACTED]. It returns the
// scrubbed text and the names of the rules that fired, in rule order.
func Apply(text string) (string, []string) {
	var fired []string
	for _, r := range rules {
		if !r.re.MatchString(text) {
			continue
		}
		text = r.re.ReplaceAllString(text, placeholder)
		fired = append(fired, r.name)
	}
	return text, fired
}

// Redact is Apply without the rule report.
func Redact(text string) string {
	out, _ := Apply(text)
	return out
}
