package middleware

import (
	"fmt"
	"path"
	"strings"
)

// Rule decides whether requests whose path matches Pattern skip token checks.
//
// Patterns use Ant-style wildcards: "*" and "?" match within one path segment,
// "**" matches zero or more whole segments.
type Rule struct {
	Pattern string
	Bypass  bool
}

// Rules is an ordered rule list; the first matching rule wins
type Rules []Rule

// DefaultRules mirrors the public endpoints of the service
func DefaultRules() Rules {
	return Rules{
		{Pattern: "/auth/**", Bypass: true},
		{Pattern: "/oauth2/idpresponse", Bypass: true},
		{Pattern: "/api/usuarios/register", Bypass: true},
		{Pattern: "/healthz", Bypass: true},
		{Pattern: "/readyz", Bypass: true},
		{Pattern: "/metrics", Bypass: true},
	}
}

// Bypass reports whether path skips authentication. Paths matching no rule are protected.
func (rs Rules) Bypass(p string) bool {
	for _, rule := range rs {
		if MatchPattern(rule.Pattern, p) {
			return rule.Bypass
		}
	}
	return false
}

// Validate checks every pattern is absolute and well-formed
func (rs Rules) Validate() error {
	for i, rule := range rs {
		if !strings.HasPrefix(rule.Pattern, "/") {
			return fmt.Errorf("rule %d: pattern %q must start with /", i, rule.Pattern)
		}
		for _, seg := range splitPath(rule.Pattern) {
			if seg == "**" {
				continue
			}
			if _, err := path.Match(seg, ""); err != nil {
				return fmt.Errorf("rule %d: pattern %q: %w", i, rule.Pattern, err)
			}
		}
	}
	return nil
}

// MatchPattern matches a request path against an Ant-style pattern
func MatchPattern(pattern, p string) bool {
	return matchSegments(splitPath(pattern), splitPath(p))
}

func matchSegments(pattern, segments []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(segments); i++ {
				if matchSegments(rest, segments[i:]) {
					return true
				}
			}
			return false
		}
		if len(segments) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], segments[0]); err != nil || !ok {
			return false
		}
		pattern, segments = pattern[1:], segments[1:]
	}
	return len(segments) == 0
}

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
}
