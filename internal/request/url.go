package request

import (
	"net/url"
	"strings"
)

// urlAttributes decomposes a URL into the attribute set the rule evaluator
// matches against. Unparseable input yields empty attributes rather than an
// error; audience rules simply fail to match.
func urlAttributes(raw string) map[string]any {
	attrs := map[string]any{
		"url":            raw,
		"path":           "",
		"query":          "",
		"fragment":       "",
		"domain":         "",
		"subdomain":      "",
		"topLevelDomain": "",
	}

	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return attrs
	}

	attrs["path"] = u.Path
	attrs["query"] = u.RawQuery
	attrs["fragment"] = u.Fragment

	host := u.Hostname()
	attrs["domain"] = host

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		attrs["topLevelDomain"] = parts[len(parts)-1]
	}
	if len(parts) >= 3 {
		attrs["subdomain"] = parts[0]
		attrs["domain"] = strings.Join(parts[len(parts)-2:], ".")
	}
	return attrs
}
