package request

import (
	"regexp"
	"strings"
)

// Minimal user-agent matcher covering the browsers and platforms audience
// rules target. Order matters: Edge and Opera embed "Chrome", Chrome embeds
// "Safari".
var browserMatchers = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"edge", regexp.MustCompile(`Edge?/([0-9.]+)`)},
	{"opera", regexp.MustCompile(`OPR/([0-9.]+)`)},
	{"firefox", regexp.MustCompile(`Firefox/([0-9.]+)`)},
	{"chrome", regexp.MustCompile(`Chrome/([0-9.]+)`)},
	{"safari", regexp.MustCompile(`Version/([0-9.]+).*Safari`)},
	{"ie", regexp.MustCompile(`MSIE ([0-9.]+)|rv:([0-9.]+)\) like Gecko`)},
}

// browserFromUserAgent returns the lower-case browser name and its major
// version string, or ("unknown", "") when nothing matches.
func browserFromUserAgent(ua string) (string, string) {
	for _, m := range browserMatchers {
		if sub := m.pattern.FindStringSubmatch(ua); sub != nil {
			version := sub[1]
			if version == "" && len(sub) > 2 {
				version = sub[2]
			}
			if i := strings.Index(version, "."); i > 0 {
				version = version[:i]
			}
			return m.name, version
		}
	}
	return "unknown", ""
}

// platformFromUserAgent normalizes the operating system to a canonical
// name: windows, mac, linux, ios or android.
func platformFromUserAgent(ua string) string {
	switch {
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"):
		return "ios"
	case strings.Contains(ua, "Android"):
		return "android"
	case strings.Contains(ua, "Macintosh"), strings.Contains(ua, "Mac OS"), strings.Contains(ua, "macOS"):
		return "mac"
	case strings.Contains(ua, "Windows"):
		return "windows"
	case strings.Contains(ua, "Linux"), strings.Contains(ua, "X11"):
		return "linux"
	default:
		return "unknown"
	}
}
