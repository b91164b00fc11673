package request

import (
	"fmt"
	"strings"
	"time"
)

// Context is the normalized attribute tree audience rules evaluate
// against. Built fresh per request, never shared.
type Context map[string]any

// BuildContext composes the decisioning context for one request: timing,
// user agent derived attributes, page/referring URL decomposition and geo.
// String attributes gain case-folded duplicates keyed with an "_lc" suffix
// so rules can compare case-insensitively without re-deriving them.
func BuildContext(req *DeliveryRequest, now time.Time) Context {
	raw := RequestContext{}
	if req != nil && req.Context != nil {
		raw = *req.Context
	}

	ctx := Context{}
	timingContext(ctx, now)
	ctx["user"] = userContext(raw)
	ctx["page"] = pageContext(raw.Address, false)
	ctx["referring"] = pageContext(raw.Address, true)
	ctx["geo"] = geoContext(raw.Geo)
	return ctx
}

func timingContext(ctx Context, now time.Time) {
	utc := now.UTC()
	day := int(utc.Weekday())
	if day == 0 {
		day = 7 // Sunday
	}
	ctx["current_timestamp"] = utc.UnixMilli()
	ctx["current_time"] = fmt.Sprintf("%02d%02d", utc.Hour(), utc.Minute())
	ctx["current_day"] = day
}

func userContext(raw RequestContext) map[string]any {
	browser, version := browserFromUserAgent(raw.UserAgent)
	return map[string]any{
		"browserType":    browser,
		"browserVersion": version,
		"platform":       platformFromUserAgent(raw.UserAgent),
		"locale":         "en",
	}
}

func pageContext(addr *Address, referring bool) map[string]any {
	u := ""
	if addr != nil {
		if referring {
			u = addr.ReferringURL
		} else {
			u = addr.URL
		}
	}
	return withLowerCase(urlAttributes(u))
}

func geoContext(geo *Geo) map[string]any {
	if geo == nil {
		geo = &Geo{}
	}
	return map[string]any{
		"country":   geo.CountryCode,
		"region":    geo.StateCode,
		"city":      geo.City,
		"latitude":  geo.Latitude,
		"longitude": geo.Longitude,
	}
}

// MboxParameters un-flattens dotted and bracketed parameter keys into a
// nested tree, then recursively adds case-folded duplicates.
func MboxParameters(params map[string]string) map[string]any {
	tree := map[string]any{}
	for key, value := range params {
		insertFlattened(tree, splitKey(key), value)
	}
	foldRecursive(tree)
	return tree
}

// splitKey turns "a.b" or "a[b][c]" into path segments.
func splitKey(key string) []string {
	key = strings.ReplaceAll(key, "]", "")
	key = strings.ReplaceAll(key, "[", ".")
	return strings.Split(key, ".")
}

func insertFlattened(tree map[string]any, path []string, value string) {
	for len(path) > 1 {
		child, ok := tree[path[0]].(map[string]any)
		if !ok {
			if _, exists := tree[path[0]]; exists {
				return // scalar already present under this key
			}
			child = map[string]any{}
			tree[path[0]] = child
		}
		tree = child
		path = path[1:]
	}
	if _, exists := tree[path[0]]; !exists {
		tree[path[0]] = value
	}
}

// withLowerCase returns obj plus an "<key>_lc" duplicate for every entry,
// lower-cased when the value is a string.
func withLowerCase(obj map[string]any) map[string]any {
	for key, value := range obj {
		if strings.HasSuffix(key, "_lc") {
			continue
		}
		if s, ok := value.(string); ok {
			obj[key+"_lc"] = strings.ToLower(s)
		} else {
			obj[key+"_lc"] = value
		}
	}
	return obj
}

func foldRecursive(obj map[string]any) {
	for _, value := range obj {
		if child, ok := value.(map[string]any); ok {
			foldRecursive(child)
		}
	}
	withLowerCase(obj)
}

// WithAsk returns a shallow copy of c carrying the per-ask mbox parameters
// and the visitor's computed allocation.
func (c Context) WithAsk(mbox map[string]any, allocation float64) Context {
	out := make(Context, len(c)+2)
	for k, v := range c {
		out[k] = v
	}
	out["mbox"] = mbox
	out["allocation"] = allocation
	return out
}

// Lookup resolves a dotted attribute path, e.g. "page.url_lc" or
// "mbox.profile.age".
func (c Context) Lookup(path string) (any, bool) {
	var cur any = map[string]any(c)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
