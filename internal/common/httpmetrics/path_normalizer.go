package httpmetrics

import "strings"

const (
	usersCollection = "/api/users"
	userItemPrefix  = "/api/users/"
	otherPath       = "/other"
)

var knownPaths = map[string]struct{}{
	"/":                {},
	"/health":          {},
	"/metrics":         {},
	"/ws/registration": {},
	usersCollection:    {},
}

// NormalizePath maps a request path onto a bounded label set: the registry
// routes, one template for user ids, and a catch-all for everything else.
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if _, ok := knownPaths[path]; ok {
		return path
	}
	if rest, ok := strings.CutPrefix(path, userItemPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return userItemPrefix + "{id}"
	}
	return otherPath
}
