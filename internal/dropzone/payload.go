package dropzone

import (
	"net/url"
	"strings"

	"github.com/google/shlex"
)

// ParsePayload extracts file paths from dropped text. Terminals deliver a
// drop as pasted text: paths separated by whitespace, possibly quoted,
// with backslash-escaped spaces, or as file:// URIs.
func ParsePayload(payload string) []string {
	tokens, err := shlex.Split(payload)
	if err != nil {
		// Unbalanced quotes: an unquoted path such as /tmp/it's.png.
		tokens = []string{strings.TrimSpace(payload)}
	}

	var paths []string
	for _, tok := range tokens {
		if p := normalizePath(tok); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func normalizePath(p string) string {
	if !strings.HasPrefix(p, "file://") {
		return p
	}
	u, err := url.Parse(p)
	if err != nil || u.Path == "" {
		return strings.TrimPrefix(p, "file://")
	}
	return u.Path
}
