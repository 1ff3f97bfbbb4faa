package filesystem

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// ResolvePath converts a file:// URI or a bare path into a clean absolute path.
// Relative paths resolve against the working directory.
func ResolvePath(uri string) (string, error) {
	p := strings.TrimSpace(uri)
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if strings.HasPrefix(p, "file://") {
		u, err := url.Parse(p)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", uri, err)
		}
		p = u.Path
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", uri, err)
	}
	return abs, nil
}
