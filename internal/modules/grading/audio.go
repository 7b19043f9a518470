package grading

import (
	"net/url"
	"path"
	"strings"
)

// AudioFileName is the last path segment of an answer's audio URL, without any
// query string or fragment.
func AudioFileName(audioURL string) string {
	raw := strings.TrimSpace(audioURL)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	} else if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	name := path.Base(strings.TrimRight(raw, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// AudioObjectKey places the file name under the configured bucket prefix.
func AudioObjectKey(prefix, audioURL string) string {
	name := AudioFileName(audioURL)
	if name == "" {
		return ""
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
