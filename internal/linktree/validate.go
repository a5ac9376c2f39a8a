package linktree

import "strings"

// ImageValue returns value unchanged when it is an absolute http(s) URL or
// an embedded image data URI, and "" otherwise. Relative paths and arbitrary
// schemes are silently coerced to empty rather than rejected with an error,
// so a bad reference clears the field instead of failing the whole sync.
func ImageValue(value string) string {
	switch {
	case strings.HasPrefix(value, "http://"),
		strings.HasPrefix(value, "https://"),
		strings.HasPrefix(value, "data:image/"):
		return value
	default:
		return ""
	}
}
