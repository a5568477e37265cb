package client

import (
	"strings"

	"github.com/umisama/go-regexpcache"
)

const (
	ContentTypeApplicationJSON       = "application/json"
	ContentTypeApplicationJSONRegexp = `^application/([a-zA-Z0-9\.\-]+\+)?json$`
)

// IsJSONContentType returns true for "application/json" and its structured variants.
func IsJSONContentType(contentType string) bool {
	return regexpcache.MustCompile(ContentTypeApplicationJSONRegexp).MatchString(contentType)
}

// IsTextualContentType returns true if the content type is safe to print as text.
func IsTextualContentType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch {
	case strings.HasPrefix(contentType, "text/"):
		return true
	case IsJSONContentType(contentType):
		return true
	case contentType == "application/xml" || strings.HasSuffix(contentType, "+xml"):
		return true
	case contentType == "application/x-www-form-urlencoded":
		return true
	default:
		return false
	}
}
