package filter

import "regexp"

// Sanitization keeps a small allow-list of inline formatting tags and strips
// everything else, including script/style elements together with their
// content. Attributes are never preserved, even on allowed tags.
var (
	dangerousElements = regexp.MustCompile(`(?is)<(script|style|iframe|object|embed)\b[^>]*>.*?</\s*(script|style|iframe|object|embed)\s*>`)
	anyTag            = regexp.MustCompile(`(?s)<[^>]*>`)
	allowedTag        = regexp.MustCompile(`(?i)^</?(p|br|b|i|u|em|strong)\s*/?>$`)
)

// Sanitize strips all markup except the inline formatting allow-list
// (p, br, b, i, u, em, strong). The input is treated as untrusted text, not
// as a document; no HTML parsing is attempted.
func Sanitize(text string) string {
	text = dangerousElements.ReplaceAllString(text, "")
	return anyTag.ReplaceAllStringFunc(text, func(tag string) string {
		if allowedTag.MatchString(tag) {
			return tag
		}
		return ""
	})
}
