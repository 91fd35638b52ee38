package validate

import (
	"fmt"
	"unicode/utf8"
)

// Field limits shared by the submission and admin forms.
const (
	MaxVideoNameLength   = 250
	MaxDescriptionLength = 10000
	MaxEmbedCodeLength   = 10000
	MaxURLLength         = 2000
	MaxTagNameLength     = 50
	MaxTagsPerVideo      = 30
	MaxWidgetTitleLength = 250
	MaxWidgetCSSBytes    = 100 * 1024
	MaxWidgetIconBytes   = 1024 * 1024
)

func checkLen(value string, max int) string {
	if n := utf8.RuneCountInString(value); n > max {
		return fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", max, n)
	}
	return ""
}

func VideoName(s string) string   { return checkLen(s, MaxVideoNameLength) }
func Description(s string) string { return checkLen(s, MaxDescriptionLength) }
func EmbedCode(s string) string   { return checkLen(s, MaxEmbedCodeLength) }
func URL(s string) string         { return checkLen(s, MaxURLLength) }
func TagName(s string) string     { return checkLen(s, MaxTagNameLength) }
func WidgetTitle(s string) string { return checkLen(s, MaxWidgetTitleLength) }

func Tags(tags []string) string {
	if len(tags) > MaxTagsPerVideo {
		return fmt.Sprintf("Ensure there are at most %d tags.", MaxTagsPerVideo)
	}
	for _, tag := range tags {
		if msg := TagName(tag); msg != "" {
			return fmt.Sprintf("Tag %q is too long.", tag)
		}
	}
	return ""
}

// FileSize reports an upload larger than max bytes.
func FileSize(size, max int64) string {
	if size > max {
		return fmt.Sprintf("File must be %d bytes or smaller.", max)
	}
	return ""
}
