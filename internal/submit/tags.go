package submit

import (
	"sort"
	"strings"
)

// ParseTags splits free-form tag input. Double-quoted phrases stay whole.
// Outside quotes, commas separate tags when any are present; otherwise
// whitespace does. The result is de-duplicated and sorted.
func ParseTags(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return []string{}
	}

	delimiter := " "
	if strings.ContainsRune(stripQuoted(input), ',') {
		delimiter = ","
	}

	seen := map[string]bool{}
	add := func(tag string) {
		tag = strings.Join(strings.Fields(tag), " ")
		if tag != "" {
			seen[tag] = true
		}
	}

	var current strings.Builder
	inQuote := false
	for _, r := range input {
		switch {
		case r == '"':
			add(current.String())
			current.Reset()
			inQuote = !inQuote
		case !inQuote && strings.ContainsRune(delimiter, r):
			add(current.String())
			current.Reset()
		case !inQuote && delimiter == " " && (r == '\t' || r == '\n' || r == '\r'):
			add(current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	add(current.String())

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func stripQuoted(s string) string {
	var b strings.Builder
	inQuote := false
	for _, r := range s {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			b.WriteRune(r)
		}
	}
	return b.String()
}
