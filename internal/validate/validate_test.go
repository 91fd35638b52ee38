package validate

import (
	"strings"
	"testing"
)

func TestVideoName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid", "My Video", ""},
		{"empty", "", ""},
		{"at limit", strings.Repeat("a", MaxVideoNameLength), ""},
		{"over limit", strings.Repeat("a", MaxVideoNameLength+1), "Ensure this value has at most 250 characters (it has 251)."},
	}
	for _, tt := range tests {
		if got := VideoName(tt.input); got != tt.want {
			t.Errorf("VideoName(%q [len=%d]) = %q, want %q", tt.name, len(tt.input), got, tt.want)
		}
	}
}

func TestVideoName_CountsCharactersNotBytes(t *testing.T) {
	name := strings.Repeat("é", MaxVideoNameLength)
	if got := VideoName(name); got != "" {
		t.Errorf("expected %d multibyte characters to be valid, got %q", MaxVideoNameLength, got)
	}
}

func TestWidgetTitle(t *testing.T) {
	if got := WidgetTitle(strings.Repeat("t", MaxWidgetTitleLength)); got != "" {
		t.Errorf("expected title at limit to be valid, got %q", got)
	}
	if got := WidgetTitle(strings.Repeat("t", MaxWidgetTitleLength+1)); got == "" {
		t.Error("expected title over limit to be rejected")
	}
}

func TestTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{"none", nil, ""},
		{"valid", []string{"music", "live"}, ""},
		{"tag too long", []string{strings.Repeat("x", MaxTagNameLength+1)}, `Tag "` + strings.Repeat("x", MaxTagNameLength+1) + `" is too long.`},
		{"too many", make([]string, MaxTagsPerVideo+1), "Ensure there are at most 30 tags."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tags(tt.tags); got != tt.want {
				t.Errorf("Tags() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileSize(t *testing.T) {
	if got := FileSize(MaxWidgetIconBytes, MaxWidgetIconBytes); got != "" {
		t.Errorf("expected size at limit to be valid, got %q", got)
	}
	if got := FileSize(MaxWidgetIconBytes+1, MaxWidgetIconBytes); got != "File must be 1048576 bytes or smaller." {
		t.Errorf("unexpected message %q", got)
	}
}
