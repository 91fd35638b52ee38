package submit

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StripTags removes markup from s and keeps its text as written, so
// entities stay escaped. Script and style contents are dropped along with
// their tags.
func StripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Raw())
			}
		case html.StartTagToken:
			if isRawText(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawText(z) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawText(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	a := atom.Lookup(name)
	return a == atom.Script || a == atom.Style
}

// Metadata is what a page advertises about itself through its title and
// Open Graph tags.
type Metadata struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
	VideoURL     string `json:"videoUrl"`
}

// HasVideo reports whether the page declared a playable video.
func (m Metadata) HasVideo() bool {
	return m.VideoURL != ""
}

// ParseMetadata reads the <title> and og:* meta tags from an HTML document.
func ParseMetadata(r io.Reader) (Metadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Metadata{}, err
	}

	var m Metadata
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case atom.Meta:
				applyMeta(&m, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if m.Title == "" {
		m.Title = title
	}
	return m, nil
}

func applyMeta(m *Metadata, n *html.Node) {
	var property, content string
	for _, attr := range n.Attr {
		switch attr.Key {
		case "property", "name":
			property = strings.ToLower(attr.Val)
		case "content":
			content = strings.TrimSpace(attr.Val)
		}
	}
	if content == "" {
		return
	}
	switch property {
	case "og:title":
		m.Title = content
	case "og:description":
		m.Description = content
	case "description":
		if m.Description == "" {
			m.Description = content
		}
	case "og:image":
		m.ThumbnailURL = content
	case "og:video", "og:video:url", "og:video:secure_url":
		if m.VideoURL == "" {
			m.VideoURL = content
		}
	}
}
