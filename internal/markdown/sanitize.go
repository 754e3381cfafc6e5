package markdown

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// Elements skipped together with their content
var dropTags = map[string]bool{
	"script": true, "style": true, "iframe": true,
	"object": true, "embed": true, "noscript": true,
}

// ugc allows the formatting a note editor produces and nothing active.
// Policies are safe for concurrent use once built.
var ugc = bluemonday.UGCPolicy()

// SanitizeHTML re-renders an HTML fragment keeping only allowlisted
// elements, attributes and URL schemes
func SanitizeHTML(fragment string) string {
	return ugc.Sanitize(fragment)
}

// PlainText returns the readable text of an HTML document with whitespace
// collapsed. Block elements end a line.
func PlainText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && dropTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br":
				sb.WriteString("\n")
			}
		}
	}
	walk(doc)

	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
