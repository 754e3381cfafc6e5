package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	headingRe = regexp.MustCompile(`(?m)^(#+)[ \t]+(.*)$`)
	spaceRe   = regexp.MustCompile(`\s+`)
	nonWordRe = regexp.MustCompile(`[^\w\-]+`)
	dashRunRe = regexp.MustCompile(`-{2,}`)
	bulletRe  = regexp.MustCompile(`^(\s*)[*+] `)
)

// Heading is one entry of a generated table of contents
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Slug  string `json:"slug"`
}

// Slugify lowercases text, turns whitespace runs into dashes and drops
// anything that is not a word character or a dash
func Slugify(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = spaceRe.ReplaceAllString(s, "-")
	s = nonWordRe.ReplaceAllString(s, "")
	return dashRunRe.ReplaceAllString(s, "-")
}

// GenerateTOC anchors every ATX heading in md with {#slug} and returns a
// nested bullet list linking to them. Repeated slugs get -2, -3, ...
func GenerateTOC(md string) (toc string, content string) {
	headings, content := anchorHeadings(md)

	lines := make([]string, len(headings))
	for i, h := range headings {
		lines[i] = fmt.Sprintf("%s- [%s](#%s)", strings.Repeat("  ", h.Level-1), h.Text, h.Slug)
	}
	return strings.Join(lines, "\n"), content
}

// Headings returns the headings GenerateTOC would link to
func Headings(md string) []Heading {
	hs, _ := anchorHeadings(md)
	return hs
}

// WithTOC prepends the table of contents to the anchored content,
// separated by a horizontal rule
func WithTOC(md string) string {
	toc, content := GenerateTOC(md)
	return toc + "\n\n---\n\n" + content
}

func anchorHeadings(md string) ([]Heading, string) {
	var headings []Heading
	counts := make(map[string]int)

	content := headingRe.ReplaceAllStringFunc(md, func(line string) string {
		m := headingRe.FindStringSubmatch(line)
		hashes, text := m[1], m[2]

		slug := Slugify(text)
		counts[slug]++
		if n := counts[slug]; n > 1 {
			slug = fmt.Sprintf("%s-%d", slug, n)
		}

		headings = append(headings, Heading{Level: len(hashes), Text: text, Slug: slug})
		return fmt.Sprintf("%s %s {#%s}", hashes, text, slug)
	})
	return headings, content
}

// Correct trims trailing whitespace from every line and normalizes
// unordered list markers to "-", keeping indentation
func Correct(md string) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		lines[i] = bulletRe.ReplaceAllString(line, "$1- ")
	}
	return strings.Join(lines, "\n")
}

// CharacterCount counts characters, not bytes
func CharacterCount(text string) int {
	return utf8.RuneCountInString(text)
}
