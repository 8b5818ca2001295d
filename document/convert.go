package document

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// ConvertResult is the outcome of HTML normalization.
type ConvertResult struct {
	Title string
	Text  string
}

// Converter normalizes HTML documents to markdown text before chunking.
// Table layout survives as markdown tables, which the chunker keeps
// intact across segment boundaries.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates an HTML to markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{converter: converter}
}

// Convert extracts the main content of an HTML document and renders it as
// markdown text.
func (c *Converter) Convert(htmlContent []byte) (*ConvertResult, error) {
	title := extractHTMLTitle(htmlContent)

	// Readability strips boilerplate (navigation, letterhead chrome) and
	// keeps the content area. Fall back to the raw body when it finds
	// nothing usable.
	body := string(htmlContent)
	base, _ := url.Parse("file:///document")
	if article, err := readability.FromReader(strings.NewReader(body), base); err == nil && strings.TrimSpace(article.Content) != "" {
		body = article.Content
		if title == "" {
			title = strings.TrimSpace(article.Title)
		}
	}

	markdown, err := c.converter.ConvertString(body)
	if err != nil {
		return nil, fmt.Errorf("convert html: %w", err)
	}
	markdown = tidyMarkdown(markdown)

	if title == "" {
		title = extractMarkdownTitle(markdown)
	}

	return &ConvertResult{Title: title, Text: markdown}, nil
}

// FromFile builds a document from raw file content. HTML files are
// normalized to markdown text first; everything else passes through
// untouched. When conversion fails the raw markup is kept, so the
// gatherer can still quote from it.
func FromFile(filename string, content []byte) Document {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".html" || ext == ".htm" {
		if res, err := NewConverter().Convert(content); err == nil && strings.TrimSpace(res.Text) != "" {
			return New(filename, res.Text)
		}
	}
	return New(filename, string(content))
}

// extractHTMLTitle extracts the title element from HTML.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			extract(c)
		}
	}
	extract(doc)

	return title
}

// tidyMarkdown cleans up converted markdown.
func tidyMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	content = strings.Join(lines, "\n")

	return strings.TrimSpace(content)
}

// extractMarkdownTitle extracts the first H1 heading from markdown.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
