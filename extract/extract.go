// Package extract pulls the main visible text out of an HTML page,
// skipping site chrome (navigation, headers, footers, cookie banners)
// so the index is built from content rather than boilerplate.
package extract

import (
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// whitespaceRE collapses runs of whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// Tags that never carry indexable text.
const strippedTags = "script, style, noscript, svg, img, picture, video, audio, canvas, form, button"

// Selectors for typical boilerplate containers. Kept generic so the
// extractor works across sites.
var boilerplateSelectors = []string{
	"header",
	"footer",
	"nav",
	"aside",
	".navbar",
	".nav",
	".navigation",
	".site-header",
	".site-footer",
	".footer",
	"#header",
	"#footer",
	"#nav",
	"#navbar",
	".cookie",
	".cookie-banner",
	"#cookie-banner",
	".banner",
}

// Candidates for the main content container, in preference order.
// <body> is the generic fallback; the document root catches pages
// without one.
var contentCandidates = []string{
	"main",
	"article",
	"#main",
	".main",
	".main-content",
	"#content",
	".content",
	".page-content",
	".layout__content",
	"body",
}

// Result is the extracted page content.
type Result struct {
	// Text is the main visible text with whitespace collapsed.
	Text string
	// Lang is the declared document language ("en", "de", ...), or ""
	// when the page declares none.
	Lang string
}

// Text parses HTML and extracts the main content text plus the declared
// language.
func Text(r io.Reader) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, err
	}

	lang := detectLang(doc)

	doc.Find(strippedTags).Remove()
	for _, sel := range boilerplateSelectors {
		doc.Find(sel).Remove()
	}

	root := doc.Selection
	for _, cand := range contentCandidates {
		if s := doc.Find(cand).First(); s.Length() > 0 {
			root = s
			break
		}
	}

	var b strings.Builder
	for _, n := range root.Nodes {
		collectText(n, &b)
	}
	text := strings.TrimSpace(whitespaceRE.ReplaceAllString(b.String(), " "))

	return Result{Text: text, Lang: lang}, nil
}

// collectText joins text nodes depth-first with single-space separators.
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		if s := strings.TrimSpace(n.Data); s != "" {
			b.WriteString(s)
			b.WriteByte(' ')
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// detectLang reads the declared language from html[lang], then
// meta[http-equiv=content-language], then meta[name=language].
func detectLang(doc *goquery.Document) string {
	if v, ok := doc.Find("html").Attr("lang"); ok {
		if lang := normLang(v); lang != "" {
			return lang
		}
	}
	var lang string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if he, _ := s.Attr("http-equiv"); strings.EqualFold(he, "content-language") {
			if content, _ := s.Attr("content"); normLang(content) != "" {
				lang = normLang(content)
				return false
			}
		}
		return true
	})
	if lang != "" {
		return lang
	}
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if name, _ := s.Attr("name"); strings.EqualFold(name, "language") {
			if content, _ := s.Attr("content"); normLang(content) != "" {
				lang = normLang(content)
				return false
			}
		}
		return true
	})
	return lang
}

// normLang reduces a language declaration to its bare code:
// "en-US, de" -> "en".
func normLang(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if i := strings.Index(v, ","); i >= 0 {
		v = v[:i]
	}
	if i := strings.Index(v, "-"); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
