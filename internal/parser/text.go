package parser

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// BodyText turns message bodies into plain text. Bodies fetched from the
// mailbox and bodies posted by the UI may both carry markup.
type BodyText struct {
	markup    *regexp.Regexp
	spaces    *regexp.Regexp
	invisible *regexp.Regexp
}

// NewBodyText creates a BodyText
func NewBodyText() *BodyText {
	return &BodyText{
		markup:    regexp.MustCompile(`(?i)</?(html|body|p|div|br|table|td|tr|span|a|font|img|ul|li)\b[^>]*>`),
		spaces:    regexp.MustCompile(`[\t\f\r\v\p{Zs}]+`),
		// zero-width and formatting characters mailers use for tracking
		invisible: regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{034F}\x{061C}\x{180E}\x{2060}-\x{2064}\x{FE00}-\x{FE0F}]+`),
	}
}

// FromHTML converts an HTML document to text. Block elements start a new
// line and paragraphs are separated by a blank line. Links whose text
// differs from their target keep the target in parentheses.
func (b *BodyText) FromHTML(doc string) (string, error) {
	if strings.TrimSpace(doc) == "" {
		return "", nil
	}

	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", err
	}

	d.Find("script, style, head, title, noscript, meta, link").Remove()
	d.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, "http") || strings.TrimSpace(s.Text()) == href {
			return
		}
		s.AppendHtml(" (" + html.EscapeString(href) + ")")
	})
	d.Find("br").ReplaceWithHtml("\n")
	d.Find("p, h1, h2, h3, h4, h5, h6, table, blockquote").PrependHtml("\n\n")
	d.Find("div, li, tr").PrependHtml("\n")

	return b.clean(d.Text()), nil
}

// Plain returns body as text, converting it when it looks like HTML. A
// body that fails to parse is only cleaned.
func (b *BodyText) Plain(body string) string {
	if b.markup.MatchString(body) {
		if text, err := b.FromHTML(body); err == nil {
			return text
		}
	}
	return b.clean(body)
}

// Excerpt returns the body as a single line of at most max runes.
func (b *BodyText) Excerpt(body string, max int) string {
	text := strings.Join(strings.Fields(b.Plain(body)), " ")
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "…"
}

// clean trims every line and collapses runs of blank lines into one
func (b *BodyText) clean(text string) string {
	text = b.invisible.ReplaceAllString(text, "")
	text = b.spaces.ReplaceAllString(text, " ")

	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
