package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var citationRe = regexp.MustCompile(`\[\d+\]`)

// StripCitations removes bracketed footnote markers like [12] and trims.
func StripCitations(s string) string {
	return strings.TrimSpace(citationRe.ReplaceAllString(s, ""))
}

// ExtractSection returns the text of the blocks following the heading whose
// anchor id is sectionID, up to the next h2 or h3 heading. Blocks are joined
// by blank lines. It returns "" when the heading is absent.
func ExtractSection(doc *goquery.Document, sectionID string) string {
	heading := findHeading(doc, sectionID)
	if heading.Length() == 0 {
		return ""
	}
	var blocks []string
	for sib := heading.Next(); sib.Length() > 0; sib = sib.Next() {
		if isHeading(sib) {
			break
		}
		if txt := strings.Join(strings.Fields(sib.Text()), " "); txt != "" {
			blocks = append(blocks, txt)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// findHeading supports the legacy <h2><span class="mw-headline" id=...>
// markup and the newer <div class="mw-heading"><h2 id=...> layout.
func findHeading(doc *goquery.Document, id string) *goquery.Selection {
	attr := `[id="` + id + `"]`
	if span := doc.Find("span.mw-headline" + attr).First(); span.Length() > 0 {
		return span.Parent()
	}
	h := doc.Find("h2" + attr + ", h3" + attr).First()
	if h.Length() == 0 {
		return h
	}
	if p := h.Parent(); p.Is("div.mw-heading") {
		return p
	}
	return h
}

func isHeading(s *goquery.Selection) bool {
	if s.Is("h2, h3") {
		return true
	}
	return s.Is("div.mw-heading") && s.Find("h2, h3").Length() > 0
}
