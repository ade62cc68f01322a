package util

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLToText renders an HTML fragment as plain text, one block element per line.
func HTMLToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	// Some APIs (Greenhouse) double-escape their HTML.
	if strings.Contains(fragment, "&lt;") {
		fragment = html.UnescapeString(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CleanText(fragment)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var lines []string
	for _, ln := range strings.Split(doc.Text(), "\n") {
		if ln = CleanText(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\n")
}

// UnescapeHTML decodes entity-escaped HTML (Greenhouse "content") without stripping tags.
func UnescapeHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

// ScriptMatch returns the first submatch of re found in any <script> body of page.
func ScriptMatch(page string, re *regexp.Regexp) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	var found string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := re.FindStringSubmatch(s.Text()); len(m) > 1 && m[1] != "" {
			found = m[1]
			return false
		}
		return true
	})
	return found
}

// ScriptByID returns the body of <script id="...">, used for __NEXT_DATA__ payloads.
func ScriptByID(page, id string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find(`script[id="` + id + `"]`).First().Text())
}
