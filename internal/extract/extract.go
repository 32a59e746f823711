// Package extract pulls structured facts out of booking item pages.
//
// Pages arrive in two forms: raw static HTML, and a live DOM rendered by a
// headless browser for pages that only populate client-side. Both tiers
// produce the same Facts shape, every field best-effort, so the caller can
// try the static tier first and only pay for a browser render when the
// static markup came up short.
package extract

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Facts is the raw extraction result for one item page. All fields are
// best-effort; an item without an availability link and date label is
// skipped by the pipeline.
type Facts struct {
	Title           string
	Thumbnail       string
	AvailabilityURL string
	DateLabel       string
	BodyText        string
}

// HasAvailability reports whether the page yielded a next-availability
// link with its date label, the minimum needed to build an event.
func (f Facts) HasAvailability() bool {
	return f.AvailabilityURL != "" && f.DateLabel != ""
}

// The platform renders the next bookable occurrence as a
// "Prices for <a href=...>Saturday, September 5, 2026</a>" phrase.
var pricesForRe = regexp.MustCompile(`(?is)prices\s+for\b(?:\s|&nbsp;|<[^>]*>)*<a\s[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// FromHTML runs the static extraction tier over raw page markup.
func FromHTML(rawHTML, pageURL string) (Facts, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Facts{}, fmt.Errorf("parsing HTML: %w", err)
	}

	base, _ := url.Parse(pageURL)
	f := pageFacts(doc, rawHTML, base)

	thumb, lastResort := structuredThumbnail(doc, base)
	if thumb == "" {
		thumb = inlineThumbnail(doc, base)
	}
	if thumb == "" {
		thumb = lastResort
	}
	f.Thumbnail = thumb

	return f, nil
}

// pageFacts extracts title, availability link and body text; the thumbnail
// is ranked separately because the two tiers feed it different candidates.
func pageFacts(doc *goquery.Document, rawHTML string, base *url.URL) Facts {
	var f Facts

	f.Title = pageTitle(doc)

	if m := pricesForRe.FindStringSubmatch(rawHTML); m != nil {
		f.AvailabilityURL = resolveURL(base, m[1])
		f.DateLabel = strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[2], "")))
	}

	if body := doc.Find("body"); body.Length() > 0 {
		f.BodyText = body.Text()
	} else {
		f.BodyText = doc.Text()
	}

	return f
}

// pageTitle prefers the first heading, then the document title, then the
// social meta tags.
func pageTitle(doc *goquery.Document) string {
	title := ""
	doc.Find("h1, h2, h3").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			title = t
			return false
		}
		return true
	})
	if title != "" {
		return title
	}

	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}

	for _, selector := range []string{
		`meta[property="og:title"]`,
		`meta[name="twitter:title"]`,
	} {
		if content, ok := doc.Find(selector).First().Attr("content"); ok {
			if t := strings.TrimSpace(content); t != "" {
				return t
			}
		}
	}
	return ""
}

// resolveURL makes href absolute against the page URL. Already-absolute
// URLs pass through; garbage resolves to "".
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}
