package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// genericThumbRe matches the platform's stock placeholder images. A URL
// matching it is rejected at every ranking stage and only used when
// nothing else qualifies.
var genericThumbRe = regexp.MustCompile(
	`(?i)(placeholder|/defaults?/|default[-_.](?:image|thumb|item)|blank\.(?:png|gif)|spacer\.|1x1\.)`)

// isGenericThumb reports whether a URL looks like a stock placeholder.
func isGenericThumb(u string) bool {
	return genericThumbRe.MatchString(u)
}

// structuredThumbnail ranks the page's declared images: JSON-LD
// image/thumbnailUrl fields first, then og:image/twitter:image meta tags.
// It returns the first non-generic candidate, plus the first meta image of
// any kind as a last resort for when no stage qualifies.
func structuredThumbnail(doc *goquery.Document, base *url.URL) (picked, lastResort string) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		for _, raw := range jsonLDImages(sel.Text()) {
			if u := resolveURL(base, raw); u != "" && !isGenericThumb(u) {
				picked = u
				return false
			}
		}
		return true
	})
	if picked != "" {
		return picked, lastResort
	}

	for _, selector := range []string{
		`meta[property="og:image"]`,
		`meta[name="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
	} {
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok {
			continue
		}
		u := resolveURL(base, content)
		if u == "" {
			continue
		}
		if lastResort == "" {
			lastResort = u
		}
		if !isGenericThumb(u) {
			return u, lastResort
		}
	}
	return "", lastResort
}

// jsonLDImages walks a JSON-LD payload and collects every image or
// thumbnailUrl value it can find, tolerating the object/array/@graph
// shapes the structured-data spec allows.
func jsonLDImages(raw string) []string {
	var node interface{}
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		return nil
	}
	var out []string
	walkJSONLD(node, &out)
	return out
}

func walkJSONLD(node interface{}, out *[]string) {
	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			walkJSONLD(item, out)
		}
	case map[string]interface{}:
		for _, key := range []string{"image", "thumbnailUrl"} {
			collectImageValues(v[key], out)
		}
		if graph, ok := v["@graph"]; ok {
			walkJSONLD(graph, out)
		}
	}
}

// collectImageValues accepts the string, list, and ImageObject forms of an
// image field.
func collectImageValues(node interface{}, out *[]string) {
	switch v := node.(type) {
	case string:
		if v != "" {
			*out = append(*out, v)
		}
	case []interface{}:
		for _, item := range v {
			collectImageValues(item, out)
		}
	case map[string]interface{}:
		if u, ok := v["url"].(string); ok && u != "" {
			*out = append(*out, u)
		}
	}
}

var bgImageRe = regexp.MustCompile(`(?i)background(?:-image)?\s*:\s*url\(["']?([^"')]+)`)

// inlineThumbnail is the static tier's best-guess stage: the first
// plausibly-sized content <img>, then the first inline background-image.
func inlineThumbnail(doc *goquery.Document, base *url.URL) string {
	picked := ""
	doc.Find("img").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok {
			return true
		}
		if tooSmall(sel.AttrOr("width", "")) || tooSmall(sel.AttrOr("height", "")) {
			return true
		}
		if u := resolveURL(base, src); u != "" && !isGenericThumb(u) {
			picked = u
			return false
		}
		return true
	})
	if picked != "" {
		return picked
	}

	doc.Find("[style]").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		m := bgImageRe.FindStringSubmatch(sel.AttrOr("style", ""))
		if m == nil {
			return true
		}
		if u := resolveURL(base, m[1]); u != "" && !isGenericThumb(u) {
			picked = u
			return false
		}
		return true
	})
	return picked
}

// tooSmall filters icons and tracking pixels when the markup declares a
// dimension. Undeclared dimensions pass.
func tooSmall(attr string) bool {
	if attr == "" {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(attr, "px"))
	if err != nil {
		return false
	}
	return n > 0 && n < 64
}
