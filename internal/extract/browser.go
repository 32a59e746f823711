package extract

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"harborcal/internal/fetch"
)

// Bounded waits inside the browser tier. All of them degrade to "proceed
// anyway" on timeout.
const (
	idleWait    = 8 * time.Second
	headingWait = 5 * time.Second
)

// headingReadyExpr is true once a heading has rendered real text. The
// platform's client-side template initially leaves a "{{...}}" token in
// the heading until its scripts hydrate the page.
const headingReadyExpr = `(() => {
	const h = document.querySelector("h1, h2");
	return !!h && h.textContent.trim().length > 0 && !h.textContent.includes("{{");
})()`

// imageScoreExpr collects every rendered image with a score of visible
// area times a per-source weight, plus a large fixed bonus for images
// inside recognized hero/gallery containers.
const imageScoreExpr = `(() => {
	const heroBonus = 1000000;
	const inHero = (el) => !!el.closest(
		'[class*="hero"], [class*="gallery"], [class*="carousel"], [class*="slideshow"], [class*="banner"]');
	const out = [];
	for (const img of Array.from(document.images)) {
		const r = img.getBoundingClientRect();
		let score = r.width * r.height;
		if (score <= 0) continue;
		if (inHero(img)) score += heroBonus;
		const src = img.currentSrc || img.src;
		if (src) out.push({url: src, score: score});
	}
	for (const el of Array.from(document.querySelectorAll('[style*="background"]'))) {
		const m = /url\(["']?([^"')]+)/.exec(el.getAttribute("style") || "");
		if (!m) continue;
		const r = el.getBoundingClientRect();
		let score = r.width * r.height * 0.8;
		if (score <= 0) continue;
		if (inHero(el)) score += heroBonus;
		try { out.push({url: new URL(m[1], location.href).href, score: score}); } catch (e) {}
	}
	return out;
})()`

type scoredImage struct {
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// FromSession runs the browser extraction tier against an already-created
// session: navigate, wait for the page to settle and the heading to
// hydrate, then read the same facts from the live DOM, with a scored
// candidate search standing in for the static tier's inline-image guess.
func FromSession(s *fetch.Session, pageURL string) (Facts, error) {
	if err := s.Navigate(pageURL); err != nil {
		return Facts{}, err
	}
	s.WaitQuiet(idleWait)
	s.WaitFor(headingReadyExpr, headingWait)

	rendered, err := s.HTML()
	if err != nil {
		return Facts{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return Facts{}, err
	}

	base, _ := url.Parse(pageURL)
	f := pageFacts(doc, rendered, base)

	thumb, lastResort := structuredThumbnail(doc, base)
	if thumb == "" {
		var imgs []scoredImage
		if evalErr := s.Eval(imageScoreExpr, &imgs); evalErr == nil {
			thumb = bestScored(imgs)
		}
	}
	if thumb == "" {
		thumb = lastResort
	}
	f.Thumbnail = thumb

	return f, nil
}

// bestScored picks the highest-scoring candidate that survives the
// placeholder denylist.
func bestScored(imgs []scoredImage) string {
	sort.SliceStable(imgs, func(i, j int) bool {
		return imgs[i].Score > imgs[j].Score
	})
	for _, img := range imgs {
		if img.URL != "" && !isGenericThumb(img.URL) {
			return img.URL
		}
	}
	return ""
}
