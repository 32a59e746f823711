// Package listing discovers the set of bookable item pages for a company's
// booking flow.
//
// Discovery degrades in three steps: a static fetch of the listing page, a
// full browser render of it when the static markup carries no item links,
// and, when resolution fails outright, a reconstruction of candidate item
// URLs from the previously persisted events. A scrape run should degrade,
// not die, when the listing page has a bad day.
package listing

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"harborcal/internal/config"
	"harborcal/internal/event"
	"harborcal/internal/fetch"
	"harborcal/internal/logger"
)

// anchorHrefsExpr reads every anchor target from the live DOM.
const anchorHrefsExpr = `Array.from(document.querySelectorAll("a[href]")).map(a => a.href)`

// Resolver finds item page URLs for one configured company and flow.
type Resolver struct {
	client *fetch.Client
	cfg    *config.Config
}

// NewResolver creates a Resolver.
func NewResolver(client *fetch.Client, cfg *config.Config) *Resolver {
	return &Resolver{client: client, cfg: cfg}
}

// Resolve returns a deduplicated, order-preserving sequence of item page
// URLs, capped at the configured maximum. An empty result without an error
// means the listing genuinely showed no items; an error means resolution
// itself failed and the caller should fall back to reconstruction.
func (r *Resolver) Resolve(ctx context.Context) ([]string, error) {
	listingURL := r.cfg.ListingPageURL()

	rawHTML, err := r.client.Get(listingURL)
	if err != nil {
		return nil, fmt.Errorf("fetching listing page: %w", err)
	}

	urls, err := staticItemURLs(rawHTML, listingURL, r.cfg.Company)
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	if len(urls) == 0 && r.cfg.Browser {
		logger.Info("listing page had no static item links, rendering it", logger.Fields{
			"url": listingURL,
		})
		urls, err = r.renderedItemURLs(ctx, listingURL)
		if err != nil {
			return nil, fmt.Errorf("rendering listing page: %w", err)
		}
	}

	return r.cap(urls), nil
}

// staticItemURLs harvests item links from raw listing markup: anchors
// first (absolute or relative, resolved against the listing URL), then a
// markup-wide pattern scan that also catches item URLs embedded in inline
// script state.
func staticItemURLs(rawHTML, listingURL, company string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(listingURL)
	re := itemLinkRe(company)
	var urls []string
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		abs := resolve(base, href)
		if abs == "" {
			return
		}
		if m := re.FindStringSubmatch(abs); m != nil && !seen[m[1]] {
			seen[m[1]] = true
			urls = append(urls, abs)
		}
	})

	if len(urls) > 0 {
		return urls, nil
	}

	for _, m := range re.FindAllStringSubmatch(rawHTML, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		urls = append(urls, ItemPageURL(hostOf(base), company, m[1], ""))
	}
	return urls, nil
}

// renderedItemURLs loads the listing in a browser session and harvests
// item links from the live DOM after scripts have run.
func (r *Resolver) renderedItemURLs(ctx context.Context, listingURL string) ([]string, error) {
	session, err := fetch.NewSession(ctx, r.cfg.PageTimeout)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.Navigate(listingURL); err != nil {
		return nil, err
	}
	session.WaitQuiet(r.cfg.PageTimeout / 4)

	var hrefs []string
	if err := session.Eval(anchorHrefsExpr, &hrefs); err != nil {
		return nil, err
	}

	var urls []string
	seen := make(map[string]bool)
	re := itemLinkRe(r.cfg.Company)
	for _, href := range hrefs {
		if m := re.FindStringSubmatch(href); m != nil && !seen[m[1]] {
			seen[m[1]] = true
			urls = append(urls, href)
		}
	}
	return urls, nil
}

// Reconstruct rebuilds candidate item URLs from the item IDs embedded in
// previously persisted platform events. Last-resort input for a run whose
// listing resolution failed.
func Reconstruct(previous []event.Event, cfg *config.Config) []string {
	var urls []string
	seen := make(map[string]bool)
	for _, ev := range previous {
		if !event.IsPlatform(ev.URL, cfg.PlatformHost, cfg.Company) {
			continue
		}
		id := event.ItemID(ev.URL)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		urls = append(urls, ItemPageURL(cfg.PlatformHost, cfg.Company, id, cfg.Flow))
	}

	r := &Resolver{cfg: cfg}
	return r.cap(urls)
}

func (r *Resolver) cap(urls []string) []string {
	if len(urls) > r.cfg.MaxItems {
		urls = urls[:r.cfg.MaxItems]
	}
	return urls
}

// ItemPageURL builds the canonical page URL for one bookable item.
func ItemPageURL(host, company, id, flow string) string {
	u := fmt.Sprintf("https://%s/embeds/book/%s/items/%s/", host, company, id)
	if flow != "" {
		u += "?flow=" + flow
	}
	return u
}

// itemLinkRe matches item links scoped to the company path segment.
func itemLinkRe(company string) *regexp.Regexp {
	return regexp.MustCompile(`/` + regexp.QuoteMeta(company) + `/items/(\d+)`)
}

func resolve(base *url.URL, href string) string {
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

func hostOf(base *url.URL) string {
	if base == nil {
		return ""
	}
	return base.Host
}
