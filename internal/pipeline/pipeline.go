// Package pipeline orchestrates one scrape run: resolve the listing, visit
// each item page, assemble the event sequence, and replace the persisted
// document.
//
// The run is deliberately sequential. Items are visited one at a time with
// a politeness pause between them; this is a rate limit on the upstream
// site, not a performance concern. Per-item failures are logged and
// skipped, and only listing-level failure and the empty-result guard
// surface to the caller.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"harborcal/internal/assemble"
	"harborcal/internal/config"
	"harborcal/internal/event"
	"harborcal/internal/extract"
	"harborcal/internal/fetch"
	"harborcal/internal/listing"
	"harborcal/internal/logger"
	"harborcal/internal/storage"
	"harborcal/internal/timetext"
)

// Pipeline runs the scrape for one configuration.
type Pipeline struct {
	cfg      *config.Config
	client   *fetch.Client
	store    *storage.Store
	limiter  *rate.Limiter
	location *time.Location
}

// New builds a Pipeline from a validated configuration.
func New(cfg *config.Config) (*Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolving timezone: %w", err)
	}
	return &Pipeline{
		cfg:      cfg,
		client:   fetch.NewClient(cfg.HTTPTimeout),
		store:    storage.New(cfg.OutputPath),
		limiter:  rate.NewLimiter(rate.Every(cfg.Delay), 1),
		location: loc,
	}, nil
}

// Run executes one full pass. It returns assemble.ErrEmptyResult when the
// run produced nothing and empty writes were not permitted; the existing
// document is untouched in that case.
func (p *Pipeline) Run(ctx context.Context) error {
	previous, err := p.store.Load()
	if err != nil {
		// A corrupt document should not kill the run; merging just has
		// nothing to carry forward.
		logger.Warn("could not read existing events document", logger.Fields{
			"path":  p.store.Path(),
			"error": err.Error(),
		})
		previous = nil
	}

	urls, err := listing.NewResolver(p.client, p.cfg).Resolve(ctx)
	if err != nil {
		logger.Error("listing resolution failed, reconstructing item URLs from persisted events", nil, err)
		logger.IncrCounter("listing.reconstructed")
		urls = listing.Reconstruct(previous, p.cfg)
	}
	logger.Info("resolved item pages", logger.Fields{"count": len(urls)})

	var candidates []event.Event
	for _, pageURL := range urls {
		started := time.Now()
		ev, ok := p.scrapeItem(ctx, pageURL)
		logger.RecordTiming("item.scrape", time.Since(started))
		if ok {
			logger.IncrCounter("item.scraped")
			candidates = append(candidates, ev)
		} else {
			logger.IncrCounter("item.skipped")
		}

		// Politeness pause before the next item.
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("run canceled: %w", err)
		}
	}

	asm := &assemble.Assembler{
		Host:       p.cfg.PlatformHost,
		Company:    p.cfg.Company,
		Location:   p.location,
		Merge:      p.cfg.Merge,
		AllowEmpty: p.cfg.AllowEmpty,
	}
	events, err := asm.Assemble(candidates, previous, time.Now())
	if err != nil {
		return err
	}

	logger.Debug("run metrics", logger.Fields{"metrics": logger.MetricsSnapshot()})

	if !p.cfg.Write {
		data, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding events: %w", err)
		}
		fmt.Fprintf(os.Stdout, "%s\n", data)
		return nil
	}

	if err := p.store.Write(events); err != nil {
		return err
	}
	logger.Info("events document written", logger.Fields{
		"path":   p.store.Path(),
		"events": len(events),
	})
	return nil
}

// scrapeItem extracts one item page into a candidate event. A false return
// means the item is skipped; every skip is a warning, never an error,
// because partial coverage is acceptable.
func (p *Pipeline) scrapeItem(ctx context.Context, pageURL string) (event.Event, bool) {
	facts := p.staticFacts(pageURL)

	// The browser tier is only worth its cost when the static markup
	// lacked the availability link or a parseable time.
	_, timeFound := timetext.ParseWindow(facts.BodyText)
	if p.cfg.Browser && (!facts.HasAvailability() || !timeFound) {
		rendered, err := p.renderedFacts(ctx, pageURL)
		if err != nil {
			logger.Warn("browser tier failed for item", logger.Fields{
				"url":   pageURL,
				"error": err.Error(),
			})
		} else {
			facts = mergeFacts(facts, rendered)
		}
	}

	if !facts.HasAvailability() {
		logger.Warn("item has no extractable availability, skipping", logger.Fields{"url": pageURL})
		return event.Event{}, false
	}

	date, err := timetext.ParseDateLabel(facts.DateLabel)
	if err != nil {
		logger.Warn("unparseable availability date, skipping item", logger.Fields{
			"url":   pageURL,
			"label": facts.DateLabel,
		})
		return event.Event{}, false
	}

	window, found := timetext.ParseWindow(facts.BodyText)
	if !found {
		logger.Debug("no time information on page, using default window", logger.Fields{"url": pageURL})
	}

	return event.Event{
		Title:     facts.Title,
		Start:     event.FormatLocal(date, window.Start.Hour, window.Start.Minute),
		End:       event.FormatLocal(date, window.End.Hour, window.End.Minute),
		URL:       facts.AvailabilityURL,
		Thumbnail: facts.Thumbnail,
	}, true
}

// staticFacts runs the static tier; fetch or parse failure reduces to
// empty facts so the browser tier can still try.
func (p *Pipeline) staticFacts(pageURL string) extract.Facts {
	rawHTML, err := p.client.Get(pageURL)
	if err != nil {
		logger.Warn("static fetch failed", logger.Fields{
			"url":   pageURL,
			"error": err.Error(),
		})
		return extract.Facts{}
	}

	facts, err := extract.FromHTML(rawHTML, pageURL)
	if err != nil {
		logger.Warn("static extraction failed", logger.Fields{
			"url":   pageURL,
			"error": err.Error(),
		})
		return extract.Facts{}
	}
	return facts
}

// renderedFacts runs the browser tier in a session scoped to this one
// item, so a misbehaving page cannot poison later items.
func (p *Pipeline) renderedFacts(ctx context.Context, pageURL string) (extract.Facts, error) {
	session, err := fetch.NewSession(ctx, p.cfg.PageTimeout)
	if err != nil {
		return extract.Facts{}, err
	}
	defer session.Close()

	return extract.FromSession(session, pageURL)
}

// mergeFacts overlays browser-tier facts onto static-tier facts, keeping
// the rendered value wherever it produced one.
func mergeFacts(static, rendered extract.Facts) extract.Facts {
	out := static
	if rendered.Title != "" {
		out.Title = rendered.Title
	}
	if rendered.Thumbnail != "" {
		out.Thumbnail = rendered.Thumbnail
	}
	if rendered.AvailabilityURL != "" {
		out.AvailabilityURL = rendered.AvailabilityURL
		out.DateLabel = rendered.DateLabel
	}
	if len(rendered.BodyText) > len(static.BodyText) {
		out.BodyText = rendered.BodyText
	}
	return out
}
